package repo

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

func TestDecodeTargetIDs(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	data, err := json.Marshal(ids)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	decoded, err := decodeTargetIDs(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decoded) != 2 || decoded[0] != ids[0] || decoded[1] != ids[1] {
		t.Fatalf("expected %v, got %v", ids, decoded)
	}
}

func TestDecodeTargetIDsRejectsEmptyGroup(t *testing.T) {
	if _, err := decodeTargetIDs(nil); err == nil {
		t.Fatal("expected error for empty group")
	}
}

func TestDecodeTargetIDsRejectsMalformedJSON(t *testing.T) {
	if _, err := decodeTargetIDs([]byte(`{"not":"a list"}`)); err == nil {
		t.Fatal("expected error for malformed group")
	}
}

func TestUUIDToPg(t *testing.T) {
	id := uuid.New()
	pg := uuidToPg(id)
	if !pg.Valid || uuid.UUID(pg.Bytes) != id {
		t.Fatalf("round trip failed: %+v", pg)
	}
}
