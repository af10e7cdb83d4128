package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/bundle-engine/internal/bundle"
)

// ErrNotFound indicates the requested bundle could not be located.
var ErrNotFound = errors.New("bundle not found")

// DB captures the pgx methods required by the repositories. Both *pgxpool.Pool
// and *pgx.Conn satisfy it.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Bundles is the read-side bundle repository. Definitions are validated at
// load time so the matcher can assume well-formed input.
type Bundles struct {
	DB DB
}

const selectBundle = `
SELECT id, name, description, enabled, active_from, active_to,
       pricing_mode, price, percent_bps, sort_order, total_uses
FROM bundles
`

// ListActiveBundles returns enabled bundles whose date window covers asOf,
// ordered by sort order.
func (r Bundles) ListActiveBundles(ctx context.Context, asOf time.Time) ([]bundle.Bundle, error) {
	query := selectBundle + `
WHERE enabled
  AND (active_from IS NULL OR active_from <= $1)
  AND (active_to IS NULL OR active_to >= $1)
ORDER BY sort_order, id`
	rows, err := r.DB.Query(ctx, query, pgtype.Timestamptz{Time: asOf, Valid: true})
	if err != nil {
		return nil, fmt.Errorf("repo: list active bundles: %w", err)
	}
	defer rows.Close()

	var bundles []bundle.Bundle
	for rows.Next() {
		b, err := scanBundle(rows)
		if err != nil {
			return nil, fmt.Errorf("repo: scan bundle: %w", err)
		}
		bundles = append(bundles, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo: list active bundles: %w", err)
	}
	if err := r.loadRules(ctx, bundles); err != nil {
		return nil, err
	}
	for i := range bundles {
		if err := bundles[i].Validate(); err != nil {
			return nil, fmt.Errorf("repo: bundle %s: %w", bundles[i].ID, err)
		}
	}
	return bundles, nil
}

// GetBundleByID fetches a single bundle, rules included.
func (r Bundles) GetBundleByID(ctx context.Context, id uuid.UUID) (bundle.Bundle, error) {
	row := r.DB.QueryRow(ctx, selectBundle+`WHERE id = $1`, uuidToPg(id))
	b, err := scanBundle(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return bundle.Bundle{}, ErrNotFound
		}
		return bundle.Bundle{}, fmt.Errorf("repo: get bundle: %w", err)
	}
	bundles := []bundle.Bundle{b}
	if err := r.loadRules(ctx, bundles); err != nil {
		return bundle.Bundle{}, err
	}
	if err := bundles[0].Validate(); err != nil {
		return bundle.Bundle{}, fmt.Errorf("repo: bundle %s: %w", id, err)
	}
	return bundles[0], nil
}

// loadRules attaches each bundle's rules in declared (position) order.
// Target ids are stored as a JSON-encoded group per rule.
func (r Bundles) loadRules(ctx context.Context, bundles []bundle.Bundle) error {
	if len(bundles) == 0 {
		return nil
	}
	ids := make([]pgtype.UUID, 0, len(bundles))
	index := make(map[uuid.UUID]*bundle.Bundle, len(bundles))
	for i := range bundles {
		ids = append(ids, uuidToPg(bundles[i].ID))
		index[bundles[i].ID] = &bundles[i]
	}
	rows, err := r.DB.Query(ctx, `
SELECT bundle_id, kind, target_ids, quantity
FROM bundle_rules
WHERE bundle_id = ANY($1)
ORDER BY bundle_id, position`, ids)
	if err != nil {
		return fmt.Errorf("repo: load bundle rules: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			bundleID pgtype.UUID
			kind     string
			targets  []byte
			quantity int32
		)
		if err := rows.Scan(&bundleID, &kind, &targets, &quantity); err != nil {
			return fmt.Errorf("repo: scan bundle rule: %w", err)
		}
		targetIDs, err := decodeTargetIDs(targets)
		if err != nil {
			return fmt.Errorf("repo: bundle %s rule: %w", uuid.UUID(bundleID.Bytes), err)
		}
		b, ok := index[uuid.UUID(bundleID.Bytes)]
		if !ok {
			continue
		}
		rule := bundle.Rule{
			Kind:      bundle.RuleKind(kind),
			TargetIDs: targetIDs,
			Quantity:  int(quantity),
		}
		switch rule.Kind {
		case bundle.RuleProduct:
			b.ProductRules = append(b.ProductRules, rule)
		case bundle.RuleCategory:
			b.CategoryRules = append(b.CategoryRules, rule)
		default:
			return fmt.Errorf("repo: bundle %s: unknown rule kind %q", b.ID, kind)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("repo: load bundle rules: %w", err)
	}
	return nil
}

func scanBundle(row pgx.Row) (bundle.Bundle, error) {
	var (
		b          bundle.Bundle
		id         pgtype.UUID
		activeFrom pgtype.Timestamptz
		activeTo   pgtype.Timestamptz
		mode       string
		percentBps pgtype.Int4
		sortOrder  int32
		totalUses  int32
	)
	err := row.Scan(&id, &b.Name, &b.Description, &b.Enabled, &activeFrom, &activeTo,
		&mode, &b.Price, &percentBps, &sortOrder, &totalUses)
	if err != nil {
		return bundle.Bundle{}, err
	}
	b.ID = uuid.UUID(id.Bytes)
	b.PricingMode = bundle.PricingMode(mode)
	b.SortOrder = int(sortOrder)
	b.TotalUses = int(totalUses)
	if activeFrom.Valid {
		t := activeFrom.Time
		b.ActiveFrom = &t
	}
	if activeTo.Valid {
		t := activeTo.Time
		b.ActiveTo = &t
	}
	if percentBps.Valid {
		b.PercentBps = percentBps.Int32
	}
	return b, nil
}

// decodeTargetIDs parses a JSON-encoded id group.
func decodeTargetIDs(data []byte) ([]uuid.UUID, error) {
	if len(data) == 0 {
		return nil, errors.New("empty target id group")
	}
	var ids []uuid.UUID
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("decode target ids: %w", err)
	}
	return ids, nil
}

func uuidToPg(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}
