package normalizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/FACorreiaa/expense-tracker/pkg/db"
)

// Match types supported by category overrides.
const (
	MatchExact    = "exact"
	MatchContains = "contains"
	MatchFuzzy    = "fuzzy"
)

// ValidMatchType reports whether t is a known match type. Empty means contains.
func ValidMatchType(t string) bool {
	switch t {
	case "", MatchExact, MatchContains, MatchFuzzy:
		return true
	}
	return false
}

// CategoryOverride is a user's correction: merchants matching the pattern are
// filed under Category regardless of what the statement text suggested.
type CategoryOverride struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	MatchPattern string    `json:"match_pattern"`
	MatchType    string    `json:"match_type"`
	Category     string    `json:"category"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Matches reports whether the merchant name is covered by the override.
func (o CategoryOverride) Matches(merchant string) bool {
	if merchant == "" || o.MatchPattern == "" {
		return false
	}
	switch o.MatchType {
	case MatchExact:
		return strings.EqualFold(strings.TrimSpace(merchant), strings.TrimSpace(o.MatchPattern))
	case MatchFuzzy:
		// pattern runes must appear in order; catches truncated or spaced-out names
		return fuzzy.MatchNormalizedFold(strings.ReplaceAll(o.MatchPattern, " ", ""), merchant)
	default:
		return strings.Contains(strings.ToUpper(merchant), strings.ToUpper(o.MatchPattern))
	}
}

// Overrides is an ordered override list; the first match wins.
type Overrides []CategoryOverride

// CategoryFor returns the overriding category for merchant, if any.
func (ov Overrides) CategoryFor(merchant string) (string, bool) {
	for _, o := range ov {
		if o.Matches(merchant) {
			return o.Category, true
		}
	}
	return "", false
}

// OverrideStore manages user category overrides in the database.
type OverrideStore struct {
	db db.Pool
}

// NewOverrideStore creates a new override store.
func NewOverrideStore(pool db.Pool) *OverrideStore {
	return &OverrideStore{db: pool}
}

// SaveOverride creates or updates a user's override for a pattern.
func (s *OverrideStore) SaveOverride(ctx context.Context, o CategoryOverride) (*CategoryOverride, error) {
	if o.MatchType == "" {
		o.MatchType = MatchContains
	}
	query := `
		INSERT INTO user_category_overrides (user_id, match_pattern, match_type, category)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, match_pattern) DO UPDATE SET
			match_type = EXCLUDED.match_type,
			category = EXCLUDED.category,
			updated_at = now()
		RETURNING id, user_id, match_pattern, match_type, category, created_at, updated_at`

	var result CategoryOverride
	err := s.db.QueryRow(ctx, query, o.UserID, o.MatchPattern, o.MatchType, o.Category).Scan(
		&result.ID, &result.UserID, &result.MatchPattern, &result.MatchType,
		&result.Category, &result.CreatedAt, &result.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save category override: %w", err)
	}
	return &result, nil
}

// GetOverridesForUser returns a user's overrides: exact first, fuzzy last,
// longer patterns ahead of shorter ones.
func (s *OverrideStore) GetOverridesForUser(ctx context.Context, userID uuid.UUID) (Overrides, error) {
	query := `
		SELECT id, user_id, match_pattern, match_type, category, created_at, updated_at
		FROM user_category_overrides
		WHERE user_id = $1
		ORDER BY CASE match_type WHEN 'exact' THEN 0 WHEN 'contains' THEN 1 ELSE 2 END,
			length(match_pattern) DESC`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list category overrides: %w", err)
	}
	defer rows.Close()

	var overrides Overrides
	for rows.Next() {
		var o CategoryOverride
		if err := rows.Scan(
			&o.ID, &o.UserID, &o.MatchPattern, &o.MatchType,
			&o.Category, &o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan category override: %w", err)
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

// DeleteOverride removes an override owned by the user.
func (s *OverrideStore) DeleteOverride(ctx context.Context, userID, overrideID uuid.UUID) error {
	query := `DELETE FROM user_category_overrides WHERE id = $1 AND user_id = $2`
	result, err := s.db.Exec(ctx, query, overrideID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete category override: %w", err)
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// IsNotFound reports whether err means the override did not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
