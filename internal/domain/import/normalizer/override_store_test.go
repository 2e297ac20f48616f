package normalizer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryOverride_Matches(t *testing.T) {
	tests := []struct {
		name        string
		pattern     string
		matchType   string
		merchant    string
		shouldMatch bool
	}{
		{"exact match", "שופרסל דיל", MatchExact, "שופרסל דיל", true},
		{"exact ignores case", "netflix.com", MatchExact, "NETFLIX.COM", true},
		{"exact partial no match", "שופרסל", MatchExact, "שופרסל דיל", false},
		{"contains start", "שופרסל", MatchContains, "שופרסל דיל רמת גן", true},
		{"contains case insensitive", "spotify", MatchContains, "SPOTIFY P1234", true},
		{"contains no match", "רמי לוי", MatchContains, "שופרסל דיל", false},
		{"empty type defaults to contains", "פז", "", "פז צומת גלילות", true},
		{"empty merchant", "פז", MatchContains, "", false},
		{"fuzzy subsequence", "amzn mktp", MatchFuzzy, "AMZN Mktp US*2K4", true},
		{"fuzzy spaced out", "סופר פארם", MatchFuzzy, "סופר-פארם ת\"א", true},
		{"fuzzy out of order", "ynltfix", MatchFuzzy, "NETFLIX.COM", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := CategoryOverride{MatchPattern: tt.pattern, MatchType: tt.matchType}
			assert.Equal(t, tt.shouldMatch, o.Matches(tt.merchant))
		})
	}
}

func TestOverrides_CategoryFor(t *testing.T) {
	ov := Overrides{
		{MatchPattern: "שופרסל דיל", MatchType: MatchExact, Category: "קניות"},
		{MatchPattern: "שופרסל", MatchType: MatchContains, Category: "מזון"},
	}

	cat, ok := ov.CategoryFor("שופרסל דיל")
	require.True(t, ok)
	assert.Equal(t, "קניות", cat, "first matching override wins")

	cat, ok = ov.CategoryFor("שופרסל אקספרס")
	require.True(t, ok)
	assert.Equal(t, "מזון", cat)

	_, ok = ov.CategoryFor("פז")
	assert.False(t, ok)
}

func TestOverrideStore_SaveOverride(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	overrideID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO user_category_overrides`).
		WithArgs(userID, "שופרסל", MatchContains, "מזון").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "user_id", "match_pattern", "match_type", "category", "created_at", "updated_at",
		}).AddRow(overrideID, userID, "שופרסל", MatchContains, "מזון", now, now))

	store := NewOverrideStore(mock)
	saved, err := store.SaveOverride(context.Background(), CategoryOverride{
		UserID:       userID,
		MatchPattern: "שופרסל",
		Category:     "מזון",
	})

	require.NoError(t, err)
	assert.Equal(t, overrideID, saved.ID)
	assert.Equal(t, MatchContains, saved.MatchType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOverrideStore_GetOverridesForUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT id, user_id, match_pattern`).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "user_id", "match_pattern", "match_type", "category", "created_at", "updated_at",
		}).
			AddRow(uuid.New(), userID, "פז", MatchExact, "דלק", now, now).
			AddRow(uuid.New(), userID, "סונול", MatchContains, "דלק", now, now))

	store := NewOverrideStore(mock)
	overrides, err := store.GetOverridesForUser(context.Background(), userID)

	require.NoError(t, err)
	require.Len(t, overrides, 2)
	assert.Equal(t, "פז", overrides[0].MatchPattern)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOverrideStore_GetOverridesForUser_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	mock.ExpectQuery(`SELECT id, user_id, match_pattern`).
		WithArgs(userID).
		WillReturnError(errors.New("connection reset"))

	store := NewOverrideStore(mock)
	_, err = store.GetOverridesForUser(context.Background(), userID)
	assert.ErrorContains(t, err, "connection reset")
}

func TestOverrideStore_DeleteOverride(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	overrideID := uuid.New()

	mock.ExpectExec(`DELETE FROM user_category_overrides`).
		WithArgs(overrideID, userID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	store := NewOverrideStore(mock)
	require.NoError(t, store.DeleteOverride(context.Background(), userID, overrideID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOverrideStore_DeleteOverride_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	overrideID := uuid.New()

	mock.ExpectExec(`DELETE FROM user_category_overrides`).
		WithArgs(overrideID, userID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	store := NewOverrideStore(mock)
	err = store.DeleteOverride(context.Background(), userID, overrideID)
	assert.True(t, IsNotFound(err))
}

func TestValidMatchType(t *testing.T) {
	for _, mt := range []string{"", MatchExact, MatchContains, MatchFuzzy} {
		assert.True(t, ValidMatchType(mt), mt)
	}
	assert.False(t, ValidMatchType("regex"))
}
