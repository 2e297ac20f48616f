package normalizer

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"145.90", "145.9"},
		{"1,234.50", "1234.5"},
		{"12,345,678.01", "12345678.01"},
		{"89.90 ₪", "89.9"},
		{"₪ 433.80", "433.8"},
		{"-50.00", "50"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := ParseAmount("abc")
		assert.Error(t, err)
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := ParseAmount(" ₪ ")
		assert.Error(t, err)
	})
}

func TestParseShortDate(t *testing.T) {
	t.Run("two digit year maps to 20YY", func(t *testing.T) {
		d, err := ParseShortDate("02", "04", "25")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, time.April, 2, 0, 0, 0, 0, time.UTC), d)
	})

	t.Run("year 00", func(t *testing.T) {
		d, err := ParseShortDate("1", "1", "00")
		require.NoError(t, err)
		assert.Equal(t, 2000, d.Year())
	})

	t.Run("four digit year kept", func(t *testing.T) {
		d, err := ParseShortDate("15", "01", "2025")
		require.NoError(t, err)
		assert.Equal(t, 2025, d.Year())
	})

	for _, bad := range [][3]string{
		{"31", "02", "25"},
		{"01", "13", "25"},
		{"00", "01", "25"},
		{"aa", "01", "25"},
	} {
		t.Run("rejects "+bad[0]+"/"+bad[1]+"/"+bad[2], func(t *testing.T) {
			_, err := ParseShortDate(bad[0], bad[1], bad[2])
			assert.Error(t, err)
		})
	}
}

func TestCleanDescription(t *testing.T) {
	assert.Equal(t, "סופרמרקט טוב", CleanDescription("  סופרמרקט   טוב \t"))
	assert.Equal(t, "", CleanDescription("   "))
}

func TestIsNoise(t *testing.T) {
	assert.True(t, IsNoise("₪"))
	assert.True(t, IsNoise("-"))
	assert.False(t, IsNoise("מזון"))
}
