package volume_test

import (
	"testing"

	"github.com/2beens/liftlog/internal/workouts/volume"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want string
	}{
		{in: "2025/1/5", want: "2025-01-05"},
		{in: "2025.01.5", want: "2025-01-05"},
		{in: "2025-1-05", want: "2025-01-05"},
		{in: "2025-01-05", want: "2025-01-05"},
		{in: " 2025/12/31 ", want: "2025-12-31"},
		{in: "2025/8-26", want: "2025-08-26"},
	} {
		got := volume.Normalize(tc.in)
		assert.Equal(t, tc.want, got, "input: [%s]", tc.in)
		assert.Equal(t, got, volume.Normalize(got), "not idempotent for: [%s]", tc.in)
	}
}

func TestNormalize_Unparseable(t *testing.T) {
	// unparseable text passes through (separators unified, trimmed) and is not rejected
	assert.Equal(t, "yesterday", volume.Normalize(" yesterday "))
	assert.Equal(t, "2025-01", volume.Normalize("2025/01"))
	assert.Equal(t, "25-1-5", volume.Normalize("25.1.5"))
	assert.Equal(t, "2025-001-05", volume.Normalize("2025/001/05"))
	assert.Equal(t, "", volume.Normalize(""))
}

func TestNormalizeStrict(t *testing.T) {
	d, err := volume.NormalizeStrict("2024/2/29")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", d)

	d, err = volume.NormalizeStrict(" 2025.8.26")
	require.NoError(t, err)
	assert.Equal(t, "2025-08-26", d)

	for _, invalid := range []string{
		"",
		"yesterday",
		"2025/01",
		"2025/2/30",
		"2025-13-01",
		"2025-00-10",
		"2023/2/29",
	} {
		d, err := volume.NormalizeStrict(invalid)
		assert.ErrorIs(t, err, volume.ErrInvalidDate, "input: [%s]", invalid)
		assert.Empty(t, d)
	}
}
