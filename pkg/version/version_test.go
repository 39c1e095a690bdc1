package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInc(t *testing.T) {
	tests := []struct {
		version     string
		releaseType ReleaseType
		want        string
	}{
		{"0.0.0-0", PreMajor, "1.0.0-0"},
		{"0.0.0-0", PreMinor, "0.1.0-0"},
		{"0.0.0-0", PrePatch, "0.0.1-0"},
		{"0.0.0-0", PreRelease, "0.0.0-1"},
		{"0.0.0-0", Patch, "0.0.0"},
		{"1.0.0-0", Patch, "1.0.0"},
		{"1.0.0", Patch, "1.0.1"},
		{"1.0.0", PreRelease, "1.0.1-0"},
		{"1.0.0-rc.1", PreRelease, "1.0.0-rc.2"},
		{"1.0.0-alpha", PreRelease, "1.0.0-alpha.0"},
		{"1.2.3", PreMajor, "2.0.0-0"},
		{"1.2.3-4", PreMinor, "1.3.0-0"},
		{"1.2.3", Minor, "1.3.0"},
		{"1.3.0-0", Minor, "1.3.0"},
		{"1.2.3", Major, "2.0.0"},
		{"2.0.0-1", Major, "2.0.0"},
		{"2.1.0-1", Major, "3.0.0"},
		{"1.0.0+build.5", Patch, "1.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.version+"_"+string(tt.releaseType), func(t *testing.T) {
			got, err := Inc(tt.version, tt.releaseType)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInc_Errors(t *testing.T) {
	_, err := Inc("not-a-version", Patch)
	require.Error(t, err)

	_, err = Inc("1.0.0", ReleaseType("sideways"))
	require.ErrorIs(t, err, ErrInvalidReleaseType)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid(Initial))
	assert.True(t, Valid("1.2.3"))
	assert.False(t, Valid("1.2"))
	assert.False(t, Valid("v1.2.3"))
	assert.False(t, Valid(""))
}

func TestParseReleaseType(t *testing.T) {
	rt, ok := ParseReleaseType("premajor")
	assert.True(t, ok)
	assert.Equal(t, PreMajor, rt)

	_, ok = ParseReleaseType("1.0.0")
	assert.False(t, ok)
}
