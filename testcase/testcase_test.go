package testcase

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vageesanr/food-order-system/client"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "case.json")

	tc := &TestCase{
		TestID: "test-1",
		Orders: []client.Order{
			{ID: "a", Name: "Soup", Temp: "hot", Price: 6, Freshness: 90},
		},
		RateMicros:      500_000,
		MinPickupMicros: 4_000_000,
		MaxPickupMicros: 8_000_000,
		Seed:            42,
		Timestamp:       1_700_000_000_000_000,
	}
	require.NoError(t, tc.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, tc, loaded)
}

func TestLoadIgnoresUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "case.json")
	raw := `{
		"testId": "test-2",
		"orders": [],
		"rateMicros": 1000000,
		"minPickupMicros": 1000000,
		"maxPickupMicros": 2000000,
		"someFutureField": {"nested": true}
	}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	tc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test-2", tc.TestID)
	assert.Equal(t, int64(1_000_000), tc.RateMicros)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveResultUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "case.json")
	tc := &TestCase{TestID: "t", RateMicros: 1, MinPickupMicros: 1, MaxPickupMicros: 2}
	require.NoError(t, tc.Save(path))

	tc.Result = "pass"
	tc.RerunTimestamp = 123
	require.NoError(t, tc.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "pass", loaded.Result)
	assert.Equal(t, int64(123), loaded.RerunTimestamp)
}
