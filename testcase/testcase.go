// Package testcase saves and replays challenge test problems as JSON files,
// so a run can be repeated offline against the same orders and parameters.
package testcase

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/vageesanr/food-order-system/client"
)

// TestCase is the on-disk record of one fetched test problem and its run
// parameters. Unknown fields in an existing file are ignored on read.
type TestCase struct {
	TestID          string         `json:"testId"`
	Orders          []client.Order `json:"orders"`
	RateMicros      int64          `json:"rateMicros"`
	MinPickupMicros int64          `json:"minPickupMicros"`
	MaxPickupMicros int64          `json:"maxPickupMicros"`
	Seed            int64          `json:"seed,omitempty"`
	Result          string         `json:"result,omitempty"`
	Timestamp       int64          `json:"timestamp,omitempty"`
	RerunTimestamp  int64          `json:"rerun_timestamp,omitempty"`
}

// Load reads a test case from path.
func Load(path string) (*TestCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read test case %s: %w", path, err)
	}
	var tc TestCase
	if err := json.Unmarshal(data, &tc); err != nil {
		return nil, fmt.Errorf("failed to parse test case %s: %w", path, err)
	}
	return &tc, nil
}

// Save writes the test case to path, creating or truncating it.
func (tc *TestCase) Save(path string) error {
	data, err := json.MarshalIndent(tc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write test case %s: %w", path, err)
	}
	return nil
}
