package kitchen

import (
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/config"
)

var challengeTopology = `
kitchen:
  topology:
    - name: heater
      capacity: 6
    - name: cooler
      capacity: 6
    - name: shelf
      capacity: 12
`

func newTestKitchen(t *testing.T, yaml string) *Kitchen {
	t.Helper()
	provider, err := config.NewYAML(config.Source(strings.NewReader(yaml)))
	require.NoError(t, err)
	k, err := NewKitchen(provider, zerolog.Nop())
	require.NoError(t, err)
	return k
}

func hotOrder(id string, freshness int64) Order {
	return Order{ID: id, Name: id, Temp: TempHot, Freshness: freshness}
}

func coldOrder(id string, freshness int64) Order {
	return Order{ID: id, Name: id, Temp: TempCold, Freshness: freshness}
}

func roomOrder(id string, freshness int64) Order {
	return Order{ID: id, Name: id, Temp: TempRoom, Freshness: freshness}
}

func mustPlace(t *testing.T, k *Kitchen, o Order, now int64) []Entry {
	t.Helper()
	entries, err := k.Place(o, now)
	require.NoError(t, err)
	return entries
}

func TestKitchenConstructor(t *testing.T) {
	k := newTestKitchen(t, challengeTopology)
	assert.Equal(t, 6, k.Capacity(AreaHeater))
	assert.Equal(t, 6, k.Capacity(AreaCooler))
	assert.Equal(t, 12, k.Capacity(AreaShelf))
}

func TestKitchenConstructorDefaults(t *testing.T) {
	k := newTestKitchen(t, `kitchen: {}`)
	assert.Equal(t, 6, k.Capacity(AreaHeater))
	assert.Equal(t, 12, k.Capacity(AreaShelf))
}

func TestKitchenConstructorRejectsBadTopology(t *testing.T) {
	cases := map[string]string{
		"unknown area": `
kitchen:
  topology:
    - name: freezer
      capacity: 6
`,
		"duplicate area": `
kitchen:
  topology:
    - name: heater
      capacity: 6
    - name: heater
      capacity: 6
    - name: cooler
      capacity: 6
    - name: shelf
      capacity: 12
`,
		"non-positive capacity": `
kitchen:
  topology:
    - name: heater
      capacity: 0
    - name: cooler
      capacity: 6
    - name: shelf
      capacity: 12
`,
		"missing shelf": `
kitchen:
  topology:
    - name: heater
      capacity: 6
    - name: cooler
      capacity: 6
`,
	}
	for name, yaml := range cases {
		t.Run(name, func(t *testing.T) {
			provider, err := config.NewYAML(config.Source(strings.NewReader(yaml)))
			require.NoError(t, err)
			_, err = NewKitchen(provider, zerolog.Nop())
			assert.Error(t, err)
		})
	}
}

func TestPlaceIdealArea(t *testing.T) {
	k := newTestKitchen(t, challengeTopology)

	entries := mustPlace(t, k, hotOrder("h1", 120), 0)
	require.Len(t, entries, 1)
	assert.Equal(t, Entry{Timestamp: 0, OrderID: "h1", Action: ActionPlace, Target: AreaHeater}, entries[0])

	entries = mustPlace(t, k, coldOrder("c1", 120), microsPerSecond)
	require.Len(t, entries, 1)
	assert.Equal(t, AreaCooler, entries[0].Target)

	entries = mustPlace(t, k, roomOrder("r1", 120), 2*microsPerSecond)
	require.Len(t, entries, 1)
	assert.Equal(t, AreaShelf, entries[0].Target)
}

func TestPlaceOverflowsToShelf(t *testing.T) {
	k := newTestKitchen(t, challengeTopology)

	// fill the heater, then one more hot order lands on the empty shelf
	for i := 0; i < 6; i++ {
		entries := mustPlace(t, k, hotOrder(fmt.Sprintf("h%d", i), 120), int64(i)*microsPerSecond)
		assert.Equal(t, AreaHeater, entries[0].Target)
	}
	entries := mustPlace(t, k, hotOrder("h6", 120), 6*microsPerSecond)
	require.Len(t, entries, 1)
	assert.Equal(t, AreaShelf, entries[0].Target)

	// heater capacity freeing later does not pull it back
	_, ok := k.Pickup("h0", 7*microsPerSecond)
	require.True(t, ok)
	counts := k.Counts()
	assert.Equal(t, 5, counts[AreaHeater])
	assert.Equal(t, 1, counts[AreaShelf])
}

// Scenario: thirteen room orders against a shelf of twelve. The thirteenth
// placement discards the least fresh resident and both entries share the
// placement timestamp, discard first.
func TestPlaceFullShelfEvictsLeastFresh(t *testing.T) {
	k := newTestKitchen(t, challengeTopology)

	for i := 1; i <= 12; i++ {
		mustPlace(t, k, roomOrder(fmt.Sprintf("r%02d", i), 60), int64(i-1)*microsPerSecond)
	}
	now := int64(12) * microsPerSecond
	entries := mustPlace(t, k, roomOrder("r13", 60), now)
	require.Len(t, entries, 2)
	assert.Equal(t, Entry{Timestamp: now, OrderID: "r01", Action: ActionDiscard, Target: AreaShelf}, entries[0])
	assert.Equal(t, Entry{Timestamp: now, OrderID: "r13", Action: ActionPlace, Target: AreaShelf}, entries[1])

	counts := k.Counts()
	assert.Equal(t, 12, counts[AreaShelf])
}

// Scenario: heater and shelf both full of hot orders. The shelf has movable
// hot residents, but the heater has no room for them, so the placement falls
// through to a discard instead of a move.
func TestPlaceFullShelfNoRoomToMove(t *testing.T) {
	k := newTestKitchen(t, challengeTopology)

	for i := 0; i < 6; i++ {
		mustPlace(t, k, hotOrder(fmt.Sprintf("heat%d", i), 300), int64(i)*microsPerSecond)
	}
	for i := 0; i < 12; i++ {
		entries := mustPlace(t, k, hotOrder(fmt.Sprintf("shelf%02d", i), 300), int64(6+i)*microsPerSecond)
		assert.Equal(t, AreaShelf, entries[0].Target)
	}

	now := int64(18) * microsPerSecond
	entries := mustPlace(t, k, hotOrder("late", 300), now)
	require.Len(t, entries, 2)
	assert.Equal(t, ActionDiscard, entries[0].Action)
	assert.Equal(t, "shelf00", entries[0].OrderID)
	assert.Equal(t, ActionPlace, entries[1].Action)
	assert.Equal(t, "late", entries[1].OrderID)

	for _, e := range entries {
		assert.NotEqual(t, ActionMove, e.Action)
	}
}

func TestPlaceDuplicateIsInvariantError(t *testing.T) {
	k := newTestKitchen(t, challengeTopology)
	mustPlace(t, k, hotOrder("h1", 120), 0)

	_, err := k.Place(hotOrder("h1", 120), microsPerSecond)
	require.Error(t, err)
	var inv *InvariantError
	assert.ErrorAs(t, err, &inv)
}

func TestPlaceRejectsBadOrders(t *testing.T) {
	k := newTestKitchen(t, challengeTopology)

	_, err := k.Place(Order{ID: "x", Temp: "frozen", Freshness: 10}, 0)
	assert.Error(t, err)

	_, err = k.Place(Order{ID: "y", Temp: TempHot, Freshness: 0}, 0)
	assert.Error(t, err)
}

func TestPickupFresh(t *testing.T) {
	k := newTestKitchen(t, challengeTopology)
	mustPlace(t, k, hotOrder("h1", 120), 0)

	entry, ok := k.Pickup("h1", 2*microsPerSecond)
	require.True(t, ok)
	assert.Equal(t, Entry{Timestamp: 2 * microsPerSecond, OrderID: "h1", Action: ActionPickup, Target: AreaHeater}, entry)

	// gone after pickup
	_, ok = k.Pickup("h1", 3*microsPerSecond)
	assert.False(t, ok)
}

// Scenario: a room order with a five second budget picked up at ten seconds
// comes off the shelf as a discard.
func TestPickupSpoiledBecomesDiscard(t *testing.T) {
	k := newTestKitchen(t, challengeTopology)
	mustPlace(t, k, roomOrder("room1", 5), 0)

	entry, ok := k.Pickup("room1", 10*microsPerSecond)
	require.True(t, ok)
	assert.Equal(t, ActionDiscard, entry.Action)
	assert.Equal(t, AreaShelf, entry.Target)
	assert.Equal(t, int64(10*microsPerSecond), entry.Timestamp)
}

func TestPickupUnknownOrder(t *testing.T) {
	k := newTestKitchen(t, challengeTopology)
	_, ok := k.Pickup("ghost", 0)
	assert.False(t, ok)
}

func TestMovePreservesEntryTime(t *testing.T) {
	k := newTestKitchen(t, challengeTopology)

	// fill the heater so h6 overflows to the shelf
	for i := 0; i < 6; i++ {
		mustPlace(t, k, hotOrder(fmt.Sprintf("h%d", i), 100), 0)
	}
	mustPlace(t, k, hotOrder("h6", 100), 0)

	// a pickup frees a heater slot; move h6 in by hand
	_, ok := k.Pickup("h0", 10*microsPerSecond)
	require.True(t, ok)

	k.mu.Lock()
	r := k.index.lookup("h6")
	require.NotNil(t, r)
	entry, err := k.move(r, AreaHeater, 10*microsPerSecond)
	k.mu.Unlock()
	require.NoError(t, err)
	assert.Equal(t, Entry{Timestamp: 10 * microsPerSecond, OrderID: "h6", Action: ActionMove, Target: AreaHeater}, entry)

	// entered-at is preserved: ten seconds already accrued, the rate drops
	// to 1x from here. At t=30 the age is 30s, so ratio = (100-30)/100.
	residents := k.Residents(30 * microsPerSecond)
	for _, rs := range residents {
		if rs.Order.ID == "h6" {
			assert.Equal(t, AreaHeater, rs.Area)
			assert.Equal(t, int64(0), rs.EnteredAt)
			assert.InDelta(t, 0.7, rs.Freshness, 1e-9)
			return
		}
	}
	t.Fatal("h6 not found after move")
}

func TestMoveIncompatibleAreaIsInvariantError(t *testing.T) {
	k := newTestKitchen(t, challengeTopology)
	mustPlace(t, k, roomOrder("r1", 100), 0)

	k.mu.Lock()
	r := k.index.lookup("r1")
	require.NotNil(t, r)
	_, err := k.move(r, AreaHeater, microsPerSecond)
	k.mu.Unlock()

	require.Error(t, err)
	var inv *InvariantError
	assert.ErrorAs(t, err, &inv)
}

func TestCapacityNeverExceeded(t *testing.T) {
	k := newTestKitchen(t, challengeTopology)

	// far more orders than total capacity
	for i := 0; i < 60; i++ {
		var o Order
		switch i % 3 {
		case 0:
			o = hotOrder(fmt.Sprintf("h%02d", i), 120)
		case 1:
			o = coldOrder(fmt.Sprintf("c%02d", i), 120)
		default:
			o = roomOrder(fmt.Sprintf("r%02d", i), 120)
		}
		mustPlace(t, k, o, int64(i)*microsPerSecond)

		counts := k.Counts()
		assert.LessOrEqual(t, counts[AreaHeater], 6)
		assert.LessOrEqual(t, counts[AreaCooler], 6)
		assert.LessOrEqual(t, counts[AreaShelf], 12)
	}
}

func TestHeaterAndCoolerHoldOnlyMatchingOrders(t *testing.T) {
	k := newTestKitchen(t, challengeTopology)

	for i := 0; i < 20; i++ {
		mustPlace(t, k, hotOrder(fmt.Sprintf("h%02d", i), 120), int64(i)*microsPerSecond)
		mustPlace(t, k, coldOrder(fmt.Sprintf("c%02d", i), 120), int64(i)*microsPerSecond)
	}

	for _, rs := range k.Residents(20 * microsPerSecond) {
		switch rs.Area {
		case AreaHeater:
			assert.Equal(t, TempHot, rs.Order.Temp)
		case AreaCooler:
			assert.Equal(t, TempCold, rs.Order.Temp)
		}
	}
}

// Scenario: three orders to their ideal areas, pickups two seconds later.
// Equal timestamps keep engine-side append order in the sorted ledger, so
// the place of r1 stays ahead of the pickup of h1 at the same instant.
func TestLedgerEqualTimestampOrdering(t *testing.T) {
	k := newTestKitchen(t, challengeTopology)
	ledger := NewLedger()

	ledger.Append(mustPlace(t, k, hotOrder("h1", 120), 0)...)
	ledger.Append(mustPlace(t, k, coldOrder("c1", 120), microsPerSecond)...)
	ledger.Append(mustPlace(t, k, roomOrder("r1", 120), 2*microsPerSecond)...)

	for i, id := range []string{"h1", "c1", "r1"} {
		entry, ok := k.Pickup(id, int64(i+2)*microsPerSecond)
		require.True(t, ok)
		ledger.Append(entry)
	}

	sorted := ledger.Sorted()
	require.Len(t, sorted, 6)
	assert.Equal(t, "h1", sorted[0].OrderID)
	assert.Equal(t, ActionPlace, sorted[0].Action)
	assert.Equal(t, "c1", sorted[1].OrderID)

	// place r1 and pickup h1 both carry t=2s; the place was appended first
	assert.Equal(t, Entry{Timestamp: 2 * microsPerSecond, OrderID: "r1", Action: ActionPlace, Target: AreaShelf}, sorted[2])
	assert.Equal(t, Entry{Timestamp: 2 * microsPerSecond, OrderID: "h1", Action: ActionPickup, Target: AreaHeater}, sorted[3])

	assert.Equal(t, ActionPickup, sorted[4].Action)
	assert.Equal(t, ActionPickup, sorted[5].Action)
}
