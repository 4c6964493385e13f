package kitchen

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"go.uber.org/config"
)

// Kitchen is the storage engine. It owns the three bounded areas and the
// eviction index and exposes place and pickup as atomic operations; a single
// lock serializes every mutation. Operations return ledger entries but never
// write the ledger themselves.
type Kitchen struct {
	mu    sync.RWMutex
	areas map[AreaKind]*area
	index *evictionIndex
	log   zerolog.Logger
}

type kitchenConfig struct {
	Topology []areaConfig `yaml:"topology"`
}

type areaConfig struct {
	Name     string `yaml:"name"`
	Capacity int    `yaml:"capacity"`
}

// InvariantError reports an illegal engine operation: a duplicate place, a
// capacity breach, or a temperature/area mismatch. It indicates a defect and
// aborts the run.
type InvariantError struct {
	Op      string
	OrderID string
	Reason  string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("kitchen invariant violated in %s(%s): %s", e.Op, e.OrderID, e.Reason)
}

func loadConfig(provider config.Provider) (kitchenConfig, error) {
	var cfg kitchenConfig
	err := provider.Get("kitchen").Populate(&cfg)
	return cfg, err
}

// defaultTopology matches the challenge: heater 6, cooler 6, shelf 12.
func defaultTopology() []areaConfig {
	return []areaConfig{
		{Name: string(AreaHeater), Capacity: 6},
		{Name: string(AreaCooler), Capacity: 6},
		{Name: string(AreaShelf), Capacity: 12},
	}
}

// NewKitchen builds an engine from the kitchen block of the given provider.
// An empty topology falls back to the challenge defaults; a topology that
// names anything other than the three known areas, repeats an area, or gives
// a non-positive capacity is rejected.
func NewKitchen(provider config.Provider, log zerolog.Logger) (*Kitchen, error) {
	cfg, err := loadConfig(provider)
	if err != nil {
		return nil, err
	}
	topology := cfg.Topology
	if len(topology) == 0 {
		topology = defaultTopology()
	}

	areas := make(map[AreaKind]*area, 3)
	for _, ac := range topology {
		kind := AreaKind(ac.Name)
		switch kind {
		case AreaHeater, AreaCooler, AreaShelf:
		default:
			return nil, fmt.Errorf("unknown storage area %q in topology", ac.Name)
		}
		if _, dup := areas[kind]; dup {
			return nil, fmt.Errorf("storage area %q appears twice in topology", ac.Name)
		}
		if ac.Capacity <= 0 {
			return nil, fmt.Errorf("storage area %q has non-positive capacity %d", ac.Name, ac.Capacity)
		}
		areas[kind] = newArea(kind, ac.Capacity)
	}
	for _, kind := range []AreaKind{AreaHeater, AreaCooler, AreaShelf} {
		if _, ok := areas[kind]; !ok {
			return nil, fmt.Errorf("topology is missing the %s area", kind)
		}
	}

	return &Kitchen{
		areas: areas,
		index: newEvictionIndex(),
		log:   log.With().Str("component", "kitchen").Logger(),
	}, nil
}

// Place stores an order at time now and returns the resulting ledger entries
// in the order they occurred. A placement that has to free a slot first
// returns two entries: the move or discard, then the place.
//
// The decision procedure, first satisfied branch wins:
//  1. the ideal area has room: place there;
//  2. room order, shelf full: discard the least fresh shelf resident, place;
//  3. hot/cold order, ideal full, shelf has room: place on the shelf;
//  4. shelf full, ideal has room and a matching shelf resident exists: move
//     it to the ideal area, place on the shelf;
//  5. otherwise: discard the least fresh shelf resident, place.
func (k *Kitchen) Place(o Order, now int64) ([]Entry, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if !o.Temp.Valid() {
		return nil, &InvariantError{Op: "place", OrderID: o.ID, Reason: fmt.Sprintf("unknown temperature %q", o.Temp)}
	}
	if o.Freshness <= 0 {
		return nil, &InvariantError{Op: "place", OrderID: o.ID, Reason: fmt.Sprintf("non-positive freshness budget %d", o.Freshness)}
	}
	if k.index.lookup(o.ID) != nil {
		return nil, &InvariantError{Op: "place", OrderID: o.ID, Reason: "order is already resident"}
	}

	ideal := k.areas[o.Temp.IdealArea()]
	shelf := k.areas[AreaShelf]

	if !ideal.full() {
		entry, err := k.admit(o, ideal, now)
		if err != nil {
			return nil, err
		}
		return []Entry{entry}, nil
	}

	// The ideal area is full. Room orders evict straight from the shelf.
	if ideal == shelf {
		discard := k.evictLeastFresh(now)
		place, err := k.admit(o, shelf, now)
		if err != nil {
			return nil, err
		}
		return []Entry{discard, place}, nil
	}

	if !shelf.full() {
		entry, err := k.admit(o, shelf, now)
		if err != nil {
			return nil, err
		}
		return []Entry{entry}, nil
	}

	// A shelf resident may only move out when its destination has room. The
	// ideal area was full above, so this branch cannot fire for the incoming
	// order's own area; it stays in the procedure so the sequence is total.
	if !ideal.full() {
		if c := k.index.shelfCandidateFor(ideal.kind, now); c != nil {
			move, err := k.move(c, ideal.kind, now)
			if err != nil {
				return nil, err
			}
			place, err := k.admit(o, shelf, now)
			if err != nil {
				return nil, err
			}
			return []Entry{move, place}, nil
		}
	}

	discard := k.evictLeastFresh(now)
	place, err := k.admit(o, shelf, now)
	if err != nil {
		return nil, err
	}
	return []Entry{discard, place}, nil
}

// Pickup removes the order at time now. An order unknown to the engine is
// not an error: ok is false and no entry is produced. A resident order that
// has spoiled by now yields a discard entry instead of a pickup.
func (k *Kitchen) Pickup(orderID string, now int64) (Entry, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	r := k.index.lookup(orderID)
	if r == nil {
		return Entry{}, false
	}
	action := ActionPickup
	if Spoiled(r.order, r.area, r.enteredAt, now) {
		action = ActionDiscard
	}
	return k.removeResident(r, action, now), true
}

// admit adds a new residency. Callers have verified capacity; a failure here
// is an invariant violation.
func (k *Kitchen) admit(o Order, a *area, now int64) (Entry, error) {
	r := &residency{order: o, area: a.kind, enteredAt: now}
	if err := a.add(r); err != nil {
		return Entry{}, &InvariantError{Op: "place", OrderID: o.ID, Reason: err.Error()}
	}
	k.index.insert(r)
	k.log.Debug().Str("order", o.ID).Str("area", string(a.kind)).Int64("ts", now).Msg("placed")
	return Entry{Timestamp: now, OrderID: o.ID, Action: ActionPlace, Target: a.kind}, nil
}

// move relocates a resident to target, preserving its original entry time so
// freshness keeps accruing from the original entry point at the new rate.
// The caller guarantees target has room and the move is legal.
func (k *Kitchen) move(r *residency, target AreaKind, now int64) (Entry, error) {
	dst := k.areas[target]
	src := k.areas[r.area]
	if _, ok := src.remove(r.order.ID); !ok {
		return Entry{}, &InvariantError{Op: "move", OrderID: r.order.ID, Reason: fmt.Sprintf("not resident in %s", r.area)}
	}
	k.index.remove(r)
	r.area = target
	if err := dst.add(r); err != nil {
		return Entry{}, &InvariantError{Op: "move", OrderID: r.order.ID, Reason: err.Error()}
	}
	k.index.insert(r)
	k.log.Debug().Str("order", r.order.ID).Str("area", string(target)).Int64("ts", now).Msg("moved")
	return Entry{Timestamp: now, OrderID: r.order.ID, Action: ActionMove, Target: target}, nil
}

// evictLeastFresh discards the least fresh shelf resident. The caller has
// verified the shelf is non-empty (it is full).
func (k *Kitchen) evictLeastFresh(now int64) Entry {
	victim := k.index.leastFreshOnShelf(now)
	return k.removeResident(victim, ActionDiscard, now)
}

func (k *Kitchen) removeResident(r *residency, action ActionKind, now int64) Entry {
	k.areas[r.area].remove(r.order.ID)
	k.index.remove(r)
	k.log.Debug().Str("order", r.order.ID).Str("area", string(r.area)).Str("action", string(action)).Int64("ts", now).Msg("removed")
	return Entry{Timestamp: now, OrderID: r.order.ID, Action: action, Target: r.area}
}

// ResidentStatus is a read-only snapshot of one residency.
type ResidentStatus struct {
	Order     Order
	Area      AreaKind
	EnteredAt int64
	Freshness float64
}

// Residents returns a snapshot of every current residency with its freshness
// ratio computed at now.
func (k *Kitchen) Residents(now int64) []ResidentStatus {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make([]ResidentStatus, 0, len(k.index.byID))
	for _, r := range k.index.byID {
		out = append(out, ResidentStatus{
			Order:     r.order,
			Area:      r.area,
			EnteredAt: r.enteredAt,
			Freshness: FreshnessRatio(r.order, r.area, r.enteredAt, now),
		})
	}
	return out
}

// Counts returns the number of residents per area.
func (k *Kitchen) Counts() map[AreaKind]int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	counts := make(map[AreaKind]int, len(k.areas))
	for kind, a := range k.areas {
		counts[kind] = len(a.residents)
	}
	return counts
}

// Capacity returns the configured capacity of an area.
func (k *Kitchen) Capacity(kind AreaKind) int {
	a, ok := k.areas[kind]
	if !ok {
		return 0
	}
	return a.capacity
}
