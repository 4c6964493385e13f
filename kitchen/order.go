package kitchen

import (
	"github.com/google/uuid"
)

// Temperature is the ideal temperature class of an order.
type Temperature string

const (
	TempHot  Temperature = "hot"
	TempCold Temperature = "cold"
	TempRoom Temperature = "room"
)

// Valid reports whether t is one of the three known temperature classes.
func (t Temperature) Valid() bool {
	switch t {
	case TempHot, TempCold, TempRoom:
		return true
	}
	return false
}

// IdealArea returns the storage area that holds orders of this temperature
// at their base degradation rate.
func (t Temperature) IdealArea() AreaKind {
	switch t {
	case TempHot:
		return AreaHeater
	case TempCold:
		return AreaCooler
	default:
		return AreaShelf
	}
}

// AreaKind names one of the three bounded storage areas.
type AreaKind string

const (
	AreaHeater AreaKind = "heater"
	AreaCooler AreaKind = "cooler"
	AreaShelf  AreaKind = "shelf"
)

// Accepts reports whether the area may legally hold an order of the given
// temperature. The heater holds only hot orders and the cooler only cold
// orders; the shelf takes anything.
func (a AreaKind) Accepts(t Temperature) bool {
	switch a {
	case AreaHeater:
		return t == TempHot
	case AreaCooler:
		return t == TempCold
	default:
		return true
	}
}

// ActionKind is the kind of a ledger action.
type ActionKind string

const (
	ActionPlace   ActionKind = "place"
	ActionMove    ActionKind = "move"
	ActionPickup  ActionKind = "pickup"
	ActionDiscard ActionKind = "discard"
)

// Order is the immutable record for an incoming order. Price is informational
// only; Freshness is the order's budget in whole seconds and must be strictly
// positive for the engine to accept the order.
type Order struct {
	ID        string
	Name      string
	Temp      Temperature
	Price     float64
	Freshness int64
}

// NewLocalOrder builds an order with a generated id. Orders arriving from the
// challenge server carry their own ids; this constructor serves the offline
// runner and tests.
func NewLocalOrder(name string, temp Temperature, freshness int64, price float64) Order {
	return Order{
		ID:        uuid.New().String(),
		Name:      name,
		Temp:      temp,
		Price:     price,
		Freshness: freshness,
	}
}

// residency is the engine-owned record of an order currently in storage.
// enteredAt is the microsecond timestamp at which the order was placed; it is
// preserved across a shelf-to-ideal move, so after a move it predates the
// order's arrival in its current area.
type residency struct {
	order     Order
	area      AreaKind
	enteredAt int64
}
