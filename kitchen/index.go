package kitchen

// evictionIndex tracks which residencies live in which area and answers the
// two eviction queries the placement procedure needs. The index is a lookup
// convenience, not an owner: the Kitchen mutates it in lockstep with the
// areas, inside the same critical section.
//
// The priority key (freshness ratio) depends on the query time and on whether
// the order sits in its ideal area, so a queue keyed at insertion time would
// drift. Instead every query recomputes ratios over the area's residents;
// area sizes are bounded by the shelf capacity, so the scan is constant work.
type evictionIndex struct {
	byArea map[AreaKind]map[string]*residency
	byID   map[string]*residency
}

func newEvictionIndex() *evictionIndex {
	return &evictionIndex{
		byArea: map[AreaKind]map[string]*residency{
			AreaHeater: {},
			AreaCooler: {},
			AreaShelf:  {},
		},
		byID: make(map[string]*residency),
	}
}

func (idx *evictionIndex) insert(r *residency) {
	idx.byArea[r.area][r.order.ID] = r
	idx.byID[r.order.ID] = r
}

func (idx *evictionIndex) remove(r *residency) {
	delete(idx.byArea[r.area], r.order.ID)
	delete(idx.byID, r.order.ID)
}

// lookup returns the residency for an order id, or nil.
func (idx *evictionIndex) lookup(orderID string) *residency {
	return idx.byID[orderID]
}

// leastFreshOnShelf returns the shelf residency with the minimum freshness
// ratio at now. Ties break by earliest entry, then by order id. Returns nil
// when the shelf is empty.
func (idx *evictionIndex) leastFreshOnShelf(now int64) *residency {
	return idx.scanShelf(now, func(*residency) bool { return true })
}

// shelfCandidateFor returns, among shelf residents whose ideal area is kind,
// the one with the minimum freshness ratio (same tie-break). Returns nil when
// no such resident exists.
func (idx *evictionIndex) shelfCandidateFor(kind AreaKind, now int64) *residency {
	return idx.scanShelf(now, func(r *residency) bool {
		return r.order.Temp.IdealArea() == kind
	})
}

func (idx *evictionIndex) scanShelf(now int64, match func(*residency) bool) *residency {
	var best *residency
	var bestRatio float64
	for _, r := range idx.byArea[AreaShelf] {
		if !match(r) {
			continue
		}
		ratio := FreshnessRatio(r.order, r.area, r.enteredAt, now)
		if best == nil || less(r, ratio, best, bestRatio) {
			best, bestRatio = r, ratio
		}
	}
	return best
}

// less orders candidates by ratio, then entry time, then order id, so scans
// over the unordered resident map stay deterministic.
func less(a *residency, aRatio float64, b *residency, bRatio float64) bool {
	if aRatio != bRatio {
		return aRatio < bRatio
	}
	if a.enteredAt != b.enteredAt {
		return a.enteredAt < b.enteredAt
	}
	return a.order.ID < b.order.ID
}
