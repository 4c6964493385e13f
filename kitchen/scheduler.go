package kitchen

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// SchedulerParams are the timing parameters of a run.
type SchedulerParams struct {
	// Rate is the interval between order placements.
	Rate time.Duration
	// MinPickup and MaxPickup bound the random pickup delay; delays are drawn
	// uniformly from [MinPickup, MaxPickup).
	MinPickup time.Duration
	MaxPickup time.Duration
	// Seed makes the delay draws deterministic when non-zero.
	Seed int64
	// Grace bounds the post-placement wait for outstanding pickups, measured
	// beyond the last scheduled pickup. Zero means the 60 s default.
	Grace time.Duration
}

const defaultGrace = 60 * time.Second

// Scheduler drives the run timeline: it places orders at the configured
// cadence on a single goroutine, schedules each order's pickup after a random
// delay on its own goroutine, and collects every entry into the ledger.
type Scheduler struct {
	kitchen *Kitchen
	ledger  *Ledger
	params  SchedulerParams
	delay   distuv.Uniform
	log     zerolog.Logger

	// clock hooks, swapped out in tests
	now   func() time.Time
	sleep func(time.Duration)
}

func NewScheduler(k *Kitchen, l *Ledger, params SchedulerParams, log zerolog.Logger) *Scheduler {
	if params.Grace <= 0 {
		params.Grace = defaultGrace
	}
	seed := uint64(params.Seed)
	if params.Seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Scheduler{
		kitchen: k,
		ledger:  l,
		params:  params,
		delay: distuv.Uniform{
			Min: float64(params.MinPickup.Microseconds()),
			Max: float64(params.MaxPickup.Microseconds()),
			Src: rand.NewSource(seed),
		},
		log:   log.With().Str("component", "scheduler").Logger(),
		now:   time.Now,
		sleep: time.Sleep,
	}
}

// Run places every order on the serial timeline, waits for the scheduled
// pickups to drain (bounded by the grace period), and returns the ledger
// sorted by timestamp. The placement timestamps are logical: order i is
// placed at origin + i*rate regardless of scheduling jitter, and a pickup
// carries its scheduled instant, not its real fire time.
func (s *Scheduler) Run(ctx context.Context, orders []Order) ([]Entry, error) {
	origin := s.now().UnixMicro()
	rate := s.params.Rate.Microseconds()

	var wg sync.WaitGroup
	lastPickup := origin
	for i, order := range orders {
		if err := ctx.Err(); err != nil {
			break
		}
		placedAt := origin + int64(i)*rate
		entries, err := s.kitchen.Place(order, placedAt)
		if err != nil {
			s.log.Error().Err(err).Str("order", order.ID).Msg("placement failed, aborting run")
			return nil, err
		}
		s.ledger.Append(entries...)

		// Draws happen on the placement loop so a fixed seed yields the same
		// delay sequence regardless of pickup scheduling.
		pickupAt := placedAt + int64(s.delay.Rand())
		if pickupAt > lastPickup {
			lastPickup = pickupAt
		}
		wg.Add(1)
		go s.runPickup(&wg, order, pickupAt)

		if i < len(orders)-1 {
			next := time.UnixMicro(placedAt + rate)
			if d := next.Sub(s.now()); d > 0 {
				s.sleep(d)
			}
		}
	}

	s.waitForPickups(ctx, &wg, lastPickup)
	return s.ledger.Sorted(), ctx.Err()
}

func (s *Scheduler) runPickup(wg *sync.WaitGroup, order Order, pickupAt int64) {
	defer wg.Done()
	if d := time.UnixMicro(pickupAt).Sub(s.now()); d > 0 {
		s.sleep(d)
	}
	entry, ok := s.kitchen.Pickup(order.ID, pickupAt)
	if !ok {
		s.log.Warn().Str("order", order.ID).Int64("ts", pickupAt).Msg("pickup found no resident order")
		return
	}
	s.ledger.Append(entry)
}

// waitForPickups blocks until every scheduled pickup has fired, or until the
// grace period beyond the last scheduled pickup expires. Pickups abandoned at
// the deadline contribute no entry.
func (s *Scheduler) waitForPickups(ctx context.Context, wg *sync.WaitGroup, lastPickup int64) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	deadline := time.UnixMicro(lastPickup).Add(s.params.Grace)
	wait := deadline.Sub(s.now())
	if wait < 0 {
		wait = 0
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		s.log.Warn().Msg("grace period expired with pickups outstanding")
	case <-ctx.Done():
		s.log.Warn().Err(ctx.Err()).Msg("run cancelled with pickups outstanding")
	}
}
