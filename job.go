package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vageesanr/food-order-system/client"
	"github.com/vageesanr/food-order-system/kitchen"
	"github.com/vageesanr/food-order-system/testcase"
)

func provideClient(opts Options, log zerolog.Logger) (*client.Client, error) {
	return client.NewClient(opts.Endpoint, opts.Auth, log)
}

// job is one complete run: obtain a test problem, simulate it, submit the
// resulting ledger.
type job struct {
	opts    Options
	client  *client.Client
	kitchen *kitchen.Kitchen
	ledger  *kitchen.Ledger
	log     zerolog.Logger
}

func newJob(opts Options, c *client.Client, k *kitchen.Kitchen, l *kitchen.Ledger, log zerolog.Logger) *job {
	return &job{opts: opts, client: c, kitchen: k, ledger: l, log: log}
}

func (j *job) run() error {
	ctx := context.Background()

	tc, err := j.obtainTestCase(ctx)
	if err != nil {
		return err
	}
	if j.opts.SaveTest != "" {
		if err := tc.Save(j.opts.SaveTest); err != nil {
			return err
		}
		j.log.Info().Str("path", j.opts.SaveTest).Msg("saved test case")
	}

	orders, err := toKitchenOrders(tc.Orders)
	if err != nil {
		return err
	}

	params := kitchen.SchedulerParams{
		Rate:      time.Duration(tc.RateMicros) * time.Microsecond,
		MinPickup: time.Duration(tc.MinPickupMicros) * time.Microsecond,
		MaxPickup: time.Duration(tc.MaxPickupMicros) * time.Microsecond,
		Seed:      tc.Seed,
	}
	sched := kitchen.NewScheduler(j.kitchen, j.ledger, params, j.log)
	entries, err := sched.Run(ctx, orders)
	if err != nil {
		return err
	}

	counts := j.ledger.ActionCounts()
	j.log.Info().
		Int("placed", counts[kitchen.ActionPlace]).
		Int("moved", counts[kitchen.ActionMove]).
		Int("picked_up", counts[kitchen.ActionPickup]).
		Int("discarded", counts[kitchen.ActionDiscard]).
		Msg("run complete")

	if j.opts.SkipSubmission {
		j.log.Info().Msg("submission skipped")
		j.updateTestCase(tc)
		return nil
	}

	result, err := j.client.Solve(ctx, tc.TestID, client.Options{
		Rate: tc.RateMicros,
		Min:  tc.MinPickupMicros,
		Max:  tc.MaxPickupMicros,
	}, toWireActions(entries))
	if err != nil {
		return err
	}
	j.log.Info().Str("result", result).Msg("graded")

	tc.Result = result
	j.updateTestCase(tc)
	return nil
}

// obtainTestCase replays a saved file or fetches a fresh problem.
func (j *job) obtainTestCase(ctx context.Context) (*testcase.TestCase, error) {
	if j.opts.LoadTest != "" {
		tc, err := testcase.Load(j.opts.LoadTest)
		if err != nil {
			return nil, err
		}
		tc.RerunTimestamp = time.Now().UnixMicro()
		j.log.Info().Str("path", j.opts.LoadTest).Str("test", tc.TestID).Msg("loaded test case")
		return tc, nil
	}

	id, orders, err := j.client.New(ctx, j.opts.Seed)
	if err != nil {
		return nil, err
	}
	return &testcase.TestCase{
		TestID:          id,
		Orders:          orders,
		RateMicros:      j.opts.Rate.Microseconds(),
		MinPickupMicros: j.opts.MinPickup.Microseconds(),
		MaxPickupMicros: j.opts.MaxPickup.Microseconds(),
		Seed:            j.opts.Seed,
		Timestamp:       time.Now().UnixMicro(),
	}, nil
}

// updateTestCase rewrites the backing file with the latest result. Failures
// here never fail the run; the simulation (and any grading) already happened.
func (j *job) updateTestCase(tc *testcase.TestCase) {
	path := j.opts.SaveTest
	if path == "" {
		path = j.opts.LoadTest
	}
	if path == "" {
		return
	}
	if err := tc.Save(path); err != nil {
		j.log.Warn().Err(err).Str("path", path).Msg("failed to update test case file")
	}
}

func toKitchenOrders(wire []client.Order) ([]kitchen.Order, error) {
	orders := make([]kitchen.Order, len(wire))
	for i, o := range wire {
		temp := kitchen.Temperature(o.Temp)
		if !temp.Valid() {
			return nil, fmt.Errorf("order %s has unknown temperature %q", o.ID, o.Temp)
		}
		orders[i] = kitchen.Order{
			ID:        o.ID,
			Name:      o.Name,
			Temp:      temp,
			Price:     o.Price,
			Freshness: o.Freshness,
		}
	}
	return orders, nil
}

func toWireActions(entries []kitchen.Entry) []client.Action {
	actions := make([]client.Action, len(entries))
	for i, e := range entries {
		actions[i] = client.Action{
			Timestamp: e.Timestamp,
			ID:        e.OrderID,
			Action:    string(e.Action),
			Target:    string(e.Target),
		}
	}
	return actions
}
