// The runner drives the kitchen engine offline: it generates a batch of
// random orders and runs the full placement/pickup timeline without a
// challenge server, printing a summary at the end.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"go.uber.org/config"
	"golang.org/x/exp/rand"

	"github.com/vageesanr/food-order-system/kitchen"
)

const topology = `
kitchen:
  topology:
    - name: heater
      capacity: 6
    - name: cooler
      capacity: 6
    - name: shelf
      capacity: 12
`

var foods = []struct {
	name      string
	temp      kitchen.Temperature
	freshness int64
	price     float64
}{
	{"icecream", kitchen.TempCold, 120, 4.5},
	{"soup", kitchen.TempHot, 90, 6.0},
	{"pizza", kitchen.TempHot, 200, 12.0},
	{"salad", kitchen.TempRoom, 150, 8.5},
	{"cookies", kitchen.TempRoom, 300, 3.0},
	{"sushi", kitchen.TempCold, 60, 15.0},
}

func makeOrders(count int, rng *rand.Rand) []kitchen.Order {
	orders := make([]kitchen.Order, count)
	for i := range orders {
		f := foods[rng.Intn(len(foods))]
		orders[i] = kitchen.NewLocalOrder(f.name, f.temp, f.freshness, f.price)
	}
	return orders
}

func main() {
	count := pflag.Int("orders", 20, "number of orders to generate")
	rate := pflag.Duration("rate", 500*time.Millisecond, "interval between placements")
	min := pflag.Duration("min", 4*time.Second, "minimum pickup delay")
	max := pflag.Duration("max", 8*time.Second, "maximum pickup delay")
	seed := pflag.Int64("seed", 0, "seed for order generation and pickup delays (0 = random)")
	verbose := pflag.BoolP("verbose", "v", false, "debug logging")
	pflag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		Level(level).With().Timestamp().Logger()

	provider, err := config.NewYAML(config.Source(strings.NewReader(topology)))
	if err != nil {
		log.Error().Err(err).Msg("bad topology config")
		os.Exit(1)
	}
	k, err := kitchen.NewKitchen(provider, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to build kitchen")
		os.Exit(1)
	}

	genSeed := uint64(*seed)
	if *seed == 0 {
		genSeed = uint64(time.Now().UnixNano())
	}
	orders := makeOrders(*count, rand.New(rand.NewSource(genSeed)))

	ledger := kitchen.NewLedger()
	sched := kitchen.NewScheduler(k, ledger, kitchen.SchedulerParams{
		Rate:      *rate,
		MinPickup: *min,
		MaxPickup: *max,
		Seed:      *seed,
	}, log)

	start := time.Now()
	entries, err := sched.Run(context.Background(), orders)
	if err != nil {
		log.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}

	counts := ledger.ActionCounts()
	fmt.Printf("Ran %d orders in %.1fs\n", len(orders), time.Since(start).Seconds())
	fmt.Printf("  placed:    %d\n", counts[kitchen.ActionPlace])
	fmt.Printf("  moved:     %d\n", counts[kitchen.ActionMove])
	fmt.Printf("  picked up: %d\n", counts[kitchen.ActionPickup])
	fmt.Printf("  discarded: %d\n", counts[kitchen.ActionDiscard])
	fmt.Printf("  ledger entries: %d\n", len(entries))
}
