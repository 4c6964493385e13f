package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/pflag"
)

const usage = `usage: food-order-system [flags] <auth_token> [rate_ms] [min_pickup_ms] [max_pickup_ms] [seed]

flags:
      --endpoint string    challenge server base URL
      --save-test string   write the fetched test problem to a file before the run
      --load-test string   replay a saved test problem instead of fetching one
      --skip-submission    run without submitting the solution
  -v, --verbose            debug logging`

// Options are the parsed command-line parameters for one run.
type Options struct {
	Auth           string
	Endpoint       string
	Rate           time.Duration
	MinPickup      time.Duration
	MaxPickup      time.Duration
	Seed           int64
	SaveTest       string
	LoadTest       string
	SkipSubmission bool
	Verbose        bool
}

func parseArgs(args []string) (Options, error) {
	opts := Options{
		Rate:      500 * time.Millisecond,
		MinPickup: 4000 * time.Millisecond,
		MaxPickup: 8000 * time.Millisecond,
	}

	fs := pflag.NewFlagSet("food-order-system", pflag.ContinueOnError)
	fs.StringVar(&opts.Endpoint, "endpoint", "https://api.cloudkitchens.com", "challenge server base URL")
	fs.StringVar(&opts.SaveTest, "save-test", "", "write the fetched test problem to a file before the run")
	fs.StringVar(&opts.LoadTest, "load-test", "", "replay a saved test problem instead of fetching one")
	fs.BoolVar(&opts.SkipSubmission, "skip-submission", false, "run without submitting the solution")
	fs.BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	fs.Usage = func() { fmt.Println(usage) }
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	pos := fs.Args()
	if len(pos) > 0 {
		opts.Auth = pos[0]
	}
	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"rate_ms", &opts.Rate},
		{"min_pickup_ms", &opts.MinPickup},
		{"max_pickup_ms", &opts.MaxPickup},
	}
	for i, d := range durations {
		if len(pos) > i+1 {
			ms, err := strconv.ParseInt(pos[i+1], 10, 64)
			if err != nil || ms <= 0 {
				return opts, fmt.Errorf("invalid %s %q\n%s", d.name, pos[i+1], usage)
			}
			*d.dst = time.Duration(ms) * time.Millisecond
		}
	}
	if len(pos) > 4 {
		seed, err := strconv.ParseInt(pos[4], 10, 64)
		if err != nil {
			return opts, fmt.Errorf("invalid seed %q\n%s", pos[4], usage)
		}
		opts.Seed = seed
	}
	if len(pos) > 5 {
		return opts, fmt.Errorf("unexpected argument %q\n%s", pos[5], usage)
	}

	if opts.MaxPickup < opts.MinPickup {
		return opts, fmt.Errorf("max_pickup_ms must be >= min_pickup_ms\n%s", usage)
	}
	// The token is only optional when replaying without a submission.
	if opts.Auth == "" && !(opts.LoadTest != "" && opts.SkipSubmission) {
		return opts, fmt.Errorf("an auth token is required\n%s", usage)
	}
	return opts, nil
}
