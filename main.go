package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"go.uber.org/config"
	"go.uber.org/fx"

	"github.com/vageesanr/food-order-system/kitchen"
	"github.com/vageesanr/food-order-system/server"
)

const (
	// EnvKey is the environment variable that represents the runtime environment
	EnvKey string = "SERVICE_ENV"
)

type Env string

// getEnv attempts to read the environment. If unsuccessful to authoritatively
// determine the env, returns development.
func getEnv() Env {
	env, exists := os.LookupEnv(EnvKey)
	if !exists || len(env) == 0 {
		return "development"
	}
	return Env(env)
}

// defaultConfig is the built-in configuration: the challenge topology and a
// disabled status server. A config/<env>.yaml file overlays it.
const defaultConfig = `
kitchen:
  topology:
    - name: heater
      capacity: 6
    - name: cooler
      capacity: 6
    - name: shelf
      capacity: 12
server:
  enabled: false
  port: 8080
`

// ProvideXXX functions inject instances into the application DI container.
func ProvideEnv() Env {
	return getEnv()
}

func ProvideConfig(env Env) (config.Provider, error) {
	opts := []config.YAMLOption{config.Source(strings.NewReader(defaultConfig))}
	path := fmt.Sprintf("config/%s.yaml", env)
	if _, err := os.Stat(path); err == nil {
		opts = append(opts, config.File(path))
	}
	provider, err := config.NewYAML(opts...)
	if err != nil {
		return nil, err
	}
	return provider, nil
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

func main() {
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log := newLogger(opts.Verbose)

	var runErr error
	app := fx.New(
		fx.NopLogger,
		fx.Supply(opts, log),
		fx.Provide(ProvideEnv, ProvideConfig),
		fx.Provide(kitchen.NewKitchen, kitchen.NewLedger),
		fx.Provide(provideClient),
		fx.Provide(server.Provide),
		fx.Invoke(server.Start),
		fx.Invoke(func(lc fx.Lifecycle, sd fx.Shutdowner, j *job) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						runErr = j.run()
						sd.Shutdown()
					}()
					return nil
				},
			})
		}),
		fx.Provide(newJob),
	)
	// Run blocks until the job shuts the app down (or a signal arrives).
	app.Run()

	if runErr != nil {
		log.Error().Err(runErr).Msg("run failed")
		os.Exit(1)
	}
}
