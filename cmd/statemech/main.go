// Command statemech drives the demo phone machine: it renders its graph and
// fires events against a snapshot kept in a bbolt database.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sethvargo/go-envconfig"
)

// Config is read from the environment. Flags override it.
type Config struct {
	LogLevel  string `env:"STATEMECH_LOG_LEVEL, default=INFO"`
	LogFormat string `env:"STATEMECH_LOG_FORMAT, default=CONSOLE"`
	// DB is the bbolt file holding snapshots; empty disables persistence.
	DB string `env:"STATEMECH_DB"`
}

// ReadEnv loads Config from lookuper, or from the process environment when
// lookuper is nil.
func ReadEnv(ctx context.Context, lookuper envconfig.Lookuper) (Config, error) {
	var cfg Config
	if lookuper == nil {
		lookuper = envconfig.OsLookuper()
	}
	err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	})
	if err != nil {
		return Config{}, fmt.Errorf("reading environment: %w", err)
	}
	return cfg, nil
}

func main() {
	ctx := context.Background()
	cfg, err := ReadEnv(ctx, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := RootCmd(cfg).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
