package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atlekbai/statemech"
	"github.com/atlekbai/statemech/graph"
	"github.com/atlekbai/statemech/internal/demo"
	"github.com/atlekbai/statemech/internal/logger"
	"github.com/atlekbai/statemech/store"
	"github.com/atlekbai/statemech/store/bboltstore"
)

const (
	pLogLevel  = "log-level"
	pLogFormat = "log-format"
	pFormat    = "format"
	pDirection = "direction"
	pDB        = "db"
	pKey       = "key"
)

// RootCmd builds the command tree. cfg provides flag defaults.
func RootCmd(cfg Config) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "statemech",
		Short:         "Inspect and drive the demo phone state machine",
		SilenceUsage:  true,
	}

	f := rootCmd.PersistentFlags()
	f.String(pLogLevel, cfg.LogLevel, "Log level: DEBUG, INFO, WARN or ERROR")
	f.String(pLogFormat, cfg.LogFormat, "Log format: CONSOLE or JSON")

	rootCmd.AddCommand(graphCmd(), runCmd(cfg))
	return rootCmd
}

func newLogger(cmd *cobra.Command) *zap.Logger {
	level, _ := cmd.Flags().GetString(pLogLevel)
	format, _ := cmd.Flags().GetString(pLogFormat)
	return logger.NewWithWriter(level, format, cmd.ErrOrStderr())
}

func graphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the machine as a Mermaid or DOT diagram",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, _ := cmd.Flags().GetString(pFormat)
			dir, _ := cmd.Flags().GetString(pDirection)

			phone := demo.NewPhone(cmd.OutOrStdout())
			info := phone.Info()

			switch strings.ToLower(format) {
			case "dot":
				fmt.Fprintln(cmd.OutOrStdout(), graph.UmlDotGraph(info))
			case "mermaid":
				direction, err := parseDirection(dir)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), graph.MermaidGraph(info, direction))
			default:
				return fmt.Errorf("unknown format %q, expected mermaid or dot", format)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.String(pFormat, "mermaid", "Diagram format: mermaid or dot")
	f.String(pDirection, "", "Mermaid direction: TB, BT, LR or RL")
	return cmd
}

func parseDirection(dir string) (*graph.MermaidGraphDirection, error) {
	var d graph.MermaidGraphDirection
	switch strings.ToUpper(dir) {
	case "":
		return nil, nil
	case "TB":
		d = graph.TopToBottom
	case "BT":
		d = graph.BottomToTop
	case "LR":
		d = graph.LeftToRight
	case "RL":
		d = graph.RightToLeft
	default:
		return nil, fmt.Errorf("unknown direction %q", dir)
	}
	return &d, nil
}

func runCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [EVENT[=PAYLOAD]...]",
		Short: "Fire events in order and print the resulting snapshot",
		Long: "Fire events in order and print the resulting snapshot. With --db the " +
			"machine is restored from the snapshot stored under --key first and " +
			"saved back afterwards.",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(cmd)
			defer func() { _ = log.Sync() }()

			dbPath, _ := cmd.Flags().GetString(pDB)
			key, _ := cmd.Flags().GetString(pKey)
			out := cmd.OutOrStdout()

			phone := demo.NewPhone(out, statemech.WithLogger(log.Named("phone")))

			var snapshots *bboltstore.Store
			if dbPath != "" {
				var err error
				snapshots, err = bboltstore.Open(dbPath, bboltstore.WithLogger(log.Named("store")))
				if err != nil {
					return err
				}
				defer snapshots.Close()

				err = snapshots.Load(cmd.Context(), key, phone)
				switch {
				case errors.Is(err, store.ErrNotFound):
					log.Info("no snapshot stored, starting fresh", zap.String("key", key))
				case err != nil:
					return err
				}
			}

			for _, event := range args {
				fmt.Fprintf(out, "firing %s\n", event)
				if err := phone.FireCommand(event); err != nil {
					return err
				}
			}

			snapshot, err := phone.Serialize()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, phone.String())
			fmt.Fprintf(out, "snapshot: %s\n", snapshot)

			if snapshots != nil {
				return snapshots.Save(cmd.Context(), key, phone)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.String(pDB, cfg.DB, "bbolt file to restore from and save to")
	f.String(pKey, "phone", "Snapshot key")
	return cmd
}
