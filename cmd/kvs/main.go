package main

import (
	"errors"
	"fmt"
	"os"

	"code.cloudfoundry.org/bytefmt"
	"github.com/spf13/cobra"

	"github.com/0xRadioAc7iv/go-kvs/core"
	"github.com/0xRadioAc7iv/go-kvs/internal"
	"github.com/0xRadioAc7iv/go-kvs/internal/lock"
	"github.com/0xRadioAc7iv/go-kvs/internal/logging"
	"github.com/0xRadioAc7iv/go-kvs/internal/utils"
)

const DefaultConfigFile = "kvs.yaml"

var (
	dirFlag      string
	configFlag   string
	logLevelFlag string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "kvs",
		Short:        "Embedded log-structured key-value store",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&dirFlag, "dir", "d", internal.DEFAULT_DIR, "store directory")
	root.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "path to a YAML config file (default ./"+DefaultConfigFile+" if present)")
	root.PersistentFlags().StringVar(&logLevelFlag, "log-level", internal.DEFAULT_LOG_LEVEL, "debug, info, warn or error")

	root.AddCommand(
		&cobra.Command{
			Use:   "set KEY VALUE",
			Short: "Store VALUE under KEY",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(cmd, func(s *core.Store) error {
					return s.Set(args[0], []byte(args[1]))
				})
			},
		},
		&cobra.Command{
			Use:   "get KEY",
			Short: "Print the value stored under KEY",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(cmd, func(s *core.Store) error {
					value, found, err := s.Get(args[0])
					if err != nil {
						return err
					}
					if !found {
						fmt.Fprintln(cmd.OutOrStdout(), "Key not found")
						return nil
					}
					fmt.Fprintln(cmd.OutOrStdout(), string(value))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:     "rm KEY",
			Aliases: []string{"remove", "delete"},
			Short:   "Remove KEY",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				err := withStore(cmd, func(s *core.Store) error {
					return s.Remove(args[0])
				})
				if errors.Is(err, core.ErrKeyNotFound) {
					fmt.Fprintln(cmd.OutOrStdout(), "Key not found")
					os.Exit(1)
				}
				return err
			},
		},
		&cobra.Command{
			Use:   "compact",
			Short: "Rewrite the log keeping only live values",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(cmd, func(s *core.Store) error {
					before := s.Stats().LogSize
					if err := s.Compact(); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "compacted %s -> %s\n",
						bytefmt.ByteSize(before), bytefmt.ByteSize(s.Stats().LogSize))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "stats",
			Short: "Print index and log statistics",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(cmd, func(s *core.Store) error {
					printStats(cmd.OutOrStdout(), s.Stats())
					return nil
				})
			},
		},
		newShellCmd(),
	)

	return root
}

// loadConfig resolves the configuration: the config file (explicit or
// ./kvs.yaml), then any flags given on the command line.
func loadConfig(cmd *cobra.Command) (*internal.Config, error) {
	cfg := internal.DefaultConfig()

	path := configFlag
	if path == "" && utils.PathExists(DefaultConfigFile) {
		path = DefaultConfigFile
	}

	if path != "" {
		loaded, err := internal.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("dir") {
		cfg.Dir = dirFlag
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = logLevelFlag
	}

	return cfg, nil
}

// withStore opens the configured store under a directory lock, runs fn, and
// closes everything again.
func withStore(cmd *cobra.Command, fn func(s *core.Store) error) (err error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return err
	}

	dirLock, err := lock.Acquire(cfg.Dir)
	if err != nil {
		return err
	}
	defer dirLock.Release()

	s, err := core.Open(cfg.Dir, cfg.Options(logger)...)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(); err == nil {
			err = closeErr
		}
	}()

	return fn(s)
}
