package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/klabast/wb-services/habit-tracker/internal/config"
	"github.com/klabast/wb-services/habit-tracker/internal/habit"
	"github.com/klabast/wb-services/habit-tracker/internal/logger"
	"github.com/klabast/wb-services/habit-tracker/internal/metrics"
	"github.com/klabast/wb-services/habit-tracker/internal/storage"
)

// Execute runs the command tree and exits non-zero on error.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// NewRootCommand builds the full command tree around a fresh viper instance.
func NewRootCommand() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:           "habit-tracker",
		Short:         "Track daily habits with a year-long completion heatmap",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return readConfig(v, cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default .habit-tracker.yaml)")
	flags.String("data-dir", "", "directory holding habit data (default .)")
	flags.String("storage", "", "storage driver: file, sqlite or memory (default file)")
	flags.String("timezone", "", "time zone deciding today's date (default Local)")
	flags.BoolP("verbose", "v", false, "verbose logging")

	_ = v.BindPFlag("data_dir", flags.Lookup("data-dir"))
	_ = v.BindPFlag("storage.driver", flags.Lookup("storage"))
	_ = v.BindPFlag("timezone", flags.Lookup("timezone"))
	_ = v.BindPFlag("verbose", flags.Lookup("verbose"))

	root.AddCommand(
		serveCmd(v),
		addCmd(v),
		removeCmd(v),
		doneCmd(v),
		listCmd(v),
		showCmd(v),
		statsCmd(v),
		tuiCmd(v),
		hashPasswordCmd(v),
	)
	return root
}

func readConfig(v *viper.Viper, cmd *cobra.Command) error {
	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", cfgFile, err)
		}
		return nil
	}

	v.SetConfigName(".habit-tracker")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}

	// It's fine if no config file is found; we use defaults.
	var notFound viper.ConfigFileNotFoundError
	if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// session bundles what every store-backed command needs.
type session struct {
	cfg   config.Config
	log   *zap.Logger
	blob  storage.Blob
	store *habit.Store
}

// openSession loads config, builds the logger, opens storage and loads the
// habit collection.
func openSession(ctx context.Context, v *viper.Viper) (*session, error) {
	cfg, err := config.LoadFrom(v)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Verbose)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	opts := cfg.StorageOptions()
	opts.Logger = log
	blob, err := storage.Open(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	store := habit.NewStore(blob,
		habit.WithKey(cfg.Storage.Key),
		habit.WithLogger(log),
		habit.WithLocation(loc),
		habit.WithRecorder(metrics.Recorder{}),
	)
	store.Load()

	return &session{cfg: cfg, log: log, blob: blob, store: store}, nil
}

func (s *session) Close() {
	if err := s.blob.Close(); err != nil {
		s.log.Warn("closing storage failed", zap.Error(err))
	}
	_ = s.log.Sync()
}
