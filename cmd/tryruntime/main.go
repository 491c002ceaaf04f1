// Command tryruntime exercises the parachain host storage migrations
// offline, against a copy of a production metadata store.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/btclayer2/polkadot-sdk/bolt"
	"github.com/btclayer2/polkadot-sdk/kit/cli"
	"github.com/btclayer2/polkadot-sdk/kv"
	"github.com/btclayer2/polkadot-sdk/kv/migration"
	"github.com/btclayer2/polkadot-sdk/logger"
	"github.com/btclayer2/polkadot-sdk/parachains/configuration"
	confmigration "github.com/btclayer2/polkadot-sdk/parachains/configuration/migration"
)

var flags struct {
	boltPath  string
	logLevel  zapcore.Level
	logFormat string
}

func main() {
	cmd, err := tryruntimeCmd(context.Background(), viper.New())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// metaDir returns the directory the metadata store lives in by default.
func metaDir() (string, error) {
	var dir string
	// By default, store the metadata file in the current users home directory
	u, err := user.Current()
	if err == nil {
		dir = u.HomeDir
	} else if home := os.Getenv("HOME"); home != "" {
		dir = home
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dir = wd
	}

	return filepath.Join(dir, ".polkadot-sdk"), nil
}

func tryruntimeCmd(ctx context.Context, v *viper.Viper) (*cobra.Command, error) {
	dir, err := metaDir()
	if err != nil {
		return nil, fmt.Errorf("failed to determine metadata directory: %w", err)
	}

	cmd, err := cli.NewCommand(v, &cli.Program{
		Name: "tryruntime",
		Run: func() error {
			return withLogger(ctx, runMigrations)
		},
		Opts: []cli.Opt{
			{
				DestP:      &flags.boltPath,
				Flag:       "bolt-path",
				Persistent: true,
				Default:    filepath.Join(dir, "metadata.bolt"),
				Desc:       "path to the boltdb file holding the parachains metadata",
			},
			{
				DestP:      &flags.logLevel,
				Flag:       "log-level",
				Persistent: true,
				Default:    zapcore.InfoLevel,
				Desc:       "supported log levels are debug, info, warn and error",
			},
			{
				DestP:      &flags.logFormat,
				Flag:       "log-format",
				Persistent: true,
				Default:    "auto",
				Desc:       "log output format, one of auto, console, logfmt or json",
			},
		},
	})
	if err != nil {
		return nil, err
	}

	cmd.Short = "Offline harness for parachain host storage migrations"

	cmd.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Apply all outstanding storage migrations",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				return withLogger(ctx, runMigrations)
			},
		},
		&cobra.Command{
			Use:   "verify",
			Short: "Check the store satisfies every migration post condition, without migrating",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				return withLogger(ctx, verifyStore)
			},
		},
		&cobra.Command{
			Use:   "versions",
			Short: "List the storage version recorded for each component",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				return withLogger(ctx, listVersions)
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the active host configuration and the pending changes",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				return withLogger(ctx, showConfig)
			},
		},
	)

	return cmd, nil
}

// withLogger builds the logger the flags describe and hands fn a context
// carrying it.
func withLogger(ctx context.Context, fn func(context.Context) error) error {
	logconf := &logger.Config{
		Format: flags.logFormat,
		Level:  flags.logLevel,
	}

	log, err := logconf.New(os.Stdout)
	if err != nil {
		return err
	}
	defer log.Sync()

	return fn(logger.NewContextWithLogger(ctx, log))
}

func openStore(ctx context.Context) (*bolt.KVStore, error) {
	log := logger.FromContext(ctx)

	store := bolt.NewKVStore(log.With(zap.String("service", "kvstore-bolt")), flags.boltPath)
	if err := store.Open(ctx); err != nil {
		return nil, fmt.Errorf("failed to open boltdb file %q: %w", flags.boltPath, err)
	}

	return store, nil
}

func newMigrator(log *zap.Logger, store *bolt.KVStore) (*migration.Migrator, error) {
	migrator, err := migration.NewMigrator(
		log.With(zap.String("service", "kv-migrator")),
		store,
		confmigration.Migrations(log)...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize migrator: %w", err)
	}

	return migrator, nil
}

func runMigrations(ctx context.Context) error {
	log := logger.FromContext(ctx)

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	migrator, err := newMigrator(log, store)
	if err != nil {
		return err
	}

	cost, err := migrator.Up(ctx)
	if err != nil {
		return err
	}

	log.Info("Migration pass complete",
		zap.Uint64("reads", cost.Reads),
		zap.Uint64("writes", cost.Writes))

	return nil
}

func verifyStore(ctx context.Context) error {
	log := logger.FromContext(ctx)

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	migrator, err := newMigrator(log, store)
	if err != nil {
		return err
	}

	if err := migrator.Verify(ctx); err != nil {
		return err
	}

	log.Info("Storage verified", zap.String("path", flags.boltPath))

	return nil
}

func listVersions(ctx context.Context) error {
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	versions, err := migration.StorageVersions(ctx, store)
	if err != nil {
		return err
	}

	if len(versions) == 0 {
		fmt.Println("no storage versions recorded")
		return nil
	}

	for _, v := range versions {
		fmt.Printf("%s\t%d\n", v.Component, v.Version)
	}

	return nil
}

func showConfig(ctx context.Context) error {
	log := logger.FromContext(ctx)

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	confStore := configuration.NewStore(log.With(zap.String("service", "configuration")), store)

	active, err := confStore.ActiveConfig(ctx)
	switch {
	case kv.IsNotFound(err):
		fmt.Println("no active host configuration")
	case err != nil:
		return err
	default:
		v, err := json.MarshalIndent(active, "", "  ")
		if err != nil {
			return err
		}

		fmt.Println(string(v))
	}

	pending, err := confStore.PendingConfigs(ctx)
	if err != nil && !kv.IsNotFound(err) {
		return err
	}

	for _, p := range pending {
		fmt.Printf("pending change applies at session %d\n", p.AppliesAt)
	}

	return nil
}
