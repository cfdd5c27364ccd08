package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/birdayz/edgepipe/edoc"
	"github.com/birdayz/edgepipe/internal/settings"
	"github.com/birdayz/edgepipe/stores/pebble"
	"github.com/birdayz/edgepipe/stores/postgres"
	"github.com/birdayz/edgepipe/stores/s3"
)

// openStore opens the document store configured in cfg.
func openStore(ctx context.Context, cfg settings.Store) (edoc.Store, error) {
	switch cfg.Kind {
	case settings.StoreFile:
		return edoc.NewDirStore(cfg.Dir)
	case settings.StorePebble:
		return pebble.Open(cfg.Dir)
	case settings.StoreS3:
		return s3.New(ctx, s3.Config{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			Prefix:    cfg.S3.Prefix,
			Secure:    cfg.S3.Secure,
		})
	case settings.StorePostgres:
		return postgres.Connect(ctx, cfg.Postgres.URL)
	default:
		return nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
	}
}

func withStore(cmd *cobra.Command, fn func(edoc.Store) error) error {
	cfg, err := settings.Load(configPath)
	if err != nil {
		return err
	}
	store, err := openStore(cmd.Context(), cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

var saveCmd = &cobra.Command{
	Use:   "save NAME",
	Short: "Store the pipeline of a running server under NAME",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := newClient().Export(cmd.Context())
		if err != nil {
			return err
		}
		return withStore(cmd, func(s edoc.Store) error {
			return s.Put(cmd.Context(), args[0], doc)
		})
	},
}

var loadCmd = &cobra.Command{
	Use:   "load NAME",
	Short: "Import the stored pipeline NAME into a running server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(s edoc.Store) error {
			doc, err := s.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return newClient().Import(cmd.Context(), doc)
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored pipelines",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withStore(cmd, func(s edoc.Store) error {
			names, err := s.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete the stored pipeline NAME",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(s edoc.Store) error {
			return s.Delete(cmd.Context(), args[0])
		})
	},
}
