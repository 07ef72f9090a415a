package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/viant/sqlite-kb/internal/bootstrap"
	"github.com/viant/sqlite-kb/vector"
)

func newCollectionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collection",
		Short: "Manage vector collections",
	}

	var recreate, warn bool
	create := &cobra.Command{
		Use:   "create",
		Short: "Create the configured collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *bootstrap.Container) error {
				admin, err := c.Admin()
				if err != nil {
					return err
				}
				spec := c.Config.CollectionSpec()
				spec.Recreate = recreate
				spec.WarnOnExists = warn
				if err := admin.CreateCollection(ctx, spec); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "collection %s ready\n", spec.Name)
				return nil
			})
		},
	}
	create.Flags().BoolVar(&recreate, "recreate", false, "Drop vectors of an existing collection")
	create.Flags().BoolVar(&warn, "warn", false, "Warn when the collection already exists")

	info := &cobra.Command{
		Use:   "info [name]",
		Short: "Show collection metadata",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *bootstrap.Container) error {
				admin, err := c.Admin()
				if err != nil {
					return err
				}
				name := c.Config.Collection.Name
				if len(args) == 1 {
					name = args[0]
				}
				meta, err := admin.CollectionInfo(ctx, name)
				if err != nil {
					return err
				}
				if meta == nil {
					return fmt.Errorf("%w: %s", vector.ErrCollectionNotFound, name)
				}
				count, err := admin.Count(ctx, name)
				if err != nil {
					return err
				}
				return yaml.NewEncoder(cmd.OutOrStdout()).Encode(struct {
					vector.CollectionInfo `yaml:",inline"`
					Vectors               int `yaml:"vectors"`
				}{*meta, count})
			})
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *bootstrap.Container) error {
				admin, err := c.Admin()
				if err != nil {
					return err
				}
				collections, err := admin.Collections(ctx)
				if err != nil {
					return err
				}
				for _, col := range collections {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%s\n", col.Name, col.Dimension, col.Metric)
				}
				return nil
			})
		},
	}

	drop := &cobra.Command{
		Use:   "drop name",
		Short: "Drop a collection and its vectors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *bootstrap.Container) error {
				admin, err := c.Admin()
				if err != nil {
					return err
				}
				return admin.DropCollection(ctx, args[0])
			})
		},
	}

	cmd.AddCommand(create, info, list, drop)
	return cmd
}

func newReindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild and persist the collection index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *bootstrap.Container) error {
				admin, err := c.Admin()
				if err != nil {
					return err
				}
				n, err := admin.Reindex(ctx, c.Config.Collection.Name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reindexed:%d\n", n)
				return nil
			})
		},
	}
}
