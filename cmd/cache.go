package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the geocode cache",
}

var cacheMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the geocode cache table",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("cache"); err != nil {
			return err
		}

		// openCache migrates SQL backends before returning.
		c, err := openCache(ctx, cfg.Geocode)
		if err != nil {
			return err
		}
		defer c.Close() //nolint:errcheck

		zap.L().Info("geocode cache ready", zap.String("backend", cfg.Geocode.Cache))
		return nil
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired geocode cache entries",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("cache"); err != nil {
			return err
		}

		c, err := openCache(ctx, cfg.Geocode)
		if err != nil {
			return err
		}
		defer c.Close() //nolint:errcheck

		n, err := c.Purge(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "purged %d expired entries\n", n)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheMigrateCmd, cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}
