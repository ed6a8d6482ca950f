// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the interpreter metadata cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached metadata record",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := buildCache()
		if store == nil {
			fmt.Fprintln(cmd.ErrOrStderr(), SubtitleStyle.Render("caching is disabled, nothing to clear"))
			return nil
		}
		if err := store.Clear(); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("cache cleared"))
		return nil
	},
}

var cacheDirCmd = &cobra.Command{
	Use:   "dir",
	Short: "Print the cache directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.CacheDir == "" {
			fmt.Fprintln(cmd.ErrOrStderr(), SubtitleStyle.Render("no cache directory configured"))
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), cfg.CacheDir)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheDirCmd)
}
