package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the result cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear <namespace>",
	Short: "Delete every cached entry in a namespace",
	Long: `Deletes every entry in one cache namespace. Adapter namespaces are
firmographic, discovery, contacts and directory; finished profiles live in
profile.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := initCache(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		if closer, ok := c.(interface{ Close() error }); ok {
			defer closer.Close() //nolint:errcheck
		}

		n, err := c.InvalidateNamespace(cmd.Context(), args[0])
		if err != nil {
			return eris.Wrapf(err, "cache clear %s", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d entries from %s\n", n, args[0])
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
