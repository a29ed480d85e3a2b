package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "docsgate",
		Short: "API documentation gateway",
		Long: `docsgate hosts Swagger UI for a catalog of upstream APIs, rewrites their
specs so "Try it out" goes through the gateway, merges an external spec into
its own OpenAPI document and relays API traffic to a target backend.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", os.Getenv("DOCSGATE_CONFIG"), "config file path (defaults to ./docsgate.yaml when present)")

	root.AddCommand(newServeCmd(), newResolveCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of docsgate",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "docsgate", version)
		},
	}
}
