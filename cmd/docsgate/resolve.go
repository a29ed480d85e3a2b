package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/freema/docsgate/internal/swaggerui"
)

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <page-url-or-query>",
		Short: "Print the Swagger UI options a page URL resolves to",
		Example: `  docsgate resolve '/swagger-ui/index.html?configUrl=/swagger-config/single/billing'
  docsgate resolve 'url=/v3/api-docs'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(swaggerui.Resolve(rawQueryOf(args[0])))
		},
	}
}

// rawQueryOf accepts a full page URL or a bare query string.
func rawQueryOf(s string) string {
	s, _, _ = strings.Cut(s, "#")
	if _, q, ok := strings.Cut(s, "?"); ok {
		return q
	}
	if strings.Contains(s, "://") || strings.HasPrefix(s, "/") {
		return ""
	}
	return s
}
