// Package cli implements assuractl, the operator tool for key material,
// search hashes, schema migrations and configuration checks.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

type options struct {
	jsonOutput bool
}

// NewRootCmd builds the command tree. Each call returns fresh flag state.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "assuractl",
		Short: "Operator tooling for the Assura GDPR core",
		Long: `assuractl generates field-encryption key material, computes the search
hashes stored next to encrypted person fields, applies the database schema
and checks a server configuration without starting the server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "output in JSON format")

	root.AddCommand(
		newKeygenCmd(opts),
		newHashCmd(opts),
		newMigrateCmd(),
		newConfigCmd(opts),
	)
	return root
}

// Execute runs assuractl with os.Args and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
