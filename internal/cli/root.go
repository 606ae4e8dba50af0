package cli

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

// NewRootCommand assembles the authctl command tree.
func NewRootCommand(f *Factory) *cobra.Command {
	root := &cobra.Command{
		Use:   "authctl",
		Short: "Operate the backbone auth service",
		Long: `authctl manages accounts, role assignments and the audit trail of the
backbone auth service. It reads the same environment (or .env file) as the API.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newHashCommand(f),
		newUserCommand(f),
		newTokenCommand(f),
		newActivityCommand(f),
		newMigrateCommand(f),
	)
	return root
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
