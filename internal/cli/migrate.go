package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/backbone-auth/internal/persistence"
)

func newMigrateCommand(f *Factory) *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if list {
				names, err := persistence.MigrationNames()
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}

			pg, err := f.postgres(cmd.Context())
			if err != nil {
				return err
			}
			return persistence.RunMigrations(cmd.Context(), pg.PoolHandle(), f.logger())
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "Only list the migrations")
	return cmd
}
