package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/backbone-auth/internal/domain"
	"github.com/spec-kit/backbone-auth/internal/repository"
)

type userView struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Status    string    `json:"status"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func viewOf(u *domain.User) userView {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return userView{
		ID:        u.ID,
		Username:  u.Username,
		Status:    string(u.Status),
		Roles:     roles,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func newUserCommand(f *Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}
	cmd.AddCommand(
		newUserCreateCommand(f),
		newUserShowCommand(f),
		newUserGrantCommand(f),
		newUserStatusCommand(f),
	)
	return cmd
}

func newUserCreateCommand(f *Factory) *cobra.Command {
	var (
		password string
		roles    []string
		status   string
	)

	cmd := &cobra.Command{
		Use:   "create <username>",
		Short: "Create an account with its roles",
		Long: `Creates an account with the given roles. The initial password is read from
the first line of stdin unless --password is set.`,
		Example: `  printf '%s\n' "$ADA_PASSWORD" | authctl user create ada --role Master --role Subscriber`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			userStatus, err := parseStatus(status)
			if err != nil {
				return err
			}

			hasher, err := f.hasher()
			if err != nil {
				return err
			}
			hash, salt, err := hasher.CreateHash(password)
			if err != nil {
				return err
			}

			users, err := f.users(cmd.Context())
			if err != nil {
				return err
			}
			user := &domain.User{Username: args[0], Status: userStatus, Roles: roles}
			if err := users.Create(cmd.Context(), user, hash, salt); err != nil {
				if errors.Is(err, repository.ErrConflict) {
					return fmt.Errorf("user %q already exists", args[0])
				}
				return err
			}
			return printJSON(cmd.OutOrStdout(), viewOf(user))
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "Initial password, overrides stdin; visible in the process list")
	cmd.Flags().StringArrayVarP(&roles, "role", "r", nil, "Role to assign (repeatable)")
	cmd.Flags().StringVar(&status, "status", string(domain.UserStatusActive), "Account status (Active, Inactive, Suspended)")
	return cmd
}

func newUserShowCommand(f *Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "show <username>",
		Short: "Show an account and its roles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := f.users(cmd.Context())
			if err != nil {
				return err
			}
			user, err := lookup(cmd, users, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), viewOf(user))
		},
	}
}

func newUserGrantCommand(f *Factory) *cobra.Command {
	return &cobra.Command{
		Use:     "grant <username> <role>...",
		Short:   "Assign additional roles to an account",
		Example: `  authctl user grant ada Admin`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := f.users(cmd.Context())
			if err != nil {
				return err
			}
			user, err := lookup(cmd, users, args[0])
			if err != nil {
				return err
			}
			if err := users.AssignRoles(cmd.Context(), user.ID, args[1:]); err != nil {
				return err
			}
			user.Roles = domain.NormalizeRoles(append(user.Roles, args[1:]...))
			return printJSON(cmd.OutOrStdout(), viewOf(user))
		},
	}
}

func newUserStatusCommand(f *Factory) *cobra.Command {
	return &cobra.Command{
		Use:     "status <username> <status>",
		Short:   "Change an account's status",
		Example: `  authctl user status ada Suspended`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := parseStatus(args[1])
			if err != nil {
				return err
			}
			users, err := f.users(cmd.Context())
			if err != nil {
				return err
			}
			if err := users.SetStatus(cmd.Context(), args[0], status); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return fmt.Errorf("user %q not found", args[0])
				}
				return err
			}
			f.logger().Info("user status changed", zap.String("username", args[0]), zap.String("status", string(status)))
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", args[0], status)
			return nil
		},
	}
}

func lookup(cmd *cobra.Command, users UserAdmin, username string) (*domain.User, error) {
	user, err := users.GetWithRoles(cmd.Context(), username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("user %q not found", username)
	}
	return user, err
}

func parseStatus(raw string) (domain.UserStatus, error) {
	switch s := domain.UserStatus(raw); s {
	case domain.UserStatusActive, domain.UserStatusInactive, domain.UserStatusSuspended:
		return s, nil
	}
	return "", fmt.Errorf("unknown status %q", raw)
}
