package cli

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/backbone-auth/internal/auth"
)

type tokenView struct {
	Subject           string              `json:"subject"`
	Kind              string              `json:"kind"`
	Issuer            string              `json:"issuer"`
	Audience          []string            `json:"audience"`
	IssuedAt          time.Time           `json:"issued_at"`
	ExpiresAt         time.Time           `json:"expires_at"`
	CurrentRole       string              `json:"current_role,omitempty"`
	OriginalUsername  string              `json:"original_username,omitempty"`
	ImpersonationRole string              `json:"impersonation_role,omitempty"`
	Claims            map[string][]string `json:"claims"`
}

func tokenKind(claims auth.Claims) string {
	switch {
	case claims.IsImpersonating():
		return "impersonation"
	case claims.IsInterim():
		return "interim"
	case claims.IsFinal():
		return "final"
	}
	return "unknown"
}

func newTokenCommand(f *Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Work with bearer tokens",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "inspect <token>",
		Short: "Verify a token and print its claims",
		Long: `Verifies signature, issuer, audience and expiry against the configured
secret, then prints the claims. A rejected token exits non-zero.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := f.codec()
			if err != nil {
				return err
			}
			token, err := codec.Parse(strings.TrimPrefix(strings.TrimSpace(args[0]), "Bearer "))
			if err != nil {
				return err
			}

			claims := map[string][]string{}
			for _, c := range token.Claims.List() {
				claims[c.Type] = append(claims[c.Type], c.Value)
			}
			return printJSON(cmd.OutOrStdout(), tokenView{
				Subject:           token.Claims.Subject(),
				Kind:              tokenKind(token.Claims),
				Issuer:            token.Issuer,
				Audience:          token.Audience,
				IssuedAt:          token.IssuedAt,
				ExpiresAt:         token.ExpiresAt,
				CurrentRole:       token.Claims.CurrentRole(),
				OriginalUsername:  token.Claims.OriginalUsername(),
				ImpersonationRole: token.Claims.ImpersonationRole(),
				Claims:            claims,
			})
		},
	})
	return cmd
}
