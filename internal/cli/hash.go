package cli

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newHashCommand(f *Factory) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Hash a password with a fresh salt",
		Long: `Prints the hex encoded hash and salt for a password, using the configured
digest. Without --password the first line of stdin is used.`,
		Example: `  echo -n 's3cret' | authctl hash`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readPassword(cmd, password)
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
			return printJSON(cmd.OutOrStdout(), map[string]string{
				"hash": hex.EncodeToString(hash),
				"salt": hex.EncodeToString(salt),
			})
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password to hash; visible in the process list, prefer stdin")
	return cmd
}

// readPassword returns flagValue when set, otherwise the first line of stdin.
func readPassword(cmd *cobra.Command, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("no password given on stdin or --password")
	}
	return password, nil
}
