package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coverlane/coverlane/internal/partnersrv/db/migrations"
)

var resetPasswordUser string

func newResetPasswordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset-password --user ROLE",
		Short: "Reset the password of a database role",
		Long: `Reset the password of a database role on the partner store. The new
password is read from stdin and is never logged or echoed back.

Examples:
  # Reset the password of the service role
  coverctl reset-password --user coverlane_svc`,
		RunE: runResetPassword,
	}
	cmd.Flags().StringVar(&resetPasswordUser, "user", "", "Database role to reset")
	cmd.MarkFlagRequired("user")
	return cmd
}

func runResetPassword(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Fprintf(os.Stderr, "New password for %s: ", resetPasswordUser)
	password, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	password = strings.TrimRight(password, "\r\n")

	fmt.Fprint(os.Stderr, "Confirm password: ")
	confirm, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading password confirmation: %w", err)
	}
	confirm = strings.TrimRight(confirm, "\r\n")

	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	store, err := openStore()
	if err != nil {
		return fmt.Errorf("opening partner store: %w", err)
	}
	defer store.Close()

	if err := migrations.ResetUserPassword(cmd.Context(), store, resetPasswordUser, password); err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]string{"user": resetPasswordUser, "status": "password updated"})
	} else {
		okLabel.Printf("Password updated for role %s\n", resetPasswordUser)
	}
	return nil
}
