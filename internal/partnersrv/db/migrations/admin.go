package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/lib/pq"
)

// validRoleNameRegex ensures role names are valid PostgreSQL identifiers.
var validRoleNameRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ResetUserPassword changes the password of a database role. This is an
// operational action for administrators; it is exposed only through the CLI
// and the new password is never logged. Identifier and literal are quoted
// because ALTER USER does not accept bind parameters.
func ResetUserPassword(ctx context.Context, db *sql.DB, user, password string) error {
	if !validRoleNameRegex.MatchString(user) {
		return fmt.Errorf("invalid role name: %s", user)
	}
	if password == "" {
		return fmt.Errorf("password must not be empty")
	}

	query := fmt.Sprintf("ALTER USER %s WITH PASSWORD %s",
		pq.QuoteIdentifier(user), pq.QuoteLiteral(password))
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to reset password for role %q: %w", user, err)
	}
	return nil
}
