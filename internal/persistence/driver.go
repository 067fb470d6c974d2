package persistence

import (
	"fmt"
	"net/url"
	"strings"
)

// DDL modes understood by gorm.ddl.
const (
	DDLNone     = "none"
	DDLValidate = "validate"
	DDLUpdate   = "update"
	DDLCreate   = "create"
)

func checkDriver(driver string) error {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "postgres", "postgresql", "pgx", "org.postgresql.driver":
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
}

// buildDSN turns a configured url plus credentials into a pgx connection string. A leading
// "jdbc:" is dropped so existing JDBC style urls keep working.
func buildDSN(raw, user, password string) (string, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "jdbc:")
	if raw == "" {
		return "", fmt.Errorf("persistence: connection url is empty")
	}
	if !strings.Contains(raw, "://") {
		// key=value form
		var b strings.Builder
		b.WriteString(raw)
		if user != "" {
			fmt.Fprintf(&b, " user=%s", quoteDSNValue(user))
		}
		if password != "" {
			fmt.Fprintf(&b, " password=%s", quoteDSNValue(password))
		}
		return b.String(), nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("persistence: parse connection url: %w", err)
	}
	if user != "" {
		if password != "" {
			u.User = url.UserPassword(user, password)
		} else {
			u.User = url.User(user)
		}
	}
	return u.String(), nil
}

func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v) + "'"
}
