package database

import (
	"fmt"
	"net/url"

	coreconfig "github.com/m3rciful/hmbot/core/config"
)

// Config is the Postgres section of the bot configuration.
type Config = coreconfig.DatabaseConfig

// DSN returns a lib/pq keyword/value connection string.
func DSN(cfg Config) string {
	return fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=%s",
		quote(cfg.User), quote(cfg.Password), quote(cfg.Host), quote(cfg.Port), quote(cfg.Name), quote(cfg.SSLMode),
	)
}

// URL returns the postgres:// form used by golang-migrate.
func URL(cfg Config) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Host + ":" + cfg.Port,
		Path:     "/" + cfg.Name,
		RawQuery: url.Values{"sslmode": {cfg.SSLMode}}.Encode(),
	}
	return u.String()
}

// quote escapes a keyword/value parameter when it holds spaces or quotes.
func quote(v string) string {
	if v == "" {
		return "''"
	}
	needs := false
	for _, r := range v {
		if r == ' ' || r == '\'' || r == '\\' {
			needs = true
			break
		}
	}
	if !needs {
		return v
	}
	out := make([]rune, 0, len(v)+2)
	out = append(out, '\'')
	for _, r := range v {
		if r == '\'' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(append(out, '\''))
}
