package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the parts of the configuration that would otherwise
// fail at an awkward moment: mid-report for Freshdesk credentials,
// first login for auth settings.
func (c *Config) Validate() error {
	var problems []string

	if c.Freshdesk.Domain == "" {
		problems = append(problems, "freshdesk.domain is required")
	}
	if c.Freshdesk.APIKey == "" {
		problems = append(problems, "freshdesk.api_key is required")
	}
	if c.Contracts.WorkbookPath == "" {
		problems = append(problems, "contracts.workbook_path is required")
	}
	if c.Auth.JWTSecret == "" {
		problems = append(problems, "auth.jwt_secret is required")
	}
	if len(c.Auth.JWTSecret) > 0 && len(c.Auth.JWTSecret) < 32 {
		problems = append(problems, "auth.jwt_secret must be at least 32 characters")
	}

	switch c.Cache.Backend {
	case "", "local":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			problems = append(problems, "cache.redis.addr is required when cache.backend is redis")
		}
	default:
		problems = append(problems, fmt.Sprintf("cache.backend %q is not one of local, redis", c.Cache.Backend))
	}

	seen := make(map[string]struct{}, len(c.Auth.Users))
	for i, u := range c.Auth.Users {
		if u.Username == "" {
			problems = append(problems, fmt.Sprintf("auth.users[%d]: username is required", i))
			continue
		}
		if _, dup := seen[u.Username]; dup {
			problems = append(problems, fmt.Sprintf("auth.users: duplicate username %q", u.Username))
		}
		seen[u.Username] = struct{}{}
		if u.PasswordHash == "" {
			problems = append(problems, fmt.Sprintf("auth.users[%d] (%s): password_hash is required", i, u.Username))
		}
		if u.ClientCode == "" {
			problems = append(problems, fmt.Sprintf("auth.users[%d] (%s): client_code is required", i, u.Username))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New("invalid configuration:\n  - " + strings.Join(problems, "\n  - "))
}
