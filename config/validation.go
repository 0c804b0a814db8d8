package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every problem found in one pass.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

// ValidateConfig checks cfg against the requirements of env.
func ValidateConfig(cfg *Config, env Environment) error {
	var errs ValidationErrors

	if cfg.Server.Port == "" {
		errs = append(errs, ValidationError{"server.port", "is required"})
	}

	switch cfg.Database.Driver {
	case "postgres":
		for field, value := range map[string]string{
			"database.host": cfg.Database.Host,
			"database.port": cfg.Database.Port,
			"database.user": cfg.Database.User,
			"database.name": cfg.Database.Name,
		} {
			if value == "" {
				errs = append(errs, ValidationError{field, "is required for postgres"})
			}
		}
	case "sqlite":
		if cfg.Database.Path == "" {
			errs = append(errs, ValidationError{"database.path", "is required for sqlite"})
		}
	default:
		errs = append(errs, ValidationError{"database.driver", fmt.Sprintf("unsupported driver %q", cfg.Database.Driver)})
	}

	if cfg.Limits.Min < 1 || cfg.Limits.Min > cfg.Limits.Max {
		errs = append(errs, ValidationError{"limits", fmt.Sprintf("need 1 <= min <= max, got min=%d max=%d", cfg.Limits.Min, cfg.Limits.Max)})
	}

	if cfg.Auth.JWTSecret == "" {
		errs = append(errs, ValidationError{"auth.jwt_secret", "is required"})
	}
	if cfg.Auth.TokenTTL <= 0 {
		errs = append(errs, ValidationError{"auth.token_ttl", "must be positive"})
	}

	if cfg.Storage.Enabled && cfg.Storage.Bucket == "" {
		errs = append(errs, ValidationError{"storage.bucket", "is required when storage is enabled"})
	}

	if env == Production || env == CI {
		if cfg.Auth.JWTSecret == DefaultJWTSecret {
			errs = append(errs, ValidationError{"auth.jwt_secret", "must be set to a non-default value"})
		}
	}
	if env == Production {
		if cfg.Database.Driver != "postgres" {
			errs = append(errs, ValidationError{"database.driver", "production requires postgres"})
		}
		if cfg.Database.Password == "" {
			errs = append(errs, ValidationError{"database.password", "db_password secret is required"})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
