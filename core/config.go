package core

import (
	"fmt"
	"strings"
	"time"
)

const maxRolesCeiling = 10

type AuthConfig struct {
	Issuer     string        `koanf:"issuer" mapstructure:"issuer"`
	AccessTTL  time.Duration `koanf:"access_ttl" mapstructure:"access_ttl"`
	RefreshTTL time.Duration `koanf:"refresh_ttl" mapstructure:"refresh_ttl"`
	MaxRoles   int           `koanf:"max_roles" mapstructure:"max_roles"`
}

type LinksConfig struct {
	DiscoverySuffix string `koanf:"discovery_suffix" mapstructure:"discovery_suffix"`
}

type Config struct {
	ServiceName string      `koanf:"service_name" mapstructure:"service_name"`
	Auth        AuthConfig  `koanf:"auth" mapstructure:"auth"`
	Links       LinksConfig `koanf:"links" mapstructure:"links"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "resources",
		Auth: AuthConfig{
			Issuer:     "go-resources",
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
			MaxRoles:   maxRolesCeiling,
		},
		Links: LinksConfig{
			DiscoverySuffix: DefaultDiscoverySuffix,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Auth.AccessTTL <= 0 {
		return fmt.Errorf("core: auth.access_ttl must be positive")
	}
	if c.Auth.RefreshTTL <= 0 {
		return fmt.Errorf("core: auth.refresh_ttl must be positive")
	}
	if c.Auth.MaxRoles < 1 || c.Auth.MaxRoles > maxRolesCeiling {
		return fmt.Errorf("core: auth.max_roles must be between 1 and %d", maxRolesCeiling)
	}
	return nil
}
