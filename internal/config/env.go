package config

import (
	"os"
	"strings"
	"time"
)

// Environment variable names.
const (
	EnvCustodyURL     = "WALLETD_CUSTODY_URL"
	EnvOrganizationID = "WALLETD_ORGANIZATION_ID"
	EnvKeyFile        = "WALLETD_KEY_FILE"
	EnvKeyPassphrase  = "WALLETD_KEY_PASSPHRASE" // #nosec G101 -- variable name, not a credential
	EnvListenAddr     = "WALLETD_LISTEN_ADDR"
	EnvLogLevel       = "WALLETD_LOG_LEVEL"
	EnvReadWriteTTL   = "WALLETD_READ_WRITE_TTL"
)

// ApplyEnvironment applies environment variable overrides to the
// configuration. The key passphrase is deliberately not part of Config;
// read it with Passphrase so it never lands in a marshaled config.
func ApplyEnvironment(cfg *Config) {
	if v := os.Getenv(EnvCustodyURL); v != "" {
		cfg.Custody.BaseURL = strings.TrimSpace(v)
	}

	if v := os.Getenv(EnvOrganizationID); v != "" {
		cfg.Custody.OrganizationID = strings.TrimSpace(v)
	}

	if v := os.Getenv(EnvKeyFile); v != "" {
		cfg.Keystore.KeyFile = v
	}

	if v := os.Getenv(EnvListenAddr); v != "" {
		cfg.Server.ListenAddr = v
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}

	if v := os.Getenv(EnvReadWriteTTL); v != "" {
		if ttl, err := time.ParseDuration(v); err == nil && ttl > 0 {
			cfg.Sessions.ReadWriteTTL = ttl
		}
	}
}

// Passphrase returns the operator key passphrase from the environment,
// or empty when the caller should prompt interactively.
func Passphrase() string {
	return os.Getenv(EnvKeyPassphrase)
}
