package config

import (
	"fmt"
	"strings"

	"foodcourt/crypto"
	"foodcourt/native/participants"
)

var (
	MaxEventHistory = 1 << 16
)

// Validate checks the node-level settings and the global policy block.
func (c *Config) Validate() error {
	if c.ChainID == 0 {
		return fmt.Errorf("config: ChainID must be non-zero")
	}
	if strings.TrimSpace(c.Owner) == "" {
		return fmt.Errorf("config: Owner is required")
	}
	if _, err := decodeOwner(c.Owner); err != nil {
		return err
	}
	if _, err := participants.ParseProfile(c.Profile); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := participants.ParseRegistrationPolicy(c.RegistrationPolicy); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.EventHistory < 0 || c.EventHistory > MaxEventHistory {
		return fmt.Errorf("config: EventHistory must be within [0, %d]", MaxEventHistory)
	}
	if c.RPCReadHeaderTimeout < 0 || c.RPCReadTimeout < 0 || c.RPCWriteTimeout < 0 || c.RPCIdleTimeout < 0 {
		return fmt.Errorf("config: RPC timeouts must not be negative")
	}
	return ValidateConfig(c.Global)
}

func ValidateConfig(g Global) error {
	if g.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("ratelimit: requests_per_second < 0")
	}
	if g.RateLimit.RequestsPerSecond > 0 && g.RateLimit.Burst <= 0 {
		return fmt.Errorf("ratelimit: burst must be positive when limiting")
	}
	if (g.Quota.MaxTxPerEpoch == 0) != (g.Quota.EpochSeconds == 0) {
		return fmt.Errorf("quota: MaxTxPerEpoch and EpochSeconds must be set together")
	}
	if g.Logging.MaxSizeMB < 0 || g.Logging.MaxBackups < 0 || g.Logging.MaxAgeDays < 0 {
		return fmt.Errorf("logging: rotation limits must not be negative")
	}
	return nil
}

func decodeOwner(raw string) (crypto.Address, error) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(raw))
	if err != nil {
		return crypto.Address{}, fmt.Errorf("config: invalid Owner: %w", err)
	}
	return addr, nil
}
