package config

import (
	"time"

	nativecommon "foodcourt/native/common"
	"foodcourt/native/participants"
)

// OwnerAddress returns the decoded registry owner.
func (c *Config) OwnerAddress() ([20]byte, error) {
	addr, err := decodeOwner(c.Owner)
	if err != nil {
		return [20]byte{}, err
	}
	return addr.Bytes20(), nil
}

// ParticipantsProfile returns the configured registry profile.
func (c *Config) ParticipantsProfile() (participants.Profile, error) {
	return participants.ParseProfile(c.Profile)
}

// Policy returns the configured re-registration policy.
func (c *Config) Policy() (participants.RegistrationPolicy, error) {
	return participants.ParseRegistrationPolicy(c.RegistrationPolicy)
}

// QuotaLimits converts the quota block into the runtime representation.
func (g Global) QuotaLimits() nativecommon.Quota {
	return nativecommon.Quota{
		MaxRequestsPerEpoch: g.Quota.MaxTxPerEpoch,
		EpochSeconds:        g.Quota.EpochSeconds,
	}
}

// PauseSet builds the runtime pause view from the configured flags.
func (g Global) PauseSet() *nativecommon.PauseSet {
	set := nativecommon.NewPauseSet()
	set.Set(participants.ModuleName, g.Pauses.Participants)
	return set
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func (c *Config) ReadHeaderTimeout() time.Duration { return seconds(c.RPCReadHeaderTimeout) }
func (c *Config) ReadTimeout() time.Duration       { return seconds(c.RPCReadTimeout) }
func (c *Config) WriteTimeout() time.Duration      { return seconds(c.RPCWriteTimeout) }
func (c *Config) IdleTimeout() time.Duration       { return seconds(c.RPCIdleTimeout) }
