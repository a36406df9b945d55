package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"foodcourt/crypto"

	"github.com/BurntSushi/toml"
)

// KeyPassphraseEnv names the environment variable holding the owner keystore
// passphrase.
const KeyPassphraseEnv = "FOODCOURT_KEY_PASS"

// EnvVar overrides Config.Env when set.
const EnvVar = "FOODCOURT_ENV"

type Config struct {
	RPCAddress         string `toml:"RPCAddress"`
	DataDir            string `toml:"DataDir"`
	Env                string `toml:"Env"`
	ChainID            uint64 `toml:"ChainID"`
	Owner              string `toml:"Owner"`
	OwnerKeystorePath  string `toml:"OwnerKeystorePath"`
	Profile            string `toml:"Profile"`
	RegistrationPolicy string `toml:"RegistrationPolicy"`
	EmitMutationEvents bool   `toml:"EmitMutationEvents"`
	EventHistory       int    `toml:"EventHistory"`

	RPCReadHeaderTimeout int `toml:"RPCReadHeaderTimeout"`
	RPCReadTimeout       int `toml:"RPCReadTimeout"`
	RPCWriteTimeout      int `toml:"RPCWriteTimeout"`
	RPCIdleTimeout       int `toml:"RPCIdleTimeout"`

	Global Global `toml:"global"`
}

// Load loads the configuration from the given path. A missing file is replaced
// by a default configuration whose owner key is generated into a keystore next
// to it.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
	}

	cfg.applyDefaults()
	if env := strings.TrimSpace(os.Getenv(EnvVar)); env != "" {
		cfg.Env = env
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := defaults()
	if strings.TrimSpace(c.RPCAddress) == "" {
		c.RPCAddress = def.RPCAddress
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = def.DataDir
	}
	if strings.TrimSpace(c.Env) == "" {
		c.Env = def.Env
	}
	if c.ChainID == 0 {
		c.ChainID = def.ChainID
	}
	if strings.TrimSpace(c.Profile) == "" {
		c.Profile = def.Profile
	}
	if strings.TrimSpace(c.RegistrationPolicy) == "" {
		c.RegistrationPolicy = def.RegistrationPolicy
	}
	if c.EventHistory == 0 {
		c.EventHistory = def.EventHistory
	}
	if c.RPCReadHeaderTimeout == 0 {
		c.RPCReadHeaderTimeout = def.RPCReadHeaderTimeout
	}
	if c.RPCReadTimeout == 0 {
		c.RPCReadTimeout = def.RPCReadTimeout
	}
	if c.RPCWriteTimeout == 0 {
		c.RPCWriteTimeout = def.RPCWriteTimeout
	}
	if c.RPCIdleTimeout == 0 {
		c.RPCIdleTimeout = def.RPCIdleTimeout
	}
	if c.Global.RateLimit.RequestsPerSecond == 0 && c.Global.RateLimit.Burst == 0 {
		c.Global.RateLimit = def.Global.RateLimit
	}
	if strings.TrimSpace(c.Global.Logging.Level) == "" {
		c.Global.Logging.Level = def.Global.Logging.Level
	}
}

func defaults() Config {
	return Config{
		RPCAddress:           "127.0.0.1:8545",
		DataDir:              "./foodcourt-data",
		Env:                  "dev",
		ChainID:              1001,
		Profile:              "basic",
		RegistrationPolicy:   "overwrite",
		EventHistory:         2048,
		RPCReadHeaderTimeout: 5,
		RPCReadTimeout:       15,
		RPCWriteTimeout:      15,
		RPCIdleTimeout:       60,
		Global: Global{
			RateLimit: RateLimit{RequestsPerSecond: 20, Burst: 40},
			Logging:   Logging{Level: "info", MaxSizeMB: 100, MaxBackups: 5, MaxAgeDays: 28},
		},
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	keystorePath := defaultKeystorePath(path)
	if err := crypto.SaveToKeystore(keystorePath, key, os.Getenv(KeyPassphraseEnv)); err != nil {
		return nil, err
	}

	cfg := defaults()
	cfg.Owner = key.PubKey().Address().String()
	cfg.OwnerKeystorePath = keystorePath

	if err := persist(path, &cfg); err != nil {
		return nil, err
	}
	if env := strings.TrimSpace(os.Getenv(EnvVar)); env != "" {
		cfg.Env = env
	}
	return &cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "owner.keystore")
}
