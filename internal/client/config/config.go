package config

import "time"

// Config holds runtime settings for the library admin CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the backend gRPC endpoint.
//   - RequestTimeout: deadline applied to every command.
//   - Login: holder login used by the login command; prompted for when empty.
//   - AccessToken, RefreshToken: credential pair printed by a previous login.
type Config struct {
	ServerEndpointAddr string
	RequestTimeout     time.Duration
	Login              string
	AccessToken        string
	RefreshToken       string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.RequestTimeout = 10 * time.Second
	c.Login = ""
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
