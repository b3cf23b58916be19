package config

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	// Host is the listen address.
	Host string `yaml:"host"`

	// Port is the listen port.
	Port int `yaml:"port"`

	// AuthToken guards mutating routes. Empty disables token auth; the
	// server logs a warning in that case. Supply it via {{.AUTH_TOKEN}}
	// expansion rather than a literal.
	AuthToken string `yaml:"auth_token"`

	// AllowedOrigins lists origins allowed for cross-origin requests to
	// the API and the event stream. Empty allows same-origin only.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DefaultServerConfig returns the built-in server settings.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host: "0.0.0.0",
		Port: 8080,
	}
}
