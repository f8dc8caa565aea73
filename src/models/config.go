package models

// MConfig Structure
type MConfig struct {
	Name      string           `yaml:"name"`
	LogLevel  string           `yaml:"log_level"`
	Realtime  MRealtimeConfig  `yaml:"realtime"`
	API       MAPIConfig       `yaml:"api"`
	Session   MSessionConfig   `yaml:"session"`
	Buffer    MBufferConfig    `yaml:"buffer"`
	Storage   MStorageConfig   `yaml:"storage"`
	Network   MNetworkConfig   `yaml:"network"`
	Simulator MSimulatorConfig `yaml:"simulator"`
	Channels  []MChannelConfig `yaml:"channels"`
}

type MRealtimeConfig struct {
	URL                     string `yaml:"url"`
	Reconnect               bool   `yaml:"reconnect"`
	ReconnectDelaySeconds   int    `yaml:"reconnect_delay_seconds"`
	PingIntervalSeconds     int    `yaml:"ping_interval_seconds"`
	HandshakeTimeoutSeconds int    `yaml:"handshake_timeout_seconds"`
}

type MAPIConfig struct {
	BaseURL string `yaml:"base_url"`
}

// MSessionConfig holds the auth credential appended to the socket URL at
// connect time. This core passes it through; the backend validates it.
type MSessionConfig struct {
	Token string `yaml:"token"`
}

type MBufferConfig struct {
	Capacity int `yaml:"capacity"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	RetentionDays      int    `yaml:"retention_days"`
}

type MNetworkConfig struct {
	RequestTimeout int `yaml:"timeout"`
	MaxRetries     int `yaml:"retries"`
}

type MSimulatorConfig struct {
	Host                string   `yaml:"host"`
	Port                int      `yaml:"port"`
	TickIntervalSeconds int      `yaml:"tick_interval_seconds"`
	PortfolioID         string   `yaml:"portfolio_id"`
	AgentRunID          string   `yaml:"agent_run_id"`
	Symbols             []string `yaml:"symbols"`
}

// MChannelConfig names one channel the observer subscribes to on startup.
type MChannelConfig struct {
	Topic    string `yaml:"topic"`
	EntityID string `yaml:"entity_id"`
}
