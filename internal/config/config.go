package config

import "time"

type Config struct {
	Service     *ServiceConfig
	Redis       *RedisConfig
	Postgres    *PostgresConfig
	Twilio      *TwilioConfig
	Worker      *WorkerConfig
	Logger      *LoggerConfig
	Tracer      *TracerConfig
	Relay       *RelayConfig
	RateLimit   *RateLimitConfig
	SecretToken string
	TokenTTL    time.Duration
}

type ServiceConfig struct {
	Name string
	Env  string
	Add  string
	// Storage selects the gateway backend: "postgres" or "memory".
	Storage         string
	ShutdownTimeout time.Duration
}

type RedisConfig struct {
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
	PingTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	Migrate         bool
}

type TwilioConfig struct {
	SID       string
	Token     string
	VerifySID string
}

// Enabled reports whether phone verification credentials are present.
func (t TwilioConfig) Enabled() bool {
	return t.SID != "" && t.Token != "" && t.VerifySID != ""
}

type WorkerConfig struct {
	PresenceQueue int
}

type LoggerConfig struct {
	Level  string
	Format string
}

type TracerConfig struct {
	Address string
}

type RelayConfig struct {
	// BroadcastChatUpdates sends chat-updated to every connection instead of
	// only the chat's participants.
	BroadcastChatUpdates bool
	SendBuffer           int
	ReadLimit            int64
}

type RateLimitConfig struct {
	APILimit    int
	APIWindow   time.Duration
	ChatsLimit  int
	ChatsWindow time.Duration
}
