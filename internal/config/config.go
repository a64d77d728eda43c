package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Redis      RedisConfig
	JWT        JWTConfig
	RateLimit  RateLimitConfig
	Nova       NovaConfig
	Generation GenerationConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	GeneratePerHour int
	RedoPerHour     int
}

type NovaConfig struct {
	BaseURL string
	APIKey  string
	Timeout int // seconds
}

type GenerationConfig struct {
	Concurrency int // simultaneous jobs per run
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	_ = viper.BindEnv("nova.base_url", "NOVA_BASE_URL")
	_ = viper.BindEnv("nova.api_key", "NOVA_API_KEY")
	_ = viper.BindEnv("nova.timeout", "NOVA_TIMEOUT")
	_ = viper.BindEnv("generation.concurrency", "GENERATION_CONCURRENCY")

	// Defaults
	viper.SetDefault("server.port", "3000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("ratelimit.generate_per_hour", 10)
	viper.SetDefault("ratelimit.redo_per_hour", 30)
	viper.SetDefault("nova.base_url", "https://api.novavision.dev")
	viper.SetDefault("nova.timeout", 120)
	viper.SetDefault("generation.concurrency", 4)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
			Env:  viper.GetString("server.env"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		RateLimit: RateLimitConfig{
			GeneratePerHour: viper.GetInt("ratelimit.generate_per_hour"),
			RedoPerHour:     viper.GetInt("ratelimit.redo_per_hour"),
		},
		Nova: NovaConfig{
			BaseURL: viper.GetString("nova.base_url"),
			APIKey:  viper.GetString("nova.api_key"),
			Timeout: viper.GetInt("nova.timeout"),
		},
		Generation: GenerationConfig{
			Concurrency: viper.GetInt("generation.concurrency"),
		},
	}

	return cfg, nil
}
