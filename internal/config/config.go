package config

import (
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Push      PushConfig
	Mode      ModeConfig
	Exchanges map[string]ExchangeConfig
}

// ServerConfig defines the observer-facing HTTP listener.
type ServerConfig struct {
	Port int
}

// RedisConfig defines the bus connection settings.
type RedisConfig struct {
	Host string
	Port int
}

// Addr returns the host:port address of the bus.
func (r RedisConfig) Addr() string {
	return r.Host + ":" + strconv.Itoa(r.Port)
}

// PushConfig defines the downstream push channel endpoint.
type PushConfig struct {
	Address string
}

// ModeConfig selects between live venue adapters and the simulation
// engine. Exactly one of the two runs.
type ModeConfig struct {
	Simulate bool
}

// ExchangeConfig defines settings for a specific venue.
type ExchangeConfig struct {
	WSURL string `mapstructure:"ws_url"`
	Pair  string
}

// LoadConfig reads configuration from file or environment variables.
// Every knob has a default, so a missing config file is not an error.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("server.port", 3000)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("push.address", "tcp://python:5555")
	viper.SetDefault("mode.simulate", true)
	viper.SetDefault("exchanges.binance.ws_url", "wss://data-stream.binance.vision:443/ws/btcusdt@bookTicker")
	viper.SetDefault("exchanges.binance.pair", "BTC/USDT")
	viper.SetDefault("exchanges.kraken.ws_url", "wss://ws.kraken.com")
	viper.SetDefault("exchanges.kraken.pair", "XBT/USDT")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err = viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return
		}
		err = nil
	}

	err = viper.Unmarshal(&config)
	return
}
