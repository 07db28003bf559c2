package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
// GatewayEpoch below zero means the deployment does not partition by epoch.
type Config struct {
	GatewayAddr     string
	GatewayPassword string
	BotToken        string
	ChatID          string
	DBHost          string
	DBUser          string
	DBPassword      string
	DBName          string
	GatewayEpoch    int32
	SummaryWindow   time.Duration
	LogLevel        string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GATEWAY_ETL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("gateway-epoch", int32(-1))
	v.SetDefault("summary-window", 24*time.Hour)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		GatewayAddr:     v.GetString("gateway-addr"),
		GatewayPassword: v.GetString("gateway-password"),
		BotToken:        v.GetString("bot-token"),
		ChatID:          v.GetString("chat-id"),
		DBHost:          v.GetString("db-host"),
		DBUser:          v.GetString("db-user"),
		DBPassword:      v.GetString("db-password"),
		DBName:          v.GetString("db-name"),
		GatewayEpoch:    v.GetInt32("gateway-epoch"),
		SummaryWindow:   v.GetDuration("summary-window"),
		LogLevel:        v.GetString("log-level"),
	}

	return cfg, nil
}

// Validate checks that every required value is present.
func (c Config) Validate() error {
	var missing []string
	required := []struct {
		name  string
		value string
	}{
		{"gateway-addr", c.GatewayAddr},
		{"gateway-password", c.GatewayPassword},
		{"bot-token", c.BotToken},
		{"chat-id", c.ChatID},
		{"db-host", c.DBHost},
		{"db-user", c.DBUser},
		{"db-password", c.DBPassword},
		{"db-name", c.DBName},
	}
	for _, r := range required {
		if r.value == "" {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// DatabaseDSN renders the keyword/value connection string for pgx.
func (c Config) DatabaseDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s", c.DBHost, c.DBUser, c.DBPassword, c.DBName)
}

// Epoch returns the gateway epoch as an optional value; nil when the
// deployment does not partition by epoch.
func (c Config) Epoch() *int32 {
	if c.GatewayEpoch < 0 {
		return nil
	}
	epoch := c.GatewayEpoch
	return &epoch
}
