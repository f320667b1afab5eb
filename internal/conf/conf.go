package conf

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config represents application configuration
type Config struct {
	// Bot identity
	Bot BotConfig

	// Storage configuration
	Data DataConfig

	// Path of the responder seed file (optional)
	RespondersPath string

	// Debug mode
	Debug bool
}

// BotConfig identifies the bot on the gateway
type BotConfig struct {
	ID   string
	Name string
}

// DataConfig contains storage configuration
type DataConfig struct {
	DBPath    string
	Retention time.Duration // history rows older than this are pruned
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	dbPath := os.Getenv("RESPONDER_DB_PATH")
	if dbPath == "" {
		homeDir, _ := os.UserHomeDir()
		dbPath = filepath.Join(homeDir, ".chat-responder", "responder.db")
	}

	// History retention, in days
	retentionDays := 30
	if val := os.Getenv("HISTORY_RETENTION_DAYS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			retentionDays = parsed
		}
	}

	return &Config{
		Bot: BotConfig{
			ID:   os.Getenv("BOT_ID"),
			Name: os.Getenv("BOT_NAME"),
		},
		Data: DataConfig{
			DBPath:    dbPath,
			Retention: time.Duration(retentionDays) * 24 * time.Hour,
		},
		RespondersPath: os.Getenv("RESPONDERS_CONFIG_PATH"),
		Debug:          os.Getenv("DEBUG") == "true",
	}
}
