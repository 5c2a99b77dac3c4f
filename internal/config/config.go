package config

import (
	"errors"
	"fmt"
	"os"

	"libseat/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Backend    BackendConfig    `yaml:"backend"`
	Session    SessionConfig    `yaml:"session"`
	Redis      RedisConfig      `yaml:"redis"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Ops        OpsConfig        `yaml:"ops"`
	Exports    ExportConfig     `yaml:"exports"`
	Google     GoogleConfig     `yaml:"google"`
	Bot        BotConfig        `yaml:"bot"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	Debug    bool   `yaml:"debug"`
}

// BackendConfig points at the remote reservation service. All business
// logic (conflicts, scoring, streaks, notification fan-out) lives there.
type BackendConfig struct {
	BaseURL        string  `yaml:"base_url"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
	CacheTTL       int     `yaml:"cache_ttl_seconds"`
}

type SessionConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type OpsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type GoogleConfig struct {
	CredentialsFile          string `yaml:"credentials_file"`
	LeaderboardSpreadsheetID string `yaml:"leaderboard_spreadsheet_id"`
	SyncIntervalMinutes      int    `yaml:"sync_interval_minutes"`
}

type BotConfig struct {
	RoomID            string `yaml:"room_id"`
	Floors            int    `yaml:"floors"`
	TablesPerFloor    int    `yaml:"tables_per_floor"`
	SeatsPerTable     int    `yaml:"seats_per_table"`
	MaxDurationHours  int    `yaml:"max_duration_hours"`
	MaxAdvanceHours   int    `yaml:"max_advance_hours"`
	PaginationSize    int    `yaml:"pagination_size"`
	RateLimitMessages int    `yaml:"rate_limit_messages"`
	RateLimitWindow   int    `yaml:"rate_limit_window"`
	NotifyPollSeconds int    `yaml:"notify_poll_seconds"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; the YAML may reference its variables.
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" || c.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		return errors.New("telegram bot token is required")
	}

	if c.Backend.BaseURL == "" {
		return errors.New("backend base_url is required")
	}

	if c.Session.Path == "" {
		return errors.New("session database path is required")
	}

	if c.Bot.SeatsPerTable != 4 {
		// The floor map renders tables of four; other layouts are not drawn.
		return fmt.Errorf("seats_per_table must be 4, got %d", c.Bot.SeatsPerTable)
	}

	if c.Bot.MaxDurationHours < 1 {
		return fmt.Errorf("max_duration_hours must be positive, got %d", c.Bot.MaxDurationHours)
	}
	if c.Bot.MaxAdvanceHours < c.Bot.MaxDurationHours {
		return fmt.Errorf("max_advance_hours %d is shorter than max_duration_hours %d",
			c.Bot.MaxAdvanceHours, c.Bot.MaxDurationHours)
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Backend.TimeoutSeconds == 0 {
		c.Backend.TimeoutSeconds = 10
	}
	if c.Backend.RateLimitRPS == 0 {
		c.Backend.RateLimitRPS = 20
	}
	if c.Backend.RateLimitBurst == 0 {
		c.Backend.RateLimitBurst = 40
	}

	if c.Ops.Enabled && c.Ops.Port == 0 {
		c.Ops.Port = 8080
	}

	// Bot defaults
	if c.Bot.RoomID == "" {
		c.Bot.RoomID = models.DefaultRoomID
	}
	if c.Bot.Floors == 0 {
		c.Bot.Floors = 4
	}
	if c.Bot.TablesPerFloor == 0 {
		c.Bot.TablesPerFloor = 50
	}
	if c.Bot.SeatsPerTable == 0 {
		c.Bot.SeatsPerTable = 4
	}
	if c.Bot.MaxDurationHours == 0 {
		c.Bot.MaxDurationHours = models.MaxDurationHours
	}
	if c.Bot.MaxAdvanceHours == 0 {
		c.Bot.MaxAdvanceHours = models.MaxAdvanceHours
	}
	if c.Bot.PaginationSize == 0 {
		c.Bot.PaginationSize = models.DefaultPaginationSize
	}
	if c.Bot.RateLimitMessages == 0 {
		c.Bot.RateLimitMessages = models.RateLimitMessages
	}
	if c.Bot.RateLimitWindow == 0 {
		c.Bot.RateLimitWindow = models.RateLimitWindow
	}
	if c.Bot.NotifyPollSeconds == 0 {
		c.Bot.NotifyPollSeconds = 60
	}
	if c.Google.SyncIntervalMinutes == 0 {
		c.Google.SyncIntervalMinutes = 30
	}
}

// Room describes a physical area in the rooms layout file.
type Room struct {
	ID             string `yaml:"id"`
	Name           string `yaml:"name"`
	Floors         int    `yaml:"floors"`
	TablesPerFloor int    `yaml:"tables_per_floor"`
	SeatsPerTable  int    `yaml:"seats_per_table"`
}

// ValidateRooms rejects duplicate or malformed room definitions.
func ValidateRooms(rooms []Room) error {
	seen := make(map[string]bool)
	for _, room := range rooms {
		if room.ID == "" {
			return fmt.Errorf("room %q has empty id", room.Name)
		}
		if seen[room.ID] {
			return fmt.Errorf("duplicate room id found: %s", room.ID)
		}
		seen[room.ID] = true
		if room.SeatsPerTable != 0 && room.SeatsPerTable != 4 {
			return fmt.Errorf("room %s: seats_per_table must be 4", room.ID)
		}
	}
	return nil
}
