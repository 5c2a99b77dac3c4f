package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
telegram:
  bot_token: "test-token"
backend:
  base_url: "http://localhost:8081"
session:
  path: "data/sessions.db"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Backend.TimeoutSeconds)
	assert.Equal(t, float64(20), cfg.Backend.RateLimitRPS)

	assert.Equal(t, "ROOM-001", cfg.Bot.RoomID)
	assert.Equal(t, 4, cfg.Bot.Floors)
	assert.Equal(t, 50, cfg.Bot.TablesPerFloor)
	assert.Equal(t, 4, cfg.Bot.SeatsPerTable)
	assert.Equal(t, 3, cfg.Bot.MaxDurationHours)
	assert.Equal(t, 36, cfg.Bot.MaxAdvanceHours)
	assert.Equal(t, 60, cfg.Bot.NotifyPollSeconds)
	assert.Equal(t, 30, cfg.Google.SyncIntervalMinutes)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_BOT_TOKEN", "expanded-token")

	cfg, err := Load(writeConfig(t, `
telegram:
  bot_token: "${TEST_BOT_TOKEN}"
backend:
  base_url: "http://localhost:8081"
session:
  path: "data/sessions.db"
`))
	require.NoError(t, err)
	assert.Equal(t, "expanded-token", cfg.Telegram.BotToken)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"MissingToken", `
backend:
  base_url: "http://localhost:8081"
session:
  path: "data/sessions.db"
`},
		{"PlaceholderToken", `
telegram:
  bot_token: "YOUR_BOT_TOKEN_HERE"
backend:
  base_url: "http://localhost:8081"
session:
  path: "data/sessions.db"
`},
		{"MissingBaseURL", `
telegram:
  bot_token: "test-token"
session:
  path: "data/sessions.db"
`},
		{"MissingSessionPath", `
telegram:
  bot_token: "test-token"
backend:
  base_url: "http://localhost:8081"
`},
		{"WrongSeatsPerTable", minimalYAML + `
bot:
  seats_per_table: 6
`},
		{"NegativeMaxDuration", minimalYAML + `
bot:
  seats_per_table: 4
  max_duration_hours: -1
`},
		{"AdvanceShorterThanDuration", minimalYAML + `
bot:
  seats_per_table: 4
  max_duration_hours: 3
  max_advance_hours: 2
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}

func TestValidateRooms(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		assert.NoError(t, ValidateRooms([]Room{
			{ID: "ROOM-001", Name: "Main Reading Room", Floors: 4, TablesPerFloor: 50, SeatsPerTable: 4},
			{ID: "ROOM-002", Name: "Annex"},
		}))
	})

	t.Run("EmptyID", func(t *testing.T) {
		assert.Error(t, ValidateRooms([]Room{{Name: "Nameless"}}))
	})

	t.Run("DuplicateID", func(t *testing.T) {
		assert.Error(t, ValidateRooms([]Room{{ID: "ROOM-001"}, {ID: "ROOM-001"}}))
	})

	t.Run("WrongSeatsPerTable", func(t *testing.T) {
		assert.Error(t, ValidateRooms([]Room{{ID: "ROOM-001", SeatsPerTable: 2}}))
	})
}
