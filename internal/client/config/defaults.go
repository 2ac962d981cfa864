package config

import (
	"os"
	"path/filepath"

	"github.com/knadh/koanf/providers/confmap"

	"github.com/dmitrijs2005/medkeeper/internal/common"
)

// Defaults returns the built-in configuration as a koanf key map.
func Defaults() map[string]any {
	return map[string]any{
		"server": map[string]any{
			"url":                 "http://127.0.0.1:8080/api",
			"request_timeout":     "15s",
			"recognition_timeout": "45s",
		},
		"subscription": map[string]any{
			"poll_interval": "60s",
			"warn_hours":    common.ExpiryWarningHours,
		},
		"quota": map[string]any{
			"free_medications": common.DefaultFreeMedicationAllowance,
		},
		"capture": map[string]any{
			"camera_command":  "",
			"result_ttl":      "10s",
			"max_image_bytes": 10 << 20,
		},
		"reminders": map[string]any{
			"poll_interval": "30s",
		},
		"session": map[string]any{
			"db_path": defaultDBPath(),
			"secret":  "",
		},
		"language": common.LanguageEnglish,
		"log": map[string]any{
			"level":  "warn",
			"format": "text",
		},
	}
}

func defaultProvider() *confmap.Confmap {
	return confmap.Provider(Defaults(), ".")
}

func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "medkeeper.db"
	}
	return filepath.Join(dir, "medkeeper", "session.db")
}
