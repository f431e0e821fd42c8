package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads the first .env file found among paths. Variables already
// present in the environment win.
func LoadDotEnv(paths ...string) string {
	if len(paths) == 0 {
		paths = []string{".env", "../.env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err == nil {
			return p
		}
	}
	return ""
}

// applyEnv fills secrets and endpoints from the environment when the files
// leave them empty.
func (c *Config) applyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if key := strings.TrimSpace(getenv("OPENROUTER_API_KEY")); key != "" {
		for name, preset := range c.AI.ProviderPresets {
			if strings.TrimSpace(preset.APIKey) == "" {
				preset.APIKey = key
				c.AI.ProviderPresets[name] = preset
			}
		}
		for i := range c.AI.Models {
			m := &c.AI.Models[i]
			if strings.TrimSpace(m.APIKey) != "" {
				continue
			}
			if m.Preset != "" {
				if p, ok := c.AI.ProviderPresets[m.Preset]; ok && p.APIKey != "" {
					continue
				}
			}
			m.APIKey = key
		}
	}
	if dsn := strings.TrimSpace(getenv("DATABASE_URL")); dsn != "" && c.Store.PostgresDSN == "" {
		c.Store.PostgresDSN = dsn
	}
	if addr := strings.TrimSpace(getenv("REDIS_ADDR")); addr != "" && c.Cache.Redis.Addr == "" {
		c.Cache.Redis.Addr = addr
	}
	if tok := strings.TrimSpace(getenv("TELEGRAM_BOT_TOKEN")); tok != "" && c.Notify.Telegram.BotToken == "" {
		c.Notify.Telegram.BotToken = tok
	}
	if chat := strings.TrimSpace(getenv("TELEGRAM_CHAT_ID")); chat != "" && c.Notify.Telegram.ChatID == "" {
		c.Notify.Telegram.ChatID = chat
	}
}
