package config

import (
	"fmt"
	"strings"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.AI.validate(); err != nil {
		return err
	}
	if err := c.Store.validate(); err != nil {
		return err
	}
	if err := c.Cache.Redis.validate(); err != nil {
		return err
	}
	if err := c.Archive.S3.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	return c.Selection.validate()
}

func errUnknownPreset(modelID, preset string) error {
	return fmt.Errorf("ai.models.%s references unknown preset %q", modelID, preset)
}

func (a *AIConfig) validate() error {
	models, err := a.ResolveModelConfigs()
	if err != nil {
		return err
	}
	if len(models) == 0 {
		return fmt.Errorf("ai.models requires at least one enabled model")
	}
	ids := make(map[string]struct{}, len(models))
	for _, m := range models {
		if _, dup := ids[m.ID]; dup {
			return fmt.Errorf("ai.models has duplicate id %s", m.ID)
		}
		ids[m.ID] = struct{}{}
		if m.Model == "" {
			return fmt.Errorf("ai.models contains entry without model (id=%s)", m.ID)
		}
		if m.APIURL == "" {
			return fmt.Errorf("ai.models.%s missing api_url (can inherit from preset)", m.ID)
		}
	}
	refs := map[string]string{
		"ai.agent_model":     a.AgentModel,
		"ai.debate_model":    a.DebateModel,
		"ai.selection_model": a.SelectionModel,
	}
	for persona, id := range a.PersonaModels {
		refs["ai.persona_models."+persona] = id
	}
	for key, id := range refs {
		id = strings.TrimSpace(id)
		if id == "" {
			return fmt.Errorf("%s cannot be empty", key)
		}
		if _, ok := ids[id]; !ok {
			return fmt.Errorf("%s references unconfigured model id: %s", key, id)
		}
	}
	if a.Temperature < 0 || a.Temperature > 2 {
		return fmt.Errorf("ai.temperature must be in [0,2]")
	}
	if a.MaxRetries < 0 {
		return fmt.Errorf("ai.max_retries must be >= 0")
	}
	return nil
}

// RequireAPIKeys is checked by commands that actually call a model.
func (a *AIConfig) RequireAPIKeys() error {
	models, err := a.ResolveModelConfigs()
	if err != nil {
		return err
	}
	for _, m := range models {
		if m.APIKey == "" {
			return fmt.Errorf("ai.models.%s missing api_key (set OPENROUTER_API_KEY)", m.ID)
		}
	}
	return nil
}

func (s *StoreConfig) validate() error {
	switch s.Driver {
	case "none":
		return nil
	case "sqlite":
		if strings.TrimSpace(s.SqlitePath) == "" {
			return fmt.Errorf("store.sqlite_path cannot be empty")
		}
	case "postgres":
		if strings.TrimSpace(s.PostgresDSN) == "" {
			return fmt.Errorf("store.postgres_dsn cannot be empty (or set DATABASE_URL)")
		}
	default:
		return fmt.Errorf("store.driver only supports sqlite|postgres|none, got %q", s.Driver)
	}
	if s.MaxConns <= 0 {
		return fmt.Errorf("store.max_conns must be > 0")
	}
	return nil
}

func (r *RedisConfig) validate() error {
	if r.Enabled && strings.TrimSpace(r.Addr) == "" {
		return fmt.Errorf("cache.redis enabled but addr is empty")
	}
	if r.DB < 0 {
		return fmt.Errorf("cache.redis.db must be >= 0")
	}
	return nil
}

func (s *S3Config) validate() error {
	if !s.Enabled {
		return nil
	}
	if strings.TrimSpace(s.Bucket) == "" || strings.TrimSpace(s.Region) == "" {
		return fmt.Errorf("archive.s3 enabled but bucket or region is empty")
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	if n.Telegram.Enabled {
		if n.Telegram.BotToken == "" || n.Telegram.ChatID == "" {
			return fmt.Errorf("telegram notification enabled but missing bot_token or chat_id")
		}
	}
	return nil
}

func (s *SelectionConfig) validate() error {
	if strings.TrimSpace(s.BaseURL) == "" {
		return fmt.Errorf("selection.base_url cannot be empty")
	}
	if s.TopN <= 0 {
		return fmt.Errorf("selection.top_n must be > 0")
	}
	if s.CandidateLimit < s.TopN {
		return fmt.Errorf("selection.candidate_limit must be >= selection.top_n")
	}
	return nil
}
