package config

import (
	"strings"
)

// 默认值常量
const (
	defaultAppEnv            = "dev"
	defaultAppLogLevel       = "info"
	defaultAppHTTPAddr       = ":8787"
	defaultAppLLMLogPath     = "data/logs/evergreen-llm.log"
	defaultModelID           = "openrouter"
	defaultModelProvider     = "openrouter"
	defaultModelAPIURL       = "https://openrouter.ai/api/v1"
	defaultModelName         = "google/gemini-2.0-flash-lite-001"
	defaultAITemperature     = 0.7
	defaultAIMaxRetries      = 2
	defaultAITimeout         = 60
	defaultBreakerThreshold  = 5
	defaultBreakerCooldown   = 30
	defaultStoreDriver       = "sqlite"
	defaultStoreSqlitePath   = "data/evergreen.db"
	defaultStoreMaxConns     = 4
	defaultStoreTimeout      = 10
	defaultRedisTTL          = 86400
	defaultS3Prefix          = "decisions"
	defaultSelectionBaseURL  = "https://clob.polymarket.com"
	defaultSelectionTopN     = 1
	defaultSelectionLimit    = 50
	defaultSelectionLoose    = 100
	defaultSelectionTimeout  = 30
	defaultOpenRouterReferer = "https://github.com/evergreen-capital/evergreen"
	defaultOpenRouterTitle   = "Evergreen Capital Agent"
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.AI.applyDefaults(keys)
	c.Store.applyDefaults(keys)
	c.Cache.Redis.applyDefaults(keys)
	c.Archive.S3.applyDefaults(keys)
	c.Selection.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.llm_log_path", &a.LLMLog, defaultAppLLMLogPath),
	)
}

func (a *AIConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	if a.ProviderPresets == nil {
		a.ProviderPresets = make(map[string]ModelPreset)
	}
	if len(a.Models) == 0 {
		expect := true
		a.Models = []AIModelConfig{{
			ID:       defaultModelID,
			Provider: defaultModelProvider,
			Enabled:  true,
			APIURL:   defaultModelAPIURL,
			Model:    defaultModelName,
			Headers: map[string]string{
				"HTTP-Referer": defaultOpenRouterReferer,
				"X-Title":      defaultOpenRouterTitle,
			},
			ExpectJSON: &expect,
		}}
	}
	first := firstEnabledModel(a.Models)
	applyFieldDefaults(keys,
		stringFieldDefault("ai.agent_model", &a.AgentModel, first),
		fieldDefault{
			key:   "ai.temperature",
			need:  func() bool { return a.Temperature <= 0 },
			apply: func() { a.Temperature = defaultAITemperature },
		},
		fieldDefault{
			key:   "ai.max_retries",
			need:  func() bool { return a.MaxRetries == 0 },
			apply: func() { a.MaxRetries = defaultAIMaxRetries },
		},
		fieldDefault{
			key:   "ai.timeout_seconds",
			need:  func() bool { return a.TimeoutSeconds <= 0 },
			apply: func() { a.TimeoutSeconds = defaultAITimeout },
		},
		fieldDefault{
			key:   "ai.breaker_threshold",
			need:  func() bool { return a.BreakerThreshold == 0 },
			apply: func() { a.BreakerThreshold = defaultBreakerThreshold },
		},
		fieldDefault{
			key:   "ai.breaker_cooldown_seconds",
			need:  func() bool { return a.BreakerCooldownSeconds <= 0 },
			apply: func() { a.BreakerCooldownSeconds = defaultBreakerCooldown },
		},
	)
	// debate and selection follow the agent model unless pinned
	if strings.TrimSpace(a.DebateModel) == "" {
		a.DebateModel = a.AgentModel
	}
	if strings.TrimSpace(a.SelectionModel) == "" {
		a.SelectionModel = a.AgentModel
	}
	normalized := make(map[string]string, len(a.PersonaModels))
	for k, v := range a.PersonaModels {
		normalized[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	a.PersonaModels = normalized
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("store.driver", &s.Driver, defaultStoreDriver),
		stringFieldDefault("store.sqlite_path", &s.SqlitePath, defaultStoreSqlitePath),
		fieldDefault{
			key:   "store.max_conns",
			need:  func() bool { return s.MaxConns <= 0 },
			apply: func() { s.MaxConns = defaultStoreMaxConns },
		},
		fieldDefault{
			key:   "store.timeout_seconds",
			need:  func() bool { return s.TimeoutSeconds <= 0 },
			apply: func() { s.TimeoutSeconds = defaultStoreTimeout },
		},
	)
	s.Driver = strings.ToLower(strings.TrimSpace(s.Driver))
}

func (r *RedisConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "cache.redis.ttl_seconds",
			need:  func() bool { return r.TTLSeconds <= 0 },
			apply: func() { r.TTLSeconds = defaultRedisTTL },
		},
	)
}

func (s *S3Config) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("archive.s3.prefix", &s.Prefix, defaultS3Prefix),
	)
}

func (s *SelectionConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("selection.base_url", &s.BaseURL, defaultSelectionBaseURL),
		fieldDefault{
			key:   "selection.top_n",
			need:  func() bool { return s.TopN <= 0 },
			apply: func() { s.TopN = defaultSelectionTopN },
		},
		fieldDefault{
			key:   "selection.candidate_limit",
			need:  func() bool { return s.CandidateLimit <= 0 },
			apply: func() { s.CandidateLimit = defaultSelectionLimit },
		},
		fieldDefault{
			key:   "selection.loose_limit",
			need:  func() bool { return s.LooseLimit <= 0 },
			apply: func() { s.LooseLimit = defaultSelectionLoose },
		},
		fieldDefault{
			key:   "selection.timeout_seconds",
			need:  func() bool { return s.TimeoutSeconds <= 0 },
			apply: func() { s.TimeoutSeconds = defaultSelectionTimeout },
		},
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func firstEnabledModel(models []AIModelConfig) string {
	for _, m := range models {
		if !m.Enabled {
			continue
		}
		if id := strings.TrimSpace(m.ID); id != "" {
			return id
		}
		provider := strings.TrimSpace(m.Provider)
		if model := strings.TrimSpace(m.Model); model != "" {
			return provider + ":" + model
		}
		return provider
	}
	return defaultModelID
}
