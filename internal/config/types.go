package config

import "strings"

// Config 是 Evergreen 的主配置载体。
type Config struct {
	App       AppConfig       `toml:"app"`
	AI        AIConfig        `toml:"ai"`
	Agents    AgentsConfig    `toml:"agents"`
	Store     StoreConfig     `toml:"store"`
	Cache     CacheConfig     `toml:"cache"`
	Archive   ArchiveConfig   `toml:"archive"`
	Notify    NotifyConfig    `toml:"notify"`
	Selection SelectionConfig `toml:"selection"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
	LLMLog   string `toml:"llm_log_path"`
	LLMDump  bool   `toml:"llm_dump_payload"`
}

// AIConfig 描述模型连接以及各阶段使用的模型。
type AIConfig struct {
	ProviderPresets map[string]ModelPreset `toml:"provider_presets"`
	Models          []AIModelConfig        `toml:"models"`

	// AgentModel is the default model for the five persona calls.
	AgentModel     string            `toml:"agent_model"`
	DebateModel    string            `toml:"debate_model"`
	SelectionModel string            `toml:"selection_model"`
	PersonaModels  map[string]string `toml:"persona_models"`

	Temperature            float64 `toml:"temperature"`
	MaxRetries             int     `toml:"max_retries"`
	TimeoutSeconds         int     `toml:"timeout_seconds"`
	BreakerThreshold       int     `toml:"breaker_threshold"`
	BreakerCooldownSeconds int     `toml:"breaker_cooldown_seconds"`
}

// ModelPreset 描述可复用的 API 连接配置。
type ModelPreset struct {
	APIURL     string            `toml:"api_url"`
	APIKey     string            `toml:"api_key"`
	Headers    map[string]string `toml:"headers"`
	ExpectJSON bool              `toml:"expect_json"`
}

// AIModelConfig 代表一个可被引用的模型条目。
type AIModelConfig struct {
	ID       string            `toml:"id"`
	Provider string            `toml:"provider"`
	Preset   string            `toml:"preset"`
	Enabled  bool              `toml:"enabled"`
	APIURL   string            `toml:"api_url"`
	APIKey   string            `toml:"api_key"`
	Model    string            `toml:"model"`
	Headers  map[string]string `toml:"headers"`
	// ExpectJSON 使用指针以区分"显式 false"与"沿用预设值"。
	ExpectJSON *bool `toml:"expect_json"`
}

// ResolvedModelConfig 是合并预设后的最终模型配置。
type ResolvedModelConfig struct {
	ID         string
	Provider   string
	APIURL     string
	APIKey     string
	Model      string
	Headers    map[string]string
	ExpectJSON bool
}

// ResolveModelConfigs merges presets into enabled model entries.
func (a AIConfig) ResolveModelConfigs() ([]ResolvedModelConfig, error) {
	out := make([]ResolvedModelConfig, 0, len(a.Models))
	for _, m := range a.Models {
		if !m.Enabled {
			continue
		}
		r := ResolvedModelConfig{
			ID:       strings.TrimSpace(m.ID),
			Provider: strings.TrimSpace(m.Provider),
			APIURL:   strings.TrimSpace(m.APIURL),
			APIKey:   strings.TrimSpace(m.APIKey),
			Model:    strings.TrimSpace(m.Model),
			Headers:  map[string]string{},
		}
		if name := strings.TrimSpace(m.Preset); name != "" {
			preset, ok := a.ProviderPresets[name]
			if !ok {
				return nil, errUnknownPreset(m.ID, name)
			}
			if r.APIURL == "" {
				r.APIURL = strings.TrimSpace(preset.APIURL)
			}
			if r.APIKey == "" {
				r.APIKey = strings.TrimSpace(preset.APIKey)
			}
			for k, v := range preset.Headers {
				r.Headers[k] = v
			}
			r.ExpectJSON = preset.ExpectJSON
		}
		for k, v := range m.Headers {
			r.Headers[k] = v
		}
		if m.ExpectJSON != nil {
			r.ExpectJSON = *m.ExpectJSON
		}
		if r.ID == "" {
			r.ID = r.Provider
			if r.Model != "" {
				r.ID = r.Provider + ":" + r.Model
			}
		}
		out = append(out, r)
	}
	return out, nil
}

// ModelFor returns the model id for a persona, falling back to AgentModel.
// Keys are matched case-insensitively since viper lowercases map keys.
func (a AIConfig) ModelFor(persona string) string {
	if id := strings.TrimSpace(a.PersonaModels[strings.ToLower(persona)]); id != "" {
		return id
	}
	return a.AgentModel
}

type AgentsConfig struct {
	// InstructionsPath optionally points at a YAML file overriding persona instructions.
	InstructionsPath string `toml:"instructions_path"`
}

type StoreConfig struct {
	Driver         string `toml:"driver"` // sqlite | postgres | none
	SqlitePath     string `toml:"sqlite_path"`
	PostgresDSN    string `toml:"postgres_dsn"`
	MaxConns       int    `toml:"max_conns"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type CacheConfig struct {
	Redis RedisConfig `toml:"redis"`
}

type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	TTLSeconds int    `toml:"ttl_seconds"`
}

type ArchiveConfig struct {
	S3 S3Config `toml:"s3"`
}

type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	Prefix         string `toml:"prefix"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

// SelectionConfig 控制 Polymarket 市场自动选择。
type SelectionConfig struct {
	BaseURL        string `toml:"base_url"`
	TopN           int    `toml:"top_n"`
	CandidateLimit int    `toml:"candidate_limit"`
	LooseLimit     int    `toml:"loose_limit"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
