package model

import "time"

// Config is the complete scriptor configuration. It is built explicitly
// (defaults, then config file, then env, then flags) and handed to each
// component at construction time; nothing reads it as ambient state.
type Config struct {
	LLM         LLMConfig         `yaml:"llm"`
	HTTP        HTTPConfig        `yaml:"http"`
	Scrape      ScrapeConfig      `yaml:"scrape"`
	Generation  GenerationConfig  `yaml:"generation"`
	Store       StoreConfig       `yaml:"store"`
	Cache       CacheConfig       `yaml:"cache"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Output      OutputConfig      `yaml:"output"`
}

// LLMConfig configures the language-model provider.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // openai, anthropic, ollama; empty disables model-assisted paths
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key,omitempty"` // Prefer OPENAI_API_KEY / ANTHROPIC_API_KEY env vars
	BaseURL     string  `yaml:"base_url,omitempty"`
	Timeout     int     `yaml:"timeout"` // seconds
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`

	HTTPProxy  string `yaml:"http_proxy,omitempty"`
	HTTPSProxy string `yaml:"https_proxy,omitempty"`
	NoProxy    string `yaml:"no_proxy,omitempty"`
}

// HTTPConfig configures outbound HTTP for web extraction.
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	UserAgent    string        `yaml:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	InsecureTLS  bool          `yaml:"insecure_tls"`

	HTTPProxy  string `yaml:"http_proxy,omitempty"`
	HTTPSProxy string `yaml:"https_proxy,omitempty"`
	NoProxy    string `yaml:"no_proxy,omitempty"`
}

// ScrapeConfig configures web-content extraction and summarization.
type ScrapeConfig struct {
	SummaryWords      int     `yaml:"summary_words"` // Target word budget for extracted summaries
	RespectRobots     bool    `yaml:"respect_robots"`
	RequestsPerSecond float64 `yaml:"requests_per_second"` // Per-domain rate limit
	Burst             int     `yaml:"burst"`
}

// GenerationConfig holds the soft constraints applied to generated text.
type GenerationConfig struct {
	WordTolerance   float64       `yaml:"word_tolerance"`   // ±fraction of the original span's word count
	MaxRetries      int           `yaml:"max_retries"`      // Extra attempts after the first, both for failures and tolerance misses
	RetryDelay      time.Duration `yaml:"retry_delay"`      // Fixed delay between attempts; no jitter, calls are interactive
	ContextRadius   int           `yaml:"context_radius"`   // Bytes of surrounding context shown to the model; 0 means full document
	ArticleMinWords int           `yaml:"article_min_words"`
	ArticleMaxWords int           `yaml:"article_max_words"`
	MinCitations    int           `yaml:"min_citations"`
	MaxCitations    int           `yaml:"max_citations"`
}

// StoreConfig configures the document store.
type StoreConfig struct {
	Path           string `yaml:"path"` // SQLite database path
	EmbeddingModel string `yaml:"embedding_model"`
}

// CacheConfig configures caching of extraction results.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Dir       string        `yaml:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl"`
}

// ConcurrencyConfig bounds parallelism for batch operations.
// Individual transactions are always strictly sequential.
type ConcurrencyConfig struct {
	Workers int `yaml:"workers"`
}

// OutputConfig controls CLI output behavior.
type OutputConfig struct {
	Verbose bool `yaml:"verbose"`
	JSON    bool `yaml:"json"`
}

// DefaultConfig returns sensible defaults. Word-count targets and audio
// limits follow the interactive product defaults; timeouts assume
// user-triggered, not background, operation.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "",
			Model:       "",
			Timeout:     30,
			MaxTokens:   1024,
			Temperature: 0.4,
		},
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "Scriptor/0.2 (+https://github.com/scriptorium/scriptor)",
			MaxBodyBytes: 2_000_000,
		},
		Scrape: ScrapeConfig{
			SummaryWords:      150,
			RespectRobots:     true,
			RequestsPerSecond: 1,
			Burst:             3,
		},
		Generation: GenerationConfig{
			WordTolerance:   0.2,
			MaxRetries:      2,
			RetryDelay:      2 * time.Second,
			ContextRadius:   2000,
			ArticleMinWords: 150,
			ArticleMaxWords: 200,
			MinCitations:    2,
			MaxCitations:    5,
		},
		Store: StoreConfig{
			Path:           "", // Resolved to ~/.scriptor/documents.db by the CLI
			EmbeddingModel: "text-embedding-3-small",
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       "", // Resolved to ~/.scriptor/cache by the CLI
			MemoryTTL: 15 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
	}
}
