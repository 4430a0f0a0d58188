package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/scriptorium/scriptor/internal/cache"
	"github.com/scriptorium/scriptor/internal/llm"
	"github.com/scriptorium/scriptor/internal/model"
	"github.com/scriptorium/scriptor/internal/scrape"
	"github.com/scriptorium/scriptor/internal/store"
)

// buildConfig assembles the effective configuration: defaults, then the
// config file, then environment variables. Per-command flags override
// fields afterwards.
func buildConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()

	if path := viper.ConfigFileUsed(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// Environment overrides (SCRIPTOR_LLM_PROVIDER, SCRIPTOR_LLM_MODEL, ...)
	if v := viper.GetString("llm_provider"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := viper.GetString("llm_model"); v != "" {
		cfg.LLM.Model = v
	}
	if v := viper.GetString("store_path"); v != "" {
		cfg.Store.Path = v
	}

	home, err := scriptorDir()
	if err != nil {
		return nil, err
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = filepath.Join(home, "documents.db")
	}
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = filepath.Join(home, "cache")
	}

	cfg.Output.Verbose = cfg.Output.Verbose || verbose
	cfg.Output.JSON = cfg.Output.JSON || jsonOut
	return cfg, nil
}

// scriptorDir returns ~/.scriptor, creating it if needed.
func scriptorDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("find home directory: %w", err)
	}
	dir := filepath.Join(home, ".scriptor")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	return dir, nil
}

// resolveAPIKey fills in the provider API key from the environment when
// the config does not carry one.
func resolveAPIKey(cfg *model.Config) error {
	if cfg.LLM.APIKey != "" {
		return nil
	}
	switch strings.ToLower(cfg.LLM.Provider) {
	case "openai":
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case "anthropic", "claude":
		cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
	case "ollama":
		// Ollama doesn't need an API key
		if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" && cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = baseURL
		}
	}
	return nil
}

// newProvider builds the configured LLM provider, resolving the API key
// from the environment. Returns an error when no provider is set:
// every top-level command needs a model.
func newProvider(cfg *model.Config) (llm.Provider, error) {
	if cfg.LLM.Provider == "" {
		return nil, fmt.Errorf("no LLM provider configured (set llm.provider or use --provider)")
	}
	if err := resolveAPIKey(cfg); err != nil {
		return nil, err
	}
	return llm.NewProvider(llm.ConfigFromModel(cfg.LLM, cfg.Store.EmbeddingModel))
}

// newCache builds the extraction cache per config; nil when disabled.
func newCache(cfg *model.Config) cache.Cache {
	if !cfg.Cache.Enabled {
		return nil
	}
	return cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
}

// newExtractor builds the web extractor with its cache.
func newExtractor(cfg *model.Config, provider llm.Provider) *scrape.Extractor {
	return scrape.NewExtractor(cfg, provider, newCache(cfg))
}

// openStore opens the document store; the embedder is optional and only
// present when the provider supports embeddings.
func openStore(cfg *model.Config, provider llm.Provider) (*store.Store, error) {
	var embedder llm.Embedder
	if e, ok := provider.(llm.Embedder); ok {
		embedder = e
	}
	return store.Open(cfg.Store.Path, embedder)
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printCitations renders a citation list in the canonical format.
func printCitations(citations []model.Citation) {
	for _, c := range citations {
		fmt.Printf("[%d] %s - %s\n", c.Index, c.Label, c.URL)
	}
}

// printWarnings writes warnings to stderr so stdout stays clean output.
func printWarnings(warnings []string) {
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "⚠ %s\n", w)
	}
}
