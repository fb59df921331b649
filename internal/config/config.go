// Package config loads and validates the TOML application configuration.
// The file is parsed once at startup into a typed Config; plugin tables
// keep their plugin-specific keys in an Options map with typed accessors.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix is the prefix for environment variable overrides of
// top-level configuration keys.
const EnvPrefix = "NEWSLOOKOUT_"

// Plugin type identifiers.
const (
	TypeRetriever = "retriever"
	TypeProcessor = "data_processor"
)

// DefaultCompletedURLsDatafile is the completion store path used when
// the configuration does not name one.
const DefaultCompletedURLsDatafile = "newslookout_urls.db"

// DefaultCompletionBatchSize is how many terminal documents are buffered
// before a completion-store flush.
const DefaultCompletionBatchSize = 100

// Default prompt templates. Each can be overridden per run in the
// configuration file or via environment variables.
const (
	DefaultSystemContext = "You are an expert analyst of financial news and regulatory documents. " +
		"Respond only with the requested content, without preamble."

	DefaultSummaryPartContext = "Summarise the following part of a document in three sentences or less:"

	DefaultInsightsPartContext = "List the most important insights from the following part of a document, one per line:"

	DefaultSummaryExecContext = "Write a one-paragraph executive summary of the document from these part summaries:"

	DefaultActionsExecContext = "List the actions required of the recipients of this document, based on these part summaries:"
)

// Config is the application configuration.
type Config struct {
	DataDir               string `toml:"data_dir"`
	CompletedURLsDatafile string `toml:"completed_urls_datafile"`
	CompletionBatchSize   int    `toml:"completion_batch_size"`

	SummaryPartContext  string `toml:"summary_part_context"`
	InsightsPartContext string `toml:"insights_part_context"`
	SummaryExecContext  string `toml:"summary_exec_context"`
	ActionsExecContext  string `toml:"actions_exec_context"`
	SystemContext       string `toml:"system_context"`

	Plugins []Plugin `toml:"-"`
}

// Plugin describes one configured stage: a retriever or a processor.
type Plugin struct {
	// Name is the plugin identifier resolved through the stage registry.
	Name string

	// Type is TypeRetriever or TypeProcessor.
	Type string

	// Enabled gates whether the stage is instantiated at all.
	Enabled bool

	// Priority orders processors: numerically smallest runs first.
	// Ignored for retrievers.
	Priority int

	// Order is the position within the configuration file, used as the
	// stable tie-break for equal priorities.
	Order int

	// Options holds the plugin-specific keys from the plugin table.
	Options Options
}

// rawConfig mirrors the TOML file shape before plugin tables are
// split into known and plugin-specific keys.
type rawConfig struct {
	DataDir               string `toml:"data_dir"`
	CompletedURLsDatafile string `toml:"completed_urls_datafile"`
	CompletionBatchSize   int    `toml:"completion_batch_size"`

	SummaryPartContext  string `toml:"summary_part_context"`
	InsightsPartContext string `toml:"insights_part_context"`
	SummaryExecContext  string `toml:"summary_exec_context"`
	ActionsExecContext  string `toml:"actions_exec_context"`
	SystemContext       string `toml:"system_context"`

	Plugins []map[string]any `toml:"plugins"`
}

// Load reads, parses and validates the configuration file.
// Parse and validation failures are fatal startup errors.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a Config from raw TOML bytes.
func Parse(data []byte) (*Config, error) {
	var raw rawConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg := &Config{
		DataDir:               raw.DataDir,
		CompletedURLsDatafile: raw.CompletedURLsDatafile,
		CompletionBatchSize:   raw.CompletionBatchSize,
		SummaryPartContext:    raw.SummaryPartContext,
		InsightsPartContext:   raw.InsightsPartContext,
		SummaryExecContext:    raw.SummaryExecContext,
		ActionsExecContext:    raw.ActionsExecContext,
		SystemContext:         raw.SystemContext,
	}

	for i, table := range raw.Plugins {
		plugin, err := parsePlugin(table, i)
		if err != nil {
			return nil, err
		}
		cfg.Plugins = append(cfg.Plugins, plugin)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()
	return cfg, nil
}

// parsePlugin extracts the common descriptor keys from one plugin table
// and keeps the rest as plugin-local options.
func parsePlugin(table map[string]any, order int) (Plugin, error) {
	opts := Options{}
	plugin := Plugin{Enabled: true, Order: order, Options: opts}

	for key, value := range table {
		switch key {
		case "name":
			name, ok := value.(string)
			if !ok || name == "" {
				return plugin, fmt.Errorf("plugin %d: name must be a non-empty string", order)
			}
			plugin.Name = name
		case "type":
			typ, ok := value.(string)
			if !ok {
				return plugin, fmt.Errorf("plugin %d: type must be a string", order)
			}
			if typ != TypeRetriever && typ != TypeProcessor {
				return plugin, fmt.Errorf("plugin %d: unknown type %q", order, typ)
			}
			plugin.Type = typ
		case "enabled":
			enabled, ok := value.(bool)
			if !ok {
				return plugin, fmt.Errorf("plugin %d: enabled must be a bool", order)
			}
			plugin.Enabled = enabled
		case "priority":
			plugin.Priority = toInt(value)
		default:
			opts[key] = value
		}
	}

	if plugin.Name == "" {
		return plugin, fmt.Errorf("plugin %d: missing name", order)
	}
	if plugin.Type == "" {
		return plugin, fmt.Errorf("plugin %s: missing type", plugin.Name)
	}
	return plugin, nil
}

// applyEnvOverrides replaces top-level keys with NEWSLOOKOUT_-prefixed
// environment values when present.
func (c *Config) applyEnvOverrides() {
	overrides := map[string]*string{
		"data_dir":                &c.DataDir,
		"completed_urls_datafile": &c.CompletedURLsDatafile,
		"summary_part_context":    &c.SummaryPartContext,
		"insights_part_context":   &c.InsightsPartContext,
		"summary_exec_context":    &c.SummaryExecContext,
		"actions_exec_context":    &c.ActionsExecContext,
		"system_context":          &c.SystemContext,
	}
	for key, field := range overrides {
		if v, ok := os.LookupEnv(EnvPrefix + strings.ToUpper(key)); ok {
			*field = v
		}
	}
	if v, ok := os.LookupEnv(EnvPrefix + "COMPLETION_BATCH_SIZE"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.CompletionBatchSize = n
		}
	}
}

// applyDefaults fills unset keys with their documented defaults.
// A data_dir that is missing or not a directory falls back to the
// working directory.
func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "."
	} else if info, err := os.Stat(c.DataDir); err != nil || !info.IsDir() {
		c.DataDir = "."
	}
	if c.CompletedURLsDatafile == "" {
		c.CompletedURLsDatafile = DefaultCompletedURLsDatafile
	}
	if c.CompletionBatchSize <= 0 {
		c.CompletionBatchSize = DefaultCompletionBatchSize
	}
	if c.SystemContext == "" {
		c.SystemContext = DefaultSystemContext
	}
	if c.SummaryPartContext == "" {
		c.SummaryPartContext = DefaultSummaryPartContext
	}
	if c.InsightsPartContext == "" {
		c.InsightsPartContext = DefaultInsightsPartContext
	}
	if c.SummaryExecContext == "" {
		c.SummaryExecContext = DefaultSummaryExecContext
	}
	if c.ActionsExecContext == "" {
		c.ActionsExecContext = DefaultActionsExecContext
	}
}

// Retrievers returns the enabled retriever plugins in configuration order.
func (c *Config) Retrievers() []Plugin {
	var out []Plugin
	for _, p := range c.Plugins {
		if p.Enabled && p.Type == TypeRetriever {
			out = append(out, p)
		}
	}
	return out
}

// Processors returns the enabled processor plugins in configuration order.
// The orchestrator sorts them by priority before wiring the chain.
func (c *Config) Processors() []Plugin {
	var out []Plugin
	for _, p := range c.Plugins {
		if p.Enabled && p.Type == TypeProcessor {
			out = append(out, p)
		}
	}
	return out
}
