// Package config loads jsonpaginate settings from a TOML file and
// JSONPAGINATE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/Sternrassler/jsonpagination/pkg/logging"
	"github.com/Sternrassler/jsonpagination/pkg/output"
	"github.com/Sternrassler/jsonpagination/pkg/paginator"
	"github.com/Sternrassler/jsonpagination/pkg/transport"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "JSONPAGINATE_"

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the file and environment configuration of a download.
type Config struct {
	Source struct {
		URL       string            `toml:"url"`
		PageParam string            `toml:"page_param"`
		PerPage   int               `toml:"per_page"`
		Params    map[string]string `toml:"params"`
		Headers   map[string]string `toml:"headers"`
	} `toml:"source"`

	Auth struct {
		LoginURL      string `toml:"login_url"`
		Username      string `toml:"username"`
		Password      string `toml:"password"`
		Token         string `toml:"token"`
		UsernameField string `toml:"username_field"`
		PasswordField string `toml:"password_field"`
		TokenField    string `toml:"token_field"`
	} `toml:"auth"`

	// Fields are dotted paths into each page body.
	Fields struct {
		CurrentPage string `toml:"current_page"`
		PerPage     string `toml:"per_page"`
		TotalCount  string `toml:"total_count"`
		Data        string `toml:"data"`
	} `toml:"fields"`

	Fetch struct {
		MaxThreads         int    `toml:"max_threads"`
		OnePageOnly        bool   `toml:"one_page_only"`
		Timeout            string `toml:"timeout"`
		InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
		UserAgent          string `toml:"user_agent"`
		RateLimit          int    `toml:"rate_limit"`
		RatePeriod         string `toml:"rate_period"`
	} `toml:"fetch"`

	Output struct {
		Path        string `toml:"path"`
		Format      string `toml:"format"`
		Compression string `toml:"compression"`
		Indent      bool   `toml:"indent"`
		Flatten     bool   `toml:"flatten"`
		Separator   string `toml:"separator"`
	} `toml:"output"`

	// Redis, when URL is set, shares the API's rate limit budget between processes.
	Redis struct {
		URL string `toml:"url"`
	} `toml:"redis"`

	Log struct {
		Level  string `toml:"level"`
		Pretty bool   `toml:"pretty"`
	} `toml:"log"`

	Metrics struct {
		Addr string `toml:"addr"`
	} `toml:"metrics"`
}

// Default returns a configuration with every default filled in except the URL.
func Default() *Config {
	cfg := &Config{}
	cfg.Source.PageParam = paginator.DefaultPageParam
	cfg.Auth.UsernameField = paginator.DefaultUsernameField
	cfg.Auth.PasswordField = paginator.DefaultPasswordField
	cfg.Auth.TokenField = paginator.DefaultTokenField
	cfg.Fields.CurrentPage = paginator.DefaultCurrentPageField
	cfg.Fields.PerPage = paginator.DefaultPerPageField
	cfg.Fields.TotalCount = paginator.DefaultTotalCountField
	cfg.Fields.Data = paginator.DefaultDataField
	cfg.Fetch.MaxThreads = paginator.DefaultMaxThreads
	cfg.Fetch.Timeout = "60s"
	cfg.Fetch.UserAgent = transport.DefaultConfig().UserAgent
	cfg.Fetch.RatePeriod = "1s"
	cfg.Output.Format = string(output.FormatJSON)
	cfg.Output.Compression = string(output.CompressionNone)
	cfg.Output.Separator = "."
	cfg.Log.Level = string(logging.LevelInfo)
	return cfg
}

// Load reads path over the defaults. Keys absent from the file keep their
// default; fields.data = "" is kept since it selects the whole body.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Encode writes cfg as TOML.
func (c *Config) Encode(w io.Writer) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	return enc.Encode(c)
}

// ApplyEnv overrides fields from JSONPAGINATE_* environment variables.
func (c *Config) ApplyEnv() error {
	strs := map[string]*string{
		"URL":          &c.Source.URL,
		"LOGIN_URL":    &c.Auth.LoginURL,
		"USERNAME":     &c.Auth.Username,
		"PASSWORD":     &c.Auth.Password,
		"TOKEN":        &c.Auth.Token,
		"DATA_FIELD":   &c.Fields.Data,
		"TIMEOUT":      &c.Fetch.Timeout,
		"USER_AGENT":   &c.Fetch.UserAgent,
		"RATE_PERIOD":  &c.Fetch.RatePeriod,
		"OUTPUT":       &c.Output.Path,
		"FORMAT":       &c.Output.Format,
		"COMPRESSION":  &c.Output.Compression,
		"REDIS_URL":    &c.Redis.URL,
		"LOG_LEVEL":    &c.Log.Level,
		"METRICS_ADDR": &c.Metrics.Addr,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"MAX_THREADS": &c.Fetch.MaxThreads,
		"PER_PAGE":    &c.Source.PerPage,
		"RATE_LIMIT":  &c.Fetch.RateLimit,
	}
	for key, dst := range ints {
		v, ok := os.LookupEnv(EnvPrefix + key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = n
	}

	bools := map[string]*bool{
		"ONE_PAGE_ONLY": &c.Fetch.OnePageOnly,
		"FLATTEN":       &c.Output.Flatten,
		"INSECURE":      &c.Fetch.InsecureSkipVerify,
		"LOG_PRETTY":    &c.Log.Pretty,
	}
	for key, dst := range bools {
		v, ok := os.LookupEnv(EnvPrefix + key)
		if !ok || v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = b
	}

	return nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.PaginatorConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := c.TransportConfig(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := c.OutputOptions(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Redis.URL != "" && !strings.HasPrefix(c.Redis.URL, "redis://") && !strings.HasPrefix(c.Redis.URL, "rediss://") {
		return fmt.Errorf("%w: redis url must start with redis:// or rediss:// (got %q)", ErrInvalid, c.Redis.URL)
	}
	return nil
}

// PaginatorConfig maps the file configuration onto a paginator.Config.
func (c *Config) PaginatorConfig() paginator.Config {
	pc := paginator.DefaultConfig(c.Source.URL)

	pc.LoginURL = c.Auth.LoginURL
	pc.Username = c.Auth.Username
	pc.Password = c.Auth.Password
	pc.Token = c.Auth.Token
	pc.UsernameField = c.Auth.UsernameField
	pc.PasswordField = c.Auth.PasswordField
	pc.TokenField = c.Auth.TokenField

	pc.CurrentPageField = c.Fields.CurrentPage
	pc.PerPageField = c.Fields.PerPage
	pc.TotalCountField = c.Fields.TotalCount
	pc.DataField = c.Fields.Data

	pc.PageParam = c.Source.PageParam
	pc.PerPage = c.Source.PerPage
	if len(c.Source.Params) > 0 {
		pc.Params = url.Values{}
		for k, v := range c.Source.Params {
			pc.Params.Set(k, v)
		}
	}
	pc.Headers = c.Source.Headers

	pc.MaxThreads = c.Fetch.MaxThreads
	pc.DownloadOnePageOnly = c.Fetch.OnePageOnly
	pc.Flatten = c.Output.Flatten
	pc.FlattenSeparator = c.Output.Separator

	return pc
}

// TransportConfig maps the fetch section onto a transport.Config. The rate
// limit tracker is wired by the caller.
func (c *Config) TransportConfig() (transport.Config, error) {
	tc := transport.DefaultConfig()
	tc.InsecureSkipVerify = c.Fetch.InsecureSkipVerify
	tc.RateLimit = c.Fetch.RateLimit
	if c.Fetch.UserAgent != "" {
		tc.UserAgent = c.Fetch.UserAgent
	}

	var err error
	if tc.Timeout, err = parseDuration("fetch.timeout", c.Fetch.Timeout, tc.Timeout); err != nil {
		return tc, err
	}
	if tc.RatePeriod, err = parseDuration("fetch.rate_period", c.Fetch.RatePeriod, tc.RatePeriod); err != nil {
		return tc, err
	}
	if tc.RateLimit < 0 {
		return tc, fmt.Errorf("fetch.rate_limit must be >= 0 (got %d)", tc.RateLimit)
	}
	return tc, nil
}

// OutputOptions maps the output section onto output.Options. The output
// path's extensions apply unless the section names a non-default format or
// compression.
func (c *Config) OutputOptions() (output.Options, error) {
	opts := output.FromPath(c.Output.Path)

	format, err := output.ParseFormat(c.Output.Format)
	if err != nil {
		return opts, err
	}
	if format != output.FormatJSON {
		opts.Format = format
	}

	compression, err := output.ParseCompression(c.Output.Compression)
	if err != nil {
		return opts, err
	}
	if compression != output.CompressionNone {
		opts.Compression = compression
	}

	opts.Indent = c.Output.Indent
	return opts, nil
}

// LoggingConfig maps the log section onto a logging.Config writing to stderr.
func (c *Config) LoggingConfig() (logging.Config, error) {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return logging.Config{}, err
	}
	lc := logging.DefaultConfig()
	lc.Level = level
	lc.Pretty = c.Log.Pretty
	return lc, nil
}

func parseDuration(name, s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive (got %s)", name, s)
	}
	return d, nil
}
