package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/jsonpagination/pkg/config"
)

// Flags only override the layered config when set explicitly, so their
// defaults here are documentation.
func addConfigFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	d := config.Default()

	f.String("url", "", "collection endpoint (same as the positional argument)")
	f.String("page-param", d.Source.PageParam, "query parameter carrying the page index")
	f.Int("per-page", 0, "page size to request via the per-page field")
	f.StringArray("param", nil, "extra query parameter key=value (repeatable)")
	f.StringArrayP("header", "H", nil, "extra request header key=value (repeatable)")

	f.String("login-url", "", "login endpoint; enables the login exchange")
	f.StringP("username", "u", "", "login username")
	f.StringP("password", "p", "", "login password")
	f.String("token", "", "bearer token; skips the login exchange")
	f.String("username-field", d.Auth.UsernameField, "login body field for the username")
	f.String("password-field", d.Auth.PasswordField, "login body field for the password")
	f.String("token-field", d.Auth.TokenField, "login response path of the token")

	f.String("current-page-field", d.Fields.CurrentPage, "response path of the current page")
	f.String("per-page-field", d.Fields.PerPage, "response path of the page size")
	f.String("total-field", d.Fields.TotalCount, "response path of the total record count")
	f.String("data-field", d.Fields.Data, "response path of the records; empty for the whole body")

	f.IntP("max-threads", "t", d.Fetch.MaxThreads, "concurrent page fetches")
	f.Bool("one-page", false, "download page 1 only")
	f.String("timeout", d.Fetch.Timeout, "per-request timeout")
	f.Bool("insecure", false, "skip TLS certificate verification")
	f.String("user-agent", d.Fetch.UserAgent, "User-Agent header")
	f.Int("rate-limit", 0, "requests per rate period; 0 disables pacing")
	f.String("rate-period", d.Fetch.RatePeriod, "rate limit period")

	f.StringP("output", "o", "", "output file; stdout when empty or -")
	f.String("format", d.Output.Format, "output format: json or jsonl")
	f.String("compress", d.Output.Compression, "output compression: none, gzip or zstd")
	f.Bool("indent", false, "pretty-print json output")
	f.Bool("flatten", false, "flatten nested records into path keys")
	f.String("separator", d.Output.Separator, "flatten key separator")

	f.String("redis-url", "", "redis url for a rate limit budget shared between processes")
	f.String("log-level", d.Log.Level, "log level: debug, info, warning or error")
	f.Bool("pretty", false, "human readable logs")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address during the run")
}

func applyConfigFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()

	strs := map[string]*string{
		"url":                &cfg.Source.URL,
		"page-param":         &cfg.Source.PageParam,
		"login-url":          &cfg.Auth.LoginURL,
		"username":           &cfg.Auth.Username,
		"password":           &cfg.Auth.Password,
		"token":              &cfg.Auth.Token,
		"username-field":     &cfg.Auth.UsernameField,
		"password-field":     &cfg.Auth.PasswordField,
		"token-field":        &cfg.Auth.TokenField,
		"current-page-field": &cfg.Fields.CurrentPage,
		"per-page-field":     &cfg.Fields.PerPage,
		"total-field":        &cfg.Fields.TotalCount,
		"data-field":         &cfg.Fields.Data,
		"timeout":            &cfg.Fetch.Timeout,
		"user-agent":         &cfg.Fetch.UserAgent,
		"rate-period":        &cfg.Fetch.RatePeriod,
		"output":             &cfg.Output.Path,
		"format":             &cfg.Output.Format,
		"compress":           &cfg.Output.Compression,
		"separator":          &cfg.Output.Separator,
		"redis-url":          &cfg.Redis.URL,
		"log-level":          &cfg.Log.Level,
		"metrics-addr":       &cfg.Metrics.Addr,
	}
	for name, dst := range strs {
		if !f.Changed(name) {
			continue
		}
		v, err := f.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	ints := map[string]*int{
		"per-page":    &cfg.Source.PerPage,
		"max-threads": &cfg.Fetch.MaxThreads,
		"rate-limit":  &cfg.Fetch.RateLimit,
	}
	for name, dst := range ints {
		if !f.Changed(name) {
			continue
		}
		v, err := f.GetInt(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	bools := map[string]*bool{
		"one-page": &cfg.Fetch.OnePageOnly,
		"insecure": &cfg.Fetch.InsecureSkipVerify,
		"indent":   &cfg.Output.Indent,
		"flatten":  &cfg.Output.Flatten,
		"pretty":   &cfg.Log.Pretty,
	}
	for name, dst := range bools {
		if !f.Changed(name) {
			continue
		}
		v, err := f.GetBool(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	pairs := map[string]*map[string]string{
		"param":  &cfg.Source.Params,
		"header": &cfg.Source.Headers,
	}
	for name, dst := range pairs {
		if !f.Changed(name) {
			continue
		}
		raw, err := f.GetStringArray(name)
		if err != nil {
			return err
		}
		if *dst == nil {
			*dst = make(map[string]string, len(raw))
		}
		for _, kv := range raw {
			k, v, ok := strings.Cut(kv, "=")
			if !ok || strings.TrimSpace(k) == "" {
				return fmt.Errorf("--%s %q: want key=value", name, kv)
			}
			(*dst)[strings.TrimSpace(k)] = v
		}
	}

	return nil
}
