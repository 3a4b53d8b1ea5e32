package paginator

import (
	"fmt"
	"net/url"

	"github.com/Sternrassler/jsonpagination/pkg/flatten"
)

// Defaults applied by New to unset fields.
const (
	DefaultCurrentPageField = "page"
	DefaultPerPageField     = "per_page"
	DefaultTotalCountField  = "total"
	DefaultDataField        = "data"
	DefaultPageParam        = "page"
	DefaultMaxThreads       = 5
	DefaultUsernameField    = "username"
	DefaultPasswordField    = "password"
	DefaultTokenField       = "token"
)

// Progress is reported after every merged page.
type Progress struct {
	PagesFetched int
	TotalPages   int
	Records      int

	// Page is the page just merged and Data its records as decoded, before
	// flattening. Data is shared with the result store and must not be modified.
	Page int
	Data []any
}

// Config describes one paginated collection and how to download it.
// Field names are dotted paths into the page's JSON body.
type Config struct {
	// BaseURL is the collection endpoint. Existing query parameters are kept.
	BaseURL string

	// LoginURL, Username and Password enable the login exchange. Leave all
	// three empty to send unauthenticated requests.
	LoginURL string
	Username string
	Password string

	// Body and response field names of the login exchange.
	UsernameField string
	PasswordField string
	TokenField    string

	// Token is a pre-obtained bearer token. It skips the login exchange.
	Token string

	CurrentPageField string
	PerPageField     string
	TotalCountField  string

	// DataField locates the page's records. Empty means the body itself.
	DataField string

	// PageParam is the query parameter carrying the 1-based page index.
	PageParam string

	// PerPage, when > 0, is sent as the PerPageField query parameter.
	PerPage int

	// Params are extra query parameters sent with every page request.
	Params url.Values

	// Headers are extra headers sent with every request.
	Headers map[string]string

	// MaxThreads bounds concurrent page fetches.
	MaxThreads int

	// DownloadOnePageOnly stops after page 1 and makes pagination fields optional.
	DownloadOnePageOnly bool

	// Flatten rewrites each record into a single-level map keyed by path.
	Flatten          bool
	FlattenSeparator string

	// OnProgress is called from the merge loop after every merged page. Optional.
	OnProgress func(Progress)
}

// DefaultConfig returns a configuration for baseURL with default field names.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:          baseURL,
		UsernameField:    DefaultUsernameField,
		PasswordField:    DefaultPasswordField,
		TokenField:       DefaultTokenField,
		CurrentPageField: DefaultCurrentPageField,
		PerPageField:     DefaultPerPageField,
		TotalCountField:  DefaultTotalCountField,
		DataField:        DefaultDataField,
		PageParam:        DefaultPageParam,
		MaxThreads:       DefaultMaxThreads,
		FlattenSeparator: flatten.DefaultSeparator,
	}
}

// LoginConfigured reports whether any login field is set.
func (c Config) LoginConfigured() bool {
	return c.LoginURL != "" || c.Username != "" || c.Password != ""
}

// withDefaults fills unset names. DataField is left alone since empty is meaningful.
func (c Config) withDefaults() Config {
	if c.UsernameField == "" {
		c.UsernameField = DefaultUsernameField
	}
	if c.PasswordField == "" {
		c.PasswordField = DefaultPasswordField
	}
	if c.TokenField == "" {
		c.TokenField = DefaultTokenField
	}
	if c.CurrentPageField == "" {
		c.CurrentPageField = DefaultCurrentPageField
	}
	if c.PerPageField == "" {
		c.PerPageField = DefaultPerPageField
	}
	if c.TotalCountField == "" {
		c.TotalCountField = DefaultTotalCountField
	}
	if c.PageParam == "" {
		c.PageParam = DefaultPageParam
	}
	if c.MaxThreads == 0 {
		c.MaxThreads = DefaultMaxThreads
	}
	if c.FlattenSeparator == "" {
		c.FlattenSeparator = flatten.DefaultSeparator
	}
	return c
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base url is required", ErrInvalidConfig)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: base url: %v", ErrInvalidConfig, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: base url must be http or https (got %q)", ErrInvalidConfig, c.BaseURL)
	}

	if c.MaxThreads < 1 {
		return fmt.Errorf("%w: max_threads must be >= 1 (got %d)", ErrInvalidConfig, c.MaxThreads)
	}
	if c.PerPage < 0 {
		return fmt.Errorf("%w: per_page must be >= 0 (got %d)", ErrInvalidConfig, c.PerPage)
	}

	if c.LoginConfigured() && c.Token == "" {
		if c.LoginURL == "" || c.Username == "" || c.Password == "" {
			return fmt.Errorf("%w: login url, username and password must be set together", ErrInvalidConfig)
		}
		if _, err := url.Parse(c.LoginURL); err != nil {
			return fmt.Errorf("%w: login url: %v", ErrInvalidConfig, err)
		}
	}

	return nil
}
