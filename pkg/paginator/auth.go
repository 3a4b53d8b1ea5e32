package paginator

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/jsonpagination/pkg/jsonpath"
	"github.com/Sternrassler/jsonpagination/pkg/transport"
)

// Authenticator exchanges credentials for a bearer token.
type Authenticator struct {
	transport     transport.Transport
	usernameField string
	passwordField string
	tokenField    string
	headers       map[string]string
	logger        zerolog.Logger
}

// NewAuthenticator creates an authenticator using cfg's login field names.
func NewAuthenticator(tr transport.Transport, cfg Config, logger zerolog.Logger) *Authenticator {
	cfg = cfg.withDefaults()
	return &Authenticator{
		transport:     tr,
		usernameField: cfg.UsernameField,
		passwordField: cfg.PasswordField,
		tokenField:    cfg.TokenField,
		headers:       cfg.Headers,
		logger:        logger,
	}
}

// Authenticate posts the credentials as a JSON object to loginURL and returns
// the token found in the response. It does not retry. Every failure is a
// *LoginError.
func (a *Authenticator) Authenticate(ctx context.Context, loginURL, username, password string) (string, error) {
	body, err := jsonpath.API.Marshal(map[string]string{
		a.usernameField: username,
		a.passwordField: password,
	})
	if err != nil {
		return "", a.fail(&LoginError{URL: loginURL, Err: fmt.Errorf("encode credentials: %w", err)})
	}

	header := http.Header{}
	for k, v := range a.headers {
		header.Set(k, v)
	}
	header.Set("Content-Type", "application/json")

	a.logger.Debug().Str("url", loginURL).Msg("Logging in")

	resp, err := a.transport.Do(ctx, &transport.Request{
		Method: http.MethodPost,
		URL:    loginURL,
		Header: header,
		Body:   body,
	})
	if err != nil {
		return "", a.fail(&LoginError{URL: loginURL, Err: err})
	}

	a.logger.Debug().Str("url", loginURL).Int("status", resp.StatusCode).Msg("Login request returned")

	if !transport.IsSuccess(resp.StatusCode) {
		return "", a.fail(&LoginError{URL: loginURL, StatusCode: resp.StatusCode})
	}

	doc, err := jsonpath.Parse(resp.Body)
	if err != nil {
		return "", a.fail(&LoginError{URL: loginURL, StatusCode: resp.StatusCode, Err: err})
	}

	token, ok := jsonpath.String(doc, a.tokenField)
	if !ok || token == "" {
		return "", a.fail(&LoginError{
			URL:        loginURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: field %q", ErrTokenMissing, a.tokenField),
		})
	}

	LoginsTotal.WithLabelValues("success").Inc()
	a.logger.Info().Int("status", resp.StatusCode).Msg("Login successful")
	return token, nil
}

func (a *Authenticator) fail(err *LoginError) error {
	LoginsTotal.WithLabelValues("failed").Inc()
	a.logger.Error().Err(err).Int("status", err.StatusCode).Msg("Login failed")
	return err
}
