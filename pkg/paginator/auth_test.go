package paginator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/jsonpagination/internal/testutil"
	"github.com/Sternrassler/jsonpagination/pkg/transport"
)

func TestAuthenticate_Success(t *testing.T) {
	api := testutil.NewMockAPI(10, 10)
	defer api.Close()
	api.RequireAuth("eve", "cityslicka", "QpwL5tke4Pnpja7X4")

	tr, err := transport.NewHTTP(transport.DefaultConfig(), zerolog.Nop())
	require.NoError(t, err)
	a := NewAuthenticator(tr, DefaultConfig(api.ItemsURL()), zerolog.Nop())

	token, err := a.Authenticate(context.Background(), api.LoginURL(), "eve", "cityslicka")
	require.NoError(t, err)
	assert.Equal(t, "QpwL5tke4Pnpja7X4", token)
	assert.Equal(t, 1, api.LoginRequests())
}

func TestAuthenticate_RequestShape(t *testing.T) {
	var got *transport.Request
	tr := transport.Func(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		got = req
		return &transport.Response{StatusCode: 200, Body: []byte(`{"auth":{"access_token":"t-1"}}`)}, nil
	})

	cfg := DefaultConfig("https://api.example.com/items")
	cfg.UsernameField = "email"
	cfg.PasswordField = "secret"
	cfg.TokenField = "auth.access_token"
	cfg.Headers = map[string]string{"X-Client": "cli"}
	a := NewAuthenticator(tr, cfg, zerolog.Nop())

	token, err := a.Authenticate(context.Background(), "https://api.example.com/login", "eve@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "t-1", token)

	require.NotNil(t, got)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.Equal(t, "cli", got.Header.Get("X-Client"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(got.Body, &body))
	assert.Equal(t, map[string]string{"email": "eve@example.com", "secret": "pw"}, body)
}

func TestAuthenticate_Failures(t *testing.T) {
	tests := []struct {
		name       string
		tr         transport.Transport
		wantStatus int
		wantErr    error
	}{
		{
			name:       "non success status",
			tr:         staticTransport(401, `{"error":"user not found"}`),
			wantStatus: 401,
		},
		{
			name:       "server error",
			tr:         staticTransport(500, ``),
			wantStatus: 500,
		},
		{
			name:       "token missing",
			tr:         staticTransport(200, `{"id":4}`),
			wantStatus: 200,
			wantErr:    ErrTokenMissing,
		},
		{
			name:       "token empty",
			tr:         staticTransport(200, `{"token":""}`),
			wantStatus: 200,
			wantErr:    ErrTokenMissing,
		},
		{
			name:       "malformed body",
			tr:         staticTransport(200, `<html>`),
			wantStatus: 200,
		},
		{
			name: "transport error",
			tr: transport.Func(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
				return nil, errors.New("no route to host")
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAuthenticator(tt.tr, DefaultConfig("https://api.example.com/items"), zerolog.Nop())

			token, err := a.Authenticate(context.Background(), "https://api.example.com/login", "eve", "pw")
			assert.Empty(t, token)
			assert.True(t, errors.Is(err, ErrLoginFailed))
			assert.False(t, errors.Is(err, ErrDataFetchFailed))

			var le *LoginError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, tt.wantStatus, le.StatusCode)
			assert.Equal(t, "https://api.example.com/login", le.URL)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
			}
		})
	}
}
