package utils

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/jakechorley/volunteer-booking/internal/config"
)

func TestRequiredScopes(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{Backend: "memory"}}
	assert.Empty(t, RequiredScopes(cfg))

	cfg.Storage.Backend = "sheets"
	assert.Equal(t, []string{ScopeSheets}, RequiredScopes(cfg))

	cfg.Notifications.Email = true
	assert.Equal(t, []string{ScopeSheets, ScopeGmailSend}, RequiredScopes(cfg))
}

func TestMissingScopes(t *testing.T) {
	granted := []string{ScopeSheets, "openid"}

	assert.Empty(t, missingScopes(granted, []string{ScopeSheets}))
	assert.Equal(t, []string{ScopeGmailSend}, missingScopes(granted, []string{ScopeSheets, ScopeGmailSend}))
}

func TestTokenStore(t *testing.T) {
	store := NewTokenStore(t.TempDir())

	token, err := store.Load("test")
	require.NoError(t, err)
	assert.Nil(t, token)

	expiry := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save("test", &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", Expiry: expiry}))

	info, err := os.Stat(store.path("test"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(tokenFilePerms), info.Mode().Perm())

	token, err = store.Load("test")
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Equal(t, "access", token.AccessToken)
	assert.Equal(t, "refresh", token.RefreshToken)
	assert.True(t, expiry.Equal(token.Expiry))

	other, err := store.Load("prod")
	require.NoError(t, err)
	assert.Nil(t, other, "tokens are kept per environment")

	require.NoError(t, store.Delete("test"))
	require.NoError(t, store.Delete("test"))
	token, err = store.Load("test")
	require.NoError(t, err)
	assert.Nil(t, token)
}

func TestTokenStore_CorruptFile(t *testing.T) {
	store := NewTokenStore(t.TempDir())
	require.NoError(t, os.WriteFile(store.path("test"), []byte("{not json"), tokenFilePerms))

	_, err := store.Load("test")
	assert.ErrorContains(t, err, "failed to parse token file")
}

// tokenServer answers code exchanges with a fixed token
func tokenServer(t *testing.T, access string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"`+access+`","token_type":"Bearer","refresh_token":"refresh","expires_in":3600}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testAuthorizer(t *testing.T, store *TokenStore, tokenURL string, granted []string) (*Authorizer, *[]string) {
	t.Helper()
	oauthConfig := &oauth2.Config{
		ClientID:    "client",
		Endpoint:    oauth2.Endpoint{AuthURL: "https://accounts.example.com/auth", TokenURL: tokenURL},
		RedirectURL: "http://localhost:3000" + callbackPath,
		Scopes:      []string{ScopeSheets},
	}
	a := NewAuthorizer(oauthConfig, store, "test", zap.NewNop())
	a.prompt = io.Discard
	a.granted = func(ctx context.Context, token *oauth2.Token) ([]string, error) {
		return granted, nil
	}

	var states []string
	a.awaitCode = func(ctx context.Context, state string) (string, error) {
		states = append(states, state)
		return "code", nil
	}
	return a, &states
}

func TestAuthorizer_UsesStoredToken(t *testing.T) {
	store := NewTokenStore(t.TempDir())
	require.NoError(t, store.Save("test", &oauth2.Token{AccessToken: "stored", Expiry: time.Now().Add(time.Hour)}))

	a, states := testAuthorizer(t, store, "http://127.0.0.1:0/token", []string{ScopeSheets})

	token, err := a.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "stored", token.AccessToken)
	assert.Empty(t, *states, "no consent flow when the stored token is usable")
}

func TestAuthorizer_MissingScopeStartsFlow(t *testing.T) {
	store := NewTokenStore(t.TempDir())
	require.NoError(t, store.Save("test", &oauth2.Token{AccessToken: "stored", Expiry: time.Now().Add(time.Hour)}))

	srv := tokenServer(t, "fresh")
	a, states := testAuthorizer(t, store, srv.URL, nil)
	a.granted = func(ctx context.Context, token *oauth2.Token) ([]string, error) {
		if token.AccessToken == "fresh" {
			return []string{ScopeSheets}, nil
		}
		return []string{"openid"}, nil
	}

	token, err := a.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", token.AccessToken)
	require.Len(t, *states, 1)
	assert.NotEmpty(t, (*states)[0])

	saved, err := store.Load("test")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "fresh", saved.AccessToken)
}

func TestAuthorizer_ExpiredWithoutRefreshStartsFlow(t *testing.T) {
	store := NewTokenStore(t.TempDir())
	require.NoError(t, store.Save("test", &oauth2.Token{AccessToken: "old", Expiry: time.Now().Add(-time.Hour)}))

	srv := tokenServer(t, "fresh")
	a, states := testAuthorizer(t, store, srv.URL, []string{ScopeSheets})

	token, err := a.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", token.AccessToken)
	assert.Len(t, *states, 1)
}

func TestAuthorizer_RejectsTokenWithoutScopes(t *testing.T) {
	srv := tokenServer(t, "fresh")
	a, _ := testAuthorizer(t, NewTokenStore(t.TempDir()), srv.URL, []string{"openid"})

	_, err := a.Token(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required scopes")

	saved, err := a.store.Load("test")
	require.NoError(t, err)
	assert.Nil(t, saved, "an under-scoped token is not saved")
}

func TestSavingTokenSource(t *testing.T) {
	store := NewTokenStore(t.TempDir())
	base := &stubSource{tokens: []*oauth2.Token{{AccessToken: "a"}, {AccessToken: "a"}, {AccessToken: "b"}}}
	source := &savingTokenSource{base: base, store: store, env: "test", logger: zap.NewNop(), access: "a"}

	_, err := source.Token()
	require.NoError(t, err)
	saved, err := store.Load("test")
	require.NoError(t, err)
	assert.Nil(t, saved, "an unchanged token is not rewritten")

	_, err = source.Token()
	require.NoError(t, err)
	_, err = source.Token()
	require.NoError(t, err)
	saved, err = store.Load("test")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "b", saved.AccessToken)
}

type stubSource struct {
	tokens []*oauth2.Token
}

func (s *stubSource) Token() (*oauth2.Token, error) {
	token := s.tokens[0]
	s.tokens = s.tokens[1:]
	return token, nil
}

func TestCallbackHandler(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCode   string
		wantErr    string
	}{
		{name: "code delivered", query: "state=s1&code=abc", wantStatus: http.StatusOK, wantCode: "abc"},
		{name: "state mismatch", query: "state=other&code=abc", wantStatus: http.StatusBadRequest},
		{name: "consent denied", query: "state=s1&error=access_denied", wantStatus: http.StatusForbidden, wantErr: "access_denied"},
		{name: "no code", query: "state=s1", wantStatus: http.StatusBadRequest, wantErr: "no authorization code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codes := make(chan string, 1)
			errs := make(chan error, 1)
			rec := httptest.NewRecorder()

			callbackHandler("s1", codes, errs)(rec, httptest.NewRequest(http.MethodGet, callbackPath+"?"+tt.query, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			select {
			case code := <-codes:
				assert.Equal(t, tt.wantCode, code)
			case err := <-errs:
				assert.ErrorContains(t, err, tt.wantErr)
			default:
				assert.Empty(t, tt.wantCode)
				assert.Empty(t, tt.wantErr)
			}
		})
	}
}
