package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/jakechorley/volunteer-booking/internal/config"
)

const (
	AuthPort     = 3000
	authTimeout  = 5 * time.Minute
	callbackPath = "/oauth/callback"
	tokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"
)

// OAuth scopes for Google APIs
const (
	ScopeSheets    = "https://www.googleapis.com/auth/spreadsheets"
	ScopeGmailSend = "https://www.googleapis.com/auth/gmail.send"
)

// RequiredScopes returns the scopes the configured components need.
// Sheets storage needs spreadsheets; email notifications need gmail.send.
func RequiredScopes(cfg *config.Config) []string {
	var scopes []string
	if cfg.Storage.Backend == "sheets" {
		scopes = append(scopes, ScopeSheets)
	}
	if cfg.Notifications.Email {
		scopes = append(scopes, ScopeGmailSend)
	}
	return scopes
}

// GetOAuthConfig creates an OAuth2 config from the OAuth client configuration.
// All scopes are requested upfront so one token serves every Google client.
func GetOAuthConfig(oauthCfg *config.OAuthClientConfig, scopes []string) (*oauth2.Config, error) {
	raw, err := json.Marshal(oauthCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal oauth config: %w", err)
	}

	googleConfig, err := google.ConfigFromJSON(raw, scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to create google config: %w", err)
	}
	googleConfig.RedirectURL = fmt.Sprintf("http://localhost:%d%s", AuthPort, callbackPath)
	return googleConfig, nil
}

// GrantedScopes reports the scopes a token actually carries
type GrantedScopes func(ctx context.Context, token *oauth2.Token) ([]string, error)

// Authorizer obtains a token for one environment: the stored token when it is
// still usable, otherwise a browser consent flow answered on localhost
type Authorizer struct {
	config *oauth2.Config
	store  *TokenStore
	env    string
	logger *zap.Logger

	granted GrantedScopes
	prompt  io.Writer
	// awaitCode blocks until the consent redirect delivers a code for state
	awaitCode func(ctx context.Context, state string) (string, error)
}

func NewAuthorizer(oauthConfig *oauth2.Config, store *TokenStore, env string, logger *zap.Logger) *Authorizer {
	return &Authorizer{
		config:    oauthConfig,
		store:     store,
		env:       env,
		logger:    logger,
		granted:   tokenInfoScopes,
		prompt:    os.Stdout,
		awaitCode: awaitAuthCallback,
	}
}

// Token returns a token holding every configured scope
func (a *Authorizer) Token(ctx context.Context) (*oauth2.Token, error) {
	stored, err := a.store.Load(a.env)
	if err != nil {
		a.logger.Warn("Failed to load stored token", zap.Error(err))
	}
	if stored != nil {
		token, err := a.reuse(ctx, stored)
		if err == nil {
			return token, nil
		}
		a.logger.Info("Stored token cannot be used, starting OAuth flow", zap.Error(err))
		if err := a.store.Delete(a.env); err != nil {
			a.logger.Warn("Failed to delete stored token", zap.Error(err))
		}
	}
	return a.authorize(ctx)
}

// Client returns an HTTP client whose refreshed tokens are written back to the store
func (a *Authorizer) Client(ctx context.Context) (*http.Client, error) {
	token, err := a.Token(ctx)
	if err != nil {
		return nil, err
	}
	source := &savingTokenSource{
		base:   a.config.TokenSource(ctx, token),
		store:  a.store,
		env:    a.env,
		logger: a.logger,
		access: token.AccessToken,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(token, source)), nil
}

// reuse refreshes an expired token when it can and checks its scopes
func (a *Authorizer) reuse(ctx context.Context, stored *oauth2.Token) (*oauth2.Token, error) {
	token := stored
	if !token.Valid() {
		if token.RefreshToken == "" {
			return nil, errors.New("token expired and has no refresh token")
		}
		refreshed, err := a.config.TokenSource(ctx, token).Token()
		if err != nil {
			return nil, fmt.Errorf("failed to refresh token: %w", err)
		}
		token = refreshed
	}

	if err := a.checkScopes(ctx, token); err != nil {
		return nil, err
	}
	if token != stored {
		a.logger.Debug("Token refreshed")
		if err := a.store.Save(a.env, token); err != nil {
			a.logger.Warn("Failed to save refreshed token", zap.Error(err))
		}
	}
	return token, nil
}

func (a *Authorizer) authorize(ctx context.Context) (*oauth2.Token, error) {
	state := uuid.NewString()
	authURL := a.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Fprintf(a.prompt, "\nVisit this URL to authorize the application:\n%s\n\n", authURL)

	code, err := a.awaitCode(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("failed to get authorization code: %w", err)
	}

	token, err := a.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code for token: %w", err)
	}
	if err := a.checkScopes(ctx, token); err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}

	if err := a.store.Save(a.env, token); err != nil {
		a.logger.Warn("Failed to save token", zap.Error(err))
	}
	a.logger.Info("OAuth authorization completed", zap.String("env", a.env))
	return token, nil
}

func (a *Authorizer) checkScopes(ctx context.Context, token *oauth2.Token) error {
	granted, err := a.granted(ctx, token)
	if err != nil {
		return err
	}
	if missing := missingScopes(granted, a.config.Scopes); len(missing) > 0 {
		return fmt.Errorf("token is missing required scopes: %v\nPlease ensure all permissions are granted during the OAuth flow", missing)
	}
	return nil
}

// tokenInfoScopes asks Google's tokeninfo endpoint which scopes a token carries
func tokenInfoScopes(ctx context.Context, token *oauth2.Token) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tokenInfoURL+"?access_token="+token.AccessToken, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokeninfo request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call tokeninfo endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("tokeninfo request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var info struct {
		Scope string `json:"scope"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode tokeninfo response: %w", err)
	}
	return strings.Fields(info.Scope), nil
}

// missingScopes lists required scopes absent from granted
func missingScopes(granted, required []string) []string {
	var missing []string
	for _, scope := range required {
		if !slices.Contains(granted, scope) {
			missing = append(missing, scope)
		}
	}
	return missing
}

// callbackHandler accepts the consent redirect carrying state and forwards its code
func callbackHandler(state string, codes chan<- string, errs chan<- error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Get("state") != state {
			http.Error(w, "Authorization state mismatch", http.StatusBadRequest)
			return
		}
		if reason := query.Get("error"); reason != "" {
			http.Error(w, "Authorization denied", http.StatusForbidden)
			errs <- fmt.Errorf("authorization denied: %s", reason)
			return
		}
		code := query.Get("code")
		if code == "" {
			http.Error(w, "Authorization failed", http.StatusBadRequest)
			errs <- errors.New("no authorization code received")
			return
		}

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html>
	<head><title>Authorization Successful</title></head>
	<body>
		<h1>Volunteer booking is authorized</h1>
		<p>You can close this window and return to the terminal.</p>
	</body>
</html>`)
		codes <- code
	}
}

// awaitAuthCallback serves the redirect URL on localhost until a code arrives
func awaitAuthCallback(ctx context.Context, state string) (string, error) {
	codes := make(chan string, 1)
	errs := make(chan error, 2)

	mux := http.NewServeMux()
	mux.Handle(callbackPath, callbackHandler(state, codes, errs))
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", AuthPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("server error: %w", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	waitCtx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	select {
	case code := <-codes:
		return code, nil
	case err := <-errs:
		return "", err
	case <-waitCtx.Done():
		return "", fmt.Errorf("authorization timeout after %v", authTimeout)
	}
}

// NewGoogleHTTPClient runs the OAuth flow if needed and returns an HTTP client
// authorised for scopes, shared by the sheets and gmail clients
func NewGoogleHTTPClient(ctx context.Context, oauthCfg *config.OAuthClientConfig, scopes []string, env string, logger *zap.Logger) (*http.Client, error) {
	oauthConfig, err := GetOAuthConfig(oauthCfg, scopes)
	if err != nil {
		return nil, fmt.Errorf("failed to get oauth config: %w", err)
	}
	store, err := DefaultTokenStore()
	if err != nil {
		return nil, err
	}
	return NewAuthorizer(oauthConfig, store, env, logger).Client(ctx)
}
