package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/pongarena/backend/internal/config"
	"golang.org/x/oauth2"
)

// ErrUpstream marks any failure of the upstream identity provider: a failed
// code exchange, a non-200 profile fetch, or a timeout. The caller decides
// whether to retry; the client never does.
var ErrUpstream = errors.New("upstream identity provider failure")

// Client wraps the authorization-code exchange and profile fetch against the
// upstream OAuth provider as two blocking, timeout-bounded calls.
type Client struct {
	conf        *oauth2.Config
	userInfoURL string
	timeout     time.Duration
}

func New(cfg *config.Config) *Client {
	return &Client{
		conf: &oauth2.Config{
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			RedirectURL:  cfg.OAuthRedirectURL,
			Scopes:       []string{"public"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.OAuthAuthURL,
				TokenURL: cfg.OAuthTokenURL,
			},
		},
		userInfoURL: cfg.OAuthUserInfoURL,
		timeout:     cfg.OAuthTimeout,
	}
}

// Exchange trades an authorization code for an access token.
func (c *Client) Exchange(ctx context.Context, code string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	token, err := c.conf.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("%w: token exchange: %v", ErrUpstream, err)
	}
	return token.AccessToken, nil
}

// FetchEmail fetches the provider profile and returns its email address.
func (c *Client) FetchEmail(ctx context.Context, accessToken string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	client := c.conf.Client(ctx, &oauth2.Token{AccessToken: accessToken})
	resp, err := client.Get(c.userInfoURL)
	if err != nil {
		return "", fmt.Errorf("%w: user info: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: user info returned status %d", ErrUpstream, resp.StatusCode)
	}

	var profile struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return "", fmt.Errorf("%w: decoding user info: %v", ErrUpstream, err)
	}
	if profile.Email == "" {
		return "", fmt.Errorf("%w: user info has no email", ErrUpstream)
	}
	return profile.Email, nil
}
