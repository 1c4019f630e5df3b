package mediawiki

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/dghubble/oauth1"
	"golang.org/x/net/publicsuffix"
)

// OAuthCredentials is an owner-only OAuth 1.0a consumer.
type OAuthCredentials struct {
	ConsumerToken  string
	ConsumerSecret string
	AccessToken    string
	AccessSecret   string
}

// NewOAuthHTTPClient returns an HTTP client signing every request with HMAC-SHA1.
func NewOAuthHTTPClient(ctx context.Context, creds OAuthCredentials, timeout time.Duration) *http.Client {
	cfg := oauth1.NewConfig(creds.ConsumerToken, creds.ConsumerSecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessSecret)

	base := &http.Client{Timeout: timeout}
	ctx = context.WithValue(ctx, oauth1.HTTPClient, base)

	hc := cfg.Client(ctx, token)
	hc.Timeout = timeout
	return hc
}

// NewCookieHTTPClient returns an HTTP client holding the session cookies of a bot-password login.
func NewCookieHTTPClient(timeout time.Duration) (*http.Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &http.Client{Jar: jar, Timeout: timeout}, nil
}

// Login performs a bot-password login. The requester must be backed by a client
// from NewCookieHTTPClient so that the session survives the call.
func (c *Client) Login(ctx context.Context, username, password string) error {
	token, err := c.token(ctx, "login")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLogin, err)
	}

	body, err := c.request.PostForm(ctx, c.APIEndpoint, url.Values{
		"action":     {"login"},
		"format":     {"json"},
		"lgname":     {username},
		"lgpassword": {password},
		"lgtoken":    {token},
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLogin, err)
	}

	var resp struct {
		apiResponse
		Login struct {
			Result   string `json:"result"`
			Reason   string `json:"reason"`
			UserName string `json:"lgusername"`
		} `json:"login"`
	}
	if err := decode(body, &resp); err != nil {
		return err
	}
	if resp.Error != nil {
		return fmt.Errorf("%w: %w", ErrLogin, resp.Error)
	}
	if resp.Login.Result != "Success" {
		return fmt.Errorf("%w: %s %s", ErrLogin, resp.Login.Result, resp.Login.Reason)
	}

	c.Logger.Info("Logged in", "user", resp.Login.UserName)
	return nil
}
