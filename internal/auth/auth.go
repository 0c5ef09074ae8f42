// Package auth runs the Google OAuth2 authorization-code flow and reads the
// signed-in user's profile.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	googleoauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"prepwise/internal/model"
)

// Scopes requested at sign-in. Calendar access is read-only.
var Scopes = []string{
	calendar.CalendarReadonlyScope,
	googleoauth2.UserinfoEmailScope,
	googleoauth2.UserinfoProfileScope,
}

// Authenticator wraps the OAuth client configuration.
type Authenticator struct {
	cfg     *oauth2.Config
	apiOpts []option.ClientOption
}

// Option customizes an Authenticator.
type Option func(*Authenticator)

// WithEndpoint replaces Google's authorization and token URLs.
func WithEndpoint(ep oauth2.Endpoint) Option {
	return func(a *Authenticator) { a.cfg.Endpoint = ep }
}

// WithAPIOptions adds client options to the userinfo API calls.
func WithAPIOptions(opts ...option.ClientOption) Option {
	return func(a *Authenticator) { a.apiOpts = append(a.apiOpts, opts...) }
}

// New builds an Authenticator for a web OAuth client.
func New(clientID, clientSecret, redirectURL string, opts ...Option) *Authenticator {
	a := &Authenticator{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       Scopes,
			Endpoint:     google.Endpoint,
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewState returns a random value for the OAuth state parameter.
func NewState() string {
	return uuid.NewString()
}

// AuthCodeURL is the consent-screen URL. Offline access yields a refresh
// token so the calendar can still be read after the access token expires.
func (a *Authenticator) AuthCodeURL(state string) string {
	return a.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token.
func (a *Authenticator) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, errors.New("auth: missing authorization code")
	}
	tok, err := a.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchange: %w", err)
	}
	return tok, nil
}

// TokenSource refreshes tok as needed.
func (a *Authenticator) TokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource {
	return a.cfg.TokenSource(ctx, tok)
}

// FetchUser reads the profile of the account that owns tok.
func (a *Authenticator) FetchUser(ctx context.Context, tok *oauth2.Token) (model.User, error) {
	opts := append([]option.ClientOption{option.WithHTTPClient(a.cfg.Client(ctx, tok))}, a.apiOpts...)
	svc, err := googleoauth2.NewService(ctx, opts...)
	if err != nil {
		return model.User{}, fmt.Errorf("auth: userinfo service: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return model.User{}, fmt.Errorf("auth: userinfo: %w", err)
	}
	if info.Id == "" {
		return model.User{}, errors.New("auth: userinfo returned no id")
	}
	return model.User{
		ID:    info.Id,
		Email: info.Email,
		Name:  info.Name,
		Image: info.Picture,
	}, nil
}
