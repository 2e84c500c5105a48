// Package identity resolves the caller of a request from a bearer credential.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// ErrUnauthenticated is returned when no valid credential was presented.
var ErrUnauthenticated = errors.New("unauthenticated")

// User is an authenticated caller.
type User struct {
	Email string

	// AccessToken is the caller's Google access token. Empty for background
	// jobs, which use the backend's own credentials.
	AccessToken string
}

// TokenSource returns an oauth2 source for the user's token, or nil when
// the user carries no token.
func (u User) TokenSource() oauth2.TokenSource {
	if u.AccessToken == "" {
		return nil
	}
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: u.AccessToken, TokenType: "Bearer"})
}

// Verifier turns a bearer credential into a User.
type Verifier interface {
	Verify(ctx context.Context, bearer string) (*User, error)
}

// BearerToken extracts the token from an "Authorization: Bearer ..." header.
func BearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", ErrUnauthenticated
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrUnauthenticated
	}
	return strings.TrimSpace(token), nil
}

// GoogleVerifier validates Google OAuth access tokens through the tokeninfo endpoint.
type GoogleVerifier struct {
	svc      *oauth2api.Service
	audience string
}

// NewGoogleVerifier creates a verifier. When audience is non-empty the token
// must have been issued to that OAuth client.
func NewGoogleVerifier(ctx context.Context, audience string, opts ...option.ClientOption) (*GoogleVerifier, error) {
	opts = append([]option.ClientOption{option.WithoutAuthentication()}, opts...)
	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewGoogleVerifier: creating service: %w", err)
	}
	return &GoogleVerifier{svc: svc, audience: audience}, nil
}

// Verify implements Verifier.
func (v *GoogleVerifier) Verify(ctx context.Context, bearer string) (*User, error) {
	if bearer == "" {
		return nil, ErrUnauthenticated
	}

	info, err := v.svc.Tokeninfo().AccessToken(bearer).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: tokeninfo: %v", ErrUnauthenticated, err)
	}

	if err := checkTokenInfo(info, v.audience); err != nil {
		return nil, err
	}

	return &User{Email: info.Email, AccessToken: bearer}, nil
}

func checkTokenInfo(info *oauth2api.Tokeninfo, audience string) error {
	if info.Email == "" || !info.VerifiedEmail {
		return fmt.Errorf("%w: token carries no verified email", ErrUnauthenticated)
	}
	if info.ExpiresIn <= 0 {
		return fmt.Errorf("%w: token expired", ErrUnauthenticated)
	}
	if audience != "" && info.Audience != audience {
		return fmt.Errorf("%w: unexpected audience %q", ErrUnauthenticated, info.Audience)
	}
	return nil
}

// StaticVerifier trusts every request as the configured user. Local development only.
type StaticVerifier struct {
	Email string
}

// Verify implements Verifier.
func (v StaticVerifier) Verify(ctx context.Context, bearer string) (*User, error) {
	if v.Email == "" {
		return nil, ErrUnauthenticated
	}
	return &User{Email: v.Email, AccessToken: bearer}, nil
}

// Context key for the authenticated user.
type contextKey string

const userKey contextKey = "user"

// WithUser stores u in ctx.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// FromContext returns the authenticated user stored in ctx.
func FromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(userKey).(User)
	return u, ok
}

