package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/rs/zerolog"

	"github.com/ericfisherdev/learnpreview/internal/domain/port/driven"
)

var _ driven.TokenVerifier = (*Verifier)(nil)

// Verifier checks tokens with GET /user.
type Verifier struct {
	httpClient *http.Client
	baseURL    *url.URL // nil for api.github.com
	logger     zerolog.Logger
}

// NewVerifier creates a Verifier for api.github.com.
func NewVerifier(logger zerolog.Logger) *Verifier {
	return &Verifier{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

// NewVerifierWithHTTPClient creates a Verifier against baseURL, for tests.
func NewVerifierWithHTTPClient(httpClient *http.Client, baseURL string, logger zerolog.Logger) (*Verifier, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	return &Verifier{httpClient: httpClient, baseURL: u, logger: logger}, nil
}

// VerifyToken returns the login token authenticates as. A rejected token
// yields driven.ErrUnauthorized, one without the needed permission
// driven.ErrForbidden.
func (v *Verifier) VerifyToken(ctx context.Context, token string) (string, error) {
	client := gh.NewClient(v.httpClient).WithAuthToken(token)
	if v.baseURL != nil {
		client.BaseURL = v.baseURL
	}

	user, resp, err := client.Users.Get(ctx, "")
	if err != nil {
		switch responseStatus(resp, err) {
		case http.StatusUnauthorized:
			return "", fmt.Errorf("verifying token: %w", driven.ErrUnauthorized)
		case http.StatusForbidden:
			return "", fmt.Errorf("verifying token: %w", driven.ErrForbidden)
		}
		return "", fmt.Errorf("verifying token: %w", err)
	}

	v.logger.Debug().Str("login", user.GetLogin()).Msg("github token verified")
	return user.GetLogin(), nil
}
