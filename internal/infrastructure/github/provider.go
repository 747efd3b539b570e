package githubinfra

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/lumos-api/internal/domain"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const (
	providerName  = "github"
	defaultAPIURL = "https://api.github.com"
)

// Config configures the GitHub OAuth app. Endpoint and APIURL may be overridden in tests.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	Endpoint oauth2.Endpoint
	APIURL   string
}

// Provider signs users in with GitHub.
type Provider struct {
	oauth  *oauth2.Config
	apiURL string
}

func NewProvider(cfg Config) *Provider {
	if cfg.Endpoint.AuthURL == "" {
		cfg.Endpoint = github.Endpoint
	}
	if cfg.APIURL == "" {
		cfg.APIURL = defaultAPIURL
	}
	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     cfg.Endpoint,
			Scopes:       []string{"read:user", "user:email"},
		},
		apiURL: strings.TrimRight(cfg.APIURL, "/"),
	}
}

func (p *Provider) Name() string { return providerName }

// LoginURL returns the GitHub authorization URL carrying state.
func (p *Provider) LoginURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// Exchange trades the authorization code for a token and fetches the profile.
// A private email is resolved through /user/emails.
func (p *Provider) Exchange(ctx context.Context, code string) (*domain.OAuthProfile, error) {
	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	client := p.oauth.Client(ctx, tok)

	var u githubUser
	if err := p.get(ctx, client, "/user", &u); err != nil {
		return nil, err
	}
	if u.ID == 0 {
		return nil, fmt.Errorf("empty id in github user response")
	}

	email := u.Email
	if email == "" {
		var emails []githubEmail
		if err := p.get(ctx, client, "/user/emails", &emails); err != nil {
			return nil, err
		}
		email = primaryEmail(emails)
	}

	name := u.Name
	if name == "" {
		name = u.Login
	}
	return &domain.OAuthProfile{
		Provider:          providerName,
		ProviderAccountID: strconv.FormatInt(u.ID, 10),
		Email:             email,
		Name:              name,
		Image:             u.AvatarURL,
	}, nil
}

func (p *Provider) get(ctx context.Context, client *http.Client, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiURL+path, nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("github %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github %s failed with status %d: %s", path, resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse %s response: %w", path, err)
	}
	return nil
}

func primaryEmail(emails []githubEmail) string {
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email
		}
	}
	return ""
}
