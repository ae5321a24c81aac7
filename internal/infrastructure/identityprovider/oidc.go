package identityprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kestrelauth/authn-engine/internal/domain"
)

// OIDCProvider implements the IdentityProvider port for a standard
// authorization-code + userinfo-endpoint OIDC provider (e.g. Google),
// demonstrating that the registry isn't Globus-special-cased: it
// satisfies the same four-method contract with a different wire shape
// (one token exchange, one userinfo GET, no secondary-identity hydration).
type OIDCProvider struct {
	cfg         Config
	authURL     string
	tokenURL    string
	userInfoURL string
	scope       string
	httpClient  *http.Client
}

// NewOIDCProvider validates cfg.Name against name before constructing
// the provider, mirroring NewGlobusProvider's factory-name check.
func NewOIDCProvider(name string, cfg Config, authURL, tokenURL, userInfoURL, scope string) (*OIDCProvider, error) {
	if cfg.Name != name {
		return nil, domain.ErrBadProviderConfigName(cfg.Name)
	}
	return &OIDCProvider{
		cfg:         cfg,
		authURL:     authURL,
		tokenURL:    tokenURL,
		userInfoURL: userInfoURL,
		scope:       scope,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// NewGoogleProvider returns an OIDCProvider preconfigured with Google's
// well-known OAuth2 endpoints, grounded on the teacher's GoogleClient.
func NewGoogleProvider(cfg Config) (*OIDCProvider, error) {
	return NewOIDCProvider(
		"google",
		cfg,
		"https://accounts.google.com/o/oauth2/v2/auth",
		"https://oauth2.googleapis.com/token",
		"https://www.googleapis.com/oauth2/v3/userinfo",
		"openid email profile",
	)
}

func (p *OIDCProvider) Name() string     { return p.cfg.Name }
func (p *OIDCProvider) ImageURI() string { return p.cfg.ImageURI }

// LoginURL builds the provider's authorize-endpoint URL. Parameter
// order is not contractual for a generic OIDC provider (unlike
// Globus's pinned S1/S2 scenarios), so url.Values.Encode's sorted
// order is used directly.
func (p *OIDCProvider) LoginURL(state string, isLink bool) (string, error) {
	redirect := p.cfg.LoginRedirectURL
	if isLink {
		redirect = p.cfg.LinkRedirectURL
	}
	params := url.Values{
		"client_id":     {p.cfg.ClientID},
		"redirect_uri":  {redirect},
		"response_type": {"code"},
		"scope":         {p.scope},
		"state":         {state},
	}
	return p.authURL + "?" + params.Encode(), nil
}

type oidcTokenResponse struct {
	AccessToken string `json:"access_token"`
}

type oidcUserInfo struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// GetIdentities exchanges authcode for an access token and fetches the
// single userinfo identity it describes. Unlike Globus, there is no
// secondary-identity set to hydrate.
func (p *OIDCProvider) GetIdentities(ctx context.Context, authcode string, isLink bool) ([]domain.RemoteIdentity, error) {
	redirect := p.cfg.LoginRedirectURL
	if isLink {
		redirect = p.cfg.LinkRedirectURL
	}

	accessToken, err := p.exchangeCode(ctx, authcode, redirect)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(accessToken) == "" {
		return nil, domain.ErrIdentityRetrieval(p.Name(), fmt.Sprintf("No access token was returned by %s", p.cfg.Name))
	}

	info, err := p.userInfo(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if info.Sub == "" {
		return nil, domain.ErrIdentityRetrieval(p.Name(), "missing sub in userinfo response")
	}

	return []domain.RemoteIdentity{{
		ID:      domain.RemoteIdentityID{Provider: p.Name(), RemoteID: info.Sub},
		Details: domain.RemoteIdentityDetails{FullName: info.Name, Email: info.Email},
	}}, nil
}

func (p *OIDCProvider) exchangeCode(ctx context.Context, authcode, redirect string) (string, error) {
	form := url.Values{
		"client_id":     {p.cfg.ClientID},
		"client_secret": {p.cfg.ClientSecret},
		"code":          {authcode},
		"grant_type":    {"authorization_code"},
		"redirect_uri":  {redirect},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", domain.ErrIdentityRetrieval(p.Name(), err.Error())
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var tok oidcTokenResponse
	if err := p.doJSON(req, &tok); err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

func (p *OIDCProvider) userInfo(ctx context.Context, accessToken string) (*oidcUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, domain.ErrIdentityRetrieval(p.Name(), err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var info oidcUserInfo
	if err := p.doJSON(req, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (p *OIDCProvider) doJSON(req *http.Request, out any) error {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return domain.ErrIdentityRetrieval(p.Name(), err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.ErrIdentityRetrieval(p.Name(), err.Error())
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.ErrIdentityRetrieval(p.Name(), fmt.Sprintf("upstream returned %d: %s", resp.StatusCode, string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return domain.ErrIdentityRetrieval(p.Name(), "failed to parse upstream response: "+err.Error())
	}
	return nil
}
