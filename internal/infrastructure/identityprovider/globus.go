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

const globusProviderName = "globus"

// globusScope is the fixed scope string Globus's authorize endpoint
// expects; it never varies by config.
const globusScope = "urn:globus:auth:scope:auth.globus.org:view_identities email"

// GlobusProvider implements the IdentityProvider port for Globus Auth's
// introspect/identities wire format.
type GlobusProvider struct {
	cfg        Config
	httpClient *http.Client
}

// NewGlobusProvider validates that cfg.Name matches this factory's
// declared name before constructing the provider.
func NewGlobusProvider(cfg Config) (*GlobusProvider, error) {
	if cfg.Name != globusProviderName {
		return nil, domain.ErrBadProviderConfigName(cfg.Name)
	}
	return &GlobusProvider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (p *GlobusProvider) Name() string     { return globusProviderName }
func (p *GlobusProvider) ImageURI() string { return p.cfg.ImageURI }

// LoginURL builds Globus's authorize-endpoint URL with a fixed parameter
// order (scope, state, redirect_uri, response_type, client_id) and
// standard percent-encoding, matching Globus Auth's documented form
// exactly.
func (p *GlobusProvider) LoginURL(state string, isLink bool) (string, error) {
	redirect := p.cfg.LoginRedirectURL
	if isLink {
		redirect = p.cfg.LinkRedirectURL
	}
	return fmt.Sprintf(
		"%s/v2/oauth2/authorize?scope=%s&state=%s&redirect_uri=%s&response_type=code&client_id=%s",
		p.cfg.LoginBaseURL,
		url.QueryEscape(globusScope),
		url.QueryEscape(state),
		url.QueryEscape(redirect),
		url.QueryEscape(p.cfg.ClientID),
	), nil
}

type tokenExchangeResponse struct {
	AccessToken string `json:"access_token"`
}

type introspectResponse struct {
	Aud           []string `json:"aud"`
	Sub           string   `json:"sub"`
	Username      string   `json:"username"`
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	IdentitiesSet []string `json:"identities_set"`
}

type identitiesResponse struct {
	Identities []struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Name     string `json:"name"`
		Email    string `json:"email"`
	} `json:"identities"`
}

// GetIdentities exchanges authcode for an access token, introspects it
// for the identity set, and hydrates any secondary identities unless
// the provider is configured to suppress them.
func (p *GlobusProvider) GetIdentities(ctx context.Context, authcode string, isLink bool) ([]domain.RemoteIdentity, error) {
	redirect := p.cfg.LoginRedirectURL
	if isLink {
		redirect = p.cfg.LinkRedirectURL
	}

	accessToken, err := p.exchangeCode(ctx, authcode, redirect)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(accessToken) == "" {
		return nil, domain.ErrIdentityRetrieval(p.Name(), "No access token was returned by Globus")
	}

	introspected, err := p.introspect(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if !containsString(introspected.Aud, p.cfg.ClientID) {
		return nil, domain.ErrIdentityRetrieval(p.Name(), "token audience does not include our client id")
	}

	identities := []domain.RemoteIdentity{{
		ID:      domain.RemoteIdentityID{Provider: p.Name(), RemoteID: introspected.Sub},
		Details: domain.RemoteIdentityDetails{Username: introspected.Username, FullName: introspected.Name, Email: introspected.Email},
	}}

	var secondaryIDs []string
	for _, id := range introspected.IdentitiesSet {
		if id != introspected.Sub {
			secondaryIDs = append(secondaryIDs, id)
		}
	}
	if len(secondaryIDs) > 0 && p.cfg.Options["ignore-secondary-identities"] != "true" {
		secondaries, err := p.hydrateIdentities(ctx, accessToken, secondaryIDs)
		if err != nil {
			return nil, err
		}
		identities = append(identities, secondaries...)
	}

	return identities, nil
}

func (p *GlobusProvider) exchangeCode(ctx context.Context, authcode, redirect string) (string, error) {
	form := url.Values{
		"code":         {authcode},
		"grant_type":   {"authorization_code"},
		"redirect_uri": {redirect},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.APIBaseURL+"/v2/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", domain.ErrIdentityRetrieval(p.Name(), err.Error())
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(p.cfg.ClientID, p.cfg.ClientSecret)

	var tok tokenExchangeResponse
	if err := p.doJSON(req, &tok); err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

func (p *GlobusProvider) introspect(ctx context.Context, accessToken string) (*introspectResponse, error) {
	form := url.Values{
		"include": {"identities_set"},
		"token":   {accessToken},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.APIBaseURL+"/v2/oauth2/token/introspect", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, domain.ErrIdentityRetrieval(p.Name(), err.Error())
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(p.cfg.ClientID, p.cfg.ClientSecret)

	var resp introspectResponse
	if err := p.doJSON(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (p *GlobusProvider) hydrateIdentities(ctx context.Context, accessToken string, ids []string) ([]domain.RemoteIdentity, error) {
	u := p.cfg.APIBaseURL + "/v2/api/identities?ids=" + url.QueryEscape(strings.Join(ids, ","))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, domain.ErrIdentityRetrieval(p.Name(), err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var resp identitiesResponse
	if err := p.doJSON(req, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.RemoteIdentity, 0, len(resp.Identities))
	for _, id := range resp.Identities {
		out = append(out, domain.RemoteIdentity{
			ID:      domain.RemoteIdentityID{Provider: p.Name(), RemoteID: id.ID},
			Details: domain.RemoteIdentityDetails{Username: id.Username, FullName: id.Name, Email: id.Email},
		})
	}
	return out, nil
}

func (p *GlobusProvider) doJSON(req *http.Request, out any) error {
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

func containsString(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
