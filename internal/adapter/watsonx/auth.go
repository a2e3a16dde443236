package watsonx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/modelgate/modelgate/internal/credential"
	"github.com/modelgate/modelgate/internal/types"
)

const (
	iamTokenURL  = "https://iam.cloud.ibm.com/identity/token"
	iamGrantType = "urn:ibm:params:oauth:grant-type:apikey"
)

// AuthHeaders sets the JSON content headers and a bearer token. An explicit
// token on the credential is used as-is; otherwise the API key is exchanged
// for an IAM access token.
func (a *Adapter) AuthHeaders(ctx context.Context, h http.Header, cred *credential.Credential) (http.Header, error) {
	if h == nil {
		h = make(http.Header)
	}
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")

	token := ""
	if cred != nil {
		token = cred.Token
	}
	if token == "" {
		apiKey, err := cred.Require(credential.KindAPIKey)
		if err != nil {
			return nil, err
		}
		token, err = a.iam.token(ctx, apiKey)
		if err != nil {
			return nil, err
		}
	}

	h.Set("Authorization", "Bearer "+token)
	return h, nil
}

// iamClient exchanges IBM Cloud API keys for IAM access tokens and caches
// them until shortly before expiry.
type iamClient struct {
	client *http.Client
	url    string

	mu     sync.Mutex
	tokens map[string]iamToken
}

type iamToken struct {
	value     string
	expiresAt time.Time
}

func newIAMClient(client *http.Client) *iamClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &iamClient{
		client: client,
		url:    iamTokenURL,
		tokens: make(map[string]iamToken),
	}
}

func (c *iamClient) token(ctx context.Context, apiKey string) (string, error) {
	c.mu.Lock()
	if cached, ok := c.tokens[apiKey]; ok && time.Now().Before(cached.expiresAt) {
		c.mu.Unlock()
		return cached.value, nil
	}
	c.mu.Unlock()

	form := url.Values{}
	form.Set("grant_type", iamGrantType)
	form.Set("apikey", apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("iam token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", &types.ProviderError{
			Provider:   "watsonx",
			StatusCode: resp.StatusCode,
			Message:    "iam token issuance failed: " + strings.TrimSpace(string(body)),
			Headers:    resp.Header,
		}
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decoding iam token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", errors.New("iam token response missing access_token")
	}

	// Refresh a minute early so in-flight requests never carry a token that
	// expires mid-call.
	expiresAt := time.Now().Add(50 * time.Minute)
	if parsed.ExpiresIn > 0 {
		expiresAt = time.Now().Add(time.Duration(parsed.ExpiresIn)*time.Second - time.Minute)
	}

	c.mu.Lock()
	c.tokens[apiKey] = iamToken{value: parsed.AccessToken, expiresAt: expiresAt}
	c.mu.Unlock()

	return parsed.AccessToken, nil
}
