package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrOAuthVerification is the single error surfaced for every provider-token
// failure: unreachable endpoint, audience mismatch, email mismatch. The
// sub-cases are logged, never exposed.
var ErrOAuthVerification = errors.New("token verification failed")

type tokenInfo struct {
	Aud   string `json:"aud"`
	Azp   string `json:"azp"`
	Email string `json:"email"`
}

// GoogleOAuthClient verifies caller-supplied Google access tokens against
// the tokeninfo introspection endpoint. Stateless; authentication fails
// closed on any transport error.
type GoogleOAuthClient struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
	retries    int
}

func NewGoogleOAuthClient(clientID string) *GoogleOAuthClient {
	return &GoogleOAuthClient{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    "https://www.googleapis.com/oauth2/v3/tokeninfo",
		clientID:   clientID,
		retries:    2,
	}
}

// VerifyToken introspects the access token and checks that it was issued for
// this application and for the claimed email. Returns the verified email.
func (c *GoogleOAuthClient) VerifyToken(accessToken, claimedEmail string) (string, error) {
	info, err := c.introspect(accessToken)
	if err != nil {
		return "", ErrOAuthVerification
	}

	// Access tokens may carry the client id in azp rather than aud.
	if info.Aud != c.clientID && info.Azp != c.clientID {
		return "", ErrOAuthVerification
	}
	if info.Email == "" || !strings.EqualFold(info.Email, claimedEmail) {
		return "", ErrOAuthVerification
	}
	return info.Email, nil
}

func (c *GoogleOAuthClient) introspect(accessToken string) (*tokenInfo, error) {
	reqURL := c.baseURL + "?access_token=" + url.QueryEscape(accessToken)

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * 200 * time.Millisecond)
		}

		info, err := c.fetch(reqURL)
		if err == nil {
			return info, nil
		}
		lastErr = err

		// A definitive rejection from the provider is not retryable.
		if errors.Is(err, errIntrospectionRejected) {
			break
		}
	}
	return nil, lastErr
}

var errIntrospectionRejected = errors.New("introspection rejected token")

func (c *GoogleOAuthClient) fetch(reqURL string) (*tokenInfo, error) {
	resp, err := c.httpClient.Get(reqURL)
	if err != nil {
		return nil, fmt.Errorf("tokeninfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
		return nil, errIntrospectionRejected
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tokeninfo returned status %d", resp.StatusCode)
	}

	var info tokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode tokeninfo response: %w", err)
	}
	return &info, nil
}
