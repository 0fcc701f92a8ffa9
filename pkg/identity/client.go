// Package identity is a small client for the Identity Toolkit REST API used by
// the hosted auth provider. It uses raw HTTP calls; no SDK.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the public Identity Toolkit v1 endpoint.
const DefaultBaseURL = "https://identitytoolkit.googleapis.com/v1"

// Provider ids accepted by SignInWithIdP.
const (
	ProviderGoogle = "google.com"
	ProviderApple  = "apple.com"
)

// Account is the signed-in account returned by every sign-in call.
type Account struct {
	UserID      string `json:"localId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	IDToken     string `json:"idToken"`
	// IsNewUser is only reported by SignInWithIdP.
	IsNewUser bool `json:"isNewUser"`
}

// Client is the interface of the auth provider.
type Client interface {
	// SignUp creates an email/password account.
	SignUp(ctx context.Context, email, password string) (*Account, error)
	// SignInWithPassword signs in an email/password account.
	SignInWithPassword(ctx context.Context, email, password string) (*Account, error)
	// SignInWithIdP exchanges an OAuth id token from providerID for an account.
	SignInWithIdP(ctx context.Context, providerID, idToken, requestURI string) (*Account, error)
}

// RealClient calls the Identity Toolkit API over HTTP.
type RealClient struct {
	APIKey     string
	BaseURL    string
	httpClient *http.Client
}

var _ Client = (*RealClient)(nil)

// NewClient creates a RealClient. An empty baseURL selects DefaultBaseURL.
func NewClient(apiKey, baseURL string) *RealClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &RealClient{
		APIKey:     apiKey,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("identity: not configured")

// SignUp creates an email/password account.
func (c *RealClient) SignUp(ctx context.Context, email, password string) (*Account, error) {
	var acc Account
	err := c.post(ctx, "accounts:signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &acc)
	if err != nil {
		return nil, err
	}
	acc.IsNewUser = true
	return &acc, nil
}

// SignInWithPassword signs in an email/password account.
func (c *RealClient) SignInWithPassword(ctx context.Context, email, password string) (*Account, error) {
	var acc Account
	err := c.post(ctx, "accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &acc)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

type idpResponse struct {
	Account
	FullName         string `json:"fullName"`
	NeedConfirmation bool   `json:"needConfirmation"`
	ErrorMessage     string `json:"errorMessage"`
}

// SignInWithIdP exchanges a provider id token for an account. An email that
// already belongs to an account of another provider yields
// CodeAccountExistsWithDifferentCredential.
func (c *RealClient) SignInWithIdP(ctx context.Context, providerID, idToken, requestURI string) (*Account, error) {
	postBody := url.Values{}
	postBody.Set("id_token", idToken)
	postBody.Set("providerId", providerID)

	var resp idpResponse
	err := c.post(ctx, "accounts:signInWithIdp", map[string]any{
		"postBody":            postBody.Encode(),
		"requestUri":          requestURI,
		"returnSecureToken":   true,
		"returnIdpCredential": true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.NeedConfirmation || resp.ErrorMessage == "FEDERATED_USER_ID_ALREADY_LINKED" {
		return nil, &Error{Code: CodeAccountExistsWithDifferentCredential, Message: "NEED_CONFIRMATION"}
	}
	if resp.DisplayName == "" {
		resp.DisplayName = resp.FullName
	}
	return &resp.Account, nil
}

func (c *RealClient) post(ctx context.Context, method string, body any, out any) error {
	if c.APIKey == "" {
		return ErrNotConfigured
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	// The key travels in a header so transport errors, which quote the URL,
	// never carry it.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/"+method, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return errorFromMessage(errResp.Error.Message)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("identity %s: decode response: %w", method, err)
	}
	return nil
}
