// Package storefront calls the storefront web app, which owns accounts,
// cookies and password handling. The game server only needs one thing from
// it: resolving a session token to a user id.
package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:3000"
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{},
	}
}

// VerifySession resolves a session token to the authenticated user's id.
// Token = session token issued by the storefront on login.
func (c *Client) VerifySession(ctx context.Context, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/auth/session", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	var data struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &data)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("storefront: %s", data.Error)
	}
	if data.User.ID == "" {
		return "", fmt.Errorf("storefront: no user in session response")
	}
	return data.User.ID, nil
}
