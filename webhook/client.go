// Package webhook notifies the storefront ops endpoint about settled game
// sessions. Notifications are advisory: the ledger already holds the
// authoritative balance, so a failed callback is logged and never retried or
// rolled back.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
)

type Client struct {
	endpoint string
	secret   string
	http     *http.Client
}

func NewClient(endpoint, secret string) *Client {
	return &Client{
		endpoint: endpoint,
		secret:   secret,
		http:     &http.Client{},
	}
}

// Settlement reports one settled session: the recorded wager, the payout and
// the outcome it was computed from.
func (c *Client) Settlement(userID, sessionID, gameCode, outcome string, wager, payout int64) error {
	return c.call(map[string]string{
		"action":       "settlement",
		"user_id":      userID,
		"session_id":   sessionID,
		"game_code":    gameCode,
		"round_status": outcome,
		"bet_amount":   strconv.FormatInt(wager, 10),
		"win_amount":   strconv.FormatInt(payout, 10),
	})
}

func (c *Client) call(params map[string]string) error {
	values := url.Values{}
	for k, v := range params {
		if v != "" {
			values.Set(k, v)
		}
	}
	if c.secret != "" {
		values.Set("signature", c.sign(values))
	}
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return err
	}
	u.RawQuery = values.Encode()
	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	var parsed struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return err
	}
	if parsed.Code != 0 {
		return fmt.Errorf("webhook: %s (%d)", parsed.Message, parsed.Code)
	}
	return nil
}

// sign concatenates the values of all params except "action" in key order and
// HMAC-SHA256s them with the shared secret.
func (c *Client) sign(v url.Values) string {
	keys := make([]string, 0, len(v))
	for k := range v {
		if k == "action" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	buf := make([]byte, 0, 256)
	for _, k := range keys {
		buf = append(buf, v.Get(k)...)
	}
	m := hmac.New(sha256.New, []byte(c.secret))
	m.Write(buf)
	return hex.EncodeToString(m.Sum(nil))
}
