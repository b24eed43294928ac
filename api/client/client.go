package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"emberchain/api/server"
	"emberchain/core/block"
	"emberchain/core/chain"
)

const DefaultURL = "http://localhost:8080"

// Client talks to a node's HTTP API.
type Client struct {
	BaseURL string
	// Token is sent as a bearer token on operator calls.
	Token string
	HTTP  *http.Client
}

func New(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

// APIError is a non-2xx answer from the node.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("node returned %d: %s", e.Status, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, auth bool, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth && c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func (c *Client) Status(ctx context.Context) (server.StatusResponse, error) {
	var s server.StatusResponse
	err := c.do(ctx, http.MethodGet, "/status", nil, false, &s)
	return s, err
}

func (c *Client) Account(ctx context.Context, addr string) (chain.Account, error) {
	var a chain.Account
	err := c.do(ctx, http.MethodGet, "/balances/"+addr, nil, false, &a)
	return a, err
}

func (c *Client) Mempool(ctx context.Context) ([]server.PendingTx, error) {
	var txs []server.PendingTx
	err := c.do(ctx, http.MethodGet, "/mempool", nil, false, &txs)
	return txs, err
}

// SubmitTransaction posts a signed transaction and returns its ID.
func (c *Client) SubmitTransaction(ctx context.Context, tx *block.Transaction) (string, error) {
	raw, err := tx.Serialize()
	if err != nil {
		return "", err
	}
	var resp server.SubmitResponse
	if err := c.do(ctx, http.MethodPost, "/transactions", raw, false, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// RunRound asks the node to run a consensus round now. Requires an
// operator token.
func (c *Client) RunRound(ctx context.Context) (server.RoundResponse, error) {
	var r server.RoundResponse
	err := c.do(ctx, http.MethodPost, "/rounds", nil, true, &r)
	return r, err
}
