// Package ledger reads reputation accounts from a Solana program over
// JSON-RPC.
package ledger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

var (
	// timeout is the timeout for one RPC request. Default to 30 seconds.
	timeout = 30 * time.Second
)

// Account is one program account with its decoded identity.
type Account struct {
	Pubkey   string
	Identity *Identity
}

// Client fetches UserIdentity accounts of one program.
type Client struct {
	rpcURL    string
	programID string
	client    *http.Client
	limiter   *rate.Limiter
}

// NewClient creates a Client. rps <= 0 disables rate limiting.
func NewClient(rpcURL, programID string, rps float64) *Client {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Client{
		rpcURL:    rpcURL,
		programID: programID,
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(limit, 1),
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type programAccount struct {
	Pubkey  string `json:"pubkey"`
	Account struct {
		// [payload, encoding]
		Data []string `json:"data"`
	} `json:"account"`
}

type programAccountsResponse struct {
	Result []programAccount `json:"result"`
	Error  *rpcError        `json:"error"`
}

// Snapshot returns every account of the program that decodes as a
// UserIdentity. Other accounts are skipped.
func (c *Client) Snapshot(ctx context.Context) ([]Account, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(&rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "getProgramAccounts",
		Params: []any{
			c.programID,
			map[string]string{"encoding": "base64", "commitment": "confirmed"},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal rpc request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to construct rpc request to %s", c.rpcURL)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to call %s", c.rpcURL)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read rpc response from %s", c.rpcURL)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Errorf("rpc %s returned status code %d, response body: %s", c.rpcURL, resp.StatusCode, b)
	}

	var out programAccountsResponse
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal rpc response from %s", c.rpcURL)
	}
	if out.Error != nil {
		return nil, errors.Errorf("rpc error %d: %s", out.Error.Code, out.Error.Message)
	}

	accounts := make([]Account, 0, len(out.Result))
	for _, pa := range out.Result {
		if len(pa.Account.Data) == 0 {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(pa.Account.Data[0])
		if err != nil {
			slog.Warn("skipping account with undecodable data", "pubkey", pa.Pubkey, "error", err)
			continue
		}
		id := ParseIdentity(raw)
		if id == nil {
			continue
		}
		accounts = append(accounts, Account{Pubkey: pa.Pubkey, Identity: id})
	}
	return accounts, nil
}
