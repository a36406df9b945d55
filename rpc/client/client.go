package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"foodcourt/core/types"
	"foodcourt/crypto"
	"foodcourt/rpc"
)

const defaultTimeout = 15 * time.Second

// Client is a typed JSON-RPC client for a foodcourt node.
type Client struct {
	endpoint string
	http     *http.Client
	nextID   atomic.Uint64
}

// New returns a client for endpoint (e.g. http://127.0.0.1:8545). A nil
// httpClient selects one with a 15s timeout.
func New(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{endpoint: strings.TrimRight(endpoint, "/") + "/", http: httpClient}
}

// IsCode reports whether err is a JSON-RPC error with the given code.
func IsCode(err error, code int) bool {
	var rpcErr *rpc.RPCError
	return errors.As(err, &rpcErr) && rpcErr.Code == code
}

// Call performs a raw JSON-RPC call and decodes the result into out. Errors
// returned by the node are *rpc.RPCError.
func (c *Client) Call(ctx context.Context, method string, out interface{}, params ...interface{}) error {
	rawParams := make([]json.RawMessage, 0, len(params))
	for _, p := range params {
		encoded, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode %s params: %w", method, err)
		}
		rawParams = append(rawParams, encoded)
	}
	id, _ := json.Marshal(c.nextID.Add(1))
	body, err := json.Marshal(rpc.RPCRequest{JSONRPC: "2.0", Method: method, Params: rawParams, ID: id})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *rpc.RPCError   `json:"error"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return fmt.Errorf("decode %s response (status %d): %w", method, resp.StatusCode, err)
	}
	if envelope.Error != nil {
		return envelope.Error
	}
	if out == nil || len(envelope.Result) == 0 {
		return nil
	}
	return json.Unmarshal(envelope.Result, out)
}

func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) (*rpc.ReceiptResult, error) {
	var out rpc.ReceiptResult
	if err := c.Call(ctx, "participants_sendTransaction", &out, tx); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetCustomer(ctx context.Context, addr crypto.Address) (*rpc.CustomerResult, error) {
	var out rpc.CustomerResult
	if err := c.Call(ctx, "participants_getCustomer", &out, addr.String()); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetStore(ctx context.Context, addr crypto.Address) (*rpc.StoreResult, error) {
	var out rpc.StoreResult
	if err := c.Call(ctx, "participants_getStore", &out, addr.String()); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) StoreExists(ctx context.Context, addr crypto.Address) (bool, error) {
	var out bool
	err := c.Call(ctx, "participants_storeExists", &out, addr.String())
	return out, err
}

func (c *Client) GetUserTier(ctx context.Context, addr crypto.Address) (*rpc.TierResult, error) {
	var out rpc.TierResult
	if err := c.Call(ctx, "participants_getUserTier", &out, addr.String()); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetNonce(ctx context.Context, addr crypto.Address) (uint64, error) {
	var out rpc.NonceResult
	if err := c.Call(ctx, "participants_getNonce", &out, addr.String()); err != nil {
		return 0, err
	}
	return out.Nonce, nil
}

func (c *Client) Info(ctx context.Context) (*rpc.InfoResult, error) {
	var out rpc.InfoResult
	if err := c.Call(ctx, "participants_info", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListEvents(ctx context.Context, filter rpc.ListEventsParams) ([]rpc.EventResult, error) {
	var out []rpc.EventResult
	if err := c.Call(ctx, "participants_listEvents", &out, filter); err != nil {
		return nil, err
	}
	return out, nil
}

// SignAndSend fetches the sender's nonce, signs a transaction carrying payload
// and submits it.
func (c *Client) SignAndSend(ctx context.Context, key *crypto.PrivateKey, chainID uint64, txType types.TxType, payload interface{}) (*rpc.ReceiptResult, error) {
	nonce, err := c.GetNonce(ctx, key.PubKey().Address())
	if err != nil {
		return nil, fmt.Errorf("fetch nonce: %w", err)
	}
	tx, err := types.NewTransaction(chainID, txType, nonce, payload)
	if err != nil {
		return nil, err
	}
	if err := tx.Sign(key.PrivateKey); err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return c.SendTransaction(ctx, tx)
}
