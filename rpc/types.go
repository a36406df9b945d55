package rpc

import (
	"encoding/json"
	"fmt"
	"strings"

	"foodcourt/core/types"
	"foodcourt/crypto"
	"foodcourt/native/participants"
)

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      json.RawMessage   `json:"id,omitempty"`
}

type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// CustomerResult is the JSON form of a customer record. Balance is omitted by
// registries without customer balances.
type CustomerResult struct {
	Address   string  `json:"address"`
	Tier      string  `json:"tier"`
	TierValue uint8   `json:"tierValue"`
	Balance   *string `json:"balance,omitempty"`
}

type StoreResult struct {
	Address string `json:"address"`
}

type TierResult struct {
	Address   string `json:"address"`
	Tier      string `json:"tier"`
	TierValue uint8  `json:"tierValue"`
}

type NonceResult struct {
	Address string `json:"address"`
	Nonce   uint64 `json:"nonce"`
}

type InfoResult struct {
	ChainID      uint64   `json:"chainId"`
	Height       uint64   `json:"height"`
	Root         string   `json:"root"`
	Owner        string   `json:"owner"`
	Profile      string   `json:"profile"`
	Capabilities []string `json:"capabilities"`
}

// EventResult is a committed event as returned by participants_listEvents and
// the websocket stream.
type EventResult struct {
	Cursor     string            `json:"cursor,omitempty"`
	Height     uint64            `json:"height"`
	Index      uint32            `json:"index"`
	TxHash     string            `json:"txHash"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// ReceiptResult reflects a committed transaction.
type ReceiptResult struct {
	TxHash string        `json:"txHash"`
	Type   string        `json:"type"`
	Sender string        `json:"sender"`
	Nonce  uint64        `json:"nonce"`
	Height uint64        `json:"height"`
	Root   string        `json:"root"`
	Events []types.Event `json:"events"`
}

// ListEventsParams filters participants_listEvents.
type ListEventsParams struct {
	FromHeight uint64 `json:"fromHeight"`
	Limit      int    `json:"limit"`
	Type       string `json:"type"`
}

func customerResultFrom(c *participants.Customer) CustomerResult {
	res := CustomerResult{
		Address:   crypto.FromBytes20(c.Address).String(),
		Tier:      c.Tier.String(),
		TierValue: uint8(c.Tier),
	}
	if c.Balance != nil {
		balance := c.Balance.Dec()
		res.Balance = &balance
	}
	return res
}

func receiptResultFrom(r *types.Receipt) ReceiptResult {
	evs := r.Events
	if evs == nil {
		evs = []types.Event{}
	}
	return ReceiptResult{
		TxHash: ensureHexPrefix(fmt.Sprintf("%x", r.TxHash)),
		Type:   r.Type.String(),
		Sender: crypto.FromBytes20(r.Sender).String(),
		Nonce:  r.Nonce,
		Height: r.Height,
		Root:   ensureHexPrefix(fmt.Sprintf("%x", r.Root)),
		Events: evs,
	}
}

func capabilityNames(p participants.Profile) []string {
	names := make([]string, 0, 3)
	if p.Has(participants.CapabilityStoreExists) {
		names = append(names, "storeExists")
	}
	if p.Has(participants.CapabilityStoreLookup) {
		names = append(names, "storeLookup")
	}
	if p.Has(participants.CapabilityCustomerBalance) {
		names = append(names, "customerBalance")
	}
	return names
}

// ensureHexPrefix normalises hash-like values to use a 0x prefix.
func ensureHexPrefix(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return trimmed
	}
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		return trimmed
	}
	return "0x" + trimmed
}
