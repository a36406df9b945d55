package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"foodcourt/core/types"
	"foodcourt/crypto"
)

func invalidParams(format string, args ...interface{}) (interface{}, *RPCError, int) {
	return nil, &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf(format, args...)}, http.StatusBadRequest
}

func failed(err error) (interface{}, *RPCError, int) {
	status, rpcErr := errorFor(err)
	return nil, rpcErr, status
}

func ok(result interface{}) (interface{}, *RPCError, int) {
	return result, nil, http.StatusOK
}

// addressParam decodes params[0] as a bech32 participant address.
func addressParam(req *RPCRequest) ([20]byte, error) {
	if len(req.Params) != 1 {
		return [20]byte{}, fmt.Errorf("expected a single address parameter")
	}
	var raw string
	if err := json.Unmarshal(req.Params[0], &raw); err != nil {
		return [20]byte{}, fmt.Errorf("address must be a string")
	}
	addr, err := crypto.DecodeAddress(strings.TrimSpace(raw))
	if err != nil {
		return [20]byte{}, fmt.Errorf("invalid address: %v", err)
	}
	return addr.Bytes20(), nil
}

func (s *Server) handleSendTransaction(ctx context.Context, req *RPCRequest) (interface{}, *RPCError, int) {
	if len(req.Params) != 1 {
		return invalidParams("expected a single transaction parameter")
	}
	var tx types.Transaction
	if err := json.Unmarshal(req.Params[0], &tx); err != nil {
		return invalidParams("invalid transaction: %v", err)
	}
	receipt, err := s.backend.Submit(ctx, &tx)
	if err != nil {
		s.logger.Info("transaction rejected",
			slog.String("requestId", requestIDFrom(ctx)),
			slog.String("txType", tx.Type.String()),
			slog.Any("error", err))
		return failed(err)
	}
	return ok(receiptResultFrom(receipt))
}

func (s *Server) handleGetCustomer(req *RPCRequest) (interface{}, *RPCError, int) {
	addr, err := addressParam(req)
	if err != nil {
		return invalidParams("%v", err)
	}
	customer, err := s.backend.GetCustomer(addr)
	if err != nil {
		return failed(err)
	}
	return ok(customerResultFrom(customer))
}

func (s *Server) handleGetStore(req *RPCRequest) (interface{}, *RPCError, int) {
	addr, err := addressParam(req)
	if err != nil {
		return invalidParams("%v", err)
	}
	store, err := s.backend.GetStore(addr)
	if err != nil {
		return failed(err)
	}
	return ok(StoreResult{Address: crypto.FromBytes20(store.Address).String()})
}

func (s *Server) handleStoreExists(req *RPCRequest) (interface{}, *RPCError, int) {
	addr, err := addressParam(req)
	if err != nil {
		return invalidParams("%v", err)
	}
	exists, err := s.backend.StoreExists(addr)
	if err != nil {
		return failed(err)
	}
	return ok(exists)
}

func (s *Server) handleGetUserTier(req *RPCRequest) (interface{}, *RPCError, int) {
	addr, err := addressParam(req)
	if err != nil {
		return invalidParams("%v", err)
	}
	tier, err := s.backend.GetUserTier(addr)
	if err != nil {
		return failed(err)
	}
	return ok(TierResult{
		Address:   crypto.FromBytes20(addr).String(),
		Tier:      tier.String(),
		TierValue: uint8(tier),
	})
}

func (s *Server) handleGetNonce(req *RPCRequest) (interface{}, *RPCError, int) {
	addr, err := addressParam(req)
	if err != nil {
		return invalidParams("%v", err)
	}
	nonce, err := s.backend.Nonce(addr)
	if err != nil {
		return failed(err)
	}
	return ok(NonceResult{Address: crypto.FromBytes20(addr).String(), Nonce: nonce})
}

func (s *Server) handleInfo(req *RPCRequest) (interface{}, *RPCError, int) {
	if len(req.Params) != 0 {
		return invalidParams("participants_info takes no parameters")
	}
	profile := s.backend.Profile()
	return ok(InfoResult{
		ChainID:      s.backend.ChainID(),
		Height:       s.backend.Height(),
		Root:         s.backend.Root().Hex(),
		Owner:        crypto.FromBytes20(s.backend.Owner()).String(),
		Profile:      profile.Name,
		Capabilities: capabilityNames(profile),
	})
}

func (s *Server) handleListEvents(req *RPCRequest) (interface{}, *RPCError, int) {
	if s.events == nil {
		return nil, &RPCError{Code: codeUnsupported, Message: "event journal disabled"}, http.StatusServiceUnavailable
	}
	var params ListEventsParams
	switch len(req.Params) {
	case 0:
	case 1:
		if err := json.Unmarshal(req.Params[0], &params); err != nil {
			return invalidParams("invalid filter: %v", err)
		}
	default:
		return invalidParams("expected at most one filter parameter")
	}
	if params.Limit < 0 {
		return invalidParams("limit must not be negative")
	}
	entries, err := s.events.List(params.FromHeight, params.Limit, params.Type)
	if err != nil {
		return failed(err)
	}
	out := make([]EventResult, 0, len(entries))
	for _, entry := range entries {
		out = append(out, EventResult{
			Height:     entry.Height,
			Index:      entry.Index,
			TxHash:     entry.TxHash,
			Type:       entry.Type,
			Attributes: entry.Attributes,
		})
	}
	return ok(out)
}
