package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/holiman/uint256"

	"foodcourt/core/types"
	"foodcourt/crypto"
	"foodcourt/native/participants"
)

// txFlags holds the flags shared by every signing command.
type txFlags struct {
	key     string
	chainID uint64
}

func (f *txFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.key, "key", "", "keystore file of the signer")
	fs.Uint64Var(&f.chainID, "chain-id", 0, "chain id to sign for (default: ask the node)")
}

func newTxFlagSet(name string, stderr io.Writer) (*flag.FlagSet, *txFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	f := &txFlags{}
	f.register(fs)
	return fs, f
}

func parseTierFlag(raw string) (participants.Tier, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, fmt.Errorf("--tier is required")
	}
	return participants.ParseTier(trimmed)
}

func parseAddressFlag(name, raw string) ([20]byte, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return [20]byte{}, fmt.Errorf("--%s is required", name)
	}
	addr, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return [20]byte{}, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return addr.Bytes20(), nil
}

func runRegisterCustomer(args []string, stdout, stderr io.Writer) int {
	fs, f := newTxFlagSet("register-customer", stderr)
	var tierRaw, balanceRaw string
	fs.StringVar(&tierRaw, "tier", "silver", "silver, gold or platinum")
	fs.StringVar(&balanceRaw, "balance", "", "initial balance (registries with customer balances only)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	tier, err := parseTierFlag(tierRaw)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	payload := &types.RegisterCustomerPayload{Tier: uint8(tier)}
	if trimmed := strings.TrimSpace(balanceRaw); trimmed != "" {
		balance, err := uint256.FromDecimal(trimmed)
		if err != nil {
			fmt.Fprintf(stderr, "Error: invalid --balance: %v\n", err)
			return 1
		}
		payload.Balance = balance
	}
	return submit(f, types.TxTypeRegisterCustomer, payload, stdout, stderr)
}

func runRegisterStore(args []string, stdout, stderr io.Writer) int {
	fs, f := newTxFlagSet("register-store", stderr)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	return submit(f, types.TxTypeRegisterStore, &types.RegisterStorePayload{}, stdout, stderr)
}

func runUpdateTier(args []string, stdout, stderr io.Writer) int {
	fs, f := newTxFlagSet("update-tier", stderr)
	var customerRaw, tierRaw string
	fs.StringVar(&customerRaw, "customer", "", "customer address")
	fs.StringVar(&tierRaw, "tier", "", "new tier")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	customer, err := parseAddressFlag("customer", customerRaw)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	tier, err := parseTierFlag(tierRaw)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return submit(f, types.TxTypeUpdateCustomerTier,
		&types.UpdateCustomerTierPayload{Customer: customer, Tier: uint8(tier)}, stdout, stderr)
}

func runDeleteCustomer(args []string, stdout, stderr io.Writer) int {
	fs, f := newTxFlagSet("delete-customer", stderr)
	var customerRaw string
	fs.StringVar(&customerRaw, "customer", "", "customer address")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	customer, err := parseAddressFlag("customer", customerRaw)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return submit(f, types.TxTypeDeleteCustomer, &types.DeleteCustomerPayload{Customer: customer}, stdout, stderr)
}

func runDeleteStore(args []string, stdout, stderr io.Writer) int {
	fs, f := newTxFlagSet("delete-store", stderr)
	var storeRaw string
	fs.StringVar(&storeRaw, "store", "", "store address")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	store, err := parseAddressFlag("store", storeRaw)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return submit(f, types.TxTypeDeleteStore, &types.DeleteStorePayload{Store: store}, stdout, stderr)
}

func submit(f *txFlags, txType types.TxType, payload interface{}, stdout, stderr io.Writer) int {
	key, err := loadSigner(f.key)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	ctx, cancel := callContext()
	defer cancel()

	c := newClient(rpcEndpoint)
	chainID := f.chainID
	if chainID == 0 {
		info, err := c.Info(ctx)
		if err != nil {
			return handleCallError(stderr, err)
		}
		chainID = info.ChainID
	}
	receipt, err := c.SignAndSend(ctx, key, chainID, txType, payload)
	if err != nil {
		return handleCallError(stderr, err)
	}
	writeResult(stdout, receipt)
	return 0
}
