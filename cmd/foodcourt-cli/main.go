package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"foodcourt/rpc"
	"foodcourt/rpc/client"
)

const (
	rpcURLEnv     = "FOODCOURT_RPC_URL"
	callTimeout   = 30 * time.Second
	defaultRPCURL = "http://127.0.0.1:8545"
)

var rpcEndpoint = defaultRPCEndpoint()

// newClient is swapped in tests.
var newClient = func(endpoint string) *client.Client {
	return client.New(endpoint, nil)
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	args, err := applyGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if len(args) < 1 {
		fmt.Fprintln(stderr, usage())
		return 1
	}

	switch args[0] {
	case "keygen":
		return runKeygen(args[1:], stdout, stderr)
	case "address":
		return runAddress(args[1:], stdout, stderr)
	case "register-customer":
		return runRegisterCustomer(args[1:], stdout, stderr)
	case "register-store":
		return runRegisterStore(args[1:], stdout, stderr)
	case "update-tier":
		return runUpdateTier(args[1:], stdout, stderr)
	case "delete-customer":
		return runDeleteCustomer(args[1:], stdout, stderr)
	case "delete-store":
		return runDeleteStore(args[1:], stdout, stderr)
	case "customer", "store", "store-exists", "tier", "nonce":
		return runAddressQuery(args[0], args[1:], stdout, stderr)
	case "info":
		return runInfo(args[1:], stdout, stderr)
	case "events":
		return runEvents(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, usage())
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		fmt.Fprintln(stderr, usage())
		return 1
	}
}

func usage() string {
	return strings.TrimSpace(`Usage:
  foodcourt-cli [--rpc URL] <command> [flags]

Keys:
  keygen             Create a new keystore
  address            Print the address held by a keystore

Transactions (signed with --key):
  register-customer  Register the signer as a customer
  register-store     Register the signer as a store
  update-tier        Change a customer's tier (owner only)
  delete-customer    Remove a customer (owner only)
  delete-store       Remove a store (owner only)

Queries:
  customer <addr>      Show a customer record
  store <addr>         Show a store record
  store-exists <addr>  Report whether a store is registered
  tier <addr>          Show a customer's tier
  nonce <addr>         Show the next nonce for an address
  info                 Show chain id, height, owner and profile
  events               List committed events

The RPC endpoint defaults to $FOODCOURT_RPC_URL or http://127.0.0.1:8545.
Keystore passphrases are read from $FOODCOURT_KEY_PASS or prompted.`)
}

func defaultRPCEndpoint() string {
	if v := strings.TrimSpace(os.Getenv(rpcURLEnv)); v != "" {
		return v
	}
	return defaultRPCURL
}

func applyGlobalFlags(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--rpc" {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for --rpc")
			}
			rpcEndpoint = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--rpc=") {
			rpcEndpoint = strings.TrimPrefix(arg, "--rpc=")
			continue
		}
		out = append(out, arg)
	}
	return out, nil
}

func callContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), callTimeout)
}

func writeResult(stdout io.Writer, result interface{}) {
	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(stdout, "%v\n", result)
		return
	}
	fmt.Fprintln(stdout, string(encoded))
}

func handleCallError(stderr io.Writer, err error) int {
	var rpcErr *rpc.RPCError
	if errors.As(err, &rpcErr) {
		fmt.Fprintf(stderr, "Error %d: %s\n", rpcErr.Code, rpcErr.Message)
		return 2
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}
