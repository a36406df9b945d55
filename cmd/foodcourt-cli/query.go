package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"foodcourt/crypto"
	"foodcourt/rpc"
)

func runAddressQuery(command string, args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintf(stderr, "Usage: foodcourt-cli %s <address>\n", command)
		return 1
	}
	addr, err := crypto.DecodeAddress(strings.TrimSpace(args[0]))
	if err != nil {
		fmt.Fprintf(stderr, "Error: invalid address: %v\n", err)
		return 1
	}
	ctx, cancel := callContext()
	defer cancel()
	c := newClient(rpcEndpoint)

	var result interface{}
	switch command {
	case "customer":
		result, err = c.GetCustomer(ctx, addr)
	case "store":
		result, err = c.GetStore(ctx, addr)
	case "store-exists":
		result, err = c.StoreExists(ctx, addr)
	case "tier":
		result, err = c.GetUserTier(ctx, addr)
	case "nonce":
		result, err = c.GetNonce(ctx, addr)
	}
	if err != nil {
		return handleCallError(stderr, err)
	}
	writeResult(stdout, result)
	return 0
}

func runInfo(args []string, stdout, stderr io.Writer) int {
	if len(args) != 0 {
		fmt.Fprintln(stderr, "Usage: foodcourt-cli info")
		return 1
	}
	ctx, cancel := callContext()
	defer cancel()
	info, err := newClient(rpcEndpoint).Info(ctx)
	if err != nil {
		return handleCallError(stderr, err)
	}
	writeResult(stdout, info)
	return 0
}

func runEvents(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("events", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var filter rpc.ListEventsParams
	fs.Uint64Var(&filter.FromHeight, "from", 0, "first height to include")
	fs.IntVar(&filter.Limit, "limit", 100, "maximum number of events")
	fs.StringVar(&filter.Type, "type", "", "only events of this type")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(stderr, "Error: unexpected positional arguments")
		return 1
	}
	ctx, cancel := callContext()
	defer cancel()
	entries, err := newClient(rpcEndpoint).ListEvents(ctx, filter)
	if err != nil {
		return handleCallError(stderr, err)
	}
	writeResult(stdout, entries)
	return 0
}
