package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"foodcourt/cmd/internal/passphrase"
	"foodcourt/config"
	"foodcourt/crypto"
)

// passphraseSource is swapped in tests.
var passphraseSource = func(label string, confirm bool) func() (string, error) {
	src := passphrase.NewSource(config.KeyPassphraseEnv, label)
	if confirm {
		src = src.WithConfirmation()
	}
	return src.Get
}

func runKeygen(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var out string
	var fromHex string
	var light bool
	fs.StringVar(&out, "out", "", "path of the keystore file to create")
	fs.StringVar(&fromHex, "from-hex", "", "import this hex private key instead of generating one")
	fs.BoolVar(&light, "lightkdf", false, "use a cheaper scrypt cost (test keys only)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	path := strings.TrimSpace(out)
	if path == "" {
		fmt.Fprintln(stderr, "Error: --out is required")
		return 1
	}
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(stderr, "Error: %s already exists\n", path)
		return 1
	}

	pass, err := passphraseSource("new keystore", true)()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	key, err := keyFromFlag(fromHex)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	params := crypto.StandardKeystoreParams
	if light {
		params = crypto.LightKeystoreParams
	}
	if err := crypto.SaveToKeystoreWithParams(path, key, pass, params); err != nil {
		fmt.Fprintf(stderr, "Error writing keystore: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, key.PubKey().Address().String())
	return 0
}

func keyFromFlag(raw string) (*crypto.PrivateKey, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	if trimmed == "" {
		return crypto.GeneratePrivateKey()
	}
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid --from-hex: %w", err)
	}
	key, err := crypto.PrivateKeyFromBytes(decoded)
	if err != nil {
		return nil, fmt.Errorf("invalid --from-hex: %w", err)
	}
	return key, nil
}

func runAddress(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("address", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var keyPath string
	fs.StringVar(&keyPath, "key", "", "keystore file")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if strings.TrimSpace(keyPath) == "" {
		fmt.Fprintln(stderr, "Error: --key is required")
		return 1
	}
	addr, err := crypto.KeystoreAddress(keyPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, addr.String())
	return 0
}

func loadSigner(keyPath string) (*crypto.PrivateKey, error) {
	path := strings.TrimSpace(keyPath)
	if path == "" {
		return nil, fmt.Errorf("--key is required")
	}
	pass, err := passphraseSource("keystore "+path, false)()
	if err != nil {
		return nil, err
	}
	key, err := crypto.LoadFromKeystore(path, pass)
	if err != nil {
		return nil, fmt.Errorf("load keystore: %w", err)
	}
	return key, nil
}
