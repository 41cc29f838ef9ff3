// Command keytool encrypts a wallet private key into the JSON keystore format
// the bot reads via wallet.encrypted_key_path, so the raw key never has to
// live in the config file or environment of a deployed instance.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/mihnea-popescu/polymarket-copy-trading-bot-v1/internal/crypto"
)

func main() {
	out := flag.String("out", "wallet.key.json", "path to write the encrypted keystore")
	flag.Parse()

	fmt.Fprint(os.Stderr, "private key (hex): ")
	reader := bufio.NewReader(os.Stdin)
	keyHex, err := reader.ReadString('\n')
	if err != nil {
		fmt.Fprintf(os.Stderr, "keytool: read key: %v\n", err)
		os.Exit(1)
	}
	keyHex = strings.TrimSpace(keyHex)

	fmt.Fprint(os.Stderr, "password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "keytool: read password: %v\n", err)
		os.Exit(1)
	}

	blob, err := crypto.EncryptKey(keyHex, string(password))
	if err != nil {
		fmt.Fprintf(os.Stderr, "keytool: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(*out, blob, 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "keytool: write %s: %v\n", *out, err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "encrypted keystore written to %s\n", *out)
}
