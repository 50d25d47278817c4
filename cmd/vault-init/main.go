package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"shardkeep/internal/vault"
)

func main() {
	dir := strings.TrimSpace(os.Getenv("SHARD_VAULT_DIR"))
	if len(os.Args) == 2 {
		dir = os.Args[1]
	}
	if dir == "" {
		fmt.Fprintln(os.Stderr, "usage: go run ./cmd/vault-init <dir> (or set SHARD_VAULT_DIR)")
		os.Exit(2)
	}
	if vault.StatusOf(dir) == vault.StatusExisting {
		fmt.Fprintf(os.Stderr, "vault already exists in %s\n", dir)
		os.Exit(1)
	}

	password, err := promptPassword("Vault password: ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if password == "" {
		fmt.Fprintln(os.Stderr, "password must not be empty")
		os.Exit(1)
	}
	confirm, err := promptPassword("Confirm: ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if password != confirm {
		fmt.Fprintln(os.Stderr, "passwords do not match")
		os.Exit(1)
	}

	v, err := vault.Init(dir, password)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer v.Close()

	fmt.Fprintf(os.Stderr, "created vault in %s\n", dir)
}

func promptPassword(prompt string) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", errors.New("stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(string(pass)), nil
}
