package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"shardkeep/internal/vault"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: go run ./cmd/shard-export <output-dir>")
		os.Exit(2)
	}
	outDir := os.Args[1]

	dir := strings.TrimSpace(os.Getenv("SHARD_VAULT_DIR"))
	if dir == "" {
		fmt.Fprintln(os.Stderr, "SHARD_VAULT_DIR is required")
		os.Exit(2)
	}
	if vault.StatusOf(dir) == vault.StatusNew {
		fmt.Fprintf(os.Stderr, "no vault found in %s\n", dir)
		os.Exit(1)
	}

	password := os.Getenv("SHARD_PASSWORD")
	if password == "" {
		var err error
		password, err = promptPassword("Vault password: ")
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	v, err := vault.Open(dir, password)
	if errors.Is(err, vault.ErrWrongPassword) {
		fmt.Fprintln(os.Stderr, "wrong vault password")
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer v.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	n, err := v.ExportShards(ctx, outDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "exported %d shards to %s\n", n, outDir)
}

func promptPassword(prompt string) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", errors.New("SHARD_PASSWORD is not set and stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(string(pass)), nil
}
