package cmd

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"
)

// readPassphrase prompts on the terminal without echoing the input.
func readPassphrase(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("passphrase required, stdin is not a terminal")
	}

	fmt.Fprint(os.Stderr, prompt)
	pass, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}

	return string(pass), nil
}
