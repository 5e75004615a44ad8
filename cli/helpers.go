package cli

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"
)

// ReadPassword prompts on stdout and reads a line from the terminal with
// echo disabled.
func ReadPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

// ReadNewPassword prompts twice for a new master password. The confirmation
// matters here: with no stored verifier, a typo would silently become the
// vault password.
func ReadNewPassword() (string, error) {
	pw, err := ReadPassword("Set master password: ")
	if err != nil {
		return "", err
	}
	if pw == "" {
		return "", errors.New("master password must not be empty")
	}
	confirm, err := ReadPassword("Confirm master password: ")
	if err != nil {
		return "", err
	}
	if pw != confirm {
		return "", errors.New("passwords do not match")
	}
	return pw, nil
}
