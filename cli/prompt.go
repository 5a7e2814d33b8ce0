package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/richinex/docvoice/model"
)

// apiKey returns the key in env. When it is unset and prompt is allowed
// on an interactive terminal, the user is asked once and the answer is
// kept in the environment for the rest of the process.
func apiKey(env string, prompt bool) (string, error) {
	if key := strings.TrimSpace(os.Getenv(env)); key != "" {
		return key, nil
	}
	if !prompt || !term.IsTerminal(os.Stdin.Fd()) {
		return "", fmt.Errorf("%w: %s not set", model.ErrMissingCredentials, env)
	}

	key, err := readSecret(fmt.Sprintf("%s is not set. Enter API key (blank to skip): ", env))
	if err != nil {
		return "", fmt.Errorf("%w: reading %s: %w", model.ErrMissingCredentials, env, err)
	}
	if key == "" {
		return "", fmt.Errorf("%w: %s not set", model.ErrMissingCredentials, env)
	}
	os.Setenv(env, key)
	return key, nil
}

func readSecret(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	defer fmt.Fprintln(os.Stderr)

	raw, err := term.ReadPassword(os.Stdin.Fd())
	if err == nil {
		return strings.TrimSpace(string(raw)), nil
	}
	// fall back to an echoed line when the terminal refuses raw mode
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
