package cli

import (
	"errors"
	"strings"
	"testing"

	"github.com/richinex/docvoice/config"
	"github.com/richinex/docvoice/model"
)

func TestNewProvidersUsesProviderKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	settings, err := config.New("claude")
	if err != nil {
		t.Fatalf("config.New: %v", err)
	}

	strict, creative, err := newProviders(settings, false)
	if err != nil {
		t.Fatalf("newProviders: %v", err)
	}
	if strict == nil || creative == nil {
		t.Fatal("expected both providers")
	}
}

func TestNewProvidersMissingKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "other-provider-key")
	settings, err := config.New("anthropic")
	if err != nil {
		t.Fatalf("config.New: %v", err)
	}

	_, _, err = newProviders(settings, false)
	if !errors.Is(err, model.ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
	if !strings.Contains(err.Error(), "ANTHROPIC_API_KEY") {
		t.Errorf("error %q does not name ANTHROPIC_API_KEY", err)
	}
}
