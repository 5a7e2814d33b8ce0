// Tool executor with timeout and bounded retry of soft failures.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Executor provides tool execution with retry and timeout support.
type Executor struct {
	config ToolConfig
}

// NewExecutor creates a new tool executor with the given configuration.
func NewExecutor(config ToolConfig) *Executor {
	return &Executor{config: config}
}

// Execute validates args then runs the tool. Validation failures come back
// as a FailureResult. Soft failures are retried with backoff up to the
// configured attempt count. A hard error from the tool is returned at once.
func (e *Executor) Execute(ctx context.Context, tool Tool, args json.RawMessage) (ToolResult, error) {
	toolName := tool.Metadata().Name
	if err := tool.Validate(args); err != nil {
		return FailureResult(fmt.Errorf("validation failed: %w", err)), nil
	}

	attempts := e.config.Attempts()
	var last ToolResult
	for attempt := uint32(0); attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ToolResult{}, ctx.Err()
			case <-time.After(backoff(attempt)):
			}
		}

		result, err := e.runOnce(ctx, tool, args)
		if err != nil {
			return ToolResult{}, fmt.Errorf("tool %q: %w", toolName, err)
		}
		if result.Success() || !shouldRetry(result) {
			return result, nil
		}
		last = result
	}

	if attempts == 1 {
		return last, nil
	}
	return FailureResultf("tool '%s' failed after %d attempts: %v", toolName, attempts, last.Error), nil
}

func (e *Executor) runOnce(ctx context.Context, tool Tool, args json.RawMessage) (ToolResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout())
	defer cancel()
	return tool.Execute(ctx, args)
}

// backoff returns the delay before the given attempt.
func backoff(attempt uint32) time.Duration {
	const (
		baseDelay = 100 * time.Millisecond
		maxDelay  = 5 * time.Second
	)

	delay := baseDelay * time.Duration(1<<attempt)
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

// shouldRetry reports whether a soft failure looks transient.
func shouldRetry(result ToolResult) bool {
	errLower := strings.ToLower(result.Error.Error())
	for _, s := range []string{"validation", "not allowed", "permission", "empty", "required"} {
		if strings.Contains(errLower, s) {
			return false
		}
	}
	return true
}
