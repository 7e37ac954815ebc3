package batch

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"imgtagger/gemini"
)

var errEmptyResponse = &gemini.APIError{StatusCode: http.StatusOK, Message: "Empty response from API"}

// captionWithRetry makes up to retryAttempts calls with a constant delay between
// them. Every failure is retried; aborts are not. The last failure is returned
// unchanged, and a cancelled ctx always yields gemini.ErrAborted.
func (o *Orchestrator) captionWithRetry(ctx context.Context, c Captioner, req *gemini.CaptionRequest, name string) (string, error) {
	delay := max(o.retryDelay, time.Millisecond)
	backoff := retry.WithMaxRetries(uint64(o.retryAttempts-1), retry.NewConstant(delay))

	var text string
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++

		var err error
		text, err = c.Caption(ctx, req)
		if err == nil && strings.TrimSpace(text) == "" {
			err = errEmptyResponse
		}
		if err == nil {
			return nil
		}
		if errors.Is(err, gemini.ErrAborted) || ctx.Err() != nil {
			return gemini.ErrAborted
		}

		if attempt < o.retryAttempts {
			o.logger.Warn("Caption attempt failed, retrying",
				"image", name,
				"attempt", attempt,
				"max_attempts", o.retryAttempts,
				"error", errorMessage(err),
			)
		}
		return retry.RetryableError(err)
	})

	if err != nil && ctx.Err() != nil {
		return "", gemini.ErrAborted
	}
	if err != nil {
		return "", err
	}
	return text, nil
}
