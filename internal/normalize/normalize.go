// Package normalize turns raw article blocks into clean
// (article_number, content) records. Two strategies exist: an
// LLM-assisted backend calling an OpenAI-compatible chat-completions
// service, and a local heuristic used as the default and as the
// per-block fallback when service calls fail.
package normalize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/pdiddy/statute-engine/internal/httputil"
	"github.com/pdiddy/statute-engine/pkg/types"
)

// Backend normalizes a single article block. Implementations must return
// exactly one Article per block; they never merge or drop blocks.
type Backend interface {
	Normalize(ctx context.Context, block types.ArticleBlock) (types.Article, error)
}

// ErrPermanent marks a service failure that retrying cannot fix
// (authentication rejection, malformed request). The driver falls back to
// the heuristic immediately instead of burning retry attempts.
var ErrPermanent = errors.New("permanent service error")

// backoffBase controls the base duration for exponential backoff between
// retry attempts. Tests override this to avoid real sleeps.
var backoffBase = time.Second

// Heuristic is the local normalization strategy: the detected heading
// verbatim as the article number, the trimmed body as the content.
type Heuristic struct{}

// Normalize implements Backend. It cannot fail.
func (Heuristic) Normalize(_ context.Context, block types.ArticleBlock) (types.Article, error) {
	return types.Article{
		ArticleNumber: strings.TrimSpace(block.Heading),
		Content:       strings.TrimSpace(block.Body),
	}, nil
}

// Summary holds per-run normalization counts.
type Summary struct {
	Normalized int
	FellBack   int
}

// Total returns the number of blocks processed.
func (s Summary) Total() int {
	return s.Normalized + s.FellBack
}

// Normalize runs every block through the backend in document order and
// returns one Article per block. Service calls are paced by the
// configured minimum delay and retried with exponential backoff up to
// cfg.MaxRetries; a block whose attempts are exhausted (or that hits a
// permanent error) is normalized with the local heuristic instead, so the
// output always has the same count and order as the input. Progress and
// fallback diagnostics go to w.
func Normalize(ctx context.Context, backend Backend, blocks []types.ArticleBlock, cfg types.LLMConfig, w io.Writer) ([]types.Article, Summary, error) {
	articles := make([]types.Article, 0, len(blocks))
	var summary Summary

	// The heuristic needs no pacing or retries.
	if _, local := backend.(Heuristic); local {
		for _, block := range blocks {
			a, _ := backend.Normalize(ctx, block)
			articles = append(articles, a)
			summary.Normalized++
		}
		return articles, summary, nil
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	delay := cfg.RequestDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	pacer := httputil.NewPacer(delay)

	for i, block := range blocks {
		a, err := normalizeOne(ctx, backend, pacer, block, maxRetries)
		if err != nil {
			if ctx.Err() != nil {
				return nil, summary, ctx.Err()
			}
			fmt.Fprintf(w, "fallback %s (%d/%d): %v\n", block.Heading, i+1, len(blocks), err)
			a, _ = Heuristic{}.Normalize(ctx, block)
			summary.FellBack++
		} else {
			fmt.Fprintf(w, "normalized %s (%d/%d)\n", a.ArticleNumber, i+1, len(blocks))
			summary.Normalized++
		}
		articles = append(articles, a)
	}

	return articles, summary, nil
}

// normalizeOne calls the backend for one block with pacing and bounded
// retries. Permanent errors short-circuit the retry loop.
func normalizeOne(ctx context.Context, backend Backend, pacer *httputil.Pacer, block types.ArticleBlock, maxRetries int) (types.Article, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return types.Article{}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := pacer.Wait(ctx); err != nil {
			return types.Article{}, err
		}

		a, err := backend.Normalize(ctx, block)
		if err == nil {
			return a, nil
		}
		if errors.Is(err, ErrPermanent) {
			return types.Article{}, err
		}
		lastErr = err
	}
	return types.Article{}, fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}
