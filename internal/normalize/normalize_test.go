package normalize

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/statute-engine/pkg/types"
)

func TestMain(m *testing.M) {
	// Override backoff to avoid real sleeps in retry tests.
	backoffBase = time.Millisecond
	os.Exit(m.Run())
}

func testConfig() types.LLMConfig {
	return types.LLMConfig{
		Model:        "test-model",
		APIKey:       "sk-test",
		MaxRetries:   3,
		RequestDelay: time.Nanosecond,
	}
}

var testBlocks = []types.ArticleBlock{
	{Heading: "第一条", Body: "自然人从出生时起到死亡时止，具有民事权利能力。"},
	{Heading: "第二条", Body: "自然人的民事权利能力一律平等。"},
	{Heading: "第三条", Body: "民事主体的人身权利受法律保护。"},
}

// --- mock backends ---

// echoBackend succeeds and marks its output so tests can tell it from the
// heuristic.
type echoBackend struct {
	calls int
}

func (e *echoBackend) Normalize(_ context.Context, block types.ArticleBlock) (types.Article, error) {
	e.calls++
	return types.Article{ArticleNumber: block.Heading, Content: "llm:" + block.Body}, nil
}

// failNTimesBackend fails the first N calls, then succeeds.
type failNTimesBackend struct {
	failures  int
	callCount int
}

func (f *failNTimesBackend) Normalize(_ context.Context, block types.ArticleBlock) (types.Article, error) {
	f.callCount++
	if f.callCount <= f.failures {
		return types.Article{}, fmt.Errorf("transient error (call %d)", f.callCount)
	}
	return types.Article{ArticleNumber: block.Heading, Content: "llm:" + block.Body}, nil
}

// permanentBackend always fails with a non-retryable error.
type permanentBackend struct {
	calls int
}

func (p *permanentBackend) Normalize(context.Context, types.ArticleBlock) (types.Article, error) {
	p.calls++
	return types.Article{}, fmt.Errorf("service returned 401: %w", ErrPermanent)
}

// --- Heuristic ---

func TestHeuristic(t *testing.T) {
	a, err := Heuristic{}.Normalize(context.Background(), types.ArticleBlock{
		Heading: " 第一条 ",
		Body:    "  自然人从出生时起。\n",
	})
	require.NoError(t, err)
	assert.Equal(t, "第一条", a.ArticleNumber)
	assert.Equal(t, "自然人从出生时起。", a.Content)
}

// --- Normalize driver ---

func TestNormalizeHeuristicRun(t *testing.T) {
	var buf bytes.Buffer
	articles, summary, err := Normalize(context.Background(), Heuristic{}, testBlocks, testConfig(), &buf)
	require.NoError(t, err)

	require.Len(t, articles, len(testBlocks))
	assert.Equal(t, 3, summary.Normalized)
	assert.Zero(t, summary.FellBack)
	for i, block := range testBlocks {
		assert.Equal(t, block.Heading, articles[i].ArticleNumber)
		assert.Equal(t, block.Body, articles[i].Content)
	}
}

func TestNormalizeBackendSuccess(t *testing.T) {
	backend := &echoBackend{}
	var buf bytes.Buffer

	articles, summary, err := Normalize(context.Background(), backend, testBlocks, testConfig(), &buf)
	require.NoError(t, err)

	require.Len(t, articles, 3)
	assert.Equal(t, 3, backend.calls)
	assert.Equal(t, 3, summary.Normalized)
	assert.Equal(t, "llm:"+testBlocks[0].Body, articles[0].Content)
	assert.Contains(t, buf.String(), "normalized 第一条 (1/3)")
}

func TestNormalizeRetriesTransientFailure(t *testing.T) {
	backend := &failNTimesBackend{failures: 2}
	var buf bytes.Buffer

	articles, summary, err := Normalize(context.Background(), backend, testBlocks[:1], testConfig(), &buf)
	require.NoError(t, err)

	require.Len(t, articles, 1)
	assert.Equal(t, 3, backend.callCount)
	assert.Equal(t, 1, summary.Normalized)
	assert.Equal(t, "llm:"+testBlocks[0].Body, articles[0].Content)
}

func TestNormalizeFallsBackAfterExhaustion(t *testing.T) {
	backend := &failNTimesBackend{failures: 100}
	var buf bytes.Buffer

	articles, summary, err := Normalize(context.Background(), backend, testBlocks, testConfig(), &buf)
	require.NoError(t, err)

	// Every block still produces exactly one article, in order.
	require.Len(t, articles, 3)
	assert.Equal(t, 3, summary.FellBack)
	assert.Zero(t, summary.Normalized)
	for i, block := range testBlocks {
		assert.Equal(t, block.Heading, articles[i].ArticleNumber)
		assert.Equal(t, block.Body, articles[i].Content)
	}
	assert.Contains(t, buf.String(), "fallback 第一条")
}

func TestNormalizePermanentErrorSkipsRetries(t *testing.T) {
	backend := &permanentBackend{}
	var buf bytes.Buffer

	articles, summary, err := Normalize(context.Background(), backend, testBlocks[:1], testConfig(), &buf)
	require.NoError(t, err)

	require.Len(t, articles, 1)
	assert.Equal(t, 1, backend.calls)
	assert.Equal(t, 1, summary.FellBack)
	assert.Equal(t, testBlocks[0].Heading, articles[0].ArticleNumber)
}

func TestNormalizeEmptyInput(t *testing.T) {
	var buf bytes.Buffer
	articles, summary, err := Normalize(context.Background(), &echoBackend{}, nil, testConfig(), &buf)
	require.NoError(t, err)
	assert.Empty(t, articles)
	assert.Zero(t, summary.Total())
}

func TestNormalizeContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	backend := &failNTimesBackend{failures: 100}
	var buf bytes.Buffer
	_, _, err := Normalize(ctx, backend, testBlocks, testConfig(), &buf)
	assert.ErrorIs(t, err, context.Canceled)
}
