package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight-ai/finsight/internal/config"
)

func retrievalDefaults() config.RetrievalConfig {
	return config.NewRetrievalConfig()
}

func TestAnswerer_AskEmptyQuestion(t *testing.T) {
	env := newTestEnv(t)
	answerer := env.answerer(t, retrievalDefaults())

	answer, err := answerer.Ask(context.Background(), "   ")
	require.Error(t, err)
	assert.Equal(t, StateFailed, answer.State())
	assert.Equal(t, 0, env.embedder.calls)
}

func TestAnswerer_EmptyIndexReturnsNoContextAnswer(t *testing.T) {
	env := newTestEnv(t)
	answerer := env.answerer(t, retrievalDefaults())

	answer, err := answerer.Ask(context.Background(), "What was the revenue?")
	require.NoError(t, err)
	assert.Equal(t, StateDone, answer.State())
	assert.Contains(t, answer.Text(), "couldn't find any relevant information")
	assert.Empty(t, answer.Sources())
	assert.Empty(t, env.generator.users, "generation must not run without context")
}

func TestAnswerer_AnswersFromRetrievedContext(t *testing.T) {
	env := newTestEnv(t)
	env.seedCorpus(t, "AAPL", "Apple Inc.", 2023, []string{
		"Net revenue grew to $2.1 billion driven by services.",
		"Principal risk factors include supply chain concentration.",
	})
	answerer := env.answerer(t, retrievalDefaults())

	answer, err := answerer.Ask(context.Background(), "What was the revenue?")
	require.NoError(t, err)
	assert.Equal(t, StateDone, answer.State())
	assert.Equal(t, "Revenue was $2.1 billion.", answer.Text())
	assert.NotEmpty(t, answer.ID())

	require.NotEmpty(t, answer.Sources())
	best := answer.Sources()[0]
	assert.Equal(t, "AAPL", best.Citation().Ticker())
	assert.Equal(t, "Apple Inc.", best.Citation().CompanyName())
	assert.Equal(t, 2023, best.Citation().FiscalYear())
	assert.Contains(t, best.Snippet(), "$2.1 billion")

	require.Len(t, env.generator.users, 1)
	prompt := env.generator.users[0]
	assert.Contains(t, prompt, "Source: Apple Inc. (AAPL) - 10-K 2023")
	assert.Contains(t, prompt, "Section: ITEM 7.")
	assert.Contains(t, prompt, "$2.1 billion")
	assert.Contains(t, prompt, "User Query: What was the revenue?")
	assert.Contains(t, env.generator.systems[0], "based ONLY on the context provided")
}

func TestAnswerer_SourcesOrderedByDistance(t *testing.T) {
	env := newTestEnv(t)
	env.seedCorpus(t, "AAPL", "Apple Inc.", 2023, []string{
		"Principal risk factors include supply chain concentration and regulatory risk.",
		"Net revenue grew on strong revenue from subscriptions.",
	})
	answerer := env.answerer(t, retrievalDefaults())

	answer, err := answerer.Ask(context.Background(), "What drives revenue growth?")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(answer.Sources()), 2)

	sources := answer.Sources()
	assert.Contains(t, sources[0].Snippet(), "revenue")
	assert.LessOrEqual(t, sources[0].Distance(), sources[1].Distance())
}

func TestAnswerer_TickerFilter(t *testing.T) {
	env := newTestEnv(t)
	env.seedCorpus(t, "AAPL", "Apple Inc.", 2023, []string{
		"Apple revenue reached new highs.",
	})
	env.seedCorpus(t, "MSFT", "Microsoft Corporation", 2023, []string{
		"Microsoft revenue grew across cloud segments.",
	})
	answerer := env.answerer(t, retrievalDefaults())

	answer, err := answerer.Ask(context.Background(), "What was the revenue?",
		ForTicker("msft"))
	require.NoError(t, err)
	require.NotEmpty(t, answer.Sources())
	for _, src := range answer.Sources() {
		assert.Equal(t, "MSFT", src.Citation().Ticker())
	}
}

func TestAnswerer_FiscalYearFilter(t *testing.T) {
	env := newTestEnv(t)
	env.seedCorpus(t, "AAPL", "Apple Inc.", 2022, []string{
		"Revenue in the prior year was flat.",
	})
	env.seedCorpus(t, "AAPL", "Apple Inc.", 2023, []string{
		"Revenue grew to $2.1 billion.",
	})
	answerer := env.answerer(t, retrievalDefaults())

	answer, err := answerer.Ask(context.Background(), "What was the revenue?",
		ForFiscalYear(2022))
	require.NoError(t, err)
	require.NotEmpty(t, answer.Sources())
	for _, src := range answer.Sources() {
		assert.Equal(t, 2022, src.Citation().FiscalYear())
	}
}

func TestAnswerer_ContextBudgetDropsLowestRanked(t *testing.T) {
	env := newTestEnv(t)
	long := strings.Repeat("revenue grew steadily across all operating segments this year. ", 10)
	env.seedCorpus(t, "AAPL", "Apple Inc.", 2023, []string{
		long + " The total was $2.1 billion.",
		"Some revenue came from accessories.",
	})

	budget := config.NewRetrievalConfig().WithContextTokenBudget(200)
	answerer := env.answerer(t, budget)

	answer, err := answerer.Ask(context.Background(), "What was the revenue?")
	require.NoError(t, err)

	// Only the best-ranked chunk fits; the other is dropped whole.
	require.Len(t, answer.Sources(), 1)
	require.Len(t, env.generator.users, 1)
	prompt := env.generator.users[0]
	assert.Contains(t, prompt, answer.Sources()[0].Snippet())
}

func TestAnswerer_EmbeddingFailure(t *testing.T) {
	env := newTestEnv(t)
	env.embedder.err = errors.New("auth failed")
	answerer := env.answerer(t, retrievalDefaults())

	answer, err := answerer.Ask(context.Background(), "What was the revenue?")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindEmbedding))
	assert.Equal(t, StateFailed, answer.State())
}

func TestAnswerer_GenerationFailureIsDistinct(t *testing.T) {
	env := newTestEnv(t)
	env.seedCorpus(t, "AAPL", "Apple Inc.", 2023, []string{
		"Net revenue grew to $2.1 billion.",
	})
	env.generator.err = errors.New("model overloaded")
	answerer := env.answerer(t, retrievalDefaults())

	answer, err := answerer.Ask(context.Background(), "What was the revenue?")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindGeneration))
	assert.False(t, IsKind(err, KindEmbedding))
	assert.Equal(t, StateFailed, answer.State())
}

func TestAnswerer_ClosedClient(t *testing.T) {
	env := newTestEnv(t)
	env.closed.Store(true)
	answerer := env.answerer(t, retrievalDefaults())

	_, err := answerer.Ask(context.Background(), "question")
	require.ErrorIs(t, err, ErrClientClosed)
}

func TestErrorKinds(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := GenerationError("generate answer", cause)

	assert.True(t, IsKind(err, KindGeneration))
	assert.False(t, IsKind(err, KindFetch))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "generation")
	assert.Contains(t, err.Error(), "generate answer")

	var se *Error
	require.ErrorAs(t, fmt.Errorf("wrapped: %w", err), &se)
	assert.Equal(t, KindGeneration, se.Kind())
}
