package finsight_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight-ai/finsight"
	"github.com/finsight-ai/finsight/application/service"
	"github.com/finsight-ai/finsight/domain/corpus"
)

type fixedEmbedder struct {
	dimension int
	err       error
}

func (e fixedEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	if e.err != nil {
		return nil, e.err
	}
	vectors := make([][]float64, len(texts))
	for i := range texts {
		vectors[i] = make([]float64, e.dimension)
		vectors[i][0] = 1
	}
	return vectors, nil
}

type fixedGenerator struct{ answer string }

func (g fixedGenerator) Generate(_ context.Context, _, _ string) (string, error) {
	return g.answer, nil
}

type emptySource struct{}

func (emptySource) Lookup(_ context.Context, ticker string) (corpus.Registrant, error) {
	return corpus.Registrant{}, errors.New("unknown ticker " + ticker)
}

func (emptySource) Filings(context.Context, string, corpus.FilingType, int) ([]corpus.FilingRef, error) {
	return nil, nil
}

func (emptySource) Fetch(context.Context, corpus.FilingRef) (string, error) {
	return "", nil
}

func newTestClient(t *testing.T, opts ...finsight.Option) *finsight.Client {
	t.Helper()
	base := []finsight.Option{
		finsight.WithSQLite(":memory:"),
		finsight.WithEmbedder(fixedEmbedder{dimension: 8}),
		finsight.WithGenerator(fixedGenerator{answer: "generated answer"}),
		finsight.WithDocumentSource(emptySource{}),
	}
	client, err := finsight.New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNew_RequiresDatabase(t *testing.T) {
	_, err := finsight.New(
		finsight.WithEmbedder(fixedEmbedder{dimension: 8}),
		finsight.WithGenerator(fixedGenerator{}),
		finsight.WithDocumentSource(emptySource{}),
	)
	require.ErrorIs(t, err, finsight.ErrNoDatabase)
}

func TestNew_ProbeFailureIsFatal(t *testing.T) {
	_, err := finsight.New(
		finsight.WithSQLite(":memory:"),
		finsight.WithEmbedder(fixedEmbedder{err: errors.New("bad credentials")}),
		finsight.WithGenerator(fixedGenerator{}),
		finsight.WithDocumentSource(emptySource{}),
	)
	require.Error(t, err)
	assert.True(t, service.IsKind(err, service.KindConfiguration))
}

func TestClient_AskOnEmptyCorpus(t *testing.T) {
	client := newTestClient(t)

	answer, err := client.Answers.Ask(context.Background(), "What was the revenue?")
	require.NoError(t, err)
	assert.Equal(t, service.StateDone, answer.State())
	assert.Empty(t, answer.Sources())
}

func TestClient_CompaniesRoundTrip(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	imported, err := client.Companies.Import(ctx, "AAPL", "Apple Inc.", "0000320193")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", imported.Ticker())

	listed, err := client.Companies.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "Apple Inc.", listed[0].Name())
}

func TestClient_Close(t *testing.T) {
	client := newTestClient(t)

	require.NoError(t, client.Close())
	require.ErrorIs(t, client.Close(), service.ErrClientClosed)

	_, err := client.Answers.Ask(context.Background(), "question")
	require.ErrorIs(t, err, service.ErrClientClosed)
	_, err = client.Companies.List(context.Background())
	require.ErrorIs(t, err, service.ErrClientClosed)
}
