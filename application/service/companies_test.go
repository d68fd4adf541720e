package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight-ai/finsight/domain/corpus"
)

func TestCompanies_ImportResolvesFromRegistry(t *testing.T) {
	env := newTestEnv(t)
	env.source.registrants["AAPL"] = corpus.NewRegistrant("0000320193", "Apple Inc.")

	company, err := env.companiesService(t).Import(context.Background(), "aapl", "", "")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", company.Ticker())
	assert.Equal(t, "Apple Inc.", company.Name())
	assert.Equal(t, "0000320193", company.CIK())
	assert.NotZero(t, company.ID())
}

func TestCompanies_ImportExplicitSkipsRegistry(t *testing.T) {
	env := newTestEnv(t)
	// No registrants configured; a lookup would fail.

	company, err := env.companiesService(t).Import(context.Background(),
		"BRK.B", "Berkshire Hathaway Inc.", "0001067983")
	require.NoError(t, err)

	assert.Equal(t, "BRK.B", company.Ticker())
	assert.Equal(t, "Berkshire Hathaway Inc.", company.Name())
	assert.Equal(t, "0001067983", company.CIK())
}

func TestCompanies_ImportUnknownTicker(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.companiesService(t).Import(context.Background(), "ZZZZ", "", "")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindFetch))
}

func TestCompanies_GetUnknown(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.companiesService(t).Get(context.Background(), "ZZZZ")
	require.ErrorIs(t, err, ErrCompanyNotFound)
}

func TestCompanies_ListOrderedByTicker(t *testing.T) {
	env := newTestEnv(t)
	service := env.companiesService(t)
	ctx := context.Background()

	_, err := service.Import(ctx, "MSFT", "Microsoft Corporation", "0000789019")
	require.NoError(t, err)
	_, err = service.Import(ctx, "AAPL", "Apple Inc.", "0000320193")
	require.NoError(t, err)

	companies, err := service.List(ctx)
	require.NoError(t, err)
	require.Len(t, companies, 2)
	assert.Equal(t, "AAPL", companies[0].Ticker())
	assert.Equal(t, "MSFT", companies[1].Ticker())
}

func TestCompanies_DeleteCascadesToVectors(t *testing.T) {
	env := newTestEnv(t)
	chunks := env.seedCorpus(t, "AAPL", "Apple Inc.", 2023, []string{
		"Net revenue grew to $2.1 billion.",
		"Risk factors include supply chain concentration.",
	})
	ctx := context.Background()
	service := env.companiesService(t)

	chunkIDs := make([]int64, len(chunks))
	for i, chunk := range chunks {
		chunkIDs[i] = chunk.ID()
	}
	stored, err := env.index.HasEmbeddings(ctx, chunkIDs)
	require.NoError(t, err)
	for _, id := range chunkIDs {
		require.True(t, stored[id])
	}

	require.NoError(t, service.Delete(ctx, "AAPL"))

	_, err = service.Get(ctx, "AAPL")
	assert.ErrorIs(t, err, ErrCompanyNotFound)

	stored, err = env.index.HasEmbeddings(ctx, chunkIDs)
	require.NoError(t, err)
	for _, id := range chunkIDs {
		assert.False(t, stored[id], "vectors must be deleted with the company")
	}
}

func TestCompanies_Closed(t *testing.T) {
	env := newTestEnv(t)
	env.closed.Store(true)
	service := env.companiesService(t)
	ctx := context.Background()

	_, err := service.List(ctx)
	require.ErrorIs(t, err, ErrClientClosed)
	_, err = service.Import(ctx, "AAPL", "Apple Inc.", "0000320193")
	require.ErrorIs(t, err, ErrClientClosed)
	require.ErrorIs(t, service.Delete(ctx, "AAPL"), ErrClientClosed)
}
