package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight-ai/finsight"
	"github.com/finsight-ai/finsight/domain/corpus"
	"github.com/finsight-ai/finsight/infrastructure/api"
	"github.com/finsight-ai/finsight/infrastructure/api/v1/dto"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	for i := range texts {
		vectors[i] = []float64{1, 0, 0}
	}
	return vectors, nil
}

type stubGenerator struct{}

func (stubGenerator) Generate(context.Context, string, string) (string, error) {
	return "stub answer", nil
}

type stubSource struct{}

func (stubSource) Lookup(_ context.Context, ticker string) (corpus.Registrant, error) {
	if ticker == "AAPL" {
		return corpus.NewRegistrant("0000320193", "Apple Inc."), nil
	}
	return corpus.Registrant{}, errors.New("unknown ticker")
}

func (stubSource) Filings(context.Context, string, corpus.FilingType, int) ([]corpus.FilingRef, error) {
	return nil, nil
}

func (stubSource) Fetch(context.Context, corpus.FilingRef) (string, error) {
	return "", nil
}

func testServer(t *testing.T, apiKeys ...string) *httptest.Server {
	t.Helper()

	client, err := finsight.New(
		finsight.WithSQLite(":memory:"),
		finsight.WithEmbedder(stubEmbedder{}),
		finsight.WithGenerator(stubGenerator{}),
		finsight.WithDocumentSource(stubSource{}),
		finsight.WithAPIKeys(apiKeys...),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	server := httptest.NewServer(api.NewAPIServer(client, apiKeys).Handler())
	t.Cleanup(server.Close)
	return server
}

func TestAPIServer_Healthz(t *testing.T) {
	server := testServer(t)

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPIServer_ChatOnEmptyCorpus(t *testing.T) {
	server := testServer(t)

	body, _ := json.Marshal(dto.ChatRequest{Question: "What was the revenue?"})
	resp, err := http.Post(server.URL+"/api/v1/chat", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out dto.ChatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.NotEmpty(t, out.ID)
	assert.NotEmpty(t, out.Answer)
	assert.Empty(t, out.Sources)
}

func TestAPIServer_ChatRejectsEmptyQuestion(t *testing.T) {
	server := testServer(t)

	resp, err := http.Post(server.URL+"/api/v1/chat", "application/json",
		bytes.NewReader([]byte(`{"question":"  "}`)))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIServer_CompaniesCRUD(t *testing.T) {
	server := testServer(t)

	body, _ := json.Marshal(dto.CompanyRequest{Ticker: "aapl"})
	resp, err := http.Post(server.URL+"/api/v1/companies", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created dto.CompanyResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "AAPL", created.Ticker)
	assert.Equal(t, "Apple Inc.", created.Name)
	assert.Equal(t, "0000320193", created.CIK)

	resp, err = http.Get(server.URL + "/api/v1/companies")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listed dto.CompanyListResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	require.Len(t, listed.Companies, 1)

	req, _ := http.NewRequest(http.MethodDelete, server.URL+"/api/v1/companies/AAPL", nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = http.Get(server.URL + "/api/v1/companies/AAPL")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIServer_WriteProtection(t *testing.T) {
	server := testServer(t, "secret")

	body, _ := json.Marshal(dto.CompanyRequest{Ticker: "AAPL"})

	resp, err := http.Post(server.URL+"/api/v1/companies", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodPost, server.URL+"/api/v1/companies", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", "secret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// Reads stay open.
	resp, err = http.Get(server.URL + "/api/v1/companies")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
