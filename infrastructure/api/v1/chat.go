// Package v1 implements the v1 HTTP API routes.
package v1

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/finsight-ai/finsight"
	"github.com/finsight-ai/finsight/application/service"
	"github.com/finsight-ai/finsight/infrastructure/api/middleware"
	"github.com/finsight-ai/finsight/infrastructure/api/v1/dto"
)

// ChatRouter handles question answering endpoints.
type ChatRouter struct {
	client *finsight.Client
	logger *slog.Logger
}

// NewChatRouter creates a new ChatRouter.
func NewChatRouter(client *finsight.Client) *ChatRouter {
	return &ChatRouter{
		client: client,
		logger: client.Logger(),
	}
}

// Routes returns the chi router for chat endpoints.
func (r *ChatRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/", r.Chat)

	return router
}

// Chat handles POST /api/v1/chat.
func (r *ChatRouter) Chat(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	var body dto.ChatRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req,
			middleware.NewAPIError(http.StatusBadRequest, "invalid request body", err), r.logger)
		return
	}
	if strings.TrimSpace(body.Question) == "" {
		middleware.WriteError(w, req,
			middleware.NewAPIError(http.StatusBadRequest, "question is required", nil), r.logger)
		return
	}

	var opts []service.AnswerOption
	if body.Ticker != "" {
		opts = append(opts, service.ForTicker(body.Ticker))
	}
	if body.FiscalYear > 0 {
		opts = append(opts, service.ForFiscalYear(body.FiscalYear))
	}
	if body.TopK > 0 {
		opts = append(opts, service.WithTopK(body.TopK))
	}

	answer, err := r.client.Answers.Ask(ctx, body.Question, opts...)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, buildChatResponse(answer))
}

func buildChatResponse(answer service.Answer) dto.ChatResponse {
	sources := answer.Sources()
	out := make([]dto.ChatSource, len(sources))
	for i, src := range sources {
		citation := src.Citation()
		out[i] = dto.ChatSource{
			Ticker:     citation.Ticker(),
			Company:    citation.CompanyName(),
			FilingType: citation.FilingType(),
			FiscalYear: citation.FiscalYear(),
			FiledAt:    citation.FiledAt(),
			Section:    citation.Section(),
			Snippet:    src.Snippet(),
			Score:      src.Distance(),
		}
	}

	return dto.ChatResponse{
		ID:      answer.ID(),
		Answer:  answer.Text(),
		Sources: out,
	}
}
