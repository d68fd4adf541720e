package v1

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/finsight-ai/finsight"
	"github.com/finsight-ai/finsight/domain/corpus"
	"github.com/finsight-ai/finsight/infrastructure/api/middleware"
	"github.com/finsight-ai/finsight/infrastructure/api/v1/dto"
)

// CompaniesRouter handles corpus membership endpoints.
type CompaniesRouter struct {
	client *finsight.Client
	logger *slog.Logger
}

// NewCompaniesRouter creates a new CompaniesRouter.
func NewCompaniesRouter(client *finsight.Client) *CompaniesRouter {
	return &CompaniesRouter{
		client: client,
		logger: client.Logger(),
	}
}

// Routes returns the chi router for company endpoints.
func (r *CompaniesRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", r.List)
	router.Post("/", r.Import)
	router.Get("/{ticker}", r.Get)
	router.Delete("/{ticker}", r.Delete)

	return router
}

// List handles GET /api/v1/companies.
func (r *CompaniesRouter) List(w http.ResponseWriter, req *http.Request) {
	companies, err := r.client.Companies.List(req.Context())
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	out := make([]dto.CompanyResponse, len(companies))
	for i, company := range companies {
		out[i] = companyResponse(company)
	}
	middleware.WriteJSON(w, http.StatusOK, dto.CompanyListResponse{Companies: out})
}

// Get handles GET /api/v1/companies/{ticker}.
func (r *CompaniesRouter) Get(w http.ResponseWriter, req *http.Request) {
	company, err := r.client.Companies.Get(req.Context(), chi.URLParam(req, "ticker"))
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, companyResponse(company))
}

// Import handles POST /api/v1/companies.
func (r *CompaniesRouter) Import(w http.ResponseWriter, req *http.Request) {
	var body dto.CompanyRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req,
			middleware.NewAPIError(http.StatusBadRequest, "invalid request body", err), r.logger)
		return
	}
	if body.Ticker == "" {
		middleware.WriteError(w, req,
			middleware.NewAPIError(http.StatusBadRequest, "ticker is required", nil), r.logger)
		return
	}

	company, err := r.client.Companies.Import(req.Context(), body.Ticker, body.Name, body.CIK)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, companyResponse(company))
}

// Delete handles DELETE /api/v1/companies/{ticker}.
func (r *CompaniesRouter) Delete(w http.ResponseWriter, req *http.Request) {
	if err := r.client.Companies.Delete(req.Context(), chi.URLParam(req, "ticker")); err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func companyResponse(company corpus.Company) dto.CompanyResponse {
	return dto.CompanyResponse{
		Ticker:    company.Ticker(),
		Name:      company.Name(),
		CIK:       company.CIK(),
		Sector:    company.Sector(),
		Industry:  company.Industry(),
		CreatedAt: company.CreatedAt(),
	}
}
