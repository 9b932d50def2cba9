package handlers

import (
	"net/http"

	json "github.com/goccy/go-json"

	apierrors "github.com/pribylovaa/sanad-gateway/internal/errors"
	"github.com/pribylovaa/sanad-gateway/internal/gateway"
	"github.com/pribylovaa/sanad-gateway/internal/models"
)

// Пути сервиса анализа.
const (
	backendExtractNarrators  = "/api/v1/extract-narrators"
	backendAnalyzeNarrator   = "/api/v1/analyze-narrator"
	backendAnalyzeChain      = "/api/v1/analyze-narrator-chain"
	backendExtractAndAnalyze = "/api/v1/extract-and-analyze"
	backendUserExtractions   = "/api/v1/user/extractions"
	backendUserAnalyses      = "/api/v1/user/analyses"
)

// proxyRoute — POST-маршрут: валидация тела и пересылка его без изменений.
type proxyRoute struct {
	op       string
	backend  string
	newReq   func() any
	field    string
	invalid  string
	fallback string
}

func (h *Handlers) forward(w http.ResponseWriter, r *http.Request, pr proxyRoute) {
	msgs := apierrors.Messages{Fallback: pr.fallback}

	body, err := readBody(w, r)
	if err != nil {
		fail(w, r, pr.op, msgs, err)
		return
	}

	if err := h.decodeValid(body, pr.newReq(), pr.invalid, pr.field); err != nil {
		fail(w, r, pr.op, msgs, err)
		return
	}

	out, err := h.GW.Dispatch(r.Context(), h.jar(w, r), gateway.Request{
		Method: http.MethodPost,
		Path:   pr.backend,
		Body:   body,
	})
	if err != nil {
		fail(w, r, pr.op, msgs, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) ExtractNarrators(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, proxyRoute{
		op:       "extract_narrators",
		backend:  backendExtractNarrators,
		newReq:   func() any { return &models.ExtractNarratorsRequest{} },
		field:    "hadith_text",
		invalid:  "hadith_text is required and must be a string",
		fallback: "Failed to extract narrators",
	})
}

func (h *Handlers) AnalyzeNarrator(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, proxyRoute{
		op:       "analyze_narrator",
		backend:  backendAnalyzeNarrator,
		newReq:   func() any { return &models.AnalyzeNarratorRequest{} },
		field:    "narrator_name",
		invalid:  "narrator_name is required and must be a string",
		fallback: "Failed to analyze narrator",
	})
}

func (h *Handlers) AnalyzeChain(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, proxyRoute{
		op:       "analyze_chain",
		backend:  backendAnalyzeChain,
		newReq:   func() any { return &models.ChainAnalysisRequest{} },
		field:    "sanad_chain",
		invalid:  "sanad_chain is required and must be an array",
		fallback: "Failed to analyze chain",
	})
}

func (h *Handlers) ExtractAndAnalyze(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, proxyRoute{
		op:       "extract_and_analyze",
		backend:  backendExtractAndAnalyze,
		newReq:   func() any { return &models.ExtractAndAnalyzeRequest{} },
		field:    "hadith_text",
		invalid:  "hadith_text is required and must be a string",
		fallback: "Failed to extract and analyze",
	})
}

func (h *Handlers) UserExtractions(w http.ResponseWriter, r *http.Request) {
	out, err := h.GW.Dispatch(r.Context(), h.jar(w, r), gateway.Request{Method: http.MethodGet, Path: backendUserExtractions})
	if err != nil {
		fail(w, r, "user_extractions", apierrors.Messages{Fallback: "Failed to get user extractions"}, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Extractions json.RawMessage `json:"extractions"`
	}{Extractions: out})
}

func (h *Handlers) UserAnalyses(w http.ResponseWriter, r *http.Request) {
	out, err := h.GW.Dispatch(r.Context(), h.jar(w, r), gateway.Request{Method: http.MethodGet, Path: backendUserAnalyses})
	if err != nil {
		fail(w, r, "user_analyses", apierrors.Messages{Fallback: "Failed to get user analyses"}, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Analyses json.RawMessage `json:"analyses"`
	}{Analyses: out})
}
