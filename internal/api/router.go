// Package api is the HTTP collaborator layer: all seven endpoints of
// spec.md §6, adapted from the teacher's net/http ServeMux + middleware
// style (no web framework). It exercises the core's contracts; it is
// not itself the core.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dwarkesh-labs/transcript-rag/internal/agent"
	"github.com/dwarkesh-labs/transcript-rag/internal/apperr"
	"github.com/dwarkesh-labs/transcript-rag/internal/auth"
	"github.com/dwarkesh-labs/transcript-rag/internal/ingest"
	"github.com/dwarkesh-labs/transcript-rag/internal/retrieval"
	"github.com/dwarkesh-labs/transcript-rag/internal/store"
	"github.com/dwarkesh-labs/transcript-rag/internal/turns"
)

type contextKey string

const claimsKey contextKey = "claims"

// Deps bundles the collaborators the handlers call into.
type Deps struct {
	Store      *store.Store
	Retrieval  *retrieval.Registry
	Agents     *agent.Factory
	Expander   *turns.Expander
	Pipeline   *ingest.Pipeline
	JWTManager *auth.JWTManager
	AuthSvc    *auth.Service
	Logger     *slog.Logger
}

func NewRouter(deps Deps) http.Handler {
	mux := http.NewServeMux()
	h := &handlers{deps: deps}

	mux.HandleFunc("GET /api/health", h.health)
	mux.HandleFunc("POST /api/auth/login", h.login)

	protected := http.NewServeMux()
	protected.HandleFunc("POST /api/chat/completion", h.chatCompletion)
	protected.HandleFunc("POST /api/retrieval/query", h.retrievalQuery)
	protected.HandleFunc("POST /api/retrieval/expand", h.retrievalExpand)
	protected.HandleFunc("POST /api/retrieval/qa-pairs", h.retrievalQAPairs)
	protected.HandleFunc("GET /api/retrieval/bench", h.retrievalBench)
	protected.HandleFunc("POST /api/ingest/text", h.ingestText)

	mux.Handle("/api/chat/", h.authMiddleware(protected))
	mux.Handle("/api/retrieval/", h.authMiddleware(protected))
	mux.Handle("/api/ingest/", h.authMiddleware(protected))

	return h.loggingMiddleware(mux)
}

type handlers struct {
	deps Deps
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "time": time.Now().Format(time.RFC3339)})
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token, err := h.deps.AuthSvc.Login(r.Context(), auth.LoginRequest{Password: body.Password})
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

type retrievalFiltersBody struct {
	Source    *string `json:"source"`
	DocType   *string `json:"doc_type"`
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
	Speaker   *string `json:"speaker"`
}

func (f retrievalFiltersBody) toFilters() (retrieval.Filters, error) {
	var out retrieval.Filters
	out.Source = f.Source
	out.DocType = f.DocType
	out.Speaker = f.Speaker
	if f.StartDate != nil {
		t, err := time.Parse("2006-01-02", *f.StartDate)
		if err != nil {
			return out, apperr.New(apperr.BadInput, "start_date must be YYYY-MM-DD")
		}
		out.StartDate = &t
	}
	if f.EndDate != nil {
		t, err := time.Parse("2006-01-02", *f.EndDate)
		if err != nil {
			return out, apperr.New(apperr.BadInput, "end_date must be YYYY-MM-DD")
		}
		out.EndDate = &t
	}
	return out, nil
}

func (h *handlers) chatCompletion(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Question      string                `json:"question"`
		AgentType     agent.Type            `json:"agent_type"`
		Mode          retrieval.Mode        `json:"mode"`
		Operator      retrieval.Operator    `json:"operator"`
		FTSCandidates int                   `json:"fts_candidates"`
		MaxReturned   int                   `json:"max_returned"`
		Filters       *retrievalFiltersBody `json:"filters"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	params := agent.Params{
		Mode: body.Mode, Operator: body.Operator,
		FTSCandidates: body.FTSCandidates, MaxReturned: body.MaxReturned,
	}
	if body.Filters != nil {
		filters, err := body.Filters.toFilters()
		if err != nil {
			writeAppErr(w, err)
			return
		}
		params.Filters = filters
	}

	a, err := h.deps.Agents.Get(body.AgentType)
	if err != nil {
		writeAppErr(w, err)
		return
	}

	resp, err := a.Generate(r.Context(), body.Question, params)
	if err != nil {
		writeAppErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) retrievalQuery(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Query         string                `json:"query"`
		N             int                   `json:"n"`
		Mode          retrieval.Mode        `json:"mode"`
		Operator      retrieval.Operator    `json:"operator"`
		FTSCandidates int                   `json:"fts_candidates"`
		Filters       *retrievalFiltersBody `json:"filters"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	n := body.N
	if n <= 0 {
		n = 50
	}

	params := retrieval.Params{Query: body.Query, N: n, Operator: body.Operator, FTSCandidates: body.FTSCandidates}
	if body.Filters != nil {
		filters, err := body.Filters.toFilters()
		if err != nil {
			writeAppErr(w, err)
			return
		}
		params.Filters = filters
	}

	resp, err := h.deps.Retrieval.Retrieve(r.Context(), body.Mode, params)
	if err != nil {
		writeAppErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) retrievalExpand(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ChunkScores []struct {
			ChunkID string  `json:"chunk_id"`
			Score   float64 `json:"score"`
		} `json:"chunk_scores"`
		TokenBudget       int  `json:"token_budget"`
		IncludePreceding bool `json:"include_preceding_question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	budget := body.TokenBudget
	if budget <= 0 {
		budget = turns.DefaultTokenBudget
	}

	cs := make([]turns.ChunkScore, len(body.ChunkScores))
	for i, c := range body.ChunkScores {
		cs[i] = turns.ChunkScore{ChunkID: c.ChunkID, Score: c.Score}
	}

	views, err := h.deps.Expander.Expand(r.Context(), cs, budget, body.IncludePreceding)
	if err != nil {
		writeAppErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"turns": views})
}

func (h *handlers) retrievalQAPairs(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TurnRefs []struct {
			DocID string `json:"doc_id"`
			Ord   int    `json:"ord"`
		} `json:"turn_refs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	refs := make([]store.TurnRef, len(body.TurnRefs))
	for i, t := range body.TurnRefs {
		refs[i] = store.TurnRef{DocID: t.DocID, Ord: t.Ord}
	}

	prev, err := h.deps.Store.FetchPreviousTurns(r.Context(), refs)
	if err != nil {
		writeAppErr(w, err)
		return
	}

	type pair struct {
		PreviousTurn *store.Turn `json:"previous_turn"`
		ThisTurnRef  store.TurnRef `json:"this_turn_ref"`
	}
	pairs := make([]pair, len(refs))
	for i, ref := range refs {
		if t, ok := prev[ref]; ok {
			tCopy := t
			pairs[i] = pair{PreviousTurn: &tCopy, ThisTurnRef: ref}
		} else {
			pairs[i] = pair{ThisTurnRef: ref}
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"pairs": pairs})
}

func (h *handlers) retrievalBench(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("query")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	mode := retrieval.Mode(q.Get("mode"))

	plan, err := h.deps.Retrieval.ExplainFor(r.Context(), mode, retrieval.Params{Query: query, N: 50})
	if err != nil {
		writeAppErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"explain": plan})
}

func (h *handlers) ingestText(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text     string         `json:"text"`
		Title    string         `json:"title"`
		Source   string         `json:"source"`
		Metadata map[string]any `json:"metadata"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.deps.Pipeline.IngestText(r.Context(), ingest.TextRequest{
		Text: body.Text, Title: body.Title, Source: body.Source, Metadata: body.Metadata,
	})
	if err != nil {
		writeAppErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Middleware

func (h *handlers) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := h.deps.JWTManager.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *handlers) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		h.deps.Logger.Info("request",
			"method", r.Method, "path", r.URL.Path,
			"status", rw.status, "duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// Helpers

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeAppErr maps an apperr.Kind to the HTTP status spec.md §7 assigns
// it: BadInput -> 400, everything else -> 500 with a generic message (no
// stack leakage).
func writeAppErr(w http.ResponseWriter, err error) {
	kind, ok := apperr.KindOf(err)
	if ok && kind == apperr.BadInput {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, "internal error")
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}
