// Package server provides the HTTP API for the screenshot worker.
//
// Endpoints:
//
//	GET  /health                    — liveness/readiness probe
//	POST /generate-script            — ask the collaborator for an eval instruction
//	POST /generate-test               — ask the collaborator for an eval test
//	POST /generate-action-script       — ask the collaborator for an action-DSL instruction
//	POST /generate-action-test         — ask the collaborator for an action-DSL test
//	POST /test-script                  — validate a script before saving it (structural/syntax checks only; the script is not run)
//	POST /discover-pages                — ask the collaborator to propose pages for a site
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/tomasbasham/pageshot/internal/actions"
	"github.com/tomasbasham/pageshot/internal/browserpool"
	"github.com/tomasbasham/pageshot/internal/llmclient"
	"github.com/tomasbasham/pageshot/internal/model"
	"github.com/tomasbasham/pageshot/internal/prepare"
)

// defaultTrialViewport is used to prepare the page for the one-shot live
// trial evaluation of a generated eval script; it does not need to match any
// configured viewport since the script is not persisted yet.
var defaultTrialViewport = prepare.Viewport{Width: 1920, Height: 1080}

const trialPrepareTimeout = 20 * time.Second

// Store is everything the HTTP surface needs from persistence, beyond what
// the scheduler and retention packages already require.
type Store interface {
	GetPage(ctx context.Context, pageID string) (model.Page, error)
	ListPagesForSite(ctx context.Context, siteID string) ([]model.Page, error)
	CreatePage(ctx context.Context, p model.Page) error
	CreateInstruction(ctx context.Context, in model.Instruction) error
	CreateTest(ctx context.Context, t model.Test) error
}

// Collaborator is the subset of llmclient.Client the server depends on,
// narrowed to an interface so handlers are testable without a live service.
type Collaborator interface {
	GenerateScript(ctx context.Context, req llmclient.GenerateRequest) (llmclient.GenerateResponse, error)
	GenerateTest(ctx context.Context, req llmclient.GenerateRequest) (llmclient.GenerateResponse, error)
	GenerateActionScript(ctx context.Context, req llmclient.GenerateRequest) (llmclient.GenerateResponse, error)
	GenerateActionTest(ctx context.Context, req llmclient.GenerateRequest) (llmclient.GenerateResponse, error)
	DiscoverPages(ctx context.Context, siteURL string) ([]string, error)
}

// Pinger reports whether the backing database is reachable. *store.Store
// satisfies this via its Ping method.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Heartbeat reports when the scheduler's capture poll last ran, so the
// health endpoint can surface a stalled scheduler without a separate probe.
type Heartbeat interface {
	LastPoll() time.Time
}

// BrowserPool is the subset of browserpool.Pool the server needs to run a
// live trial evaluation of a freshly generated eval script before it is
// handed back to the caller for persistence, and to report pool occupancy
// on the health endpoint.
type BrowserPool interface {
	Acquire(ctx context.Context) (*browserpool.Browser, error)
	Release(b *browserpool.Browser)
	ReportCrash(ctx context.Context, b *browserpool.Browser)
	Stats() browserpool.Stats
}

// Server holds the dependencies shared across HTTP handlers.
type Server struct {
	store     Store
	llm       Collaborator
	db        Pinger
	scheduler Heartbeat
	pool      BrowserPool
	mux       *http.ServeMux
}

// New creates a Server wired to the given store and collaborator client.
// db, sched and pool are optional (nil is fine): db/sched only enrich the
// health endpoint, and pool, when absent, downgrades eval-script generation
// to syntax-only validation rather than a live trial evaluation.
func New(store Store, llm Collaborator, db Pinger, sched Heartbeat, pool BrowserPool) *Server {
	s := &Server{store: store, llm: llm, db: db, scheduler: sched, pool: pool}

	s.mux = http.NewServeMux()
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /generate-script", s.handleGenerateScript)
	s.mux.HandleFunc("POST /generate-test", s.handleGenerateTest)
	s.mux.HandleFunc("POST /generate-action-script", s.handleGenerateActionScript)
	s.mux.HandleFunc("POST /generate-action-test", s.handleGenerateActionTest)
	s.mux.HandleFunc("POST /test-script", s.handleTestScript)
	s.mux.HandleFunc("POST /discover-pages", s.handleDiscoverPages)

	return s
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"

	dbReachable := true
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			dbReachable = false
			status = "degraded"
		}
	}

	body := map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"db":        dbReachable,
	}

	if s.scheduler != nil {
		last := s.scheduler.LastPoll()
		if !last.IsZero() {
			body["scheduler_heartbeat_age_seconds"] = time.Since(last).Seconds()
		}
	}

	if s.pool != nil {
		st := s.pool.Stats()
		body["pool_status"] = map[string]int{
			"total": st.Total, "available": st.Available, "in_use": st.InUse, "waiting": st.Waiting,
		}
	}

	code := http.StatusOK
	if !dbReachable {
		code = http.StatusServiceUnavailable
	}
	writeSuccess(w, code, body)
}

// generateRequest is the common JSON body for every /generate-* endpoint.
type generateRequest struct {
	PageID   string `json:"page_id"`
	Prompt   string `json:"prompt"`
	Viewport int    `json:"viewport,omitempty"`
}

func (s *Server) handleGenerateScript(w http.ResponseWriter, r *http.Request) {
	s.handleGenerate(w, r, func(ctx context.Context, req llmclient.GenerateRequest) (llmclient.GenerateResponse, error) {
		return s.llm.GenerateScript(ctx, req)
	}, s.validateEvalOutputLive, model.ScriptTypeEval, false)
}

func (s *Server) handleGenerateTest(w http.ResponseWriter, r *http.Request) {
	s.handleGenerate(w, r, func(ctx context.Context, req llmclient.GenerateRequest) (llmclient.GenerateResponse, error) {
		return s.llm.GenerateTest(ctx, req)
	}, s.validateEvalOutputLive, model.ScriptTypeEval, true)
}

func (s *Server) handleGenerateActionScript(w http.ResponseWriter, r *http.Request) {
	s.handleGenerate(w, r, func(ctx context.Context, req llmclient.GenerateRequest) (llmclient.GenerateResponse, error) {
		return s.llm.GenerateActionScript(ctx, req)
	}, validateActionScript, model.ScriptTypeActions, false)
}

func (s *Server) handleGenerateActionTest(w http.ResponseWriter, r *http.Request) {
	s.handleGenerate(w, r, func(ctx context.Context, req llmclient.GenerateRequest) (llmclient.GenerateResponse, error) {
		return s.llm.GenerateActionTest(ctx, req)
	}, validateActionScript, model.ScriptTypeActions, true)
}

// validator validates a generated script against the page it was generated
// for, returning a short human-readable summary on success. pageURL lets an
// eval validator run a live trial evaluation against the right page; a
// structural-only validator (e.g. validateActionScript) ignores it.
type validator func(ctx context.Context, pageURL, script string, isTest bool) (string, error)

func (s *Server) handleGenerate(
	w http.ResponseWriter,
	r *http.Request,
	call func(context.Context, llmclient.GenerateRequest) (llmclient.GenerateResponse, error),
	validate validator,
	kind model.ScriptType,
	isTest bool,
) {
	var req generateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.PageID == "" || req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "page_id and prompt are required")
		return
	}

	page, err := s.store.GetPage(r.Context(), req.PageID)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("page %q not found", req.PageID))
		return
	}

	resp, err := call(r.Context(), llmclient.GenerateRequest{
		PageURL:  page.URL,
		Prompt:   req.Prompt,
		Viewport: req.Viewport,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "collaborator: "+err.Error())
		return
	}

	summary, err := validate(r.Context(), page.URL, resp.Script, isTest)
	if err != nil {
		writeError(w, http.StatusBadRequest, "generated script failed validation: "+err.Error())
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"script":      resp.Script,
		"script_type": kind,
		"explanation": resp.Explanation,
		"validation":  summary,
	})
}

// testScriptRequest is the JSON body for POST /test-script, used to validate
// an already-authored script (e.g. hand-edited by a user) before it is
// attached to a page as an instruction or test.
type testScriptRequest struct {
	Script     string `json:"script"`
	ScriptType string `json:"script_type"`
	IsTest     bool   `json:"is_test"`
}

func (s *Server) handleTestScript(w http.ResponseWriter, r *http.Request) {
	var req testScriptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Script == "" {
		writeError(w, http.StatusBadRequest, "script is required")
		return
	}

	var summary string
	var err error
	switch model.ScriptType(req.ScriptType) {
	case model.ScriptTypeActions:
		summary, err = validateActionOutput(req.Script, req.IsTest)
	case model.ScriptTypeEval:
		summary, err = validateEvalOutputSyntax(req.Script)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown script_type %q", req.ScriptType))
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"validation": summary})
}

type discoverPagesRequest struct {
	SiteURL string `json:"site_url"`
}

func (s *Server) handleDiscoverPages(w http.ResponseWriter, r *http.Request) {
	var req discoverPagesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.SiteURL == "" {
		writeError(w, http.StatusBadRequest, "site_url is required")
		return
	}

	pages, err := s.llm.DiscoverPages(r.Context(), req.SiteURL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "collaborator: "+err.Error())
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"pages": pages})
}

// validateActionOutput runs the full action-DSL validation pipeline and
// returns a short human-readable summary.
func validateActionOutput(script string, isTest bool) (string, error) {
	report := actions.Validate([]byte(script), isTest)
	if !report.Valid {
		if report.Hint != "" {
			return "", fmt.Errorf("%d of %d steps failed validation: %v (%s)", report.FailedSteps, report.TotalSteps, report.Errors, report.Hint)
		}
		return "", fmt.Errorf("%d of %d steps failed validation: %v", report.FailedSteps, report.TotalSteps, report.Errors)
	}
	return fmt.Sprintf("%d steps valid", report.PassedSteps), nil
}

// validateActionScript adapts validateActionOutput to the validator
// signature; action-DSL validation is purely structural and needs neither
// ctx nor the page's URL.
func validateActionScript(ctx context.Context, pageURL, script string, isTest bool) (string, error) {
	return validateActionOutput(script, isTest)
}

// validateEvalOutputSyntax runs the syntactic eval-script check only, for
// callers (POST /test-script) that have no associated page to prepare a
// live trial against.
func validateEvalOutputSyntax(script string) (string, error) {
	report := actions.ValidateEvalScriptSyntax(script)
	if !report.Valid {
		return "", fmt.Errorf("%v", report.Errors)
	}
	return "syntax ok", nil
}

// validateEvalOutputLive runs the syntactic check and, when a browser pool
// is available, a live trial evaluation: it acquires a browser, prepares
// pageURL exactly as a real capture would, and runs script against it so a
// thrown exception or a bad DOM assumption surfaces before the script is
// ever persisted, per the validate-before-respond contract.
func (s *Server) validateEvalOutputLive(ctx context.Context, pageURL, script string, isTest bool) (string, error) {
	syntax := actions.ValidateEvalScriptSyntax(script)
	if !syntax.Valid {
		return "", fmt.Errorf("%v", syntax.Errors)
	}

	if s.pool == nil {
		return "syntax ok (no browser pool configured, live trial evaluation skipped)", nil
	}

	browser, err := s.pool.Acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("acquire browser for trial evaluation: %w", err)
	}

	tabCtx, cancel := chromedp.NewContext(browser.Context())
	defer cancel()

	if _, err := prepare.Run(tabCtx, prepare.Options{
		URL:      pageURL,
		Viewport: defaultTrialViewport,
		Timeout:  trialPrepareTimeout,
	}); err != nil {
		s.pool.Release(browser)
		return "", fmt.Errorf("prepare page for trial evaluation: %w", err)
	}

	live := actions.ValidateEvalScriptLive(tabCtx, script)
	if tabCtx.Err() != nil {
		s.pool.ReportCrash(ctx, browser)
	} else {
		s.pool.Release(browser)
	}
	if !live.Valid {
		return "", fmt.Errorf("%v", live.Errors)
	}
	return "syntax ok, trial evaluation passed", nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeSuccess(w http.ResponseWriter, status int, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["success"] = true
	writeJSON(w, status, data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
