// Package httphandler implements the JSON API driving adapter used by the
// in-page button.
package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ericfisherdev/learnpreview/internal/adapter/driven/htmldoc"
	"github.com/ericfisherdev/learnpreview/internal/application"
	"github.com/ericfisherdev/learnpreview/internal/domain/model"
	"github.com/ericfisherdev/learnpreview/internal/domain/port/driven"
)

// maxDOMBytes bounds the page markup accepted by the DOM endpoint.
const maxDOMBytes = 8 << 20

// DefaultAllowedOrigins are the browser origins allowed to call the API.
var DefaultAllowedOrigins = []string{"https://github.com"}

// SessionService is the session the in-page shim drives.
type SessionService interface {
	Navigate(ctx context.Context, rawURL string) (application.SessionSnapshot, error)
	ApplyDOM(ctx context.Context, doc driven.Document) ([]model.ButtonView, error)
	Inspect(ctx context.Context, fn func(doc driven.Document)) error
	Click(ctx context.Context, file string) (model.ButtonView, error)
	Snapshot() application.SessionSnapshot
}

// PreviewResolver resolves one file's preview URL.
type PreviewResolver interface {
	PreviewURL(ctx context.Context, ref model.RepoRef, file string) (string, bool)
}

// OpsClassifier decides whether a repository is a documentation repository.
type OpsClassifier interface {
	IsOpsRepo(ctx context.Context, ref model.RepoRef) bool
}

// TokenManager stores and clears the GitHub token.
type TokenManager interface {
	SetToken(ctx context.Context, token string) (model.EventKind, bool, error)
	ClearToken(ctx context.Context) (bool, error)
	HasToken() bool
}

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	session    SessionService
	previews   PreviewResolver
	classifier OpsClassifier
	tokens     TokenManager
	logger     zerolog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	session SessionService,
	previews PreviewResolver,
	classifier OpsClassifier,
	tokens TokenManager,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		session:    session,
		previews:   previews,
		classifier: classifier,
		tokens:     tokens,
		logger:     logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging, recovery and origin middleware.
func NewServeMux(h *Handler, allowedOrigins []string, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/session", h.GetSession)
	mux.HandleFunc("POST /api/v1/session/navigate", h.Navigate)
	mux.HandleFunc("POST /api/v1/session/dom", h.ApplyDOM)
	mux.HandleFunc("POST /api/v1/session/click", h.Click)
	mux.HandleFunc("GET /api/v1/repos/{owner}/{repo}/pulls/{number}/preview", h.GetPreview)
	mux.HandleFunc("GET /api/v1/repos/{owner}/{repo}/ops", h.GetOps)
	mux.HandleFunc("GET /api/v1/credentials/github", h.GetToken)
	mux.HandleFunc("PUT /api/v1/credentials/github", h.PutToken)
	mux.HandleFunc("DELETE /api/v1/credentials/github", h.DeleteToken)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = localOriginMiddleware(allowedOrigins, wrapped)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// GetSession returns the current session snapshot.
func (h *Handler) GetSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toSessionResponse(h.session.Snapshot()))
}

// Navigate reports a host page location change.
func (h *Handler) Navigate(w http.ResponseWriter, r *http.Request) {
	var req NavigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	snap, err := h.session.Navigate(r.Context(), req.URL)
	if err != nil {
		h.sessionError(w, "navigate", err)
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(snap))
}

// ApplyDOM accepts the markup of a PR files view, reconciles its preview
// buttons and returns the button views with the patched markup.
func (h *Handler) ApplyDOM(w http.ResponseWriter, r *http.Request) {
	doc, err := htmldoc.Parse(io.LimitReader(r.Body, maxDOMBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid page markup")
		return
	}

	views, err := h.session.ApplyDOM(r.Context(), doc)
	if err != nil {
		h.sessionError(w, "apply dom", err)
		return
	}

	var markup string
	if err := h.session.Inspect(r.Context(), func(driven.Document) { markup = doc.String() }); err != nil {
		h.sessionError(w, "render dom", err)
		return
	}

	writeJSON(w, http.StatusOK, DOMResponse{
		Buttons: toButtonResponses(views),
		HTML:    markup,
	})
}

// Click activates a file's preview button.
func (h *Handler) Click(w http.ResponseWriter, r *http.Request) {
	var req ClickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.File) == "" {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}

	view, err := h.session.Click(r.Context(), req.File)
	switch {
	case errors.Is(err, application.ErrButtonDisabled):
		writeJSON(w, http.StatusConflict, DisabledResponse{
			File:        view.File,
			Gate:        view.Gate.String(),
			Reason:      view.Reason,
			TooltipHTML: RenderTooltip(view.Reason),
		})
		return
	case err != nil:
		h.logger.Error().Err(err).Str("file", req.File).Msg("failed to open preview")
		writeError(w, http.StatusBadGateway, "failed to open preview")
		return
	}

	writeJSON(w, http.StatusOK, ClickResponse{File: view.File, URL: view.PreviewURL})
}

// GetPreview resolves one file's preview URL in a pull request.
func (h *Handler) GetPreview(w http.ResponseWriter, r *http.Request) {
	ref, ok := repoRefFromPath(w, r)
	if !ok {
		return
	}

	number, err := strconv.Atoi(r.PathValue("number"))
	if err != nil || number <= 0 {
		writeError(w, http.StatusBadRequest, "invalid PR number")
		return
	}
	ref.PRNumber = number

	file := strings.TrimSpace(r.URL.Query().Get("file"))
	if file == "" {
		writeError(w, http.StatusBadRequest, "file query parameter is required")
		return
	}

	url, found := h.previews.PreviewURL(r.Context(), ref, file)
	if !found {
		writeError(w, http.StatusNotFound, "no preview for this file")
		return
	}

	writeJSON(w, http.StatusOK, PreviewResponse{
		Repository: ref.Owner + "/" + ref.Repo,
		PRNumber:   ref.PRNumber,
		File:       file,
		URL:        url,
	})
}

// GetOps reports whether a repository is a documentation repository.
func (h *Handler) GetOps(w http.ResponseWriter, r *http.Request) {
	ref, ok := repoRefFromPath(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, OpsResponse{
		Repository: ref.Owner + "/" + ref.Repo,
		Ops:        h.classifier.IsOpsRepo(r.Context(), ref),
	})
}

// GetToken reports whether a GitHub token is configured.
func (h *Handler) GetToken(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, TokenResponse{Configured: h.tokens.HasToken()})
}

// PutToken stores a GitHub token, completing authentication.
func (h *Handler) PutToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	kind, changed, err := h.tokens.SetToken(r.Context(), req.Token)
	switch {
	case errors.Is(err, application.ErrTokenFormat):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, application.ErrTokenRejected):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to store github token")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := TokenResponse{Configured: true, Changed: changed}
	if changed {
		resp.Event = kind.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

// DeleteToken clears the GitHub token.
func (h *Handler) DeleteToken(w http.ResponseWriter, r *http.Request) {
	had, err := h.tokens.ClearToken(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to clear github token")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := TokenResponse{Configured: false, Changed: had}
	if had {
		resp.Event = model.EventCredentialRemoved.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) sessionError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, application.ErrSessionStopped):
		writeError(w, http.StatusServiceUnavailable, "session stopped")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request canceled")
	default:
		h.logger.Error().Err(err).Str("op", op).Msg("session request failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// repoRefFromPath validates the {owner}/{repo} path values, writing a 400 on
// failure.
func repoRefFromPath(w http.ResponseWriter, r *http.Request) (model.RepoRef, bool) {
	owner := r.PathValue("owner")
	repo := r.PathValue("repo")
	if !isValidRepoName(owner + "/" + repo) {
		writeError(w, http.StatusBadRequest, "invalid repository name: expected owner/repo format")
		return model.RepoRef{}, false
	}
	return model.RepoRef{Owner: owner, Repo: repo}, true
}

// isValidRepoName validates that name is in owner/repo format where each part
// contains only alphanumeric characters, hyphens, dots, or underscores.
func isValidRepoName(name string) bool {
	parts := strings.SplitN(name, "/", 3)
	if len(parts) != 2 {
		return false
	}

	for _, part := range parts {
		if part == "" {
			return false
		}
		for _, ch := range part {
			if !isValidRepoChar(ch) {
				return false
			}
		}
	}

	return true
}

// isValidRepoChar returns true if the rune is allowed in a repository owner or name.
func isValidRepoChar(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9') ||
		ch == '-' || ch == '.' || ch == '_'
}
