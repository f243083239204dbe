package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/learnpreview/internal/application"
	"github.com/ericfisherdev/learnpreview/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// ButtonResponse is the rendered state of one file's preview button.
type ButtonResponse struct {
	File        string `json:"file"`
	Enabled     bool   `json:"enabled"`
	Gate        string `json:"gate"`
	Reason      string `json:"reason,omitempty"`
	TooltipHTML string `json:"tooltip_html,omitempty"`
	PreviewURL  string `json:"preview_url,omitempty"`
}

// SessionResponse is the JSON representation of a session snapshot.
type SessionResponse struct {
	ID          string           `json:"id"`
	URL         string           `json:"url"`
	Repository  string           `json:"repository,omitempty"`
	PRNumber    int              `json:"pr_number,omitempty"`
	Active      bool             `json:"active"`
	Gate        string           `json:"gate"`
	Reason      string           `json:"reason,omitempty"`
	TooltipHTML string           `json:"tooltip_html,omitempty"`
	CommitSHA   string           `json:"commit_sha,omitempty"`
	PRStatus    string           `json:"pr_status,omitempty"`
	BuildStatus string           `json:"build_status,omitempty"`
	LastCheck   string           `json:"last_check,omitempty"`
	Buttons     []ButtonResponse `json:"buttons"`
}

// DOMResponse carries the reconciled buttons and the patched page markup.
type DOMResponse struct {
	Buttons []ButtonResponse `json:"buttons"`
	HTML    string           `json:"html"`
}

// ClickResponse is returned for an enabled button.
type ClickResponse struct {
	File string `json:"file"`
	URL  string `json:"url"`
}

// DisabledResponse is returned with 409 when a gated button is clicked.
type DisabledResponse struct {
	File        string `json:"file"`
	Gate        string `json:"gate"`
	Reason      string `json:"reason"`
	TooltipHTML string `json:"tooltip_html"`
}

// PreviewResponse is the JSON body of the preview lookup endpoint.
type PreviewResponse struct {
	Repository string `json:"repository"`
	PRNumber   int    `json:"pr_number"`
	File       string `json:"file"`
	URL        string `json:"url"`
}

// OpsResponse reports whether a repository publishes documentation builds.
type OpsResponse struct {
	Repository string `json:"repository"`
	Ops        bool   `json:"ops"`
}

// TokenResponse reports the outcome of a credential change.
type TokenResponse struct {
	Configured bool   `json:"configured"`
	Changed    bool   `json:"changed"`
	Event      string `json:"event,omitempty"`
}

// NavigateRequest is the JSON body for the navigate endpoint.
type NavigateRequest struct {
	URL string `json:"url"`
}

// ClickRequest is the JSON body for the click endpoint.
type ClickRequest struct {
	File string `json:"file"`
}

// TokenRequest is the JSON body for the credential endpoint.
type TokenRequest struct {
	Token string `json:"token"`
}

func toButtonResponse(v model.ButtonView) ButtonResponse {
	return ButtonResponse{
		File:        v.File,
		Enabled:     v.Enabled(),
		Gate:        v.Gate.String(),
		Reason:      v.Reason,
		TooltipHTML: RenderTooltip(v.Reason),
		PreviewURL:  v.PreviewURL,
	}
}

func toButtonResponses(views []model.ButtonView) []ButtonResponse {
	resp := make([]ButtonResponse, 0, len(views))
	for _, v := range views {
		resp = append(resp, toButtonResponse(v))
	}
	return resp
}

func toSessionResponse(s application.SessionSnapshot) SessionResponse {
	resp := SessionResponse{
		ID:          s.ID,
		URL:         s.URL,
		Active:      s.Active,
		Gate:        s.State.Gate.String(),
		Reason:      s.State.Reason(),
		TooltipHTML: RenderTooltip(s.State.Reason()),
		CommitSHA:   s.State.LatestCommitSHA,
		PRStatus:    string(s.State.PRStatus),
		BuildStatus: string(s.State.LastBuildStatus),
		Buttons:     toButtonResponses(s.Buttons),
	}
	if s.Ref.Owner != "" {
		resp.Repository = s.Ref.Owner + "/" + s.Ref.Repo
		resp.PRNumber = s.Ref.PRNumber
	}
	if !s.State.LastCheck.IsZero() {
		resp.LastCheck = s.State.LastCheck.UTC().Format(time.RFC3339)
	}
	return resp
}
