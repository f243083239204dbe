package model

// Gate is the PR-level gating state of the preview buttons. GateEnabled is the
// only state in which buttons may open a preview; every other value carries a
// user-facing reason.
type Gate int

const (
	GateUnknown Gate = iota
	GateChecking
	GateEnabled
	GateNeedsAuth
	GatePRClosed
	GateNoBuild
	GateBuildInProgress
	GateBuildFailed
	GateNoReportURL
	GateNotPublished
)

var gateNames = map[Gate]string{
	GateUnknown:         "unknown",
	GateChecking:        "checking",
	GateEnabled:         "enabled",
	GateNeedsAuth:       "needs_auth",
	GatePRClosed:        "pr_closed",
	GateNoBuild:         "no_build",
	GateBuildInProgress: "build_in_progress",
	GateBuildFailed:     "build_failed",
	GateNoReportURL:     "no_report_url",
	GateNotPublished:    "not_published",
}

// Messages are markdown; hosts render them as tooltips.
var gateMessages = map[Gate]string{
	GateUnknown:         "Unable to determine the preview status. Will retry shortly.",
	GateChecking:        "Checking build status...",
	GateEnabled:         "",
	GateNeedsAuth:       "Add a GitHub personal access token in the extension options to preview on Learn.",
	GatePRClosed:        "This pull request is closed, so no preview is available.",
	GateNoBuild:         "No documentation build was found for the latest commit.",
	GateBuildInProgress: "The documentation build is in progress. Try again when it completes.",
	GateBuildFailed:     "The documentation build failed. Check the build report for details.",
	GateNoReportURL:     "The documentation build did not publish a build report.",
	GateNotPublished:    "This file is not published in the build report.",
}

// String returns a stable machine-readable name for the gate.
func (g Gate) String() string {
	if s, ok := gateNames[g]; ok {
		return s
	}
	return "unknown"
}

// ParseGate returns the gate with the given String name, or GateUnknown.
func ParseGate(name string) Gate {
	for g, n := range gateNames {
		if n == name {
			return g
		}
	}
	return GateUnknown
}

// Message returns the user-facing reason for the gate, or "" when enabled.
func (g Gate) Message() string {
	if s, ok := gateMessages[g]; ok {
		return s
	}
	return gateMessages[GateUnknown]
}

// Enabled reports whether the gate allows previews.
func (g Gate) Enabled() bool {
	return g == GateEnabled
}

// GateInput is everything the PR-level gate decision depends on.
type GateInput struct {
	HasCredential bool
	PR            *PRInfo      // nil when the PR could not be resolved.
	Check         *StatusCheck // nil when no matching check exists.
}

// EvaluateGate applies the gating precedence; earlier rules win.
func EvaluateGate(in GateInput) Gate {
	switch {
	case !in.HasCredential:
		return GateNeedsAuth
	case in.PR == nil:
		return GateUnknown
	case in.PR.Status == PRStatusClosed:
		return GatePRClosed
	case in.Check == nil:
		return GateNoBuild
	case in.Check.State == CheckStatePending:
		return GateBuildInProgress
	case !in.Check.IsTerminalSuccess():
		return GateBuildFailed
	case in.Check.DetailsURL == "":
		return GateNoReportURL
	default:
		return GateEnabled
	}
}
