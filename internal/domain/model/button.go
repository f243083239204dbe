package model

import (
	"strings"
	"time"
)

// renameSeparator joins the old and new path in a renamed file's header link.
const renameSeparator = " → "

// ButtonState is the shared, PR-level state that drives every preview button
// in the current PR view.
type ButtonState struct {
	LatestCommitSHA string
	LastBuildStatus CheckState
	PRStatus        PRStatus
	Gate            Gate
	Check           *StatusCheck
	LastCheck       time.Time
}

// Disabled reports whether buttons must be rendered disabled.
func (s ButtonState) Disabled() bool {
	return !s.Gate.Enabled()
}

// Reason returns the disabled reason, or "" when enabled.
func (s ButtonState) Reason() string {
	return s.Gate.Message()
}

// ButtonView is the rendered state of a single file's preview button.
type ButtonView struct {
	File       string
	Gate       Gate
	Reason     string
	PreviewURL string
}

// Enabled reports whether clicking the button opens a preview.
func (v ButtonView) Enabled() bool {
	return v.Gate.Enabled() && v.PreviewURL != ""
}

// FileNameFromLinkText returns the lookup key for a file header link. Renamed
// files render as "old/path.md → new/path.md"; the new path is returned.
func FileNameFromLinkText(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.LastIndex(text, renameSeparator); i >= 0 {
		return strings.TrimSpace(text[i+len(renameSeparator):])
	}
	return text
}
