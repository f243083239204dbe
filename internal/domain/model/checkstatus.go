package model

import "time"

// CommitStatus represents an individual status entry from the GitHub Status API.
type CommitStatus struct {
	Context   string    // CI service identifier (e.g., "OpenPublishing.Build").
	State     string    // success, failure, pending, error.
	TargetURL string    // URL for more details on the status.
	UpdatedAt time.Time // Used to break ties between matching contexts.
}

// StatusCheck is the named status check located for a commit.
type StatusCheck struct {
	Name       string
	State      CheckState
	DetailsURL string
}

// IsTerminalSuccess reports whether the check finished successfully.
func (c StatusCheck) IsTerminalSuccess() bool {
	return c.State == CheckStateSuccess
}
