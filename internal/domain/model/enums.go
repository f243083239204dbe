package model

// PRStatus represents the state of a pull request.
type PRStatus string

const (
	PRStatusOpen   PRStatus = "open"
	PRStatusClosed PRStatus = "closed"
	PRStatusMerged PRStatus = "merged"
)

// CheckState represents the state of a commit status check.
type CheckState string

const (
	CheckStatePending CheckState = "pending"
	CheckStateSuccess CheckState = "success"
	CheckStateFailure CheckState = "failure"
	CheckStateError   CheckState = "error"
)
