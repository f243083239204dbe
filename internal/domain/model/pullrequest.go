package model

// PRInfo is the head commit and lifecycle status of a pull request. It is
// re-derived on every poll and never cached beyond the in-flight request.
type PRInfo struct {
	CommitSHA string
	Status    PRStatus
}
