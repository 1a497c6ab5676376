package model

// Service lifecycle status constants.
const (
	StatusActive   = "active"
	StatusPaused   = "paused"
	StatusDeleting = "deleting"
	StatusFailed   = "failed"
)
