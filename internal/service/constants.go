package service

import "time"

// Timeout constants for service operations
const (
	// DefaultNPMTimeout is the timeout for npm operations
	DefaultNPMTimeout = 60 * time.Second
	// DefaultGoReleaserTimeout is the timeout for a goreleaser run
	DefaultGoReleaserTimeout = 15 * time.Minute
)
