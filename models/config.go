// Package models defines the asset manifest and runtime configuration.
package models

import "time"

// DefaultTimeout bounds every HTTP request.
const DefaultTimeout = 30 * time.Second

// FetchConfig holds runtime configuration for fetch operations.
// Values come from CLI flags or their AUDIOFETCH_* environment variables.
type FetchConfig struct {
	Dir         string
	Timeout     time.Duration
	WorkerCount int
	Force       bool
	Verify      bool
	UseHistory  bool
}
