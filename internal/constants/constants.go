// Package constants provides named constants used throughout the hivesight codebase.
// This centralizes magic numbers for better maintainability and documentation.
package constants

import (
	"math"
	"time"
)

// Oracle retry constants
const (
	// DefaultMaxAttempts is the total number of oracle calls a single prompt may
	// consume while the oracle keeps signalling rate limits (first call included).
	DefaultMaxAttempts = 5

	// DefaultInitialDelay is the base backoff delay after the first rate-limit signal.
	// Each further consecutive rate-limit signal doubles it.
	DefaultInitialDelay = 1 * time.Second

	// DefaultMaxDelay caps every backoff delay, jitter included.
	DefaultMaxDelay = 60 * time.Second

	// DefaultTransientDelay is the fixed pause before the single retry granted
	// to a non-rate-limit failure.
	DefaultTransientDelay = 1 * time.Second

	// DefaultTransientRetries is the number of retries granted to non-rate-limit failures.
	DefaultTransientRetries = 1

	// MaxJitter bounds the uniform jitter added to each rate-limit backoff.
	MaxJitter = 1 * time.Second
)

// Dispatch sizing constants
const (
	// DefaultConcurrency is the number of oracle calls allowed in flight at once.
	DefaultConcurrency = 16

	// MaxSampleSize is the largest sample a single run may request.
	MaxSampleSize = 1000
)

// Oracle request defaults
const (
	// DefaultTemperature matches the sampling temperature the survey product has always used.
	DefaultTemperature = 1.0

	// DefaultMaxTokens keeps answers to a single short token sequence; a number or Yes/No.
	DefaultMaxTokens = 5

	// DefaultOracleTimeout is the per-call HTTP timeout for hosted providers.
	DefaultOracleTimeout = 30 * time.Second
)

// Statistics constants
const (
	// ConfidenceLevel is the two-sided coverage of every reported interval.
	ConfidenceLevel = 0.95

	// LikertPoints is the size of the agreement scale.
	LikertPoints = 5

	// MinChoiceOptions is the smallest option list a multiple choice question accepts.
	MinChoiceOptions = 2
)

// LikertLabels names each point of the agreement scale, index 0 is score 1.
var LikertLabels = []string{
	"Strongly Disagree",
	"Disagree",
	"Neutral",
	"Agree",
	"Strongly Agree",
}

// Binary answer labels.
const (
	YesLabel = "Yes"
	NoLabel  = "No"
)

// AgeBins are the pivot bin edges for the age field; the last bin is open-ended.
var AgeBins = []float64{0, 18, 25, 35, 45, 55, 65, math.Inf(1)}

// IncomeBins are the pivot bin edges for the income field; the last bin is open-ended.
var IncomeBins = []float64{0, 30000, 60000, 90000, 120000, math.Inf(1)}

// Server rate limits (tokens per second, burst).
const (
	SimulateToolRate  = 6.0 / 60.0
	SimulateToolBurst = 2
	HistoryToolRate   = 1.0
	HistoryToolBurst  = 10
)
