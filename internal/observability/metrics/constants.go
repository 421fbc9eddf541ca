// Package metrics provides constants used across metric definitions.
package metrics

// Histogram bucket parameters.
const (
	BucketStart1ms   = 0.001
	BucketStart10ms  = 0.01
	BucketStart100ms = 0.1
	BucketFactor2    = 2
	BucketCount10    = 10
	BucketCount12    = 12
	BucketCount15    = 15
)

// Label values shared by several collectors.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	ResultAccepted = "accepted"
	ResultFallback = "fallback"
	ResultFailed   = "failed"

	TierMemory = "memory"
	TierStore  = "store"
)

// Validation outcome kinds.
const (
	OutcomeClassified   = "classified"
	OutcomeDownload     = "download_failed"
	OutcomeUnparsable   = "unparsable"
	OutcomeUnconfigured = "unconfigured"
	OutcomeUnreachable  = "unreachable"
)
