package types

import "time"

// PerfSample is one record of a single LLM call's observed performance.
type PerfSample struct {
	Timestamp       time.Time
	Model           string
	ResponseTimeSec float64
	PromptLen       int
	ResponseLen     int
	Success         bool
	ErrorKind       ErrorCode
}
