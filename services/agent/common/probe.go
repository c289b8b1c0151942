package common

import "time"

// ProbeResult is the outcome of a single external service check
type ProbeResult struct {
	Name         string
	URL          string
	Value        string
	StatusCode   int
	ResponseTime time.Duration
	Available    bool
	Err          error
}
