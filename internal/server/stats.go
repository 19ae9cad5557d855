package server

import "sync/atomic"

// Stats are process-wide counters exposed on /metrics.
type Stats struct {
	SessionsTotal  atomic.Int64
	SessionsActive atomic.Int64
	RequestsTotal  atomic.Int64
	ErrorsTotal    atomic.Int64
}
