// Package schedule provides use cases for the scrape scheduler singleton.
// It anchors admin-supplied run times in the configured scheduling timezone
// and exposes the run claim the worker uses to decide run ownership.
package schedule

import "errors"

// Sentinel errors for schedule use case operations.
var (
	// ErrScheduleNotFound indicates that no schedule has been configured yet.
	// The singleton row is created on the first PUT and removed on DELETE.
	ErrScheduleNotFound = errors.New("schedule not configured")
)
