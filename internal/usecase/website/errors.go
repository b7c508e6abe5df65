// Package website provides use cases for managing monitored listing sites.
// It implements business logic for creating, updating, deleting, and querying
// website settings, including validation and interaction with the repository.
package website

import "errors"

// Sentinel errors for website use case operations.
var (
	// ErrWebsiteNotFound indicates that the requested website was not found.
	// This error is typically returned when attempting to retrieve or update
	// a site that does not exist in the repository.
	ErrWebsiteNotFound = errors.New("website not found")
)
