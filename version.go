package evel

// Version information for the event listener client library
const (
	// Version is the current library version
	Version = "development"

	// APIVersion is the VES event listener API version events are encoded for
	APIVersion = "v1"

	// BuildDate is set during build time
	BuildDate = "development"

	// GitCommit is set during build time
	GitCommit = "unknown"
)
