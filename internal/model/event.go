// Package model defines shared constants for the event log.
package model

// Event levels
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event categories
const (
	EventCategoryAuth    = "auth"
	EventCategoryPost    = "post"
	EventCategoryComment = "comment"
	EventCategoryUser    = "user"
	EventCategorySystem  = "system"
)
