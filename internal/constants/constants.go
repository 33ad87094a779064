package constants

import "time"

// Context keys
const (
	ContextKeyUserID   = "user_id"
	ContextKeyUserRole = "usertype"
)

// Authentication
const (
	MinPasswordLength = 8
	TokenLifetime     = 24 * time.Hour
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)
