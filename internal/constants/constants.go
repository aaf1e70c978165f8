package constants

import "time"

// Context and session keys
const (
	ContextKeyUserID    = "user_id"
	ContextKeyIdentity  = "identity"
	ContextKeyTask      = "task"
	ContextKeyLogger    = "logger"
	ContextKeyRequestID = "request_id"
	SessionCookieName   = "task_session"
)

// Credentials
const (
	MinPasswordLength = 8
	DefaultTokenTTL   = 24 * time.Hour
)

// Invite codes
const (
	InviteCodeLength      = 6
	MaxInviteCodeAttempts = 5
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// AI task drafting
const (
	MaxAIGeneratedTasks = 20
	MaxAIInputLength    = 4000
)

// Notifications
const (
	NotifyTimeout = 10 * time.Second
)
