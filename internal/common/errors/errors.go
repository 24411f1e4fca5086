// internal/common/errors/errors.go

// Package errors provides standardized error handling for the notification
// dispatch pipeline. Every condition a caller must branch on gets its own
// ErrorCode; everything else is wrapped as a generic provider or query error.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Channel / profile errors
const (
	ErrCodeMissingChatHandle ErrorCode = "MISSING_CHAT_HANDLE"
	ErrCodeChatNotLinked     ErrorCode = "CHAT_NOT_LINKED"
	ErrCodeChatNotFound      ErrorCode = "CHAT_NOT_FOUND"
	ErrCodeMissingEmail      ErrorCode = "MISSING_EMAIL"
	ErrCodeRateLimited       ErrorCode = "RATE_LIMITED"
	ErrCodeProvider          ErrorCode = "PROVIDER_ERROR"
)

// Record / store errors
const (
	ErrCodeSubscriptionNotFound     ErrorCode = "SUBSCRIPTION_NOT_FOUND"
	ErrCodeSubscriptionLimitReached ErrorCode = "SUBSCRIPTION_LIMIT_REACHED"
	ErrCodeTransportUnsatisfiable   ErrorCode = "TRANSPORT_UNSATISFIABLE"
	ErrCodeUserNotFound             ErrorCode = "USER_NOT_FOUND"
	ErrCodeNotificationNotFound     ErrorCode = "NOTIFICATION_NOT_FOUND"
	ErrCodeInvalidFilterFormat      ErrorCode = "INVALID_FILTER_FORMAT"
	ErrCodeInvalidStatusTransition  ErrorCode = "INVALID_STATUS_TRANSITION"
	ErrCodeInvalidListingID         ErrorCode = "INVALID_LISTING_ID"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
)

// DispatchError represents a structured application error.
type DispatchError struct {
	Code       ErrorCode     `json:"code"`
	Message    string        `json:"message"`
	Details    string        `json:"details,omitempty"`
	Retryable  bool          `json:"retryable"`
	RetryAfter time.Duration `json:"retryAfter,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
	cause      error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("DispatchError[%s]: %s", e.Code, e.Message)
}

func (e *DispatchError) Unwrap() error {
	return e.cause
}

// ==========================
// 2. Error Constructors
// ==========================

// NewMissingChatHandleError signals a buyer profile without a chat handle.
func NewMissingChatHandleError(userID string) *DispatchError {
	return &DispatchError{
		Code:      ErrCodeMissingChatHandle,
		Message:   "User must have a Telegram username set in their profile",
		Details:   fmt.Sprintf("userId: %s", userID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewChatNotLinkedError signals a handle that was never linked to a chat.
func NewChatNotLinkedError(userID string) *DispatchError {
	return &DispatchError{
		Code:      ErrCodeChatNotLinked,
		Message:   "Telegram chat not linked. Please start a chat with the bot and send /link",
		Details:   fmt.Sprintf("userId: %s", userID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewChatNotFoundError signals a linked chat id that no longer resolves.
func NewChatNotFoundError(chatID int64, err error) *DispatchError {
	return &DispatchError{
		Code:      ErrCodeChatNotFound,
		Message:   "Telegram chat not found. Please start a chat with the bot and send /link",
		Details:   fmt.Sprintf("chatId: %d", chatID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewMissingEmailError signals a buyer profile without an email address.
func NewMissingEmailError(userID string) *DispatchError {
	return &DispatchError{
		Code:      ErrCodeMissingEmail,
		Message:   "User has no email address on file",
		Details:   fmt.Sprintf("userId: %s", userID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRateLimitedError signals a provider 429 carrying a retry-after hint.
func NewRateLimitedError(retryAfter time.Duration, err error) *DispatchError {
	return &DispatchError{
		Code:       ErrCodeRateLimited,
		Message:    "Provider rate limit reached",
		Details:    fmt.Sprintf("retryAfter: %s", retryAfter),
		Retryable:  true,
		RetryAfter: retryAfter,
		Timestamp:  time.Now().UTC(),
		cause:      err,
	}
}

// NewProviderError wraps a generic transport-level failure.
func NewProviderError(provider string, err error) *DispatchError {
	return &DispatchError{
		Code:      ErrCodeProvider,
		Message:   fmt.Sprintf("Provider '%s' send failed", provider),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewSubscriptionNotFoundError signals a dangling subscription reference.
func NewSubscriptionNotFoundError(subscriptionID string) *DispatchError {
	return &DispatchError{
		Code:      ErrCodeSubscriptionNotFound,
		Message:   "Subscription not found",
		Details:   fmt.Sprintf("subscriptionId: %s", subscriptionID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSubscriptionLimitReachedError signals the per-buyer subscription cap.
func NewSubscriptionLimitReachedError(buyerID string, limit int) *DispatchError {
	return &DispatchError{
		Code:      ErrCodeSubscriptionLimitReached,
		Message:   fmt.Sprintf("Maximum of %d subscriptions reached", limit),
		Details:   fmt.Sprintf("buyerId: %s", buyerID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTransportUnsatisfiableError signals a transport the buyer profile cannot serve.
func NewTransportUnsatisfiableError(transport, reason string) *DispatchError {
	return &DispatchError{
		Code:      ErrCodeTransportUnsatisfiable,
		Message:   fmt.Sprintf("Transport %s is not usable for this account", transport),
		Details:   reason,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUserNotFoundError signals an unknown user id or chat handle.
func NewUserNotFoundError(details string) *DispatchError {
	return &DispatchError{
		Code:      ErrCodeUserNotFound,
		Message:   "No user registered with this identity",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationNotFoundError signals an unknown notification id.
func NewNotificationNotFoundError(id string) *DispatchError {
	return &DispatchError{
		Code:      ErrCodeNotificationNotFound,
		Message:   "Notification not found",
		Details:   fmt.Sprintf("notificationId: %s", id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidFilterFormatError signals a filter set that fails the closed schema.
func NewInvalidFilterFormatError(details string) *DispatchError {
	return &DispatchError{
		Code:      ErrCodeInvalidFilterFormat,
		Message:   "Invalid filter format",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidStatusTransitionError signals an update on a terminal notification.
func NewInvalidStatusTransitionError(from, to string) *DispatchError {
	return &DispatchError{
		Code:      ErrCodeInvalidStatusTransition,
		Message:   "Notification status is terminal",
		Details:   fmt.Sprintf("from: %s, to: %s", from, to),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidListingIDError signals a listing id that sanitizes to nothing.
func NewInvalidListingIDError(listingID string) *DispatchError {
	return &DispatchError{
		Code:      ErrCodeInvalidListingID,
		Message:   "Listing id yields an empty deep link",
		Details:   fmt.Sprintf("listingId: %q", listingID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError wraps a storage-level failure.
func NewQueryExecutionFailedError(op string, err error) *DispatchError {
	return &DispatchError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("op: %s, error: %s", op, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// CodeOf extracts the ErrorCode from err, or "" when err carries none.
func CodeOf(err error) ErrorCode {
	var de *DispatchError
	if stderrors.As(err, &de) {
		return de.Code
	}
	return ""
}

// HasCode reports whether err carries the given ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// RetryAfterOf returns the provider retry-after hint carried by err, if any.
func RetryAfterOf(err error) (time.Duration, bool) {
	var de *DispatchError
	if stderrors.As(err, &de) && de.Code == ErrCodeRateLimited {
		return de.RetryAfter, true
	}
	return 0, false
}

// IsRetryable reports whether err is worth retrying at a higher level.
func IsRetryable(err error) bool {
	var de *DispatchError
	if stderrors.As(err, &de) {
		return de.Retryable
	}
	return false
}
