// Package apperrors normalizes arbitrary failures into a closed set of typed
// error kinds. Classification drives retry decisions and keeps raw diagnostic
// text out of user-facing responses: the raw message is logged, the
// UserMessage is shown.
package apperrors

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// Code identifies one error kind. The set is closed; unmatched failures map
// to CodeUnknown.
type Code string

const (
	CodeInvalidToken       Code = "invalid_token"
	CodeRateLimited        Code = "rate_limited"
	CodeCooldownActive     Code = "cooldown_active"
	CodeEmailDelivery      Code = "email_delivery_failed"
	CodeInvalidEmail       Code = "invalid_email"
	CodeNetworkError       Code = "network_error"
	CodeTimeout            Code = "timeout"
	CodeServerError        Code = "server_error"
	CodeServiceUnavailable Code = "service_unavailable"
	CodeNotFound           Code = "not_found"
	CodeAccountDisabled    Code = "account_disabled"
	CodeUnknown            Code = "unknown"
)

// Action is a recovery hint for the UI. It never drives control flow.
type Action string

const (
	ActionRetry          Action = "retry"
	ActionResend         Action = "resend"
	ActionContactSupport Action = "contact_support"
	ActionRefreshPage    Action = "refresh_page"
	ActionNone           Action = "none"
)

// ClassifiedError is a normalized failure with a stable kind, a user-safe
// message and a retryability flag. It wraps the original error.
type ClassifiedError struct {
	Code        Code
	Message     string
	UserMessage string
	Retryable   bool
	Action      Action
	cause       error
}

func (e *ClassifiedError) Error() string { return e.Message }

func (e *ClassifiedError) Unwrap() error { return e.cause }

// rule matches an error by lowercase substring tokens. Rules are evaluated
// in order; the first rule with any matching token wins.
type rule struct {
	code        Code
	tokens      []string
	userMessage string
	retryable   bool
	action      Action
}

var rules = []rule{
	{
		code:        CodeInvalidToken,
		tokens:      []string{"invalid token", "expired token", "token expired", "token is expired", "invalid or expired", "signature is invalid", "jwt"},
		userMessage: "Your session has expired. Please sign in again.",
		retryable:   false,
		action:      ActionRefreshPage,
	},
	{
		code:        CodeRateLimited,
		tokens:      []string{"rate limit", "too many requests", "429"},
		userMessage: "Too many requests. Please wait a moment and try again.",
		retryable:   true,
		action:      ActionRetry,
	},
	{
		code:        CodeCooldownActive,
		tokens:      []string{"cooldown"},
		userMessage: "Please wait before trying this again.",
		retryable:   false,
		action:      ActionNone,
	},
	{
		code:        CodeEmailDelivery,
		tokens:      []string{"failed to send email", "email delivery", "sendgrid", "mail delivery"},
		userMessage: "We could not deliver the email. Please try resending it.",
		retryable:   true,
		action:      ActionResend,
	},
	{
		code:        CodeInvalidEmail,
		tokens:      []string{"invalid email", "malformed email", "invalid recipient"},
		userMessage: "The email address is not valid.",
		retryable:   false,
		action:      ActionNone,
	},
	{
		code:        CodeTimeout,
		tokens:      []string{"timeout", "timed out", "deadline exceeded"},
		userMessage: "The operation took too long. Please try again.",
		retryable:   true,
		action:      ActionRetry,
	},
	{
		code:        CodeNetworkError,
		tokens:      []string{"connection refused", "connection reset", "broken pipe", "no such host", "network is unreachable", "bad connection", "invalid connection", "lost connection", "gone away", "dial tcp"},
		userMessage: "A network error occurred. Please check your connection and try again.",
		retryable:   true,
		action:      ActionRetry,
	},
	{
		code:        CodeServiceUnavailable,
		tokens:      []string{"service unavailable", "temporarily unavailable", "503"},
		userMessage: "The service is temporarily unavailable. Please try again shortly.",
		retryable:   true,
		action:      ActionRetry,
	},
	{
		code:        CodeServerError,
		tokens:      []string{"internal server error", "server error", "500"},
		userMessage: "Something went wrong on our side. Please try again.",
		retryable:   true,
		action:      ActionRetry,
	},
	{
		code:        CodeNotFound,
		tokens:      []string{"not found", "no rows", "does not exist"},
		userMessage: "The requested record could not be found.",
		retryable:   false,
		action:      ActionRefreshPage,
	},
	{
		code:        CodeAccountDisabled,
		tokens:      []string{"account disabled", "account suspended", "user disabled"},
		userMessage: "This account has been disabled. Please contact support.",
		retryable:   false,
		action:      ActionContactSupport,
	},
}

// Classify maps any failure to a ClassifiedError. It never returns nil for a
// non-nil input and never fails: anything unmatched becomes CodeUnknown.
// Already-classified errors pass through unchanged.
func Classify(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce
	}

	if c := classifyStructured(err); c != nil {
		return c
	}

	msg := strings.ToLower(err.Error())
	for _, r := range rules {
		for _, tok := range r.tokens {
			if strings.Contains(msg, tok) {
				return &ClassifiedError{
					Code:        r.code,
					Message:     err.Error(),
					UserMessage: r.userMessage,
					Retryable:   r.retryable,
					Action:      r.action,
					cause:       err,
				}
			}
		}
	}

	return &ClassifiedError{
		Code:        CodeUnknown,
		Message:     err.Error(),
		UserMessage: "An unexpected error occurred. Please contact support if the problem persists.",
		Retryable:   false,
		Action:      ActionContactSupport,
		cause:       err,
	}
}

// classifyStructured handles well-known error values before any text
// matching runs.
func classifyStructured(err error) *ClassifiedError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ClassifiedError{
			Code:        CodeTimeout,
			Message:     err.Error(),
			UserMessage: "The operation took too long. Please try again.",
			Retryable:   true,
			Action:      ActionRetry,
			cause:       err,
		}
	}

	if errors.Is(err, sql.ErrNoRows) {
		return &ClassifiedError{
			Code:        CodeNotFound,
			Message:     err.Error(),
			UserMessage: "The requested record could not be found.",
			Retryable:   false,
			Action:      ActionRefreshPage,
			cause:       err,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		code, userMsg := CodeNetworkError, "A network error occurred. Please check your connection and try again."
		if netErr.Timeout() {
			code, userMsg = CodeTimeout, "The operation took too long. Please try again."
		}
		return &ClassifiedError{
			Code:        code,
			Message:     err.Error(),
			UserMessage: userMsg,
			Retryable:   true,
			Action:      ActionRetry,
			cause:       err,
		}
	}

	// Driver-level connection loss surfaces as this sentinel rather than a
	// *mysql.MySQLError; server-side 1xxx errors fall through to the text
	// rules so constraint violations are not blindly retried.
	if errors.Is(err, mysql.ErrInvalidConn) {
		return &ClassifiedError{
			Code:        CodeNetworkError,
			Message:     err.Error(),
			UserMessage: "A network error occurred. Please check your connection and try again.",
			Retryable:   true,
			Action:      ActionRetry,
			cause:       err,
		}
	}

	return nil
}

// IsRetryable reports whether the error classifies as safe to retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return Classify(err).Retryable
}
