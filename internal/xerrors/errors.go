// Package xerrors provides the error classification used across C5SIGMA's
// ingestion pipeline: transient (retryable), invalid (bad input/config, not
// retryable), and fatal (stop processing). Components wrap errors with
// WrapTransient/WrapInvalid/WrapFatal so callers can make retry and
// escalation decisions without string-matching error messages.
package xerrors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/5342/C5SIGMA/pkg/retry"
)

// Class represents the classification of an error for handling purposes.
type Class int

const (
	// Transient errors may be retried (connection hiccups, lock contention).
	Transient Class = iota
	// Invalid errors are caused by bad input or configuration and should not be retried.
	Invalid
	// Fatal errors are unrecoverable and should stop the current run.
	Fatal
)

// String returns the human-readable name of the class.
func (c Class) String() string {
	switch c {
	case Transient:
		return "transient"
	case Invalid:
		return "invalid"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Standard error sentinels for conditions that recur across the pipeline.
var (
	// Catalog / schema loading
	ErrUnknownParentProtocol = errors.New("unknown parent protocol")
	ErrFieldTypeConflict     = errors.New("field type conflict")
	ErrFilterNameConflict    = errors.New("filter name conflict")

	// Dissector process boundary
	ErrDissectorNotFound  = errors.New("dissector binary not found")
	ErrDissectorTimeout   = errors.New("dissector process did not exit in time")
	ErrInputDirUnreadable = errors.New("input directory unreadable")

	// Row queue / writer
	ErrQueueClosed        = errors.New("row queue is closed")
	ErrWriterFatal        = errors.New("database writer failed permanently")
	ErrDatabaseUnreachable = errors.New("database unreachable")

	// Fixups / filter compilation
	ErrRuleCompileFailed = errors.New("rule compile failed")

	// Generic input / configuration validation, shared by packages that
	// don't warrant their own sentinel (cache key validation, config bounds).
	ErrInvalidInput = errors.New("invalid input")
)

// Classified wraps an error with its classification and originating context.
type Classified struct {
	Class     Class
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface.
func (c *Classified) Error() string {
	if c.Message != "" {
		return c.Message
	}
	return c.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/errors.As chains.
func (c *Classified) Unwrap() error {
	return c.Err
}

func newClassified(class Class, err error, component, operation, message string) *Classified {
	return &Classified{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap produces a standardized error: "component.operation: action failed: %w".
func Wrap(err error, component, operation, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, operation, action, err)
}

// WrapTransient wraps err as a Transient classified error.
func WrapTransient(err error, component, operation, action string) error {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, component, operation, action)
	return newClassified(Transient, wrapped, component, operation, wrapped.Error())
}

// WrapInvalid wraps err as an Invalid classified error.
func WrapInvalid(err error, component, operation, action string) error {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, component, operation, action)
	return newClassified(Invalid, wrapped, component, operation, wrapped.Error())
}

// WrapFatal wraps err as a Fatal classified error.
func WrapFatal(err error, component, operation, action string) error {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, component, operation, action)
	return newClassified(Fatal, wrapped, component, operation, wrapped.Error())
}

// IsTransient reports whether err is classified (or looks like) a transient error.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var c *Classified
	if errors.As(err, &c) {
		return c.Class == Transient
	}

	if errors.Is(err, ErrDatabaseUnreachable) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return true
	}

	s := strings.ToLower(err.Error())
	for _, pattern := range []string{"timeout", "connection", "network", "temporary", "unavailable", "busy", "retry"} {
		if strings.Contains(s, pattern) {
			return true
		}
	}
	return false
}

// IsFatal reports whether err is classified (or looks like) a fatal error.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var c *Classified
	if errors.As(err, &c) {
		return c.Class == Fatal
	}

	if errors.Is(err, ErrWriterFatal) || errors.Is(err, ErrDissectorNotFound) || errors.Is(err, ErrInputDirUnreadable) {
		return true
	}

	s := strings.ToLower(err.Error())
	for _, pattern := range []string{"fatal", "corrupted", "out of memory", "disk full"} {
		if strings.Contains(s, pattern) {
			return true
		}
	}
	return false
}

// IsInvalid reports whether err is classified as an invalid-input error.
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}

	var c *Classified
	if errors.As(err, &c) {
		return c.Class == Invalid
	}
	return errors.Is(err, ErrFieldTypeConflict) || errors.Is(err, ErrFilterNameConflict) ||
		errors.Is(err, ErrRuleCompileFailed) || errors.Is(err, ErrInvalidInput)
}

// Classify returns the class for an error, defaulting to Transient for unknown errors.
func Classify(err error) Class {
	if err == nil {
		return Transient
	}
	if IsFatal(err) {
		return Fatal
	}
	if IsInvalid(err) {
		return Invalid
	}
	return Transient
}

// RetryPolicy configures retry behavior for transient failures (DB connect, etc).
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryPolicy returns sane defaults for reconnect attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    3,
		InitialDelay:  200 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

// ToRetryConfig converts to the generic retry package's Config, adding 1 to
// MaxRetries so it reflects total attempts instead of additional attempts.
func (rp RetryPolicy) ToRetryConfig() retry.Config {
	return retry.Config{
		MaxAttempts:  rp.MaxRetries + 1,
		InitialDelay: rp.InitialDelay,
		MaxDelay:     rp.MaxDelay,
		Multiplier:   rp.BackoffFactor,
		AddJitter:    true,
	}
}
