// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Common domain errors.
var (
	ErrPackageNotFound  = errors.New("package not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNetworkFailure   = errors.New("network failure")
	ErrNoDevice         = errors.New("no device connected")
	ErrInvalidField     = errors.New("invalid field")
)

// ExitError carries a process exit code alongside a user-facing message.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

// NewExitError creates an ExitError with the specified code and message.
func NewExitError(code int, message string, err error) *ExitError {
	return &ExitError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ErrorInfo provides user-friendly error information.
type ErrorInfo struct {
	Message     string   // User-friendly message
	Suggestions []string // Actionable suggestions
	ShowDetails bool     // Whether to show technical details
}

// getErrorMatchers returns error patterns and their corresponding info.
func getErrorMatchers() []struct {
	target   error
	patterns []string
	info     ErrorInfo
} {
	return []struct {
		target   error
		patterns []string
		info     ErrorInfo
	}{
		{
			target:   ErrNoDevice,
			patterns: []string{"no devices", "device offline", "device unauthorized", "device not found"},
			info: ErrorInfo{
				Message:     "No usable device",
				Suggestions: []string{"Connect a device with USB debugging enabled", "Check 'adb devices' lists it as 'device'"},
			},
		},
		{
			target:   ErrPermissionDenied,
			patterns: []string{"permission", "denied", "securityexception"},
			info: ErrorInfo{
				Message:     "Permission denied",
				Suggestions: []string{"Grant usage access to the shell user", "Some counters need a debuggable build"},
			},
		},
		{
			target:   ErrNetworkFailure,
			patterns: []string{"network", "connection", "timeout", "no such host"},
			info: ErrorInfo{
				Message:     "Network connection failed",
				Suggestions: []string{"Check your internet connection", "Store checks can be disabled with store.enabled = false"},
			},
		},
		{
			target:   ErrPackageNotFound,
			patterns: []string{"not found", "unable to find", "unknown package"},
			info: ErrorInfo{
				Message:     "Package not found",
				Suggestions: []string{"The package may have been uninstalled", "Run 'applist list --reload'"},
			},
		},
		{
			target:   ErrInvalidField,
			patterns: []string{"invalid field"},
			info: ErrorInfo{
				Message:     "Unknown field",
				Suggestions: []string{"Run 'applist fields' to see valid fields"},
			},
		},
	}
}

// GetErrorInfo analyzes an error and returns user-friendly information.
func GetErrorInfo(err error, verbose bool) ErrorInfo {
	if err == nil {
		return ErrorInfo{}
	}

	errStr := strings.ToLower(err.Error())

	for _, matcher := range getErrorMatchers() {
		if errors.Is(err, matcher.target) {
			info := matcher.info
			info.ShowDetails = verbose

			return info
		}

		for _, pattern := range matcher.patterns {
			if strings.Contains(errStr, pattern) {
				info := matcher.info
				info.ShowDetails = verbose

				return info
			}
		}
	}

	return ErrorInfo{
		Message:     "Operation failed",
		Suggestions: []string{"Run with --verbose for more details"},
		ShowDetails: verbose,
	}
}

// FormatErrorMessage formats an error for display.
func FormatErrorMessage(err error, verbose bool) string {
	info := GetErrorInfo(err, verbose)

	var result strings.Builder

	result.WriteString("✗ ")
	result.WriteString(info.Message)

	if info.ShowDetails && err != nil {
		result.WriteString("\n  Technical details: ")
		result.WriteString(err.Error())
	}

	switch {
	case len(info.Suggestions) > 0 && !verbose:
		result.WriteString(" (")
		result.WriteString(info.Suggestions[0])
		result.WriteString(")")
	case len(info.Suggestions) > 0:
		result.WriteString("\n  Suggestions:")

		for _, suggestion := range info.Suggestions {
			result.WriteString("\n    • ")
			result.WriteString(suggestion)
		}
	}

	return result.String()
}
