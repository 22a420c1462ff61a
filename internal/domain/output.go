// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

package domain

import "time"

// OutputPort defines the interface for presenting command results.
// This is a domain port that adapters implement for different output formats.
type OutputPort interface {
	// Success outputs a success message with optional structured data
	Success(message string, data interface{}) error

	// Error outputs an error message
	Error(message string) error

	// Info outputs an informational message
	Info(message string) error

	// Progress outputs progress information for long-running operations
	Progress(message string) error

	// Table outputs tabular data
	Table(headers []string, rows [][]string) error

	// IsQuiet returns true if output should be suppressed
	IsQuiet() bool
}

// ListResult is the machine-readable result of the list command.
type ListResult struct {
	Field      string    `json:"field"`
	Descending bool      `json:"descending"`
	ShowSystem bool      `json:"show_system"`
	Query      string    `json:"query,omitempty"`
	Detailed   bool      `json:"detailed"`
	Apps       []AppRow  `json:"apps"`
	Total      int       `json:"total"`
	Duration   string    `json:"duration"`
	Timestamp  time.Time `json:"timestamp"`
}

// AppRow is an App together with the rendered value of the selected field.
type AppRow struct {
	App

	Value    string `json:"value"`
	StoreURL string `json:"store_url,omitempty"`
}

// SummaryResults is the machine-readable result of `summary --all`.
type SummaryResults struct {
	Summaries []SummaryResult `json:"summaries"`
	Timestamp time.Time       `json:"timestamp"`
}

// SummaryResult is the machine-readable result of the summary command.
type SummaryResult struct {
	Field     string          `json:"field"`
	Buckets   []SummaryBucket `json:"buckets"`
	Total     int             `json:"total"`
	Timestamp time.Time       `json:"timestamp"`
}

// SummaryBucket is one labelled count of a summary.
type SummaryBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// DeviceInfo describes one adb-visible device.
type DeviceInfo struct {
	Serial string `json:"serial"`
	State  string `json:"state"`
	Model  string `json:"model,omitempty"`
	Device string `json:"device,omitempty"`
}
