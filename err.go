/* ipp-print - minimal IPP client for submitting print jobs
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Common errors
 */

package main

import (
	"errors"
	"fmt"
)

// Error values for ipp-print
var (
	ErrTruncatedResponse = errors.New("IPP response truncated")
	ErrTransportFailure  = errors.New("IPP transport failure")
	ErrTypeMismatch      = errors.New("Attribute value type mismatch")
	ErrValueTooLarge     = errors.New("Attribute name or value too large")
	ErrNoPrinterURI      = errors.New("Printer URI not configured")
	ErrUnsupported       = errors.New("Operation not supported on this system")
	ErrNotFound          = errors.New("Not found")
	ErrNoDocuments       = errors.New("No documents to print")
)

// TransportError represents a failed HTTP exchange with the printer.
//
// Status is 0 when the request didn't reach the HTTP level at all
// (i.e., connection refused), and Err holds the cause in that case
type TransportError struct {
	URL    string // Request URL
	Status int    // HTTP status, 0 if none
	Body   []byte // Raw response body, if any
	Err    error  // Underlying error, if any
}

// Error implements error interface for the TransportError
func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.URL, e.Err)
	}
	return fmt.Sprintf("%s: HTTP %d", e.URL, e.Status)
}

// Is makes TransportError match ErrTransportFailure in errors.Is
func (e *TransportError) Is(target error) bool {
	return target == ErrTransportFailure
}

// Unwrap returns the underlying error
func (e *TransportError) Unwrap() error {
	return e.Err
}
