/* ipp-print - minimal IPP client for submitting print jobs
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Batch printing
 */

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// PrintResult represents outcome of printing of a single document
type PrintResult struct {
	Path      string        // Document path, "-" for stdin
	JobName   string        // job-name
	Format    string        // document-format
	Size      int           // Document size
	RequestID uint32        // Request ID, 0 if request wasn't built
	Response  *IppResponse  // Parsed response, nil on error
	Err       error         // Error, if any
	Elapsed   time.Duration // Time spent
}

// OK returns true if document was accepted by printer
func (r *PrintResult) OK() bool {
	return r.Err == nil && r.Response != nil && r.Response.Success
}

// Status returns a short human-readable outcome
func (r *PrintResult) Status() string {
	switch {
	case r.Err != nil:
		return fmt.Sprintf("%s: %s", ippErrorClass(r.Err), r.Err)
	case r.Response != nil:
		return r.Response.Label
	}
	return "not submitted"
}

// BatchSummary represents outcome of the whole batch
type BatchSummary struct {
	Results   []PrintResult // Per-document results, in order
	Succeeded int           // Count of accepted documents
	Failed    int           // Count of failed documents
	Aborted   bool          // Batch stopped on error
}

// Total returns count of processed documents
func (s *BatchSummary) Total() int {
	return len(s.Results)
}

// BatchPrinter prints documents one by one, pacing requests
type BatchPrinter struct {
	Client      *IppClient // IPP client
	Pacer       *Pacer     // Request pacing
	Format      string     // Forced document-format, "" to guess
	JobName     string     // Forced job-name, "" to use file name
	StopOnError bool       // Stop on first failure
	Stdin       io.Reader  // Source for the "-" document

	readFile func(string) ([]byte, error)
}

// NewBatchPrinter creates a new BatchPrinter
func NewBatchPrinter(client *IppClient, pacer *Pacer) *BatchPrinter {
	return &BatchPrinter{
		Client:   client,
		Pacer:    pacer,
		Stdin:    os.Stdin,
		readFile: os.ReadFile,
	}
}

// PrintFiles prints files in order. Failure of one document
// doesn't affect others, unless StopOnError is set.
//
// If ctx is canceled, documents not submitted yet are skipped
func (bp *BatchPrinter) PrintFiles(ctx context.Context,
	paths []string) *BatchSummary {
	summary := &BatchSummary{}

	if len(paths) > 1 {
		Log.Info(' ', "Printing %d documents to %s", len(paths), bp.Client.URI)
	}

	for i, path := range paths {
		err := bp.Pacer.Wait(ctx)
		if err != nil {
			Log.Error('!', "Batch interrupted: %s, %d document(s) skipped",
				err, len(paths)-i)
			summary.Aborted = true
			break
		}

		if len(paths) > 1 {
			Log.Info(' ', "[%d/%d] %s", i+1, len(paths), path)
		}

		res := bp.printOne(path)
		summary.Results = append(summary.Results, res)

		if res.OK() {
			summary.Succeeded++
			Log.Info(' ', "  %s: accepted, %s", res.JobName, res.Status())
		} else {
			summary.Failed++
			Log.Error('!', "  %s: failed, %s", res.JobName, res.Status())

			if bp.StopOnError && i+1 < len(paths) {
				Log.Error('!', "Batch aborted, %d document(s) skipped",
					len(paths)-i-1)
				summary.Aborted = true
				break
			}
		}
	}

	if len(paths) > 1 {
		Log.Info(' ', "Batch finished: %d/%d succeeded",
			summary.Succeeded, len(paths))
	}

	return summary
}

// printOne prints a single document
func (bp *BatchPrinter) printOne(path string) PrintResult {
	start := time.Now()
	res := PrintResult{Path: path}

	var data []byte
	var err error

	if path == "-" {
		res.JobName = "stdin-" + uuid.NewString()[:8]
		data, err = io.ReadAll(bp.Stdin)
	} else {
		res.JobName = filepath.Base(path)
		data, err = bp.readFile(path)
	}

	if bp.JobName != "" {
		res.JobName = bp.JobName
	}

	if err != nil {
		res.Err = err
		res.Elapsed = time.Since(start)
		return res
	}

	res.Size = len(data)
	res.Format = bp.Format
	if res.Format == "" {
		res.Format = DocumentFormat(path)
	}

	Log.Debug(' ', "%s: %d bytes, %s", res.JobName, res.Size, res.Format)

	res.Response, res.Err = bp.Client.PrintJob(res.JobName, res.Format, data)
	res.RequestID = bp.Client.LastRequestID()
	res.Elapsed = time.Since(start)

	return res
}
