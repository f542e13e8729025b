/* ipp-print - minimal IPP client for submitting print jobs
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Configuration constants
 */

package main

import (
	"time"
)

// Version is the ipp-print version, reported in User-Agent
const Version = "0.1.0"

const (
	// DefaultTimeout specifies how much time to wait for
	// a single IPP request to complete
	DefaultTimeout = 30 * time.Second

	// DefaultBatchDelay specifies the minimal interval between
	// consecutive requests of a batch
	DefaultBatchDelay = 500 * time.Millisecond

	// DefaultDiscoveryTimeout specifies how long to browse
	// DNS-SD for printers
	DefaultDiscoveryTimeout = 3 * time.Second
)
