/* ipp-print - minimal IPP client for submitting print jobs
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * OS print queue inspection
 */

package main

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"unicode/utf8"
)

// PrinterInfo represents a printer, known to the OS print system
type PrinterInfo struct {
	Name        string // Queue name
	Description string // Human-readable description
	IsDefault   bool   // It is the default printer
	Status      string // idle, printing, disabled or unknown
}

// PrinterManager provides access to the OS print system
type PrinterManager interface {
	Printers() ([]PrinterInfo, error) // List printers
	Default() (string, error)         // Default printer name
	SetDefault(name string) error     // Set default printer
	Queue() ([]string, error)         // Print queue, as text lines
	PendingJobs() ([]string, error)   // Not completed jobs, as text lines
}

// CommandRunner runs external command and returns its
// standard output
type CommandRunner func(name string, args ...string) ([]byte, error)

// execCommand is the CommandRunner that executes real commands
func execCommand(name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer

	cmd := exec.Command(name, args...)
	cmd.Stderr = &stderr

	Log.Debug('>', "exec: %s %s", name, strings.Join(args, " "))
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return nil, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}

	return out, nil
}

// CUPSManager implements PrinterManager on a top of CUPS
// command-line tools
type CUPSManager struct {
	run CommandRunner
}

// NewCUPSManager creates a new CUPSManager
func NewCUPSManager(run CommandRunner) *CUPSManager {
	return &CUPSManager{run: run}
}

// Printers returns list of printers, as reported by "lpstat -p"
func (m *CUPSManager) Printers() ([]PrinterInfo, error) {
	// Failure to get default printer is not fatal here
	def, _ := m.Default()

	out, err := m.run("lpstat", "-p")
	if err != nil {
		return nil, err
	}

	var names []string
	statuses := make(map[string]string)
	for _, line := range SplitLines(out) {
		name, status := cupsParsePrinterLine(strings.TrimSpace(line))
		if name != "" {
			names = append(names, name)
			statuses[name] = status
		}
	}

	return printerInfoList(names, def, func(name string) (string, string) {
		return "", statuses[name]
	}), nil
}

// Default returns default printer, as reported by "lpstat -d"
func (m *CUPSManager) Default() (string, error) {
	out, err := m.run("lpstat", "-d")
	if err != nil {
		return "", err
	}

	line := strings.TrimSpace(string(out))
	if line == "" || strings.Contains(line, "no system default destination") {
		return "", fmt.Errorf("default printer: %w", ErrNotFound)
	}

	// English: "system default destination: NAME"
	// Chinese: "系统默认目的位置：NAME", with full-width colon
	for _, sep := range []string{"：", ":"} {
		if i := strings.Index(line, sep); i >= 0 {
			name := strings.TrimSpace(line[i+len(sep):])
			if name != "" {
				return name, nil
			}
		}
	}

	return "", fmt.Errorf("can't parse default printer: %q", line)
}

// SetDefault sets the default printer with "lpoptions -d"
func (m *CUPSManager) SetDefault(name string) error {
	if name == "" {
		return errors.New("printer name is empty")
	}

	_, err := m.run("lpoptions", "-d", name)
	return err
}

// Queue returns the print queue, as reported by "lpq"
func (m *CUPSManager) Queue() ([]string, error) {
	out, err := m.run("lpq")
	if err != nil {
		return nil, err
	}

	return cupsNonEmptyLines(out), nil
}

// PendingJobs returns not completed jobs, as reported by "lpstat -o"
func (m *CUPSManager) PendingJobs() ([]string, error) {
	out, err := m.run("lpstat", "-o")
	if err != nil {
		return nil, err
	}

	return cupsNonEmptyLines(out), nil
}

// cupsParsePrinterLine parses a single line of "lpstat -p" output.
// It returns empty name if line doesn't describe a printer.
//
// English: "printer NAME is idle.  enabled since ..."
// Chinese: "打印机NAME闲置，启用时间始于..."
func cupsParsePrinterLine(line string) (name, status string) {
	const zhPrefix = "打印机"

	switch {
	case strings.HasPrefix(line, "printer "):
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return "", ""
		}
		name = fields[1]

	case strings.HasPrefix(line, zhPrefix):
		text := strings.TrimPrefix(line, zhPrefix)
		name = text
		for i, r := range text {
			if !cupsIsNameRune(r) {
				name = text[:i]
				break
			}
		}

	default:
		return "", ""
	}

	if name == "" {
		return "", ""
	}

	rest := line[strings.Index(line, name)+len(name):]
	switch {
	case strings.Contains(rest, "disabled"), strings.Contains(rest, "已禁用"):
		status = "disabled"
	case strings.Contains(rest, "printing"), strings.Contains(rest, "正在打印"):
		status = "printing"
	case strings.Contains(rest, "idle"), strings.Contains(rest, "闲置"):
		status = "idle"
	default:
		status = "unknown"
	}

	return name, status
}

// cupsIsNameRune reports whether r may be a part of the queue name
// in the Chinese "lpstat -p" output, where the name is not
// separated from the following text
func cupsIsNameRune(r rune) bool {
	return r < utf8.RuneSelf &&
		('a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' ||
			'0' <= r && r <= '9' || r == '_' || r == '-' || r == '.')
}

// cupsNonEmptyLines splits command output into non-empty lines
func cupsNonEmptyLines(out []byte) []string {
	lines := []string{}
	for _, line := range SplitLines(out) {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// printerInfoList makes the printer list out of queue names and
// the default printer name. describe returns description and
// status of the named printer
func printerInfoList(names []string, def string,
	describe func(name string) (desc, status string)) []PrinterInfo {

	printers := make([]PrinterInfo, 0, len(names))
	for _, name := range names {
		desc, status := describe(name)
		if desc == "" {
			desc = name
		}
		if status == "" {
			status = "unknown"
		}

		printers = append(printers, PrinterInfo{
			Name:        name,
			Description: desc,
			IsDefault:   name == def,
			Status:      status,
		})
	}

	return printers
}

// printerJobLine formats a print job as a text line, in the
// lpstat -o manner
func printerJobLine(printer string, id uint32, user, doc, status string) string {
	line := fmt.Sprintf("%s-%d %s %s", printer, id, user, doc)
	if status != "" {
		line += " (" + status + ")"
	}
	return line
}
