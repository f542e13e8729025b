/* ipp-print - minimal IPP client for submitting print jobs
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Document discovery and format detection
 */

package main

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// DocumentFormatDefault is used when format can't be guessed
const DocumentFormatDefault = "application/octet-stream"

// documentFormats maps lower-case file extensions to
// document-format values
var documentFormats = map[string]string{
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".text": "text/plain",
	".html": "text/html",
	".htm":  "text/html",
	".json": "application/json",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".ps":   "application/postscript",
	".pwg":  "image/pwg-raster",
	".urf":  "image/urf",
}

// DocumentFormat guesses document-format by file name
func DocumentFormat(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if format, ok := documentFormats[ext]; ok {
		return format
	}
	return DocumentFormatDefault
}

// FindDocuments walks the directory tree and returns paths of
// all regular files whose names match any of patterns, sorted.
//
// Unreadable subdirectories are logged and skipped
func FindDocuments(dir string, patterns []string) ([]string, error) {
	var found []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}

			Log.Error('!', "%s", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.Type().IsRegular() && GlobMatchAny(d.Name(), patterns) {
			found = append(found, path)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	sort.Strings(found)
	Log.Debug(' ', "%s: %d document(s) found", dir, len(found))

	return found, nil
}
