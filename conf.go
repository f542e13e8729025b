/* ipp-print - minimal IPP client for submitting print jobs
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Program configuration
 */

package main

import (
	"fmt"
	"math"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"
)

const (
	// ConfFileName defines a name of ipp-print configuration file
	ConfFileName = "ipp-print.conf"
)

// Configuration represents a program configuration
type Configuration struct {
	PrinterURI        string        // Target printer URI
	User              string        // requesting-user-name
	Timeout           time.Duration // Per-request HTTP timeout
	DocumentFormat    string        // Forced document-format, "" to guess
	BatchDelay        time.Duration // Pacing interval between requests
	BatchPatterns     []string      // Document name patterns for directories
	StopOnError       bool          // Abort batch on first failure
	DiscoveryTimeout  time.Duration // How long to browse DNS-SD
	LogConsole        LogLevel      // Console LogLevel mask
	LogFile           LogLevel      // Log file LogLevel mask
	LogFilePath       string        // Log file path, "" if none
	LogMaxFileSize    int64         // Maximum log file size
	LogMaxBackupFiles uint          // Count of files preserved during rotation
	ColorConsole      bool          // Enable ANSI colors on console
	MetricsTextfile   string        // Prometheus textfile path, "" if none
}

// Conf contains a global instance of program configuration
var Conf = ConfDefault()

// ConfDefault returns the default configuration
func ConfDefault() Configuration {
	return Configuration{
		Timeout:           DefaultTimeout,
		BatchDelay:        DefaultBatchDelay,
		BatchPatterns:     []string{"*.pdf"},
		DiscoveryTimeout:  DefaultDiscoveryTimeout,
		LogConsole:        LogInfo | LogError,
		LogFile:           LogDebug | LogInfo | LogError,
		LogMaxFileSize:    256 * 1024,
		LogMaxBackupFiles: 5,
		ColorConsole:      true,
	}
}

// ConfLoad loads the program configuration
func ConfLoad() error {
	// Obtain path to executable directory
	exepath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("conf: %s", err)
	}

	exepath = filepath.Dir(exepath)

	// Build list of configuration files. Later files
	// override earlier ones
	files := []string{filepath.Join(PathConfDir, ConfFileName)}
	if dir, err := os.UserConfigDir(); err == nil {
		files = append(files, filepath.Join(dir, "ipp-print", ConfFileName))
	}
	files = append(files, filepath.Join(exepath, ConfFileName))

	err = confLoadFiles(&Conf, files...)
	if err != nil {
		return fmt.Errorf("conf: %s", err)
	}

	return nil
}

// ConfDefaultUser returns the default requesting-user-name
func ConfDefaultUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "ipp-print"
}

// Create "bad value" error
func confBadValue(key *ini.Key, format string, args ...interface{}) error {
	return fmt.Errorf(key.Name()+": "+format, args...)
}

// confLoadFiles loads configuration files into conf. Missing
// files are silently ignored
func confLoadFiles(conf *Configuration, files ...string) error {
	sources := make([]interface{}, len(files))
	for i, file := range files {
		sources[i] = file
	}

	inifile, err := ini.LoadSources(ini.LoadOptions{Loose: true}, sources[0], sources[1:]...)
	if err != nil {
		return err
	}

	// Extract options
	for _, section := range inifile.Sections() {
		for _, key := range section.Keys() {
			err = confLoadKey(conf, section.Name(), key)
			if err != nil {
				return fmt.Errorf("[%s] %s", section.Name(), err)
			}
		}
	}

	// Validate configuration
	if conf.PrinterURI != "" {
		if _, err := IppHTTPURL(conf.PrinterURI); err != nil {
			return fmt.Errorf("[printer] uri: %s", err)
		}
	}

	return nil
}

// confLoadKey loads a single key
func confLoadKey(conf *Configuration, section string, key *ini.Key) error {
	switch section {
	case "printer":
		switch key.Name() {
		case "uri":
			conf.PrinterURI = key.String()
		case "user":
			conf.User = key.String()
		case "timeout":
			return confLoadDurationKey(&conf.Timeout, key)
		case "document-format":
			conf.DocumentFormat = key.String()
			if conf.DocumentFormat == "auto" {
				conf.DocumentFormat = ""
			}
		}

	case "batch":
		switch key.Name() {
		case "delay":
			return confLoadDurationKey(&conf.BatchDelay, key)
		case "patterns":
			return confLoadListKey(&conf.BatchPatterns, key)
		case "stop-on-error":
			return confLoadBinaryKey(&conf.StopOnError, key, "disable", "enable")
		}

	case "discovery":
		switch key.Name() {
		case "timeout":
			return confLoadDurationKey(&conf.DiscoveryTimeout, key)
		}

	case "logging":
		switch key.Name() {
		case "console-log":
			return confLoadLogLevelKey(&conf.LogConsole, key)
		case "file-log":
			return confLoadLogLevelKey(&conf.LogFile, key)
		case "file":
			conf.LogFilePath = key.String()
			if conf.LogFilePath == "default" {
				conf.LogFilePath = PathLogFile
			}
		case "console-color":
			return confLoadBinaryKey(&conf.ColorConsole, key, "disable", "enable")
		case "max-file-size":
			return confLoadSizeKey(&conf.LogMaxFileSize, key)
		case "max-backup-files":
			return confLoadUintKey(&conf.LogMaxBackupFiles, key)
		}

	case "metrics":
		switch key.Name() {
		case "textfile":
			conf.MetricsTextfile = key.String()
		}
	}

	return nil
}

// Load the binary key
func confLoadBinaryKey(out *bool, key *ini.Key, vFalse, vTrue string) error {
	switch key.String() {
	case vFalse:
		*out = false
		return nil
	case vTrue:
		*out = true
		return nil
	default:
		return confBadValue(key, "must be %s or %s", vFalse, vTrue)
	}
}

// Load duration key. Zero is allowed, negative values are not
func confLoadDurationKey(out *time.Duration, key *ini.Key) error {
	d, err := key.Duration()
	if err != nil {
		return confBadValue(key, "%q: invalid duration", key.String())
	}

	if d < 0 {
		return confBadValue(key, "must not be negative")
	}

	*out = d
	return nil
}

// Load comma-separated list key
func confLoadListKey(out *[]string, key *ini.Key) error {
	var list []string
	for _, s := range strings.Split(key.String(), ",") {
		if s = strings.TrimSpace(s); s != "" {
			list = append(list, s)
		}
	}

	if len(list) == 0 {
		return confBadValue(key, "must not be empty")
	}

	*out = list
	return nil
}

// Load LogLevel key
func confLoadLogLevelKey(out *LogLevel, key *ini.Key) error {
	mask, err := ParseLogLevel(key.String())
	if err != nil {
		return confBadValue(key, "%s", err)
	}

	*out = mask
	return nil
}

// ParseLogLevel parses comma-separated list of log levels
func ParseLogLevel(s string) (LogLevel, error) {
	var mask LogLevel
	for _, s := range strings.Split(s, ",") {
		s = strings.TrimSpace(s)
		switch s {
		case "":
		case "none":
		case "error":
			mask |= LogError
		case "info":
			mask |= LogInfo | LogError
		case "debug":
			mask |= LogDebug | LogInfo | LogError
		case "trace-ipp":
			mask |= LogTraceIPP | LogDebug | LogInfo | LogError
		case "trace-http":
			mask |= LogTraceHTTP | LogDebug | LogInfo | LogError
		case "all", "trace-all":
			mask |= LogAll
		default:
			return 0, fmt.Errorf("invalid log level %q", s)
		}
	}

	return mask, nil
}

// Load size key
func confLoadSizeKey(out *int64, key *ini.Key) error {
	units := uint64(1)
	value := key.String()

	if l := len(value); l > 0 {
		switch value[l-1] {
		case 'k', 'K':
			units = 1024
		case 'm', 'M':
			units = 1024 * 1024
		}

		if units != 1 {
			value = value[:l-1]
		}
	}

	sz, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return confBadValue(key, "%q: invalid size", key.String())
	}

	if sz > uint64(math.MaxInt64/units) {
		return confBadValue(key, "size too large")
	}

	*out = int64(sz * units)
	return nil
}

// Load unsigned integer key
func confLoadUintKey(out *uint, key *ini.Key) error {
	num, err := strconv.ParseUint(key.String(), 10, 0)
	if err != nil {
		return confBadValue(key, "%q: invalid number", key.String())
	}

	*out = uint(num)
	return nil
}
