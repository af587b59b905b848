// Package netlog extracts session cookies from the network trace files the
// browser tool server writes during a login run.
package netlog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const tracesDirName = "traces"

// NoTraceFilesError indicates the traces directory held no trace files.
type NoTraceFilesError struct {
	Dir string
}

func (e *NoTraceFilesError) Error() string {
	return "no trace files found"
}

// NoMatchingTraceError indicates no trace file referenced the login URL.
type NoMatchingTraceError struct {
	Dir      string
	LoginURL string
	Scanned  int
}

func (e *NoMatchingTraceError) Error() string {
	return fmt.Sprintf("no trace file found containing %s", e.LoginURL)
}

// NoCookiesFoundError indicates the matching trace file yielded no cookies.
// Observations counts the requests to the login URL that were examined; it
// can be zero when the URL appeared in the file outside of request records.
type NoCookiesFoundError struct {
	TraceFile    string
	Observations int
}

func (e *NoCookiesFoundError) Error() string {
	return fmt.Sprintf("no cookies found in trace file: found %d API calls but no cookies", e.Observations)
}

// Trace files are JSON lines. Only the request URL and headers matter here;
// everything else in a record is ignored.
type traceRecord struct {
	Snapshot struct {
		Request struct {
			URL     string        `json:"url"`
			Headers []traceHeader `json:"headers"`
		} `json:"request"`
	} `json:"snapshot"`
}

type traceHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Extract reads the newest trace file that references loginURL and collects
// every cookie sent to it, later values overwriting earlier ones per name.
// The result is a "name=value; ..." string sorted by cookie name, so
// repeated extraction from the same trace yields identical bytes. It never
// returns a partial result.
func Extract(profileDir, loginURL string, logger zerolog.Logger) (string, error) {
	tracesDir := filepath.Join(profileDir, tracesDirName)
	traceFiles, err := filepath.Glob(filepath.Join(tracesDir, "*.network"))
	if err != nil {
		return "", fmt.Errorf("glob trace files: %w", err)
	}
	if len(traceFiles) == 0 {
		return "", &NoTraceFilesError{Dir: tracesDir}
	}

	traceFile, content := findMatchingTrace(traceFiles, loginURL, logger)
	if traceFile == "" {
		return "", &NoMatchingTraceError{Dir: tracesDir, LoginURL: loginURL, Scanned: len(traceFiles)}
	}

	logger.Info().Str("trace_file", traceFile).Msg("reading trace file")

	cookies := make(map[string]string)
	observations := 0
	for _, line := range bytes.Split(content, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var record traceRecord
		if err := json.Unmarshal(line, &record); err != nil {
			continue
		}
		request := record.Snapshot.Request
		if !strings.Contains(request.URL, loginURL) {
			continue
		}
		observations++
		for _, header := range request.Headers {
			if !strings.EqualFold(header.Name, "cookie") || header.Value == "" {
				continue
			}
			for _, pair := range strings.Split(header.Value, "; ") {
				if name, value, ok := strings.Cut(pair, "="); ok {
					cookies[name] = value
				}
			}
		}
	}

	logger.Info().Int("api_calls", observations).Msg("scanned trace records")

	if len(cookies) == 0 {
		return "", &NoCookiesFoundError{TraceFile: traceFile, Observations: observations}
	}

	names := make([]string, 0, len(cookies))
	for name := range cookies {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+cookies[name])
	}

	logger.Info().Int("cookies", len(cookies)).Msg("extracted cookies from trace")
	return strings.Join(pairs, "; "), nil
}

// findMatchingTrace scans newest-first and returns the first file whose raw
// content references loginURL. Unreadable files are logged and skipped.
func findMatchingTrace(traceFiles []string, loginURL string, logger zerolog.Logger) (string, []byte) {
	type traceInfo struct {
		path    string
		modTime time.Time
	}
	infos := make([]traceInfo, 0, len(traceFiles))
	for _, path := range traceFiles {
		info := traceInfo{path: path}
		if stat, err := os.Stat(path); err == nil {
			info.modTime = stat.ModTime()
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].modTime.After(infos[j].modTime)
	})

	needle := []byte(loginURL)
	for _, info := range infos {
		data, err := os.ReadFile(info.path)
		if err != nil {
			logger.Warn().Err(err).Str("trace_file", info.path).Msg("failed to read trace file")
			continue
		}
		if bytes.Contains(data, needle) {
			return info.path, data
		}
	}
	return "", nil
}
