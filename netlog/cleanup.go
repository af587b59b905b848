package netlog

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// RemoveLoginTraces deletes trace files whose content references loginURL,
// leaving traces from other logins in place so their cookies stay
// extractable. It returns the number of files removed. Read and remove
// failures are logged and skipped.
func RemoveLoginTraces(profileDir, loginURL string, logger zerolog.Logger) int {
	tracesDir := filepath.Join(profileDir, tracesDirName)
	traceFiles, err := filepath.Glob(filepath.Join(tracesDir, "*.network"))
	if err != nil || len(traceFiles) == 0 {
		return 0
	}

	needle := []byte(loginURL)
	removed := 0
	for _, traceFile := range traceFiles {
		data, err := os.ReadFile(traceFile)
		if err != nil {
			logger.Warn().Err(err).Str("trace_file", traceFile).Msg("failed to read trace file")
			continue
		}
		if !bytes.Contains(data, needle) {
			continue
		}
		if err := os.Remove(traceFile); err != nil {
			logger.Warn().Err(err).Str("trace_file", traceFile).Msg("failed to remove trace file")
			continue
		}
		logger.Info().Str("trace_file", traceFile).Msg("removed old trace file")
		removed++
	}
	return removed
}
