package config

import (
	"github.com/spendview/spendview/internal/logging"
)

// ToLoggingConfig bridges the YAML logging section to logging.Config.
//
//   - Level and Format are copied directly
//   - a non-empty File switches Output to "file"
//   - otherwise Output is stderr
func (lc LoggingConfig) ToLoggingConfig() logging.Config {
	output := logging.OutputStderr
	if lc.File != "" {
		output = logging.OutputFile
	}

	return logging.Config{
		Level:  lc.Level,
		Format: lc.Format,
		Output: output,
		File:   lc.File,
	}
}
