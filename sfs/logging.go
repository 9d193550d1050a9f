package sfs

import "github.com/sirupsen/logrus"

// newLogger returns logger if non-nil, else the package-wide standard
// logrus logger. The specification calls out two cases as "logged, not
// fatal": freeing an out-of-range i-node or data block, and allocator
// cache exhaustion (§4.3, §7). Everything else in the engine communicates
// failure purely through returned errors.
func newLogger(logger logrus.FieldLogger) logrus.FieldLogger {
	if logger != nil {
		return logger
	}
	return logrus.StandardLogger()
}
