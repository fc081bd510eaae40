// Package logging configures the process-wide logrus logger from the
// LOG_LEVEL and LOG_OUTPUT settings.
package logging

import (
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

const logFileName = "indexer.log"

// Setup applies the log level and output target to the global logger.
// output is "console" or "file"; file output appends to indexer.log with
// colors disabled.
func Setup(level, output string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", level)
	}
	logrus.SetLevel(lvl)

	formatter := new(prefixed.TextFormatter)
	formatter.TimestampFormat = "2006-01-02 15:04:05"
	formatter.FullTimestamp = true

	switch output {
	case "console":
		logrus.SetOutput(os.Stdout)
	case "file":
		f, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return errors.Wrap(err, "could not open log file")
		}
		formatter.DisableColors = true
		logrus.SetOutput(f)
	default:
		return errors.Errorf("unknown log output %q", output)
	}
	logrus.SetFormatter(formatter)
	return nil
}
