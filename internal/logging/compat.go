package logging

import (
	"bytes"
	"io"
	"os"
)

// Fatal logs at Error level and exits. Meant for the daemon entry point only;
// library packages return errors instead.
func (log *Logger) Fatal(format string, a ...interface{}) {
	log.Log(Error, 1, format, a...)
	os.Exit(1)
}

// Writer returns an io.Writer that logs each write as a single message at the
// given level. Pass it to log.New to route standard library loggers such as
// http.Server.ErrorLog.
func (log *Logger) Writer(level Level) io.Writer {
	return &levelWriter{log, level}
}

type levelWriter struct {
	log   *Logger
	level Level
}

func (w *levelWriter) Write(p []byte) (int, error) {
	w.log.Log(w.level, 2, "%s", bytes.TrimRight(p, "\n"))
	return len(p), nil
}
