// SPDX-License-Identifier: MPL-2.0

package orchestrator

import (
	"bytes"
	"strings"

	"github.com/charmbracelet/log"
)

// lineWriter forwards complete lines to a logger at debug level.
type lineWriter struct {
	logger *log.Logger
	buf    bytes.Buffer
}

func newLineWriter(logger *log.Logger) *lineWriter {
	return &lineWriter{logger: logger}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Keep the partial line for the next write.
			w.buf.Reset()
			w.buf.WriteString(line)
			return len(p), nil
		}
		w.emit(line)
	}
}

// Flush logs any trailing partial line.
func (w *lineWriter) Flush() {
	if w.buf.Len() > 0 {
		w.emit(w.buf.String())
		w.buf.Reset()
	}
}

func (w *lineWriter) emit(line string) {
	if line = strings.TrimRight(line, "\r\n"); strings.TrimSpace(line) != "" {
		w.logger.Debug(line)
	}
}
