// Package responsewriter wraps http.ResponseWriter to capture the status
// code and byte count of a response. The access-log middleware and the
// request metrics read these after the handler returns.
package responsewriter

import (
	"net/http"
)

// ResponseWriter records the status code and bytes written to a response.
type ResponseWriter struct {
	http.ResponseWriter
	statusCode    int
	bytesWritten  int
	headerWritten bool
}

// Wrap returns a recording ResponseWriter around w.
func Wrap(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

// WriteHeader records the status code. Calls after the first are dropped,
// matching net/http's superfluous-WriteHeader behavior without the log noise.
func (w *ResponseWriter) WriteHeader(statusCode int) {
	if !w.headerWritten {
		w.statusCode = statusCode
		w.headerWritten = true
		w.ResponseWriter.WriteHeader(statusCode)
	}
}

// Write forwards to the underlying writer and accumulates the byte count.
// A Write before WriteHeader implies a 200.
func (w *ResponseWriter) Write(b []byte) (int, error) {
	if !w.headerWritten {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytesWritten += n
	return n, err
}

// StatusCode returns the recorded HTTP status code.
func (w *ResponseWriter) StatusCode() int {
	return w.statusCode
}

// BytesWritten returns the number of body bytes written so far.
func (w *ResponseWriter) BytesWritten() int {
	return w.bytesWritten
}

// Unwrap exposes the underlying writer for http.ResponseController.
func (w *ResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
