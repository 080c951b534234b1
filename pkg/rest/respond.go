package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/devmock/devmock/internal/logger"
)

// timestampLayout renders envelope timestamps in UTC with millisecond
// precision.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// ErrorEnvelope is the JSON body written for failed requests.
type ErrorEnvelope struct {
	Status    int    `json:"status"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Path      string `json:"path"`
	Timestamp string `json:"timestamp"`
}

// ResponseWriter guards the host's http.ResponseWriter. Writes are dropped
// once the response has ended, and concurrent writers (the request pipeline
// racing the gateway timer) are serialised.
type ResponseWriter struct {
	mu          sync.Mutex
	w           http.ResponseWriter
	path        string
	status      int
	wroteHeader bool
	ended       bool
	written     int64
}

// NewResponseWriter wraps w. path is the request path echoed in error
// envelopes.
func NewResponseWriter(w http.ResponseWriter, path string) *ResponseWriter {
	return &ResponseWriter{w: w, path: path}
}

// Header exposes the underlying header map. Headers set after the response
// has ended are never emitted.
func (w *ResponseWriter) Header() http.Header {
	return w.w.Header()
}

// Status returns the committed status code, or 0 before commit.
func (w *ResponseWriter) Status() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// BytesWritten returns the number of body bytes emitted so far.
func (w *ResponseWriter) BytesWritten() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// Committed reports whether the status line has been sent.
func (w *ResponseWriter) Committed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.wroteHeader
}

// Ended reports whether the response is complete; later writes are dropped.
func (w *ResponseWriter) Ended() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ended
}

// End marks the response complete without writing anything further.
func (w *ResponseWriter) End() {
	w.mu.Lock()
	w.ended = true
	w.mu.Unlock()
}

// WriteHeader commits the status line once; repeated or post-end calls are
// ignored.
func (w *ResponseWriter) WriteHeader(status int) {
	w.mu.Lock()
	w.writeHeaderLocked(status)
	w.mu.Unlock()
}

func (w *ResponseWriter) writeHeaderLocked(status int) {
	if w.ended || w.wroteHeader {
		return
	}
	w.status = status
	w.wroteHeader = true
	w.w.WriteHeader(status)
}

// Write emits body bytes, committing a 200 first if nothing was committed.
// Post-end writes are silently discarded.
func (w *ResponseWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ended {
		return len(b), nil
	}
	w.writeHeaderLocked(http.StatusOK)
	n, err := w.w.Write(b)
	w.written += int64(n)
	return n, err
}

// WriteJSON marshals v and completes the response with it.
func (w *ResponseWriter) WriteJSON(status int, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.WriteRaw(status, "application/json", body)
}

// WriteRaw completes the response with the given body.
func (w *ResponseWriter) WriteRaw(status int, contentType string, body []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ended {
		return nil
	}
	if !w.wroteHeader {
		if contentType != "" {
			w.w.Header().Set("Content-Type", contentType)
		}
		w.w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	}
	w.writeHeaderLocked(status)
	n, err := w.w.Write(body)
	w.written += int64(n)
	w.ended = true
	return err
}

// WriteNoContent completes the response with headers only. Used for HEAD
// responses (which carry a Content-Length set by the caller) and 204s.
func (w *ResponseWriter) WriteNoContent(status int) {
	w.mu.Lock()
	w.writeHeaderLocked(status)
	w.ended = true
	w.mu.Unlock()
}

// WriteError classifies err and completes the response with the JSON error
// envelope. Headers set by upstream handlers are cleared first. If the
// response was already committed the envelope cannot be sent; the response
// is ended as-is.
func (w *ResponseWriter) WriteError(err error) {
	var engineErr *Error
	if !errors.As(err, &engineErr) {
		engineErr = Internal(err)
	}
	status := engineErr.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ended {
		return
	}
	if w.wroteHeader {
		logger.Warn("cannot write error envelope, response already committed",
			logger.KeyPath, w.path,
			logger.KeyStatus, w.status,
			logger.Err(engineErr))
		w.ended = true
		return
	}

	header := w.w.Header()
	for k := range header {
		header.Del(k)
	}

	envelope := ErrorEnvelope{
		Status:    status,
		Error:     http.StatusText(status),
		Message:   engineErr.Error(),
		Path:      w.path,
		Timestamp: time.Now().UTC().Format(timestampLayout),
	}
	body, mErr := json.Marshal(envelope)
	if mErr != nil {
		body = []byte(`{"status":500,"error":"Internal Server Error"}`)
		status = http.StatusInternalServerError
	}

	header.Set("Content-Type", "application/json")
	header.Set("Content-Length", strconv.Itoa(len(body)))
	w.writeHeaderLocked(status)
	n, _ := w.w.Write(body)
	w.written += int64(n)
	w.ended = true
}

// Stream pipes r to the response. The first chunk is read before committing
// so an immediate read failure still produces a 500 envelope; failures after
// commit truncate the body and end the response.
func (w *ResponseWriter) Stream(status int, contentType string, contentLength int64, r io.Reader) error {
	buf := make([]byte, 32*1024)

	n, err := r.Read(buf)
	if err != nil && err != io.EOF {
		w.WriteError(&Error{
			Kind:    KindInternal,
			Status:  http.StatusInternalServerError,
			Message: "Failed to send stream data",
			Cause:   err,
		})
		return err
	}

	for {
		if n > 0 {
			w.mu.Lock()
			if w.ended {
				w.mu.Unlock()
				return nil
			}
			if !w.wroteHeader {
				if contentType != "" {
					w.w.Header().Set("Content-Type", contentType)
				}
				if contentLength >= 0 {
					w.w.Header().Set("Content-Length", strconv.FormatInt(contentLength, 10))
				}
				w.writeHeaderLocked(status)
			}
			written, werr := w.w.Write(buf[:n])
			w.written += int64(written)
			if werr == nil {
				if f, ok := w.w.(http.Flusher); ok {
					f.Flush()
				}
			}
			w.mu.Unlock()
			if werr != nil {
				w.End()
				return werr
			}
		}

		if err == io.EOF {
			w.mu.Lock()
			if !w.wroteHeader && !w.ended {
				// empty stream: commit headers before ending
				if contentType != "" {
					w.w.Header().Set("Content-Type", contentType)
				}
				if contentLength >= 0 {
					w.w.Header().Set("Content-Length", strconv.FormatInt(contentLength, 10))
				}
				w.writeHeaderLocked(status)
			}
			w.ended = true
			w.mu.Unlock()
			return nil
		}

		n, err = r.Read(buf)
		if err != nil && err != io.EOF {
			logger.Error("stream read failed mid-transfer",
				logger.KeyPath, w.path,
				logger.Err(err))
			w.End()
			return err
		}
	}
}
