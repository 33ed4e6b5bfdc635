// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"bytes"
	"net/http"
)

// Recorder wraps the real http.ResponseWriter and buffers a copy of
// everything written so the final body can be stored after the handler
// returns. The client still receives the response as it is written — the
// recorder forwards everything immediately.
//
// A handler that flushes is streaming (chunked output, SSE); its full body
// cannot be captured after the fact, so the response is excluded from
// caching. Bodies growing past MaxEnvelopeSize stop being buffered — they
// could never be stored anyway.
type Recorder struct {
	http.ResponseWriter
	status     int
	written    bool
	streamed   bool
	overflowed bool
	buf        bytes.Buffer
}

// NewRecorder wraps w for capture.
func NewRecorder(w http.ResponseWriter) *Recorder {
	return &Recorder{ResponseWriter: w, status: http.StatusOK}
}

// WriteHeader captures the status code before forwarding it.
func (rec *Recorder) WriteHeader(code int) {
	if !rec.written {
		rec.status = code
		rec.written = true
	}
	rec.ResponseWriter.WriteHeader(code)
}

// Write buffers a copy of b and forwards it to the client.
func (rec *Recorder) Write(b []byte) (int, error) {
	if !rec.written {
		rec.status = http.StatusOK
		rec.written = true
	}
	if !rec.overflowed {
		if rec.buf.Len()+len(b) > MaxEnvelopeSize {
			rec.overflowed = true
			rec.buf.Reset()
		} else {
			rec.buf.Write(b)
		}
	}
	return rec.ResponseWriter.Write(b)
}

// Flush marks the response as streamed and forwards the flush when the
// underlying writer supports it.
func (rec *Recorder) Flush() {
	rec.streamed = true
	if f, ok := rec.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Status returns the captured status code.
func (rec *Recorder) Status() int { return rec.status }

// Streamed reports whether any raw streaming write occurred.
func (rec *Recorder) Streamed() bool { return rec.streamed }

// Capturable reports whether the buffered body represents the complete
// response: a non-streamed 2xx that fit in the buffer.
func (rec *Recorder) Capturable() bool {
	return !rec.streamed && !rec.overflowed && rec.status >= 200 && rec.status < 300
}

// Body returns a copy of the captured body. Nil when the response was
// streamed or outgrew the buffer.
func (rec *Recorder) Body() []byte {
	if rec.streamed || rec.overflowed {
		return nil
	}
	out := make([]byte, rec.buf.Len())
	copy(out, rec.buf.Bytes())
	return out
}
