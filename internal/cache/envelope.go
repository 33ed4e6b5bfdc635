// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// envelope.go serializes captured responses to the string form stored in
// the backend and replays them on later hits. Bodies that are not valid
// text travel base64-encoded so binary payloads (thumbnails) survive the
// round trip byte-identical.
package cache

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"unicode/utf8"
)

// MaxEnvelopeSize is the ceiling on an encoded envelope. Larger responses
// are served normally but never stored.
const MaxEnvelopeSize = 1 << 20 // 1 MiB

// defaultContentType is used when the handler set no Content-Type.
const defaultContentType = "application/octet-stream"

// Envelope is the stored capture of one response. Immutable once written:
// a rebuild overwrites the whole value, never patches it.
type Envelope struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        string `json:"body"`
	IsBase64    bool   `json:"isBase64"`
}

// EncodeEnvelope serializes a captured response for storage. The bool is
// false when the response is not cacheable at this size — a policy
// decision, not a fault, so no error accompanies it.
func EncodeEnvelope(status int, contentType string, body []byte) (string, bool) {
	if contentType == "" {
		contentType = defaultContentType
	}

	env := Envelope{Status: status, ContentType: contentType}
	if utf8.Valid(body) {
		env.Body = string(body)
	} else {
		env.Body = base64.StdEncoding.EncodeToString(body)
		env.IsBase64 = true
	}

	encoded, err := json.Marshal(env)
	if err != nil {
		return "", false
	}
	if len(encoded) > MaxEnvelopeSize {
		return "", false
	}
	return string(encoded), true
}

// DecodeEnvelope parses a stored value. A corrupt or unparseable value
// falls back to an envelope serving the raw string as-is — never an error
// surfaced to the client.
func DecodeEnvelope(stored string) Envelope {
	var env Envelope
	if err := json.Unmarshal([]byte(stored), &env); err != nil || env.Status == 0 {
		return Envelope{
			Status:      http.StatusOK,
			ContentType: defaultContentType,
			Body:        stored,
		}
	}
	return env
}

// BodyBytes returns the raw body, decoding base64 when flagged. A flagged
// body that fails to decode is served as the raw stored string.
func (e Envelope) BodyBytes() []byte {
	if !e.IsBase64 {
		return []byte(e.Body)
	}
	raw, err := base64.StdEncoding.DecodeString(e.Body)
	if err != nil {
		return []byte(e.Body)
	}
	return raw
}

// Replay writes the envelope to w as a cache hit. Vary: Authorization keeps
// shared HTTP caches from handing one identity's body to another.
func (e Envelope) Replay(w http.ResponseWriter, ttlSeconds int) {
	h := w.Header()
	h.Set("Vary", "Authorization")
	h.Set("Content-Type", e.ContentType)
	h.Set("Cache-Control", fmt.Sprintf("public, max-age=%d", ttlSeconds))
	h.Set("X-Cache", "HIT")
	w.WriteHeader(e.Status)
	w.Write(e.BodyBytes())
}
