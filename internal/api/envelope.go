// Package api implements the HTTP/WebSocket transport binding that
// deserializes requests into coordinator/query calls and serializes push
// events from the broadcast hub.
package api

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// envelope is the JSON wrapper around every protobuf payload: body field
// "data" carries the base64-encoded message bytes.
type envelope struct {
	Data string `json:"data"`
}

// readEnvelope decodes the base64 "data" field of r's JSON body into raw
// protobuf bytes.
func readEnvelope(w http.ResponseWriter, r *http.Request, maxBodyBytes int64) ([]byte, error) {
	if maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	payload, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil {
		return nil, fmt.Errorf("decode base64 data: %w", err)
	}
	return payload, nil
}

// writeEnvelope base64-encodes payload into the "data" field and writes
// it with the given HTTP status.
func writeEnvelope(w http.ResponseWriter, status int, payload []byte) {
	WriteJSON(w, status, envelope{Data: base64.StdEncoding.EncodeToString(payload)})
}
