package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// UnmarshalJSON decodes a start request, accepting any JSON value for
// concurrency. Unusable values select the configured default instead of
// failing the request.
func (r *StartRequest) UnmarshalJSON(data []byte) error {
	type plain StartRequest
	var aux struct {
		plain
		Concurrency json.RawMessage `json:"concurrency"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = StartRequest(aux.plain)
	r.Concurrency = lenientConcurrency(aux.Concurrency)
	return nil
}

// UnmarshalJSON decodes a start-pending request; concurrency is lenient as
// for StartRequest.
func (r *StartPendingRequest) UnmarshalJSON(data []byte) error {
	type plain StartPendingRequest
	var aux struct {
		plain
		Concurrency json.RawMessage `json:"concurrency"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = StartPendingRequest(aux.plain)
	r.Concurrency = lenientConcurrency(aux.Concurrency)
	return nil
}

// lenientConcurrency returns nil for an absent or null value, the integer
// for a JSON integer or integer string, and 0 for anything else. A value
// below 1 selects the default in QueueService.
func lenientConcurrency(raw json.RawMessage) *int {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	text := string(raw)
	var s string
	if json.Unmarshal(raw, &s) == nil {
		text = s
	}
	value, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		value = 0
	}
	return &value
}
