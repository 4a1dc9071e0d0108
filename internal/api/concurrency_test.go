package api

import (
	"context"
	"encoding/json"
	"testing"
)

func TestStartRequestDecodesConcurrencyLeniently(t *testing.T) {
	cases := []struct {
		name string
		body string
		want int
	}{
		{name: "omitted", body: `{"guestIds":[1,2]}`, want: 3},
		{name: "null", body: `{"guestIds":[1,2],"concurrency":null}`, want: 3},
		{name: "integer", body: `{"guestIds":[1,2],"concurrency":2}`, want: 2},
		{name: "integer string", body: `{"guestIds":[1,2],"concurrency":"4"}`, want: 4},
		{name: "word", body: `{"guestIds":[1,2],"concurrency":"abc"}`, want: 3},
		{name: "fraction", body: `{"guestIds":[1,2],"concurrency":2.5}`, want: 3},
		{name: "boolean", body: `{"guestIds":[1,2],"concurrency":true}`, want: 3},
		{name: "object", body: `{"guestIds":[1,2],"concurrency":{"n":2}}`, want: 3},
		{name: "too large", body: `{"guestIds":[1,2],"concurrency":"99"}`, want: 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var req StartRequest
			if err := json.Unmarshal([]byte(tc.body), &req); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if len(req.GuestIDs) != 2 {
				t.Fatalf("guest ids = %v", req.GuestIDs)
			}
			svc := newTestService(&stubController{}, &stubReader{})
			resp, err := svc.Start(context.Background(), req)
			if err != nil {
				t.Fatalf("Start: %v", err)
			}
			if resp.Concurrency != tc.want {
				t.Fatalf("concurrency = %d, want %d", resp.Concurrency, tc.want)
			}
		})
	}
}

func TestStartPendingRequestDecodesConcurrencyLeniently(t *testing.T) {
	var req StartPendingRequest
	if err := json.Unmarshal([]byte(`{"concurrency":"fast","batchId":"nightly"}`), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if req.BatchID != "nightly" {
		t.Fatalf("batch id = %q", req.BatchID)
	}
	if req.Concurrency == nil || *req.Concurrency != 0 {
		t.Fatalf("concurrency = %v, want pointer to 0", req.Concurrency)
	}
}

func TestStartRequestStillRejectsBadGuestIDs(t *testing.T) {
	var req StartRequest
	if err := json.Unmarshal([]byte(`{"guestIds":"all","concurrency":2}`), &req); err == nil {
		t.Fatal("expected an error for a non-array guestIds")
	}
}
