package domain

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"
)

func TestDecodeEvent_TopLevel(t *testing.T) {
	body := []byte(`{
		"event": "woo.store.connected",
		"version": 1,
		"timestamp": "2025-11-16T12:34:56Z",
		"store_id": 123,
		"organization_id": 42,
		"site_url": "https://example.com"
	}`)

	ev, err := DecodeEvent(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.StoreID != 123 {
		t.Errorf("expected store_id 123, got %d", ev.StoreID)
	}
	if ev.OrganizationID != 42 {
		t.Errorf("expected organization_id 42, got %d", ev.OrganizationID)
	}
	if ev.Event != EventStoreConnected {
		t.Errorf("expected event %s, got %s", EventStoreConnected, ev.Event)
	}
	if ev.SiteURL != "https://example.com" {
		t.Errorf("unexpected site_url %q", ev.SiteURL)
	}
	want := time.Date(2025, 11, 16, 12, 34, 56, 0, time.UTC)
	if !ev.Timestamp.Equal(want) {
		t.Errorf("expected timestamp %v, got %v", want, ev.Timestamp)
	}
}

// Верхний уровень и payload дают одинаковый store_id.
func TestDecodeEvent_TopLevelAndNestedAgree(t *testing.T) {
	for _, id := range []int64{1, 7, 55, 123, 9007199254740993} {
		top, _ := json.Marshal(map[string]any{"store_id": id})
		nested, _ := json.Marshal(map[string]any{"payload": map[string]any{"store_id": id}})

		a, err := DecodeEvent(top)
		if err != nil {
			t.Fatalf("top-level %d: %v", id, err)
		}
		b, err := DecodeEvent(nested)
		if err != nil {
			t.Fatalf("nested %d: %v", id, err)
		}
		if a.StoreID != id || b.StoreID != id {
			t.Errorf("id %d: top=%d nested=%d", id, a.StoreID, b.StoreID)
		}
	}
}

func TestDecodeEvent_NestedFields(t *testing.T) {
	body := []byte(`{"event":"woo.store.connected","payload":{"store_id":55,"organization_id":3,"site_url":"https://shop.test"}}`)

	ev, err := DecodeEvent(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.StoreID != 55 || ev.OrganizationID != 3 || ev.SiteURL != "https://shop.test" {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestDecodeEvent_TopLevelWins(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"store_id": 1, "payload": {"store_id": 2}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.StoreID != 1 {
		t.Errorf("expected top-level store_id 1, got %d", ev.StoreID)
	}
}

func TestDecodeEvent_NullFallsBackToNested(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"store_id": null, "payload": {"store_id": 9}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.StoreID != 9 {
		t.Errorf("expected nested store_id 9, got %d", ev.StoreID)
	}
}

func TestDecodeEvent_NumericString(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"store_id": "77"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.StoreID != 77 {
		t.Errorf("expected 77, got %d", ev.StoreID)
	}
}

func TestDecodeEvent_NumericBounds(t *testing.T) {
	tests := []struct {
		body string
		want int64
	}{
		{`{"store_id": 9223372036854775807}`, math.MaxInt64},
		{`{"store_id": 1e2}`, 100},
		{`{"store_id": 42.0}`, 42},
	}

	for _, tt := range tests {
		ev, err := DecodeEvent([]byte(tt.body))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.body, err)
		}
		if ev.StoreID != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.body, tt.want, ev.StoreID)
		}
	}
}

func TestDecodeEvent_BadTimestampIgnored(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"store_id": 5, "timestamp": "yesterday"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ev.Timestamp.IsZero() {
		t.Errorf("expected zero timestamp, got %v", ev.Timestamp)
	}
}

func TestDecodeEvent_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"not json", `not json`, ErrMalformedInput},
		{"empty body", ``, ErrMalformedInput},
		{"truncated", `{"store_id": 1`, ErrMalformedInput},
		{"array", `[{"store_id": 1}]`, ErrMalformedInput},
		{"string", `"store_id"`, ErrMalformedInput},
		{"empty object", `{}`, ErrMissingIdentifier},
		{"null", `{"store_id": null}`, ErrMissingIdentifier},
		{"zero", `{"store_id": 0}`, ErrMissingIdentifier},
		{"negative", `{"store_id": -4}`, ErrMissingIdentifier},
		{"fraction", `{"store_id": 1.5}`, ErrMissingIdentifier},
		{"word", `{"store_id": "abc"}`, ErrMissingIdentifier},
		{"bool", `{"store_id": true}`, ErrMissingIdentifier},
		{"int64 overflow", `{"store_id": 9223372036854775808}`, ErrMissingIdentifier},
		{"int64 overflow plus one", `{"store_id": 9223372036854775809}`, ErrMissingIdentifier},
		{"exponent overflow", `{"store_id": 1e19}`, ErrMissingIdentifier},
		{"string overflow", `{"store_id": "9223372036854775808"}`, ErrMissingIdentifier},
		{"payload not object", `{"payload": "123"}`, ErrMissingIdentifier},
		{"empty payload", `{"payload": {}}`, ErrMissingIdentifier},
		{"invalid top-level not overridden", `{"store_id": "x", "payload": {"store_id": 3}}`, ErrMissingIdentifier},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeEvent([]byte(tt.body))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestNewStoreConnectedEvent_RoundTrip(t *testing.T) {
	ev := NewStoreConnectedEvent(123, 1, "https://example.com")

	flat, _ := json.Marshal(ev)
	nested, _ := json.Marshal(ev.Nested())

	for _, body := range [][]byte{flat, nested} {
		got, err := DecodeEvent(body)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.StoreID != 123 || got.OrganizationID != 1 {
			t.Errorf("unexpected event: %+v", got)
		}
		if got.Event != EventStoreConnected {
			t.Errorf("expected event name, got %q", got.Event)
		}
	}
}

func TestOutcome(t *testing.T) {
	if !Completed().IsCompleted() {
		t.Error("Completed() should be completed")
	}

	o := Failed(StepSyncCategories, ClassNotFound, "HTTP 404")
	if o.IsCompleted() {
		t.Error("failed outcome should not be completed")
	}
	if o.String() != "sync_categories:not_found" {
		t.Errorf("unexpected string %q", o.String())
	}

	for class, fatal := range map[Class]bool{
		ClassSuccess:    false,
		ClassAuthDenied: true,
		ClassNotFound:   true,
		ClassTransient:  false,
	} {
		if class.IsFatal() != fatal {
			t.Errorf("%s: expected fatal=%v", class, fatal)
		}
	}
}
