package mq

import (
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
)

func TestRetryCount(t *testing.T) {
	tests := []struct {
		name    string
		headers amqp.Table
		want    int
	}{
		{"nil headers", nil, 0},
		{"missing", amqp.Table{"other": 1}, 0},
		{"int32", amqp.Table{HeaderRetryCount: int32(3)}, 3},
		{"int64", amqp.Table{HeaderRetryCount: int64(4)}, 4},
		{"int16", amqp.Table{HeaderRetryCount: int16(2)}, 2},
		{"uint8", amqp.Table{HeaderRetryCount: uint8(1)}, 1},
		{"int", amqp.Table{HeaderRetryCount: 5}, 5},
		{"numeric string", amqp.Table{HeaderRetryCount: "2"}, 2},
		{"garbage string", amqp.Table{HeaderRetryCount: "two"}, 0},
		{"negative", amqp.Table{HeaderRetryCount: int32(-3)}, 0},
		{"float", amqp.Table{HeaderRetryCount: 1.5}, 0},
		{"bool", amqp.Table{HeaderRetryCount: true}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RetryCount(tt.headers); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestWithRetryCount(t *testing.T) {
	orig := amqp.Table{"trace": "abc", HeaderRetryCount: int32(1)}

	out := WithRetryCount(orig, 2, "sync_categories:transient")

	if out[HeaderRetryCount] != int64(2) {
		t.Errorf("expected int64 2, got %#v", out[HeaderRetryCount])
	}
	if out[HeaderLastFailure] != "sync_categories:transient" {
		t.Errorf("unexpected last failure %v", out[HeaderLastFailure])
	}
	if out["trace"] != "abc" {
		t.Error("other headers should be preserved")
	}
	if orig[HeaderRetryCount] != int32(1) {
		t.Error("original headers must not be modified")
	}
	if RetryCount(out) != 2 {
		t.Errorf("round trip failed: %d", RetryCount(out))
	}
	if err := out.Validate(); err != nil {
		t.Errorf("headers should be valid AMQP table: %v", err)
	}
}

func TestWithRetryCount_NilHeaders(t *testing.T) {
	out := WithRetryCount(nil, 1, "")
	if RetryCount(out) != 1 {
		t.Errorf("expected 1, got %d", RetryCount(out))
	}
	if _, ok := out[HeaderLastFailure]; ok {
		t.Error("empty last failure should not be set")
	}
}
