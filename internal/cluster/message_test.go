package cluster

import (
	"bytes"
	"testing"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	msg, err := NewMessage("event::CheckResult", 12345, map[string]string{"object": "web1"})
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}

	var buf bytes.Buffer
	if err := writeFrame(&buf, msg); err != nil {
		t.Fatalf("writeFrame: %v", err)
	}

	got, err := readFrame(&buf, defaultMaxMessageBytes)
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	if got.Method != msg.Method || got.Ts != msg.Ts || got.JSONRPC != "2.0" {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, msg)
	}
	if string(got.Params) != string(msg.Params) {
		t.Fatalf("params mismatch: got %s, want %s", got.Params, msg.Params)
	}
}

func TestReadFrameRejectsOversizedMessage(t *testing.T) {
	msg, err := NewMessage("event::CheckResult", 1, map[string]string{"x": "y"})
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	var buf bytes.Buffer
	if err := writeFrame(&buf, msg); err != nil {
		t.Fatalf("writeFrame: %v", err)
	}

	_, err = readFrame(&buf, 4) // smaller than the encoded body
	if _, ok := err.(ErrFrameTooLarge); !ok {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
}
