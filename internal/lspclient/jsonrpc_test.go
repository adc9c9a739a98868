package lspclient

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
)

func TestFramingRoundTripMultipleMessages(t *testing.T) {
	var buf bytes.Buffer
	msg1 := []byte(`{"jsonrpc":"2.0","method":"one"}`)
	msg2 := []byte(`{"jsonrpc":"2.0","method":"two"}`)

	if err := writeFrame(&buf, msg1); err != nil {
		t.Fatalf("write frame 1: %v", err)
	}
	if err := writeFrame(&buf, msg2); err != nil {
		t.Fatalf("write frame 2: %v", err)
	}

	reader := bufio.NewReader(bytes.NewReader(buf.Bytes()))
	got1, err := readFrame(reader)
	if err != nil {
		t.Fatalf("read frame 1: %v", err)
	}
	got2, err := readFrame(reader)
	if err != nil {
		t.Fatalf("read frame 2: %v", err)
	}

	if string(got1) != string(msg1) {
		t.Fatalf("unexpected frame 1: %s", string(got1))
	}
	if string(got2) != string(msg2) {
		t.Fatalf("unexpected frame 2: %s", string(got2))
	}
}

func TestReadFrameIgnoresExtraHeaders(t *testing.T) {
	raw := "Content-Type: application/vscode-jsonrpc; charset=utf-8\r\n" +
		"Content-Length: 2\r\n" +
		"\r\n{}"
	got, err := readFrame(bufio.NewReader(strings.NewReader(raw)))
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if string(got) != "{}" {
		t.Fatalf("unexpected payload %q", string(got))
	}
}

func TestReadFrameMissingContentLength(t *testing.T) {
	raw := "Content-Type: application/json\r\n\r\n{}"
	if _, err := readFrame(bufio.NewReader(strings.NewReader(raw))); err == nil {
		t.Fatalf("expected error for missing Content-Length")
	}
}
