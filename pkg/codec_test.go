package himitsu

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte(`{"hello":"world"}`)

	if err := WriteFrame(&buf, payload); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("got %q, want %q", got, payload)
	}
}

func TestReadFrameRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], maxFrameLen+1)
	buf.Write(lenBuf[:])

	_, err := ReadFrame(&buf)
	if err == nil {
		t.Fatal("expected an error for an oversized frame length")
	}
	if _, ok := err.(*IncomingMessageError); !ok {
		t.Errorf("expected *IncomingMessageError, got %T: %v", err, err)
	}
}

func TestRequestResponseWireRoundTrip(t *testing.T) {
	var buf bytes.Buffer

	req := NewScanCodeDiffRequest("diff contents")
	if err := WriteRequest(&buf, req); err != nil {
		t.Fatalf("WriteRequest: %v", err)
	}

	gotReq, err := ReadRequest(&buf)
	if err != nil {
		t.Fatalf("ReadRequest: %v", err)
	}
	if gotReq.ScanCodeDiff == nil || gotReq.ScanCodeDiff.Diff != "diff contents" {
		t.Errorf("got %+v, want diff %q", gotReq, "diff contents")
	}

	resp := CleanResponse()
	if err := WriteResponse(&buf, resp); err != nil {
		t.Fatalf("WriteResponse: %v", err)
	}

	gotResp, err := ReadResponse(&buf)
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	if !gotResp.IsClean() {
		t.Errorf("expected Clean response, got %+v", gotResp)
	}
}

// connectionIsolation guards against one malformed frame on a stream
// affecting a later, well-formed one read from a different stream.
func TestConnectionIsolationMalformedFrameDoesNotCorruptOtherStream(t *testing.T) {
	bad := bytes.NewBufferString("\x00\x00\x00\x04bad!")
	if _, err := ReadRequest(bad); err == nil {
		t.Fatal("expected malformed JSON to fail to parse")
	}

	var good bytes.Buffer
	if err := WriteRequest(&good, NewScanCodeDiffRequest("fine")); err != nil {
		t.Fatalf("WriteRequest: %v", err)
	}
	if _, err := ReadRequest(&good); err != nil {
		t.Fatalf("ReadRequest on an unrelated stream should be unaffected: %v", err)
	}
}
