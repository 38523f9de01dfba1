package himitsu

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// maxFrameLen is a defensive upper bound on an incoming frame's declared
// length. The wire format allows any value fitting in 32 bits; this guards
// against a misbehaving or hostile peer requesting an enormous allocation.
const maxFrameLen = 64 << 20 // 64 MiB

// ReadFrame reads one length-prefixed frame (4-byte big-endian length N,
// then N bytes) from r. An oversized or truncated frame returns an
// IncomingMessageError.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, &IoError{Err: err}
	}

	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxFrameLen {
		return nil, &IncomingMessageError{Message: fmt.Sprintf("frame length %d exceeds maximum %d", n, maxFrameLen)}
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, &IoError{Err: err}
	}
	return buf, nil
}

// WriteFrame writes payload as one length-prefixed frame to w.
func WriteFrame(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return &IoError{Err: err}
	}
	if _, err := w.Write(payload); err != nil {
		return &IoError{Err: err}
	}
	return nil
}

// ReadRequest reads and parses one framed Request from r.
func ReadRequest(r io.Reader) (Request, error) {
	var req Request
	frame, err := ReadFrame(r)
	if err != nil {
		return req, err
	}
	if err := json.Unmarshal(frame, &req); err != nil {
		return req, &IncomingMessageError{Message: err.Error()}
	}
	return req, nil
}

// WriteResponse serializes and sends resp as one framed message to w.
func WriteResponse(w io.Writer, resp Response) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return &OutgoingMessageError{Message: err.Error()}
	}
	return WriteFrame(w, payload)
}

// WriteRequest serializes and sends req as one framed message to w. This is
// the client-side counterpart to ReadRequest, used by the precommit checker
// and stdin shim.
func WriteRequest(w io.Writer, req Request) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return &OutgoingMessageError{Message: err.Error()}
	}
	return WriteFrame(w, payload)
}

// ReadResponse reads and parses one framed Response from r. This is the
// client-side counterpart to WriteResponse.
func ReadResponse(r io.Reader) (Response, error) {
	var resp Response
	frame, err := ReadFrame(r)
	if err != nil {
		return resp, err
	}
	if err := json.Unmarshal(frame, &resp); err != nil {
		return resp, &IncomingMessageError{Message: err.Error()}
	}
	return resp, nil
}
