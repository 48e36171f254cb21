package cluster

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// Message is the wire envelope for every peer-to-peer exchange, per
// spec.md §4.5: a JSON-RPC-shaped object with a dotted method name.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	Ts      int64           `json:"ts"`
}

// NewMessage builds a Message, marshaling params.
func NewMessage(method string, ts int64, params interface{}) (Message, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return Message{}, fmt.Errorf("cluster: marshal params for %s: %w", method, err)
	}
	return Message{JSONRPC: "2.0", Method: method, Params: raw, Ts: ts}, nil
}

// defaultMaxMessageBytes is the spec.md §4.5 default: messages exceeding
// this cause the link to be dropped.
const defaultMaxMessageBytes = 64 * 1024 * 1024

// writeFrame writes a length-prefixed JSON frame: an 8-byte little-endian
// byte count followed by that many bytes of UTF-8 JSON.
func writeFrame(w io.Writer, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("cluster: marshal message: %w", err)
	}
	var header [8]byte
	binary.LittleEndian.PutUint64(header[:], uint64(len(body)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("cluster: write frame header: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("cluster: write frame body: %w", err)
	}
	return nil
}

// ErrFrameTooLarge is returned by readFrame when a peer's declared frame
// length exceeds maxBytes; the caller must drop the link.
type ErrFrameTooLarge struct {
	Declared, Max uint64
}

func (e ErrFrameTooLarge) Error() string {
	return fmt.Sprintf("cluster: frame of %d bytes exceeds maximum %d", e.Declared, e.Max)
}

// readFrame reads one length-prefixed JSON frame from r.
func readFrame(r io.Reader, maxBytes uint64) (Message, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Message{}, err
	}
	length := binary.LittleEndian.Uint64(header[:])
	if length > maxBytes {
		return Message{}, ErrFrameTooLarge{Declared: length, Max: maxBytes}
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return Message{}, fmt.Errorf("cluster: read frame body: %w", err)
	}
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return Message{}, fmt.Errorf("cluster: decode frame: %w", err)
	}
	return msg, nil
}
