// Package protocol implements the newline-terminated JSON framing used
// between clients, the server, and the direct peer channel. One message per
// line; a receiver buffers bytes until the terminator and parses the
// accumulated line as a single typed record.
package protocol

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"sync"
)

// MaxMessageSize caps a single frame. A line that grows past this without a
// terminator is a protocol error, not a bigger buffer.
const MaxMessageSize = 10 * 1024 * 1024 // 10 MB

var (
	// ErrMalformed marks a frame that terminated but did not parse as JSON.
	ErrMalformed = errors.New("protocol: malformed frame")
	// ErrTooLarge marks a frame that exceeded MaxMessageSize before its
	// terminator arrived.
	ErrTooLarge = errors.New("protocol: frame exceeds size limit")
)

// Message is one wire record: a type string plus a structured payload.
type Message struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Reader decodes framed messages off a byte stream.
type Reader struct {
	br *bufio.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, 4096)}
}

// ReadMessage blocks for the next full frame. Any non-nil error means the
// stream has nothing more to give; ErrMalformed and ErrTooLarge are worth
// logging distinctly from a plain close.
func (r *Reader) ReadMessage() (*Message, error) {
	var buf []byte
	for {
		chunk, err := r.br.ReadSlice('\n')
		buf = append(buf, chunk...)
		if len(buf) > MaxMessageSize {
			return nil, ErrTooLarge
		}
		if err == nil {
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) && len(buf) > 0 {
			// Stream closed mid-line; try to decode what we have.
			break
		}
		return nil, err
	}
	var msg Message
	if err := json.Unmarshal(buf, &msg); err != nil {
		return nil, ErrMalformed
	}
	return &msg, nil
}

// Writer encodes messages onto a byte stream. WriteMessage is safe for
// concurrent use; each frame is written with a single Write call so frames
// from different goroutines never interleave.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) WriteMessage(msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = w.w.Write(data)
	return err
}
