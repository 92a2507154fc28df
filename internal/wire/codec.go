package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Encoder writes Messages to a stream. It is not safe for concurrent use;
// each connection has exactly one writer goroutine.
type Encoder struct {
	enc *json.Encoder
}

func NewEncoder(w io.Writer) *Encoder {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &Encoder{enc: enc}
}

func (e *Encoder) Encode(m Message) error {
	if err := e.enc.Encode(m); err != nil {
		return fmt.Errorf("wire: encode: %w", err)
	}
	return nil
}

// Decoder reads Messages from a stream.
type Decoder struct {
	dec *json.Decoder
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{dec: json.NewDecoder(r)}
}

// Decode reads the next Message. A clean end of stream is reported as io.EOF.
func (d *Decoder) Decode() (Message, error) {
	var m Message
	if err := d.dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return Message{}, io.EOF
		}
		return Message{}, fmt.Errorf("wire: decode: %w", err)
	}
	return m, nil
}
