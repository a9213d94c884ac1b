// Package envelope frames the messages SensorHub exchanges over the queue.
// Every message is a JSON envelope, optionally compressed, prefixed with the
// compression algorithm byte so consumers can read mixed producers.
package envelope

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sensorhub/sensorhub/internal/compression"
)

// Kind identifies the payload carried by an envelope
type Kind string

const (
	KindAirReading    Kind = "air_reading"
	KindGardenReading Kind = "garden_reading"
	KindPumpEvent     Kind = "pump_event"
	KindAlert         Kind = "alert"
)

// Valid reports whether k is a known kind
func (k Kind) Valid() bool {
	switch k {
	case KindAirReading, KindGardenReading, KindPumpEvent, KindAlert:
		return true
	}
	return false
}

// Envelope wraps one payload
type Envelope struct {
	Kind    Kind            `json:"kind"`
	SentAt  time.Time       `json:"sent_at"`
	Payload json.RawMessage `json:"payload"`
}

// Into decodes the payload into v
func (e *Envelope) Into(v interface{}) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s envelope has no payload", e.Kind)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Kind, err)
	}
	return nil
}

// Codec encodes envelopes with a fixed compressor. Decoding honors whatever
// algorithm the producer used.
type Codec struct {
	compressor compression.Compressor
	now        func() time.Time
}

// NewCodec creates a codec for a compression name ("", "none", "snappy")
func NewCodec(compressionName string) (*Codec, error) {
	algo, err := compression.ParseAlgorithm(compressionName)
	if err != nil {
		return nil, err
	}
	c, err := compression.GetCompressor(algo)
	if err != nil {
		return nil, err
	}
	return &Codec{compressor: c, now: time.Now}, nil
}

// Algorithm returns the compression applied by Encode
func (c *Codec) Algorithm() compression.Algorithm {
	return c.compressor.Algorithm()
}

// Encode marshals payload into a framed envelope
func (c *Codec) Encode(kind Kind, payload interface{}) ([]byte, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown envelope kind %q", kind)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	data, err := json.Marshal(Envelope{Kind: kind, SentAt: c.now().UTC(), Payload: body})
	if err != nil {
		return nil, err
	}
	return compression.Pack(c.compressor, data)
}

// Decode unpacks and unmarshals a framed envelope
func (c *Codec) Decode(frame []byte) (*Envelope, error) {
	data, err := compression.Unpack(frame)
	if err != nil {
		return nil, fmt.Errorf("unpack envelope: %w", err)
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if !env.Kind.Valid() {
		return nil, fmt.Errorf("unknown envelope kind %q", env.Kind)
	}
	return &env, nil
}
