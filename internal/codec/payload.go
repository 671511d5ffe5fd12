// Package codec handles the two serialization concerns a job touches: the
// format-tagged binary packing of a job's opaque data/result payloads
// (JSON or protobuf), and the msgpack packing of structured arguments
// (option structs, retention policies) sent to the atomic Lua scripts,
// which unpack them with cmsgpack.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/proto"
)

// PayloadFormat identifies how a job's data/result payload was encoded.
type PayloadFormat byte

const (
	// FormatJSON is the default: caller-opaque JSON.
	FormatJSON PayloadFormat = 0x00
	// FormatProtobuf is used when the caller hands a proto.Message payload.
	FormatProtobuf PayloadFormat = 0x01
)

var (
	ErrUnknownFormat   = errors.New("codec: unknown payload format")
	ErrMarshalFailed   = errors.New("codec: failed to marshal payload")
	ErrUnmarshalFailed = errors.New("codec: failed to unmarshal payload")
)

// PayloadCodec serializes job payloads with a format-tagged byte prefix so
// a job body can carry either JSON or protobuf without an out-of-band
// schema registry.
type PayloadCodec struct {
	// DefaultFormat is the format used when Marshal is called without an
	// explicit format.
	DefaultFormat PayloadFormat
}

// NewPayloadCodec creates a codec defaulting to the given format.
func NewPayloadCodec(defaultFormat PayloadFormat) *PayloadCodec {
	return &PayloadCodec{DefaultFormat: defaultFormat}
}

// Marshal serializes v using the codec's default format.
func (c *PayloadCodec) Marshal(v interface{}) ([]byte, error) {
	return c.MarshalWithFormat(v, c.DefaultFormat)
}

// MarshalWithFormat serializes v with an explicit format, prefixing the
// result with the one-byte format tag.
func (c *PayloadCodec) MarshalWithFormat(v interface{}, format PayloadFormat) ([]byte, error) {
	var data []byte
	var err error

	switch format {
	case FormatJSON:
		data, err = json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w (JSON): %v", ErrMarshalFailed, err)
		}

	case FormatProtobuf:
		msg, ok := v.(proto.Message)
		if !ok {
			return nil, fmt.Errorf("%w: value does not implement proto.Message", ErrMarshalFailed)
		}
		data, err = proto.Marshal(msg)
		if err != nil {
			return nil, fmt.Errorf("%w (Protobuf): %v", ErrMarshalFailed, err)
		}

	default:
		return nil, fmt.Errorf("%w: format %d", ErrUnknownFormat, format)
	}

	result := make([]byte, len(data)+1)
	result[0] = byte(format)
	copy(result[1:], data)
	return result, nil
}

// Unmarshal deserializes data into v, detecting the format from its
// leading byte.
func (c *PayloadCodec) Unmarshal(data []byte, v interface{}) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty payload", ErrUnmarshalFailed)
	}

	format, payload, err := c.DetectFormat(data)
	if err != nil {
		return err
	}
	return c.UnmarshalWithFormat(payload, v, format)
}

// UnmarshalWithFormat deserializes data using an explicit format.
func (c *PayloadCodec) UnmarshalWithFormat(data []byte, v interface{}, format PayloadFormat) error {
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("%w (JSON): %v", ErrUnmarshalFailed, err)
		}
		return nil

	case FormatProtobuf:
		msg, ok := v.(proto.Message)
		if !ok {
			return fmt.Errorf("%w: value does not implement proto.Message", ErrUnmarshalFailed)
		}
		if err := proto.Unmarshal(data, msg); err != nil {
			return fmt.Errorf("%w (Protobuf): %v", ErrUnmarshalFailed, err)
		}
		return nil

	default:
		return fmt.Errorf("%w: format %d", ErrUnknownFormat, format)
	}
}

// DetectFormat reads the leading format byte off data and returns the
// format plus the remaining payload, falling back to legacy bare-JSON
// detection for data with no recognized prefix.
func (c *PayloadCodec) DetectFormat(data []byte) (PayloadFormat, []byte, error) {
	if len(data) == 0 {
		return FormatJSON, nil, fmt.Errorf("%w: empty payload", ErrUnknownFormat)
	}

	format := PayloadFormat(data[0])
	switch format {
	case FormatJSON, FormatProtobuf:
		if len(data) < 2 {
			return format, nil, fmt.Errorf("%w: payload too short", ErrUnmarshalFailed)
		}
		return format, data[1:], nil
	default:
		if data[0] == '{' || data[0] == '[' {
			return FormatJSON, data, nil
		}
		return FormatJSON, data, fmt.Errorf("%w: unknown format byte 0x%02X", ErrUnknownFormat, data[0])
	}
}

// IsProtobuf reports whether data carries the protobuf format tag.
func (c *PayloadCodec) IsProtobuf(data []byte) bool {
	return len(data) > 0 && PayloadFormat(data[0]) == FormatProtobuf
}

// IsJSON reports whether data carries the JSON format tag, or looks like
// legacy untagged JSON.
func (c *PayloadCodec) IsJSON(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	if PayloadFormat(data[0]) == FormatJSON {
		return true
	}
	return data[0] == '{' || data[0] == '['
}
