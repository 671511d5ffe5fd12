package job

import (
	"encoding/json"
	"fmt"

	"github.com/muaviaUsmani/bullmq-core-go/internal/codec"
	"google.golang.org/protobuf/proto"
)

// DefaultCodec is the payload codec used by NewWithJSON/SetPayload and the
// Unmarshal* helpers below. CORE always writes FormatJSON for Data since a
// job's data is caller-opaque JSON by default, but a caller that sets a
// proto.Message payload round-trips through the protobuf path instead.
var DefaultCodec = codec.NewPayloadCodec(codec.FormatJSON)

// NewWithProto builds a Job whose Data is a protobuf-serialized payload.
func NewWithProto(name string, payload proto.Message, opts Options) (*Job, error) {
	data, err := DefaultCodec.MarshalWithFormat(payload, codec.FormatProtobuf)
	if err != nil {
		return nil, fmt.Errorf("serialize protobuf payload: %w", err)
	}
	return New(name, data, opts), nil
}

// NewWithJSON builds a Job whose Data is a JSON-serialized payload.
func NewWithJSON(name string, payload interface{}, opts Options) (*Job, error) {
	data, err := DefaultCodec.MarshalWithFormat(payload, codec.FormatJSON)
	if err != nil {
		return nil, fmt.Errorf("serialize JSON payload: %w", err)
	}
	return New(name, data, opts), nil
}

// GetPayloadFormat returns the format of the job's Data payload.
func (j *Job) GetPayloadFormat() (codec.PayloadFormat, error) {
	format, _, err := DefaultCodec.DetectFormat(j.Data)
	return format, err
}

// IsProtobufPayload reports whether Data is protobuf-encoded.
func (j *Job) IsProtobufPayload() bool {
	return DefaultCodec.IsProtobuf(j.Data)
}

// IsJSONPayload reports whether Data is JSON-encoded.
func (j *Job) IsJSONPayload() bool {
	return DefaultCodec.IsJSON(j.Data)
}

// UnmarshalPayload deserializes Data into v, auto-detecting the format.
func (j *Job) UnmarshalPayload(v interface{}) error {
	return DefaultCodec.Unmarshal(j.Data, v)
}

// UnmarshalPayloadProto deserializes Data into a protobuf message.
func (j *Job) UnmarshalPayloadProto(msg proto.Message) error {
	return DefaultCodec.Unmarshal(j.Data, msg)
}

// UnmarshalPayloadJSON deserializes Data into v, rejecting a protobuf
// payload rather than silently misinterpreting it.
func (j *Job) UnmarshalPayloadJSON(v interface{}) error {
	format, payload, err := DefaultCodec.DetectFormat(j.Data)
	if err != nil {
		return err
	}
	if format != codec.FormatJSON {
		return fmt.Errorf("payload is not in JSON format")
	}
	return json.Unmarshal(payload, v)
}

// SetPayload serializes v into Data, using the protobuf path when v
// implements proto.Message and JSON otherwise.
func (j *Job) SetPayload(v interface{}) error {
	if msg, ok := v.(proto.Message); ok {
		data, err := DefaultCodec.MarshalWithFormat(msg, codec.FormatProtobuf)
		if err != nil {
			return err
		}
		j.Data = data
		return nil
	}

	data, err := DefaultCodec.MarshalWithFormat(v, codec.FormatJSON)
	if err != nil {
		return err
	}
	j.Data = data
	return nil
}
