package fishaudio

import (
	"encoding/base64"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Outbound control frames. The wire protocol is msgpack-encoded binary, not
// JSON text.
type startFrame struct {
	Event   string       `msgpack:"event"`
	Request startRequest `msgpack:"request"`
}

type startRequest struct {
	Text        string `msgpack:"text"`
	Latency     string `msgpack:"latency"`
	Format      string `msgpack:"format"`
	SampleRate  int    `msgpack:"sample_rate"`
	Model       string `msgpack:"model"`
	ReferenceID string `msgpack:"id_referencia,omitempty"`
}

type textFrame struct {
	Event string `msgpack:"event"`
	Text  string `msgpack:"text"`
}

type flushFrame struct {
	Event string `msgpack:"event"`
}

// serverFrame is one inbound message. Audio payload encoding varies by
// deployment: base64 string, numeric array, or raw binary.
type serverFrame struct {
	Event string `msgpack:"event"`
	Audio any    `msgpack:"audio"`
}

func decodeServerFrame(raw []byte) (serverFrame, error) {
	var frame serverFrame
	if err := msgpack.Unmarshal(raw, &frame); err != nil {
		return serverFrame{}, err
	}
	return frame, nil
}

// audioBytes resolves the loosely-typed audio payload into canonical bytes
// once at decode time. Absent or unrecognized payload shapes yield a
// zero-length slice; a malformed base64 string or non-numeric array element
// is a decode failure.
func (f serverFrame) audioBytes() ([]byte, error) {
	switch payload := f.Audio.(type) {
	case nil:
		return nil, nil
	case []byte:
		return payload, nil
	case string:
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("base64 audio payload: %w", err)
		}
		return decoded, nil
	case []any:
		out := make([]byte, len(payload))
		for i, element := range payload {
			b, err := numericByte(element)
			if err != nil {
				return nil, fmt.Errorf("audio array element %d: %w", i, err)
			}
			out[i] = b
		}
		return out, nil
	default:
		return nil, nil
	}
}

func numericByte(v any) (byte, error) {
	switch n := v.(type) {
	case int8:
		return byte(n), nil
	case int16:
		return byte(n), nil
	case int32:
		return byte(n), nil
	case int64:
		return byte(n), nil
	case int:
		return byte(n), nil
	case uint8:
		return n, nil
	case uint16:
		return byte(n), nil
	case uint32:
		return byte(n), nil
	case uint64:
		return byte(n), nil
	case uint:
		return byte(n), nil
	case float32:
		return byte(int64(n)), nil
	case float64:
		return byte(int64(n)), nil
	default:
		return 0, fmt.Errorf("unsupported element type %T", v)
	}
}
