package store

import (
	"fmt"

	"github.com/roach88/bsync/internal/ir"
)

// marshalData converts event data to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON for deterministic serialization; nil is
// stored as null.
func marshalData(data ir.IRValue) (string, error) {
	if data == nil {
		data = ir.IRNull{}
	}
	out, err := ir.MarshalCanonical(data)
	if err != nil {
		return "", fmt.Errorf("marshal data: %w", err)
	}
	return string(out), nil
}

// unmarshalData parses canonical JSON TEXT back to an IRValue.
// ir.ParseJSON decodes numbers via json.Number to avoid float64 precision
// loss for values > 2^53.
func unmarshalData(text string) (ir.IRValue, error) {
	if text == "" {
		return ir.IRNull{}, nil
	}
	v, err := ir.ParseJSON([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("unmarshal data: %w", err)
	}
	return v, nil
}
