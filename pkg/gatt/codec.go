package gatt

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Payloads travel as canonical CBOR maps keyed by the same field names the
// HTTP binding uses; the struct json tags drive both encodings.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	decOpts := cbor.DecOptions{
		// Inbound payloads are untrusted; cap everything.
		MaxArrayElements: 128,
		MaxMapPairs:      128,
		MaxNestedLevels:  8,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(err)
	}
}

func encode(v any) ([]byte, error) {
	raw, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding characteristic payload: %w", err)
	}
	return raw, nil
}

func decode(raw []byte, out any) error {
	if err := decMode.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding characteristic payload: %w", err)
	}
	return nil
}
