package vm

import (
	"bytes"
	"encoding/json"

	"github.com/LeJamon/goMarble/internal/core/result"
)

// SplitVariant decodes an externally tagged message of the form
// {"<variant>": {...}} into its variant name and body.
func SplitVariant(msg json.RawMessage) (string, json.RawMessage, error) {
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(msg, &tagged); err != nil {
		return "", nil, result.Wrap(result.InvalidMessage, "decode message: %v", err)
	}
	if len(tagged) != 1 {
		return "", nil, result.Wrap(result.InvalidMessage, "message must have exactly one variant, got %d", len(tagged))
	}
	for name, body := range tagged {
		if len(body) == 0 || string(body) == "null" {
			body = json.RawMessage("{}")
		}
		return name, body, nil
	}
	return "", nil, nil
}

// DecodeBody unmarshals a variant body, rejecting unknown fields.
func DecodeBody(name string, body json.RawMessage, dst interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return result.Wrap(result.InvalidMessage, "decode %s: %v", name, err)
	}
	return nil
}

// Tagged encodes v as {"<name>": v}.
func Tagged(name string, v interface{}) (json.RawMessage, error) {
	return json.Marshal(map[string]interface{}{name: v})
}
