package redact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/eco2-team/backend/domains/basket/internal/constants"
)

// PayloadOutcome describes what MaskPayload did with a value.
type PayloadOutcome int

const (
	// PayloadNotObject means the value is not shaped like a JSON object.
	PayloadNotObject PayloadOutcome = iota
	// PayloadRewritten means the object parsed and Value holds its re-encoding.
	PayloadRewritten
	// PayloadInvalid means the value looked like an object but failed to parse.
	PayloadInvalid
)

func (o PayloadOutcome) String() string {
	switch o {
	case PayloadNotObject:
		return "not_object"
	case PayloadRewritten:
		return "rewritten"
	case PayloadInvalid:
		return "invalid"
	}
	return fmt.Sprintf("PayloadOutcome(%d)", int(o))
}

// PayloadResult is returned by MaskPayload. Value is always safe to use: it is
// the original text unless Outcome is PayloadRewritten.
type PayloadResult struct {
	Value   string
	Outcome PayloadOutcome
	Masked  int
	Err     error
}

// LooksLikeObject reports whether s is delimited like a JSON object.
func LooksLikeObject(s string) bool {
	return len(s) >= 2 && s[0] == '{' && s[len(s)-1] == '}'
}

// MaskPayload parses a JSON object carried as a single string (message bus
// payloads recorded on spans), masks every top-level string field matched by
// the policy and re-encodes it. Keys come out sorted; numbers keep their
// literal form.
func (p *Policy) MaskPayload(s string) PayloadResult {
	if !LooksLikeObject(s) {
		return PayloadResult{Value: s, Outcome: PayloadNotObject}
	}

	fields, err := decodeObject(s)
	if err != nil {
		return PayloadResult{Value: s, Outcome: PayloadInvalid, Err: err}
	}

	masked := 0
	for key, v := range fields {
		str, ok := v.(string)
		if !ok {
			continue
		}
		if m, ok := p.Mask(key, str); ok {
			fields[key] = m
			masked++
		}
	}

	out, err := encodeObject(fields)
	if err != nil {
		return PayloadResult{Value: s, Outcome: PayloadInvalid, Err: err}
	}
	return PayloadResult{Value: out, Outcome: PayloadRewritten, Masked: masked}
}

func decodeObject(s string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf(constants.ErrPayloadDecode, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf(constants.ErrPayloadDecode, errors.New("trailing data after object"))
	}
	return fields, nil
}

func encodeObject(fields map[string]any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(fields); err != nil {
		return "", fmt.Errorf(constants.ErrPayloadEncode, err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
