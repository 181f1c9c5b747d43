package apiclient

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/tidwall/gjson"
)

// PayloadKind says how a successful response body was interpreted.
type PayloadKind uint8

const (
	// PayloadText is a body served with a non-JSON content type.
	PayloadText PayloadKind = iota
	// PayloadJSON is a JSON document.
	PayloadJSON
)

// Payload is the result of a successful request. For enveloped responses Body
// holds only the envelope's data member.
type Payload struct {
	Kind      PayloadKind
	Body      []byte
	Status    int
	Enveloped bool
	// Message is the envelope's message, if any.
	Message string
}

// Decode unmarshals a JSON payload into v. A text payload can be decoded into *string.
func (p *Payload) Decode(v any) error {
	if p.Kind == PayloadText {
		s, ok := v.(*string)
		if !ok {
			return fmt.Errorf("cannot decode text payload into %T", v)
		}
		*s = string(p.Body)
		return nil
	}
	if err := json.Unmarshal(p.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Text returns the body as a string.
func (p *Payload) Text() string {
	return string(p.Body)
}

// Get runs a gjson path query against a JSON payload.
func (p *Payload) Get(path string) gjson.Result {
	if p.Kind != PayloadJSON {
		return gjson.Result{}
	}
	return gjson.GetBytes(p.Body, path)
}

// isEnvelope is the single predicate for the standard response wrapper:
// a JSON object carrying both "success" and "data".
func isEnvelope(body []byte) bool {
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return false
	}
	return root.Get("success").Exists() && root.Get("data").Exists()
}

// unwrapEnvelope resolves an enveloped body into its data, or an API error when success is false.
func unwrapEnvelope(status int, body []byte) (*Payload, error) {
	root := gjson.ParseBytes(body)
	message := root.Get("message").String()
	if !root.Get("success").Bool() {
		errMsg := root.Get("error").String()
		if errMsg == "" {
			errMsg = message
		}
		if errMsg == "" {
			errMsg = "API request failed"
		}
		return nil, newAPIError(status, errMsg)
	}
	return &Payload{
		Kind:      PayloadJSON,
		Body:      []byte(root.Get("data").Raw),
		Status:    status,
		Enveloped: true,
		Message:   message,
	}, nil
}

// encodePayload and decodePayload store payloads in a byte-oriented cache.
// Layout: kind, flags, status (uint16), message length (uint16), message, body.
func encodePayload(p *Payload) []byte {
	msg := p.Message
	if len(msg) > math.MaxUint16 {
		msg = msg[:math.MaxUint16]
	}
	out := make([]byte, 0, payloadHeaderSize+len(msg)+len(p.Body))
	flags := byte(0)
	if p.Enveloped {
		flags = 1
	}
	out = append(out, byte(p.Kind), flags)
	out = binary.BigEndian.AppendUint16(out, uint16(p.Status))
	out = binary.BigEndian.AppendUint16(out, uint16(len(msg)))
	out = append(out, msg...)
	return append(out, p.Body...)
}

const payloadHeaderSize = 6

// decodePayload never aliases b, so callers may modify the returned body.
func decodePayload(b []byte) (*Payload, bool) {
	if len(b) < payloadHeaderSize {
		return nil, false
	}
	msgLen := int(binary.BigEndian.Uint16(b[4:6]))
	if len(b) < payloadHeaderSize+msgLen {
		return nil, false
	}
	body := b[payloadHeaderSize+msgLen:]
	return &Payload{
		Kind:      PayloadKind(b[0]),
		Enveloped: b[1] == 1,
		Status:    int(binary.BigEndian.Uint16(b[2:4])),
		Message:   string(b[payloadHeaderSize : payloadHeaderSize+msgLen]),
		Body:      append([]byte{}, body...),
	}, true
}
