package runconfig

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Document is a decoded configuration: table name to record name to field
// name to value. Top-level scalars such as "hostname" are allowed.
type Document map[string]any

// DecodeError reports a payload that is not a serialized Document.
type DecodeError struct {
	Size    int
	Summary string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid config payload (%d bytes, %q): %v", e.Size, e.Summary, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) ErrorKind() string { return "decode" }

const summaryLen = 32

var errEmptyPayload = errors.New("payload is empty")

// Decode parses a stored payload. Plain JSON is preferred; base64-wrapped
// JSON written by older tools is also accepted.
func Decode(payload string) (Document, error) {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		return nil, newDecodeError(payload, errEmptyPayload)
	}

	doc, jsonErr := decodeJSON([]byte(trimmed))
	if jsonErr == nil {
		return doc, nil
	}
	raw, b64Err := base64.StdEncoding.DecodeString(trimmed)
	if b64Err != nil {
		return nil, newDecodeError(payload, jsonErr)
	}
	doc, err := decodeJSON(raw)
	if err != nil {
		return nil, newDecodeError(payload, err)
	}
	return doc, nil
}

func decodeJSON(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after document")
	}
	if doc == nil {
		return nil, errors.New("document is not a JSON object")
	}
	return doc, nil
}

func newDecodeError(payload string, err error) *DecodeError {
	summary := payload
	if len(summary) > summaryLen {
		summary = summary[:summaryLen] + "..."
	}
	return &DecodeError{Size: len(payload), Summary: summary, Err: err}
}

// Encode serializes doc as compact JSON with sorted keys.
func Encode(doc Document) (string, error) {
	if doc == nil {
		doc = Document{}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode config document: %w", err)
	}
	return string(data), nil
}

// EncodeIndent serializes doc for display.
func EncodeIndent(doc Document) (string, error) {
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return "", fmt.Errorf("encode config document: %w", err)
	}
	return string(data), nil
}
