package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/bpsync/internal/event"
	"github.com/roach88/bpsync/internal/ir"
)

// marshalParams converts program parameters to canonical JSON TEXT.
func marshalParams(params ir.IRObject) (string, error) {
	if params == nil {
		params = ir.IRObject{}
	}
	data, err := ir.MarshalCanonical(params)
	if err != nil {
		return "", fmt.Errorf("marshal params: %w", err)
	}
	return string(data), nil
}

// unmarshalParams parses canonical JSON TEXT to IRObject.
// Uses ir.IRObject.UnmarshalJSON, which keeps large integers exact.
func unmarshalParams(data string) (ir.IRObject, error) {
	if data == "" || data == "{}" {
		return ir.IRObject{}, nil
	}
	var obj ir.IRObject
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	return obj, nil
}

// marshalEvent converts an event to canonical JSON TEXT.
func marshalEvent(e event.Event) (string, error) {
	data, err := ir.MarshalCanonical(e.IR())
	if err != nil {
		return "", fmt.Errorf("marshal event %s: %w", e.Name, err)
	}
	return string(data), nil
}

// unmarshalEvent parses an event stored by marshalEvent.
func unmarshalEvent(data string) (event.Event, error) {
	v, err := ir.UnmarshalIRValue([]byte(data))
	if err != nil {
		return event.Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	e, err := event.FromIR(v)
	if err != nil {
		return event.Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return e, nil
}

// marshalThreads converts per-thread statements to JSON TEXT.
func marshalThreads(threads []ThreadStatement) (string, error) {
	if threads == nil {
		threads = []ThreadStatement{}
	}
	data, err := json.Marshal(threads)
	if err != nil {
		return "", fmt.Errorf("marshal threads: %w", err)
	}
	return string(data), nil
}

func unmarshalThreads(data string) ([]ThreadStatement, error) {
	var threads []ThreadStatement
	if data == "" {
		return threads, nil
	}
	if err := json.Unmarshal([]byte(data), &threads); err != nil {
		return nil, fmt.Errorf("unmarshal threads: %w", err)
	}
	return threads, nil
}
