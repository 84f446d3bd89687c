package eventstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

// ErrEventNotRegistered is returned by Decode for event types the encoder was not constructed with
var ErrEventNotRegistered = errors.New("event not registered")

// NewJSONEncoder constructs json encoder
// Each of evts should be a value (not a pointer) of an event type
// the encoder needs to be able to decode
func NewJSONEncoder(evts ...any) *JSONEncoder {
	enc := JSONEncoder{
		types: make(map[string]reflect.Type),
	}

	for _, evt := range evts {
		t := reflect.TypeOf(evt)
		enc.types[t.Name()] = t
	}

	return &enc
}

// JSONEncoder provides default json Encoder implementation
// It will marshal and unmarshal events to/from json and store the type name
type JSONEncoder struct {
	types map[string]reflect.Type
}

// Encode marshals incoming event to it's json representation
func (e *JSONEncoder) Encode(evt any) (*EncodedEvt, error) {
	t := reflect.TypeOf(evt)

	if t == nil || t.Kind() == reflect.Ptr {
		return nil, fmt.Errorf("event must be a non pointer value, got %T", evt)
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}

	return &EncodedEvt{
		Type: t.Name(),
		Data: string(data),
	}, nil
}

// Decode unmarshals incoming event to it's corresponding go type
func (e *JSONEncoder) Decode(evt *EncodedEvt) (any, error) {
	t, ok := e.types[evt.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEventNotRegistered, evt.Type)
	}

	v := reflect.New(t)

	err := json.Unmarshal([]byte(evt.Data), v.Interface())
	if err != nil {
		return nil, err
	}

	return v.Elem().Interface(), nil
}
