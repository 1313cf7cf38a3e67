package normalize

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/logifywp/logify/internal/subject"
)

// The codec serializes canonical values into a tagged JSON envelope so they
// round-trip losslessly through the TEXT value columns: integers stay
// integers, timestamps stay timestamps, and object references come back as
// references rather than anonymous maps.
//
// Envelope shapes:
//
//	{"t":"null"}
//	{"t":"bool","v":true}
//	{"t":"int","v":"42"}          -- digits as a string, no float precision loss
//	{"t":"float","v":3.5}
//	{"t":"str","v":"hello"}
//	{"t":"time","v":"2025-01-02T15:04:05.000000-07:00"}
//	{"t":"ref","type":"post","key":"42","name":"Hello"}
//	{"t":"map","v":{"k":<envelope>,...}}
//	{"t":"list","v":[<envelope>,...]}
//
// encoding/json marshals map keys in sorted order, so the encoded form is
// deterministic and doubles as the canonical form for structural equality.

// envelope is the wire representation of one canonical value.
type envelope struct {
	T    string              `json:"t"`
	V    json.RawMessage     `json:"v,omitempty"`
	Type subject.Type        `json:"type,omitempty"`
	Key  string              `json:"key,omitempty"`
	Name string              `json:"name,omitempty"`
}

// Encode serializes a canonical value into its tagged JSON envelope.
// Values outside the canonical set are an error; callers should have
// passed the value through Normalize first.
func Encode(v any) ([]byte, error) {
	env, err := toEnvelope(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

// Decode parses a tagged JSON envelope back into its canonical value.
func Decode(data []byte) (any, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding value envelope: %w", err)
	}
	return fromEnvelope(env)
}

func toEnvelope(v any) (envelope, error) {
	switch val := v.(type) {
	case nil:
		return envelope{T: "null"}, nil
	case bool:
		raw, _ := json.Marshal(val)
		return envelope{T: "bool", V: raw}, nil
	case int64:
		raw, _ := json.Marshal(fmt.Sprintf("%d", val))
		return envelope{T: "int", V: raw}, nil
	case float64:
		raw, err := json.Marshal(val)
		if err != nil {
			return envelope{}, fmt.Errorf("encoding float: %w", err)
		}
		return envelope{T: "float", V: raw}, nil
	case string:
		raw, _ := json.Marshal(val)
		return envelope{T: "str", V: raw}, nil
	case time.Time:
		raw, _ := json.Marshal(val.Format(time.RFC3339Nano))
		return envelope{T: "time", V: raw}, nil
	case subject.Reference:
		return envelope{T: "ref", Type: val.Type, Key: val.Key, Name: val.Name}, nil
	case map[string]any:
		inner := make(map[string]json.RawMessage, len(val))
		for k, item := range val {
			env, err := toEnvelope(item)
			if err != nil {
				return envelope{}, err
			}
			raw, err := json.Marshal(env)
			if err != nil {
				return envelope{}, err
			}
			inner[k] = raw
		}
		raw, err := json.Marshal(inner)
		if err != nil {
			return envelope{}, err
		}
		return envelope{T: "map", V: raw}, nil
	case []any:
		inner := make([]json.RawMessage, len(val))
		for i, item := range val {
			env, err := toEnvelope(item)
			if err != nil {
				return envelope{}, err
			}
			raw, err := json.Marshal(env)
			if err != nil {
				return envelope{}, err
			}
			inner[i] = raw
		}
		raw, err := json.Marshal(inner)
		if err != nil {
			return envelope{}, err
		}
		return envelope{T: "list", V: raw}, nil
	default:
		return envelope{}, fmt.Errorf("value of type %T is not canonical", v)
	}
}

func fromEnvelope(env envelope) (any, error) {
	switch env.T {
	case "null":
		return nil, nil
	case "bool":
		var b bool
		if err := json.Unmarshal(env.V, &b); err != nil {
			return nil, fmt.Errorf("decoding bool: %w", err)
		}
		return b, nil
	case "int":
		var s string
		if err := json.Unmarshal(env.V, &s); err != nil {
			return nil, fmt.Errorf("decoding int: %w", err)
		}
		var i int64
		if _, err := fmt.Sscanf(s, "%d", &i); err != nil {
			return nil, fmt.Errorf("parsing int %q: %w", s, err)
		}
		return i, nil
	case "float":
		var f float64
		if err := json.Unmarshal(env.V, &f); err != nil {
			return nil, fmt.Errorf("decoding float: %w", err)
		}
		return f, nil
	case "str":
		var s string
		if err := json.Unmarshal(env.V, &s); err != nil {
			return nil, fmt.Errorf("decoding string: %w", err)
		}
		return s, nil
	case "time":
		var s string
		if err := json.Unmarshal(env.V, &s); err != nil {
			return nil, fmt.Errorf("decoding time: %w", err)
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, fmt.Errorf("parsing time %q: %w", s, err)
		}
		return t, nil
	case "ref":
		return subject.Reference{Type: env.Type, Key: env.Key, Name: env.Name}, nil
	case "map":
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(env.V, &inner); err != nil {
			return nil, fmt.Errorf("decoding map: %w", err)
		}
		out := make(map[string]any, len(inner))
		for k, raw := range inner {
			var childEnv envelope
			if err := json.Unmarshal(raw, &childEnv); err != nil {
				return nil, fmt.Errorf("decoding map entry %q: %w", k, err)
			}
			child, err := fromEnvelope(childEnv)
			if err != nil {
				return nil, err
			}
			out[k] = child
		}
		return out, nil
	case "list":
		var inner []json.RawMessage
		if err := json.Unmarshal(env.V, &inner); err != nil {
			return nil, fmt.Errorf("decoding list: %w", err)
		}
		out := make([]any, len(inner))
		for i, raw := range inner {
			var childEnv envelope
			if err := json.Unmarshal(raw, &childEnv); err != nil {
				return nil, fmt.Errorf("decoding list entry %d: %w", i, err)
			}
			child, err := fromEnvelope(childEnv)
			if err != nil {
				return nil, err
			}
			out[i] = child
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown value envelope tag %q", env.T)
	}
}
