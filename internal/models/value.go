package models

import (
	"encoding/json"
	"fmt"
)

// ValueKind tags the concrete variant held by a ResultValue.
type ValueKind int

// ResultValue variants.
const (
	KindInt ValueKind = iota
	KindFloat
	KindImage
)

// ResultValue is the closed union of values a metric can produce: an integer,
// a float, or a Base64-encoded image. An image value may hold an empty string,
// meaning the view could not be produced for this input.
type ResultValue struct {
	Kind     ValueKind
	IntVal   int64
	FloatVal float64
	ImageB64 string
}

// IntValue wraps an integer measure.
func IntValue(v int64) ResultValue {
	return ResultValue{Kind: KindInt, IntVal: v}
}

// FloatValue wraps a floating-point measure.
func FloatValue(v float64) ResultValue {
	return ResultValue{Kind: KindFloat, FloatVal: v}
}

// ImageValue wraps a Base64-encoded image payload. Empty is permitted and
// marks a best-effort view that could not be produced.
func ImageValue(b64 string) ResultValue {
	return ResultValue{Kind: KindImage, ImageB64: b64}
}

// Number returns the numeric value for classification. Image values are not
// classifiable and report ok=false.
func (v ResultValue) Number() (float64, bool) {
	switch v.Kind {
	case KindInt:
		return float64(v.IntVal), true
	case KindFloat:
		return v.FloatVal, true
	default:
		return 0, false
	}
}

// Matches reports whether the value's kind satisfies the declared type.
func (v ResultValue) Matches(t ValueType) bool {
	switch t {
	case ValueTypeInt:
		return v.Kind == KindInt
	case ValueTypeFloat:
		return v.Kind == KindFloat
	case ValueTypeImage:
		return v.Kind == KindImage
	default:
		return false
	}
}

// CoerceTo aligns a decoded value with a declared result type. JSON erases
// the int/float distinction for integral numbers, so a float restored from a
// cache entry or log row may arrive as KindInt and needs widening before the
// shape check. Any other kind mismatch reports ok=false.
func (v ResultValue) CoerceTo(t ValueType) (ResultValue, bool) {
	if v.Matches(t) {
		return v, true
	}
	if t == ValueTypeFloat && v.Kind == KindInt {
		return FloatValue(float64(v.IntVal)), true
	}
	return v, false
}

// MarshalJSON encodes integers and floats as JSON numbers and images as
// Base64 strings, matching the wire format of result events.
func (v ResultValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindInt:
		return json.Marshal(v.IntVal)
	case KindFloat:
		return json.Marshal(v.FloatVal)
	case KindImage:
		return json.Marshal(v.ImageB64)
	default:
		return nil, fmt.Errorf("unknown result value kind %d", v.Kind)
	}
}

// UnmarshalJSON restores a value written by MarshalJSON. Numbers without a
// fractional part decode as integers.
func (v *ResultValue) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*v = ImageValue(str)
		return nil
	}

	var i int64
	if err := json.Unmarshal(data, &i); err == nil {
		*v = IntValue(i)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("result value must be a number or a string: %w", err)
	}
	*v = FloatValue(f)
	return nil
}
