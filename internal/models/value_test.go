package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResultValueJSONRoundTrip(t *testing.T) {
	cases := []struct {
		name     string
		value    ResultValue
		wantJSON string
	}{
		{name: "int", value: IntValue(42), wantJSON: "42"},
		{name: "fractional float", value: FloatValue(0.25), wantJSON: "0.25"},
		{name: "image", value: ImageValue("aGVsbG8="), wantJSON: `"aGVsbG8="`},
		{name: "empty image", value: ImageValue(""), wantJSON: `""`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(tc.value)
			require.NoError(t, err)
			require.JSONEq(t, tc.wantJSON, string(data))

			var restored ResultValue
			require.NoError(t, json.Unmarshal(data, &restored))
			require.Equal(t, tc.value, restored)
		})
	}
}

func TestIntegralFloatDecodesAsInt(t *testing.T) {
	// JSON has a single number type: FloatValue(10) marshals as "10" and
	// comes back as an int. CoerceTo recovers the declared kind.
	data, err := json.Marshal(FloatValue(10))
	require.NoError(t, err)
	require.Equal(t, "10", string(data))

	var restored ResultValue
	require.NoError(t, json.Unmarshal(data, &restored))
	require.Equal(t, KindInt, restored.Kind)
	require.False(t, restored.Matches(ValueTypeFloat))

	widened, ok := restored.CoerceTo(ValueTypeFloat)
	require.True(t, ok)
	require.Equal(t, KindFloat, widened.Kind)
	require.Equal(t, 10.0, widened.FloatVal)
	require.True(t, widened.Matches(ValueTypeFloat))
}

func TestCoerceTo(t *testing.T) {
	cases := []struct {
		name     string
		value    ResultValue
		declared ValueType
		want     ResultValue
		ok       bool
	}{
		{name: "matching int", value: IntValue(3), declared: ValueTypeInt, want: IntValue(3), ok: true},
		{name: "matching float", value: FloatValue(3.5), declared: ValueTypeFloat, want: FloatValue(3.5), ok: true},
		{name: "matching image", value: ImageValue("x"), declared: ValueTypeImage, want: ImageValue("x"), ok: true},
		{name: "int widens to float", value: IntValue(7), declared: ValueTypeFloat, want: FloatValue(7), ok: true},
		{name: "float never narrows to int", value: FloatValue(7), declared: ValueTypeInt, ok: false},
		{name: "image is not numeric", value: ImageValue("x"), declared: ValueTypeFloat, ok: false},
		{name: "number is not an image", value: IntValue(1), declared: ValueTypeImage, ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := tc.value.CoerceTo(tc.declared)
			require.Equal(t, tc.ok, ok)
			if tc.ok {
				require.Equal(t, tc.want, got)
			}
		})
	}
}
