package dto

import "encoding/json"

// NullableString distinguishes an absent JSON field from an explicit null.
// Present+nil clears the target value; absent leaves it untouched.
type NullableString struct {
	Present bool
	Value   *string
}

// UnmarshalJSON is only invoked for fields present in the payload.
func (n *NullableString) UnmarshalJSON(data []byte) error {
	n.Present = true
	return json.Unmarshal(data, &n.Value)
}

// MarshalJSON round-trips the inner value.
func (n NullableString) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Value)
}

// NullableStringList is NullableString for a list of ids.
type NullableStringList struct {
	Present bool
	Value   []string
}

// UnmarshalJSON is only invoked for fields present in the payload.
func (n *NullableStringList) UnmarshalJSON(data []byte) error {
	n.Present = true
	return json.Unmarshal(data, &n.Value)
}

// MarshalJSON round-trips the inner value.
func (n NullableStringList) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Value)
}
