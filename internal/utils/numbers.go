package utils

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ParseLooseFloat parses numeric text from loosely formatted feeds.
// Thousands separators, surrounding whitespace and a trailing percent sign are
// tolerated. Anything that does not yield a finite number returns 0.
func ParseLooseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// LooseFloat decodes from a JSON number or a JSON string holding a number.
// Malformed, missing or null values decode to 0 without error.
type LooseFloat float64

// UnmarshalJSON implements json.Unmarshaler
func (f *LooseFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*f = 0
			return nil
		}
		*f = LooseFloat(ParseLooseFloat(s))
		return nil
	}
	*f = LooseFloat(ParseLooseFloat(string(data)))
	return nil
}

// Float64 returns the value as float64
func (f LooseFloat) Float64() float64 {
	return float64(f)
}
