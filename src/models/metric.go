package models

import (
	"bytes"
	"strconv"
)

// -----------------------------------------------------------------------------
// Flexible numeric wire types.
//
// The backend emits numeric fields inconsistently: sometimes JSON numbers,
// sometimes numeric strings (Decimal columns serialized by the ORM), sometimes
// null. Both the REST history path and the WebSocket push path decode through
// these types, so consumers always see the same shape regardless of source.
// -----------------------------------------------------------------------------

// MFloat is a required numeric field. A value that cannot be parsed decodes
// to 0 rather than failing the whole frame.
type MFloat float64

// -----------------------------------------------------------------------------

func (f *MFloat) UnmarshalJSON(data []byte) error {
	*f = 0

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	// Numeric string: strip the quotes and parse the content.
	if data[0] == '"' && data[len(data)-1] == '"' && len(data) >= 2 {
		data = data[1 : len(data)-1]
		if len(data) == 0 {
			return nil
		}
	}

	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		// Documented fallback for required fields.
		return nil
	}

	*f = MFloat(v)
	return nil
}

// -----------------------------------------------------------------------------

func (f MFloat) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(f), 'g', -1, 64)), nil
}

// -----------------------------------------------------------------------------

func (f MFloat) Float64() float64 {
	return float64(f)
}

// -----------------------------------------------------------------------------
// MOptFloat is an optional numeric field (loss, rolling sharpe). null, absence
// and unparseable values all decode to the explicit no-value marker, never to
// NaN or zero.
// -----------------------------------------------------------------------------

type MOptFloat struct {
	Value float64
	Valid bool
}

// -----------------------------------------------------------------------------

func (f *MOptFloat) UnmarshalJSON(data []byte) error {
	f.Value = 0
	f.Valid = false

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' && data[len(data)-1] == '"' && len(data) >= 2 {
		data = data[1 : len(data)-1]
		if len(data) == 0 {
			return nil
		}
	}

	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return nil
	}

	f.Value = v
	f.Valid = true
	return nil
}

// -----------------------------------------------------------------------------

func (f MOptFloat) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(f.Value, 'g', -1, 64)), nil
}

// -----------------------------------------------------------------------------

// Float64 returns the value and whether it is present.
func (f MOptFloat) Float64() (float64, bool) {
	return f.Value, f.Valid
}

// -----------------------------------------------------------------------------

// OptFloat builds a present MOptFloat.
func OptFloat(v float64) MOptFloat {
	return MOptFloat{Value: v, Valid: true}
}
