package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// CreditID is the server-assigned identifier. The client treats it as
// opaque; on the wire it may be a JSON number or a JSON string.
type CreditID string

var ErrInvalidID = errors.New("invalid credit id")

// NewCreditID builds an id from a numeric database key.
func NewCreditID(n int64) CreditID {
	return CreditID(strconv.FormatInt(n, 10))
}

// ParseCreditID validates an id taken from a URL or form value.
func ParseCreditID(s string) (CreditID, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "/?#") {
		return "", ErrInvalidID
	}
	return CreditID(s), nil
}

func (id CreditID) String() string { return string(id) }

// IsZero reports whether no id is tracked.
func (id CreditID) IsZero() bool { return id == "" }

// Int64 returns the numeric form of the id, if it has one.
func (id CreditID) Int64() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	return n, err == nil
}

// MarshalJSON writes numeric ids as numbers so the backend gets back what it sent.
func (id CreditID) MarshalJSON() ([]byte, error) {
	if _, ok := id.Int64(); ok {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id *CreditID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = CreditID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return ErrInvalidID
	}
	*id = CreditID(n.String())
	return nil
}
