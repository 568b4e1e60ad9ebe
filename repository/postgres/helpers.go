package postgres

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/fastygo/shipops/domain"
)

func marshalMap(data map[string]string) []byte {
	if len(data) == 0 {
		return nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	return b
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

func nullTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// marshalLegs encodes a leg list for the transport_legs jsonb column. A nil
// list is stored as SQL NULL, meaning "not materialized yet".
func marshalLegs(legs []domain.Leg) ([]byte, error) {
	if legs == nil {
		return nil, nil
	}
	if len(legs) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(legs)
}

func unmarshalLegs(data []byte) ([]domain.Leg, error) {
	if isNullJSON(data) {
		return nil, nil
	}
	legs := []domain.Leg{}
	if err := decodeJSON(data, &legs); err != nil {
		return nil, err
	}
	return legs, nil
}

// decodeJSON leaves out untouched when the column is NULL or empty.
func decodeJSON(data []byte, out any) error {
	if isNullJSON(data) {
		return nil
	}
	return json.Unmarshal(data, out)
}

func isNullJSON(data []byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) == 0 || bytes.Equal(data, []byte("null"))
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 100
	}
	return limit
}
