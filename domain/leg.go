package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// LegStatus is the lifecycle state of a single transport leg.
type LegStatus string

const (
	LegPending   LegStatus = "pendente"
	LegCompleted LegStatus = "concluido"
)

// TransportState is the aggregate transport status stored on the task.
type TransportState string

const (
	TransportPending   TransportState = "pendente"
	TransportCompleted TransportState = "concluido"
)

// Leg is one discrete transport run derived from a task.
// CompletedAt is set iff Status is LegCompleted; DurationMinutes is only
// meaningful on completed legs.
type Leg struct {
	ID              string     `json:"id"`
	Label           string     `json:"label"`
	Status          LegStatus  `json:"status"`
	PickupAt        *time.Time `json:"pickup_at"`
	PickupLocal     *string    `json:"pickup_local"`
	DropoffLocal    *string    `json:"dropoff_local"`
	Group           *string    `json:"grupo"`
	DurationMinutes *int       `json:"duracao_minutos"`
	CompletedAt     *time.Time `json:"concluido_em"`
}

func (l Leg) IsCompleted() bool {
	return l.Status == LegCompleted
}

// Clone returns a copy that shares no pointers with l.
func (l Leg) Clone() Leg {
	out := l
	out.PickupAt = cloneTime(l.PickupAt)
	out.PickupLocal = cloneString(l.PickupLocal)
	out.DropoffLocal = cloneString(l.DropoffLocal)
	out.Group = cloneString(l.Group)
	out.CompletedAt = cloneTime(l.CompletedAt)
	if l.DurationMinutes != nil {
		v := *l.DurationMinutes
		out.DurationMinutes = &v
	}
	return out
}

// CloneLegs copies a leg list element by element.
func CloneLegs(legs []Leg) []Leg {
	if legs == nil {
		return nil
	}
	out := make([]Leg, len(legs))
	for i, leg := range legs {
		out[i] = leg.Clone()
	}
	return out
}

// Optional distinguishes an omitted value from an explicit null.
// The zero value means "omitted".
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some returns a present value.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// Null returns an explicit null.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

func (o Optional[T]) applyTo(dst **T) {
	if !o.Set {
		return
	}
	if o.Value == nil {
		*dst = nil
		return
	}
	v := *o.Value
	*dst = &v
}

// CoerceMinutes reads a duration in minutes from loosely typed input.
// Anything that is not a finite, non-negative number yields nil.
func CoerceMinutes(raw json.RawMessage) *int {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	var text string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil
		}
	} else {
		text = string(raw)
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) || value < 0 || value > math.MaxInt32 {
		return nil
	}
	minutes := int(math.Round(value))
	return &minutes
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func stringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
