package domain

import (
	"fmt"
	"time"
)

type legPlan struct {
	label   string
	at      func(t *Task) *time.Time
	from    func(t *Task) string
	to      func(t *Task) string
	include func(t *Task) bool
}

var legPlans = map[TaskType][]legPlan{
	TaskTypeAirportTransfer: {
		{label: "Pickup at airport", at: pickupAt, from: pickupLocal, to: firstOf(dropoffLocal, hotel)},
	},
	TaskTypeHotelTransfer: {
		{label: "Drop-off at hotel", at: pickupAt, from: pickupLocal, to: firstOf(hotel, dropoffLocal)},
	},
	TaskTypeMedicalVisit: {
		{label: "Transport to medical appointment", at: pickupAt, from: pickupLocal, to: dropoffLocal},
		{label: "Return from medical appointment", at: returnAt, from: dropoffLocal, to: pickupLocal},
	},
	TaskTypeCrewEmbark: {
		{label: "Pickup at airport", at: pickupAt, from: pickupLocal, to: hotel, include: hasHotel},
		{label: "Transfer to vessel", at: secondLegAt, from: firstOf(hotel, pickupLocal), to: dropoffLocal},
	},
	TaskTypeCrewDisembark: {
		{label: "Pickup at vessel", at: pickupAt, from: pickupLocal, to: hotel, include: hasHotel},
		{label: "Transfer to airport", at: secondLegAt, from: firstOf(hotel, pickupLocal), to: dropoffLocal},
	},
}

// DeriveLegs builds the transport legs implied by a task's type and scheduling
// fields. It never looks at t.TransportLegs. Ids are "<type>-<ordinal>", so the
// same task fields always yield the same legs. Unknown types yield nil.
func DeriveLegs(t *Task) []Leg {
	if t == nil {
		return nil
	}
	plans, ok := legPlans[t.Type]
	if !ok {
		return nil
	}

	legs := make([]Leg, 0, len(plans))
	for _, plan := range plans {
		if plan.include != nil && !plan.include(t) {
			continue
		}
		legs = append(legs, Leg{
			ID:           fmt.Sprintf("%s-%d", t.Type, len(legs)+1),
			Label:        plan.label,
			Status:       LegPending,
			PickupAt:     cloneTime(plan.at(t)),
			PickupLocal:  stringPtr(plan.from(t)),
			DropoffLocal: stringPtr(plan.to(t)),
		})
	}
	return legs
}

// LegSource tells whether a leg list came from storage or was derived on read.
type LegSource string

const (
	LegsMaterialized LegSource = "materialized"
	LegsDerived      LegSource = "derived"
)

// LegSet is a leg list together with its provenance.
type LegSet struct {
	Source LegSource `json:"source"`
	Legs   []Leg     `json:"legs"`
}

// ResolveLegs prefers the list stored on the task and only derives when the
// task has never been materialized, so user edits to stored legs survive.
func ResolveLegs(t *Task) LegSet {
	if t != nil && t.TransportLegs != nil {
		return LegSet{Source: LegsMaterialized, Legs: CloneLegs(t.TransportLegs)}
	}
	return LegSet{Source: LegsDerived, Legs: DeriveLegs(t)}
}

func pickupAt(t *Task) *time.Time { return t.PickupAt }
func returnAt(t *Task) *time.Time { return t.ReturnAt }

// secondLegAt falls back to the pickup time when the task collapses to a single direct leg.
func secondLegAt(t *Task) *time.Time {
	if !hasHotel(t) && t.ReturnAt == nil {
		return t.PickupAt
	}
	return t.ReturnAt
}

func pickupLocal(t *Task) string  { return t.PickupLocal }
func dropoffLocal(t *Task) string { return t.DropoffLocal }
func hotel(t *Task) string        { return t.Hotel }

func hasHotel(t *Task) bool { return stringPtr(t.Hotel) != nil }

func firstOf(fields ...func(t *Task) string) func(t *Task) string {
	return func(t *Task) string {
		for _, field := range fields {
			if v := stringPtr(field(t)); v != nil {
				return *v
			}
		}
		return ""
	}
}
