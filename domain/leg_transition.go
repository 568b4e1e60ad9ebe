package domain

import "time"

// LegAction names an audited leg operation.
type LegAction string

const (
	ActionConfirmLeg LegAction = "confirm_leg"
	ActionUndoLeg    LegAction = "undo_leg"
	ActionEditLeg    LegAction = "edit_leg"
)

// LegOperation is one of ConfirmLeg, UndoLeg or EditLeg.
type LegOperation interface {
	Action() LegAction
	legOperation()
}

// ConfirmLeg marks a leg as done. An empty Status means LegCompleted.
type ConfirmLeg struct {
	Status          LegStatus
	DurationMinutes *int
	Group           *string
}

// UndoLeg reverts a leg to pending and drops its completion data.
type UndoLeg struct{}

// EditLeg patches scheduling fields; unset fields are left untouched.
type EditLeg struct {
	PickupAt     Optional[time.Time]
	PickupLocal  Optional[string]
	DropoffLocal Optional[string]
	Label        Optional[string]
}

func (ConfirmLeg) Action() LegAction { return ActionConfirmLeg }
func (UndoLeg) Action() LegAction    { return ActionUndoLeg }
func (EditLeg) Action() LegAction    { return ActionEditLeg }

func (ConfirmLeg) legOperation() {}
func (UndoLeg) legOperation()    {}
func (EditLeg) legOperation()    {}

// LegTransition is the outcome of applying one operation to a leg list.
type LegTransition struct {
	Action LegAction
	Legs   []Leg
	Old    Leg
	New    Leg
}

// ApplyLegOperation applies op to the leg identified by legID and returns the
// new list with the before and after images of that leg. Other legs are kept
// as they are, in order. On error the input slice is returned untouched.
func ApplyLegOperation(legs []Leg, legID string, op LegOperation, now time.Time) (LegTransition, error) {
	if legID == "" {
		return LegTransition{Legs: legs}, ErrMissingLegID
	}
	if op == nil {
		return LegTransition{Legs: legs}, ErrInvalidOperation
	}

	idx := -1
	for i := range legs {
		if legs[i].ID == legID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return LegTransition{Action: op.Action(), Legs: legs}, ErrLegNotFound
	}

	old := legs[idx].Clone()
	updated := legs[idx].Clone()

	switch o := op.(type) {
	case ConfirmLeg:
		if err := applyConfirm(&updated, o, now); err != nil {
			return LegTransition{Action: op.Action(), Legs: legs}, err
		}
	case UndoLeg:
		applyUndo(&updated)
	case EditLeg:
		applyEdit(&updated, o)
	default:
		return LegTransition{Legs: legs}, ErrInvalidOperation
	}

	next := make([]Leg, len(legs))
	copy(next, legs)
	next[idx] = updated

	return LegTransition{
		Action: op.Action(),
		Legs:   next,
		Old:    old,
		New:    updated.Clone(),
	}, nil
}

func applyConfirm(leg *Leg, op ConfirmLeg, now time.Time) error {
	status := op.Status
	if status == "" {
		status = LegCompleted
	}

	switch status {
	case LegCompleted:
		completedAt := now
		leg.Status = LegCompleted
		leg.CompletedAt = &completedAt
		if op.DurationMinutes != nil {
			minutes := *op.DurationMinutes
			leg.DurationMinutes = &minutes
		}
	case LegPending:
		applyUndo(leg)
	default:
		return ErrInvalidLegStatus
	}

	if op.Group != nil {
		leg.Group = cloneString(op.Group)
	}
	return nil
}

func applyUndo(leg *Leg) {
	leg.Status = LegPending
	leg.CompletedAt = nil
	leg.DurationMinutes = nil
}

func applyEdit(leg *Leg, op EditLeg) {
	op.PickupAt.applyTo(&leg.PickupAt)
	op.PickupLocal.applyTo(&leg.PickupLocal)
	op.DropoffLocal.applyTo(&leg.DropoffLocal)
	if op.Label.Set {
		leg.Label = ""
		if op.Label.Value != nil {
			leg.Label = *op.Label.Value
		}
	}
}
