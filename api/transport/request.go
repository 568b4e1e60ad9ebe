package transport

import (
	"encoding/json"
	"time"

	"github.com/fastygo/shipops/domain"
)

type TaskRequest struct {
	ID           string            `json:"id"`
	Type         string            `json:"type"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Status       string            `json:"status"`
	Priority     int               `json:"priority"`
	VesselName   string            `json:"vessel_name"`
	PortCallID   string            `json:"port_call_id"`
	PickupAt     string            `json:"pickup_at"`
	ReturnAt     string            `json:"return_at"`
	PickupLocal  string            `json:"pickup_local"`
	DropoffLocal string            `json:"dropoff_local"`
	Hotel        string            `json:"hotel"`
	DueDate      string            `json:"due_date"`
	Metadata     map[string]string `json:"metadata"`
}

// ConfirmLegRequest accepts duracao_minutos as a number or a numeric string;
// anything else is ignored.
type ConfirmLegRequest struct {
	Status          string          `json:"status"`
	DurationMinutes json.RawMessage `json:"duracao_minutos"`
	Group           *string         `json:"grupo"`
}

// EditLegRequest distinguishes omitted fields from explicit nulls.
type EditLegRequest struct {
	PickupAt     domain.Optional[time.Time] `json:"pickup_at"`
	PickupLocal  domain.Optional[string]    `json:"pickup_local"`
	DropoffLocal domain.Optional[string]    `json:"dropoff_local"`
	Label        domain.Optional[string]    `json:"label"`
}

func (r ConfirmLegRequest) Operation() domain.ConfirmLeg {
	return domain.ConfirmLeg{
		Status:          domain.LegStatus(r.Status),
		DurationMinutes: domain.CoerceMinutes(r.DurationMinutes),
		Group:           r.Group,
	}
}

func (r EditLegRequest) Operation() domain.EditLeg {
	return domain.EditLeg{
		PickupAt:     r.PickupAt,
		PickupLocal:  r.PickupLocal,
		DropoffLocal: r.DropoffLocal,
		Label:        r.Label,
	}
}
