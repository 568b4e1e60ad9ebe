package domain

import "time"

// TaskType tags a task with its operational category.
type TaskType string

const (
	TaskTypeAirportTransfer TaskType = "transfer_aeroporto"
	TaskTypeHotelTransfer   TaskType = "transfer_hotel"
	TaskTypeMedicalVisit    TaskType = "consulta_medica"
	TaskTypeCrewEmbark      TaskType = "embarque"
	TaskTypeCrewDisembark   TaskType = "desembarque"
)

// Task represents an operational demand attached to a port call.
// TransportLegs, TransportStatus and TransportCompletedAt are owned by the
// transport workflow and are only written through SaveTransport.
type Task struct {
	ID           string            `json:"id"`
	UserID       string            `json:"user_id"`
	Type         TaskType          `json:"type"`
	Title        string            `json:"title"`
	Description  string            `json:"description,omitempty"`
	Status       string            `json:"status"`
	Priority     int               `json:"priority"`
	VesselName   string            `json:"vessel_name,omitempty"`
	PortCallID   string            `json:"port_call_id,omitempty"`
	PickupAt     *time.Time        `json:"pickup_at,omitempty"`
	ReturnAt     *time.Time        `json:"return_at,omitempty"`
	PickupLocal  string            `json:"pickup_local,omitempty"`
	DropoffLocal string            `json:"dropoff_local,omitempty"`
	Hotel        string            `json:"hotel,omitempty"`
	DueDate      *time.Time        `json:"due_date,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`

	TransportLegs        []Leg          `json:"transport_legs,omitempty"`
	TransportStatus      TransportState `json:"transport_status,omitempty"`
	TransportCompletedAt *time.Time     `json:"transporte_concluido_em,omitempty"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t *Task) IsCompleted() bool {
	return t != nil && t.Status == "completed"
}

// HasTransport reports whether the task type produces transport legs.
func (t *Task) HasTransport() bool {
	if t == nil {
		return false
	}
	_, ok := legPlans[t.Type]
	return ok
}
