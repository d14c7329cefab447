package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/scheduling"
)

type BookAppointmentRequest struct {
	PatientID          string  `json:"patient_id"`
	PhysicianID        string  `json:"physician_id"`
	Start              string  `json:"start"` // RFC 3339
	DurationMinutes    int     `json:"duration_minutes"`
	ReasonForVisit     string  `json:"reason_for_visit,omitempty"`
	Notes              string  `json:"notes,omitempty"`
	RoomNumber         string  `json:"room_number,omitempty"`
	ClinicalDocumentID *string `json:"clinical_document_id,omitempty"`
}

type UpdateAppointmentRequest struct {
	ReasonForVisit  *string `json:"reason_for_visit,omitempty"`
	Notes           *string `json:"notes,omitempty"`
	DurationMinutes *int    `json:"duration_minutes,omitempty"`
	NewStart        *string `json:"new_start,omitempty"` // RFC 3339
	RoomNumber      *string `json:"room_number,omitempty"`
}

type RescheduleAppointmentRequest struct {
	PhysicianID string `json:"physician_id"`
	NewStart    string `json:"new_start"` // RFC 3339
	NewEnd      string `json:"new_end"`   // RFC 3339
}

type CancelAppointmentRequest struct {
	PhysicianID string `json:"physician_id"`
	Reason      string `json:"reason"`
}

type CompleteAppointmentRequest struct {
	PhysicianID        string  `json:"physician_id"`
	ClinicalDocumentID *string `json:"clinical_document_id,omitempty"`
}

type AvailabilitySearchRequest struct {
	PhysicianIDs    []string `json:"physician_ids"`
	WindowStart     string   `json:"window_start"` // RFC 3339
	WindowEnd       string   `json:"window_end"`   // RFC 3339
	DurationMinutes int      `json:"duration_minutes"`
}

type AppointmentResponse struct {
	ID                 uuid.UUID  `json:"id"`
	PatientID          uuid.UUID  `json:"patient_id"`
	PhysicianID        uuid.UUID  `json:"physician_id"`
	Start              time.Time  `json:"start"`
	End                time.Time  `json:"end"`
	Status             string     `json:"status"`
	ReasonForVisit     string     `json:"reason_for_visit,omitempty"`
	Notes              string     `json:"notes,omitempty"`
	RoomNumber         string     `json:"room_number,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	ClinicalDocumentID *uuid.UUID `json:"clinical_document_id,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	ModifiedAt         time.Time  `json:"modified_at"`
}

type ConflictResponse struct {
	Type                     string     `json:"type"`
	Description              string     `json:"description"`
	ConflictingAppointmentID *uuid.UUID `json:"conflicting_appointment_id,omitempty"`
}

type SlotResponse struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Reason    string    `json:"reason,omitempty"`
	IsOptimal bool      `json:"is_optimal"`
}

type OperationResponse struct {
	Success      bool                 `json:"success"`
	Message      string               `json:"message"`
	Conflicts    []ConflictResponse   `json:"conflicts,omitempty"`
	Alternatives []SlotResponse       `json:"alternatives,omitempty"`
	Appointment  *AppointmentResponse `json:"appointment,omitempty"`
}

type PhysicianAvailabilityResponse struct {
	PhysicianID   uuid.UUID    `json:"physician_id"`
	Slot          SlotResponse `json:"slot"`
	MatchesWindow bool         `json:"matches_window"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAppointmentResponse(a scheduling.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:                 a.ID,
		PatientID:          a.PatientID,
		PhysicianID:        a.PhysicianID,
		Start:              a.Start,
		End:                a.End,
		Status:             string(a.Status),
		ReasonForVisit:     a.ReasonForVisit,
		Notes:              a.Notes,
		RoomNumber:         a.RoomNumber,
		CancellationReason: a.CancellationReason,
		ClinicalDocumentID: a.ClinicalDocumentID,
		CreatedAt:          a.CreatedAt,
		ModifiedAt:         a.ModifiedAt,
	}
}

func toAppointmentResponses(appts []scheduling.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(appts))
	for _, a := range appts {
		out = append(out, toAppointmentResponse(a))
	}
	return out
}

func toSlotResponse(s scheduling.Slot) SlotResponse {
	return SlotResponse{Start: s.Start, End: s.End, Reason: s.Reason, IsOptimal: s.IsOptimal}
}

func toOperationResponse(res scheduling.OperationResult) OperationResponse {
	resp := OperationResponse{
		Success: res.Success,
		Message: res.Message,
	}
	for _, c := range res.Conflicts {
		cr := ConflictResponse{Type: string(c.Type), Description: c.Description}
		if c.ConflictingAppointment != nil {
			id := c.ConflictingAppointment.ID
			cr.ConflictingAppointmentID = &id
		}
		resp.Conflicts = append(resp.Conflicts, cr)
	}
	for _, s := range res.Alternatives {
		resp.Alternatives = append(resp.Alternatives, toSlotResponse(s))
	}
	if res.Appointment != nil {
		appt := toAppointmentResponse(*res.Appointment)
		resp.Appointment = &appt
	}
	return resp
}
