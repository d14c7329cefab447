package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/metrics"
	"github.com/hackgods/clinic-scheduling/internal/scheduling"
)

func bookAppointmentHandler(svc *scheduling.Service, m *metrics.Collector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		physicianID, err := uuid.Parse(req.PhysicianID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_physician_id", "physician_id must be a valid UUID")
			return
		}
		start, err := time.Parse(time.RFC3339, req.Start)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start", "start must be RFC 3339")
			return
		}

		in := scheduling.BookingInput{
			PatientID:       patientID,
			PhysicianID:     physicianID,
			Start:           start,
			DurationMinutes: req.DurationMinutes,
			ReasonForVisit:  req.ReasonForVisit,
			Notes:           req.Notes,
			RoomNumber:      req.RoomNumber,
		}
		if req.ClinicalDocumentID != nil {
			docID, err := uuid.Parse(*req.ClinicalDocumentID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_clinical_document_id", "clinical_document_id must be a valid UUID")
				return
			}
			in.ClinicalDocumentID = &docID
		}

		res, err := svc.ScheduleAppointment(r.Context(), in)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		recordBookingOutcome(m, res)
		if !res.Success {
			writeJSON(w, http.StatusConflict, toOperationResponse(res))
			return
		}
		writeJSON(w, http.StatusCreated, toOperationResponse(res))
	}
}

func updateAppointmentHandler(svc *scheduling.Service, m *metrics.Collector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id", "invalid_appointment_id")
		if !ok {
			return
		}

		var req UpdateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		upd := scheduling.AppointmentUpdate{
			ReasonForVisit:  req.ReasonForVisit,
			Notes:           req.Notes,
			DurationMinutes: req.DurationMinutes,
			RoomNumber:      req.RoomNumber,
		}
		if req.NewStart != nil {
			start, err := time.Parse(time.RFC3339, *req.NewStart)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_new_start", "new_start must be RFC 3339")
				return
			}
			upd.NewStart = &start
		}

		res, err := svc.UpdateAppointment(r.Context(), id, upd)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		if !res.Success {
			recordConflicts(m, res)
			writeJSON(w, http.StatusConflict, toOperationResponse(res))
			return
		}
		writeJSON(w, http.StatusOK, toOperationResponse(res))
	}
}

func rescheduleAppointmentHandler(svc *scheduling.Service, m *metrics.Collector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id", "invalid_appointment_id")
		if !ok {
			return
		}

		var req RescheduleAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		physicianID, err := uuid.Parse(req.PhysicianID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_physician_id", "physician_id must be a valid UUID")
			return
		}
		newStart, err := time.Parse(time.RFC3339, req.NewStart)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_new_start", "new_start must be RFC 3339")
			return
		}
		newEnd, err := time.Parse(time.RFC3339, req.NewEnd)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_new_end", "new_end must be RFC 3339")
			return
		}

		res, err := svc.RescheduleAppointment(r.Context(), physicianID, id, newStart, newEnd)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		if !res.Success {
			recordConflicts(m, res)
			writeJSON(w, http.StatusConflict, toOperationResponse(res))
			return
		}
		writeJSON(w, http.StatusOK, toOperationResponse(res))
	}
}

func cancelAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id", "invalid_appointment_id")
		if !ok {
			return
		}

		var req CancelAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		physicianID, err := uuid.Parse(req.PhysicianID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_physician_id", "physician_id must be a valid UUID")
			return
		}

		if err := svc.CancelAppointment(r.Context(), physicianID, id, req.Reason); err != nil {
			handleServiceError(w, err)
			return
		}

		appt, err := svc.FindAppointmentByID(id)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func completeAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id", "invalid_appointment_id")
		if !ok {
			return
		}

		var req CompleteAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		physicianID, err := uuid.Parse(req.PhysicianID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_physician_id", "physician_id must be a valid UUID")
			return
		}

		var docID *uuid.UUID
		if req.ClinicalDocumentID != nil {
			parsed, err := uuid.Parse(*req.ClinicalDocumentID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_clinical_document_id", "clinical_document_id must be a valid UUID")
				return
			}
			docID = &parsed
		}

		if err := svc.CompleteAppointment(r.Context(), physicianID, id, docID); err != nil {
			handleServiceError(w, err)
			return
		}

		appt, err := svc.FindAppointmentByID(id)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func deleteAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id", "invalid_appointment_id")
		if !ok {
			return
		}

		physicianID, err := uuid.Parse(r.URL.Query().Get("physician_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_physician_id", "physician_id query parameter must be a valid UUID")
			return
		}

		if err := svc.DeleteAppointment(r.Context(), physicianID, id); err != nil {
			handleServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func getAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id", "invalid_appointment_id")
		if !ok {
			return
		}

		appt, err := svc.FindAppointmentByID(id)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func listAppointmentsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if raw := r.URL.Query().Get("patient_id"); raw != "" {
			patientID, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
				return
			}
			writeJSON(w, http.StatusOK, toAppointmentResponses(svc.GetPatientAppointments(patientID)))
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponses(svc.GetAllAppointments()))
	}
}

func physicianScheduleHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		physicianID, ok := pathUUID(w, r, "id", "invalid_physician_id")
		if !ok {
			return
		}

		q := r.URL.Query()
		if date := q.Get("date"); date != "" {
			day, err := time.Parse("2006-01-02", date)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
				return
			}
			writeJSON(w, http.StatusOK, toAppointmentResponses(svc.GetDailySchedule(physicianID, day)))
			return
		}

		start, err := time.Parse(time.RFC3339, q.Get("start"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start", "start must be RFC 3339 (or pass date=YYYY-MM-DD)")
			return
		}
		end, err := time.Parse(time.RFC3339, q.Get("end"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_end", "end must be RFC 3339")
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponses(svc.GetScheduleInRange(physicianID, start, end)))
	}
}

func nextAvailableSlotHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		physicianID, ok := pathUUID(w, r, "id", "invalid_physician_id")
		if !ok {
			return
		}

		q := r.URL.Query()
		minutes, err := parsePositiveInt(q.Get("duration_minutes"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_duration", "duration_minutes must be a positive integer")
			return
		}

		from := time.Now()
		if raw := q.Get("from"); raw != "" {
			from, err = time.Parse(time.RFC3339, raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_from", "from must be RFC 3339")
				return
			}
		}

		slot := svc.FindNextAvailableSlot(physicianID, time.Duration(minutes)*time.Minute, from)
		if slot == nil {
			writeError(w, http.StatusNotFound, "no_slot_available", "no free slot within the search horizon")
			return
		}
		writeJSON(w, http.StatusOK, toSlotResponse(*slot))
	}
}

func availabilitySearchHandler(agg *scheduling.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AvailabilitySearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		physicianIDs := make([]uuid.UUID, 0, len(req.PhysicianIDs))
		for _, raw := range req.PhysicianIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_physician_id", "physician_ids must be valid UUIDs")
				return
			}
			physicianIDs = append(physicianIDs, id)
		}

		windowStart, err := time.Parse(time.RFC3339, req.WindowStart)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_window_start", "window_start must be RFC 3339")
			return
		}
		windowEnd, err := time.Parse(time.RFC3339, req.WindowEnd)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_window_end", "window_end must be RFC 3339")
			return
		}

		results, err := agg.FindAvailability(r.Context(), scheduling.AvailabilityQuery{
			PhysicianIDs: physicianIDs,
			WindowStart:  windowStart,
			WindowEnd:    windowEnd,
			Duration:     time.Duration(req.DurationMinutes) * time.Minute,
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}

		out := make([]PhysicianAvailabilityResponse, 0, len(results))
		for _, res := range results {
			out = append(out, PhysicianAvailabilityResponse{
				PhysicianID:   res.PhysicianID,
				Slot:          toSlotResponse(res.Slot),
				MatchesWindow: res.MatchesWindow,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleServiceError(w http.ResponseWriter, err error) {
	var vErr *scheduling.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, "validation_error", vErr.Error())
	case errors.Is(err, scheduling.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, scheduling.ErrAppointmentFinal):
		writeError(w, http.StatusConflict, "appointment_final", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func recordBookingOutcome(m *metrics.Collector, res scheduling.OperationResult) {
	if m == nil {
		return
	}
	if res.Success {
		m.BookingsTotal.WithLabelValues("scheduled").Inc()
		return
	}
	m.BookingsTotal.WithLabelValues("rejected").Inc()
	recordConflicts(m, res)
}

func recordConflicts(m *metrics.Collector, res scheduling.OperationResult) {
	if m == nil {
		return
	}
	for _, c := range res.Conflicts {
		m.ConflictsTotal.WithLabelValues(string(c.Type)).Inc()
	}
}

func pathUUID(w http.ResponseWriter, r *http.Request, param, code string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, code, param+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func parsePositiveInt(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, errors.New("must be positive")
	}
	return n, nil
}
