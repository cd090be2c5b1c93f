package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"medremind/internal/httputil"
	"medremind/internal/model"
	"medremind/internal/service"
	"medremind/internal/transport/http/middleware"
)

type ReminderHandler struct {
	reminderService *service.ReminderService
}

func NewReminderHandler(reminderService *service.ReminderService) *ReminderHandler {
	return &ReminderHandler{
		reminderService: reminderService,
	}
}

// CreateMedication handles POST /reminders/medications
func (h *ReminderHandler) CreateMedication(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetOwnerIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req model.CreateMedicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	rem, err := h.reminderService.CreateMedication(r.Context(), ownerID, &req)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, rem)
}

// ListMedications handles GET /reminders/medications
func (h *ReminderHandler) ListMedications(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetOwnerIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	reminders, err := h.reminderService.ListMedications(r.Context(), ownerID)
	if err != nil {
		log.Printf("[ERROR] List medications: owner=%d err=%v", ownerID, err)
		httputil.WriteInternalError(w, "Failed to list medication reminders")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, reminders)
}

// UpdateMedication handles PATCH /reminders/medications/{id}
func (h *ReminderHandler) UpdateMedication(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetOwnerIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid reminder ID")
		return
	}

	var req model.UpdateMedicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	rem, err := h.reminderService.UpdateMedication(r.Context(), ownerID, id, &req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrReminderNotFound):
			httputil.WriteNotFound(w, "Reminder not found")
		case errors.Is(err, model.ErrInvalidHour):
			httputil.WriteBadRequest(w, err.Error())
		default:
			httputil.WriteBadRequest(w, err.Error())
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, rem)
}

// DeleteMedication handles DELETE /reminders/medications/{id}
func (h *ReminderHandler) DeleteMedication(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetOwnerIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid reminder ID")
		return
	}

	if err := h.reminderService.DeleteMedication(r.Context(), ownerID, id); err != nil {
		if errors.Is(err, model.ErrReminderNotFound) {
			httputil.WriteNotFound(w, "Reminder not found")
			return
		}
		log.Printf("[ERROR] Delete medication: owner=%d id=%d err=%v", ownerID, id, err)
		httputil.WriteInternalError(w, "Failed to delete medication reminder")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Medication reminder deleted",
	})
}

// CreateAppointment handles POST /reminders/appointments
func (h *ReminderHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetOwnerIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req model.CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	rem, err := h.reminderService.CreateAppointment(r.Context(), ownerID, &req)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, rem)
}

// ListAppointments handles GET /reminders/appointments
func (h *ReminderHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetOwnerIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	reminders, err := h.reminderService.ListAppointments(r.Context(), ownerID)
	if err != nil {
		log.Printf("[ERROR] List appointments: owner=%d err=%v", ownerID, err)
		httputil.WriteInternalError(w, "Failed to list appointment reminders")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, reminders)
}

// CancelAppointment handles DELETE /reminders/appointments/{id}
func (h *ReminderHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetOwnerIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid reminder ID")
		return
	}

	if err := h.reminderService.CancelAppointment(r.Context(), ownerID, id); err != nil {
		if errors.Is(err, model.ErrReminderNotFound) {
			httputil.WriteNotFound(w, "Appointment not found")
			return
		}
		log.Printf("[ERROR] Cancel appointment: owner=%d id=%d err=%v", ownerID, id, err)
		httputil.WriteInternalError(w, "Failed to cancel appointment")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Appointment canceled",
	})
}
