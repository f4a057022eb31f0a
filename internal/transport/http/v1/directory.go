package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// PatientRegisterRequest is the request to register a patient.
type PatientRegisterRequest struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// ClinicianRegisterRequest is the request to register a clinician.
type ClinicianRegisterRequest struct {
	Name       string `json:"name"`
	Avatar     string `json:"avatar,omitempty"`
	Speciality string `json:"speciality,omitempty"`
}

// AvailabilityRequest toggles a clinician's availability.
type AvailabilityRequest struct {
	Available bool `json:"available"`
}

// RegisterPatient adds a patient to the directory.
// POST /v1/patients
func (h *Handler) RegisterPatient(c echo.Context) error {
	ctx := c.Request().Context()

	var req PatientRegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	patient, err := h.service.RegisterPatient(ctx, req.Username, req.Avatar)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, patient)
}

// RegisterClinician adds a clinician to the directory.
// POST /v1/clinicians
func (h *Handler) RegisterClinician(c echo.Context) error {
	ctx := c.Request().Context()

	var req ClinicianRegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	clinician, err := h.service.RegisterClinician(ctx, req.Name, req.Avatar, req.Speciality)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, clinician)
}

// ListClinicians lists clinicians, optionally only the available ones.
// GET /v1/clinicians?available=true
func (h *Handler) ListClinicians(c echo.Context) error {
	ctx := c.Request().Context()

	onlyAvailable, _ := strconv.ParseBool(c.QueryParam("available"))

	clinicians, err := h.service.ListClinicians(ctx, onlyAvailable)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"clinicians": clinicians,
	})
}

// SetClinicianAvailability updates availability. Clinician role required.
// PUT /v1/clinicians/:clinician_id/availability
func (h *Handler) SetClinicianAvailability(c echo.Context) error {
	ctx := c.Request().Context()
	clinicianID := c.Param("clinician_id")

	if !h.authorize(c, "clinician.availability") {
		return nil
	}

	var req AvailabilityRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	if err := h.service.SetClinicianAvailability(ctx, clinicianID, req.Available); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}
