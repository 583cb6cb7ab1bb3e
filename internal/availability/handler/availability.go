package handler

import (
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"rentavail/internal/availability/calendar"
	"rentavail/internal/availability/service"
	apperrors "rentavail/pkg/errors"
	httputil "rentavail/pkg/http"
	"rentavail/pkg/logger"
	"rentavail/pkg/model"
)

const (
	propertyParam = "propertyID"
	idParam       = "id"
	dateParam     = "date"
	timeParam     = "time"
)

type SlotResponse struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	Available bool   `json:"available"`
}

type NextAvailableResponse struct {
	Date string `json:"date"`
}

type PreviewResponse struct {
	Dates []string `json:"dates"`
}

type AvailabilityHandler struct {
	service service.AvailabilityService
	log     *logger.Logger
}

func NewAvailabilityHandler(service service.AvailabilityService, log *logger.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		service: service,
		log:     log,
	}
}

func (h *AvailabilityHandler) CreateSchedule(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var sc model.RecurringSchedule
	if err := httputil.DecodeJSON(r, &sc); err != nil {
		h.writeError(w, "CreateSchedule", err)
		return
	}
	if err := bindProperty(&sc.PropertyID, ps); err != nil {
		h.writeError(w, "CreateSchedule", err)
		return
	}
	sc.ID = ""

	if err := h.service.UpsertSchedule(r.Context(), &sc); err != nil {
		h.writeError(w, "CreateSchedule", err)
		return
	}
	if err := httputil.WriteCreated(w, sc); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateSchedule", "operation", "WriteCreated", "error", err)
	}
}

func (h *AvailabilityHandler) PutSchedule(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var sc model.RecurringSchedule
	if err := httputil.DecodeJSON(r, &sc); err != nil {
		h.writeError(w, "PutSchedule", err)
		return
	}
	if err := bindProperty(&sc.PropertyID, ps); err != nil {
		h.writeError(w, "PutSchedule", err)
		return
	}
	if err := bindID(&sc.ID, ps); err != nil {
		h.writeError(w, "PutSchedule", err)
		return
	}

	if err := h.service.UpsertSchedule(r.Context(), &sc); err != nil {
		h.writeError(w, "PutSchedule", err)
		return
	}
	if err := httputil.WriteSuccess(w, sc); err != nil {
		h.log.Error("failed to write success response", "handler", "PutSchedule", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) ListSchedules(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	schedules, err := h.service.ListSchedules(r.Context(), ps.ByName(propertyParam))
	if err != nil {
		h.writeError(w, "ListSchedules", err)
		return
	}
	if err := httputil.WriteList(w, schedules, len(schedules)); err != nil {
		h.log.Error("failed to write list response", "handler", "ListSchedules", "operation", "WriteList", "error", err)
	}
}

func (h *AvailabilityHandler) DeleteSchedule(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.DeleteSchedule(r.Context(), ps.ByName(propertyParam), ps.ByName(idParam)); err != nil {
		h.writeError(w, "DeleteSchedule", err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *AvailabilityHandler) CreateRule(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var rule model.AvailabilityRule
	if err := httputil.DecodeJSON(r, &rule); err != nil {
		h.writeError(w, "CreateRule", err)
		return
	}
	if err := bindProperty(&rule.PropertyID, ps); err != nil {
		h.writeError(w, "CreateRule", err)
		return
	}
	rule.ID = ""

	if err := h.service.UpsertRule(r.Context(), &rule); err != nil {
		h.writeError(w, "CreateRule", err)
		return
	}
	if err := httputil.WriteCreated(w, rule); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateRule", "operation", "WriteCreated", "error", err)
	}
}

func (h *AvailabilityHandler) PutRule(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var rule model.AvailabilityRule
	if err := httputil.DecodeJSON(r, &rule); err != nil {
		h.writeError(w, "PutRule", err)
		return
	}
	if err := bindProperty(&rule.PropertyID, ps); err != nil {
		h.writeError(w, "PutRule", err)
		return
	}
	if err := bindID(&rule.ID, ps); err != nil {
		h.writeError(w, "PutRule", err)
		return
	}

	if err := h.service.UpsertRule(r.Context(), &rule); err != nil {
		h.writeError(w, "PutRule", err)
		return
	}
	if err := httputil.WriteSuccess(w, rule); err != nil {
		h.log.Error("failed to write success response", "handler", "PutRule", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) ListRules(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	rules, err := h.service.ListRules(r.Context(), ps.ByName(propertyParam))
	if err != nil {
		h.writeError(w, "ListRules", err)
		return
	}
	if err := httputil.WriteList(w, rules, len(rules)); err != nil {
		h.log.Error("failed to write list response", "handler", "ListRules", "operation", "WriteList", "error", err)
	}
}

func (h *AvailabilityHandler) DeleteRule(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.DeleteRule(r.Context(), ps.ByName(propertyParam), ps.ByName(idParam)); err != nil {
		h.writeError(w, "DeleteRule", err)
		return
	}
	httputil.WriteNoContent(w)
}

// GetRange serves the calendar view. from defaults to today and to to the
// end of the horizon.
func (h *AvailabilityHandler) GetRange(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	from, err := httputil.QueryDate(r, "from", "")
	if err != nil {
		h.writeError(w, "GetRange", err)
		return
	}
	to, err := httputil.QueryDate(r, "to", "")
	if err != nil {
		h.writeError(w, "GetRange", err)
		return
	}

	days, err := h.service.GetRange(r.Context(), ps.ByName(propertyParam), from, to)
	if err != nil {
		h.writeError(w, "GetRange", err)
		return
	}
	if err := httputil.WriteList(w, days, len(days)); err != nil {
		h.log.Error("failed to write list response", "handler", "GetRange", "operation", "WriteList", "error", err)
	}
}

func (h *AvailabilityHandler) GetDay(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	day, err := h.service.GetDay(r.Context(), ps.ByName(propertyParam), ps.ByName(dateParam), httputil.QueryBool(r, "available"))
	if err != nil {
		h.writeError(w, "GetDay", err)
		return
	}
	if err := httputil.WriteSuccess(w, day); err != nil {
		h.log.Error("failed to write success response", "handler", "GetDay", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) GetLevel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	level, err := h.service.GetLevel(r.Context(), ps.ByName(propertyParam), ps.ByName(dateParam))
	if err != nil {
		h.writeError(w, "GetLevel", err)
		return
	}
	if err := httputil.WriteSuccess(w, level); err != nil {
		h.log.Error("failed to write success response", "handler", "GetLevel", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) GetSlot(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	date, start := ps.ByName(dateParam), ps.ByName(timeParam)
	available, err := h.service.IsSlotAvailable(r.Context(), ps.ByName(propertyParam), date, start)
	if err != nil {
		h.writeError(w, "GetSlot", err)
		return
	}
	if err := httputil.WriteSuccess(w, SlotResponse{Date: date, StartTime: start, Available: available}); err != nil {
		h.log.Error("failed to write success response", "handler", "GetSlot", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) NextAvailable(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	from, err := httputil.QueryDate(r, "from", "")
	if err != nil {
		h.writeError(w, "NextAvailable", err)
		return
	}

	date, err := h.service.NextAvailable(r.Context(), ps.ByName(propertyParam), from)
	if err != nil {
		h.writeError(w, "NextAvailable", err)
		return
	}
	if err := httputil.WriteSuccess(w, NextAvailableResponse{Date: date}); err != nil {
		h.log.Error("failed to write success response", "handler", "NextAvailable", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) Preview(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req service.PreviewRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Preview", err)
		return
	}

	dates, err := h.service.Preview(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Preview", err)
		return
	}
	if err := httputil.WriteSuccess(w, PreviewResponse{Dates: dates}); err != nil {
		h.log.Error("failed to write success response", "handler", "Preview", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) Calendar(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	propertyID := ps.ByName(propertyParam)
	data, err := h.service.Calendar(r.Context(), propertyID)
	if err != nil {
		h.writeError(w, "Calendar", err)
		return
	}

	w.Header().Set("Content-Type", calendar.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", propertyID+".ics"))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.log.Error("failed to write calendar response", "handler", "Calendar", "operation", "Write", "error", err)
	}
}

func (h *AvailabilityHandler) RegisterRoutes(router *httprouter.Router) {
	const property = "/api/v1/properties/:" + propertyParam

	router.POST(property+"/schedules", h.CreateSchedule)
	router.GET(property+"/schedules", h.ListSchedules)
	router.PUT(property+"/schedules/:"+idParam, h.PutSchedule)
	router.DELETE(property+"/schedules/:"+idParam, h.DeleteSchedule)

	router.POST(property+"/rules", h.CreateRule)
	router.GET(property+"/rules", h.ListRules)
	router.PUT(property+"/rules/:"+idParam, h.PutRule)
	router.DELETE(property+"/rules/:"+idParam, h.DeleteRule)

	router.GET(property+"/availability", h.GetRange)
	router.GET(property+"/availability/:"+dateParam, h.GetDay)
	router.GET(property+"/availability/:"+dateParam+"/level", h.GetLevel)
	router.GET(property+"/availability/:"+dateParam+"/slots/:"+timeParam, h.GetSlot)
	router.GET(property+"/next-available", h.NextAvailable)
	router.GET(property+"/calendar.ics", h.Calendar)

	router.POST("/api/v1/recurrence/preview", h.Preview)
}

func (h *AvailabilityHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

// bindProperty takes the property id from the path. A conflicting id in the
// body is rejected.
func bindProperty(dst *string, ps httprouter.Params) error {
	return bind(dst, ps.ByName(propertyParam), "property_id")
}

func bindID(dst *string, ps httprouter.Params) error {
	return bind(dst, ps.ByName(idParam), "id")
}

func bind(dst *string, fromPath, field string) error {
	if *dst != "" && *dst != fromPath {
		return apperrors.InvalidInput(fmt.Sprintf("%s in body does not match the URL", field))
	}
	*dst = fromPath
	return nil
}
