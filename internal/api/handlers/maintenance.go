package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tkellner/homelab-manager/internal/apperr"
	"github.com/tkellner/homelab-manager/internal/authz"
	"github.com/tkellner/homelab-manager/internal/db"
)

// "Security Patch" and "Configuration Change" contain spaces, which oneof
// cannot express, so the set is checked by hand.
var maintenanceTypes = map[string]bool{
	"Update":               true,
	"Backup":               true,
	"Security Patch":       true,
	"Configuration Change": true,
	"Restart":              true,
	"Other":                true,
}

type CreateMaintenanceLogRequest struct {
	ServiceID       int64      `json:"service_id" binding:"required"`
	MaintenanceDate *time.Time `json:"maintenance_date"`
	MaintenanceType string     `json:"maintenance_type" binding:"required"`
	Title           string     `json:"title" binding:"required,max=200"`
	Description     string     `json:"description" binding:"required"`
	DowntimeMinutes *int       `json:"downtime_minutes" binding:"omitempty,min=0"`
	VersionBefore   *string    `json:"version_before" binding:"omitempty,max=50"`
	VersionAfter    *string    `json:"version_after" binding:"omitempty,max=50"`
	Success         *bool      `json:"success"`
	Notes           *string    `json:"notes"`
}

// ListMaintenanceLogs handles GET /api/v1/maintenance-logs.
func (h *Handler) ListMaintenanceLogs(c *gin.Context) {
	filter := db.MaintenanceLogFilter{
		OwnerID:         authz.ListScope(actor(c)),
		MaintenanceType: c.Query("maintenance_type"),
	}
	if v, ok := c.GetQuery("service_id"); ok {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			h.fail(c, validationError("service_id", "must be an integer"))
			return
		}
		filter.ServiceID = &id
	}
	if v, ok := c.GetQuery("success"); ok {
		success := v == "true"
		filter.Success = &success
	}

	logs, err := h.store.ListMaintenanceLogs(filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Maintenance logs retrieved successfully", logs)
}

// GetMaintenanceLog handles GET /api/v1/maintenance-logs/:id.
func (h *Handler) GetMaintenanceLog(c *gin.Context) {
	log, err := h.loadMaintenanceLog(c, "You can only access maintenance logs for your own services")
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Maintenance log retrieved successfully", log)
}

// CreateMaintenanceLog handles POST /api/v1/maintenance-logs. The record is
// attributed to the actor performing it.
func (h *Handler) CreateMaintenanceLog(c *gin.Context) {
	var req CreateMaintenanceLogRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	if !maintenanceTypes[req.MaintenanceType] {
		h.fail(c, validationError("maintenance_type", "invalid maintenance type"))
		return
	}

	service, err := h.store.GetService(req.ServiceID)
	if err != nil {
		h.fail(c, storeErr(err, "Service not found", ""))
		return
	}
	if !authz.CanAccess(actor(c), service.UserID) {
		h.fail(c, apperr.New(apperr.Authorization, "You can only log maintenance for your own services"))
		return
	}

	date := time.Now()
	if req.MaintenanceDate != nil {
		date = *req.MaintenanceDate
	}
	downtime := 0
	if req.DowntimeMinutes != nil {
		downtime = *req.DowntimeMinutes
	}
	success := true
	if req.Success != nil {
		success = *req.Success
	}
	performedBy := actor(c).ID

	log := &db.MaintenanceLog{
		ServiceID:         req.ServiceID,
		PerformedByUserID: &performedBy,
		MaintenanceDate:   date,
		MaintenanceType:   req.MaintenanceType,
		Title:             req.Title,
		Description:       req.Description,
		DowntimeMinutes:   downtime,
		VersionBefore:     req.VersionBefore,
		VersionAfter:      req.VersionAfter,
		Success:           success,
		Notes:             req.Notes,
		OwnerUserID:       service.UserID,
	}

	if err := h.store.CreateMaintenanceLog(log); err != nil {
		h.fail(c, storeErr(err, "Service not found", ""))
		return
	}
	respond(c, http.StatusCreated, "Maintenance log created successfully", log)
}

// DeleteMaintenanceLog handles DELETE /api/v1/maintenance-logs/:id. Logs are
// append-only, so delete is the only mutation after creation.
func (h *Handler) DeleteMaintenanceLog(c *gin.Context) {
	log, err := h.loadMaintenanceLog(c, "You can only delete maintenance logs for your own services")
	if err != nil {
		h.fail(c, err)
		return
	}

	if err := h.store.DeleteMaintenanceLog(log.ID); err != nil {
		h.fail(c, storeErr(err, "Maintenance log not found", ""))
		return
	}
	respond(c, http.StatusOK, "Maintenance log deleted successfully", nil)
}

func (h *Handler) loadMaintenanceLog(c *gin.Context, denyMsg string) (*db.MaintenanceLog, error) {
	id, err := pathID(c)
	if err != nil {
		return nil, err
	}

	log, err := h.store.GetMaintenanceLog(id)
	if err != nil {
		return nil, storeErr(err, "Maintenance log not found", "")
	}
	if !authz.CanAccess(actor(c), log.OwnerUserID) {
		return nil, apperr.New(apperr.Authorization, denyMsg)
	}
	return log, nil
}
