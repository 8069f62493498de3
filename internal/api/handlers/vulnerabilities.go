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

type CreateVulnerabilityRequest struct {
	ServiceID        int64      `json:"service_id" binding:"required"`
	CVEID            *string    `json:"cve_id" binding:"omitempty,max=20"`
	Title            string     `json:"title" binding:"required,max=255"`
	Description      string     `json:"description" binding:"required"`
	Severity         string     `json:"severity" binding:"required,oneof=Critical High Medium Low Informational"`
	CVSSScore        *float64   `json:"cvss_score" binding:"omitempty,min=0,max=10"`
	DiscoveredDate   *time.Time `json:"discovered_date"`
	Status           string     `json:"status" binding:"omitempty,oneof=open in_progress patched mitigated accepted"`
	PatchedDate      *time.Time `json:"patched_date"`
	RemediationNotes *string    `json:"remediation_notes"`
}

type UpdateVulnerabilityRequest struct {
	CVEID            *string    `json:"cve_id" binding:"omitempty,max=20"`
	Title            *string    `json:"title" binding:"omitempty,max=255"`
	Description      *string    `json:"description"`
	Severity         *string    `json:"severity" binding:"omitempty,oneof=Critical High Medium Low Informational"`
	CVSSScore        *float64   `json:"cvss_score" binding:"omitempty,min=0,max=10"`
	DiscoveredDate   *time.Time `json:"discovered_date"`
	Status           *string    `json:"status" binding:"omitempty,oneof=open in_progress patched mitigated accepted"`
	PatchedDate      *time.Time `json:"patched_date"`
	RemediationNotes *string    `json:"remediation_notes"`
}

// ListVulnerabilities handles GET /api/v1/vulnerabilities.
func (h *Handler) ListVulnerabilities(c *gin.Context) {
	filter := db.VulnerabilityFilter{
		OwnerID:  authz.ListScope(actor(c)),
		Severity: c.Query("severity"),
		Status:   c.Query("status"),
	}
	if v, ok := c.GetQuery("service_id"); ok {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			h.fail(c, validationError("service_id", "must be an integer"))
			return
		}
		filter.ServiceID = &id
	}

	vulns, err := h.store.ListVulnerabilities(filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Vulnerabilities retrieved successfully", vulns)
}

// GetVulnerability handles GET /api/v1/vulnerabilities/:id.
func (h *Handler) GetVulnerability(c *gin.Context) {
	vuln, err := h.loadVulnerability(c, "You can only access vulnerabilities for your own services")
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Vulnerability retrieved successfully", vuln)
}

// CreateVulnerability handles POST /api/v1/vulnerabilities.
func (h *Handler) CreateVulnerability(c *gin.Context) {
	var req CreateVulnerabilityRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}

	service, err := h.store.GetService(req.ServiceID)
	if err != nil {
		h.fail(c, storeErr(err, "Service not found", ""))
		return
	}
	if !authz.CanAccess(actor(c), service.UserID) {
		h.fail(c, apperr.New(apperr.Authorization, "You can only report vulnerabilities for your own services"))
		return
	}

	discovered := time.Now()
	if req.DiscoveredDate != nil {
		discovered = *req.DiscoveredDate
	}
	status := db.VulnOpen
	if req.Status != "" {
		status = db.VulnStatus(req.Status)
	}

	vuln := &db.Vulnerability{
		ServiceID:        req.ServiceID,
		CVEID:            req.CVEID,
		Title:            req.Title,
		Description:      req.Description,
		Severity:         req.Severity,
		CVSSScore:        req.CVSSScore,
		DiscoveredDate:   discovered,
		Status:           status,
		PatchedDate:      req.PatchedDate,
		RemediationNotes: req.RemediationNotes,
		OwnerUserID:      service.UserID,
	}

	if err := h.store.CreateVulnerability(vuln); err != nil {
		h.fail(c, storeErr(err, "Service not found", ""))
		return
	}
	respond(c, http.StatusCreated, "Vulnerability created successfully", vuln)
}

// UpdateVulnerability handles PUT /api/v1/vulnerabilities/:id. The payload is
// validated before the row is looked up.
func (h *Handler) UpdateVulnerability(c *gin.Context) {
	var req UpdateVulnerabilityRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}

	vuln, err := h.loadVulnerability(c, "You can only update vulnerabilities for your own services")
	if err != nil {
		h.fail(c, err)
		return
	}

	if req.CVEID != nil {
		vuln.CVEID = req.CVEID
	}
	if req.Title != nil {
		vuln.Title = *req.Title
	}
	if req.Description != nil {
		vuln.Description = *req.Description
	}
	if req.Severity != nil {
		vuln.Severity = *req.Severity
	}
	if req.CVSSScore != nil {
		vuln.CVSSScore = req.CVSSScore
	}
	if req.DiscoveredDate != nil {
		vuln.DiscoveredDate = *req.DiscoveredDate
	}
	if req.Status != nil {
		vuln.Status = db.VulnStatus(*req.Status)
	}
	if req.PatchedDate != nil {
		vuln.PatchedDate = req.PatchedDate
	}
	if req.RemediationNotes != nil {
		vuln.RemediationNotes = req.RemediationNotes
	}

	if err := h.store.UpdateVulnerability(vuln); err != nil {
		h.fail(c, storeErr(err, "Vulnerability not found", ""))
		return
	}
	respond(c, http.StatusOK, "Vulnerability updated successfully", vuln)
}

// DeleteVulnerability handles DELETE /api/v1/vulnerabilities/:id.
func (h *Handler) DeleteVulnerability(c *gin.Context) {
	vuln, err := h.loadVulnerability(c, "You can only delete vulnerabilities for your own services")
	if err != nil {
		h.fail(c, err)
		return
	}

	if err := h.store.DeleteVulnerability(vuln.ID); err != nil {
		h.fail(c, storeErr(err, "Vulnerability not found", ""))
		return
	}
	respond(c, http.StatusOK, "Vulnerability deleted successfully", nil)
}

func (h *Handler) loadVulnerability(c *gin.Context, denyMsg string) (*db.Vulnerability, error) {
	id, err := pathID(c)
	if err != nil {
		return nil, err
	}

	vuln, err := h.store.GetVulnerability(id)
	if err != nil {
		return nil, storeErr(err, "Vulnerability not found", "")
	}
	if !authz.CanAccess(actor(c), vuln.OwnerUserID) {
		return nil, apperr.New(apperr.Authorization, denyMsg)
	}
	return vuln, nil
}
