package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tkellner/homelab-manager/internal/apperr"
	"github.com/tkellner/homelab-manager/internal/authz"
	"github.com/tkellner/homelab-manager/internal/db"
)

type CreateServiceRequest struct {
	ServiceName          string     `json:"service_name" binding:"required,max=100"`
	ServiceType          string     `json:"service_type" binding:"required,oneof=web database storage monitoring networking other"`
	Description          *string    `json:"description"`
	URL                  *string    `json:"url" binding:"omitempty,url,max=255"`
	Port                 *int       `json:"port" binding:"omitempty,min=1,max=65535"`
	InternalIP           *string    `json:"internal_ip" binding:"omitempty,ip"`
	DockerContainerName  *string    `json:"docker_container_name" binding:"omitempty,max=100"`
	DockerImage          *string    `json:"docker_image" binding:"omitempty,max=255"`
	CoresAllocated       *float64   `json:"cores_allocated" binding:"omitempty,min=0,max=100"`
	RAMAllocated         *int       `json:"ram_allocated" binding:"omitempty,min=0"`
	Status               string     `json:"status" binding:"omitempty,oneof=running stopped error maintenance"`
	UptimePercentage     *float64   `json:"uptime_percentage" binding:"omitempty,min=0,max=100"`
	LastHealthCheck      *time.Time `json:"last_health_check"`
	PublicFacing         *bool      `json:"public_facing"`
	AuthenticationMethod *string    `json:"authentication_method" binding:"omitempty,max=50"`
	SecurityScore        *int       `json:"security_score" binding:"omitempty,min=0,max=100"`
}

type UpdateServiceRequest struct {
	ServiceName          *string    `json:"service_name" binding:"omitempty,max=100"`
	ServiceType          *string    `json:"service_type" binding:"omitempty,oneof=web database storage monitoring networking other"`
	Description          *string    `json:"description"`
	URL                  *string    `json:"url" binding:"omitempty,url,max=255"`
	Port                 *int       `json:"port" binding:"omitempty,min=1,max=65535"`
	InternalIP           *string    `json:"internal_ip" binding:"omitempty,ip"`
	DockerContainerName  *string    `json:"docker_container_name" binding:"omitempty,max=100"`
	DockerImage          *string    `json:"docker_image" binding:"omitempty,max=255"`
	CoresAllocated       *float64   `json:"cores_allocated" binding:"omitempty,min=0,max=100"`
	RAMAllocated         *int       `json:"ram_allocated" binding:"omitempty,min=0"`
	Status               *string    `json:"status" binding:"omitempty,oneof=running stopped error maintenance"`
	UptimePercentage     *float64   `json:"uptime_percentage" binding:"omitempty,min=0,max=100"`
	LastHealthCheck      *time.Time `json:"last_health_check"`
	PublicFacing         *bool      `json:"public_facing"`
	AuthenticationMethod *string    `json:"authentication_method" binding:"omitempty,max=50"`
	SecurityScore        *int       `json:"security_score" binding:"omitempty,min=0,max=100"`
}

// ListServices handles GET /api/v1/services. Non-admin results are scoped in
// the query itself, never filtered after the fact.
func (h *Handler) ListServices(c *gin.Context) {
	filter := db.ServiceFilter{
		OwnerID:     authz.ListScope(actor(c)),
		ServiceType: c.Query("service_type"),
		Status:      c.Query("status"),
	}
	if v, ok := c.GetQuery("public_facing"); ok {
		public := v == "true"
		filter.PublicFacing = &public
	}

	services, err := h.store.ListServices(filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Services retrieved successfully", services)
}

// GetService handles GET /api/v1/services/:id. Existence is checked before
// ownership, so a nonexistent id is 404 while someone else's id is 403.
func (h *Handler) GetService(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	service, err := h.store.GetService(id)
	if err != nil {
		h.fail(c, storeErr(err, "Service not found", ""))
		return
	}
	if !authz.CanAccess(actor(c), service.UserID) {
		h.fail(c, apperr.New(apperr.Authorization, "You can only access your own services"))
		return
	}

	respond(c, http.StatusOK, "Service retrieved successfully", service)
}

// CreateService handles POST /api/v1/services. The creating actor becomes
// the owner; ownership cannot be assigned to someone else.
func (h *Handler) CreateService(c *gin.Context) {
	var req CreateServiceRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}

	status := db.ServiceRunning
	if req.Status != "" {
		status = db.ServiceStatus(req.Status)
	}
	publicFacing := false
	if req.PublicFacing != nil {
		publicFacing = *req.PublicFacing
	}

	service := &db.Service{
		UserID:               actor(c).ID,
		ServiceName:          req.ServiceName,
		ServiceType:          req.ServiceType,
		Description:          req.Description,
		URL:                  req.URL,
		Port:                 req.Port,
		InternalIP:           req.InternalIP,
		DockerContainerName:  req.DockerContainerName,
		DockerImage:          req.DockerImage,
		CoresAllocated:       req.CoresAllocated,
		RAMAllocated:         req.RAMAllocated,
		Status:               status,
		UptimePercentage:     req.UptimePercentage,
		LastHealthCheck:      req.LastHealthCheck,
		PublicFacing:         publicFacing,
		AuthenticationMethod: req.AuthenticationMethod,
		SecurityScore:        req.SecurityScore,
	}

	if err := h.store.CreateService(service); err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, "Service created successfully", service)
}

// UpdateService handles PUT /api/v1/services/:id. The payload is validated
// before the row is looked up, so a malformed request is 400 regardless of
// whether the id exists or who owns it. user_id is immutable; the request
// cannot carry it.
func (h *Handler) UpdateService(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	var req UpdateServiceRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}

	service, err := h.store.GetService(id)
	if err != nil {
		h.fail(c, storeErr(err, "Service not found", ""))
		return
	}
	if !authz.CanAccess(actor(c), service.UserID) {
		h.fail(c, apperr.New(apperr.Authorization, "You can only update your own services"))
		return
	}

	applyServiceUpdate(service, &req)

	if err := h.store.UpdateService(service); err != nil {
		h.fail(c, storeErr(err, "Service not found", ""))
		return
	}
	respond(c, http.StatusOK, "Service updated successfully", service)
}

// DeleteService handles DELETE /api/v1/services/:id. Certificates,
// vulnerabilities and maintenance logs cascade away with it.
func (h *Handler) DeleteService(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	service, err := h.store.GetService(id)
	if err != nil {
		h.fail(c, storeErr(err, "Service not found", ""))
		return
	}
	if !authz.CanAccess(actor(c), service.UserID) {
		h.fail(c, apperr.New(apperr.Authorization, "You can only delete your own services"))
		return
	}

	if err := h.store.DeleteService(id); err != nil {
		h.fail(c, storeErr(err, "Service not found", ""))
		return
	}
	respond(c, http.StatusOK, "Service deleted successfully", nil)
}

// GetServiceStats handles GET /api/v1/services/stats.
func (h *Handler) GetServiceStats(c *gin.Context) {
	stats, err := h.store.ServiceStats(authz.ListScope(actor(c)))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Service statistics retrieved successfully", stats)
}

func applyServiceUpdate(s *db.Service, req *UpdateServiceRequest) {
	if req.ServiceName != nil {
		s.ServiceName = *req.ServiceName
	}
	if req.ServiceType != nil {
		s.ServiceType = *req.ServiceType
	}
	if req.Description != nil {
		s.Description = req.Description
	}
	if req.URL != nil {
		s.URL = req.URL
	}
	if req.Port != nil {
		s.Port = req.Port
	}
	if req.InternalIP != nil {
		s.InternalIP = req.InternalIP
	}
	if req.DockerContainerName != nil {
		s.DockerContainerName = req.DockerContainerName
	}
	if req.DockerImage != nil {
		s.DockerImage = req.DockerImage
	}
	if req.CoresAllocated != nil {
		s.CoresAllocated = req.CoresAllocated
	}
	if req.RAMAllocated != nil {
		s.RAMAllocated = req.RAMAllocated
	}
	if req.Status != nil {
		s.Status = db.ServiceStatus(*req.Status)
	}
	if req.UptimePercentage != nil {
		s.UptimePercentage = req.UptimePercentage
	}
	if req.LastHealthCheck != nil {
		s.LastHealthCheck = req.LastHealthCheck
	}
	if req.PublicFacing != nil {
		s.PublicFacing = *req.PublicFacing
	}
	if req.AuthenticationMethod != nil {
		s.AuthenticationMethod = req.AuthenticationMethod
	}
	if req.SecurityScore != nil {
		s.SecurityScore = req.SecurityScore
	}
}
