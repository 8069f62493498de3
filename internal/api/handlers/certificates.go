package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tkellner/homelab-manager/internal/apperr"
	"github.com/tkellner/homelab-manager/internal/authz"
	"github.com/tkellner/homelab-manager/internal/db"
	"github.com/tkellner/homelab-manager/internal/lifecycle"
)

// oneof tags cannot express values with embedded quotes, so certificate
// types are checked by hand.
var certificateTypes = map[string]bool{
	"Self-Signed":   true,
	"Let's Encrypt": true,
	"Commercial CA": true,
}

type CreateCertificateRequest struct {
	ServiceID          int64     `json:"service_id" binding:"required"`
	Domain             string    `json:"domain" binding:"required,max=255"`
	Issuer             string    `json:"issuer" binding:"required,max=255"`
	CertificateType    string    `json:"certificate_type" binding:"required"`
	IssueDate          time.Time `json:"issue_date" binding:"required"`
	ExpirationDate     time.Time `json:"expiration_date" binding:"required"`
	Status             string    `json:"status" binding:"omitempty,oneof=valid expiring_soon expired revoked"`
	AutoRenewalEnabled *bool     `json:"auto_renewal_enabled"`
}

type UpdateCertificateRequest struct {
	Domain             *string    `json:"domain" binding:"omitempty,max=255"`
	Issuer             *string    `json:"issuer" binding:"omitempty,max=255"`
	CertificateType    *string    `json:"certificate_type"`
	IssueDate          *time.Time `json:"issue_date"`
	ExpirationDate     *time.Time `json:"expiration_date"`
	Status             *string    `json:"status" binding:"omitempty,oneof=valid expiring_soon expired revoked"`
	AutoRenewalEnabled *bool      `json:"auto_renewal_enabled"`
}

// ListCertificates handles GET /api/v1/ssl-certificates.
func (h *Handler) ListCertificates(c *gin.Context) {
	filter := db.CertificateFilter{
		OwnerID: authz.ListScope(actor(c)),
		Status:  c.Query("status"),
	}
	if v, ok := c.GetQuery("service_id"); ok {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			h.fail(c, validationError("service_id", "must be an integer"))
			return
		}
		filter.ServiceID = &id
	}

	certs, err := h.store.ListCertificates(filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "SSL certificates retrieved successfully", certs)
}

// GetCertificate handles GET /api/v1/ssl-certificates/:id.
func (h *Handler) GetCertificate(c *gin.Context) {
	cert, err := h.loadCertificate(c, "You can only access certificates for your own services")
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "SSL certificate retrieved successfully", cert)
}

// CreateCertificate handles POST /api/v1/ssl-certificates. The parent
// service must exist (404) before ownership is judged (403), and the status
// is derived immediately before the insert.
func (h *Handler) CreateCertificate(c *gin.Context) {
	var req CreateCertificateRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	if !certificateTypes[req.CertificateType] {
		h.fail(c, validationError("certificate_type", "invalid certificate type"))
		return
	}
	if !req.ExpirationDate.After(req.IssueDate) {
		h.fail(c, validationError("expiration_date", "must be after issue date"))
		return
	}
	if !req.ExpirationDate.After(time.Now()) {
		h.fail(c, validationError("expiration_date", "the certificate has already expired"))
		return
	}

	service, err := h.store.GetService(req.ServiceID)
	if err != nil {
		h.fail(c, storeErr(err, "Service not found", ""))
		return
	}
	if !authz.CanAccess(actor(c), service.UserID) {
		h.fail(c, apperr.New(apperr.Authorization, "You can only create certificates for your own services"))
		return
	}

	status := db.CertValid
	if req.Status != "" {
		status = db.CertStatus(req.Status)
	}
	autoRenewal := false
	if req.AutoRenewalEnabled != nil {
		autoRenewal = *req.AutoRenewalEnabled
	}

	cert := &db.SSLCertificate{
		ServiceID:          req.ServiceID,
		Domain:             req.Domain,
		Issuer:             req.Issuer,
		CertificateType:    req.CertificateType,
		IssueDate:          req.IssueDate,
		ExpirationDate:     req.ExpirationDate,
		Status:             lifecycle.DeriveStatus(req.ExpirationDate, status, time.Now()),
		AutoRenewalEnabled: autoRenewal,
		OwnerUserID:        service.UserID,
	}

	if err := h.store.CreateCertificate(cert); err != nil {
		h.fail(c, storeErr(err, "Service not found", ""))
		return
	}
	respond(c, http.StatusCreated, "SSL certificate created successfully", cert)
}

// UpdateCertificate handles PUT /api/v1/ssl-certificates/:id. The payload is
// validated before the row is looked up. The status is re-derived from the
// resulting expiration date in the same write; a revoked certificate stays
// revoked unless the request explicitly says otherwise.
func (h *Handler) UpdateCertificate(c *gin.Context) {
	var req UpdateCertificateRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	if req.CertificateType != nil && !certificateTypes[*req.CertificateType] {
		h.fail(c, validationError("certificate_type", "invalid certificate type"))
		return
	}

	cert, err := h.loadCertificate(c, "You can only update certificates for your own services")
	if err != nil {
		h.fail(c, err)
		return
	}

	if req.Domain != nil {
		cert.Domain = *req.Domain
	}
	if req.Issuer != nil {
		cert.Issuer = *req.Issuer
	}
	if req.CertificateType != nil {
		cert.CertificateType = *req.CertificateType
	}
	if req.IssueDate != nil {
		cert.IssueDate = *req.IssueDate
	}
	if req.ExpirationDate != nil {
		cert.ExpirationDate = *req.ExpirationDate
	}
	if req.Status != nil {
		cert.Status = db.CertStatus(*req.Status)
	}
	if req.AutoRenewalEnabled != nil {
		cert.AutoRenewalEnabled = *req.AutoRenewalEnabled
	}

	if !cert.ExpirationDate.After(cert.IssueDate) {
		h.fail(c, validationError("expiration_date", "must be after issue date"))
		return
	}

	cert.Status = lifecycle.DeriveStatus(cert.ExpirationDate, cert.Status, time.Now())

	if err := h.store.UpdateCertificate(cert); err != nil {
		h.fail(c, storeErr(err, "SSL certificate not found", ""))
		return
	}
	respond(c, http.StatusOK, "SSL certificate updated successfully", cert)
}

// DeleteCertificate handles DELETE /api/v1/ssl-certificates/:id.
func (h *Handler) DeleteCertificate(c *gin.Context) {
	cert, err := h.loadCertificate(c, "You can only delete certificates for your own services")
	if err != nil {
		h.fail(c, err)
		return
	}

	if err := h.store.DeleteCertificate(cert.ID); err != nil {
		h.fail(c, storeErr(err, "SSL certificate not found", ""))
		return
	}
	respond(c, http.StatusOK, "SSL certificate deleted successfully", nil)
}

// ListExpiringCertificates handles GET /api/v1/ssl-certificates/expiring.
// It filters on the last persisted status rather than re-deriving, so a row
// can lag until its next write; that staleness window is accepted.
func (h *Handler) ListExpiringCertificates(c *gin.Context) {
	days := lifecycle.ExpiringSoonDays
	if v, ok := c.GetQuery("days"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			days = n
		}
	}

	cutoff := time.Now().AddDate(0, 0, days)
	certs, err := h.store.ListExpiringCertificates(authz.ListScope(actor(c)), cutoff)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK,
		"Certificates expiring within "+strconv.Itoa(days)+" days retrieved successfully", certs)
}

// loadCertificate fetches the row with its owner and authorizes the actor;
// the 404 check always precedes the 403 check.
func (h *Handler) loadCertificate(c *gin.Context, denyMsg string) (*db.SSLCertificate, error) {
	id, err := pathID(c)
	if err != nil {
		return nil, err
	}

	cert, err := h.store.GetCertificate(id)
	if err != nil {
		return nil, storeErr(err, "SSL certificate not found", "")
	}
	if !authz.CanAccess(actor(c), cert.OwnerUserID) {
		return nil, apperr.New(apperr.Authorization, denyMsg)
	}
	return cert, nil
}
