package handlers

import (
	"time"

	"go.uber.org/zap"

	"github.com/tkellner/homelab-manager/internal/config"
	"github.com/tkellner/homelab-manager/internal/db"
)

// Store is the persistence surface the handlers need. *db.Repository
// implements it; tests substitute fakes.
type Store interface {
	Ping() error

	CreateUser(*db.User) error
	GetUserByID(int64) (*db.User, error)
	GetUserByIdentifier(string) (*db.User, error)

	CreateService(*db.Service) error
	GetService(int64) (*db.Service, error)
	ListServices(db.ServiceFilter) ([]*db.Service, error)
	UpdateService(*db.Service) error
	DeleteService(int64) error
	ServiceStats(*int64) (*db.ServiceStats, error)

	CreateCertificate(*db.SSLCertificate) error
	GetCertificate(int64) (*db.SSLCertificate, error)
	ListCertificates(db.CertificateFilter) ([]*db.SSLCertificate, error)
	UpdateCertificate(*db.SSLCertificate) error
	DeleteCertificate(int64) error
	ListExpiringCertificates(ownerID *int64, cutoff time.Time) ([]*db.SSLCertificate, error)

	CreateVulnerability(*db.Vulnerability) error
	GetVulnerability(int64) (*db.Vulnerability, error)
	ListVulnerabilities(db.VulnerabilityFilter) ([]*db.Vulnerability, error)
	UpdateVulnerability(*db.Vulnerability) error
	DeleteVulnerability(int64) error

	CreateMaintenanceLog(*db.MaintenanceLog) error
	GetMaintenanceLog(int64) (*db.MaintenanceLog, error)
	ListMaintenanceLogs(db.MaintenanceLogFilter) ([]*db.MaintenanceLog, error)
	DeleteMaintenanceLog(int64) error
}

type Handler struct {
	store  Store
	config *config.Config
	logger *zap.Logger
}

func NewHandler(store Store, cfg *config.Config, logger *zap.Logger) *Handler {
	return &Handler{
		store:  store,
		config: cfg,
		logger: logger,
	}
}
