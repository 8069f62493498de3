package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type ServiceStatus string

const (
	ServiceRunning     ServiceStatus = "running"
	ServiceStopped     ServiceStatus = "stopped"
	ServiceError       ServiceStatus = "error"
	ServiceMaintenance ServiceStatus = "maintenance"
)

type CertStatus string

const (
	CertValid        CertStatus = "valid"
	CertExpiringSoon CertStatus = "expiring_soon"
	CertExpired      CertStatus = "expired"
	CertRevoked      CertStatus = "revoked"
)

type VulnStatus string

const (
	VulnOpen       VulnStatus = "open"
	VulnInProgress VulnStatus = "in_progress"
	VulnPatched    VulnStatus = "patched"
	VulnMitigated  VulnStatus = "mitigated"
	VulnAccepted   VulnStatus = "accepted"
)

type User struct {
	ID                      int64                   `json:"id" db:"id"`
	Username                string                  `json:"username" db:"username"`
	Email                   string                  `json:"email" db:"email"`
	PasswordHash            string                  `json:"-" db:"password_hash"`
	Role                    Role                    `json:"role" db:"role"`
	FirstName               *string                 `json:"first_name" db:"first_name"`
	LastName                *string                 `json:"last_name" db:"last_name"`
	NotificationPreferences NotificationPreferences `json:"notification_preferences" db:"notification_preferences"`
	CreatedAt               time.Time               `json:"created_at" db:"created_at"`
	UpdatedAt               time.Time               `json:"updated_at" db:"updated_at"`
}

// NotificationPreferences is stored as a JSONB column.
type NotificationPreferences struct {
	Email               bool `json:"email"`
	SSLExpiry           bool `json:"ssl_expiry"`
	VulnerabilityAlerts bool `json:"vulnerability_alerts"`
}

func DefaultNotificationPreferences() NotificationPreferences {
	return NotificationPreferences{Email: true, SSLExpiry: true, VulnerabilityAlerts: true}
}

func (n NotificationPreferences) Value() (driver.Value, error) {
	return json.Marshal(n)
}

func (n *NotificationPreferences) Scan(value interface{}) error {
	if value == nil {
		*n = DefaultNotificationPreferences()
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("notification_preferences: unexpected type %T", value)
	}
	return json.Unmarshal(b, n)
}

type Service struct {
	ID                   int64         `json:"id" db:"id"`
	UserID               int64         `json:"user_id" db:"user_id"`
	ServiceName          string        `json:"service_name" db:"service_name"`
	ServiceType          string        `json:"service_type" db:"service_type"`
	Description          *string       `json:"description" db:"description"`
	URL                  *string       `json:"url" db:"url"`
	Port                 *int          `json:"port" db:"port"`
	InternalIP           *string       `json:"internal_ip" db:"internal_ip"`
	DockerContainerName  *string       `json:"docker_container_name" db:"docker_container_name"`
	DockerImage          *string       `json:"docker_image" db:"docker_image"`
	CoresAllocated       *float64      `json:"cores_allocated" db:"cores_allocated"`
	RAMAllocated         *int          `json:"ram_allocated" db:"ram_allocated"`
	Status               ServiceStatus `json:"status" db:"status"`
	UptimePercentage     *float64      `json:"uptime_percentage" db:"uptime_percentage"`
	LastHealthCheck      *time.Time    `json:"last_health_check" db:"last_health_check"`
	PublicFacing         bool          `json:"public_facing" db:"public_facing"`
	AuthenticationMethod *string       `json:"authentication_method" db:"authentication_method"`
	SecurityScore        *int          `json:"security_score" db:"security_score"`
	CreatedAt            time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at" db:"updated_at"`
}

type SSLCertificate struct {
	ID                 int64      `json:"id" db:"id"`
	ServiceID          int64      `json:"service_id" db:"service_id"`
	Domain             string     `json:"domain" db:"domain"`
	Issuer             string     `json:"issuer" db:"issuer"`
	CertificateType    string     `json:"certificate_type" db:"certificate_type"`
	IssueDate          time.Time  `json:"issue_date" db:"issue_date"`
	ExpirationDate     time.Time  `json:"expiration_date" db:"expiration_date"`
	Status             CertStatus `json:"status" db:"status"`
	AutoRenewalEnabled bool       `json:"auto_renewal_enabled" db:"auto_renewal_enabled"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`

	// OwnerUserID is the user_id of the owning service, populated by joined
	// reads so handlers can authorize without a second query.
	OwnerUserID int64 `json:"-" db:"owner_user_id"`
}

// DaysUntilExpiry reports whole days until expiration, rounded up. Negative
// once the certificate has lapsed.
func (c *SSLCertificate) DaysUntilExpiry(now time.Time) int {
	return int(math.Ceil(c.ExpirationDate.Sub(now).Seconds() / 86400))
}

// MarshalJSON adds the computed days_until_expiry field exposed alongside the
// stored columns.
func (c SSLCertificate) MarshalJSON() ([]byte, error) {
	type alias SSLCertificate
	return json.Marshal(struct {
		alias
		DaysUntilExpiry int `json:"days_until_expiry"`
	}{
		alias:           alias(c),
		DaysUntilExpiry: c.DaysUntilExpiry(time.Now()),
	})
}

type Vulnerability struct {
	ID               int64      `json:"id" db:"id"`
	ServiceID        int64      `json:"service_id" db:"service_id"`
	CVEID            *string    `json:"cve_id" db:"cve_id"`
	Title            string     `json:"title" db:"title"`
	Description      string     `json:"description" db:"description"`
	Severity         string     `json:"severity" db:"severity"`
	CVSSScore        *float64   `json:"cvss_score" db:"cvss_score"`
	DiscoveredDate   time.Time  `json:"discovered_date" db:"discovered_date"`
	Status           VulnStatus `json:"status" db:"status"`
	PatchedDate      *time.Time `json:"patched_date" db:"patched_date"`
	RemediationNotes *string    `json:"remediation_notes" db:"remediation_notes"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`

	OwnerUserID int64 `json:"-" db:"owner_user_id"`
}

type MaintenanceLog struct {
	ID                int64     `json:"id" db:"id"`
	ServiceID         int64     `json:"service_id" db:"service_id"`
	PerformedByUserID *int64    `json:"performed_by_user_id" db:"performed_by_user_id"`
	MaintenanceDate   time.Time `json:"maintenance_date" db:"maintenance_date"`
	MaintenanceType   string    `json:"maintenance_type" db:"maintenance_type"`
	Title             string    `json:"title" db:"title"`
	Description       string    `json:"description" db:"description"`
	DowntimeMinutes   int       `json:"downtime_minutes" db:"downtime_minutes"`
	VersionBefore     *string   `json:"version_before" db:"version_before"`
	VersionAfter      *string   `json:"version_after" db:"version_after"`
	Success           bool      `json:"success" db:"success"`
	Notes             *string   `json:"notes" db:"notes"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`

	OwnerUserID int64 `json:"-" db:"owner_user_id"`
}

// ServiceStats is the payload of the stats-summary endpoint.
type ServiceStats struct {
	Total        int            `json:"total"`
	ByStatus     map[string]int `json:"by_status"`
	PublicFacing int            `json:"public_facing"`
	Private      int            `json:"private"`
}
