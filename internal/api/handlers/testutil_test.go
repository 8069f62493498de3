package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tkellner/homelab-manager/internal/api/middleware"
	"github.com/tkellner/homelab-manager/internal/authz"
	"github.com/tkellner/homelab-manager/internal/config"
	"github.com/tkellner/homelab-manager/internal/db"
)

// fakeStore is an in-memory Store used to exercise handlers without a
// database.
type fakeStore struct {
	users    map[int64]*db.User
	services map[int64]*db.Service
	certs    map[int64]*db.SSLCertificate
	vulns    map[int64]*db.Vulnerability
	logs     map[int64]*db.MaintenanceLog
	nextID   int64

	pingErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[int64]*db.User),
		services: make(map[int64]*db.Service),
		certs:    make(map[int64]*db.SSLCertificate),
		vulns:    make(map[int64]*db.Vulnerability),
		logs:     make(map[int64]*db.MaintenanceLog),
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) Ping() error { return f.pingErr }

func (f *fakeStore) CreateUser(u *db.User) error {
	for _, existing := range f.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return db.ErrDuplicate
		}
	}
	u.ID = f.id()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	f.users[u.ID] = u
	return nil
}

func (f *fakeStore) GetUserByID(id int64) (*db.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) GetUserByIdentifier(identifier string) (*db.User, error) {
	for _, u := range f.users {
		if u.Username == identifier || u.Email == identifier {
			return u, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) CreateService(s *db.Service) error {
	s.ID = f.id()
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	f.services[s.ID] = s
	return nil
}

func (f *fakeStore) GetService(id int64) (*db.Service, error) {
	s, ok := f.services[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	copy := *s
	return &copy, nil
}

func (f *fakeStore) ListServices(filter db.ServiceFilter) ([]*db.Service, error) {
	out := []*db.Service{}
	for _, s := range f.services {
		if filter.OwnerID != nil && s.UserID != *filter.OwnerID {
			continue
		}
		if filter.ServiceType != "" && s.ServiceType != filter.ServiceType {
			continue
		}
		if filter.Status != "" && string(s.Status) != filter.Status {
			continue
		}
		if filter.PublicFacing != nil && s.PublicFacing != *filter.PublicFacing {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStore) UpdateService(s *db.Service) error {
	if _, ok := f.services[s.ID]; !ok {
		return db.ErrNotFound
	}
	f.services[s.ID] = s
	return nil
}

func (f *fakeStore) DeleteService(id int64) error {
	if _, ok := f.services[id]; !ok {
		return db.ErrNotFound
	}
	delete(f.services, id)
	return nil
}

func (f *fakeStore) ServiceStats(ownerID *int64) (*db.ServiceStats, error) {
	stats := &db.ServiceStats{ByStatus: map[string]int{}}
	for _, s := range f.services {
		if ownerID != nil && s.UserID != *ownerID {
			continue
		}
		stats.Total++
		stats.ByStatus[string(s.Status)]++
		if s.PublicFacing {
			stats.PublicFacing++
		} else {
			stats.Private++
		}
	}
	return stats, nil
}

func (f *fakeStore) CreateCertificate(c *db.SSLCertificate) error {
	if _, ok := f.services[c.ServiceID]; !ok {
		return db.ErrNotFound
	}
	c.ID = f.id()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	f.certs[c.ID] = c
	return nil
}

func (f *fakeStore) GetCertificate(id int64) (*db.SSLCertificate, error) {
	c, ok := f.certs[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	copy := *c
	return &copy, nil
}

func (f *fakeStore) ListCertificates(filter db.CertificateFilter) ([]*db.SSLCertificate, error) {
	out := []*db.SSLCertificate{}
	for _, c := range f.certs {
		if filter.OwnerID != nil && c.OwnerUserID != *filter.OwnerID {
			continue
		}
		if filter.ServiceID != nil && c.ServiceID != *filter.ServiceID {
			continue
		}
		if filter.Status != "" && string(c.Status) != filter.Status {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeStore) UpdateCertificate(c *db.SSLCertificate) error {
	if _, ok := f.certs[c.ID]; !ok {
		return db.ErrNotFound
	}
	f.certs[c.ID] = c
	return nil
}

func (f *fakeStore) DeleteCertificate(id int64) error {
	if _, ok := f.certs[id]; !ok {
		return db.ErrNotFound
	}
	delete(f.certs, id)
	return nil
}

func (f *fakeStore) ListExpiringCertificates(ownerID *int64, cutoff time.Time) ([]*db.SSLCertificate, error) {
	out := []*db.SSLCertificate{}
	for _, c := range f.certs {
		if ownerID != nil && c.OwnerUserID != *ownerID {
			continue
		}
		if c.Status != db.CertValid && c.Status != db.CertExpiringSoon {
			continue
		}
		if c.ExpirationDate.After(cutoff) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeStore) CreateVulnerability(v *db.Vulnerability) error {
	if _, ok := f.services[v.ServiceID]; !ok {
		return db.ErrNotFound
	}
	v.ID = f.id()
	v.CreatedAt = time.Now()
	v.UpdatedAt = v.CreatedAt
	f.vulns[v.ID] = v
	return nil
}

func (f *fakeStore) GetVulnerability(id int64) (*db.Vulnerability, error) {
	v, ok := f.vulns[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	copy := *v
	return &copy, nil
}

func (f *fakeStore) ListVulnerabilities(filter db.VulnerabilityFilter) ([]*db.Vulnerability, error) {
	out := []*db.Vulnerability{}
	for _, v := range f.vulns {
		if filter.OwnerID != nil && v.OwnerUserID != *filter.OwnerID {
			continue
		}
		if filter.ServiceID != nil && v.ServiceID != *filter.ServiceID {
			continue
		}
		if filter.Severity != "" && v.Severity != filter.Severity {
			continue
		}
		if filter.Status != "" && string(v.Status) != filter.Status {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (f *fakeStore) UpdateVulnerability(v *db.Vulnerability) error {
	if _, ok := f.vulns[v.ID]; !ok {
		return db.ErrNotFound
	}
	f.vulns[v.ID] = v
	return nil
}

func (f *fakeStore) DeleteVulnerability(id int64) error {
	if _, ok := f.vulns[id]; !ok {
		return db.ErrNotFound
	}
	delete(f.vulns, id)
	return nil
}

func (f *fakeStore) CreateMaintenanceLog(m *db.MaintenanceLog) error {
	if _, ok := f.services[m.ServiceID]; !ok {
		return db.ErrNotFound
	}
	m.ID = f.id()
	m.CreatedAt = time.Now()
	f.logs[m.ID] = m
	return nil
}

func (f *fakeStore) GetMaintenanceLog(id int64) (*db.MaintenanceLog, error) {
	m, ok := f.logs[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	copy := *m
	return &copy, nil
}

func (f *fakeStore) ListMaintenanceLogs(filter db.MaintenanceLogFilter) ([]*db.MaintenanceLog, error) {
	out := []*db.MaintenanceLog{}
	for _, m := range f.logs {
		if filter.OwnerID != nil && m.OwnerUserID != *filter.OwnerID {
			continue
		}
		if filter.ServiceID != nil && m.ServiceID != *filter.ServiceID {
			continue
		}
		if filter.MaintenanceType != "" && m.MaintenanceType != filter.MaintenanceType {
			continue
		}
		if filter.Success != nil && m.Success != *filter.Success {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeStore) DeleteMaintenanceLog(id int64) error {
	if _, ok := f.logs[id]; !ok {
		return db.ErrNotFound
	}
	delete(f.logs, id)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: "3000", Mode: "debug"},
		JWT: config.JWTConfig{
			Secret:    "test-secret",
			Issuer:    "homelab-manager",
			ExpiresIn: time.Hour,
		},
	}
}

func newTestHandler(t *testing.T, store Store) *Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return NewHandler(store, testConfig(), zap.NewNop())
}

// asActor stores the actor directly so handler tests bypass token plumbing.
func asActor(a authz.Actor) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ActorKey, a)
		c.Next()
	}
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return out
}

func seedUser(f *fakeStore, username string, role db.Role) *db.User {
	u := &db.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Role:         role,
	}
	_ = f.CreateUser(u)
	return u
}

func seedService(f *fakeStore, owner *db.User, name string) *db.Service {
	s := &db.Service{
		UserID:      owner.ID,
		ServiceName: name,
		ServiceType: "web",
		Status:      db.ServiceRunning,
	}
	_ = f.CreateService(s)
	return s
}
