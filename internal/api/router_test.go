package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tkellner/homelab-manager/internal/config"
	"github.com/tkellner/homelab-manager/internal/db"
)

// memStore implements Store in memory for wiring tests. Only users and
// services carry real behavior; the rest return empty results.
type memStore struct {
	users    map[int64]*db.User
	services map[int64]*db.Service
	nextID   int64
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[int64]*db.User),
		services: make(map[int64]*db.Service),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) Ping() error { return nil }

func (m *memStore) CreateUser(u *db.User) error {
	for _, existing := range m.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return db.ErrDuplicate
		}
	}
	u.ID = m.id()
	m.users[u.ID] = u
	return nil
}

func (m *memStore) GetUserByID(id int64) (*db.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return u, nil
}

func (m *memStore) GetUserByIdentifier(identifier string) (*db.User, error) {
	for _, u := range m.users {
		if u.Username == identifier || u.Email == identifier {
			return u, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *memStore) CreateService(s *db.Service) error {
	s.ID = m.id()
	m.services[s.ID] = s
	return nil
}

func (m *memStore) GetService(id int64) (*db.Service, error) {
	s, ok := m.services[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return s, nil
}

func (m *memStore) ListServices(db.ServiceFilter) ([]*db.Service, error) { return nil, nil }
func (m *memStore) UpdateService(*db.Service) error                     { return db.ErrNotFound }
func (m *memStore) DeleteService(int64) error                           { return db.ErrNotFound }
func (m *memStore) ServiceStats(*int64) (*db.ServiceStats, error) {
	return &db.ServiceStats{ByStatus: map[string]int{}}, nil
}

func (m *memStore) CreateCertificate(*db.SSLCertificate) error { return db.ErrNotFound }
func (m *memStore) GetCertificate(int64) (*db.SSLCertificate, error) {
	return nil, db.ErrNotFound
}
func (m *memStore) ListCertificates(db.CertificateFilter) ([]*db.SSLCertificate, error) {
	return nil, nil
}
func (m *memStore) UpdateCertificate(*db.SSLCertificate) error { return db.ErrNotFound }
func (m *memStore) DeleteCertificate(int64) error              { return db.ErrNotFound }
func (m *memStore) ListExpiringCertificates(*int64, time.Time) ([]*db.SSLCertificate, error) {
	return nil, nil
}

func (m *memStore) CreateVulnerability(*db.Vulnerability) error { return db.ErrNotFound }
func (m *memStore) GetVulnerability(int64) (*db.Vulnerability, error) {
	return nil, db.ErrNotFound
}
func (m *memStore) ListVulnerabilities(db.VulnerabilityFilter) ([]*db.Vulnerability, error) {
	return nil, nil
}
func (m *memStore) UpdateVulnerability(*db.Vulnerability) error { return db.ErrNotFound }
func (m *memStore) DeleteVulnerability(int64) error             { return db.ErrNotFound }

func (m *memStore) CreateMaintenanceLog(*db.MaintenanceLog) error { return db.ErrNotFound }
func (m *memStore) GetMaintenanceLog(int64) (*db.MaintenanceLog, error) {
	return nil, db.ErrNotFound
}
func (m *memStore) ListMaintenanceLogs(db.MaintenanceLogFilter) ([]*db.MaintenanceLog, error) {
	return nil, nil
}
func (m *memStore) DeleteMaintenanceLog(int64) error { return db.ErrNotFound }

func testServer() *Server {
	cfg := &config.Config{
		Server: config.ServerConfig{Port: "3000", Mode: "test"},
		JWT: config.JWTConfig{
			Secret:    "test-secret",
			Issuer:    "homelab-manager",
			ExpiresIn: time.Hour,
		},
		RateLimit: config.RateLimitConfig{
			RequestsPerSecond: 1000,
			Burst:             1000,
			AuthPerMinute:     60000,
			AuthBurst:         1000,
		},
	}
	return NewServer(cfg, newMemStore(), zap.NewNop())
}

func do(s *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

func TestServerRouting(t *testing.T) {
	s := testServer()

	register := func(t *testing.T) string {
		w := do(s, http.MethodPost, "/api/v1/auth/register", "", map[string]interface{}{
			"username": "alice",
			"email":    "alice@example.com",
			"password": "Sup3rSecret",
		})
		require.Equal(t, http.StatusCreated, w.Code)

		var body struct {
			Data struct {
				Token string `json:"token"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.NotEmpty(t, body.Data.Token)
		return body.Data.Token
	}

	t.Run("health is public", func(t *testing.T) {
		w := do(s, http.MethodGet, "/api/v1/health", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("metrics endpoint is exposed", func(t *testing.T) {
		w := do(s, http.MethodGet, "/metrics", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("protected routes reject anonymous requests", func(t *testing.T) {
		for _, path := range []string{
			"/api/v1/services",
			"/api/v1/ssl-certificates",
			"/api/v1/vulnerabilities",
			"/api/v1/maintenance-logs",
			"/api/v1/auth/me",
		} {
			w := do(s, http.MethodGet, path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code, "path %s", path)
		}
	})

	t.Run("register then use the token end to end", func(t *testing.T) {
		token := register(t)

		w := do(s, http.MethodPost, "/api/v1/services", token, map[string]interface{}{
			"service_name": "jellyfin",
			"service_type": "web",
		})
		require.Equal(t, http.StatusCreated, w.Code)

		w = do(s, http.MethodGet, "/api/v1/auth/me", token, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("logout accepts requests with or without a token", func(t *testing.T) {
		w := do(s, http.MethodPost, "/api/v1/auth/logout", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = do(s, http.MethodPost, "/api/v1/auth/logout", "garbage-token", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("maintenance logs expose no update route", func(t *testing.T) {
		w := do(s, http.MethodPost, "/api/v1/auth/login", "", map[string]interface{}{
			"identifier": "alice",
			"password":   "Sup3rSecret",
		})
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Data struct {
				Token string `json:"token"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

		put := do(s, http.MethodPut, "/api/v1/maintenance-logs/1", body.Data.Token, map[string]interface{}{
			"title": "rewrite",
		})
		assert.Equal(t, http.StatusNotFound, put.Code)
	})
}
