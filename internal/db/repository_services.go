package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ServiceFilter narrows ListServices. A nil OwnerID means no ownership scope
// (admin); otherwise only that user's services are returned.
type ServiceFilter struct {
	OwnerID      *int64
	ServiceType  string
	Status       string
	PublicFacing *bool
}

func (r *Repository) CreateService(s *Service) error {
	query := `
		INSERT INTO services (
			user_id, service_name, service_type, description, url, port,
			internal_ip, docker_container_name, docker_image, cores_allocated,
			ram_allocated, status, uptime_percentage, last_health_check,
			public_facing, authentication_method, security_score
		) VALUES (
			:user_id, :service_name, :service_type, :description, :url, :port,
			:internal_ip, :docker_container_name, :docker_image, :cores_allocated,
			:ram_allocated, :status, :uptime_percentage, :last_health_check,
			:public_facing, :authentication_method, :security_score
		) RETURNING id, created_at, updated_at`

	rows, err := r.db.NamedQuery(query, s)
	if err != nil {
		return translateError(err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r *Repository) GetService(id int64) (*Service, error) {
	var s Service
	err := r.db.Get(&s, `SELECT * FROM services WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) ListServices(f ServiceFilter) ([]*Service, error) {
	conds := []string{}
	args := []interface{}{}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.OwnerID != nil {
		add("user_id = $%d", *f.OwnerID)
	}
	if f.ServiceType != "" {
		add("service_type = $%d", f.ServiceType)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.PublicFacing != nil {
		add("public_facing = $%d", *f.PublicFacing)
	}

	query := `SELECT * FROM services`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	services := []*Service{}
	if err := r.db.Select(&services, query, args...); err != nil {
		return nil, err
	}
	return services, nil
}

// UpdateService persists every mutable column. user_id is intentionally not
// part of the SET list: ownership never changes after creation.
func (r *Repository) UpdateService(s *Service) error {
	query := `
		UPDATE services SET
			service_name = :service_name,
			service_type = :service_type,
			description = :description,
			url = :url,
			port = :port,
			internal_ip = :internal_ip,
			docker_container_name = :docker_container_name,
			docker_image = :docker_image,
			cores_allocated = :cores_allocated,
			ram_allocated = :ram_allocated,
			status = :status,
			uptime_percentage = :uptime_percentage,
			last_health_check = :last_health_check,
			public_facing = :public_facing,
			authentication_method = :authentication_method,
			security_score = :security_score,
			updated_at = NOW()
		WHERE id = :id`

	res, err := r.db.NamedExec(query, s)
	if err != nil {
		return translateError(err)
	}
	return requireRows(res)
}

// DeleteService removes the service; certificates, vulnerabilities and
// maintenance logs go with it via ON DELETE CASCADE.
func (r *Repository) DeleteService(id int64) error {
	res, err := r.db.Exec(`DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRows(res)
}

// ServiceStats aggregates counts in a single statement. ownerID nil means the
// admin-wide view.
func (r *Repository) ServiceStats(ownerID *int64) (*ServiceStats, error) {
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'running') AS running,
			COUNT(*) FILTER (WHERE status = 'stopped') AS stopped,
			COUNT(*) FILTER (WHERE status = 'error') AS error,
			COUNT(*) FILTER (WHERE status = 'maintenance') AS maintenance,
			COUNT(*) FILTER (WHERE public_facing) AS public_facing
		FROM services
		WHERE ($1::bigint IS NULL OR user_id = $1)`

	var row struct {
		Total        int `db:"total"`
		Running      int `db:"running"`
		Stopped      int `db:"stopped"`
		Error        int `db:"error"`
		Maintenance  int `db:"maintenance"`
		PublicFacing int `db:"public_facing"`
	}
	if err := r.db.Get(&row, query, ownerID); err != nil {
		return nil, err
	}

	return &ServiceStats{
		Total: row.Total,
		ByStatus: map[string]int{
			"running":     row.Running,
			"stopped":     row.Stopped,
			"error":       row.Error,
			"maintenance": row.Maintenance,
		},
		PublicFacing: row.PublicFacing,
		Private:      row.Total - row.PublicFacing,
	}, nil
}
