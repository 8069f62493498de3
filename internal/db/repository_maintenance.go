package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

type MaintenanceLogFilter struct {
	OwnerID         *int64
	ServiceID       *int64
	MaintenanceType string
	Success         *bool
}

const logOwnerJoin = `
	SELECT m.*, s.user_id AS owner_user_id
	FROM maintenance_logs m
	JOIN services s ON s.id = m.service_id`

func (r *Repository) CreateMaintenanceLog(m *MaintenanceLog) error {
	query := `
		INSERT INTO maintenance_logs (
			service_id, performed_by_user_id, maintenance_date, maintenance_type,
			title, description, downtime_minutes, version_before, version_after,
			success, notes
		) VALUES (
			:service_id, :performed_by_user_id, :maintenance_date, :maintenance_type,
			:title, :description, :downtime_minutes, :version_before, :version_after,
			:success, :notes
		) RETURNING id, created_at`

	rows, err := r.db.NamedQuery(query, m)
	if err != nil {
		return translateError(err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&m.ID, &m.CreatedAt); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r *Repository) GetMaintenanceLog(id int64) (*MaintenanceLog, error) {
	var m MaintenanceLog
	err := r.db.Get(&m, logOwnerJoin+` WHERE m.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repository) ListMaintenanceLogs(f MaintenanceLogFilter) ([]*MaintenanceLog, error) {
	conds := []string{}
	args := []interface{}{}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.OwnerID != nil {
		add("s.user_id = $%d", *f.OwnerID)
	}
	if f.ServiceID != nil {
		add("m.service_id = $%d", *f.ServiceID)
	}
	if f.MaintenanceType != "" {
		add("m.maintenance_type = $%d", f.MaintenanceType)
	}
	if f.Success != nil {
		add("m.success = $%d", *f.Success)
	}

	query := logOwnerJoin
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY m.maintenance_date DESC"

	logs := []*MaintenanceLog{}
	if err := r.db.Select(&logs, query, args...); err != nil {
		return nil, err
	}
	return logs, nil
}

// Maintenance logs are append-only: there is deliberately no update method.

func (r *Repository) DeleteMaintenanceLog(id int64) error {
	res, err := r.db.Exec(`DELETE FROM maintenance_logs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRows(res)
}
