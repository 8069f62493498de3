package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

type VulnerabilityFilter struct {
	OwnerID   *int64
	ServiceID *int64
	Severity  string
	Status    string
}

const vulnOwnerJoin = `
	SELECT v.*, s.user_id AS owner_user_id
	FROM vulnerabilities v
	JOIN services s ON s.id = v.service_id`

func (r *Repository) CreateVulnerability(v *Vulnerability) error {
	query := `
		INSERT INTO vulnerabilities (
			service_id, cve_id, title, description, severity, cvss_score,
			discovered_date, status, patched_date, remediation_notes
		) VALUES (
			:service_id, :cve_id, :title, :description, :severity, :cvss_score,
			:discovered_date, :status, :patched_date, :remediation_notes
		) RETURNING id, created_at, updated_at`

	rows, err := r.db.NamedQuery(query, v)
	if err != nil {
		return translateError(err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r *Repository) GetVulnerability(id int64) (*Vulnerability, error) {
	var v Vulnerability
	err := r.db.Get(&v, vulnOwnerJoin+` WHERE v.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *Repository) ListVulnerabilities(f VulnerabilityFilter) ([]*Vulnerability, error) {
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
		add("v.service_id = $%d", *f.ServiceID)
	}
	if f.Severity != "" {
		add("v.severity = $%d", f.Severity)
	}
	if f.Status != "" {
		add("v.status = $%d", f.Status)
	}

	query := vulnOwnerJoin
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY v.discovered_date DESC"

	vulns := []*Vulnerability{}
	if err := r.db.Select(&vulns, query, args...); err != nil {
		return nil, err
	}
	return vulns, nil
}

func (r *Repository) UpdateVulnerability(v *Vulnerability) error {
	query := `
		UPDATE vulnerabilities SET
			cve_id = :cve_id,
			title = :title,
			description = :description,
			severity = :severity,
			cvss_score = :cvss_score,
			discovered_date = :discovered_date,
			status = :status,
			patched_date = :patched_date,
			remediation_notes = :remediation_notes,
			updated_at = NOW()
		WHERE id = :id`

	res, err := r.db.NamedExec(query, v)
	if err != nil {
		return translateError(err)
	}
	return requireRows(res)
}

func (r *Repository) DeleteVulnerability(id int64) error {
	res, err := r.db.Exec(`DELETE FROM vulnerabilities WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRows(res)
}
