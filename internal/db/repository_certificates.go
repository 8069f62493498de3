package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

type CertificateFilter struct {
	OwnerID   *int64
	ServiceID *int64
	Status    string
}

const certOwnerJoin = `
	SELECT c.*, s.user_id AS owner_user_id
	FROM ssl_certificates c
	JOIN services s ON s.id = c.service_id`

func (r *Repository) CreateCertificate(c *SSLCertificate) error {
	query := `
		INSERT INTO ssl_certificates (
			service_id, domain, issuer, certificate_type, issue_date,
			expiration_date, status, auto_renewal_enabled
		) VALUES (
			:service_id, :domain, :issuer, :certificate_type, :issue_date,
			:expiration_date, :status, :auto_renewal_enabled
		) RETURNING id, created_at, updated_at`

	rows, err := r.db.NamedQuery(query, c)
	if err != nil {
		return translateError(err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r *Repository) GetCertificate(id int64) (*SSLCertificate, error) {
	var c SSLCertificate
	err := r.db.Get(&c, certOwnerJoin+` WHERE c.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) ListCertificates(f CertificateFilter) ([]*SSLCertificate, error) {
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
		add("c.service_id = $%d", *f.ServiceID)
	}
	if f.Status != "" {
		add("c.status = $%d", f.Status)
	}

	query := certOwnerJoin
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY c.expiration_date ASC"

	certs := []*SSLCertificate{}
	if err := r.db.Select(&certs, query, args...); err != nil {
		return nil, err
	}
	return certs, nil
}

// UpdateCertificate writes the full row, including the status the caller
// derived immediately beforehand. The single UPDATE keeps derive-then-persist
// atomic.
func (r *Repository) UpdateCertificate(c *SSLCertificate) error {
	query := `
		UPDATE ssl_certificates SET
			domain = :domain,
			issuer = :issuer,
			certificate_type = :certificate_type,
			issue_date = :issue_date,
			expiration_date = :expiration_date,
			status = :status,
			auto_renewal_enabled = :auto_renewal_enabled,
			updated_at = NOW()
		WHERE id = :id`

	res, err := r.db.NamedExec(query, c)
	if err != nil {
		return translateError(err)
	}
	return requireRows(res)
}

func (r *Repository) DeleteCertificate(id int64) error {
	res, err := r.db.Exec(`DELETE FROM ssl_certificates WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRows(res)
}

// ListExpiringCertificates filters on the last-persisted status, not a fresh
// derivation; rows untouched since expiry may lag until their next write.
func (r *Repository) ListExpiringCertificates(ownerID *int64, cutoff time.Time) ([]*SSLCertificate, error) {
	query := certOwnerJoin + `
		WHERE c.expiration_date <= $1
		AND c.status IN ('valid', 'expiring_soon')
		AND ($2::bigint IS NULL OR s.user_id = $2)
		ORDER BY c.expiration_date ASC`

	certs := []*SSLCertificate{}
	if err := r.db.Select(&certs, query, cutoff, ownerID); err != nil {
		return nil, err
	}
	return certs, nil
}
