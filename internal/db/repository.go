package db

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Repository is the persistence layer for all resource kinds. Ownership
// scoping happens in SQL: list queries take an optional owner id and join up
// to services.user_id instead of filtering rows after the fact.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Ping() error {
	return r.db.Ping()
}

// User operations

func (r *Repository) CreateUser(u *User) error {
	query := `
		INSERT INTO users (
			username, email, password_hash, role, first_name, last_name,
			notification_preferences
		) VALUES (
			:username, :email, :password_hash, :role, :first_name, :last_name,
			:notification_preferences
		) RETURNING id, created_at, updated_at`

	rows, err := r.db.NamedQuery(query, u)
	if err != nil {
		return translateError(err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r *Repository) GetUserByID(id int64) (*User, error) {
	var u User
	err := r.db.Get(&u, `SELECT * FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByIdentifier looks a user up by username or email, for login.
func (r *Repository) GetUserByIdentifier(identifier string) (*User, error) {
	var u User
	err := r.db.Get(&u,
		`SELECT * FROM users WHERE username = $1 OR email = $1`, identifier)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repository) DeleteUser(id int64) error {
	res, err := r.db.Exec(`DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRows(res)
}

// translateError maps driver-level constraint violations onto repository
// sentinels.
func translateError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return ErrDuplicate
		case "23503": // foreign_key_violation
			return ErrNotFound
		}
	}
	return err
}

func requireRows(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
