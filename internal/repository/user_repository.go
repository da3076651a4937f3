package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/event-auth/internal/model"
)

// UserRepo provides access to the 'users' table plus the read-only event
// and ticket relations needed for the profile view.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,name,email,password_hash,role,created_at,updated_at"

// Create inserts a user and returns the stored record. The password must
// already be hashed by the caller; this layer never sees plaintext.
// Uniqueness of the email is enforced by the database key, so a losing
// racer gets ErrEmailExists here even if a prior existence check passed.
func (r *UserRepo) Create(ctx context.Context, name, email, passwordHash, role string) (model.User, error) {
	u := model.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(name),
		Email:        strings.TrimSpace(email),
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	u.UpdatedAt = u.CreatedAt
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (id, name, email, password_hash, role, created_at, updated_at) VALUES (?,?,?,?,?,?,?)",
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		// MySQL error 1062 = duplicate entry on a unique key.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return model.User{}, ErrEmailExists
		}
		return model.User{}, err
	}
	return u, nil
}

// GetByEmail fetches a user by exact email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// GetProfile fetches a user together with the events they organize and
// the tickets they hold.
func (r *UserRepo) GetProfile(ctx context.Context, id string) (model.Profile, error) {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return model.Profile{}, err
	}
	p := model.Profile{User: u, Events: []model.Event{}, Tickets: []model.Ticket{}}

	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,title,description,date,venue,organizer_id,created_at FROM events WHERE organizer_id=? ORDER BY date",
		id)
	if err != nil {
		return model.Profile{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var ev model.Event
		if err := rows.Scan(&ev.ID, &ev.Title, &ev.Description, &ev.Date, &ev.Venue, &ev.OrganizerID, &ev.CreatedAt); err != nil {
			return model.Profile{}, err
		}
		p.Events = append(p.Events, ev)
	}
	if err := rows.Err(); err != nil {
		return model.Profile{}, err
	}

	trows, err := r.DB.QueryContext(ctx,
		"SELECT id,event_id,user_id,status,created_at FROM tickets WHERE user_id=? ORDER BY created_at",
		id)
	if err != nil {
		return model.Profile{}, err
	}
	defer trows.Close()
	for trows.Next() {
		var tk model.Ticket
		if err := trows.Scan(&tk.ID, &tk.EventID, &tk.UserID, &tk.Status, &tk.CreatedAt); err != nil {
			return model.Profile{}, err
		}
		p.Tickets = append(p.Tickets, tk)
	}
	if err := trows.Err(); err != nil {
		return model.Profile{}, err
	}
	return p, nil
}

// UpdatePassword replaces the stored password hash for a user.
func (r *UserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, updated_at=? WHERE id=?",
		passwordHash, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.User{}, ErrNotFound
	}
	return u, err
}
