package repository

import (
	"context"
	"database/sql"

	"github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/model"
)

// ComplaintRepo provides CRUD operations for complaints. The
// assigned_to column is populated synchronously at creation time from
// the resolver result and mutated afterwards only by explicit manual
// reassignment.
type ComplaintRepo struct{ DB *sql.DB }

func NewComplaintRepo(db *sql.DB) *ComplaintRepo { return &ComplaintRepo{DB: db} }

const complaintColumns = "id,user_id,category,description,route,bus_number,status,assigned_to,district_id,created_at,updated_at"

func scanComplaint(row interface{ Scan(...any) error }) (model.Complaint, error) {
	var c model.Complaint
	err := row.Scan(&c.ID, &c.UserID, &c.Category, &c.Description, &c.Route,
		&c.BusNumber, &c.Status, &c.AssignedTo, &c.DistrictID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// Create inserts a complaint and populates its generated ID. Status
// always starts at "pending".
func (r *ComplaintRepo) Create(ctx context.Context, c *model.Complaint) error {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO complaints (user_id, category, description, route, bus_number, status, assigned_to, district_id)
		VALUES (?,?,?,?,?,'pending',?,?)`,
		c.UserID, c.Category, c.Description, c.Route, c.BusNumber, c.AssignedTo, c.DistrictID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	c.Status = model.ComplaintPending
	return nil
}

// GetByID fetches a complaint by id.
func (r *ComplaintRepo) GetByID(ctx context.Context, id uint64) (model.Complaint, error) {
	c, err := scanComplaint(r.DB.QueryRowContext(ctx,
		"SELECT "+complaintColumns+" FROM complaints WHERE id=? LIMIT 1", id))
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	return c, err
}

// ListByUser returns a user's own complaints, newest first.
func (r *ComplaintRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Complaint, error) {
	return r.list(ctx,
		"SELECT "+complaintColumns+" FROM complaints WHERE user_id=? ORDER BY created_at DESC", userID)
}

// ListByAssignee returns the complaints currently owned by an admin,
// newest first.
func (r *ComplaintRepo) ListByAssignee(ctx context.Context, adminID uint64) ([]model.Complaint, error) {
	return r.list(ctx,
		"SELECT "+complaintColumns+" FROM complaints WHERE assigned_to=? ORDER BY created_at DESC", adminID)
}

// ListUnassigned returns pending complaints with no admin, newest
// first. These are the complaints whose route matched no assignment
// and which a head must place manually.
func (r *ComplaintRepo) ListUnassigned(ctx context.Context) ([]model.Complaint, error) {
	return r.list(ctx,
		"SELECT "+complaintColumns+" FROM complaints WHERE assigned_to IS NULL AND status='pending' ORDER BY created_at DESC")
}

func (r *ComplaintRepo) list(ctx context.Context, query string, args ...any) ([]model.Complaint, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Complaint
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Reassign sets (or clears, with nil) the assigned admin of a
// complaint. Returns ErrNotFound when the complaint does not exist.
func (r *ComplaintRepo) Reassign(ctx context.Context, complaintID uint64, adminID *uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE complaints SET assigned_to=?, updated_at=NOW() WHERE id=?", adminID, complaintID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus moves a complaint to a new status. The caller is
// responsible for validating the status value and the actor's rights.
func (r *ComplaintRepo) UpdateStatus(ctx context.Context, complaintID uint64, status string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE complaints SET status=?, updated_at=NOW() WHERE id=?", status, complaintID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
