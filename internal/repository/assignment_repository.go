package repository

import (
	"context"
	"database/sql"

	"github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/model"
)

// AssignmentRepo persists the route→admin priority table read by the
// auto-assignment resolver and written by head management endpoints.
type AssignmentRepo struct{ DB *sql.DB }

func NewAssignmentRepo(db *sql.DB) *AssignmentRepo { return &AssignmentRepo{DB: db} }

// AssignmentCandidate is one active route assignment matched against
// a complaint's route identifier, joined with the admin and route
// rows the resolver needs to pick a winner and explain the choice.
type AssignmentCandidate struct {
	AssignmentID uint64
	AdminID      uint64
	AdminName    string
	RouteName    string
	RouteCode    string
	DistrictID   uint64
	Priority     string
}

// FindActiveByRoute returns every active assignment whose route
// matches the identifier by name or by code (complaints may submit
// either form), restricted to active admin accounts. Rows come back
// ordered highest priority first with ties broken by the smallest
// assignment id, so the first row is the canonical owner.
func (r *AssignmentRepo) FindActiveByRoute(ctx context.Context, identifier string) ([]AssignmentCandidate, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT aa.id, aa.admin_id, u.name, r.name, r.code, r.district_id, aa.priority
		FROM admin_assignments aa
		JOIN routes r ON aa.route_id = r.id
		JOIN users u ON aa.admin_id = u.id
		WHERE (r.name = ? OR r.code = ?)
		  AND u.is_active = 1
		  AND u.role = 'admin'
		  AND r.is_active = 1
		ORDER BY FIELD(aa.priority, 'high', 'medium', 'low'), aa.id`,
		identifier, identifier)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AssignmentCandidate
	for rows.Next() {
		var c AssignmentCandidate
		if err := rows.Scan(&c.AssignmentID, &c.AdminID, &c.AdminName,
			&c.RouteName, &c.RouteCode, &c.DistrictID, &c.Priority); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AdminRoute describes one route owned by an admin, as shown in
// reassignment UIs.
type AdminRoute struct {
	RouteID      uint64  `json:"route_id"`
	Name         string  `json:"name"`
	Code         string  `json:"code"`
	Priority     string  `json:"priority"`
	DistrictName *string `json:"district_name,omitempty"`
}

// ListForAdmin returns the active routes currently assigned to an
// admin, highest priority first.
func (r *AssignmentRepo) ListForAdmin(ctx context.Context, adminID uint64) ([]AdminRoute, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT r.id, r.name, r.code, aa.priority, d.name
		FROM admin_assignments aa
		JOIN routes r ON aa.route_id = r.id
		LEFT JOIN districts d ON r.district_id = d.id
		WHERE aa.admin_id = ? AND r.is_active = 1
		ORDER BY FIELD(aa.priority, 'high', 'medium', 'low'), aa.id`, adminID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AdminRoute
	for rows.Next() {
		var ar AdminRoute
		if err := rows.Scan(&ar.RouteID, &ar.Name, &ar.Code, &ar.Priority, &ar.DistrictName); err != nil {
			return nil, err
		}
		out = append(out, ar)
	}
	return out, rows.Err()
}

// ReplaceForAdmin atomically replaces the full route set of one admin:
// old rows are deleted and the new set inserted inside a single
// transaction, so the resolver never observes a partially updated set.
// Priority is derived from position, first routes ranked highest, the
// fourth route onward staying at "low".
func (r *AssignmentRepo) ReplaceForAdmin(ctx context.Context, adminID uint64, routeIDs []uint64, assignedBy uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM admin_assignments WHERE admin_id=?", adminID); err != nil {
		return err
	}

	tiers := []string{model.PriorityHigh, model.PriorityMedium, model.PriorityLow}
	for i, routeID := range routeIDs {
		var districtID uint64
		err := tx.QueryRowContext(ctx,
			"SELECT district_id FROM routes WHERE id=? AND is_active=1", routeID).Scan(&districtID)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		priority := tiers[min(i, len(tiers)-1)]
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO admin_assignments (admin_id, route_id, district_id, priority, assigned_by) VALUES (?,?,?,?,?)",
			adminID, routeID, districtID, priority, assignedBy); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DeleteForAdmin revokes every assignment held by an admin.
func (r *AssignmentRepo) DeleteForAdmin(ctx context.Context, adminID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM admin_assignments WHERE admin_id=?", adminID)
	return err
}
