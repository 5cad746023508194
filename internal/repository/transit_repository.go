package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/model"
)

// TransitRepo provides CRUD operations for districts, routes and
// buses. These tables are written by head-role management endpoints
// and read by the assignment resolver.
type TransitRepo struct{ DB *sql.DB }

func NewTransitRepo(db *sql.DB) *TransitRepo { return &TransitRepo{DB: db} }

// CreateDistrict inserts a district and returns its ID.
func (r *TransitRepo) CreateDistrict(ctx context.Context, name string) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO districts (name) VALUES (?)", strings.TrimSpace(name))
	if err != nil {
		if strings.Contains(err.Error(), "1062") {
			return 0, ErrConflict
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// ListDistricts returns all active districts ordered by name.
func (r *TransitRepo) ListDistricts(ctx context.Context) ([]model.District, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,name,is_active FROM districts WHERE is_active=1 ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.District
	for rows.Next() {
		var d model.District
		if err := rows.Scan(&d.ID, &d.Name, &d.IsActive); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CreateRoute inserts a route under a district and returns its ID.
func (r *TransitRepo) CreateRoute(ctx context.Context, districtID uint64, name, code string) (uint64, error) {
	// Verify the district exists before inserting so the caller gets a
	// clean ErrNotFound instead of a foreign key failure.
	var did uint64
	if err := r.DB.QueryRowContext(ctx,
		"SELECT id FROM districts WHERE id=? AND is_active=1", districtID).Scan(&did); err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrNotFound
		}
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO routes (district_id, name, code) VALUES (?,?,?)",
		districtID, strings.TrimSpace(name), strings.TrimSpace(code))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// ListRoutes returns all active routes ordered by name.
func (r *TransitRepo) ListRoutes(ctx context.Context) ([]model.Route, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,district_id,name,code,is_active FROM routes WHERE is_active=1 ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Route
	for rows.Next() {
		var rt model.Route
		if err := rows.Scan(&rt.ID, &rt.DistrictID, &rt.Name, &rt.Code, &rt.IsActive); err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

// GetRoute fetches a single route by id.
func (r *TransitRepo) GetRoute(ctx context.Context, id uint64) (model.Route, error) {
	var rt model.Route
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,district_id,name,code,is_active FROM routes WHERE id=? LIMIT 1",
		id).Scan(&rt.ID, &rt.DistrictID, &rt.Name, &rt.Code, &rt.IsActive)
	if err == sql.ErrNoRows {
		return rt, ErrNotFound
	}
	return rt, err
}

// CreateBus inserts a bus on a route and returns its ID.
func (r *TransitRepo) CreateBus(ctx context.Context, busNumber string, routeID uint64) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO buses (bus_number, route_id) VALUES (?,?)",
		strings.TrimSpace(busNumber), routeID)
	if err != nil {
		if strings.Contains(err.Error(), "1062") {
			return 0, ErrConflict
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// ListBuses returns all active buses ordered by bus number.
func (r *TransitRepo) ListBuses(ctx context.Context) ([]model.Bus, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,bus_number,route_id,is_active FROM buses WHERE is_active=1 ORDER BY bus_number")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Bus
	for rows.Next() {
		var b model.Bus
		if err := rows.Scan(&b.ID, &b.BusNumber, &b.RouteID, &b.IsActive); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// RouteForBus resolves the route identifier carried by an active bus.
// The route name is preferred; the code is used when the name is
// empty. sql.ErrNoRows is returned when the bus or its route is
// missing or inactive.
func (r *TransitRepo) RouteForBus(ctx context.Context, busNumber string) (string, error) {
	var name, code string
	err := r.DB.QueryRowContext(ctx, `
		SELECT r.name, r.code
		FROM buses b
		JOIN routes r ON b.route_id = r.id
		WHERE b.bus_number = ? AND b.is_active = 1 AND r.is_active = 1
		LIMIT 1`, busNumber).Scan(&name, &code)
	if err != nil {
		return "", err
	}
	if name != "" {
		return name, nil
	}
	return code, nil
}
