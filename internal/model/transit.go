package model

import "time"

// District is a geographic grouping of routes as stored in the
// `districts` table. Districts are used for scoped notifications and
// reporting, not for routing decisions themselves.
type District struct {
	ID       uint64 // districts.id
	Name     string // districts.name
	IsActive bool   // districts.is_active
}

// Route models a bus route in the `routes` table. Complaints may
// reference a route either by its display Name or by its short Code,
// so both columns participate in assignment matching.
//
// Fields:
//  ID         – primary key identifier.
//  DistrictID – district the route belongs to.
//  Name       – human readable route name (e.g. "Express-7").
//  Code       – short route code (e.g. "12A").
//  IsActive   – inactive routes are ignored by the resolver.
type Route struct {
	ID         uint64 // routes.id
	DistrictID uint64 // routes.district_id
	Name       string // routes.name
	Code       string // routes.code
	IsActive   bool   // routes.is_active
}

// Bus models a vehicle in the `buses` table. A bus runs on exactly
// one route; its number is what passengers see and report.
type Bus struct {
	ID        uint64 // buses.id
	BusNumber string // buses.bus_number
	RouteID   uint64 // buses.route_id
	IsActive  bool   // buses.is_active
}

// Assignment priority tiers, highest first. Stored as strings in
// admin_assignments.priority and ranked by the resolver.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// RouteAssignment binds one admin to one route with a priority rank,
// mirroring the `admin_assignments` table. For a given route the
// highest-priority active assignment is canonical; ties are broken by
// the smallest assignment id (earliest insertion).
//
// Rows are replaced wholesale when a head updates an admin's routes:
// the old set is deleted and the new set inserted inside a single
// transaction so the resolver never observes a partial update.
//
// Fields:
//  ID         – primary key identifier.
//  AdminID    – the admin responsible for the route.
//  RouteID    – the route being covered.
//  DistrictID – district of the route, denormalized for notifications.
//  Priority   – "high", "medium" or "low".
//  AssignedBy – head user who created the assignment.
//  CreatedAt  – timestamp of creation.
type RouteAssignment struct {
	ID         uint64    // admin_assignments.id
	AdminID    uint64    // admin_assignments.admin_id
	RouteID    uint64    // admin_assignments.route_id
	DistrictID uint64    // admin_assignments.district_id
	Priority   string    // admin_assignments.priority
	AssignedBy uint64    // admin_assignments.assigned_by
	CreatedAt  time.Time // admin_assignments.created_at
}
