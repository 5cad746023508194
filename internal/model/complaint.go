package model

import "time"

// Complaint statuses as stored in complaints.status.
const (
	ComplaintPending    = "pending"
	ComplaintInProgress = "in-progress"
	ComplaintResolved   = "resolved"
)

// Complaint records a user's report about a bus or route, mirroring
// the `complaints` table. AssignedTo is either nil (unassigned,
// awaiting manual placement by a head) or exactly one admin id that
// was resolved synchronously when the complaint was created. It is
// never a set of candidates.
//
// Fields:
//  ID          – primary key identifier.
//  UserID      – user who filed the complaint.
//  Category    – complaint category (e.g. "delay", "safety", "general").
//  Description – free-text description of the incident.
//  Route       – route name or code as submitted by the user.
//  BusNumber   – bus number as submitted by the user.
//  Status      – "pending", "in-progress" or "resolved".
//  AssignedTo  – admin responsible for the complaint (nullable).
//  DistrictID  – district of the matched route (nullable).
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Complaint struct {
	ID          uint64    // complaints.id
	UserID      uint64    // complaints.user_id
	Category    string    // complaints.category
	Description string    // complaints.description
	Route       string    // complaints.route
	BusNumber   string    // complaints.bus_number
	Status      string    // complaints.status
	AssignedTo  *uint64   // complaints.assigned_to (nullable)
	DistrictID  *uint64   // complaints.district_id (nullable)
	CreatedAt   time.Time // complaints.created_at
	UpdatedAt   time.Time // complaints.updated_at
}
