// Package queue defines message payloads exchanged over the message broker.
package queue

// ComplaintCreatedEvent is published whenever a complaint is filed.
// It carries enough information for downstream consumers to log,
// notify, or feed dashboards without querying the primary database.
type ComplaintCreatedEvent struct {
	ComplaintID uint64  `json:"complaint_id"`
	UserID      uint64  `json:"user_id"`
	UserName    string  `json:"user_name"`
	Category    string  `json:"category"`
	Route       string  `json:"route"`
	BusNumber   string  `json:"bus_number"`
	DistrictID  *uint64 `json:"district_id,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

// ComplaintAssignedEvent is published when the resolver (or a manual
// head action) places a complaint with an admin, so the admin can be
// notified directly.
type ComplaintAssignedEvent struct {
	ComplaintID uint64 `json:"complaint_id"`
	AdminID     uint64 `json:"admin_id"`
	Category    string `json:"category"`
	Route       string `json:"route"`
	Reason      string `json:"reason"`
	AssignedAt  string `json:"assigned_at"`
}
