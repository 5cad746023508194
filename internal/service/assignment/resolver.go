// Package assignment implements deterministic complaint routing.
//
// Each complaint is matched to exactly one admin, or stays
// unassigned. Routing is by route match only: the admin's assigned
// routes must contain the complaint's route. When several admins
// cover the route, the highest-priority assignment wins, with ties
// broken by the smallest assignment id. There is no broadcast and no
// workload balancing.
package assignment

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/model"
	"github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/repository"
)

// AssignmentStore is the slice of the assignment repository the
// resolver reads.
type AssignmentStore interface {
	FindActiveByRoute(ctx context.Context, identifier string) ([]repository.AssignmentCandidate, error)
	ListForAdmin(ctx context.Context, adminID uint64) ([]repository.AdminRoute, error)
}

// BusStore resolves a bus number to its route identifier.
type BusStore interface {
	RouteForBus(ctx context.Context, busNumber string) (string, error)
}

// ComplaintStore is the slice of the complaint repository used for
// manual reassignment.
type ComplaintStore interface {
	Reassign(ctx context.Context, complaintID uint64, adminID *uint64) error
}

// Assignment is the resolver's verdict for one complaint: the single
// responsible admin, the district for scoped notifications, and a
// human-readable reason recorded alongside the complaint.
type Assignment struct {
	AdminID    uint64
	AdminName  string
	DistrictID uint64
	Priority   string
	Reason     string
}

// Resolver maps newly created complaints to admins.
type Resolver struct {
	assignments AssignmentStore
	buses       BusStore
	complaints  ComplaintStore
}

func NewResolver(a AssignmentStore, b BusStore, c ComplaintStore) *Resolver {
	return &Resolver{assignments: a, buses: b, complaints: c}
}

// priorityRank orders the priority tiers; unknown values sort last so
// a malformed row can never shadow a valid one.
func priorityRank(p string) int {
	switch p {
	case model.PriorityHigh:
		return 0
	case model.PriorityMedium:
		return 1
	case model.PriorityLow:
		return 2
	}
	return 3
}

// Resolve picks at most one admin for a complaint. When no route
// identifier is given, the bus number is used to look one up. The
// returned error reports storage faults for logging only: a non-nil
// error always comes with a nil assignment, and complaint creation
// must proceed unassigned rather than fail.
func (r *Resolver) Resolve(ctx context.Context, routeIdentifier, busNumber string) (*Assignment, error) {
	route := strings.TrimSpace(routeIdentifier)

	if route == "" && busNumber != "" {
		name, err := r.buses.RouteForBus(ctx, strings.TrimSpace(busNumber))
		switch {
		case err == sql.ErrNoRows || err == repository.ErrNotFound:
			log.Printf("resolver: bus %q has no active route, complaint will be unassigned", busNumber)
			return nil, nil
		case err != nil:
			log.Printf("resolver: bus lookup failed for %q: %v", busNumber, err)
			return nil, err
		}
		route = name
		log.Printf("resolver: resolved route %q from bus %q", route, busNumber)
	}

	if route == "" {
		log.Printf("resolver: no route provided, complaint will be unassigned")
		return nil, nil
	}

	candidates, err := r.assignments.FindActiveByRoute(ctx, route)
	if err != nil {
		log.Printf("resolver: assignment lookup failed for route %q: %v", route, err)
		return nil, err
	}
	if len(candidates) == 0 {
		log.Printf("resolver: route %q has no assigned admin, complaint will be unassigned", route)
		return nil, nil
	}

	// The store returns rows highest-priority first, but the winner is
	// re-derived here so the pick never depends on incidental ordering.
	sort.SliceStable(candidates, func(i, j int) bool {
		ri, rj := priorityRank(candidates[i].Priority), priorityRank(candidates[j].Priority)
		if ri != rj {
			return ri < rj
		}
		return candidates[i].AssignmentID < candidates[j].AssignmentID
	})
	win := candidates[0]

	// The reason echoes the identifier as the complaint submitted it
	// (name or code), not the canonical route name.
	a := &Assignment{
		AdminID:    win.AdminID,
		AdminName:  win.AdminName,
		DistrictID: win.DistrictID,
		Priority:   win.Priority,
		Reason:     fmt.Sprintf("Route '%s' is assigned to admin '%s'", route, win.AdminName),
	}
	log.Printf("resolver: route %q -> admin %q (id=%d, priority=%s)", route, win.AdminName, win.AdminID, win.Priority)
	return a, nil
}

// RoutesForAdmin lists the routes an admin currently owns, for
// reassignment UIs.
func (r *Resolver) RoutesForAdmin(ctx context.Context, adminID uint64) ([]repository.AdminRoute, error) {
	return r.assignments.ListForAdmin(ctx, adminID)
}

// Reassign performs a manual, auditable override of a complaint's
// owner. A nil adminID unassigns the complaint.
func (r *Resolver) Reassign(ctx context.Context, complaintID uint64, adminID *uint64, actorID uint64) error {
	if err := r.complaints.Reassign(ctx, complaintID, adminID); err != nil {
		return err
	}
	if adminID != nil {
		log.Printf("resolver: complaint %d manually reassigned to admin %d by user %d", complaintID, *adminID, actorID)
	} else {
		log.Printf("resolver: complaint %d manually unassigned by user %d", complaintID, actorID)
	}
	return nil
}
