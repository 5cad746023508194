package assignment

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/repository"
)

// fakeAssignmentStore serves canned candidates keyed by route
// identifier (name or code).
type fakeAssignmentStore struct {
	byRoute map[string][]repository.AssignmentCandidate
	err     error
	calls   int
}

func (f *fakeAssignmentStore) FindActiveByRoute(_ context.Context, identifier string) ([]repository.AssignmentCandidate, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.byRoute[identifier], nil
}

func (f *fakeAssignmentStore) ListForAdmin(_ context.Context, adminID uint64) ([]repository.AdminRoute, error) {
	return nil, nil
}

type fakeBusStore struct {
	routes map[string]string
	err    error
}

func (f *fakeBusStore) RouteForBus(_ context.Context, busNumber string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	r, ok := f.routes[busNumber]
	if !ok {
		return "", sql.ErrNoRows
	}
	return r, nil
}

type fakeComplaintStore struct {
	lastComplaint uint64
	lastAdmin     *uint64
	err           error
}

func (f *fakeComplaintStore) Reassign(_ context.Context, complaintID uint64, adminID *uint64) error {
	if f.err != nil {
		return f.err
	}
	f.lastComplaint = complaintID
	f.lastAdmin = adminID
	return nil
}

func newTestResolver(a *fakeAssignmentStore, b *fakeBusStore, c *fakeComplaintStore) *Resolver {
	if a == nil {
		a = &fakeAssignmentStore{}
	}
	if b == nil {
		b = &fakeBusStore{}
	}
	if c == nil {
		c = &fakeComplaintStore{}
	}
	return NewResolver(a, b, c)
}

func TestResolveSingleMatch(t *testing.T) {
	store := &fakeAssignmentStore{byRoute: map[string][]repository.AssignmentCandidate{
		"Express-7": {
			{AssignmentID: 10, AdminID: 3, AdminName: "Priya", RouteName: "Express-7", RouteCode: "E7", DistrictID: 2, Priority: "high"},
		},
	}}
	r := newTestResolver(store, nil, nil)

	a, err := r.Resolve(context.Background(), "Express-7", "")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if a == nil {
		t.Fatal("expected an assignment, got nil")
	}
	if a.AdminID != 3 || a.DistrictID != 2 || a.Priority != "high" {
		t.Errorf("unexpected assignment: %+v", a)
	}
	if !strings.Contains(a.Reason, "Express-7") || !strings.Contains(a.Reason, "Priya") {
		t.Errorf("reason should name route and admin, got %q", a.Reason)
	}
}

func TestResolveReasonEchoesSubmittedIdentifier(t *testing.T) {
	// A complaint matched by code must see its own identifier in the
	// reason, not the canonical route name.
	store := &fakeAssignmentStore{byRoute: map[string][]repository.AssignmentCandidate{
		"12A": {
			{AssignmentID: 1, AdminID: 3, AdminName: "Priya", RouteName: "Express Seven", RouteCode: "12A", DistrictID: 2, Priority: "high"},
		},
	}}
	r := newTestResolver(store, nil, nil)

	a, err := r.Resolve(context.Background(), "12A", "")
	if err != nil || a == nil {
		t.Fatalf("Resolve failed: %+v, %v", a, err)
	}
	if !strings.Contains(a.Reason, "'12A'") {
		t.Errorf("reason should quote the submitted identifier, got %q", a.Reason)
	}
	if strings.Contains(a.Reason, "Express Seven") {
		t.Errorf("reason should not substitute the canonical name, got %q", a.Reason)
	}
}

func TestResolveNoMatchLeavesUnassigned(t *testing.T) {
	r := newTestResolver(&fakeAssignmentStore{byRoute: map[string][]repository.AssignmentCandidate{}}, nil, nil)

	a, err := r.Resolve(context.Background(), "Ghost-Route", "")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if a != nil {
		t.Fatalf("expected nil assignment, got %+v", a)
	}
}

func TestResolveEmptyInputs(t *testing.T) {
	store := &fakeAssignmentStore{}
	r := newTestResolver(store, nil, nil)

	a, err := r.Resolve(context.Background(), "", "")
	if err != nil || a != nil {
		t.Fatalf("expected nil, nil for empty inputs, got %+v, %v", a, err)
	}
	if store.calls != 0 {
		t.Errorf("assignment lookup should not run without a route, got %d calls", store.calls)
	}
}

func TestResolvePriorityWins(t *testing.T) {
	store := &fakeAssignmentStore{byRoute: map[string][]repository.AssignmentCandidate{
		"12A": {
			{AssignmentID: 1, AdminID: 7, AdminName: "Low", RouteCode: "12A", DistrictID: 1, Priority: "low"},
			{AssignmentID: 2, AdminID: 8, AdminName: "High", RouteCode: "12A", DistrictID: 1, Priority: "high"},
			{AssignmentID: 3, AdminID: 9, AdminName: "Medium", RouteCode: "12A", DistrictID: 1, Priority: "medium"},
		},
	}}
	r := newTestResolver(store, nil, nil)

	a, err := r.Resolve(context.Background(), "12A", "")
	if err != nil || a == nil {
		t.Fatalf("Resolve failed: %+v, %v", a, err)
	}
	if a.AdminID != 8 {
		t.Errorf("expected high-priority admin 8, got %d", a.AdminID)
	}
}

func TestResolveTieBreakIsDeterministic(t *testing.T) {
	// Two admins at the same priority: the earliest assignment id must
	// win, every single time, regardless of row order.
	candidates := []repository.AssignmentCandidate{
		{AssignmentID: 42, AdminID: 5, AdminName: "Later", RouteName: "Ring-1", DistrictID: 1, Priority: "high"},
		{AssignmentID: 17, AdminID: 4, AdminName: "Earlier", RouteName: "Ring-1", DistrictID: 1, Priority: "high"},
	}
	store := &fakeAssignmentStore{byRoute: map[string][]repository.AssignmentCandidate{"Ring-1": candidates}}
	r := newTestResolver(store, nil, nil)

	for i := 0; i < 20; i++ {
		a, err := r.Resolve(context.Background(), "Ring-1", "")
		if err != nil || a == nil {
			t.Fatalf("run %d: Resolve failed: %+v, %v", i, a, err)
		}
		if a.AdminID != 4 {
			t.Fatalf("run %d: expected admin 4 (assignment 17), got %d", i, a.AdminID)
		}
	}
}

func TestResolveUnknownPrioritySortsLast(t *testing.T) {
	store := &fakeAssignmentStore{byRoute: map[string][]repository.AssignmentCandidate{
		"R": {
			{AssignmentID: 1, AdminID: 1, AdminName: "Odd", RouteName: "R", Priority: "urgent"},
			{AssignmentID: 2, AdminID: 2, AdminName: "Low", RouteName: "R", Priority: "low"},
		},
	}}
	r := newTestResolver(store, nil, nil)

	a, err := r.Resolve(context.Background(), "R", "")
	if err != nil || a == nil {
		t.Fatalf("Resolve failed: %+v, %v", a, err)
	}
	if a.AdminID != 2 {
		t.Errorf("malformed priority should lose to low, got admin %d", a.AdminID)
	}
}

func TestResolveByBusNumber(t *testing.T) {
	store := &fakeAssignmentStore{byRoute: map[string][]repository.AssignmentCandidate{
		"Express-7": {
			{AssignmentID: 1, AdminID: 3, AdminName: "Priya", RouteName: "Express-7", DistrictID: 2, Priority: "medium"},
		},
	}}
	buses := &fakeBusStore{routes: map[string]string{"KA-01-1234": "Express-7"}}
	r := newTestResolver(store, buses, nil)

	byRoute, err := r.Resolve(context.Background(), "Express-7", "")
	if err != nil || byRoute == nil {
		t.Fatalf("route lookup failed: %+v, %v", byRoute, err)
	}
	byBus, err := r.Resolve(context.Background(), "", "KA-01-1234")
	if err != nil || byBus == nil {
		t.Fatalf("bus lookup failed: %+v, %v", byBus, err)
	}
	if byBus.AdminID != byRoute.AdminID {
		t.Errorf("bus and route lookups disagree: %d vs %d", byBus.AdminID, byRoute.AdminID)
	}
}

func TestResolveUnknownBusLeavesUnassigned(t *testing.T) {
	r := newTestResolver(nil, &fakeBusStore{routes: map[string]string{}}, nil)

	a, err := r.Resolve(context.Background(), "", "NO-SUCH-BUS")
	if err != nil || a != nil {
		t.Fatalf("expected nil, nil for unknown bus, got %+v, %v", a, err)
	}
}

func TestResolveRouteIdentifierTakesPrecedence(t *testing.T) {
	store := &fakeAssignmentStore{byRoute: map[string][]repository.AssignmentCandidate{
		"Named": {{AssignmentID: 1, AdminID: 1, AdminName: "A", RouteName: "Named", Priority: "high"}},
		"Bused": {{AssignmentID: 2, AdminID: 2, AdminName: "B", RouteName: "Bused", Priority: "high"}},
	}}
	buses := &fakeBusStore{routes: map[string]string{"B-1": "Bused"}}
	r := newTestResolver(store, buses, nil)

	a, err := r.Resolve(context.Background(), "Named", "B-1")
	if err != nil || a == nil {
		t.Fatalf("Resolve failed: %+v, %v", a, err)
	}
	if a.AdminID != 1 {
		t.Errorf("explicit route must win over bus number, got admin %d", a.AdminID)
	}
}

func TestResolveStoreErrorReturnsNilAssignment(t *testing.T) {
	boom := errors.New("connection refused")
	r := newTestResolver(&fakeAssignmentStore{err: boom}, nil, nil)

	a, err := r.Resolve(context.Background(), "Express-7", "")
	if a != nil {
		t.Fatalf("a storage fault must not produce an assignment, got %+v", a)
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected the storage error back, got %v", err)
	}
}

func TestResolveBusLookupErrorReturnsNilAssignment(t *testing.T) {
	boom := errors.New("timeout")
	r := newTestResolver(nil, &fakeBusStore{err: boom}, nil)

	a, err := r.Resolve(context.Background(), "", "KA-01-1234")
	if a != nil {
		t.Fatalf("expected nil assignment on bus lookup fault, got %+v", a)
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected the lookup error back, got %v", err)
	}
}

func TestReassign(t *testing.T) {
	cs := &fakeComplaintStore{}
	r := newTestResolver(nil, nil, cs)

	admin := uint64(9)
	if err := r.Reassign(context.Background(), 55, &admin, 1); err != nil {
		t.Fatalf("Reassign failed: %v", err)
	}
	if cs.lastComplaint != 55 || cs.lastAdmin == nil || *cs.lastAdmin != 9 {
		t.Errorf("reassign not recorded: complaint=%d admin=%v", cs.lastComplaint, cs.lastAdmin)
	}

	if err := r.Reassign(context.Background(), 55, nil, 1); err != nil {
		t.Fatalf("unassign failed: %v", err)
	}
	if cs.lastAdmin != nil {
		t.Errorf("expected cleared assignment, got %v", *cs.lastAdmin)
	}
}
