package handler

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/model"
	"github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/queue"
	"github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/repository"
	"github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/service/assignment"
	queuepub "github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/service/queue_publisher"
)

// ComplaintHandler serves complaint filing and tracking for users,
// the assigned-work views for admins, and the manual reassignment
// escape hatch for heads.
type ComplaintHandler struct {
	Complaints *repository.ComplaintRepo
	Users      *repository.UserRepo
	Resolver   *assignment.Resolver
}

func NewComplaintHandler(cr *repository.ComplaintRepo, ur *repository.UserRepo, res *assignment.Resolver) *ComplaintHandler {
	if cr == nil || ur == nil || res == nil {
		panic("nil dependency passed to NewComplaintHandler")
	}
	return &ComplaintHandler{Complaints: cr, Users: ur, Resolver: res}
}

// ----- DTOs -----

type createComplaintReq struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	Route       string `json:"route"`
	BusNumber   string `json:"bus_number"`
}
type assignAdminReq struct {
	AdminID *uint64 `json:"admin_id"` // null clears the assignment
}
type statusReq struct {
	Status string `json:"status"`
}

type complaintResp struct {
	ID          uint64    `json:"id"`
	UserID      uint64    `json:"user_id"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Route       string    `json:"route,omitempty"`
	BusNumber   string    `json:"bus_number,omitempty"`
	Status      string    `json:"status"`
	AssignedTo  *uint64   `json:"assigned_to"`
	DistrictID  *uint64   `json:"district_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toComplaintResp(m model.Complaint) complaintResp {
	return complaintResp{
		ID:          m.ID,
		UserID:      m.UserID,
		Category:    m.Category,
		Description: m.Description,
		Route:       m.Route,
		BusNumber:   m.BusNumber,
		Status:      m.Status,
		AssignedTo:  m.AssignedTo,
		DistrictID:  m.DistrictID,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toComplaintList(ms []model.Complaint) []complaintResp {
	out := make([]complaintResp, 0, len(ms))
	for _, m := range ms {
		out = append(out, toComplaintResp(m))
	}
	return out
}

// Create files a complaint. Assignment resolution runs synchronously
// before the insert; if it cannot produce a single admin the
// complaint is stored unassigned and a head places it later. A
// resolver failure never blocks the filing itself.
func (h *ComplaintHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req createComplaintReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Description = strings.TrimSpace(req.Description)
	req.Route = strings.TrimSpace(req.Route)
	req.BusNumber = strings.TrimSpace(req.BusNumber)
	req.Category = strings.TrimSpace(req.Category)
	if req.Description == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "description is required"})
	}
	if req.Route == "" && req.BusNumber == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "route or bus_number is required"})
	}
	if req.Category == "" {
		req.Category = "general"
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	// Assignment errors are logged inside the resolver; the complaint
	// still gets filed and simply lands unassigned.
	asg, _ := h.Resolver.Resolve(ctx, req.Route, req.BusNumber)

	cm := model.Complaint{
		UserID:      uid,
		Category:    req.Category,
		Description: req.Description,
		Route:       req.Route,
		BusNumber:   req.BusNumber,
	}
	if asg != nil {
		adminID := asg.AdminID
		districtID := asg.DistrictID
		cm.AssignedTo = &adminID
		cm.DistrictID = &districtID
	}

	if err := h.Complaints.Create(ctx, &cm); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create complaint failed"})
	}

	userName := ""
	if u, err := h.Users.GetByID(ctx, uid); err == nil {
		userName = u.Name
	}
	h.publishCreated(cm, userName, asg)

	body := echo.Map{"complaint": toComplaintResp(cm)}
	if asg != nil {
		body["assignment"] = echo.Map{
			"admin_id":   asg.AdminID,
			"admin_name": asg.AdminName,
			"priority":   asg.Priority,
			"reason":     asg.Reason,
		}
	}
	return c.JSON(http.StatusCreated, body)
}

// publishCreated fans the new complaint out to the broker. Delivery
// is best effort and detached from the request lifecycle.
func (h *ComplaintHandler) publishCreated(cm model.Complaint, userName string, asg *assignment.Assignment) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		created := queue.ComplaintCreatedEvent{
			ComplaintID: cm.ID,
			UserID:      cm.UserID,
			UserName:    userName,
			Category:    cm.Category,
			Route:       cm.Route,
			BusNumber:   cm.BusNumber,
			DistrictID:  cm.DistrictID,
			CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		}
		if err := queuepub.PublishComplaintCreated(ctx, created); err != nil {
			log.Printf("publish complaint.created for %d failed: %v", cm.ID, err)
		}
		if asg == nil {
			return
		}
		assigned := queue.ComplaintAssignedEvent{
			ComplaintID: cm.ID,
			AdminID:     asg.AdminID,
			Category:    cm.Category,
			Route:       cm.Route,
			Reason:      asg.Reason,
			AssignedAt:  time.Now().UTC().Format(time.RFC3339),
		}
		if err := queuepub.PublishComplaintAssigned(ctx, assigned); err != nil {
			log.Printf("publish complaint.assigned for %d failed: %v", cm.ID, err)
		}
	}()
}

// ListMine returns the caller's complaints, newest first.
func (h *ComplaintHandler) ListMine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Complaints.ListByUser(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"complaints": toComplaintList(list)})
}

// Get returns one complaint. Access is limited to the filer, the
// assigned admin, and heads.
func (h *ComplaintHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid complaint id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cm, err := h.Complaints.GetByID(ctx, id)
	if err == repository.ErrNotFound {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "complaint not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}

	role, _ := c.Get("role").(string)
	allowed := cm.UserID == uid ||
		role == model.RoleHead ||
		(cm.AssignedTo != nil && *cm.AssignedTo == uid && role == model.RoleAdmin)
	if !allowed {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusOK, toComplaintResp(cm))
}

// Assigned returns the complaints currently placed with the calling
// admin.
func (h *ComplaintHandler) Assigned(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Complaints.ListByAssignee(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"complaints": toComplaintList(list)})
}

// UpdateStatus moves a complaint along pending -> in-progress ->
// resolved. Admins may only touch complaints assigned to them; heads
// may touch any.
func (h *ComplaintHandler) UpdateStatus(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid complaint id"})
	}
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	switch req.Status {
	case model.ComplaintInProgress, model.ComplaintResolved:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be in-progress or resolved"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cm, err := h.Complaints.GetByID(ctx, id)
	if err == repository.ErrNotFound {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "complaint not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}

	role, _ := c.Get("role").(string)
	if role != model.RoleHead && (cm.AssignedTo == nil || *cm.AssignedTo != uid) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "complaint is not assigned to you"})
	}

	if err := h.Complaints.UpdateStatus(ctx, id, req.Status); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "status updated", "status": req.Status})
}

// Unassigned lists complaints that the resolver could not place.
func (h *ComplaintHandler) Unassigned(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Complaints.ListUnassigned(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"complaints": toComplaintList(list)})
}

// Reassign lets a head move a complaint to a specific admin, or clear
// the assignment by sending a null admin_id.
func (h *ComplaintHandler) Reassign(c echo.Context) error {
	actor, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid complaint id"})
	}
	var req assignAdminReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if req.AdminID != nil {
		u, err := h.Users.GetByID(ctx, *req.AdminID)
		if err != nil || u.Role != model.RoleAdmin || !u.IsActive {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "admin_id does not refer to an active admin"})
		}
	}

	if err := h.Resolver.Reassign(ctx, id, req.AdminID, actor); err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "complaint not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reassign failed"})
	}

	if req.AdminID != nil {
		cm, err := h.Complaints.GetByID(ctx, id)
		if err == nil {
			adminID := *req.AdminID
			go func() {
				pctx, pcancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer pcancel()
				ev := queue.ComplaintAssignedEvent{
					ComplaintID: cm.ID,
					AdminID:     adminID,
					Category:    cm.Category,
					Route:       cm.Route,
					Reason:      "manually assigned",
					AssignedAt:  time.Now().UTC().Format(time.RFC3339),
				}
				if err := queuepub.PublishComplaintAssigned(pctx, ev); err != nil {
					log.Printf("publish complaint.assigned for %d failed: %v", cm.ID, err)
				}
			}()
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "complaint reassigned"})
}
