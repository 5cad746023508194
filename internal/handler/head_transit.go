package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/model"
	"github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/repository"
)

// HeadHandler serves the head-only management surface: districts,
// routes, buses, and the admin route assignments the resolver reads.
type HeadHandler struct {
	Transit     *repository.TransitRepo
	Assignments *repository.AssignmentRepo
	Users       *repository.UserRepo
}

func NewHeadHandler(tr *repository.TransitRepo, ar *repository.AssignmentRepo, ur *repository.UserRepo) *HeadHandler {
	if tr == nil || ar == nil || ur == nil {
		panic("nil repository passed to NewHeadHandler")
	}
	return &HeadHandler{Transit: tr, Assignments: ar, Users: ur}
}

// ----- DTOs -----

type createDistrictReq struct {
	Name string `json:"name"`
}
type createRouteReq struct {
	DistrictID uint64 `json:"district_id"`
	Name       string `json:"name"`
	Code       string `json:"code"`
}
type createBusReq struct {
	BusNumber string `json:"bus_number"`
	RouteID   uint64 `json:"route_id"`
}
type assignRoutesReq struct {
	RouteIDs []uint64 `json:"route_ids"`
}

type districtResp struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}
type routeResp struct {
	ID         uint64 `json:"id"`
	DistrictID uint64 `json:"district_id"`
	Name       string `json:"name"`
	Code       string `json:"code"`
	IsActive   bool   `json:"is_active"`
}
type busResp struct {
	ID        uint64 `json:"id"`
	BusNumber string `json:"bus_number"`
	RouteID   uint64 `json:"route_id"`
	IsActive  bool   `json:"is_active"`
}

// ----- Districts -----

func (h *HeadHandler) CreateDistrict(c echo.Context) error {
	var req createDistrictReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Transit.CreateDistrict(ctx, req.Name)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create district failed"})
	}
	return c.JSON(http.StatusCreated, districtResp{ID: id, Name: req.Name, IsActive: true})
}

func (h *HeadHandler) ListDistricts(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Transit.ListDistricts(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list failed"})
	}
	out := make([]districtResp, 0, len(list))
	for _, d := range list {
		out = append(out, districtResp{ID: d.ID, Name: d.Name, IsActive: d.IsActive})
	}
	return c.JSON(http.StatusOK, echo.Map{"districts": out})
}

// ----- Routes -----

func (h *HeadHandler) CreateRoute(c echo.Context) error {
	var req createRouteReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Code = strings.TrimSpace(req.Code)
	if req.DistrictID == 0 || req.Name == "" || req.Code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "district_id, name and code are required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Transit.CreateRoute(ctx, req.DistrictID, req.Name, req.Code)
	if err == repository.ErrNotFound {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "district not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create route failed"})
	}
	return c.JSON(http.StatusCreated, routeResp{ID: id, DistrictID: req.DistrictID, Name: req.Name, Code: req.Code, IsActive: true})
}

func (h *HeadHandler) ListRoutes(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Transit.ListRoutes(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list failed"})
	}
	out := make([]routeResp, 0, len(list))
	for _, r := range list {
		out = append(out, routeResp{ID: r.ID, DistrictID: r.DistrictID, Name: r.Name, Code: r.Code, IsActive: r.IsActive})
	}
	return c.JSON(http.StatusOK, echo.Map{"routes": out})
}

// ----- Buses -----

func (h *HeadHandler) CreateBus(c echo.Context) error {
	var req createBusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.BusNumber = strings.TrimSpace(req.BusNumber)
	if req.BusNumber == "" || req.RouteID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "bus_number and route_id are required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Transit.CreateBus(ctx, req.BusNumber, req.RouteID)
	if err == repository.ErrConflict {
		return c.JSON(http.StatusConflict, echo.Map{"error": "bus number already exists"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create bus failed"})
	}
	return c.JSON(http.StatusCreated, busResp{ID: id, BusNumber: req.BusNumber, RouteID: req.RouteID, IsActive: true})
}

func (h *HeadHandler) ListBuses(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Transit.ListBuses(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list failed"})
	}
	out := make([]busResp, 0, len(list))
	for _, b := range list {
		out = append(out, busResp{ID: b.ID, BusNumber: b.BusNumber, RouteID: b.RouteID, IsActive: b.IsActive})
	}
	return c.JSON(http.StatusOK, echo.Map{"buses": out})
}

// ----- Admin route assignments -----

// SetAdminRoutes replaces an admin's route set wholesale. Priorities
// follow the submitted order: first route high, second medium, the
// rest low.
func (h *HeadHandler) SetAdminRoutes(c echo.Context) error {
	actor, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	adminID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid admin id"})
	}
	var req assignRoutesReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if len(req.RouteIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "route_ids is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, adminID)
	if err != nil || u.Role != model.RoleAdmin {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "id does not refer to an admin"})
	}

	if err := h.Assignments.ReplaceForAdmin(ctx, adminID, req.RouteIDs, actor); err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "one or more routes not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "assign routes failed"})
	}

	routes, err := h.Assignments.ListForAdmin(ctx, adminID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"admin_id": adminID, "routes": routes})
}

// GetAdminRoutes lists the routes currently assigned to an admin.
func (h *HeadHandler) GetAdminRoutes(c echo.Context) error {
	adminID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid admin id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	routes, err := h.Assignments.ListForAdmin(ctx, adminID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"admin_id": adminID, "routes": routes})
}

// ClearAdminRoutes removes all of an admin's route assignments.
func (h *HeadHandler) ClearAdminRoutes(c echo.Context) error {
	adminID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid admin id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Assignments.DeleteForAdmin(ctx, adminID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "clear failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "assignments cleared", "admin_id": adminID})
}
