package user

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/adminkit/adminkit/internal/api"
	"github.com/adminkit/adminkit/internal/record"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	ListUsers(w http.ResponseWriter, r *http.Request)
	GetUser(w http.ResponseWriter, r *http.Request)
	CreateUser(w http.ResponseWriter, r *http.Request)
	UpdateUser(w http.ResponseWriter, r *http.Request)
	DeleteUser(w http.ResponseWriter, r *http.Request)
	RestoreUser(w http.ResponseWriter, r *http.Request)
	PurgeUser(w http.ResponseWriter, r *http.Request)
	SearchUsers(w http.ResponseWriter, r *http.Request)
	CheckAvailability(w http.ResponseWriter, r *http.Request)
	BulkCreateUsers(w http.ResponseWriter, r *http.Request)
	BulkAssignRole(w http.ResponseWriter, r *http.Request)
	BulkAssignGroup(w http.ResponseWriter, r *http.Request)
	BulkDeleteUsers(w http.ResponseWriter, r *http.Request)
	BulkRestoreUsers(w http.ResponseWriter, r *http.Request)
	BulkPurgeUsers(w http.ResponseWriter, r *http.Request)
	RecentlyRegistered(w http.ResponseWriter, r *http.Request)
	ActiveSince(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	userService UserService
	logger      *slog.Logger
}

// NewHandlerImpl creates a new user HandlerImpl instance.
func NewHandlerImpl(userService UserService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		userService: userService,
		logger:      logger,
	}
}

func (h *HandlerImpl) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	users, err := h.userService.List(ctx, api.ReadOptions(r)...)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to list users", slog.Any("error", err))
		api.ErrorResponse(w, r, api.HTTPStatus(err), "Failed to list users")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, users)
}

func (h *HandlerImpl) GetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := api.PathUUID(w, r, "id")
	if !ok {
		return
	}
	u, err := h.userService.Get(ctx, id, api.ReadOptions(r)...)
	if err != nil {
		api.ErrorResponse(w, r, api.HTTPStatus(err), err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, u)
}

func (h *HandlerImpl) CreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var params RegisterParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	u, err := h.userService.Register(ctx, params)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to create user", slog.Any("error", err))
		api.ErrorResponse(w, r, api.HTTPStatus(err), err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, u)
}

func (h *HandlerImpl) UpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := api.PathUUID(w, r, "id")
	if !ok {
		return
	}
	var params UpdateUserParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	u, err := h.userService.Update(ctx, id, params)
	if err != nil {
		api.ErrorResponse(w, r, api.HTTPStatus(err), err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, u)
}

func (h *HandlerImpl) DeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := api.PathUUID(w, r, "id")
	if !ok {
		return
	}
	u, err := h.userService.SoftDelete(ctx, id)
	if err != nil {
		api.ErrorResponse(w, r, api.HTTPStatus(err), err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, u)
}

func (h *HandlerImpl) RestoreUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := api.PathUUID(w, r, "id")
	if !ok {
		return
	}
	u, err := h.userService.Restore(ctx, id)
	if err != nil {
		api.ErrorResponse(w, r, api.HTTPStatus(err), err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, u)
}

func (h *HandlerImpl) PurgeUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := api.PathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.userService.HardDelete(ctx, id); err != nil {
		api.ErrorResponse(w, r, api.HTTPStatus(err), err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

func (h *HandlerImpl) SearchUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	term := r.URL.Query().Get("q")
	if term == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Missing search term")
		return
	}
	users, err := h.userService.Search(ctx, term)
	if err != nil {
		api.ErrorResponse(w, r, api.HTTPStatus(err), "Search failed")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, users)
}

// CheckAvailability answers whether a username or email is free to take.
func (h *HandlerImpl) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var (
		available bool
		err       error
	)
	switch {
	case q.Get("username") != "":
		available, err = h.userService.IsUsernameAvailable(ctx, q.Get("username"))
	case q.Get("email") != "":
		available, err = h.userService.IsEmailAvailable(ctx, q.Get("email"))
	default:
		api.ErrorResponse(w, r, http.StatusBadRequest, "Provide a username or email query parameter")
		return
	}
	if err != nil {
		api.ErrorResponse(w, r, api.HTTPStatus(err), "Availability check failed")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]bool{"available": available})
}

func (h *HandlerImpl) BulkCreateUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req struct {
		Items []record.Fields `json:"items"`
	}
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.userService.BulkCreate(ctx, req.Items)
	if err != nil {
		api.ErrorResponse(w, r, api.HTTPStatus(err), err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, api.BulkResponse(res))
}

func (h *HandlerImpl) BulkAssignRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req struct {
		IDs    []uuid.UUID `json:"ids"`
		RoleID uuid.UUID   `json:"role_id"`
	}
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.userService.BulkUpdateRole(ctx, req.IDs, req.RoleID)
	if err != nil {
		api.ErrorResponse(w, r, api.HTTPStatus(err), err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, api.BulkResponse(res))
}

func (h *HandlerImpl) BulkAssignGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req struct {
		IDs     []uuid.UUID `json:"ids"`
		GroupID uuid.UUID   `json:"group_id"`
	}
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.userService.BulkUpdateGroup(ctx, req.IDs, req.GroupID)
	if err != nil {
		api.ErrorResponse(w, r, api.HTTPStatus(err), err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, api.BulkResponse(res))
}

func (h *HandlerImpl) BulkDeleteUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req api.BulkIDsRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.userService.BulkSoftDelete(ctx, req.IDs)
	if err != nil {
		api.ErrorResponse(w, r, api.HTTPStatus(err), err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, api.BulkResponse(res))
}

func (h *HandlerImpl) BulkRestoreUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req api.BulkIDsRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.userService.BulkRestore(ctx, req.IDs)
	if err != nil {
		api.ErrorResponse(w, r, api.HTTPStatus(err), err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, api.BulkResponse(res))
}

func (h *HandlerImpl) BulkPurgeUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req api.BulkIDsRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.userService.BulkHardDelete(ctx, req.IDs)
	if err != nil {
		api.ErrorResponse(w, r, api.HTTPStatus(err), err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, api.BulkResponse(res))
}

// RecentlyRegistered lists accounts created within the requested window
// (days query parameter, default 7).
func (h *HandlerImpl) RecentlyRegistered(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	since, err := sinceParam(r, 7)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	users, err := h.userService.RecentlyRegistered(ctx, since)
	if err != nil {
		api.ErrorResponse(w, r, api.HTTPStatus(err), "Failed to fetch recent registrations")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, users)
}

// ActiveSince reports how many accounts logged in within the requested
// window (days query parameter, default 30).
func (h *HandlerImpl) ActiveSince(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	since, err := sinceParam(r, 30)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	count, err := h.userService.ActiveSince(ctx, since)
	if err != nil {
		api.ErrorResponse(w, r, api.HTTPStatus(err), "Failed to count active users")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]any{
		"since": since,
		"count": count,
	})
}

func sinceParam(r *http.Request, defaultDays int) (time.Time, error) {
	days := defaultDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return time.Time{}, errors.New("days must be a positive integer")
		}
		days = parsed
	}
	return time.Now().AddDate(0, 0, -days), nil
}
