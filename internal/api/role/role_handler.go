package role

import (
	"log/slog"
	"net/http"

	"github.com/adminkit/adminkit/internal/api"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	ListRoles(w http.ResponseWriter, r *http.Request)
	GetRole(w http.ResponseWriter, r *http.Request)
	CreateRole(w http.ResponseWriter, r *http.Request)
	UpdateRole(w http.ResponseWriter, r *http.Request)
	DeleteRole(w http.ResponseWriter, r *http.Request)
	RestoreRole(w http.ResponseWriter, r *http.Request)
	PurgeRole(w http.ResponseWriter, r *http.Request)
	SearchRoles(w http.ResponseWriter, r *http.Request)
	GetRoleByName(w http.ResponseWriter, r *http.Request)
	GetRoleUserCount(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	roleService RoleService
	logger      *slog.Logger
}

// NewHandlerImpl creates a new role HandlerImpl instance.
func NewHandlerImpl(roleService RoleService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		roleService: roleService,
		logger:      logger,
	}
}

func (h *HandlerImpl) ListRoles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	roles, err := h.roleService.List(ctx, api.ReadOptions(r)...)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to list roles", slog.Any("error", err))
		api.ErrorResponse(w, r, api.HTTPStatus(err), "Failed to list roles")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, roles)
}

func (h *HandlerImpl) GetRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := api.PathUUID(w, r, "id")
	if !ok {
		return
	}
	role, err := h.roleService.Get(ctx, id, api.ReadOptions(r)...)
	if err != nil {
		api.ErrorResponse(w, r, api.HTTPStatus(err), err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, role)
}

func (h *HandlerImpl) CreateRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var params CreateRoleParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role, err := h.roleService.Create(ctx, params)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to create role", slog.Any("error", err))
		api.ErrorResponse(w, r, api.HTTPStatus(err), err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, role)
}

func (h *HandlerImpl) UpdateRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := api.PathUUID(w, r, "id")
	if !ok {
		return
	}
	var params UpdateRoleParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role, err := h.roleService.Update(ctx, id, params)
	if err != nil {
		api.ErrorResponse(w, r, api.HTTPStatus(err), err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, role)
}

func (h *HandlerImpl) DeleteRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := api.PathUUID(w, r, "id")
	if !ok {
		return
	}
	role, err := h.roleService.SoftDelete(ctx, id)
	if err != nil {
		api.ErrorResponse(w, r, api.HTTPStatus(err), err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, role)
}

func (h *HandlerImpl) RestoreRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := api.PathUUID(w, r, "id")
	if !ok {
		return
	}
	role, err := h.roleService.Restore(ctx, id)
	if err != nil {
		api.ErrorResponse(w, r, api.HTTPStatus(err), err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, role)
}

func (h *HandlerImpl) PurgeRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := api.PathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.roleService.HardDelete(ctx, id); err != nil {
		api.ErrorResponse(w, r, api.HTTPStatus(err), err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

func (h *HandlerImpl) SearchRoles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	term := r.URL.Query().Get("q")
	if term == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Missing search term")
		return
	}
	roles, err := h.roleService.Search(ctx, term)
	if err != nil {
		api.ErrorResponse(w, r, api.HTTPStatus(err), "Search failed")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, roles)
}

func (h *HandlerImpl) GetRoleByName(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := r.URL.Query().Get("name")
	if name == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Missing name")
		return
	}
	role, err := h.roleService.FindByName(ctx, name)
	if err != nil {
		api.ErrorResponse(w, r, api.HTTPStatus(err), err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, role)
}

func (h *HandlerImpl) GetRoleUserCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := api.PathUUID(w, r, "id")
	if !ok {
		return
	}
	count, err := h.roleService.UserCount(ctx, id)
	if err != nil {
		api.ErrorResponse(w, r, api.HTTPStatus(err), err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]any{"role_id": id, "users": count})
}
