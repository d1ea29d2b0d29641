package group

import (
	"log/slog"
	"net/http"

	"github.com/adminkit/adminkit/internal/api"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	ListGroups(w http.ResponseWriter, r *http.Request)
	GetGroup(w http.ResponseWriter, r *http.Request)
	CreateGroup(w http.ResponseWriter, r *http.Request)
	UpdateGroup(w http.ResponseWriter, r *http.Request)
	DeleteGroup(w http.ResponseWriter, r *http.Request)
	RestoreGroup(w http.ResponseWriter, r *http.Request)
	PurgeGroup(w http.ResponseWriter, r *http.Request)
	SearchGroups(w http.ResponseWriter, r *http.Request)
	GetGroupByName(w http.ResponseWriter, r *http.Request)
	GetGroupUserCount(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	groupService GroupService
	logger       *slog.Logger
}

// NewHandlerImpl creates a new group HandlerImpl instance.
func NewHandlerImpl(groupService GroupService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		groupService: groupService,
		logger:       logger,
	}
}

func (h *HandlerImpl) ListGroups(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groups, err := h.groupService.List(ctx, api.ReadOptions(r)...)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to list groups", slog.Any("error", err))
		api.ErrorResponse(w, r, api.HTTPStatus(err), "Failed to list groups")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, groups)
}

func (h *HandlerImpl) GetGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := api.PathUUID(w, r, "id")
	if !ok {
		return
	}
	g, err := h.groupService.Get(ctx, id, api.ReadOptions(r)...)
	if err != nil {
		api.ErrorResponse(w, r, api.HTTPStatus(err), err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, g)
}

func (h *HandlerImpl) CreateGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var params CreateGroupParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	g, err := h.groupService.Create(ctx, params)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to create group", slog.Any("error", err))
		api.ErrorResponse(w, r, api.HTTPStatus(err), err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, g)
}

func (h *HandlerImpl) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := api.PathUUID(w, r, "id")
	if !ok {
		return
	}
	var params UpdateGroupParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	g, err := h.groupService.Update(ctx, id, params)
	if err != nil {
		api.ErrorResponse(w, r, api.HTTPStatus(err), err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, g)
}

func (h *HandlerImpl) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := api.PathUUID(w, r, "id")
	if !ok {
		return
	}
	g, err := h.groupService.SoftDelete(ctx, id)
	if err != nil {
		api.ErrorResponse(w, r, api.HTTPStatus(err), err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, g)
}

func (h *HandlerImpl) RestoreGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := api.PathUUID(w, r, "id")
	if !ok {
		return
	}
	g, err := h.groupService.Restore(ctx, id)
	if err != nil {
		api.ErrorResponse(w, r, api.HTTPStatus(err), err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, g)
}

func (h *HandlerImpl) PurgeGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := api.PathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.groupService.HardDelete(ctx, id); err != nil {
		api.ErrorResponse(w, r, api.HTTPStatus(err), err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

func (h *HandlerImpl) SearchGroups(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	term := r.URL.Query().Get("q")
	if term == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Missing search term")
		return
	}
	groups, err := h.groupService.Search(ctx, term)
	if err != nil {
		api.ErrorResponse(w, r, api.HTTPStatus(err), "Search failed")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, groups)
}

func (h *HandlerImpl) GetGroupByName(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := r.URL.Query().Get("name")
	if name == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Missing name")
		return
	}
	g, err := h.groupService.FindByName(ctx, name)
	if err != nil {
		api.ErrorResponse(w, r, api.HTTPStatus(err), err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, g)
}

func (h *HandlerImpl) GetGroupUserCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := api.PathUUID(w, r, "id")
	if !ok {
		return
	}
	count, err := h.groupService.UserCount(ctx, id)
	if err != nil {
		api.ErrorResponse(w, r, api.HTTPStatus(err), err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]any{"group_id": id, "users": count})
}
