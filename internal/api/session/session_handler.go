package session

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/markbates/goth/gothic"

	"github.com/adminkit/adminkit/internal/api"
	"github.com/adminkit/adminkit/internal/api/user"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	Login(w http.ResponseWriter, r *http.Request)
	Register(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)
	Me(w http.ResponseWriter, r *http.Request)
	OAuthBegin(w http.ResponseWriter, r *http.Request)
	OAuthCallback(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	sessionService SessionService
	logger         *slog.Logger
}

// NewHandlerImpl creates a new session HandlerImpl instance.
func NewHandlerImpl(sessionService SessionService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		sessionService: sessionService,
		logger:         logger,
	}
}

func (h *HandlerImpl) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	token, u, err := h.sessionService.Login(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		h.logger.ErrorContext(ctx, "Login failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Login failed")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, TokenResponse{AccessToken: token, User: u})
}

func (h *HandlerImpl) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var params user.RegisterParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	u, err := h.sessionService.Register(ctx, params)
	if err != nil {
		h.logger.ErrorContext(ctx, "Registration failed", slog.Any("error", err))
		api.ErrorResponse(w, r, api.HTTPStatus(err), err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, u)
}

func (h *HandlerImpl) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := sessionUserID(w, r)
	if !ok {
		return
	}
	h.sessionService.Logout(ctx, id)
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

// Me returns the account behind the presented token.
func (h *HandlerImpl) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := sessionUserID(w, r)
	if !ok {
		return
	}
	u, err := h.sessionService.ResolveUser(ctx, id)
	if err != nil {
		api.ErrorResponse(w, r, api.HTTPStatus(err), err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, u)
}

// OAuthBegin redirects the client to the provider's consent screen.
func (h *HandlerImpl) OAuthBegin(w http.ResponseWriter, r *http.Request) {
	r = gothic.GetContextWithProvider(r, chi.URLParam(r, "provider"))
	gothic.BeginAuthHandler(w, r)
}

// OAuthCallback completes the provider handshake and answers with a local
// access token, provisioning the account on first login.
func (h *HandlerImpl) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r = gothic.GetContextWithProvider(r, chi.URLParam(r, "provider"))

	gu, err := gothic.CompleteUserAuth(w, r)
	if err != nil {
		h.logger.WarnContext(ctx, "OAuth handshake failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusUnauthorized, "OAuth authentication failed")
		return
	}

	u, err := h.sessionService.GetOrCreateUserFromProvider(ctx, gu)
	if err != nil {
		h.logger.ErrorContext(ctx, "OAuth account resolution failed", slog.Any("error", err))
		api.ErrorResponse(w, r, api.HTTPStatus(err), "Failed to resolve account")
		return
	}
	token, err := h.sessionService.IssueToken(u)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, TokenResponse{AccessToken: token, User: u})
}

func sessionUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr, ok := GetUserIDFromContext(r.Context())
	if !ok || idStr == "" {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID format")
		return uuid.Nil, false
	}
	return id, true
}
