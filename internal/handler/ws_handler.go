package handler

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/labstack/echo/v4"
	"nhooyr.io/websocket"

	"peerhelp/internal/apperr"
	"peerhelp/internal/auth"
	"peerhelp/internal/realtime"
	"peerhelp/internal/service"
)

// WSHandler upgrades authenticated requests to realtime sessions.
type WSHandler struct {
	base        context.Context
	hub         *realtime.Hub
	jwtService  *auth.JWTService
	authService service.AuthService
	accept      *websocket.AcceptOptions
}

// NewWSHandler creates a websocket handler. Sessions end when base is
// cancelled. Only the client origin may connect unless insecure is set.
func NewWSHandler(base context.Context, hub *realtime.Hub, jwtService *auth.JWTService, authService service.AuthService, clientURL string, insecure bool) *WSHandler {
	opts := &websocket.AcceptOptions{InsecureSkipVerify: insecure}
	if u, err := url.Parse(clientURL); err == nil && u.Host != "" {
		opts.OriginPatterns = []string{u.Host}
	}
	return &WSHandler{
		base:        base,
		hub:         hub,
		jwtService:  jwtService,
		authService: authService,
		accept:      opts,
	}
}

// Connect godoc
// @Summary Open the realtime channel
// @Description Websocket upgrade. The access token comes from the token query parameter or cookie.
// @Tags realtime
// @Param token query string false "Access token"
// @Success 101 "Switching Protocols"
// @Failure 401 {object} apperr.ErrorResponse
// @Failure 403 {object} apperr.ErrorResponse
// @Router /ws [get]
func (h *WSHandler) Connect(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		if ck, err := c.Cookie(accessCookie); err == nil {
			token = ck.Value
		}
	}
	if token == "" {
		return apperr.Unauthenticated("No token provided")
	}

	claims, err := h.jwtService.ValidatePurpose(token, auth.PurposeAccess)
	if err != nil {
		return apperr.Unauthenticated("Unauthorized")
	}
	user, err := h.authService.Authenticate(c.Request().Context(), claims)
	if err != nil {
		return err
	}

	ws, err := websocket.Accept(c.Response(), c.Request(), h.accept)
	if err != nil {
		// Accept has already written the failure response.
		slog.Debug("websocket upgrade failed", "user_id", user.ID, "error", err)
		return nil
	}

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()
	stop := context.AfterFunc(h.base, cancel)
	defer stop()

	if err := realtime.Serve(ctx, h.hub, ws, user.ID); err != nil {
		slog.Debug("websocket session ended", "user_id", user.ID, "error", err)
	}
	return nil
}
