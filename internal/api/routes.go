package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/pawhaven/voicecore/adapters/devices"
	"github.com/pawhaven/voicecore/domain/entities"
	"github.com/pawhaven/voicecore/internal/alerts"
	"github.com/pawhaven/voicecore/internal/auth"
	"github.com/pawhaven/voicecore/internal/presence"
	"github.com/pawhaven/voicecore/internal/transport"
)

// Router exposes the voice core over HTTP: device auth, the websocket
// upgrade, alert and recurrence management, interaction reporting, and
// presence status.
type Router struct {
	hub        *transport.Hub
	scheduler  *alerts.Scheduler
	recurrence *alerts.Recurrence
	tracker    *presence.Tracker
	registry   *devices.Registry
	auth       *auth.Service
	logger     *zap.Logger
}

// NewRouter wires the route handlers to their collaborators.
func NewRouter(
	hub *transport.Hub,
	scheduler *alerts.Scheduler,
	recurrence *alerts.Recurrence,
	tracker *presence.Tracker,
	registry *devices.Registry,
	authService *auth.Service,
	logger *zap.Logger,
) *Router {
	return &Router{
		hub:        hub,
		scheduler:  scheduler,
		recurrence: recurrence,
		tracker:    tracker,
		registry:   registry,
		auth:       authService,
		logger:     logger,
	}
}

// Register attaches all routes to the echo instance.
func (r *Router) Register(e *echo.Echo) {
	e.GET("/health", r.health)

	v1 := e.Group("/api/v1")

	v1.POST("/device/auth", r.deviceAuth)

	v1.POST("/alerts", r.scheduleAlert)
	v1.GET("/alerts", r.listAlerts)
	v1.POST("/alerts/trigger", r.triggerAlert)
	v1.DELETE("/alerts/:id", r.cancelAlert)
	v1.POST("/alerts/:id/ack", r.acknowledgeAlert)

	v1.POST("/recurrences", r.addRecurrence)
	v1.GET("/recurrences", r.listRecurrences)
	v1.DELETE("/recurrences/:id", r.removeRecurrence)

	v1.POST("/interactions", r.reportInteraction)
	v1.GET("/presence", r.presenceStatus)

	e.GET("/ws", r.websocketWithAuth)
}

func (r *Router) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"service":  "pawhaven-voicecore",
		"devices":  r.hub.ConnectedCount(),
		"pending":  r.scheduler.PendingCount(),
		"presence": r.tracker.Active(),
	})
}

func (r *Router) deviceAuth(c echo.Context) error {
	var req DeviceAuthRequest
	if err := c.Bind(&req); err != nil {
		r.logger.Error("Failed to bind device auth request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	if req.SerialNumber == "" || req.SecretKey == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Serial number and secret key are required",
		})
	}

	device, err := r.registry.ValidateCredentials(req.SerialNumber, req.SecretKey)
	if err != nil {
		r.logger.Warn("Device authentication failed",
			zap.String("serialNumber", req.SerialNumber),
			zap.Error(err))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "authentication_failed",
			Message: "Invalid device credentials",
		})
	}

	token, err := r.auth.GenerateDeviceToken(device.ID)
	if err != nil {
		r.logger.Error("Failed to generate device token",
			zap.String("deviceID", device.ID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate authentication token",
		})
	}

	r.logger.Info("Device authenticated",
		zap.String("deviceID", device.ID),
		zap.String("serialNumber", device.SerialNumber))

	return c.JSON(http.StatusOK, DeviceAuthResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(24 * time.Hour),
		DeviceID:  device.ID,
	})
}

func (r *Router) scheduleAlert(c echo.Context) error {
	var req ScheduleAlertRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	alert := &entities.Alert{
		ID:            req.ID,
		Type:          req.Type,
		PetID:         req.PetID,
		Message:       req.Message,
		ScheduledTime: req.ScheduledTime,
		Priority:      req.Priority,
		VisualData:    req.VisualData,
		RequiresAck:   req.RequiresAck,
	}
	if err := r.scheduler.Schedule(alert); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_alert",
			Message: err.Error(),
		})
	}
	return c.JSON(http.StatusCreated, alert)
}

func (r *Router) listAlerts(c echo.Context) error {
	return c.JSON(http.StatusOK, r.scheduler.Pending())
}

func (r *Router) triggerAlert(c echo.Context) error {
	var req ScheduleAlertRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	alert := &entities.Alert{
		ID:            req.ID,
		Type:          req.Type,
		PetID:         req.PetID,
		Message:       req.Message,
		ScheduledTime: req.ScheduledTime,
		Priority:      req.Priority,
		VisualData:    req.VisualData,
		RequiresAck:   req.RequiresAck,
	}
	if alert.ScheduledTime.IsZero() {
		alert.ScheduledTime = time.Now()
	}
	if err := r.scheduler.Trigger(c.Request().Context(), alert); err != nil {
		r.logger.Error("Immediate alert delivery failed",
			zap.String("alertID", alert.ID),
			zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "delivery_failed",
			Message: err.Error(),
		})
	}
	return c.JSON(http.StatusOK, alert)
}

func (r *Router) cancelAlert(c echo.Context) error {
	if err := r.scheduler.Cancel(c.Param("id")); err != nil {
		if errors.Is(err, alerts.ErrAlertNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{Error: "alert_not_found"})
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "cancel_failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (r *Router) acknowledgeAlert(c echo.Context) error {
	if err := r.scheduler.Acknowledge(c.Param("id")); err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "acknowledge_failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (r *Router) addRecurrence(c echo.Context) error {
	var req RecurrenceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	rule := alerts.RecurrenceRule{
		ID:   req.ID,
		Spec: req.Spec,
		Template: entities.Alert{
			Type:     req.Type,
			PetID:    req.PetID,
			Message:  req.Message,
			Priority: req.Priority,
		},
	}
	if err := r.recurrence.AddRule(rule); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_rule",
			Message: err.Error(),
		})
	}
	return c.JSON(http.StatusCreated, rule)
}

func (r *Router) listRecurrences(c echo.Context) error {
	return c.JSON(http.StatusOK, r.recurrence.Rules())
}

func (r *Router) removeRecurrence(c echo.Context) error {
	if err := r.recurrence.RemoveRule(c.Param("id")); err != nil {
		if errors.Is(err, alerts.ErrRuleNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{Error: "rule_not_found"})
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "remove_failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (r *Router) reportInteraction(c echo.Context) error {
	var req InteractionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	kind := entities.InteractionKind(req.Kind)
	if !kind.Known() {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "unknown_interaction",
			Message: "Unknown interaction kind",
		})
	}

	r.tracker.Touch(kind)
	return c.NoContent(http.StatusNoContent)
}

func (r *Router) presenceStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, PresenceResponse{
		Active:       r.tracker.Active(),
		IdleFor:      r.tracker.IdleFor().String(),
		LastActivity: r.tracker.LastActivity(),
	})
}

// websocketWithAuth validates the device JWT before upgrading.
func (r *Router) websocketWithAuth(c echo.Context) error {
	var token string
	authHeader := c.Request().Header.Get("Authorization")
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		token = authHeader[7:]
	}
	if token == "" {
		// devices embedded in browsers cannot set headers on upgrade
		token = c.QueryParam("token")
	}

	if token == "" {
		r.logger.Warn("WebSocket connection rejected: missing token")
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "missing_token",
			Message: "JWT token is required",
		})
	}

	claims, err := r.auth.ValidateToken(token)
	if err != nil {
		r.logger.Warn("WebSocket connection rejected: invalid token", zap.Error(err))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired JWT token",
		})
	}

	if claims.Role != "device" || claims.DeviceID == "" {
		r.logger.Warn("WebSocket connection rejected: invalid claims",
			zap.String("role", claims.Role))
		return c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "invalid_role",
			Message: "Only device tokens may open websockets",
		})
	}

	r.logger.Info("WebSocket connection authenticated",
		zap.String("deviceID", claims.DeviceID))

	return r.hub.HandleWebSocket(c, claims.DeviceID)
}
