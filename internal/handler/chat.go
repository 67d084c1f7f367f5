package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dharmasatrya/flightassist/internal/chat"
	"github.com/dharmasatrya/flightassist/internal/models"
	"github.com/dharmasatrya/flightassist/internal/session"
	"github.com/dharmasatrya/flightassist/pkg/logger"
)

const mimeNDJSON = "application/x-ndjson"

type ChatHandler struct {
	controller *chat.Controller
	log        *logger.Logger
}

func NewChatHandler(controller *chat.Controller, log *logger.Logger) *ChatHandler {
	if log == nil {
		log = logger.Discard()
	}
	return &ChatHandler{
		controller: controller,
		log:        log,
	}
}

// Register mounts the chat API and the health check on e.
func Register(e *echo.Echo, h *ChatHandler) {
	api := e.Group("/api")
	api.POST("/chat", h.Chat)
	api.POST("/session/new", h.NewSession)
	api.GET("/session/:id", h.GetSession)
	e.GET("/health", HealthHandler)
}

// Chat runs one turn. By default every event is written as one JSON line as
// soon as it happens; ?stream=false answers with the final result only.
func (h *ChatHandler) Chat(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Failed to parse request body: " + err.Error(),
			Code:    http.StatusBadRequest,
		})
	}

	if strings.TrimSpace(req.Message) == "" && req.SelectedOption == "" {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "validation_error",
			Message: models.ErrMissingMessage.Error(),
			Code:    http.StatusBadRequest,
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
			Code:    http.StatusBadRequest,
		})
	}

	log := h.log.WithRequestID(c.Response().Header().Get(echo.HeaderXRequestID))

	if c.QueryParam("stream") == "false" {
		res, err := h.controller.Turn(ctx, req, nil)
		if errors.Is(err, chat.ErrAdapter) {
			return c.JSON(http.StatusBadGateway, models.ErrorResponse{
				Error:   "intent_error",
				Message: err.Error(),
				Code:    http.StatusBadGateway,
			})
		}
		if err != nil {
			log.WithError(err).Error("chat turn failed")
			return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error:   "chat_error",
				Message: "Failed to process message: " + err.Error(),
				Code:    http.StatusInternalServerError,
			})
		}
		return c.JSON(http.StatusOK, res)
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, mimeNDJSON)
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(resp)
	emit := func(e chat.Event) {
		if err := enc.Encode(e); err != nil {
			log.WithError(err).Warn("write event")
			return
		}
		resp.Flush()
	}

	// Failures have already been streamed as an error event.
	if _, err := h.controller.Turn(ctx, req, emit); err != nil {
		log.WithError(err).Warn("chat turn ended with error")
	}
	return nil
}

func (h *ChatHandler) NewSession(c echo.Context) error {
	s, err := h.controller.NewSession(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "session_error",
			Message: "Failed to create session: " + err.Error(),
			Code:    http.StatusInternalServerError,
		})
	}
	return c.JSON(http.StatusOK, models.CreateSessionResponse{SessionID: s.ID})
}

func (h *ChatHandler) GetSession(c echo.Context) error {
	s, err := h.controller.Session(c.Request().Context(), c.Param("id"))
	if errors.Is(err, session.ErrNotFound) {
		return c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "session_not_found",
			Message: "Session not found",
			Code:    http.StatusNotFound,
		})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "session_error",
			Message: "Failed to load session: " + err.Error(),
			Code:    http.StatusInternalServerError,
		})
	}

	return c.JSON(http.StatusOK, models.SessionResponse{
		SessionID: s.ID,
		History:   s.History,
		TripInfo:  s.TripInfo,
	})
}

func HealthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}
