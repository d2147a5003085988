package http

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"mychess/internal/core"
	"mychess/internal/server/hub"
)

const rateLimitRate = 10 // req/sec

// HTTPHandler serves the room REST API and the live endpoint
type HTTPHandler struct {
	hub    *hub.Hub
	tokens *Tokens
	log    *zap.Logger
}

func NewHTTPHandler(h *hub.Hub, tokens *Tokens, log *zap.Logger) *HTTPHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPHandler{hub: h, tokens: tokens, log: log.Named("http")}
}

func NewFiberApp(rooms *hub.Hub, tokens *Tokens, devMode bool, log *zap.Logger) *fiber.App {
	h := NewHTTPHandler(rooms, tokens, log)

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	})

	// Global middleware (order matters)
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Health check (no rate limit)
	app.Get("/health", h.Health)

	// Realtime channel, authenticated by ?token=
	app.Get("/live", h.LiveUpgrade, h.Live())

	api := app.Group("/api/v1")

	maxReq := rateLimitRate
	if devMode {
		maxReq = rateLimitRate * 2
	}
	api.Use(limiter.New(limiter.Config{
		Max:        maxReq,
		Expiration: 1 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			if xff := c.Get("X-Forwarded-For"); xff != "" {
				if idx := strings.Index(xff, ","); idx != -1 {
					return strings.TrimSpace(xff[:idx])
				}
				return xff
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(core.ErrorResponse{
				Error:   "rate limit exceeded",
				Code:    core.ErrCodeRateLimitExceeded,
				Details: fmt.Sprintf("%d requests per second allowed", maxReq),
			})
		},
	}))

	api.Use(contentTypeValidator)
	api.Use(validationMiddleware)

	api.Post("/rooms", h.CreateRoom)
	api.Post("/rooms/:code/join", h.JoinRoom)
	api.Get("/rooms/:code", h.GetRoom)
	api.Get("/rooms/:code/board", h.GetBoard)
	api.Post("/rooms/:code/resign", AuthRequired(tokens.Validate), h.Resign)

	return app
}

// contentTypeValidator ensures POST requests have application/json
func contentTypeValidator(c *fiber.Ctx) error {
	if c.Method() == fiber.MethodPost {
		contentType := c.Get("Content-Type")
		if contentType != "application/json" && contentType != "" {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(core.ErrorResponse{
				Error:   "unsupported media type",
				Code:    core.ErrCodeInvalidContent,
				Details: "Content-Type must be application/json",
			})
		}
	}
	return c.Next()
}

// customErrorHandler provides consistent error responses
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	response := core.ErrorResponse{
		Error: "internal server error",
		Code:  core.ErrCodeInternalError,
	}

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		response.Error = e.Message

		switch code {
		case fiber.StatusNotFound:
			response.Code = core.ErrCodeRoomNotFound
		case fiber.StatusBadRequest, fiber.StatusUpgradeRequired:
			response.Code = core.ErrCodeInvalidRequest
		case fiber.StatusTooManyRequests:
			response.Code = core.ErrCodeRateLimitExceeded
		}
	}

	return c.Status(code).JSON(response)
}

// roomError maps hub and rule errors onto a response
func roomError(c *fiber.Ctx, err error) error {
	status, code := fiber.StatusInternalServerError, core.ErrCodeInternalError
	switch {
	case errors.Is(err, hub.ErrRoomNotFound):
		status, code = fiber.StatusNotFound, core.ErrCodeRoomNotFound
	case errors.Is(err, hub.ErrRoomFull):
		status, code = fiber.StatusConflict, core.ErrCodeRoomFull
	case errors.Is(err, hub.ErrNotSeated):
		status, code = fiber.StatusForbidden, core.ErrCodeUnauthorized
	case errors.Is(err, core.ErrGameOver):
		status, code = fiber.StatusConflict, core.ErrCodeGameOver
	case errors.Is(err, core.ErrNotYourTurn):
		status, code = fiber.StatusConflict, core.ErrCodeNotYourTurn
	}
	resp := core.ErrorResponse{Error: err.Error(), Code: code}
	if status == fiber.StatusInternalServerError {
		resp.Error = "internal server error"
	}
	return c.Status(status).JSON(resp)
}

// Health check endpoint with storage status
func (h *HTTPHandler) Health(c *fiber.Ctx) error {
	return c.JSON(core.HealthResponse{
		Status:  "healthy",
		Time:    time.Now().Unix(),
		Storage: h.hub.StorageHealth(),
		Rooms:   h.hub.RoomCount(),
	})
}

// CreateRoom opens a room with the caller in the white seat
func (h *HTTPHandler) CreateRoom(c *fiber.Ctx) error {
	req, err := validatedBody[core.CreateRoomRequest](c)
	if req == nil {
		return err
	}

	snap, seated, err := h.hub.CreateRoom(core.Participant{Username: req.Username, Email: req.Email})
	if err != nil {
		return roomError(c, err)
	}
	token, err := h.tokens.Issue(seated, snap.Code, core.ColorWhite)
	if err != nil {
		h.log.Error("issue token", zap.Error(err))
		return roomError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(core.JoinResponse{
		Room:  snap,
		Color: core.ColorWhite,
		Token: token,
	})
}

// JoinRoom seats the caller as black, or returns the seat they already hold
func (h *HTTPHandler) JoinRoom(c *fiber.Ctx) error {
	req, err := validatedBody[core.JoinRoomRequest](c)
	if req == nil {
		return err
	}

	code := strings.ToUpper(c.Params("code"))
	snap, color, seated, err := h.hub.JoinRoom(code, core.Participant{Username: req.Username, Email: req.Email})
	if err != nil {
		return roomError(c, err)
	}
	token, err := h.tokens.Issue(seated, snap.Code, color)
	if err != nil {
		h.log.Error("issue token", zap.Error(err))
		return roomError(c, err)
	}

	return c.JSON(core.JoinResponse{Room: snap, Color: color, Token: token})
}

func (h *HTTPHandler) GetRoom(c *fiber.Ctx) error {
	snap, err := h.hub.Room(c.Params("code"))
	if err != nil {
		return roomError(c, err)
	}
	return c.JSON(snap)
}

// GetBoard returns ASCII representation of the board
func (h *HTTPHandler) GetBoard(c *fiber.Ctx) error {
	b, err := h.hub.Board(c.Params("code"))
	if err != nil {
		return roomError(c, err)
	}
	return c.JSON(b)
}

// Resign concedes the caller's game
func (h *HTTPHandler) Resign(c *fiber.Ctx) error {
	claims, ok := c.Locals(claimsKey).(Claims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(core.ErrorResponse{
			Error: "unauthorized",
			Code:  core.ErrCodeUnauthorized,
		})
	}
	code := strings.ToUpper(c.Params("code"))
	if claims.Room != code {
		return c.Status(fiber.StatusForbidden).JSON(core.ErrorResponse{
			Error: "token was issued for another room",
			Code:  core.ErrCodeUnauthorized,
		})
	}

	snap, err := h.hub.Resign(code, claims.Participant())
	if err != nil {
		return roomError(c, err)
	}
	return c.JSON(snap)
}
