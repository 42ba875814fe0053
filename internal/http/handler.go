package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sipelan-service/internal/http/middleware"
	"sipelan-service/internal/model"
	"sipelan-service/internal/service"
)

// HealthFunc reports whether the backing database is reachable.
type HealthFunc func(ctx context.Context) error

type Handler struct {
	lifecycleService *service.LifecycleService
	bidangService    *service.BidangService
	categoryService  *service.CategoryService
	authService      *service.AuthService
	health           HealthFunc
	log              zerolog.Logger
}

func NewHandler(
	lifecycleService *service.LifecycleService,
	bidangService *service.BidangService,
	categoryService *service.CategoryService,
	authService *service.AuthService,
	health HealthFunc,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		lifecycleService: lifecycleService,
		bidangService:    bidangService,
		categoryService:  categoryService,
		authService:      authService,
		health:           health,
		log:              log,
	}
}

func (h *Handler) healthz(c *gin.Context) {
	status := http.StatusOK
	data := gin.H{
		"status":             "ok",
		"database":           "ok",
		"auxiliary_failures": service.AuxiliaryFailures(),
	}
	if h.health != nil {
		if err := h.health(c.Request.Context()); err != nil {
			h.logger(c).Error().Err(err).Msg("database health check failed")
			status = http.StatusServiceUnavailable
			data["status"] = "degraded"
			data["database"] = "unreachable"
		}
	}
	c.JSON(status, responseEnvelope{Success: status == http.StatusOK, Data: data})
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, errorResponse(err.Error()))
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, errorResponse(err.Error()))
	case errors.Is(err, service.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, errorResponse(err.Error()))
	case errors.Is(err, context.DeadlineExceeded):
		h.logger(c).Error().Err(err).Msg("handler timeout")
		c.JSON(http.StatusServiceUnavailable, errorResponse("layanan sedang sibuk, coba lagi"))
	default:
		h.logger(c).Error().Err(err).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("terjadi kesalahan internal"))
	}
}

func (h *Handler) logger(c *gin.Context) *zerolog.Logger {
	l := middleware.LoggerFrom(c, h.log)
	return &l
}

func principalOrAbort(c *gin.Context) (model.Principal, bool) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("principal tidak ditemukan"))
		return model.Principal{}, false
	}
	return principal, true
}

func parseIDParam(c *gin.Context, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(label+" tidak valid"))
		return uuid.Nil, false
	}
	return id, true
}

// queryInt reads an optional integer query parameter. A missing value is 0;
// a malformed one answers 400 and returns false.
func queryInt(c *gin.Context, name string) (int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(name+" tidak valid"))
		return 0, false
	}
	return v, true
}

type responseEnvelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func successResponse(data interface{}) responseEnvelope {
	return responseEnvelope{Success: true, Data: data}
}

func messageResponse(msg string, data interface{}) responseEnvelope {
	return responseEnvelope{Success: true, Message: msg, Data: data}
}

func errorResponse(msg string) responseEnvelope {
	return responseEnvelope{Success: false, Message: msg}
}
