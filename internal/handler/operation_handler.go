// internal/handler/operation_handler.go
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"gcu-service/internal/model"
	"gcu-service/internal/repository"
	"gcu-service/internal/service"
	"gcu-service/internal/utils"
)

// OperationHandler handles operation history HTTP requests
type OperationHandler struct {
	operationService *service.OperationService
	logger           *utils.ServiceLogger
}

// NewOperationHandler creates a new operation handler
func NewOperationHandler(operationService *service.OperationService, logger *zap.Logger) *OperationHandler {
	return &OperationHandler{
		operationService: operationService,
		logger:           utils.NewServiceLogger(logger, "operation-handler"),
	}
}

// RegisterRoutes registers operation and snapshot routes
func (h *OperationHandler) RegisterRoutes(router *gin.RouterGroup) {
	operations := router.Group("/operations")
	{
		operations.GET("", h.ListOperations)
		operations.GET("/stats", h.GetOperationStats)
		operations.GET("/:id", h.GetOperation)
	}

	snapshots := router.Group("/snapshots")
	{
		snapshots.GET("", h.ListSnapshots)
		snapshots.GET("/:id", h.GetSnapshot)
	}
}

// ListOperations lists recorded operations
// @Summary List operations
// @Description Get recorded GCU operations with filtering and pagination
// @Tags Operations
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(50)
// @Param operation_type query string false "Filter by type" Enums(CONNECT, DISCONNECT, VERSION, PRESSURE, PULSE_DURATION, READ_REGISTER, WRITE_REGISTER, READ_SETTINGS, WRITE_SETTINGS)
// @Param status query string false "Filter by status" Enums(PROCESSING, SUCCESS, FAILED, TIMEOUT)
// @Param start_date query string false "Start date (RFC3339)"
// @Param end_date query string false "End date (RFC3339)"
// @Success 200 {object} utils.APIResponse{data=object{operations=[]model.Operation,pagination=service.PaginationResult}} "Operations retrieved"
// @Failure 503 {object} utils.APIResponse "History disabled"
// @Router /operations [get]
func (h *OperationHandler) ListOperations(c *gin.Context) {
	filter := &service.OperationFilter{
		Page:    queryInt(c, "page", 1),
		PerPage: queryInt(c, "per_page", 50),
	}

	if opType := c.Query("operation_type"); opType != "" {
		t := model.OperationType(opType)
		filter.OperationType = &t
	}
	if status := c.Query("status"); status != "" {
		s := model.OperationStatus(status)
		filter.Status = &s
	}
	if startDate := c.Query("start_date"); startDate != "" {
		if t, err := time.Parse(time.RFC3339, startDate); err == nil {
			filter.StartDate = &t
		}
	}
	if endDate := c.Query("end_date"); endDate != "" {
		if t, err := time.Parse(time.RFC3339, endDate); err == nil {
			filter.EndDate = &t
		}
	}

	operations, pagination, err := h.operationService.ListOperations(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, "Failed to list operations", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Operations retrieved", gin.H{
		"operations": operations,
		"pagination": pagination,
	})
}

// GetOperation retrieves one operation
// @Summary Get operation
// @Tags Operations
// @Produce json
// @Param id path string true "Operation ID"
// @Success 200 {object} utils.APIResponse{data=model.Operation} "Operation retrieved"
// @Failure 404 {object} utils.APIResponse "Operation not found"
// @Router /operations/{id} [get]
func (h *OperationHandler) GetOperation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid operation ID", err)
		return
	}

	operation, err := h.operationService.GetOperation(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "Failed to get operation", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Operation retrieved", operation)
}

// GetOperationStats summarizes recorded operations
// @Summary Operation statistics
// @Tags Operations
// @Produce json
// @Param since query string false "Only count operations after this time (RFC3339)"
// @Success 200 {object} utils.APIResponse{data=repository.OperationStats} "Statistics retrieved"
// @Router /operations/stats [get]
func (h *OperationHandler) GetOperationStats(c *gin.Context) {
	var since *time.Time
	if s := c.Query("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid since parameter", err)
			return
		}
		since = &t
	}

	stats, err := h.operationService.GetOperationStats(c.Request.Context(), since)
	if err != nil {
		h.respondError(c, "Failed to get operation stats", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Statistics retrieved", stats)
}

// ListSnapshots lists settings snapshots
// @Summary List settings snapshots
// @Tags Snapshots
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(50)
// @Success 200 {object} utils.APIResponse{data=object{snapshots=[]model.SettingsSnapshot,pagination=service.PaginationResult}} "Snapshots retrieved"
// @Router /snapshots [get]
func (h *OperationHandler) ListSnapshots(c *gin.Context) {
	snapshots, pagination, err := h.operationService.ListSnapshots(
		c.Request.Context(),
		queryInt(c, "page", 1),
		queryInt(c, "per_page", 50),
	)
	if err != nil {
		h.respondError(c, "Failed to list snapshots", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Snapshots retrieved", gin.H{
		"snapshots":  snapshots,
		"pagination": pagination,
	})
}

// GetSnapshot retrieves one settings snapshot
// @Summary Get settings snapshot
// @Tags Snapshots
// @Produce json
// @Param id path string true "Snapshot ID"
// @Success 200 {object} utils.APIResponse{data=model.SettingsSnapshot} "Snapshot retrieved"
// @Failure 404 {object} utils.APIResponse "Snapshot not found"
// @Router /snapshots/{id} [get]
func (h *OperationHandler) GetSnapshot(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid snapshot ID", err)
		return
	}

	snapshot, err := h.operationService.GetSnapshot(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "Failed to get snapshot", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Snapshot retrieved", snapshot)
}

func (h *OperationHandler) respondError(c *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, service.ErrHistoryDisabled):
		utils.ErrorResponse(c, http.StatusServiceUnavailable, message, err)
	case errors.Is(err, repository.ErrNotFound):
		utils.ErrorResponse(c, http.StatusNotFound, message, err)
	default:
		h.logger.Error(message, zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, message, err)
	}
}

func queryInt(c *gin.Context, key string, def int) int {
	if v := c.Query(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
