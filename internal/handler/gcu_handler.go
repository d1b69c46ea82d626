// internal/handler/gcu_handler.go
package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gcu-service/internal/gcu"
	"gcu-service/internal/model"
	"gcu-service/internal/service"
	"gcu-service/internal/utils"
)

// GCUHandler handles GCU device HTTP requests
type GCUHandler struct {
	gcuService *service.GCUService
	logger     *utils.ServiceLogger
}

// NewGCUHandler creates a new GCU handler
func NewGCUHandler(gcuService *service.GCUService, logger *zap.Logger) *GCUHandler {
	return &GCUHandler{
		gcuService: gcuService,
		logger:     utils.NewServiceLogger(logger, "gcu-handler"),
	}
}

// RegisterRoutes registers GCU routes
func (h *GCUHandler) RegisterRoutes(router *gin.RouterGroup) {
	gcuRoutes := router.Group("/gcu")
	{
		gcuRoutes.POST("/connect", h.Connect)
		gcuRoutes.POST("/disconnect", h.Disconnect)
		gcuRoutes.GET("/status", h.GetStatus)

		gcuRoutes.GET("/version", h.GetVersion)
		gcuRoutes.GET("/pressure", h.GetPressure)
		gcuRoutes.GET("/pulse-duration", h.GetPulseDuration)

		gcuRoutes.GET("/registers/:address", h.ReadRegister)
		gcuRoutes.PUT("/registers/:address", h.WriteRegister)

		settings := gcuRoutes.Group("/settings")
		{
			settings.GET("", h.GetSettings)
			settings.GET("/export", h.ExportSettings)
			settings.POST("/read", h.ReadSettings)
			settings.POST("/write", h.WriteSettings)
		}
	}
}

// Connect powers up the device
// @Summary Connect device
// @Description Assert the enable line and wait for the device to power up
// @Tags GCU
// @Produce json
// @Success 200 {object} utils.APIResponse{data=model.DeviceInfo} "Device connected"
// @Failure 503 {object} utils.APIResponse "Serial line unavailable"
// @Router /gcu/connect [post]
func (h *GCUHandler) Connect(c *gin.Context) {
	if err := h.gcuService.Connect(requestContext(c)); err != nil {
		h.respondError(c, "Failed to connect device", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Device connected", h.gcuService.Status())
}

// Disconnect releases the device
// @Summary Disconnect device
// @Description Send the quit command and drop the enable line
// @Tags GCU
// @Produce json
// @Success 200 {object} utils.APIResponse{data=model.DeviceInfo} "Device disconnected"
// @Failure 504 {object} utils.APIResponse "Device timeout"
// @Router /gcu/disconnect [post]
func (h *GCUHandler) Disconnect(c *gin.Context) {
	if err := h.gcuService.Disconnect(requestContext(c)); err != nil {
		h.respondError(c, "Failed to disconnect device", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Device disconnected", h.gcuService.Status())
}

// GetStatus returns the device state
// @Summary Device status
// @Tags GCU
// @Produce json
// @Success 200 {object} utils.APIResponse{data=model.DeviceInfo} "Device status"
// @Router /gcu/status [get]
func (h *GCUHandler) GetStatus(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Device status retrieved", h.gcuService.Status())
}

// GetVersion queries the firmware version
// @Summary Firmware version
// @Tags GCU
// @Produce json
// @Success 200 {object} utils.APIResponse{data=object{version=string}} "Version retrieved"
// @Failure 409 {object} utils.APIResponse "Device not connected"
// @Failure 502 {object} utils.APIResponse "Device protocol error"
// @Failure 504 {object} utils.APIResponse "Device timeout"
// @Router /gcu/version [get]
func (h *GCUHandler) GetVersion(c *gin.Context) {
	version, err := h.gcuService.Version(requestContext(c))
	if err != nil {
		h.respondError(c, "Failed to read version", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Version retrieved", gin.H{"version": version})
}

// GetPressure reads the live pressure
// @Summary Live pressure
// @Tags GCU
// @Produce json
// @Success 200 {object} utils.APIResponse{data=object{pressure=int}} "Pressure retrieved"
// @Failure 409 {object} utils.APIResponse "Device not connected"
// @Router /gcu/pressure [get]
func (h *GCUHandler) GetPressure(c *gin.Context) {
	pressure, err := h.gcuService.Pressure(requestContext(c))
	if err != nil {
		h.respondError(c, "Failed to read pressure", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Pressure retrieved", gin.H{"pressure": pressure})
}

// GetPulseDuration reads the live pulse duration
// @Summary Live pulse duration
// @Tags GCU
// @Produce json
// @Success 200 {object} utils.APIResponse{data=object{pulse_duration=int}} "Pulse duration retrieved"
// @Failure 409 {object} utils.APIResponse "Device not connected"
// @Router /gcu/pulse-duration [get]
func (h *GCUHandler) GetPulseDuration(c *gin.Context) {
	pulse, err := h.gcuService.PulseDuration(requestContext(c))
	if err != nil {
		h.respondError(c, "Failed to read pulse duration", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Pulse duration retrieved", gin.H{"pulse_duration": pulse})
}

// ReadRegister reads one register
// @Summary Read register
// @Tags GCU
// @Produce json
// @Param address path int true "Register address (0-99)"
// @Success 200 {object} utils.APIResponse{data=model.Register} "Register read"
// @Failure 400 {object} utils.APIResponse "Invalid address"
// @Router /gcu/registers/{address} [get]
func (h *GCUHandler) ReadRegister(c *gin.Context) {
	address, err := parseAddress(c.Param("address"))
	if err != nil {
		utils.KindErrorResponse(c, http.StatusBadRequest, "invalid_argument", "Invalid register address", err)
		return
	}

	value, err := h.gcuService.ReadRegister(requestContext(c), address)
	if err != nil {
		h.respondError(c, "Failed to read register", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Register read", model.Register{Address: address, Value: value})
}

// WriteRegisterRequest is the body of a register write
type WriteRegisterRequest struct {
	Value *int `json:"value" binding:"required"`
}

// WriteRegister writes one register
// @Summary Write register
// @Tags GCU
// @Accept json
// @Produce json
// @Param address path int true "Register address (0-99)"
// @Param request body WriteRegisterRequest true "Register value (0-9999)"
// @Success 200 {object} utils.APIResponse{data=model.Register} "Register written"
// @Failure 400 {object} utils.APIResponse "Invalid address or value"
// @Failure 502 {object} utils.APIResponse "Device rejected the write"
// @Router /gcu/registers/{address} [put]
func (h *GCUHandler) WriteRegister(c *gin.Context) {
	address, err := parseAddress(c.Param("address"))
	if err != nil {
		utils.KindErrorResponse(c, http.StatusBadRequest, "invalid_argument", "Invalid register address", err)
		return
	}

	var req WriteRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.KindErrorResponse(c, http.StatusBadRequest, "invalid_argument", "Invalid request body", err)
		return
	}
	if *req.Value < 0 || *req.Value > 0xFFFF {
		utils.KindErrorResponse(c, http.StatusBadRequest, "invalid_argument", "Invalid register value",
			fmt.Errorf("value %d: %w", *req.Value, gcu.ErrOutOfRange))
		return
	}

	value := uint16(*req.Value)
	if err := h.gcuService.WriteRegister(requestContext(c), address, value); err != nil {
		h.respondError(c, "Failed to write register", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Register written", model.Register{Address: address, Value: value})
}

// GetSettings returns the staging buffer
// @Summary Staged settings
// @Tags Settings
// @Produce json
// @Success 200 {object} utils.APIResponse{data=[]model.Setting} "Staged settings"
// @Router /gcu/settings [get]
func (h *GCUHandler) GetSettings(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Staged settings retrieved", h.gcuService.StagedSettings())
}

// ExportSettings returns the staging buffer as CSV
// @Summary Export staged settings
// @Tags Settings
// @Produce text/csv
// @Success 200 {string} string "CSV settings"
// @Router /gcu/settings/export [get]
func (h *GCUHandler) ExportSettings(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.gcuService.ExportSettings(&buf); err != nil {
		h.respondError(c, "Failed to export settings", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="gcu-settings.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// ReadSettings reads every power level into the staging buffer
// @Summary Read settings from device
// @Tags Settings
// @Produce json
// @Success 200 {object} utils.APIResponse{data=[]model.Setting} "Settings read"
// @Failure 409 {object} utils.APIResponse "Device not connected"
// @Failure 504 {object} utils.APIResponse "Device timeout"
// @Router /gcu/settings/read [post]
func (h *GCUHandler) ReadSettings(c *gin.Context) {
	settings, err := h.gcuService.ReadSettings(requestContext(c))
	if err != nil {
		h.respondError(c, "Failed to read settings", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Settings read", settings)
}

// WriteSettings stages settings and writes them to the device
// @Summary Write settings to device
// @Description Accepts a JSON array of settings or a text/csv body
// @Tags Settings
// @Accept json
// @Accept text/csv
// @Produce json
// @Param request body []model.Setting true "Settings"
// @Success 200 {object} utils.APIResponse{data=[]model.Setting} "Settings written"
// @Failure 400 {object} utils.APIResponse "Invalid settings"
// @Failure 409 {object} utils.APIResponse "Device not connected"
// @Router /gcu/settings/write [post]
func (h *GCUHandler) WriteSettings(c *gin.Context) {
	ctx := requestContext(c)

	mediaType, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))
	if mediaType == "text/csv" {
		settings, err := h.gcuService.ImportSettings(ctx, c.Request.Body)
		if err != nil {
			h.respondError(c, "Failed to write settings", err)
			return
		}
		utils.SuccessResponse(c, http.StatusOK, "Settings written", settings)
		return
	}

	var settings []model.Setting
	if err := c.ShouldBindJSON(&settings); err != nil {
		utils.KindErrorResponse(c, http.StatusBadRequest, "invalid_argument", "Invalid request body", err)
		return
	}
	if err := h.gcuService.WriteSettings(ctx, settings); err != nil {
		h.respondError(c, "Failed to write settings", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Settings written", settings)
}

// respondError maps service errors onto HTTP status codes
func (h *GCUHandler) respondError(c *gin.Context, message string, err error) {
	status, kind := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(message, zap.String("error_kind", kind), zap.Error(err))
	}
	utils.KindErrorResponse(c, status, kind, message, err)
}

func errorStatus(err error) (int, string) {
	if errors.Is(err, service.ErrNotConnected) {
		return http.StatusConflict, "not_connected"
	}

	kind := gcu.ErrorKind(err)
	switch kind {
	case "io":
		return http.StatusServiceUnavailable, kind
	case "timeout":
		return http.StatusGatewayTimeout, kind
	case "protocol", "parse":
		return http.StatusBadGateway, kind
	case "persistence", "invalid_argument":
		return http.StatusBadRequest, kind
	default:
		return http.StatusInternalServerError, kind
	}
}

func parseAddress(param string) (uint8, error) {
	address, err := strconv.ParseUint(param, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("address %q: %w", param, err)
	}
	if address > model.MaxAddress {
		return 0, fmt.Errorf("address %d: %w", address, gcu.ErrOutOfRange)
	}
	return uint8(address), nil
}

// requestContext carries the request id into service operation records
func requestContext(c *gin.Context) context.Context {
	return service.WithRequestID(c.Request.Context(), utils.GetRequestID(c))
}
