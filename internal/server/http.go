package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/tax-filing-buddy/constants"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/common"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/export"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type httpHandler struct {
	tools    *ToolService
	exporter *export.Service
	logger   *slog.Logger
}

// NewRouter returns the HTTP surface:
//
//	GET  /health
//	GET  /v1/tools
//	POST /v1/tools/:name        JSON arguments -> {text, isError}
//	POST /v1/filings/xlsx       {documentIds, filingStatus, taxYear} -> workbook
func NewRouter(tools *ToolService, exporter *export.Service, corsOrigins []string, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	h := &httpHandler{tools: tools, exporter: exporter, logger: logger}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestIDMiddleware(logger))

	corsConfig := cors.DefaultConfig()
	if len(corsOrigins) == 0 || slices.Contains(corsOrigins, "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = corsOrigins
	}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Accept", "X-Request-ID"}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	v1 := router.Group("/v1")
	{
		v1.GET("/tools", h.listTools)
		v1.POST("/tools/:name", h.callTool)
		if exporter != nil {
			v1.POST("/filings/xlsx", h.exportFiling)
		}
	}
	return router
}

func requestIDMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if id := c.GetHeader(RequestIDHeader); id != "" {
			ctx = common.WithRequestID(ctx, id)
		}
		ctx, rid := common.EnsureRequestID(ctx)
		c.Request = c.Request.WithContext(ctx)
		c.Header(RequestIDHeader, rid)

		start := time.Now()
		c.Next()
		logger.Info("http.request",
			"req_id", rid,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
}

func (h *httpHandler) listTools(c *gin.Context) {
	c.JSON(http.StatusOK, Success(http.StatusOK, gin.H{"tools": h.tools.Names()}))
}

func (h *httpHandler) callTool(c *gin.Context) {
	args := map[string]any{}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&args); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
			return
		}
	}

	res, err := h.tools.Dispatch(c.Request.Context(), c.Param("name"), args)
	if err != nil {
		code := httpStatus(err)
		c.JSON(code, Error(code, userMessage(err)))
		return
	}
	c.JSON(http.StatusOK, Success(http.StatusOK, res))
}

type exportRequest struct {
	DocumentIDs  []string `json:"documentIds"`
	FilingStatus string   `json:"filingStatus"`
	TaxYear      int      `json:"taxYear"`
}

func (h *httpHandler) exportFiling(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	status, _ := constants.CanonicalizeFilingStatus(req.FilingStatus)

	ctx := c.Request.Context()
	res, err := h.tools.proc.GenerateFiling(ctx, req.DocumentIDs, status, req.TaxYear, constants.FormatJSON)
	if err != nil {
		code := httpStatus(err)
		c.JSON(code, Error(code, userMessage(err)))
		return
	}
	b, err := h.exporter.FilingXLSX(ctx, res)
	if err != nil {
		h.logger.Error("export.xlsx.failed", "req_id", common.RequestIDFromContext(ctx), "error", err)
		c.JSON(http.StatusInternalServerError, Error(http.StatusInternalServerError, "export failed"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="filing-%d.xlsx"`, req.TaxYear))
	c.Data(http.StatusOK, xlsxContentType, b)
}

func httpStatus(err error) int {
	var app *common.AppError
	switch {
	case errors.Is(err, common.ErrExtraction):
		return http.StatusBadGateway
	case errors.As(err, &app) && app.Code == "NO_DOCUMENTS":
		return http.StatusBadRequest
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
