package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/anime-shed/image-descaler/internal/config"
	apperrors "github.com/anime-shed/image-descaler/internal/errors"
	"github.com/anime-shed/image-descaler/internal/imaging"
	"github.com/anime-shed/image-descaler/internal/logger"
	"github.com/anime-shed/image-descaler/internal/metrics"
	"github.com/anime-shed/image-descaler/internal/service"
	"github.com/anime-shed/image-descaler/pkg/models"
)

// ModelStatus reports whether the BRISQUE model is resident.
type ModelStatus interface {
	Loaded() bool
}

// StatsSource exposes in-process event totals.
type StatsSource interface {
	GetMetrics() map[string]interface{}
}

type handler struct {
	svc   service.QualityService
	model ModelStatus
	stats StatsSource
	cfg   *config.Config
}

// NewHandler wires the HTTP routes. model and stats may be nil.
func NewHandler(svc service.QualityService, model ModelStatus, stats StatsSource, cfg *config.Config) http.Handler {
	h := &handler{svc: svc, model: model, stats: stats, cfg: cfg}
	r := gin.New()

	// Add middleware
	r.Use(
		gin.Recovery(),
		requestMetrics(),
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	// Configure routes
	r.GET("/health", h.healthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/assess", h.assess)
	r.POST("/descale", h.descale)

	jobs := r.Group("/descale/jobs")
	jobs.POST("", h.submitJob)
	jobs.GET("/:id", h.getJob)
	jobs.GET("/:id/image", h.getJobImage)
	jobs.DELETE("/:id", h.cancelJob)

	return r
}

func (h *handler) healthCheck(c *gin.Context) {
	body := gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"workers": h.svc.PoolStats(),
	}
	if h.model != nil {
		body["model_loaded"] = h.model.Loaded()
	}
	if h.stats != nil {
		body["events"] = h.stats.GetMetrics()
	}
	c.JSON(http.StatusOK, body)
}

func (h *handler) assess(c *gin.Context) {
	startTime := time.Now()
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	var (
		result *service.Assessment
		source string
		err    error
	)
	if isMultipart(c) {
		var img *imaging.ARGBImage
		img, source, err = readUpload(c)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "invalid upload", err)
			return
		}
		result, err = h.svc.Assess(ctx, img)
	} else {
		var req models.AssessRequest
		if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
			respondError(c, http.StatusBadRequest, "invalid request format",
				apperrors.NewValidationError("invalid request format", bindErr))
			return
		}
		source = req.URL
		result, err = h.svc.AssessURL(ctx, req.URL)
	}
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "quality assessment failed", err)
		return
	}

	logger.WithFields(logrus.Fields{
		"source":             source,
		"score":              result.Score,
		"processing_time_ms": time.Since(startTime).Milliseconds(),
	}).Info("Image assessment completed successfully")

	c.JSON(http.StatusOK, toAssessResponse(result, source))
}

func isMultipart(c *gin.Context) bool {
	return c.ContentType() == gin.MIMEMultipartPOSTForm
}

// readUpload decodes the multipart "file" field.
func readUpload(c *gin.Context) (*imaging.ARGBImage, string, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		if tooLarge(err) {
			return nil, "", apperrors.NewTooLargeError("request body too large", err)
		}
		return nil, "", apperrors.NewValidationError(`multipart field "file" is required`, err)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, "", apperrors.NewValidationError("cannot open upload", err)
	}
	defer f.Close()

	img, _, err := imaging.Decode(f)
	if err != nil {
		return nil, "", apperrors.NewValidationError("unsupported or corrupt image", err)
	}
	return img, fh.Filename, nil
}

// tooLarge detects the body limit; multipart parsing does not always wrap
// the reader error.
func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start).Seconds())
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last()
			respondError(c, determineStatusCode(err.Err), "request processing failed", err.Err)
		}
	}
}

func determineStatusCode(err error) int {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return apperrors.StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	// Log the error with context
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	resp := models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		resp.Type = string(appErr.Type)
		resp.Message = fmt.Sprintf("%s: %s", message, appErr.Message)
		resp.Details = appErr.Details
	}
	if resp.Error == "" {
		resp.Error = "Client Closed Request"
	}
	c.AbortWithStatusJSON(code, resp)
}
