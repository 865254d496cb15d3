package transport

import (
	"bytes"
	"fmt"
	"image/png"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/sirupsen/logrus"

	"github.com/anime-shed/image-descaler/internal/descale"
	apperrors "github.com/anime-shed/image-descaler/internal/errors"
	"github.com/anime-shed/image-descaler/internal/imaging"
	"github.com/anime-shed/image-descaler/internal/logger"
	"github.com/anime-shed/image-descaler/internal/service"
	"github.com/anime-shed/image-descaler/pkg/models"
)

// descaleInput reads the uploaded image and the option overrides.
func (h *handler) descaleInput(c *gin.Context) (*imaging.ARGBImage, descale.Options, error) {
	opts := h.cfg.DescaleOptions()
	if !isMultipart(c) {
		return nil, opts, apperrors.NewValidationError("multipart/form-data upload required", nil)
	}

	img, _, err := readUpload(c)
	if err != nil {
		return nil, opts, err
	}

	var req models.DescaleOptionsRequest
	if err := c.ShouldBindWith(&req, binding.FormMultipart); err != nil {
		return nil, opts, apperrors.NewValidationError("invalid descale options", err)
	}
	return img, applyOptions(opts, req), nil
}

func applyOptions(opts descale.Options, req models.DescaleOptionsRequest) descale.Options {
	if req.CoarseStep != nil {
		opts = opts.WithCoarseStep(*req.CoarseStep)
	}
	if req.FineStep != nil {
		opts = opts.WithFineStep(*req.FineStep)
	}
	if req.FineRange != nil {
		opts = opts.WithFineRange(*req.FineRange)
	}
	if req.MinWidthRatio != nil {
		opts = opts.WithMinWidthRatio(*req.MinWidthRatio)
	}
	if req.BrisqueWeight != nil || req.SharpnessWeight != nil {
		bw, sw := opts.BrisqueWeight, opts.SharpnessWeight
		if req.BrisqueWeight != nil {
			bw = *req.BrisqueWeight
		}
		if req.SharpnessWeight != nil {
			sw = *req.SharpnessWeight
		}
		opts = opts.WithWeights(bw, sw)
	}
	return opts
}

func (h *handler) descale(c *gin.Context) {
	img, opts, err := h.descaleInput(c)
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "invalid descale request", err)
		return
	}

	res, err := h.svc.Descale(c.Request.Context(), img, opts, nil)
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "descale failed", err)
		return
	}

	logger.WithFields(logrus.Fields{
		"original_width": res.OriginalWidth,
		"width":          res.DetectedOptimalWidth,
		"height":         res.DetectedOptimalHeight,
		"duration_ms":    res.Duration.Milliseconds(),
	}).Info("Descale completed successfully")

	if c.Query("format") == "png" {
		writePNG(c, res)
		return
	}
	c.JSON(http.StatusOK, toDescaleResponse(res))
}

// writePNG sends the resampled raster with the search outcome in headers.
func writePNG(c *gin.Context, res *descale.Result) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, res.Resampled.ToImage()); err != nil {
		respondError(c, http.StatusInternalServerError, "encode failed",
			apperrors.NewInternalError("png encode failed", err))
		return
	}

	c.Header("X-Descale-Width", strconv.Itoa(res.DetectedOptimalWidth))
	c.Header("X-Descale-Height", strconv.Itoa(res.DetectedOptimalHeight))
	c.Header("X-Descale-Original-Width", strconv.Itoa(res.OriginalWidth))
	c.Header("X-Descale-Original-Height", strconv.Itoa(res.OriginalHeight))
	c.Header("X-Descale-Brisque", formatScore(res.BestBrisqueScore))
	c.Header("X-Descale-Sharpness", formatScore(res.BestSharpness))
	c.Header("X-Descale-Combined", formatScore(res.CombinedScore))
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func formatScore(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', 2, 32)
}

func (h *handler) submitJob(c *gin.Context) {
	img, opts, err := h.descaleInput(c)
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "invalid descale request", err)
		return
	}

	job, err := h.svc.SubmitDescale(img, opts)
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "cannot queue descale job", err)
		return
	}

	c.Header("Location", fmt.Sprintf("/descale/jobs/%s", job.ID))
	c.JSON(http.StatusAccepted, toJobResponse(job))
}

func (h *handler) getJob(c *gin.Context) {
	job, err := h.svc.Job(c.Param("id"))
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "job lookup failed", err)
		return
	}
	c.JSON(http.StatusOK, toJobResponse(job))
}

func (h *handler) getJobImage(c *gin.Context) {
	job, err := h.svc.Job(c.Param("id"))
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "job lookup failed", err)
		return
	}
	if job.Status != service.JobCompleted || job.Result == nil {
		respondError(c, http.StatusConflict, "image not available",
			fmt.Errorf("job %s is %s", job.ID, job.Status))
		return
	}
	writePNG(c, job.Result)
}

func (h *handler) cancelJob(c *gin.Context) {
	job, err := h.svc.CancelJob(c.Param("id"))
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "job cancel failed", err)
		return
	}
	c.JSON(http.StatusOK, toJobResponse(job))
}
