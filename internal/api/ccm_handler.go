package api

import (
	"bytes"
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gocausal/internal"
	"gocausal/internal/ccm"
	"gocausal/internal/config"
	"gocausal/internal/errors"
	"gocausal/internal/report"
)

// RunIDHeader and SeedHeader identify a run so it can be reproduced
const (
	RunIDHeader = "X-Run-ID"
	SeedHeader  = "X-Seed"
)

// Per-request bounds on the bootstrap grid; trial slots are allocated up front.
const (
	MaxRequestSamples  = 10000
	MaxRequestLibSizes = 1000
)

// CCMRequest is the body of a cross-mapping request. Zero option fields fall
// back to the server configuration.
type CCMRequest struct {
	X         []float64   `json:"x" binding:"required"`
	Y         []float64   `json:"y" binding:"required"`
	XName     string      `json:"x_name,omitempty"`
	YName     string      `json:"y_name,omitempty"`
	Direction string      `json:"direction,omitempty"`
	Options   ccm.Options `json:"options"`
}

// CCMHandler serves cross-mapping analyses
type CCMHandler struct {
	config *config.Config
	logger *internal.Logger
}

// NewCCMHandler creates a new CCM handler
func NewCCMHandler(cfg *config.Config, logger *internal.Logger) *CCMHandler {
	return &CCMHandler{
		config: cfg,
		logger: logger.WithComponent("api"),
	}
}

// RegisterRoutes mounts the analysis endpoints
func (h *CCMHandler) RegisterRoutes(r gin.IRouter) {
	r.POST("/ccm", h.RunCCM)
	r.POST("/ccm/report", h.RunReport)
}

// RunCCM runs one direction, or both when direction is "both" or empty
func (h *CCMHandler) RunCCM(c *gin.Context) {
	runID := uuid.NewString()
	c.Header(RunIDHeader, runID)

	var req CCMRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		writeError(c, errors.InvalidInput("invalid request body: "+err.Error()))
		return
	}

	bidirectional := req.Direction == "" || req.Direction == "both"
	var dir ccm.Direction
	if !bidirectional {
		if dir, err = ccm.ParseDirection(req.Direction); err != nil {
			writeError(c, err)
			return
		}
	}

	analysis, err := h.newAnalysis(req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header(SeedHeader, strconv.FormatInt(analysis.Seed(), 10))

	ctx, cancel := h.requestContext(c)
	defer cancel()

	if bidirectional {
		res, err := analysis.Bidirectional(ctx)
		if err != nil {
			h.logger.Warn("run %s failed: %v", runID, err)
			writeError(c, err)
			return
		}
		h.logger.Info("run %s: bidirectional n=%d verdict=%s", runID, analysis.Len(), report.Summarize(res))
		c.JSON(http.StatusOK, res)
		return
	}

	res, err := analysis.CrossMap(ctx, dir)
	if err != nil {
		h.logger.Warn("run %s failed: %v", runID, err)
		writeError(c, err)
		return
	}
	h.logger.Info("run %s: %s n=%d convergent=%t", runID, dir, analysis.Len(), res.Convergent)
	c.JSON(http.StatusOK, res)
}

// RunReport runs both directions and renders a report; ?format= selects
// text, json, markdown or html
func (h *CCMHandler) RunReport(c *gin.Context) {
	format, err := report.ParseFormat(c.DefaultQuery("format", string(report.FormatJSON)))
	if err != nil {
		writeError(c, err)
		return
	}

	var req CCMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.InvalidInput("invalid request body: "+err.Error()))
		return
	}

	analysis, err := h.newAnalysis(req)
	if err != nil {
		writeError(c, err)
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	res, err := analysis.Bidirectional(ctx)
	if err != nil {
		writeError(c, err)
		return
	}

	rep := report.New(report.Input{
		Source:   "api",
		XName:    req.XName,
		YName:    req.YName,
		X:        req.X,
		Y:        req.Y,
		Analysis: analysis,
		Result:   res,
	})
	c.Header(RunIDHeader, rep.RunID)
	c.Header(SeedHeader, strconv.FormatInt(rep.Seed, 10))

	var buf bytes.Buffer
	if err := report.Render(&buf, rep, format); err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, contentType(format), buf.Bytes())
}

// newAnalysis fills unset request options from the server configuration
func (h *CCMHandler) newAnalysis(req CCMRequest) (*ccm.Analysis, error) {
	opts := h.config.CCMOptions()
	o := req.Options
	if o.NumSamples > MaxRequestSamples {
		return nil, errors.Newf(errors.CodeInvalidInput, "num_samples must be <= %d, got %d", MaxRequestSamples, o.NumSamples)
	}
	if len(o.LibSizes) > MaxRequestLibSizes {
		return nil, errors.Newf(errors.CodeInvalidInput, "at most %d lib_sizes are allowed, got %d", MaxRequestLibSizes, len(o.LibSizes))
	}
	if o.EmbeddingDim != 0 {
		opts.EmbeddingDim = o.EmbeddingDim
	}
	if o.Tau != 0 {
		opts.Tau = o.Tau
	}
	if len(o.LibSizes) > 0 {
		opts.LibSizes = o.LibSizes
	}
	if o.NumSamples != 0 {
		opts.NumSamples = o.NumSamples
	}
	if o.Seed != 0 {
		opts.Seed = o.Seed
	}
	if o.ExcludeDegenerate {
		opts.ExcludeDegenerate = true
	}
	opts.Logger = h.logger
	return ccm.New(req.X, req.Y, opts)
}

func (h *CCMHandler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if timeout := h.config.Analysis.RequestTimeout; timeout > 0 {
		return context.WithTimeout(c.Request.Context(), timeout)
	}
	return context.WithCancel(c.Request.Context())
}

// writeError maps error codes onto HTTP statuses. Errors without a code are
// reported as internal.
func writeError(c *gin.Context, err error) {
	if !errors.IsAppError(err) {
		err = errors.Wrap(err, "internal error")
	}
	code := errors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case errors.CodeInvalidInput, errors.CodeLengthMismatch, errors.CodeInsufficientData, errors.CodeValidationError:
		status = http.StatusBadRequest
	case errors.CodeNotFound:
		status = http.StatusNotFound
	case errors.CodeCanceled:
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}

func contentType(f report.Format) string {
	switch f {
	case report.FormatJSON:
		return "application/json; charset=utf-8"
	case report.FormatHTML:
		return "text/html; charset=utf-8"
	case report.FormatMarkdown:
		return "text/markdown; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}
