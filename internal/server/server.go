package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rezonia/nfe-processor/internal/export"
	"github.com/rezonia/nfe-processor/internal/model"
	xmlparser "github.com/rezonia/nfe-processor/internal/parser/xml"
	"github.com/rezonia/nfe-processor/internal/processor"
	"github.com/rezonia/nfe-processor/internal/tax"
)

const defaultMaxBodyBytes = 10 << 20

// Config holds server configuration
type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxBodyBytes int64
	Debug        bool

	// Rates overrides the embedded rate table
	Rates *tax.RateTable

	// Logger defaults to a zap production logger
	Logger *zap.Logger
}

// Server represents the HTTP API server
type Server struct {
	config   *Config
	router   *gin.Engine
	pipeline *processor.Pipeline
	logger   *zap.Logger
}

// NewServer creates a new API server
func NewServer(config *Config) *Server {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := config.Logger
	if logger == nil {
		var err error
		logger, err = zap.NewProduction()
		if err != nil {
			logger = zap.NewNop()
		}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if config.Debug {
		router.Use(gin.Logger())
	}
	router.Use(requestID(), accessLog(logger))

	pipeline := processor.NewPipeline(
		processor.WithRateTable(config.Rates),
		processor.WithLogger(logger),
	)

	s := &Server{
		config:   config,
		router:   router,
		pipeline: pipeline,
		logger:   logger,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		// Document endpoints take the raw NF-e XML as body
		nfe := v1.Group("/nfe")
		nfe.POST("/parse", s.handleParse)
		nfe.POST("/validate", s.handleValidate)
		nfe.POST("/difal", s.handleDocumentDIFAL)
		nfe.POST("/export", s.handleExport)

		v1.POST("/difal", s.handleDIFAL)
		v1.POST("/mva", s.handleMVA)
		v1.POST("/info", s.handleInfo)
		v1.GET("/rates", s.handleRates)
	}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	return s.httpServer().ListenAndServe()
}

// RunContext serves until ctx is cancelled, then drains in-flight requests
func (s *Server) RunContext(ctx context.Context) error {
	srv := s.httpServer()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server", zap.String("address", s.config.Address))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) httpServer() *http.Server {
	return &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
}

// Handler returns the http.Handler for use with custom servers
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleParse(c *gin.Context) {
	result, ok := s.process(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, ProcessResponse{
		Document:    result.Document,
		Diagnostics: result.Diagnostics,
		Summary:     result.Summary,
		Warnings:    result.Warnings,
	})
}

func (s *Server) handleValidate(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	result := s.pipeline.ProcessXMLBytes(ctx, body)
	if result.Error != nil {
		_ = c.Error(result.Error)
		c.JSON(http.StatusUnprocessableEntity, ValidationResponse{
			Valid:  false,
			Errors: []string{result.Error.Error()},
		})
		return
	}

	c.JSON(http.StatusOK, ValidationResponse{
		Valid:       result.Summary.Valid,
		Summary:     result.Summary,
		Diagnostics: result.Diagnostics,
	})
}

func (s *Server) handleDocumentDIFAL(c *gin.Context) {
	methodology, err := tax.ParseMethodology(c.Query("methodology"))
	if err != nil {
		s.fail(c, http.StatusBadRequest, "invalid methodology", err)
		return
	}

	result, ok := s.process(c)
	if !ok {
		return
	}

	in, err := tax.ExtractDIFALInput(result.Document, s.pipeline.Rates(), methodology)
	if err != nil {
		s.fail(c, http.StatusUnprocessableEntity, "cannot derive DIFAL input from document", err)
		return
	}

	difal, err := tax.CalculateDIFAL(in)
	if err != nil {
		s.fail(c, http.StatusUnprocessableEntity, "DIFAL calculation failed", err)
		return
	}

	c.JSON(http.StatusOK, DocumentDifalResponse{
		AccessKey: result.Document.AccessKey,
		Input:     in,
		Result:    difal,
	})
}

func (s *Server) handleDIFAL(c *gin.Context) {
	var req DifalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	in, err := s.difalInput(req)
	if err != nil {
		s.fail(c, http.StatusUnprocessableEntity, "cannot resolve rates", err)
		return
	}

	result, err := tax.CalculateDIFAL(in)
	if err != nil {
		s.fail(c, http.StatusUnprocessableEntity, "DIFAL calculation failed", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// difalInput fills rates the request left out from the rate table
func (s *Server) difalInput(req DifalRequest) (tax.DifalInput, error) {
	in := tax.DifalInput{
		OperationValue:   req.OperationValue,
		OriginState:      req.OriginState,
		DestinationState: req.DestinationState,
		Methodology:      req.Methodology,
	}

	rates := s.pipeline.Rates()

	if req.InterstateRate != nil {
		in.InterstateRate = *req.InterstateRate
	} else {
		rate, err := rates.InterstateRate(req.OriginState, req.DestinationState, req.Imported)
		if err != nil {
			return in, fmt.Errorf("interstate rate: %w", err)
		}
		in.InterstateRate = rate
	}

	if req.DestinationInternalRate == nil || req.FCPRate == nil {
		dest, ok := rates.State(req.DestinationState)
		if !ok {
			return in, fmt.Errorf("destination: %w: %q", tax.ErrUnknownState, req.DestinationState)
		}
		in.DestinationInternalRate = dest.Internal
		in.FCPRate = dest.FCP
	}
	if req.DestinationInternalRate != nil {
		in.DestinationInternalRate = *req.DestinationInternalRate
	}
	if req.FCPRate != nil {
		in.FCPRate = *req.FCPRate
	}

	return in, nil
}

func (s *Server) handleMVA(c *gin.Context) {
	var req MvaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	result, err := tax.CalculateMVA(tax.MvaInput{
		OriginalMVA:             req.OriginalMVA,
		InterstateRate:          req.InterstateRate,
		DestinationInternalRate: req.DestinationInternalRate,
	})
	if err != nil {
		s.fail(c, http.StatusUnprocessableEntity, "MVA calculation failed", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleInfo(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}

	format := processor.DetectFormat(body)
	resp := InfoResponse{
		Format: format.String(),
		Size:   len(body),
	}

	if format == processor.FormatNFe {
		result := s.pipeline.ProcessXMLBytes(c.Request.Context(), body)
		if result.Document != nil {
			resp.AccessKey = result.Document.AccessKey
		}
	}
	if format == processor.FormatNFe || format == processor.FormatXML {
		resp.Root = xmlparser.RootName(body)
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleExport(c *gin.Context) {
	format, err := export.ParseFormat(c.DefaultQuery("format", string(export.FormatXLSX)))
	if err != nil {
		s.fail(c, http.StatusBadRequest, "invalid export format", err)
		return
	}

	result, ok := s.process(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, []*model.FiscalDocument{result.Document}); err != nil {
		s.fail(c, http.StatusInternalServerError, "export failed", err)
		return
	}

	name := result.Document.AccessKey
	if name == "" {
		name = "nfe"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+"."+string(format)))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

func (s *Server) handleRates(c *gin.Context) {
	c.JSON(http.StatusOK, s.pipeline.Rates())
}

// process reads the body and runs the pipeline, writing the error response
// itself when anything fails.
func (s *Server) process(c *gin.Context) (*processor.Result, bool) {
	body, ok := s.readBody(c)
	if !ok {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	result := s.pipeline.ProcessXMLBytes(ctx, body)
	if result.Error != nil {
		s.fail(c, http.StatusUnprocessableEntity, "failed to parse NF-e", result.Error)
		return nil, false
	}
	return result, true
}

func (s *Server) readBody(c *gin.Context) ([]byte, bool) {
	limit := s.config.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	body, err := c.GetRawData()
	if err != nil {
		s.fail(c, http.StatusBadRequest, "failed to read request body", err)
		return nil, false
	}
	if len(body) == 0 {
		s.fail(c, http.StatusBadRequest, "empty request body", nil)
		return nil, false
	}
	return body, true
}

func (s *Server) fail(c *gin.Context, status int, message string, err error) {
	resp := ErrorResponse{
		Error:     message,
		RequestID: c.GetString(requestIDKey),
	}
	if err != nil {
		_ = c.Error(err)
		resp.Details = err.Error()
		resp.Code = errorCode(err)
	}
	c.AbortWithStatusJSON(status, resp)
}

// errorCode extracts the machine-readable code of parse and calc errors
func errorCode(err error) string {
	var parseErr *model.ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Code
	}
	var calcErr *model.CalcError
	if errors.As(err, &calcErr) {
		return calcErr.Code
	}
	return ""
}
