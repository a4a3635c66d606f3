// Package server exposes the normalizer over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	normalizer "github.com/gofhir/normalizer"
	"github.com/gofhir/normalizer/fhir"
	"github.com/gofhir/normalizer/registry"
	"github.com/gofhir/normalizer/walker"
	"github.com/gofhir/normalizer/worker"
)

// maxBodyBytes bounds a request body.
const maxBodyBytes = 16 << 20

// Registry is the part of *registry.Registry the server uses.
type Registry interface {
	ValueSet(ctx context.Context, element, profileURL string, force *time.Time) (registry.ValueSetResult, error)
	Reload(ctx context.Context) error
	Entries(ctx context.Context) []registry.ManifestEntry
	Stats() registry.Stats
}

// Server routes normalization and registry requests.
type Server struct {
	echo       *echo.Echo
	normalizer worker.Normalizer
	batch      *worker.Batch
	registry   Registry
	log        zerolog.Logger
}

// New builds the server. workers sizes batch requests (<= 0 uses NumCPU).
func New(n worker.Normalizer, reg Registry, workers int, log zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:       e,
		normalizer: n,
		batch:      worker.NewBatch(n, workers),
		registry:   reg,
		log:        log,
	}

	e.Use(RequestID())
	e.Use(Logger(log))
	e.Use(Recovery(log))

	e.GET("/healthz", s.health)

	v1 := e.Group("/v1")
	v1.POST("/tenants/:tenant/normalize", s.normalize)
	v1.POST("/tenants/:tenant/normalize/$batch", s.normalizeBatch)
	v1.GET("/valuesets", s.valueSet)
	v1.GET("/registry", s.registryState)
	v1.POST("/registry/$reload", s.reload)

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.log.Info().Str("addr", addr).Msg("starting server")
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

type normalizeResponse struct {
	Resource fhir.Resource      `json:"resource"`
	Result   *normalizer.Result `json:"result"`
}

type batchItem struct {
	ID       string             `json:"id"`
	Resource fhir.Resource      `json:"resource,omitempty"`
	Result   *normalizer.Result `json:"result,omitempty"`
	Error    string             `json:"error,omitempty"`
}

type batchResponse struct {
	Results       []batchItem `json:"results"`
	TotalJobs     int         `json:"totalJobs"`
	CompletedJobs int         `json:"completedJobs"`
	FailedJobs    int         `json:"failedJobs"`
}

type registryResponse struct {
	Stats   registry.Stats           `json:"stats"`
	Entries []registry.ManifestEntry `json:"entries"`
}

func (s *Server) health(c echo.Context) error {
	st := s.registry.Stats()
	status := "ok"
	if st.Degraded {
		status = "degraded"
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status":     status,
		"generation": st.Generation,
	})
}

func (s *Server) normalize(c echo.Context) error {
	force, err := forceParam(c)
	if err != nil {
		return err
	}
	body, err := readBody(c)
	if err != nil {
		return err
	}

	resource, err := fhir.ParseResource(body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	out, result, err := s.normalizer.MapResource(c.Request().Context(), resource, c.Param("tenant"), force)
	if err != nil {
		return mappingError(err)
	}
	return c.JSON(http.StatusOK, normalizeResponse{Resource: out, Result: result})
}

func (s *Server) normalizeBatch(c echo.Context) error {
	force, err := forceParam(c)
	if err != nil {
		return err
	}
	body, err := readBody(c)
	if err != nil {
		return err
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "body must be a JSON array of resources")
	}

	tenant := c.Param("tenant")
	jobs := make([]worker.Job, len(raws))
	for i, raw := range raws {
		jobs[i] = worker.Job{Tenant: tenant, Resource: raw, Force: force}
	}

	br := s.batch.Normalize(c.Request().Context(), jobs)
	resp := batchResponse{
		Results:       make([]batchItem, len(br.Results)),
		TotalJobs:     br.TotalJobs,
		CompletedJobs: br.CompletedJobs,
		FailedJobs:    br.FailedJobs,
	}
	for i, r := range br.Results {
		resp.Results[i] = batchItem{
			ID:       r.ID,
			Resource: r.Resource,
			Result:   r.Result,
			Error:    r.ErrorMessage(),
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) valueSet(c echo.Context) error {
	force, err := forceParam(c)
	if err != nil {
		return err
	}
	element := c.QueryParam("element")
	if element == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "element is required")
	}

	vs, err := s.registry.ValueSet(c.Request().Context(), element, c.QueryParam("profile"), force)
	if err != nil {
		if errors.Is(err, registry.ErrProfileRequired) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return mappingError(err)
	}
	return c.JSON(http.StatusOK, vs)
}

func (s *Server) registryState(c echo.Context) error {
	entries := s.registry.Entries(c.Request().Context())
	if entries == nil {
		entries = []registry.ManifestEntry{}
	}
	return c.JSON(http.StatusOK, registryResponse{
		Stats:   s.registry.Stats(),
		Entries: entries,
	})
}

func (s *Server) reload(c echo.Context) error {
	if err := s.registry.Reload(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, s.registry.Stats())
}

// forceParam reads the optional RFC 3339 "force" query parameter.
func forceParam(c echo.Context) (*time.Time, error) {
	v := c.QueryParam("force")
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "force must be an RFC 3339 timestamp")
	}
	return &t, nil
}

func readBody(c echo.Context) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodyBytes+1))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "reading body: "+err.Error())
	}
	if len(body) > maxBodyBytes {
		return nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "body too large")
	}
	return body, nil
}

// mappingError maps a normalization failure to an HTTP status.
func mappingError(err error) error {
	var unregistered *walker.UnregisteredTypeError
	var ambiguous *registry.AmbiguousMappingError
	var inconsistent *registry.InconsistentExtensionError
	switch {
	case errors.As(err, &unregistered):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &ambiguous), errors.As(err, &inconsistent), errors.Is(err, registry.ErrMissingContent):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, registry.ErrTenantRequired):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
