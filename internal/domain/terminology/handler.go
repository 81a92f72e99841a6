package terminology

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ehr/cohort/pkg/pagination"
)

// Handler provides REST endpoints for diseases, measurements and concepts.
type Handler struct {
	svc *Service
}

// NewHandler creates a new terminology handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers terminology routes.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/diseases", h.ListDiseases)
	g.GET("/diseases/:key/concepts", h.ResolveDisease)
	g.GET("/measurements", h.ListMeasurements)
	g.GET("/concepts", h.SearchConcepts)
	g.GET("/concepts/:id", h.GetConcept)
}

// ListDiseases handles GET /diseases.
func (h *Handler) ListDiseases(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"diseases": h.svc.ListDiseases(),
	})
}

// ListMeasurements handles GET /measurements.
func (h *Handler) ListMeasurements(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"measurements": h.svc.ListMeasurements(),
	})
}

// ResolveDisease handles GET /diseases/:key/concepts.
func (h *Handler) ResolveDisease(c echo.Context) error {
	set, err := h.svc.Resolve(c.Request().Context(), c.Param("key"))
	if errors.Is(err, ErrUnknownDisease) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, set)
}

// GetConcept handles GET /concepts/:id.
func (h *Handler) GetConcept(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid concept id")
	}
	concept, err := h.svc.GetConcept(c.Request().Context(), id)
	if errors.Is(err, ErrConceptNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "concept not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, concept)
}

// SearchConcepts handles GET /concepts?code=...
func (h *Handler) SearchConcepts(c echo.Context) error {
	code := c.QueryParam("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter 'code' is required")
	}
	pg := pagination.FromContext(c)
	results, err := h.svc.SearchConcepts(c.Request().Context(), code, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if results == nil {
		results = []*Concept{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"concepts": results,
	})
}
