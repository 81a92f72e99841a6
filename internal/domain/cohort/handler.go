package cohort

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ehr/cohort/internal/domain/terminology"
	"github.com/ehr/cohort/pkg/pagination"
)

const (
	DefaultOutcomesLimit = 5000
	MaxOutcomesLimit     = 50000
)

// Handler provides the cohort statistics endpoints.
type Handler struct {
	svc          *Service
	defaultLimit int
	maxLimit     int
}

// NewHandler creates a cohort handler. Non-positive limits fall back to the
// package defaults.
func NewHandler(svc *Service, defaultLimit, maxLimit int) *Handler {
	if maxLimit <= 0 {
		maxLimit = MaxOutcomesLimit
	}
	if defaultLimit <= 0 {
		defaultLimit = DefaultOutcomesLimit
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	return &Handler{svc: svc, defaultLimit: defaultLimit, maxLimit: maxLimit}
}

// RegisterRoutes registers cohort routes.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	cg := g.Group("/cohort/:disease")
	cg.GET("/patients", h.Patients)
	cg.GET("/age-sex", h.AgeSex)
	cg.GET("/outcomes", h.Outcomes)
	cg.GET("/summary-stats", h.SummaryStats)
	cg.GET("/overview", h.Overview)
}

// Patients handles GET /cohort/:disease/patients.
func (h *Handler) Patients(c echo.Context) error {
	counts, err := h.svc.Patients(c.Request().Context(), c.Param("disease"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, counts)
}

// AgeSex handles GET /cohort/:disease/age-sex.
func (h *Handler) AgeSex(c echo.Context) error {
	rows, err := h.svc.AgeSex(c.Request().Context(), c.Param("disease"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"rows": rows})
}

// Outcomes handles GET /cohort/:disease/outcomes.
func (h *Handler) Outcomes(c echo.Context) error {
	mid, err := requiredMeasurementID(c)
	if err != nil {
		return err
	}
	limit, err := pagination.ParseLimit(c, h.defaultLimit, h.maxLimit)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rows, err := h.svc.Outcomes(c.Request().Context(), c.Param("disease"), mid, limit)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"rows": rows})
}

// SummaryStats handles GET /cohort/:disease/summary-stats.
func (h *Handler) SummaryStats(c echo.Context) error {
	mid, err := requiredMeasurementID(c)
	if err != nil {
		return err
	}
	stats, err := h.svc.SummaryStats(c.Request().Context(), c.Param("disease"), mid)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, stats)
}

// Overview handles GET /cohort/:disease/overview.
func (h *Handler) Overview(c echo.Context) error {
	mid := terminology.GlucoseConceptID
	if raw := c.QueryParam("measurement_id"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "measurement_id must be an integer")
		}
		mid = v
	}
	ov, err := h.svc.Overview(c.Request().Context(), c.Param("disease"), mid)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, ov)
}

func requiredMeasurementID(c echo.Context) (int64, error) {
	raw := c.QueryParam("measurement_id")
	if raw == "" {
		return 0, echo.NewHTTPError(http.StatusUnprocessableEntity, "query parameter 'measurement_id' is required")
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "measurement_id must be an integer")
	}
	return v, nil
}

func toHTTPError(err error) error {
	if errors.Is(err, terminology.ErrUnknownDisease) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
