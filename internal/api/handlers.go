package api

import (
	"net/http"
	"strconv"
	"sync/atomic"

	"gamedash/internal/constants"
	"gamedash/internal/dashboard"
	"gamedash/internal/engine"
	"gamedash/internal/models"
	"gamedash/internal/sessions"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// dataset is the result of the background load.
type dataset struct {
	store *engine.ColumnStore
	err   error
}

type Handler struct {
	data   atomic.Pointer[dataset]
	dash   *dashboard.Service
	logger zerolog.Logger
}

// NewHandler returns a handler with no data. Until SetData is called every
// /api route answers 503.
func NewHandler(dash *dashboard.Service, logger zerolog.Logger) *Handler {
	return &Handler{dash: dash, logger: logger}
}

// SetData publishes a loaded dataset to all subsequent requests.
func (h *Handler) SetData(store *engine.ColumnStore) {
	h.data.Store(&dataset{store: store})
}

// SetError records a failed load.
func (h *Handler) SetError(err error) {
	h.data.Store(&dataset{err: err})
}

func (h *Handler) RegisterRoutes(e *echo.Echo, mw ...echo.MiddlewareFunc) {
	e.GET("/healthz", h.Health)

	api := e.Group("/api", append(mw, h.requireData)...)
	api.GET("/filters", h.GetFilters)
	api.GET("/dashboard", h.GetDashboard)
	api.POST("/query", h.PostQuery)
	api.GET("/sessions", h.GetSessions)
}

func (h *Handler) base() *engine.Frame {
	if d := h.data.Load(); d != nil && d.store != nil {
		return d.store.Frame()
	}
	return nil
}

func (h *Handler) requireData(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		d := h.data.Load()
		switch {
		case d == nil:
			return echo.NewHTTPError(http.StatusServiceUnavailable, "dataset is still loading")
		case d.err != nil:
			return echo.NewHTTPError(http.StatusServiceUnavailable, "dataset failed to load")
		}
		return next(c)
	}
}

// --- HANDLERS ---
func getPaginationParams(c echo.Context, defaultLimit int) (int, int) {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	if limit > constants.MaxPageSize {
		limit = constants.MaxPageSize
	}
	offset, err := strconv.Atoi(c.QueryParam("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

// scope builds the request's query scope from its filter parameters.
func (h *Handler) scope(c echo.Context) engine.Scope {
	params := c.QueryParams()
	return engine.Scope{
		Base:   h.base(),
		Filter: sessions.Predicate(func(p string) []string { return params[p] }),
	}
}

func (h *Handler) Health(c echo.Context) error {
	out := models.Health{Status: "loading"}
	if d := h.data.Load(); d != nil {
		if d.err != nil {
			out.Status = "failed"
		} else {
			out.Status, out.Loaded, out.Rows = "ok", true, d.store.Len()
		}
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) GetFilters(c echo.Context) error {
	filters, err := dashboard.Filters(h.base())
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, filters)
}

func (h *Handler) GetDashboard(c echo.Context) error {
	d, err := h.dash.Build(c.Request().Context(), h.scope(c))
	if err != nil {
		return queryError(err)
	}
	return writeJSON(c, http.StatusOK, d)
}

func (h *Handler) PostQuery(c echo.Context) error {
	var req models.QueryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query body").SetInternal(err)
	}

	f, err := engine.Filter(h.base(), req.Filter)
	if err != nil {
		return queryError(err)
	}
	for _, b := range req.Buckets {
		if f, err = engine.Bucketize(f, b.Column, b.BucketSpec); err != nil {
			return queryError(err)
		}
	}
	op, err := engine.ParseOp(req.Op)
	if err != nil {
		return queryError(err)
	}
	order, err := engine.ParseOrder(req.Order)
	if err != nil {
		return queryError(err)
	}

	res, err := engine.Aggregate(f, engine.Query{
		GroupBy: req.GroupBy,
		Metric:  req.Metric,
		Op:      op,
		Order:   order,
		Limit:   req.Limit,
	})
	if err != nil {
		return queryError(err)
	}
	return writeJSON(c, http.StatusOK, models.QueryResponse{Rows: res.Groups, Total: res.Total})
}

// GetSessions returns a page of the filtered rows.
func (h *Handler) GetSessions(c echo.Context) error {
	f, err := h.scope(c).Frame()
	if err != nil {
		return queryError(err)
	}
	total := f.Len()
	limit, offset := getPaginationParams(c, constants.DefaultPageSize)

	page := models.Page{
		Columns: f.Columns(),
		Data:    [][]string{},
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	}
	end := offset + limit
	if end > total {
		end = total
	}
	for i := offset; i < end; i++ {
		page.Data = append(page.Data, f.Row(i))
	}
	return writeJSON(c, http.StatusOK, page)
}

// queryError maps engine errors caused by the request to 400.
func queryError(err error) error {
	if engine.IsQueryError(err) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	return err
}
