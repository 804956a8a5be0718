package api

import (
	"encoding/json"
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"

	"SpendLens/internal/domain/models"
	icache "SpendLens/internal/service/cache"
	"SpendLens/internal/service/metrics"
	"SpendLens/internal/service/ratelimit"
	"SpendLens/internal/usecase"
	pkgcache "SpendLens/pkg/cache"
	xhttp "SpendLens/pkg/http"
	xlogger "SpendLens/pkg/logger"
)

// InsightsEchoHandler exposes the scan, anomaly and recurring surfaces
// over Echo.
type InsightsEchoHandler struct {
	logger *xlogger.Logger
	svc    *usecase.InsightService
	cache  icache.BytesCache
	rl     *ratelimit.Limiter

	anomaliesTTL time.Duration
	recurringTTL time.Duration

	// gen prefixes cache keys; writes bump it so stale entries are
	// simply never read again and age out by TTL.
	gen atomic.Uint64
}

func NewInsightsEchoHandler(logger *xlogger.Logger, svc *usecase.InsightService) *InsightsEchoHandler {
	metrics.Register()
	return &InsightsEchoHandler{
		logger:       logger,
		svc:          svc,
		rl:           ratelimit.New(),
		anomaliesTTL: 30 * time.Second,
		recurringTTL: 60 * time.Second,
	}
}

// SetCache injects a response cache for the read endpoints.
func (h *InsightsEchoHandler) SetCache(c icache.BytesCache) { h.cache = c }

func (h *InsightsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/scan", h.Scan)
	g.GET("/anomalies", h.Anomalies)
	g.POST("/anomalies/:id/dismiss", h.DismissAnomaly)
	g.DELETE("/anomalies/:id/dismiss", h.RestoreAnomaly)
	g.GET("/recurring", h.Recurring)
	g.GET("/recurring/exclusions", h.Exclusions)
	g.POST("/recurring/exclusions", h.ExcludeMerchant)
	g.DELETE("/recurring/exclusions/:name", h.RemoveExclusion)
	g.POST("/transactions", h.IngestTransactions)
}

func (h *InsightsEchoHandler) Scan(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.InsightLatency.WithLabelValues("scan").Observe(time.Since(start).Seconds()) }()

	req := &models.ScanRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	// Echo only binds query params on GET/DELETE; accept them on POST too.
	if w := c.QueryParam("window"); w != "" {
		req.Window = w
	}
	if f := c.QueryParam("force"); f == "true" || f == "1" {
		req.Force = true
	}
	// Scans walk the whole window; keep them off the hot path.
	if !h.rl.Allow(c.RealIP()+":scan", 3, 0.5) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("scan rate limited"))
	}

	res, err := h.svc.Scan(c.Request().Context(), *req)
	if err != nil {
		if errors.Is(err, usecase.ErrScanInFlight) {
			return xhttp.AppErrorResponse(c, xhttp.ConflictError("a scan is already running"))
		}
		metrics.InsightErrors.WithLabelValues("scan").Inc()
		h.logger.Error("scan usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *InsightsEchoHandler) Anomalies(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.InsightLatency.WithLabelValues("anomalies").Observe(time.Since(start).Seconds()) }()

	req := &models.AnomaliesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	cacheKey := h.key(pkgcache.GenerateKeyWithParams("anomalies", req.Window, req.All))
	if !req.All {
		if b, ok := h.cached(c, cacheKey); ok {
			return h.writeCachedRows(c, b)
		}
	}

	rows, err := h.svc.Anomalies(c.Request().Context(), *req)
	if err != nil {
		metrics.InsightErrors.WithLabelValues("anomalies").Inc()
		h.logger.Error("anomalies usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if !req.All {
		h.store(cacheKey, rows, int64(len(rows)), h.anomaliesTTL)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *InsightsEchoHandler) DismissAnomaly(c echo.Context) error {
	return h.setDismissed(c, true)
}

func (h *InsightsEchoHandler) RestoreAnomaly(c echo.Context) error {
	return h.setDismissed(c, false)
}

func (h *InsightsEchoHandler) setDismissed(c echo.Context, dismissed bool) error {
	id := c.Param("id")
	if id == "" {
		return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{
			Code: "ERR_REQUIRED", Field: "id", Message: "transaction id is required",
		}})
	}
	if err := h.svc.DismissAnomaly(c.Request().Context(), id, dismissed); err != nil {
		metrics.InsightErrors.WithLabelValues("dismiss").Inc()
		h.logger.Error("dismiss usecase error", xlogger.Error(err), xlogger.String("id", id))
		return xhttp.AppErrorResponse(c, err)
	}
	h.invalidateCached()
	return xhttp.SuccessResponse(c, map[string]interface{}{"id": id, "dismissed": dismissed})
}

func (h *InsightsEchoHandler) Recurring(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.InsightLatency.WithLabelValues("recurring").Observe(time.Since(start).Seconds()) }()

	req := &models.RecurringRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	cacheKey := h.key(pkgcache.GenerateKeyWithParams("recurring", req.Window, req.Frequency, req.IncludeInactive))
	if b, ok := h.cached(c, cacheKey); ok {
		return h.writeCachedRows(c, b)
	}

	rows, err := h.svc.Recurring(c.Request().Context(), *req)
	if err != nil {
		metrics.InsightErrors.WithLabelValues("recurring").Inc()
		h.logger.Error("recurring usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	h.store(cacheKey, rows, int64(len(rows)), h.recurringTTL)
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *InsightsEchoHandler) Exclusions(c echo.Context) error {
	rows, err := h.svc.Exclusions(c.Request().Context())
	if err != nil {
		metrics.InsightErrors.WithLabelValues("exclusions").Inc()
		h.logger.Error("exclusions usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *InsightsEchoHandler) ExcludeMerchant(c echo.Context) error {
	req := &models.ExcludeMerchantRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ex, err := h.svc.ExcludeMerchant(c.Request().Context(), req.MerchantName)
	if err != nil {
		metrics.InsightErrors.WithLabelValues("exclusions").Inc()
		h.logger.Error("exclude usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	h.invalidateCached()
	return xhttp.CreatedResponse(c, ex)
}

func (h *InsightsEchoHandler) RemoveExclusion(c echo.Context) error {
	name := c.Param("name")
	if name == "" {
		return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{
			Code: "ERR_REQUIRED", Field: "name", Message: "merchant name is required",
		}})
	}
	if err := h.svc.RemoveExclusion(c.Request().Context(), name); err != nil {
		metrics.InsightErrors.WithLabelValues("exclusions").Inc()
		h.logger.Error("remove exclusion usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	h.invalidateCached()
	return xhttp.NoContentResponse(c)
}

func (h *InsightsEchoHandler) IngestTransactions(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.InsightLatency.WithLabelValues("ingest").Observe(time.Since(start).Seconds()) }()

	req := &models.IngestTransactionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	n, err := h.svc.Ingest(c.Request().Context(), *req)
	if err != nil {
		metrics.InsightErrors.WithLabelValues("ingest").Inc()
		h.logger.Error("ingest usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	h.invalidateCached()
	return xhttp.CreatedResponse(c, map[string]int{"ingested": n})
}

func (h *InsightsEchoHandler) cached(c echo.Context, key string) ([]byte, bool) {
	if h.cache == nil {
		return nil, false
	}
	b, ok, err := h.cache.GetBytes(key)
	if err != nil {
		h.logger.Warn("cache get failed", xlogger.Error(err), xlogger.String("key", key))
		return nil, false
	}
	return b, ok
}

// rowsEnvelope is the cached form of a list response.
type rowsEnvelope struct {
	Rows  json.RawMessage `json:"rows"`
	Total int64           `json:"total"`
}

func (h *InsightsEchoHandler) store(key string, rows interface{}, total int64, ttl time.Duration) {
	if h.cache == nil {
		return
	}
	raw, err := json.Marshal(rows)
	if err != nil {
		return
	}
	b, err := json.Marshal(rowsEnvelope{Rows: raw, Total: total})
	if err != nil {
		return
	}
	if err := h.cache.SetBytes(key, b, ttl); err != nil {
		h.logger.Warn("cache set failed", xlogger.Error(err), xlogger.String("key", key))
	}
}

func (h *InsightsEchoHandler) writeCachedRows(c echo.Context, b []byte) error {
	var env rowsEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return xhttp.InternalServerErrorResponse(c)
	}
	return xhttp.ListResponse(c, env.Rows, env.Total)
}

func (h *InsightsEchoHandler) key(suffix string) string {
	return "v" + strconv.FormatUint(h.gen.Load(), 10) + ":" + suffix
}

// invalidateCached moves reads to a fresh key space; superseded
// entries age out by TTL.
func (h *InsightsEchoHandler) invalidateCached() {
	h.gen.Add(1)
}
