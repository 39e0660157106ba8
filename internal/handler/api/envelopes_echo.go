package api

import (
	"encoding/json"
	"net/http"
	"time"

	models "Conflux/internal/domain/models"
	icache "Conflux/internal/service/cache"
	"Conflux/internal/service/metrics"
	"Conflux/internal/service/ratelimit"
	"Conflux/internal/usecase"
	pkgcache "Conflux/pkg/cache"
	xhttp "Conflux/pkg/http"
	xlogger "Conflux/pkg/logger"
	"Conflux/pkg/util"

	"github.com/labstack/echo/v4"
)

// EnvelopesEchoHandler serves read access to evaluation output over Echo.
type EnvelopesEchoHandler struct {
	logger    *xlogger.Logger
	envelopes *usecase.EnvelopesUseCase
	cache     icache.BytesCache
	rl        *ratelimit.Limiter
}

func NewEnvelopesEchoHandler(logger *xlogger.Logger, envelopes *usecase.EnvelopesUseCase) *EnvelopesEchoHandler {
	metrics.Register()
	return &EnvelopesEchoHandler{logger: logger, envelopes: envelopes, rl: ratelimit.New()}
}

// SetCache enables response caching for the history endpoint.
func (h *EnvelopesEchoHandler) SetCache(c icache.BytesCache) { h.cache = c }

func (h *EnvelopesEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/envelopes/:symbol", h.Latest)
	g.GET("/envelopes/:symbol/history", h.History)
	g.GET("/governor/:symbol", h.GovernorStates)
	e.GET("/healthz", h.Healthz)
}

func (h *EnvelopesEchoHandler) Latest(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("latest").Observe(time.Since(start).Seconds()) }()

	req := &models.LatestEnvelopeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	env, err := h.envelopes.Latest(req.Symbol)
	if err != nil {
		metrics.APIErrors.WithLabelValues("latest").Inc()
		h.logger.Error("latest envelope usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if env == nil {
		return xhttp.NotFoundResponse(c, map[string]string{"symbol": req.Symbol})
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=5")
	return xhttp.SuccessResponse(c, env)
}

func (h *EnvelopesEchoHandler) History(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("history").Observe(time.Since(start).Seconds()) }()

	req := &models.EnvelopeHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if !h.rl.Allow(c.RealIP()+":history", 5, 2) {
		h.logger.Warn("envelopes.history rate_limited", xlogger.String("remote", c.RealIP()))
		return echo.NewHTTPError(http.StatusTooManyRequests, "rate limited")
	}

	to := util.ParseTimeDefault(req.To, time.Now())
	from := util.ParseTimeDefault(req.From, to.Add(-24*time.Hour))
	from, to = util.AlignFromTo(from, to)

	cacheKey := pkgcache.GenerateKeyWithParams("history", req.Symbol, from.Unix(), to.Unix())
	if h.cache != nil {
		if b, ok, err := h.cache.GetBytes(cacheKey); err != nil {
			h.logger.Warn("envelopes.history cache_get_error", xlogger.Error(err))
		} else if ok {
			var cached []*models.AlertEnvelope
			if err := json.Unmarshal(b, &cached); err == nil {
				return xhttp.SuccessResponse(c, cached)
			}
		}
	}

	envs, err := h.envelopes.History(c.Request().Context(), usecase.HistoryParams{
		Symbol: req.Symbol,
		From:   from,
		To:     to,
		Limit:  req.Limit,
	})
	if err != nil {
		metrics.APIErrors.WithLabelValues("history").Inc()
		h.logger.Error("envelope history usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	if h.cache != nil {
		if b, err := json.Marshal(envs); err == nil {
			if err := h.cache.SetBytes(cacheKey, b, 30*time.Second); err != nil {
				h.logger.Warn("envelopes.history cache_set_error", xlogger.Error(err))
			}
		}
	}
	return xhttp.SuccessResponse(c, envs)
}

func (h *EnvelopesEchoHandler) GovernorStates(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("governor").Observe(time.Since(start).Seconds()) }()

	req := &models.GovernorStateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	states, err := h.envelopes.GovernorStates(c.Request().Context(), req.Symbol)
	if err != nil {
		metrics.APIErrors.WithLabelValues("governor").Inc()
		h.logger.Error("governor states usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, states)
}

func (h *EnvelopesEchoHandler) Healthz(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}
