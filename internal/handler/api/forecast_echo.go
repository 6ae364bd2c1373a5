package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	models "MarketCast/internal/domain/models"
	domrepo "MarketCast/internal/domain/repository"
	"MarketCast/internal/evaluation"
	icache "MarketCast/internal/service/cache"
	"MarketCast/internal/service/metrics"
	"MarketCast/internal/service/ratelimit"
	"MarketCast/internal/usecase"
	xhttp "MarketCast/pkg/http"
	xlogger "MarketCast/pkg/logger"
	"MarketCast/pkg/queue"

	"github.com/labstack/echo/v4"
)

// ForecastEchoHandler exposes evaluation, forecasting and candle
// endpoints over Echo.
type ForecastEchoHandler struct {
	logger   *xlogger.Logger
	eval     *usecase.EvaluationUseCase
	fcast    *usecase.ForecastUseCase
	candles  *usecase.CandlesUseCase
	jobQueue queue.QueueService
	cache    icache.BytesCache
	rl       *ratelimit.Limiter
}

func NewForecastEchoHandler(logger *xlogger.Logger, eval *usecase.EvaluationUseCase, fcast *usecase.ForecastUseCase, candles *usecase.CandlesUseCase) *ForecastEchoHandler {
	metrics.Register()
	return &ForecastEchoHandler{
		logger:  logger,
		eval:    eval,
		fcast:   fcast,
		candles: candles,
		rl:      ratelimit.New(),
	}
}

// SetJobQueue enables async evaluation submission.
func (h *ForecastEchoHandler) SetJobQueue(q queue.QueueService) { h.jobQueue = q }

// SetCache enables response caching for forecast reads.
func (h *ForecastEchoHandler) SetCache(c icache.BytesCache) { h.cache = c }

func (h *ForecastEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/evaluate", h.Evaluate)
	g.POST("/evaluate/async", h.EvaluateAsync)
	g.GET("/evaluate/latest", h.LatestEvaluation)
	g.GET("/forecast", h.Forecast)
	g.GET("/candles", h.Candles)
}

func (h *ForecastEchoHandler) Evaluate(c echo.Context) error {
	start := time.Now()
	endpoint := "evaluate"
	defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.EvaluateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":evaluate", 2, 0.5) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
	}

	summary, err := h.eval.RunEvaluation(c.Request().Context(), *req)
	if err != nil {
		metrics.APIErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error("evaluate usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapEvaluationError(err))
	}
	if summary == nil {
		return xhttp.NotFoundResponse(c, "insufficient data for a reliable evaluation")
	}
	return xhttp.SuccessResponse(c, summary)
}

func (h *ForecastEchoHandler) EvaluateAsync(c echo.Context) error {
	endpoint := "evaluate_async"
	req := &models.EvaluateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.jobQueue == nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("async evaluation queue not configured"))
	}
	if err := h.jobQueue.PublishMessage(c.Request().Context(), usecase.EvaluationJobType, req); err != nil {
		metrics.APIErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error("enqueue evaluation error", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return xhttp.DataResponse(c, http.StatusAccepted, map[string]string{
		"status": "queued",
		"symbol": req.Symbol,
	})
}

func (h *ForecastEchoHandler) LatestEvaluation(c echo.Context) error {
	endpoint := "evaluate_latest"
	req := &models.EvaluateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	summary, err := h.eval.LatestSummary(c.Request().Context(), req.Symbol, req.Model, req.Horizon)
	if err != nil {
		metrics.APIErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error("latest evaluation error", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	if summary == nil {
		return xhttp.NotFoundResponse(c, "no stored evaluation for this symbol/model/horizon")
	}
	return xhttp.SuccessResponse(c, summary)
}

func (h *ForecastEchoHandler) Forecast(c echo.Context) error {
	start := time.Now()
	endpoint := "forecast"
	defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":forecast", 5, 2) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
	}

	cacheKey := fmt.Sprintf("forecast:%s:%s:%s:%d", req.Symbol, req.Model, req.TF, req.Horizon)
	if h.cache != nil {
		if b, ok, err := h.cache.GetBytes(cacheKey); err == nil && ok {
			var cached models.Forecast
			if err := json.Unmarshal(b, &cached); err == nil {
				return xhttp.SuccessResponse(c, &cached)
			}
		}
	}

	fc, err := h.fcast.RunForecast(c.Request().Context(), *req)
	if err != nil {
		metrics.APIErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error("forecast usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapEvaluationError(err))
	}

	if h.cache != nil {
		if b, err := json.Marshal(fc); err == nil {
			_ = h.cache.SetBytes(cacheKey, b, 30*time.Second)
		}
	}
	return xhttp.SuccessResponse(c, fc)
}

func (h *ForecastEchoHandler) Candles(c echo.Context) error {
	endpoint := "candles"
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	now := time.Now().UTC()
	from := xhttp.ParseTimeDefault(req.From, now.AddDate(0, 0, -30))
	to := xhttp.ParseTimeDefault(req.To, now)

	res, err := h.candles.GetCandles(c.Request().Context(), usecase.GetCandlesParams{
		Symbol:    req.Symbol,
		From:      from,
		To:        to,
		Timeframe: domrepo.NormalizeTimeframe(req.TF),
		Limit:     req.Limit,
	})
	if err != nil {
		metrics.APIErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error("candles usecase error", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return xhttp.SuccessResponse(c, res)
}

// mapEvaluationError converts evaluation failures to API errors with
// meaningful status codes.
func mapEvaluationError(err error) error {
	var cfgErr *evaluation.ConfigError
	if errors.As(err, &cfgErr) {
		return xhttp.BadRequestError(cfgErr.Msg)
	}
	var laErr *evaluation.LookaheadViolation
	if errors.As(err, &laErr) {
		return xhttp.NewAppError("ERR_LOOKAHEAD_VIOLATION", "", laErr.Error(), http.StatusUnprocessableEntity)
	}
	var skipErr *evaluation.SystemicSkipError
	if errors.As(err, &skipErr) {
		return xhttp.NewAppError("ERR_SYSTEMIC_SKIPS", "", skipErr.Error(), http.StatusUnprocessableEntity)
	}
	return err
}
