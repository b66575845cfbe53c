package httpapi

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/divakargaba/Dehydration/internal/domain"
	"github.com/divakargaba/Dehydration/internal/repository"
	"github.com/divakargaba/Dehydration/internal/service"
	"github.com/divakargaba/Dehydration/internal/store"

	"go.uber.org/zap"
)

const userPathPrefix = "/user/"

// UserDeps UserHandler 依赖
type UserDeps struct {
	Metrics       *service.MetricsService
	Baselines     *service.BaselineService
	Predictor     *service.Predictor
	Projector     *service.Projector
	Env           *service.EnvironmentService
	Analytics     *service.AnalyticsService
	Achievements  *service.AchievementService
	Alerts        repository.AlertsRepository
	Notifications repository.NotificationsRepository
	Latest        *store.LatestMetricsCache
	MinRecords    int
	Logger        *zap.Logger
}

// UserHandler /user/<id>/... 下的按用户查询与操作
type UserHandler struct {
	d UserDeps
}

func NewUserHandler(d UserDeps) *UserHandler {
	return &UserHandler{d: d}
}

// ServeHTTP 按路径分发：/user/{id}/{resource}[/{sub_id}/{action}]
func (h *UserHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, userPathPrefix), "/")
	parts := strings.Split(rest, "/")
	if len(parts) < 2 || parts[0] == "" {
		writeJSON(w, http.StatusNotFound, Fail("not found"))
		return
	}
	userID, resource := parts[0], parts[1:]

	type route struct {
		method string
		fn     func(http.ResponseWriter, *http.Request, string)
	}
	var rt route
	switch strings.Join(resource, "/") {
	case "metrics":
		rt = route{http.MethodGet, h.getMetrics}
	case "metrics/export":
		rt = route{http.MethodGet, h.exportMetrics}
	case "baseline":
		rt = route{http.MethodGet, h.getBaseline}
	case "alerts":
		rt = route{http.MethodGet, h.getAlerts}
	case "notifications":
		rt = route{http.MethodGet, h.getNotifications}
	case "analytics":
		rt = route{http.MethodGet, h.getAnalytics}
	case "achievements":
		rt = route{http.MethodGet, h.getAchievements}
	case "activity_correlation":
		rt = route{http.MethodGet, h.getActivityCorrelation}
	case "hydration_target":
		rt = route{http.MethodGet, h.getHydrationTarget}
	case "train_model":
		rt = route{http.MethodPost, h.trainModel}
	case "train_ensemble":
		rt = route{http.MethodPost, h.trainEnsemble}
	case "predict":
		rt = route{http.MethodPost, h.predict}
	case "predict_future":
		rt = route{http.MethodPost, h.predictFuture}
	default:
		// alerts/{alert_id}/read, notifications/{notification_id}/read
		if len(resource) == 3 && resource[2] == "read" && resource[1] != "" {
			switch resource[0] {
			case "alerts":
				rt = route{http.MethodPost, func(w http.ResponseWriter, r *http.Request, userID string) {
					h.markRead(w, r, userID, resource[1], h.d.Alerts.MarkAlertRead)
				}}
			case "notifications":
				rt = route{http.MethodPost, func(w http.ResponseWriter, r *http.Request, userID string) {
					h.markRead(w, r, userID, resource[1], h.d.Notifications.MarkNotificationRead)
				}}
			}
		}
	}
	if rt.fn == nil {
		writeJSON(w, http.StatusNotFound, Fail("not found"))
		return
	}
	if r.Method != rt.method {
		methodNotAllowed(w)
		return
	}
	rt.fn(w, r, userID)
}

// GET /user/{id}/metrics?days=7
func (h *UserHandler) getMetrics(w http.ResponseWriter, r *http.Request, userID string) {
	days := parseInt(r.URL.Query().Get("days"), 7)
	records, err := h.d.Metrics.Recent(r.Context(), userID, days)
	if err != nil {
		h.storageError(w, "list metrics", userID, err)
		return
	}
	if records == nil {
		records = []*domain.MetricRecord{}
	}
	writeJSON(w, http.StatusOK, Ok(records))
}

// GET /user/{id}/metrics/export?days=30
func (h *UserHandler) exportMetrics(w http.ResponseWriter, r *http.Request, userID string) {
	days := parseInt(r.URL.Query().Get("days"), service.TrainingWindowDays)
	records, err := h.d.Metrics.Recent(r.Context(), userID, days)
	if err != nil {
		h.storageError(w, "export metrics", userID, err)
		return
	}
	data, err := GenerateMetricsExport(records)
	if err != nil {
		h.d.Logger.Error("Failed to generate metrics export", zap.String("user_id", userID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to generate export"))
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": userID + "-metrics.xlsx"}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// GET /user/{id}/baseline?days=30
func (h *UserHandler) getBaseline(w http.ResponseWriter, r *http.Request, userID string) {
	days := parseInt(r.URL.Query().Get("days"), service.DefaultBaselineDays)
	b := h.d.Baselines.Baseline(r.Context(), userID, days)
	if b == nil {
		writeJSON(w, http.StatusOK, OkMessage[*domain.UserBaseline](nil, "no records in window"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(b))
}

// GET /user/{id}/alerts?unread_only=true&limit=50
func (h *UserHandler) getAlerts(w http.ResponseWriter, r *http.Request, userID string) {
	q := r.URL.Query()
	alerts, err := h.d.Alerts.ListAlerts(r.Context(), userID, parseBool(q.Get("unread_only")), parseInt(q.Get("limit"), 50))
	if err != nil {
		h.storageError(w, "list alerts", userID, err)
		return
	}
	if alerts == nil {
		alerts = []*domain.Alert{}
	}
	writeJSON(w, http.StatusOK, Ok(alerts))
}

// GET /user/{id}/notifications?unread_only=true&limit=50
func (h *UserHandler) getNotifications(w http.ResponseWriter, r *http.Request, userID string) {
	q := r.URL.Query()
	ns, err := h.d.Notifications.ListNotifications(r.Context(), userID, parseBool(q.Get("unread_only")), parseInt(q.Get("limit"), 50))
	if err != nil {
		h.storageError(w, "list notifications", userID, err)
		return
	}
	if ns == nil {
		ns = []*domain.Notification{}
	}
	writeJSON(w, http.StatusOK, Ok(ns))
}

// POST /user/{id}/alerts/{alert_id}/read, /user/{id}/notifications/{notification_id}/read
func (h *UserHandler) markRead(w http.ResponseWriter, r *http.Request, userID, id string, mark func(context.Context, string, string) error) {
	if err := mark(r.Context(), userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, Fail("not found"))
			return
		}
		h.storageError(w, "mark read", userID, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"id": id, "read": true}))
}

// GET /user/{id}/analytics?days=7
func (h *UserHandler) getAnalytics(w http.ResponseWriter, r *http.Request, userID string) {
	a, err := h.d.Analytics.Analytics(r.Context(), userID, parseInt(r.URL.Query().Get("days"), service.DefaultAnalyticsDays))
	if err != nil {
		h.storageError(w, "compute analytics", userID, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(a))
}

// GET /user/{id}/achievements
func (h *UserHandler) getAchievements(w http.ResponseWriter, r *http.Request, userID string) {
	list, err := h.d.Achievements.List(r.Context(), userID)
	if err != nil {
		h.storageError(w, "list achievements", userID, err)
		return
	}
	if list == nil {
		list = []*domain.Achievement{}
	}
	writeJSON(w, http.StatusOK, Ok(list))
}

// GET /user/{id}/activity_correlation?days=30
func (h *UserHandler) getActivityCorrelation(w http.ResponseWriter, r *http.Request, userID string) {
	c, err := h.d.Analytics.ActivityCorrelation(r.Context(), userID, parseInt(r.URL.Query().Get("days"), service.DefaultCorrelationDays))
	if err != nil {
		h.storageError(w, "compute activity correlation", userID, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(c))
}

type hydrationTargetResponse struct {
	Target      domain.HydrationTarget       `json:"hydration_target"`
	Environment domain.EnvironmentalAnalysis `json:"environmental_analysis"`
	Weather     *domain.Weather              `json:"weather"`
	Metrics     domain.Metrics               `json:"metrics"`
}

// GET /user/{id}/hydration_target
// 查询参数中的指标优先，否则使用最近一次上报
func (h *UserHandler) getHydrationTarget(w http.ResponseWriter, r *http.Request, userID string) {
	ctx := r.Context()
	var m domain.Metrics
	if hasAnyMetric(r) {
		m = metricsFromQuery(r)
	} else if h.d.Latest != nil {
		snap, err := h.d.Latest.Get(ctx, userID)
		if err != nil {
			h.d.Logger.Warn("Failed to read latest metrics", zap.String("user_id", userID), zap.Error(err))
		}
		if snap != nil {
			m = snap.Metrics
		}
	}
	weather := h.d.Env.Weather(ctx)
	writeJSON(w, http.StatusOK, Ok(hydrationTargetResponse{
		Target:      h.d.Env.HydrationTarget(m, weather),
		Environment: h.d.Env.Analyze(weather),
		Weather:     weather,
		Metrics:     m,
	}))
}

type trainRequest struct {
	MinRecords int `json:"min_records"`
}

type trainResponse struct {
	UserID  string `json:"user_id"`
	Model   string `json:"model"`
	Success bool   `json:"success"`
}

// POST /user/{id}/train_model  body: {"min_records": 50}
func (h *UserHandler) trainModel(w http.ResponseWriter, r *http.Request, userID string) {
	h.train(w, r, userID, "personal", h.d.Predictor.TrainPersonal)
}

// POST /user/{id}/train_ensemble  body: {"min_records": 50}
func (h *UserHandler) trainEnsemble(w http.ResponseWriter, r *http.Request, userID string) {
	h.train(w, r, userID, "ensemble", h.d.Predictor.TrainEnsemble)
}

func (h *UserHandler) train(w http.ResponseWriter, r *http.Request, userID, model string, fn func(context.Context, string, int) bool) {
	req := trainRequest{MinRecords: h.d.MinRecords}
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	resp := trainResponse{UserID: userID, Model: model, Success: fn(r.Context(), userID, req.MinRecords)}
	if !resp.Success {
		writeJSON(w, http.StatusOK, OkMessage(resp, "training skipped or failed (insufficient data?)"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// POST /user/{id}/predict  body: 扁平指标字段
func (h *UserHandler) predict(w http.ResponseWriter, r *http.Request, userID string) {
	_, m, err := readMetricsBody(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(h.d.Predictor.Predict(userID, m)))
}

// POST /user/{id}/predict_future  body: 扁平指标字段 + 可选 horizon_minutes
func (h *UserHandler) predictFuture(w http.ResponseWriter, r *http.Request, userID string) {
	raw, m, err := readMetricsBody(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	horizon := int(domain.ToFloat(raw["horizon_minutes"]))
	future := h.d.Projector.Project(r.Context(), userID, m, horizon)
	if future == nil {
		writeJSON(w, http.StatusOK, OkMessage[*domain.FutureRisk](nil, "insufficient recent data (need at least 5 readings in the last day)"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(future))
}

func (h *UserHandler) storageError(w http.ResponseWriter, op, userID string, err error) {
	h.d.Logger.Error("Failed to "+op, zap.String("user_id", userID), zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, Fail("failed to "+op))
}
