package httpapi

import (
	"net/http"

	"github.com/divakargaba/Dehydration/internal/domain"
	"github.com/divakargaba/Dehydration/internal/service"
	"github.com/divakargaba/Dehydration/internal/store"

	"go.uber.org/zap"
)

// HydrationDeps HydrationHandler 依赖
type HydrationDeps struct {
	Ingest        *service.IngestionService
	Predictor     *service.Predictor
	Trends        *service.TrendAnalyzer
	Latest        *store.LatestMetricsCache
	HeartRate     service.HeartRateSource
	DefaultUserID string
	Logger        *zap.Logger
}

// HydrationHandler 指标上报与实时预测接口
type HydrationHandler struct {
	ingest        *service.IngestionService
	predictor     *service.Predictor
	trends        *service.TrendAnalyzer
	latest        *store.LatestMetricsCache
	heartRate     service.HeartRateSource
	defaultUserID string
	logger        *zap.Logger
}

func NewHydrationHandler(d HydrationDeps) *HydrationHandler {
	return &HydrationHandler{
		ingest:        d.Ingest,
		predictor:     d.Predictor,
		trends:        d.Trends,
		latest:        d.Latest,
		heartRate:     d.HeartRate,
		defaultUserID: d.DefaultUserID,
		logger:        d.Logger,
	}
}

func (h *HydrationHandler) userIDOr(id string) string {
	if id == "" {
		return h.defaultUserID
	}
	return id
}

// POST /update_metrics
// body: 扁平指标字段 + 可选 user_id
func (h *HydrationHandler) UpdateMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	raw, m, err := readMetricsBody(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	userID := h.userIDOr(stringField(raw, "user_id"))

	res := h.ingest.Ingest(r.Context(), userID, m)
	writeJSON(w, http.StatusOK, Ok(res))
}

type annResponse struct {
	UserID      string            `json:"user_id,omitempty"`
	Metrics     domain.Metrics    `json:"metrics"`
	Prediction  domain.Prediction `json:"prediction"`
	ModelLoaded bool              `json:"model_loaded"`
}

// GET|POST /predict_ann
// 只使用共享模型；GET 无指标参数时使用该用户最近一次上报
func (h *HydrationHandler) PredictANN(w http.ResponseWriter, r *http.Request) {
	resp := annResponse{ModelLoaded: h.predictor.HasGlobalModel()}
	switch r.Method {
	case http.MethodPost:
		_, m, err := readMetricsBody(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
			return
		}
		resp.Metrics = m
	case http.MethodGet:
		if hasAnyMetric(r) {
			resp.Metrics = metricsFromQuery(r)
			break
		}
		resp.UserID = h.userIDOr(r.URL.Query().Get("user_id"))
		snap, err := h.latest.Get(r.Context(), resp.UserID)
		if err != nil {
			h.logger.Warn("Failed to read latest metrics", zap.String("user_id", resp.UserID), zap.Error(err))
		}
		if snap != nil {
			resp.Metrics = snap.Metrics
		}
	default:
		methodNotAllowed(w)
		return
	}
	resp.Prediction = h.predictor.PredictGlobal(resp.Metrics)
	writeJSON(w, http.StatusOK, Ok(resp))
}

// GET /predict_dehydration_risk?user_id=
func (h *HydrationHandler) PredictDehydrationRisk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	userID := h.userIDOr(r.URL.Query().Get("user_id"))
	writeJSON(w, http.StatusOK, Ok(h.trends.Analyze(r.Context(), userID)))
}

// GET /hr
func (h *HydrationHandler) HeartRate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	hr, err := h.heartRate.CurrentHeartRate(r.Context())
	if err != nil {
		h.logger.Warn("Heart rate source unavailable", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, Fail("heart rate unavailable"))
		return
	}
	pred := h.predictor.PredictGlobal(domain.Metrics{HeartRate: hr})
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"heart_rate":  hr,
		"status":      pred.RiskLabel,
		"probability": pred.Probability,
		"source":      pred.Source,
	}))
}

// GET /latest?user_id=
// 不带 user_id 时返回所有用户的最新快照
func (h *HydrationHandler) Latest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	ctx := r.Context()

	if userID := r.URL.Query().Get("user_id"); userID != "" {
		snap, err := h.latest.Get(ctx, userID)
		if err != nil {
			h.logger.Warn("Failed to read latest metrics", zap.String("user_id", userID), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, Fail("failed to read latest metrics"))
			return
		}
		if snap == nil {
			writeJSON(w, http.StatusOK, OkMessage[*store.LatestSnapshot](nil, "no metrics received yet"))
			return
		}
		writeJSON(w, http.StatusOK, Ok(snap))
		return
	}

	users, err := h.latest.Users(ctx)
	if err != nil {
		// 缓存不可用时返回空列表
		h.logger.Warn("Failed to list latest metrics", zap.Error(err))
		writeJSON(w, http.StatusOK, Ok([]*store.LatestSnapshot{}))
		return
	}
	out := make([]*store.LatestSnapshot, 0, len(users))
	for _, u := range users {
		snap, err := h.latest.Get(ctx, u)
		if err != nil || snap == nil {
			continue
		}
		out = append(out, snap)
	}
	writeJSON(w, http.StatusOK, Ok(out))
}

// GET /healthz
func (h *HydrationHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"status":       "ok",
		"global_model": h.predictor.HasGlobalModel(),
	}))
}
