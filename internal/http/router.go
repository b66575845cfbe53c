package httpapi

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

// ServeHTTP 记录每个请求的方法、路径、状态码和耗时
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	r.mux.ServeHTTP(sw, req)
	r.logger.Debug("HTTP request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", sw.status),
		zap.Duration("duration", time.Since(start)),
	)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// RegisterHydrationRoutes 指标上报与实时预测
func (r *Router) RegisterHydrationRoutes(h *HydrationHandler) {
	r.Handle("/update_metrics", h.UpdateMetrics)
	r.Handle("/predict_ann", h.PredictANN)
	r.Handle("/predict_dehydration_risk", h.PredictDehydrationRisk)
	r.Handle("/hr", h.HeartRate)
	r.Handle("/latest", h.Latest)
	r.Handle("/healthz", h.Healthz)
}

// RegisterUserRoutes /user/{id}/...
func (r *Router) RegisterUserRoutes(u *UserHandler) {
	r.HandleHandler(userPathPrefix, u)
}
