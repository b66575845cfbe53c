package httpapi

import (
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/divakargaba/Dehydration/internal/domain"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, Fail("method not allowed"))
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// readMetricsBody 读取扁平的指标请求体；缺失或无法解析的字段按 0 处理
func readMetricsBody(r *http.Request) (map[string]any, domain.Metrics, error) {
	raw := map[string]any{}
	if err := readBodyJSON(r, maxBodyBytes, &raw); err != nil {
		return nil, domain.Metrics{}, err
	}
	return raw, domain.MetricsFromMap(raw), nil
}

// metricsFromQuery 从查询参数读取指标
func metricsFromQuery(r *http.Request) domain.Metrics {
	q := r.URL.Query()
	return domain.MetricsFromFields(func(name string) (any, bool) {
		if !q.Has(name) {
			return nil, false
		}
		return q.Get(name), true
	})
}

// stringField 读取字符串字段，数字 ID（如 42）按十进制文本处理
func stringField(raw map[string]any, key string) string {
	switch v := raw[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func hasAnyMetric(r *http.Request) bool {
	q := r.URL.Query()
	for _, name := range domain.FeatureNames {
		if q.Has(name) {
			return true
		}
	}
	return false
}
