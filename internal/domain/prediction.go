package domain

// 预测来源
const (
	SourceGlobal   = "global"
	SourcePersonal = "personal"
	SourceEnsemble = "ensemble"
	SourceFallback = "fallback"
)

// 置信度标签
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// FallbackProbability 所有模型都不可用时返回的概率
const FallbackProbability = 0.5

// Prediction 风险预测结果
type Prediction struct {
	Probability float64 `json:"probability"`
	RiskLabel   string  `json:"risk_label"`
	Source      string  `json:"source"`
	Confidence  string  `json:"confidence"`
}

// Trends 近期均值与更早窗口均值之差
type Trends struct {
	HeartRate   float64 `json:"heart_rate"`
	BodyTemp    float64 `json:"body_temp"`
	WaterIntake float64 `json:"water_intake"`
}

// FutureRisk 短时风险预测
type FutureRisk struct {
	CurrentRisk    float64  `json:"current_risk"`
	FutureRisk     float64  `json:"future_risk"`
	HorizonMinutes int      `json:"horizon_minutes"`
	Urgency        string   `json:"urgency"`
	TimeToEvent    string   `json:"time_to_dehydration"`
	Trends         Trends   `json:"trends"`
	Factors        []string `json:"risk_factors"`
}

// 缓冲区趋势结论
const (
	TrendHigh     = "High"
	TrendModerate = "Moderate"
	TrendLow      = "Low"
)

// BufferTrend 滑动缓冲区启发式趋势结果
type BufferTrend struct {
	Risk          string  `json:"risk"`
	Samples       int     `json:"samples"`
	HRRising      bool    `json:"hr_rising"`
	TempRising    bool    `json:"temp_rising"`
	LowWater      bool    `json:"low_water"`
	Probability   float64 `json:"probability"`
	HRDelta       float64 `json:"hr_delta"`
	BodyTempDelta float64 `json:"body_temp_delta"`
}
