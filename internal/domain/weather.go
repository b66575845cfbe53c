package domain

// Weather 当前天气（外部服务返回，可能为空）
type Weather struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`
	Description string  `json:"description"`
	Location    string  `json:"location"`
}

// 环境上下文标签
const (
	ContextHarsh    = "harsh_environment"
	ContextModerate = "moderate_risk"
	ContextNormal   = "normal_conditions"
)

// EnvironmentalAnalysis 环境风险分析
type EnvironmentalAnalysis struct {
	RiskScore               float64  `json:"risk_score"`
	EnvironmentalContext    string   `json:"environmental_context"`
	Factors                 []string `json:"factors"`
	EnvironmentalMultiplier float64  `json:"environmental_multiplier"`
	WeatherAvailable        bool     `json:"weather_available"`
}

// HydrationTarget 推荐饮水量（升）
type HydrationTarget struct {
	DailyTarget             float64 `json:"daily_target"`
	HourlyTarget            float64 `json:"hourly_target"`
	BaseTarget              float64 `json:"base_target"`
	ActivityMultiplier      float64 `json:"activity_multiplier"`
	TimeMultiplier          float64 `json:"time_multiplier"`
	EnvironmentalMultiplier float64 `json:"environmental_multiplier"`
}
