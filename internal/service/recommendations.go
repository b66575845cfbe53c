package service

import (
	"fmt"

	"github.com/divakargaba/Dehydration/internal/domain"
)

// Recommendations 根据当前风险、未来风险和环境给出建议
func Recommendations(pred domain.Prediction, future *domain.FutureRisk, env domain.EnvironmentalAnalysis, target domain.HydrationTarget, m domain.Metrics) []string {
	var recs []string

	switch {
	case pred.Probability > 0.8:
		recs = append(recs, "Drink 500ml of water immediately and rest in a cool place.")
	case pred.Probability > 0.6:
		recs = append(recs, "Drink 250-500ml of water within the next 15 minutes.")
	case pred.Probability > 0.4:
		recs = append(recs, "Have a glass of water soon.")
	default:
		recs = append(recs, "You're well hydrated. Keep sipping water regularly.")
	}

	if future != nil && future.FutureRisk > pred.Probability && future.Urgency != domain.UrgencyLow {
		recs = append(recs, fmt.Sprintf("Risk is rising: act within %s.", future.TimeToEvent))
	}

	switch env.EnvironmentalContext {
	case domain.ContextHarsh:
		recs = append(recs, "Conditions are harsh: avoid strenuous activity outdoors and drink every 15-20 minutes.")
	case domain.ContextModerate:
		recs = append(recs, "Weather increases fluid loss: drink a little more than usual.")
	}

	if m.Steps > 10000 {
		recs = append(recs, "High activity today: add an electrolyte drink.")
	}

	recs = append(recs, fmt.Sprintf("Target about %.2fL today (%.2fL per waking hour).", target.DailyTarget, target.HourlyTarget))
	return recs
}
