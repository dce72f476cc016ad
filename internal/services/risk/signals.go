package risk

import (
	"math"
	"slices"
	"time"

	"fxwallet/internal/models"

	"github.com/shopspring/decimal"
)

const (
	day                   = 24 * time.Hour
	newAccountAge         = 7 * day
	youngAccountAge       = 30 * day
	thinHistoryCount      = 5
	unusualAmountWindow   = 10
	unusualAmountMinCount = 3
	unusualAmountFactor   = 3
	velocityWindow        = time.Hour
	velocityCount         = 5
	locationWindow        = 5
	locationMaxDistance   = 0.1
	timingWindow          = 20
	timingMinCount        = 5
	timingDeviations      = 2
)

// Signals is everything the score is computed from.
type Signals struct {
	Kind             models.TransactionKind `json:"kind"`
	Amount           decimal.Decimal        `json:"amount"`
	NewAccount       bool                   `json:"new_account"`
	YoungAccount     bool                   `json:"young_account"`
	ThinHistory      bool                   `json:"thin_history"`
	DailyLimitBreach bool                   `json:"daily_limit_breach"`
	UnusualAmount    bool                   `json:"unusual_amount"`
	HighVelocity     bool                   `json:"high_velocity"`
	LocationAnomaly  bool                   `json:"location_anomaly"`
	TimingAnomaly    bool                   `json:"timing_anomaly"`
}

// Weights are the points each triggered signal adds.
type Weights struct {
	Kind             map[models.TransactionKind]int
	AmountStep       decimal.Decimal // one point per full step of amount
	NewAccount       int
	YoungAccount     int
	ThinHistory      int
	DailyLimitBreach int
	UnusualAmount    int
	HighVelocity     int
	LocationAnomaly  int
}

func DefaultWeights() Weights {
	return Weights{
		Kind: map[models.TransactionKind]int{
			models.KindDeposit:    1,
			models.KindWithdrawal: 3,
			models.KindTransfer:   2,
		},
		AmountStep:       decimal.NewFromInt(1000),
		NewAccount:       5,
		YoungAccount:     2,
		ThinHistory:      3,
		DailyLimitBreach: 5,
		UnusualAmount:    4,
		HighVelocity:     3,
		LocationAnomaly:  7,
	}
}

// Thresholds split scores into levels: below Medium is LOW, below High is MEDIUM.
type Thresholds struct {
	Medium int
	High   int
}

func DefaultThresholds() Thresholds {
	return Thresholds{Medium: 5, High: 10}
}

// Score sums the weights of the triggered signals. The timing anomaly is reported, not scored.
func Score(s Signals, w Weights) int {
	score := w.Kind[s.Kind]
	if w.AmountStep.IsPositive() && s.Amount.IsPositive() {
		score += int(s.Amount.Div(w.AmountStep).Floor().IntPart())
	}

	add := func(triggered bool, weight int) {
		if triggered {
			score += weight
		}
	}
	add(s.NewAccount, w.NewAccount)
	add(s.YoungAccount, w.YoungAccount)
	add(s.ThinHistory, w.ThinHistory)
	add(s.DailyLimitBreach, w.DailyLimitBreach)
	add(s.UnusualAmount, w.UnusualAmount)
	add(s.HighVelocity, w.HighVelocity)
	add(s.LocationAnomaly, w.LocationAnomaly)
	return score
}

func Classify(score int, t Thresholds) models.RiskLevel {
	switch {
	case score < t.Medium:
		return models.RiskLow
	case score < t.High:
		return models.RiskMedium
	}
	return models.RiskHigh
}

func IsNewAccount(age time.Duration) bool {
	return age < newAccountAge
}

func IsYoungAccount(age time.Duration) bool {
	return age >= newAccountAge && age < youngAccountAge
}

// IsThinHistory reports whether the account has sent fewer than five transactions.
func IsThinHistory(priorCount int64) bool {
	return priorCount < thinHistoryCount
}

func IsDailyLimitBreach(spentToday, amount, limit decimal.Decimal) bool {
	return spentToday.Add(amount).GreaterThan(limit)
}

// IsUnusualAmount compares amount to the mean of recent amounts. It needs at
// least three of them to say anything.
func IsUnusualAmount(amount decimal.Decimal, recent []decimal.Decimal) bool {
	if len(recent) < unusualAmountMinCount {
		return false
	}
	mean := decimal.Avg(recent[0], recent[1:]...)
	return amount.GreaterThan(mean.Mul(decimal.NewFromInt(unusualAmountFactor)))
}

func IsHighVelocity(countLastHour int64) bool {
	return countLastHour >= velocityCount
}

// IsLocationAnomaly reports an IP never seen in recent (newest first) coming
// with either an unseen user agent or a position far from the latest one.
func IsLocationAnomaly(meta Metadata, recent []models.Transaction) bool {
	if len(recent) == 0 {
		return false
	}

	ipSeen := slices.ContainsFunc(recent, func(t models.Transaction) bool {
		return t.IPAddress == meta.IPAddress
	})
	agentSeen := slices.ContainsFunc(recent, func(t models.Transaction) bool {
		return t.UserAgent == meta.UserAgent
	})

	moved := false
	last := recent[0]
	if meta.Location != nil && last.Latitude != nil && last.Longitude != nil {
		dist := math.Hypot(meta.Location.Latitude-*last.Latitude, meta.Location.Longitude-*last.Longitude)
		moved = dist > locationMaxDistance
	}

	return !ipSeen && (!agentSeen || moved)
}

// IsTimingAnomaly reports whether the gap since the latest of createdAt is more
// than two standard deviations shorter than the mean gap between them.
func IsTimingAnomaly(now time.Time, createdAt []time.Time) bool {
	if len(createdAt) < timingMinCount {
		return false
	}

	times := slices.Clone(createdAt)
	slices.SortFunc(times, func(a, b time.Time) int { return a.Compare(b) })

	gaps := make([]float64, 0, len(times)-1)
	for i := 1; i < len(times); i++ {
		gaps = append(gaps, times[i].Sub(times[i-1]).Seconds())
	}

	var sum float64
	for _, g := range gaps {
		sum += g
	}
	mean := sum / float64(len(gaps))

	var sq float64
	for _, g := range gaps {
		sq += (g - mean) * (g - mean)
	}
	std := math.Sqrt(sq / float64(len(gaps)))

	since := now.Sub(times[len(times)-1]).Seconds()
	return since < mean-timingDeviations*std
}
