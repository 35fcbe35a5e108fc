package claim

import (
	"errors"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/jinford/claim-rag/internal/core/assessment"
	"github.com/jinford/claim-rag/internal/core/search"
)

// DefaultCostEstimate は深刻度が不明な場合や類似請求に金額がない場合の見積額
const DefaultCostEstimate = 1000

// costRange は深刻度ごとの見積額の範囲（両端を含む）
type costRange struct {
	min, max int
}

var severityCostRanges = map[assessment.Severity]costRange{
	assessment.SeverityLow:    {min: 300, max: 1500},
	assessment.SeverityMedium: {min: 1000, max: 5000},
	assessment.SeverityHigh:   {min: 3000, max: 20000},
}

// EstimateBySeverity は深刻度の範囲から一様に見積額を選ぶ。
// rng が nil の場合はパッケージの乱数源を使う
func EstimateBySeverity(sev assessment.Severity, rng *rand.Rand) int {
	r, ok := severityCostRanges[sev]
	if !ok {
		return DefaultCostEstimate
	}
	n := r.max - r.min + 1
	if rng == nil {
		return r.min + rand.IntN(n)
	}
	return r.min + rng.IntN(n)
}

// EstimateFromMatches は類似請求の見積額の平均を四捨五入して返す。
// 見積額がない請求は DefaultCostEstimate として扱う
func EstimateFromMatches(matches []*search.Match) (int, error) {
	if len(matches) == 0 {
		return 0, errors.New("no similar claims to estimate from")
	}

	var sum float64
	for _, m := range matches {
		if m.CostEstimate != nil {
			sum += float64(*m.CostEstimate)
		} else {
			sum += DefaultCostEstimate
		}
	}
	return int(math.Round(sum / float64(len(matches)))), nil
}

// Estimator は類似請求があればその平均、なければ深刻度から見積額を決める
type Estimator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewEstimator は新しい Estimator を作成する。rng が nil の場合はパッケージの乱数源を使う
func NewEstimator(rng *rand.Rand) *Estimator {
	return &Estimator{rng: rng}
}

// Estimate は見積額を返す
func (e *Estimator) Estimate(sev assessment.Severity, matches []*search.Match) int {
	if cost, err := EstimateFromMatches(matches); err == nil {
		return cost
	}

	if e == nil || e.rng == nil {
		return EstimateBySeverity(sev, nil)
	}
	// *rand.Rand はゴルーチン安全ではない
	e.mu.Lock()
	defer e.mu.Unlock()
	return EstimateBySeverity(sev, e.rng)
}
