package strategy

import (
	"math"

	"gridflow/internal/model"
)

var familyOrder = []model.SignalFamily{
	model.FamilyIndicator,
	model.FamilyPattern,
	model.FamilyML,
	model.FamilySocial,
	model.FamilyNews,
}

// familyScore 一个信号族合成后的得分 [-1,1] 与平均置信度
type familyScore struct {
	family     model.SignalFamily
	score      float64
	confidence float64
	weight     float64
}

// signalScore 单个信号折算为得分：有方向的信号至少 0.5，强度越高越接近 1
func signalScore(s model.Signal) float64 {
	return float64(s.Direction) * (0.5 + 0.5*s.Strength)
}

// scoreFamilies 族内取平均；ML 族按模型权重加权。没有信号或权重为 0 的族不参与
func scoreFamilies(signals []model.Signal, weights model.SignalWeights, mlWeights map[string]float64) []familyScore {
	type acc struct {
		sum, wsum, conf float64
		n               int
	}
	by := make(map[model.SignalFamily]*acc)
	for _, s := range signals {
		w := 1.0
		if s.Family == model.FamilyML {
			w = mlWeights[s.Source]
			if w <= 0 {
				continue
			}
		}
		a := by[s.Family]
		if a == nil {
			a = &acc{}
			by[s.Family] = a
		}
		a.sum += w * signalScore(s)
		a.wsum += w
		a.conf += s.Confidence
		a.n++
	}
	var out []familyScore
	for _, f := range familyOrder {
		a := by[f]
		fw := weights.Of(f)
		if a == nil || a.wsum == 0 || fw <= 0 {
			continue
		}
		out = append(out, familyScore{
			family:     f,
			score:      a.sum / a.wsum,
			confidence: a.conf / float64(a.n),
			weight:     fw,
		})
	}
	return out
}

// combine 按配置的聚合方式合成总分与置信度
func combine(method string, fs []familyScore) (score, confidence float64) {
	if len(fs) == 0 {
		return 0, 0
	}
	var confSum float64
	for _, f := range fs {
		confSum += f.confidence
	}
	confidence = confSum / float64(len(fs))

	switch method {
	case model.AggMajorityVote:
		var bull, bear int
		var bullSum, bearSum float64
		for _, f := range fs {
			switch {
			case f.score > 0:
				bull++
				bullSum += f.score
			case f.score < 0:
				bear++
				bearSum += f.score
			}
		}
		switch {
		case bull > bear:
			return bullSum / float64(len(fs)), confidence
		case bear > bull:
			return bearSum / float64(len(fs)), confidence
		}
		return 0, confidence
	case model.AggUnanimous:
		var sum float64
		sign := 0.0
		for _, f := range fs {
			s := math.Copysign(1, f.score)
			if f.score == 0 || (sign != 0 && s != sign) {
				return 0, confidence
			}
			sign = s
			sum += f.score
		}
		return sum / float64(len(fs)), confidence
	case model.AggStrongest:
		best := fs[0]
		for _, f := range fs[1:] {
			if math.Abs(f.score*f.weight) > math.Abs(best.score*best.weight) {
				best = f
			}
		}
		return best.score, best.confidence
	}
	// weighted_average
	var sum, wsum float64
	for _, f := range fs {
		sum += f.weight * f.score
		wsum += f.weight
	}
	return sum / wsum, confidence
}
