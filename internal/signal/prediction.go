package signal

import "gridflow/internal/model"

// 经验表：按族给出预期涨跌幅与命中率，个别指标单独覆盖
var familyPredictions = map[model.SignalFamily]model.Prediction{
	model.FamilyIndicator: {ExpectedGainPct: 1.5, ExpectedLossPct: 1.0, Probability: 0.55, Timeframe: "1-3d"},
	model.FamilyPattern:   {ExpectedGainPct: 2.0, ExpectedLossPct: 1.5, Probability: 0.52, Timeframe: "1-5d"},
	model.FamilyML:        {ExpectedGainPct: 1.8, ExpectedLossPct: 1.2, Probability: 0.58, Timeframe: "1d"},
	model.FamilySocial:    {ExpectedGainPct: 2.5, ExpectedLossPct: 2.0, Probability: 0.51, Timeframe: "1-2d"},
	model.FamilyNews:      {ExpectedGainPct: 2.0, ExpectedLossPct: 1.5, Probability: 0.53, Timeframe: "1-2d"},
}

var kindPredictions = map[Kind]model.Prediction{
	KindRSI:                {ExpectedGainPct: 2.0, ExpectedLossPct: 1.2, Probability: 0.58, Timeframe: "2-5d"},
	KindMACD:               {ExpectedGainPct: 2.5, ExpectedLossPct: 1.5, Probability: 0.56, Timeframe: "3-10d"},
	KindBollinger:          {ExpectedGainPct: 1.8, ExpectedLossPct: 1.3, Probability: 0.57, Timeframe: "1-3d"},
	KindADX:                {ExpectedGainPct: 3.0, ExpectedLossPct: 1.8, Probability: 0.54, Timeframe: "5-15d"},
	KindIchimoku:           {ExpectedGainPct: 3.5, ExpectedLossPct: 2.0, Probability: 0.55, Timeframe: "5-20d"},
	KindDonchian:           {ExpectedGainPct: 3.0, ExpectedLossPct: 2.0, Probability: 0.50, Timeframe: "5-20d"},
	KindMorningStar:        {ExpectedGainPct: 2.8, ExpectedLossPct: 1.5, Probability: 0.60, Timeframe: "2-5d"},
	KindEveningStar:        {ExpectedGainPct: 2.8, ExpectedLossPct: 1.5, Probability: 0.60, Timeframe: "2-5d"},
	KindThreeWhiteSoldiers: {ExpectedGainPct: 3.2, ExpectedLossPct: 1.8, Probability: 0.62, Timeframe: "3-7d"},
	KindThreeBlackCrows:    {ExpectedGainPct: 3.2, ExpectedLossPct: 1.8, Probability: 0.62, Timeframe: "3-7d"},
	KindDoji:               {ExpectedGainPct: 0.5, ExpectedLossPct: 0.5, Probability: 0.50, Timeframe: "1d"},
}

// PredictionFor 返回该 kind 的预期表现，中性方向的命中率固定为 0.5
func PredictionFor(kind Kind, dir model.Direction) model.Prediction {
	p, ok := kindPredictions[kind]
	if !ok {
		p = familyPredictions[kind.Family()]
	}
	if dir == model.Neutral {
		p.Probability = 0.5
	}
	return p
}
