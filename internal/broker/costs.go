package broker

// A 股现行费率（2023 年 8 月后印花税标准）。
const (
	CommissionRate  = 0.0001  // 佣金：万分之一，双向
	MinCommission   = 5.0     // 最低佣金 5 元
	StampDutyRate   = 0.0005  // 印花税：万分之五，仅卖出
	TransferFeeRate = 0.00001 // 过户费：十万分之一，双向
)

// Costs 为一笔成交的费用拆分。
type Costs struct {
	Commission float64 `json:"commission"`
	Transfer   float64 `json:"transfer"`
	StampDuty  float64 `json:"stamp_duty"`
}

// Total 返回费用合计。
func (c Costs) Total() float64 { return c.Commission + c.Transfer + c.StampDuty }

// calcCosts 按成交金额计算费用，印花税只在卖出时收取。
func calcCosts(tradeValue float64, isBuy bool) Costs {
	commission := tradeValue * CommissionRate
	if commission < MinCommission {
		commission = MinCommission
	}
	c := Costs{
		Commission: commission,
		Transfer:   tradeValue * TransferFeeRate,
	}
	if !isBuy {
		c.StampDuty = tradeValue * StampDutyRate
	}
	return c
}
