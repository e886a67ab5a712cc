package indicator

// 默认 MACD 参数（12/26/9），与常见行情软件一致。
const (
	DefaultFast   = 12
	DefaultSlow   = 26
	DefaultSignal = 9
)

// Frame 为单根 K 线的 MACD 快照。
// PrevDIF/PrevDEA 取自上一根 K 线，用于判定当根是否发生金叉/死叉；
// 序列首根没有前值，Ready 为 false，下游应跳过而不是报错。
type Frame struct {
	DIF     float64 `json:"dif"`
	DEA     float64 `json:"dea"`
	Hist    float64 `json:"hist"`
	PrevDIF float64 `json:"prev_dif"`
	PrevDEA float64 `json:"prev_dea"`
	Ready   bool    `json:"ready"`
}

// GoldenCross 判断当根是否金叉（DIF 上穿 DEA）。
func (f Frame) GoldenCross() bool {
	return f.Ready && f.PrevDIF <= f.PrevDEA && f.DIF > f.DEA
}

// DeathCross 判断当根是否死叉（DIF 下穿 DEA）。
func (f Frame) DeathCross() bool {
	return f.Ready && f.PrevDIF >= f.PrevDEA && f.DIF < f.DEA
}

// EMA 计算 span 周期的指数移动平均。
// 递推式 ema[t] = close[t]*k + ema[t-1]*(1-k)，k = 2/(span+1)，
// 初值取首根收盘价，不做偏差修正，与 pandas ewm(adjust=False) 对齐。
// 每一项只依赖当前及更早的输入，不存在未来函数。
func EMA(values []float64, span int) []float64 {
	if len(values) == 0 || span <= 0 {
		return nil
	}
	k := 2.0 / float64(span+1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for t := 1; t < len(values); t++ {
		out[t] = values[t]*k + out[t-1]*(1-k)
	}
	return out
}

// MACD 由收盘价序列计算逐根 Frame。
// DIF = EMA(fast) − EMA(slow)，DEA = EMA(DIF, signal)，Hist = 2×(DIF−DEA)。
func MACD(closes []float64, fast, slow, signal int) []Frame {
	if len(closes) == 0 {
		return nil
	}
	if fast <= 0 {
		fast = DefaultFast
	}
	if slow <= 0 {
		slow = DefaultSlow
	}
	if signal <= 0 {
		signal = DefaultSignal
	}
	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)
	dif := make([]float64, len(closes))
	for i := range closes {
		dif[i] = emaFast[i] - emaSlow[i]
	}
	dea := EMA(dif, signal)
	frames := make([]Frame, len(closes))
	for i := range closes {
		frames[i] = Frame{
			DIF:  dif[i],
			DEA:  dea[i],
			Hist: (dif[i] - dea[i]) * 2,
		}
		if i > 0 {
			frames[i].PrevDIF = dif[i-1]
			frames[i].PrevDEA = dea[i-1]
			frames[i].Ready = true
		}
	}
	return frames
}
