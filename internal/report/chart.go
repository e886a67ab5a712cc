package report

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"huice/internal/backtest"
	"huice/internal/broker"
	"huice/internal/indicator"
	"huice/internal/market"
)

const (
	colorBackground    = "#060c1b"
	colorTextPrimary   = "#eceff4"
	colorTextSecondary = "#9ca3af"
	colorUp            = "#ef5350" // A 股习惯：红涨绿跌
	colorDown          = "#26a69a"
	colorMA5           = "#3b82f6"
	colorMA20          = "#fbbf24"
	colorMA60          = "#f472b6"
	colorDIF           = "#22d3ee"
	colorDEA           = "#fb7185"
	colorEquity        = "#a78bfa"

	chartWidthPx   = 1600
	klineHeightPx  = 600
	macdHeightPx   = 260
	equityHeightPx = 260
)

// RenderHTML 生成单标的回测报告页：K 线 + 均线 + 买卖点、MACD、净值曲线。
func RenderHTML(result *backtest.ReplayResult) ([]byte, error) {
	if len(result.Bars) == 0 {
		return nil, fmt.Errorf("标的 %s 无可绘制数据", result.Symbol)
	}
	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)

	xAxis := buildXAxis(result.Bars)
	page.AddCharts(
		buildKlineChart(result, xAxis),
		buildMACDChart(result.Symbol, xAxis, result.Frames),
		buildEquityChart(result.Symbol, xAxis, result.Equity),
	)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, fmt.Errorf("渲染报告失败: %w", err)
	}
	return buf.Bytes(), nil
}

// SaveHTML 渲染并落盘报告，返回文件路径。
func SaveHTML(dir string, result *backtest.ReplayResult) (string, error) {
	html, err := RenderHTML(result)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("创建输出目录失败: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_backtest.html", result.Symbol))
	if err := os.WriteFile(path, html, 0o644); err != nil {
		return "", fmt.Errorf("写报告文件失败: %w", err)
	}
	return path, nil
}

// SavePNG 通过无头浏览器截图生成 PNG，环境缺 Chrome 时返回错误由调用方降级。
func SavePNG(ctx context.Context, dir string, result *backtest.ReplayResult) (string, error) {
	if err := ensureHeadlessAvailable(ctx); err != nil {
		return "", fmt.Errorf("无头浏览器不可用: %w", err)
	}
	html, err := RenderHTML(result)
	if err != nil {
		return "", err
	}
	height := klineHeightPx + macdHeightPx + equityHeightPx
	png, err := renderHTMLToPNG(ctx, html, chartWidthPx, height)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("创建输出目录失败: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_backtest.png", result.Symbol))
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("写图片文件失败: %w", err)
	}
	return path, nil
}

func buildXAxis(bars []market.Bar) []string {
	x := make([]string, len(bars))
	for i, b := range bars {
		x[i] = b.Date
	}
	return x
}

func buildKlineChart(result *backtest.ReplayResult, xAxis []string) *charts.Kline {
	s := result.Stats
	kline := charts.NewKLine()
	kline.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", klineHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("%s MACD 金叉死叉回测", result.Symbol),
			Subtitle: fmt.Sprintf("总收益 %.2f%% | 年化 %.2f%% | 胜率 %.1f%% | 最大回撤 %.2f%% | 夏普 %.2f",
				s.TotalReturn*100, s.AnnualizedReturn*100, s.WinRate*100, s.MaxDrawdown*100, s.SharpeRatio),
			Left:          "left",
			Top:           "10",
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), TextStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(false)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.2)}},
		}),
	)
	kline.SetSeriesOptions(
		charts.WithItemStyleOpts(opts.ItemStyle{
			Color:        colorUp,
			Color0:       colorDown,
			BorderColor:  colorUp,
			BorderColor0: colorDown,
		}),
	)

	data := make([]opts.KlineData, len(result.Bars))
	for i, b := range result.Bars {
		data[i] = opts.KlineData{Value: [4]float64{b.Open, b.Close, b.Low, b.High}}
	}
	kline.SetXAxis(xAxis)
	kline.AddSeries("日K", data)

	kline.Overlap(buildMALines(xAxis, result.Overlay))
	kline.Overlap(buildTradeMarkers(xAxis, result.Trades))
	return kline
}

func buildMALines(xAxis []string, overlay indicator.MAOverlay) *charts.Line {
	line := charts.NewLine()
	line.SetSeriesOptions(
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)
	line.SetXAxis(xAxis)
	line.AddSeries("MA5", toLineData(overlay.MA5), charts.WithLineStyleOpts(opts.LineStyle{Color: colorMA5, Width: 2}))
	line.AddSeries("MA20", toLineData(overlay.MA20), charts.WithLineStyleOpts(opts.LineStyle{Color: colorMA20, Width: 2}))
	line.AddSeries("MA60", toLineData(overlay.MA60), charts.WithLineStyleOpts(opts.LineStyle{Color: colorMA60, Width: 2}))
	return line
}

// buildTradeMarkers 在成交日价位上标注买卖点。
func buildTradeMarkers(xAxis []string, trades []broker.Trade) *charts.Scatter {
	idx := make(map[string]int, len(xAxis))
	for i, d := range xAxis {
		idx[d] = i
	}
	buys := make([]opts.ScatterData, 0, len(trades))
	sells := make([]opts.ScatterData, 0, len(trades))
	for _, t := range trades {
		i, ok := idx[t.Date]
		if !ok {
			continue
		}
		point := opts.ScatterData{
			Value:      []interface{}{xAxis[i], t.Price},
			Symbol:     "triangle",
			SymbolSize: 14,
		}
		if t.Side == broker.SideBuy {
			buys = append(buys, point)
		} else {
			point.SymbolRotate = 180
			sells = append(sells, point)
		}
	}
	scatter := charts.NewScatter()
	scatter.SetXAxis(xAxis)
	scatter.AddSeries("买入", buys, charts.WithItemStyleOpts(opts.ItemStyle{Color: colorUp}))
	scatter.AddSeries("卖出", sells, charts.WithItemStyleOpts(opts.ItemStyle{Color: colorDown}))
	return scatter
}

func buildMACDChart(symbol string, xAxis []string, frames []indicator.Frame) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", macdHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("MACD %s", symbol), Left: "left", TitleStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), TextStyle: &opts.TextStyle{Color: colorTextSecondary}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Show: opts.Bool(false)}}),
		charts.WithYAxisOpts(opts.YAxis{
			AxisLabel: &opts.AxisLabel{Show: opts.Bool(true), Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.15)}},
		}),
	)
	histData := make([]opts.BarData, len(frames))
	dif := make([]float64, len(frames))
	dea := make([]float64, len(frames))
	for i, f := range frames {
		dif[i], dea[i] = f.DIF, f.DEA
		color := colorDown
		if f.Hist >= 0 {
			color = colorUp
		}
		histData[i] = opts.BarData{
			Value:     round(f.Hist, 4),
			ItemStyle: &opts.ItemStyle{Color: color},
		}
	}
	bar.SetXAxis(xAxis)
	bar.AddSeries("MACD Hist", histData)

	line := charts.NewLine()
	line.SetSeriesOptions(
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)
	line.SetXAxis(xAxis)
	line.AddSeries("DIF", toLineData(dif), charts.WithLineStyleOpts(opts.LineStyle{Color: colorDIF, Width: 2}))
	line.AddSeries("DEA", toLineData(dea), charts.WithLineStyleOpts(opts.LineStyle{Color: colorDEA, Width: 2}))
	bar.Overlap(line)
	return bar
}

func buildEquityChart(symbol string, xAxis []string, equity []backtest.EquityPoint) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", equityHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("净值曲线 %s", symbol), Left: "left", TitleStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Show: opts.Bool(false)}}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Show: opts.Bool(true), Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.15)}},
		}),
	)
	values := make([]float64, len(equity))
	for i, p := range equity {
		values[i] = p.Equity
	}
	line.SetXAxis(xAxis)
	line.AddSeries("总资产", toLineData(values), charts.WithLineStyleOpts(opts.LineStyle{Color: colorEquity, Width: 2}))
	return line
}

func toLineData(series []float64) []opts.LineData {
	data := make([]opts.LineData, len(series))
	for i, v := range series {
		if math.IsNaN(v) {
			data[i] = opts.LineData{Value: nil}
			continue
		}
		data[i] = opts.LineData{Value: round(v, 4)}
	}
	return data
}

func round(val float64, decimals int) float64 {
	scale := math.Pow10(decimals)
	return math.Round(val*scale) / scale
}

var (
	headlessOnce sync.Once
	headlessErr  error
)

func ensureHeadlessAvailable(ctx context.Context) error {
	headlessOnce.Do(func() {
		targetCtx := ctx
		if targetCtx == nil {
			targetCtx = context.Background()
		}
		parent, cancel := chromedp.NewContext(targetCtx)
		if cancel != nil {
			defer cancel()
		}
		headlessErr = chromedp.Run(parent)
	})
	return headlessErr
}

func renderHTMLToPNG(ctx context.Context, html []byte, width, height int) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	parent, cancel := chromedp.NewContext(ctx)
	defer cancel()

	timeoutCtx, cancelTimeout := context.WithTimeout(parent, 20*time.Second)
	defer cancelTimeout()

	dataURI := "data:text/html;base64," + base64.StdEncoding.EncodeToString(html)
	var screenshot []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(width), int64(height)),
		chromedp.Navigate(dataURI),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(1500 * time.Millisecond),
		chromedp.FullScreenshot(&screenshot, 0),
	}
	if err := chromedp.Run(timeoutCtx, tasks...); err != nil {
		return nil, fmt.Errorf("截图失败: %w", err)
	}
	return screenshot, nil
}
