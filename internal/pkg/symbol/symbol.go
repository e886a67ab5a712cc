// Package symbol 统一 A 股代码的各种写法。
package symbol

import "strings"

// Exchange 为上市交易所。
type Exchange string

const (
	ExchangeSH      Exchange = "SH"
	ExchangeSZ      Exchange = "SZ"
	ExchangeBJ      Exchange = "BJ"
	ExchangeUnknown Exchange = ""
)

// Symbol 为解析后的股票代码。
type Symbol struct {
	Code     string
	Exchange Exchange
}

// Internal 返回库内统一写法：六位数字代码。
func (s Symbol) Internal() string {
	return s.Code
}

// Qualified 返回带交易所后缀的写法，如 600519.SH。
func (s Symbol) Qualified() string {
	if s.Code == "" {
		return ""
	}
	if s.Exchange == ExchangeUnknown {
		return s.Code
	}
	return s.Code + "." + string(s.Exchange)
}

// Parse 解析常见写法：600519、600519.SH、sh600519、SZ000001。
// 无法识别时返回零值。
func Parse(raw string) Symbol {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return Symbol{}
	}

	var ex Exchange
	if idx := strings.Index(s, "."); idx >= 0 {
		ex = parseExchange(s[idx+1:])
		s = s[:idx]
	}
	for _, prefix := range []Exchange{ExchangeSH, ExchangeSZ, ExchangeBJ} {
		if strings.HasPrefix(s, string(prefix)) {
			ex = prefix
			s = s[len(prefix):]
			break
		}
	}

	if !isDigits(s) || len(s) != 6 {
		return Symbol{}
	}
	if ex == ExchangeUnknown {
		ex = inferExchange(s)
	}
	return Symbol{Code: s, Exchange: ex}
}

// Normalize 返回统一写法；解析失败时返回空串。
func Normalize(raw string) string {
	return Parse(raw).Internal()
}

// NormalizeList 去重并统一写法，顺序保持首次出现的位置。
func NormalizeList(symbols []string) []string {
	if len(symbols) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		norm := Normalize(s)
		if norm == "" {
			norm = strings.ToUpper(strings.TrimSpace(s))
			if norm == "" {
				continue
			}
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	return out
}

// IsValid 报告 raw 是否为可识别的 A 股代码。
func IsValid(raw string) bool {
	return Parse(raw).Code != ""
}

func parseExchange(s string) Exchange {
	switch Exchange(s) {
	case ExchangeSH, ExchangeSZ, ExchangeBJ:
		return Exchange(s)
	default:
		return ExchangeUnknown
	}
}

// inferExchange 按号段推断交易所：
// 60/68 为沪市，00/30 为深市，43/83/87/92 为北交所。
func inferExchange(code string) Exchange {
	switch code[:2] {
	case "60", "68":
		return ExchangeSH
	case "00", "30":
		return ExchangeSZ
	case "43", "83", "87", "92":
		return ExchangeBJ
	default:
		return ExchangeUnknown
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
