package normalize

import "strings"

// UnknownAirline 为无法识别承运人时的占位名称。
const UnknownAirline = "Unknown"

// carriers 为常见承运人代码（IATA 两字码与 ICAO 三字码）到名称的静态映射。
var carriers = map[string]string{
	"AM": "Aeroméxico", "AMX": "Aeroméxico",
	"5D": "Aeroméxico Connect", "SLI": "Aeroméxico Connect",
	"Y4": "Volaris", "VOI": "Volaris",
	"VB": "Viva Aerobus", "VIV": "Viva Aerobus",
	"4O": "Interjet", "ABC": "Interjet",
	"YQ": "TAR Aerolíneas", "LCT": "TAR Aerolíneas",
	"QA": "Magnicharters", "MCS": "Magnicharters",
	"AA": "American Airlines", "AAL": "American Airlines",
	"DL": "Delta Air Lines", "DAL": "Delta Air Lines",
	"UA": "United Airlines", "UAL": "United Airlines",
	"WN": "Southwest Airlines", "SWA": "Southwest Airlines",
	"AS": "Alaska Airlines", "ASA": "Alaska Airlines",
	"B6": "JetBlue", "JBU": "JetBlue",
	"F9": "Frontier Airlines", "FFT": "Frontier Airlines",
	"NK": "Spirit Airlines", "NKS": "Spirit Airlines",
	"AC": "Air Canada", "ACA": "Air Canada",
	"WS": "WestJet", "WJA": "WestJet",
	"CM": "Copa Airlines", "CMP": "Copa Airlines",
	"AV": "Avianca", "AVA": "Avianca",
	"LA": "LATAM Airlines", "LAN": "LATAM Airlines",
	"IB": "Iberia", "IBE": "Iberia",
	"UX": "Air Europa", "AEA": "Air Europa",
	"AF": "Air France", "AFR": "Air France",
	"KL": "KLM", "KLM": "KLM",
	"LH": "Lufthansa", "DLH": "Lufthansa",
	"BA": "British Airways", "BAW": "British Airways",
	"TK": "Turkish Airlines", "THY": "Turkish Airlines",
	"EK": "Emirates", "UAE": "Emirates",
	"QR": "Qatar Airways", "QTR": "Qatar Airways",
	"NH": "ANA", "ANA": "ANA",
	"JL": "Japan Airlines", "JAL": "Japan Airlines",
	"KE": "Korean Air", "KAL": "Korean Air",
	"CA": "Air China", "CCA": "Air China",
	"FX": "FedEx", "FDX": "FedEx",
	"5X": "UPS Airlines", "UPS": "UPS Airlines",
}

// CarrierName 按代码查表，未知返回空串。
func CarrierName(code string) string {
	return carriers[strings.ToUpper(strings.TrimSpace(code))]
}

// carrierFromFlightNumber 从航班号前缀推断承运人代码：先试 ICAO 三字母，再试 IATA 两字符。
func carrierFromFlightNumber(fn string) (code, name string) {
	fn = strings.ToUpper(fn)
	if len(fn) >= 4 && isLetters(fn[:3]) {
		if n := CarrierName(fn[:3]); n != "" {
			return fn[:3], n
		}
	}
	if len(fn) >= 3 {
		return fn[:2], CarrierName(fn[:2])
	}
	return "", ""
}

func isLetters(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// resolveAirline 依次尝试：上游名称 → 查表 → 原始代码 → 占位名称。
func resolveAirline(name string, codes ...string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	for _, c := range codes {
		if n := CarrierName(c); n != "" {
			return n
		}
	}
	for _, c := range codes {
		if c = strings.TrimSpace(c); c != "" {
			return strings.ToUpper(c)
		}
	}
	return UnknownAirline
}
