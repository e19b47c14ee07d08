package service

import "strings"

// SectorOther is used for tickers missing from the sector map.
const SectorOther = "Other"

var sectorMap = map[string]string{
	"VCB": "Banking", "TCB": "Banking", "ACB": "Banking", "BID": "Banking",
	"CTG": "Banking", "EIB": "Banking", "HDB": "Banking", "LPB": "Banking",
	"MBB": "Banking", "MSB": "Banking", "STB": "Banking", "TPB": "Banking",
	"VIB": "Banking", "VPB": "Banking",

	"FPT": "Technology", "CMG": "Technology", "VGI": "Technology",
	"ELC": "Technology", "ITD": "Technology",

	"VHM": "Real Estate", "VIC": "Real Estate", "KDH": "Real Estate",
	"NVL": "Real Estate", "PDR": "Real Estate", "DXG": "Real Estate",

	"HPG": "Steel & Materials", "HSG": "Steel & Materials", "NKG": "Steel & Materials",
	"GVR": "Steel & Materials",

	"GAS": "Oil & Gas", "PLX": "Oil & Gas", "PVS": "Oil & Gas",

	"MSN": "Consumer Goods", "VNM": "Consumer Goods", "SAB": "Consumer Goods",

	"POW": "Utilities", "NT2": "Utilities",
}

// SectorOf classifies a ticker.
func SectorOf(ticker string) string {
	if s, ok := sectorMap[strings.ToUpper(ticker)]; ok {
		return s
	}
	return SectorOther
}
