package domain

import (
	"encoding/json"
	"strings"
)

// AssetType is the class of instrument a position holds.
type AssetType string

const (
	AssetStock      AssetType = "Stock"
	AssetCrypto     AssetType = "Crypto"
	AssetMutualFund AssetType = "MutualFund"
	AssetCommodity  AssetType = "Commodity"
	AssetUnknown    AssetType = "Unknown"
)

// Breakdown category names, in display order.
const (
	CategoryStocks      = "Stocks"
	CategoryMutualFunds = "Mutual Funds"
	CategoryCrypto      = "Crypto"
	CategoryCommodities = "Commodities"
)

// BreakdownCategories lists the fixed investment breakdown buckets.
var BreakdownCategories = []string{
	CategoryStocks,
	CategoryMutualFunds,
	CategoryCrypto,
	CategoryCommodities,
}

// ParseAssetType normalises a free-form asset type name. Matching is
// case-insensitive and accepts singular, plural and common long forms.
// Unrecognised input maps to AssetUnknown.
func ParseAssetType(s string) AssetType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stock", "stocks", "equity", "equities":
		return AssetStock
	case "crypto", "cryptocurrency", "cryptocurrencies":
		return AssetCrypto
	case "mutualfund", "mutual fund", "mutual funds", "mutual-fund", "mutual-funds", "fund", "funds":
		return AssetMutualFund
	case "commodity", "commodities":
		return AssetCommodity
	default:
		return AssetUnknown
	}
}

// Category returns the breakdown bucket for t, or "" when t has none.
func (t AssetType) Category() string {
	switch t {
	case AssetStock:
		return CategoryStocks
	case AssetMutualFund:
		return CategoryMutualFunds
	case AssetCrypto:
		return CategoryCrypto
	case AssetCommodity:
		return CategoryCommodities
	default:
		return ""
	}
}

// QuotePath is the market-data route segment used to quote this asset type.
func (t AssetType) QuotePath() string {
	switch t {
	case AssetCrypto:
		return "crypto"
	case AssetMutualFund:
		return "mutual-funds"
	case AssetCommodity:
		return "commodities"
	default:
		return "stocks"
	}
}

func (t AssetType) String() string {
	if t == "" {
		return string(AssetUnknown)
	}
	return string(t)
}

// UnmarshalJSON accepts any spelling understood by ParseAssetType.
func (t *AssetType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*t = ParseAssetType(s)
	return nil
}
