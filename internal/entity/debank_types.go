package entity

// ComplexProtocol is one entry of the DeBank all_complex_protocol_list response.
type ComplexProtocol struct {
	ID                string          `json:"id"`
	Chain             string          `json:"chain"`
	Name              string          `json:"name"`
	SiteURL           string          `json:"site_url"`
	AssetUSDValue     float64         `json:"asset_usd_value"`
	DebtUSDValue      float64         `json:"debt_usd_value"`
	NetUSDValue       float64         `json:"net_usd_value"`
	PortfolioItemList []PortfolioItem `json:"portfolio_item_list"`
}

// PortfolioItem is an itemized sub-position inside a protocol.
type PortfolioItem struct {
	Name        string         `json:"name"`
	DetailTypes []string       `json:"detail_types"`
	Stats       PortfolioStats `json:"stats"`
	Detail      ItemDetail     `json:"detail"`
	UpdateAt    float64        `json:"update_at"`
}

// PortfolioStats holds the USD figures of an item.
type PortfolioStats struct {
	AssetUSDValue float64 `json:"asset_usd_value"`
	DebtUSDValue  float64 `json:"debt_usd_value"`
	NetUSDValue   float64 `json:"net_usd_value"`
}

// ItemDetail is the token breakdown of an item. Optional figures are pointers
// so that "not supplied" can be told apart from zero.
type ItemDetail struct {
	SupplyTokenList      []TokenAmount `json:"supply_token_list"`
	BorrowTokenList      []TokenAmount `json:"borrow_token_list"`
	HealthRate           *float64      `json:"health_rate"`
	BorrowRate           *float64      `json:"borrow_rate"`
	LiquidationThreshold *float64      `json:"liquidation_threshold"`
}

// TokenAmount is a token held or owed inside an item.
type TokenAmount struct {
	ID     string  `json:"id"`
	Chain  string  `json:"chain"`
	Symbol string  `json:"symbol"`
	Amount float64 `json:"amount"`
	Price  float64 `json:"price"`
}
