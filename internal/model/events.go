package model

// TokenLaunchedData is the decoded TokenLaunched payload.
type TokenLaunchedData struct {
	TokenAddress string `json:"token_address"`
	Creator      string `json:"creator"`
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	TotalSupply  string `json:"total_supply"`
}

// ExternalTokenRegisteredData is the decoded ExternalTokenRegistered payload.
type ExternalTokenRegisteredData struct {
	TokenAddress string `json:"token_address"`
	Registrar    string `json:"registrar"`
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
}

// TradeData is the decoded TokenPurchased / TokenSold payload.
type TradeData struct {
	Trader      string `json:"trader"`
	TokenAmount string `json:"token_amount"`
	BNBAmount   string `json:"bnb_amount"`
}

// ReservesSyncedData is the decoded ReservesSynced payload.
type ReservesSyncedData struct {
	ReserveToken string `json:"reserve_token"`
	ReserveBNB   string `json:"reserve_bnb"`
}

// TransferData is the decoded ERC20 Transfer payload.
type TransferData struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Value string `json:"value"`
}

// ApprovalData is the decoded ERC20 Approval payload.
type ApprovalData struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
	Value   string `json:"value"`
}
