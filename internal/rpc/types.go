package rpc

// RPCError represents a JSON-RPC error response
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return e.Message
}

// TokenAmount represents token balance information
type TokenAmount struct {
	Amount         string   `json:"amount"`
	Decimals       int      `json:"decimals"`
	UIAmountString string   `json:"uiAmountString"`
	UIAmount       *float64 `json:"uiAmount"`
}

// BalanceResponse is the response from getBalance
type BalanceResponse struct {
	Result struct {
		Value uint64 `json:"value"` // lamports
	} `json:"result"`
	Error *RPCError `json:"error"`
}

// TokenAccount is one entry of getTokenAccountsByOwner with jsonParsed encoding
type TokenAccount struct {
	Pubkey  string `json:"pubkey"`
	Account struct {
		Data struct {
			Parsed struct {
				Info struct {
					Mint        string      `json:"mint"`
					Owner       string      `json:"owner"`
					TokenAmount TokenAmount `json:"tokenAmount"`
				} `json:"info"`
			} `json:"parsed"`
		} `json:"data"`
	} `json:"account"`
}

// TokenAccountsResponse is the response from getTokenAccountsByOwner
type TokenAccountsResponse struct {
	Result struct {
		Value []TokenAccount `json:"value"`
	} `json:"result"`
	Error *RPCError `json:"error"`
}

// TokenSupplyResponse is the response from getTokenSupply
type TokenSupplyResponse struct {
	Result struct {
		Value TokenAmount `json:"value"`
	} `json:"result"`
	Error *RPCError `json:"error"`
}

// Asset is the subset of a Helius DAS getAsset result used for token detail.
type Asset struct {
	ID      string `json:"id"`
	Content struct {
		Metadata struct {
			Name        string `json:"name"`
			Symbol      string `json:"symbol"`
			Description string `json:"description"`
		} `json:"metadata"`
	} `json:"content"`
	TokenInfo struct {
		Supply          float64 `json:"supply"`
		Decimals        int     `json:"decimals"`
		MintAuthority   string  `json:"mint_authority"`
		FreezeAuthority string  `json:"freeze_authority"`
	} `json:"token_info"`
}

// AssetResponse is the response from getAsset
type AssetResponse struct {
	Result *Asset    `json:"result"`
	Error  *RPCError `json:"error"`
}

// LargestAccount is one entry of getTokenLargestAccounts
type LargestAccount struct {
	Address  string   `json:"address"`
	Amount   string   `json:"amount"`
	Decimals int      `json:"decimals"`
	UIAmount *float64 `json:"uiAmount"`
}

// LargestAccountsResponse is the response from getTokenLargestAccounts
type LargestAccountsResponse struct {
	Result struct {
		Value []LargestAccount `json:"value"`
	} `json:"result"`
	Error *RPCError `json:"error"`
}
