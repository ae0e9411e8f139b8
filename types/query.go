package types

// QueryKind tags the variant held by a Query request.
type QueryKind string

const (
	QueryConfig    QueryKind = "config"
	QueryAppConfig QueryKind = "app_config"
	QueryBalance   QueryKind = "balance"
	QueryBalances  QueryKind = "balances"
	QuerySupply    QueryKind = "supply"
	QuerySupplies  QueryKind = "supplies"
	QueryCode      QueryKind = "code"
	QueryCodes     QueryKind = "codes"
	QueryContract  QueryKind = "contract"
	QueryContracts QueryKind = "contracts"
	QueryWasmRaw   QueryKind = "wasm_raw"
	QueryWasmSmart QueryKind = "wasm_smart"
	QueryMulti     QueryKind = "multi"
)

// Query is the wire-stable request enum routed by the /app ABCI query path
//.
type Query struct {
	Kind QueryKind `json:"kind"`

	Balance  *QueryBalanceReq  `json:"balance,omitempty"`
	Balances *QueryBalancesReq `json:"balances,omitempty"`
	Supply   *QuerySupplyReq   `json:"supply,omitempty"`
	Supplies *QuerySuppliesReq `json:"supplies,omitempty"`
	Code     *QueryCodeReq     `json:"code,omitempty"`
	Codes    *QueryCodesReq    `json:"codes,omitempty"`
	Contract *QueryContractReq `json:"contract,omitempty"`
	Contracts *QueryContractsReq `json:"contracts,omitempty"`
	WasmRaw   *QueryWasmRawReq   `json:"wasm_raw,omitempty"`
	WasmSmart *QueryWasmSmartReq `json:"wasm_smart,omitempty"`
	Multi     []Query            `json:"multi,omitempty"`
}

type QueryBalanceReq struct {
	Address Address `json:"address"`
	Denom   string  `json:"denom"`
}

type QueryBalancesReq struct {
	Address    Address `json:"address"`
	StartAfter string  `json:"start_after,omitempty"`
	Limit      uint32  `json:"limit,omitempty"`
}

type QuerySupplyReq struct{ Denom string `json:"denom"` }

type QuerySuppliesReq struct {
	StartAfter string `json:"start_after,omitempty"`
	Limit      uint32 `json:"limit,omitempty"`
}

type QueryCodeReq struct{ Hash Hash256 `json:"hash"` }

type QueryCodesReq struct {
	StartAfter *Hash256 `json:"start_after,omitempty"`
	Limit      uint32   `json:"limit,omitempty"`
}

type QueryContractReq struct{ Address Address `json:"address"` }

type QueryContractsReq struct {
	StartAfter *Address `json:"start_after,omitempty"`
	Limit      uint32   `json:"limit,omitempty"`
}

type QueryWasmRawReq struct {
	Contract Address `json:"contract"`
	Key      []byte  `json:"key"`
}

type QueryWasmSmartReq struct {
	Contract Address `json:"contract"`
	Msg      []byte  `json:"msg"`
}

// BankQuery is the sudo-adjacent read-only interface the bank contract
// serves.
type BankQuery struct {
	Balance  *QueryBalanceReq
	Balances *QueryBalancesReq
	Supply   *QuerySupplyReq
	Supplies *QuerySuppliesReq
}

// BankQueryResponse mirrors BankQuery's variants.
type BankQueryResponse struct {
	Balance  *Coin
	Balances *Coins
	Supply   *Coin
	Supplies *Coins
}
