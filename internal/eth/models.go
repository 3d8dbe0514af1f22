package eth

type TokenTransfer struct {
	BlockNumber      uint64
	TransactionIndex uint64
	LogIndex         uint64
	BlockTime        uint64
	TxHash           string
	EventName        string
	Contract         string
	From             string
	To               string
	TokenID          string
	Amount           int64
}
