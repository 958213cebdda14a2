package types

// TransactionStatus is the closed set of transaction lifecycle states.
// Terminal states are success, failed and cancelled.
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusSuccess    TransactionStatus = "success"
	TransactionStatusFailed     TransactionStatus = "failed"
	TransactionStatusCancelled  TransactionStatus = "cancelled"
)

// Terminal reports whether no further transition is possible from s.
func (s TransactionStatus) Terminal() bool {
	switch s {
	case TransactionStatusSuccess, TransactionStatusFailed, TransactionStatusCancelled:
		return true
	}
	return false
}

type GameCategory string

const (
	GameCategoryMoba         GameCategory = "moba"
	GameCategoryBattleRoyale GameCategory = "battle_royale"
	GameCategoryRPG          GameCategory = "rpg"
	GameCategoryFPS          GameCategory = "fps"
	GameCategoryStrategy     GameCategory = "strategy"
	GameCategoryOther        GameCategory = "other"
)

type StockStatus string

const (
	StockStatusAvailable  StockStatus = "available"
	StockStatusOutOfStock StockStatus = "out_of_stock"
	StockStatusLimited    StockStatus = "limited"
)

type PaymentMethodType string

const (
	PaymentMethodTypeBankTransfer   PaymentMethodType = "bank_transfer"
	PaymentMethodTypeEWallet        PaymentMethodType = "e_wallet"
	PaymentMethodTypeVirtualAccount PaymentMethodType = "virtual_account"
)
