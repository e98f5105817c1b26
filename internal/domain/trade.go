package domain

// OrderType is the direction tag carried by a marketplace trade record.
// Values other than the two constants are preserved as received.
type OrderType string

const (
	OrderTypeBuy  OrderType = "buy"
	OrderTypeSell OrderType = "sell"
)

// String returns the string representation of OrderType.
func (o OrderType) String() string {
	return string(o)
}

// Trade labels shown to humans.
const (
	LabelSale     = "Sale"
	LabelPurchase = "Purchase"
)

// Label maps the order type to its announcement label.
// Only "sell" is a sale; everything else reads as a purchase.
func (o OrderType) Label() string {
	if o == OrderTypeSell {
		return LabelSale
	}
	return LabelPurchase
}

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL int64 = 1_000_000_000

// TradeEvent is a single marketplace trade as delivered by the event source.
// Immutable once parsed.
type TradeEvent struct {
	AssetID   string    // NFT mint address (base58)
	Amount    int64     // trade amount in lamports (signed)
	OrderType OrderType // buy | sell
	Signature string    // transaction signature, unique per trade
}
