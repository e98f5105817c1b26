package ingestion

import (
	"strings"

	"solana-sales-bot/internal/domain"
	"solana-sales-bot/internal/solana"
)

// HadeswapProgramID is the AMM marketplace program whose trades are announced.
const HadeswapProgramID = "hadeK9DLv9eA7ya5KCTqSvSvRZeJC3JgD5a9Y3CNbvu"

const instructionLogPrefix = "Program log: Instruction: "

// TradeDecoder reconstructs a TradeRecord from a confirmed marketplace
// transaction.
type TradeDecoder struct {
	// Directions maps instruction name prefixes to an order type.
	Directions map[string]domain.OrderType
}

// NewTradeDecoder returns a decoder for Buy*/Sell* pool instructions.
func NewTradeDecoder() *TradeDecoder {
	return &TradeDecoder{
		Directions: map[string]domain.OrderType{
			"Buy":  domain.OrderTypeBuy,
			"Sell": domain.OrderTypeSell,
		},
	}
}

// Direction returns the order type announced in logs, if any.
func (d *TradeDecoder) Direction(logs []string) (domain.OrderType, bool) {
	for _, line := range logs {
		name, ok := strings.CutPrefix(line, instructionLogPrefix)
		if !ok {
			continue
		}
		for prefix, dir := range d.Directions {
			if strings.HasPrefix(name, prefix) {
				return dir, true
			}
		}
	}
	return "", false
}

// Decode extracts the trade from tx. ok is false when tx carries no
// recognisable trade (no trade instruction, failed, or no NFT movement).
func (d *TradeDecoder) Decode(tx *solana.Transaction) (TradeRecord, bool) {
	if tx == nil || tx.Meta == nil || tx.Meta.Err != nil {
		return TradeRecord{}, false
	}

	dir, ok := d.Direction(tx.Meta.LogMessages)
	if !ok {
		return TradeRecord{}, false
	}

	mint := nftMint(tx.Meta.PostTokenBalances)
	if mint == "" {
		return TradeRecord{}, false
	}

	return TradeRecord{
		SolAmount: jsonInt(payerSolAmount(tx.Meta)),
		OrderType: string(dir),
		NFTMint:   mint,
		Signature: tx.Signature,
	}, true
}

// nftMint returns the first post balance that looks like a single NFT.
func nftMint(balances []solana.TokenBalance) string {
	for _, b := range balances {
		if b.Decimals == 0 && b.Amount == "1" {
			return b.Mint
		}
	}
	return ""
}

// payerSolAmount is the fee payer's lamport movement with the network fee
// taken out, so buys and sells both yield the traded amount.
func payerSolAmount(meta *solana.TransactionMeta) int64 {
	if len(meta.PreBalances) == 0 || len(meta.PostBalances) == 0 {
		return 0
	}
	delta := meta.PostBalances[0] - meta.PreBalances[0] + meta.Fee
	if delta < 0 {
		delta = -delta
	}
	return delta
}
