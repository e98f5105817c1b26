package notify

import (
	"fmt"
	"strings"

	"solana-sales-bot/internal/domain"
	"solana-sales-bot/internal/render"
)

// Link templates used in messages.
const (
	TxURLTemplate    = "https://solscan.io/tx/%s"
	AssetURLTemplate = "https://magiceden.io/item-details/%s"
)

// PrimaryPayload is the primary channel message. ArtifactURL may be empty.
type PrimaryPayload struct {
	Name         string
	Image        string
	DisplayPrice float64
	FiatPrice    float64
	Signature    string
	Label        string
	FloorPrice   float64
	AssetID      string
	ArtifactURL  string
	Rarity       *domain.Rarity
}

// NewPrimaryPayload builds the primary payload for e.
func NewPrimaryPayload(e *domain.EnrichedEvent, artifactURL string) PrimaryPayload {
	return PrimaryPayload{
		Name:         e.Name,
		Image:        e.Image,
		DisplayPrice: e.DisplayPrice,
		FiatPrice:    e.FiatPrice,
		Signature:    e.Trade.Signature,
		Label:        e.Label,
		FloorPrice:   e.FloorPrice,
		AssetID:      e.Trade.AssetID,
		ArtifactURL:  artifactURL,
		Rarity:       e.Rarity,
	}
}

// SecondaryPayload is the media channel message.
type SecondaryPayload struct {
	Artifact     render.Artifact
	Name         string
	Image        string
	DisplayPrice float64
	FiatPrice    float64
	Signature    string
	Label        string
	FloorPrice   float64
	AssetID      string
	Rarity       *domain.Rarity
}

// NewSecondaryPayload builds the secondary payload for e.
func NewSecondaryPayload(e *domain.EnrichedEvent, art render.Artifact) SecondaryPayload {
	return SecondaryPayload{
		Artifact:     art,
		Name:         e.Name,
		Image:        e.Image,
		DisplayPrice: e.DisplayPrice,
		FiatPrice:    e.FiatPrice,
		Signature:    e.Trade.Signature,
		Label:        e.Label,
		FloorPrice:   e.FloorPrice,
		AssetID:      e.Trade.AssetID,
		Rarity:       e.Rarity,
	}
}

// Text renders the post body.
func (p SecondaryPayload) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s for %.2f SOL ($%.2f)\n", p.Name, strings.ToLower(labelVerb(p.Label)), p.DisplayPrice, p.FiatPrice)
	fmt.Fprintf(&b, "Floor: %.2f SOL\n", p.FloorPrice)
	if p.Rarity != nil {
		fmt.Fprintf(&b, "Rank: %d/%d\n", p.Rarity.Rank, p.Rarity.CollectionSize)
	}
	fmt.Fprintf(&b, TxURLTemplate, p.Signature)
	return b.String()
}

func labelVerb(label string) string {
	if label == domain.LabelSale {
		return "Sold"
	}
	return "Bought"
}

func priceLine(display, fiat float64) string {
	return fmt.Sprintf("%.2f SOL ($%.2f)", display, fiat)
}
