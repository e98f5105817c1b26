// Package render turns an enriched trade into a shareable banner image.
package render

import (
	"context"
	"errors"

	"solana-sales-bot/internal/domain"
)

// ErrUnsupportedImage is returned when the NFT image cannot be decoded.
var ErrUnsupportedImage = errors.New("render: unsupported image format")

// RenderInput is everything drawn on a banner.
type RenderInput struct {
	Name         string
	Image        string // image locator
	DisplayPrice float64
	FiatPrice    float64
	FloorPrice   float64
	Label        string
	Signature    string
	AssetID      string
	Rarity       *domain.Rarity
}

// InputFromEvent builds the render input for e.
func InputFromEvent(e *domain.EnrichedEvent) RenderInput {
	return RenderInput{
		Name:         e.Name,
		Image:        e.Image,
		DisplayPrice: e.DisplayPrice,
		FiatPrice:    e.FiatPrice,
		FloorPrice:   e.FloorPrice,
		Label:        e.Label,
		Signature:    e.Trade.Signature,
		AssetID:      e.Trade.AssetID,
		Rarity:       e.Rarity,
	}
}

// Artifact references a rendered banner. The zero value is the empty artifact.
type Artifact struct {
	ID          string
	Path        string // local file path or object key
	URL         string // public URL
	ContentType string
	Data        []byte // encoded image, kept for channels that upload media
}

// Renderer produces an artifact for one trade.
type Renderer interface {
	Render(ctx context.Context, in RenderInput) (Artifact, error)
}

// ArtifactStore persists encoded artifacts and returns where they live.
type ArtifactStore interface {
	Put(ctx context.Context, id, contentType string, data []byte) (Artifact, error)
}
