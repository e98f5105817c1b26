package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"

	"solana-sales-bot/internal/domain"
	"solana-sales-bot/internal/idhash"
	"solana-sales-bot/internal/logging"
	"solana-sales-bot/internal/observability"
)

// Banner geometry.
const (
	BannerWidth  = 1200
	BannerHeight = 675

	margin    = 60
	imageBox  = BannerHeight - 2*margin
	bandWidth = 16
	textLeft  = margin + imageBox + 60
)

var (
	colorBackground = color.RGBA{R: 0x12, G: 0x12, B: 0x1c, A: 0xff}
	colorText       = color.RGBA{R: 0xf2, G: 0xf2, B: 0xf7, A: 0xff}
	colorMuted      = color.RGBA{R: 0x9a, G: 0x9a, B: 0xb0, A: 0xff}
	colorSale       = color.RGBA{R: 0x14, G: 0xf1, B: 0x95, A: 0xff}
	colorPurchase   = color.RGBA{R: 0x99, G: 0x45, B: 0xff, A: 0xff}
)

// ImageFetcher downloads an image by locator.
type ImageFetcher interface {
	Get(ctx context.Context, url string) (body []byte, contentType string, err error)
}

// BannerRenderer draws the NFT image and trade details onto a fixed-size
// PNG and stores it.
type BannerRenderer struct {
	fetcher ImageFetcher
	store   ArtifactStore
	log     *logrus.Entry
}

// BannerOptions configures a BannerRenderer.
type BannerOptions struct {
	Fetcher ImageFetcher
	Store   ArtifactStore
	Logger  *logrus.Entry
}

// NewBannerRenderer creates a renderer.
func NewBannerRenderer(opts BannerOptions) *BannerRenderer {
	log := opts.Logger
	if log == nil {
		log = logging.WithComponent("render")
	}
	return &BannerRenderer{fetcher: opts.Fetcher, store: opts.Store, log: log}
}

var _ Renderer = (*BannerRenderer)(nil)

// Render implements Renderer.
func (r *BannerRenderer) Render(ctx context.Context, in RenderInput) (art Artifact, err error) {
	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		observability.RecordRender(status, time.Since(start).Seconds())
	}()

	raw, _, err := r.fetcher.Get(ctx, in.Image)
	if err != nil {
		return Artifact{}, fmt.Errorf("fetch image %s: %w", in.Image, err)
	}
	src, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	canvas := Compose(src, in)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return Artifact{}, fmt.Errorf("encode banner: %w", err)
	}

	id := idhash.ComputeArtifactID(in.Signature, in.AssetID)
	art, err = r.store.Put(ctx, id, "image/png", buf.Bytes())
	if err != nil {
		return Artifact{}, fmt.Errorf("store banner %s: %w", id, err)
	}

	r.log.WithFields(logrus.Fields{
		"signature":    in.Signature,
		"artifact_id":  id,
		"source_image": format,
		"bytes":        buf.Len(),
	}).Debug("banner rendered")
	return art, nil
}

// Compose draws the banner for in around src.
func Compose(src image.Image, in RenderInput) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, BannerWidth, BannerHeight))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(colorBackground), image.Point{}, draw.Src)

	accent := colorPurchase
	if in.Label == domain.LabelSale {
		accent = colorSale
	}
	band := image.Rect(0, 0, bandWidth, BannerHeight)
	draw.Draw(canvas, band, image.NewUniform(accent), image.Point{}, draw.Src)

	if src != nil {
		draw.CatmullRom.Scale(canvas, fitRect(src.Bounds(), image.Rect(margin, margin, margin+imageBox, margin+imageBox)), src, src.Bounds(), draw.Over, nil)
	}

	y := margin + 40
	y = drawText(canvas, textLeft, y, 3, accent, in.Label)
	y = drawText(canvas, textLeft, y+24, 4, colorText, truncate(in.Name, 22))
	y = drawText(canvas, textLeft, y+36, 3, colorText, fmt.Sprintf("%.2f SOL", in.DisplayPrice))
	y = drawText(canvas, textLeft, y+8, 2, colorMuted, fmt.Sprintf("$%.2f", in.FiatPrice))
	y = drawText(canvas, textLeft, y+36, 2, colorMuted, fmt.Sprintf("Floor  %.2f SOL", in.FloorPrice))
	if in.Rarity != nil {
		y = drawText(canvas, textLeft, y+12, 2, colorMuted, fmt.Sprintf("Rank   %d / %d", in.Rarity.Rank, in.Rarity.CollectionSize))
	}
	drawText(canvas, textLeft, BannerHeight-margin-13, 1, colorMuted, shortSig(in.Signature))

	return canvas
}

// fitRect returns the largest rect with src's aspect ratio centred in box.
func fitRect(src, box image.Rectangle) image.Rectangle {
	sw, sh := src.Dx(), src.Dy()
	if sw <= 0 || sh <= 0 {
		return box
	}
	bw, bh := box.Dx(), box.Dy()
	w, h := bw, sh*bw/sw
	if h > bh {
		w, h = sw*bh/sh, bh
	}
	x0 := box.Min.X + (bw-w)/2
	y0 := box.Min.Y + (bh-h)/2
	return image.Rect(x0, y0, x0+w, y0+h)
}

// drawText renders s with the 7x13 bitmap face magnified by scale, top-left
// at (x, y). It returns the y just below the text.
func drawText(dst draw.Image, x, y, scale int, c color.Color, s string) int {
	face := basicfont.Face7x13
	if s == "" {
		return y + face.Height*scale
	}
	w := font.MeasureString(face, s).Ceil()
	h := face.Height

	glyphs := image.NewRGBA(image.Rect(0, 0, w, h))
	d := &font.Drawer{
		Dst:  glyphs,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString(s)

	target := image.Rect(x, y, x+w*scale, y+h*scale)
	draw.NearestNeighbor.Scale(dst, target, glyphs, glyphs.Bounds(), draw.Over, nil)
	return target.Max.Y
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func shortSig(sig string) string {
	if len(sig) <= 16 {
		return sig
	}
	return sig[:8] + "..." + sig[len(sig)-8:]
}
