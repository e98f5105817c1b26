package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"solana-sales-bot/internal/domain"
	"solana-sales-bot/internal/logging"
)

// DiscordAPIBaseURL is the Discord REST API root.
const DiscordAPIBaseURL = "https://discord.com/api/v10"

// Embed colours.
const (
	discordColorSale     = 0x14f195
	discordColorPurchase = 0x9945ff
)

// DiscordOptions configures a DiscordSender.
type DiscordOptions struct {
	Token      string
	ChannelID  string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *logrus.Entry
}

// DiscordSender posts primary announcements as channel embeds through the
// bot REST API.
type DiscordSender struct {
	lifecycle
	token     string
	channelID string
	baseURL   string
	http      *http.Client
	log       *logrus.Entry
}

var (
	_ Session       = (*DiscordSender)(nil)
	_ PrimarySender = (*DiscordSender)(nil)
)

// NewDiscordSender creates an unopened sender.
func NewDiscordSender(opts DiscordOptions) *DiscordSender {
	base := opts.BaseURL
	if base == "" {
		base = DiscordAPIBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	log := opts.Logger
	if log == nil {
		log = logging.WithComponent("notify")
	}
	return &DiscordSender{
		token:     opts.Token,
		channelID: opts.ChannelID,
		baseURL:   strings.TrimRight(base, "/"),
		http:      hc,
		log:       log.WithField("channel", "discord"),
	}
}

// Name implements PrimarySender.
func (d *DiscordSender) Name() string { return "discord" }

// State implements Session.
func (d *DiscordSender) State() State { return d.current() }

// Open validates the bot token against /users/@me.
func (d *DiscordSender) Open(ctx context.Context) error {
	return d.open(ctx, func(ctx context.Context) error {
		if d.token == "" || d.channelID == "" {
			return fmt.Errorf("discord: token and channel id are required")
		}
		var me struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		}
		if err := d.do(ctx, http.MethodGet, "/users/@me", nil, &me); err != nil {
			return fmt.Errorf("discord login: %w", err)
		}
		d.log.WithField("bot", me.Username).Info("discord session ready")
		return nil
	})
}

// Close implements Session.
func (d *DiscordSender) Close() error {
	d.close()
	return nil
}

type discordEmbed struct {
	Title     string              `json:"title"`
	URL       string              `json:"url,omitempty"`
	Color     int                 `json:"color"`
	Fields    []discordEmbedField `json:"fields"`
	Image     *discordEmbedImage  `json:"image,omitempty"`
	Thumbnail *discordEmbedImage  `json:"thumbnail,omitempty"`
	Timestamp string              `json:"timestamp,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordEmbedImage struct {
	URL string `json:"url"`
}

type discordMessage struct {
	Embeds []discordEmbed `json:"embeds"`
}

// buildEmbed renders p as a Discord embed.
func buildEmbed(p PrimaryPayload, now time.Time) discordEmbed {
	color := discordColorPurchase
	if p.Label == domain.LabelSale {
		color = discordColorSale
	}

	fields := []discordEmbedField{
		{Name: p.Label, Value: priceLine(p.DisplayPrice, p.FiatPrice), Inline: true},
		{Name: "Floor", Value: fmt.Sprintf("%.2f SOL", p.FloorPrice), Inline: true},
	}
	if p.Rarity != nil {
		fields = append(fields, discordEmbedField{
			Name:   "Rarity",
			Value:  fmt.Sprintf("#%d / %d", p.Rarity.Rank, p.Rarity.CollectionSize),
			Inline: true,
		})
	}
	fields = append(fields, discordEmbedField{
		Name:  "Transaction",
		Value: fmt.Sprintf("[View on Solscan]("+TxURLTemplate+")", p.Signature),
	})

	e := discordEmbed{
		Title:     p.Name,
		URL:       fmt.Sprintf(AssetURLTemplate, p.AssetID),
		Color:     color,
		Fields:    fields,
		Timestamp: now.UTC().Format(time.RFC3339),
	}
	if p.Image != "" {
		e.Thumbnail = &discordEmbedImage{URL: p.Image}
	}
	if p.ArtifactURL != "" {
		e.Image = &discordEmbedImage{URL: p.ArtifactURL}
	}
	return e
}

// SendPrimary posts p to the configured channel.
func (d *DiscordSender) SendPrimary(ctx context.Context, p PrimaryPayload) error {
	if err := d.ready(); err != nil {
		return err
	}
	msg := discordMessage{Embeds: []discordEmbed{buildEmbed(p, time.Now())}}
	if err := d.do(ctx, http.MethodPost, "/channels/"+d.channelID+"/messages", msg, nil); err != nil {
		return fmt.Errorf("discord send %s: %w", p.Signature, err)
	}
	return nil
}

func (d *DiscordSender) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+d.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Service: "discord", Code: resp.StatusCode, Body: string(respBody)}
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// APIError is a non-2xx response from a channel API.
type APIError struct {
	Service string
	Code    int
	Body    string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Sprintf("%s api: status %d: %s", e.Service, e.Code, body)
}
