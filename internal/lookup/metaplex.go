package lookup

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"solana-sales-bot/internal/domain"
	"solana-sales-bot/internal/observability"
	"solana-sales-bot/internal/solana"
)

// Metaplex Token Metadata account layout (v1):
//
//	key u8 | update_authority [32] | mint [32] | name str | symbol str | uri str | ...
//
// Strings are borsh encoded: u32 little-endian length followed by bytes,
// right padded with NUL.
const (
	metadataKeyV1      = 4
	metadataNameOffset = 1 + 32 + 32
	maxNameLen         = 32
	maxSymbolLen       = 10
	maxURILen          = 200
)

// OnChainMetadata is the decoded head of a metadata account.
type OnChainMetadata struct {
	Name   string
	Symbol string
	URI    string
}

// ParseMetadataAccount decodes raw Metaplex metadata account data.
func ParseMetadataAccount(data []byte) (OnChainMetadata, error) {
	if len(data) < metadataNameOffset+4 {
		return OnChainMetadata{}, fmt.Errorf("metadata account too short: %d bytes", len(data))
	}
	if data[0] != metadataKeyV1 {
		return OnChainMetadata{}, fmt.Errorf("unexpected metadata key %d", data[0])
	}

	r := borshReader{buf: data, off: metadataNameOffset}
	name, err := r.string(maxNameLen)
	if err != nil {
		return OnChainMetadata{}, fmt.Errorf("name: %w", err)
	}
	symbol, err := r.string(maxSymbolLen)
	if err != nil {
		return OnChainMetadata{}, fmt.Errorf("symbol: %w", err)
	}
	uri, err := r.string(maxURILen)
	if err != nil {
		return OnChainMetadata{}, fmt.Errorf("uri: %w", err)
	}

	return OnChainMetadata{Name: name, Symbol: symbol, URI: uri}, nil
}

type borshReader struct {
	buf []byte
	off int
}

func (r *borshReader) string(max int) (string, error) {
	if r.off+4 > len(r.buf) {
		return "", errors.New("truncated length prefix")
	}
	n := int(binary.LittleEndian.Uint32(r.buf[r.off:]))
	r.off += 4
	// Older mints pad the declared length beyond the limit; allow a margin
	// but refuse obviously corrupt lengths.
	if n > max*4 || r.off+n > len(r.buf) {
		return "", fmt.Errorf("invalid string length %d", n)
	}
	s := string(r.buf[r.off : r.off+n])
	r.off += n
	return strings.TrimSpace(strings.TrimRight(s, "\x00")), nil
}

// Metaplex resolves display metadata from the on-chain metadata account and
// the off-chain JSON it points to.
type Metaplex struct {
	rpc    solana.RPCClient
	client *Client
	now    func() time.Time
}

// NewMetaplex creates the metadata lookup. client fetches the off-chain JSON.
func NewMetaplex(rpc solana.RPCClient, client *Client) *Metaplex {
	return &Metaplex{rpc: rpc, client: client, now: time.Now}
}

type offChainMetadata struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

// Metadata returns name and image for mint. Image is empty when the asset
// has no off-chain JSON.
func (m *Metaplex) Metadata(ctx context.Context, mint string) (domain.NFTMetadata, error) {
	addr, err := solana.MetadataAddress(mint)
	if err != nil {
		return domain.NFTMetadata{}, fmt.Errorf("derive metadata address: %w", err)
	}

	start := time.Now()
	account, err := m.rpc.GetAccountInfo(ctx, addr)
	observability.RecordRPCLatency("getAccountInfo", time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, solana.ErrAccountNotFound) {
			return domain.NFTMetadata{}, fmt.Errorf("metadata account %s: %w", addr, ErrNotFound)
		}
		return domain.NFTMetadata{}, fmt.Errorf("get metadata account %s: %w", addr, err)
	}

	raw, err := base64.StdEncoding.DecodeString(account.Data)
	if err != nil {
		return domain.NFTMetadata{}, fmt.Errorf("decode metadata account: %w", err)
	}
	onChain, err := ParseMetadataAccount(raw)
	if err != nil {
		return domain.NFTMetadata{}, fmt.Errorf("parse metadata account %s: %w", addr, err)
	}

	meta := domain.NFTMetadata{
		Mint:      mint,
		Name:      onChain.Name,
		Symbol:    onChain.Symbol,
		URI:       onChain.URI,
		FetchedAt: m.now().UnixMilli(),
	}
	if onChain.URI == "" {
		return meta, nil
	}

	var off offChainMetadata
	if err := m.client.GetJSON(ctx, ResolveLocator(onChain.URI), &off); err != nil {
		return domain.NFTMetadata{}, fmt.Errorf("off-chain metadata %s: %w", onChain.URI, err)
	}
	if meta.Name == "" {
		meta.Name = strings.TrimSpace(off.Name)
	}
	meta.Image = ResolveLocator(strings.TrimSpace(off.Image))
	return meta, nil
}
