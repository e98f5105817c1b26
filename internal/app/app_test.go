package app

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-sales-bot/internal/config"
	"solana-sales-bot/internal/ingestion/stub"
	"solana-sales-bot/internal/pipeline"
)

const testMint = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"

func borsh(s string, pad int) []byte {
	n := len(s)
	if pad > n {
		n = pad
	}
	b := make([]byte, 4, 4+n)
	binary.LittleEndian.PutUint32(b, uint32(n))
	b = append(b, s...)
	return append(b, make([]byte, n-len(s))...)
}

// metadataAccountData lays out a Metaplex metadata account: key, update
// authority, mint, then name, symbol and uri.
func metadataAccountData(name, symbol, uri string) []byte {
	data := make([]byte, 65)
	data[0] = 4
	data = append(data, borsh(name, 32)...)
	data = append(data, borsh(symbol, 10)...)
	data = append(data, borsh(uri, 200)...)
	return append(data, make([]byte, 64)...)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// upstream serves every external API the bot calls from one test server.
func upstream(t *testing.T) *httptest.Server {
	t.Helper()
	imgData := pngBytes(t)

	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("/rpc", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     uint64 `json:"id"`
			Method string `json:"method"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		data := metadataAccountData("DeGod #77", "DGOD", srv.URL+"/meta.json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"context": map[string]interface{}{"slot": 1},
				"value": map[string]interface{}{
					"lamports":   1,
					"owner":      "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s",
					"data":       []string{base64.StdEncoding.EncodeToString(data), "base64"},
					"executable": false,
				},
			},
		})
	})
	mux.HandleFunc("/simple/price", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"solana":{"usd":20}}`)
	})
	mux.HandleFunc("/v2/tokens/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"mintAddress":%q,"collection":"degods"}`, testMint)
	})
	mux.HandleFunc("/v2/collections/degods/stats", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"symbol":"degods","floorPrice":245500000000}`)
	})
	mux.HandleFunc("/v0.1/collections/degods", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"result":{"api_code":200,"data":{"collection":"degods","items":[{"mint":%q,"rank":7}]}}}`, testMint)
	})
	mux.HandleFunc("/meta.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"name":"DeGod #77","image":%q}`, srv.URL+"/img.png")
	})
	mux.HandleFunc("/img.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(imgData)
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Solana.RPCEndpoint = baseURL + "/rpc"
	cfg.Solana.MaxRetries = 0
	for _, src := range []*config.SourceConfig{&cfg.Lookups.CoinGecko, &cfg.Lookups.MagicEden, &cfg.Lookups.HowRare} {
		src.BaseURL = baseURL
		src.RequestsPerSecond = 0
	}
	cfg.Render.Store = config.StoreLocal
	cfg.Render.LocalDir = t.TempDir()
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Pipeline.Workers = 2
	return cfg
}

func TestApp_DryRunOverFeed(t *testing.T) {
	srv := upstream(t)
	cfg := testConfig(t, srv.URL)

	feed := stub.NewStringFeed(
		fmt.Sprintf(`{"solAmount":12000000000,"orderType":"buy","nftMint":%q,"signature":"sig-big"}`, testMint),
		fmt.Sprintf(`{"solAmount":0,"orderType":"sell","nftMint":%q,"signature":"sig-zero"}`, testMint),
		`not json`,
	)

	a, err := Build(context.Background(), cfg, BuildOptions{Feed: feed, DryRun: true, WithServer: true})
	require.NoError(t, err)
	defer a.Close()
	require.NoError(t, a.Open(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	stats, err := a.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.Received)
	assert.Equal(t, int64(1), stats.Outcomes[pipeline.OutcomeDispatched])
	assert.Equal(t, int64(1), stats.Outcomes[pipeline.OutcomeSkipped])

	banners, err := filepath.Glob(filepath.Join(cfg.Render.LocalDir, "*.png"))
	require.NoError(t, err)
	assert.Len(t, banners, 1)
}

func TestApp_Status(t *testing.T) {
	srv := upstream(t)
	cfg := testConfig(t, srv.URL)
	cfg.Filters.SecondaryMinPrice = 15

	a, err := Build(context.Background(), cfg, BuildOptions{Feed: stub.NewFeed(), DryRun: true})
	require.NoError(t, err)
	defer a.Close()

	st := a.Status()
	assert.Equal(t, "ok", st.Status)
	assert.Equal(t, "stub", st.Feed)
	assert.Equal(t, 15.0, st.SecondaryMinPrice)
	assert.Equal(t, map[string]string{"discord": "dry-run", "twitter": "dry-run"}, st.Channels)
}

func TestApp_DisabledChannels(t *testing.T) {
	srv := upstream(t)
	cfg := testConfig(t, srv.URL)
	cfg.DryRun()
	cfg.Render.Store = config.StoreNone

	a, err := Build(context.Background(), cfg, BuildOptions{Feed: stub.NewFeed()})
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Open(context.Background()))
	assert.Equal(t, map[string]string{"discord": "disabled", "twitter": "disabled"}, a.Status().Channels)
}

func TestBuild_UnknownFeed(t *testing.T) {
	cfg := config.Default()
	cfg.Feed.Type = "carrier-pigeon"
	cfg.Render.Store = config.StoreNone

	_, err := Build(context.Background(), cfg, BuildOptions{DryRun: true})
	assert.ErrorContains(t, err, "carrier-pigeon")
}

func TestApp_WatchConfigUpdatesPolicy(t *testing.T) {
	srv := upstream(t)
	cfg := testConfig(t, srv.URL)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("filters:\n  secondary_min_price: 10\n"), 0o644))

	a, err := Build(context.Background(), cfg, BuildOptions{Feed: stub.NewFeed(), DryRun: true})
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.WatchConfig(ctx, path))

	require.NoError(t, os.WriteFile(path, []byte("filters:\n  secondary_min_price: 25\n"), 0o644))
	assert.Eventually(t, func() bool {
		return a.Policy().Threshold() == 25
	}, 5*time.Second, 20*time.Millisecond)
}
