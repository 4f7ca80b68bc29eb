package modules

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jcs/sdorfehs-bar/pkg/bar"
	"github.com/jcs/sdorfehs-bar/pkg/cache"
	"github.com/jcs/sdorfehs-bar/pkg/markup"
	"github.com/jcs/sdorfehs-bar/pkg/theme"
)

const coingeckoBaseURL = "https://api.coingecko.com/api/v3"

// coinSymbols maps price API coin ids to ticker symbols. Ids not listed
// here fall back to an uppercased prefix.
var coinSymbols = map[string]string{
	"bitcoin":  "BTC",
	"ethereum": "ETH",
	"litecoin": "LTC",
	"dogecoin": "DOGE",
	"monero":   "XMR",
	"cardano":  "ADA",
	"solana":   "SOL",
}

// currencySigns maps currency codes to a price prefix. Currencies not
// listed are shown with their uppercased code after the amount.
var currencySigns = map[string]string{
	"usd": "$",
	"eur": "€",
	"gbp": "£",
	"jpy": "¥",
}

// PriceClient fetches spot prices for coins in one currency.
type PriceClient interface {
	Prices(ctx context.Context, coins []string, currency string) (map[string]float64, error)
}

// CryptoConfig configures the crypto module.
type CryptoConfig struct {
	// Coins are price API coin ids, e.g. "bitcoin".
	Coins []string

	// Currency is the quote currency code, e.g. "usd".
	Currency string

	// Client overrides the price API client.
	Client PriceClient

	// Cache, when set, keeps the last prices across restarts. TTL is the
	// freshness window; within it no request is made at all.
	Cache *cache.Store
	TTL   time.Duration
}

// Crypto shows spot prices, colored by direction since the previous poll.
type Crypto struct {
	coins    []string
	currency string
	client   PriceClient
	cache    *cache.Store
	ttl      time.Duration

	// prev remembers the last shown price per coin for direction colors.
	// Only the module's own render goroutine touches it.
	prev map[string]float64
}

func NewCrypto(cfg CryptoConfig) *Crypto {
	if cfg.Client == nil {
		cfg.Client = NewCoinGeckoClient(nil)
	}
	coins := cfg.Coins
	if len(coins) == 0 {
		coins = []string{"bitcoin"}
	}
	currency := strings.ToLower(cfg.Currency)
	if currency == "" {
		currency = "usd"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	return &Crypto{
		coins:    coins,
		currency: currency,
		client:   cfg.Client,
		cache:    cfg.Cache,
		ttl:      cfg.TTL,
		prev:     map[string]float64{},
	}
}

func (c *Crypto) Name() string { return "crypto" }

func (c *Crypto) cacheKey() string {
	return "crypto:" + strings.Join(c.coins, ",") + ":" + c.currency
}

func (c *Crypto) Render(ctx context.Context, v bar.View) (string, error) {
	if c.cache != nil {
		if cached, ok := cache.GetTyped[map[string]float64](c.cache, c.cacheKey()); ok {
			if out := c.format(cached, v.Palette, false); out != "" {
				return out, nil
			}
		}
	}

	prices, err := c.client.Prices(ctx, c.coins, c.currency)
	if err != nil {
		if c.cache != nil {
			if stale, _, ok := cache.GetTypedStale[map[string]float64](c.cache, c.cacheKey()); ok {
				if out := c.format(stale, v.Palette, true); out != "" {
					return out, nil
				}
			}
		}
		return "", err
	}
	if c.cache != nil {
		_ = cache.PutTyped(c.cache, c.cacheKey(), prices, c.ttl)
	}

	out := c.format(prices, v.Palette, false)
	if out == "" {
		return "", fmt.Errorf("crypto: no prices for %s", strings.Join(c.coins, ","))
	}
	return out, nil
}

func (c *Crypto) format(prices map[string]float64, p theme.Palette, stale bool) string {
	sign := currencySigns[c.currency]
	var parts []string
	for _, coin := range c.coins {
		price, ok := prices[coin]
		if !ok {
			continue
		}

		var color string
		if last, ok := c.prev[coin]; ok {
			switch {
			case price > last:
				color = p.Good
			case price < last:
				color = p.Crit
			}
		}
		c.prev[coin] = price

		label := coinSymbol(coin) + " "
		if sign != "" {
			label += sign + formatPrice(price)
		} else {
			label += formatPrice(price) + " " + strings.ToUpper(c.currency)
		}
		parts = append(parts, markup.Fg(color, label))
	}
	out := strings.Join(parts, " ")
	if stale && out != "" {
		out = markup.Fg(p.Dim, "~") + out
	}
	return out
}

func coinSymbol(id string) string {
	if sym, ok := coinSymbols[id]; ok {
		return sym
	}
	if len(id) > 4 {
		id = id[:4]
	}
	return strings.ToUpper(id)
}

// formatPrice renders an amount with thousands separators above 1000 and
// cents below 100.
func formatPrice(p float64) string {
	switch {
	case p >= 1000:
		return groupThousands(int64(math.Round(p)))
	case p >= 100:
		return strconv.FormatFloat(p, 'f', 0, 64)
	default:
		return strconv.FormatFloat(p, 'f', 2, 64)
	}
}

func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	head := len(s) % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// CoinGeckoClient talks to the CoinGecko simple-price endpoint.
type CoinGeckoClient struct {
	base string
	http *http.Client
}

// NewCoinGeckoClient creates a client. A nil httpClient gets one with a
// request timeout suited to a background poller.
func NewCoinGeckoClient(httpClient *http.Client) *CoinGeckoClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &CoinGeckoClient{base: coingeckoBaseURL, http: httpClient}
}

func (c *CoinGeckoClient) Prices(ctx context.Context, coins []string, currency string) (map[string]float64, error) {
	q := url.Values{}
	q.Set("ids", strings.Join(coins, ","))
	q.Set("vs_currencies", currency)
	endpoint := c.base + "/simple/price?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("crypto: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("crypto: fetch prices: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("crypto: price API: %s", resp.Status)
	}

	var body map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("crypto: decode prices: %w", err)
	}
	prices := make(map[string]float64, len(body))
	for coin, quotes := range body {
		if v, ok := quotes[currency]; ok {
			prices[coin] = v
		}
	}
	return prices, nil
}
