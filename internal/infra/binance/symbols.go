package binance

import (
	"context"
	"log/slog"

	"github.com/adshao/go-binance/v2/futures"
)

// SymbolUniverse lists the tradable USDT-futures instruments. When the
// exchange-info request fails it falls back to a static list so the scanner
// keeps working through exchange outages.
type SymbolUniverse struct {
	client   *futures.Client
	fallback []string
}

// NewSymbolUniverse creates a provider backed by the futures exchange-info
// endpoint.
func NewSymbolUniverse(restURL string, fallback []string) *SymbolUniverse {
	client := futures.NewClient("", "")
	if restURL != "" {
		client.BaseURL = restURL
	}
	return &SymbolUniverse{
		client:   client,
		fallback: append([]string(nil), fallback...),
	}
}

// ListActiveSymbols returns actively trading USDT-quoted perpetual symbols in
// exchange order. Fetch failure degrades to the fallback list, never an error.
func (u *SymbolUniverse) ListActiveSymbols(ctx context.Context) ([]string, error) {
	info, err := u.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		slog.Warn("Exchange info fetch failed, using fallback symbols",
			slog.Any("error", err), slog.Int("fallback", len(u.fallback)))
		return append([]string(nil), u.fallback...), nil
	}

	out := make([]string, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		if s.Status == "TRADING" && s.QuoteAsset == "USDT" {
			out = append(out, s.Symbol)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), u.fallback...), nil
	}
	return out, nil
}
