package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"net/url"

	"quoteingest/internal/provider"
)

type quoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol    string `json:"symbol"`
			LongName  string `json:"longName"`
			ShortName string `json:"shortName"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"quoteResponse"`
}

// Lookup validates a ticker against the v7 quote endpoint and returns its
// metadata. An empty result set means the ticker is unknown to the provider
// and is reported as provider.ErrSymbolNotFound.
func (c *Client) Lookup(ctx context.Context, ticker string) (provider.SymbolInfo, error) {
	query := maps.Clone(c.query)
	if query == nil {
		query = url.Values{}
	}
	query.Set("symbols", ticker)

	u := fmt.Sprintf("%s/v7/finance/quote?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return provider.SymbolInfo{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()

	res, err := c.httpClient.Do(req)
	if err != nil {
		return provider.SymbolInfo{}, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		break

	case http.StatusNotFound:
		return provider.SymbolInfo{}, provider.ErrSymbolNotFound

	case http.StatusTooManyRequests:
		return provider.SymbolInfo{}, fmt.Errorf("rate limited")

	default:
		return provider.SymbolInfo{}, fmt.Errorf("unexpected status code: %d", res.StatusCode)
	}

	var body quoteResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return provider.SymbolInfo{}, fmt.Errorf("decoding quote response: %w", err)
	}
	if body.QuoteResponse.Error != nil {
		return provider.SymbolInfo{}, fmt.Errorf("quote error: %s: %s", body.QuoteResponse.Error.Code, body.QuoteResponse.Error.Description)
	}
	if len(body.QuoteResponse.Result) == 0 {
		return provider.SymbolInfo{}, provider.ErrSymbolNotFound
	}

	result := body.QuoteResponse.Result[0]
	name := result.LongName
	if name == "" {
		name = result.ShortName
	}
	return provider.SymbolInfo{Symbol: result.Symbol, Name: name}, nil
}
