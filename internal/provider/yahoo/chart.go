package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"quoteingest/internal/provider"
)

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []any `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"chart"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Bars retrieves minute bars for ticker over [start, end) from the v8 chart
// endpoint. Minutes without a closing price are skipped. A window the
// provider has no data for yields an empty slice, not an error.
func (c *Client) Bars(ctx context.Context, ticker string, start, end time.Time) ([]provider.Bar, error) {
	query := maps.Clone(c.query)
	if query == nil {
		query = url.Values{}
	}
	query.Set("period1", strconv.FormatInt(start.Unix(), 10))
	query.Set("period2", strconv.FormatInt(end.Unix(), 10))
	query.Set("interval", "1m")

	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(ticker), query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		break

	case http.StatusNotFound:
		// Yahoo answers 404 for windows it has no bars for.
		return nil, nil

	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("rate limited")

	default:
		return nil, fmt.Errorf("unexpected status code: %d", res.StatusCode)
	}

	var body chartResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding chart response: %w", err)
	}
	if body.Chart.Error != nil {
		return nil, fmt.Errorf("chart error: %s: %s", body.Chart.Error.Code, body.Chart.Error.Description)
	}
	if len(body.Chart.Result) == 0 {
		return nil, nil
	}

	result := body.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, nil
	}
	closes := result.Indicators.Quote[0].Close

	bars := make([]provider.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) {
			break
		}
		price, ok := firstScalar(closes[i])
		if !ok {
			// No trade in this minute.
			continue
		}
		bars = append(bars, provider.Bar{
			Timestamp: time.Unix(ts, 0).UTC(),
			Close:     price,
		})
	}
	return bars, nil
}

// firstScalar unwraps a decoded JSON value to its first numeric scalar.
// Yahoo occasionally nests a field value inside a single-element array.
func firstScalar(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case []any:
		if len(x) == 0 {
			return 0, false
		}
		return firstScalar(x[0])
	default:
		return 0, false
	}
}
