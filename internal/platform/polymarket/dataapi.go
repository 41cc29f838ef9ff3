package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mihnea-popescu/polymarket-copy-trading-bot-v1/internal/domain"
)

// DataClient is the REST client for the Polymarket data API, which serves
// wallet positions, on-chain activity history, and market metadata.
type DataClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewDataClient creates a new data API client.
//
// baseURL is the data API root, e.g. "https://data-api.polymarket.com".
func NewDataClient(baseURL string) *DataClient {
	return &DataClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetPositions returns all open positions for a wallet.
func (d *DataClient) GetPositions(ctx context.Context, wallet string) ([]domain.Position, error) {
	params := url.Values{}
	params.Set("user", wallet)

	body, err := d.doGet(ctx, "/positions?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/data: get positions for %s: %w", wallet, err)
	}

	var apiPositions []APIPosition
	if err := json.Unmarshal(body, &apiPositions); err != nil {
		return nil, fmt.Errorf("polymarket/data: decode positions: %w", err)
	}

	positions := make([]domain.Position, 0, len(apiPositions))
	for i := range apiPositions {
		positions = append(positions, apiPositions[i].ToDomainPosition())
	}
	return positions, nil
}

// GetRedeemablePositions returns positions on resolved markets whose winning
// shares can be redeemed for collateral.
func (d *DataClient) GetRedeemablePositions(ctx context.Context, wallet string) ([]domain.Position, error) {
	params := url.Values{}
	params.Set("user", wallet)
	params.Set("redeemable", "true")

	body, err := d.doGet(ctx, "/positions?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/data: get redeemable positions for %s: %w", wallet, err)
	}

	var apiPositions []APIPosition
	if err := json.Unmarshal(body, &apiPositions); err != nil {
		return nil, fmt.Errorf("polymarket/data: decode positions: %w", err)
	}

	var positions []domain.Position
	for i := range apiPositions {
		p := apiPositions[i].ToDomainPosition()
		if p.Redeemable && p.Size > 0 {
			positions = append(positions, p)
		}
	}
	return positions, nil
}

// GetActivity returns the most recent on-chain activity rows for a wallet,
// newest first.
func (d *DataClient) GetActivity(ctx context.Context, wallet string, limit, offset int) ([]domain.Activity, error) {
	params := url.Values{}
	params.Set("user", wallet)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	params.Set("sortBy", "TIMESTAMP")
	params.Set("sortDirection", "DESC")

	body, err := d.doGet(ctx, "/activity?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/data: get activity for %s: %w", wallet, err)
	}

	var apiActivities []APIActivity
	if err := json.Unmarshal(body, &apiActivities); err != nil {
		return nil, fmt.Errorf("polymarket/data: decode activity: %w", err)
	}

	activities := make([]domain.Activity, 0, len(apiActivities))
	for i := range apiActivities {
		activities = append(activities, apiActivities[i].ToDomainActivity())
	}
	return activities, nil
}

// GetMarketByCondition looks up a market by condition ID. Used as the last
// resort of token resolution when the CLOB market endpoint comes up empty.
func (d *DataClient) GetMarketByCondition(ctx context.Context, conditionID string) (domain.Market, error) {
	params := url.Values{}
	params.Set("condition_ids", conditionID)

	body, err := d.doGet(ctx, "/markets?"+params.Encode())
	if err != nil {
		return domain.Market{}, fmt.Errorf("polymarket/data: get market %s: %w", conditionID, err)
	}

	var apiMarkets []APIDataMarket
	if err := json.Unmarshal(body, &apiMarkets); err != nil {
		return domain.Market{}, fmt.Errorf("polymarket/data: decode markets: %w", err)
	}
	if len(apiMarkets) == 0 {
		return domain.Market{}, fmt.Errorf("polymarket/data: market %s: %w", conditionID, domain.ErrNotFound)
	}
	return apiMarkets[0].ToDomainMarket(), nil
}

// doGet sends an unauthenticated GET request to the data API.
func (d *DataClient) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}
