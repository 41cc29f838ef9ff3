// Package polymarket contains the REST and WebSocket clients for the
// Polymarket CLOB and data APIs.
package polymarket

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mihnea-popescu/polymarket-copy-trading-bot-v1/internal/crypto"
	"github.com/mihnea-popescu/polymarket-copy-trading-bot-v1/internal/domain"
)

const zeroAddress = "0x0000000000000000000000000000000000000000"

// ClobClient is the REST client for the Polymarket CLOB (Central Limit
// Order Book) API. It signs orders with EIP-712 and authenticates requests
// with derived HMAC credentials.
type ClobClient struct {
	baseURL    string
	httpClient *http.Client
	signer     *crypto.Signer
	hmacAuth   *crypto.HMACAuth

	// funder is the address holding the collateral: the proxy wallet when
	// trading through one, otherwise the signer's own address.
	funder  string
	sigType int
}

// NewClobClient creates a new CLOB REST client.
//
// baseURL is the CLOB API root, e.g. "https://clob.polymarket.com".
// proxyAddress is the Polymarket proxy wallet, or "" when trading from the
// EOA directly.
func NewClobClient(baseURL string, signer *crypto.Signer, proxyAddress string) *ClobClient {
	c := &ClobClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		signer: signer,
		funder: signer.Address().Hex(),
	}
	if proxyAddress != "" {
		c.funder = proxyAddress
		c.sigType = 1 // POLY_PROXY
	}
	return c
}

// DeriveAPIKey performs the CLOB auth flow to obtain HMAC credentials. It
// signs a ClobAuth EIP-712 message and sends it with L1 headers to the
// derive-api-key endpoint. On success it populates the client's hmacAuth,
// after which authenticated endpoints become usable.
func (c *ClobClient) DeriveAPIKey(ctx context.Context) error {
	address := c.signer.Address().Hex()
	timestamp := time.Now().Unix()
	nonce := int64(0)

	sig, err := c.signer.SignAuthMessage(address, timestamp, nonce)
	if err != nil {
		return fmt.Errorf("polymarket/clob: sign auth message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/derive-api-key", nil)
	if err != nil {
		return fmt.Errorf("polymarket/clob: create auth request: %w", err)
	}
	req.Header.Set("POLY_ADDRESS", address)
	req.Header.Set("POLY_SIGNATURE", sig)
	req.Header.Set("POLY_TIMESTAMP", strconv.FormatInt(timestamp, 10))
	req.Header.Set("POLY_NONCE", strconv.FormatInt(nonce, 10))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("polymarket/clob: auth request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("polymarket/clob: read auth response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("polymarket/clob: auth failed (HTTP %d): %s", resp.StatusCode, string(respBody))
	}

	var authResp struct {
		APIKey     string `json:"apiKey"`
		Secret     string `json:"secret"`
		Passphrase string `json:"passphrase"`
	}
	if err := json.Unmarshal(respBody, &authResp); err != nil {
		return fmt.Errorf("polymarket/clob: decode auth response: %w", err)
	}

	c.hmacAuth = &crypto.HMACAuth{
		Key:        authResp.APIKey,
		Secret:     authResp.Secret,
		Passphrase: authResp.Passphrase,
	}
	return nil
}

// GetMarket returns the CLOB view of a market by condition ID, including its
// outcome-index to token-ID table.
func (c *ClobClient) GetMarket(ctx context.Context, conditionID string) (domain.Market, error) {
	path := "/markets/" + url.PathEscape(conditionID)

	body, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return domain.Market{}, fmt.Errorf("polymarket/clob: get market %s: %w", conditionID, err)
	}

	var apiMarket APIMarket
	if err := json.Unmarshal(body, &apiMarket); err != nil {
		return domain.Market{}, fmt.Errorf("polymarket/clob: decode market %s: %w", conditionID, err)
	}
	return apiMarket.ToDomainMarket(), nil
}

// GetOrderBook fetches a fresh orderbook snapshot for the given token.
func (c *ClobClient) GetOrderBook(ctx context.Context, tokenID string) (domain.OrderbookSnapshot, error) {
	params := url.Values{}
	params.Set("token_id", tokenID)

	body, err := c.doRequest(ctx, http.MethodGet, "/book?"+params.Encode(), nil)
	if err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("polymarket/clob: get book for %s: %w", tokenID, err)
	}

	var book APIBook
	if err := json.Unmarshal(body, &book); err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("polymarket/clob: decode book for %s: %w", tokenID, err)
	}
	return book.ToDomainSnapshot(), nil
}

// PostMarketOrder signs and submits a fill-or-kill market order built from
// args. A venue rejection comes back as an unsuccessful OrderResult with a
// nil error; errors are reserved for transport and signing failures.
func (c *ClobClient) PostMarketOrder(ctx context.Context, args domain.MarketOrderArgs) (domain.OrderResult, error) {
	if c.hmacAuth == nil {
		return domain.OrderResult{}, fmt.Errorf("polymarket/clob: %w: API key not derived", domain.ErrUnauthorized)
	}

	payload, err := c.buildOrderPayload(args)
	if err != nil {
		return domain.OrderResult{}, err
	}

	sig, err := c.signer.SignOrder(payload)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("polymarket/clob: sign order: %w", err)
	}

	body := map[string]any{
		"order": map[string]any{
			"salt":          payload.Salt,
			"maker":         payload.Maker,
			"signer":        payload.Signer,
			"taker":         payload.Taker,
			"tokenId":       payload.TokenID,
			"makerAmount":   payload.MakerAmount,
			"takerAmount":   payload.TakerAmount,
			"expiration":    payload.Expiration,
			"nonce":         payload.Nonce,
			"feeRateBps":    payload.FeeRateBps,
			"side":          string(args.Side),
			"signatureType": payload.SignatureType,
			"signature":     sig,
		},
		"owner":     c.hmacAuth.Key,
		"orderType": string(domain.OrderTypeFOK),
	}

	// Rejections come back with a non-2xx status and an errorMsg body; those
	// are order outcomes, not transport failures, so decode before the
	// status check.
	status, respBody, err := c.doRequestRaw(ctx, http.MethodPost, "/order", body)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("polymarket/clob: post order: %w", err)
	}

	var apiResult APIOrderResult
	if err := json.Unmarshal(respBody, &apiResult); err == nil &&
		(apiResult.Success || apiResult.ErrorMsg != "") {
		return apiResult.ToDomainOrderResult(), nil
	}

	if err := checkHTTPStatus(status, respBody); err != nil {
		return domain.OrderResult{}, fmt.Errorf("polymarket/clob: post order: %w", err)
	}
	return domain.OrderResult{}, fmt.Errorf("polymarket/clob: unrecognized order response: %s", string(respBody))
}

// buildOrderPayload converts MarketOrderArgs into the EIP-712 Order struct.
//
// For buys, Amount is the USDC notional: maker = USDC in, taker = shares out
// at the given price. For sells the roles flip: maker = shares in,
// taker = USDC out. On-chain amounts use 6 decimals.
func (c *ClobClient) buildOrderPayload(args domain.MarketOrderArgs) (crypto.OrderPayload, error) {
	if args.Price <= 0 {
		return crypto.OrderPayload{}, fmt.Errorf("polymarket/clob: invalid order price %f", args.Price)
	}
	if args.Amount <= 0 {
		return crypto.OrderPayload{}, fmt.Errorf("polymarket/clob: invalid order amount %f", args.Amount)
	}

	var makerAmt, takerAmt int64
	switch args.Side {
	case domain.OrderSideBuy:
		usdc := roundDown(args.Amount, 2)
		makerAmt = toUnits(usdc)
		takerAmt = toUnits(roundDown(usdc/args.Price, 2))
	case domain.OrderSideSell:
		shares := roundDown(args.Amount, 2)
		makerAmt = toUnits(shares)
		takerAmt = toUnits(roundDown(shares*args.Price, 2))
	default:
		return crypto.OrderPayload{}, fmt.Errorf("polymarket/clob: invalid order side %q", args.Side)
	}

	side := 0
	if args.Side == domain.OrderSideSell {
		side = 1
	}

	return crypto.OrderPayload{
		Salt:          newSalt(),
		Maker:         c.funder,
		Signer:        c.signer.Address().Hex(),
		Taker:         zeroAddress,
		TokenID:       args.TokenID,
		MakerAmount:   strconv.FormatInt(makerAmt, 10),
		TakerAmount:   strconv.FormatInt(takerAmt, 10),
		Expiration:    "0",
		Nonce:         "0",
		FeeRateBps:    "0",
		Side:          side,
		SignatureType: c.sigType,
	}, nil
}

// toUnits converts a human amount to 6-decimal on-chain units.
func toUnits(x float64) int64 {
	return int64(math.Round(x * 1e6))
}

// roundDown truncates x to dp decimal places so the order never claims more
// than the caller holds.
func roundDown(x float64, dp int) float64 {
	pow := math.Pow10(dp)
	return math.Floor(x*pow) / pow
}

// newSalt returns a random decimal salt for order uniqueness.
func newSalt() string {
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		// crypto/rand only fails when the OS entropy source is broken.
		return strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return n.String()
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doRequest builds, authenticates (HMAC, when credentials are present),
// sends, and reads an HTTP request against the CLOB API. Non-2xx statuses
// are mapped to domain errors.
func (c *ClobClient) doRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	status, respBody, err := c.doRequestRaw(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	if err := checkHTTPStatus(status, respBody); err != nil {
		return nil, err
	}
	return respBody, nil
}

// doRequestRaw is doRequest without the status check; it returns the HTTP
// status alongside the body so callers can interpret error responses.
func (c *ClobClient) doRequestRaw(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var bodyReader io.Reader
	var bodyStr string

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyStr = string(jsonBody)
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.hmacAuth != nil {
		headers := c.hmacAuth.L2Headers(c.signer.Address().Hex(), method, path, bodyStr)
		for k, v := range headers {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

// checkHTTPStatus maps non-2xx status codes to domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}
