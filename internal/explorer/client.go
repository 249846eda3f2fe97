package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const defaultValueDecimals = 18

// ChainEndpoint holds the resolved connection details for one chain.
type ChainEndpoint struct {
	BaseURL string
	APIKey  string
	RPCURL  string
}

// Options parameterise the explorer client.
type Options struct {
	Chains     map[string]ChainEndpoint
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	ProxyURL   string
	UserAgent  string
}

// Client fetches query values from etherscan-family explorer APIs, falling
// back to direct JSON-RPC for queries that request the rpc transport.
type Client struct {
	opts   Options
	logger zerolog.Logger
	client *http.Client
	rpc    *rpcDialer
	sleep  Sleeper
}

// NewClient constructs an explorer client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport := http.DefaultTransport
	if opts.ProxyURL != "" {
		if proxyURL, err := url.Parse(opts.ProxyURL); err == nil {
			t := http.DefaultTransport.(*http.Transport).Clone()
			t.Proxy = http.ProxyURL(proxyURL)
			transport = t
		} else {
			logger.Warn().Str("proxy_url", opts.ProxyURL).Err(err).Msg("invalid proxy url, proceeding without proxy")
		}
	}

	return &Client{
		opts:   opts,
		logger: logger.With().Str("component", "explorer_client").Logger(),
		client: &http.Client{Timeout: timeout, Transport: transport},
		rpc:    newRPCDialer(),
		sleep:  SleepWithContext,
	}
}

// Fetch retrieves the numeric value for a query, retrying transient failures
// with a fixed delay up to MaxRetries extra attempts.
func (c *Client) Fetch(ctx context.Context, def QueryDefinition) (decimal.Decimal, error) {
	for attempt := 0; ; attempt++ {
		value, err := c.fetchOnce(ctx, def)
		if err == nil {
			return value, nil
		}

		if !ShouldRetry(err, attempt, c.opts.MaxRetries) {
			return decimal.Decimal{}, err
		}

		c.logger.Debug().
			Str("query_id", def.ID).
			Int("attempt", attempt+1).
			Err(err).
			Msg("retrying after transient failure")

		if serr := c.sleep(ctx, c.opts.RetryDelay); serr != nil {
			return decimal.Decimal{}, transientErr(def.ID, "cancelled during retry wait", serr)
		}
	}
}

func (c *Client) fetchOnce(ctx context.Context, def QueryDefinition) (decimal.Decimal, error) {
	endpoint, ok := c.opts.Chains[def.ChainName]
	if !ok {
		return decimal.Decimal{}, permanentErr(def.ID, fmt.Sprintf("chain %q not configured", def.ChainName), nil)
	}

	if def.Params["transport"] == "rpc" {
		return c.fetchRPC(ctx, def, endpoint)
	}
	return c.fetchHTTP(ctx, def, endpoint)
}

func (c *Client) fetchHTTP(ctx context.Context, def QueryDefinition, endpoint ChainEndpoint) (decimal.Decimal, error) {
	if endpoint.BaseURL == "" {
		return decimal.Decimal{}, permanentErr(def.ID, fmt.Sprintf("chain %q has no base_url", def.ChainName), nil)
	}

	values := url.Values{}
	for k, v := range def.Params {
		if k == "transport" || k == "decimals" {
			continue
		}
		values.Set(k, v)
	}
	if endpoint.APIKey != "" {
		values.Set("apikey", endpoint.APIKey)
	}

	reqURL := strings.TrimRight(endpoint.BaseURL, "/") + "?" + values.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return decimal.Decimal{}, permanentErr(def.ID, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "chainwatch/1.0")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return decimal.Decimal{}, transientErr(def.ID, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Decimal{}, transientErr(def.ID, "read response", err)
	}

	if resp.StatusCode >= 500 {
		return decimal.Decimal{}, transientErr(def.ID, fmt.Sprintf("explorer returned %d", resp.StatusCode), nil)
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, permanentErr(def.ID, fmt.Sprintf("explorer returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	return parseExplorerPayload(def, body)
}

type explorerResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func parseExplorerPayload(def QueryDefinition, body []byte) (decimal.Decimal, error) {
	var payload explorerResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return decimal.Decimal{}, permanentErr(def.ID, "decode explorer payload", err)
	}

	if payload.Status != "1" {
		msg := payload.Message
		if msg == "" {
			msg = "unknown explorer error"
		}
		// Rate limiting is the one provider-level error worth retrying.
		if strings.Contains(strings.ToLower(msg), "rate limit") {
			return decimal.Decimal{}, transientErr(def.ID, msg, nil)
		}
		return decimal.Decimal{}, permanentErr(def.ID, msg, nil)
	}

	var raw string
	if err := json.Unmarshal(payload.Result, &raw); err != nil {
		// Some endpoints return bare numbers rather than strings.
		var num json.Number
		if err2 := json.Unmarshal(payload.Result, &num); err2 != nil {
			return decimal.Decimal{}, permanentErr(def.ID, "non-numeric result payload", err)
		}
		raw = num.String()
	}

	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, permanentErr(def.ID, fmt.Sprintf("parse result %q", raw), err)
	}

	return scaleValue(def, value), nil
}

// scaleValue shifts raw integer amounts into token units. Explorers report
// balances in the smallest denomination; decimals defaults to 18 and can be
// overridden per query (use "0" for values that are already scaled).
func scaleValue(def QueryDefinition, value decimal.Decimal) decimal.Decimal {
	decimals := int32(defaultValueDecimals)
	if raw, ok := def.Params["decimals"]; ok {
		if parsed, err := decimal.NewFromString(raw); err == nil {
			decimals = int32(parsed.IntPart())
		}
	}
	if decimals == 0 {
		return value
	}
	return value.Shift(-decimals)
}

var _ Fetcher = (*Client)(nil)
