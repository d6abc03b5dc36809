// Package explorer provides a client for the Etherscan contract verification
// API so deployed contracts can publish their source.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultURL is the multichain Etherscan API endpoint.
const DefaultURL = "https://api.etherscan.io/v2/api"

// ErrNoAPIKey is returned when the client is used without an api key.
var ErrNoAPIKey = errors.New("explorer api key not configured")

// response is the envelope every Etherscan API call returns.
type response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

// VerifyRequest describes a single file solidity source to verify.
type VerifyRequest struct {
	Address         string
	ContractName    string
	Source          string
	CompilerVersion string
	Optimized       bool
	Runs            int
}

// Status represents the state of a verification request.
type Status struct {
	Verified bool
	Pending  bool
	Message  string
}

// Client talks to an Etherscan compatible explorer.
type Client struct {
	http    *resty.Client
	apiKey  string
	chainID int64
}

// New constructs a client for the specified chain.
func New(url string, apiKey string, chainID int64) *Client {
	if url == "" {
		url = DefaultURL
	}

	http := resty.New().
		SetBaseURL(url).
		SetTimeout(30*time.Second).
		SetHeader("Accept", "application/json")

	return &Client{
		http:    http,
		apiKey:  apiKey,
		chainID: chainID,
	}
}

// VerifySource submits the source for verification and returns the GUID
// used to poll for the result.
func (c *Client) VerifySource(ctx context.Context, vr VerifyRequest) (string, error) {
	if c.apiKey == "" {
		return "", ErrNoAPIKey
	}

	optimized := "0"
	if vr.Optimized {
		optimized = "1"
	}

	var resp response
	r, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("chainid", strconv.FormatInt(c.chainID, 10)).
		SetFormData(map[string]string{
			"apikey":           c.apiKey,
			"module":           "contract",
			"action":           "verifysourcecode",
			"contractaddress":  vr.Address,
			"sourceCode":       vr.Source,
			"codeformat":       "solidity-single-file",
			"contractname":     vr.ContractName,
			"compilerversion":  vr.CompilerVersion,
			"optimizationUsed": optimized,
			"runs":             strconv.Itoa(vr.Runs),
		}).
		SetResult(&resp).
		Post("")
	if err != nil {
		return "", fmt.Errorf("submitting verification: %w", err)
	}

	if r.IsError() {
		return "", fmt.Errorf("submitting verification: http status %d", r.StatusCode())
	}

	if resp.Status != "1" {
		return "", fmt.Errorf("submitting verification: %s: %s", resp.Message, resp.Result)
	}

	return resp.Result, nil
}

// CheckStatus reports the state of a verification request.
func (c *Client) CheckStatus(ctx context.Context, guid string) (Status, error) {
	if c.apiKey == "" {
		return Status{}, ErrNoAPIKey
	}

	var resp response
	r, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"chainid": strconv.FormatInt(c.chainID, 10),
			"apikey":  c.apiKey,
			"module":  "contract",
			"action":  "checkverifystatus",
			"guid":    guid,
		}).
		SetResult(&resp).
		Get("")
	if err != nil {
		return Status{}, fmt.Errorf("checking verification: %w", err)
	}

	if r.IsError() {
		return Status{}, fmt.Errorf("checking verification: http status %d", r.StatusCode())
	}

	st := Status{
		Message: resp.Result,
	}

	switch {
	case resp.Status == "1":
		st.Verified = true

	case strings.Contains(strings.ToLower(resp.Result), "pending"):
		st.Pending = true

	case strings.Contains(strings.ToLower(resp.Result), "already verified"):
		st.Verified = true

	default:
		return st, fmt.Errorf("verification failed: %s", resp.Result)
	}

	return st, nil
}

// Wait polls the verification status until it leaves the pending state or
// the context is cancelled.
func (c *Client) Wait(ctx context.Context, guid string, interval time.Duration) (Status, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		st, err := c.CheckStatus(ctx, guid)
		if err != nil || !st.Pending {
			return st, err
		}

		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-ticker.C:
		}
	}
}
