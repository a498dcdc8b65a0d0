package fintoc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Fintoc-PepeStore2-0/Backend/internal/infra/payment"
	"github.com/hashicorp/go-cleanhttp"
)

const (
	DefaultBaseURL        = "https://api.fintoc.com/v1"
	defaultProviderErrMsg = "payment provider call failed"
	maxErrorBody          = 64 << 10
)

type Config struct {
	BaseURL   string
	SecretKey string
	// Contract selects which Fintoc resource backs a Session.
	Contract         payment.Contract
	RecipientAccount string
	ReturnURL        string
}

// Client talks to the Fintoc REST API.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient uses a pooled cleanhttp client when httpClient is nil.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Contract == "" {
		cfg.Contract = payment.ContractCheckoutSession
	}
	if httpClient == nil {
		httpClient = cleanhttp.DefaultPooledClient()
	}
	return &Client{cfg: cfg, http: httpClient}
}

func (c *Client) Name() string {
	return "fintoc"
}

func (c *Client) Contract() payment.Contract {
	return c.cfg.Contract
}

func (c *Client) OpenSession(ctx context.Context, req payment.OpenSessionRequest) (*payment.Session, error) {
	switch c.cfg.Contract {
	case payment.ContractPaymentIntent:
		return c.createPaymentIntent(ctx, req)
	case payment.ContractCheckoutSession:
		return c.createCheckoutSession(ctx, req)
	}
	return nil, fmt.Errorf("fintoc: unsupported contract %q", c.cfg.Contract)
}

func (c *Client) FetchSession(ctx context.Context, ref string) (*payment.Session, error) {
	if ref == "" {
		return nil, payment.ErrSessionNotFound
	}
	switch c.cfg.Contract {
	case payment.ContractPaymentIntent:
		return c.getPaymentIntent(ctx, ref)
	case payment.ContractCheckoutSession:
		return c.getCheckoutSession(ctx, ref)
	}
	return nil, fmt.Errorf("fintoc: unsupported contract %q", c.cfg.Contract)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("fintoc: encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("fintoc: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fintoc: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeProviderError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("fintoc: decode response: %w", err)
	}
	return nil
}

// decodeProviderError accepts both {"message": ...} and {"error": {"message": ...}}.
func decodeProviderError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	perr := &payment.ProviderError{StatusCode: resp.StatusCode, Message: defaultProviderErrMsg}
	if json.Valid(raw) {
		perr.Details = json.RawMessage(raw)
		var body struct {
			Message string `json:"message"`
			Error   struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(raw, &body); err == nil {
			switch {
			case body.Message != "":
				perr.Message = body.Message
			case body.Error.Message != "":
				perr.Message = body.Error.Message
			}
		}
	}
	return perr
}

// notFoundAsSession turns a provider 404 into payment.ErrSessionNotFound.
func notFoundAsSession(err error, ref string) error {
	var perr *payment.ProviderError
	if errors.As(err, &perr) && perr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", payment.ErrSessionNotFound, ref)
	}
	return err
}

func escape(ref string) string {
	return url.PathEscape(ref)
}

var _ payment.Gateway = (*Client)(nil)
