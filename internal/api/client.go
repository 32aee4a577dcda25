package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	BaseURL        = "https://search.censys.io/api"
	DefaultTimeout = 300 * time.Second
)

type Options struct {
	BaseURL   string
	APIID     string
	APISecret string
	Timeout   time.Duration
	UserAgent string
}

type Client struct {
	restyClient *resty.Client
}

// NewClient builds a client for the Censys search API. Both halves of the
// credential pair are required.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIID) == "" || strings.TrimSpace(opts.APISecret) == "" {
		return nil, &AuthenticationError{Message: "API ID and secret are required; run 'censys-toolkit config set-credentials' or set CENSYS_API_ID and CENSYS_API_SECRET"}
	}
	if opts.BaseURL == "" {
		opts.BaseURL = BaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "censys-toolkit"
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(opts.BaseURL, "/"))
	client.SetBasicAuth(opts.APIID, opts.APISecret)
	client.SetTimeout(opts.Timeout)
	client.SetHeaders(map[string]string{
		"Accept":     "application/json",
		"User-Agent": opts.UserAgent,
	})
	return &Client{restyClient: client}, nil
}

// Search fetches one page from the given index.
func (c *Client) Search(ctx context.Context, index Index, req SearchRequest) (*SearchPage, error) {
	switch index {
	case IndexHosts:
		return c.SearchHosts(ctx, req)
	case IndexCertificates:
		return c.SearchCertificates(ctx, req)
	}
	return nil, fmt.Errorf("unknown index %q", index)
}

// SearchHosts queries the hosts index: GET /v2/hosts/search.
func (c *Client) SearchHosts(ctx context.Context, req SearchRequest) (*SearchPage, error) {
	r := c.restyClient.R().
		SetContext(ctx).
		SetQueryParam("q", req.Query).
		SetQueryParam("per_page", strconv.Itoa(req.PerPage))
	if req.Cursor != "" {
		r.SetQueryParam("cursor", req.Cursor)
	}
	if len(req.Fields) > 0 {
		r.SetQueryParam("fields", strings.Join(req.Fields, ","))
	}

	var envelope searchEnvelope
	resp, err := r.SetResult(&envelope).Get("/v2/hosts/search")
	return c.searchResult(ctx, resp, err, &envelope)
}

// SearchCertificates queries the certificates index: POST /v2/certificates/search.
func (c *Client) SearchCertificates(ctx context.Context, req SearchRequest) (*SearchPage, error) {
	var envelope searchEnvelope
	resp, err := c.restyClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&envelope).
		Post("/v2/certificates/search")
	return c.searchResult(ctx, resp, err, &envelope)
}

func (c *Client) searchResult(ctx context.Context, resp *resty.Response, err error, envelope *searchEnvelope) (*SearchPage, error) {
	if err != nil {
		return nil, transportError(ctx, err)
	}
	// The service answers 404 when nothing matches.
	if resp.StatusCode() == http.StatusNotFound {
		return &SearchPage{}, nil
	}
	if err := classify(resp); err != nil {
		return nil, err
	}
	if envelope.Code == 0 && envelope.Result.Hits == nil {
		// Result was not decoded, e.g. a missing content type.
		if err := json.Unmarshal(resp.Body(), envelope); err != nil {
			return nil, &TransientError{Status: resp.StatusCode(), Message: "malformed response body", Err: err}
		}
	}
	return &SearchPage{
		Total: envelope.Result.Total,
		Hits:  envelope.Result.Hits,
		Next:  envelope.Result.Links.Next,
	}, nil
}

// Account returns the account details and query quota: GET /v1/account.
func (c *Client) Account(ctx context.Context) (*Account, error) {
	var account Account
	resp, err := c.restyClient.R().
		SetContext(ctx).
		SetResult(&account).
		Get("/v1/account")
	if err != nil {
		return nil, transportError(ctx, err)
	}
	if err := classify(resp); err != nil {
		return nil, err
	}
	return &account, nil
}

// ValidateCredentials makes one cheap authenticated call. Only an
// AuthenticationError is treated as a verdict; other failures are returned unchanged.
func (c *Client) ValidateCredentials(ctx context.Context) error {
	_, err := c.Account(ctx)
	return err
}

func transportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &TransientError{Message: err.Error(), Err: err}
}

func classify(resp *resty.Response) error {
	if !resp.IsError() && resp.StatusCode() < http.StatusMultipleChoices {
		return nil
	}
	status := resp.StatusCode()
	msg := errorMessage(resp)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &AuthenticationError{Status: status, Message: msg}
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		return &TransientError{Status: status, Message: msg, RetryAfter: retryAfter(resp.Header().Get("Retry-After"))}
	default:
		return &RequestError{Status: status, Message: msg}
	}
}

func errorMessage(resp *resty.Response) string {
	var body errorBody
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Error != "" {
		return body.Error
	}
	if text := strings.TrimSpace(string(resp.Body())); text != "" && len(text) <= 200 {
		return text
	}
	return resp.Status()
}

func retryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
