package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agrilink/crm-sync/internal/config"
	"github.com/agrilink/crm-sync/internal/domain"
	"github.com/agrilink/crm-sync/internal/observability"
)

const authorizationScheme = "Zoho-oauthtoken"

// Fertilizer codes this short cannot be real catalog codes; they are
// skipped before matching, same as unmatched codes.
const minFertilizerCodeLength = 4

var (
	// ErrRateLimitExhausted reports a call abandoned after the retry budget
	// was consumed by 429 or transport failures.
	ErrRateLimitExhausted = errors.New("crm: retry budget exhausted")
	// ErrAuthFailed reports a second auth rejection after a token refresh.
	ErrAuthFailed = errors.New("crm: authentication failed after token refresh")
)

// APIError carries a non-retriable CRM response for diagnostics.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("crm: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the CRM REST API. It owns the access token lifecycle and
// the retry/backoff state machine; callers see plain operations with
// explicit errors. A single token is reused across calls until a 401/403
// proves it stale, at which point it is refreshed and the triggering call
// retried exactly once. 429 and transport failures share a fixed-size retry
// budget with a fixed delay between attempts.
type Client struct {
	cfg        config.CRMConfig
	httpClient *http.Client
	tokens     TokenStore
	logger     *zap.Logger
	metrics    *observability.Metrics

	mu    sync.Mutex
	token string
}

// NewClient builds a CRM client. tokens may be nil; the token then lives
// only in process memory.
func NewClient(cfg config.CRMConfig, tokens TokenStore, logger *zap.Logger, metrics *observability.Metrics) *Client {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 200
	}
	if cfg.MaxRetryAttempts <= 0 {
		cfg.MaxRetryAttempts = 5
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     tokens,
		logger:     logger,
		metrics:    metrics,
	}
}

// SetHTTPClient overrides the transport, used by tests.
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// ResolveOrCreateContact finds the contact keyed by the registration's
// normalized phone, creating it when absent. The search-before-create step
// upholds the one-contact-per-phone invariant. The returned bool reports
// whether a new contact was created.
func (c *Client) ResolveOrCreateContact(ctx context.Context, reg domain.Registration) (string, bool, error) {
	contactID, err := c.SearchContactByPhone(ctx, reg.NormalizedPhone)
	if err != nil {
		return "", false, err
	}
	if contactID != "" {
		return contactID, false, nil
	}

	payload := contactRequest{Data: []contactPayload{{
		LastName:   orPlaceholder(reg.SecondName),
		FirstName:  orPlaceholder(reg.FirstName),
		Phone:      reg.NormalizedPhone,
		LeadSource: c.cfg.LeadSource,
	}}}
	if c.cfg.AccountID != "" {
		payload.Data[0].AccountName = &recordRef{ID: c.cfg.AccountID}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", false, err
	}

	respBody, err := c.call(ctx, apiRequest{
		method: http.MethodPost,
		path:   "/crm/v3/Contacts",
		body:   body,
	})
	if err != nil {
		return "", false, err
	}

	contactID, err = mutationRecordID(respBody)
	if err != nil {
		return "", false, fmt.Errorf("crm: contact create: %w", err)
	}
	return contactID, true, nil
}

// SearchContactByPhone returns the id of the contact holding the phone
// number, or empty when no contact matches.
func (c *Client) SearchContactByPhone(ctx context.Context, phone string) (string, error) {
	query := url.Values{}
	query.Set("phone", phone)

	body, err := c.call(ctx, apiRequest{
		method: http.MethodGet,
		path:   "/crm/v3/Contacts/search",
		query:  query,
	})
	if err != nil {
		return "", err
	}
	if len(body) == 0 {
		return "", nil
	}

	var res searchResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return "", fmt.Errorf("crm: decode contact search: %w", err)
	}
	if len(res.Data) == 0 {
		return "", nil
	}
	return res.Data[0].ID, nil
}

// CreateLead creates a lead linked to the contact, pricing fertilizer line
// items against the product catalog. The catalog is fetched fresh per call.
// Unmatched fertilizer codes are dropped from the line items and the amount.
func (c *Client) CreateLead(ctx context.Context, contactID string, reg domain.Registration, createdAt time.Time) (string, error) {
	products, err := c.ListProducts(ctx)
	if err != nil {
		return "", err
	}

	lineItems, amount := buildLineItems(reg.Fertilizers, products)

	payload := leadRequest{Data: []leadPayload{{
		FirstName:   orPlaceholder(reg.FirstName),
		LastName:    orPlaceholder(reg.SecondName),
		Contact:     recordRef{ID: contactID},
		CropsGrown:  strings.Join(reg.Crops, ", "),
		FarmName:    reg.FarmName,
		FarmSize:    reg.FarmSize,
		Description: reg.Details,
		Products:    lineItems,
		Amount:      amount,
		Location:    reg.Location,
		LeadStatus:  "New Inquiry",
		Country:     "Zambia",
		LeadSource:  c.cfg.LeadSource,
		Phone:       reg.Phone,
	}}}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	respBody, err := c.call(ctx, apiRequest{
		method: http.MethodPost,
		path:   "/crm/v3/Leads",
		body:   body,
	})
	if err != nil {
		return "", err
	}

	leadID, err := mutationRecordID(respBody)
	if err != nil {
		return "", fmt.Errorf("crm: lead create: %w", err)
	}
	return leadID, nil
}

// UploadContactAttachment uploads a binary attachment to a contact as a
// multipart form with the field name the CRM requires.
func (c *Client) UploadContactAttachment(ctx context.Context, contactID string, content []byte, filename string) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	header.Set("Content-Type", "image/jpeg")
	part, err := writer.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := part.Write(content); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	_, err = c.call(ctx, apiRequest{
		method:      http.MethodPost,
		path:        fmt.Sprintf("/crm/v3/Contacts/%s/Attachments", contactID),
		body:        buf.Bytes(),
		contentType: writer.FormDataContentType(),
	})
	return err
}

// ListProducts fetches the whole product catalog, paging until a short page.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	for page := 1; ; page++ {
		query := url.Values{}
		query.Set("fields", "Product_Name,Product_Code,Unit_Price")
		query.Set("page", strconv.Itoa(page))
		query.Set("per_page", strconv.Itoa(c.cfg.PageSize))

		body, err := c.call(ctx, apiRequest{
			method: http.MethodGet,
			path:   "/crm/v3/Products",
			query:  query,
		})
		if err != nil {
			return nil, err
		}
		if len(body) == 0 {
			break
		}

		var res productListResponse
		if err := json.Unmarshal(body, &res); err != nil {
			return nil, fmt.Errorf("crm: decode product list: %w", err)
		}
		for _, rec := range res.Data {
			products = append(products, Product{
				ID:        rec.ID,
				Name:      rec.Name,
				Code:      rec.Code,
				UnitPrice: rec.UnitPrice,
			})
		}
		if len(res.Data) < c.cfg.PageSize {
			break
		}
	}
	return products, nil
}

// ListDeals fetches all deals with their external source references, paging
// until a short page.
func (c *Client) ListDeals(ctx context.Context) ([]Deal, error) {
	var deals []Deal
	for page := 1; ; page++ {
		query := url.Values{}
		query.Set("fields", "id,Source_Ref")
		query.Set("page", strconv.Itoa(page))
		query.Set("per_page", strconv.Itoa(c.cfg.PageSize))

		body, err := c.call(ctx, apiRequest{
			method: http.MethodGet,
			path:   "/crm/v3/Deals",
			query:  query,
		})
		if err != nil {
			return nil, err
		}
		if len(body) == 0 {
			break
		}

		var res dealListResponse
		if err := json.Unmarshal(body, &res); err != nil {
			return nil, fmt.Errorf("crm: decode deal list: %w", err)
		}
		deals = append(deals, res.Data...)
		if len(res.Data) < c.cfg.PageSize {
			break
		}
	}
	return deals, nil
}

// DeleteDeal removes a deal. It reports false without error when the CRM
// had nothing to delete.
func (c *Client) DeleteDeal(ctx context.Context, dealID string) (bool, error) {
	body, err := c.call(ctx, apiRequest{
		method: http.MethodDelete,
		path:   fmt.Sprintf("/crm/v3/Deals/%s", dealID),
	})
	if err != nil {
		return false, err
	}
	if len(body) == 0 {
		return false, nil
	}

	var res mutationResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return false, fmt.Errorf("crm: decode deal delete: %w", err)
	}
	if len(res.Data) == 0 {
		return false, nil
	}
	return strings.EqualFold(res.Data[0].Status, "success"), nil
}

type apiRequest struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
}

// call runs one CRM request through the retry state machine. 429 and
// transport failures sleep the fixed delay and retry until the attempt
// budget runs out; a 401/403 refreshes the token and retries exactly once
// without consuming the budget; any other non-2xx surfaces immediately
// with the response body. A 204 returns an empty body and no error.
func (c *Client) call(ctx context.Context, req apiRequest) ([]byte, error) {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}
	contentType := req.contentType
	if contentType == "" && req.body != nil {
		contentType = "application/json"
	}

	refreshed := false
	for attempt := 1; ; attempt++ {
		token, err := c.currentToken(ctx)
		if err != nil {
			return nil, err
		}

		var bodyReader io.Reader
		if req.body != nil {
			bodyReader = bytes.NewReader(req.body)
		}
		httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, bodyReader)
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Authorization", authorizationScheme+" "+token)
		if contentType != "" {
			httpReq.Header.Set("Content-Type", contentType)
		}

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			if attempt >= c.cfg.MaxRetryAttempts {
				return nil, fmt.Errorf("%w: %d attempts, last transport error: %v", ErrRateLimitExhausted, attempt, err)
			}
			c.metrics.RecordCRMRetry("transport")
			c.logger.Warn("crm request failed, retrying",
				zap.String("path", req.path),
				zap.Int("attempt", attempt),
				zap.Error(err))
			if waitErr := sleepContext(ctx, c.cfg.RetryDelay()); waitErr != nil {
				return nil, waitErr
			}
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, readErr
		}

		switch {
		case resp.StatusCode == http.StatusNoContent:
			return nil, nil
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return respBody, nil
		case resp.StatusCode == http.StatusTooManyRequests:
			if attempt >= c.cfg.MaxRetryAttempts {
				return nil, fmt.Errorf("%w: %d attempts rate limited", ErrRateLimitExhausted, attempt)
			}
			c.metrics.RecordCRMRetry("rate_limited")
			c.logger.Warn("crm rate limited, backing off",
				zap.String("path", req.path),
				zap.Int("attempt", attempt),
				zap.Duration("delay", c.cfg.RetryDelay()))
			if waitErr := sleepContext(ctx, c.cfg.RetryDelay()); waitErr != nil {
				return nil, waitErr
			}
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			if refreshed {
				return nil, fmt.Errorf("%w: status=%d body=%s", ErrAuthFailed, resp.StatusCode, strings.TrimSpace(string(respBody)))
			}
			refreshed = true
			c.metrics.RecordCRMRetry("auth_refresh")
			if _, err := c.refreshToken(ctx, token); err != nil {
				return nil, err
			}
			// The auth retry does not consume the transient budget.
			attempt--
		default:
			return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
		}
	}
}

// currentToken returns the held token, falling back to the store and then
// to a blocking refresh. The mutex makes the refresh single-flight when
// the worker loop and the admin API overlap.
func (c *Client) currentToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}
	if c.tokens != nil {
		if stored, err := c.tokens.Get(ctx); err == nil && stored != "" {
			c.token = stored
			return stored, nil
		}
	}
	return c.refreshLocked(ctx)
}

// refreshToken drops the stale token and fetches a new one. When another
// caller already refreshed, the fresh token is returned without a second
// round trip.
func (c *Client) refreshToken(ctx context.Context, stale string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.token != stale {
		return c.token, nil
	}
	c.token = ""
	if c.tokens != nil {
		_ = c.tokens.Clear(ctx)
	}
	return c.refreshLocked(ctx)
}

func (c *Client) refreshLocked(ctx context.Context) (string, error) {
	query := url.Values{}
	query.Set("refresh_token", c.cfg.RefreshToken)
	query.Set("client_id", c.cfg.ClientID)
	query.Set("client_secret", c.cfg.ClientSecret)
	query.Set("grant_type", "refresh_token")
	endpoint := strings.TrimRight(c.cfg.AccountsURL, "/") + "/oauth/v2/token?" + query.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("crm: token refresh: %w", err)
	}
	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return "", readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("crm: token refresh failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("crm: decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("crm: token endpoint returned empty access token")
	}

	c.token = tok.AccessToken
	if c.tokens != nil {
		ttl := 55 * time.Minute
		if tok.ExpiresIn > 0 {
			// Shave a margin so a cached token never outlives the real one.
			ttl = time.Duration(tok.ExpiresIn)*time.Second - time.Minute
		}
		_ = c.tokens.Set(ctx, tok.AccessToken, ttl)
	}
	c.logger.Debug("crm access token refreshed")
	return c.token, nil
}

func buildLineItems(entries []domain.FertilizerEntry, products []Product) ([]leadLineItem, int) {
	items := make([]leadLineItem, 0, len(entries))
	amount := 0
	for _, entry := range entries {
		code := strings.TrimSpace(entry.Code)
		if len(code) < minFertilizerCodeLength {
			continue
		}
		for _, product := range products {
			if product.Code != code {
				continue
			}
			items = append(items, leadLineItem{Item: recordRef{ID: product.ID}, Qty: entry.Quantity})
			amount += int(product.UnitPrice) * entry.Quantity
			break
		}
	}
	return items, amount
}

func mutationRecordID(body []byte) (string, error) {
	var res mutationResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return "", err
	}
	if len(res.Data) == 0 || res.Data[0].Details.ID == "" {
		return "", errors.New("response carried no record id")
	}
	return res.Data[0].Details.ID, nil
}

func orPlaceholder(value string) string {
	if strings.TrimSpace(value) == "" {
		return "N/A"
	}
	return value
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
