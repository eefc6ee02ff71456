// Package recordapi is the HTTP client of the hosted record platform. It
// implements record.Client so the application can run against the platform
// instead of the local database.
package recordapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/hubcrm/backend/internal/domain/record"
	"github.com/hubcrm/backend/internal/domain/shared"
	"github.com/hubcrm/backend/internal/infrastructure/logger"
)

const maxResponseBytes = 10 << 20

// Config holds the platform connection settings
type Config struct {
	BaseURL   string
	ProjectID string
	PublicKey string
	Timeout   time.Duration
}

// Validate checks that the client can address the platform
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("recordapi: base URL is required")
	}
	if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
		return fmt.Errorf("recordapi: invalid base URL: %w", err)
	}
	if c.ProjectID == "" {
		return errors.New("recordapi: project id is required")
	}
	return nil
}

// Client talks to the record platform over HTTP
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a platform client
func New(cfg Config, log *zap.Logger, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	c := &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     log.Named("recordapi"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

var _ record.Client = (*Client)(nil)

// FetchRecords lists records of table
func (c *Client) FetchRecords(ctx context.Context, table string, params record.FetchParams) ([]record.Record, error) {
	params = params.Normalize()
	body := fetchRequest{
		Fields:     fieldSpecs(params.Fields),
		OrderBy:    params.OrderBy,
		PagingInfo: &params.PagingInfo,
	}

	resp, err := c.do(ctx, http.MethodPost, tablePath(table, "fetch"), body)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return []record.Record{}, nil
	}

	var recs []record.Record
	if err := decode(resp.Data, &recs); err != nil {
		return nil, shared.ErrUpstream.WithMessage("malformed fetch response").Wrap(err)
	}
	if recs == nil {
		recs = []record.Record{}
	}
	return recs, nil
}

// GetRecordByID returns one record or shared.ErrNotFound
func (c *Client) GetRecordByID(ctx context.Context, table string, id int64, fields []string) (record.Record, error) {
	body := fetchRequest{Fields: fieldSpecs(fields)}
	resp, err := c.do(ctx, http.MethodPost, tablePath(table, "get", strconv.FormatInt(id, 10)), body)
	if err != nil {
		return nil, err
	}

	rec, err := decodeRecord(resp.Data)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, shared.ErrNotFound.WithMessage(fmt.Sprintf("%s record %d not found", table, id))
	}
	return rec, nil
}

// CreateRecord creates rec; empty values are not sent
func (c *Client) CreateRecord(ctx context.Context, table string, rec record.Record) (record.Record, error) {
	resp, err := c.do(ctx, http.MethodPost, tablePath(table), writeRequest{
		Records: []record.Record{record.StripEmpty(rec)},
	})
	if err != nil {
		return nil, err
	}
	return firstResult(resp, "create")
}

// UpdateRecord sends the provided fields of record id
func (c *Client) UpdateRecord(ctx context.Context, table string, id int64, rec record.Record) (record.Record, error) {
	payload := record.StripEmpty(rec)
	payload[record.FieldID] = id

	resp, err := c.do(ctx, http.MethodPut, tablePath(table), writeRequest{
		Records: []record.Record{payload},
	})
	if err != nil {
		return nil, err
	}
	return firstResult(resp, "update")
}

// DeleteRecord deletes record id
func (c *Client) DeleteRecord(ctx context.Context, table string, id int64) error {
	resp, err := c.do(ctx, http.MethodDelete, tablePath(table), deleteRequest{RecordIDs: []int64{id}})
	if err != nil {
		return err
	}
	for _, r := range resp.Results {
		if !r.Success {
			return resultError(r, "delete")
		}
	}
	return nil
}

func tablePath(table string, parts ...string) string {
	segs := append([]string{"records", url.PathEscape(table)}, parts...)
	return "/" + strings.Join(segs, "/")
}

// do sends one request and decodes the envelope. Transport failures and
// unsuccessful envelopes map to shared.ErrUpstream, 404 to shared.ErrNotFound.
func (c *Client) do(ctx context.Context, method, path string, body any) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("recordapi: failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("recordapi: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Project-Id", c.config.ProjectID)
	if c.config.PublicKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.PublicKey)
	}
	if requestID := logger.GetRequestID(ctx); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, shared.ErrUpstream.WithMessage("record API unavailable").Wrap(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, shared.ErrUpstream.WithMessage("failed to read record API response").Wrap(err)
	}

	logger.L(ctx).Debug("record API call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	var env Response
	decodeErr := decode(raw, &env)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, shared.ErrNotFound.WithMessage(messageOr(env.Message, "record not found"))
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, shared.ErrUpstream.WithMessage(messageOr(env.Message, fmt.Sprintf("record API returned HTTP %d", resp.StatusCode)))
	case decodeErr != nil:
		return nil, shared.ErrUpstream.WithMessage("malformed record API response").Wrap(decodeErr)
	case !env.Success:
		return nil, shared.ErrUpstream.WithMessage(messageOr(env.Message, "record API request failed"))
	}
	return &env, nil
}

func firstResult(resp *Response, op string) (record.Record, error) {
	if len(resp.Results) == 0 {
		return nil, shared.ErrUpstream.WithMessage(fmt.Sprintf("failed to %s record", op))
	}
	for _, r := range resp.Results {
		if !r.Success {
			return nil, resultError(r, op)
		}
	}
	rec, err := decodeRecord(resp.Results[0].Data)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = record.Record{}
	}
	return rec, nil
}

// resultError reports a rejected record. Field errors come back as
// validation failures, one per field; otherwise the result message is
// reported as invalid input.
func resultError(r Result, op string) error {
	if len(r.Errors) > 0 {
		errs := make(shared.ValidationErrors, 0, len(r.Errors))
		for _, fe := range r.Errors {
			errs.Add(messageOr(fe.FieldLabel, "record"), messageOr(fe.Message, "is invalid"))
		}
		return errs
	}
	return shared.ErrInvalidInput.WithMessage(messageOr(r.Message, fmt.Sprintf("failed to %s record", op)))
}

func messageOr(msg, fallback string) string {
	if strings.TrimSpace(msg) == "" {
		return fallback
	}
	return msg
}

func decode(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

func decodeRecord(raw json.RawMessage) (record.Record, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var rec record.Record
	if err := decode(raw, &rec); err != nil {
		return nil, shared.ErrUpstream.WithMessage("malformed record in response").Wrap(err)
	}
	return rec, nil
}
