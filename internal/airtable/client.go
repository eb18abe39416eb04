// Package airtable fetches event records from the remote tabular data source.
//
// Records are addressed by display-name field keys. Every field is optional per
// record and decodes to its zero value or nil when absent; only structural
// problems (missing keys, type mismatches, malformed payloads) fail a fetch.
package airtable

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rewired-gh/venuescout/internal/logger"
	"github.com/rewired-gh/venuescout/internal/models"
)

var tracer = otel.Tracer("github.com/rewired-gh/venuescout/internal/airtable")

// Client provides access to one table of the remote source
type Client struct {
	apiBaseURL string
	baseID     string
	tableName  string
	token      string
	httpClient *http.Client
}

// recordFields mirrors the table schema. Field names are the source's display names.
type recordFields struct {
	EventID       *int     `json:"Event ID"`
	Place         []string `json:"Place"`
	PlaceName     []string `json:"Place Name"`
	Day           *string  `json:"Day"`
	StartTime     *string  `json:"Start Time"`
	EndTime       *string  `json:"End Time"`
	IsActive      *string  `json:"Is Active"`
	Description   *string  `json:"Description"`
	PlaceID       []string `json:"Google Place ID"`
	Neighborhoods []string `json:"Neighborhood"`
}

// Record is a raw row as returned by the source
type Record struct {
	ID          *string       `json:"id"`
	CreatedTime *time.Time    `json:"createdTime"`
	Fields      *recordFields `json:"fields"`
}

type listResponse struct {
	Records *[]Record `json:"records"`
	Offset  string    `json:"offset"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewClient creates a new table client
func NewClient(apiBaseURL, baseID, tableName, token string, timeout time.Duration) *Client {
	return &Client{
		apiBaseURL: strings.TrimRight(apiBaseURL, "/"),
		baseID:     baseID,
		tableName:  tableName,
		token:      token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch retrieves the first page of event records. Transport failures and
// non-2xx responses yield a KindNetwork FetchError, payload problems a KindDecode
// one. An empty record set is not an error. Fetch makes a single attempt.
func (c *Client) Fetch(ctx context.Context) ([]models.EventRecord, error) {
	ctx, span := tracer.Start(ctx, "airtable.Fetch", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	records, err := c.fetch(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("airtable.records", len(records)))
	return records, nil
}

func (c *Client) fetch(ctx context.Context) ([]models.EventRecord, error) {
	u := fmt.Sprintf("%s/v0/%s/%s", c.apiBaseURL, url.PathEscape(c.baseID), url.PathEscape(c.tableName))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, networkError("creating request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-Request-Id", uuid.NewString())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, networkError("request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, networkError("reading response", err)
	}

	if resp.StatusCode/100 != 2 {
		var ae apiError
		if json.Unmarshal(body, &ae) == nil && ae.Error.Message != "" {
			return nil, networkError(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, ae.Error.Message), nil)
		}
		return nil, networkError(fmt.Sprintf("HTTP %d", resp.StatusCode), nil)
	}

	var lr listResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return nil, decodeError("malformed payload", err)
	}
	if lr.Records == nil {
		return nil, decodeError("missing key \"records\"", nil)
	}
	if lr.Offset != "" {
		logger.Debug("airtable: more pages available (offset %s), using first page only", lr.Offset)
	}

	events, err := DecodeRecords(*lr.Records)
	if err != nil {
		return nil, err
	}

	logger.Debug("airtable: fetched %d records in %v", len(events), time.Since(start))
	return events, nil
}

// DecodeRecords converts raw rows into event records. A row without an id or
// with an id already seen fails the whole batch.
func DecodeRecords(rows []Record) ([]models.EventRecord, error) {
	events := make([]models.EventRecord, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))

	for i, row := range rows {
		if row.ID == nil || *row.ID == "" {
			return nil, decodeError(fmt.Sprintf("record %d: missing key \"id\"", i), nil)
		}
		if _, dup := seen[*row.ID]; dup {
			return nil, decodeError(fmt.Sprintf("record %d: duplicate id %s", i, *row.ID), nil)
		}
		seen[*row.ID] = struct{}{}

		event := models.EventRecord{ID: *row.ID}
		if row.CreatedTime != nil {
			event.CreatedAt = *row.CreatedTime
		}

		if f := row.Fields; f != nil {
			if f.EventID != nil {
				event.ExternalEventID = *f.EventID
			}
			event.PlaceRefs = f.Place
			event.PlaceNames = f.PlaceName
			event.Day = deref(f.Day)
			event.StartTime = deref(f.StartTime)
			event.EndTime = deref(f.EndTime)
			event.IsActive = models.IsActiveValue(deref(f.IsActive))
			event.Description = f.Description
			event.PlaceIdentifiers = nonEmpty(f.PlaceID)
			event.Neighborhoods = f.Neighborhoods
		}
		if err := event.Validate(); err != nil {
			return nil, decodeError(fmt.Sprintf("record %d", i), err)
		}

		events = append(events, event)
	}

	return events, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// nonEmpty drops blank identifiers left behind by empty lookup cells.
func nonEmpty(ids []string) []string {
	var out []string
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
