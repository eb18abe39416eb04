package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rewired-gh/venuescout/internal/models"
)

// detailsFieldMask is the field set requested for every place.
const detailsFieldMask = "id,displayName,location,rating,types,formattedAddress,photos"

var tracer = otel.Tracer("github.com/rewired-gh/venuescout/internal/places")

// Google wraps the Google Places API (New).
type Google struct {
	apiBaseURL string
	apiKey     string
	httpClient *http.Client
}

// NewGoogle creates a Places API client.
func NewGoogle(apiBaseURL, apiKey string, timeout time.Duration) *Google {
	if apiBaseURL == "" {
		apiBaseURL = "https://places.googleapis.com"
	}
	return &Google{
		apiBaseURL: strings.TrimRight(apiBaseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type placeResponse struct {
	ID          string `json:"id"`
	DisplayName *struct {
		Text string `json:"text"`
	} `json:"displayName"`
	Location *struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
	Rating           *float64 `json:"rating"`
	Types            []string `json:"types"`
	FormattedAddress *string  `json:"formattedAddress"`
	Photos           []struct {
		Name string `json:"name"`
	} `json:"photos"`
}

type photoResponse struct {
	Name     string `json:"name"`
	PhotoURI string `json:"photoUri"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// LookupPlace fetches details for one place identifier.
func (g *Google) LookupPlace(ctx context.Context, placeID string) (*models.ResolvedPlace, error) {
	ctx, span := tracer.Start(ctx, "places.LookupPlace", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("place.id", placeID))

	place, err := g.lookupPlace(ctx, placeID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return place, nil
}

func (g *Google) lookupPlace(ctx context.Context, placeID string) (*models.ResolvedPlace, error) {
	u := fmt.Sprintf("%s/v1/places/%s", g.apiBaseURL, url.PathEscape(placeID))

	var pr placeResponse
	if err := g.getJSON(ctx, u, map[string]string{"X-Goog-FieldMask": detailsFieldMask}, &pr); err != nil {
		return nil, err
	}

	if pr.Location == nil {
		return nil, fmt.Errorf("place %s has no location", placeID)
	}

	place := &models.ResolvedPlace{
		Identifier:       placeID,
		Coordinate:       models.Coordinate{Latitude: pr.Location.Latitude, Longitude: pr.Location.Longitude},
		Rating:           pr.Rating,
		CategoryTags:     pr.Types,
		FormattedAddress: pr.FormattedAddress,
	}
	if pr.DisplayName != nil {
		place.DisplayName = pr.DisplayName.Text
	}
	if len(pr.Photos) > 0 && pr.Photos[0].Name != "" {
		ref := pr.Photos[0].Name
		place.PhotoReference = &ref
	}

	if err := place.Validate(); err != nil {
		return nil, fmt.Errorf("invalid place %s: %w", placeID, err)
	}
	return place, nil
}

// PhotoURI resolves a photo reference ("places/<id>/photos/<ref>") to a URL.
func (g *Google) PhotoURI(ctx context.Context, photoRef string, maxHeightPx int) (string, error) {
	ctx, span := tracer.Start(ctx, "places.PhotoURI", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	q := url.Values{}
	q.Set("maxHeightPx", fmt.Sprintf("%d", maxHeightPx))
	q.Set("skipHttpRedirect", "true")
	u := fmt.Sprintf("%s/v1/%s/media?%s", g.apiBaseURL, strings.TrimLeft(photoRef, "/"), q.Encode())

	var pr photoResponse
	if err := g.getJSON(ctx, u, nil, &pr); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	if pr.PhotoURI == "" {
		return "", errors.New("photo response has no photoUri")
	}
	return pr.PhotoURI, nil
}

// getJSON performs a GET and decodes a 200 response into out. 404 and 429
// responses map to ErrNotFound and ErrRateLimited.
func (g *Google) getJSON(ctx context.Context, u string, headers map[string]string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Goog-Api-Key", g.apiKey)
	req.Header.Set("X-Request-Id", uuid.NewString())
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("places request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var er errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&er)
		switch {
		case resp.StatusCode == http.StatusNotFound || er.Error.Status == "NOT_FOUND":
			return fmt.Errorf("%w: %s", ErrNotFound, er.Error.Message)
		case resp.StatusCode == http.StatusTooManyRequests || er.Error.Status == "RESOURCE_EXHAUSTED":
			return fmt.Errorf("%w: %s", ErrRateLimited, er.Error.Message)
		}
		if er.Error.Message != "" {
			return fmt.Errorf("places API returned HTTP %d: %s", resp.StatusCode, er.Error.Message)
		}
		return fmt.Errorf("places API returned HTTP %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
