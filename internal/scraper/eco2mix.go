package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata" // Europe/Paris must resolve on hosts without a zoneinfo database

	"github.com/sirupsen/logrus"

	"github.com/jgoulah/eco2mix/pkg/models"
)

const (
	// DefaultBaseURL is the ODRE open data portal.
	DefaultBaseURL = "https://odre.opendatasoft.com"
	// DefaultTimeout bounds a single API request.
	DefaultTimeout = 10 * time.Second

	recordsPath = "/api/explore/v2.1/catalog/datasets/eco2mix-national-tr/records"
	pageSize    = 100
)

// ErrNoValidData means the API answered but no record carries a consumption reading yet.
var ErrNoValidData = errors.New("no valid data in API response")

// TimeoutError represents a request that exceeded the client timeout
type TimeoutError struct {
	URL     string
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request to %s timed out after %s", e.URL, e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// UpstreamError represents a non-2xx status or an unusable response body
type UpstreamError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upstream error: %s", e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

type recordsResponse struct {
	TotalCount int                `json:"total_count"`
	Results    []models.RawRecord `json:"results"`
}

// Eco2mixScraper fetches real-time national records from the ODRE API
type Eco2mixScraper struct {
	baseURL  string
	timeout  time.Duration
	client   *http.Client
	location *time.Location
	now      func() time.Time
	logger   logrus.FieldLogger
}

// Option configures an Eco2mixScraper
type Option func(*Eco2mixScraper)

// WithBaseURL points the scraper at another API host (tests, mirrors)
func WithBaseURL(baseURL string) Option {
	return func(s *Eco2mixScraper) {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithTimeout overrides the per-request timeout
func WithTimeout(timeout time.Duration) Option {
	return func(s *Eco2mixScraper) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithClock overrides the clock used to pick "today"
func WithClock(now func() time.Time) Option {
	return func(s *Eco2mixScraper) {
		s.now = now
	}
}

// NewEco2mixScraper creates a new scraper for the national real-time dataset
func NewEco2mixScraper(logger logrus.FieldLogger, opts ...Option) (*Eco2mixScraper, error) {
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		return nil, fmt.Errorf("loading Europe/Paris location: %w", err)
	}

	s := &Eco2mixScraper{
		baseURL:  DefaultBaseURL,
		timeout:  DefaultTimeout,
		location: paris,
		now:      time.Now,
		logger:   logger.WithField("component", "scraper"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.client = &http.Client{Timeout: s.timeout}

	return s, nil
}

// RequestURL builds the records query for the current day in Paris
func (s *Eco2mixScraper) RequestURL() string {
	day := s.now().In(s.location).Format("2006/01/02")

	params := url.Values{}
	params.Set("limit", fmt.Sprintf("%d", pageSize))
	params.Set("refine", "date_heure:"+day)
	params.Set("order_by", "date_heure desc")

	return fmt.Sprintf("%s%s?%s", s.baseURL, recordsPath, params.Encode())
}

// FetchLatest returns the most recent record of the day that has a consumption reading
func (s *Eco2mixScraper) FetchLatest(ctx context.Context) (*models.RawRecord, error) {
	reqURL := s.RequestURL()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	s.logger.WithField("url", reqURL).Debug("Requesting eco2mix records")

	resp, err := s.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, &TimeoutError{URL: reqURL, Timeout: s.timeout, Err: err}
		}
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}

	var payload recordsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		if isTimeout(err) {
			return nil, &TimeoutError{URL: reqURL, Timeout: s.timeout, Err: err}
		}
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Message: "decoding response body", Err: err}
	}

	return latestValid(payload.Results)
}

// latestValid scans newest-first records for the first one with a consumption reading
func latestValid(records []models.RawRecord) (*models.RawRecord, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("empty result list: %w", ErrNoValidData)
	}

	for i := range records {
		if records[i].Consumption == nil {
			continue
		}
		rec := records[i]
		if rec.Timestamp == "" {
			return nil, &UpstreamError{Message: "record with consumption has no date_heure"}
		}
		return &rec, nil
	}

	return nil, fmt.Errorf("%d records without consumption: %w", len(records), ErrNoValidData)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
