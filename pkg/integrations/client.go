package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yair/encore/pkg/domain"
	"github.com/yair/encore/pkg/logging"
	"github.com/yair/encore/pkg/metrics"
)

const defaultTimeout = 10 * time.Second

// ClientOptions are shared by every connector.
type ClientOptions struct {
	HTTPClient *http.Client
	Metrics    *metrics.Metrics
	Logger     *zap.Logger
}

type restClient struct {
	connector  string
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

func newRestClient(connector, baseURL string, opts ClientOptions) restClient {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return restClient{
		connector:  connector,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		metrics:    opts.Metrics,
		logger:     logging.OrNop(opts.Logger).With(zap.String("connector", connector)),
	}
}

// getJSON issues a GET for baseURL+path and decodes the body into out.
// Non-2xx responses are returned as *domain.UpstreamError. A successful call
// that decodes to nothing is counted with the "empty" outcome.
func (c *restClient) getJSON(ctx context.Context, operation, path string, query url.Values, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		outcome := metrics.OutcomeOK
		if err == nil && emptyResult(out) {
			outcome = metrics.OutcomeEmpty
		}
		if err != nil {
			outcome = metrics.OutcomeError
			c.logger.Debug("upstream call failed",
				zap.String("operation", operation),
				zap.String("path", path),
				zap.Error(err))
		}
		c.metrics.ObserveUpstream(c.connector, operation, outcome, time.Since(start))
	}()

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s request failed: %w", domain.ErrExternalAPIFailure, c.connector, operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.UpstreamError{Connector: c.connector, Operation: operation, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode %s %s response: %w", domain.ErrExternalAPIFailure, c.connector, operation, err)
	}
	return nil
}

// emptyResponse is implemented by decoded bodies that can carry no result.
type emptyResponse interface {
	empty() bool
}

// emptyResult reports whether a decoded body holds no data: either it says
// so itself or it is an empty JSON array.
func emptyResult(out interface{}) bool {
	if e, ok := out.(emptyResponse); ok {
		return e.empty()
	}
	rv := reflect.ValueOf(out)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	return rv.Kind() == reflect.Slice && rv.Len() == 0
}

// flexFloat accepts 12.5, "12.5" and "" (zero).
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid number %q: %w", data, err)
	}
	*f = flexFloat(v)
	return nil
}

// flexString accepts both JSON strings and numbers.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	*s = flexString(data)
	return nil
}
