package mock

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dharmasatrya/flightassist/internal/models"
	"github.com/dharmasatrya/flightassist/internal/ratelimit"
)

const (
	ingestWikiURL     = "/callBack/entity"
	ingestVersion     = "1.0.0"
	ingestServiceName = "callBack"

	defaultIngestTimeout = 30 * time.Second
)

var ErrIngestDisabled = errors.New("mock ingestion url not configured")

type ingestRequest struct {
	RequestBody string `json:"requestBody"`
	WikiURL     string `json:"wikiUrl"`
	Version     string `json:"version"`
	ServiceName string `json:"serviceName"`
}

type ingestResponse struct {
	Result  bool   `json:"result"`
	Message string `json:"message"`
	Obj     struct {
		Success bool `json:"success"`
	} `json:"obj"`
}

// IngestResult is best effort: callers display the envelope either way.
type IngestResult struct {
	Success bool
	Error   error
}

type Ingestor struct {
	client  *http.Client
	url     string
	limiter *ratelimit.BackendLimiter
}

// NewIngestor posts envelopes to url. An empty url disables submission.
func NewIngestor(url string, timeout time.Duration, limiter *ratelimit.BackendLimiter) *Ingestor {
	if timeout <= 0 {
		timeout = defaultIngestTimeout
	}
	return &Ingestor{
		client:  &http.Client{Timeout: timeout},
		url:     url,
		limiter: limiter,
	}
}

// Submit wraps env the way the ingestion service expects and posts it. A
// response with result=true counts as accepted even when the service reports
// that the mock itself failed, since the data has been delivered.
func (i *Ingestor) Submit(ctx context.Context, env *Envelope) *IngestResult {
	if i == nil || i.url == "" {
		return &IngestResult{Error: ErrIngestDisabled}
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return i.fail(err)
	}
	body, err := json.Marshal(ingestRequest{
		RequestBody: string(payload),
		WikiURL:     ingestWikiURL,
		Version:     ingestVersion,
		ServiceName: ingestServiceName,
	})
	if err != nil {
		return i.fail(err)
	}

	if err := i.limiter.Wait(ctx, ratelimit.BackendMock); err != nil {
		return i.fail(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.url, bytes.NewReader(body))
	if err != nil {
		return i.fail(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		return i.fail(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return i.fail(fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	var out ingestResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return i.fail(err)
	}
	if !out.Result {
		msg := out.Message
		if msg == "" {
			msg = "mock ingestion rejected"
		}
		return i.fail(errors.New(msg))
	}
	return &IngestResult{Success: true}
}

func (i *Ingestor) fail(err error) *IngestResult {
	return &IngestResult{Error: models.NewBackendError(ratelimit.BackendMock, err)}
}
