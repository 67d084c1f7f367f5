// Package search drives the long-polling flight search backend.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dharmasatrya/flightassist/internal/models"
	"github.com/dharmasatrya/flightassist/internal/ratelimit"
	"github.com/dharmasatrya/flightassist/pkg/logger"
)

const (
	DefaultMaxRounds   = 20
	DefaultWait        = 500 * time.Millisecond
	DefaultHTTPTimeout = 90 * time.Second
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// ContextSleep is the production SleepFunc.
func ContextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type Config struct {
	URL         string
	Token       string
	Timeout     time.Duration
	MaxRounds   int
	DefaultWait time.Duration
}

// Result is always returned, never an error: transport and decode failures
// land in Error with Success false.
type Result struct {
	Success     bool
	Flights     []models.FlightOffer
	RawResponse json.RawMessage
	Error       error
}

type Orchestrator struct {
	client  *http.Client
	cfg     Config
	limiter *ratelimit.BackendLimiter
	log     *logger.Logger
	sleep   SleepFunc
	now     func() time.Time
}

type Option func(*Orchestrator)

func WithSleep(fn SleepFunc) Option {
	return func(o *Orchestrator) { o.sleep = fn }
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *Orchestrator) { o.client = c }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func NewOrchestrator(cfg Config, limiter *ratelimit.BackendLimiter, log *logger.Logger, opts ...Option) *Orchestrator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultHTTPTimeout
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = DefaultMaxRounds
	}
	if cfg.DefaultWait <= 0 {
		cfg.DefaultWait = DefaultWait
	}
	if log == nil {
		log = logger.Discard()
	}

	o := &Orchestrator{
		client:  &http.Client{Timeout: cfg.Timeout},
		cfg:     cfg,
		limiter: limiter,
		log:     log,
		sleep:   ContextSleep,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Search polls until the backend reports finished, fails, or maxRounds is
// spent. Every round reuses traceID (generated once when empty). Running out
// of rounds is a success carrying whatever the last round returned.
func (o *Orchestrator) Search(ctx context.Context, trip *models.TripInfo, maxRounds int, traceID string) *Result {
	if maxRounds <= 0 {
		maxRounds = o.cfg.MaxRounds
	}
	if traceID == "" {
		traceID = models.NewTraceID(models.TracePrefixSearch, o.now())
	}

	body, err := json.Marshal(BuildRequest(trip, traceID))
	if err != nil {
		return o.fail(err, nil)
	}

	log := o.log.With("trace_id", traceID)
	start := o.now()

	var last *Response
	var lastRaw json.RawMessage
	for round := 1; round <= maxRounds; round++ {
		resp, raw, err := o.poll(ctx, body)
		if err != nil {
			return o.fail(err, lastRaw)
		}
		last, lastRaw = resp, raw

		log.Debug("search round",
			"round", round,
			"success", resp.Success,
			"finished", resp.Finished,
			"sleep_ms", int(resp.SleepTime),
			"result_count", int(resp.ResultCount))

		if !resp.Success {
			if resp.SleepTime > 0 && !resp.Finished {
				if err := o.wait(ctx, round, maxRounds, time.Duration(resp.SleepTime)*time.Millisecond); err != nil {
					return o.fail(err, lastRaw)
				}
				continue
			}
			msg := resp.Message
			if msg == "" {
				msg = "search failed"
			}
			return o.fail(errors.New(msg), raw)
		}

		if resp.Finished {
			flights := Transform(resp)
			log.Info("search finished", "rounds", round, "flights", len(flights), "elapsed", o.now().Sub(start))
			return &Result{Success: true, Flights: flights, RawResponse: raw}
		}

		wait := time.Duration(resp.SleepTime) * time.Millisecond
		if wait <= 0 {
			wait = o.cfg.DefaultWait
		}
		if err := o.wait(ctx, round, maxRounds, wait); err != nil {
			return o.fail(err, lastRaw)
		}
	}

	log.Warn("search rounds exhausted", "rounds", maxRounds)
	return &Result{Success: true, Flights: Transform(last), RawResponse: lastRaw}
}

// wait skips the pause after the final round since no request follows it.
func (o *Orchestrator) wait(ctx context.Context, round, maxRounds int, d time.Duration) error {
	if round >= maxRounds {
		return nil
	}
	return o.sleep(ctx, d)
}

func (o *Orchestrator) poll(ctx context.Context, body []byte) (*Response, json.RawMessage, error) {
	if err := o.limiter.Wait(ctx, ratelimit.BackendSearch); err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if o.cfg.Token != "" {
		req.Header.Set("Labrador-Token", o.cfg.Token)
		req.Header.Set("Labrador-Trace-Log", "true")
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	return decodeResponse(data)
}

func (o *Orchestrator) fail(err error, raw json.RawMessage) *Result {
	return &Result{
		Flights:     []models.FlightOffer{},
		RawResponse: raw,
		Error:       models.NewBackendError(ratelimit.BackendSearch, err),
	}
}
