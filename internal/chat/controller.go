// Package chat sequences one conversational turn: intent extraction, trip
// info merge, live search and synthetic fallback.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dharmasatrya/flightassist/internal/filter"
	"github.com/dharmasatrya/flightassist/internal/intent"
	"github.com/dharmasatrya/flightassist/internal/mock"
	"github.com/dharmasatrya/flightassist/internal/models"
	"github.com/dharmasatrya/flightassist/internal/search"
	"github.com/dharmasatrya/flightassist/internal/session"
	"github.com/dharmasatrya/flightassist/internal/tripinfo"
	"github.com/dharmasatrya/flightassist/pkg/logger"
)

// ErrAdapter marks a turn aborted because intent extraction failed.
var ErrAdapter = errors.New("intent extraction failed")

const (
	DefaultContextMessages = 6

	msgUnderstanding     = "正在解析您的航班需求..."
	msgUnderstandingDone = "需求理解完成"
	msgSearching         = "正在检索实时航线信息..."
	msgMockingFallback   = "未找到匹配航线，正在为您安排 Mock 数据..."
	msgMockingForced     = "正在为您生成符合条件的 Mock 数据..."
	msgParseFailed       = "解析失败"
)

type Searcher interface {
	Search(ctx context.Context, trip *models.TripInfo, maxRounds int, traceID string) *search.Result
}

type Generator interface {
	Generate(p mock.Params) *mock.Envelope
}

type Ingestor interface {
	Submit(ctx context.Context, env *mock.Envelope) *mock.IngestResult
}

// EmitFunc receives progress, final and error events in order.
type EmitFunc func(Event)

type Config struct {
	HistoryLimit    int
	ContextMessages int
	MaxRounds       int
	SortBy          string
	SortOrder       string
}

type Controller struct {
	cfg       Config
	store     session.Store
	locks     *session.Locks
	parser    intent.Parser
	searcher  Searcher
	generator Generator
	ingestor  Ingestor
	log       *logger.Logger
	now       func() time.Time
}

func NewController(cfg Config, store session.Store, parser intent.Parser, searcher Searcher, generator Generator, ingestor Ingestor, log *logger.Logger) *Controller {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = session.DefaultHistoryLimit
	}
	if cfg.ContextMessages <= 0 {
		cfg.ContextMessages = DefaultContextMessages
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = search.DefaultMaxRounds
	}
	if cfg.SortBy == "" {
		cfg.SortBy = filter.SortBestValue
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Controller{
		cfg:       cfg,
		store:     store,
		locks:     session.NewLocks(),
		parser:    parser,
		searcher:  searcher,
		generator: generator,
		ingestor:  ingestor,
		log:       log,
		now:       time.Now,
	}
}

// Turn runs one user turn. Turns on the same session are serialized. An
// adapter failure emits an error event, leaves the session untouched and
// returns an error wrapping ErrAdapter.
func (c *Controller) Turn(ctx context.Context, req models.ChatRequest, emit EmitFunc) (*TurnResult, error) {
	if emit == nil {
		emit = func(Event) {}
	}

	id := strings.TrimSpace(req.SessionID)
	if id == "" {
		id = uuid.NewString()
	}
	log := c.log.WithSession(id)

	unlock, err := c.locks.Acquire(ctx, id)
	if err != nil {
		emit(failure(err.Error()))
		return nil, fmt.Errorf("acquire session: %w", err)
	}
	defer unlock()

	sess, err := c.store.Get(ctx, id)
	if errors.Is(err, session.ErrNotFound) {
		sess = session.New(id, c.now())
	} else if err != nil {
		emit(failure(err.Error()))
		return nil, fmt.Errorf("load session: %w", err)
	}

	working := sess.TripInfo.Clone()
	if req.SelectedOption != "" && sess.PendingClarifyField != "" {
		working = tripinfo.ApplyClarification(working, sess.PendingClarifyField, req.SelectedOption)
	}

	message := req.Message
	if strings.TrimSpace(message) == "" {
		message = req.SelectedOption
	}

	emit(progress(StatusUnderstanding, msgUnderstanding))

	parsed, err := c.parser.Parse(ctx, message, sess.Recent(c.cfg.ContextMessages), working)
	if err == nil && parsed.Status == intent.StatusError {
		err = errors.New(parsed.Message)
	}
	if err != nil {
		log.WithError(err).Warn("intent extraction failed")
		emit(failure(msgParseFailed + ": " + err.Error()))
		return nil, fmt.Errorf("%w: %v", ErrAdapter, err)
	}

	done := parsed.Message
	if done == "" {
		done = msgUnderstandingDone
	}
	emit(progress(StatusUnderstandingDone, done))

	trip := tripinfo.Normalize(tripinfo.Merge(working, parsed.TripInfo))
	sess.Append(c.cfg.HistoryLimit,
		models.Message{Role: models.RoleUser, Content: message},
		models.Message{Role: models.RoleAssistant, Content: parsed.Message},
	)

	res := &TurnResult{
		SessionID:    id,
		ResponseType: ResponseResult,
		Message:      parsed.Message,
		TripInfo:     trip,
		Flights:      []models.FlightOffer{},
	}

	switch {
	case parsed.Status == intent.StatusNeedClarify:
		res.ResponseType = ResponseClarify
		res.Clarify = parsed.Clarify
		if res.Clarify == nil {
			res.Clarify = tripinfo.MissingField(trip)
		}
	case !tripinfo.IsComplete(trip):
		res.ResponseType = ResponseClarify
		res.Clarify = tripinfo.MissingField(trip)
		if res.Message == "" {
			res.Message = res.Clarify.Question
		}
	default:
		c.fetchFlights(ctx, log, trip, res, emit)
	}

	sess.TripInfo = trip
	sess.PendingClarifyField = ""
	if res.Clarify != nil {
		sess.PendingClarifyField = res.Clarify.Field
	}
	if err := c.store.Put(ctx, sess); err != nil {
		emit(failure(err.Error()))
		return nil, fmt.Errorf("save session: %w", err)
	}

	log.Info("turn completed",
		"response_type", res.ResponseType,
		"flights", len(res.Flights),
		"is_mocked", res.IsMocked,
	)
	emit(final(res))
	return res, nil
}

// fetchFlights fills res with live offers, or synthetic ones when live search
// is skipped, fails or comes back empty.
func (c *Controller) fetchFlights(ctx context.Context, log *logger.Logger, trip *models.TripInfo, res *TurnResult, emit EmitFunc) {
	forceMock := trip.FlightNumber != "" || len(trip.TransferCities) > 0

	debug := &DebugInfo{}
	if !forceMock {
		emit(progress(StatusSearching, msgSearching))

		sr := c.searcher.Search(ctx, trip, c.cfg.MaxRounds, "")
		debug.SearchResponse = sr.RawResponse
		if sr.Error != nil {
			debug.SearchError = sr.Error.Error()
			log.WithError(sr.Error).Warn("live search failed, falling back to mock")
		}
		if sr.Success && len(sr.Flights) > 0 {
			res.Flights = c.rank(log, trip, sr.Flights)
			return
		}
	}

	msg := msgMockingFallback
	if forceMock {
		msg = msgMockingForced
	}
	emit(progress(StatusMocking, msg))

	env := c.generator.Generate(mock.ParamsFromTrip(trip))
	debug.MockRequest = env

	if c.ingestor != nil {
		ir := c.ingestor.Submit(ctx, env)
		switch {
		case ir.Success:
		case errors.Is(ir.Error, mock.ErrIngestDisabled):
		case ir.Error != nil:
			debug.MockError = ir.Error.Error()
			log.WithError(ir.Error).Warn("mock ingestion failed")
		}
	}

	res.Flights = mock.ExtractOffers(env, trip.EffectiveTravelType(), trip.EffectivePassengers())
	res.IsMocked = true
	res.DebugInfo = debug
}

// rank orders live offers, keeping only those that match the traveller's
// preferences. When none match, every offer is shown.
func (c *Controller) rank(log *logger.Logger, trip *models.TripInfo, offers []models.FlightOffer) []models.FlightOffer {
	criteria := filter.FromTrip(trip)
	if criteria != nil {
		if matched := filter.Apply(offers, criteria, c.cfg.SortBy, c.cfg.SortOrder); len(matched) > 0 {
			return matched
		}
		log.Info("no live offers match trip preferences, showing all", "offers", len(offers))
	}
	return filter.Apply(offers, nil, c.cfg.SortBy, c.cfg.SortOrder)
}

// Session returns the stored session or session.ErrNotFound.
func (c *Controller) Session(ctx context.Context, id string) (*session.Session, error) {
	return c.store.Get(ctx, id)
}

// NewSession creates and stores an empty session.
func (c *Controller) NewSession(ctx context.Context) (*session.Session, error) {
	return c.store.Create(ctx)
}
