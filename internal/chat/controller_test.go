package chat

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharmasatrya/flightassist/internal/filter"
	"github.com/dharmasatrya/flightassist/internal/intent"
	"github.com/dharmasatrya/flightassist/internal/mock"
	"github.com/dharmasatrya/flightassist/internal/models"
	"github.com/dharmasatrya/flightassist/internal/search"
	"github.com/dharmasatrya/flightassist/internal/session"
)

type parseCall struct {
	message string
	history []models.Message
	current *models.TripInfo
}

type fakeParser struct {
	mu      sync.Mutex
	results []*intent.Result
	err     error
	calls   []parseCall
}

func (p *fakeParser) Parse(ctx context.Context, message string, history []models.Message, current *models.TripInfo) (*intent.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, parseCall{message: message, history: history, current: current.Clone()})
	if p.err != nil {
		return nil, p.err
	}
	r := p.results[0]
	if len(p.results) > 1 {
		p.results = p.results[1:]
	}
	return r, nil
}

type fakeSearcher struct {
	mu     sync.Mutex
	result *search.Result
	calls  int
}

func (s *fakeSearcher) Search(ctx context.Context, trip *models.TripInfo, maxRounds int, traceID string) *search.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.result
}

type fakeIngestor struct {
	result *mock.IngestResult
	envs   []*mock.Envelope
}

func (i *fakeIngestor) Submit(ctx context.Context, env *mock.Envelope) *mock.IngestResult {
	i.envs = append(i.envs, env)
	return i.result
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) statuses() []string {
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		if e.Type == EventProgress {
			out = append(out, e.Status)
		} else {
			out = append(out, string(e.Type))
		}
	}
	return out
}

func shanghaiHongKong(date string) *models.TripInfo {
	return &models.TripInfo{
		Departure:     &models.Airport{City: "上海", Code: "SHA"},
		Arrival:       &models.Airport{City: "香港", Code: "HKG"},
		DepartureDate: date,
		Passengers:    models.DefaultPassengers(),
	}
}

type fixture struct {
	store     *session.MemoryStore
	parser    *fakeParser
	searcher  *fakeSearcher
	ingestor  *fakeIngestor
	ctrl      *Controller
	generator *mock.Generator
}

func newFixture(results ...*intent.Result) *fixture {
	f := &fixture{
		store:    session.NewMemoryStore(0),
		parser:   &fakeParser{results: results},
		searcher: &fakeSearcher{result: &search.Result{Success: true}},
		ingestor: &fakeIngestor{result: &mock.IngestResult{Success: true}},
		generator: mock.NewGenerator(rand.New(rand.NewSource(7)), func() time.Time {
			return time.Date(2026, 2, 20, 9, 30, 0, 0, time.UTC)
		}),
	}
	f.ctrl = NewController(Config{}, f.store, f.parser, f.searcher, f.generator, f.ingestor, nil)
	return f
}

func TestTurnEmptySearchFallsBackToMock(t *testing.T) {
	f := newFixture(&intent.Result{
		Status:   intent.StatusComplete,
		TripInfo: shanghaiHongKong("2026-02-21"),
		Message:  "提取出行信息：明天上海至香港",
	})
	f.searcher.result = &search.Result{Success: true, RawResponse: []byte(`{"success":true,"finished":true}`)}

	rec := &recorder{}
	res, err := f.ctrl.Turn(context.Background(), models.ChatRequest{Message: "明天上海到香港"}, rec.emit)
	require.NoError(t, err)

	assert.Equal(t, []string{StatusUnderstanding, StatusUnderstandingDone, StatusSearching, StatusMocking, "final"}, rec.statuses())
	assert.Equal(t, "提取出行信息：明天上海至香港", rec.events[1].Message)

	assert.NotEmpty(t, res.SessionID)
	assert.Equal(t, ResponseResult, res.ResponseType)
	assert.True(t, res.IsMocked)
	require.Len(t, res.Flights, 1)
	offer := res.Flights[0]
	require.Len(t, offer.Segments, 1)
	assert.False(t, offer.IsTransfer)
	assert.Equal(t, "SHA", offer.Segments[0].Departure.Code)
	assert.Equal(t, "HKG", offer.Segments[0].Arrival.Code)
	assert.Equal(t, 1364.0, offer.Price.Total)

	require.NotNil(t, res.DebugInfo)
	assert.NotNil(t, res.DebugInfo.MockRequest)
	assert.JSONEq(t, `{"success":true,"finished":true}`, string(res.DebugInfo.SearchResponse))
	assert.Empty(t, res.DebugInfo.MockError)
	assert.Len(t, f.ingestor.envs, 1)

	last := rec.events[len(rec.events)-1]
	assert.Equal(t, EventFinal, last.Type)
	assert.Same(t, res, last.TurnResult)

	stored, err := f.store.Get(context.Background(), res.SessionID)
	require.NoError(t, err)
	require.Len(t, stored.History, 2)
	assert.Equal(t, models.RoleUser, stored.History[0].Role)
	assert.Equal(t, "明天上海到香港", stored.History[0].Content)
	assert.Equal(t, models.TravelTypeOneWay, stored.TripInfo.TravelType)
	assert.Empty(t, stored.PendingClarifyField)
}

func TestTurnUsesLiveOffers(t *testing.T) {
	f := newFixture(&intent.Result{Status: intent.StatusComplete, TripInfo: shanghaiHongKong("2026-02-21")})
	live := []models.FlightOffer{
		{ID: "a", Segments: []models.FlightSegment{{Sequence: 1, Airline: models.Airline{Code: "CX"}}}, Price: models.OfferPrice{Total: 900}},
		{ID: "b", Segments: []models.FlightSegment{{Sequence: 1, Airline: models.Airline{Code: "MU"}}}, Price: models.OfferPrice{Total: 800}},
	}
	f.searcher.result = &search.Result{Success: true, Flights: live}

	rec := &recorder{}
	res, err := f.ctrl.Turn(context.Background(), models.ChatRequest{Message: "明天上海到香港"}, rec.emit)
	require.NoError(t, err)

	assert.False(t, res.IsMocked)
	assert.Nil(t, res.DebugInfo)
	require.Len(t, res.Flights, 2)
	assert.Equal(t, "b", res.Flights[0].ID)
	assert.NotContains(t, rec.statuses(), StatusMocking)
	assert.Empty(t, f.ingestor.envs)
}

func TestTurnKeepsLiveOffersWhenPreferencesMatchNone(t *testing.T) {
	trip := shanghaiHongKong("2026-02-21")
	trip.AirlineCode = "CA"
	f := newFixture(&intent.Result{Status: intent.StatusComplete, TripInfo: trip})
	f.searcher.result = &search.Result{Success: true, Flights: []models.FlightOffer{
		{ID: "cx", Segments: []models.FlightSegment{{Sequence: 1, Airline: models.Airline{Code: "CX"}}}},
	}}

	res, err := f.ctrl.Turn(context.Background(), models.ChatRequest{Message: "国航"}, nil)
	require.NoError(t, err)

	assert.False(t, res.IsMocked)
	require.Len(t, res.Flights, 1)
	assert.Equal(t, "cx", res.Flights[0].ID)
	assert.Empty(t, f.ingestor.envs)
}

func TestTurnAppliesTripPreferencesToLiveOffers(t *testing.T) {
	direct := true
	trip := shanghaiHongKong("2026-02-21")
	trip.DirectOnly = &direct
	trip.DepartureTimeFrom = "10:00"
	f := newFixture(&intent.Result{Status: intent.StatusComplete, TripInfo: trip})
	f.ctrl.cfg.SortBy = filter.SortPrice
	f.ctrl.cfg.SortOrder = filter.OrderDesc

	leg := func(seq int, dep string) models.FlightSegment {
		return models.FlightSegment{Sequence: seq, Airline: models.Airline{Code: "MU"}, Departure: models.Location{Time: dep}}
	}
	f.searcher.result = &search.Result{Success: true, Flights: []models.FlightOffer{
		{ID: "early", Segments: []models.FlightSegment{leg(1, "2026-02-21 07:00:00")}, Price: models.OfferPrice{Total: 500}},
		{ID: "transfer", Segments: []models.FlightSegment{leg(1, "2026-02-21 11:00:00"), leg(2, "2026-02-21 15:00:00")}, Price: models.OfferPrice{Total: 600}},
		{ID: "noon", Segments: []models.FlightSegment{leg(1, "2026-02-21 12:00:00")}, Price: models.OfferPrice{Total: 900}},
		{ID: "evening", Segments: []models.FlightSegment{leg(1, "2026-02-21 19:00:00")}, Price: models.OfferPrice{Total: 1200}},
	}}

	res, err := f.ctrl.Turn(context.Background(), models.ChatRequest{Message: "十点后直飞"}, nil)
	require.NoError(t, err)

	assert.False(t, res.IsMocked)
	require.Len(t, res.Flights, 2)
	assert.Equal(t, "evening", res.Flights[0].ID)
	assert.Equal(t, "noon", res.Flights[1].ID)
}

func TestTurnSwitchToOneWayDropsReturnLeg(t *testing.T) {
	roundTrip := shanghaiHongKong("2026-03-01")
	roundTrip.TravelType = models.TravelTypeRoundTrip
	roundTrip.ReturnDate = "2026-03-05"
	oneWay := shanghaiHongKong("2026-03-01")
	oneWay.TravelType = models.TravelTypeOneWay

	f := newFixture(
		&intent.Result{Status: intent.StatusComplete, TripInfo: roundTrip},
		&intent.Result{Status: intent.StatusComplete, TripInfo: oneWay},
	)
	ctx := context.Background()

	first, err := f.ctrl.Turn(ctx, models.ChatRequest{Message: "3月1日上海到香港，3月5日回"}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.TravelTypeRoundTrip, first.TripInfo.TravelType)
	require.Len(t, first.Flights, 1)
	assert.Len(t, first.Flights[0].Segments, 2)

	second, err := f.ctrl.Turn(ctx, models.ChatRequest{SessionID: first.SessionID, Message: "改成单程"}, nil)
	require.NoError(t, err)

	assert.Equal(t, models.TravelTypeOneWay, second.TripInfo.TravelType)
	assert.Empty(t, second.TripInfo.ReturnDate)
	require.Len(t, second.Flights, 1)
	assert.Equal(t, models.TravelTypeOneWay, second.Flights[0].TravelType)
	assert.Len(t, second.Flights[0].Segments, 1)

	stored, err := f.store.Get(ctx, first.SessionID)
	require.NoError(t, err)
	assert.Empty(t, stored.TripInfo.ReturnDate)
}

func TestTurnCancelledWhileWaitingEmitsError(t *testing.T) {
	f := newFixture(&intent.Result{Status: intent.StatusNeedClarify, Message: "?"})

	unlock, err := f.ctrl.locks.Acquire(context.Background(), "busy")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	rec := &recorder{}
	_, err = f.ctrl.Turn(ctx, models.ChatRequest{SessionID: "busy", Message: "hi"}, rec.emit)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Equal(t, []string{"error"}, rec.statuses())
	assert.Empty(t, f.parser.calls)
}

func TestTurnSearchFailureRecordedInDebug(t *testing.T) {
	f := newFixture(&intent.Result{Status: intent.StatusComplete, TripInfo: shanghaiHongKong("2026-02-21")})
	f.searcher.result = &search.Result{Error: errors.New("HTTP 502")}
	f.ingestor.result = &mock.IngestResult{Error: errors.New("mock: HTTP 500")}

	res, err := f.ctrl.Turn(context.Background(), models.ChatRequest{Message: "明天上海到香港"}, nil)
	require.NoError(t, err)

	assert.True(t, res.IsMocked)
	assert.Equal(t, "HTTP 502", res.DebugInfo.SearchError)
	assert.Equal(t, "mock: HTTP 500", res.DebugInfo.MockError)
}

func TestTurnIngestDisabledIsSilent(t *testing.T) {
	f := newFixture(&intent.Result{Status: intent.StatusComplete, TripInfo: shanghaiHongKong("2026-02-21")})
	f.ingestor.result = &mock.IngestResult{Error: mock.ErrIngestDisabled}

	res, err := f.ctrl.Turn(context.Background(), models.ChatRequest{Message: "明天上海到香港"}, nil)
	require.NoError(t, err)
	assert.Empty(t, res.DebugInfo.MockError)
}

func TestTurnForcedMockSkipsSearch(t *testing.T) {
	trip := shanghaiHongKong("2026-02-21")
	trip.Arrival = &models.Airport{City: "新加坡", Code: "SIN"}
	trip.FlightNumber = "MU5001/MU5002"
	trip.TransferCities = []string{"BKK"}
	f := newFixture(&intent.Result{Status: intent.StatusComplete, TripInfo: trip})

	rec := &recorder{}
	res, err := f.ctrl.Turn(context.Background(), models.ChatRequest{Message: "MU5001/MU5002 经曼谷"}, rec.emit)
	require.NoError(t, err)

	assert.Equal(t, 0, f.searcher.calls)
	assert.Equal(t, []string{StatusUnderstanding, StatusUnderstandingDone, StatusMocking, "final"}, rec.statuses())
	assert.Equal(t, msgMockingForced, rec.events[2].Message)

	require.Len(t, res.Flights, 1)
	offer := res.Flights[0]
	assert.True(t, offer.IsTransfer)
	require.Len(t, offer.Segments, 2)
	assert.Equal(t, "MU5001", offer.Segments[0].FlightNumber)
	assert.Equal(t, "BKK", offer.Segments[0].Arrival.Code)
	assert.True(t, offer.Segments[1].IsTransfer)
	assert.Nil(t, res.DebugInfo.SearchResponse)
}

func TestTurnAdapterFailureLeavesSessionUntouched(t *testing.T) {
	f := newFixture()
	f.parser.err = errors.New("llm: timeout")

	rec := &recorder{}
	_, err := f.ctrl.Turn(context.Background(), models.ChatRequest{SessionID: "s-1", Message: "hi"}, rec.emit)
	assert.ErrorIs(t, err, ErrAdapter)

	assert.Equal(t, []string{StatusUnderstanding, "error"}, rec.statuses())
	assert.Contains(t, rec.events[1].Message, "llm: timeout")

	_, err = f.store.Get(context.Background(), "s-1")
	assert.ErrorIs(t, err, session.ErrNotFound)
	assert.Equal(t, 0, f.searcher.calls)
}

func TestTurnAdapterErrorStatus(t *testing.T) {
	f := newFixture(&intent.Result{Status: intent.StatusError, Message: "无法解析响应"})

	existing := session.New("s-2", time.Now())
	existing.TripInfo = shanghaiHongKong("")
	require.NoError(t, f.store.Put(context.Background(), existing))

	_, err := f.ctrl.Turn(context.Background(), models.ChatRequest{SessionID: "s-2", Message: "?"}, nil)
	assert.ErrorIs(t, err, ErrAdapter)

	stored, err := f.store.Get(context.Background(), "s-2")
	require.NoError(t, err)
	assert.Empty(t, stored.History)
	assert.Empty(t, stored.TripInfo.DepartureDate)
}

func TestClarificationRoundTrip(t *testing.T) {
	f := newFixture(
		&intent.Result{
			Status:   intent.StatusNeedClarify,
			TripInfo: shanghaiHongKong(""),
			Clarify: &models.Clarification{
				Field:    "dep_date",
				Question: "请问您想哪天出发？",
				Options:  []models.ClarifyOption{{Label: "明天", Value: "2026-02-21"}},
			},
			Message: "好的，上海到香港。请问您想哪天出发？",
		},
		&intent.Result{Status: intent.StatusComplete, Message: "提取出行信息：明天上海至香港"},
	)

	rec := &recorder{}
	first, err := f.ctrl.Turn(context.Background(), models.ChatRequest{Message: "上海到香港"}, rec.emit)
	require.NoError(t, err)
	assert.Equal(t, ResponseClarify, first.ResponseType)
	assert.Equal(t, "dep_date", first.Clarify.Field)
	assert.Empty(t, first.Flights)
	assert.Equal(t, 0, f.searcher.calls)
	assert.Equal(t, []string{StatusUnderstanding, StatusUnderstandingDone, "final"}, rec.statuses())

	stored, err := f.store.Get(context.Background(), first.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "dep_date", stored.PendingClarifyField)

	second, err := f.ctrl.Turn(context.Background(), models.ChatRequest{
		SessionID:      first.SessionID,
		SelectedOption: "2026-02-21",
	}, nil)
	require.NoError(t, err)

	require.Len(t, f.parser.calls, 2)
	call := f.parser.calls[1]
	assert.Equal(t, "2026-02-21", call.message)
	assert.Equal(t, "2026-02-21", call.current.DepartureDate)
	assert.Len(t, call.history, 2)

	assert.Equal(t, ResponseResult, second.ResponseType)
	assert.Equal(t, "2026-02-21", second.TripInfo.DepartureDate)
	assert.Equal(t, 1, f.searcher.calls)

	stored, err = f.store.Get(context.Background(), first.SessionID)
	require.NoError(t, err)
	assert.Empty(t, stored.PendingClarifyField)
	assert.Len(t, stored.History, 4)
}

func TestRoundTripWithoutReturnDateNeverSearches(t *testing.T) {
	trip := shanghaiHongKong("2026-02-21")
	trip.TravelType = models.TravelTypeRoundTrip
	f := newFixture(&intent.Result{Status: intent.StatusComplete, TripInfo: trip, Message: "往返"})

	res, err := f.ctrl.Turn(context.Background(), models.ChatRequest{Message: "上海香港往返"}, nil)
	require.NoError(t, err)

	assert.Equal(t, ResponseClarify, res.ResponseType)
	require.NotNil(t, res.Clarify)
	assert.Equal(t, "return_date", res.Clarify.Field)
	assert.Equal(t, 0, f.searcher.calls)
	assert.False(t, res.IsMocked)
}

func TestContextWindowIsBounded(t *testing.T) {
	f := newFixture(&intent.Result{Status: intent.StatusNeedClarify, Message: "?"})
	ctx := context.Background()

	var id string
	for i := 0; i < 5; i++ {
		res, err := f.ctrl.Turn(ctx, models.ChatRequest{SessionID: id, Message: "hi"}, nil)
		require.NoError(t, err)
		id = res.SessionID
	}

	assert.Len(t, f.parser.calls[4].history, DefaultContextMessages)
}

func TestTurnsOnOneSessionAreSerialized(t *testing.T) {
	f := newFixture(&intent.Result{Status: intent.StatusNeedClarify, Message: "?"})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ctrl.Turn(ctx, models.ChatRequest{SessionID: "shared", Message: "hi"}, nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := f.store.Get(ctx, "shared")
	require.NoError(t, err)
	assert.Len(t, stored.History, 20)
}
