package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharmasatrya/flightassist/internal/models"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		ok   bool
	}{
		{"plain", `{"status":"complete","message":"ok"}`, true},
		{"fenced", "好的\n```json\n{\"status\":\"complete\",\"message\":\"ok\"}\n```\n", true},
		{"fenced without tag", "```\n{\"status\":\"complete\",\"message\":\"ok\"}\n```", true},
		{"embedded", `here you go: {"status":"complete","message":"ok"} hope it helps`, true},
		{"prose", "抱歉，我无法理解", false},
		{"broken", `{"status": "complete",`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r reply
			err := extractJSON(tt.raw, &r)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrUnparseable)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "complete", r.Status)
			assert.Equal(t, "ok", r.Message)
		})
	}
}

func TestReplyToResult(t *testing.T) {
	raw := `{
		"status": "needs_clarification",
		"trip_info": {
			"travel_type": "rt",
			"departure_city": "上海",
			"departure_code": "pvg",
			"arrival_city": "香港",
			"arrival_code": null,
			"dep_date": "2026-02-15",
			"return_date": null,
			"passengers": [{"type": "ADT", "count": 2}, {"type": "CHD", "count": 1}],
			"cabin_class": "y",
			"flight_no": null,
			"transfer_cities": null,
			"direct_only": true,
			"dep_time_from": " 06:00 ",
			"dep_time_to": null
		},
		"clarify": {"field": "return_date", "question": "请问哪天返回？"},
		"message": "请问哪天返回？"
	}`

	var r reply
	require.NoError(t, extractJSON(raw, &r))
	res := r.toResult()

	assert.Equal(t, StatusNeedClarify, res.Status)
	require.NotNil(t, res.TripInfo)
	assert.Equal(t, models.TravelTypeRoundTrip, res.TripInfo.TravelType)
	assert.Equal(t, &models.Airport{City: "上海", Code: "PVG"}, res.TripInfo.Departure)
	assert.Equal(t, &models.Airport{City: "香港"}, res.TripInfo.Arrival)
	assert.Equal(t, "Y", res.TripInfo.CabinClass)
	assert.Empty(t, res.TripInfo.ReturnDate)
	assert.Len(t, res.TripInfo.Passengers, 2)
	require.NotNil(t, res.TripInfo.DirectOnly)
	assert.True(t, *res.TripInfo.DirectOnly)
	assert.Equal(t, "06:00", res.TripInfo.DepartureTimeFrom)
	assert.Empty(t, res.TripInfo.DepartureTimeTo)
	require.NotNil(t, res.Clarify)
	assert.Equal(t, "return_date", res.Clarify.Field)
	assert.NotNil(t, res.Clarify.Options)
}

func TestReplyStatuses(t *testing.T) {
	for raw, want := range map[string]Status{
		"complete":     StatusComplete,
		"need_clarify": StatusNeedClarify,
		"error":        StatusError,
		"":             StatusError,
		"whatever":     StatusError,
	} {
		r := reply{Status: raw}
		assert.Equal(t, want, r.toResult().Status, raw)
	}
}

func TestEmptyTripFieldsBecomeNil(t *testing.T) {
	r := reply{Status: "need_clarify", TripInfo: &tripFields{}}
	assert.Nil(t, r.toResult().TripInfo)
	assert.Nil(t, fromTripInfo(nil))
	assert.Nil(t, fromTripInfo(&models.TripInfo{}))
}

func TestDefaultPromptSpec(t *testing.T) {
	spec, err := LoadPromptSpec("")
	require.NoError(t, err)

	assert.Equal(t, 6, spec.Style.History)
	assert.Equal(t, 2000, spec.Style.MaxTokens)
	assert.Equal(t, 60*time.Second, spec.Style.Timeout)
	assert.NotEmpty(t, spec.Cities)
	assert.NotEmpty(t, spec.Airlines)

	now := time.Date(2026, 2, 20, 9, 0, 0, 0, time.UTC)
	system, err := spec.SystemPrompt(now)
	require.NoError(t, err)
	assert.Contains(t, system, "今天是 2026-02-20（星期五）")
	assert.Contains(t, system, "2026-02-21")
	assert.Contains(t, system, "- 上海: SHA(不限机场/虹桥)/PVG(浦东国际机场)")
	assert.Contains(t, system, "- 9C: 春秋航空")

	content, err := spec.UserContent("明天", `{"arrival_code":"HKG"}`)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(content, "明天\n\n"))
	assert.Contains(t, content, `{"arrival_code":"HKG"}`)

	content, err = spec.UserContent("明天", "")
	require.NoError(t, err)
	assert.Equal(t, "明天", content)
}

func TestParsePromptSpecRejectsEmptySystem(t *testing.T) {
	_, err := ParsePromptSpec([]byte("style:\n  temperature: 0.2\n"))
	assert.Error(t, err)

	_, err = LoadPromptSpec("/nonexistent/intent.yaml")
	assert.Error(t, err)
}

// fakeCompletions serves /chat/completions and records the last request.
func fakeCompletions(t *testing.T, content string, last *openai.ChatCompletionRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !assert.Equal(t, "/v1/chat/completions", r.URL.Path) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if last != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(last))
		}
		w.Header().Set("Content-Type", "application/json")
		resp := openai.ChatCompletionResponse{
			ID:      "chatcmpl-1",
			Object:  "chat.completion",
			Created: 1,
			Model:   "test-model",
			Choices: []openai.ChatCompletionChoice{{
				Index:        0,
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
				FinishReason: openai.FinishReasonStop,
			}},
		}
		assert.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func newTestParser(t *testing.T, url string) *OpenAIParser {
	t.Helper()
	spec, err := LoadPromptSpec("")
	require.NoError(t, err)
	p := NewOpenAIParser(OpenAIConfig{APIKey: "test", BaseURL: url + "/v1", Model: "test-model"}, spec, nil, nil)
	p.now = func() time.Time { return time.Date(2026, 2, 20, 9, 0, 0, 0, time.UTC) }
	return p
}

func TestOpenAIParserParse(t *testing.T) {
	content := "```json\n" + `{
		"status": "complete",
		"trip_info": {"departure_city": "上海", "departure_code": "SHA", "arrival_city": "香港", "arrival_code": "HKG", "dep_date": "2026-02-21"},
		"clarify": null,
		"message": "提取出行信息：明天上海至香港"
	}` + "\n```"

	var got openai.ChatCompletionRequest
	srv := fakeCompletions(t, content, &got)
	defer srv.Close()

	history := make([]models.Message, 0, 10)
	for i := 0; i < 10; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		history = append(history, models.Message{Role: role, Content: fmt.Sprintf("m%d", i)})
	}
	current := &models.TripInfo{Arrival: &models.Airport{City: "香港", Code: "HKG"}}

	res, err := newTestParser(t, srv.URL).Parse(context.Background(), "明天上海出发", history, current)
	require.NoError(t, err)

	assert.Equal(t, StatusComplete, res.Status)
	assert.Equal(t, "SHA", res.TripInfo.Departure.Code)
	assert.Equal(t, "2026-02-21", res.TripInfo.DepartureDate)
	assert.Nil(t, res.Clarify)
	assert.Equal(t, "提取出行信息：明天上海至香港", res.Message)

	assert.Equal(t, "test-model", got.Model)
	require.Len(t, got.Messages, 8)
	assert.Equal(t, openai.ChatMessageRoleSystem, got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "2026-02-20")
	assert.Equal(t, "m4", got.Messages[1].Content)
	assert.Equal(t, "m9", got.Messages[6].Content)

	final := got.Messages[7]
	assert.Equal(t, openai.ChatMessageRoleUser, final.Role)
	assert.True(t, strings.HasPrefix(final.Content, "明天上海出发"))
	assert.Contains(t, final.Content, `"arrival_code":"HKG"`)
}

func TestOpenAIParserUnparseable(t *testing.T) {
	srv := fakeCompletions(t, "我不太明白您的意思", nil)
	defer srv.Close()

	_, err := newTestParser(t, srv.URL).Parse(context.Background(), "hi", nil, nil)
	assert.ErrorIs(t, err, ErrUnparseable)
}

func TestOpenAIParserBackendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestParser(t, srv.URL).Parse(context.Background(), "hi", nil, nil)
	require.Error(t, err)

	var backendErr *models.BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, "llm", backendErr.Backend)
}
