package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pos-gateway/internal/resilience"
)

type stubProvider struct {
	reply string
	err   error
	got   []Message
}

func (s *stubProvider) Reply(_ context.Context, messages []Message) (string, error) {
	s.got = messages
	return s.reply, s.err
}

func post(t *testing.T, h *Handler, payload string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	h.Respond(rec, req)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestChatUsesPrimary(t *testing.T) {
	primary := &stubProvider{reply: "We have 14 in stock."}
	h := &Handler{Primary: primary, Fallback: KeywordProvider{}, Logger: zerolog.Nop()}

	rec, body := post(t, h, `{"message":"how much ayran is left?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	data := body["data"].(map[string]any)
	assert.Equal(t, "We have 14 in stock.", data["reply"])
	assert.Equal(t, "model", data["backend"])
	require.NotEmpty(t, primary.got)
	assert.Equal(t, "user", primary.got[len(primary.got)-1].Role)
}

func TestChatFallsBackOnModelError(t *testing.T) {
	primary := &stubProvider{err: errors.New("rate limited")}
	h := &Handler{Primary: primary, Fallback: KeywordProvider{}, Logger: zerolog.Nop()}

	rec, body := post(t, h, `{"message":"how do I check stock levels?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	data := body["data"].(map[string]any)
	assert.Equal(t, "fallback", data["backend"])
	assert.Contains(t, data["reply"], "stock")
}

func TestChatFallbackWithoutModel(t *testing.T) {
	h := &Handler{Fallback: KeywordProvider{}, Logger: zerolog.Nop()}

	rec, body := post(t, h, `{"message":"what about discounts?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fallback", body["data"].(map[string]any)["backend"])
}

func TestChatRequiresMessage(t *testing.T) {
	h := &Handler{Fallback: KeywordProvider{}, Logger: zerolog.Nop()}
	rec, body := post(t, h, `{"message":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BAD_REQUEST", body["error"].(map[string]any)["code"])
}

func TestKeywordProviderMatchesLatestUserTurn(t *testing.T) {
	reply, err := KeywordProvider{}.Reply(context.Background(), []Message{
		{Role: "user", Content: "tell me about suppliers"},
		{Role: "assistant", Content: "…"},
		{Role: "user", Content: "and what about VAT?"},
	})
	require.NoError(t, err)
	assert.Contains(t, reply, "VAT")
}

func TestOpenAIProviderRequest(t *testing.T) {
	var auth string
	var req completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" hello there \n"}}]}`))
	}))
	defer srv.Close()

	p := &OpenAIProvider{
		BaseURL: srv.URL,
		APIKey:  "sk-test",
		Model:   "gpt-4o-mini",
		HTTP:    resilience.HTTPClient{Client: srv.Client(), MaxAttempts: 1, Timeout: 2 * time.Second},
	}
	reply, err := p.Reply(context.Background(), []Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)

	assert.Equal(t, "hello there", reply)
	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, "gpt-4o-mini", req.Model)
	require.NotEmpty(t, req.Messages)
	assert.Equal(t, "system", req.Messages[0].Role)
}
