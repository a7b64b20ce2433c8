package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	omnichat "github.com/Protocol-Lattice/omnichat"
	"github.com/Protocol-Lattice/omnichat/src/apierr"
	"github.com/Protocol-Lattice/omnichat/src/models"
	"github.com/Protocol-Lattice/omnichat/src/speech"
	"github.com/Protocol-Lattice/omnichat/src/voice"
)

type failingInvoker struct{ err error }

func (f failingInvoker) Invoke(context.Context, string, []models.File) (string, error) {
	return "", f.err
}

type countingSpeaker struct{ calls atomic.Int32 }

func (c *countingSpeaker) Speak(context.Context, string) speech.Outcome {
	c.calls.Add(1)
	return speech.OutcomeLocal
}

type staticTranscriber struct{ text string }

func (s staticTranscriber) Transcribe(context.Context, speech.Audio) string { return s.text }

type fixture struct {
	orch    *omnichat.Orchestrator
	server  *Server
	speaker *countingSpeaker
}

func newFixture(t *testing.T, withVoice bool) *fixture {
	t.Helper()
	reg := models.NewRegistry()
	_ = reg.Register(models.Dummy, models.NewDummyLLM(""))
	_ = reg.Register(models.OpenAI, failingInvoker{err: &apierr.StatusError{StatusCode: http.StatusTooManyRequests}})

	promReg := prometheus.NewRegistry()
	metrics := omnichat.NewMetrics(promReg)
	sp := &countingSpeaker{}
	opts := omnichat.Options{Invokers: reg, Provider: models.Dummy, Speaker: sp, Metrics: metrics}
	if withVoice {
		opts.Recorder = voice.NewRecorder(&voice.MockDevice{}, staticTranscriber{text: "turn on the lights"}, voice.Config{
			Silence:       100 * time.Millisecond,
			ChunkInterval: 10 * time.Millisecond,
			FrameInterval: 5 * time.Millisecond,
		}, nil)
	}
	orch, err := omnichat.New(opts)
	if err != nil {
		t.Fatal(err)
	}
	srv, err := New(Options{
		Orchestrator: orch,
		Metrics:      metrics,
		Gatherer:     promReg,
		Mode:         gin.TestMode,
		AutoReply:    true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		srv.Close()
		orch.Close()
	})
	return &fixture{orch: orch, server: srv, speaker: sp}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestNewRequiresOrchestrator(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestHealthAndRequestID(t *testing.T) {
	f := newFixture(t, false)

	w := f.do(t, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Header().Get(RequestIDHeader) == "" {
		t.Fatal("request id not assigned")
	}
	h := decode[healthResponse](t, w)
	if h.Status != "ok" || h.Provider != "dummy" || h.Busy {
		t.Fatalf("health = %+v", h)
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Fatalf("request id = %q", got)
	}
}

func TestSendMessage(t *testing.T) {
	f := newFixture(t, false)

	cases := []struct {
		name    string
		body    any
		status  int
		content string
	}{
		{"plain", messageRequest{Prompt: "hello"}, http.StatusOK, "Dummy response: hello"},
		{"attachment", messageRequest{Prompt: "summarize", Files: []fileRequest{{
			Name: "a.txt", MIME: "text/plain", Data: base64.StdEncoding.EncodeToString([]byte("abc")),
		}}}, http.StatusOK, "Dummy response: summarize (1 attachments)"},
		{"empty", messageRequest{}, http.StatusBadRequest, ""},
		{"bad base64", messageRequest{Prompt: "x", Files: []fileRequest{{Name: "a", Data: "%%%"}}}, http.StatusBadRequest, ""},
		{"bad json", "{", http.StatusBadRequest, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/v1/messages", tc.body)
			if w.Code != tc.status {
				t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
			}
			if tc.status != http.StatusOK {
				if e := decode[errorBody](t, w); e.Error.Kind != "invalid_request" {
					t.Fatalf("error = %+v", e)
				}
				return
			}
			msg := decode[omnichat.Message](t, w)
			if msg.Content != tc.content || msg.Role != omnichat.RoleAssistant || msg.Kind != omnichat.KindText {
				t.Fatalf("message = %+v", msg)
			}
		})
	}
}

func TestSendMessageProviderFailureIsAMessage(t *testing.T) {
	f := newFixture(t, false)
	if w := f.do(t, http.MethodPut, "/v1/provider", providerRequest{Provider: "openai"}); w.Code != http.StatusOK {
		t.Fatalf("switch status = %d", w.Code)
	}
	w := f.do(t, http.MethodPost, "/v1/messages", messageRequest{Prompt: "hi", Speak: true})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	msg := decode[omnichat.Message](t, w)
	if msg.ErrorKind != apierr.KindRateLimited || !strings.HasPrefix(msg.Content, "Rate limit exceeded") {
		t.Fatalf("message = %+v", msg)
	}
	f.orch.Close()
	if f.speaker.calls.Load() != 0 {
		t.Fatal("failed replies must not be spoken")
	}
}

func TestSendMessageSpeaksReply(t *testing.T) {
	f := newFixture(t, false)
	if w := f.do(t, http.MethodPost, "/v1/messages", messageRequest{Prompt: "hi", Speak: true}); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	f.orch.Close()
	if f.speaker.calls.Load() != 1 {
		t.Fatalf("speaker calls = %d", f.speaker.calls.Load())
	}
}

func TestChangeProviders(t *testing.T) {
	f := newFixture(t, false)

	if w := f.do(t, http.MethodPut, "/v1/provider", providerRequest{Provider: "claude"}); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown provider status = %d", w.Code)
	}
	if w := f.do(t, http.MethodPut, "/v1/provider", map[string]string{}); w.Code != http.StatusBadRequest {
		t.Fatalf("missing provider status = %d", w.Code)
	}
	if f.orch.Provider() != models.Dummy {
		t.Fatalf("provider = %s", f.orch.Provider())
	}
	if w := f.do(t, http.MethodPut, "/v1/image-provider", providerRequest{Provider: "gemini"}); w.Code != http.StatusNotImplemented {
		t.Fatalf("image provider status = %d", w.Code)
	}
}

func TestSpeech(t *testing.T) {
	f := newFixture(t, false)
	if w := f.do(t, http.MethodPost, "/v1/speech", speechRequest{}); w.Code != http.StatusBadRequest {
		t.Fatalf("empty status = %d", w.Code)
	}
	if w := f.do(t, http.MethodPost, "/v1/speech", speechRequest{Text: "hello"}); w.Code != http.StatusAccepted {
		t.Fatalf("status = %d", w.Code)
	}
	f.orch.Close()
	if f.speaker.calls.Load() != 1 {
		t.Fatalf("speaker calls = %d", f.speaker.calls.Load())
	}
}

func TestVoiceDisabled(t *testing.T) {
	f := newFixture(t, false)
	w := f.do(t, http.MethodPost, "/v1/voice/start", nil)
	if w.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d", w.Code)
	}
	if w := f.do(t, http.MethodPost, "/v1/voice/stop", nil); w.Code != http.StatusNotFound {
		t.Fatalf("stop status = %d", w.Code)
	}
}

func TestVoiceStartStop(t *testing.T) {
	f := newFixture(t, true)

	w := f.do(t, http.MethodPost, "/v1/voice/start", nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("start status = %d body=%s", w.Code, w.Body.String())
	}
	started := decode[sessionResponse](t, w)
	if started.ID == "" || started.State != "recording" {
		t.Fatalf("session = %+v", started)
	}
	if w := f.do(t, http.MethodPost, "/v1/voice/start", nil); w.Code != http.StatusConflict {
		t.Fatalf("second start status = %d", w.Code)
	}

	w = f.do(t, http.MethodPost, "/v1/voice/stop", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stop status = %d", w.Code)
	}
	stopped := decode[sessionResponse](t, w)
	if stopped.ID != started.ID || stopped.State == "recording" {
		t.Fatalf("stopped = %+v", stopped)
	}
}

func TestVoiceEventsOverWebsocket(t *testing.T) {
	f := newFixture(t, true)
	ts := httptest.NewServer(f.server.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/v1/voice/events", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for f.server.Hub().Clients() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("listener never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp, err := http.Post(ts.URL+"/v1/voice/start", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("start status = %d", resp.StatusCode)
	}

	seen := map[EventType]Event{}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read: %v (seen %v)", err, seen)
		}
		seen[ev.Type] = ev
		if ev.Type == EventStopped {
			break
		}
	}

	if ev := seen[EventTranscript]; ev.Text != "turn on the lights" {
		t.Fatalf("transcript = %+v", ev)
	}
	reply := seen[EventReply]
	if reply.Message == nil || reply.Message.Content != "Dummy response: turn on the lights" {
		t.Fatalf("reply = %+v", reply)
	}
	if seen[EventStopped].Reason != string(voice.ReasonSilence) {
		t.Fatalf("stopped = %+v", seen[EventStopped])
	}
	if _, ok := seen[EventRecording]; !ok {
		t.Fatal("missing recording event")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, false)
	f.do(t, http.MethodGet, "/healthz", nil)
	w := f.do(t, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `omnichat_http_requests_total{method="GET",path="/healthz",status="200"} 1`) {
		t.Fatalf("metrics missing http counter:\n%s", w.Body.String())
	}
}

func TestHubBroadcastWithoutClients(t *testing.T) {
	h := NewHub(nil)
	h.Broadcast(Event{Type: EventTranscript, Text: "x"})
	h.Close()
	h.Close()
	if h.Clients() != 0 {
		t.Fatal("expected no clients")
	}
}
