package generation_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/caduceus/internal/generation"
	"github.com/JaimeStill/caduceus/internal/progress"
	"github.com/JaimeStill/caduceus/internal/protocol"
	"github.com/JaimeStill/caduceus/internal/provider"
	"github.com/JaimeStill/caduceus/internal/provider/providertest"
	"github.com/JaimeStill/caduceus/internal/sessions"
	"github.com/JaimeStill/caduceus/internal/stages"
	"github.com/JaimeStill/caduceus/pkg/routes"
)

type server struct {
	resp *responder
	hub  *progress.Hub
	srv  *httptest.Server
}

func newServer(t *testing.T) *server {
	t.Helper()

	reg := stages.Default()
	resp := newResponder(reg)

	hubCfg := progress.Config{}
	if err := hubCfg.Finalize(nil); err != nil {
		t.Fatal(err)
	}
	hub := progress.NewHub(&hubCfg, discard())

	var cfg generation.Config
	if err := cfg.Finalize(nil); err != nil {
		t.Fatal(err)
	}
	var pcfg provider.Config
	if err := pcfg.Finalize(nil); err != nil {
		t.Fatal(err)
	}

	sys := generation.New(&cfg, &generation.Runtime{
		Provider: providertest.Func(resp.reply),
		Registry: reg,
		Sessions: sessions.NewMemory(time.Hour, 0, discard()),
		Progress: hub,
		Params:   generation.ParamsFromProvider(&pcfg),
		Logger:   discard(),
	})

	mux := http.NewServeMux()
	routes.Register(mux, generation.NewHandler(sys, hub, discard(), 1<<20).Routes())

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &server{resp: resp, hub: hub, srv: srv}
}

func (s *server) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	res, err := http.Post(s.srv.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func TestHandlerGenerate(t *testing.T) {
	s := newServer(t)

	res := s.post(t, "/generations", generation.Request{Subject: subject(), SessionID: "http-1"})
	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		t.Fatalf("status: got %d: %s", res.StatusCode, body)
	}

	var doc protocol.Document
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		t.Fatal(err)
	}
	if doc.SessionID != "http-1" || len(doc.Fields) != 13 {
		t.Errorf("document: session %s with %d fields", doc.SessionID, len(doc.Fields))
	}

	inspect, err := http.Get(s.srv.URL + "/generations/http-1")
	if err != nil {
		t.Fatal(err)
	}
	defer inspect.Body.Close()

	var session protocol.Session
	if err := json.NewDecoder(inspect.Body).Decode(&session); err != nil {
		t.Fatal(err)
	}
	if len(session.Fields) != 13 {
		t.Errorf("session fields: got %d, want 13", len(session.Fields))
	}
}

func TestHandlerGenerateHTML(t *testing.T) {
	s := newServer(t)

	res := s.post(t, "/generations?format=html", generation.Request{Subject: subject()})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content-type: got %s", ct)
	}

	body, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(body), "<h1>Bradiarritmia</h1>") {
		t.Errorf("rendered page missing title:\n%s", body)
	}
}

func TestHandlerFailureAndResume(t *testing.T) {
	s := newServer(t)

	calls := 0
	s.resp.stage[2] = func() (string, error) {
		calls++
		if calls == 1 {
			return "not json", nil
		}
		return fieldsJSON("Rascunho", s.resp.reg.Stage(2).Fields...), nil
	}

	res := s.post(t, "/generations", generation.Request{Subject: subject(), SessionID: "http-2"})
	if res.StatusCode != http.StatusBadGateway {
		t.Fatalf("status: got %d, want 502", res.StatusCode)
	}

	var failure generation.FailureResponse
	if err := json.NewDecoder(res.Body).Decode(&failure); err != nil {
		t.Fatal(err)
	}
	if failure.SessionID != "http-2" || !failure.Resumable || failure.Phase != "stage_running" {
		t.Errorf("failure: %+v", failure)
	}
	if len(failure.FieldsSoFar) != 6 {
		t.Errorf("fields so far: got %v", failure.FieldsSoFar)
	}

	resumed := s.post(t, "/generations/http-2/resume", generation.ResumeRequest{Subject: subject()})
	if resumed.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resumed.Body)
		t.Fatalf("resume status: got %d: %s", resumed.StatusCode, body)
	}
}

func TestHandlerErrors(t *testing.T) {
	s := newServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"malformed body", "POST", "/generations", `{"subject":`, http.StatusBadRequest},
		{"unknown field", "POST", "/generations", `{"topic":"x"}`, http.StatusBadRequest},
		{"empty subject", "POST", "/generations", `{"subject":{"condition":""}}`, http.StatusBadRequest},
		{"invalid session id", "POST", "/generations", `{"subject":{"condition":"x"},"session_id":"../etc"}`, http.StatusBadRequest},
		{"unknown session", "GET", "/generations/missing", "", http.StatusNotFound},
		{"resume unknown session", "POST", "/generations/missing/resume", `{"subject":{"condition":"x"}}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, s.srv.URL+tt.path, strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			res, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			defer res.Body.Close()

			if res.StatusCode != tt.want {
				body, _ := io.ReadAll(res.Body)
				t.Errorf("status: got %d, want %d: %s", res.StatusCode, tt.want, body)
			}
		})
	}
}

func TestHandlerEvents(t *testing.T) {
	s := newServer(t)

	res, err := http.Get(s.srv.URL + "/generations/events/corr-1")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()

	if ct := res.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type: got %s", ct)
	}

	s.hub.EmitProgress("corr-2", "other", progress.Info{StageIndex: 0, TotalStages: 5, Stage: "ignored"})
	s.hub.EmitProgress("corr-1", "sess-1", progress.Info{StageIndex: 1, TotalStages: 5, Stage: "diagnosis", TotalFields: 13})
	s.hub.EmitComplete("corr-1", "sess-1", []string{"1", "2"})

	var events []string
	scanner := bufio.NewScanner(res.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if name, ok := strings.CutPrefix(line, "event: "); ok {
			events = append(events, name)
		}
		if data, ok := strings.CutPrefix(line, "data: "); ok && strings.Contains(data, "other") {
			t.Errorf("received event of another correlation: %s", data)
		}
	}

	if strings.Join(events, ",") != "progress,complete" {
		t.Errorf("events: got %v, want [progress complete]", events)
	}
}

func TestHandlerEventsUnavailable(t *testing.T) {
	mux := http.NewServeMux()
	routes.Register(mux, generation.NewHandler(nil, nil, discard(), 1<<20).Routes())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/generations/events/x", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rec.Code)
	}
}
