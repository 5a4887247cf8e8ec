package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bookwise/bookwise/internal/agent"
	"github.com/bookwise/bookwise/internal/briefing"
	"github.com/bookwise/bookwise/internal/config"
	"github.com/bookwise/bookwise/internal/dataset"
	"github.com/bookwise/bookwise/internal/media"
	"github.com/bookwise/bookwise/internal/storage"
	"github.com/bookwise/bookwise/internal/ticket"
)

type fakeExecutor struct {
	result   dataset.Result
	err      error
	requests []dataset.Request
}

func (f *fakeExecutor) Execute(_ context.Context, request dataset.Request) (dataset.Result, error) {
	f.requests = append(f.requests, request)
	return f.result, f.err
}

type fakeReporter struct {
	overview dataset.Overview
	err      error
}

func (f *fakeReporter) Overview(context.Context) (dataset.Overview, error) {
	return f.overview, f.err
}

type fakeSink struct {
	receipt ticket.Receipt
	err     error
	titles  []string
}

func (f *fakeSink) Create(_ context.Context, title, _ string) (ticket.Receipt, error) {
	f.titles = append(f.titles, title)
	return f.receipt, f.err
}

type fakeAgent struct {
	reply    agent.Reply
	err      error
	messages []string
}

func (f *fakeAgent) Chat(_ context.Context, message string) (agent.Reply, error) {
	f.messages = append(f.messages, message)
	return f.reply, f.err
}

type fakeBriefing struct {
	result briefing.Briefing
	err    error
}

func (f *fakeBriefing) ForLocation(context.Context, string) (briefing.Briefing, error) {
	return f.result, f.err
}

type fakeMedia struct {
	result    media.Result
	err       error
	filenames []string
	archived  map[string][]byte
}

func (f *fakeMedia) VoiceToImage(_ context.Context, _ io.Reader, filename string) (media.Result, error) {
	f.filenames = append(f.filenames, filename)
	return f.result, f.err
}

func (f *fakeMedia) Archived(_ context.Context, id, name string) (io.ReadCloser, string, error) {
	if f.archived == nil {
		return nil, "", media.ErrArchiveDisabled
	}
	data, ok := f.archived[id+"/"+name]
	if !ok {
		return nil, "", storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), "text/plain; charset=utf-8", nil
}

func testConfig() config.Config {
	cfg, err := config.Load("bookwise-api", func(string) (string, bool) { return "", false })
	if err != nil {
		panic(err)
	}
	return cfg
}

func testDeps() Dependencies {
	return Dependencies{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestHealthEndpoint(t *testing.T) {
	handler := NewHandler(testConfig(), testDeps())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if payload["service"] != "bookwise-api" {
		t.Fatalf("payload = %v", payload)
	}
}

func TestReadyEndpointReportsFailingCheck(t *testing.T) {
	deps := testDeps()
	deps.Readiness = func(context.Context) error { return errors.New("dataset file: missing") }
	handler := NewHandler(testConfig(), deps)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	var payload map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &payload)
	if payload["error_code"] != "NOT_READY" {
		t.Fatalf("payload = %v", payload)
	}
}

func TestQueryAppliesDefaultMaxRows(t *testing.T) {
	executor := &fakeExecutor{result: dataset.Result{
		Columns:  []string{"title"},
		Rows:     [][]any{{"Dune"}},
		RowCount: 1,
	}}
	deps := testDeps()
	deps.Executor = executor
	handler := NewHandler(testConfig(), deps)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, jsonRequest(http.MethodPost, "/v1/query", `{"sql": "SELECT title FROM books"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if len(executor.requests) != 1 || executor.requests[0].MaxRows != 500 {
		t.Fatalf("requests = %+v", executor.requests)
	}

	var payload queryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if payload.RowCount != 1 || payload.Truncated {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestQueryHonorsExplicitZeroMaxRows(t *testing.T) {
	executor := &fakeExecutor{result: dataset.Result{Columns: []string{"1"}}}
	deps := testDeps()
	deps.Executor = executor
	handler := NewHandler(testConfig(), deps)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, jsonRequest(http.MethodPost, "/v1/query", `{"sql": "SELECT 1", "max_rows": 0}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if executor.requests[0].MaxRows != 0 {
		t.Fatalf("MaxRows = %d, want explicit 0", executor.requests[0].MaxRows)
	}
}

func TestQueryRejectsUnsafeStatement(t *testing.T) {
	deps := testDeps()
	deps.Executor = &fakeExecutor{err: dataset.ErrUnsafeStatement}
	handler := NewHandler(testConfig(), deps)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, jsonRequest(http.MethodPost, "/v1/query", `{"sql": "DROP TABLE books"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var payload map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &payload)
	if payload["error_code"] != "SQL_NOT_ALLOWED" {
		t.Fatalf("payload = %v", payload)
	}
}

func TestQueryRequiresSQL(t *testing.T) {
	deps := testDeps()
	deps.Executor = &fakeExecutor{}
	handler := NewHandler(testConfig(), deps)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, jsonRequest(http.MethodPost, "/v1/query", `{"sql": "  "}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestQueryExportReturnsParquetAttachment(t *testing.T) {
	deps := testDeps()
	deps.Executor = &fakeExecutor{result: dataset.Result{
		Columns:  []string{"title"},
		Rows:     [][]any{{"Dune"}},
		RowCount: 1,
	}}
	handler := NewHandler(testConfig(), deps)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, jsonRequest(http.MethodPost, "/v1/query/export", `{"sql": "SELECT title FROM books"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "application/vnd.apache.parquet" {
		t.Fatalf("Content-Type = %q", got)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "attachment") {
		t.Fatalf("Content-Disposition = %q", rec.Header().Get("Content-Disposition"))
	}
	if rec.Body.Len() == 0 {
		t.Fatal("empty export body")
	}
}

func TestOverviewEndpoint(t *testing.T) {
	deps := testDeps()
	deps.Reporter = &fakeReporter{overview: dataset.Overview{Books: 120, BookReviews: 4800}}
	handler := NewHandler(testConfig(), deps)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/overview", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var payload dataset.Overview
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if payload.Books != 120 {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestOverviewEndpointFailure(t *testing.T) {
	deps := testDeps()
	deps.Reporter = &fakeReporter{err: errors.New("no such table: books")}
	handler := NewHandler(testConfig(), deps)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/overview", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCreateTicketEndpoint(t *testing.T) {
	sink := &fakeSink{receipt: ticket.Receipt{
		Status:   ticket.StatusCreated,
		Provider: ticket.ProviderLocal,
		ID:       "local-2024-03-15T09-30-00Z",
		Path:     "tickets/local-2024-03-15T09-30-00Z.json",
	}}
	deps := testDeps()
	deps.TicketSink = sink
	handler := NewHandler(testConfig(), deps)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, jsonRequest(http.MethodPost, "/v1/tickets", `{"title": "Broken chart", "body": "Months are missing"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if len(sink.titles) != 1 || sink.titles[0] != "Broken chart" {
		t.Fatalf("titles = %v", sink.titles)
	}
	var receipt ticket.Receipt
	if err := json.Unmarshal(rec.Body.Bytes(), &receipt); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if receipt.Provider != ticket.ProviderLocal {
		t.Fatalf("receipt = %+v", receipt)
	}
}

func TestCreateTicketProviderRejection(t *testing.T) {
	deps := testDeps()
	deps.TicketSink = &fakeSink{receipt: ticket.Receipt{
		Status:   ticket.StatusError,
		Provider: ticket.ProviderGitHub,
		Details:  "Bad credentials",
	}}
	handler := NewHandler(testConfig(), deps)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, jsonRequest(http.MethodPost, "/v1/tickets", `{"title": "t", "body": "b"}`))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCreateTicketRequiresTitle(t *testing.T) {
	deps := testDeps()
	deps.TicketSink = &fakeSink{}
	handler := NewHandler(testConfig(), deps)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, jsonRequest(http.MethodPost, "/v1/tickets", `{"body": "b"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestChatEndpoint(t *testing.T) {
	chatAgent := &fakeAgent{reply: agent.Reply{Mode: agent.ModeFallback}}
	deps := testDeps()
	deps.Agent = chatAgent
	handler := NewHandler(testConfig(), deps)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, jsonRequest(http.MethodPost, "/v1/chat", `{"message": "hello there"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(chatAgent.messages) != 1 || chatAgent.messages[0] != "hello there" {
		t.Fatalf("messages = %v", chatAgent.messages)
	}
}

func TestChatEndpointRequiresMessage(t *testing.T) {
	deps := testDeps()
	deps.Agent = &fakeAgent{}
	handler := NewHandler(testConfig(), deps)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, jsonRequest(http.MethodPost, "/v1/chat", `{"message": ""}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestBriefingEndpoint(t *testing.T) {
	deps := testDeps()
	deps.Briefing = &fakeBriefing{result: briefing.Briefing{Summary: "Mild", TemperatureC: 18}}
	handler := NewHandler(testConfig(), deps)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, jsonRequest(http.MethodPost, "/v1/briefing", `{"location": "Vienna"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var payload briefing.Briefing
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if payload.Summary != "Mild" {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestBriefingEndpointRequiresLocation(t *testing.T) {
	deps := testDeps()
	deps.Briefing = &fakeBriefing{}
	handler := NewHandler(testConfig(), deps)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, jsonRequest(http.MethodPost, "/v1/briefing", `{"location": " "}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestVoiceToImageEndpoint(t *testing.T) {
	pipeline := &fakeMedia{result: media.Result{ID: "itx-1", Transcript: "a lighthouse"}}
	deps := testDeps()
	deps.Media = pipeline
	handler := NewHandler(testConfig(), deps)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("audio", "note.wav")
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write([]byte("audio-bytes")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/media/voice-to-image", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if len(pipeline.filenames) != 1 || pipeline.filenames[0] != "note.wav" {
		t.Fatalf("filenames = %v", pipeline.filenames)
	}
}

func TestVoiceToImageRequiresAudioPart(t *testing.T) {
	deps := testDeps()
	deps.Media = &fakeMedia{}
	handler := NewHandler(testConfig(), deps)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	_ = writer.WriteField("note", "no file here")
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/media/voice-to-image", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestArchivedMediaEndpoint(t *testing.T) {
	deps := testDeps()
	deps.Media = &fakeMedia{archived: map[string][]byte{
		"itx-1/transcript.txt": []byte("a lighthouse at dusk"),
	}}
	handler := NewHandler(testConfig(), deps)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/media/archive/itx-1/transcript.txt", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "text/plain; charset=utf-8" {
		t.Fatalf("Content-Type = %q", got)
	}
	if rec.Body.String() != "a lighthouse at dusk" {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestArchivedMediaEndpointMissingObject(t *testing.T) {
	deps := testDeps()
	deps.Media = &fakeMedia{archived: map[string][]byte{}}
	handler := NewHandler(testConfig(), deps)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/media/archive/itx-9/image.png", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestArchivedMediaEndpointArchiveDisabled(t *testing.T) {
	deps := testDeps()
	deps.Media = &fakeMedia{}
	handler := NewHandler(testConfig(), deps)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/media/archive/itx-1/image.png", nil))
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", rec.Code)
	}
}

func TestUnconfiguredSurfacesReturnNotImplemented(t *testing.T) {
	handler := NewHandler(testConfig(), testDeps())
	cases := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodPost, "/v1/query", `{"sql": "SELECT 1"}`},
		{http.MethodPost, "/v1/chat", `{"message": "hi"}`},
		{http.MethodPost, "/v1/tickets", `{"title": "t"}`},
		{http.MethodPost, "/v1/briefing", `{"location": "Vienna"}`},
		{http.MethodGet, "/v1/overview", ""},
		{http.MethodGet, "/v1/media/archive/itx-1/image.png", ""},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		var req *http.Request
		if tc.body != "" {
			req = jsonRequest(tc.method, tc.path, tc.body)
		} else {
			req = httptest.NewRequest(tc.method, tc.path, nil)
		}
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotImplemented {
			t.Fatalf("%s %s status = %d, want 501", tc.method, tc.path, rec.Code)
		}
	}
}

func TestCombineReadinessChecksStopsAtFirstFailure(t *testing.T) {
	calls := 0
	failing := func(context.Context) error { calls++; return errors.New("boom") }
	passing := func(context.Context) error { calls++; return nil }

	combined := CombineReadinessChecks(nil, passing, failing, passing)
	if err := combined(context.Background()); err == nil {
		t.Fatal("expected combined check to fail")
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}
