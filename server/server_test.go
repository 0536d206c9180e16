//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
	"trpc.group/trpc-go/whisky-agent-go/assistant"
	"trpc.group/trpc-go/whisky-agent-go/evaluation"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/errs"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/evalresult"
	resultlocal "trpc.group/trpc-go/whisky-agent-go/evaluation/evalresult/local"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/evalset"
	setlocal "trpc.group/trpc-go/whisky-agent-go/evaluation/evalset/local"
	"trpc.group/trpc-go/whisky-agent-go/event"
	"trpc.group/trpc-go/whisky-agent-go/history"
	"trpc.group/trpc-go/whisky-agent-go/log"
	"trpc.group/trpc-go/whisky-agent-go/mirror"
	"trpc.group/trpc-go/whisky-agent-go/runner"
	"trpc.group/trpc-go/whisky-agent-go/session"
	"trpc.group/trpc-go/whisky-agent-go/session/inmemory"
	docinmemory "trpc.group/trpc-go/whisky-agent-go/storage/docstore/inmemory"
)

const (
	app   = "whisky"
	reply = "Try Lagavulin 16"
)

var fixedRunner = runner.Func(func(ctx context.Context, userID, sessionID string,
	message *genai.Content) (<-chan *event.Event, error) {
	ch := make(chan *event.Event, 1)
	ch <- event.New("inv", "whisky_agent", genai.NewContentFromText(reply, genai.RoleModel))
	close(ch)
	return ch, nil
})

type testServer struct {
	*Server
	sessions session.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	sessions := inmemory.NewSessionService()
	a, err := assistant.New(app, sessions, fixedRunner, history.New(sessions),
		assistant.WithMirror(mirror.NewWithStore(docinmemory.New())))
	require.NoError(t, err)

	dir := t.TempDir()
	clock := func() time.Time { return time.Unix(1700000000, 0) }
	sets := setlocal.New(evalset.WithBaseDir(dir), evalset.WithClock(clock))
	results := resultlocal.New(evalresult.WithBaseDir(dir), evalresult.WithClock(clock))
	ev, err := evaluation.New(sets, results, sessions, fixedRunner)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ev.Close() })

	s := New(a, sessions, WithEvalSetManager(sets), WithEvalResultManager(results), WithEvaluator(ev))
	return &testServer{Server: s, sessions: sessions}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[healthResponse](t, rec).Status)
}

func TestChatAndHistory(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/chat", chatRequest{UserID: "alice", Message: "Something smoky?"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[assistant.Reply](t, rec)
	assert.Equal(t, reply, got.Text)
	assert.Equal(t, "whisky_agent", got.Agent)

	rec = ts.do(t, http.MethodGet, "/history?user_id=alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	hist := decode[historyResponse](t, rec)
	require.Len(t, hist.History, 2)
	assert.Equal(t, "Something smoky?", hist.History[0].Query)
	assert.Equal(t, reply, hist.History[1].Response)

	rec = ts.do(t, http.MethodDelete, "/history?user_id=alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := decode[clearHistoryResponse](t, rec)
	assert.NotEqual(t, got.SessionID, cleared.NewSessionID)

	rec = ts.do(t, http.MethodGet, "/history?user_id=alice", nil)
	assert.Empty(t, decode[historyResponse](t, rec).History)
}

func TestChat_BadRequests(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name string
		body any
	}{
		{name: "bad json", body: "{not json"},
		{name: "bad image", body: chatRequest{UserID: "alice", Image: "***"}},
		{name: "no user", body: chatRequest{Message: "hi"}},
		{name: "empty message", body: chatRequest{UserID: "alice"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/chat", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestChat_Image(t *testing.T) {
	ts := newTestServer(t)
	img := base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\n"))
	var buf bytes.Buffer
	original := log.Default
	log.SetOutput(&buf)
	log.SetLevel(log.LevelDebug)
	defer func() {
		log.SetLevel(log.LevelInfo)
		log.SetOutput(os.Stdout)
		log.Default = original
	}()

	rec := ts.do(t, http.MethodPost, "/chat", chatRequest{UserID: "alice", Image: img, ImageName: "label.png", MimeType: "image/png"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, reply, decode[assistant.Reply](t, rec).Text)
	assert.Contains(t, buf.String(), `"label.png"`)
}

func TestSessions(t *testing.T) {
	ts := newTestServer(t)
	base := "/apps/" + app + "/users/bob/sessions"

	rec := ts.do(t, http.MethodPost, base, createSessionRequest{State: map[string]any{"mood": "peaty"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	created := decode[session.Session](t, rec)
	require.NotEmpty(t, created.ID)

	rec = ts.do(t, http.MethodPost, base, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, base+"/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "peaty", decode[session.Session](t, rec).State["mood"])

	rec = ts.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]session.Session](t, rec), 2)

	rec = ts.do(t, http.MethodDelete, base+"/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = ts.do(t, http.MethodGet, base+"/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEvalFlow(t *testing.T) {
	ts := newTestServer(t)
	evalSets := "/apps/" + app + "/eval_sets"

	rec := ts.do(t, http.MethodPost, evalSets+"/bad-id", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = ts.do(t, http.MethodGet, evalSets+"/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, evalSets+"/tasting", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = ts.do(t, http.MethodGet, evalSets, nil)
	assert.Equal(t, []string{"tasting"}, decode[[]string](t, rec))

	rec = ts.do(t, http.MethodPost, "/chat", chatRequest{UserID: "alice", Message: "Something smoky?"})
	require.Equal(t, http.StatusOK, rec.Code)
	sid := decode[assistant.Reply](t, rec).SessionID

	add := addSessionRequest{EvalID: "smoky", SessionID: sid, UserID: "alice"}
	rec = ts.do(t, http.MethodPost, evalSets+"/tasting/add_session", add)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = ts.do(t, http.MethodPost, evalSets+"/tasting/add_session", add)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = ts.do(t, http.MethodPost, evalSets+"/tasting/add_session",
		addSessionRequest{EvalID: "ghost", SessionID: "nope", UserID: "alice"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, evalSets+"/tasting/evals", nil)
	assert.Equal(t, []string{"smoky"}, decode[[]string](t, rec))

	rec = ts.do(t, http.MethodPost, evalSets+"/tasting/run_eval", runEvalRequest{EvalIDs: []string{"unknown"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, evalSets+"/tasting/run_eval", runEvalRequest{})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	runs := decode[[]runEvalResult](t, rec)
	require.Len(t, runs, 1)
	assert.Equal(t, "smoky", runs[0].EvalID)
	assert.Empty(t, runs[0].ErrorMessage)
	assert.True(t, strings.HasPrefix(runs[0].SessionID, session.EvalSessionPrefix))

	rec = ts.do(t, http.MethodGet, "/apps/"+app+"/eval_results", nil)
	ids := decode[[]string](t, rec)
	assert.Equal(t, []string{"whisky_tasting_1700000000"}, ids)
	rec = ts.do(t, http.MethodGet, "/apps/"+app+"/eval_results/"+ids[0], nil)
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[evalresult.EvalSetResult](t, rec)
	assert.Equal(t, "tasting", result.EvalSetID)
	rec = ts.do(t, http.MethodGet, "/apps/"+app+"/eval_results/whisky_tasting_1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Eval sessions stay out of the session listing.
	rec = ts.do(t, http.MethodGet, "/apps/"+app+"/users/alice/sessions", nil)
	for _, sess := range decode[[]session.Session](t, rec) {
		assert.False(t, sess.IsEvalSession())
	}
}

var toolRunner = runner.Func(func(ctx context.Context, userID, sessionID string,
	message *genai.Content) (<-chan *event.Event, error) {
	ch := make(chan *event.Event, 2)
	ch <- event.New("inv", "whisky_agent", &genai.Content{Role: string(genai.RoleModel), Parts: []*genai.Part{
		{FunctionCall: &genai.FunctionCall{Name: "lookup_whisky", Args: map[string]any{"region": "Islay"}}},
	}})
	ch <- event.New("inv", "whisky_agent", genai.NewContentFromText(reply, genai.RoleModel))
	close(ch)
	return ch, nil
})

func TestChatThenAddSessionKeepsToolCalls(t *testing.T) {
	sessions := inmemory.NewSessionService()
	a, err := assistant.New(app, sessions, runner.WithSessionEvents(toolRunner, sessions, app),
		history.New(sessions))
	require.NoError(t, err)
	sets := setlocal.New(evalset.WithBaseDir(t.TempDir()))
	ts := &testServer{Server: New(a, sessions, WithEvalSetManager(sets)), sessions: sessions}
	evalSets := "/apps/" + app + "/eval_sets"

	rec := ts.do(t, http.MethodPost, "/chat", chatRequest{UserID: "alice", Message: "Something from Islay?"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sid := decode[assistant.Reply](t, rec).SessionID

	rec = ts.do(t, http.MethodPost, evalSets+"/islay", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = ts.do(t, http.MethodPost, evalSets+"/islay/add_session",
		addSessionRequest{EvalID: "peated", SessionID: sid, UserID: "alice"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, evalSets+"/islay", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	set := decode[evalset.EvalSet](t, rec)
	require.Len(t, set.EvalCases, 1)
	conversation := set.EvalCases[0].Conversation
	require.Len(t, conversation, 1)
	assert.Equal(t, "Something from Islay?", conversation[0].UserContent.Parts[0].Text)
	require.Len(t, conversation[0].IntermediateData.ToolUses, 1)
	assert.Equal(t, "lookup_whisky", conversation[0].IntermediateData.ToolUses[0].Name)
	assert.Equal(t, "Islay", conversation[0].IntermediateData.ToolUses[0].Args["region"])
	require.NotNil(t, conversation[0].FinalResponse)
	assert.Equal(t, reply, conversation[0].FinalResponse.Parts[0].Text)

	// The history written around the turn did not wipe the event log.
	sess, err := sessions.GetSession(context.Background(), session.Key{AppName: app, UserID: "alice", SessionID: sid})
	require.NoError(t, err)
	assert.Len(t, history.Entries(sess.State), 2)
	assert.Len(t, sess.Events, 3)
}

func TestRecords(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPut, "/users/alice/records/r1", map[string]any{"name": "Ardbeg 10"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = ts.do(t, http.MethodPut, "/users/bob/records/r1", map[string]any{"name": "Oban 14"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = ts.do(t, http.MethodPut, "/users/bob/records/r2", "[")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/users/alice/records", nil)
	records := decode[[]mirror.Record](t, rec)
	require.Len(t, records, 1)
	assert.Equal(t, "Ardbeg 10", records[0].Payload["name"])

	rec = ts.do(t, http.MethodGet, "/users/alice/recommendations", nil)
	recs := decode[recommendationsResponse](t, rec)
	assert.Equal(t, "bob", recs.PeerUserID)
	require.Len(t, recs.Records, 1)

	rec = ts.do(t, http.MethodGet, "/users/carol/records", nil)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestWebSocket(t *testing.T) {
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.Handler())
	defer srv.Close()

	rec := ts.do(t, http.MethodGet, "/ws", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?user_id=alice"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(chatRequest{Message: "Something smoky?"}))
	var got assistant.Reply
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, reply, got.Text)

	require.NoError(t, conn.WriteJSON(chatRequest{}))
	var failure wsError
	require.NoError(t, conn.ReadJSON(&failure))
	assert.Contains(t, failure.Error, "no text")
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusCode(errs.ErrNotFound))
	assert.Equal(t, http.StatusBadRequest, statusCode(errs.ErrDuplicateIdentifier))
	assert.Equal(t, http.StatusBadRequest, statusCode(errs.ErrSchemaMismatch))
	assert.Equal(t, http.StatusInternalServerError, statusCode(assert.AnError))
}
