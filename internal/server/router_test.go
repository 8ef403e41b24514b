package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/conradchan/igrestore/internal/server"
	"github.com/conradchan/igrestore/internal/store"
	"github.com/conradchan/igrestore/internal/view"
)

type viewServiceStub struct {
	rows         []view.Row
	loadError    error
	renderedHTML string
	renderError  error
	loadCalls    int
}

func (stub *viewServiceStub) MergedRows(context.Context) ([]view.Row, error) {
	stub.loadCalls++
	return stub.rows, stub.loadError
}

func (stub *viewServiceStub) RenderTriagePage([]view.Row) (string, error) {
	return stub.renderedHTML, stub.renderError
}

func newTestRouter(t *testing.T, service server.ViewService) (*gin.Engine, *store.Store) {
	t.Helper()
	storeInstance, openErr := store.Open(filepath.Join(t.TempDir(), "triage.db"))
	if openErr != nil {
		t.Fatalf("Open returned error: %v", openErr)
	}
	t.Cleanup(func() { storeInstance.Close() })

	router, routerErr := server.NewRouter(server.RouterConfig{
		Service: service,
		Store:   storeInstance,
	})
	if routerErr != nil {
		t.Fatalf("NewRouter returned error: %v", routerErr)
	}
	return router, storeInstance
}

func performJSONRequest(router *gin.Engine, method string, path string, payload string) *httptest.ResponseRecorder {
	var body *bytes.Buffer
	if payload == "" {
		body = bytes.NewBuffer(nil)
	} else {
		body = bytes.NewBufferString(payload)
	}
	request := httptest.NewRequest(method, path, body)
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func TestServeTriagePage(t *testing.T) {
	service := &viewServiceStub{
		rows:         []view.Row{{Username: "alice"}},
		renderedHTML: "<html>triage</html>",
	}
	router, _ := newTestRouter(t, service)

	recorder := performJSONRequest(router, http.MethodGet, "/", "")

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), "triage") {
		t.Errorf("expected rendered html in body, got %q", recorder.Body.String())
	}
}

func TestServeTriagePageLoadFailure(t *testing.T) {
	service := &viewServiceStub{loadError: errors.New("boom")}
	router, _ := newTestRouter(t, service)

	recorder := performJSONRequest(router, http.MethodGet, "/", "")

	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", recorder.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, &viewServiceStub{})

	recorder := performJSONRequest(router, http.MethodGet, "/healthz", "")

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	var payload map[string]string
	if decodeErr := json.Unmarshal(recorder.Body.Bytes(), &payload); decodeErr != nil {
		t.Fatalf("decode health payload: %v", decodeErr)
	}
	if payload["status"] != "ok" {
		t.Errorf("expected status ok, got %q", payload["status"])
	}
}

func TestListProfiles(t *testing.T) {
	service := &viewServiceStub{
		rows: []view.Row{
			{Username: "alice", Status: "active", Decision: "undecided"},
			{Username: "bob", Status: "unknown", Decision: "will_keep"},
		},
	}
	router, _ := newTestRouter(t, service)

	recorder := performJSONRequest(router, http.MethodGet, "/api/profiles", "")

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	var rows []view.Row
	if decodeErr := json.Unmarshal(recorder.Body.Bytes(), &rows); decodeErr != nil {
		t.Fatalf("decode rows payload: %v", decodeErr)
	}
	if len(rows) != 2 || rows[0].Username != "alice" || rows[1].Decision != "will_keep" {
		t.Errorf("unexpected rows payload %+v", rows)
	}
}

func TestUpsertDecisionEndpoint(t *testing.T) {
	router, storeInstance := newTestRouter(t, &viewServiceStub{})

	recorder := performJSONRequest(router, http.MethodPost, "/api/decision",
		`{"username":"alice","decision":"will_unfollow","notes":"spam"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	decisions, listErr := storeInstance.AllDecisions(context.Background())
	if listErr != nil {
		t.Fatalf("AllDecisions returned error: %v", listErr)
	}
	stored := decisions["alice"]
	if stored.Decision != "will_unfollow" || stored.Notes != "spam" {
		t.Errorf("unexpected stored decision %+v", stored)
	}
}

func TestUpsertDecisionEndpointDefaultsAbsentDecision(t *testing.T) {
	router, storeInstance := newTestRouter(t, &viewServiceStub{})

	recorder := performJSONRequest(router, http.MethodPost, "/api/decision",
		`{"username":"alice","notes":"revisit later"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	decisions, listErr := storeInstance.AllDecisions(context.Background())
	if listErr != nil {
		t.Fatalf("AllDecisions returned error: %v", listErr)
	}
	stored := decisions["alice"]
	if stored.Decision != store.DefaultDecision || stored.Notes != "revisit later" {
		t.Errorf("unexpected stored decision %+v", stored)
	}
}

func TestUpsertDecisionEndpointRejectsBlankUsername(t *testing.T) {
	router, _ := newTestRouter(t, &viewServiceStub{})

	recorder := performJSONRequest(router, http.MethodPost, "/api/decision",
		`{"username":"","decision":"will_keep","notes":""}`)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
}

func TestUpsertDecisionEndpointRejectsMalformedBody(t *testing.T) {
	router, _ := newTestRouter(t, &viewServiceStub{})

	recorder := performJSONRequest(router, http.MethodPost, "/api/decision", "not json")
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
}

func TestPeopleEndpoints(t *testing.T) {
	router, _ := newTestRouter(t, &viewServiceStub{})

	createRecorder := performJSONRequest(router, http.MethodPost, "/api/people",
		`{"name":"First Person","notes":"met at work"}`)
	if createRecorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", createRecorder.Code, createRecorder.Body.String())
	}
	var createPayload map[string]int64
	if decodeErr := json.Unmarshal(createRecorder.Body.Bytes(), &createPayload); decodeErr != nil {
		t.Fatalf("decode create payload: %v", decodeErr)
	}
	personID := createPayload["id"]
	if personID == 0 {
		t.Fatalf("expected assigned person id, got %v", createPayload)
	}

	listRecorder := performJSONRequest(router, http.MethodGet, "/api/people", "")
	if listRecorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", listRecorder.Code)
	}
	var people []store.Person
	if decodeErr := json.Unmarshal(listRecorder.Body.Bytes(), &people); decodeErr != nil {
		t.Fatalf("decode people payload: %v", decodeErr)
	}
	if len(people) != 1 || people[0].Name != "First Person" {
		t.Fatalf("unexpected people payload %+v", people)
	}

	updatePath := "/api/people/" + strconv.FormatInt(personID, 10)
	updateRecorder := performJSONRequest(router, http.MethodPut, updatePath, `{"notes":"updated"}`)
	if updateRecorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", updateRecorder.Code)
	}

	deleteRecorder := performJSONRequest(router, http.MethodDelete, updatePath, "")
	if deleteRecorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", deleteRecorder.Code)
	}

	repeatDeleteRecorder := performJSONRequest(router, http.MethodDelete, updatePath, "")
	if repeatDeleteRecorder.Code != http.StatusOK {
		t.Errorf("expected idempotent delete to return 200, got %d", repeatDeleteRecorder.Code)
	}
}

func TestCreatePersonRejectsBlankName(t *testing.T) {
	router, _ := newTestRouter(t, &viewServiceStub{})

	recorder := performJSONRequest(router, http.MethodPost, "/api/people", `{"name":"  ","notes":""}`)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
}

func TestPersonEndpointsRejectBadID(t *testing.T) {
	router, _ := newTestRouter(t, &viewServiceStub{})

	updateRecorder := performJSONRequest(router, http.MethodPut, "/api/people/not-a-number", `{"notes":""}`)
	if updateRecorder.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for update, got %d", updateRecorder.Code)
	}
	deleteRecorder := performJSONRequest(router, http.MethodDelete, "/api/people/not-a-number", "")
	if deleteRecorder.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for delete, got %d", deleteRecorder.Code)
	}
}
