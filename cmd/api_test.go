package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/taperedplus/design-intake/internal/chat"
	"github.com/taperedplus/design-intake/internal/extract"
	"github.com/taperedplus/design-intake/internal/intake"
	"github.com/taperedplus/design-intake/internal/model"
	"github.com/taperedplus/design-intake/internal/progress"
	"github.com/taperedplus/design-intake/pkg/monday"
)

type stubLLM struct {
	response string
	err      error
}

func (s *stubLLM) Generate(context.Context, string) (string, error) {
	return s.response, s.err
}

type stubOCR struct{}

func (stubOCR) ExtractText(_ context.Context, _ []byte, filename string) (string, error) {
	return "text of " + filename, nil
}

type fakeMonday struct {
	searchResult *monday.SearchResult
	item         *monday.Item
	created      *monday.CreateResult
	err          error
	lastRequest  monday.ItemRequest
}

func (f *fakeMonday) SearchProjects(context.Context, string) (*monday.SearchResult, error) {
	return f.searchResult, f.err
}

func (f *fakeMonday) GetProjectByID(context.Context, string) (*monday.Item, error) {
	return f.item, f.err
}

func (f *fakeMonday) CreateItem(_ context.Context, req monday.ItemRequest) (*monday.CreateResult, error) {
	f.lastRequest = req
	return f.created, f.err
}

func newTestAPI(llmResponse string, board *fakeMonday) (*api, *progress.Broker) {
	llm := &stubLLM{response: llmResponse}
	broker := progress.NewBroker(nil)
	return &api{
		processor:    intake.NewProcessor(extract.New(llm), stubOCR{}, nil, broker, 1),
		monday:       board,
		assistant:    chat.New(llm),
		broker:       broker,
		jobs:         intake.NewRegistry(),
		columns:      model.DefaultColumnMap(),
		maxUploadMiB: 20,
		session:      intake.NewSession(),
	}, broker
}

func newTestRouter(a *api) http.Handler {
	r := chi.NewRouter()
	a.routes(r)
	return r
}

const testEML = "From: surveyor@example.co.uk\r\n" +
	"To: design@taperedplus.co.uk\r\n" +
	"Subject: Warehouse Roof\r\n" +
	"Date: Mon, 13 Jan 2025 14:30:00 +0000\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Please quote.\r\n"

func multipartUpload(t *testing.T, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, data := range files {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHandleHealth(t *testing.T) {
	a, _ := newTestAPI("", nil)
	srv := newTestRouter(a)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHandleProcessMultipart(t *testing.T) {
	a, _ := newTestAPI("Email Subject: Warehouse Roof\nReason for Change: New Enquiry\n", nil)
	srv := newTestRouter(a)

	body, contentType := multipartUpload(t, map[string][]byte{"enquiry.eml": []byte(testEML)})
	req := httptest.NewRequest(http.MethodPost, "/api/process", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result intake.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "Warehouse Roof", result.Params["Email Subject"])
	assert.Contains(t, result.ExtractedText, "EMAIL FILE: enquiry.eml")
}

func TestHandleProcessReextract(t *testing.T) {
	a, _ := newTestAPI("Email Subject: Roof\nReason for Change: New Enquiry\n", nil)
	srv := newTestRouter(a)

	payload := `{"extractedText":"EMAIL FILE: x\nsome text","forceEnquiryType":"Amendment"}`
	req := httptest.NewRequest(http.MethodPost, "/api/process", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Params model.ParameterSet `json:"params"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Amendment", resp.Params["Reason for Change"])
}

func TestHandleProcessReextractRejectsBadType(t *testing.T) {
	a, _ := newTestAPI("", nil)
	srv := newTestRouter(a)

	req := httptest.NewRequest(http.MethodPost, "/api/process",
		strings.NewReader(`{"extractedText":"x","forceEnquiryType":"Maybe"}`))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleProcessAsyncAndJobStatus(t *testing.T) {
	a, _ := newTestAPI("Email Subject: Roof\nReason for Change: New Enquiry\n", nil)
	srv := newTestRouter(a)

	body, contentType := multipartUpload(t, map[string][]byte{"enquiry.eml": []byte(testEML)})
	req := httptest.NewRequest(http.MethodPost, "/api/process/async", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var accepted struct {
		JobID string `json:"job_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	require.NotEmpty(t, accepted.JobID)

	// Poll until the background goroutine finishes.
	deadline := time.After(5 * time.Second)
	for {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/"+accepted.JobID, nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var job intake.Job
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
		if job.Status == intake.JobCompleted {
			require.NotNil(t, job.Result)
			assert.Equal(t, "Roof", job.Result.Params["Email Subject"])
			break
		}
		select {
		case <-deadline:
			t.Fatalf("job stuck in status %s", job.Status)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestHandleJobStatusUnknown(t *testing.T) {
	a, _ := newTestAPI("", nil)
	srv := newTestRouter(a)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleJobEventsStreamsUntilTerminal(t *testing.T) {
	a, broker := newTestAPI("", nil)
	srv := newTestRouter(a)

	jobID := a.jobs.Create()
	broker.Publish(progress.Event{JobID: jobID, Stage: progress.StageCompleted, Progress: 100})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/"+jobID+"/events", nil))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "event: progress")
	assert.Contains(t, rec.Body.String(), `"stage":"completed"`)
}

func TestHandleSearch(t *testing.T) {
	board := &fakeMonday{searchResult: &monday.SearchResult{
		Exists:  true,
		Type:    "existing",
		Matches: []monday.Match{{ID: "100", Name: "Leeds Warehouse", Similarity: 0.9}},
	}}
	a, _ := newTestAPI("", board)
	srv := newTestRouter(a)

	req := httptest.NewRequest(http.MethodPost, "/api/monday/search",
		strings.NewReader(`{"project_name":"Leeds Warehouse"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result monday.SearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Exists)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, "100", result.Matches[0].ID)
}

func TestHandleSearchMissingName(t *testing.T) {
	a, _ := newTestAPI("", &fakeMonday{})
	srv := newTestRouter(a)

	req := httptest.NewRequest(http.MethodPost, "/api/monday/search", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleProject(t *testing.T) {
	board := &fakeMonday{item: &monday.Item{
		ID:   "100",
		Name: "Leeds Warehouse",
		Subitems: []monday.Item{{
			ID:   "201",
			Name: "16903_25.01 - A",
			ColumnValues: []monday.ColumnValue{
				{ID: "mirror0__1", Typename: "MirrorValue", DisplayValue: "0.18"},
			},
		}},
	}}
	a, _ := newTestAPI("", board)
	srv := newTestRouter(a)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/monday/project/100", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Project monday.Item        `json:"project"`
		Params  model.ParameterSet `json:"params"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Leeds Warehouse", resp.Project.Name)
	assert.Equal(t, "0.18", resp.Params["Target U-Value"])
	assert.Equal(t, "16903_25.01 - A", resp.Params["Drawing Reference"])
}

func TestHandleCreateItem(t *testing.T) {
	board := &fakeMonday{created: &monday.CreateResult{ItemID: "555", FileUploaded: false}}
	a, _ := newTestAPI("", board)
	srv := newTestRouter(a)

	payload := `{
		"item_name": "Leeds Warehouse",
		"params": {"Date Received": "2025-01-13", "Post Code": "LS", "Hour Received": "14:30"},
		"records": [{"key": "Reason for Change", "value": "New Enquiry", "column_id": "status_1__1"}]
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/monday/items", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var result monday.CreateResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "555", result.ItemID)

	// Explicit records win; remaining params map through the create
	// column config.
	assert.Equal(t, "New Enquiry", board.lastRequest.ColumnValues["status_1__1"])
	assert.Equal(t, "2025-01-13", board.lastRequest.ColumnValues["date4"])
	assert.Equal(t, "LS", board.lastRequest.ColumnValues["dropdown_mknfpjbt"])
	assert.Equal(t, "14:30", board.lastRequest.ColumnValues["hour0__1"])
}

func TestHandleCreateItemWithFile(t *testing.T) {
	board := &fakeMonday{created: &monday.CreateResult{ItemID: "555", FileUploaded: true}}
	a, _ := newTestAPI("", board)
	srv := newTestRouter(a)

	payload := `{"item_name":"X","file_base64":"JVBERg==","file_name":"plan.pdf","file_column_id":"files"}`
	req := httptest.NewRequest(http.MethodPost, "/api/monday/items", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []byte("%PDF"), board.lastRequest.File)
	assert.Equal(t, "plan.pdf", board.lastRequest.FileName)
}

func TestHandleCreateItemBadBase64(t *testing.T) {
	a, _ := newTestAPI("", &fakeMonday{})
	srv := newTestRouter(a)

	req := httptest.NewRequest(http.MethodPost, "/api/monday/items",
		strings.NewReader(`{"item_name":"X","file_base64":"!!!"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleExport(t *testing.T) {
	a, _ := newTestAPI("", nil)
	srv := newTestRouter(a)

	payload := `{"params":{"Email Subject":"Roof"},"extractedText":"raw"}`
	req := httptest.NewRequest(http.MethodPost, "/api/export", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Technical_Parameters.xlsx")

	f, err := xlsx.OpenBinary(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Contains(t, f.Sheet, "Parameters")
	assert.Contains(t, f.Sheet, "Full Response")
}

func TestHandleChat(t *testing.T) {
	a, _ := newTestAPI("The decking is metal.", nil)
	srv := newTestRouter(a)

	payload := `{"message":"what decking?","params":{"Decking":"Metal"},"extractedText":"raw"}`
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp chat.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "The decking is metal.", resp.Text)
}

func TestHandleChatMissingMessage(t *testing.T) {
	a, _ := newTestAPI("", nil)
	srv := newTestRouter(a)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleExportMissingParams(t *testing.T) {
	a, _ := newTestAPI("", nil)
	srv := newTestRouter(a)

	req := httptest.NewRequest(http.MethodPost, "/api/export", strings.NewReader(`{"params":{}}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionWizardFlow(t *testing.T) {
	board := &fakeMonday{
		searchResult: &monday.SearchResult{
			Exists:  true,
			Type:    "existing",
			Matches: []monday.Match{{ID: "100", Name: "Leeds Warehouse", Similarity: 0.9}},
		},
		item: &monday.Item{
			ID:   "100",
			Name: "Leeds Warehouse",
			Subitems: []monday.Item{{
				ID:   "201",
				Name: "16903_25.01 - A",
				ColumnValues: []monday.ColumnValue{
					{ID: "mirror0__1", Typename: "MirrorValue", DisplayValue: "0.18"},
				},
			}},
		},
	}
	a, _ := newTestAPI("Email Subject: Warehouse Roof\nReason for Change: Amendment\n", board)
	srv := newTestRouter(a)

	getSession := func() sessionView {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/session", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var s sessionView
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
		return s
	}

	assert.Equal(t, intake.PhaseIdle, getSession().Phase)

	body, contentType := multipartUpload(t, map[string][]byte{"enquiry.eml": []byte(testEML)})
	req := httptest.NewRequest(http.MethodPost, "/api/process", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, intake.PhaseProcessing, getSession().Phase)

	req = httptest.NewRequest(http.MethodPost, "/api/monday/search",
		strings.NewReader(`{"project_name":"Leeds Warehouse"}`))
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, intake.PhaseAwaitingMatch, getSession().Phase)

	payload := `{"confirmed":true,"project_id":"100","params":{"Email Subject":"Warehouse Roof","Target U-Value":"0.25"}}`
	req = httptest.NewRequest(http.MethodPost, "/api/monday/select", strings.NewReader(payload))
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var selected struct {
		Session    sessionView              `json:"session"`
		Params     model.ParameterSet       `json:"params"`
		Provenance model.ProvenanceMap      `json:"provenance"`
		Validation []model.ValidationRecord `json:"validation"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &selected))
	assert.Equal(t, intake.PhaseReady, selected.Session.Phase)
	assert.Equal(t, model.Amendment, selected.Session.Classification)
	assert.Equal(t, "0.25", selected.Params["Target U-Value"])
	assert.Equal(t, model.SourceEmail, selected.Provenance["Target U-Value"])
	assert.Equal(t, "Amendment", selected.Params["Reason for Change"])
	assert.Equal(t, model.SourceRule, selected.Provenance["Reason for Change"])

	require.Len(t, selected.Validation, 5)
	assert.Equal(t, "Enquiry Type", selected.Validation[3].Key)
	assert.Equal(t, "Amendment", selected.Validation[3].Value)
	assert.Equal(t, "16903", selected.Validation[4].Value)

	req = httptest.NewRequest(http.MethodPost, "/api/validate",
		strings.NewReader(`{"params":{"Date Received":"13/01/2025","Post Code":"LS1"}}`))
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, intake.PhaseValidating, getSession().Phase)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/session/reset", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	s := getSession()
	assert.Equal(t, intake.PhaseIdle, s.Phase)
	assert.Empty(t, s.Classification)
}

func TestHandleSelectRejectAllMatches(t *testing.T) {
	a, _ := newTestAPI("", &fakeMonday{})
	a.session = intake.Session{Phase: intake.PhaseAwaitingMatch}
	srv := newTestRouter(a)

	payload := `{"confirmed":false,"params":{"Email Subject":"Roof","Drawing Reference":"Not found"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/monday/select", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var selected struct {
		Session    sessionView              `json:"session"`
		Params     model.ParameterSet       `json:"params"`
		Provenance model.ProvenanceMap      `json:"provenance"`
		Validation []model.ValidationRecord `json:"validation"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &selected))
	assert.Equal(t, model.NewEnquiry, selected.Session.Classification)
	assert.Equal(t, "New Enquiry", selected.Params["Reason for Change"])
	assert.Equal(t, model.Deferred, selected.Params["Drawing Reference"])
	assert.Equal(t, model.SourceRule, selected.Provenance["Drawing Reference"])

	// New enquiries never carry a drawing reference record.
	require.Len(t, selected.Validation, 4)
	assert.Equal(t, "New Enquiry", selected.Validation[3].Value)
}

func TestHandleSelectBoardFailureIsRetryable(t *testing.T) {
	board := &fakeMonday{err: errors.New("monday: service unavailable")}
	a, _ := newTestAPI("", board)
	a.session = intake.Session{Phase: intake.PhaseAwaitingMatch}
	srv := newTestRouter(a)

	payload := `{"confirmed":true,"project_id":"100","params":{"Email Subject":"Roof"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/monday/select", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	// The answer was not committed, so the same request works once the
	// board recovers.
	assert.Equal(t, intake.PhaseAwaitingMatch, a.snapshotSession().Phase)

	board.err = nil
	board.item = &monday.Item{ID: "100", Name: "Leeds Warehouse"}
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/monday/select", strings.NewReader(payload)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, intake.PhaseReady, a.snapshotSession().Phase)
}

func TestHandleSelectOutOfOrder(t *testing.T) {
	a, _ := newTestAPI("", &fakeMonday{})
	srv := newTestRouter(a)

	req := httptest.NewRequest(http.MethodPost, "/api/monday/select",
		strings.NewReader(`{"confirmed":false}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleSelectConfirmedRequiresProjectID(t *testing.T) {
	a, _ := newTestAPI("", &fakeMonday{})
	a.session = intake.Session{Phase: intake.PhaseAwaitingMatch}
	srv := newTestRouter(a)

	req := httptest.NewRequest(http.MethodPost, "/api/monday/select",
		strings.NewReader(`{"confirmed":true}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleValidateRequiresReady(t *testing.T) {
	a, _ := newTestAPI("", nil)
	srv := newTestRouter(a)

	req := httptest.NewRequest(http.MethodPost, "/api/validate",
		strings.NewReader(`{"params":{"Post Code":"LS1"}}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleProcessRejectsSecondUpload(t *testing.T) {
	a, _ := newTestAPI("Email Subject: Roof\n", nil)
	srv := newTestRouter(a)

	for i, want := range []int{http.StatusOK, http.StatusConflict} {
		body, contentType := multipartUpload(t, map[string][]byte{"enquiry.eml": []byte(testEML)})
		req := httptest.NewRequest(http.MethodPost, "/api/process", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, "upload %d", i+1)
	}
}
