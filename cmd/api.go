package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/taperedplus/design-intake/internal/chat"
	"github.com/taperedplus/design-intake/internal/export"
	"github.com/taperedplus/design-intake/internal/intake"
	"github.com/taperedplus/design-intake/internal/model"
	"github.com/taperedplus/design-intake/internal/progress"
	"github.com/taperedplus/design-intake/internal/reconcile"
	"github.com/taperedplus/design-intake/pkg/monday"
)

// api holds the HTTP handler dependencies.
type api struct {
	processor    *intake.Processor
	monday       monday.Client
	assistant    *chat.Assistant
	broker       *progress.Broker
	jobs         *intake.Registry
	columns      *model.ColumnMap
	maxUploadMiB int64

	// One enquiry moves through the wizard at a time; mu guards its state.
	mu      sync.Mutex
	session intake.Session
}

func (a *api) routes(r chi.Router) {
	r.Get("/health", a.handleHealth)
	r.Post("/api/process", a.handleProcess)
	r.Post("/api/process/async", a.handleProcessAsync)
	r.Get("/api/jobs/{jobID}", a.handleJobStatus)
	r.Get("/api/jobs/{jobID}/events", a.handleJobEvents)
	r.Get("/api/session", a.handleSession)
	r.Post("/api/session/reset", a.handleSessionReset)
	r.Post("/api/monday/search", a.handleSearch)
	r.Post("/api/monday/select", a.handleSelect)
	r.Get("/api/monday/project/{projectID}", a.handleProject)
	r.Post("/api/monday/items", a.handleCreateItem)
	r.Post("/api/validate", a.handleValidate)
	r.Post("/api/export", a.handleExport)
	r.Post("/api/chat", a.handleChat)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readUpload pulls the uploaded files out of a multipart request.
func (a *api) readUpload(r *http.Request) ([]intake.File, error) {
	if err := r.ParseMultipartForm(a.maxUploadMiB << 20); err != nil {
		return nil, fmt.Errorf("parse multipart form: %w", err)
	}
	var files []intake.File
	for _, headers := range r.MultipartForm.File {
		for _, hdr := range headers {
			f, err := hdr.Open()
			if err != nil {
				return nil, fmt.Errorf("open upload %s: %w", hdr.Filename, err)
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				return nil, fmt.Errorf("read upload %s: %w", hdr.Filename, err)
			}
			files = append(files, intake.File{Name: hdr.Filename, Data: data})
		}
	}
	return files, nil
}

// handleProcess runs the workflow synchronously. Multipart requests are
// first-pass uploads; JSON requests re-extract already-assembled text
// with the enquiry type pinned (after the user answers the match step).
func (a *api) handleProcess(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req struct {
			ExtractedText    string `json:"extractedText"`
			ForceEnquiryType string `json:"forceEnquiryType"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.ExtractedText == "" {
			writeError(w, http.StatusBadRequest, "extractedText is required")
			return
		}
		cls := model.Classification(req.ForceEnquiryType)
		if cls != "" && cls != model.NewEnquiry && cls != model.Amendment {
			writeError(w, http.StatusBadRequest, "forceEnquiryType must be New Enquiry or Amendment")
			return
		}
		params, err := a.processor.Reextract(r.Context(), req.ExtractedText, cls)
		if err != nil {
			zap.L().Error("re-extraction failed", zap.Error(err))
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"params":        params,
			"extractedText": req.ExtractedText,
		})
		return
	}

	files, err := a.readUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.transition(intake.Session.UploadStarted); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	result, err := a.processor.ProcessFiles(r.Context(), "", files)
	if err != nil {
		zap.L().Error("processing failed", zap.Error(err))
		a.handleSessionFailure()
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleSessionFailure returns the wizard to idle after a failed upload
// so the user can retry without an explicit reset.
func (a *api) handleSessionFailure() {
	a.mu.Lock()
	a.session = a.session.Reset()
	a.mu.Unlock()
}

func (a *api) handleProcessAsync(w http.ResponseWriter, r *http.Request) {
	files, err := a.readUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.transition(intake.Session.UploadStarted); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	jobID := a.jobs.Create()
	a.jobs.Start(jobID)

	// The job outlives the submission request, so detach from its
	// cancellation.
	ctx := context.WithoutCancel(r.Context())
	go func() {
		result, err := a.processor.ProcessFiles(ctx, jobID, files)
		if err != nil {
			a.jobs.Fail(jobID, err)
			a.handleSessionFailure()
			return
		}
		a.jobs.Complete(jobID, result)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

func (a *api) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job, ok := a.jobs.Get(jobID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown job")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// handleJobEvents streams progress events for a job over SSE until the
// job reaches a terminal stage or the client disconnects.
func (a *api) handleJobEvents(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if _, ok := a.jobs.Get(jobID); !ok {
		writeError(w, http.StatusNotFound, "unknown job")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, cancel := a.broker.Subscribe(jobID)
	defer cancel()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case ev := <-events:
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: progress\ndata: %s\n\n", data)
			flusher.Flush()
			if ev.Terminal() {
				return
			}
		}
	}
}

func (a *api) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProjectName string `json:"project_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProjectName == "" {
		writeError(w, http.StatusBadRequest, "project_name is required")
		return
	}

	result, err := a.monday.SearchProjects(r.Context(), req.ProjectName)
	if err != nil {
		zap.L().Error("board search failed", zap.String("project", req.ProjectName), zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	// Searching after an upload answers the candidate question for the
	// wizard. Standalone lookups leave the session alone.
	a.mu.Lock()
	if a.session.Phase == intake.PhaseProcessing {
		if next, err := a.session.UploadCompleted(len(result.Matches) > 0); err == nil {
			a.session = next
		}
	}
	a.mu.Unlock()

	writeJSON(w, http.StatusOK, result)
}

// handleProject returns the board item plus the merge-ready parameter
// set derived from its latest revision.
func (a *api) handleProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	item, err := a.monday.GetProjectByID(r.Context(), projectID)
	if err != nil {
		zap.L().Error("board fetch failed", zap.String("project_id", projectID), zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"project": item,
		"params":  monday.BoardParameters(item, a.columns),
	})
}

func (a *api) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	type record struct {
		Key      string `json:"key"`
		Value    string `json:"value"`
		ColumnID string `json:"column_id"`
	}
	var req struct {
		BoardID    string             `json:"board_id"`
		GroupID    string             `json:"group_id"`
		ItemName   string             `json:"item_name"`
		Params     model.ParameterSet `json:"params"`
		Records    []record           `json:"records"`
		FileName   string             `json:"file_name"`
		FileBase64 string             `json:"file_base64"`
		FileColumn string             `json:"file_column_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ItemName == "" {
		writeError(w, http.StatusBadRequest, "item_name is required")
		return
	}

	columnValues := make(map[string]string)
	for _, rec := range req.Records {
		if rec.ColumnID != "" {
			columnValues[rec.ColumnID] = rec.Value
		}
	}
	// Parameters without explicit records fall back to the configured
	// create-column mapping.
	for key, columnID := range a.columns.Create {
		if _, done := columnValues[columnID]; done {
			continue
		}
		if v, ok := req.Params[key]; ok && !model.IsMissing(v) {
			columnValues[columnID] = reconcile.Normalize(v)
		}
	}

	itemReq := monday.ItemRequest{
		BoardID:      req.BoardID,
		GroupID:      req.GroupID,
		Name:         req.ItemName,
		ColumnValues: columnValues,
		FileName:     req.FileName,
		FileColumnID: req.FileColumn,
	}
	if req.FileBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(req.FileBase64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "file_base64 is not valid base64")
			return
		}
		itemReq.File = data
	}

	result, err := a.monday.CreateItem(r.Context(), itemReq)
	if err != nil {
		zap.L().Error("item creation failed", zap.String("item", req.ItemName), zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (a *api) handleExport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Params  model.ParameterSet `json:"params"`
		RawText string             `json:"extractedText"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Params) == 0 {
		writeError(w, http.StatusBadRequest, "params is required")
		return
	}

	data, err := export.Bytes(req.Params, req.RawText)
	if err != nil {
		zap.L().Error("export failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.DefaultFilename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (a *api) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message       string             `json:"message"`
		Params        model.ParameterSet `json:"params"`
		ExtractedText string             `json:"extractedText"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	resp, err := a.assistant.Respond(r.Context(), req.Message, req.Params, req.ExtractedText)
	if err != nil {
		zap.L().Error("chat failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
