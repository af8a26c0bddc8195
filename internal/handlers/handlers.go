package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ogmp3/internal/apperr"
	"ogmp3/internal/models"
	"ogmp3/internal/validator"
	"ogmp3/templates"

	"github.com/go-chi/chi/v5"
)

func (a *App) convert(w http.ResponseWriter, r *http.Request) {
	sourceURL, ok := a.readURL(w, r)
	if !ok {
		return
	}

	if !a.beginConversion() {
		a.respondError(w, http.StatusServiceUnavailable, "Server is shutting down")
		return
	}
	defer a.inflight.Done()

	if err := a.store.EnsureExists(); err != nil {
		a.logger.Error("failed to ensure downloads dir", "error", err)
		a.respondError(w, http.StatusInternalServerError, "Server error")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	defer context.AfterFunc(a.ctx, cancel)()

	job := a.jobs.Create(sourceURL, a.store.Dir(), a.extractor.Extension())
	defer a.jobs.Remove(job.ID)
	finish := a.metrics.StartConversion()

	a.logger.Info("starting conversion", "job_id", job.ID, "url", sourceURL)
	a.broadcast(models.ProgressEvent{ID: job.ID, URL: sourceURL, Status: models.StatusQueued, Message: "job queued"})

	err := a.extractor.ExtractAudio(ctx, sourceURL, job.OutputTemplate, func(percent int, message string) {
		a.jobs.Update(job.ID, func(j *models.Job) {
			j.Status = models.StatusProcessing
			j.Progress = percent
		})
		a.broadcast(models.ProgressEvent{ID: job.ID, URL: sourceURL, Status: models.StatusProcessing, Progress: percent, Message: message})
	})
	if err != nil {
		result := "tool_error"
		if errors.Is(err, apperr.ErrTimeout) {
			result = "timeout"
		}
		finish(result)
		a.failJob(job, err)
		a.respondError(w, http.StatusInternalServerError, "Conversion error: "+apperr.Message(err))
		return
	}

	artifact, err := a.store.FindByPrefix(job.ID, job.Extension)
	if err != nil {
		finish("not_found")
		a.failJob(job, err)
		if errors.Is(err, apperr.ErrArtifactNotFound) {
			a.respondError(w, http.StatusInternalServerError, strings.ToUpper(strings.TrimPrefix(job.Extension, "."))+" file not found")
			return
		}
		a.respondError(w, http.StatusInternalServerError, "File reading error")
		return
	}
	finish("success")

	downloadURL := "/download/" + url.PathEscape(artifact.Name)
	a.jobs.Update(job.ID, func(j *models.Job) {
		j.Status = models.StatusCompleted
		j.Progress = 100
		j.Filename = artifact.Name
	})
	a.broadcast(models.ProgressEvent{
		ID:          job.ID,
		URL:         sourceURL,
		Status:      models.StatusCompleted,
		Progress:    100,
		Message:     "conversion successful",
		Filename:    artifact.Name,
		DownloadURL: downloadURL,
	})
	a.logger.Info("conversion successful", "job_id", job.ID, "file", artifact.Name, "size", artifact.Size)

	a.respondJSON(w, http.StatusOK, models.ConvertResponse{
		Success:     true,
		DownloadURL: downloadURL,
		Filename:    artifact.Name,
	})
}

// failJob records the failure and removes whatever partial output the tool
// left behind for this job.
func (a *App) failJob(job *models.Job, err error) {
	a.logger.Error("conversion failed", "job_id", job.ID, "url", job.URL, "error", err)
	if leftovers := a.store.DeleteByPrefix(job.ID); len(leftovers) > 0 {
		a.logger.Info("removed partial output", "job_id", job.ID, "files", leftovers)
	}
	a.jobs.Update(job.ID, func(j *models.Job) {
		j.Status = models.StatusFailed
		j.Error = err.Error()
	})
	a.broadcast(models.ProgressEvent{ID: job.ID, URL: job.URL, Status: models.StatusFailed, Error: apperr.Message(err), Message: "conversion failed"})
}

func (a *App) info(w http.ResponseWriter, r *http.Request) {
	sourceURL, ok := a.readURL(w, r)
	if !ok {
		return
	}

	a.logger.Info("retrieving information", "url", sourceURL)
	info, err := a.extractor.FetchInfo(r.Context(), sourceURL)
	if err != nil {
		if errors.Is(err, apperr.ErrParsing) {
			a.metrics.RecordInfo("parse_error")
			a.logger.Error("info parsing error", "url", sourceURL, "error", err)
			a.respondError(w, http.StatusInternalServerError, "Information processing error")
			return
		}
		a.metrics.RecordInfo("tool_error")
		a.logger.Error("info retrieval error", "url", sourceURL, "error", err)
		a.respondError(w, http.StatusInternalServerError, "Could not retrieve information")
		return
	}

	a.metrics.RecordInfo("success")
	a.respondJSON(w, http.StatusOK, info)
}

func (a *App) download(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	a.logger.Info("download request", "file", name)

	f, info, err := a.store.Open(name)
	if err != nil {
		if errors.Is(err, apperr.ErrArtifactNotFound) {
			a.metrics.RecordDownload("not_found", 0)
			a.logger.Warn("file does not exist", "file", name)
			a.respondError(w, http.StatusNotFound, "File does not exist")
			return
		}
		a.metrics.RecordDownload("error", 0)
		a.logger.Error("file reading error", "file", name, "error", err)
		a.respondError(w, http.StatusInternalServerError, "File reading error")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", contentType(name))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	w.WriteHeader(http.StatusOK)

	n, err := io.Copy(w, f)
	if err != nil || n != info.Size() {
		a.metrics.RecordDownload("interrupted", n)
		a.logger.Error("download error", "file", name, "sent", n, "size", info.Size(), "error", err)
		return
	}

	a.metrics.RecordDownload("success", n)
	a.logger.Info("download successful", "file", name, "bytes", n)
	a.sweeper.ScheduleDelete(name)
}

func (a *App) files(w http.ResponseWriter, r *http.Request) {
	artifacts, err := a.store.List()
	if err != nil {
		a.logger.Error("file listing error", "error", err)
		artifacts = []models.Artifact{}
	}
	a.respondJSON(w, http.StatusOK, models.FilesResponse{Files: artifacts})
}

func (a *App) statusPage(w http.ResponseWriter, r *http.Request) {
	artifacts, err := a.store.List()
	if err != nil {
		a.logger.Error("file listing error", "error", err)
	}
	data := templates.StatusData{
		Now:       time.Now(),
		Jobs:      a.jobs.Active(),
		Artifacts: artifacts,
		MaxAge:    a.maxAge,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.StatusPage(data).Render(r.Context(), w); err != nil {
		a.logger.Error("failed to render template", "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
	}
}

// audioTypes covers the formats yt-dlp can produce; the builtin mime table
// misses most of them.
var audioTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".opus": "audio/ogg",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".wav":  "audio/wav",
}

func contentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := audioTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

// readURL decodes {"url": ...} and validates it, answering 400 itself on
// failure.
func (a *App) readURL(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req models.URLRequest
	body := http.MaxBytesReader(w, r.Body, a.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.respondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Request body exceeds %d bytes", a.maxBodyBytes))
			return "", false
		}
		a.respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return "", false
	}

	sourceURL, err := validator.ValidateURL(req.URL, a.allowedHosts)
	if err != nil {
		a.logger.Warn("rejected url", "url", req.URL, "error", err)
		a.respondError(w, apperr.HTTPStatus(err), apperr.Message(err))
		return "", false
	}
	return sourceURL, true
}
