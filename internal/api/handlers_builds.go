package api

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/binder/internal/manifest"
	"github.com/dgallion1/binder/internal/numbering"
	"github.com/dgallion1/binder/internal/pipeline"
)

func (s *Server) handleSubmitBuild(w http.ResponseWriter, r *http.Request) {
	job, err := s.orchestrator.Submit()
	if err != nil {
		code := http.StatusServiceUnavailable
		if errors.Is(err, pipeline.ErrStopped) {
			code = http.StatusGone
		}
		jsonError(w, err.Error(), code)
		return
	}

	snap := job.Snapshot()
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   snap.ID,
		"status":   snap.Status,
		"poll_url": fmt.Sprintf("/api/builds/%s", snap.ID),
	})
}

func (s *Server) handleBuildStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

// handlePageMap reports the last build's page map. Before any build has run
// in this process it falls back to the block recorded in the manifest.
func (s *Server) handlePageMap(w http.ResponseWriter, r *http.Request) {
	if res := s.orchestrator.LastResult(); res != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"source":      "build",
			"finished_at": res.FinishedAt,
			"index_pages": res.IndexPages,
			"total_pages": res.TotalPages,
			"page_map":    res.PageMap,
		})
		return
	}

	md, err := os.ReadFile(s.cfg.ManifestPath)
	if err != nil {
		jsonError(w, "no page map available", http.StatusNotFound)
		return
	}
	entries, ok := manifest.ReadPageMap(string(md))
	if !ok {
		jsonError(w, "no page map available", http.StatusNotFound)
		return
	}
	if entries == nil {
		entries = []numbering.PageMap{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"source":   "manifest",
		"page_map": entries,
	})
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	f, err := os.Open(s.cfg.OutputPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			jsonError(w, "master pdf not built yet", http.StatusNotFound)
			return
		}
		s.log.Error("open artifact", "error", err)
		jsonError(w, "failed to open master pdf", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		jsonError(w, "failed to stat master pdf", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	http.ServeContent(w, r, "master.pdf", fi.ModTime(), f)
}
