// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package service

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/poiesic/omnidoc/core"
	"github.com/poiesic/omnidoc/search"
)

const maxUploadBytes = 256 << 20

type errorResponse struct {
	Error string `json:"error"`
}

type documentResponse struct {
	Id            uint64 `json:"id"`
	Path          string `json:"path"`
	ParseMethod   string `json:"parse_method"`
	FragmentCount int    `json:"fragment_count"`
}

type ingestRequest struct {
	Path   string `json:"path"`
	Method string `json:"method"`
	Parser string `json:"parser"`
}

type queryRequest struct {
	Query   string `json:"query"`
	Mode    string `json:"mode"`
	MaxHits int    `json:"max_hits"`
	Answer  bool   `json:"answer"`
	Parser  string `json:"parser"`
}

type hitResponse struct {
	Score     float32 `json:"score"`
	Type      string  `json:"type"`
	Text      string  `json:"text"`
	PageIndex int     `json:"page_index"`
}

type queryResponse struct {
	Answer  string        `json:"answer,omitempty"`
	Results []hitResponse `json:"results"`
}

type statsResponse struct {
	Documents int `json:"documents"`
	Fragments int `json:"fragments"`
	Entities  int `json:"entities"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleIngest accepts either a multipart upload under the "file"
// field or a JSON body naming a server-side path, parses the document
// and indexes it into the workspace.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "workspace")
	lock := s.manager.Lock(name)
	lock.Lock()
	defer lock.Unlock()

	var req ingestRequest

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		path, err := s.saveUpload(r, name)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Path = path
		req.Method = r.FormValue("method")
		req.Parser = r.FormValue("parser")
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "no file uploaded and no path given")
		return
	}

	engine, release, err := s.manager.Acquire(name, req.Parser)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	defer release()

	outputDir, err := s.manager.OutputDir(name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	doc, err := engine.ProcessFile(r.Context(), req.Path, outputDir, req.Method)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, documentResponse{
		Id:            uint64(doc.Id),
		Path:          doc.Path,
		ParseMethod:   doc.ParseMethod,
		FragmentCount: doc.FragmentCount,
	})
}

// saveUpload stores the multipart "file" field under the workspace's
// upload directory and returns the stored path.
func (s *Server) saveUpload(r *http.Request, workspace string) (string, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return "", err
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", errors.New("missing multipart field \"file\"")
	}
	defer file.Close()

	uploadDir, err := s.manager.UploadDir(workspace)
	if err != nil {
		return "", err
	}

	dest := filepath.Join(uploadDir, filepath.Base(header.Filename))
	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		return "", err
	}
	return dest, nil
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "workspace")
	lock := s.manager.Lock(name)
	lock.Lock()
	defer lock.Unlock()

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query must not be empty")
		return
	}
	if req.MaxHits <= 0 {
		req.MaxHits = 20
	}
	if req.Mode == "" {
		req.Mode = string(search.ModeHybrid)
	}

	mode, err := search.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	engine, release, err := s.manager.Acquire(name, req.Parser)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	defer release()

	var resp queryResponse
	var results []*core.SearchResult
	if req.Answer {
		answer, hits, err := engine.Answer(r.Context(), req.Query, mode, req.MaxHits)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.Answer = answer
		results = hits
	} else {
		hits, err := engine.Query(r.Context(), req.Query, mode, req.MaxHits)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		results = hits
	}

	resp.Results = make([]hitResponse, 0, len(results))
	for _, hit := range results {
		resp.Results = append(resp.Results, hitResponse{
			Score:     hit.Score,
			Type:      hit.Fragment.Type.String(),
			Text:      hit.Fragment.Text(),
			PageIndex: hit.Fragment.PageIndex,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "workspace")
	lock := s.manager.Lock(name)
	lock.Lock()
	defer lock.Unlock()

	parser := r.URL.Query().Get("parser")
	engine, release, err := s.manager.Acquire(name, parser)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	defer release()

	stats, err := engine.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		Documents: stats.Documents,
		Fragments: stats.Fragments,
		Entities:  stats.Entities,
	})
}

// handleReset wipes the workspace. The next request recreates it
// empty.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "workspace")
	lock := s.manager.Lock(name)
	lock.Lock()
	defer lock.Unlock()

	if err := s.manager.Drop(name); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "workspace")
	lock := s.manager.Lock(name)
	lock.Lock()
	defer lock.Unlock()

	if err := s.manager.Drop(name); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrInvalidWorkspace) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
