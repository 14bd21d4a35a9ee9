package ui

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"packets/internal/collection"
	"packets/internal/har"
	"packets/internal/storage"
	"packets/internal/workspace"
	"packets/internal/yamlio"
)

const maxBody = 32 << 20

type Server struct {
	// mu serializes every workspace access; handlers run concurrently.
	mu sync.Mutex
	ws *workspace.Workspace

	store        *storage.Store
	events       *Broker
	logger       *slog.Logger
	version      string
	historyLimit int
	mux          *http.ServeMux
}

type Options struct {
	Workspace *workspace.Workspace
	Store     *storage.Store
	Events    *Broker
	Logger    *slog.Logger
	Version   string
	// HistoryLimit is the default page size of /api/entries.
	HistoryLimit int
}

func NewServer(opts Options) http.Handler {
	s := &Server{
		ws:           opts.Workspace,
		store:        opts.Store,
		events:       opts.Events,
		logger:       opts.Logger,
		version:      opts.Version,
		historyLimit: opts.HistoryLimit,
		mux:          http.NewServeMux(),
	}
	if s.historyLimit <= 0 {
		s.historyLimit = 500
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.events == nil {
		s.events = NewBroker()
	}

	s.mux.HandleFunc("GET /api/collections", s.handleCollections)
	s.mux.HandleFunc("POST /api/collections", s.handleCreateCollection)
	s.mux.HandleFunc("POST /api/collections/import", s.handleImport)
	s.mux.HandleFunc("PATCH /api/collections/{id}", s.handleEditCollection)
	s.mux.HandleFunc("DELETE /api/collections/{id}", s.handleRemoveCollection)
	s.mux.HandleFunc("GET /api/collections/{id}/export", s.handleExport)
	s.mux.HandleFunc("POST /api/collections/{id}/requests", s.handleCreateRequest)

	s.mux.HandleFunc("GET /api/requests/{id}", s.handleRequest)
	s.mux.HandleFunc("PATCH /api/requests/{id}", s.handleEditRequest)
	s.mux.HandleFunc("DELETE /api/requests/{id}", s.handleRemoveRequest)
	s.mux.HandleFunc("POST /api/requests/{id}/duplicate", s.handleDuplicate)
	s.mux.HandleFunc("POST /api/requests/{id}/move", s.handleMove)
	s.mux.HandleFunc("POST /api/requests/{id}/send", s.handleSend)
	s.mux.HandleFunc("GET /api/requests/{id}/result", s.handleResult)
	s.mux.HandleFunc("POST /api/requests/{id}/save", s.handleSave)
	s.mux.HandleFunc("GET /api/search", s.handleSearch)

	s.mux.HandleFunc("GET /api/entries", s.handleEntries)
	s.mux.HandleFunc("GET /api/entry/{id}", s.handleEntry)
	s.mux.HandleFunc("GET /api/export/har", s.handleExportHAR)
	s.mux.HandleFunc("POST /api/clear", s.handleClear)
	s.mux.HandleFunc("GET /events", s.handleEvents)

	return s.mux
}

func (s *Server) handleCollections(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	cols := s.ws.Collections()
	out := make([]collectionView, 0, len(cols))
	for _, c := range cols {
		out = append(out, toCollectionView(c))
	}
	s.mu.Unlock()
	writeJSON(w, out)
}

func (s *Server) handleCreateCollection(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name string `json:"name"`
	}
	if !s.decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	id, err := s.ws.CreateCollection(in.Name)
	s.mu.Unlock()
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, map[string]uuid.UUID{"id": id})
}

func (s *Server) handleEditCollection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in collectionEdit
	if !s.decode(w, r, &in) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if in.Name != nil {
		if err := s.ws.RenameCollection(id, *in.Name); err != nil {
			s.fail(w, err)
			return
		}
	}
	if in.Auth != nil {
		if err := in.Auth.validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if cred := in.Auth.Credential; cred != nil {
			if err := s.ws.SetCollectionCredential(id, *cred); err != nil {
				s.fail(w, err)
				return
			}
		}
		if sel := in.Auth.Selected; sel != nil {
			if err := s.ws.SelectCollectionAuth(id, *sel); err != nil {
				s.fail(w, err)
				return
			}
		}
	}
	c, err := s.ws.Collection(id)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, toCollectionView(c))
}

func (s *Server) handleRemoveCollection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	removed, err := s.ws.RemoveCollection(id)
	s.mu.Unlock()
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, map[string][]uuid.UUID{"removed": removed})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	var data []byte
	var name string
	c, err := s.ws.Collection(id)
	if err == nil {
		name = c.Name
		data, err = yamlio.Marshal(c)
	}
	s.mu.Unlock()
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".yaml"))
	_, _ = w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	c, err := yamlio.Unmarshal(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.ws.AddCollection(c)
	view := toCollectionView(c)
	s.mu.Unlock()
	writeJSONStatus(w, http.StatusCreated, view)
}

func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	cid, ok := pathID(w, r)
	if !ok {
		return
	}
	var in struct {
		Name string `json:"name"`
	}
	if !s.decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	id, err := s.ws.CreateRequest(cid, in.Name)
	s.mu.Unlock()
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, map[string]uuid.UUID{"id": id})
}

func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeRequest(w, id)
}

// writeRequest must be called with s.mu held.
func (s *Server) writeRequest(w http.ResponseWriter, id uuid.UUID) {
	rec, err := s.ws.Request(id)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, toRequestView(rec, s.ws.Pending(id)))
}

func (s *Server) handleEditRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in requestEdit
	if !s.decode(w, r, &in) {
		return
	}
	muts, err := in.mutations()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ws.UpdateField(id, muts...); err != nil {
		s.fail(w, err)
		return
	}
	s.writeRequest(w, id)
}

func (s *Server) handleRemoveRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	err := s.ws.RemoveRequest(id)
	s.mu.Unlock()
	if err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDuplicate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	dup, err := s.ws.DuplicateRequest(id)
	s.mu.Unlock()
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, map[string]uuid.UUID{"id": dup})
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in struct {
		Index int `json:"index"`
	}
	if !s.decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	err := s.ws.MoveRequest(id, in.Index)
	s.mu.Unlock()
	if err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	err := s.ws.Send(id)
	s.mu.Unlock()
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSONStatus(w, http.StatusAccepted, resultView{State: statePending})
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.ws.Request(id); err != nil {
		s.fail(w, err)
		return
	}
	if res, ok := s.ws.PollResult(id); ok {
		writeJSON(w, toResultView(res))
		return
	}
	if s.ws.Pending(id) {
		writeJSON(w, resultView{State: statePending})
		return
	}
	writeJSON(w, resultView{State: stateNone})
}

// handleSave marks the request for saving, consumes the mark and persists the
// whole workspace.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ws.MarkWantSave(id); err != nil {
		s.fail(w, err)
		return
	}
	saved, _ := s.ws.DoSave(id)
	if s.store != nil {
		if err := s.store.SaveState(s.ws.Snapshot()); err != nil {
			s.fail(w, err)
			return
		}
	}
	title, _ := s.ws.Title(id)
	writeJSON(w, map[string]any{"saved": saved, "title": title})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	matches := s.ws.Search(r.URL.Query().Get("q"))
	s.mu.Unlock()
	writeJSON(w, matches)
}

func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	if !s.haveStore(w) {
		return
	}
	limit := s.historyLimit
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil {
			limit = n
		}
	}
	list, err := s.store.List(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, list)
}

func (s *Server) handleEntry(w http.ResponseWriter, r *http.Request) {
	if !s.haveStore(w) {
		return
	}
	e, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, e)
}

func (s *Server) handleExportHAR(w http.ResponseWriter, r *http.Request) {
	if !s.haveStore(w) {
		return
	}
	list, err := s.store.List(1000)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	doc := har.FromEntries(list, s.version)
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename=packets.har")
	_, _ = w.Write(b)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	ch := s.events.Subscribe()
	defer s.events.Unsubscribe(ch)

	fmt.Fprintf(w, "event: ping\ndata: ok\n\n")
	flusher.Flush()

	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return
			}
			b, _ := json.Marshal(e)
			fmt.Fprintf(w, "event: done\ndata: %s\n\n", string(b))
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if !s.haveStore(w) {
		return
	}
	if err := s.store.DeleteAll(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) haveStore(w http.ResponseWriter) bool {
	if s.store == nil {
		http.Error(w, "history is not enabled", http.StatusNotFound)
		return false
	}
	return true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(v); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, collection.ErrCollectionNotFound), errors.Is(err, collection.ErrRequestNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, collection.ErrEmptyName), errors.Is(err, collection.ErrInheritNotAllowed):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		s.logger.Error("request failed", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writeJSON", "err", err)
	}
}
