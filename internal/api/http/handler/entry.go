package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/quietpages/quietpages-server/internal/api/http/middleware"
	"github.com/quietpages/quietpages-server/internal/logger"
	"github.com/quietpages/quietpages-server/internal/model"
	"github.com/quietpages/quietpages-server/internal/service"
)

// Entry exposes diary entry CRUD, search and the backup export over HTTP.
type Entry struct {
	entries *service.Entry
	backup  *service.Backup
	logger  *logger.Logger
}

// NewEntry builds the entry handler. backup may be nil when object
// storage is not configured.
func NewEntry(entries *service.Entry, backup *service.Backup, logger *logger.Logger) *Entry {
	return &Entry{entries: entries, backup: backup, logger: logger}
}

type createEntryRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

type updateEntryRequest struct {
	Title   *string   `json:"title"`
	Content *string   `json:"content"`
	Tags    *[]string `json:"tags"`
}

type backupResponse struct {
	Key string `json:"key"`
}

func (h *Entry) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	filter := model.EntryFilter{Search: r.URL.Query().Get("search")}
	if raw := r.URL.Query().Get("tags"); raw != "" {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				filter.Tags = append(filter.Tags, tag)
			}
		}
	}

	entries, err := h.entries.ListEntries(r.Context(), userID, filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func (h *Entry) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var req createEntryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	entry, err := h.entries.CreateEntry(r.Context(), model.CreateEntryParams{
		UserID:  userID,
		Title:   req.Title,
		Content: req.Content,
		Tags:    req.Tags,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

func (h *Entry) Get(w http.ResponseWriter, r *http.Request) {
	userID, entryID, ok := h.ids(w, r)
	if !ok {
		return
	}

	entry, err := h.entries.GetEntry(r.Context(), userID, entryID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

func (h *Entry) Update(w http.ResponseWriter, r *http.Request) {
	userID, entryID, ok := h.ids(w, r)
	if !ok {
		return
	}

	var req updateEntryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	entry, err := h.entries.UpdateEntry(r.Context(), userID, entryID, model.UpdateEntryParams{
		Title:   req.Title,
		Content: req.Content,
		Tags:    req.Tags,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

func (h *Entry) Delete(w http.ResponseWriter, r *http.Request) {
	userID, entryID, ok := h.ids(w, r)
	if !ok {
		return
	}

	if err := h.entries.DeleteEntry(r.Context(), userID, entryID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Entry) Backup(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	if h.backup == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Code:    "BACKUP_DISABLED",
			Message: "Backups are not configured on this server.",
		})
		return
	}

	key, err := h.backup.Export(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, backupResponse{Key: key})
}

func (h *Entry) ids(w http.ResponseWriter, r *http.Request) (userID, entryID uuid.UUID, ok bool) {
	userID, ok = middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return uuid.Nil, uuid.Nil, false
	}

	entryID, err := uuid.Parse(chi.URLParam(r, "entryID"))
	if err != nil {
		writeBadRequest(w, "invalid entry id")
		return uuid.Nil, uuid.Nil, false
	}

	return userID, entryID, true
}
