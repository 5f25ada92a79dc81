package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackiedee967/episoda-sub002/internal/directory"
	"github.com/jackiedee967/episoda-sub002/internal/mention"
	"github.com/jackiedee967/episoda-sub002/internal/models"
	"github.com/jackiedee967/episoda-sub002/internal/store"
	"github.com/sirupsen/logrus"
)

// Handlers wires the HTTP surface to the store, directory and resolver.
type Handlers struct {
	content   store.ContentStore
	inbox     store.NotificationStore
	directory directory.DirectoryInterface
	resolver  *mention.Resolver
}

// NewHandlers creates the handler set.
func NewHandlers(content store.ContentStore, inbox store.NotificationStore, dir directory.DirectoryInterface, resolver *mention.Resolver) *Handlers {
	return &Handlers{
		content:   content,
		inbox:     inbox,
		directory: dir,
		resolver:  resolver,
	}
}

type createPostRequest struct {
	AuthorID string `json:"author_id"`
	Body     string `json:"body"`
}

type createHelpDeskPostRequest struct {
	AuthorID string `json:"author_id"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Category string `json:"category"`
}

// createResponse reports the new row plus what mention resolution managed to
// do. Mention failures degrade to zeros; they never fail the request.
type createResponse struct {
	ID       string         `json:"id"`
	Mentions mention.Result `json:"mentions"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Errorf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// HealthCheck reports liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// SuggestUsers serves mention autocomplete. Lookup failures degrade to an
// empty list; autocomplete never errors at the user.
func (h *Handlers) SuggestUsers(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	viewerID := r.URL.Query().Get("viewer")
	if viewerID == "" {
		writeError(w, http.StatusBadRequest, "viewer is required")
		return
	}

	following, err := h.directory.Following(r.Context(), viewerID)
	if err != nil {
		logrus.Debugf("Follow set lookup failed for %s, ranking degrades: %v", viewerID, err)
		following = nil
	}

	users, err := h.directory.SearchCandidates(r.Context(), term, viewerID, following)
	if err != nil {
		logrus.Errorf("Candidate search failed for %q: %v", term, err)
		users = nil
	}
	if users == nil {
		users = []models.CandidateUser{}
	}

	writeJSON(w, http.StatusOK, users)
}

// CreatePost creates a post and resolves its mentions best-effort.
func (h *Handlers) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.AuthorID == "" || req.Body == "" {
		writeError(w, http.StatusBadRequest, "author_id and body are required")
		return
	}

	id, err := h.content.CreatePost(r.Context(), req.AuthorID, req.Body)
	if err != nil {
		logrus.Errorf("Failed to create post: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create post")
		return
	}

	result := h.resolver.Resolve(r.Context(), req.Body,
		models.ParentRef{Kind: models.ParentPost, ID: id}, req.AuthorID)

	writeJSON(w, http.StatusCreated, createResponse{ID: id, Mentions: result})
}

// CreateComment creates a comment under a post and resolves its mentions.
func (h *Handlers) CreateComment(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["id"]

	var req createPostRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.AuthorID == "" || req.Body == "" {
		writeError(w, http.StatusBadRequest, "author_id and body are required")
		return
	}

	id, err := h.content.CreateComment(r.Context(), postID, req.AuthorID, req.Body)
	if err != nil {
		logrus.Errorf("Failed to create comment on post %s: %v", postID, err)
		writeError(w, http.StatusInternalServerError, "failed to create comment")
		return
	}

	result := h.resolver.Resolve(r.Context(), req.Body,
		models.ParentRef{Kind: models.ParentComment, ID: id, PostID: postID}, req.AuthorID)

	writeJSON(w, http.StatusCreated, createResponse{ID: id, Mentions: result})
}

// CreateHelpDeskPost creates a help desk post and resolves its mentions.
func (h *Handlers) CreateHelpDeskPost(w http.ResponseWriter, r *http.Request) {
	var req createHelpDeskPostRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.AuthorID == "" || req.Title == "" {
		writeError(w, http.StatusBadRequest, "author_id and title are required")
		return
	}

	id, err := h.content.CreateHelpDeskPost(r.Context(), req.AuthorID, req.Title, req.Body, req.Category)
	if err != nil {
		logrus.Errorf("Failed to create help desk post: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create help desk post")
		return
	}

	result := h.resolver.Resolve(r.Context(), req.Body,
		models.ParentRef{Kind: models.ParentHelpDeskPost, ID: id}, req.AuthorID)

	writeJSON(w, http.StatusCreated, createResponse{ID: id, Mentions: result})
}

// CreateHelpDeskComment creates a help desk comment and resolves its mentions.
func (h *Handlers) CreateHelpDeskComment(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["id"]

	var req createPostRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.AuthorID == "" || req.Body == "" {
		writeError(w, http.StatusBadRequest, "author_id and body are required")
		return
	}

	id, err := h.content.CreateHelpDeskComment(r.Context(), postID, req.AuthorID, req.Body)
	if err != nil {
		logrus.Errorf("Failed to create help desk comment on %s: %v", postID, err)
		writeError(w, http.StatusInternalServerError, "failed to create help desk comment")
		return
	}

	result := h.resolver.Resolve(r.Context(), req.Body,
		models.ParentRef{Kind: models.ParentHelpDeskComment, ID: id, PostID: postID}, req.AuthorID)

	writeJSON(w, http.StatusCreated, createResponse{ID: id, Mentions: result})
}

// ListNotifications returns a user's notifications, newest first.
func (h *Handlers) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user is required")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	notifications, err := h.inbox.NotificationsFor(r.Context(), userID, limit)
	if err != nil {
		logrus.Errorf("Failed to list notifications for %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}

	writeJSON(w, http.StatusOK, notifications)
}

// MarkNotificationRead marks one notification as read.
func (h *Handlers) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.inbox.MarkNotificationRead(r.Context(), id); err != nil {
		logrus.Errorf("Failed to mark notification %s read: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to mark notification read")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// MarkAllNotificationsRead marks all of a user's notifications as read.
func (h *Handlers) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user is required")
		return
	}

	if err := h.inbox.MarkAllNotificationsRead(r.Context(), userID); err != nil {
		logrus.Errorf("Failed to mark notifications read for %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to mark notifications read")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
