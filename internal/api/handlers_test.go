package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackiedee967/episoda-sub002/internal/mention"
	"github.com/jackiedee967/episoda-sub002/internal/models"
	"github.com/jackiedee967/episoda-sub002/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockContentStore struct {
	mock.Mock
}

func (m *mockContentStore) CreatePost(ctx context.Context, authorID, body string) (string, error) {
	args := m.Called(ctx, authorID, body)
	return args.String(0), args.Error(1)
}

func (m *mockContentStore) CreateComment(ctx context.Context, postID, authorID, body string) (string, error) {
	args := m.Called(ctx, postID, authorID, body)
	return args.String(0), args.Error(1)
}

func (m *mockContentStore) CreateHelpDeskPost(ctx context.Context, authorID, title, body, category string) (string, error) {
	args := m.Called(ctx, authorID, title, body, category)
	return args.String(0), args.Error(1)
}

func (m *mockContentStore) CreateHelpDeskComment(ctx context.Context, postID, authorID, body string) (string, error) {
	args := m.Called(ctx, postID, authorID, body)
	return args.String(0), args.Error(1)
}

type mockNotificationStore struct {
	mock.Mock
}

func (m *mockNotificationStore) NotificationsFor(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Notification), args.Error(1)
}

func (m *mockNotificationStore) MarkNotificationRead(ctx context.Context, notificationID string) error {
	args := m.Called(ctx, notificationID)
	return args.Error(0)
}

func (m *mockNotificationStore) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockNotificationStore) DeleteReadNotificationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type mockDirectory struct {
	mock.Mock
}

func (m *mockDirectory) Following(ctx context.Context, viewerID string) ([]string, error) {
	args := m.Called(ctx, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockDirectory) SearchCandidates(ctx context.Context, term, viewerID string, following []string) ([]models.CandidateUser, error) {
	args := m.Called(ctx, term, viewerID, following)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CandidateUser), args.Error(1)
}

func (m *mockDirectory) ResolveUsernames(ctx context.Context, usernames []string) (map[string]string, error) {
	args := m.Called(ctx, usernames)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

type mockSink struct {
	mock.Mock
}

func (m *mockSink) InsertMentions(ctx context.Context, parent models.ParentRef, mentions []store.MentionInput) (int, error) {
	args := m.Called(ctx, parent, mentions)
	return args.Int(0), args.Error(1)
}

func (m *mockSink) InsertNotifications(ctx context.Context, notifications []models.Notification) (int, error) {
	args := m.Called(ctx, notifications)
	return args.Int(0), args.Error(1)
}

func newTestServer(content *mockContentStore, inbox *mockNotificationStore, dir *mockDirectory, sink *mockSink) *httptest.Server {
	resolver := mention.NewResolver(dir, sink)
	handlers := NewHandlers(content, inbox, dir, resolver)
	return httptest.NewServer(NewRouter(handlers))
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	assert.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	assert.NoError(t, err)
	return resp
}

func TestHealthCheck(t *testing.T) {
	server := newTestServer(&mockContentStore{}, &mockNotificationStore{}, &mockDirectory{}, &mockSink{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/health")
	assert.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestSuggestUsersRequiresViewer(t *testing.T) {
	server := newTestServer(&mockContentStore{}, &mockNotificationStore{}, &mockDirectory{}, &mockSink{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/users/suggest?q=bo")
	assert.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSuggestUsersReturnsCandidates(t *testing.T) {
	dir := &mockDirectory{}
	dir.On("Following", mock.Anything, "viewer-1").Return([]string{"u2"}, nil)
	dir.On("SearchCandidates", mock.Anything, "bo", "viewer-1", []string{"u2"}).Return([]models.CandidateUser{
		{UserID: "u2", Username: "bob", IsFollowing: true},
		{UserID: "u3", Username: "bonnie"},
	}, nil)

	server := newTestServer(&mockContentStore{}, &mockNotificationStore{}, dir, &mockSink{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/users/suggest?q=bo&viewer=viewer-1")
	assert.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var users []models.CandidateUser
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&users))
	assert.Len(t, users, 2)
	assert.Equal(t, "bob", users[0].Username)
	dir.AssertExpectations(t)
}

func TestSuggestUsersDegradesOnSearchFailure(t *testing.T) {
	dir := &mockDirectory{}
	dir.On("Following", mock.Anything, "viewer-1").Return(nil, errors.New("follow lookup down"))
	dir.On("SearchCandidates", mock.Anything, "bo", "viewer-1", []string(nil)).
		Return(nil, errors.New("search down"))

	server := newTestServer(&mockContentStore{}, &mockNotificationStore{}, dir, &mockSink{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/users/suggest?q=bo&viewer=viewer-1")
	assert.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var users []models.CandidateUser
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&users))
	assert.Empty(t, users)
}

func TestCreatePostResolvesMentions(t *testing.T) {
	content := &mockContentStore{}
	content.On("CreatePost", mock.Anything, "u1", "hey @bob check this out").Return("post-1", nil)

	dir := &mockDirectory{}
	dir.On("ResolveUsernames", mock.Anything, []string{"bob"}).
		Return(map[string]string{"bob": "u2"}, nil)

	sink := &mockSink{}
	sink.On("InsertMentions", mock.Anything,
		models.ParentRef{Kind: models.ParentPost, ID: "post-1"},
		[]store.MentionInput{{MentionedUserID: "u2", MentionedUsername: "bob"}},
	).Return(1, nil)
	sink.On("InsertNotifications", mock.Anything, mock.Anything).Return(1, nil)

	server := newTestServer(content, &mockNotificationStore{}, dir, sink)
	defer server.Close()

	resp := postJSON(t, server.URL+"/api/posts", createPostRequest{
		AuthorID: "u1",
		Body:     "hey @bob check this out",
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var created createResponse
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "post-1", created.ID)
	assert.Equal(t, 1, created.Mentions.PersistedCount)
	assert.Equal(t, []string{"u2"}, created.Mentions.NotifiedUserIDs)

	content.AssertExpectations(t)
	sink.AssertExpectations(t)
}

func TestCreatePostValidatesInput(t *testing.T) {
	server := newTestServer(&mockContentStore{}, &mockNotificationStore{}, &mockDirectory{}, &mockSink{})
	defer server.Close()

	resp := postJSON(t, server.URL+"/api/posts", createPostRequest{AuthorID: "u1"})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreatePostStoreFailure(t *testing.T) {
	content := &mockContentStore{}
	content.On("CreatePost", mock.Anything, "u1", "hello").Return("", errors.New("db down"))

	server := newTestServer(content, &mockNotificationStore{}, &mockDirectory{}, &mockSink{})
	defer server.Close()

	resp := postJSON(t, server.URL+"/api/posts", createPostRequest{AuthorID: "u1", Body: "hello"})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestCreatePostSucceedsWhenResolutionFails(t *testing.T) {
	content := &mockContentStore{}
	content.On("CreatePost", mock.Anything, "u1", "hey @bob").Return("post-1", nil)

	dir := &mockDirectory{}
	dir.On("ResolveUsernames", mock.Anything, []string{"bob"}).
		Return(nil, errors.New("directory down"))

	server := newTestServer(content, &mockNotificationStore{}, dir, &mockSink{})
	defer server.Close()

	resp := postJSON(t, server.URL+"/api/posts", createPostRequest{AuthorID: "u1", Body: "hey @bob"})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var created createResponse
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "post-1", created.ID)
	assert.Zero(t, created.Mentions.PersistedCount)
	assert.Empty(t, created.Mentions.NotifiedUserIDs)
}

func TestCreateCommentUsesPostFromPath(t *testing.T) {
	content := &mockContentStore{}
	content.On("CreateComment", mock.Anything, "post-9", "u1", "nice one").Return("comment-1", nil)

	server := newTestServer(content, &mockNotificationStore{}, &mockDirectory{}, &mockSink{})
	defer server.Close()

	resp := postJSON(t, server.URL+"/api/posts/post-9/comments", createPostRequest{
		AuthorID: "u1",
		Body:     "nice one",
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var created createResponse
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "comment-1", created.ID)
	content.AssertExpectations(t)
}

func TestCreateHelpDeskPostRequiresTitle(t *testing.T) {
	server := newTestServer(&mockContentStore{}, &mockNotificationStore{}, &mockDirectory{}, &mockSink{})
	defer server.Close()

	resp := postJSON(t, server.URL+"/api/helpdesk/posts", createHelpDeskPostRequest{
		AuthorID: "u1",
		Body:     "my app is broken",
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateHelpDeskPost(t *testing.T) {
	content := &mockContentStore{}
	content.On("CreateHelpDeskPost", mock.Anything, "u1", "Broken feed", "my feed is empty", "bugs").
		Return("hd-1", nil)

	server := newTestServer(content, &mockNotificationStore{}, &mockDirectory{}, &mockSink{})
	defer server.Close()

	resp := postJSON(t, server.URL+"/api/helpdesk/posts", createHelpDeskPostRequest{
		AuthorID: "u1",
		Title:    "Broken feed",
		Body:     "my feed is empty",
		Category: "bugs",
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var created createResponse
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "hd-1", created.ID)
	content.AssertExpectations(t)
}

func TestCreateHelpDeskComment(t *testing.T) {
	content := &mockContentStore{}
	content.On("CreateHelpDeskComment", mock.Anything, "hd-1", "u1", "same here").Return("hdc-1", nil)

	server := newTestServer(content, &mockNotificationStore{}, &mockDirectory{}, &mockSink{})
	defer server.Close()

	resp := postJSON(t, server.URL+"/api/helpdesk/posts/hd-1/comments", createPostRequest{
		AuthorID: "u1",
		Body:     "same here",
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	content.AssertExpectations(t)
}

func TestListNotifications(t *testing.T) {
	inbox := &mockNotificationStore{}
	inbox.On("NotificationsFor", mock.Anything, "u1", 20).Return([]models.Notification{
		{ID: "n1", UserID: "u1", Type: models.NotificationMentionPost, ActorID: "u2"},
	}, nil)

	server := newTestServer(&mockContentStore{}, inbox, &mockDirectory{}, &mockSink{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/notifications?user=u1")
	assert.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var notifications []models.Notification
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&notifications))
	assert.Len(t, notifications, 1)
	assert.Equal(t, models.NotificationMentionPost, notifications[0].Type)
	inbox.AssertExpectations(t)
}

func TestListNotificationsValidatesLimit(t *testing.T) {
	server := newTestServer(&mockContentStore{}, &mockNotificationStore{}, &mockDirectory{}, &mockSink{})
	defer server.Close()

	for _, limit := range []string{"0", "-5", "abc"} {
		resp, err := http.Get(server.URL + "/api/notifications?user=u1&limit=" + limit)
		assert.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "limit=%s", limit)
	}
}

func TestMarkNotificationRead(t *testing.T) {
	inbox := &mockNotificationStore{}
	inbox.On("MarkNotificationRead", mock.Anything, "n1").Return(nil)

	server := newTestServer(&mockContentStore{}, inbox, &mockDirectory{}, &mockSink{})
	defer server.Close()

	resp := postJSON(t, server.URL+"/api/notifications/n1/read", struct{}{})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	inbox.AssertExpectations(t)
}

func TestMarkAllNotificationsRead(t *testing.T) {
	inbox := &mockNotificationStore{}
	inbox.On("MarkAllNotificationsRead", mock.Anything, "u1").Return(nil)

	server := newTestServer(&mockContentStore{}, inbox, &mockDirectory{}, &mockSink{})
	defer server.Close()

	resp := postJSON(t, server.URL+"/api/notifications/read-all?user=u1", struct{}{})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	inbox.AssertExpectations(t)
}
