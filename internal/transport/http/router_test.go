package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outfitsquare/internal/config"
	"outfitsquare/internal/database"
	"outfitsquare/internal/model"
	transporthttp "outfitsquare/internal/transport/http"
	"outfitsquare/internal/transport/http/middleware"
)

const testSecret = "router-test-secret"

type apiClient struct {
	t      *testing.T
	server *httptest.Server
	token  string
}

func (c *apiClient) as(userID string) *apiClient {
	token, err := middleware.SignToken(testSecret, userID, time.Hour)
	require.NoError(c.t, err)
	return &apiClient{t: c.t, server: c.server, token: token}
}

func (c *apiClient) anonymous() *apiClient {
	return &apiClient{t: c.t, server: c.server}
}

// do sends a JSON request and decodes the response into out when non-nil.
func (c *apiClient) do(method, path string, body, out any) int {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.server.URL+path, reader)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.server.Client().Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestServer(t *testing.T) *apiClient {
	t.Helper()

	db, err := database.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		JWTSecret:          testSecret,
		CORSAllowedOrigins: []string{"*"},
	}
	app, err := transporthttp.NewApp(context.Background(), cfg, db)
	require.NoError(t, err)
	t.Cleanup(app.Close)

	server := httptest.NewServer(app.Router)
	t.Cleanup(server.Close)
	return &apiClient{t: t, server: server}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	c := newTestServer(t).anonymous()

	var health map[string]string
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/health", nil, &health))
	assert.Equal(t, "ok", health["status"])

	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/metrics", nil, nil))
}

func TestRouter_AuthRequired(t *testing.T) {
	c := newTestServer(t)

	var body errorBody
	assert.Equal(t, http.StatusUnauthorized, c.anonymous().do(http.MethodGet, "/feed", nil, &body))
	assert.Equal(t, "UNAUTHORIZED", body.Error.Code)

	// Public reads work without a token
	var square model.SquareFeedResponse
	assert.Equal(t, http.StatusOK, c.anonymous().do(http.MethodGet, "/square", nil, &square))
	assert.Empty(t, square.Posts)
}

func TestRouter_SquareScenario(t *testing.T) {
	c := newTestServer(t)
	alice, bob := c.as("u1"), c.as("u2")

	// Alice follows Bob
	require.Equal(t, http.StatusOK, alice.do(http.MethodPost, "/users/u2/follow",
		model.FollowRequest{Nickname: "Bob"}, nil))

	// Bob publishes an outfit change, twice
	publish := model.PublishPostRequest{
		PostType:       model.PostTypeOutfitChange,
		OutfitChangeID: ptr("oc_42"),
		ResultImageURI: ptr("https://cdn.example.com/r.jpg"),
		Nickname:       "Bob",
	}
	var first, second model.PublishResult
	require.Equal(t, http.StatusCreated, bob.do(http.MethodPost, "/posts", publish, &first))
	require.Equal(t, http.StatusOK, bob.do(http.MethodPost, "/posts", publish, &second))
	assert.True(t, first.Created)
	assert.False(t, second.Created)
	assert.Equal(t, first.PostID, second.PostID)

	// It shows up in Alice's following feed
	var feed model.SquareFeedResponse
	require.Equal(t, http.StatusOK, alice.do(http.MethodGet, "/feed", nil, &feed))
	require.Len(t, feed.Posts, 1)
	assert.Equal(t, first.PostID, feed.Posts[0].ID)

	// Alice likes and rates it
	var like model.LikeResult
	require.Equal(t, http.StatusOK, alice.do(http.MethodPost, "/posts/"+first.PostID+"/like", nil, &like))
	assert.True(t, like.Liked)

	var rating model.RatingSummary
	require.Equal(t, http.StatusOK, alice.do(http.MethodPut, "/posts/"+first.PostID+"/rating", model.RateRequest{Score: 8}, &rating))

	var errBody errorBody
	assert.Equal(t, http.StatusBadRequest, alice.do(http.MethodPut, "/posts/"+first.PostID+"/rating", model.RateRequest{Score: 11}, &errBody))
	assert.Equal(t, "INVALID_SCORE", errBody.Error.Code)

	// Bob was notified of the follow and the like
	var unread map[string]int
	require.Equal(t, http.StatusOK, bob.do(http.MethodGet, "/notifications/unread-count", nil, &unread))
	assert.Equal(t, 2, unread["count"])

	require.Equal(t, http.StatusOK, bob.do(http.MethodPost, "/notifications/read-all", nil, nil))
	require.Equal(t, http.StatusOK, bob.do(http.MethodGet, "/notifications/unread-count", nil, &unread))
	assert.Equal(t, 0, unread["count"])

	// Anonymous viewers see the post but not as liked
	var post model.SquarePost
	require.Equal(t, http.StatusOK, c.anonymous().do(http.MethodGet, "/posts/"+first.PostID, nil, &post))
	assert.Equal(t, []string{"u1"}, post.Likes)
	assert.False(t, post.IsLiked)

	// Only Bob can delete, and deleting by source works
	assert.Equal(t, http.StatusForbidden, alice.do(http.MethodDelete, "/posts/"+first.PostID, nil, nil))
	require.Equal(t, http.StatusOK, bob.do(http.MethodDelete, "/posts/source/oc_42", nil, nil))
	assert.Equal(t, http.StatusNotFound, c.anonymous().do(http.MethodGet, "/posts/"+first.PostID, nil, nil))
}

func TestRouter_FriendRequests(t *testing.T) {
	c := newTestServer(t)
	alice, bob := c.as("u1"), c.as("u2")

	var errBody errorBody
	assert.Equal(t, http.StatusBadRequest, alice.do(http.MethodPost, "/friends/requests",
		model.SendFriendRequestRequest{TargetUserID: "u1", Nickname: "Alice"}, &errBody))
	assert.Equal(t, "CANNOT_ADD_SELF", errBody.Error.Code)

	var fr model.FriendRequest
	require.Equal(t, http.StatusCreated, alice.do(http.MethodPost, "/friends/requests",
		model.SendFriendRequestRequest{TargetUserID: "u2", TargetNickname: "Bob", Nickname: "Alice"}, &fr))
	assert.Equal(t, model.RequestStatusPending, fr.Status)

	assert.Equal(t, http.StatusConflict, alice.do(http.MethodPost, "/friends/requests",
		model.SendFriendRequestRequest{TargetUserID: "u2", Nickname: "Alice"}, &errBody))
	assert.Equal(t, "REQUEST_ALREADY_SENT", errBody.Error.Code)

	var incoming model.FriendRequestList
	require.Equal(t, http.StatusOK, bob.do(http.MethodGet, "/friends/requests", nil, &incoming))
	require.Len(t, incoming.Incoming, 1)

	// Only the recipient can accept
	assert.Equal(t, http.StatusForbidden, alice.do(http.MethodPost, "/friends/requests/"+fr.ID+"/accept", nil, nil))
	require.Equal(t, http.StatusOK, bob.do(http.MethodPost, "/friends/requests/"+fr.ID+"/accept", nil, nil))
	assert.Equal(t, http.StatusConflict, bob.do(http.MethodPost, "/friends/requests/"+fr.ID+"/accept", nil, &errBody))
	assert.Equal(t, "REQUEST_NOT_PENDING", errBody.Error.Code)

	for _, tc := range []struct {
		client *apiClient
		friend string
	}{{alice, "u2"}, {bob, "u1"}} {
		var list model.FriendListResponse
		require.Equal(t, http.StatusOK, tc.client.do(http.MethodGet, "/friends", nil, &list))
		require.Len(t, list.Friends, 1)
		assert.Equal(t, tc.friend, list.Friends[0].UserID)
	}

	require.Equal(t, http.StatusOK, alice.do(http.MethodDelete, "/friends/u2", nil, nil))
	var list model.FriendListResponse
	require.Equal(t, http.StatusOK, bob.do(http.MethodGet, "/friends", nil, &list))
	assert.Empty(t, list.Friends)
}

func TestRouter_HistoryPrivacy(t *testing.T) {
	c := newTestServer(t)
	alice, bob := c.as("u1"), c.as("u2")

	require.Equal(t, http.StatusCreated, alice.do(http.MethodPost, "/me/history",
		model.CreateHistoryRequest{ImageURI: "https://cdn.example.com/h.jpg", Verdict: "real"}, nil))

	var res model.HistoryListResponse
	require.Equal(t, http.StatusOK, bob.do(http.MethodGet, "/users/u1/history", nil, &res))
	assert.False(t, res.Visible)
	assert.Empty(t, res.Records)

	everyone := model.VisibilityEveryone
	require.Equal(t, http.StatusOK, alice.do(http.MethodPut, "/me/privacy",
		model.UpdatePrivacyRequest{HistoryVisibility: &everyone}, nil))

	require.Equal(t, http.StatusOK, bob.do(http.MethodGet, "/users/u1/history", nil, &res))
	assert.True(t, res.Visible)
	assert.Len(t, res.Records, 1)

	bogus := "strangers"
	var errBody errorBody
	assert.Equal(t, http.StatusBadRequest, alice.do(http.MethodPut, "/me/privacy",
		model.UpdatePrivacyRequest{HistoryVisibility: &bogus}, &errBody))
	assert.Equal(t, "INVALID_PRIVACY_SETTING", errBody.Error.Code)
}

func TestRouter_BadInput(t *testing.T) {
	c := newTestServer(t)
	alice := c.as("u1")

	var errBody errorBody
	assert.Equal(t, http.StatusBadRequest, alice.do(http.MethodGet, "/feed?cursor=garbage", nil, &errBody))
	assert.Equal(t, "INVALID_CURSOR", errBody.Error.Code)

	assert.Equal(t, http.StatusBadRequest, alice.do(http.MethodGet, "/square?limit=500", nil, nil))

	// R2 is not configured in tests
	assert.Equal(t, http.StatusServiceUnavailable, alice.do(http.MethodPost, "/media/posts/presign",
		model.PresignPostUploadRequest{ContentType: "image/jpeg"}, &errBody))
	assert.Equal(t, "MEDIA_UNAVAILABLE", errBody.Error.Code)
}

func ptr[T any](v T) *T { return &v }

func TestRouter_UnknownRouteUsesEnvelope(t *testing.T) {
	c := newTestServer(t).anonymous()

	var errBody errorBody
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/nope", nil, &errBody))
	assert.Equal(t, "NOT_FOUND", errBody.Error.Code)
}
