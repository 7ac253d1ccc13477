package controllers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) createComment(token string, postID uint, content string) uint {
	e.t.Helper()
	w := e.doJSON(http.MethodPost, fmt.Sprintf("/api/v1/posts/%d/comments", postID), token, gin.H{
		"content": content,
	})
	require.Equal(e.t, http.StatusOK, w.Code, w.Body.String())
	comment := dataMap(e.t, w)["comment"].(map[string]interface{})
	return uint(comment["id"].(float64))
}

func TestCreateComment(t *testing.T) {
	env := newTestEnv(t)
	chef := env.register("chef@example.com", "chef", "secret1")
	guest := env.register("guest@example.com", "guest", "secret1")
	postID := env.createPost(chef, "Pho", "soup")

	env.createComment(guest, postID, "looks delicious")

	w := env.doJSON(http.MethodGet, fmt.Sprintf("/api/v1/posts/%d/comments", postID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := dataMap(t, w)
	items := data["items"].([]interface{})
	require.Len(t, items, 1)
	comment := items[0].(map[string]interface{})
	assert.Equal(t, "looks delicious", comment["content"])
	assert.Equal(t, "guest", comment["author"].(map[string]interface{})["username"])
}

func TestCreateCommentRejectsEmptyContent(t *testing.T) {
	env := newTestEnv(t)
	chef := env.register("chef@example.com", "chef", "secret1")
	postID := env.createPost(chef, "Pho", "soup")

	w := env.doJSON(http.MethodPost, fmt.Sprintf("/api/v1/posts/%d/comments", postID), chef, gin.H{
		"content": "   ",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCommentOnMissingPost(t *testing.T) {
	env := newTestEnv(t)
	chef := env.register("chef@example.com", "chef", "secret1")

	w := env.doJSON(http.MethodPost, "/api/v1/posts/9999/comments", chef, gin.H{
		"content": "hello",
	})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateCommentAuthorOnly(t *testing.T) {
	env := newTestEnv(t)
	chef := env.register("chef@example.com", "chef", "secret1")
	guest := env.register("guest@example.com", "guest", "secret1")
	postID := env.createPost(chef, "Pho", "soup")
	commentID := env.createComment(guest, postID, "first draft")

	payload := gin.H{"content": "second draft"}

	w := env.doJSON(http.MethodPut, fmt.Sprintf("/api/v1/comments/%d", commentID), chef, payload)
	require.Equal(t, http.StatusForbidden, w.Code)

	// Admins cannot edit either, only delete.
	w = env.doJSON(http.MethodPut, fmt.Sprintf("/api/v1/comments/%d", commentID), env.adminToken(), payload)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = env.doJSON(http.MethodPut, fmt.Sprintf("/api/v1/comments/%d", commentID), guest, payload)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	comment := dataMap(t, w)["comment"].(map[string]interface{})
	assert.Equal(t, "second draft", comment["content"])
}

func TestDeleteCommentAuthorOrAdmin(t *testing.T) {
	env := newTestEnv(t)
	chef := env.register("chef@example.com", "chef", "secret1")
	guest := env.register("guest@example.com", "guest", "secret1")
	postID := env.createPost(chef, "Pho", "soup")

	first := env.createComment(guest, postID, "one")
	second := env.createComment(guest, postID, "two")

	// The post owner is not the comment author and may not delete.
	w := env.doJSON(http.MethodDelete, fmt.Sprintf("/api/v1/comments/%d", first), chef, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = env.doJSON(http.MethodDelete, fmt.Sprintf("/api/v1/comments/%d", first), guest, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.doJSON(http.MethodDelete, fmt.Sprintf("/api/v1/comments/%d", second), env.adminToken(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.doJSON(http.MethodGet, fmt.Sprintf("/api/v1/posts/%d/comments", postID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, dataMap(t, w)["items"])
}

func TestReactionToggleAndSwitch(t *testing.T) {
	env := newTestEnv(t)
	chef := env.register("chef@example.com", "chef", "secret1")
	guest := env.register("guest@example.com", "guest", "secret1")
	postID := env.createPost(chef, "Pho", "soup")
	commentID := env.createComment(chef, postID, "try it with extra herbs")
	reactPath := fmt.Sprintf("/api/v1/comments/%d/react", commentID)

	// Like.
	w := env.doJSON(http.MethodPost, reactPath, guest, gin.H{"reaction": "like"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := dataMap(t, w)
	assert.EqualValues(t, 1, data["likes"])
	assert.EqualValues(t, 0, data["dislikes"])
	assert.Equal(t, "like", data["user_reaction"])

	// Switch to dislike.
	w = env.doJSON(http.MethodPost, reactPath, guest, gin.H{"reaction": "dislike"})
	require.Equal(t, http.StatusOK, w.Code)
	data = dataMap(t, w)
	assert.EqualValues(t, 0, data["likes"])
	assert.EqualValues(t, 1, data["dislikes"])
	assert.Equal(t, "dislike", data["user_reaction"])

	// Same reaction again removes it.
	w = env.doJSON(http.MethodPost, reactPath, guest, gin.H{"reaction": "dislike"})
	require.Equal(t, http.StatusOK, w.Code)
	data = dataMap(t, w)
	assert.EqualValues(t, 0, data["likes"])
	assert.EqualValues(t, 0, data["dislikes"])

	// Two users react independently.
	w = env.doJSON(http.MethodPost, reactPath, chef, gin.H{"reaction": "like"})
	require.Equal(t, http.StatusOK, w.Code)
	w = env.doJSON(http.MethodPost, reactPath, guest, gin.H{"reaction": "like"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, dataMap(t, w)["likes"])
}

func TestReactionRejectsUnknownKind(t *testing.T) {
	env := newTestEnv(t)
	chef := env.register("chef@example.com", "chef", "secret1")
	postID := env.createPost(chef, "Pho", "soup")
	commentID := env.createComment(chef, postID, "note")

	w := env.doJSON(http.MethodPost, fmt.Sprintf("/api/v1/comments/%d/react", commentID), chef, gin.H{
		"reaction": "love",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}
