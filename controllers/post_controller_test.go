package controllers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishAndViewRecipe(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("chef@example.com", "chef", "secret1")

	postID := env.createPost(token, "Pho", "soup")

	// Anonymous detail view.
	w := env.doJSON(http.MethodGet, fmt.Sprintf("/api/v1/posts/%d", postID), "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := dataMap(t, w)
	post := data["post"].(map[string]interface{})
	assert.Equal(t, "Pho", post["title"])
	assert.Equal(t, "beef,noodles", post["ingredients"])
	assert.Equal(t, "boil", post["instructions"])
	assert.Equal(t, "chef", post["author"].(map[string]interface{})["username"])
	assert.Equal(t, "soup", data["tag"])
	assert.EqualValues(t, 0, data["comment_count"])
	assert.EqualValues(t, 0, data["favorite_count"])
	_, hasFavorite := data["is_favorite"]
	assert.False(t, hasFavorite, "anonymous view should not carry is_favorite")

	// Authenticated view after favoriting.
	w = env.doJSON(http.MethodPost, fmt.Sprintf("/api/v1/posts/%d/favorite", postID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	toggled := dataMap(t, w)
	assert.Equal(t, true, toggled["favorited"])
	assert.EqualValues(t, 1, toggled["count"])

	w = env.doJSON(http.MethodGet, fmt.Sprintf("/api/v1/posts/%d", postID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data = dataMap(t, w)
	assert.Equal(t, true, data["is_favorite"])
	assert.EqualValues(t, 1, data["favorite_count"])

	// Second toggle restores the original state.
	w = env.doJSON(http.MethodPost, fmt.Sprintf("/api/v1/posts/%d/favorite", postID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	toggled = dataMap(t, w)
	assert.Equal(t, false, toggled["favorited"])
	assert.EqualValues(t, 0, toggled["count"])
}

func TestCreatePostRequiresFields(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("chef@example.com", "chef", "secret1")

	w := env.doForm(http.MethodPost, "/api/v1/posts", token, map[string]string{
		"ingredients":  "flour",
		"instructions": "bake",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 40020, decode(t, w).Code)

	w = env.doForm(http.MethodPost, "/api/v1/posts", token, map[string]string{
		"title":        "Bread",
		"instructions": "bake",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 40021, decode(t, w).Code)

	w = env.doForm(http.MethodPost, "/api/v1/posts", token, map[string]string{
		"title":       "Bread",
		"ingredients": "flour",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 40022, decode(t, w).Code)
}

func TestCreatePostRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	w := env.doForm(http.MethodPost, "/api/v1/posts", "", map[string]string{
		"title":        "Bread",
		"ingredients":  "flour",
		"instructions": "bake",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdatePostOwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register("chef@example.com", "chef", "secret1")
	other := env.register("guest@example.com", "guest", "secret1")
	postID := env.createPost(owner, "Pho", "soup")

	payload := gin.H{
		"title":        "Pho Bo",
		"ingredients":  "beef,noodles,herbs",
		"instructions": "boil slowly",
		"tag":          "soup",
	}

	w := env.doJSON(http.MethodPut, fmt.Sprintf("/api/v1/posts/%d", postID), other, payload)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = env.doJSON(http.MethodPut, fmt.Sprintf("/api/v1/posts/%d", postID), owner, payload)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	post := dataMap(t, w)["post"].(map[string]interface{})
	assert.Equal(t, "Pho Bo", post["title"])
}

func TestDeletePostOwnerAndAdmin(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register("chef@example.com", "chef", "secret1")
	other := env.register("guest@example.com", "guest", "secret1")

	first := env.createPost(owner, "Pho", "soup")
	second := env.createPost(owner, "Ramen", "soup")

	w := env.doJSON(http.MethodDelete, fmt.Sprintf("/api/v1/posts/%d", first), other, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = env.doJSON(http.MethodDelete, fmt.Sprintf("/api/v1/posts/%d", first), owner, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Admins can delete anyone's post.
	w = env.doJSON(http.MethodDelete, fmt.Sprintf("/api/v1/posts/%d", second), env.adminToken(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.doJSON(http.MethodGet, fmt.Sprintf("/api/v1/posts/%d", second), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListPostsPagination(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("chef@example.com", "chef", "secret1")

	for i := 0; i < 10; i++ {
		env.createPost(token, fmt.Sprintf("Recipe %02d", i), "misc")
	}

	w := env.doJSON(http.MethodGet, "/api/v1/posts", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := dataMap(t, w)
	items := data["items"].([]interface{})
	assert.Len(t, items, 9)

	pagination := data["pagination"].(map[string]interface{})
	assert.EqualValues(t, 10, pagination["total"])
	assert.EqualValues(t, 2, pagination["total_pages"])

	w = env.doJSON(http.MethodGet, "/api/v1/posts?page=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	items = dataMap(t, w)["items"].([]interface{})
	assert.Len(t, items, 1)
}

func TestSearchPosts(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("chef@example.com", "chef", "secret1")

	phoID := env.createPost(token, "Pho", "soup")
	env.createPost(token, "Banh Mi", "sandwich")

	w := env.doJSON(http.MethodGet, "/api/v1/posts/search?q=pho", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := dataMap(t, w)["items"].([]interface{})
	require.Len(t, items, 1)
	post := items[0].(map[string]interface{})["post"].(map[string]interface{})
	assert.EqualValues(t, phoID, post["id"])

	w = env.doJSON(http.MethodGet, "/api/v1/posts/search?tag=sandwich", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	items = dataMap(t, w)["items"].([]interface{})
	require.Len(t, items, 1)
	post = items[0].(map[string]interface{})["post"].(map[string]interface{})
	assert.Equal(t, "Banh Mi", post["title"])

	w = env.doJSON(http.MethodGet, "/api/v1/posts/search?q=nothing-matches", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, dataMap(t, w)["items"])
}

func TestSearchSortByFavorites(t *testing.T) {
	env := newTestEnv(t)
	chef := env.register("chef@example.com", "chef", "secret1")
	fanA := env.register("a@example.com", "fan-a", "secret1")
	fanB := env.register("b@example.com", "fan-b", "secret1")

	plainID := env.createPost(chef, "Plain Toast", "misc")
	popularID := env.createPost(chef, "Popular Pho", "misc")

	for _, tok := range []string{fanA, fanB} {
		w := env.doJSON(http.MethodPost, fmt.Sprintf("/api/v1/posts/%d/favorite", popularID), tok, nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := env.doJSON(http.MethodGet, "/api/v1/posts/search?sort=favorites", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := dataMap(t, w)
	items := data["items"].([]interface{})
	require.Len(t, items, 2)
	first := items[0].(map[string]interface{})["post"].(map[string]interface{})
	second := items[1].(map[string]interface{})["post"].(map[string]interface{})
	assert.EqualValues(t, popularID, first["id"])
	assert.EqualValues(t, plainID, second["id"])

	// Total counts posts, not favorite rows or groups.
	pagination := data["pagination"].(map[string]interface{})
	assert.EqualValues(t, 2, pagination["total"])

	// Sorting composes with the title filter.
	w = env.doJSON(http.MethodGet, "/api/v1/posts/search?q=pho&sort=favorites", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data = dataMap(t, w)
	require.Len(t, data["items"].([]interface{}), 1)
	assert.EqualValues(t, 1, data["pagination"].(map[string]interface{})["total"])
}

func TestListByTag(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("chef@example.com", "chef", "secret1")

	env.createPost(token, "Pho", "soup")
	env.createPost(token, "Ramen", "soup")
	env.createPost(token, "Banh Mi", "sandwich")

	w := env.doJSON(http.MethodGet, "/api/v1/tags/soup/posts", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := dataMap(t, w)["items"].([]interface{})
	assert.Len(t, items, 2)
}

func TestListMyPosts(t *testing.T) {
	env := newTestEnv(t)
	chef := env.register("chef@example.com", "chef", "secret1")
	other := env.register("guest@example.com", "guest", "secret1")

	env.createPost(chef, "Pho", "soup")
	env.createPost(other, "Ramen", "soup")

	w := env.doJSON(http.MethodGet, "/api/v1/users/me/posts", chef, nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := dataMap(t, w)["items"].([]interface{})
	require.Len(t, items, 1)
	post := items[0].(map[string]interface{})["post"].(map[string]interface{})
	assert.Equal(t, "Pho", post["title"])
}

func TestDeleteMultipleSkipsForeignPosts(t *testing.T) {
	env := newTestEnv(t)
	chef := env.register("chef@example.com", "chef", "secret1")
	other := env.register("guest@example.com", "guest", "secret1")

	mine := env.createPost(chef, "Pho", "soup")
	notMine := env.createPost(other, "Ramen", "soup")

	w := env.doJSON(http.MethodPost, "/api/v1/posts/delete-multiple", chef, gin.H{
		"post_ids": []uint{mine, notMine, 9999},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := dataMap(t, w)
	deleted := data["deleted"].([]interface{})
	skipped := data["skipped"].([]interface{})
	assert.Len(t, deleted, 1)
	assert.Len(t, skipped, 2)

	w = env.doJSON(http.MethodGet, fmt.Sprintf("/api/v1/posts/%d", notMine), "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
