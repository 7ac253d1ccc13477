package controllers_test

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recipehub/recipehub/models"
)

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	token := env.register("alice@example.com", "alice", "secret1")
	require.NotEmpty(t, token)

	w := env.doJSON(http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := dataMap(t, w)
	user := data["user"].(map[string]interface{})
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, "alice@example.com", user["email"])
	assert.Equal(t, models.RoleUser, user["role"])
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.register("alice@example.com", "alice", "secret1")

	w := env.doJSON(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email":    "alice@example.com",
		"username": "alice2",
		"password": "secret1",
		"confirm":  "secret1",
	})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 40901, decode(t, w).Code)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	env := newTestEnv(t)
	env.register("alice@example.com", "alice", "secret1")

	w := env.doJSON(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email":    "other@example.com",
		"username": "alice",
		"password": "secret1",
		"confirm":  "secret1",
	})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 40902, decode(t, w).Code)
}

func TestRegisterPasswordMismatch(t *testing.T) {
	env := newTestEnv(t)

	w := env.doJSON(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email":    "alice@example.com",
		"username": "alice",
		"password": "secret1",
		"confirm":  "secret2",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.register("alice@example.com", "alice", "secret1")

	w := env.doJSON(http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    "alice@example.com",
		"password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 40102, decode(t, w).Code)

	w = env.doJSON(http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    "nobody@example.com",
		"password": "secret1",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 40102, decode(t, w).Code)
}

func TestLoginRejectsBlockedUser(t *testing.T) {
	env := newTestEnv(t)
	env.register("alice@example.com", "alice", "secret1")

	require.NoError(t, env.db.Model(&models.User{}).
		Where("email = ?", "alice@example.com").
		Update("is_blocked", true).Error)

	w := env.doJSON(http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    "alice@example.com",
		"password": "secret1",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 40103, decode(t, w).Code)
}

func TestLogoutInvalidatesToken(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("alice@example.com", "alice", "secret1")

	w := env.doJSON(http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.doJSON(http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("alice@example.com", "alice", "secret1")

	w := env.doJSON(http.MethodPatch, "/api/v1/auth/profile", token, gin.H{
		"username":  "alice-cooks",
		"gender":    "female",
		"birthdate": "1990-04-01",
		"phone":     "555-0101",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	user := dataMap(t, w)["user"].(map[string]interface{})
	assert.Equal(t, "alice-cooks", user["username"])
	assert.Equal(t, "female", user["gender"])
}

func TestUpdateProfileUsernameConflict(t *testing.T) {
	env := newTestEnv(t)
	env.register("bob@example.com", "bob", "secret1")
	token := env.register("alice@example.com", "alice", "secret1")

	w := env.doJSON(http.MethodPatch, "/api/v1/auth/profile", token, gin.H{
		"username": "bob",
	})
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("alice@example.com", "alice", "secret1")

	w := env.doJSON(http.MethodPost, "/api/v1/auth/change-password", token, gin.H{
		"old_password": "wrong",
		"new_password": "newsecret",
		"confirm":      "newsecret",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.doJSON(http.MethodPost, "/api/v1/auth/change-password", token, gin.H{
		"old_password": "secret1",
		"new_password": "newsecret",
		"confirm":      "newsecret",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	env.login("alice@example.com", "newsecret")
}

func TestAuthRequiredWithoutToken(t *testing.T) {
	env := newTestEnv(t)

	w := env.doJSON(http.MethodGet, "/api/v1/auth/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 40101, decode(t, w).Code)

	w = env.doJSON(http.MethodGet, "/api/v1/auth/me", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
