package controllers

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/recipehub/recipehub/config"
	"github.com/recipehub/recipehub/models"
	"github.com/recipehub/recipehub/utils"
)

// AdminController provides elevated user and post management. Every route is
// behind AuthRequired + AdminRequired.
type AdminController struct {
	db *gorm.DB
}

// NewAdminController creates an AdminController.
func NewAdminController(db *gorm.DB) *AdminController {
	return &AdminController{db: db}
}

// CreateDefaultAdmin inserts the configured bootstrap admin account iff no
// admin exists yet. Safe to call on every boot.
func CreateDefaultAdmin(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	cfg := config.Get()
	if cfg.DefaultAdminPassword == "" {
		return fmt.Errorf("no admin account exists and DEFAULT_ADMIN_PASSWORD is not set")
	}
	hash, err := utils.HashPassword(cfg.DefaultAdminPassword)
	if err != nil {
		return err
	}
	admin := models.User{
		Email:        cfg.DefaultAdminEmail,
		Username:     cfg.DefaultAdminUsername,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	}
	return db.Create(&admin).Error
}

// ListUsers returns a paginated user list.
func (a *AdminController) ListUsers(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"), 20)

	var total int64
	if err := a.db.Model(&models.User{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to count users")
		return
	}

	var users []models.User
	if err := a.db.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&users).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to list users")
		return
	}

	utils.Success(ctx, gin.H{
		"items":      users,
		"pagination": paginationPayload(page, pageSize, total),
	})
}

// CreateUser creates an account with an explicit role.
func (a *AdminController) CreateUser(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid request payload")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	if req.Email == "" {
		utils.Error(ctx, http.StatusBadRequest, 40051, "email is required")
		return
	}
	if req.Password == "" {
		utils.Error(ctx, http.StatusBadRequest, 40051, "password is required")
		return
	}
	if req.Username == "" {
		utils.Error(ctx, http.StatusBadRequest, 40051, "username is required")
		return
	}
	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleUser && role != models.RoleAdmin {
		utils.Error(ctx, http.StatusBadRequest, 40052, "invalid role")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to hash password")
		return
	}

	user := models.User{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
		Role:         role,
	}
	if err := a.db.Create(&user).Error; err != nil {
		if isDuplicateKey(err) {
			utils.Error(ctx, http.StatusConflict, 40901, "email or username already registered")
			return
		}
		utils.Sugar.Errorf("admin create user failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to create user")
		return
	}

	utils.Success(ctx, gin.H{"user": user})
}

// UpdateUser edits a user's email, username or role.
func (a *AdminController) UpdateUser(ctx *gin.Context) {
	user, ok := a.loadUser(ctx)
	if !ok {
		return
	}

	var req struct {
		Email    *string `json:"email"`
		Username *string `json:"username"`
		Role     *string `json:"role"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid request payload")
		return
	}

	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if email == "" {
			utils.Error(ctx, http.StatusBadRequest, 40051, "email is required")
			return
		}
		user.Email = email
	}
	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if username == "" {
			utils.Error(ctx, http.StatusBadRequest, 40051, "username is required")
			return
		}
		user.Username = username
	}
	if req.Role != nil {
		if *req.Role != models.RoleUser && *req.Role != models.RoleAdmin {
			utils.Error(ctx, http.StatusBadRequest, 40052, "invalid role")
			return
		}
		user.Role = *req.Role
	}

	if err := a.db.Save(user).Error; err != nil {
		if isDuplicateKey(err) {
			utils.Error(ctx, http.StatusConflict, 40901, "email or username already registered")
			return
		}
		utils.Sugar.Errorf("admin update user failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50052, "failed to update user")
		return
	}

	utils.Success(ctx, gin.H{"user": user})
}

// BlockUser denies an account login and kills its live sessions. A blocked
// admin loses their own session the same way, on their very next request.
func (a *AdminController) BlockUser(ctx *gin.Context) {
	a.setBlocked(ctx, true)
}

// UnblockUser lets a blocked account log in again.
func (a *AdminController) UnblockUser(ctx *gin.Context) {
	a.setBlocked(ctx, false)
}

func (a *AdminController) setBlocked(ctx *gin.Context, blocked bool) {
	user, ok := a.loadUser(ctx)
	if !ok {
		return
	}

	if err := a.db.Model(user).Update("is_blocked", blocked).Error; err != nil {
		utils.Sugar.Errorf("set blocked=%v for user %d failed: %v", blocked, user.ID, err)
		utils.Error(ctx, http.StatusInternalServerError, 50053, "failed to update user")
		return
	}

	utils.Success(ctx, gin.H{"user_id": user.ID, "is_blocked": blocked})
}

// ResetPassword sets an 8-digit numeric password and returns the plaintext
// once in the response to the requesting admin. It is never logged or stored.
func (a *AdminController) ResetPassword(ctx *gin.Context) {
	user, ok := a.loadUser(ctx)
	if !ok {
		return
	}

	newPassword, err := numericPassword(8)
	if err != nil {
		utils.Sugar.Errorf("generate reset password failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50054, "failed to reset password")
		return
	}
	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to hash password")
		return
	}

	if err := a.db.Model(user).Update("password_hash", hash).Error; err != nil {
		utils.Sugar.Errorf("reset password for user %d failed: %v", user.ID, err)
		utils.Error(ctx, http.StatusInternalServerError, 50054, "failed to reset password")
		return
	}

	utils.Success(ctx, gin.H{"user_id": user.ID, "new_password": newPassword})
}

// DeleteUser removes an account and everything it owns.
func (a *AdminController) DeleteUser(ctx *gin.Context) {
	user, ok := a.loadUser(ctx)
	if !ok {
		return
	}

	if err := a.deleteUserCascade(user); err != nil {
		utils.Sugar.Errorf("delete user %d failed: %v", user.ID, err)
		utils.Error(ctx, http.StatusInternalServerError, 50055, "failed to delete user")
		return
	}

	utils.InvalidateByPrefix("cache:posts:list:")
	utils.Success(ctx, gin.H{"message": "user deleted"})
}

// DeleteMultipleUsers removes a batch of accounts, reporting per-id outcome.
func (a *AdminController) DeleteMultipleUsers(ctx *gin.Context) {
	var req struct {
		UserIDs []uint `json:"user_ids" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil || len(req.UserIDs) == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40053, "user_ids are required")
		return
	}

	deleted := []uint{}
	skipped := []uint{}
	for _, id := range req.UserIDs {
		var user models.User
		if err := a.db.First(&user, id).Error; err != nil {
			skipped = append(skipped, id)
			continue
		}
		if err := a.deleteUserCascade(&user); err != nil {
			utils.Sugar.Errorf("bulk delete user %d failed: %v", id, err)
			skipped = append(skipped, id)
			continue
		}
		deleted = append(deleted, id)
	}

	utils.InvalidateByPrefix("cache:posts:list:")
	utils.Success(ctx, gin.H{"deleted": deleted, "skipped": skipped})
}

// ListPosts returns all posts for the admin dashboard, newest first.
func (a *AdminController) ListPosts(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"), 20)

	var total int64
	if err := a.db.Model(&models.Post{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50027, "failed to count posts")
		return
	}

	var posts []models.Post
	err := a.db.Preload("User").Preload("Images").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&posts).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50028, "failed to list posts")
		return
	}

	utils.Success(ctx, gin.H{
		"items":      posts,
		"pagination": paginationPayload(page, pageSize, total),
	})
}

// DeletePost removes any post regardless of owner.
func (a *AdminController) DeletePost(ctx *gin.Context) {
	postID := ctx.Param("id")
	var post models.Post
	if err := a.db.Preload("Images").First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to load post")
		return
	}

	if err := deletePostCascade(a.db, &post); err != nil {
		utils.Sugar.Errorf("admin delete post %d failed: %v", post.ID, err)
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to delete post")
		return
	}

	utils.InvalidateByPrefix("cache:posts:list:")
	utils.CacheDelete(postDetailCacheKey(post.ID))
	utils.Success(ctx, gin.H{"message": "post deleted"})
}

func (a *AdminController) loadUser(ctx *gin.Context) (*models.User, bool) {
	userID := ctx.Param("id")
	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40403, "user not found")
			return nil, false
		}
		utils.Sugar.Errorf("load user failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50056, "failed to load user")
		return nil, false
	}
	return &user, true
}

// deleteUserCascade removes the user's posts (with their files and dependent
// rows), comments, reactions and memberships, then the account itself.
func (a *AdminController) deleteUserCascade(user *models.User) error {
	var posts []models.Post
	if err := a.db.Preload("Images").Where("user_id = ?", user.ID).Find(&posts).Error; err != nil {
		return err
	}
	for i := range posts {
		if err := deletePostCascade(a.db, &posts[i]); err != nil {
			return err
		}
	}

	utils.RemoveStoredFile(user.AvatarPath)

	return a.db.Transaction(func(tx *gorm.DB) error {
		for _, m := range []interface{}{
			&models.CommentReaction{}, &models.Comment{},
			&models.Favorite{}, &models.SavedRecipe{},
		} {
			if err := tx.Where("user_id = ?", user.ID).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.User{}, user.ID).Error
	})
}

const digits = "0123456789"

// numericPassword builds an n-digit password from crypto/rand.
func numericPassword(n int) (string, error) {
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", err
		}
		b[i] = digits[idx.Int64()]
	}
	return string(b), nil
}
