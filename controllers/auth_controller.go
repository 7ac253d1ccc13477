package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/recipehub/recipehub/config"
	"github.com/recipehub/recipehub/middleware"
	"github.com/recipehub/recipehub/models"
	"github.com/recipehub/recipehub/utils"
)

const tokenDuration = 72 * time.Hour

// AuthController handles registration, login and self-service profile management.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates an AuthController.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

// Register creates a local account with a bcrypt password hash.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		Confirm   string `json:"confirm"`
		Username  string `json:"username"`
		Gender    string `json:"gender"`
		Birthdate string `json:"birthdate"`
		Phone     string `json:"phone"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)

	switch {
	case req.Email == "":
		utils.Error(ctx, http.StatusBadRequest, 40002, "email is required")
		return
	case req.Password == "":
		utils.Error(ctx, http.StatusBadRequest, 40002, "password is required")
		return
	case req.Username == "":
		utils.Error(ctx, http.StatusBadRequest, 40002, "username is required")
		return
	case req.Password != req.Confirm:
		utils.Error(ctx, http.StatusBadRequest, 40003, "passwords do not match")
		return
	case len(req.Password) < 6:
		utils.Error(ctx, http.StatusBadRequest, 40003, "password must be at least 6 characters")
		return
	}

	var existing models.User
	if err := a.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		utils.Error(ctx, http.StatusConflict, 40901, "email already registered")
		return
	}
	if err := a.db.Where("username = ?", req.Username).First(&existing).Error; err == nil {
		utils.Error(ctx, http.StatusConflict, 40902, "username already taken")
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
		Role:         models.RoleUser,
		Gender:       strings.TrimSpace(req.Gender),
		Birthdate:    strings.TrimSpace(req.Birthdate),
		Phone:        strings.TrimSpace(req.Phone),
	}

	if err := a.db.Create(&user).Error; err != nil {
		// The pre-checks race with concurrent registration; the unique
		// indexes are the source of truth.
		if isDuplicateKey(err) {
			utils.Error(ctx, http.StatusConflict, 40901, "email or username already registered")
			return
		}
		utils.Sugar.Errorf("create user failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to create user")
		return
	}

	utils.Success(ctx, gin.H{"user": user})
}

// Login verifies credentials and issues a fresh session token.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, "invalid request payload")
		return
	}

	var user models.User
	if err := a.db.Where("email = ?", strings.TrimSpace(req.Email)).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40102, "invalid email or password")
		return
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40102, "invalid email or password")
		return
	}

	if user.IsBlocked {
		utils.Error(ctx, http.StatusUnauthorized, 40103, "account is blocked")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Username, tokenDuration)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to generate token")
		return
	}

	utils.Success(ctx, gin.H{"token": token, "user": user})
}

// Logout revokes the presented token until its natural expiry.
func (a *AuthController) Logout(ctx *gin.Context) {
	authHeader := ctx.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		utils.Error(ctx, http.StatusUnauthorized, 40104, "invalid authorization header")
		return
	}

	token := strings.TrimSpace(parts[1])
	claims, err := utils.ParseToken(token)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		return
	}

	expiresAt := time.Now().Add(tokenDuration)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	utils.BlacklistToken(token, expiresAt)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the current authenticated user's profile.
func (a *AuthController) Me(ctx *gin.Context) {
	user := middleware.GetCurrentUser(ctx)
	utils.Success(ctx, gin.H{"user": user})
}

// UpdateProfile lets the authenticated user edit profile fields.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	user := middleware.GetCurrentUser(ctx)

	var req struct {
		Username  *string `json:"username"`
		Gender    *string `json:"gender"`
		Birthdate *string `json:"birthdate"`
		Phone     *string `json:"phone"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40005, "invalid request payload")
		return
	}

	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if username == "" {
			utils.Error(ctx, http.StatusBadRequest, 40002, "username is required")
			return
		}
		if username != user.Username {
			var existing models.User
			if err := a.db.Where("username = ?", username).First(&existing).Error; err == nil {
				utils.Error(ctx, http.StatusConflict, 40902, "username already taken")
				return
			}
			user.Username = username
		}
	}
	if req.Gender != nil {
		user.Gender = strings.TrimSpace(*req.Gender)
	}
	if req.Birthdate != nil {
		user.Birthdate = strings.TrimSpace(*req.Birthdate)
	}
	if req.Phone != nil {
		user.Phone = strings.TrimSpace(*req.Phone)
	}

	if err := a.db.Save(user).Error; err != nil {
		if isDuplicateKey(err) {
			utils.Error(ctx, http.StatusConflict, 40902, "username already taken")
			return
		}
		utils.Sugar.Errorf("update profile failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to update profile")
		return
	}

	utils.Success(ctx, gin.H{"user": user})
}

// ChangePassword verifies the old password before setting a new one.
func (a *AuthController) ChangePassword(ctx *gin.Context) {
	user := middleware.GetCurrentUser(ctx)

	var req struct {
		OldPassword string `json:"old_password" binding:"required"`
		NewPassword string `json:"new_password" binding:"required"`
		Confirm     string `json:"confirm"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40006, "invalid request payload")
		return
	}

	if !utils.CheckPassword(user.PasswordHash, req.OldPassword) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "old password is incorrect")
		return
	}
	if len(req.NewPassword) < 6 {
		utils.Error(ctx, http.StatusBadRequest, 40003, "password must be at least 6 characters")
		return
	}
	if req.NewPassword != req.Confirm {
		utils.Error(ctx, http.StatusBadRequest, 40003, "passwords do not match")
		return
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to hash password")
		return
	}

	if err := a.db.Model(user).Update("password_hash", hash).Error; err != nil {
		utils.Sugar.Errorf("change password failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50005, "failed to change password")
		return
	}

	utils.Success(ctx, gin.H{"message": "password changed"})
}

// UploadAvatar replaces the user's avatar with an uploaded image.
func (a *AuthController) UploadAvatar(ctx *gin.Context) {
	user := middleware.GetCurrentUser(ctx)

	file, header, err := ctx.Request.FormFile("file")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40007, "no file uploaded")
		return
	}
	defer file.Close()

	if !utils.AllowedImageExt(header.Filename) {
		utils.Error(ctx, http.StatusBadRequest, 40008, "only png, jpg, jpeg and gif files are accepted")
		return
	}

	cfg := config.Get()
	path, err := utils.SaveImage(file, header, cfg.UploadDir, "avatars")
	if err != nil {
		utils.Sugar.Errorf("avatar upload failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50006, "failed to save avatar")
		return
	}

	oldAvatar := user.AvatarPath
	user.AvatarPath = path
	if err := a.db.Model(user).Update("avatar_path", path).Error; err != nil {
		utils.RemoveStoredFile(path)
		utils.Error(ctx, http.StatusInternalServerError, 50007, "failed to update avatar")
		return
	}
	utils.RemoveStoredFile(oldAvatar)

	utils.Success(ctx, gin.H{"avatar_path": path})
}

// isDuplicateKey reports whether err comes from a unique index violation.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint")
}

func parsePagination(pageStr, sizeStr string, defaultSize int) (int, int) {
	page := 1
	pageSize := defaultSize
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return page, pageSize
}

func paginationPayload(page, pageSize int, total int64) gin.H {
	return gin.H{
		"page":        page,
		"page_size":   pageSize,
		"total":       total,
		"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
	}
}
