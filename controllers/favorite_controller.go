package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/recipehub/recipehub/middleware"
	"github.com/recipehub/recipehub/models"
	"github.com/recipehub/recipehub/utils"
)

// FavoriteController manages the two per-user membership relations on posts:
// favorites and saved recipes. Both share toggle semantics.
type FavoriteController struct {
	db *gorm.DB
}

// NewFavoriteController creates a FavoriteController.
func NewFavoriteController(db *gorm.DB) *FavoriteController {
	return &FavoriteController{db: db}
}

// ToggleFavorite flips the caller's favorite on a post and returns the
// resulting state with the post's favorite count. Two calls restore the
// original state.
func (f *FavoriteController) ToggleFavorite(ctx *gin.Context) {
	f.toggle(ctx, "favorited", func(userID, postID uint) (interface{}, interface{}) {
		return &models.Favorite{UserID: userID, PostID: postID}, &models.Favorite{}
	})
}

// ToggleSave flips the caller's saved mark on a post.
func (f *FavoriteController) ToggleSave(ctx *gin.Context) {
	f.toggle(ctx, "saved", func(userID, postID uint) (interface{}, interface{}) {
		return &models.SavedRecipe{UserID: userID, PostID: postID}, &models.SavedRecipe{}
	})
}

func (f *FavoriteController) toggle(ctx *gin.Context, stateKey string, rows func(userID, postID uint) (interface{}, interface{})) {
	user := middleware.GetCurrentUser(ctx)

	postID64, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid post id")
		return
	}
	postID := uint(postID64)

	var post models.Post
	if err := f.db.First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
			return
		}
		utils.Sugar.Errorf("load post failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to load post")
		return
	}

	newRow, model := rows(user.ID, postID)

	var active bool
	err = f.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND post_id = ?", user.ID, postID).Delete(model)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			active = false
			return nil
		}
		active = true
		return tx.Create(newRow).Error
	})
	if err != nil {
		utils.Sugar.Errorf("toggle %s failed: %v", stateKey, err)
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to toggle "+stateKey)
		return
	}

	var count int64
	f.db.Model(model).Where("post_id = ?", postID).Count(&count)

	utils.CacheDelete(postDetailCacheKey(postID))
	utils.Success(ctx, gin.H{stateKey: active, "count": count})
}

// ListFavorites returns the caller's favorited posts, newest favorite first.
func (f *FavoriteController) ListFavorites(ctx *gin.Context) {
	f.listMembership(ctx, "favorites")
}

// ListSaved returns the caller's saved posts.
func (f *FavoriteController) ListSaved(ctx *gin.Context) {
	f.listMembership(ctx, "saved_recipes")
}

func (f *FavoriteController) listMembership(ctx *gin.Context, table string) {
	user := middleware.GetCurrentUser(ctx)
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"), postsPerPage)

	base := f.db.Model(&models.Post{}).
		Joins("JOIN "+table+" m ON m.post_id = posts.id").
		Where("m.user_id = ?", user.ID)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		utils.Sugar.Errorf("count %s failed: %v", table, err)
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to count posts")
		return
	}

	var posts []models.Post
	err := base.Preload("User").Preload("Images").
		Order("m.created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&posts).Error
	if err != nil {
		utils.Sugar.Errorf("list %s failed: %v", table, err)
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to list posts")
		return
	}

	items := make([]gin.H, 0, len(posts))
	for i := range posts {
		items = append(items, gin.H{
			"post":       posts[i],
			"main_image": posts[i].MainImage(),
		})
	}

	utils.Success(ctx, gin.H{
		"items":      items,
		"pagination": paginationPayload(page, pageSize, total),
	})
}
