package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/recipehub/recipehub/middleware"
	"github.com/recipehub/recipehub/models"
	"github.com/recipehub/recipehub/utils"
)

// CommentController manages comments and their like/dislike reactions.
type CommentController struct {
	db *gorm.DB
}

// NewCommentController creates a CommentController.
func NewCommentController(db *gorm.DB) *CommentController {
	return &CommentController{db: db}
}

// CreateComment adds a comment to a post, authored by the current user.
func (c *CommentController) CreateComment(ctx *gin.Context) {
	user := middleware.GetCurrentUser(ctx)

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}

	content := strings.TrimSpace(utils.Sanitize(req.Content))
	if content == "" {
		utils.Error(ctx, http.StatusBadRequest, 40031, "content cannot be empty")
		return
	}

	postID := ctx.Param("id")
	var post models.Post
	if err := c.db.First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
			return
		}
		utils.Sugar.Errorf("load post failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to load post")
		return
	}

	comment := models.Comment{
		PostID:  post.ID,
		UserID:  user.ID,
		Content: content,
	}
	if err := c.db.Create(&comment).Error; err != nil {
		utils.Sugar.Errorf("create comment failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to create comment")
		return
	}

	if err := c.db.Preload("User").First(&comment, comment.ID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to load comment")
		return
	}

	utils.CacheDelete(postDetailCacheKey(post.ID))
	utils.Success(ctx, gin.H{"comment": comment})
}

// UpdateComment lets the author edit their comment. Admins may not edit
// someone else's words, only delete them.
func (c *CommentController) UpdateComment(ctx *gin.Context) {
	user := middleware.GetCurrentUser(ctx)

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}

	content := strings.TrimSpace(utils.Sanitize(req.Content))
	if content == "" {
		utils.Error(ctx, http.StatusBadRequest, 40031, "content cannot be empty")
		return
	}

	comment, ok := c.loadComment(ctx)
	if !ok {
		return
	}
	if comment.UserID != user.ID {
		utils.Error(ctx, http.StatusForbidden, 40303, "you can only edit your own comments")
		return
	}

	comment.Content = content
	if err := c.db.Save(comment).Error; err != nil {
		utils.Sugar.Errorf("update comment failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to update comment")
		return
	}

	utils.CacheDelete(postDetailCacheKey(comment.PostID))
	utils.Success(ctx, gin.H{"comment": comment})
}

// DeleteComment removes a comment. The author and admins may delete.
func (c *CommentController) DeleteComment(ctx *gin.Context) {
	user := middleware.GetCurrentUser(ctx)

	comment, ok := c.loadComment(ctx)
	if !ok {
		return
	}
	if comment.UserID != user.ID && !user.IsAdmin() {
		utils.Error(ctx, http.StatusForbidden, 40304, "you can only delete your own comments")
		return
	}

	err := c.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("comment_id = ?", comment.ID).Delete(&models.CommentReaction{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Comment{}, comment.ID).Error
	})
	if err != nil {
		utils.Sugar.Errorf("delete comment failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50033, "failed to delete comment")
		return
	}

	utils.CacheDelete(postDetailCacheKey(comment.PostID))
	utils.Success(ctx, gin.H{"message": "comment deleted"})
}

// React toggles the caller's like/dislike on a comment: the same reaction
// removes it, the other kind switches it. Responds with updated counts.
func (c *CommentController) React(ctx *gin.Context) {
	user := middleware.GetCurrentUser(ctx)

	var req struct {
		Reaction string `json:"reaction" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil || !models.ValidReaction(req.Reaction) {
		utils.Error(ctx, http.StatusBadRequest, 40032, "reaction must be like or dislike")
		return
	}

	comment, ok := c.loadComment(ctx)
	if !ok {
		return
	}

	err := c.db.Transaction(func(tx *gorm.DB) error {
		var existing models.CommentReaction
		err := tx.Where("comment_id = ? AND user_id = ?", comment.ID, user.ID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&models.CommentReaction{
				CommentID:    comment.ID,
				UserID:       user.ID,
				ReactionType: req.Reaction,
			}).Error
		case err != nil:
			return err
		case existing.ReactionType == req.Reaction:
			return tx.Delete(&existing).Error
		default:
			return tx.Model(&existing).Update("reaction_type", req.Reaction).Error
		}
	})
	if err != nil {
		utils.Sugar.Errorf("react to comment failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50034, "failed to record reaction")
		return
	}

	fillReactionCounts(c.db, comment, user)
	utils.CacheDelete(postDetailCacheKey(comment.PostID))
	utils.Success(ctx, gin.H{
		"likes":         comment.Likes,
		"dislikes":      comment.Dislikes,
		"user_reaction": comment.UserReaction,
	})
}

// ListComments returns a post's comments oldest first, with reaction counts
// and, for an authenticated caller, their own reaction.
func (c *CommentController) ListComments(ctx *gin.Context) {
	user := middleware.GetCurrentUser(ctx)

	postID := ctx.Param("id")
	var post models.Post
	if err := c.db.First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
			return
		}
		utils.Sugar.Errorf("load post failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to load post")
		return
	}

	var comments []models.Comment
	if err := c.db.Preload("User").Where("post_id = ?", post.ID).Order("created_at ASC").Find(&comments).Error; err != nil {
		utils.Sugar.Errorf("list comments failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50036, "failed to list comments")
		return
	}
	for i := range comments {
		fillReactionCounts(c.db, &comments[i], user)
	}

	utils.Success(ctx, gin.H{"items": comments, "total": len(comments)})
}

func (c *CommentController) loadComment(ctx *gin.Context) (*models.Comment, bool) {
	commentID := ctx.Param("id")
	var comment models.Comment
	if err := c.db.First(&comment, commentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40402, "comment not found")
			return nil, false
		}
		utils.Sugar.Errorf("load comment failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50035, "failed to load comment")
		return nil, false
	}
	return &comment, true
}
