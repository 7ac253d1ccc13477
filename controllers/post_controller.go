package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/recipehub/recipehub/config"
	"github.com/recipehub/recipehub/middleware"
	"github.com/recipehub/recipehub/models"
	"github.com/recipehub/recipehub/utils"
)

// Posts are listed nine to a page.
const postsPerPage = 9

// PostController manages recipe posts: CRUD, listing, search and images.
type PostController struct {
	db *gorm.DB
}

// NewPostController creates a PostController.
func NewPostController(db *gorm.DB) *PostController {
	return &PostController{db: db}
}

// CreatePost creates a recipe from a multipart form. An optional image
// becomes the post's main image and an optional tag name is attached. Post,
// image row and tag rows commit in one transaction; the image file itself is
// written first and is not rolled back on failure.
func (p *PostController) CreatePost(ctx *gin.Context) {
	user := middleware.GetCurrentUser(ctx)

	title := utils.Sanitize(strings.TrimSpace(ctx.PostForm("title")))
	description := utils.Sanitize(ctx.PostForm("description"))
	ingredients := utils.Sanitize(strings.TrimSpace(ctx.PostForm("ingredients")))
	instructions := utils.Sanitize(strings.TrimSpace(ctx.PostForm("instructions")))
	tagName := strings.TrimSpace(ctx.PostForm("tag"))

	if title == "" {
		utils.Error(ctx, http.StatusBadRequest, 40020, "title is required")
		return
	}
	if ingredients == "" {
		utils.Error(ctx, http.StatusBadRequest, 40021, "ingredients are required")
		return
	}
	if instructions == "" {
		utils.Error(ctx, http.StatusBadRequest, 40022, "instructions are required")
		return
	}

	cookingTime, _ := strconv.Atoi(ctx.PostForm("cooking_time"))
	servings, _ := strconv.Atoi(ctx.PostForm("servings"))

	// Store the optional image before opening the transaction. A failed
	// commit leaves the file behind.
	var imagePath string
	if file, header, err := ctx.Request.FormFile("image"); err == nil {
		defer file.Close()
		if !utils.AllowedImageExt(header.Filename) {
			utils.Error(ctx, http.StatusBadRequest, 40023, "only png, jpg, jpeg and gif files are accepted")
			return
		}
		imagePath, err = utils.SaveImage(file, header, config.Get().UploadDir, "posts")
		if err != nil {
			utils.Sugar.Errorf("post image upload failed: %v", err)
			utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to save image")
			return
		}
	}

	post := models.Post{
		UserID:       user.ID,
		Title:        title,
		Description:  description,
		Ingredients:  ingredients,
		Instructions: instructions,
		CookingTime:  cookingTime,
		Servings:     servings,
	}

	err := p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&post).Error; err != nil {
			return err
		}
		if imagePath != "" {
			img := models.PostImage{PostID: post.ID, ImagePath: imagePath, IsMain: true}
			if err := tx.Create(&img).Error; err != nil {
				return err
			}
			post.Images = []models.PostImage{img}
		}
		if tagName != "" {
			return attachTag(tx, post.ID, tagName)
		}
		return nil
	})
	if err != nil {
		utils.Sugar.Errorf("create post failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to create post")
		return
	}

	utils.InvalidateByPrefix("cache:posts:list:")
	utils.Success(ctx, gin.H{"post": post})
}

// UpdatePost lets the owner edit a recipe and replace its tag.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	post, ok := p.loadPost(ctx, true)
	if !ok {
		return
	}

	var req struct {
		Title        string `json:"title"`
		Description  string `json:"description"`
		Ingredients  string `json:"ingredients"`
		Instructions string `json:"instructions"`
		CookingTime  int    `json:"cooking_time"`
		Servings     int    `json:"servings"`
		Tag          string `json:"tag"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40024, "invalid request payload")
		return
	}

	title := utils.Sanitize(strings.TrimSpace(req.Title))
	ingredients := utils.Sanitize(strings.TrimSpace(req.Ingredients))
	instructions := utils.Sanitize(strings.TrimSpace(req.Instructions))
	if title == "" {
		utils.Error(ctx, http.StatusBadRequest, 40020, "title is required")
		return
	}
	if ingredients == "" {
		utils.Error(ctx, http.StatusBadRequest, 40021, "ingredients are required")
		return
	}
	if instructions == "" {
		utils.Error(ctx, http.StatusBadRequest, 40022, "instructions are required")
		return
	}

	post.Title = title
	post.Description = utils.Sanitize(req.Description)
	post.Ingredients = ingredients
	post.Instructions = instructions
	post.CookingTime = req.CookingTime
	post.Servings = req.Servings

	err := p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(post).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.PostTag{}).Error; err != nil {
			return err
		}
		if tagName := strings.TrimSpace(req.Tag); tagName != "" {
			return attachTag(tx, post.ID, tagName)
		}
		return nil
	})
	if err != nil {
		utils.Sugar.Errorf("update post failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to update post")
		return
	}

	p.invalidatePostCaches(post.ID)
	utils.Success(ctx, gin.H{"post": post})
}

// DeletePost removes a post, its stored image files and all dependent rows.
// The owner and admins may delete.
func (p *PostController) DeletePost(ctx *gin.Context) {
	post, ok := p.loadPost(ctx, true)
	if !ok {
		return
	}

	if err := deletePostCascade(p.db, post); err != nil {
		utils.Sugar.Errorf("delete post failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to delete post")
		return
	}

	p.invalidatePostCaches(post.ID)
	utils.Success(ctx, gin.H{"message": "post deleted"})
}

// GetPost returns a single post with author, images, tag, comments and the
// caller's favorite/saved state.
func (p *PostController) GetPost(ctx *gin.Context) {
	user := middleware.GetCurrentUser(ctx)
	postID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
		return
	}

	// Detail payloads are cached for anonymous readers only; authenticated
	// responses embed per-caller state.
	cacheKey := postDetailCacheKey(uint(postID))
	if user == nil {
		if b, ok := utils.CacheGetBytes(cacheKey); ok {
			ctx.Data(http.StatusOK, "application/json", b)
			return
		}
	}

	var post models.Post
	if err := p.db.Preload("User").Preload("Images").First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
			return
		}
		utils.Sugar.Errorf("load post failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to load post")
		return
	}

	var comments []models.Comment
	if err := p.db.Preload("User").Where("post_id = ?", post.ID).Order("created_at ASC").Find(&comments).Error; err != nil {
		utils.Sugar.Errorf("load comments failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to load comments")
		return
	}
	for i := range comments {
		fillReactionCounts(p.db, &comments[i], user)
	}
	post.Comments = comments

	var favoriteCount int64
	p.db.Model(&models.Favorite{}).Where("post_id = ?", post.ID).Count(&favoriteCount)

	payload := gin.H{
		"post":           post,
		"tag":            postTagName(p.db, post.ID),
		"favorite_count": favoriteCount,
		"comment_count":  len(comments),
	}

	if user != nil {
		payload["is_favorite"] = membershipExists(p.db, &models.Favorite{}, user.ID, post.ID)
		payload["is_saved"] = membershipExists(p.db, &models.SavedRecipe{}, user.ID, post.ID)
	} else {
		wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: payload}
		utils.CacheSetJSON(cacheKey, wrapper, 0)
	}

	utils.Success(ctx, payload)
}

// ListPosts returns a page of posts, newest first, with author and main image.
func (p *PostController) ListPosts(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"), postsPerPage)

	cacheKey := fmt.Sprintf("cache:posts:list:page=%d:size=%d", page, pageSize)
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	payload, ok := p.listPage(ctx, p.db.Model(&models.Post{}), page, pageSize)
	if !ok {
		return
	}

	wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: payload}
	utils.CacheSetJSON(cacheKey, wrapper, 0)
	utils.Success(ctx, payload)
}

// Search filters posts by title substring and/or exact tag, sorted by newest
// or by favorite count.
func (p *PostController) Search(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"), postsPerPage)
	q := strings.TrimSpace(ctx.Query("q"))
	tagName := strings.TrimSpace(ctx.Query("tag"))
	sort := strings.TrimSpace(ctx.Query("sort"))

	query := p.db.Model(&models.Post{})
	if q != "" {
		query = query.Where("LOWER(posts.title) LIKE ?", "%"+strings.ToLower(q)+"%")
	}
	if tagName != "" {
		query = query.
			Joins("JOIN post_tags ON post_tags.post_id = posts.id").
			Joins("JOIN tags ON tags.id = post_tags.tag_id").
			Where("tags.name = ?", tagName)
	}

	// The sort clauses live only on the fetch query; the bare filter query
	// stays usable for counting.
	var sorted *gorm.DB
	if sort == "favorites" {
		sorted = query.Session(&gorm.Session{}).
			Select("posts.*, COUNT(favorites.id) AS favorite_count").
			Joins("LEFT JOIN favorites ON favorites.post_id = posts.id").
			Group("posts.id").
			Order("favorite_count DESC, posts.created_at DESC")
	} else {
		sorted = query.Session(&gorm.Session{}).Order("posts.created_at DESC")
	}

	payload, ok := p.listPageSorted(ctx, query, sorted, page, pageSize)
	if !ok {
		return
	}
	utils.Success(ctx, payload)
}

// ListByTag returns the posts carrying a tag, newest first.
func (p *PostController) ListByTag(ctx *gin.Context) {
	tagName := strings.TrimSpace(ctx.Param("name"))
	if tagName == "" {
		utils.Error(ctx, http.StatusBadRequest, 40025, "missing tag name")
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"), postsPerPage)

	query := p.db.Model(&models.Post{}).
		Joins("JOIN post_tags ON post_tags.post_id = posts.id").
		Joins("JOIN tags ON tags.id = post_tags.tag_id").
		Where("tags.name = ?", tagName)

	payload, ok := p.listPage(ctx, query, page, pageSize)
	if !ok {
		return
	}
	utils.Success(ctx, payload)
}

// ListMyPosts returns the authenticated user's own posts.
func (p *PostController) ListMyPosts(ctx *gin.Context) {
	user := middleware.GetCurrentUser(ctx)
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"), postsPerPage)

	query := p.db.Model(&models.Post{}).Where("posts.user_id = ?", user.ID)
	payload, ok := p.listPage(ctx, query, page, pageSize)
	if !ok {
		return
	}
	utils.Success(ctx, payload)
}

// DeleteMultiple removes a batch of the caller's posts. Posts the caller does
// not own are skipped rather than failing the batch; admins may delete any.
func (p *PostController) DeleteMultiple(ctx *gin.Context) {
	user := middleware.GetCurrentUser(ctx)

	var req struct {
		PostIDs []uint `json:"post_ids" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil || len(req.PostIDs) == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40026, "post_ids are required")
		return
	}

	deleted := []uint{}
	skipped := []uint{}
	for _, id := range req.PostIDs {
		var post models.Post
		if err := p.db.Preload("Images").First(&post, id).Error; err != nil {
			skipped = append(skipped, id)
			continue
		}
		if post.UserID != user.ID && !user.IsAdmin() {
			skipped = append(skipped, id)
			continue
		}
		if err := deletePostCascade(p.db, &post); err != nil {
			utils.Sugar.Errorf("bulk delete post %d failed: %v", id, err)
			skipped = append(skipped, id)
			continue
		}
		p.invalidatePostCaches(id)
		deleted = append(deleted, id)
	}

	utils.Success(ctx, gin.H{"deleted": deleted, "skipped": skipped})
}

// UploadImage attaches an image to an owned post. The is_main form flag
// promotes it to main image, demoting any previous one.
func (p *PostController) UploadImage(ctx *gin.Context) {
	post, ok := p.loadPost(ctx, true)
	if !ok {
		return
	}

	file, header, err := ctx.Request.FormFile("file")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40027, "no file uploaded")
		return
	}
	defer file.Close()

	if !utils.AllowedImageExt(header.Filename) {
		utils.Error(ctx, http.StatusBadRequest, 40023, "only png, jpg, jpeg and gif files are accepted")
		return
	}

	path, err := utils.SaveImage(file, header, config.Get().UploadDir, "posts")
	if err != nil {
		utils.Sugar.Errorf("post image upload failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to save image")
		return
	}

	isMain := ctx.PostForm("is_main") == "true"
	img := models.PostImage{PostID: post.ID, ImagePath: path, IsMain: isMain}

	err = p.db.Transaction(func(tx *gorm.DB) error {
		if isMain {
			if err := tx.Model(&models.PostImage{}).Where("post_id = ?", post.ID).Update("is_main", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(&img).Error
	})
	if err != nil {
		utils.RemoveStoredFile(path)
		utils.Sugar.Errorf("attach post image failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50026, "failed to attach image")
		return
	}

	p.invalidatePostCaches(post.ID)
	utils.Success(ctx, gin.H{"image": img})
}

// loadPost fetches the post in the id path param. With checkOwner it aborts
// 403 unless the caller owns the post or is an admin.
func (p *PostController) loadPost(ctx *gin.Context, checkOwner bool) (*models.Post, bool) {
	postID := ctx.Param("id")
	var post models.Post
	if err := p.db.Preload("Images").First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
			return nil, false
		}
		utils.Sugar.Errorf("load post failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to load post")
		return nil, false
	}

	if checkOwner {
		user := middleware.GetCurrentUser(ctx)
		if user == nil || (post.UserID != user.ID && !user.IsAdmin()) {
			utils.Error(ctx, http.StatusForbidden, 40302, "you do not own this post")
			return nil, false
		}
	}
	return &post, true
}

func (p *PostController) listPage(ctx *gin.Context, query *gorm.DB, page, pageSize int) (gin.H, bool) {
	sorted := query.Session(&gorm.Session{}).Order("posts.created_at DESC")
	return p.listPageSorted(ctx, query, sorted, page, pageSize)
}

// listPageSorted counts matching posts on the bare filter query, fetches one
// page with the sorted query and builds the standard paginated payload. The
// count must not run on the sorted query: custom selects, grouping and
// ordering clauses break the generated count SQL.
func (p *PostController) listPageSorted(ctx *gin.Context, filter, sorted *gorm.DB, page, pageSize int) (gin.H, bool) {
	var total int64
	if err := filter.Session(&gorm.Session{}).Distinct("posts.id").Count(&total).Error; err != nil {
		utils.Sugar.Errorf("count posts failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50027, "failed to count posts")
		return nil, false
	}

	var posts []models.Post
	err := sorted.Preload("User").Preload("Images").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&posts).Error
	if err != nil {
		utils.Sugar.Errorf("list posts failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50028, "failed to list posts")
		return nil, false
	}

	items := make([]gin.H, 0, len(posts))
	for i := range posts {
		items = append(items, gin.H{
			"post":       posts[i],
			"main_image": posts[i].MainImage(),
			"tag":        postTagName(p.db, posts[i].ID),
		})
	}

	return gin.H{
		"items":      items,
		"pagination": paginationPayload(page, pageSize, total),
	}, true
}

func (p *PostController) invalidatePostCaches(postID uint) {
	utils.InvalidateByPrefix("cache:posts:list:")
	utils.CacheDelete(postDetailCacheKey(postID))
}

// postDetailCacheKey is the exact cache key for one post's detail payload.
// Invalidation deletes this key, never a prefix: post 1 must not wipe 10.
func postDetailCacheKey(postID uint) string {
	return "cache:post:detail:" + strconv.Itoa(int(postID))
}

// attachTag links a post to a tag by name, creating the tag row on first use.
func attachTag(tx *gorm.DB, postID uint, tagName string) error {
	tagName = utils.Sanitize(tagName)
	var tag models.Tag
	if err := tx.Where("name = ?", tagName).First(&tag).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		tag = models.Tag{Name: tagName}
		if err := tx.Create(&tag).Error; err != nil {
			return err
		}
	}
	return tx.Create(&models.PostTag{PostID: postID, TagID: tag.ID}).Error
}

// postTagName returns the post's tag name, or "" when untagged.
func postTagName(db *gorm.DB, postID uint) string {
	var tag models.Tag
	err := db.Joins("JOIN post_tags ON post_tags.tag_id = tags.id").
		Where("post_tags.post_id = ?", postID).
		First(&tag).Error
	if err != nil {
		return ""
	}
	return tag.Name
}

// deletePostCascade removes stored image files, then all dependent rows and
// the post itself in one transaction. File removal happens first and is not
// rolled back when the transaction fails.
func deletePostCascade(db *gorm.DB, post *models.Post) error {
	for _, img := range post.Images {
		utils.RemoveStoredFile(img.ImagePath)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("comment_id IN (?)",
			tx.Model(&models.Comment{}).Select("id").Where("post_id = ?", post.ID),
		).Delete(&models.CommentReaction{}).Error; err != nil {
			return err
		}
		for _, m := range []interface{}{
			&models.Comment{}, &models.PostTag{}, &models.Favorite{},
			&models.SavedRecipe{}, &models.PostImage{},
		} {
			if err := tx.Where("post_id = ?", post.ID).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Post{}, post.ID).Error
	})
}

// fillReactionCounts populates a comment's like/dislike aggregates and the
// caller's own reaction.
func fillReactionCounts(db *gorm.DB, comment *models.Comment, user *models.User) {
	db.Model(&models.CommentReaction{}).
		Where("comment_id = ? AND reaction_type = ?", comment.ID, models.ReactionLike).
		Count(&comment.Likes)
	db.Model(&models.CommentReaction{}).
		Where("comment_id = ? AND reaction_type = ?", comment.ID, models.ReactionDislike).
		Count(&comment.Dislikes)

	if user != nil {
		var reaction models.CommentReaction
		err := db.Where("comment_id = ? AND user_id = ?", comment.ID, user.ID).First(&reaction).Error
		if err == nil {
			comment.UserReaction = reaction.ReactionType
		}
	}
}

// membershipExists reports whether a (user, post) row exists for model m.
func membershipExists(db *gorm.DB, m interface{}, userID, postID uint) bool {
	var count int64
	db.Model(m).Where("user_id = ? AND post_id = ?", userID, postID).Count(&count)
	return count > 0
}
