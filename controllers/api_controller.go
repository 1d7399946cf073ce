package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yatube/yatube/models"
	"github.com/yatube/yatube/templates"
	"github.com/yatube/yatube/utils"
)

// APIController serves the JSON API under /api/v1.
type APIController struct {
	posts *postService
}

func NewAPIController(db *gorm.DB) *APIController {
	return &APIController{posts: newPostService(db)}
}

// ListPosts pages through posts, optionally filtered by group slug or author username.
func (a *APIController) ListPosts(ctx *gin.Context) {
	q := a.posts.recent()
	if slug := strings.TrimSpace(ctx.Query("group")); slug != "" {
		group, err := a.posts.findGroup(slug)
		if !a.found(ctx, err, "group") {
			return
		}
		q = q.Where("posts.group_id = ?", group.ID)
	}
	if username := strings.TrimSpace(ctx.Query("author")); username != "" {
		author, err := a.posts.findUser(username)
		if !a.found(ctx, err, "author") {
			return
		}
		q = q.Where("posts.author_id = ?", author.ID)
	}
	a.respondPage(ctx, q)
}

// GetPost returns a single post with its comments.
func (a *APIController) GetPost(ctx *gin.Context) {
	post, err := a.posts.findPost(ctx.Param("id"))
	if !a.found(ctx, err, "post") {
		return
	}
	comments, err := a.posts.comments(post.ID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load comments")
		return
	}
	resp := postResponse(*post)
	resp["comments"] = commentsResponse(comments)
	utils.Success(ctx, gin.H{"post": resp})
}

type postRequest struct {
	Text       *string `json:"text"`
	Group      *uint   `json:"group"`
	ClearGroup bool    `json:"clear_group"`
}

// CreatePost accepts JSON or a multipart form with an image.
func (a *APIController) CreatePost(ctx *gin.Context) {
	user, ok := a.currentUser(ctx)
	if !ok {
		return
	}
	form, ok := a.bindPost(ctx, nil)
	if !ok {
		return
	}
	if !form.Validate(a.posts.db, maxImageBytes()) {
		utils.Error(ctx, http.StatusBadRequest, 40021, form.Errors.First())
		return
	}
	post, err := a.posts.createPost(user, form)
	if err != nil {
		utils.Logger.Sugar().Errorw("api create post failed", "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to create post")
		return
	}
	if post.GroupID != nil {
		post.Group = &models.Group{}
		_ = a.posts.db.First(post.Group, *post.GroupID).Error
	}
	utils.Created(ctx, gin.H{"post": postResponse(*post)})
}

// UpdatePost changes text, group or image. Only fields present in the request change.
func (a *APIController) UpdatePost(ctx *gin.Context) {
	post, ok := a.ownedPost(ctx)
	if !ok {
		return
	}
	form, ok := a.bindPost(ctx, post)
	if !ok {
		return
	}
	if !form.Validate(a.posts.db, maxImageBytes()) {
		utils.Error(ctx, http.StatusBadRequest, 40025, form.Errors.First())
		return
	}
	if err := a.posts.updatePost(post, form); err != nil {
		utils.Logger.Sugar().Errorw("api update post failed", "post_id", post.ID, "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50026, "failed to update post")
		return
	}
	utils.Success(ctx, gin.H{"post": postResponse(*post)})
}

// DeletePost removes the post and its comments.
func (a *APIController) DeletePost(ctx *gin.Context) {
	post, ok := a.ownedPost(ctx)
	if !ok {
		return
	}
	if err := a.posts.deletePost(post); err != nil {
		utils.Logger.Sugar().Errorw("api delete post failed", "post_id", post.ID, "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50028, "failed to delete post")
		return
	}
	utils.Success(ctx, gin.H{"message": "post deleted"})
}

// ListComments returns the visible comments of a post.
func (a *APIController) ListComments(ctx *gin.Context) {
	post, err := a.posts.findPost(ctx.Param("id"))
	if !a.found(ctx, err, "post") {
		return
	}
	comments, err := a.posts.comments(post.ID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load comments")
		return
	}
	utils.Success(ctx, gin.H{"items": commentsResponse(comments)})
}

// CreateComment allows authenticated users to comment on posts.
func (a *APIController) CreateComment(ctx *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid request payload")
		return
	}
	post, err := a.posts.findPost(ctx.Param("id"))
	if !a.found(ctx, err, "post") {
		return
	}
	user, ok := a.currentUser(ctx)
	if !ok {
		return
	}
	form := NewCommentForm()
	form.Text = req.Text
	if !form.Validate() {
		utils.Error(ctx, http.StatusBadRequest, 40023, form.Errors.First())
		return
	}
	comment, err := a.posts.addComment(post, user, form.Text)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to create comment")
		return
	}
	utils.Created(ctx, gin.H{"comment": commentResponse(*comment)})
}

// ListGroups returns every group.
func (a *APIController) ListGroups(ctx *gin.Context) {
	groups, err := a.posts.groups()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to list groups")
		return
	}
	utils.Success(ctx, gin.H{"items": groups})
}

// GetGroup returns one group by slug.
func (a *APIController) GetGroup(ctx *gin.Context) {
	group, err := a.posts.findGroup(ctx.Param("slug"))
	if !a.found(ctx, err, "group") {
		return
	}
	utils.Success(ctx, gin.H{"group": group})
}

// ListFollowing returns the authors the caller follows.
func (a *APIController) ListFollowing(ctx *gin.Context) {
	user, ok := a.currentUser(ctx)
	if !ok {
		return
	}
	authors, err := a.posts.following(user.ID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to list follows")
		return
	}
	items := make([]gin.H, 0, len(authors))
	for _, au := range authors {
		items = append(items, userResponse(au))
	}
	utils.Success(ctx, gin.H{"items": items})
}

// Follow subscribes the caller to an author. Repeating it is harmless.
func (a *APIController) Follow(ctx *gin.Context) {
	user, ok := a.currentUser(ctx)
	if !ok {
		return
	}
	author, err := a.posts.findUser(ctx.Param("username"))
	if !a.found(ctx, err, "author") {
		return
	}
	created, err := a.posts.follow(user, author)
	switch {
	case errors.Is(err, errSelfFollow):
		utils.Error(ctx, http.StatusBadRequest, 40050, "you cannot follow yourself")
	case err != nil:
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to follow")
	case created:
		utils.Created(ctx, gin.H{"following": author.Username})
	default:
		utils.Success(ctx, gin.H{"following": author.Username})
	}
}

// Unfollow drops the subscription. Answers 404 when there was none.
func (a *APIController) Unfollow(ctx *gin.Context) {
	user, ok := a.currentUser(ctx)
	if !ok {
		return
	}
	author, err := a.posts.findUser(ctx.Param("username"))
	if !a.found(ctx, err, "author") {
		return
	}
	removed, err := a.posts.unfollow(user, author)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50052, "failed to unfollow")
		return
	}
	if !removed {
		utils.Error(ctx, http.StatusNotFound, 40450, "not following "+author.Username)
		return
	}
	utils.Success(ctx, gin.H{"message": "unfollowed"})
}

// Feed pages through posts of followed authors.
func (a *APIController) Feed(ctx *gin.Context) {
	user, ok := a.currentUser(ctx)
	if !ok {
		return
	}
	a.respondPage(ctx, a.posts.feed(user.ID))
}

func (a *APIController) respondPage(ctx *gin.Context, q *gorm.DB) {
	page, err := a.posts.page(q, ctx.Query("page"))
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to list posts")
		return
	}
	items := make([]gin.H, 0, len(page.Items))
	for _, p := range page.Items {
		items = append(items, postResponse(p))
	}
	utils.Paged(ctx, &utils.Page[gin.H]{
		Items:    items,
		Number:   page.Number,
		PerPage:  page.PerPage,
		Count:    page.Count,
		NumPages: page.NumPages,
	})
}

// bindPost builds a PostForm from JSON or multipart input. Missing JSON fields keep post's values.
func (a *APIController) bindPost(ctx *gin.Context, post *models.Post) (*PostForm, bool) {
	if strings.HasPrefix(ctx.ContentType(), "multipart/") {
		form := BindPostForm(ctx, post)
		if post != nil {
			if _, ok := ctx.GetPostForm("text"); !ok {
				form.Text = post.Text
			}
			if _, ok := ctx.GetPostForm("group"); !ok && post.GroupID != nil {
				form.Group = strconv.FormatUint(uint64(*post.GroupID), 10)
			}
		}
		return form, true
	}

	var req postRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return nil, false
	}
	form := NewPostForm(post)
	if req.Text != nil {
		form.Text = *req.Text
	}
	switch {
	case req.ClearGroup:
		form.Group = ""
	case req.Group != nil:
		form.Group = strconv.FormatUint(uint64(*req.Group), 10)
	}
	form.GroupID = nil
	return form, true
}

// ownedPost loads the post named in the path and checks the caller wrote it.
func (a *APIController) ownedPost(ctx *gin.Context) (*models.Post, bool) {
	post, err := a.posts.findPost(ctx.Param("id"))
	if !a.found(ctx, err, "post") {
		return nil, false
	}
	user, ok := a.currentUser(ctx)
	if !ok {
		return nil, false
	}
	if post.AuthorID != user.ID {
		utils.Error(ctx, http.StatusForbidden, 40301, errNotAuthor.Error())
		return nil, false
	}
	return post, true
}

func (a *APIController) currentUser(ctx *gin.Context) (*models.User, bool) {
	id, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return nil, false
	}
	user, err := a.posts.findUserByID(id)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40111, "user no longer exists")
		return nil, false
	}
	return user, true
}

func (a *APIController) found(ctx *gin.Context, err error, what string) bool {
	switch {
	case err == nil:
		return true
	case isNotFound(err):
		utils.Error(ctx, http.StatusNotFound, 40400, what+" not found")
	default:
		utils.Logger.Sugar().Errorw("api load failed", "what", what, "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50000, "failed to load "+what)
	}
	return false
}

func postResponse(p models.Post) gin.H {
	resp := gin.H{
		"id":       p.ID,
		"text":     p.Text,
		"pub_date": p.CreatedAt,
		"author":   p.Author.Username,
		"group":    nil,
		"image":    nil,
	}
	if p.Group != nil {
		resp["group"] = p.Group.Slug
	}
	if p.Image != "" {
		resp["image"] = templates.MediaURL(p.Image)
	}
	return resp
}

func commentResponse(c models.Comment) gin.H {
	return gin.H{
		"id":      c.ID,
		"post":    c.PostID,
		"author":  c.Author.Username,
		"text":    c.Text,
		"created": c.CreatedAt,
	}
}

func commentsResponse(comments []models.Comment) []gin.H {
	items := make([]gin.H, 0, len(comments))
	for _, c := range comments {
		items = append(items, commentResponse(c))
	}
	return items
}
