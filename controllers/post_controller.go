package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yatube/yatube/config"
	"github.com/yatube/yatube/middleware"
	"github.com/yatube/yatube/models"
)

// PostController serves the HTML pages for posts, groups, profiles and comments.
type PostController struct {
	posts *postService
}

// NewPostController creates a new PostController instance.
func NewPostController(db *gorm.DB) *PostController {
	return &PostController{posts: newPostService(db)}
}

// Index lists every post, newest first.
func (p *PostController) Index(ctx *gin.Context) {
	page, err := p.posts.page(p.posts.recent(), ctx.Query("page"))
	if err != nil {
		serverError(ctx, "list posts failed", err)
		return
	}
	render(ctx, http.StatusOK, "posts/index.html", gin.H{"page": page})
}

// GroupPosts lists the posts of one group.
func (p *PostController) GroupPosts(ctx *gin.Context) {
	group, err := p.posts.findGroup(ctx.Param("slug"))
	if !loadOr404(ctx, err, "group") {
		return
	}
	page, err := p.posts.page(p.posts.byGroup(group.ID), ctx.Query("page"))
	if err != nil {
		serverError(ctx, "list group posts failed", err)
		return
	}
	render(ctx, http.StatusOK, "posts/group_list.html", gin.H{"group": group, "page": page})
}

// Profile lists an author's posts and whether the viewer follows them.
func (p *PostController) Profile(ctx *gin.Context) {
	author, err := p.posts.findUser(ctx.Param("username"))
	if !loadOr404(ctx, err, "author") {
		return
	}
	page, err := p.posts.page(p.posts.byAuthor(author.ID), ctx.Query("page"))
	if err != nil {
		serverError(ctx, "list author posts failed", err)
		return
	}
	following := false
	if viewer, ok := middleware.CurrentUser(ctx); ok {
		if following, err = p.posts.isFollowing(viewer.ID, author.ID); err != nil {
			serverError(ctx, "check follow failed", err)
			return
		}
	}
	render(ctx, http.StatusOK, "posts/profile.html", gin.H{
		"author":    author,
		"page":      page,
		"following": following,
	})
}

// PostDetail shows a post with its comments and an empty comment form.
func (p *PostController) PostDetail(ctx *gin.Context) {
	post, err := p.posts.findPost(ctx.Param("post_id"))
	if !loadOr404(ctx, err, "post") {
		return
	}
	count, err := p.posts.countByAuthor(post.AuthorID)
	if err != nil {
		serverError(ctx, "count author posts failed", err)
		return
	}
	comments, err := p.posts.comments(post.ID)
	if err != nil {
		serverError(ctx, "list comments failed", err)
		return
	}
	render(ctx, http.StatusOK, "posts/post_detail.html", gin.H{
		"post":       post,
		"postsCount": count,
		"comments":   comments,
		"form":       NewCommentForm(),
	})
}

// PostCreate shows the new post form and stores valid submissions.
func (p *PostController) PostCreate(ctx *gin.Context) {
	user, _ := middleware.CurrentUser(ctx)
	form := NewPostForm(nil)
	if ctx.Request.Method == http.MethodPost {
		form = BindPostForm(ctx, nil)
		if form.Validate(p.posts.db, maxImageBytes()) {
			if _, err := p.posts.createPost(user, form); err != nil {
				serverError(ctx, "create post failed", err)
				return
			}
			ctx.Redirect(http.StatusFound, profileURL(user.Username))
			return
		}
	}
	p.renderPostForm(ctx, form, nil)
}

// PostEdit lets the author change text, group and image. Anyone else is sent to the post.
func (p *PostController) PostEdit(ctx *gin.Context) {
	post, err := p.posts.findPost(ctx.Param("post_id"))
	if !loadOr404(ctx, err, "post") {
		return
	}
	user, _ := middleware.CurrentUser(ctx)
	if user.ID != post.AuthorID {
		ctx.Redirect(http.StatusFound, postURL(post.ID))
		return
	}

	form := NewPostForm(post)
	if ctx.Request.Method == http.MethodPost {
		form = BindPostForm(ctx, post)
		if form.Validate(p.posts.db, maxImageBytes()) {
			if err := p.posts.updatePost(post, form); err != nil {
				serverError(ctx, "update post failed", err)
				return
			}
			ctx.Redirect(http.StatusFound, postURL(post.ID))
			return
		}
	}
	p.renderPostForm(ctx, form, post)
}

// AddComment stores a valid comment and always returns to the post.
func (p *PostController) AddComment(ctx *gin.Context) {
	post, err := p.posts.findPost(ctx.Param("post_id"))
	if !loadOr404(ctx, err, "post") {
		return
	}
	user, _ := middleware.CurrentUser(ctx)
	form := BindCommentForm(ctx)
	if form.Validate() {
		if _, err := p.posts.addComment(post, user, form.Text); err != nil {
			serverError(ctx, "add comment failed", err)
			return
		}
	}
	ctx.Redirect(http.StatusFound, postURL(post.ID))
}

func (p *PostController) renderPostForm(ctx *gin.Context, form *PostForm, post *models.Post) {
	groups, err := p.posts.groups()
	if err != nil {
		serverError(ctx, "list groups failed", err)
		return
	}
	render(ctx, http.StatusOK, "posts/create_post.html", gin.H{
		"form":   form,
		"groups": groups,
		"post":   post,
		"isEdit": post != nil,
	})
}

func maxImageBytes() int64 {
	return int64(config.Get().UploadMaxMB) << 20
}
