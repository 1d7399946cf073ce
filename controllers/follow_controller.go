package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yatube/yatube/middleware"
)

// FollowController handles subscriptions and the feed of followed authors.
type FollowController struct {
	posts *postService
}

func NewFollowController(db *gorm.DB) *FollowController {
	return &FollowController{posts: newPostService(db)}
}

// FollowIndex lists posts by the authors the viewer follows.
func (f *FollowController) FollowIndex(ctx *gin.Context) {
	user, _ := middleware.CurrentUser(ctx)
	page, err := f.posts.page(f.posts.feed(user.ID), ctx.Query("page"))
	if err != nil {
		serverError(ctx, "list feed failed", err)
		return
	}
	render(ctx, http.StatusOK, "posts/follow.html", gin.H{"page": page})
}

// ProfileFollow subscribes the viewer to the author. Following yourself does nothing.
func (f *FollowController) ProfileFollow(ctx *gin.Context) {
	author, err := f.posts.findUser(ctx.Param("username"))
	if !loadOr404(ctx, err, "author") {
		return
	}
	user, _ := middleware.CurrentUser(ctx)
	if _, err := f.posts.follow(user, author); err != nil && !errors.Is(err, errSelfFollow) {
		serverError(ctx, "follow failed", err)
		return
	}
	ctx.Redirect(http.StatusFound, profileURL(author.Username))
}

// ProfileUnfollow removes the subscription if there is one.
func (f *FollowController) ProfileUnfollow(ctx *gin.Context) {
	author, err := f.posts.findUser(ctx.Param("username"))
	if !loadOr404(ctx, err, "author") {
		return
	}
	user, _ := middleware.CurrentUser(ctx)
	if _, err := f.posts.unfollow(user, author); err != nil {
		serverError(ctx, "unfollow failed", err)
		return
	}
	ctx.Redirect(http.StatusFound, profileURL(author.Username))
}
