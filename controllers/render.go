package controllers

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"

	"github.com/yatube/yatube/middleware"
	"github.com/yatube/yatube/utils"
)

// pageContext adds what every page needs: the viewer, the year for the footer,
// the CSRF field and the query string for pagination links.
func pageContext(ctx *gin.Context, data gin.H) gin.H {
	if data == nil {
		data = gin.H{}
	}
	user, _ := middleware.CurrentUser(ctx)
	data["user"] = user
	data["year"] = time.Now().Year()
	data["csrfField"] = csrf.TemplateField(ctx.Request)
	data["query"] = ctx.Request.URL.Query()
	return data
}

func render(ctx *gin.Context, status int, name string, data gin.H) {
	ctx.HTML(status, name, pageContext(ctx, data))
}

// NotFound renders the custom 404 page.
func NotFound(ctx *gin.Context) {
	render(ctx, http.StatusNotFound, "core/404.html", gin.H{"path": ctx.Request.URL.Path})
	ctx.Abort()
}

func serverError(ctx *gin.Context, msg string, err error) {
	utils.Logger.Error(msg,
		zap.Error(err),
		zap.String("path", ctx.Request.URL.Path),
		zap.String("request_id", ctx.GetString(utils.RequestIDKey)),
	)
	render(ctx, http.StatusInternalServerError, "core/500.html", nil)
	ctx.Abort()
}

// loadOr404 renders 404 for a missing row and 500 for anything else. It reports whether to go on.
func loadOr404(ctx *gin.Context, err error, what string) bool {
	switch {
	case err == nil:
		return true
	case isNotFound(err):
		NotFound(ctx)
	default:
		serverError(ctx, "load "+what+" failed", err)
	}
	return false
}

func postURL(id uint) string {
	return "/posts/" + strconv.FormatUint(uint64(id), 10) + "/"
}

func profileURL(username string) string {
	return "/profile/" + url.PathEscape(username) + "/"
}
