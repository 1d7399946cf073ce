package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StaticPage renders a template that needs no data beyond the common page context.
func StaticPage(name string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		render(ctx, http.StatusOK, name, nil)
	}
}
