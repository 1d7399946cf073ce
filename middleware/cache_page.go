package middleware

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yatube/yatube/utils"
)

type cachedPage struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// bodyRecorder tees everything the handler writes.
type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// CachePage serves GET responses from the shared cache for ttl. Entries are keyed by
// URI and viewer, and only utils.ClearCache removes them early.
func CachePage(ttl time.Duration) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.Request.Method != http.MethodGet && ctx.Request.Method != http.MethodHead {
			ctx.Next()
			return
		}

		key := PageCacheKey(ctx)
		var page cachedPage
		if utils.CacheGetJSON(key, &page) {
			ctx.Header("X-Cache", "HIT")
			ctx.Data(page.Status, page.ContentType, page.Body)
			ctx.Abort()
			return
		}

		rec := &bodyRecorder{ResponseWriter: ctx.Writer}
		ctx.Writer = rec
		ctx.Next()

		if rec.Status() != http.StatusOK || rec.body.Len() == 0 {
			return
		}
		utils.CacheSetJSON(key, cachedPage{
			Status:      rec.Status(),
			ContentType: rec.Header().Get("Content-Type"),
			Body:        rec.body.Bytes(),
		}, ttl)
	}
}

// PageCacheKey varies on the request URI and on who is looking.
func PageCacheKey(ctx *gin.Context) string {
	viewer := "anon"
	if u, ok := CurrentUser(ctx); ok {
		viewer = "u" + strconv.FormatUint(uint64(u.ID), 10)
	}
	return utils.CachePrefix + "page:" + viewer + ":" + ctx.Request.URL.RequestURI()
}
