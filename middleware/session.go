package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"gorm.io/gorm"

	"github.com/yatube/yatube/config"
	"github.com/yatube/yatube/models"
	"github.com/yatube/yatube/utils"
)

const (
	// ContextUserKey holds the *models.User loaded from the session cookie.
	ContextUserKey = "current_user"

	sessionUserIDKey = "user_id"
)

// Store is initialised once via InitSessionStore.
var Store *sessions.CookieStore

// InitSessionStore builds the cookie store used for browser logins.
func InitSessionStore(cfg config.AppConfig) error {
	if cfg.SecretKey == "" {
		return errors.New("session key is empty")
	}
	if len(cfg.SecretKey) < 32 {
		utils.Sugar.Warnw("secret key is short; 32+ chars recommended", "length", len(cfg.SecretKey))
	}
	store := sessions.NewCookieStore([]byte(cfg.SecretKey))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   cfg.SessionMaxAgeDays * 24 * 60 * 60,
		Secure:   cfg.SessionSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	Store = store
	return nil
}

// LoadSessionUser puts the logged-in user into the gin context. It never rejects a request.
func LoadSessionUser(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if Store == nil {
			ctx.Next()
			return
		}
		sess, _ := Store.Get(ctx.Request, config.Get().SessionName)
		id, ok := sess.Values[sessionUserIDKey].(uint)
		if ok && id != 0 {
			var user models.User
			err := db.WithContext(ctx.Request.Context()).First(&user, id).Error
			switch {
			case err == nil:
				ctx.Set(ContextUserKey, &user)
			case !errors.Is(err, gorm.ErrRecordNotFound):
				utils.Sugar.Errorw("load session user failed", "user_id", id, "err", err)
			}
		}
		ctx.Next()
	}
}

// CurrentUser returns the user set by LoadSessionUser.
func CurrentUser(ctx *gin.Context) (*models.User, bool) {
	v, ok := ctx.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*models.User)
	return u, ok && u != nil
}

// Login binds user to the session cookie and to the current request.
func Login(ctx *gin.Context, user *models.User) error {
	if Store == nil {
		return errors.New("session store not initialised")
	}
	sess, _ := Store.Get(ctx.Request, config.Get().SessionName)
	sess.Values[sessionUserIDKey] = user.ID
	if err := sess.Save(ctx.Request, ctx.Writer); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	ctx.Set(ContextUserKey, user)
	return nil
}

// Logout expires the session cookie.
func Logout(ctx *gin.Context) error {
	if Store == nil {
		return nil
	}
	sess, _ := Store.Get(ctx.Request, config.Get().SessionName)
	delete(sess.Values, sessionUserIDKey)
	sess.Options.MaxAge = -1
	if err := sess.Save(ctx.Request, ctx.Writer); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	ctx.Set(ContextUserKey, (*models.User)(nil))
	return nil
}
