package controllers

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yatube/yatube/config"
	"github.com/yatube/yatube/middleware"
	"github.com/yatube/yatube/models"
	"github.com/yatube/yatube/utils"
)

// AuthController handles browser logins and API tokens.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates an AuthController.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

// LoginPage shows the login form and starts a session on valid credentials.
func (a *AuthController) LoginPage(ctx *gin.Context) {
	next := ctx.Query("next")
	form := NewLoginForm()
	if ctx.Request.Method == http.MethodPost {
		next = ctx.PostForm("next")
		form = BindLoginForm(ctx)
		if form.Validate(a.db) {
			if err := middleware.Login(ctx, form.User); err != nil {
				serverError(ctx, "session login failed", err)
				return
			}
			utils.Sugar.Infow("user logged in", "user_id", form.User.ID)
			ctx.Redirect(http.StatusFound, safeNext(next, config.Get().LoginRedirectURL))
			return
		}
	}
	render(ctx, http.StatusOK, "users/login.html", gin.H{"form": form, "next": next})
}

// LogoutPage ends the session.
func (a *AuthController) LogoutPage(ctx *gin.Context) {
	if err := middleware.Logout(ctx); err != nil {
		serverError(ctx, "session logout failed", err)
		return
	}
	render(ctx, http.StatusOK, "users/logged_out.html", nil)
}

// SignupPage registers a local account and logs it in.
func (a *AuthController) SignupPage(ctx *gin.Context) {
	form := NewSignupForm()
	if ctx.Request.Method == http.MethodPost {
		form = BindSignupForm(ctx)
		if form.Validate(a.db) {
			user, err := a.createUser(form)
			if err != nil {
				serverError(ctx, "signup failed", err)
				return
			}
			if err := middleware.Login(ctx, user); err != nil {
				serverError(ctx, "session login failed", err)
				return
			}
			ctx.Redirect(http.StatusFound, "/")
			return
		}
	}
	render(ctx, http.StatusOK, "users/signup.html", gin.H{"form": form})
}

func (a *AuthController) createUser(form *SignupForm) (*models.User, error) {
	hash, err := utils.HashPassword(form.Password1)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username:     form.Username,
		FirstName:    form.FirstName,
		LastName:     form.LastName,
		Email:        form.Email,
		PasswordHash: hash,
	}
	if err := a.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies user credentials and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	type request struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	var user models.User
	if err := a.db.Where("username = ?", strings.TrimSpace(req.Username)).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Username, tokenTTL())
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}

	utils.Success(ctx, gin.H{
		"token": token,
		"user":  userResponse(user),
	})
}

// Logout revokes the presented token until it would have expired.
func (a *AuthController) Logout(ctx *gin.Context) {
	v, _ := ctx.Get(middleware.ContextClaimsKey)
	claims, ok := v.(*utils.Claims)
	if !ok || claims == nil {
		utils.Error(ctx, http.StatusUnauthorized, 40107, "invalid authorization header")
		return
	}
	utils.RevokeToken(claims.ID, claims.Expiry(time.Now().Add(tokenTTL())))
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the current authenticated user's information.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}
	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}
	resp := userResponse(user)
	resp["email"] = user.Email
	utils.Success(ctx, resp)
}

// safeNext accepts only local absolute paths.
func safeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return next
}

func tokenTTL() time.Duration {
	return time.Duration(config.Get().TokenTTLHours) * time.Hour
}

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok && id != 0
}

func userResponse(user models.User) gin.H {
	return gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"created_at": user.CreatedAt,
	}
}
