package controllers

import (
	"errors"
	"mime/multipart"
	"net/mail"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yatube/yatube/models"
	"github.com/yatube/yatube/utils"
)

const (
	msgRequired      = "This field is required."
	msgInvalidGroup  = "Select a valid choice. That choice is not one of the available choices."
	msgBadLogin      = "Please enter a correct username and password. Note that both fields may be case-sensitive."
	msgUsernameTaken = "A user with that username already exists."
	msgBadUsername   = "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	msgPasswordsDiff = "The two password fields didn't match."
	msgBadEmail      = "Enter a valid email address."
	msgFileAndClear  = "Please either submit a file or check the clear checkbox, not both."

	nonFieldErrors = "__all__"
	maxUsernameLen = 150
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// FormErrors maps a field name to its messages.
type FormErrors map[string][]string

func (e FormErrors) Add(field, msg string) { e[field] = append(e[field], msg) }

func (e FormErrors) Get(field string) []string { return e[field] }

func (e FormErrors) Has(field string) bool { return len(e[field]) > 0 }

// Valid reports whether no errors were recorded.
func (e FormErrors) Valid() bool { return len(e) == 0 }

// First returns one message for API responses.
func (e FormErrors) First() string {
	for _, f := range []string{"text", "group", "image", "username", "password", nonFieldErrors} {
		if msgs := e[f]; len(msgs) > 0 {
			return f + ": " + msgs[0]
		}
	}
	for f, msgs := range e {
		if len(msgs) > 0 {
			return f + ": " + msgs[0]
		}
	}
	return ""
}

// PostForm carries the editable fields of a post.
type PostForm struct {
	Text         string
	Group        string
	GroupID      *uint
	Image        *multipart.FileHeader
	ClearImage   bool
	CurrentImage string
	Errors       FormErrors

	imageData []byte
}

// NewPostForm returns an unbound form, prefilled from post when editing.
func NewPostForm(post *models.Post) *PostForm {
	f := &PostForm{Errors: FormErrors{}}
	if post != nil {
		f.Text = post.Text
		f.GroupID = post.GroupID
		if post.GroupID != nil {
			f.Group = strconv.FormatUint(uint64(*post.GroupID), 10)
		}
		f.CurrentImage = post.Image
	}
	return f
}

// BindPostForm reads a multipart or urlencoded post submission.
func BindPostForm(ctx *gin.Context, post *models.Post) *PostForm {
	f := NewPostForm(post)
	f.Text = ctx.PostForm("text")
	f.Group = strings.TrimSpace(ctx.PostForm("group"))
	f.GroupID = nil
	_, f.ClearImage = ctx.GetPostForm("image-clear")
	if fh, err := ctx.FormFile("image"); err == nil {
		f.Image = fh
	}
	return f
}

// SelectedGroup is the chosen group id or 0.
func (f *PostForm) SelectedGroup() uint {
	if f.GroupID != nil {
		return *f.GroupID
	}
	if id, err := strconv.ParseUint(f.Group, 10, 64); err == nil {
		return uint(id)
	}
	return 0
}

// Validate cleans the fields. Text is stored as typed minus surrounding spaces, the
// group must exist and an uploaded image must decode.
func (f *PostForm) Validate(db *gorm.DB, maxImageBytes int64) bool {
	f.Text = strings.TrimSpace(f.Text)
	if f.Text == "" {
		f.Errors.Add("text", msgRequired)
	}

	if f.Group != "" {
		id, err := strconv.ParseUint(f.Group, 10, 64)
		if err != nil {
			f.Errors.Add("group", msgInvalidGroup)
		} else {
			var n int64
			if err := db.Model(&models.Group{}).Where("id = ?", id).Count(&n).Error; err != nil || n == 0 {
				f.Errors.Add("group", msgInvalidGroup)
			} else {
				gid := uint(id)
				f.GroupID = &gid
			}
		}
	}

	if f.Image != nil && f.ClearImage {
		f.Errors.Add("image", msgFileAndClear)
	} else if f.Image != nil {
		data, err := utils.ReadImage(f.Image, maxImageBytes)
		switch {
		case err == nil:
			f.imageData = data
		case errors.Is(err, utils.ErrNotAnImage), errors.Is(err, utils.ErrImageTooLarge), errors.Is(err, utils.ErrEmptyFile):
			f.Errors.Add("image", capitalize(err.Error())+".")
		default:
			f.Errors.Add("image", "Could not read the uploaded file.")
		}
	}
	return f.Errors.Valid()
}

// HasNewImage reports whether a validated image is waiting to be stored.
func (f *PostForm) HasNewImage() bool { return len(f.imageData) > 0 }

// CommentForm carries a new comment.
type CommentForm struct {
	Text   string
	Errors FormErrors
}

func NewCommentForm() *CommentForm { return &CommentForm{Errors: FormErrors{}} }

func BindCommentForm(ctx *gin.Context) *CommentForm {
	f := NewCommentForm()
	f.Text = ctx.PostForm("text")
	return f
}

func (f *CommentForm) Validate() bool {
	f.Text = strings.TrimSpace(f.Text)
	if f.Text == "" {
		f.Errors.Add("text", msgRequired)
	}
	return f.Errors.Valid()
}

// LoginForm checks credentials against the users table.
type LoginForm struct {
	Username string
	Password string
	Errors   FormErrors

	User *models.User
}

func NewLoginForm() *LoginForm { return &LoginForm{Errors: FormErrors{}} }

func BindLoginForm(ctx *gin.Context) *LoginForm {
	f := NewLoginForm()
	f.Username = strings.TrimSpace(ctx.PostForm("username"))
	f.Password = ctx.PostForm("password")
	return f
}

func (f *LoginForm) Validate(db *gorm.DB) bool {
	if f.Username == "" {
		f.Errors.Add("username", msgRequired)
	}
	if f.Password == "" {
		f.Errors.Add("password", msgRequired)
	}
	if !f.Errors.Valid() {
		return false
	}
	var user models.User
	if err := db.Where("username = ?", f.Username).First(&user).Error; err != nil ||
		!utils.CheckPassword(user.PasswordHash, f.Password) {
		f.Errors.Add(nonFieldErrors, msgBadLogin)
		return false
	}
	f.User = &user
	return true
}

// SignupForm creates a new account.
type SignupForm struct {
	FirstName string
	LastName  string
	Username  string
	Email     string
	Password1 string
	Password2 string
	Errors    FormErrors
}

func NewSignupForm() *SignupForm { return &SignupForm{Errors: FormErrors{}} }

func BindSignupForm(ctx *gin.Context) *SignupForm {
	f := NewSignupForm()
	f.FirstName = strings.TrimSpace(ctx.PostForm("first_name"))
	f.LastName = strings.TrimSpace(ctx.PostForm("last_name"))
	f.Username = strings.TrimSpace(ctx.PostForm("username"))
	f.Email = strings.TrimSpace(ctx.PostForm("email"))
	f.Password1 = ctx.PostForm("password1")
	f.Password2 = ctx.PostForm("password2")
	return f
}

func (f *SignupForm) Validate(db *gorm.DB) bool {
	switch {
	case f.Username == "":
		f.Errors.Add("username", msgRequired)
	case len([]rune(f.Username)) > maxUsernameLen || !usernamePattern.MatchString(f.Username):
		f.Errors.Add("username", msgBadUsername)
	default:
		var n int64
		if err := db.Model(&models.User{}).Where("username = ?", f.Username).Count(&n).Error; err != nil || n > 0 {
			f.Errors.Add("username", msgUsernameTaken)
		}
	}
	if f.Email != "" {
		if _, err := mail.ParseAddress(f.Email); err != nil {
			f.Errors.Add("email", msgBadEmail)
		}
	}
	if f.Password1 == "" {
		f.Errors.Add("password1", msgRequired)
	}
	if f.Password2 == "" {
		f.Errors.Add("password2", msgRequired)
	}
	if f.Password1 != "" && f.Password2 != "" {
		if f.Password1 != f.Password2 {
			f.Errors.Add("password2", msgPasswordsDiff)
		} else if err := utils.ValidatePassword(f.Password2, f.Username); err != nil {
			f.Errors.Add("password2", capitalize(err.Error())+".")
		}
	}
	return f.Errors.Valid()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
