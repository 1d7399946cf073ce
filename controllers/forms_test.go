package controllers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yatube/yatube/config"
	"github.com/yatube/yatube/models"
	"github.com/yatube/yatube/utils"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	config.Set(config.AppConfig{SecretKey: "controllers-test-secret", LogLevel: "silent"})
	os.Exit(m.Run())
}

func newFormsDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.OpenDatabase("sqlite", filepath.Join(t.TempDir(), "forms.sqlite3")+"?_foreign_keys=on", "silent")
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db, models.All()...))
	return db
}

func TestPostFormValidate(t *testing.T) {
	db := newFormsDB(t)
	group := models.Group{Title: "Cats", Slug: "cats"}
	require.NoError(t, db.Create(&group).Error)

	f := NewPostForm(nil)
	f.Text = "   "
	assert.False(t, f.Validate(db, 1<<20))
	assert.Equal(t, []string{msgRequired}, f.Errors.Get("text"))

	f = NewPostForm(nil)
	f.Text = "  <b>Hello</b> world\n"
	f.Group = "999"
	assert.False(t, f.Validate(db, 1<<20))
	assert.Equal(t, "<b>Hello</b> world", f.Text)
	assert.True(t, f.Errors.Has("group"))
	assert.Equal(t, "group: "+msgInvalidGroup, f.Errors.First())

	f = NewPostForm(nil)
	f.Text = "Hello"
	f.Group = "1"
	require.True(t, f.Validate(db, 1<<20))
	require.NotNil(t, f.GroupID)
	assert.Equal(t, group.ID, *f.GroupID)
	assert.Equal(t, group.ID, f.SelectedGroup())
	assert.False(t, f.HasNewImage())
}

func TestNewPostFormPrefills(t *testing.T) {
	gid := uint(4)
	f := NewPostForm(&models.Post{Text: "old", GroupID: &gid, Image: "posts/a.gif"})
	assert.Equal(t, "old", f.Text)
	assert.Equal(t, "4", f.Group)
	assert.Equal(t, uint(4), f.SelectedGroup())
	assert.Equal(t, "posts/a.gif", f.CurrentImage)
}

func TestCommentFormValidate(t *testing.T) {
	f := NewCommentForm()
	f.Text = " \n "
	assert.False(t, f.Validate())

	f = NewCommentForm()
	f.Text = "<hello>"
	assert.True(t, f.Validate())
	assert.Equal(t, "<hello>", f.Text)

	f = NewCommentForm()
	f.Text = " nice post "
	assert.True(t, f.Validate())
	assert.Equal(t, "nice post", f.Text)
}

func TestLoginFormValidate(t *testing.T) {
	db := newFormsDB(t)
	hash, err := utils.HashPassword("war-and-peace-1869")
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.User{Username: "leo", PasswordHash: hash}).Error)

	f := NewLoginForm()
	assert.False(t, f.Validate(db))
	assert.True(t, f.Errors.Has("username"))
	assert.True(t, f.Errors.Has("password"))

	f = NewLoginForm()
	f.Username, f.Password = "leo", "wrong"
	assert.False(t, f.Validate(db))
	assert.Equal(t, []string{msgBadLogin}, f.Errors.Get(nonFieldErrors))

	f = NewLoginForm()
	f.Username, f.Password = "leo", "war-and-peace-1869"
	require.True(t, f.Validate(db))
	assert.Equal(t, "leo", f.User.Username)
}

func TestSignupFormValidate(t *testing.T) {
	db := newFormsDB(t)
	require.NoError(t, db.Create(&models.User{Username: "taken"}).Error)

	cases := []struct {
		name  string
		form  SignupForm
		field string
		msg   string
	}{
		{"missing username", SignupForm{Password1: "long-enough-1", Password2: "long-enough-1"}, "username", msgRequired},
		{"bad username", SignupForm{Username: "no spaces", Password1: "long-enough-1", Password2: "long-enough-1"}, "username", msgBadUsername},
		{"taken username", SignupForm{Username: "taken", Password1: "long-enough-1", Password2: "long-enough-1"}, "username", msgUsernameTaken},
		{"bad email", SignupForm{Username: "anna", Email: "nope", Password1: "long-enough-1", Password2: "long-enough-1"}, "email", msgBadEmail},
		{"mismatch", SignupForm{Username: "anna", Password1: "long-enough-1", Password2: "long-enough-2"}, "password2", msgPasswordsDiff},
		{"numeric", SignupForm{Username: "anna", Password1: "1234567890", Password2: "1234567890"}, "password2", "Password cannot be entirely numeric."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := tc.form
			f.Errors = FormErrors{}
			assert.False(t, f.Validate(db))
			assert.Contains(t, f.Errors.Get(tc.field), tc.msg)
		})
	}

	f := NewSignupForm()
	f.Username, f.Email = "anna", "anna@example.com"
	f.Password1, f.Password2 = "long-enough-1", "long-enough-1"
	assert.True(t, f.Validate(db))
}
