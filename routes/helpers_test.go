package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yatube/yatube/config"
	"github.com/yatube/yatube/middleware"
	"github.com/yatube/yatube/models"
	"github.com/yatube/yatube/utils"
)

const testPassword = "correct-horse-battery"

var smallGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x02, 0x00,
	0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xFF, 0xFF, 0xFF, 0x21, 0xF9, 0x04, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x2C, 0x00, 0x00, 0x00, 0x00,
	0x02, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x0C,
	0x0A, 0x00, 0x3B,
}

type testApp struct {
	t       *testing.T
	db      *gorm.DB
	handler http.Handler
	cfg     config.AppConfig
}

func testConfig(t *testing.T) config.AppConfig {
	dir := t.TempDir()
	return config.AppConfig{
		SecretKey:  "a-test-secret-key-that-is-32-bytes-long",
		GinMode:    "test",
		GinPath:    filepath.Join(dir, "gin.log"),
		LogLevel:   "silent",
		DBDriver:   "sqlite",
		SQLitePath: filepath.Join(dir, "db.sqlite3"),
		MediaRoot:  filepath.Join(dir, "media"),
		StaticRoot: filepath.Join(dir, "static"),
	}
}

func newTestApp(t *testing.T, mutate ...func(*config.AppConfig)) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	c := testConfig(t)
	for _, m := range mutate {
		m(&c)
	}
	cfg := config.Set(c)

	db, err := config.OpenDatabase(cfg.DBDriver, config.DSN(cfg), cfg.LogLevel)
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db, models.All()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	require.NoError(t, middleware.InitSessionStore(cfg))
	utils.ClearCache()

	return &testApp{t: t, db: db, handler: NewHandler(db), cfg: cfg}
}

func (a *testApp) createUser(username string) *models.User {
	a.t.Helper()
	hash, err := utils.HashPassword(testPassword)
	require.NoError(a.t, err)
	u := &models.User{Username: username, PasswordHash: hash}
	require.NoError(a.t, a.db.Create(u).Error)
	return u
}

func (a *testApp) createGroup(title, slug string) *models.Group {
	a.t.Helper()
	g := &models.Group{Title: title, Slug: slug, Description: "Test group description"}
	require.NoError(a.t, a.db.Create(g).Error)
	return g
}

func (a *testApp) createPost(author *models.User, text string, group *models.Group) *models.Post {
	a.t.Helper()
	p := &models.Post{AuthorID: author.ID, Text: text}
	if group != nil {
		p.GroupID = &group.ID
	}
	require.NoError(a.t, a.db.Create(p).Error)
	return p
}

func (a *testApp) count(model interface{}) int64 {
	a.t.Helper()
	var n int64
	require.NoError(a.t, a.db.Model(model).Count(&n).Error)
	return n
}

// client keeps cookies between requests like a browser would.
type client struct {
	app     *testApp
	cookies map[string]*http.Cookie
	token   string
}

func (a *testApp) guest() *client {
	return &client{app: a, cookies: map[string]*http.Cookie{}}
}

// login signs username in through the login form.
func (a *testApp) login(username string) *client {
	a.t.Helper()
	c := a.guest()
	w := c.postForm("/auth/login/", url.Values{"username": {username}, "password": {testPassword}})
	require.Equal(a.t, http.StatusFound, w.Code, w.Body.String())
	require.NotEmpty(a.t, c.cookies)
	return c
}

// apiLogin obtains a bearer token.
func (a *testApp) apiLogin(username string) *client {
	a.t.Helper()
	c := a.guest()
	w := c.postJSON("/api/v1/auth/login", map[string]string{"username": username, "password": testPassword})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(a.t, resp.Data.Token)
	c.token = resp.Data.Token
	return c
}

func (c *client) do(method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	c.app.handler.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}
	return w
}

func (c *client) get(target string) *httptest.ResponseRecorder {
	return c.do(http.MethodGet, target, nil, "")
}

func (c *client) postForm(target string, form url.Values) *httptest.ResponseRecorder {
	return c.do(http.MethodPost, target, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
}

func (c *client) postJSON(target string, body interface{}) *httptest.ResponseRecorder {
	return c.sendJSON(http.MethodPost, target, body)
}

func (c *client) sendJSON(method, target string, body interface{}) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.app.t, err)
		r = bytes.NewReader(b)
	}
	return c.do(method, target, r, "application/json")
}

func (c *client) postMultipart(target string, fields map[string]string, fileField, filename string, data []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(c.app.t, mw.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, filename)
		require.NoError(c.app.t, err)
		_, err = fw.Write(data)
		require.NoError(c.app.t, err)
	}
	require.NoError(c.app.t, mw.Close())
	return c.do(http.MethodPost, target, &buf, mw.FormDataContentType())
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var env struct {
		Code int             `json:"code"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, out))
}
