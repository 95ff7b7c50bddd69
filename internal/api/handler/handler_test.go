package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/d60-Lab/blog-api/config"
	"github.com/d60-Lab/blog-api/internal/api/handler"
	"github.com/d60-Lab/blog-api/internal/api/router"
	"github.com/d60-Lab/blog-api/internal/auth"
	"github.com/d60-Lab/blog-api/internal/model"
	"github.com/d60-Lab/blog-api/internal/pagination"
	"github.com/d60-Lab/blog-api/internal/repository"
	"github.com/d60-Lab/blog-api/internal/service"
)

type apiClient struct {
	t      *testing.T
	engine *gin.Engine
	token  string
}

func newTestAPI(t *testing.T, opts ...func(*config.Config)) *apiClient {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Post{}))
	t.Cleanup(func() { _ = sqlDB.Close() })

	cfg := config.Default()
	cfg.Server.Mode = gin.TestMode
	for _, opt := range opts {
		opt(cfg)
	}

	postRepo := repository.NewPostRepository(db)
	postSvc := service.NewPostService(postRepo, pagination.New(cfg.Pagination), nil)
	userSvc := service.NewUserService(repository.NewUserRepository(db), postRepo, auth.NewTokenManager(cfg.JWT))
	h := handler.NewHandler(cfg, postSvc, userSvc, sqlDB)

	return &apiClient{t: t, engine: router.Setup(cfg, h, userSvc)}
}

func (a *apiClient) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(a.t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

// as 返回共享同一服务、携带 username 令牌的客户端（注册+登录）
func (a *apiClient) as(username string) *apiClient {
	a.t.Helper()
	anon := &apiClient{t: a.t, engine: a.engine}
	email := username + "@example.com"
	w := anon.do(http.MethodPost, "/auth/signup", map[string]string{"email": email, "username": username, "password": "password123"})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())

	w = anon.do(http.MethodPost, "/auth/login", map[string]string{"email": email, "password": "password123"})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	var res struct {
		Tokens auth.TokenPair `json:"tokens"`
	}
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &res))
	require.NotEmpty(a.t, res.Tokens.Access)
	return &apiClient{t: a.t, engine: a.engine, token: res.Tokens.Access}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type postBody struct {
	ID             uint   `json:"id"`
	Title          string `json:"title"`
	Content        string `json:"content"`
	Author         uint   `json:"author"`
	AuthorUsername string `json:"author_username"`
}

type envelope struct {
	Count    int64      `json:"count"`
	Next     *string    `json:"next"`
	Previous *string    `json:"previous"`
	Results  []postBody `json:"results"`
}

func (a *apiClient) createPost(title string) postBody {
	a.t.Helper()
	w := a.do(http.MethodPost, "/posts", map[string]string{"title": title, "content": "body of " + title})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[postBody](a.t, w)
}

func TestHomepage(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/homepage", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Hello World"}`, w.Body.String())

	w = api.do(http.MethodPost, "/homepage", `{"x":1}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"message":"Hello World","data":{"x":1}}`, w.Body.String())

	w = api.do(http.MethodPost, "/homepage", nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"message":"Hello World","data":{}}`, w.Body.String())

	w = api.do(http.MethodPost, "/homepage", `{broken`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	w := newTestAPI(t).do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestListPosts_Empty(t *testing.T) {
	w := newTestAPI(t).do(http.MethodGet, "/posts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":0,"next":null,"previous":null,"results":[]}`, w.Body.String())
}

func TestCreatePost(t *testing.T) {
	api := newTestAPI(t)
	alice := api.as("alice")

	w := alice.do(http.MethodPost, "/posts", map[string]interface{}{"title": "Sample title", "content": "Sample content", "author": 999})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	post := decode[postBody](t, w)
	assert.Equal(t, "Sample title", post.Title)
	assert.Equal(t, "Sample content", post.Content)
	assert.Equal(t, "alice", post.AuthorUsername)
	assert.NotEqualValues(t, 999, post.Author)
}

func TestCreatePost_Unauthenticated(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodPost, "/posts", map[string]string{"title": "t", "content": "c"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, `Bearer realm="api"`, w.Header().Get("WWW-Authenticate"))

	// 认证先于校验
	w = api.do(http.MethodPost, "/posts", map[string]string{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	bad := &apiClient{t: t, engine: api.engine, token: "garbage"}
	w = bad.do(http.MethodPost, "/posts", map[string]string{"title": "t", "content": "c"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreatePost_Validation(t *testing.T) {
	alice := newTestAPI(t).as("alice")

	w := alice.do(http.MethodPost, "/posts", map[string]string{})
	require.Equal(t, http.StatusBadRequest, w.Code)
	errs := decode[map[string][]string](t, w)
	assert.Equal(t, []string{"This field is required."}, errs["title"])
	assert.Equal(t, []string{"This field is required."}, errs["content"])

	w = alice.do(http.MethodPost, "/posts", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	errs = decode[map[string][]string](t, w)
	assert.Len(t, errs, 2)

	w = alice.do(http.MethodPost, "/posts", map[string]string{"title": "", "content": ""})
	require.Equal(t, http.StatusBadRequest, w.Code)
	errs = decode[map[string][]string](t, w)
	assert.Equal(t, []string{"This field may not be blank."}, errs["title"])
	assert.NotContains(t, errs, "content")

	w = alice.do(http.MethodPost, "/posts", `{"title": 12, "content": "c"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[map[string][]string](t, w), "title")

	w = alice.do(http.MethodPost, "/posts", `{not json`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "detail")
}

func TestListPosts_Pagination(t *testing.T) {
	api := newTestAPI(t)
	alice := api.as("alice")
	for i := 1; i <= 7; i++ {
		alice.createPost(fmt.Sprintf("post %d", i))
	}

	w := api.do(http.MethodGet, "/posts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	env := decode[envelope](t, w)
	assert.EqualValues(t, 7, env.Count)
	require.Len(t, env.Results, 3)
	assert.Equal(t, "post 1", env.Results[0].Title)
	require.NotNil(t, env.Next)
	assert.Equal(t, "http://example.com/posts?page=2", *env.Next)
	assert.Nil(t, env.Previous)

	w = api.do(http.MethodGet, "/posts?page=2", nil)
	env = decode[envelope](t, w)
	require.NotNil(t, env.Previous)
	assert.Equal(t, "http://example.com/posts", *env.Previous)

	w = api.do(http.MethodGet, "/posts?page=3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	env = decode[envelope](t, w)
	require.Len(t, env.Results, 1)
	assert.Equal(t, "post 7", env.Results[0].Title)
	assert.Nil(t, env.Next)

	w = api.do(http.MethodGet, "/posts?page=4", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"detail":"Invalid page."}`, w.Body.String())

	w = api.do(http.MethodGet, "/posts?page_size=5&page=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[envelope](t, w).Results, 2)
}

func TestRetrievePost(t *testing.T) {
	api := newTestAPI(t)
	post := api.as("alice").createPost("hello")

	w := api.do(http.MethodGet, fmt.Sprintf("/posts/%d", post.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello", decode[postBody](t, w).Title)

	w = api.do(http.MethodGet, "/posts/9999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(http.MethodGet, "/posts/abc", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdatePost(t *testing.T) {
	api := newTestAPI(t)
	alice := api.as("alice")
	bob := api.as("bob")
	post := alice.createPost("draft")
	path := fmt.Sprintf("/posts/%d", post.ID)
	body := map[string]string{"title": "updated", "content": "new content"}

	w := bob.do(http.MethodPut, path, body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(http.MethodPut, path, body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = bob.do(http.MethodPut, "/posts/9999", body)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 非作者的非法请求体仍返回 403
	w = bob.do(http.MethodPut, path, map[string]string{})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = alice.do(http.MethodPut, path, map[string]string{"content": "no title"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[map[string][]string](t, w), "title")

	w = alice.do(http.MethodPut, path, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[postBody](t, w)
	assert.Equal(t, "updated", updated.Title)
	assert.Equal(t, "new content", updated.Content)
	assert.Equal(t, post.Author, updated.Author)

	w = api.do(http.MethodGet, path, nil)
	assert.Equal(t, "updated", decode[postBody](t, w).Title)
}

func TestDeletePost(t *testing.T) {
	api := newTestAPI(t)
	alice := api.as("alice")
	bob := api.as("bob")
	post := alice.createPost("doomed")
	path := fmt.Sprintf("/posts/%d", post.ID)

	assert.Equal(t, http.StatusForbidden, bob.do(http.MethodDelete, path, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodDelete, path, nil).Code)

	w := alice.do(http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, path, nil).Code)
	assert.Equal(t, http.StatusNotFound, alice.do(http.MethodDelete, path, nil).Code)
}

func TestPostsFor(t *testing.T) {
	api := newTestAPI(t)
	alice := api.as("alice")
	bob := api.as("bob")
	alice.createPost("a1")
	bob.createPost("b1")
	alice.createPost("a2")
	api.as("Alice").createPost("A1")

	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/posts_for?username=alice", nil).Code)

	w := bob.do(http.MethodGet, "/posts_for?username=alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	posts := decode[[]postBody](t, w)
	require.Len(t, posts, 2)
	for _, p := range posts {
		assert.Equal(t, "alice", p.AuthorUsername)
	}

	w = bob.do(http.MethodGet, "/posts_for", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]postBody](t, w), 4)

	w = bob.do(http.MethodGet, "/posts_for?username=nobody", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestCurrentUser(t *testing.T) {
	api := newTestAPI(t)
	alice := api.as("alice")
	alice.createPost("mine")
	api.as("bob").createPost("theirs")

	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/current_user", nil).Code)

	w := alice.do(http.MethodGet, "/current_user", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var res struct {
		Username string     `json:"username"`
		Email    string     `json:"email"`
		Posts    []postBody `json:"posts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "alice", res.Username)
	assert.Equal(t, "alice@example.com", res.Email)
	require.Len(t, res.Posts, 1)
	assert.Equal(t, "mine", res.Posts[0].Title)
}

func TestCreatePost_CollectsTypeErrors(t *testing.T) {
	alice := newTestAPI(t).as("alice")

	w := alice.do(http.MethodPost, "/posts", `{"title": true}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"title":["Not a valid string."],"content":["This field is required."]}`, w.Body.String())

	w = alice.do(http.MethodPost, "/posts", `{"title": 1, "content": false}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"title":["Not a valid string."],"content":["Not a valid string."]}`, w.Body.String())
}

func TestCreatePost_BlankAndNull(t *testing.T) {
	alice := newTestAPI(t).as("alice")

	w := alice.do(http.MethodPost, "/posts", map[string]string{"title": "   ", "content": "c"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"title":["This field may not be blank."]}`, w.Body.String())

	w = alice.do(http.MethodPost, "/posts", `{"title": "", "content": null}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"title":["This field may not be blank."],"content":["This field may not be null."]}`, w.Body.String())

	w = alice.do(http.MethodPost, "/posts", map[string]string{"title": "  padded  ", "content": "c"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "padded", decode[postBody](t, w).Title)
}

func (a *apiClient) doRaw(method, path, contentType string, body io.Reader) *httptest.ResponseRecorder {
	a.t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", contentType)
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func multipartBody(t *testing.T, fields map[string]string) (string, io.Reader) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return mw.FormDataContentType(), &buf
}

func TestFormEncodedFlow(t *testing.T) {
	api := newTestAPI(t)

	form := url.Values{"email": {"carol@example.com"}, "username": {"carol"}, "password": {"password123"}}
	w := api.doRaw(http.MethodPost, "/auth/signup", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	ct, body := multipartBody(t, map[string]string{"email": "carol@example.com", "password": "password123"})
	w = api.doRaw(http.MethodPost, "/auth/login", ct, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login struct {
		Tokens auth.TokenPair `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	carol := &apiClient{t: t, engine: api.engine, token: login.Tokens.Access}

	ct, body = multipartBody(t, map[string]string{"title": "Sample title", "content": "Sample content"})
	w = carol.doRaw(http.MethodPost, "/posts", ct, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	post := decode[postBody](t, w)
	assert.Equal(t, "Sample title", post.Title)
	assert.Equal(t, "carol", post.AuthorUsername)

	// 查询串中的字段不算作请求体
	w = carol.doRaw(http.MethodPost, "/posts?title=q", "application/x-www-form-urlencoded", strings.NewReader("content=c"))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"title":["This field is required."]}`, w.Body.String())

	w = carol.doRaw(http.MethodPost, "/posts", "application/x-www-form-urlencoded", strings.NewReader("title=&content="))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"title":["This field may not be blank."]}`, w.Body.String())

	w = api.doRaw(http.MethodPost, "/homepage", "application/x-www-form-urlencoded", strings.NewReader("x=1"))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"message":"Hello World","data":{"x":"1"}}`, w.Body.String())
}

func TestSignUp_FormatAndDuplicateErrorsTogether(t *testing.T) {
	api := newTestAPI(t)
	api.as("alice")

	w := api.do(http.MethodPost, "/auth/signup", map[string]string{"email": "new@example.com", "username": "alice", "password": "short"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{
		"username": ["A user with that username already exists."],
		"password": ["Ensure this field has at least 8 characters."]
	}`, w.Body.String())
}

func TestListPosts_ForwardedProto(t *testing.T) {
	seed := func(api *apiClient) {
		alice := api.as("alice")
		for i := 0; i < 4; i++ {
			alice.createPost(fmt.Sprintf("p%d", i))
		}
	}
	get := func(api *apiClient) envelope {
		req := httptest.NewRequest(http.MethodGet, "/posts", nil)
		req.RemoteAddr = "192.0.2.10:4321"
		req.Header.Set("X-Forwarded-Proto", "https")
		w := httptest.NewRecorder()
		api.engine.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		return decode[envelope](t, w)
	}

	untrusted := newTestAPI(t)
	seed(untrusted)
	env := get(untrusted)
	require.NotNil(t, env.Next)
	assert.Equal(t, "http://example.com/posts?page=2", *env.Next)

	trusted := newTestAPI(t, func(cfg *config.Config) {
		cfg.Server.TrustedProxies = []string{"192.0.2.0/24"}
	})
	seed(trusted)
	env = get(trusted)
	require.NotNil(t, env.Next)
	assert.Equal(t, "https://example.com/posts?page=2", *env.Next)
}
