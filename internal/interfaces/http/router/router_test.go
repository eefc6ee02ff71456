package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	crmapp "github.com/hubcrm/backend/internal/application/crm"
	"github.com/hubcrm/backend/internal/interfaces/http/handler"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())
	assert.Equal(t, "/api/v1", r.BasePath())

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "/api/v2", r.BasePath())
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	group := NewDomainGroup("test", "/test").GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	NewRouter(engine).Register(group).Setup()

	w := serve(engine, http.MethodGet, "/api/v1/test/ping")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())

	w = serve(engine, http.MethodGet, "/test/ping")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouterMiddlewareScopesToAPI(t *testing.T) {
	engine := gin.New()
	engine.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	deny := func(c *gin.Context) { c.AbortWithStatus(http.StatusUnauthorized) }
	group := NewDomainGroup("test", "/test").GET("", func(c *gin.Context) { c.Status(http.StatusOK) })
	NewRouter(engine, WithMiddleware(deny)).Register(group).Setup()

	assert.Equal(t, http.StatusUnauthorized, serve(engine, http.MethodGet, "/api/v1/test").Code)
	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/health").Code)
}

func TestDomainGroup(t *testing.T) {
	engine := gin.New()
	var order []string

	group := NewDomainGroup("deals", "/deals").
		Use(func(c *gin.Context) {
			order = append(order, "group")
			c.Next()
		})
	ok := func(c *gin.Context) { c.String(http.StatusOK, c.Request.Method) }
	group.GET("", ok).POST("", ok).PUT("/:id", ok).PATCH("/:id", ok).DELETE("/:id", ok)
	group.Group("stages", "/stages").GET("", ok)

	NewRouter(engine).Register(group).Setup()

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/deals"},
		{http.MethodPost, "/api/v1/deals"},
		{http.MethodPut, "/api/v1/deals/1"},
		{http.MethodPatch, "/api/v1/deals/1"},
		{http.MethodDelete, "/api/v1/deals/1"},
		{http.MethodGet, "/api/v1/deals/stages"},
	} {
		w := serve(engine, tc.method, tc.path)
		assert.Equal(t, http.StatusOK, w.Code, "%s %s", tc.method, tc.path)
		assert.Equal(t, tc.method, w.Body.String())
	}
	assert.Len(t, order, 6)

	assert.Equal(t, "deals", group.Name())
	assert.Equal(t, "/deals", group.Prefix())
}

func TestDomainGroup_Routes(t *testing.T) {
	noop := func(*gin.Context) {}
	group := NewDomainGroup("contacts", "/contacts").GET("", noop).POST("/:id/photo", noop)
	group.Group("notes", "/notes").GET("/:id", noop)

	assert.Equal(t, []Route{
		{Method: http.MethodGet, Path: "/contacts"},
		{Method: http.MethodPost, Path: "/contacts/:id/photo"},
		{Method: http.MethodGet, Path: "/contacts/notes/:id"},
	}, group.Routes())
}

func TestCRMGroups(t *testing.T) {
	groups := CRMGroups(handler.NewCRMHandlers(crmapp.NewServices(nil)))
	require.Len(t, groups, 8)

	var routes []Route
	for _, g := range groups {
		routes = append(routes, g.Routes()...)
	}
	assert.Len(t, routes, 7*5+2)
	assert.Contains(t, routes, Route{Method: http.MethodPost, Path: "/contacts/:id/photo"})
	assert.Contains(t, routes, Route{Method: http.MethodDelete, Path: "/invoices/:id"})
	assert.Contains(t, routes, Route{Method: http.MethodGet, Path: "/options"})

	engine := gin.New()
	r := NewRouter(engine)
	for _, g := range groups {
		r.Register(g)
	}
	r.Setup()

	w := serve(engine, http.MethodGet, "/api/v1/options")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(engine, http.MethodGet, "/api/v1/deals/not-a-number")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthGroup(t *testing.T) {
	routes := AuthGroup(handler.NewAuthHandler(nil, nil, nil, nil)).Routes()
	assert.Equal(t, []Route{
		{Method: http.MethodPost, Path: "/auth/login"},
		{Method: http.MethodPost, Path: "/auth/logout"},
		{Method: http.MethodGet, Path: "/auth/me"},
	}, routes)
}
