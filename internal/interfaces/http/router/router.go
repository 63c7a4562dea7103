// Package router assembles the gin route tree.
package router

import (
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/marketlevy/backend/internal/infrastructure/auth"
	"github.com/marketlevy/backend/internal/interfaces/http/middleware"
)

// Router mounts route groups under /api/<version>
type Router struct {
	engine     *gin.Engine
	apiVersion string
	groups     []*Group
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, apiVersion: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Mount queues groups for Setup
func (r *Router) Mount(groups ...*Group) *Router {
	r.groups = append(r.groups, groups...)
	return r
}

// Setup registers every mounted group and returns the resulting route table.
func (r *Router) Setup() []RouteInfo {
	base := "/api/" + r.apiVersion
	api := r.engine.Group(base)
	var table []RouteInfo
	for _, g := range r.groups {
		g.register(api)
		table = append(table, g.describe(base)...)
	}
	return table
}

// RouteInfo describes one registered route.
type RouteInfo struct {
	Method string
	Path   string
	Roles  []auth.Role // empty when any authenticated caller may use the route
}

func (ri RouteInfo) String() string {
	if len(ri.Roles) == 0 {
		return ri.Method + " " + ri.Path
	}
	roles := make([]string, len(ri.Roles))
	for i, role := range ri.Roles {
		roles[i] = string(role)
	}
	return ri.Method + " " + ri.Path + " [" + strings.Join(roles, ",") + "]"
}

// Group is a prefix with shared middleware. Routes list the roles allowed to
// call them; RequireRole is added in front of the handler for them.
type Group struct {
	prefix     string
	middleware []gin.HandlerFunc
	routes     []route
	children   []*Group
}

type route struct {
	method  string
	path    string
	roles   []auth.Role
	handler gin.HandlerFunc
}

func NewGroup(prefix string) *Group {
	return &Group{prefix: prefix}
}

// Use adds middleware to this group and its children
func (g *Group) Use(middleware ...gin.HandlerFunc) *Group {
	g.middleware = append(g.middleware, middleware...)
	return g
}

// Group creates a child group under prefix
func (g *Group) Group(prefix string) *Group {
	child := NewGroup(prefix)
	g.children = append(g.children, child)
	return child
}

func (g *Group) GET(p string, h gin.HandlerFunc, roles ...auth.Role) *Group {
	return g.Handle(http.MethodGet, p, h, roles...)
}

func (g *Group) POST(p string, h gin.HandlerFunc, roles ...auth.Role) *Group {
	return g.Handle(http.MethodPost, p, h, roles...)
}

func (g *Group) PUT(p string, h gin.HandlerFunc, roles ...auth.Role) *Group {
	return g.Handle(http.MethodPut, p, h, roles...)
}

func (g *Group) Handle(method, p string, h gin.HandlerFunc, roles ...auth.Role) *Group {
	g.routes = append(g.routes, route{method: method, path: p, roles: roles, handler: h})
	return g
}

func (g *Group) register(parent *gin.RouterGroup) {
	rg := parent.Group(g.prefix)
	if len(g.middleware) > 0 {
		rg.Use(g.middleware...)
	}
	for _, rt := range g.routes {
		chain := []gin.HandlerFunc{rt.handler}
		if len(rt.roles) > 0 {
			chain = []gin.HandlerFunc{middleware.RequireRole(rt.roles...), rt.handler}
		}
		rg.Handle(rt.method, rt.path, chain...)
	}
	for _, child := range g.children {
		child.register(rg)
	}
}

func (g *Group) describe(base string) []RouteInfo {
	prefix := joinPath(base, g.prefix)
	table := make([]RouteInfo, 0, len(g.routes))
	for _, rt := range g.routes {
		table = append(table, RouteInfo{Method: rt.method, Path: joinPath(prefix, rt.path), Roles: rt.roles})
	}
	for _, child := range g.children {
		table = append(table, child.describe(prefix)...)
	}
	return table
}

func joinPath(base, rel string) string {
	if rel == "" {
		return base
	}
	return path.Join(base, rel)
}
