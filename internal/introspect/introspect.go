// Package introspect exposes a read-only debug surface over a running
// Runtime: module states and dependency edges, registered hook and xcall
// names, and pending timer counts, plus a WebSocket stream of module
// load/unload events for a live view.
//
// The route-registration shape is grounded on
// internal/plugins/api_registry.go's APIRegistry (gin.RouterGroup, one
// handler per path) and internal/plugins/event_bus.go's websocket
// broadcast loop, here narrowed to a single fixed, unauthenticated debug
// router rather than a per-plugin-namespaced one — this core has no
// notion of users or auth, so none of that plumbing carries over.
package introspect

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/modcore/modcore/internal/hook"
	"github.com/modcore/modcore/internal/logger"
	"github.com/modcore/modcore/internal/module"
	"github.com/modcore/modcore/internal/timer"
	"github.com/modcore/modcore/internal/xcall"
)

// Server wires the core subsystems to a gin router for debug inspection.
type Server struct {
	Modules *module.Graph
	Hooks   *hook.Registry
	XCalls  *xcall.Registry
	Timers  *timer.Scheduler

	upgrader websocket.Upgrader
	mu       sync.Mutex
	streams  map[*websocket.Conn]struct{}
}

// New returns a Server ready to have its routes attached.
func New(modules *module.Graph, hooks *hook.Registry, xcalls *xcall.Registry, timers *timer.Scheduler) *Server {
	return &Server{
		Modules: modules,
		Hooks:   hooks,
		XCalls:  xcalls,
		Timers:  timers,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		streams: make(map[*websocket.Conn]struct{}),
	}
}

// Attach registers every debug route under group.
func (s *Server) Attach(group *gin.RouterGroup) {
	group.GET("/modules", s.listModules)
	group.GET("/modules/:name", s.getModule)
	group.GET("/hooks", s.listHooks)
	group.GET("/xcalls", s.listXCalls)
	group.GET("/timers", s.getTimers)
	group.GET("/events/stream", s.streamEvents)
}

func (s *Server) listModules(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"modules": s.Modules.ActiveModules()})
}

func (s *Server) getModule(c *gin.Context) {
	name := c.Param("name")
	if !s.Modules.IsLoaded(name) {
		c.JSON(http.StatusNotFound, gin.H{"error": "module not loaded"})
		return
	}

	version, _ := s.Modules.ModuleVersion(name)
	bcVersion, _ := s.Modules.BCVersion(name)
	author, _ := s.Modules.Author(name)
	description, _ := s.Modules.Description(name)
	rc, _ := s.Modules.RC(name)

	c.JSON(http.StatusOK, gin.H{
		"name":         name,
		"author":       author,
		"description":  description,
		"version":      version.String(),
		"bc_version":   bcVersion.String(),
		"rc":           rc,
		"dependencies": s.Modules.Dependencies(name),
		"rdeps":        s.Modules.RDeps(name),
	})
}

func (s *Server) listHooks(c *gin.Context) {
	names := s.Hooks.Names()
	out := make([]gin.H, 0, len(names))
	for _, name := range names {
		out = append(out, gin.H{"name": name, "listeners": s.Hooks.Len(name)})
	}
	c.JSON(http.StatusOK, gin.H{"hooks": out})
}

func (s *Server) listXCalls(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"functions": s.XCalls.Names()})
}

func (s *Server) getTimers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pending": s.Timers.Pending()})
}

// streamEvents upgrades to a WebSocket and keeps the connection registered
// for Broadcast until the client disconnects. The caller wires Broadcast to
// module.Graph.SetEventSink so every load/unload transition reaches every
// connected client.
func (s *Server) streamEvents(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Runtime().Warn().Err(err).Msg("introspect: websocket upgrade failed")
		return
	}

	s.mu.Lock()
	s.streams[conn] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.streams, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast sends msg as JSON to every connected /events/stream client,
// dropping any connection that errors.
func (s *Server) Broadcast(msg interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for conn := range s.streams {
		if err := conn.WriteJSON(msg); err != nil {
			conn.Close()
			delete(s.streams, conn)
		}
	}
}
