package apihttp

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"evergreen/internal/logger"
	"evergreen/internal/persona"
	"evergreen/internal/selection"
	"evergreen/internal/service"
	"evergreen/internal/store"
)

const (
	maxBodyBytes         = 1 << 20
	defaultListLimit     = 20
	maxListLimit         = 200
	defaultDecideTimeout = 3 * time.Minute
)

// Decider is satisfied by *service.Service.
type Decider interface {
	Handle(ctx context.Context, body []byte) (service.Response, error)
	Select(ctx context.Context) (selection.Result, error)
}

// RecordCache is the optional fast path for lookups by id.
type RecordCache interface {
	Get(ctx context.Context, id string) (store.DecisionRecord, error)
}

type Router struct {
	decider  Decider
	records  store.Reader
	cache    RecordCache
	personas persona.Set
	timeout  time.Duration
}

func NewRouter(cfg ServerConfig) *Router {
	timeout := cfg.DecideTimeout
	if timeout <= 0 {
		timeout = defaultDecideTimeout
	}
	return &Router{
		decider:  cfg.Decider,
		records:  cfg.Records,
		cache:    cfg.Cache,
		personas: cfg.Personas,
		timeout:  timeout,
	}
}

func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.POST("/decisions", r.handleDecide)
	group.GET("/decisions", r.handleListDecisions)
	group.GET("/decisions/:id", r.handleDecisionByID)
	group.GET("/agents", r.handleAgents)
	group.POST("/selection", r.handleSelection)
}

func (r *Router) handleDecide(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, service.Response{Status: service.StatusError, Error: "Invalid request: unreadable body"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), r.timeout)
	defer cancel()
	resp, err := r.decider.Handle(ctx, body)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, resp)
	case service.IsRequestError(err):
		c.JSON(http.StatusBadRequest, resp)
	default:
		c.JSON(http.StatusBadGateway, resp)
	}
}

func (r *Router) handleDecisionByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if r.cache != nil {
		rec, err := r.cache.Get(c.Request.Context(), id)
		if err == nil {
			c.JSON(http.StatusOK, rec)
			return
		}
		if !errors.Is(err, store.ErrNotFound) {
			logger.Warnf("decision cache lookup %s failed: %v", id, err)
		}
	}
	if r.records == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "decision not found"})
		return
	}
	rec, err := r.records.Get(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "decision not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (r *Router) handleListDecisions(c *gin.Context) {
	if r.records == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "decision store disabled"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	recs, err := r.records.ListRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if recs == nil {
		recs = []store.DecisionRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"decisions": recs, "count": len(recs)})
}

type agentView struct {
	Name           string   `json:"name"`
	Title          string   `json:"title"`
	Weight         float64  `json:"weight"`
	Focus          string   `json:"focus,omitempty"`
	Considerations []string `json:"considerations"`
}

func (r *Router) handleAgents(c *gin.Context) {
	all := r.personas.All()
	out := make([]agentView, 0, len(all))
	for _, p := range all {
		out = append(out, agentView{
			Name:           p.Name(),
			Title:          p.Title(),
			Weight:         p.Weight(),
			Focus:          p.Focus(),
			Considerations: p.Considerations(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"agents": out})
}

func (r *Router) handleSelection(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), r.timeout)
	defer cancel()
	res, err := r.decider.Select(ctx)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"status": service.StatusError, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}
