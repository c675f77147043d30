package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rawblock/axiom-node/internal/chain"
	"github.com/rawblock/axiom-node/internal/config"
	"github.com/rawblock/axiom-node/internal/conversation"
	"github.com/rawblock/axiom-node/internal/query"
	"github.com/rawblock/axiom-node/internal/storage"
	"github.com/rawblock/axiom-node/pkg/models"
)

// Handler holds the collaborators the HTTP endpoints are served from.
type Handler struct {
	store *storage.Store
	chain *chain.Chain
	query *query.Engine
	conv  *conversation.Compiler
	hub   *Hub
	cfg   *config.Config
	log   *logrus.Entry
}

// SetupRouter builds the gin.Engine serving the node's full HTTP
// surface: public query endpoints, token-gated mesh replication
// endpoints, and the websocket event stream.
func SetupRouter(store *storage.Store, ch *chain.Chain, qEngine *query.Engine, conv *conversation.Compiler, hub *Hub, cfg *config.Config, log *logrus.Logger) *gin.Engine {
	r := gin.Default()

	r.Use(corsMiddleware())
	r.Use(requestIDMiddleware())
	r.Use(peerRegistrationMiddleware(store, cfg.InitialReputation, log.WithField("component", "api")))

	h := &Handler{store: store, chain: ch, query: qEngine, conv: conv, hub: hub, cfg: cfg, log: log.WithField("component", "api")}

	public := r.Group("/")
	public.Use(NewRateLimiter(120, 20).Middleware())
	{
		public.GET("/local_query", h.handleLocalQuery)
		public.GET("/mesh_query", h.handleMeshQuery)
		public.GET("/think", h.handleThink)
		public.GET("/fragment_opinion", h.handleFragmentOpinion)
		public.GET("/get_chain_head", h.handleGetChainHead)
	}

	mesh := r.Group("/")
	mesh.Use(MeshAuthMiddleware(cfg.MeshAuthToken, log.WithField("component", "api")))
	mesh.Use(NewRateLimiter(60, 10).Middleware())
	{
		mesh.GET("/get_peers", h.handleGetPeers)
		mesh.GET("/get_fact_ids", h.handleGetFactIDs)
		mesh.POST("/get_facts_by_id", h.handleGetFactsByID)
		mesh.GET("/get_blocks_after", h.handleGetBlocksAfter)
	}

	r.GET("/api/v1/stream", hub.Subscribe)

	return r
}

// corsMiddleware opens the query surface to browser dashboards.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Axiom-Peer")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// requestIDMiddleware stamps every request with a correlation id so a
// log line can be traced end to end across extract/synthesize/sync
// passes triggered by the same inbound call.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Writer.Header().Set("X-Request-ID", id)
		c.Set("request_id", id)
		c.Next()
	}
}

// peerRegistrationMiddleware registers the X-Axiom-Peer header as a
// known peer on every inbound request, not only the dedicated sync
// endpoints; any request from a peer is a liveness signal worth
// recording.
func peerRegistrationMiddleware(store *storage.Store, initialReputation float64, log *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		if peerURL := c.GetHeader("X-Axiom-Peer"); peerURL != "" {
			if err := store.UpsertPeer(peerURL, initialReputation); err != nil {
				log.WithError(err).WithField("peer", peerURL).Debug("failed to register peer from request header")
			}
		}
		c.Next()
	}
}

func (h *Handler) handleLocalQuery(c *gin.Context) {
	term := c.Query("term")
	includeUncorroborated := c.Query("include_uncorroborated") == "true"

	facts, err := h.store.SearchFacts(term, includeUncorroborated)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	wire := make([]models.WireFact, 0, len(facts))
	for _, f := range facts {
		wire = append(wire, f.ToWire())
	}
	c.JSON(http.StatusOK, gin.H{"results": wire})
}

func (h *Handler) handleMeshQuery(c *gin.Context) {
	term := strings.ToLower(strings.TrimSpace(c.Query("term")))
	if term == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "term is required"})
		return
	}

	occurrences, err := h.store.AtomOccurrenceCount(term)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	synapses, err := h.store.SynapsesForWord(term)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	associations := make([]models.Association, 0, len(synapses))
	for _, s := range synapses {
		associations = append(associations, models.Association{
			WordA: s.WordA, WordB: s.WordB, RelationType: s.RelationType, Strength: s.Strength,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"concept":      term,
		"properties":   gin.H{"occurrence_count": occurrences},
		"associations": associations,
	})
}

func (h *Handler) handleGetPeers(c *gin.Context) {
	peers, err := h.store.ListPeers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make(map[string]models.WirePeer, len(peers))
	for _, p := range peers {
		out[p.URL] = p.ToWire()
	}
	c.JSON(http.StatusOK, gin.H{"peers": out})
}

func (h *Handler) handleGetChainHead(c *gin.Context) {
	head, err := h.chain.Head()
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"block_id": "", "height": -1})
		return
	}
	c.JSON(http.StatusOK, gin.H{"block_id": head.BlockID, "height": head.Height})
}

func (h *Handler) handleGetBlocksAfter(c *gin.Context) {
	height, err := strconv.Atoi(c.DefaultQuery("height", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "height must be an integer"})
		return
	}
	blocks, err := h.store.GetBlocksAfter(height)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"blocks": blocks})
}

func (h *Handler) handleGetFactIDs(c *gin.Context) {
	ids, err := h.store.ListFactIDs()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"fact_ids": ids})
}

func (h *Handler) handleGetFactsByID(c *gin.Context) {
	var req struct {
		FactIDs []string `json:"fact_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	facts, err := h.store.GetFactsByIDs(req.FactIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	wire := make([]models.WireFact, 0, len(facts))
	for _, f := range facts {
		wire = append(wire, f.ToWire())
	}
	c.JSON(http.StatusOK, gin.H{"facts": wire})
}

// handleThink serves the /think endpoint. A "show more" follow-up
// paginates the previous query's hit list; a query matching a
// compiled conversation pattern is answered without ever touching the
// ledger; everything else falls through to the full grounding-atom
// scan.
func (h *Handler) handleThink(c *gin.Context) {
	queryText := c.Query("query")
	clientKey := c.ClientIP()

	if isShowMore(queryText) {
		page, ok := h.query.ShowMore(clientKey, showMorePageSize)
		if !ok {
			c.JSON(http.StatusOK, gin.H{"response": "nothing more to show"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"response": formatShowMore(page)})
		return
	}

	if h.conv != nil {
		if handled, response := h.conv.Match(queryText); handled {
			c.JSON(http.StatusOK, gin.H{"response": response})
			return
		}
	}

	answer, err := h.query.Ask(clientKey, queryText)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": answer.Text})
}

const showMorePageSize = 5

// isShowMore recognizes the fixed "show more" follow-up phrase,
// matched the same normalized way a conversation pattern is.
func isShowMore(query string) bool {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	return normalized == "show more"
}

func formatShowMore(page []query.Result) string {
	if len(page) == 0 {
		return "nothing more to show"
	}
	parts := make([]string, len(page))
	for i, r := range page {
		parts[i] = fmt.Sprintf("%q", r.Content)
	}
	return "Additional records: " + strings.Join(parts, "; ")
}

// RouteList enumerates every currently registered HTTP route, for
// the scheduler's idle task to log a count from without the api
// package depending on scheduler.
func RouteList(r *gin.Engine) []string {
	routes := r.Routes()
	out := make([]string, len(routes))
	for i, rt := range routes {
		out[i] = rt.Method + " " + rt.Path
	}
	return out
}

func (h *Handler) handleFragmentOpinion(c *gin.Context) {
	factID := c.Query("fact_id")
	f, ok, err := h.store.GetFactByID(factID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"seen": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"seen":           true,
		"status":         string(f.Status),
		"trust_score":    f.TrustScore,
		"fragment_state": string(f.FragmentState),
		"fragment_score": f.FragmentScore,
	})
}
