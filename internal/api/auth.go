package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ──────────────────────────────────────────────────────────────────
// Mesh bearer token middleware
//
// Gates the intra-mesh peer endpoints (/get_peers, /get_fact_ids,
// /get_facts_by_id, /get_blocks_after) behind AXIOM_MESH_TOKEN when
// the operator sets one. /think, /local_query, /mesh_query and
// /fragment_opinion stay public — a fact-checking client should not
// need credentials to query or challenge the mesh, only to replicate
// its ledger wholesale.
// ──────────────────────────────────────────────────────────────────

// MeshAuthMiddleware returns a Gin middleware that validates bearer
// tokens against token. If token is empty, every request is allowed
// (single-operator / trusted-network mode).
func MeshAuthMiddleware(token string, log *logrus.Entry) gin.HandlerFunc {
	if token == "" {
		log.Warn("AXIOM_MESH_TOKEN is unset; mesh endpoints are open to any peer")
	}

	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			c.Abort()
			return
		}

		parts := strings.SplitN(auth, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid Authorization header format"})
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(token)) != 1 {
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid mesh token"})
			c.Abort()
			return
		}

		c.Next()
	}
}
