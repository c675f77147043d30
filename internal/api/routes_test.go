package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/rawblock/axiom-node/internal/chain"
	"github.com/rawblock/axiom-node/internal/config"
	"github.com/rawblock/axiom-node/internal/conversation"
	"github.com/rawblock/axiom-node/internal/extractor"
	"github.com/rawblock/axiom-node/internal/nlp"
	"github.com/rawblock/axiom-node/internal/query"
	"github.com/rawblock/axiom-node/internal/storage"
)

func newTestRouter(t *testing.T, meshToken string) (*gin.Engine, *storage.Store, *extractor.Extractor) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	log := logrus.New()
	log.SetOutput(os.Stderr)
	store, err := storage.Open(filepath.Join(dir, "test.db"), log)
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ch := chain.New(store, log)
	if err := ch.EnsureGenesis(); err != nil {
		t.Fatalf("EnsureGenesis: %v", err)
	}

	engine := nlp.NewRuleEngine()
	ext := extractor.New(store, engine, 100, log)
	qEngine := query.New(store, engine)
	hub := NewHub(log)

	conv := conversation.NewCompiler()
	for done := false; !done; {
		_, done = conv.AdvanceCompilation(4)
	}

	cfg := &config.Config{InitialReputation: 0.2, MeshAuthToken: meshToken}
	router := SetupRouter(store, ch, qEngine, conv, hub, cfg, log)
	return router, store, ext
}

func TestHandleGetChainHead_ReturnsGenesis(t *testing.T) {
	router, _, _ := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "/get_chain_head", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		BlockID string `json:"block_id"`
		Height  int    `json:"height"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Height != 0 {
		t.Errorf("expected genesis height 0, got %d", body.Height)
	}
}

func TestHandleLocalQuery_FindsExtractedFact(t *testing.T) {
	router, _, ext := newTestRouter(t, "")

	if _, err := ext.Extract("https://a.example/x", "Germany and France approved the Atlantic Climate Accord at the summit."); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/local_query?term=germany&include_uncorroborated=true", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Germany") {
		t.Errorf("expected result containing Germany, got %s", rec.Body.String())
	}
}

func TestMeshEndpoints_RejectedWithoutTokenWhenConfigured(t *testing.T) {
	router, _, _ := newTestRouter(t, "secret")

	req := httptest.NewRequest(http.MethodGet, "/get_peers", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a bearer token, got %d", rec.Code)
	}
}

func TestMeshEndpoints_AllowedWithCorrectToken(t *testing.T) {
	router, _, _ := newTestRouter(t, "secret")

	req := httptest.NewRequest(http.MethodGet, "/get_peers", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with correct token, got %d", rec.Code)
	}
}

func TestHandleFragmentOpinion_UnseenFact(t *testing.T) {
	router, _, _ := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "/fragment_opinion?fact_id=deadbeef", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"seen":false`) {
		t.Errorf("expected seen:false for an unknown fact, got %s", rec.Body.String())
	}
}

func TestHandleThink_NoGroundingAtoms(t *testing.T) {
	router, _, _ := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "/think?query=", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "no grounding atoms") {
		t.Errorf("expected no grounding atoms response, got %s", rec.Body.String())
	}
}

func TestHandleThink_CannedReplyBypassesLedgerScan(t *testing.T) {
	router, _, _ := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "/think?query=what+is+axiom", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "always-on knowledge engine") {
		t.Errorf("expected the canned 'what is axiom' reply, got %s", rec.Body.String())
	}
}

func TestHandleThink_ShowMorePaginatesPreviousHits(t *testing.T) {
	router, _, ext := newTestRouter(t, "")

	if _, err := ext.Extract("https://a.example/x", "Germany and France approved the Atlantic Climate Accord at the summit."); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if _, err := ext.Extract("https://b.example/y", "Germany and Austria approved the Danube River Accord at the conference."); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/think?query=Germany", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/think?query=show+more", nil)
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec2.Code)
	}
	if strings.Contains(rec2.Body.String(), "nothing more to show") {
		t.Errorf("expected a paginated hit after two Germany facts, got %s", rec2.Body.String())
	}
}

func TestPeerRegistrationMiddleware_RegistersHeaderPeer(t *testing.T) {
	router, store, _ := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "/get_chain_head", nil)
	req.Header.Set("X-Axiom-Peer", "http://peer.example:8420")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	_, ok, err := store.GetPeer("http://peer.example:8420")
	if err != nil {
		t.Fatalf("GetPeer: %v", err)
	}
	if !ok {
		t.Error("expected the X-Axiom-Peer header to register a peer")
	}
}
