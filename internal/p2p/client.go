package p2p

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rawblock/axiom-node/internal/errs"
	"github.com/rawblock/axiom-node/pkg/models"
)

// Client issues the node's outbound sync requests, always tagging the
// call with the local node's advertised URL via X-Axiom-Peer so the
// callee can register it as a peer.
type Client struct {
	httpClient     *http.Client
	selfURL        string
	controlTimeout time.Duration
	bulkTimeout    time.Duration
	meshToken      string
}

func NewClient(selfURL string, controlTimeout, bulkTimeout time.Duration) *Client {
	return &Client{
		httpClient:     &http.Client{},
		selfURL:        selfURL,
		controlTimeout: controlTimeout,
		bulkTimeout:    bulkTimeout,
	}
}

// SetMeshToken configures the bearer token sent on every outbound mesh
// request. A node whose peers require AXIOM_MESH_TOKEN must set this
// to the same shared secret or every peer call is rejected.
func (c *Client) SetMeshToken(token string) {
	c.meshToken = token
}

func (c *Client) getJSON(ctx context.Context, rawURL string, timeout time.Duration, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return errs.Network("getJSON: build request", err)
	}
	req.Header.Set(PeerHeader, c.selfURL)
	if c.meshToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.meshToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errs.Network("getJSON: "+rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errs.Network("getJSON: non-2xx from "+rawURL, fmt.Errorf("status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.Decode("getJSON: "+rawURL, err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, rawURL string, timeout time.Duration, body, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	encoded, err := json.Marshal(body)
	if err != nil {
		return errs.Storage("postJSON: marshal", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(encoded))
	if err != nil {
		return errs.Network("postJSON: build request", err)
	}
	req.Header.Set(PeerHeader, c.selfURL)
	req.Header.Set("Content-Type", "application/json")
	if c.meshToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.meshToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errs.Network("postJSON: "+rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errs.Network("postJSON: non-2xx from "+rawURL, fmt.Errorf("status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.Decode("postJSON: "+rawURL, err)
	}
	return nil
}

func (c *Client) GetPeers(ctx context.Context, peerURL string) (map[string]models.WirePeer, error) {
	var out getPeersResponse
	if err := c.getJSON(ctx, peerURL+"/get_peers", c.controlTimeout, &out); err != nil {
		return nil, err
	}
	return out.Peers, nil
}

func (c *Client) GetChainHead(ctx context.Context, peerURL string) (blockID string, height int, err error) {
	var out getChainHeadResponse
	if err := c.getJSON(ctx, peerURL+"/get_chain_head", c.controlTimeout, &out); err != nil {
		return "", 0, err
	}
	return out.BlockID, out.Height, nil
}

func (c *Client) GetBlocksAfter(ctx context.Context, peerURL string, height int) ([]models.Block, error) {
	u := peerURL + "/get_blocks_after?height=" + strconv.Itoa(height)
	var out getBlocksAfterResponse
	if err := c.getJSON(ctx, u, c.bulkTimeout, &out); err != nil {
		return nil, err
	}
	return out.Blocks, nil
}

func (c *Client) GetFactIDs(ctx context.Context, peerURL string) ([]string, error) {
	var out getFactIDsResponse
	if err := c.getJSON(ctx, peerURL+"/get_fact_ids", c.controlTimeout, &out); err != nil {
		return nil, err
	}
	return out.FactIDs, nil
}

func (c *Client) GetFactsByID(ctx context.Context, peerURL string, ids []string) ([]models.WireFact, error) {
	var out getFactsByIDResponse
	err := c.postJSON(ctx, peerURL+"/get_facts_by_id", c.bulkTimeout, getFactsByIDRequest{FactIDs: ids}, &out)
	if err != nil {
		return nil, err
	}
	return out.Facts, nil
}

// GetFragmentOpinion asks one peer for its own classification of
// factID.
func (c *Client) GetFragmentOpinion(ctx context.Context, peerURL, factID string) (FragmentOpinion, error) {
	var out FragmentOpinion
	u := peerURL + "/fragment_opinion?fact_id=" + url.QueryEscape(factID)
	if err := c.getJSON(ctx, u, c.controlTimeout, &out); err != nil {
		return FragmentOpinion{}, err
	}
	return out, nil
}
