package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"arcanum/internal/codec"
	"arcanum/internal/config"
	"arcanum/internal/featureflags"
	"arcanum/internal/middleware"
	"arcanum/internal/models"
	"arcanum/internal/notifications"
	"arcanum/internal/payments"
	"arcanum/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

const (
	testJWTSecret  = "test-secret-key-12345678901234567890123456789012"
	testContentKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
)

// In-memory repositories keep handler tests free of database plumbing while
// preserving the store semantics the services rely on.

type memStore struct {
	mu       sync.Mutex
	contents []*models.Content
	grants   []*models.AccessGrant
	votes    map[string]models.VoteDirection
	replies  []*models.Reply
	sessions map[string]*models.WalletSession
	nextID   uint
}

func newMemStore() *memStore {
	return &memStore{
		votes:    make(map[string]models.VoteDirection),
		sessions: make(map[string]*models.WalletSession),
	}
}

func (m *memStore) id() uint {
	m.nextID++
	return m.nextID
}

type memContentRepo struct{ s *memStore }

func (r *memContentRepo) Create(_ context.Context, content *models.Content) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	content.ID = r.s.id()
	content.CreatedAt = time.Now()
	r.s.contents = append(r.s.contents, content)
	return nil
}

func (r *memContentRepo) GetByID(_ context.Context, id uint) (*models.Content, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.contents {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, fmt.Errorf("content %d not found", id)
}

func (r *memContentRepo) GetByChainRef(_ context.Context, chainRef string) (*models.Content, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.contents {
		if c.ChainRef == chainRef {
			return c, nil
		}
	}
	return nil, nil
}

func (r *memContentRepo) List(_ context.Context, limit, offset int) ([]*models.Content, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Content, len(r.s.contents))
	copy(out, r.s.contents)
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memGrantRepo struct{ s *memStore }

func (r *memGrantRepo) Record(_ context.Context, grant *models.AccessGrant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	grant.ID = r.s.id()
	grant.CreatedAt = time.Now()
	r.s.grants = append(r.s.grants, grant)
	return nil
}

func (r *memGrantRepo) HasAccess(_ context.Context, contentType string, contentID uint, identity string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, g := range r.s.grants {
		if g.ContentType == contentType && g.ContentID == contentID && g.Identity == identity {
			return true, nil
		}
	}
	return false, nil
}

func (r *memGrantRepo) BestGrantType(_ context.Context, contentType string, contentID uint, identity string) (models.GrantType, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var best models.GrantType
	found := false
	for _, g := range r.s.grants {
		if g.ContentType != contentType || g.ContentID != contentID || g.Identity != identity {
			continue
		}
		if !found || g.GrantType == models.GrantUnlock {
			best = g.GrantType
			found = true
		}
	}
	return best, found, nil
}

func (r *memGrantRepo) ListByContent(_ context.Context, contentType string, contentID uint) ([]*models.AccessGrant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.AccessGrant
	for _, g := range r.s.grants {
		if g.ContentType == contentType && g.ContentID == contentID {
			out = append(out, g)
		}
	}
	return out, nil
}

type memVoteRepo struct{ s *memStore }

func voteKey(contentType string, contentID uint, identity string) string {
	return fmt.Sprintf("%s/%d/%s", contentType, contentID, identity)
}

func (r *memVoteRepo) DeleteMatching(_ context.Context, contentType string, contentID uint, identity string, direction models.VoteDirection) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := voteKey(contentType, contentID, identity)
	if r.s.votes[key] == direction {
		delete(r.s.votes, key)
		return true, nil
	}
	return false, nil
}

func (r *memVoteRepo) Upsert(_ context.Context, contentType string, contentID uint, identity string, direction models.VoteDirection) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.votes[voteKey(contentType, contentID, identity)] = direction
	return nil
}

func (r *memVoteRepo) GetByIdentity(_ context.Context, contentType string, contentID uint, identity string) (*models.VoteRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	direction, ok := r.s.votes[voteKey(contentType, contentID, identity)]
	if !ok {
		return nil, nil
	}
	return &models.VoteRecord{ContentType: contentType, ContentID: contentID, Identity: identity, Direction: direction}, nil
}

func (r *memVoteRepo) GetStats(_ context.Context, contentType string, contentID uint) (int64, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	prefix := fmt.Sprintf("%s/%d/", contentType, contentID)
	var up, down int64
	for key, direction := range r.s.votes {
		if len(key) < len(prefix) || key[:len(prefix)] != prefix {
			continue
		}
		if direction == models.VoteUp {
			up++
		} else {
			down++
		}
	}
	return up, down, nil
}

func (r *memVoteRepo) StatsByTargets(ctx context.Context, contentType string, contentIDs []uint) (map[uint]models.VoteStatus, error) {
	stats := make(map[uint]models.VoteStatus, len(contentIDs))
	for _, id := range contentIDs {
		up, down, err := r.GetStats(ctx, contentType, id)
		if err != nil {
			return nil, err
		}
		if up > 0 || down > 0 {
			stats[id] = models.VoteStatus{UpvoteCount: up, DownvoteCount: down}
		}
	}
	return stats, nil
}

type memReplyRepo struct{ s *memStore }

func (r *memReplyRepo) Create(_ context.Context, reply *models.Reply) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	reply.ID = r.s.id()
	reply.CreatedAt = time.Now()
	r.s.replies = append(r.s.replies, reply)
	return nil
}

func (r *memReplyRepo) GetByID(_ context.Context, id uint) (*models.Reply, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, reply := range r.s.replies {
		if reply.ID == id {
			return reply, nil
		}
	}
	return nil, fmt.Errorf("reply %d not found", id)
}

func (r *memReplyRepo) ListByPost(_ context.Context, postID uint) ([]*models.Reply, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Reply
	for _, reply := range r.s.replies {
		if reply.PostID == postID {
			out = append(out, reply)
		}
	}
	return out, nil
}

type memSessionRepo struct{ s *memStore }

func (r *memSessionRepo) GetByWallet(_ context.Context, walletAddress string) (*models.WalletSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.sessions[walletAddress], nil
}

func (r *memSessionRepo) Register(_ context.Context, walletAddress string) (*models.WalletSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing, ok := r.s.sessions[walletAddress]; ok {
		return existing, nil
	}
	session := &models.WalletSession{
		ID:            r.s.id(),
		WalletAddress: walletAddress,
		Identity:      fmt.Sprintf("identity-%s", walletAddress),
	}
	r.s.sessions[walletAddress] = session
	return session, nil
}

// stubGateway confirms everything unless a test overrides its behavior.
type stubGateway struct {
	submitErr  error
	confirmErr error
}

func (g *stubGateway) SubmitUnlock(_ context.Context, contentID uint, amount float64) (*payments.Receipt, error) {
	if g.submitErr != nil {
		return nil, g.submitErr
	}
	return &payments.Receipt{ID: "rcpt", TxHash: "0xtx", ContentID: contentID, Amount: amount}, nil
}

func (g *stubGateway) SubmitTip(ctx context.Context, contentID uint, amount float64) (*payments.Receipt, error) {
	return g.SubmitUnlock(ctx, contentID, amount)
}

func (g *stubGateway) AwaitConfirmation(context.Context, string) error {
	return g.confirmErr
}

type harness struct {
	app     *fiber.App
	srv     *Server
	store   *memStore
	gateway *stubGateway
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	cfg := &config.Config{
		Port:           "0",
		Env:            "test",
		JWTSecret:      testJWTSecret,
		ContentKey:     testContentKey,
		RelayTimeoutMS: 1000,
	}
	middleware.InitMiddleware(cfg)

	key, err := cfg.ContentKeyBytes()
	require.NoError(t, err)
	contentCodec, err := codec.New(key)
	require.NoError(t, err)

	store := newMemStore()
	gateway := &stubGateway{}

	contentRepo := &memContentRepo{s: store}
	grantRepo := &memGrantRepo{s: store}
	voteRepo := &memVoteRepo{s: store}
	replyRepo := &memReplyRepo{s: store}
	sessionRepo := &memSessionRepo{s: store}

	srv := &Server{
		config:      cfg,
		contentRepo: contentRepo,
		grantRepo:   grantRepo,
		voteRepo:    voteRepo,
		replyRepo:   replyRepo,
		sessionRepo: sessionRepo,
		publisher:   notifications.NewPublisher(nil),
		flags:       featureflags.NewManager("live_engagement=on,canary_ui=25%"),
	}
	srv.identityService = service.NewIdentityService(sessionRepo)
	srv.accessService = service.NewAccessService(contentRepo, grantRepo, srv.identityService, gateway, time.Second)
	srv.contentService = service.NewContentService(contentRepo, srv.accessService, contentCodec)
	srv.engagementService = service.NewEngagementService(voteRepo, contentRepo, replyRepo)
	srv.replyService = service.NewReplyService(replyRepo, srv.accessService, srv.identityService, srv.engagementService, contentCodec)

	app := fiber.New()
	app.Use(middleware.AuthOptional)
	srv.SetupRoutes(app)

	return &harness{app: app, srv: srv, store: store, gateway: gateway}
}

func (h *harness) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := h.app.Test(req, 5000)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &decoded)
	}
	return resp, decoded
}

// registerWallet creates a session and returns its bearer token.
func (h *harness) registerWallet(t *testing.T, wallet string) string {
	t.Helper()
	resp, body := h.do(t, http.MethodPost, "/api/session", "", fiber.Map{"wallet_address": wallet})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	token, ok := body["token"].(string)
	require.True(t, ok, "session response missing token: %v", body)
	return token
}

// ingestContent stores a content item and returns its id.
func (h *harness) ingestContent(t *testing.T, payload fiber.Map) uint {
	t.Helper()
	resp, body := h.do(t, http.MethodPost, "/api/content", "", payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "ingest failed: %v", body)
	id, ok := body["id"].(float64)
	require.True(t, ok, "ingest response missing id: %v", body)
	return uint(id)
}

func gatedPayload(chainRef, author string, price float64) fiber.Map {
	return fiber.Map{
		"title":           "gated item",
		"body":            "the hidden truth",
		"tier":            "gated",
		"unlock_price":    price,
		"author_identity": author,
		"chain_ref":       chainRef,
	}
}

func publicPayload(chainRef, author string) fiber.Map {
	return fiber.Map{
		"title":           "public item",
		"body":            "open knowledge",
		"tier":            "public",
		"author_identity": author,
		"chain_ref":       chainRef,
	}
}
