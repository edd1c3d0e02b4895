package service

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"arcanum/internal/codec"
	"arcanum/internal/models"
	"arcanum/internal/payments"
)

type contentRepoStub struct {
	createFn        func(context.Context, *models.Content) error
	getByIDFn       func(context.Context, uint) (*models.Content, error)
	getByChainRefFn func(context.Context, string) (*models.Content, error)
	listFn          func(context.Context, int, int) ([]*models.Content, error)
}

func (s *contentRepoStub) Create(ctx context.Context, content *models.Content) error {
	return s.createFn(ctx, content)
}
func (s *contentRepoStub) GetByID(ctx context.Context, id uint) (*models.Content, error) {
	return s.getByIDFn(ctx, id)
}
func (s *contentRepoStub) GetByChainRef(ctx context.Context, chainRef string) (*models.Content, error) {
	return s.getByChainRefFn(ctx, chainRef)
}
func (s *contentRepoStub) List(ctx context.Context, limit, offset int) ([]*models.Content, error) {
	return s.listFn(ctx, limit, offset)
}

func noopContentRepo() *contentRepoStub {
	return &contentRepoStub{
		createFn:        func(context.Context, *models.Content) error { return nil },
		getByIDFn:       func(context.Context, uint) (*models.Content, error) { return &models.Content{}, nil },
		getByChainRefFn: func(context.Context, string) (*models.Content, error) { return nil, nil },
		listFn:          func(context.Context, int, int) ([]*models.Content, error) { return nil, nil },
	}
}

type sessionRepoStub struct {
	getByWalletFn func(context.Context, string) (*models.WalletSession, error)
	registerFn    func(context.Context, string) (*models.WalletSession, error)
}

func (s *sessionRepoStub) GetByWallet(ctx context.Context, walletAddress string) (*models.WalletSession, error) {
	return s.getByWalletFn(ctx, walletAddress)
}
func (s *sessionRepoStub) Register(ctx context.Context, walletAddress string) (*models.WalletSession, error) {
	return s.registerFn(ctx, walletAddress)
}

func noopSessionRepo() *sessionRepoStub {
	return &sessionRepoStub{
		getByWalletFn: func(context.Context, string) (*models.WalletSession, error) { return nil, nil },
		registerFn: func(_ context.Context, wallet string) (*models.WalletSession, error) {
			return &models.WalletSession{WalletAddress: wallet, Identity: "identity-" + wallet}, nil
		},
	}
}

// sessionRepoFor returns a stub that resolves the given wallets to
// deterministic identities "identity-<wallet>".
func sessionRepoFor(wallets ...string) *sessionRepoStub {
	known := make(map[string]bool, len(wallets))
	for _, w := range wallets {
		known[w] = true
	}
	repo := noopSessionRepo()
	repo.getByWalletFn = func(_ context.Context, wallet string) (*models.WalletSession, error) {
		if !known[wallet] {
			return nil, nil
		}
		return &models.WalletSession{WalletAddress: wallet, Identity: "identity-" + wallet}, nil
	}
	return repo
}

type grantRepoStub struct {
	recordFn        func(context.Context, *models.AccessGrant) error
	hasAccessFn     func(context.Context, string, uint, string) (bool, error)
	bestGrantTypeFn func(context.Context, string, uint, string) (models.GrantType, bool, error)
	listByContentFn func(context.Context, string, uint) ([]*models.AccessGrant, error)
}

func (s *grantRepoStub) Record(ctx context.Context, grant *models.AccessGrant) error {
	return s.recordFn(ctx, grant)
}
func (s *grantRepoStub) HasAccess(ctx context.Context, contentType string, contentID uint, identity string) (bool, error) {
	return s.hasAccessFn(ctx, contentType, contentID, identity)
}
func (s *grantRepoStub) BestGrantType(ctx context.Context, contentType string, contentID uint, identity string) (models.GrantType, bool, error) {
	return s.bestGrantTypeFn(ctx, contentType, contentID, identity)
}
func (s *grantRepoStub) ListByContent(ctx context.Context, contentType string, contentID uint) ([]*models.AccessGrant, error) {
	return s.listByContentFn(ctx, contentType, contentID)
}

func noopGrantRepo() *grantRepoStub {
	return &grantRepoStub{
		recordFn:    func(context.Context, *models.AccessGrant) error { return nil },
		hasAccessFn: func(context.Context, string, uint, string) (bool, error) { return false, nil },
		bestGrantTypeFn: func(context.Context, string, uint, string) (models.GrantType, bool, error) {
			return "", false, nil
		},
		listByContentFn: func(context.Context, string, uint) ([]*models.AccessGrant, error) { return nil, nil },
	}
}

// memGrantRepo is an append-only in-memory ledger with the same access
// semantics as the SQL implementation.
type memGrantRepo struct {
	mu     sync.Mutex
	grants []*models.AccessGrant
}

func (m *memGrantRepo) Record(_ context.Context, grant *models.AccessGrant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *grant
	stored.ID = uint(len(m.grants) + 1)
	stored.CreatedAt = time.Now()
	m.grants = append(m.grants, &stored)
	grant.ID = stored.ID
	return nil
}

func (m *memGrantRepo) HasAccess(_ context.Context, contentType string, contentID uint, identity string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.grants {
		if g.ContentType == contentType && g.ContentID == contentID && g.Identity == identity {
			return true, nil
		}
	}
	return false, nil
}

func (m *memGrantRepo) BestGrantType(_ context.Context, contentType string, contentID uint, identity string) (models.GrantType, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best models.GrantType
	found := false
	for _, g := range m.grants {
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

func (m *memGrantRepo) ListByContent(_ context.Context, contentType string, contentID uint) ([]*models.AccessGrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.AccessGrant
	for _, g := range m.grants {
		if g.ContentType == contentType && g.ContentID == contentID {
			out = append(out, g)
		}
	}
	return out, nil
}

// memVoteRepo mirrors the SQL primitives over an in-memory map so the
// add / toggle / switch transitions can be exercised end to end.
type memVoteRepo struct {
	mu    sync.Mutex
	votes map[string]models.VoteDirection
}

func newMemVoteRepo() *memVoteRepo {
	return &memVoteRepo{votes: make(map[string]models.VoteDirection)}
}

func voteKey(contentType string, contentID uint, identity string) string {
	return fmt.Sprintf("%s/%d/%s", contentType, contentID, identity)
}

func (m *memVoteRepo) DeleteMatching(_ context.Context, contentType string, contentID uint, identity string, direction models.VoteDirection) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := voteKey(contentType, contentID, identity)
	if m.votes[key] == direction {
		delete(m.votes, key)
		return true, nil
	}
	return false, nil
}

func (m *memVoteRepo) Upsert(_ context.Context, contentType string, contentID uint, identity string, direction models.VoteDirection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.votes[voteKey(contentType, contentID, identity)] = direction
	return nil
}

func (m *memVoteRepo) GetByIdentity(_ context.Context, contentType string, contentID uint, identity string) (*models.VoteRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	direction, ok := m.votes[voteKey(contentType, contentID, identity)]
	if !ok {
		return nil, nil
	}
	return &models.VoteRecord{
		ContentType: contentType,
		ContentID:   contentID,
		Identity:    identity,
		Direction:   direction,
	}, nil
}

func (m *memVoteRepo) GetStats(_ context.Context, contentType string, contentID uint) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := fmt.Sprintf("%s/%d/", contentType, contentID)
	var up, down int64
	for key, direction := range m.votes {
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

func (m *memVoteRepo) StatsByTargets(ctx context.Context, contentType string, contentIDs []uint) (map[uint]models.VoteStatus, error) {
	stats := make(map[uint]models.VoteStatus, len(contentIDs))
	for _, id := range contentIDs {
		up, down, err := m.GetStats(ctx, contentType, id)
		if err != nil {
			return nil, err
		}
		if up > 0 || down > 0 {
			stats[id] = models.VoteStatus{UpvoteCount: up, DownvoteCount: down}
		}
	}
	return stats, nil
}

type replyRepoStub struct {
	createFn     func(context.Context, *models.Reply) error
	getByIDFn    func(context.Context, uint) (*models.Reply, error)
	listByPostFn func(context.Context, uint) ([]*models.Reply, error)
}

func (s *replyRepoStub) Create(ctx context.Context, reply *models.Reply) error {
	return s.createFn(ctx, reply)
}
func (s *replyRepoStub) GetByID(ctx context.Context, id uint) (*models.Reply, error) {
	return s.getByIDFn(ctx, id)
}
func (s *replyRepoStub) ListByPost(ctx context.Context, postID uint) ([]*models.Reply, error) {
	return s.listByPostFn(ctx, postID)
}

func noopReplyRepo() *replyRepoStub {
	return &replyRepoStub{
		createFn:     func(context.Context, *models.Reply) error { return nil },
		getByIDFn:    func(context.Context, uint) (*models.Reply, error) { return &models.Reply{}, nil },
		listByPostFn: func(context.Context, uint) ([]*models.Reply, error) { return nil, nil },
	}
}

// memReplyRepo stores replies in creation order, the way the SQL list reads
// them back.
type memReplyRepo struct {
	mu      sync.Mutex
	replies []*models.Reply
}

func (m *memReplyRepo) Create(_ context.Context, reply *models.Reply) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *reply
	stored.ID = uint(len(m.replies) + 1)
	stored.CreatedAt = time.Now()
	m.replies = append(m.replies, &stored)
	reply.ID = stored.ID
	reply.CreatedAt = stored.CreatedAt
	return nil
}

func (m *memReplyRepo) GetByID(_ context.Context, id uint) (*models.Reply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.replies {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("reply %d not found", id)
}

func (m *memReplyRepo) ListByPost(_ context.Context, postID uint) ([]*models.Reply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Reply
	for _, r := range m.replies {
		if r.PostID == postID {
			out = append(out, r)
		}
	}
	return out, nil
}

type gatewayStub struct {
	submitUnlockFn      func(context.Context, uint, float64) (*payments.Receipt, error)
	submitTipFn         func(context.Context, uint, float64) (*payments.Receipt, error)
	awaitConfirmationFn func(context.Context, string) error
}

func (s *gatewayStub) SubmitUnlock(ctx context.Context, contentID uint, amount float64) (*payments.Receipt, error) {
	return s.submitUnlockFn(ctx, contentID, amount)
}
func (s *gatewayStub) SubmitTip(ctx context.Context, contentID uint, amount float64) (*payments.Receipt, error) {
	return s.submitTipFn(ctx, contentID, amount)
}
func (s *gatewayStub) AwaitConfirmation(ctx context.Context, receiptID string) error {
	return s.awaitConfirmationFn(ctx, receiptID)
}

// confirmingGateway always submits and confirms immediately.
func confirmingGateway() *gatewayStub {
	receipt := func(_ context.Context, contentID uint, amount float64) (*payments.Receipt, error) {
		return &payments.Receipt{ID: "rcpt-1", TxHash: "0xabc", ContentID: contentID, Amount: amount}, nil
	}
	return &gatewayStub{
		submitUnlockFn:      receipt,
		submitTipFn:         receipt,
		awaitConfirmationFn: func(context.Context, string) error { return nil },
	}
}

func testCodec(t *testing.T) *codec.Codec {
	t.Helper()
	c, err := codec.New(bytes.Repeat([]byte{0x42}, 32))
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	return c
}

func gatedContent(id uint, author string, price float64) *models.Content {
	return &models.Content{
		ID:             id,
		Title:          "gated",
		Tier:           models.TierGated,
		UnlockPrice:    &price,
		AuthorIdentity: author,
	}
}

func publicContent(id uint, author string) *models.Content {
	return &models.Content{
		ID:             id,
		Title:          "public",
		Tier:           models.TierPublic,
		AuthorIdentity: author,
	}
}
