// Package seed populates the database with demo wallets, content and
// engagement for local development.
package seed

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"

	"arcanum/internal/codec"
	"arcanum/internal/models"
	"arcanum/internal/repository"
	"arcanum/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Seeder writes demo data through the same services the API uses, so every
// seeded row satisfies the same invariants as production writes.
type Seeder struct {
	db         *gorm.DB
	identity   *service.IdentityService
	access     *service.AccessService
	content    *service.ContentService
	engagement *service.EngagementService
	replies    *service.ReplyService
}

// NewSeeder wires a Seeder over the given database handle.
func NewSeeder(db *gorm.DB, contentCodec *codec.Codec) *Seeder {
	contentRepo := repository.NewContentRepository(db)
	grantRepo := repository.NewGrantRepository(db)
	voteRepo := repository.NewVoteRepository(db)
	replyRepo := repository.NewReplyRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	identity := service.NewIdentityService(sessionRepo)
	// The seeder records grants directly and never runs a payment, so no
	// gateway is needed.
	access := service.NewAccessService(contentRepo, grantRepo, identity, nil, 0)
	content := service.NewContentService(contentRepo, access, contentCodec)
	engagement := service.NewEngagementService(voteRepo, contentRepo, replyRepo)
	replies := service.NewReplyService(replyRepo, access, identity, engagement, contentCodec)

	return &Seeder{
		db:         db,
		identity:   identity,
		access:     access,
		content:    content,
		engagement: engagement,
		replies:    replies,
	}
}

// ClearAll removes every seeded row. Order matters only for readability;
// there are no FK constraints between these tables.
func (s *Seeder) ClearAll() error {
	for _, model := range []interface{}{
		&models.Reply{},
		&models.VoteRecord{},
		&models.AccessGrant{},
		&models.Content{},
		&models.WalletSession{},
	} {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	return nil
}

// Demo seeds numWallets wallet sessions and numPosts content items, then
// layers grants, votes and reply threads on top.
func (s *Seeder) Demo(ctx context.Context, numWallets, numPosts int) error {
	wallets, err := s.seedWallets(ctx, numWallets)
	if err != nil {
		return err
	}

	contents, err := s.seedContent(ctx, wallets, numPosts)
	if err != nil {
		return err
	}

	if err := s.seedEngagement(ctx, wallets, contents); err != nil {
		return err
	}

	log.Printf("Seeded %d wallets, %d content items", len(wallets), len(contents))
	return nil
}

func (s *Seeder) seedWallets(ctx context.Context, n int) ([]*models.WalletSession, error) {
	wallets := make([]*models.WalletSession, 0, n)
	for i := 0; i < n; i++ {
		address := fakeWalletAddress()
		session, err := s.identity.Register(ctx, address)
		if err != nil {
			return nil, fmt.Errorf("register wallet %s: %w", address, err)
		}
		wallets = append(wallets, session)
	}
	return wallets, nil
}

func (s *Seeder) seedContent(ctx context.Context, wallets []*models.WalletSession, n int) ([]*models.Content, error) {
	contents := make([]*models.Content, 0, n)
	for i := 0; i < n; i++ {
		author := wallets[rand.Intn(len(wallets))]
		in := service.IngestInput{
			Title:          gofakeit.Sentence(5),
			Body:           gofakeit.Paragraph(2, 4, 12, " "),
			Tier:           models.TierPublic,
			AuthorIdentity: author.Identity,
			ChainRef:       fmt.Sprintf("seed-%s", gofakeit.UUID()),
		}
		// Roughly a third of the demo feed sits behind a paywall.
		if rand.Intn(3) == 0 {
			price := float64(rand.Intn(20)+1) / 2.0
			in.Tier = models.TierGated
			in.UnlockPrice = &price
		}

		content, err := s.content.Ingest(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("ingest content: %w", err)
		}
		contents = append(contents, content)
	}
	return contents, nil
}

func (s *Seeder) seedEngagement(ctx context.Context, wallets []*models.WalletSession, contents []*models.Content) error {
	for _, content := range contents {
		for _, wallet := range wallets {
			if rand.Intn(3) != 0 {
				continue
			}

			// Gated content needs a grant before the wallet can engage.
			if content.Tier == models.TierGated && wallet.Identity != content.AuthorIdentity {
				if rand.Intn(2) == 0 {
					continue
				}
				if _, err := s.access.RecordGrant(ctx, service.RecordGrantInput{
					ContentID: content.ID,
					Identity:  wallet.Identity,
					GrantType: models.GrantUnlock,
					Amount:    priceOf(content),
					TxHash:    fakeTxHash(),
				}); err != nil {
					return fmt.Errorf("record grant: %w", err)
				}
			}

			direction := models.VoteUp
			if rand.Intn(4) == 0 {
				direction = models.VoteDown
			}
			if _, err := s.engagement.SetVote(ctx, service.SetVoteInput{
				ContentType: models.ContentTypePost,
				ContentID:   content.ID,
				Identity:    wallet.Identity,
				Direction:   direction,
			}); err != nil {
				return fmt.Errorf("seed vote: %w", err)
			}

			if rand.Intn(2) == 0 {
				if _, err := s.replies.CreateReply(ctx, service.CreateReplyInput{
					PostID:        content.ID,
					WalletAddress: wallet.WalletAddress,
					Content:       gofakeit.Sentence(10),
				}); err != nil {
					return fmt.Errorf("seed reply: %w", err)
				}
			}
		}
	}
	return nil
}

func priceOf(content *models.Content) float64 {
	if content.UnlockPrice != nil {
		return *content.UnlockPrice
	}
	return 0
}

func fakeWalletAddress() string {
	return "0x" + strings.ReplaceAll(gofakeit.UUID(), "-", "")
}

func fakeTxHash() string {
	u := strings.ReplaceAll(gofakeit.UUID(), "-", "")
	return "0x" + u + u
}
