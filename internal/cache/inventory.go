package cache

import (
	"context"
	"fmt"
	"time"
)

// Cacheable keys. Access decisions and vote stats are deliberately absent:
// decisions must be recomputed on every input change and stats must always
// reflect the stored aggregate at call time.
const (
	ContentKeyPrefix = "content:%d"
	ContentListKey   = "content:list"
	SessionKeyPrefix = "session:wallet:%s"
	ReplyTreePrefix  = "content:%d:replies"
)

const (
	ContentTTL   = 10 * time.Minute
	ListTTL      = 30 * time.Second
	SessionTTL   = 30 * time.Minute
	ReplyTreeTTL = 1 * time.Minute
)

func ContentKey(contentID uint) string {
	return fmt.Sprintf(ContentKeyPrefix, contentID)
}

func SessionKey(walletAddress string) string {
	return fmt.Sprintf(SessionKeyPrefix, walletAddress)
}

func ReplyTreeKey(contentID uint) string {
	return fmt.Sprintf(ReplyTreePrefix, contentID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateContent(ctx context.Context, contentID uint) {
	Invalidate(ctx, ContentKey(contentID))
	Invalidate(ctx, ReplyTreeKey(contentID))
}

func InvalidateContentList(ctx context.Context) {
	Invalidate(ctx, ContentListKey)
}
