package models

import "time"

// MaxThreadDepth caps how deep a reply chain may grow through composition.
// Tree assembly itself is unbounded; only creating a deeper reply is refused.
const MaxThreadDepth = 3

// Reply is a stored reply row. Content and preview are kept encoded; the
// hashes are content-addressed digests of the plaintext for tamper detection.
type Reply struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	PostID          uint      `gorm:"not null;index" json:"post_id"`
	ParentID        *uint     `gorm:"index" json:"parent_id,omitempty"`
	ReplierIdentity string    `gorm:"size:36;not null" json:"replier_identity"`
	EncodedContent  string    `gorm:"type:text;not null" json:"-"`
	ContentHash     string    `gorm:"size:64;not null" json:"content_hash"`
	EncodedPreview  string    `gorm:"type:text" json:"-"`
	PreviewHash     string    `gorm:"size:64" json:"preview_hash"`
	CreatedAt       time.Time `json:"created_at"`
}

// ReplyNode is a decoded reply plus its children, assembled into a forest.
// DecodeFailed marks a node whose payload could not be decoded; the failure
// is scoped to that single node and never aborts the batch.
type ReplyNode struct {
	ID              uint         `json:"id"`
	ParentID        *uint        `json:"parent_id,omitempty"`
	ReplierIdentity string       `json:"replier_identity"`
	Content         string       `json:"content"`
	ContentHash     string       `json:"content_hash"`
	DecodeFailed    bool         `json:"decode_failed,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	Stats           VoteStatus   `json:"stats"`
	Children        []*ReplyNode `json:"children"`
}
