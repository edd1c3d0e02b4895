// Package notifications fans engagement activity out to websocket clients.
// Mutating handlers publish events to Redis; the hub subscribes to the
// per-content channel pattern and forwards into the matching room.
package notifications

import (
	"encoding/json"

	"arcanum/internal/models"
)

// Event types carried on the engagement stream.
const (
	EventVote  = "vote"
	EventReply = "reply"
)

// EngagementEvent is one live update for a content room.
type EngagementEvent struct {
	Type        string             `json:"type"`
	ContentID   uint               `json:"content_id"`
	ContentType string             `json:"content_type"`
	TargetID    uint               `json:"target_id"`
	Stats       *models.VoteStatus `json:"stats,omitempty"`
	ReplyID     uint               `json:"reply_id,omitempty"`
	ParentID    *uint              `json:"parent_id,omitempty"`
}

// VoteEvent builds the payload for a vote mutation. Viewer-specific flags are
// stripped: the room sees counts, never who voted.
func VoteEvent(contentID uint, contentType string, targetID uint, stats *models.VoteStatus) EngagementEvent {
	shared := &models.VoteStatus{
		UpvoteCount:   stats.UpvoteCount,
		DownvoteCount: stats.DownvoteCount,
	}
	return EngagementEvent{
		Type:        EventVote,
		ContentID:   contentID,
		ContentType: contentType,
		TargetID:    targetID,
		Stats:       shared,
	}
}

// ReplyEvent builds the payload for a new reply. Only structure is shared;
// the body stays behind the access gate.
func ReplyEvent(contentID, replyID uint, parentID *uint) EngagementEvent {
	return EngagementEvent{
		Type:      EventReply,
		ContentID: contentID,
		TargetID:  replyID,
		ReplyID:   replyID,
		ParentID:  parentID,
	}
}

// Encode marshals the event for the wire.
func (e EngagementEvent) Encode() (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
