package models

// AccessReason is the closed set of reasons an access decision can carry.
type AccessReason string

const (
	ReasonPublic          AccessReason = "public"
	ReasonAuthor          AccessReason = "author"
	ReasonUnlock          AccessReason = "unlock"
	ReasonTip             AccessReason = "tip"
	ReasonUnauthenticated AccessReason = "unauthenticated"
	ReasonPaymentRequired AccessReason = "payment_required"
)

// AccessDecision is the derived outcome of a visibility evaluation. It is
// never persisted and never cached; every relevant input change (identity,
// tier, grant) requires a fresh evaluation.
type AccessDecision struct {
	HasAccess bool         `json:"has_access"`
	Reason    AccessReason `json:"reason"`
}

// Unlocked builds a granting decision.
func Unlocked(reason AccessReason) AccessDecision {
	return AccessDecision{HasAccess: true, Reason: reason}
}

// Locked builds a denying decision.
func Locked(reason AccessReason) AccessDecision {
	return AccessDecision{HasAccess: false, Reason: reason}
}
