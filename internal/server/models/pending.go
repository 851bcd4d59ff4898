package models

// PendingAction is what an admin's next plain-text message will be read as.
type PendingAction struct {
	Kind   string `json:"kind" msgpack:"kind"`
	Target int64  `json:"target,omitempty" msgpack:"target,omitempty"`
}

const (
	ActionAddCredits    = "add_credits"
	ActionRemoveCredits = "remove_credits"
	ActionSetValidity   = "set_validity"
	ActionBroadcast     = "broadcast"
	ActionAddAdmin      = "add_admin"
	ActionPickCredits   = "pick_credits_user"
	ActionPickValidity  = "pick_validity_user"
)
