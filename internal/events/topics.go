package events

// Topic constants for domain events emitted by the pricing service.
const (
	TopicBasePriceUpdated    = "price.base_updated"
	TopicProfileRulesChanged = "profile.rules_changed"
	TopicProfileDeleted      = "profile.deleted"
	TopicAssignmentChanged   = "assignment.changed"
	TopicSpecialChanged      = "special.changed"
)

// DefaultTopics returns every topic the service emits.
func DefaultTopics() []string {
	return []string{
		TopicBasePriceUpdated,
		TopicProfileRulesChanged,
		TopicProfileDeleted,
		TopicAssignmentChanged,
		TopicSpecialChanged,
	}
}

// BasePriceChanged is the payload of TopicBasePriceUpdated.
type BasePriceChanged struct {
	Codes []string `json:"codes"`
}

// RulesChanged is the payload of TopicProfileRulesChanged and TopicProfileDeleted.
type RulesChanged struct {
	ProfileID string `json:"profileId"`
	Version   int64  `json:"version"`
	Upserted  int    `json:"upserted"`
	Deleted   int    `json:"deleted"`
}

// ClientChanged is the payload of TopicAssignmentChanged and TopicSpecialChanged.
type ClientChanged struct {
	ClientID   string   `json:"clientId"`
	ProfileIDs []string `json:"profileIds,omitempty"`
	Codes      []string `json:"codes,omitempty"`
}
