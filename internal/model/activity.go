package model

import "time"

// EntityType names the kind of record an activity or audit entry refers to.
type EntityType string

const (
	EntityProperty EntityType = "property"
	EntityLead     EntityType = "lead"
	EntityDeal     EntityType = "deal"
	EntityUser     EntityType = "user"
)

// ActivityAction is the closed set of feed actions.
type ActivityAction string

const (
	ActionPropertyAdded    ActivityAction = "property_added"
	ActionPropertyArchived ActivityAction = "property_archived"
	ActionLeadAdded        ActivityAction = "lead_added"
	ActionLeadArchived     ActivityAction = "lead_archived"
	ActionDealCreated      ActivityAction = "deal_created"
	ActionDealClosed       ActivityAction = "deal_closed"
	ActionUserCreated      ActivityAction = "user_created"
	ActionPasswordChanged  ActivityAction = "password_changed"
)

// ActivityFeedLimit is how many feed entries the cache retains.
const ActivityFeedLimit = 100

// Activity is a human-readable feed entry summarizing a mutation.
type Activity struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	Action     ActivityAction `json:"action"`
	EntityType EntityType     `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	EntityName string         `json:"entity_name"`
	CreatedAt  time.Time      `json:"created_at"`
}
