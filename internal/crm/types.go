package crm

import "encoding/json"

// EntityType identifies the kind of CRM entity a change event refers to.
type EntityType string

const (
	// EntityTypeContact represents contact entities (people and organizations).
	EntityTypeContact EntityType = "contact"

	// EntityTypeDeal represents deal entities.
	EntityTypeDeal EntityType = "deal"
)

// EventType describes the lifecycle event carried by a change.
type EventType string

const (
	// EventTypeCreated indicates the entity was created.
	EventTypeCreated EventType = "created"

	// EventTypeUpdated indicates the entity was modified.
	EventTypeUpdated EventType = "updated"
)

// Contact is a CRM contact. A contact always has exactly one owner.
type Contact struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	IsOrganization bool   `json:"is_organization"`
	OwnerID        int64  `json:"owner_id"`
}

// Deal is a CRM deal. Every deal references exactly one existing contact
// and occupies exactly one pipeline stage.
type Deal struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ContactID int64  `json:"contact_id"`
	OwnerID   int64  `json:"owner_id"`
	StageID   int64  `json:"stage_id"`
}

// NewDeal carries the attributes for deal creation.
type NewDeal struct {
	Name      string `json:"name"`
	ContactID int64  `json:"contact_id"`
	OwnerID   int64  `json:"owner_id"`
	StageID   int64  `json:"stage_id,omitempty"`
}

// Stage is a pipeline position a deal occupies. Stages are reference data,
// read-only from dealflow's perspective.
type Stage struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Active   bool   `json:"active"`
}

// StageCategoryWon is the stage category that marks a deal as won.
const StageCategoryWon = "won"

// User is a CRM user. Role classification (sales representative, account
// manager) is not stored on the user; it is derived from configured
// email/name matching.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ChangeEvent is one entry of the incremental sync feed: an entity snapshot
// at event time, tagged with its entity type and lifecycle event.
//
// Entity types other than contact and deal still appear in the feed and must
// be acknowledged so the cursor can advance past them.
type ChangeEvent struct {
	EntityType EntityType
	EventType  EventType
	EntityID   int64
	Payload    json.RawMessage
}

// StageFilter narrows ListStages results. Nil fields match everything.
type StageFilter struct {
	Active   *bool
	Category string
	Name     string
}

// DealFilter narrows ListDeals results.
type DealFilter struct {
	ContactID int64
}

// UserFilter narrows ListUsers results. Email and Name are exact matches;
// at most one should be set.
type UserFilter struct {
	Email string
	Name  string
}
