package relationships

import (
	"time"

	"billsponsor-app/internal/domain/users"
)

type RelationshipType string

const (
	TypeParentChild RelationshipType = "parent-child"
	TypePartners    RelationshipType = "partners"
	TypeFriends     RelationshipType = "friends"
	TypeRoommates   RelationshipType = "roommates"
	TypeCustom      RelationshipType = "custom"
)

type RelationshipStatus string

const (
	StatusPending  RelationshipStatus = "pending"
	StatusActive   RelationshipStatus = "active"
	StatusRejected RelationshipStatus = "rejected"
	StatusBlocked  RelationshipStatus = "blocked"
)

// Relationship links a sponsor to a beneficiary. Spending rules only
// attach to active relationships.
type Relationship struct {
	ID            uint               `gorm:"primaryKey" json:"id"`
	CreatorID     uint               `gorm:"not null;uniqueIndex:idx_rel_pair,priority:1" json:"creator_id"`
	Creator       users.User         `json:"-"`
	RelatedUserID uint               `gorm:"not null;uniqueIndex:idx_rel_pair,priority:2" json:"related_user_id"`
	RelatedUser   users.User         `json:"-"`
	Type          RelationshipType   `gorm:"type:varchar(20);not null" json:"type"`
	CustomType    string             `json:"custom_type,omitempty"`
	Name          string             `gorm:"not null" json:"name"`
	Status        RelationshipStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Description   string             `json:"description,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *Relationship) Active() bool { return r.Status == StatusActive }

// SpendingControl caps what a sponsor may contribute through one
// relationship. A nil limit means that window is uncapped.
type SpendingControl struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	RelationshipID uint         `gorm:"not null;uniqueIndex:idx_control_rel" json:"relationship_id"`
	Relationship   Relationship `json:"-"`

	DailyLimit      *float64 `json:"daily_limit,omitempty"`
	WeeklyLimit     *float64 `json:"weekly_limit,omitempty"`
	MonthlyLimit    *float64 `json:"monthly_limit,omitempty"`
	PerRequestLimit *float64 `json:"per_request_limit,omitempty"`

	// Contributions at or under this amount skip manual confirmation.
	// Never lets a contribution through a hard limit.
	AutoApproveLimit *float64 `json:"auto_approve_limit,omitempty"`

	IsActive         bool `gorm:"not null;default:true" json:"is_active"`
	NotifyOnApproach bool `gorm:"not null;default:false" json:"notify_on_approach"`
	// Percentage (1-99) of a window limit at which a near-limit warning fires.
	ApproachPercentage int `gorm:"not null;default:80" json:"approach_percentage"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Contribution is an append-only record of funds given within a
// relationship. It is the audit trail spending-limit checks aggregate
// over; rows are never mutated or deleted (only the thanked flag flips).
type Contribution struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	RelationshipID uint         `gorm:"not null;index" json:"relationship_id"`
	Relationship   Relationship `json:"-"`
	Amount         float64      `gorm:"not null" json:"amount"`
	// Bundle or bill request the contribution went toward.
	SourceID uint   `gorm:"not null" json:"source_id"`
	Category string `gorm:"not null" json:"category"`
	Message  string `json:"message,omitempty"`
	Thanked  bool   `gorm:"not null;default:false" json:"thanked"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
