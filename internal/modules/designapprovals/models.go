package designapprovals

import "time"

const (
	StatusPending          = "pending"
	StatusApproved         = "approved"
	StatusChangesRequested = "changes_requested"
	StatusSuperseded       = "superseded"
)

const (
	DecisionApprove        = "approve"
	DecisionRequestChanges = "request_changes"
)

type DesignApproval struct {
	ID               string     `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID          string     `gorm:"type:uuid;not null;index:ix_design_approvals_order_id" json:"order_id"`
	OrderItemID      string     `gorm:"type:uuid;not null;uniqueIndex:ux_design_approvals_item_version,priority:1" json:"order_item_id"`
	Version          int        `gorm:"not null;uniqueIndex:ux_design_approvals_item_version,priority:2" json:"version"`
	ProofURL         string     `gorm:"type:varchar(500);not null" json:"proof_url"`
	ProofKey         string     `gorm:"type:varchar(255);not null" json:"-"`
	Status           string     `gorm:"type:varchar(24);not null" json:"status"`
	AdminNote        *string    `gorm:"type:varchar(1000)" json:"admin_note,omitempty"`
	CustomerFeedback *string    `gorm:"type:varchar(2000)" json:"customer_feedback,omitempty"`
	CreatedBy        string     `gorm:"type:uuid;not null" json:"-"`
	RespondedAt      *time.Time `json:"responded_at,omitempty"`
	CreatedAt        time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"not null" json:"updated_at"`
}

func (DesignApproval) TableName() string { return "design_approvals" }
