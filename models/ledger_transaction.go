package models

import "time"

// TransactionType classifies a ledger row
type TransactionType string

const (
	TransactionTypePayout        TransactionType = "payout"
	TransactionTypeEntryFee      TransactionType = "entry_fee"
	TransactionTypeReferralBonus TransactionType = "referral_bonus"
)

// LedgerTransaction is the append-only money trail. A participant's
// balance is the signed sum of their rows; rows are never updated or
// deleted. Actual payment-network settlement lives in the wallet
// service, not here.
type LedgerTransaction struct {
	ID            string          `gorm:"primaryKey;type:uuid" json:"id"`
	ParticipantID string          `gorm:"index;not null" json:"participant_id"` // ExternalUserID
	AmountMinor   int64           `gorm:"not null" json:"amount_minor"`         // signed, minor units (cents)
	Type          TransactionType `gorm:"type:varchar(24);not null;index" json:"type"`
	Description   string          `gorm:"type:text" json:"description"`
	CreatedAt     time.Time       `json:"created_at" gorm:"autoCreateTime"`
}
