package model

import (
	"time"

	"github.com/google/uuid"
)

// Vouch is a one-way endorsement from Voucher to Vouchee. The edge is stored
// once; both the voucher's "given" and the vouchee's "received" views are
// read from the same row.
type Vouch struct {
	VoucherID uuid.UUID `json:"voucherId" gorm:"type:char(36);primaryKey"`
	VoucheeID uuid.UUID `json:"voucheeId" gorm:"type:char(36);primaryKey;index"`
	CreatedAt time.Time `json:"createdAt"`

	Voucher User `json:"-" gorm:"foreignKey:VoucherID"`
	Vouchee User `json:"-" gorm:"foreignKey:VoucheeID"`
}

// VouchSet is the derived view of a user's vouches.
type VouchSet struct {
	Given    []uuid.UUID `json:"given"`
	Received []uuid.UUID `json:"received"`
}
