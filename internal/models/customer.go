package models

import "github.com/shopspring/decimal"

const (
	CustomerSourceInternal        = "INTERNAL"
	CustomerSourceReferralPartner = "REFERRAL_PARTNER"
)

type Customer struct {
	Model
	Name              string           `gorm:"size:255" json:"name"`
	Phone             string           `gorm:"size:32;index" json:"phone"`
	Email             string           `gorm:"size:191" json:"email"`
	Address           string           `gorm:"size:500" json:"address"`
	TaxID             string           `gorm:"size:64;index" json:"taxId,omitempty"`
	Source            string           `gorm:"size:32;default:INTERNAL" json:"source"`
	ReferralPartnerID *string          `gorm:"size:36" json:"referralPartnerId,omitempty"`
	ReferralPartner   *ReferralPartner `gorm:"foreignKey:ReferralPartnerID" json:"referralPartner,omitempty"`
}

type ReferralPartner struct {
	Model
	Name           string          `gorm:"size:255" json:"name"`
	Phone          string          `gorm:"size:32" json:"phone,omitempty"`
	Email          string          `gorm:"size:191" json:"email,omitempty"`
	CommissionRate decimal.Decimal `gorm:"type:decimal(5,2)" json:"commissionRate"`
}
