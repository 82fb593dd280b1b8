package models

import "time"

// Location is a latitude/longitude pair. It is always written as a whole.
type Location struct {
	Latitude  float64 `json:"latitude" gorm:"not null"`
	Longitude float64 `json:"longitude" gorm:"not null"`
}

// Store is a physical shop owned by exactly one user.
//
// GoogleReviewPID is unique among active stores only; the partial index lets a
// deactivated store's identifier be reused.
type Store struct {
	ID              string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	StoreName       string    `json:"storeName" gorm:"type:varchar(100);not null"`
	Address         string    `json:"address" gorm:"type:varchar(255);not null"`
	City            string    `json:"city" gorm:"type:varchar(100);not null;index"`
	Pincode         string    `json:"pincode" gorm:"type:varchar(6);not null"`
	State           string    `json:"state" gorm:"type:varchar(100);not null;index"`
	Location        Location  `json:"location" gorm:"embedded;embeddedPrefix:location_"`
	GoogleReviewPID *string   `json:"googleReviewPid,omitempty" gorm:"column:google_review_pid;type:varchar(255);index:idx_stores_active_review_pid,unique,where:is_active = true"`
	CreatedBy       string    `json:"createdBy" gorm:"type:varchar(36);not null;index"`
	IsActive        bool      `json:"isActive" gorm:"not null;default:true"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// StoreFilter narrows a listing. Nil fields are not applied.
type StoreFilter struct {
	City   *string
	State  *string
	Active *bool
}
