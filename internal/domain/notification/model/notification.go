package model

import "storefront/pkg/model"

// Notification 站内通知
type Notification struct {
	model.BaseModel
	ProfileID string  `gorm:"type:uuid;not null;index:idx_notifications_profile_id" json:"profile_id"`
	OrderID   *string `gorm:"type:uuid" json:"order_id"`
	Title     string  `gorm:"size:255;not null" json:"title"`
	Message   string  `gorm:"type:text;not null" json:"message"`
	IsRead    bool    `gorm:"not null;default:false" json:"is_read"`
}

func (Notification) TableName() string {
	return "notifications"
}
