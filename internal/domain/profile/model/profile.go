package model

import "storefront/pkg/model"

// 角色
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Profile 用户资料，账号本身由外部认证服务管理
type Profile struct {
	model.BaseModel
	Email    string `gorm:"uniqueIndex;size:255" json:"email"`
	FullName string `gorm:"size:255" json:"full_name"`
	Role     string `gorm:"size:20;default:customer" json:"role"`
}

func (Profile) TableName() string {
	return "profiles"
}

// IsAdmin 是否管理员
func (p *Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}
