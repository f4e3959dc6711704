package model

import (
	"time"

	"gorm.io/datatypes"
)

// User 本模块只读取 uid/username，资料的增删改在账号服务
type User struct {
	UID             string                      `gorm:"primaryKey;size:64" json:"uid"`
	Username        string                      `gorm:"uniqueIndex;size:32;not null" json:"username"`
	Interests       datatypes.JSONSlice[string] `json:"interests"`
	ActivityScore   int64                       `gorm:"not null;default:0" json:"activityScore"`
	CensorshipOptIn bool                        `gorm:"not null;default:false" json:"censorshipOptIn"`
	CreatedAt       time.Time                   `json:"createdAt"`
	UpdatedAt       time.Time                   `json:"updatedAt"`
}
