package pkg

import "github.com/google/uuid"

// NewID 生成按时间有序的 UUIDv7，失败时退回随机 v4
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
