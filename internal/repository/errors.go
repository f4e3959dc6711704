package repository

import "errors"

// 存储层统一的哨兵错误，mysql 与 memory 两种实现都返回这些值
var (
	ErrNotFound = errors.New("document not found")
	ErrConflict = errors.New("document version conflict")
)
