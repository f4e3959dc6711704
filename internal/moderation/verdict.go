// Package moderation 审核闸门：把外部分类器的结果规整为三种裁决
package moderation

// Verdict 封闭的裁决类型，只有 Approved、Censored、Rejected 三种实现
type Verdict interface {
	verdict()
	String() string
}

// Approved 直接放行
type Approved struct{}

// Censored 允许保存，但必须打标记并先写审计记录
type Censored struct {
	Reason     string
	Categories []string
}

// Rejected 拒绝保存，原因返回给调用方
type Rejected struct {
	Reason     string
	Categories []string
}

func (Approved) verdict() {}
func (Censored) verdict() {}
func (Rejected) verdict() {}

func (Approved) String() string { return "approved" }
func (Censored) String() string { return "censored" }
func (Rejected) String() string { return "rejected" }
