package service

import "Debate_Community/internal/model"

// CommentNode 由扁平评论列表还原的树节点
type CommentNode struct {
	model.Comment
	Replies []*CommentNode `json:"replies"`
}

// BuildTree 按 ParentID 组装评论树，保持原列表顺序。
// 父评论不存在的回复挂到根上，不会丢失。
func BuildTree(comments []model.Comment) []*CommentNode {
	nodes := make(map[string]*CommentNode, len(comments))
	ordered := make([]*CommentNode, 0, len(comments))
	for _, c := range comments {
		n := &CommentNode{Comment: c, Replies: []*CommentNode{}}
		if _, dup := nodes[c.ID]; !dup {
			nodes[c.ID] = n
		}
		ordered = append(ordered, n)
	}
	roots := make([]*CommentNode, 0)
	for _, n := range ordered {
		parent, ok := nodes[n.ParentID]
		if n.ParentID == "" || !ok || parent == n {
			roots = append(roots, n)
			continue
		}
		parent.Replies = append(parent.Replies, n)
	}
	return roots
}

// BestArgument 点赞最多的评论，并列取列表中靠前的；没有评论返回 nil
func BestArgument(comments []model.Comment) *model.Comment {
	var best *model.Comment
	for i := range comments {
		if best == nil || comments[i].Likes > best.Likes {
			best = &comments[i]
		}
	}
	if best == nil {
		return nil
	}
	c := best.Clone()
	return &c
}
