package repository

type SortField string

const (
	SortNewest     SortField = "newest"
	SortOldest     SortField = "oldest"
	SortPopularity SortField = "popularity"
)

// DebateQuery 列表查询条件，零值表示不过滤
type DebateQuery struct {
	CategoryID string
	Keyword    string // 标题或正文包含，大小写不敏感
	IDs        []string
	Sort       SortField
	Offset     int
	Limit      int
}

func (q DebateQuery) Normalize() DebateQuery {
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Sort == "" {
		q.Sort = SortNewest
	}
	return q
}
