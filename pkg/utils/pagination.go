package utils

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Pagination 分页查询参数，page 从 1 开始
type Pagination struct {
	Page  int `json:"page" form:"page" binding:"omitempty,min=1"`
	Limit int `json:"limit" form:"limit" binding:"omitempty,min=1"`
}

// PageResult 分页响应
type PageResult struct {
	List       interface{} `json:"list"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int64       `json:"total_pages"`
}

// GetPageOffset 归一化参数并返回 offset、limit
func (p *Pagination) GetPageOffset() (int, int) {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return (p.Page - 1) * p.Limit, p.Limit
}

// NewPageResult p 需先经过 GetPageOffset 归一化
func NewPageResult(list interface{}, total int64, p Pagination) PageResult {
	var pages int64
	if p.Limit > 0 {
		pages = (total + int64(p.Limit) - 1) / int64(p.Limit)
	}
	return PageResult{List: list, Total: total, Page: p.Page, Limit: p.Limit, TotalPages: pages}
}
