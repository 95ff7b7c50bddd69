// Package pagination 实现页码分页：解析 page / page_size 参数，计算偏移，
// 并生成 {count, next, previous, results} 信封。
package pagination

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/d60-Lab/blog-api/config"
)

// ErrInvalidPage 页码非法或超出范围
var ErrInvalidPage = errors.New("invalid page")

const lastPage = "last"

// Paginator 固定页大小的分页器，页大小可由查询参数覆盖
type Paginator struct {
	cfg config.PaginationConfig
}

func New(cfg config.PaginationConfig) *Paginator {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 3
	}
	if cfg.PageQueryParam == "" {
		cfg.PageQueryParam = "page"
	}
	return &Paginator{cfg: cfg}
}

// Params 从查询串解析出的分页参数，Page 保留原始字符串以便处理 "last"
type Params struct {
	Page     string
	PageSize int
}

// Params 解析查询串；非法的 page_size 回落到默认值，超过上限时截断
func (p *Paginator) Params(q url.Values) Params {
	return Params{Page: q.Get(p.cfg.PageQueryParam), PageSize: p.pageSize(q)}
}

func (p *Paginator) pageSize(q url.Values) int {
	if p.cfg.PageSizeQueryParam == "" {
		return p.cfg.PageSize
	}
	raw := q.Get(p.cfg.PageSizeQueryParam)
	if raw == "" {
		return p.cfg.PageSize
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return p.cfg.PageSize
	}
	if p.cfg.MaxPageSize > 0 && n > p.cfg.MaxPageSize {
		return p.cfg.MaxPageSize
	}
	return n
}

// Window 一页在有序结果集中的位置
type Window struct {
	Number   int
	Size     int
	NumPages int
	Count    int64
}

func (w Window) Offset() int { return (w.Number - 1) * w.Size }

func (w Window) HasNext() bool { return w.Number < w.NumPages }

func (w Window) HasPrevious() bool { return w.Number > 1 }

// Window 根据总数校验页码；空结果集的第 1 页合法
func (p *Paginator) Window(params Params, count int64) (Window, error) {
	size := params.PageSize
	if size <= 0 {
		size = p.cfg.PageSize
	}
	numPages := int((count + int64(size) - 1) / int64(size))
	if numPages == 0 {
		numPages = 1
	}

	number := 1
	switch params.Page {
	case "":
	case lastPage:
		number = numPages
	default:
		n, err := strconv.Atoi(params.Page)
		if err != nil {
			return Window{}, ErrInvalidPage
		}
		number = n
	}
	if number < 1 || number > numPages {
		return Window{}, ErrInvalidPage
	}
	return Window{Number: number, Size: size, NumPages: numPages, Count: count}, nil
}

// Envelope 列表响应信封
type Envelope[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// NewEnvelope 用请求地址 u 生成上一页/下一页链接
func NewEnvelope[T any](p *Paginator, u *url.URL, w Window, results []T) Envelope[T] {
	if results == nil {
		results = []T{}
	}
	env := Envelope[T]{Count: w.Count, Results: results}
	if w.HasNext() {
		link := p.link(u, w.Number+1)
		env.Next = &link
	}
	if w.HasPrevious() {
		link := p.link(u, w.Number-1)
		env.Previous = &link
	}
	return env
}

// link 替换页码参数；第 1 页去掉页码参数
func (p *Paginator) link(u *url.URL, number int) string {
	next := *u
	q := next.Query()
	if number == 1 {
		q.Del(p.cfg.PageQueryParam)
	} else {
		q.Set(p.cfg.PageQueryParam, strconv.Itoa(number))
	}
	next.RawQuery = q.Encode()
	return next.String()
}

// RequestURL 还原请求的绝对地址；trustForwarded 为 true 时才采用 X-Forwarded-Proto
func RequestURL(r *http.Request, trustForwarded bool) *url.URL {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if trustForwarded {
		if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
			scheme = proto
		}
	}
	return &url.URL{Scheme: scheme, Host: r.Host, Path: r.URL.Path, RawQuery: r.URL.RawQuery}
}
