package gateway

import (
	"context"
	"errors"
)

var (
	// ErrNotFound 商品或价格不存在
	ErrNotFound = errors.New("catalog resource not found")
	// ErrDefaultPriceArchive 商品默认价格不能下架
	ErrDefaultPriceArchive = errors.New("price is the default price of its product")
)

// Product 服务商侧商品
type Product struct {
	ID             string
	Name           string
	Description    string
	Active         bool
	Images         []string
	Metadata       map[string]string
	Features       []string
	DefaultPriceID string
	Updated        int64
}

// Price 服务商侧价格
type Price struct {
	ID                     string
	Nickname               string
	UnitAmount             int64
	Currency               string
	Metadata               map[string]string
	RecurringInterval      string
	RecurringIntervalCount int64
}

// ProductUpdate 商品更新参数，nil 表示不修改
type ProductUpdate struct {
	Name        *string
	Description *string
	// Images 非 nil 时整体替换，空切片表示清空
	Images []string
	// Metadata 按 key 合并，值为空串表示删除该 key
	Metadata map[string]string
	Features []string
}

type NewPrice struct {
	ProductID              string
	UnitAmount             int64
	Currency               string
	Nickname               string
	Metadata               map[string]string
	RecurringInterval      string
	RecurringIntervalCount int64
}

// CatalogGateway 商品目录数据源
type CatalogGateway interface {
	ListActiveProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	UpdateProduct(ctx context.Context, id string, update ProductUpdate) (*Product, error)
	SetDefaultPrice(ctx context.Context, productID, priceID string) error

	ListActivePrices(ctx context.Context, productID string) ([]Price, error)
	GetPrice(ctx context.Context, id string) (*Price, error)
	CreatePrice(ctx context.Context, in NewPrice) (*Price, error)
	UpdatePriceMetadata(ctx context.Context, id string, metadata map[string]string) error
	ArchivePrice(ctx context.Context, id string) error
}
