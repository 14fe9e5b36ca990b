package model

import (
	"encoding/json"
	"time"
)

// Image 商品图片
type Image struct {
	URL   string `json:"url"`
	Order int    `json:"order"`
	Type  string `json:"type"`
}

type CurrencyInfo struct {
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
}

// Variant 商品规格，对应服务商的一个价格
type Variant struct {
	ID                 string       `json:"id"`
	Title              string       `json:"title"`
	ImageURL           *string      `json:"image_url"`
	SKU                *string      `json:"sku"`
	PriceInCents       int64        `json:"price_in_cents"`
	SalePriceInCents   *int64       `json:"sale_price_in_cents"`
	Currency           string       `json:"currency"`
	CurrencyInfo       CurrencyInfo `json:"currency_info"`
	PriceFormatted     string       `json:"price_formatted"`
	SalePriceFormatted *string      `json:"sale_price_formatted"`
	ManageInventory    bool         `json:"manage_inventory"`
	Weight             *float64     `json:"weight"`
	Options            []string     `json:"options"`
	InventoryQuantity  *int64       `json:"inventory_quantity"`
}

type ProductType struct {
	Value string `json:"value"`
}

// Product 前台商品视图
type Product struct {
	ID                   string          `json:"id"`
	Title                string          `json:"title"`
	Subtitle             *string         `json:"subtitle"`
	Description          string          `json:"description"`
	RibbonText           *string         `json:"ribbon_text"`
	Image                *string         `json:"image"`
	Images               []Image         `json:"images"`
	Purchasable          bool            `json:"purchasable"`
	Order                int             `json:"order"`
	SiteProductSelection string          `json:"site_product_selection"`
	Features             []string        `json:"features"`
	Variants             []Variant       `json:"variants"`
	Options              []string        `json:"options"`
	Collections          []string        `json:"collections"`
	AdditionalInfo       json.RawMessage `json:"additional_info" swaggertype:"array,object"`
	Type                 ProductType     `json:"type"`
	CustomFields         []string        `json:"custom_fields"`
	RelatedProducts      []string        `json:"related_products"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// ProductList 商品列表响应
type ProductList struct {
	Count    int       `json:"count"`
	Offset   int       `json:"offset"`
	Limit    int       `json:"limit"`
	Products []Product `json:"products"`
}

// UpdateProductPayload 管理端商品更新，字段缺省表示不修改
type UpdateProductPayload struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	// Image 空串清空图片，只接受 http(s) 地址
	Image      *string `json:"image"`
	Subtitle   *string `json:"subtitle"`
	RibbonText *string `json:"ribbon_text"`
	PriceID    string  `json:"price_id"`
	UnitAmount *int64  `json:"unit_amount"`
	// SalePriceInCents 缺省或 null 时删除促销价
	SalePriceInCents *int64   `json:"sale_price_in_cents"`
	Features         []string `json:"features"`
}
