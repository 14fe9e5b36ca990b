package service

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"storefront/internal/domain/catalog/gateway"
	"storefront/internal/domain/catalog/model"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// unorderedRank 未设置 order 的商品排在最后
	unorderedRank = 999

	featuresMetaKey = "features_json"
	saleMetaKey     = "sale_price"
)

var currencySymbols = map[string]string{
	"eur": "€",
	"usd": "$",
	"gbp": "£",
}

var pricePrinter = message.NewPrinter(language.AmericanEnglish)

// CurrencySymbol 未知币种返回大写代码
func CurrencySymbol(currency string) string {
	if s, ok := currencySymbols[strings.ToLower(currency)]; ok {
		return s
	}
	return strings.ToUpper(currency)
}

// FormatPrice 2000 eur -> "€20.00"，1234567 usd -> "$12,345.67"
func FormatPrice(cents int64, currency string) string {
	amount := pricePrinter.Sprintf("%.2f", float64(cents)/100)
	if s, ok := currencySymbols[strings.ToLower(currency)]; ok {
		return s + amount
	}
	return strings.ToUpper(currency) + " " + amount
}

func metaInt(meta map[string]string, key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(meta[key]))
	if err != nil {
		return fallback
	}
	return v
}

func optional(meta map[string]string, key string) *string {
	if v := meta[key]; v != "" {
		return &v
	}
	return nil
}

// CleanFeatures 去掉空白项
func CleanFeatures(in []string) []string {
	out := make([]string, 0, len(in))
	for _, f := range in {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// productFeatures 优先使用 metadata 中的 features_json，其次是服务商的营销特性
func productFeatures(p gateway.Product) []string {
	if raw := p.Metadata[featuresMetaKey]; raw != "" {
		var parsed []string
		if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
			if cleaned := CleanFeatures(parsed); len(cleaned) > 0 {
				return cleaned
			}
		}
	}
	return CleanFeatures(p.Features)
}

func salePrice(meta map[string]string) *int64 {
	raw := strings.TrimSpace(meta[saleMetaKey])
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

func projectVariant(p gateway.Price) model.Variant {
	code := strings.ToUpper(p.Currency)
	v := model.Variant{
		ID:             p.ID,
		Title:          p.Nickname,
		SKU:            optional(p.Metadata, "sku"),
		PriceInCents:   p.UnitAmount,
		Currency:       code,
		CurrencyInfo:   model.CurrencyInfo{Code: code, Symbol: CurrencySymbol(p.Currency)},
		PriceFormatted: FormatPrice(p.UnitAmount, p.Currency),
		Options:        []string{},
	}
	if v.Title == "" {
		v.Title = "Default"
	}
	if sale := salePrice(p.Metadata); sale != nil {
		v.SalePriceInCents = sale
		formatted := FormatPrice(*sale, p.Currency)
		v.SalePriceFormatted = &formatted
	}
	return v
}

// Project 把服务商商品与价格转换为前台视图，规格按价格升序
func Project(p gateway.Product, prices []gateway.Price) model.Product {
	sorted := make([]gateway.Price, len(prices))
	copy(sorted, prices)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].UnitAmount < sorted[j].UnitAmount })

	description := p.Description
	if description == "" {
		description = p.Metadata["description"]
	}

	out := model.Product{
		ID:                   p.ID,
		Title:                p.Name,
		Subtitle:             optional(p.Metadata, "subtitle"),
		Description:          description,
		RibbonText:           optional(p.Metadata, "ribbon_text"),
		Images:               make([]model.Image, 0, len(p.Images)),
		Purchasable:          p.Active,
		Order:                metaInt(p.Metadata, "order", 0),
		SiteProductSelection: "lowest_price_first",
		Features:             productFeatures(p),
		Variants:             make([]model.Variant, 0, len(sorted)),
		Options:              []string{},
		Collections:          []string{},
		AdditionalInfo:       json.RawMessage("[]"),
		Type:                 model.ProductType{Value: "physical"},
		CustomFields:         []string{},
		RelatedProducts:      []string{},
		UpdatedAt:            time.Unix(p.Updated, 0).UTC(),
	}
	if len(p.Images) > 0 {
		img := p.Images[0]
		out.Image = &img
	}
	for i, url := range p.Images {
		out.Images = append(out.Images, model.Image{URL: url, Order: i, Type: "image"})
	}
	for _, price := range sorted {
		out.Variants = append(out.Variants, projectVariant(price))
	}
	if raw := p.Metadata["additional_info"]; raw != "" && json.Valid([]byte(raw)) {
		out.AdditionalInfo = json.RawMessage(raw)
	}
	if t := p.Metadata["type"]; t != "" {
		out.Type.Value = t
	}
	return out
}

// FilterAndSort 按分类筛选并按 metadata.order 升序
func FilterAndSort(products []gateway.Product, category string) []gateway.Product {
	out := make([]gateway.Product, 0, len(products))
	for _, p := range products {
		if p.Metadata["category"] == category {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return metaInt(out[i].Metadata, "order", unorderedRank) < metaInt(out[j].Metadata, "order", unorderedRank)
	})
	return out
}
