package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// listPageSize 单页拉取数量，服务商不支持按 metadata 过滤，只能全部拉回本地筛选
const listPageSize = 100

const defaultPriceArchiveMsg = "cannot be archived because it is the default price of its product"

type StripeCatalogGateway struct {
	api *client.API
}

func NewStripeCatalogGateway(api *client.API) *StripeCatalogGateway {
	return &StripeCatalogGateway{api: api}
}

// wrap 把资源不存在转换为 ErrNotFound
func wrap(op, id string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing {
		return fmt.Errorf("%s %s: %w", op, id, ErrNotFound)
	}
	return fmt.Errorf("%s %s: %w", op, id, err)
}

func convertProduct(p *stripe.Product) *Product {
	out := &Product{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Active:      p.Active,
		Images:      p.Images,
		Metadata:    p.Metadata,
		Updated:     p.Updated,
	}
	for _, f := range p.Features {
		if f != nil && f.Name != "" {
			out.Features = append(out.Features, f.Name)
		}
	}
	if p.DefaultPrice != nil {
		out.DefaultPriceID = p.DefaultPrice.ID
	}
	return out
}

func convertPrice(p *stripe.Price) *Price {
	out := &Price{
		ID:         p.ID,
		Nickname:   p.Nickname,
		UnitAmount: p.UnitAmount,
		Currency:   strings.ToLower(string(p.Currency)),
		Metadata:   p.Metadata,
	}
	if p.Recurring != nil {
		out.RecurringInterval = string(p.Recurring.Interval)
		out.RecurringIntervalCount = p.Recurring.IntervalCount
	}
	return out
}

func (g *StripeCatalogGateway) ListActiveProducts(ctx context.Context) ([]Product, error) {
	params := &stripe.ProductListParams{Active: stripe.Bool(true)}
	params.Context = ctx
	params.Limit = stripe.Int64(listPageSize)
	params.AddExpand("data.default_price")

	var out []Product
	iter := g.api.Products.List(params)
	for iter.Next() {
		out = append(out, *convertProduct(iter.Product()))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return out, nil
}

func (g *StripeCatalogGateway) GetProduct(ctx context.Context, id string) (*Product, error) {
	params := &stripe.ProductParams{}
	params.Context = ctx
	params.AddExpand("default_price")

	p, err := g.api.Products.Get(id, params)
	if err != nil {
		return nil, wrap("retrieve product", id, err)
	}
	return convertProduct(p), nil
}

func (g *StripeCatalogGateway) UpdateProduct(ctx context.Context, id string, in ProductUpdate) (*Product, error) {
	params := &stripe.ProductParams{
		Name:        in.Name,
		Description: in.Description,
	}
	params.Context = ctx
	if in.Images != nil {
		// 空切片会被编码为空值，服务商据此清空图片
		params.Images = stripe.StringSlice(in.Images)
	}
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}
	if len(in.Features) > 0 {
		for _, name := range in.Features {
			params.Features = append(params.Features, &stripe.ProductFeatureParams{Name: stripe.String(name)})
		}
	}

	p, err := g.api.Products.Update(id, params)
	if err != nil {
		return nil, wrap("update product", id, err)
	}
	return convertProduct(p), nil
}

func (g *StripeCatalogGateway) SetDefaultPrice(ctx context.Context, productID, priceID string) error {
	params := &stripe.ProductParams{DefaultPrice: stripe.String(priceID)}
	params.Context = ctx

	if _, err := g.api.Products.Update(productID, params); err != nil {
		return wrap("set default price", productID, err)
	}
	return nil
}

func (g *StripeCatalogGateway) ListActivePrices(ctx context.Context, productID string) ([]Price, error) {
	params := &stripe.PriceListParams{
		Product: stripe.String(productID),
		Active:  stripe.Bool(true),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(listPageSize)

	var out []Price
	iter := g.api.Prices.List(params)
	for iter.Next() {
		out = append(out, *convertPrice(iter.Price()))
	}
	if err := iter.Err(); err != nil {
		return nil, wrap("list prices", productID, err)
	}
	return out, nil
}

func (g *StripeCatalogGateway) GetPrice(ctx context.Context, id string) (*Price, error) {
	params := &stripe.PriceParams{}
	params.Context = ctx

	p, err := g.api.Prices.Get(id, params)
	if err != nil {
		return nil, wrap("retrieve price", id, err)
	}
	return convertPrice(p), nil
}

func (g *StripeCatalogGateway) CreatePrice(ctx context.Context, in NewPrice) (*Price, error) {
	params := &stripe.PriceParams{
		Product:    stripe.String(in.ProductID),
		UnitAmount: stripe.Int64(in.UnitAmount),
		Currency:   stripe.String(in.Currency),
	}
	params.Context = ctx
	if in.Nickname != "" {
		params.Nickname = stripe.String(in.Nickname)
	}
	if in.RecurringInterval != "" {
		params.Recurring = &stripe.PriceRecurringParams{Interval: stripe.String(in.RecurringInterval)}
		if in.RecurringIntervalCount > 0 {
			params.Recurring.IntervalCount = stripe.Int64(in.RecurringIntervalCount)
		}
	}
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}

	p, err := g.api.Prices.New(params)
	if err != nil {
		return nil, wrap("create price for", in.ProductID, err)
	}
	return convertPrice(p), nil
}

func (g *StripeCatalogGateway) UpdatePriceMetadata(ctx context.Context, id string, metadata map[string]string) error {
	params := &stripe.PriceParams{}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	if _, err := g.api.Prices.Update(id, params); err != nil {
		return wrap("update price", id, err)
	}
	return nil
}

func (g *StripeCatalogGateway) ArchivePrice(ctx context.Context, id string) error {
	params := &stripe.PriceParams{Active: stripe.Bool(false)}
	params.Context = ctx

	if _, err := g.api.Prices.Update(id, params); err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && strings.Contains(stripeErr.Msg, defaultPriceArchiveMsg) {
			return fmt.Errorf("archive price %s: %w", id, ErrDefaultPriceArchive)
		}
		return wrap("archive price", id, err)
	}
	return nil
}
