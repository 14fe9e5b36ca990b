package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/domain/catalog/gateway"
	"storefront/internal/domain/catalog/model"
	"storefront/pkg/cache"
	"storefront/pkg/logger"
	"storefront/pkg/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidPayload  = errors.New("invalid request payload")
)

const (
	DefaultLimit = 10
	MaxLimit     = 100

	cachePrefix = "catalog:"
	cacheTTL    = 5 * time.Minute
)

type CatalogService interface {
	ListProducts(ctx context.Context, category string, limit int) (*model.ProductList, error)
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	UpdateProduct(ctx context.Context, productID string, payload model.UpdateProductPayload) (*model.Product, error)
}

type catalogService struct {
	gateway         gateway.CatalogGateway
	cache           cache.CacheService
	defaultCategory string
	metrics         *metrics.MetricsCollector
}

// NewCatalogService cache、collector 可为 nil
func NewCatalogService(gw gateway.CatalogGateway, cacheService cache.CacheService, defaultCategory string, collector *metrics.MetricsCollector) CatalogService {
	if defaultCategory == "" {
		defaultCategory = "starscale"
	}
	return &catalogService{
		gateway:         gw,
		cache:           cacheService,
		defaultCategory: defaultCategory,
		metrics:         collector,
	}
}

// cached 先读缓存，未命中时加载并回写，缓存故障不影响读取
func cached[T any](ctx context.Context, s *catalogService, key string, load func() (*T, error)) (*T, error) {
	if s.cache != nil {
		var hit T
		err := s.cache.Get(ctx, key, &hit)
		if err == nil {
			s.recordCache(true)
			return &hit, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.Log.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
		}
		s.recordCache(false)
	}

	v, err := load()
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, v, cacheTTL); err != nil {
			logger.Log.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return v, nil
}

func (s *catalogService) recordCache(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(cachePrefix, hit)
	}
}

func (s *catalogService) ListProducts(ctx context.Context, category string, limit int) (*model.ProductList, error) {
	if category == "" {
		category = s.defaultCategory
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	key := fmt.Sprintf("%slist:%s:%d", cachePrefix, category, limit)
	return cached(ctx, s, key, func() (*model.ProductList, error) {
		all, err := s.gateway.ListActiveProducts(ctx)
		if err != nil {
			return nil, err
		}
		filtered := FilterAndSort(all, category)
		page := filtered
		if len(page) > limit {
			page = page[:limit]
		}

		// 并发拉取每个商品的价格
		products := make([]model.Product, len(page))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(8)
		for i := range page {
			i := i
			g.Go(func() error {
				prices, err := s.gateway.ListActivePrices(gctx, page[i].ID)
				if err != nil {
					return err
				}
				products[i] = Project(page[i], prices)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		return &model.ProductList{
			Count:    len(filtered),
			Offset:   0,
			Limit:    limit,
			Products: products,
		}, nil
	})
}

func (s *catalogService) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	return cached(ctx, s, cachePrefix+"product:"+id, func() (*model.Product, error) {
		p, err := s.gateway.GetProduct(ctx, id)
		if err != nil {
			if errors.Is(err, gateway.ErrNotFound) {
				return nil, ErrProductNotFound
			}
			return nil, err
		}
		prices, err := s.gateway.ListActivePrices(ctx, id)
		if err != nil {
			return nil, err
		}
		view := Project(*p, prices)
		return &view, nil
	})
}

// imageUpdate 空串清空，http(s) 地址替换，其余忽略
func imageUpdate(image *string) []string {
	if image == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*image)
	if trimmed == "" {
		return []string{}
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return []string{trimmed}
	}
	return nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, productID string, payload model.UpdateProductPayload) (*model.Product, error) {
	if productID == "" {
		return nil, ErrInvalidPayload
	}
	if payload.UnitAmount != nil && *payload.UnitAmount <= 0 {
		return nil, ErrInvalidPayload
	}

	current, err := s.gateway.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	// 1. 商品基础字段与 metadata
	update := gateway.ProductUpdate{
		Name:        payload.Name,
		Description: payload.Description,
		Images:      imageUpdate(payload.Image),
		Metadata:    map[string]string{},
	}
	if payload.Subtitle != nil {
		update.Metadata["subtitle"] = *payload.Subtitle
	}
	if payload.RibbonText != nil {
		update.Metadata["ribbon_text"] = *payload.RibbonText
	}
	features := CleanFeatures(payload.Features)
	if len(features) > 0 {
		raw, _ := json.Marshal(features)
		update.Metadata[featuresMetaKey] = string(raw)
		update.Features = features
	} else if _, ok := current.Metadata[featuresMetaKey]; ok {
		// 未提供特性时清掉旧数据，前台回退到营销特性
		update.Metadata[featuresMetaKey] = ""
	}

	updated, err := s.gateway.UpdateProduct(ctx, productID, update)
	if err != nil {
		return nil, err
	}
	// 商品已在服务商侧变更，后续步骤失败也要让缓存失效
	defer s.invalidate(ctx)

	// 2. 价格与促销价
	if payload.PriceID != "" {
		if err := s.updatePrice(ctx, current, payload); err != nil {
			return nil, err
		}
	}

	prices, err := s.gateway.ListActivePrices(ctx, productID)
	if err != nil {
		return nil, err
	}
	view := Project(*updated, prices)
	logger.Log.Info("catalog product updated", zap.String("product_id", productID), zap.String("price_id", payload.PriceID))
	return &view, nil
}

// updatePrice 金额变化时新建价格替换旧价格，否则只更新促销价
func (s *catalogService) updatePrice(ctx context.Context, product *gateway.Product, payload model.UpdateProductPayload) error {
	existing, err := s.gateway.GetPrice(ctx, payload.PriceID)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return ErrInvalidPayload
		}
		return err
	}

	meta := make(map[string]string, len(existing.Metadata)+1)
	for k, v := range existing.Metadata {
		meta[k] = v
	}
	if payload.SalePriceInCents == nil {
		delete(meta, saleMetaKey)
	} else {
		meta[saleMetaKey] = fmt.Sprintf("%d", *payload.SalePriceInCents)
	}

	if payload.UnitAmount == nil || *payload.UnitAmount == existing.UnitAmount {
		changes := map[string]string{}
		if payload.SalePriceInCents == nil {
			if _, ok := existing.Metadata[saleMetaKey]; ok {
				changes[saleMetaKey] = ""
			}
		} else {
			changes[saleMetaKey] = meta[saleMetaKey]
		}
		if len(changes) == 0 {
			return nil
		}
		return s.gateway.UpdatePriceMetadata(ctx, existing.ID, changes)
	}

	created, err := s.gateway.CreatePrice(ctx, gateway.NewPrice{
		ProductID:              product.ID,
		UnitAmount:             *payload.UnitAmount,
		Currency:               existing.Currency,
		Nickname:               existing.Nickname,
		Metadata:               meta,
		RecurringInterval:      existing.RecurringInterval,
		RecurringIntervalCount: existing.RecurringIntervalCount,
	})
	if err != nil {
		return err
	}

	if product.DefaultPriceID == existing.ID {
		if err := s.gateway.SetDefaultPrice(ctx, product.ID, created.ID); err != nil {
			// 两个价格都保持可用，前台按价格 ID 下单
			logger.Log.Warn("repoint default price failed",
				zap.String("product_id", product.ID),
				zap.String("price_id", created.ID),
				zap.Error(err))
		}
	}

	if err := s.gateway.ArchivePrice(ctx, existing.ID); err != nil && !errors.Is(err, gateway.ErrDefaultPriceArchive) {
		return err
	}
	return nil
}

func (s *catalogService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidatePattern(ctx, cachePrefix+"*"); err != nil {
		logger.Log.Warn("catalog cache invalidation failed", zap.Error(err))
	}
}
