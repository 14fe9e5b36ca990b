package storefront

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	bolt "github.com/boltdb/bolt"
)

const (
	cartBucket = "cart"
	cartKey    = "items"

	// 满 2 件打 7 折
	BundleMinUnits   = 2
	BundlePercentOff = 30
)

var ErrInvalidQuantity = errors.New("quantity must be positive")

// CartItem 购物车条目，单价取促销价（若有）
type CartItem struct {
	VariantID    string `json:"variant_id"`
	ProductTitle string `json:"product_title"`
	VariantTitle string `json:"variant_title"`
	PriceInCents int64  `json:"price_in_cents"`
	Currency     string `json:"currency,omitempty"`
	Quantity     int64  `json:"quantity"`
}

// Totals 购物车金额，全部为分
type Totals struct {
	Units          int64 `json:"units"`
	Subtotal       int64 `json:"subtotal"`
	BundleDiscount int64 `json:"bundle_discount"`
	Total          int64 `json:"total"`
}

// Cart 某一时刻的购物车快照
type Cart struct {
	Items  []CartItem `json:"items"`
	Totals Totals     `json:"totals"`
}

// BundleDiscount 件数达标时按百分比折扣，四舍五入到分
func BundleDiscount(subtotal, units int64) int64 {
	if units < BundleMinUnits || subtotal <= 0 {
		return 0
	}
	return (subtotal*BundlePercentOff + 50) / 100
}

// ComputeTotals 计算购物车金额
func ComputeTotals(items []CartItem) Totals {
	var t Totals
	for _, item := range items {
		t.Units += item.Quantity
		t.Subtotal += item.PriceInCents * item.Quantity
	}
	t.BundleDiscount = BundleDiscount(t.Subtotal, t.Units)
	t.Total = t.Subtotal - t.BundleDiscount
	return t
}

// CartStore 显式持有的购物车状态，变更后通知订阅者
// db 为 nil 时仅保存在内存中
type CartStore struct {
	mu    sync.Mutex
	items []CartItem
	db    *bolt.DB

	subMu  sync.Mutex
	subs   map[int]func(Cart)
	nextID int
}

// NewCartStore 内存购物车
func NewCartStore() *CartStore {
	return &CartStore{subs: make(map[int]func(Cart))}
}

// OpenCartStore 打开（或创建）bolt 文件并加载已有购物车
func OpenCartStore(path string) (*CartStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	s := NewCartStore()
	s.db = db

	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(cartBucket))
		if err != nil {
			return err
		}
		if v := b.Get([]byte(cartKey)); v != nil {
			return json.Unmarshal(v, &s.items)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *CartStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Snapshot 当前购物车
func (s *CartStore) Snapshot() Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *CartStore) snapshotLocked() Cart {
	items := make([]CartItem, len(s.items))
	copy(items, s.items)
	return Cart{Items: items, Totals: ComputeTotals(items)}
}

// Add 加入购物车，同一规格累加数量
func (s *CartStore) Add(item CartItem) error {
	if item.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	return s.mutate(func(items []CartItem) []CartItem {
		for i := range items {
			if items[i].VariantID == item.VariantID {
				items[i].Quantity += item.Quantity
				return items
			}
		}
		return append(items, item)
	})
}

// SetQuantity 修改数量，0 表示移除
func (s *CartStore) SetQuantity(variantID string, quantity int64) error {
	if quantity < 0 {
		return ErrInvalidQuantity
	}
	return s.mutate(func(items []CartItem) []CartItem {
		out := items[:0]
		for _, it := range items {
			if it.VariantID == variantID {
				if quantity == 0 {
					continue
				}
				it.Quantity = quantity
			}
			out = append(out, it)
		}
		return out
	})
}

func (s *CartStore) Remove(variantID string) error {
	return s.SetQuantity(variantID, 0)
}

// Clear 清空购物车，支付成功后调用
func (s *CartStore) Clear() error {
	return s.mutate(func([]CartItem) []CartItem { return nil })
}

// Subscribe 注册变更回调，返回取消订阅函数
func (s *CartStore) Subscribe(fn func(Cart)) func() {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *CartStore) mutate(fn func([]CartItem) []CartItem) error {
	s.mu.Lock()
	next := fn(append([]CartItem(nil), s.items...))
	if err := s.persist(next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.items = next
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snapshot)
	return nil
}

func (s *CartStore) persist(items []CartItem) error {
	if s.db == nil {
		return nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(cartBucket)).Put([]byte(cartKey), data)
	})
}

// notify 在锁外调用订阅者，回调里可以再读购物车
func (s *CartStore) notify(cart Cart) {
	s.subMu.Lock()
	subs := make([]func(Cart), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(cart)
	}
}
