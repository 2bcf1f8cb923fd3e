/*
Package services is the studio's product catalog: what can be sold to a
client, at which list price, and whether it is currently offered.

Items are grouped by Category. ByCategory and Active are pure filters the
catalog endpoints compose; the category "all" disables category filtering.
*/
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CategoryAll disables category filtering.
const CategoryAll = "all"

var (
	ErrItemNotFound    = errors.New("service not found")
	ErrInvalidItem     = errors.New("invalid service")
	ErrUnknownCategory = errors.New("unknown service category")
)

type Category string

const (
	CategoryPhotography Category = "photography"
	CategoryVideo       Category = "video"
	CategoryAlbum       Category = "album"
	CategoryPackages    Category = "packages"
	CategoryExtras      Category = "extras"
)

// Categories lists the catalog sections in display order.
var Categories = []Category{CategoryPhotography, CategoryVideo, CategoryAlbum, CategoryPackages, CategoryExtras}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Item is one catalog entry.
type Item struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Category    Category        `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Duration    string          `json:"duration,omitempty"`
	Includes    []string        `json:"includes,omitempty"`
	Active      bool            `json:"active"`
	Images      []string        `json:"images,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ByCategory keeps the items of category. CategoryAll keeps everything.
func ByCategory(items []Item, category string) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if category == CategoryAll || string(it.Category) == category {
			out = append(out, it)
		}
	}
	return out
}

// Active keeps the items currently offered.
func Active(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.Active {
			out = append(out, it)
		}
	}
	return out
}

// ParseCategory accepts "", "all" or a known category.
func ParseCategory(s string) (string, error) {
	if s == "" || s == CategoryAll {
		return CategoryAll, nil
	}
	if !Category(s).Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return s, nil
}

// =============================================================================
// CATALOG
// =============================================================================

// Repository persists catalog items. GetService returns (nil, nil) for an
// unknown ID.
type Repository interface {
	ListServices(ctx context.Context) ([]Item, error)
	GetService(ctx context.Context, id string) (*Item, error)
	SaveService(ctx context.Context, it Item) error
	DeleteService(ctx context.Context, id string) error
}

// Catalog validates and stores items.
type Catalog struct {
	repo Repository
	Now  func() time.Time
}

func NewCatalog(repo Repository) *Catalog {
	return &Catalog{repo: repo, Now: time.Now}
}

func (c *Catalog) now() time.Time {
	if c.Now == nil {
		return time.Now().UTC()
	}
	return c.Now().UTC()
}

func validate(it *Item) error {
	it.Name = strings.TrimSpace(it.Name)
	if it.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidItem)
	}
	if !it.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidItem, it.Category)
	}
	if it.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidItem)
	}
	return nil
}

func (c *Catalog) Create(ctx context.Context, it Item) (Item, error) {
	if err := validate(&it); err != nil {
		return Item{}, err
	}
	now := c.now()
	it.ID = uuid.NewString()
	it.CreatedAt, it.UpdatedAt = now, now
	if err := c.repo.SaveService(ctx, it); err != nil {
		return Item{}, fmt.Errorf("failed to save service: %w", err)
	}
	return it, nil
}

func (c *Catalog) Update(ctx context.Context, id string, it Item) (Item, error) {
	existing, err := c.Get(ctx, id)
	if err != nil {
		return Item{}, err
	}
	if err := validate(&it); err != nil {
		return Item{}, err
	}
	it.ID = id
	it.CreatedAt = existing.CreatedAt
	it.UpdatedAt = c.now()
	if err := c.repo.SaveService(ctx, it); err != nil {
		return Item{}, fmt.Errorf("failed to save service: %w", err)
	}
	return it, nil
}

func (c *Catalog) Get(ctx context.Context, id string) (Item, error) {
	it, err := c.repo.GetService(ctx, id)
	if err != nil {
		return Item{}, err
	}
	if it == nil {
		return Item{}, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	return *it, nil
}

func (c *Catalog) Delete(ctx context.Context, id string) error {
	if _, err := c.Get(ctx, id); err != nil {
		return err
	}
	return c.repo.DeleteService(ctx, id)
}

// List returns the items of category (CategoryAll for every section),
// optionally only the active ones, ordered by category then name.
func (c *Catalog) List(ctx context.Context, category string, activeOnly bool) ([]Item, error) {
	category, err := ParseCategory(category)
	if err != nil {
		return nil, err
	}
	all, err := c.repo.ListServices(ctx)
	if err != nil {
		return nil, err
	}
	list := ByCategory(all, category)
	if activeOnly {
		list = Active(list)
	}
	rank := make(map[Category]int, len(Categories))
	for i, cat := range Categories {
		rank[cat] = i
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Category != list[j].Category {
			return rank[list[i].Category] < rank[list[j].Category]
		}
		return list[i].Name < list[j].Name
	})
	return list, nil
}
