package domain

import (
	"fmt"
	"strings"
)

// Category is one of the fixed content buckets used for routing and cache
// partitioning.
type Category string

const (
	CategoryBRICS     Category = "brics"
	CategoryIndonesia Category = "indonesia"
	CategoryBali      Category = "bali"
)

// Categories lists every known category in priority order.
func Categories() []Category {
	return []Category{CategoryBRICS, CategoryIndonesia, CategoryBali}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryBRICS, CategoryIndonesia, CategoryBali:
		return true
	default:
		return false
	}
}

func (c Category) String() string { return string(c) }

// ParseCategory normalizes s and returns the matching category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}
