package models

import (
	"fmt"
	"strings"
)

type Category string

const (
	CategoryHeartwarming Category = "heartwarming"
	CategoryFunny        Category = "funny"
	CategoryTraumatic    Category = "traumatic"

	// CategoryMixed is a collection mode, not a category a video can carry.
	CategoryMixed Category = "mixed"
)

// Categories lists the editorial categories in round-robin order.
var Categories = []Category{CategoryHeartwarming, CategoryFunny, CategoryTraumatic}

func (c Category) Valid() bool {
	switch c {
	case CategoryHeartwarming, CategoryFunny, CategoryTraumatic:
		return true
	}
	return false
}

// ParseMode accepts a single category or "mixed".
func ParseMode(raw string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	if c == CategoryMixed || c.Valid() {
		return c, nil
	}
	return "", fmt.Errorf("unknown category %q", raw)
}

// Rotation returns the categories a run cycles through for the given mode.
func Rotation(mode Category) []Category {
	if mode == CategoryMixed {
		return append([]Category(nil), Categories...)
	}
	return []Category{mode}
}
