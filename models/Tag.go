package models

import (
	"regexp"
	"strings"
)

var hexColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

type Tag struct {
	ID uint `gorm:"primaryKey" json:"id"`
	Named
	Color string `gorm:"size:7;uniqueIndex;not null" json:"color"`
	Slug  string `gorm:"size:200;uniqueIndex;not null" json:"slug"`
}

// ValidColor reports whether value is a #RGB or #RRGGBB hex color.
func ValidColor(value string) bool {
	return hexColorPattern.MatchString(strings.TrimSpace(value))
}
