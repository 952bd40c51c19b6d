package models

import "unicode/utf8"

// DisplayLength caps how many runes String() renders for catalog names.
const DisplayLength = 30

// NameOrder is the default ordering for Named entities.
const NameOrder = "name asc"

// Named carries the unique, alphabetically ordered name shared by catalog
// entities.
type Named struct {
	Name string `gorm:"size:200;uniqueIndex;not null" json:"name"`
}

// String returns the name truncated to DisplayLength runes.
func (n Named) String() string {
	if utf8.RuneCountInString(n.Name) <= DisplayLength {
		return n.Name
	}
	runes := []rune(n.Name)
	return string(runes[:DisplayLength])
}
