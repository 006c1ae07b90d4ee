// Package models contains shared data structures used across the application.
package models

import (
	"fmt"
	"math/rand/v2"
)

// Item is the record exchanged with the item service. It has no identity
// beyond its fields and is always passed by value.
type Item struct {
	Name  string `yaml:"name" cbor:"name" json:"name"`
	Value int    `yaml:"value" cbor:"value" json:"value"`
}

// NewItem creates an item.
func NewItem(name string, value int) Item {
	return Item{Name: name, Value: value}
}

// Validate reports whether the item can be stored by the service.
func (i Item) Validate() error {
	if i.Name == "" {
		return fmt.Errorf("item name is required")
	}
	return nil
}

// String formats the item for status lines.
func (i Item) String() string {
	return fmt.Sprintf("%s=%d", i.Name, i.Value)
}

// Bounds for generated items.
const (
	randomNameRange  = 1000
	randomValueRange = 20
)

// RandomItem generates an item named s<0..999> with a value in 0..19.
func RandomItem() Item {
	return Item{
		Name:  fmt.Sprintf("s%d", rand.IntN(randomNameRange)),
		Value: rand.IntN(randomValueRange),
	}
}
