package entities

import "fmt"

// ItemCode represents a unique item identifier in the item master
type ItemCode string

// Item represents an entry in the item master list. Identity is the code;
// the name is a fuzzy secondary key used when records arrive without a code.
type Item struct {
	Code ItemCode
	Name string
}

// NewItem creates a validated Item
func NewItem(code ItemCode, name string) (*Item, error) {
	if string(code) == "" {
		return nil, fmt.Errorf("item code cannot be empty")
	}
	if name == "" {
		return nil, fmt.Errorf("item name cannot be empty")
	}

	return &Item{
		Code: code,
		Name: name,
	}, nil
}
