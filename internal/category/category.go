// Package category maps free-text category labels to the three storage
// partitions the tracker knows about. The membership sets are fixed; an
// unrecognized label is an error rather than a silent fallback, so a typo in
// a category surfaces before anything is written to the wrong table.
package category

import (
	"errors"
	"fmt"
)

var ErrUnknownCategory = errors.New("error unknown category")

type Partition int

const (
	Investment Partition = iota
	Inventory
	Expense
)

func (p Partition) String() string {
	switch p {
	case Investment:
		return "Investment"
	case Inventory:
		return "Inventory"
	case Expense:
		return "Expense"
	}
	return fmt.Sprintf("Partition(%d)", int(p))
}

var partitionByCategory = map[string]Partition{
	"Stocks":      Investment,
	"Bonds":       Investment,
	"Crypto":      Investment,
	"Real Estate": Investment,
	"Gold":        Investment,

	"Appliances":       Inventory,
	"Electronics":      Inventory,
	"Furniture":        Inventory,
	"Transportation":   Inventory,
	"Home Improvement": Inventory,
	"Savings":          Inventory,
	"Collectibles":     Inventory,

	"Expense": Expense,
}

// PartitionFor classifies a category label. Matching is exact and
// case-sensitive.
func PartitionFor(category string) (Partition, error) {
	p, ok := partitionByCategory[category]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	return p, nil
}

// TableFor returns the storage table backing a partition.
func TableFor(p Partition) string {
	switch p {
	case Investment:
		return "investments"
	case Inventory:
		return "inventory"
	case Expense:
		return "expenses"
	}
	return ""
}

// Partitions lists all partitions in storage order.
func Partitions() []Partition {
	return []Partition{Investment, Inventory, Expense}
}
