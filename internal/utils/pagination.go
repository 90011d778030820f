// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import "strconv"

// AtoiDefault converts a string to an int using strconv.Atoi.
// If the string is empty or cannot be parsed as an integer,
// it returns the provided default value instead.
//
// Example:
//
//	n := utils.AtoiDefault("42", 0) // returns 42
//	n = utils.AtoiDefault("", 10)   // returns 10
//	n = utils.AtoiDefault("x", 5)   // returns 5
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// Page is a normalized 1-based page request.
type Page struct {
	Number int `json:"page"`
	Size   int `json:"page_size"`
}

// Default page bounds shared by services and handlers.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// NewPage clamps number to >= 1 and size to [1, MaxPageSize]; a size <= 0
// becomes DefaultPageSize.
func NewPage(number, size int) Page {
	if number < 1 {
		number = 1
	}
	switch {
	case size <= 0:
		size = DefaultPageSize
	case size > MaxPageSize:
		size = MaxPageSize
	}
	return Page{Number: number, Size: size}
}

// Offset returns the row offset of the page.
func (p Page) Offset() int { return (p.Number - 1) * p.Size }

// TotalPages returns the page count for total rows.
func (p Page) TotalPages(total int64) int {
	if p.Size <= 0 {
		return 0
	}
	return int((total + int64(p.Size) - 1) / int64(p.Size))
}

// HasNext reports whether another page follows for total rows.
func (p Page) HasNext(total int64) bool { return p.Number < p.TotalPages(total) }
