// File: internal/match/features.go
package match

import (
	"regexp"
	"strings"
)

// ProductFeatures is the normalized attribute set extracted from the
// original search query. It is computed once per run and injected into
// every oracle prompt as the exact-match filter; it is never recomputed
// from intermediate page titles, which would let the match drift as the
// loop hops between listings.
type ProductFeatures struct {
	Brand   string
	Storage string
	RAM     string
	Color   string
}

// brands is checked in order; the first case-insensitive substring hit wins.
var brands = []string{
	"iPhone", "Samsung", "OnePlus", "Xiaomi", "Realme", "Oppo", "Vivo",
	"Google", "Pixel", "Mi", "Redmi", "Nothing", "Asus", "Sony",
	"Motorola", "Nokia",
}

var colors = []string{
	"Black", "White", "Blue", "Red", "Green", "Gold", "Silver", "Gray",
	"Grey", "Purple", "Pink", "Yellow", "Orange", "Midnight", "Starlight",
	"Sierra",
}

var (
	storageRe = regexp.MustCompile(`(?i)(\d+\s*(?:GB|TB))`)
	ramRe     = regexp.MustCompile(`(?i)(\d+\s*GB\s*RAM)`)
)

// ExtractFeatures parses a free-text product name into ProductFeatures.
// Unmatched fields stay empty; there are no error conditions.
func ExtractFeatures(name string) ProductFeatures {
	var f ProductFeatures
	lower := strings.ToLower(name)

	for _, b := range brands {
		if strings.Contains(lower, strings.ToLower(b)) {
			f.Brand = b
			break
		}
	}

	// The RAM token ("8GB RAM") also matches the storage regex, so mask it
	// out before looking for the storage capacity.
	storageSource := name
	if m := ramRe.FindString(name); m != "" {
		f.RAM = strings.ReplaceAll(m, " ", "")
		storageSource = strings.Replace(name, m, "", 1)
	}
	if m := storageRe.FindString(storageSource); m != "" {
		f.Storage = strings.ReplaceAll(m, " ", "")
	}

	for _, c := range colors {
		if strings.Contains(lower, strings.ToLower(c)) {
			f.Color = c
			break
		}
	}
	return f
}

// PromptFilter renders the feature set as the requirement line used in
// oracle prompts, e.g. "Brand: Samsung, Storage: 256GB". Returns "N/A"
// when nothing was extracted.
func (f ProductFeatures) PromptFilter() string {
	var parts []string
	if f.Brand != "" {
		parts = append(parts, "Brand: "+f.Brand)
	}
	if f.Storage != "" {
		parts = append(parts, "Storage: "+f.Storage)
	}
	if f.RAM != "" {
		parts = append(parts, "RAM: "+f.RAM)
	}
	if f.Color != "" {
		parts = append(parts, "Color: "+f.Color)
	}
	if len(parts) == 0 {
		return "N/A"
	}
	return strings.Join(parts, ", ")
}
