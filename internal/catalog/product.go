// Package catalog holds the storefront's demo product.
package catalog

import (
	"slices"
	"strconv"
)

type Variants struct {
	Size  []string `json:"size"`
	Color []string `json:"color"`
}

// AllowsSize reports whether size may be stored as a selection. The empty
// string clears the selection and is always allowed.
func (v Variants) AllowsSize(size string) bool {
	return size == "" || slices.Contains(v.Size, size)
}

func (v Variants) AllowsColor(color string) bool {
	return color == "" || slices.Contains(v.Color, color)
}

type Product struct {
	Title    string   `json:"title"`
	Price    float64  `json:"price"`
	Images   []string `json:"images"`
	Variants Variants `json:"variants"`
}

// Demo returns a fresh copy of the hardcoded product shown on the page.
func Demo() Product {
	return Product{
		Title: "Camiseta Estampada",
		Price: 79.99,
		Images: []string{
			"/assets/camiseta01.webp",
			"/assets/camiseta2.webp",
			"/assets/camiseta3.webp",
		},
		Variants: Variants{
			Size:  []string{"P", "M", "G", "GG"},
			Color: []string{"Azul", "Vermelho", "Preto"},
		},
	}
}

func (p Product) HasImage(image string) bool {
	return slices.Contains(p.Images, image)
}

// DefaultImage is the first gallery image, or "" for a product without any.
func (p Product) DefaultImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// SelectImage returns image when it belongs to the gallery and the default
// image otherwise.
func (p Product) SelectImage(image string) string {
	if image != "" && p.HasImage(image) {
		return image
	}
	return p.DefaultImage()
}

func FormatPrice(price float64) string {
	return "R$" + strconv.FormatFloat(price, 'f', -1, 64)
}
