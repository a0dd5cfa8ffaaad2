// Package views renders the storefront page as templ components. The
// *_templ.go files are generated from the .templ sources with `templ generate`.
package views

import (
	"github.com/52poke/vitrine/internal/catalog"
	"github.com/52poke/vitrine/internal/cep"
	"golang.org/x/text/message"
)

type PageView struct {
	Lang    string
	Printer *message.Printer
	Year    int

	MenuOpen       bool
	MenuToggleHref string

	Product       catalog.Product
	SelectedImage string
	ImageHref     func(image string) string
	SelectedSize  string
	SelectedColor string

	CEP     string
	Address cep.Result
}

type HintKind int

const (
	HintNone HintKind = iota
	HintLoading
	HintInvalid
	HintAddress
)

// Hint picks the single CEP hint to show for a lookup state.
func Hint(r cep.Result) HintKind {
	switch {
	case r.Loading:
		return HintLoading
	case r.Address == "" && r.Error != "":
		return HintInvalid
	case r.Address != "":
		return HintAddress
	default:
		return HintNone
	}
}
