package httpx

import (
	"net/http"
	"net/url"

	"github.com/52poke/vitrine/internal/catalog"
)

// Expiring-store keys, namespaced per session.
const (
	KeySelectedSize  = "selectedSize"
	KeySelectedColor = "selectedColor"
)

const (
	paramImage = "image"
	paramMenu  = "menu"
	menuOpen   = "open"
)

// PageRequest is the transient UI state carried in the page URL.
type PageRequest struct {
	Image    string
	MenuOpen bool
	query    url.Values
}

func ParsePageRequest(r *http.Request) PageRequest {
	q := r.URL.Query()
	return PageRequest{
		Image:    q.Get(paramImage),
		MenuOpen: q.Get(paramMenu) == menuOpen,
		query:    q,
	}
}

// ImageHref links to the same page with image selected.
func (p PageRequest) ImageHref(image string) string {
	return p.with(func(q url.Values) { q.Set(paramImage, image) })
}

// MenuToggleHref links to the same page with the mobile menu flipped.
func (p PageRequest) MenuToggleHref() string {
	return p.with(func(q url.Values) {
		if p.MenuOpen {
			q.Del(paramMenu)
		} else {
			q.Set(paramMenu, menuOpen)
		}
	})
}

func (p PageRequest) with(edit func(url.Values)) string {
	q := url.Values{}
	for k, vv := range p.query {
		q[k] = append([]string(nil), vv...)
	}
	edit(q)
	if len(q) == 0 {
		return "/"
	}
	return "/?" + q.Encode()
}

// Selection is a variant change; nil fields were not submitted.
type Selection struct {
	Size  *string
	Color *string
}

func (s Selection) Valid(v catalog.Variants) bool {
	if s.Size != nil && !v.AllowsSize(*s.Size) {
		return false
	}
	if s.Color != nil && !v.AllowsColor(*s.Color) {
		return false
	}
	return true
}

func ParseSelection(r *http.Request) (Selection, error) {
	if err := r.ParseForm(); err != nil {
		return Selection{}, err
	}
	var sel Selection
	if vv, ok := r.PostForm["size"]; ok && len(vv) > 0 {
		size := vv[0]
		sel.Size = &size
	}
	if vv, ok := r.PostForm["color"]; ok && len(vv) > 0 {
		color := vv[0]
		sel.Color = &color
	}
	return sel, nil
}
