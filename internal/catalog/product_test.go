package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDemoDefaultImageIsInGallery(t *testing.T) {
	p := Demo()
	assert.True(t, p.HasImage(p.DefaultImage()))
	assert.Equal(t, "/assets/camiseta01.webp", p.DefaultImage())
}

func TestSelectImage(t *testing.T) {
	p := Demo()
	assert.Equal(t, "/assets/camiseta3.webp", p.SelectImage("/assets/camiseta3.webp"))
	assert.Equal(t, p.DefaultImage(), p.SelectImage("/assets/camiseta4.webp"))
	assert.Equal(t, p.DefaultImage(), p.SelectImage(""))
	assert.Equal(t, "", Product{}.SelectImage("/x.webp"))
}

func TestVariantsAllow(t *testing.T) {
	v := Demo().Variants
	assert.True(t, v.AllowsSize("GG"))
	assert.True(t, v.AllowsSize(""))
	assert.False(t, v.AllowsSize("XL"))
	assert.True(t, v.AllowsColor("Preto"))
	assert.False(t, v.AllowsColor("preto"))
}

func TestDemoReturnsCopy(t *testing.T) {
	p := Demo()
	p.Images[0] = "mutated"
	assert.Equal(t, "/assets/camiseta01.webp", Demo().Images[0])
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "R$79.99", FormatPrice(79.99))
	assert.Equal(t, "R$80", FormatPrice(80))
}
