package views

import (
	"context"
	"strings"
	"testing"

	"github.com/52poke/vitrine/internal/catalog"
	"github.com/52poke/vitrine/internal/cep"
	"github.com/52poke/vitrine/internal/lang"
	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/message"
)

func printer(t *testing.T) *message.Printer {
	t.Helper()
	require.NoError(t, lang.Register())
	return lang.Printer(lang.PortugueseBR)
}

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var b strings.Builder
	require.NoError(t, c.Render(context.Background(), &b))
	return b.String()
}

func TestHint(t *testing.T) {
	assert.Equal(t, HintNone, Hint(cep.Result{}))
	assert.Equal(t, HintLoading, Hint(cep.Result{Loading: true, Address: "x", Error: "y"}))
	assert.Equal(t, HintInvalid, Hint(cep.Result{Error: "y"}))
	assert.Equal(t, HintAddress, Hint(cep.Result{Address: cep.MessageLookupError, Error: cep.MessageLookupError}))
	assert.Equal(t, HintAddress, Hint(cep.Result{Address: cep.MessageNotFound}))
}

func TestCepInputHints(t *testing.T) {
	p := printer(t)

	got := render(t, CepInput(p, "0100100", cep.Result{Loading: true}))
	assert.Contains(t, got, "Carregando...")
	assert.Contains(t, got, `maxlength="8"`)
	assert.Contains(t, got, `value="0100100"`)

	got = render(t, CepInput(p, "", cep.Result{Error: "x"}))
	assert.Contains(t, got, "CEP inválido")
	assert.NotContains(t, got, "Carregando")

	got = render(t, CepInput(p, "01001000", cep.Result{Address: "Praça da Sé, Sé, São Paulo - SP"}))
	assert.Contains(t, got, "Praça da Sé, Sé, São Paulo - SP")
	assert.NotContains(t, got, "CEP inválido")
}

func TestCepInputEscapesValue(t *testing.T) {
	got := render(t, CepInput(printer(t), `"><script>`, cep.Result{}))
	assert.NotContains(t, got, "<script>")
	assert.Contains(t, got, "&#34;&gt;&lt;script&gt;")
}

func TestProductDetailsMarksSelection(t *testing.T) {
	got := render(t, ProductDetails(printer(t), catalog.Demo(), "M", "Preto"))

	assert.Contains(t, got, "Camiseta Estampada")
	assert.Contains(t, got, "R$79.99")
	assert.Contains(t, got, `<option value="M" selected>M</option>`)
	assert.Contains(t, got, `<option value="Preto" selected>Preto</option>`)
	assert.Contains(t, got, `<option value="G">G</option>`)
	assert.Contains(t, got, "Selecione o Tamanho")
}

func TestProductImagesLinksEveryThumbnail(t *testing.T) {
	p := catalog.Demo()
	got := render(t, ProductImages(printer(t), p.Images, p.Images[1], func(img string) string {
		return "/?image=" + img
	}))

	for _, img := range p.Images {
		assert.Contains(t, got, `href="/?image=`+img+`"`)
	}
	assert.Equal(t, 1, strings.Count(got, `aria-current="true"`))
	assert.Contains(t, got, "Miniatura 3")
}

func TestNavbarMenuToggle(t *testing.T) {
	p := printer(t)
	closed := render(t, Navbar(p, false, "/?menu=open"))
	assert.NotContains(t, closed, "mobile-menu")
	assert.Contains(t, closed, `href="/?menu=open"`)

	open := render(t, Navbar(p, true, "/"))
	assert.Contains(t, open, `id="mobile-menu"`)
	assert.Contains(t, open, "Início")
}

func TestFooterYear(t *testing.T) {
	got := render(t, Footer(printer(t), 2031))
	assert.Contains(t, got, "© 2031 ShopLogo. Todos os direitos reservados.")
}

func TestProductPageComposes(t *testing.T) {
	p := catalog.Demo()
	got := render(t, ProductPage(PageView{
		Lang:           "pt-BR",
		Printer:        printer(t),
		Year:           2026,
		MenuToggleHref: "/?menu=open",
		Product:        p,
		SelectedImage:  p.DefaultImage(),
		ImageHref:      func(img string) string { return "/?image=" + img },
	}))

	assert.True(t, strings.HasPrefix(got, "<!doctype html>"))
	assert.Contains(t, got, `<html lang="pt-BR">`)
	assert.Contains(t, got, "<nav")
	assert.Contains(t, got, "<footer")
	assert.Contains(t, got, `action="/cep"`)
}

func TestLayoutRendersChildrenInBody(t *testing.T) {
	ctx := templ.WithChildren(context.Background(), templ.Raw(`<p id="child"></p>`))
	var b strings.Builder
	require.NoError(t, Layout("en", `Tee & "Co"`).Render(ctx, &b))

	got := b.String()
	assert.Contains(t, got, `<html lang="en">`)
	assert.Contains(t, got, "<title>Tee &amp; &#34;Co&#34;</title>")
	assert.Contains(t, got, `<body><p id="child"></p></body>`)
}

func TestThumbnailLinksRejectUnsafeSchemes(t *testing.T) {
	got := render(t, ProductImages(printer(t), []string{"/a.webp"}, "/a.webp", func(string) string {
		return "javascript:alert(1)"
	}))
	assert.NotContains(t, got, "javascript:")
}
