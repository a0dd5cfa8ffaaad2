package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/52poke/vitrine/internal/cache"
	"github.com/52poke/vitrine/internal/catalog"
	"github.com/52poke/vitrine/internal/cep"
	"github.com/52poke/vitrine/internal/lang"
	"github.com/52poke/vitrine/internal/session"
	"github.com/52poke/vitrine/internal/views"
	"github.com/a-h/templ"
	"go.uber.org/zap"
)

type Handler struct {
	Store    *cache.Store
	Sessions *session.Registry
	Assets   http.Handler
	Logger   *zap.Logger
	// Ready reports backend health for /readyz; nil means always ready.
	Ready func(ctx context.Context) error

	now func() time.Time
	mux *http.ServeMux
}

func NewHandler(store *cache.Store, sessions *session.Registry, assets http.Handler, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		Store:    store,
		Sessions: sessions,
		Assets:   assets,
		Logger:   logger,
		now:      time.Now,
	}
	h.mux = h.routes()
	return h
}

func (h *Handler) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /readyz", h.serveReady)
	mux.HandleFunc("GET /{$}", h.servePage)
	mux.HandleFunc("POST /selection", h.postSelection)
	mux.HandleFunc("POST /cep", h.postCEP)
	mux.HandleFunc("GET /api/address", h.getAddress)
	mux.HandleFunc("POST /api/address", h.startAddress)
	mux.HandleFunc("GET /api/product", h.getProduct)
	if h.Assets != nil {
		mux.Handle("/assets/", h.Assets)
	}
	return mux
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) serveReady(w http.ResponseWriter, r *http.Request) {
	if h.Ready != nil {
		if err := h.Ready(r.Context()); err != nil {
			h.Logger.Warn("readiness check failed", zap.Error(err))
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

// selection reads a persisted choice and writes it straight back, so every
// page load renews its expiration. It never fails the page: store errors
// fall back to "" and skip the write-back. Anonymous visitors have nothing
// stored.
func (h *Handler) selection(ctx context.Context, sess *session.Session, name string) string {
	if sess.Anonymous() {
		return ""
	}
	key := sess.Key(name)
	v, err := cache.Read(ctx, h.Store, key, "")
	if err != nil {
		h.Logger.Error("selection read failed", zap.String("key", name), zap.Error(err))
		return v
	}
	if err := h.Store.Write(ctx, key, v); err != nil {
		h.Logger.Error("selection refresh failed", zap.String("key", name), zap.Error(err))
	}
	return v
}

func (h *Handler) servePage(w http.ResponseWriter, r *http.Request) {
	sess := h.Sessions.Peek(r)
	page := ParsePageRequest(r)
	tag := lang.FromRequest(r)
	product := catalog.Demo()

	view := views.PageView{
		Lang:           tag.String(),
		Printer:        lang.Printer(tag),
		Year:           h.now().Year(),
		MenuOpen:       page.MenuOpen,
		MenuToggleHref: page.MenuToggleHref(),
		Product:        product,
		SelectedImage:  product.SelectImage(page.Image),
		ImageHref:      page.ImageHref,
		SelectedSize:   h.selection(r.Context(), sess, KeySelectedSize),
		SelectedColor:  h.selection(r.Context(), sess, KeySelectedColor),
		CEP:            sess.CEP(),
		Address:        sess.Lookup.Snapshot(),
	}
	templ.Handler(views.ProductPage(view)).ServeHTTP(w, r)
}

func (h *Handler) postSelection(w http.ResponseWriter, r *http.Request) {
	sel, err := ParseSelection(r)
	if err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	if !sel.Valid(catalog.Demo().Variants) {
		http.Error(w, "unknown variant", http.StatusBadRequest)
		return
	}
	sess := h.Sessions.Attach(w, r)
	if sel.Size != nil {
		if err := h.Store.Write(r.Context(), sess.Key(KeySelectedSize), *sel.Size); err != nil {
			h.storeFailed(w, err)
			return
		}
	}
	if sel.Color != nil {
		if err := h.Store.Write(r.Context(), sess.Key(KeySelectedColor), *sel.Color); err != nil {
			h.storeFailed(w, err)
			return
		}
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) storeFailed(w http.ResponseWriter, err error) {
	h.Logger.Error("selection write failed", zap.Error(err))
	http.Error(w, "selection not saved", http.StatusServiceUnavailable)
}

func (h *Handler) postCEP(w http.ResponseWriter, r *http.Request) {
	sess := h.Sessions.Attach(w, r)
	code := r.PostFormValue("cep")
	sess.SetCEP(code)
	sess.Lookup.Resolve(r.Context(), code)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type addressRequest struct {
	CEP string `json:"cep"`
}

type addressResponse struct {
	CEP     string  `json:"cep"`
	Address string  `json:"address"`
	Error   *string `json:"error"`
	Loading bool    `json:"loading"`
}

func newAddressResponse(code string, res cep.Result) addressResponse {
	out := addressResponse{CEP: code, Address: res.Address, Loading: res.Loading}
	if res.Error != "" {
		msg := res.Error
		out.Error = &msg
	}
	return out
}

func (h *Handler) getAddress(w http.ResponseWriter, r *http.Request) {
	sess := h.Sessions.Peek(r)
	h.writeJSON(w, http.StatusOK, newAddressResponse(sess.CEP(), sess.Lookup.Snapshot()))
}

// startAddress kicks off a lookup that outlives the request; clients poll
// GET /api/address for the outcome.
func (h *Handler) startAddress(w http.ResponseWriter, r *http.Request) {
	var req addressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	sess := h.Sessions.Attach(w, r)
	sess.SetCEP(req.CEP)
	if !sess.Lookup.Start(context.WithoutCancel(r.Context()), req.CEP) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeJSON(w, http.StatusAccepted, newAddressResponse(req.CEP, sess.Lookup.Snapshot()))
}

type productResponse struct {
	Product       catalog.Product `json:"product"`
	DefaultImage  string          `json:"defaultImage"`
	SelectedSize  string          `json:"selectedSize"`
	SelectedColor string          `json:"selectedColor"`
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	sess := h.Sessions.Peek(r)
	product := catalog.Demo()
	h.writeJSON(w, http.StatusOK, productResponse{
		Product:       product,
		DefaultImage:  product.DefaultImage(),
		SelectedSize:  h.selection(r.Context(), sess, KeySelectedSize),
		SelectedColor: h.selection(r.Context(), sess, KeySelectedColor),
	})
}

// writeJSON commits status before encoding, so an encode failure can only
// be logged.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.Debug("json response not written", zap.Int("status", status), zap.Error(err))
	}
}
