package assets

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Handler serves GET /assets/{name...} from a Store.
type Handler struct {
	Store  Store
	Logger *zap.Logger
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	name, ok := CleanName(strings.TrimPrefix(r.URL.Path, "/assets/"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	obj, err := h.Store.Get(r.Context(), name)
	if errors.Is(err, ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("asset read failed", zap.String("name", name), zap.Error(err))
		}
		http.Error(w, "asset unavailable", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeContent(w, r, name, obj.UpdatedAt, bytes.NewReader(obj.Body))
}
