package cep

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// CodeLength is the only input length that triggers a lookup.
const CodeLength = 8

const (
	MessageNotFound    = "CEP não encontrado"
	MessageLookupError = "Erro ao consultar o CEP"
)

// Fetcher resolves one postal code. *Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, code string) (Address, error)
}

// Result is the observable state of a Lookup. An empty Error means no
// error has been recorded.
type Result struct {
	Address string
	Error   string
	Loading bool
}

// Lookup holds the address state for one visitor. Every Resolve supersedes
// the previous one: the older request is cancelled and whatever it returns
// afterwards is discarded.
type Lookup struct {
	fetcher Fetcher
	logger  *zap.Logger

	mu     sync.Mutex
	result Result
	gen    uint64
	cancel context.CancelFunc
}

func NewLookup(fetcher Fetcher, logger *zap.Logger) *Lookup {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lookup{fetcher: fetcher, logger: logger}
}

func FormatAddress(a Address) string {
	return fmt.Sprintf("%s, %s, %s - %s", a.Street, a.Neighborhood, a.City, a.State)
}

// Valid reports whether code has the length that triggers a lookup.
func Valid(code string) bool {
	return len(code) == CodeLength
}

// Resolve looks code up and records the outcome. Codes that are not exactly
// eight bytes long are ignored and Resolve returns false without touching
// state. Otherwise it blocks until the request settles and returns true.
func (l *Lookup) Resolve(ctx context.Context, code string) bool {
	if !Valid(code) {
		return false
	}
	ctx, cancel := context.WithCancel(ctx)
	gen := l.begin(cancel)
	l.finish(ctx, cancel, gen, code)
	return true
}

// Start is Resolve without waiting: Loading is already set when it returns
// and the request completes in the background.
func (l *Lookup) Start(ctx context.Context, code string) bool {
	if !Valid(code) {
		return false
	}
	ctx, cancel := context.WithCancel(ctx)
	gen := l.begin(cancel)
	go l.finish(ctx, cancel, gen, code)
	return true
}

func (l *Lookup) finish(ctx context.Context, cancel context.CancelFunc, gen uint64, code string) {
	defer cancel()
	addr, err := l.fetcher.Fetch(ctx, code)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		l.logger.Debug("discarding superseded cep lookup", zap.String("cep", code))
		return
	}
	switch {
	case err != nil:
		l.logger.Warn("cep lookup failed", zap.String("cep", code), zap.Error(err))
		l.result.Address = MessageLookupError
		l.result.Error = MessageLookupError
	case bool(addr.NotFound):
		l.result.Address = MessageNotFound
	default:
		l.result.Address = FormatAddress(addr)
		l.result.Error = ""
	}
	l.result.Loading = false
	l.cancel = nil
}

func (l *Lookup) begin(cancel context.CancelFunc) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	l.cancel = cancel
	l.result.Loading = true
	return l.gen
}

func (l *Lookup) Snapshot() Result {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.result
}
