// Package txn runs work inside transactions and defers side effects
// until the enclosing transaction commits.
package txn

import (
	"context"
	"log/slog"
	"sync"
)

// Hook is a side effect registered to run after commit.
type Hook func(ctx context.Context) error

// Manager runs functions inside a transaction.
type Manager interface {
	// InTx runs fn in a transaction. When ctx already carries a transaction,
	// fn joins it and its hooks run when the outermost transaction commits.
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type hooksKey struct{}

type hooks struct {
	mu   sync.Mutex
	fns  []Hook
	undo []func(ctx context.Context)
}

func (h *hooks) add(fn Hook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fns = append(h.fns, fn)
}

func (h *hooks) addUndo(fn func(ctx context.Context)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.undo = append(h.undo, fn)
}

// drain returns the commit hooks and forgets the rollback hooks.
func (h *hooks) drain() []Hook {
	h.mu.Lock()
	defer h.mu.Unlock()
	fns := h.fns
	h.fns = nil
	h.undo = nil
	return fns
}

// rollback drops the commit hooks and runs the rollback hooks, newest first.
func (h *hooks) rollback(ctx context.Context) {
	h.mu.Lock()
	undo := h.undo
	h.fns = nil
	h.undo = nil
	h.mu.Unlock()

	for i := len(undo) - 1; i >= 0; i-- {
		undo[i](ctx)
	}
}

// OnCommit registers fn to run after the transaction carried by ctx commits.
// Outside a transaction fn runs immediately. Hook errors are logged and
// never returned to the transaction owner.
func OnCommit(ctx context.Context, fn Hook) {
	if h, ok := ctx.Value(hooksKey{}).(*hooks); ok {
		h.add(fn)
		return
	}
	runHook(ctx, fn)
}

// OnRollback registers fn to run when the transaction carried by ctx rolls
// back, including when its function panics. Rollback hooks run in reverse
// registration order. Outside a transaction fn is never called.
func OnRollback(ctx context.Context, fn func(ctx context.Context)) {
	if h, ok := ctx.Value(hooksKey{}).(*hooks); ok {
		h.addUndo(fn)
	}
}

// InTransaction reports whether ctx carries a transaction.
func InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(hooksKey{}).(*hooks)
	return ok
}

// withHooks returns a context carrying a fresh hook list.
func withHooks(ctx context.Context) (context.Context, *hooks) {
	h := &hooks{}
	return context.WithValue(ctx, hooksKey{}, h), h
}

// runHooks runs hooks in registration order against the parent context,
// so hooks never observe the finished transaction.
func runHooks(ctx context.Context, h *hooks) {
	for _, fn := range h.drain() {
		runHook(ctx, fn)
	}
}

func runHook(ctx context.Context, fn Hook) {
	if err := fn(ctx); err != nil {
		slog.ErrorContext(ctx, "On-commit hook failed", "error", err)
	}
}

// NewMemoryManager returns a Manager without a database. Commit hooks are
// still deferred until fn returns successfully. When fn fails or panics
// the rollback hooks registered by the in-memory store undo its writes.
func NewMemoryManager() Manager {
	return &memoryManager{}
}

type memoryManager struct{}

func (*memoryManager) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if InTransaction(ctx) {
		return fn(ctx)
	}

	txCtx, h := withHooks(ctx)
	committed := false
	defer func() {
		if !committed {
			h.rollback(ctx)
		}
	}()

	if err := fn(txCtx); err != nil {
		return err
	}
	committed = true
	runHooks(ctx, h)
	return nil
}
