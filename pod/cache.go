package pod

import (
	"context"
	"errors"

	"github.com/lakota-db/lakota/lkerr"
)

// CachePOD chains a fast Pod in front of a slow one. Reads try fast first
// and, on a miss, fall through to slow and populate fast with the result.
// Writes fan out to both tiers so the slow tier remains the durable source
// of truth. List and Walk always consult slow, since fast may hold only a
// partial working set.
type CachePOD struct {
	fast, slow Pod
}

// NewCache wires fast in front of slow.
func NewCache(fast, slow Pod) *CachePOD {
	return &CachePOD{fast: fast, slow: slow}
}

func (p *CachePOD) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := p.fast.Get(ctx, key)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, lkerr.ErrPodNotFound) {
		return nil, err
	}
	data, err = p.slow.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	// Best-effort population; a failure to warm the cache must not fail
	// the read that already succeeded against slow.
	_ = p.fast.Put(ctx, key, data)
	return data, nil
}

func (p *CachePOD) Put(ctx context.Context, key string, data []byte) error {
	if err := p.slow.Put(ctx, key, data); err != nil {
		return err
	}
	return p.fast.Put(ctx, key, data)
}

func (p *CachePOD) Delete(ctx context.Context, key string) error {
	if err := p.slow.Delete(ctx, key); err != nil {
		return err
	}
	return p.fast.Delete(ctx, key)
}

func (p *CachePOD) List(ctx context.Context, prefix string) ([]string, error) {
	return p.slow.List(ctx, prefix)
}

func (p *CachePOD) Walk(ctx context.Context, prefix string) ([]string, error) {
	return p.slow.Walk(ctx, prefix)
}

func (p *CachePOD) Move(ctx context.Context, from, to string) error {
	if err := p.slow.Move(ctx, from, to); err != nil {
		return err
	}
	_ = p.fast.Move(ctx, from, to)
	return nil
}

func (p *CachePOD) Sub(name string) Pod {
	return &CachePOD{fast: p.fast.Sub(name), slow: p.slow.Sub(name)}
}
