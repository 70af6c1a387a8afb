package pod

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemPOD is an in-memory Pod, grounded on the original implementation's
// pod.py MemPOD: a flat map of key to bytes guarded by a mutex, mainly used
// in tests and as the default cache-pod fast tier.
type MemPOD struct {
	mu     *sync.RWMutex
	data   map[string][]byte
	stamps map[string]time.Time
	prefix string
}

// NewMem creates an empty MemPOD.
func NewMem() *MemPOD {
	return &MemPOD{mu: &sync.RWMutex{}, data: make(map[string][]byte), stamps: make(map[string]time.Time)}
}

func (p *MemPOD) key(k string) string { return join(p.prefix, k) }

func (p *MemPOD) Get(_ context.Context, key string) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.data[p.key(key)]
	if !ok {
		return nil, notFound(key)
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (p *MemPOD) Put(_ context.Context, key string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	full := p.key(key)
	p.data[full] = cp
	p.stamps[full] = time.Now()
	return nil
}

func (p *MemPOD) Delete(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	full := p.key(key)
	delete(p.data, full)
	delete(p.stamps, full)
	return nil
}

// Stat returns the wall-clock time of the most recent Put to key.
func (p *MemPOD) Stat(_ context.Context, key string) (time.Time, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	t, ok := p.stamps[p.key(key)]
	if !ok {
		return time.Time{}, notFound(key)
	}
	return t, nil
}

func (p *MemPOD) List(_ context.Context, prefix string) ([]string, error) {
	full := p.key(prefix)
	seen := make(map[string]struct{})
	p.mu.RLock()
	defer p.mu.RUnlock()
	for k := range p.data {
		rest := strings.TrimPrefix(k, full+"/")
		if rest == k && full != "" {
			continue
		}
		if full == "" {
			rest = k
		}
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			rest = rest[:i]
		}
		if rest != "" {
			seen[rest] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	return sortedCopy(out), nil
}

func (p *MemPOD) Walk(_ context.Context, prefix string) ([]string, error) {
	full := p.key(prefix)
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []string
	for k := range p.data {
		if full == "" || strings.HasPrefix(k, full+"/") || k == full {
			out = append(out, strings.TrimPrefix(strings.TrimPrefix(k, full), "/"))
		}
	}
	return sortedCopy(out), nil
}

func (p *MemPOD) Move(ctx context.Context, from, to string) error {
	p.mu.Lock()
	v, ok := p.data[p.key(from)]
	if !ok {
		p.mu.Unlock()
		return notFound(from)
	}
	fromKey, toKey := p.key(from), p.key(to)
	p.data[toKey] = v
	p.stamps[toKey] = p.stamps[fromKey]
	delete(p.data, fromKey)
	delete(p.stamps, fromKey)
	p.mu.Unlock()
	return nil
}

func (p *MemPOD) Sub(name string) Pod {
	return &MemPOD{mu: p.mu, data: p.data, stamps: p.stamps, prefix: join(p.prefix, name)}
}
