package pod

import (
	"context"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/lakota-db/lakota/lkerr"
)

// BadgerPOD backs a Pod with an embedded dgraph-io/badger/v4 LSM store,
// grounded on the teacher's internal/keyValStore: badger.DefaultOptions
// with a silenced logger, transactional Get/Set, and a prefix iterator
// with PrefetchValues disabled for listing.
type BadgerPOD struct {
	db     *badger.DB
	prefix string
	owns   bool // true for the root pod that opened db; only it closes it
}

// OpenBadger opens (creating if absent) a badger store at path.
func OpenBadger(path string) (*BadgerPOD, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: open badger at %s: %v", lkerr.ErrPodIO, path, err)
	}
	return &BadgerPOD{db: db, owns: true}, nil
}

// Close releases the underlying badger.DB. Only meaningful on the pod
// returned by OpenBadger, not on a Sub()-derived view.
func (p *BadgerPOD) Close() error {
	if !p.owns {
		return nil
	}
	return p.db.Close()
}

func (p *BadgerPOD) key(k string) []byte { return []byte(join(p.prefix, k)) }

func (p *BadgerPOD) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(p.key(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, notFound(key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", lkerr.ErrPodIO, key, err)
	}
	return out, nil
}

func (p *BadgerPOD) Put(ctx context.Context, key string, data []byte) error {
	err := withRetry(ctx, isTransientBadgerErr, func() error {
		return p.db.Update(func(txn *badger.Txn) error {
			return txn.Set(p.key(key), data)
		})
	})
	if err != nil {
		return fmt.Errorf("%w: put %s: %v", lkerr.ErrPodIO, key, err)
	}
	return nil
}

// isTransientBadgerErr reports whether a failed Update is worth retrying:
// badger.ErrConflict means another transaction touched an overlapping key
// range and the whole update should just be replayed.
func isTransientBadgerErr(err error) bool {
	return err == badger.ErrConflict
}

func (p *BadgerPOD) Delete(_ context.Context, key string) error {
	err := p.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(p.key(key))
	})
	if err != nil {
		return fmt.Errorf("%w: delete %s: %v", lkerr.ErrPodIO, key, err)
	}
	return nil
}

func (p *BadgerPOD) List(_ context.Context, prefix string) ([]string, error) {
	full := string(p.key(prefix))
	seekPrefix := full
	if seekPrefix != "" {
		seekPrefix += "/"
	}
	seen := make(map[string]struct{})
	err := p.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek([]byte(seekPrefix)); it.ValidForPrefix([]byte(seekPrefix)); it.Next() {
			k := string(it.Item().Key())
			rest := strings.TrimPrefix(k, seekPrefix)
			if i := strings.IndexByte(rest, '/'); i >= 0 {
				rest = rest[:i]
			}
			if rest != "" {
				seen[rest] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", lkerr.ErrPodIO, prefix, err)
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	return sortedCopy(out), nil
}

func (p *BadgerPOD) Walk(_ context.Context, prefix string) ([]string, error) {
	full := string(p.key(prefix))
	seekPrefix := full
	if seekPrefix != "" {
		seekPrefix += "/"
	}
	var out []string
	err := p.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek([]byte(seekPrefix)); it.ValidForPrefix([]byte(seekPrefix)); it.Next() {
			k := string(it.Item().Key())
			out = append(out, strings.TrimPrefix(k, seekPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walk %s: %v", lkerr.ErrPodIO, prefix, err)
	}
	return sortedCopy(out), nil
}

func (p *BadgerPOD) Move(ctx context.Context, from, to string) error {
	data, err := p.Get(ctx, from)
	if err != nil {
		return err
	}
	if err := p.Put(ctx, to, data); err != nil {
		return err
	}
	return p.Delete(ctx, from)
}

func (p *BadgerPOD) Sub(name string) Pod {
	return &BadgerPOD{db: p.db, prefix: join(p.prefix, name)}
}
