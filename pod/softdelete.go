package pod

import (
	"context"
	"path"
	"strconv"
	"strings"
	"time"
)

// softDeleteMarker separates a soft-deleted key's original name from the
// unix-nanosecond timestamp it was renamed at (spec.md §10's supplemented
// gc: an unreachable blob is first renamed rather than removed outright,
// giving a reader racing a concurrent gc pass a grace window to still find
// it, matching the original implementation's commit.py:Segment._read
// fallback onto "filename.<suffix>").
const softDeleteMarker = ".deleted."

// SoftDelete renames key to a marked name recording at, rather than
// deleting it outright.
func SoftDelete(ctx context.Context, p Pod, key string, at time.Time) error {
	return p.Move(ctx, key, softDeleteName(key, at))
}

func softDeleteName(key string, at time.Time) string {
	return key + softDeleteMarker + strconv.FormatInt(at.UnixNano(), 10)
}

// ParseSoftDeleted splits a soft-deleted name into its original key and the
// time it was soft-deleted. ok is false if name doesn't carry the marker.
func ParseSoftDeleted(name string) (key string, at time.Time, ok bool) {
	i := strings.LastIndex(name, softDeleteMarker)
	if i < 0 {
		return "", time.Time{}, false
	}
	ns, err := strconv.ParseInt(name[i+len(softDeleteMarker):], 10, 64)
	if err != nil {
		return "", time.Time{}, false
	}
	return name[:i], time.Unix(0, ns), true
}

// GetTolerant reads key, falling back to a soft-deleted rename of it when
// the bare key is absent: a concurrent gc pass may have renamed the blob
// out from under a reader that resolved it from an older, still-valid
// view.
func GetTolerant(ctx context.Context, p Pod, key string) ([]byte, error) {
	data, err := p.Get(ctx, key)
	if err == nil {
		return data, nil
	}
	dir := path.Dir(key)
	if dir == "." {
		dir = ""
	}
	base := path.Base(key)
	siblings, listErr := p.List(ctx, dir)
	if listErr != nil {
		return nil, err
	}
	for _, name := range siblings {
		orig, _, ok := ParseSoftDeleted(name)
		if ok && orig == base {
			return p.Get(ctx, join(dir, name))
		}
	}
	return nil, err
}
