package pod

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// FromURI builds a Pod from a URI per the scheme documented in
// SPEC_FULL.md §6:
//
//	memory://                     -> MemPOD
//	file:///absolute/path         -> FilePOD
//	./relative/path or bare path  -> FilePOD
//	s3://bucket/prefix            -> S3POD (credentials from the environment)
//	badger:///path                -> BadgerPOD
//
// Chains are written either as uri1+uri2+... (fastest first) or as a
// bracketed list form [uri1, uri2]; both build a CachePOD nest via Chain.
func FromURI(ctx context.Context, uri string) (Pod, error) {
	uri = strings.TrimSpace(uri)
	if strings.HasPrefix(uri, "[") && strings.HasSuffix(uri, "]") {
		parts := splitList(uri[1 : len(uri)-1])
		return Chain(ctx, parts)
	}
	if strings.Contains(uri, "+") && !strings.HasPrefix(uri, "s3://") {
		return Chain(ctx, strings.Split(uri, "+"))
	}
	return single(ctx, uri)
}

func splitList(s string) []string {
	raw := strings.Split(s, ",")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Chain builds a nested CachePOD from a list of URIs ordered fastest to
// slowest.
func Chain(ctx context.Context, uris []string) (Pod, error) {
	if len(uris) == 0 {
		return nil, fmt.Errorf("pod: empty chain")
	}
	pods := make([]Pod, 0, len(uris))
	for _, u := range uris {
		p, err := single(ctx, strings.TrimSpace(u))
		if err != nil {
			return nil, err
		}
		pods = append(pods, p)
	}
	slow := pods[len(pods)-1]
	for i := len(pods) - 2; i >= 0; i-- {
		slow = NewCache(pods[i], slow)
	}
	return slow, nil
}

func single(ctx context.Context, uri string) (Pod, error) {
	if uri == "" {
		return nil, fmt.Errorf("pod: empty uri")
	}
	if uri == "memory://" || uri == "memory" {
		return NewMem(), nil
	}
	if !strings.Contains(uri, "://") {
		return NewFile(uri)
	}
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("pod: parse uri %s: %w", uri, err)
	}
	switch u.Scheme {
	case "memory":
		return NewMem(), nil
	case "file":
		path := u.Path
		if path == "" {
			path = u.Opaque
		}
		return NewFile(path)
	case "badger":
		path := u.Path
		if path == "" {
			path = u.Opaque
		}
		return OpenBadger(path)
	case "s3":
		bucket := u.Host
		prefix := strings.TrimPrefix(u.Path, "/")
		return OpenS3(ctx, S3Config{
			Region: os.Getenv("AWS_REGION"),
			Bucket: bucket,
			Prefix: prefix,
			Key:    os.Getenv("AWS_ACCESS_KEY_ID"),
			Secret: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			Token:  os.Getenv("AWS_SESSION_TOKEN"),
		})
	default:
		return nil, fmt.Errorf("pod: unsupported uri scheme %q", u.Scheme)
	}
}

// FromEnv builds a Pod for uri, transparently prepending a LAKOTA_CACHE
// fast tier when that environment variable is set.
func FromEnv(ctx context.Context, uri string) (Pod, error) {
	if cache := os.Getenv("LAKOTA_CACHE"); cache != "" {
		return Chain(ctx, []string{cache, uri})
	}
	return FromURI(ctx, uri)
}
