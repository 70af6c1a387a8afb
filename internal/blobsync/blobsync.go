// Package blobsync implements the blob-by-blob, content-addressed,
// skip-if-present transfer primitives shared by collection and repo
// Push/Pull (spec.md §4.8), fanned out over internal/workerpool per
// spec.md §5's bounded-parallel blob I/O requirement.
package blobsync

import (
	"context"
	"fmt"

	"github.com/lakota-db/lakota/internal/workerpool"
	"github.com/lakota-db/lakota/pod"
)

// Revisions copies every key under remote not already present in local.
// Changelog revision Puts always carry a nil payload; the key's presence
// alone is the fact being replicated.
func Revisions(ctx context.Context, local, remote pod.Pod) error {
	keys, err := remote.Walk(ctx, "")
	if err != nil {
		return fmt.Errorf("blobsync: walk remote revisions: %w", err)
	}
	for _, k := range keys {
		if _, err := local.Get(ctx, k); err == nil {
			continue
		}
		data, err := remote.Get(ctx, k)
		if err != nil {
			return fmt.Errorf("blobsync: read remote revision %s: %w", k, err)
		}
		if err := local.Put(ctx, k, data); err != nil {
			return fmt.Errorf("blobsync: write local revision %s: %w", k, err)
		}
	}
	return nil
}

// Blobs copies every key in keys from remote to local using a bounded
// worker pool, skipping keys already present locally. workers <= 0 uses
// the pool's own default.
func Blobs(ctx context.Context, local, remote pod.Pod, keys map[string]bool, workers int) error {
	pool := workerpool.New(workers)
	jobs := make([]workerpool.Job, 0, len(keys))
	for key := range keys {
		k := key
		jobs = append(jobs, func(ctx context.Context) error {
			if _, err := local.Get(ctx, k); err == nil {
				return nil
			}
			data, err := remote.Get(ctx, k)
			if err != nil {
				return fmt.Errorf("blobsync: read remote blob %s: %w", k, err)
			}
			if err := local.Put(ctx, k, data); err != nil {
				return fmt.Errorf("blobsync: write local blob %s: %w", k, err)
			}
			return nil
		})
	}
	return pool.Run(ctx, jobs)
}
