package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/planvista/planvista-backend/internal/storage/kv"
)

// Reconcile repairs projects left in both namespaces by a crash between the
// write and delete steps of a visibility transition. The more recently
// written record keeps its namespace; the stale twin is removed. Returns the
// number of records deleted.
func (r *ProjectRepository) Reconcile(ctx context.Context) (int, error) {
	keys, err := r.kv.ScanPrefix(ctx, PublicKeyPrefix)
	if err != nil {
		return 0, fmt.Errorf("reconcile scan: %w", err)
	}

	removed := 0
	for _, pubKey := range keys {
		pub, err := r.load(ctx, pubKey)
		if err != nil {
			if !errors.Is(err, kv.ErrNotFound) {
				r.log.WithError(err).WithField("key", pubKey).Warn("reconcile: unreadable public record")
			}
			continue
		}
		if pub.OwnerID == "" || pub.ID == "" {
			continue
		}

		privKey := privateKey(pub.OwnerID, pub.ID)
		priv, err := r.load(ctx, privKey)
		if errors.Is(err, kv.ErrNotFound) {
			continue
		}
		if err != nil {
			r.log.WithError(err).WithField("key", privKey).Warn("reconcile: unreadable private record")
			continue
		}

		// Duplicated across namespaces: latest write wins.
		if writeTime(priv.UpdatedAt, priv.Timestamp).After(writeTime(pub.UpdatedAt, pub.Timestamp)) {
			if err := r.kv.Delete(ctx, pubKey); err != nil {
				r.log.WithError(err).WithField("key", pubKey).Warn("reconcile: delete failed")
				continue
			}
		} else {
			if err := r.kv.Delete(ctx, privKey); err != nil {
				r.log.WithError(err).WithField("key", privKey).Warn("reconcile: delete failed")
				continue
			}
		}
		removed++
	}
	return removed, nil
}

func writeTime(updatedAt string, timestampMs int64) time.Time {
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		return t
	}
	return time.UnixMilli(timestampMs)
}
