package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/planvista/planvista-backend/internal/imagecodec"
	"github.com/planvista/planvista-backend/internal/projects/domain"
	"github.com/planvista/planvista-backend/internal/storage/kv"
)

const (
	// PrivateKeyPrefix namespaces per-user records: planvista:project:{owner}:{id}
	PrivateKeyPrefix = "planvista:project:"
	// PublicKeyPrefix namespaces shared records: planvista:public:{owner}_{id}.
	// Legacy deployments wrote planvista:public:{id}; reads tolerate both.
	PublicKeyPrefix = "planvista:public:"

	thumbMaxEdge = 512
)

// BlobStore hosts image bytes and returns durable URLs.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// ProjectRepository is the single source of truth for project CRUD and
// visibility state across the private and public KV namespaces.
type ProjectRepository struct {
	kv   *kv.Store
	blob BlobStore
	log  *logrus.Logger
}

func NewProjectRepository(store *kv.Store, blob BlobStore, log *logrus.Logger) *ProjectRepository {
	return &ProjectRepository{kv: store, blob: blob, log: log}
}

// List returns the caller's private projects plus every public project,
// sorted by timestamp descending. Order of equal timestamps is unspecified.
// A record that fails to load is logged and skipped rather than failing the
// whole listing.
func (r *ProjectRepository) List(ctx context.Context, ownerID string) ([]domain.Project, error) {
	out := make([]domain.Project, 0, 16)

	if ownerID != "" {
		keys, err := r.kv.ScanPrefix(ctx, PrivateKeyPrefix+ownerID+":")
		if err != nil {
			return nil, fmt.Errorf("list private projects: %w", err)
		}
		for _, key := range keys {
			p, err := r.load(ctx, key)
			if err != nil {
				r.log.WithError(err).WithField("key", key).Warn("skipping unreadable private project")
				continue
			}
			p.IsPublic = false
			out = append(out, *p)
		}
	}

	publicKeys, err := r.kv.ScanPrefix(ctx, PublicKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list public projects: %w", err)
	}
	for _, key := range publicKeys {
		p, err := r.load(ctx, key)
		if err != nil {
			r.log.WithError(err).WithField("key", key).Warn("skipping unreadable public project")
			continue
		}
		p.IsPublic = true
		out = append(out, *p)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})

	return out, nil
}

// GetByID fetches one project. Private scope reads the caller's namespace.
// Public scope reads {owner}_{id} directly when the owner is known and falls
// back to scanning every public entry otherwise. The scan is O(n); the
// public corpus is a gallery, not a database.
func (r *ProjectRepository) GetByID(ctx context.Context, id string, scope domain.Visibility, ownerID string) (*domain.Project, error) {
	if id == "" {
		return nil, domain.ErrInvalidProject
	}

	if scope == domain.VisibilityPrivate {
		if ownerID == "" {
			return nil, domain.ErrNotFound
		}
		p, err := r.load(ctx, privateKey(ownerID, id))
		if errors.Is(err, kv.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		p.IsPublic = false
		return p, nil
	}

	if ownerID != "" {
		p, err := r.load(ctx, publicKey(ownerID, id))
		if err == nil {
			p.IsPublic = true
			return p, nil
		}
		if !errors.Is(err, kv.ErrNotFound) {
			return nil, err
		}
		// fall through to the scan; the record may predate owner-qualified keys
	}

	p, _, err := r.findPublicByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	p.IsPublic = true
	return p, nil
}

// Save persists the project into the namespace matching visibility and
// removes it from the other one. Sharing an id that another owner already
// shares fails with ErrOwnershipConflict before anything is written, blobs
// included. Inline images are hosted after that check; a project whose
// source image cannot be resolved to a durable reference is rejected.
func (r *ProjectRepository) Save(ctx context.Context, p *domain.Project, visibility domain.Visibility, ownerID, displayName string) (*domain.Project, error) {
	if p == nil || p.ID == "" {
		return nil, domain.ErrInvalidProject
	}
	if ownerID == "" {
		return nil, fmt.Errorf("owner id required")
	}

	rec := *p

	// Ownership is checked before hosting anything so a rejected share
	// leaves no trace. Every match for the id is inspected: a legacy
	// id-only record with no owner must not mask a conflicting
	// owner-qualified one.
	var legacyTwin string
	if visibility == domain.VisibilityPublic {
		matches, err := r.publicMatches(ctx, rec.ID)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if m.project.OwnerID != "" && m.project.OwnerID != ownerID {
				return nil, domain.ErrOwnershipConflict
			}
			if m.key == PublicKeyPrefix+rec.ID {
				legacyTwin = m.key
			}
		}
	}

	if err := r.hostImages(ctx, &rec, ownerID); err != nil {
		return nil, err
	}

	now := time.Now()
	if rec.Timestamp == 0 {
		rec.Timestamp = now.UnixMilli()
	}
	rec.UpdatedAt = now.UTC().Format(time.RFC3339)

	if visibility == domain.VisibilityPublic {
		rec.IsPublic = true
		rec.OwnerID = ownerID
		rec.SharedBy = displayName
		rec.SharedAt = now.UTC().Format(time.RFC3339)

		if err := r.store(ctx, publicKey(ownerID, rec.ID), &rec); err != nil {
			return nil, err
		}
		// Two-step transition: the record is briefly visible in both
		// namespaces if we crash here. The maintenance sweeper resolves it.
		if err := r.kv.Delete(ctx, privateKey(ownerID, rec.ID)); err != nil {
			r.log.WithError(err).WithField("id", rec.ID).Warn("failed to remove private record after share")
		}
		// Re-sharing a record migrated from the id-only key layout must
		// not leave the gallery listing it twice.
		if legacyTwin != "" {
			if err := r.kv.Delete(ctx, legacyTwin); err != nil {
				r.log.WithError(err).WithField("key", legacyTwin).Warn("failed to remove legacy public record after share")
			}
		}
		return &rec, nil
	}

	rec.IsPublic = false
	rec.OwnerID = ""
	rec.SharedBy = ""
	rec.SharedAt = ""

	if err := r.store(ctx, privateKey(ownerID, rec.ID), &rec); err != nil {
		return nil, err
	}
	if err := r.kv.Delete(ctx, publicKey(ownerID, rec.ID), PublicKeyPrefix+rec.ID); err != nil {
		r.log.WithError(err).WithField("id", rec.ID).Warn("failed to remove public record after unshare")
	}
	return &rec, nil
}

// Share and Unshare are the two visibility transitions.
func (r *ProjectRepository) Share(ctx context.Context, p *domain.Project, ownerID, displayName string) (*domain.Project, error) {
	return r.Save(ctx, p, domain.VisibilityPublic, ownerID, displayName)
}

func (r *ProjectRepository) Unshare(ctx context.Context, p *domain.Project, ownerID string) (*domain.Project, error) {
	return r.Save(ctx, p, domain.VisibilityPrivate, ownerID, "")
}

// Delete removes the caller's private record. Hosted blobs are removed
// best-effort; a dangling object is cheaper than a failed delete.
func (r *ProjectRepository) Delete(ctx context.Context, id, ownerID string) error {
	if id == "" || ownerID == "" {
		return domain.ErrNotFound
	}

	key := privateKey(ownerID, id)
	p, err := r.load(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}

	if err := r.kv.Delete(ctx, key); err != nil {
		return err
	}

	r.deleteBlobs(ctx, p)
	return nil
}

// Clear wipes everything the caller owns: their whole private namespace plus
// the public records they shared. Returns the private and public counts.
func (r *ProjectRepository) Clear(ctx context.Context, ownerID string) (int, int, error) {
	if ownerID == "" {
		return 0, 0, fmt.Errorf("owner id required")
	}

	privKeys, err := r.kv.ScanPrefix(ctx, PrivateKeyPrefix+ownerID+":")
	if err != nil {
		return 0, 0, fmt.Errorf("clear private projects: %w", err)
	}
	cleared := 0
	for _, key := range privKeys {
		if p, err := r.load(ctx, key); err == nil {
			r.deleteBlobs(ctx, p)
		}
		if err := r.kv.Delete(ctx, key); err != nil {
			r.log.WithError(err).WithField("key", key).Warn("clear: failed to delete private record")
			continue
		}
		cleared++
	}

	pubKeys, err := r.kv.ScanPrefix(ctx, PublicKeyPrefix)
	if err != nil {
		return cleared, 0, fmt.Errorf("clear public projects: %w", err)
	}
	clearedPublic := 0
	for _, key := range pubKeys {
		p, err := r.load(ctx, key)
		if err != nil || p.OwnerID != ownerID {
			continue
		}
		r.deleteBlobs(ctx, p)
		if err := r.kv.Delete(ctx, key); err != nil {
			r.log.WithError(err).WithField("key", key).Warn("clear: failed to delete public record")
			continue
		}
		clearedPublic++
	}
	return cleared, clearedPublic, nil
}

func (r *ProjectRepository) deleteBlobs(ctx context.Context, p *domain.Project) {
	for _, objKey := range []string{p.SourcePath, p.RenderedPath, p.ThumbPath} {
		if objKey == "" {
			continue
		}
		if err := r.blob.Delete(ctx, objKey); err != nil {
			r.log.WithError(err).WithField("key", objKey).Warn("failed to delete project blob")
		}
	}
}

// hostImages uploads inline images to the blob store so the persisted record
// only carries durable URLs. Re-saving an already-hosted URL passes through.
// Object keys are owner-qualified: project ids are only unique per owner, so
// an id-keyed object would let one user's save overwrite another's image.
func (r *ProjectRepository) hostImages(ctx context.Context, p *domain.Project, ownerID string) error {
	switch {
	case imagecodec.IsDataURL(p.SourceImage):
		img, err := imagecodec.ParseDataURL(p.SourceImage)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidProject, err)
		}
		png, err := imagecodec.NormalizePNG(img.Bytes)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidProject, err)
		}
		key := blobKey(ownerID, p.ID, "source.png")
		url, err := r.blob.Put(ctx, key, "image/png", png)
		if err != nil {
			return fmt.Errorf("host source image: %w", err)
		}
		p.SourceImage = url
		p.SourcePath = key
	case imagecodec.IsHostedURL(p.SourceImage):
		// no-op passthrough
	case p.SourcePath != "":
		p.SourceImage = r.blob.URL(p.SourcePath)
	default:
		return domain.ErrInvalidProject
	}

	if imagecodec.IsDataURL(p.RenderedImage) {
		img, err := imagecodec.ParseDataURL(p.RenderedImage)
		if err != nil {
			r.log.WithError(err).WithField("id", p.ID).Warn("dropping unreadable rendered image")
			p.RenderedImage = ""
			return nil
		}
		png, err := imagecodec.NormalizePNG(img.Bytes)
		if err != nil {
			r.log.WithError(err).WithField("id", p.ID).Warn("dropping undecodable rendered image")
			p.RenderedImage = ""
			return nil
		}
		key := blobKey(ownerID, p.ID, "rendered.png")
		url, err := r.blob.Put(ctx, key, "image/png", png)
		if err != nil {
			// The render can be regenerated; keep the save alive.
			r.log.WithError(err).WithField("id", p.ID).Warn("failed to host rendered image")
			p.RenderedImage = ""
			return nil
		}
		p.RenderedImage = url
		p.RenderedPath = key

		if thumb, err := imagecodec.Thumbnail(png, thumbMaxEdge); err == nil {
			thumbKey := blobKey(ownerID, p.ID, "thumb.png")
			if _, err := r.blob.Put(ctx, thumbKey, "image/png", thumb); err == nil {
				p.ThumbPath = thumbKey
			}
		}
	} else if p.RenderedImage == "" && p.RenderedPath != "" {
		p.RenderedImage = r.blob.URL(p.RenderedPath)
	}

	return nil
}

type publicMatch struct {
	project *domain.Project
	key     string
}

// publicMatches scans the public namespace for every record with the given
// project id regardless of owner. More than one match means a legacy id-only
// record coexists with an owner-qualified one.
func (r *ProjectRepository) publicMatches(ctx context.Context, id string) ([]publicMatch, error) {
	keys, err := r.kv.ScanPrefix(ctx, PublicKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("scan public projects: %w", err)
	}
	var out []publicMatch
	for _, key := range keys {
		p, err := r.load(ctx, key)
		if err != nil {
			r.log.WithError(err).WithField("key", key).Warn("skipping unreadable public project")
			continue
		}
		if p.ID == id {
			out = append(out, publicMatch{project: p, key: key})
		}
	}
	return out, nil
}

func (r *ProjectRepository) findPublicByID(ctx context.Context, id string) (*domain.Project, string, error) {
	matches, err := r.publicMatches(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if len(matches) == 0 {
		return nil, "", nil
	}
	return matches[0].project, matches[0].key, nil
}

func (r *ProjectRepository) load(ctx context.Context, key string) (*domain.Project, error) {
	data, err := r.kv.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var p domain.Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshal project %s: %w", key, err)
	}
	if p.ID == "" {
		p.ID = idFromKey(key)
	}
	return &p, nil
}

func (r *ProjectRepository) store(ctx context.Context, key string, p *domain.Project) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal project %s: %w", p.ID, err)
	}
	return r.kv.Set(ctx, key, data)
}

func privateKey(ownerID, id string) string {
	return PrivateKeyPrefix + ownerID + ":" + id
}

func blobKey(ownerID, id, name string) string {
	return fmt.Sprintf("projects/%s/%s/%s", ownerID, id, name)
}

func publicKey(ownerID, id string) string {
	return PublicKeyPrefix + ownerID + "_" + id
}

// idFromKey derives the project id for records stored before ids were
// embedded in the payload.
func idFromKey(key string) string {
	switch {
	case strings.HasPrefix(key, PrivateKeyPrefix):
		rest := key[len(PrivateKeyPrefix):]
		if i := strings.LastIndex(rest, ":"); i >= 0 {
			return rest[i+1:]
		}
		return rest
	case strings.HasPrefix(key, PublicKeyPrefix):
		rest := key[len(PublicKeyPrefix):]
		if i := strings.LastIndex(rest, "_"); i >= 0 {
			return rest[i+1:]
		}
		return rest
	}
	return ""
}
