package unit

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planvista/planvista-backend/internal/projects/domain"
	"github.com/planvista/planvista-backend/internal/projects/repository"
	"github.com/planvista/planvista-backend/internal/storage/kv"
)

func TestProjectRepository_SavePrivate(t *testing.T) {
	repo, _, blob := setupProjectRepo(t)
	ctx := context.Background()

	t.Run("hosts inline source image", func(t *testing.T) {
		p := &domain.Project{ID: projectID(1), Name: "Apartment", SourceImage: pngDataURL(t, 8, 8)}

		saved, err := repo.Save(ctx, p, domain.VisibilityPrivate, "alice", "")
		require.NoError(t, err)

		assert.Equal(t, "https://blobs.test/projects/alice/"+p.ID+"/source.png", saved.SourceImage)
		assert.Equal(t, "projects/alice/"+p.ID+"/source.png", saved.SourcePath)
		assert.False(t, saved.IsPublic)
		assert.NotZero(t, saved.Timestamp)
		assert.NotEmpty(t, saved.UpdatedAt)

		_, ok := blob.get(saved.SourcePath)
		assert.True(t, ok, "source bytes should be in the blob store")

		got, err := repo.GetByID(ctx, p.ID, domain.VisibilityPrivate, "alice")
		require.NoError(t, err)
		assert.Equal(t, saved.SourceImage, got.SourceImage)
		assert.Empty(t, got.RenderedImage)
	})

	t.Run("hosted url passes through untouched", func(t *testing.T) {
		url := "https://elsewhere.example/plan.png"
		p := &domain.Project{ID: projectID(2), SourceImage: url}

		saved, err := repo.Save(ctx, p, domain.VisibilityPrivate, "alice", "")
		require.NoError(t, err)
		assert.Equal(t, url, saved.SourceImage)
		assert.Empty(t, saved.SourcePath)
	})

	t.Run("fails without a resolvable source image", func(t *testing.T) {
		_, err := repo.Save(ctx, &domain.Project{ID: projectID(3)}, domain.VisibilityPrivate, "alice", "")
		assert.ErrorIs(t, err, domain.ErrInvalidProject)

		_, err = repo.Save(ctx, &domain.Project{SourceImage: pngDataURL(t, 4, 4)}, domain.VisibilityPrivate, "alice", "")
		assert.ErrorIs(t, err, domain.ErrInvalidProject)
	})
}

func TestProjectRepository_ShareUnshare(t *testing.T) {
	repo, _, _ := setupProjectRepo(t)
	ctx := context.Background()

	id := projectID(10)
	p := &domain.Project{ID: id, Name: "Loft", SourceImage: pngDataURL(t, 8, 8)}

	_, err := repo.Save(ctx, p, domain.VisibilityPrivate, "alice", "")
	require.NoError(t, err)

	t.Run("share moves the record to the public namespace", func(t *testing.T) {
		shared, err := repo.Share(ctx, p, "alice", "Alice")
		require.NoError(t, err)

		assert.True(t, shared.IsPublic)
		assert.Equal(t, "alice", shared.OwnerID)
		assert.Equal(t, "Alice", shared.SharedBy)
		assert.NotEmpty(t, shared.SharedAt)

		pub, err := repo.GetByID(ctx, id, domain.VisibilityPublic, "alice")
		require.NoError(t, err)
		assert.True(t, pub.IsPublic)
		assert.Equal(t, "alice", pub.OwnerID)

		_, err = repo.GetByID(ctx, id, domain.VisibilityPrivate, "alice")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("public get without owner scans the namespace", func(t *testing.T) {
		pub, err := repo.GetByID(ctx, id, domain.VisibilityPublic, "")
		require.NoError(t, err)
		assert.Equal(t, id, pub.ID)
		assert.Equal(t, "alice", pub.OwnerID)
	})

	t.Run("unshare moves it back and strips attribution", func(t *testing.T) {
		priv, err := repo.Unshare(ctx, p, "alice")
		require.NoError(t, err)

		assert.False(t, priv.IsPublic)
		assert.Empty(t, priv.OwnerID)
		assert.Empty(t, priv.SharedBy)
		assert.Empty(t, priv.SharedAt)

		_, err = repo.GetByID(ctx, id, domain.VisibilityPublic, "alice")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		back, err := repo.GetByID(ctx, id, domain.VisibilityPrivate, "alice")
		require.NoError(t, err)
		assert.Equal(t, id, back.ID)
	})
}

func TestProjectRepository_OwnershipConflict(t *testing.T) {
	repo, _, _ := setupProjectRepo(t)
	ctx := context.Background()

	id := projectID(20)

	// Bob shares the id first.
	_, err := repo.Save(ctx, &domain.Project{ID: id, SourceImage: pngDataURL(t, 4, 4)},
		domain.VisibilityPublic, "bob", "Bob")
	require.NoError(t, err)

	// Alice has her own private project under the same id.
	alice := &domain.Project{ID: id, SourceImage: pngDataURL(t, 4, 4)}
	_, err = repo.Save(ctx, alice, domain.VisibilityPrivate, "alice", "")
	require.NoError(t, err)

	_, err = repo.Share(ctx, alice, "alice", "Alice")
	assert.ErrorIs(t, err, domain.ErrOwnershipConflict)

	// Neither namespace mutated: Bob still owns the public record, Alice
	// still has her private one.
	pub, err := repo.GetByID(ctx, id, domain.VisibilityPublic, "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", pub.OwnerID)

	priv, err := repo.GetByID(ctx, id, domain.VisibilityPrivate, "alice")
	require.NoError(t, err)
	assert.False(t, priv.IsPublic)
}

func TestProjectRepository_BlobIsolation(t *testing.T) {
	repo, _, blob := setupProjectRepo(t)
	ctx := context.Background()

	id := projectID(25)

	// Bob shares the id; his hosted image is the reference.
	_, err := repo.Save(ctx, &domain.Project{ID: id, SourceImage: pngDataURL(t, 8, 8)},
		domain.VisibilityPublic, "bob", "Bob")
	require.NoError(t, err)

	bobBytes, ok := blob.get("projects/bob/" + id + "/source.png")
	require.True(t, ok)

	t.Run("same id under another owner hosts a separate object", func(t *testing.T) {
		saved, err := repo.Save(ctx, &domain.Project{ID: id, SourceImage: pngDataURL(t, 16, 16)},
			domain.VisibilityPrivate, "alice", "")
		require.NoError(t, err)
		assert.Equal(t, "projects/alice/"+id+"/source.png", saved.SourcePath)

		got, ok := blob.get("projects/bob/" + id + "/source.png")
		require.True(t, ok)
		assert.Equal(t, bobBytes, got, "another owner's save must not touch this object")
	})

	t.Run("rejected share writes no blobs at all", func(t *testing.T) {
		aliceBytes, ok := blob.get("projects/alice/" + id + "/source.png")
		require.True(t, ok)

		_, err := repo.Share(ctx, &domain.Project{ID: id, SourceImage: pngDataURL(t, 32, 32)},
			"alice", "Alice")
		require.ErrorIs(t, err, domain.ErrOwnershipConflict)

		got, ok := blob.get("projects/alice/" + id + "/source.png")
		require.True(t, ok)
		assert.Equal(t, aliceBytes, got, "the denied share ran before any upload")

		got, ok = blob.get("projects/bob/" + id + "/source.png")
		require.True(t, ok)
		assert.Equal(t, bobBytes, got)
	})
}

func TestProjectRepository_List(t *testing.T) {
	repo, _, _ := setupProjectRepo(t)
	ctx := context.Background()

	mk := func(id string, ts int64) *domain.Project {
		return &domain.Project{ID: id, SourceImage: pngDataURL(t, 4, 4), Timestamp: ts}
	}

	_, err := repo.Save(ctx, mk("100", 100), domain.VisibilityPrivate, "alice", "")
	require.NoError(t, err)
	_, err = repo.Save(ctx, mk("300", 300), domain.VisibilityPrivate, "alice", "")
	require.NoError(t, err)
	_, err = repo.Save(ctx, mk("200", 200), domain.VisibilityPublic, "bob", "Bob")
	require.NoError(t, err)

	t.Run("merges own private with all public, newest first", func(t *testing.T) {
		items, err := repo.List(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, items, 3)

		assert.Equal(t, []string{"300", "200", "100"},
			[]string{items[0].ID, items[1].ID, items[2].ID})
		assert.False(t, items[0].IsPublic)
		assert.True(t, items[1].IsPublic)
	})

	t.Run("other users only see the public record", func(t *testing.T) {
		items, err := repo.List(ctx, "carol")
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "200", items[0].ID)
		assert.True(t, items[0].IsPublic)
	})
}

func TestProjectRepository_Delete(t *testing.T) {
	repo, _, blob := setupProjectRepo(t)
	ctx := context.Background()

	id := projectID(30)
	saved, err := repo.Save(ctx, &domain.Project{ID: id, SourceImage: pngDataURL(t, 4, 4)},
		domain.VisibilityPrivate, "alice", "")
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, id, "alice"))

	_, err = repo.GetByID(ctx, id, domain.VisibilityPrivate, "alice")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, ok := blob.get(saved.SourcePath)
	assert.False(t, ok, "blobs should be removed with the record")

	assert.ErrorIs(t, repo.Delete(ctx, id, "alice"), domain.ErrNotFound)
}

func TestProjectRepository_LegacyPublicKey(t *testing.T) {
	repo, store, _ := setupProjectRepo(t)
	ctx := context.Background()

	// A record written by an old deployment: id-only public key, no id in
	// the payload.
	legacy := domain.Project{SourceImage: "https://blobs.test/projects/9900/source.png", Timestamp: 50}
	raw, err := json.Marshal(legacy)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, repository.PublicKeyPrefix+"9900", raw))

	got, err := repo.GetByID(ctx, "9900", domain.VisibilityPublic, "")
	require.NoError(t, err)
	assert.Equal(t, "9900", got.ID, "id should be derived from the key")
	assert.True(t, got.IsPublic)
}

func TestProjectRepository_ShareOverLegacyRecord(t *testing.T) {
	repo, store, _ := setupProjectRepo(t)
	ctx := context.Background()

	id := projectID(50)
	legacy := domain.Project{ID: id, SourceImage: "https://blobs.test/old/" + id + ".png", Timestamp: 50}
	raw, err := json.Marshal(legacy)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, repository.PublicKeyPrefix+id, raw))

	// Re-sharing migrates the record to the owner-qualified key and removes
	// the id-only twin, otherwise the gallery lists it twice forever.
	_, err = repo.Save(ctx, &domain.Project{ID: id, SourceImage: pngDataURL(t, 8, 8)},
		domain.VisibilityPublic, "alice", "Alice")
	require.NoError(t, err)

	_, err = store.Get(ctx, repository.PublicKeyPrefix+id)
	assert.ErrorIs(t, err, kv.ErrNotFound, "legacy id-only key should be gone")

	items, err := repo.List(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "alice", items[0].OwnerID)
}

func TestProjectRepository_LegacyRecordDoesNotMaskConflict(t *testing.T) {
	repo, store, _ := setupProjectRepo(t)
	ctx := context.Background()

	id := projectID(60)

	// A legacy ownerless record and Bob's owner-qualified record coexist for
	// the same id. Whatever order the scan returns them in, Bob's claim must
	// be honored.
	legacy := domain.Project{ID: id, Timestamp: 10}
	raw, err := json.Marshal(legacy)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, repository.PublicKeyPrefix+id, raw))

	bobs := domain.Project{ID: id, OwnerID: "bob", SharedBy: "Bob", Timestamp: 20}
	raw, err = json.Marshal(bobs)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, repository.PublicKeyPrefix+"bob_"+id, raw))

	_, err = repo.Save(ctx, &domain.Project{ID: id, SourceImage: pngDataURL(t, 8, 8)},
		domain.VisibilityPublic, "alice", "Alice")
	assert.ErrorIs(t, err, domain.ErrOwnershipConflict)

	// Nothing mutated, the legacy twin included.
	_, err = store.Get(ctx, repository.PublicKeyPrefix+id)
	assert.NoError(t, err)
	_, err = store.Get(ctx, repository.PublicKeyPrefix+"bob_"+id)
	assert.NoError(t, err)
}

func TestProjectRepository_Clear(t *testing.T) {
	repo, _, blob := setupProjectRepo(t)
	ctx := context.Background()

	saved, err := repo.Save(ctx, &domain.Project{ID: projectID(70), SourceImage: pngDataURL(t, 4, 4)},
		domain.VisibilityPrivate, "alice", "")
	require.NoError(t, err)
	_, err = repo.Save(ctx, &domain.Project{ID: projectID(71), SourceImage: pngDataURL(t, 4, 4)},
		domain.VisibilityPrivate, "alice", "")
	require.NoError(t, err)
	_, err = repo.Save(ctx, &domain.Project{ID: projectID(72), SourceImage: pngDataURL(t, 4, 4)},
		domain.VisibilityPublic, "alice", "Alice")
	require.NoError(t, err)
	_, err = repo.Save(ctx, &domain.Project{ID: projectID(73), SourceImage: pngDataURL(t, 4, 4)},
		domain.VisibilityPublic, "bob", "Bob")
	require.NoError(t, err)

	cleared, clearedPublic, err := repo.Clear(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, cleared)
	assert.Equal(t, 1, clearedPublic)

	_, ok := blob.get(saved.SourcePath)
	assert.False(t, ok, "cleared projects lose their blobs")

	// Bob's share survives and is all that is left.
	items, err := repo.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "bob", items[0].OwnerID)
}

func TestProjectRepository_Reconcile(t *testing.T) {
	repo, store, _ := setupProjectRepo(t)
	ctx := context.Background()

	id := projectID(40)
	p := &domain.Project{ID: id, SourceImage: pngDataURL(t, 4, 4)}

	// Share, then resurrect the private record as if the delete step of the
	// transition never ran.
	shared, err := repo.Save(ctx, p, domain.VisibilityPublic, "alice", "Alice")
	require.NoError(t, err)

	stale := *shared
	stale.IsPublic = false
	stale.UpdatedAt = "2020-01-01T00:00:00Z"
	raw, err := json.Marshal(stale)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, repository.PrivateKeyPrefix+"alice:"+id, raw))

	removed, err := repo.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	// The public record was written later, so it wins.
	_, err = repo.GetByID(ctx, id, domain.VisibilityPrivate, "alice")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	pub, err := repo.GetByID(ctx, id, domain.VisibilityPublic, "alice")
	require.NoError(t, err)
	assert.Equal(t, id, pub.ID)

	t.Run("noop when namespaces are clean", func(t *testing.T) {
		removed, err := repo.Reconcile(ctx)
		require.NoError(t, err)
		assert.Zero(t, removed)
	})
}
