package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zjrosen/implindex/internal/domain/implementors"
)

// setupTestRepo creates a new DB and returns its snapshot repository.
// The DB is closed when the test completes.
func setupTestRepo(t *testing.T) *SnapshotRepository {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "Failed to create test database")
	t.Cleanup(func() { db.Close() })
	return db.SnapshotRepository()
}

func module(t *testing.T, name string, pairs ...string) implementors.ModuleIndex {
	t.Helper()
	var records []implementors.Record
	for i := 0; i+1 < len(pairs); i += 2 {
		r, err := implementors.NewRecordBuilder(pairs[i], "").Implementor(pairs[i+1], "").Build()
		require.NoError(t, err)
		records = append(records, r)
	}
	idx, err := implementors.NewModuleIndex(name, records)
	require.NoError(t, err)
	return idx
}

func TestSnapshotRepository_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)
	modules := []implementors.ModuleIndex{
		module(t, "crateB", "Debug", "Foo", "Clone", "Foo"),
		module(t, "crateA"),
	}

	summary, err := repo.Save(ctx, "build-1", modules)
	require.NoError(t, err)
	require.Equal(t, "build-1", summary.BuildID)
	require.Equal(t, 2, summary.ModuleCount)
	require.WithinDuration(t, time.Now(), summary.CreatedAt, 2*time.Second)

	got, err := repo.Load(ctx, "build-1")
	require.NoError(t, err)
	require.Equal(t, summary, got.SnapshotSummary)
	require.Len(t, got.Modules, 2)
	for i := range modules {
		require.True(t, modules[i].Equal(got.Modules[i]), "module %d differs", i)
	}
}

func TestSnapshotRepository_SaveGeneratesBuildID(t *testing.T) {
	repo := setupTestRepo(t)

	summary, err := repo.Save(context.Background(), "", nil)
	require.NoError(t, err)
	_, err = uuid.Parse(summary.BuildID)
	require.NoError(t, err, "generated build id should be a uuid")
	require.Zero(t, summary.ModuleCount)
}

func TestSnapshotRepository_DuplicateBuildID(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)

	_, err := repo.Save(ctx, "b", []implementors.ModuleIndex{module(t, "crateA")})
	require.NoError(t, err)

	_, err = repo.Save(ctx, "b", nil)
	require.ErrorIs(t, err, ErrDuplicateBuildID)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestSnapshotRepository_LatestAndList(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)

	_, err := repo.Latest(ctx)
	require.ErrorIs(t, err, ErrSnapshotNotFound)

	clock := time.Unix(1_700_000_000, 0)
	repo.now = func() time.Time { return clock }
	_, err = repo.Save(ctx, "old", []implementors.ModuleIndex{module(t, "crateA")})
	require.NoError(t, err)

	clock = clock.Add(time.Minute)
	_, err = repo.Save(ctx, "new", []implementors.ModuleIndex{module(t, "crateA"), module(t, "crateB")})
	require.NoError(t, err)

	latest, err := repo.Latest(ctx)
	require.NoError(t, err)
	require.Equal(t, "new", latest.BuildID)
	require.Len(t, latest.Modules, 2)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "new", list[0].BuildID)
	require.Equal(t, "old", list[1].BuildID)
	require.Equal(t, 1, list[1].ModuleCount)
}

func TestSnapshotRepository_LoadMissing(t *testing.T) {
	repo := setupTestRepo(t)

	_, err := repo.Load(context.Background(), "nope")
	require.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestSnapshotRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)

	_, err := repo.Save(ctx, "b", []implementors.ModuleIndex{module(t, "crateA", "Debug", "A")})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, "b"))
	_, err = repo.Load(ctx, "b")
	require.ErrorIs(t, err, ErrSnapshotNotFound)

	var orphans int
	require.NoError(t, repo.db.QueryRow("SELECT COUNT(*) FROM snapshot_modules").Scan(&orphans))
	require.Zero(t, orphans, "modules should cascade with their snapshot")

	require.ErrorIs(t, repo.Delete(ctx, "b"), ErrSnapshotNotFound)
}

func TestSnapshotRepository_Property_RoundTripPreservesOrder(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	rapid.Check(t, func(rt *rapid.T) {
		names := rapid.SliceOfNDistinct(rapid.StringMatching(`[a-z]{1,8}`), 0, 6, rapid.ID[string]).Draw(rt, "names")
		modules := make([]implementors.ModuleIndex, len(names))
		for i, name := range names {
			n := rapid.IntRange(0, 3).Draw(rt, "records")
			records := make([]implementors.Record, n)
			for j := range records {
				records[j] = implementors.MustRecord(
					implementors.ItemRef{Label: rapid.StringMatching(`[A-Z][a-z]{0,5}`).Draw(rt, "iface")},
					implementors.ItemRef{Label: rapid.StringMatching(`[A-Z][a-z]{0,5}`).Draw(rt, "impl")},
					implementors.Relation{},
				)
			}
			idx, err := implementors.NewModuleIndex(name, records)
			if err != nil {
				rt.Fatalf("module: %v", err)
			}
			modules[i] = idx
		}

		summary, err := repo.Save(ctx, "", modules)
		if err != nil {
			rt.Fatalf("save: %v", err)
		}
		got, err := repo.Load(ctx, summary.BuildID)
		if err != nil {
			rt.Fatalf("load: %v", err)
		}
		if len(got.Modules) != len(modules) {
			rt.Fatalf("got %d modules, want %d", len(got.Modules), len(modules))
		}
		for i := range modules {
			if !modules[i].Equal(got.Modules[i]) {
				rt.Fatalf("module %d differs after round trip", i)
			}
		}
	})
}
