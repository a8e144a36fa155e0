package reconcile

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskledger/internal/store"
	"taskledger/pkg/ledger"
)

var testTime = time.Date(2026, 8, 23, 10, 4, 0, 0, time.UTC)

func newTestReconciler(t *testing.T, opts Options) (*Reconciler, *store.MemoryStore) {
	t.Helper()
	ms := store.NewMemoryStore()
	gw := store.NewGateway(ms, "team-tasks", store.NewCache(30*time.Second))
	return New(gw, opts), ms
}

func rawDocument(t *testing.T, ms *store.MemoryStore) string {
	t.Helper()
	content, _, err := ms.Read(context.Background(), "team-tasks")
	require.NoError(t, err)
	return content
}

func TestRecordTaskMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("first message creates the document and the section", func(t *testing.T) {
		r, ms := newTestReconciler(t, Options{})

		res, err := r.RecordTaskMessage(ctx, "Aoki", "・資料作成\n・会議準備", testTime)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Added)
		assert.Equal(t, 0, res.Removed)
		assert.Equal(t, 0, res.Unchanged)
		assert.NotEmpty(t, res.Version)
		assert.False(t, res.NoOp)

		doc := ledger.ParseDocument(rawDocument(t, ms))
		assert.Equal(t, []string{"資料作成", "会議準備"}, doc.CurrentTasks("Aoki"))
	})

	t.Run("update diffs against the recorded section", func(t *testing.T) {
		r, ms := newTestReconciler(t, Options{})

		_, err := r.RecordTaskMessage(ctx, "Aoki", "・資料作成\n・会議準備", testTime)
		require.NoError(t, err)

		res, err := r.RecordTaskMessage(ctx, "Aoki", "・資料作成\n・レビュー対応", testTime.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1, res.Added)
		assert.Equal(t, 1, res.Removed)
		assert.Equal(t, 1, res.Unchanged)

		doc := ledger.ParseDocument(rawDocument(t, ms))
		assert.Equal(t, []string{"資料作成", "レビュー対応"}, doc.CurrentTasks("Aoki"))

		section := doc.Section("Aoki")
		require.NotNil(t, section.Change)
		assert.Equal(t, []string{"レビュー対応"}, section.Change.Added)
		assert.Equal(t, []string{"会議準備"}, section.Change.Removed)
	})

	t.Run("identical resubmission is a byte-level no-op", func(t *testing.T) {
		r, ms := newTestReconciler(t, Options{})

		_, err := r.RecordTaskMessage(ctx, "Aoki", "・資料作成\n・会議準備", testTime)
		require.NoError(t, err)
		before := rawDocument(t, ms)

		res, err := r.RecordTaskMessage(ctx, "Aoki", "・資料作成\n・会議準備", testTime.Add(time.Hour))
		require.NoError(t, err)
		assert.True(t, res.NoOp)
		assert.Equal(t, 0, res.Added)
		assert.Equal(t, 0, res.Removed)
		assert.Equal(t, 2, res.Unchanged)

		assert.Equal(t, before, rawDocument(t, ms))
	})

	t.Run("two authors end up with one section each in submission order", func(t *testing.T) {
		r, ms := newTestReconciler(t, Options{})

		_, err := r.RecordTaskMessage(ctx, "Aoki", "・資料作成", testTime)
		require.NoError(t, err)
		_, err = r.RecordTaskMessage(ctx, "Sato", "・見積もり", testTime)
		require.NoError(t, err)

		doc := ledger.ParseDocument(rawDocument(t, ms))
		assert.Equal(t, []string{"Aoki", "Sato"}, doc.Authors())
		assert.Equal(t, []string{"資料作成"}, doc.CurrentTasks("Aoki"))
		assert.Equal(t, []string{"見積もり"}, doc.CurrentTasks("Sato"))
	})

	t.Run("updating one author leaves the other's section bytes alone", func(t *testing.T) {
		r, ms := newTestReconciler(t, Options{})

		_, err := r.RecordTaskMessage(ctx, "Aoki", "・資料作成", testTime)
		require.NoError(t, err)
		_, err = r.RecordTaskMessage(ctx, "Sato", "・見積もり", testTime)
		require.NoError(t, err)

		sectionOf := func(content, author string) string {
			start := strings.Index(content, "## "+author+"\n")
			require.GreaterOrEqual(t, start, 0)
			region := content[start:]
			if end := strings.Index(region[3:], "\n## "); end >= 0 {
				region = region[:end+3]
			}
			return strings.TrimRight(region, "\n")
		}

		before := sectionOf(rawDocument(t, ms), "Sato")
		_, err = r.RecordTaskMessage(ctx, "Aoki", "・全部やり直し", testTime.Add(time.Hour))
		require.NoError(t, err)
		after := sectionOf(rawDocument(t, ms), "Sato")

		assert.Equal(t, before, after)
	})

	t.Run("repeated updates keep exactly one section per author", func(t *testing.T) {
		r, ms := newTestReconciler(t, Options{})

		for i, text := range []string{"・a", "・a\n・b", "・b", "・c\n・d\n・e"} {
			_, err := r.RecordTaskMessage(ctx, "Aoki", text, testTime.Add(time.Duration(i)*time.Minute))
			require.NoError(t, err)
		}

		assert.Equal(t, 1, strings.Count(rawDocument(t, ms), "## Aoki\n"))
	})
}

func TestEmptyMessagePolicy(t *testing.T) {
	ctx := context.Background()
	prose := "今日は特にタスクなし、打ち合わせのみです"

	t.Run("ignore policy performs no write", func(t *testing.T) {
		r, ms := newTestReconciler(t, Options{EmptyPolicy: PolicyIgnore})

		_, err := r.RecordTaskMessage(ctx, "Aoki", "・資料作成", testTime)
		require.NoError(t, err)
		before := rawDocument(t, ms)

		res, err := r.RecordTaskMessage(ctx, "Aoki", prose, testTime.Add(time.Hour))
		require.NoError(t, err)
		assert.True(t, res.NoOp)
		assert.Equal(t, before, rawDocument(t, ms))
	})

	t.Run("clear policy empties the author's section", func(t *testing.T) {
		r, ms := newTestReconciler(t, Options{EmptyPolicy: PolicyClear})

		_, err := r.RecordTaskMessage(ctx, "Aoki", "・資料作成\n・会議準備", testTime)
		require.NoError(t, err)

		res, err := r.RecordTaskMessage(ctx, "Aoki", prose, testTime.Add(time.Hour))
		require.NoError(t, err)
		assert.False(t, res.NoOp)
		assert.Equal(t, 0, res.Added)
		assert.Equal(t, 2, res.Removed)

		doc := ledger.ParseDocument(rawDocument(t, ms))
		require.NotNil(t, doc.Section("Aoki"))
		assert.Empty(t, doc.CurrentTasks("Aoki"))
	})

	t.Run("clear policy is a no-op for an unknown author", func(t *testing.T) {
		r, _ := newTestReconciler(t, Options{EmptyPolicy: PolicyClear})

		res, err := r.RecordTaskMessage(ctx, "Tanaka", prose, testTime)
		require.NoError(t, err)
		assert.True(t, res.NoOp)

		_, err = r.CurrentTasks(ctx, "Tanaka")
		assert.ErrorIs(t, err, ErrAuthorNotFound)
	})
}

// racingStore injects one competing write between a read and the following
// write, forcing a version conflict on the first persist attempt.
type racingStore struct {
	*store.MemoryStore
	mu    sync.Mutex
	raced bool
}

func (r *racingStore) Read(ctx context.Context, path string) (string, string, error) {
	content, token, err := r.MemoryStore.Read(ctx, path)
	if err != nil {
		return content, token, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.raced {
		r.raced = true
		doc := ledger.ParseDocument(content)
		doc.Upsert(ledger.Section{Author: "Sato", LastUpdated: "2026-08-23 10:03", Tasks: []string{"割り込みタスク"}})
		if _, werr := r.MemoryStore.Write(ctx, path, doc.Render(), token); werr != nil {
			return "", "", werr
		}
	}
	return content, token, err
}

func TestConflictRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("stale token triggers re-read and the retry succeeds", func(t *testing.T) {
		rs := &racingStore{MemoryStore: store.NewMemoryStore()}

		// Seed so the racing read has something to race against.
		seed := ledger.NewDocument()
		seed.Upsert(ledger.Section{Author: "Sato", LastUpdated: "2026-08-23 09:00", Tasks: []string{"見積もり"}})
		_, err := rs.MemoryStore.Write(ctx, "team-tasks", seed.Render(), "")
		require.NoError(t, err)

		gw := store.NewGateway(rs, "team-tasks", nil)
		r := New(gw, Options{})

		res, err := r.RecordTaskMessage(ctx, "Aoki", "・資料作成", testTime)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Added)

		content, _, err := rs.MemoryStore.Read(ctx, "team-tasks")
		require.NoError(t, err)
		doc := ledger.ParseDocument(content)

		// Both the competing writer's change and the retried writer's change
		// must survive.
		assert.Equal(t, []string{"割り込みタスク"}, doc.CurrentTasks("Sato"))
		assert.Equal(t, []string{"資料作成"}, doc.CurrentTasks("Aoki"))
	})

	t.Run("exhausted retries surface the conflict", func(t *testing.T) {
		always := &alwaysConflict{MemoryStore: store.NewMemoryStore()}
		gw := store.NewGateway(always, "team-tasks", nil)
		r := New(gw, Options{MaxRetries: 3})

		_, err := r.RecordTaskMessage(ctx, "Aoki", "・資料作成", testTime)
		require.Error(t, err)
		assert.True(t, store.IsConflict(err))
		assert.Contains(t, err.Error(), "after 3 attempts")
	})
}

// alwaysConflict rejects every write as stale.
type alwaysConflict struct {
	*store.MemoryStore
}

func (a *alwaysConflict) Write(context.Context, string, string, string) (string, error) {
	return "", store.ErrConflict
}

func TestReadAPI(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestReconciler(t, Options{})

	_, err := r.RecordTaskMessage(ctx, "Aoki", "・資料作成\n・会議準備", testTime)
	require.NoError(t, err)
	_, err = r.RecordTaskMessage(ctx, "Sato", "・見積もり", testTime)
	require.NoError(t, err)

	t.Run("CurrentTasks returns the recorded order", func(t *testing.T) {
		tasks, err := r.CurrentTasks(ctx, "Aoki")
		require.NoError(t, err)
		assert.Equal(t, []string{"資料作成", "会議準備"}, tasks)
	})

	t.Run("AllSections preserves document order and timestamps", func(t *testing.T) {
		sections, err := r.AllSections(ctx)
		require.NoError(t, err)
		require.Len(t, sections, 2)
		assert.Equal(t, "Aoki", sections[0].Author)
		assert.Equal(t, "Sato", sections[1].Author)
		assert.Equal(t, testTime.Format(DefaultTimestampLayout), sections[0].LastUpdated)
	})
}
