package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestLoad_FreshDatabaseIsEmpty(t *testing.T) {
	l := openTestLedger(t)

	seen, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, seen)
}

func TestMergeAndLoad(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	urls := map[string]struct{}{
		"https://www.reddit.com/r/caregivers/comments/abc/":  {},
		"https://newhaven.craigslist.org/lss/d/7712345.html": {},
	}
	require.NoError(t, l.Merge(ctx, urls))

	seen, err := l.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, urls, seen)
}

func TestMerge_Idempotent(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	urls := map[string]struct{}{"https://example.com/post/1": {}}
	require.NoError(t, l.Merge(ctx, urls))
	require.NoError(t, l.Merge(ctx, urls))

	n, err := l.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMerge_EmptySetIsNoop(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Merge(ctx, nil))

	n, err := l.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestMerge_AccumulatesAcrossPasses(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Merge(ctx, map[string]struct{}{"a": {}, "b": {}}))
	require.NoError(t, l.Merge(ctx, map[string]struct{}{"b": {}, "c": {}}))

	seen, err := l.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, seen, 3)
	assert.Contains(t, seen, "c")
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	l, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, l.Merge(ctx, map[string]struct{}{"kept": {}}))
	require.NoError(t, l.Close())

	l2, err := Open(path)
	require.NoError(t, err)
	defer l2.Close()

	seen, err := l2.Load(ctx)
	require.NoError(t, err)
	assert.Contains(t, seen, "kept")
}
