package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/treefill/pkg/models"
	"github.com/sdejongh/treefill/pkg/output"
	"github.com/sdejongh/treefill/pkg/storage"
)

var errInjected = errors.New("injected failure")

// writeTree creates tree under root. Keys ending in "/" are directories.
func writeTree(t *testing.T, root string, tree map[string]string) {
	t.Helper()
	for name, content := range tree {
		path := filepath.Join(root, filepath.FromSlash(name))
		if strings.HasSuffix(name, "/") {
			require.NoError(t, os.MkdirAll(path, 0755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

// snapshot reads the tree under root in writeTree's format
func snapshot(t *testing.T, root string) map[string]string {
	t.Helper()
	tree := make(map[string]string)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			tree[rel+"/"] = ""
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		tree[rel] = string(data)
		return nil
	})
	require.NoError(t, err)
	return tree
}

func newTrees(t *testing.T, source, dest map[string]string) (string, string) {
	t.Helper()
	srcRoot, dstRoot := t.TempDir(), t.TempDir()
	writeTree(t, srcRoot, source)
	writeTree(t, dstRoot, dest)
	return srcRoot, dstRoot
}

func newLocal(t *testing.T, root string) *storage.Local {
	t.Helper()
	local, err := storage.NewLocal(root)
	require.NoError(t, err)
	return local
}

func newOperation(recursive bool) *models.SyncOperation {
	op := &models.SyncOperation{
		ID:            "test-run",
		Recursive:     recursive,
		CopyWorkers:   4,
		CopyQueueSize: 8,
	}
	op.ApplyDefaults()
	return op
}

// runPipeline runs a pipeline and fails the test instead of hanging
func runPipeline(t *testing.T, ctx context.Context, p *Pipeline) (*models.SyncReport, error) {
	t.Helper()

	type result struct {
		report *models.SyncReport
		err    error
	}
	done := make(chan result, 1)
	go func() {
		report, err := p.Run(ctx)
		done <- result{report, err}
	}()

	select {
	case res := <-done:
		assert.Equal(t, int64(0), p.tracker.Pending(), "tracker must drain")
		assert.Equal(t, int32(1), p.closeCount.Load(), "queues must be closed exactly once")
		return res.report, res.err
	case <-time.After(15 * time.Second):
		t.Fatal("pipeline did not quiesce")
		return nil, nil
	}
}

func syncDirs(t *testing.T, srcRoot, dstRoot string, op *models.SyncOperation) *models.SyncReport {
	t.Helper()
	op.SourcePath, op.DestPath = srcRoot, dstRoot
	p := NewPipeline(newLocal(t, srcRoot), newLocal(t, dstRoot), nil, nil, op)
	report, err := runPipeline(t, context.Background(), p)
	require.NoError(t, err)
	return report
}

func TestMirrorIntoEmptyDestination(t *testing.T) {
	source := map[string]string{
		"a.txt":     "alpha",
		"sub/":      "",
		"sub/b.txt": "bravo",
	}
	srcRoot, dstRoot := newTrees(t, source, nil)

	report := syncDirs(t, srcRoot, dstRoot, newOperation(true))

	if diff := cmp.Diff(source, snapshot(t, dstRoot)); diff != "" {
		t.Errorf("destination mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, models.StatusSuccess, report.Status)
	assert.Equal(t, int64(2), report.Stats.FilesCopied.Load())
	assert.Equal(t, int64(1), report.Stats.DirsCreated.Load())
	assert.Equal(t, int64(10), report.Stats.BytesTransferred.Load())
	assert.Equal(t, int64(2), report.Stats.DirsCompared.Load())
	assert.Empty(t, report.Errors)
}

// deepTree builds depth levels of fanout directories, each holding files
func deepTree(depth, fanout int) map[string]string {
	tree := make(map[string]string)
	var build func(prefix string, level int)
	build = func(prefix string, level int) {
		for i := 0; i < fanout; i++ {
			file := fmt.Sprintf("%sf%d.dat", prefix, i)
			tree[file] = strings.Repeat(file, i+1)
			if level < depth {
				dir := fmt.Sprintf("%sd%d/", prefix, i)
				tree[dir] = ""
				build(dir, level+1)
			}
		}
	}
	build("", 1)
	return tree
}

func TestMirrorDeepTree(t *testing.T) {
	source := deepTree(4, 3)

	tests := []struct {
		name           string
		compareWorkers int
		copyWorkers    int
		queueSize      int
		dest           map[string]string
	}{
		{"SingleWorkers", 1, 1, 1, nil},
		{"TinyCopyQueue", 8, 2, 1, nil},
		{"ManyWorkers", 16, 16, 1024, nil},
		{"PartialDestination", 4, 4, 2, map[string]string{
			"d0/":          "",
			"d0/d1/":       "",
			"d0/d1/f0.dat": "d0/d1/f0.dat",
			"d2/":          "",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srcRoot, dstRoot := newTrees(t, source, tt.dest)

			op := newOperation(true)
			op.CompareWorkers = tt.compareWorkers
			op.CopyWorkers = tt.copyWorkers
			op.CopyQueueSize = tt.queueSize

			report := syncDirs(t, srcRoot, dstRoot, op)

			if diff := cmp.Diff(source, snapshot(t, dstRoot)); diff != "" {
				t.Errorf("destination mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, models.StatusSuccess, report.Status)
		})
	}
}

func TestExistingFilesAreNeverOverwritten(t *testing.T) {
	srcRoot, dstRoot := newTrees(t,
		map[string]string{"a.txt": "X"},
		map[string]string{"a.txt": "Y"},
	)

	report := syncDirs(t, srcRoot, dstRoot, newOperation(true))

	assert.Equal(t, map[string]string{"a.txt": "Y"}, snapshot(t, dstRoot))
	assert.Equal(t, models.StatusSuccess, report.Status)
	assert.Equal(t, int64(1), report.Stats.EntriesPresent.Load())
	assert.Zero(t, report.Stats.FilesCopied.Load())
	assert.Empty(t, report.Errors)
}

func TestKindConflictIsSkipped(t *testing.T) {
	srcRoot, dstRoot := newTrees(t,
		map[string]string{
			"conflict/":       "",
			"conflict/in.txt": "inside",
			"plain":           "source file",
			"other.txt":       "other",
		},
		map[string]string{
			"conflict": "F",
			"plain/":   "",
		},
	)

	report := syncDirs(t, srcRoot, dstRoot, newOperation(true))

	want := map[string]string{
		"conflict":  "F",
		"plain/":    "",
		"other.txt": "other",
	}
	if diff := cmp.Diff(want, snapshot(t, dstRoot)); diff != "" {
		t.Errorf("destination mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, models.StatusPartial, report.Status)
	require.Len(t, report.Conflicts, 2)
	assert.Equal(t, int64(2), report.Stats.ConflictCount.Load())
	assert.Empty(t, report.Errors)

	for _, c := range report.Conflicts {
		switch filepath.Base(c.SourcePath) {
		case "conflict":
			assert.Equal(t, filepath.Join(dstRoot, "conflict"), c.TargetPath)
			assert.Equal(t, models.KindDir, c.SourceKind)
			assert.Equal(t, models.KindFile, c.TargetKind)
		case "plain":
			assert.Equal(t, models.KindFile, c.SourceKind)
			assert.Equal(t, models.KindDir, c.TargetKind)
		default:
			t.Errorf("unexpected conflict %+v", c)
		}
	}
}

func TestNonRecursiveCreatesEmptyDirectories(t *testing.T) {
	srcRoot, dstRoot := newTrees(t,
		map[string]string{
			"empty/":     "",
			"full/":      "",
			"full/x.txt": "never copied",
			"top.txt":    "top",
		},
		map[string]string{
			"present/": "",
		},
	)
	writeTree(t, srcRoot, map[string]string{"present/y.txt": "not descended"})

	op := newOperation(false)
	report := syncDirs(t, srcRoot, dstRoot, op)

	want := map[string]string{
		"empty/":   "",
		"full/":    "",
		"present/": "",
		"top.txt":  "top",
	}
	if diff := cmp.Diff(want, snapshot(t, dstRoot)); diff != "" {
		t.Errorf("destination mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, op.CompareWorkers)
	assert.Equal(t, int64(1), report.Stats.DirsCompared.Load())
	assert.Equal(t, int64(2), report.Stats.DirsCreated.Load())
	assert.Equal(t, models.StatusSuccess, report.Status)
}

func TestSecondRunIsNoop(t *testing.T) {
	source := map[string]string{
		"a.txt":     "alpha",
		"sub/":      "",
		"sub/b.txt": "bravo",
	}
	srcRoot, dstRoot := newTrees(t, source, nil)

	first := syncDirs(t, srcRoot, dstRoot, newOperation(true))
	require.Equal(t, int64(2), first.Stats.FilesCopied.Load())

	second := syncDirs(t, srcRoot, dstRoot, newOperation(true))

	assert.Zero(t, second.Stats.FilesCopied.Load())
	assert.Zero(t, second.Stats.DirsCreated.Load())
	assert.Zero(t, second.Stats.ErrorCount.Load())
	assert.Equal(t, int64(3), second.Stats.EntriesPresent.Load())
	assert.Equal(t, models.StatusSuccess, second.Status)
	if diff := cmp.Diff(source, snapshot(t, dstRoot)); diff != "" {
		t.Errorf("destination changed on second run (-want +got):\n%s", diff)
	}
}

// faultyBackend injects failures into selected paths of a real backend
type faultyBackend struct {
	storage.Backend
	failList  map[string]bool
	failMkdir map[string]bool
	failRead  map[string]bool
}

func (f *faultyBackend) List(ctx context.Context, dir string) ([]models.Entry, error) {
	if f.failList[dir] {
		return nil, errInjected
	}
	return f.Backend.List(ctx, dir)
}

func (f *faultyBackend) Mkdir(ctx context.Context, path string) error {
	if f.failMkdir[path] {
		return errInjected
	}
	return f.Backend.Mkdir(ctx, path)
}

func (f *faultyBackend) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	r, err := f.Backend.Open(ctx, path)
	if err != nil || !f.failRead[path] {
		return r, err
	}
	return &brokenReader{ReadCloser: r}, nil
}

// brokenReader returns some data, then fails
type brokenReader struct {
	io.ReadCloser
	served bool
}

func (b *brokenReader) Read(p []byte) (int, error) {
	if b.served {
		return 0, errInjected
	}
	b.served = true
	return b.ReadCloser.Read(p[:1])
}

func TestListFailureIsRecoverable(t *testing.T) {
	srcRoot, dstRoot := newTrees(t,
		map[string]string{
			"bad/":     "",
			"bad/x":    "x",
			"good/":    "",
			"good/y":   "y",
			"top.txt":  "top",
			"shared/":  "",
			"shared/z": "z",
		},
		map[string]string{"shared/": ""},
	)

	source := &faultyBackend{
		Backend:  newLocal(t, srcRoot),
		failList: map[string]bool{"bad": true},
	}
	dest := &faultyBackend{
		Backend:  newLocal(t, dstRoot),
		failList: map[string]bool{"shared": true},
	}

	op := newOperation(true)
	p := NewPipeline(source, dest, nil, nil, op)
	report, err := runPipeline(t, context.Background(), p)
	require.NoError(t, err)

	want := map[string]string{
		"bad/":    "",
		"good/":   "",
		"good/y":  "y",
		"shared/": "",
		"top.txt": "top",
	}
	if diff := cmp.Diff(want, snapshot(t, dstRoot)); diff != "" {
		t.Errorf("destination mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, models.StatusPartial, report.Status)
	require.Len(t, report.Errors, 2)
	for _, e := range report.Errors {
		assert.Equal(t, models.ActionList, e.Operation)
		assert.Contains(t, e.Error, errInjected.Error())
	}
}

func TestRootListFailure(t *testing.T) {
	srcRoot, dstRoot := newTrees(t, map[string]string{"a.txt": "a"}, nil)

	dest := &faultyBackend{
		Backend:  newLocal(t, dstRoot),
		failList: map[string]bool{"": true},
	}

	p := NewPipeline(newLocal(t, srcRoot), dest, nil, nil, newOperation(true))
	report, err := runPipeline(t, context.Background(), p)

	require.Error(t, err)
	assert.ErrorIs(t, err, errInjected)
	assert.Equal(t, models.StatusFailed, report.Status)
	assert.Equal(t, 2, report.Status.ExitCode())
	assert.Empty(t, snapshot(t, dstRoot))
}

func TestMkdirFailureDoesNotHang(t *testing.T) {
	srcRoot, dstRoot := newTrees(t,
		map[string]string{
			"locked/":      "",
			"locked/a.txt": "a",
			"locked/deep/": "",
			"open/":        "",
			"open/b.txt":   "b",
		},
		nil,
	)

	dest := &faultyBackend{
		Backend:   newLocal(t, dstRoot),
		failMkdir: map[string]bool{"locked": true},
	}

	p := NewPipeline(newLocal(t, srcRoot), dest, nil, nil, newOperation(true))
	report, err := runPipeline(t, context.Background(), p)
	require.NoError(t, err)

	want := map[string]string{
		"open/":      "",
		"open/b.txt": "b",
	}
	if diff := cmp.Diff(want, snapshot(t, dstRoot)); diff != "" {
		t.Errorf("destination mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, report.Errors, 1)
	assert.Equal(t, models.ActionMkdir, report.Errors[0].Operation)
	assert.Equal(t, models.StatusPartial, report.Status)
}

func TestCopyFailureRemovesPartialFile(t *testing.T) {
	srcRoot, dstRoot := newTrees(t,
		map[string]string{
			"broken.bin": "0123456789",
			"fine.txt":   "fine",
		},
		nil,
	)

	source := &faultyBackend{
		Backend:  newLocal(t, srcRoot),
		failRead: map[string]bool{"broken.bin": true},
	}

	p := NewPipeline(source, newLocal(t, dstRoot), nil, nil, newOperation(true))
	report, err := runPipeline(t, context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"fine.txt": "fine"}, snapshot(t, dstRoot))
	require.Len(t, report.Errors, 1)
	assert.Equal(t, models.ActionCopy, report.Errors[0].Operation)
	assert.Equal(t, filepath.Join(srcRoot, "broken.bin"), report.Errors[0].SourcePath)
	assert.Equal(t, filepath.Join(dstRoot, "broken.bin"), report.Errors[0].TargetPath)
}

func TestDryRunWritesNothing(t *testing.T) {
	source := map[string]string{
		"a.txt":        "alpha",
		"sub/":         "",
		"sub/b.txt":    "bravo",
		"sub/deep/":    "",
		"sub/deep/c":   "charlie",
		"kept/":        "",
		"kept/new.txt": "new",
	}
	dest := map[string]string{"kept/": ""}
	srcRoot, dstRoot := newTrees(t, source, dest)

	op := newOperation(true)
	op.DryRun = true
	report := syncDirs(t, srcRoot, dstRoot, op)

	if diff := cmp.Diff(dest, snapshot(t, dstRoot)); diff != "" {
		t.Errorf("dry run modified destination (-want +got):\n%s", diff)
	}
	assert.True(t, report.DryRun)
	assert.Equal(t, models.StatusSuccess, report.Status)
	assert.Equal(t, int64(4), report.Stats.FilesCopied.Load())
	assert.Equal(t, int64(2), report.Stats.DirsCreated.Load())
	assert.Equal(t, int64(4), report.Stats.DirsCompared.Load())
	assert.Empty(t, report.Errors)
}

func TestDryRunIntoMissingDestination(t *testing.T) {
	srcRoot, _ := newTrees(t, map[string]string{
		"a.txt":     "alpha",
		"sub/":      "",
		"sub/b.txt": "bravo",
	}, nil)
	dstRoot := filepath.Join(t.TempDir(), "not", "yet")

	dest, err := storage.NewPendingLocal(dstRoot)
	require.NoError(t, err)

	op := newOperation(true)
	op.SourcePath, op.DestPath = srcRoot, dstRoot
	op.DryRun, op.DestAbsent = true, true
	report, err := runPipeline(t, context.Background(), NewPipeline(newLocal(t, srcRoot), dest, nil, nil, op))
	require.NoError(t, err)

	assert.NoDirExists(t, dstRoot)
	assert.Equal(t, models.StatusSuccess, report.Status)
	assert.Equal(t, int64(2), report.Stats.FilesCopied.Load())
	assert.Equal(t, int64(1), report.Stats.DirsCreated.Load())
	assert.Equal(t, int64(2), report.Stats.DirsCompared.Load())
}

func TestCancelledRun(t *testing.T) {
	srcRoot, dstRoot := newTrees(t, deepTree(3, 3), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPipeline(newLocal(t, srcRoot), newLocal(t, dstRoot), nil, nil, newOperation(true))
	report, err := runPipeline(t, ctx, p)
	require.NoError(t, err)

	assert.Equal(t, models.StatusCancelled, report.Status)
	assert.Equal(t, 3, report.Status.ExitCode())
	assert.Empty(t, report.Errors)
	assert.Empty(t, snapshot(t, dstRoot))
}

func TestExcludePatternsDuringSync(t *testing.T) {
	srcRoot, dstRoot := newTrees(t,
		map[string]string{
			"keep.txt":    "keep",
			"skip.tmp":    "tmp",
			"cache/":      "",
			"cache/x":     "x",
			"sub/":        "",
			"sub/keep2":   "keep2",
			"sub/y.tmp":   "y",
			"sub/cache/":  "",
			"sub/cache/z": "z",
		},
		nil,
	)

	op := newOperation(true)
	op.ExcludePatterns = []string{"*.tmp", "cache/"}
	report := syncDirs(t, srcRoot, dstRoot, op)

	want := map[string]string{
		"keep.txt":  "keep",
		"sub/":      "",
		"sub/keep2": "keep2",
	}
	if diff := cmp.Diff(want, snapshot(t, dstRoot)); diff != "" {
		t.Errorf("destination mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, int64(4), report.Stats.EntriesExcluded.Load())
}

func TestSymlinkContentIsCopied(t *testing.T) {
	srcRoot, dstRoot := newTrees(t, map[string]string{"target.txt": "pointed"}, nil)
	if err := os.Symlink("target.txt", filepath.Join(srcRoot, "link")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	syncDirs(t, srcRoot, dstRoot, newOperation(true))

	info, err := os.Lstat(filepath.Join(dstRoot, "link"))
	require.NoError(t, err)
	assert.True(t, info.Mode().IsRegular(), "link must be copied as a regular file")
	assert.Equal(t, map[string]string{"target.txt": "pointed", "link": "pointed"}, snapshot(t, dstRoot))
}

func TestSymlinkToDirectoryIsReported(t *testing.T) {
	srcRoot, dstRoot := newTrees(t, map[string]string{"a.txt": "a", "dir/": ""}, nil)
	if err := os.Symlink("dir", filepath.Join(srcRoot, "dirlink")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	if err := os.Symlink("missing", filepath.Join(srcRoot, "dangling")); err != nil {
		t.Fatalf("failed to create symlink: %v", err)
	}

	report := syncDirs(t, srcRoot, dstRoot, newOperation(true))

	assert.Equal(t, map[string]string{"a.txt": "a", "dir/": ""}, snapshot(t, dstRoot))
	assert.Equal(t, models.StatusPartial, report.Status)
	require.Len(t, report.Errors, 2)
	for _, e := range report.Errors {
		assert.Equal(t, models.ActionCopy, e.Operation)
	}
}

// cancellingBackend cancels the run as soon as a file is first read
type cancellingBackend struct {
	storage.Backend
	cancel context.CancelFunc
}

func (c *cancellingBackend) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	r, err := c.Backend.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	return &cancelOnRead{ReadCloser: r, cancel: c.cancel}, nil
}

// cancelOnRead cancels on every Read and serves small chunks
type cancelOnRead struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnRead) Read(p []byte) (int, error) {
	c.cancel()
	if len(p) > 1024 {
		p = p[:1024]
	}
	return c.ReadCloser.Read(p)
}

func TestCancelStopsCopyInFlight(t *testing.T) {
	srcRoot, dstRoot := newTrees(t, map[string]string{"big.dat": strings.Repeat("x", 4<<20)}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	op := newOperation(true)
	op.CopyWorkers = 1
	source := &cancellingBackend{Backend: newLocal(t, srcRoot), cancel: cancel}
	p := NewPipeline(source, newLocal(t, dstRoot), nil, nil, op)

	report, err := runPipeline(t, ctx, p)
	require.NoError(t, err)

	assert.Equal(t, models.StatusCancelled, report.Status)
	assert.Equal(t, int64(0), report.Stats.FilesCopied.Load())
	assert.Equal(t, int64(0), report.Stats.BytesTransferred.Load())
	assert.Empty(t, report.Errors)
	assert.Empty(t, snapshot(t, dstRoot), "partial file must be removed")
}

// gatedBackend holds every Create until gate is closed
type gatedBackend struct {
	storage.Backend
	entered chan struct{}
	once    sync.Once
	gate    chan struct{}
}

func (g *gatedBackend) Create(ctx context.Context, path string) (io.WriteCloser, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.gate
	return g.Backend.Create(ctx, path)
}

func TestCopyQueueBlocksProducers(t *testing.T) {
	source := make(map[string]string)
	for i := 0; i < 20; i++ {
		name := fmt.Sprintf("f%02d", i)
		source[name] = name
	}
	srcRoot, dstRoot := newTrees(t, source, nil)

	op := newOperation(true)
	op.CopyWorkers = 1
	op.CopyQueueSize = 2
	dest := &gatedBackend{
		Backend: newLocal(t, dstRoot),
		entered: make(chan struct{}),
		gate:    make(chan struct{}),
	}
	p := NewPipeline(newLocal(t, srcRoot), dest, nil, nil, op)

	done := make(chan *models.SyncReport, 1)
	go func() {
		report, _ := p.Run(context.Background())
		done <- report
	}()

	select {
	case <-dest.entered:
	case <-time.After(5 * time.Second):
		close(dest.gate)
		t.Fatal("copy worker never started")
	}
	require.Eventually(t, func() bool {
		return len(p.copyQueue) == cap(p.copyQueue)
	}, 5*time.Second, time.Millisecond)

	// The compare worker still holds most tasks and must wait for room
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, len(p.copyQueue), cap(p.copyQueue))
	assert.Equal(t, int64(0), p.report.Stats.FilesCopied.Load())
	assert.Equal(t, int64(1), p.tracker.Pending(), "root compare must still be running")

	close(dest.gate)

	select {
	case report := <-done:
		assert.Equal(t, models.StatusSuccess, report.Status)
		assert.Equal(t, int64(20), report.Stats.FilesCopied.Load())
	case <-time.After(15 * time.Second):
		t.Fatal("pipeline did not quiesce")
	}
	if diff := cmp.Diff(source, snapshot(t, dstRoot)); diff != "" {
		t.Errorf("destination mismatch (-want +got):\n%s", diff)
	}
}

func TestBandwidthLimitedRun(t *testing.T) {
	srcRoot, dstRoot := newTrees(t, map[string]string{"a": "aaaa", "b": "bbbb"}, nil)

	op := newOperation(true)
	op.BandwidthLimit = 1024 * 1024
	report := syncDirs(t, srcRoot, dstRoot, op)

	assert.Equal(t, models.StatusSuccess, report.Status)
	assert.Equal(t, int64(8), report.Stats.BytesTransferred.Load())
}

// recordingFormatter collects every event it receives
type recordingFormatter struct {
	mu        sync.Mutex
	started   bool
	completed *models.SyncReport
	events    map[output.EventType]int
}

func (f *recordingFormatter) Start(*models.SyncOperation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	f.events = make(map[output.EventType]int)
	return nil
}

func (f *recordingFormatter) Progress(update output.ProgressUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[update.Type]++
	return nil
}

func (f *recordingFormatter) Complete(report *models.SyncReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = report
	return nil
}

func (f *recordingFormatter) Error(error) error { return nil }
func (f *recordingFormatter) Name() string      { return "recording" }

func TestFormatterEvents(t *testing.T) {
	srcRoot, dstRoot := newTrees(t,
		map[string]string{
			"a.txt":     "alpha",
			"sub/":      "",
			"sub/b.txt": "bravo",
			"clash/":    "",
		},
		map[string]string{"clash": "file"},
	)

	formatter := &recordingFormatter{}
	op := newOperation(true)
	p := NewPipeline(newLocal(t, srcRoot), newLocal(t, dstRoot), formatter, nil, op)
	report, err := runPipeline(t, context.Background(), p)
	require.NoError(t, err)

	formatter.mu.Lock()
	defer formatter.mu.Unlock()

	assert.True(t, formatter.started)
	assert.Same(t, report, formatter.completed)
	assert.Equal(t, 2, formatter.events[output.EventCopyStart])
	assert.Equal(t, 2, formatter.events[output.EventCopyComplete])
	assert.Equal(t, 1, formatter.events[output.EventDirCreated])
	assert.Equal(t, 2, formatter.events[output.EventDirCompared])
	assert.Equal(t, 1, formatter.events[output.EventConflict])
}

func TestEngineRun(t *testing.T) {
	srcRoot, dstRoot := newTrees(t, map[string]string{"a.txt": "a"}, nil)

	t.Run("AppliesDefaults", func(t *testing.T) {
		op := &models.SyncOperation{SourcePath: srcRoot, DestPath: dstRoot, Recursive: true}
		engine := NewEngine(newLocal(t, srcRoot), newLocal(t, dstRoot), nil, nil, op)

		report, err := engine.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, models.StatusSuccess, report.Status)
		assert.Equal(t, models.DefaultCopyWorkers, op.CopyWorkers)
		assert.Equal(t, map[string]string{"a.txt": "a"}, snapshot(t, dstRoot))
	})

	t.Run("RejectsInvalidOperation", func(t *testing.T) {
		op := &models.SyncOperation{SourcePath: srcRoot, DestPath: dstRoot, BandwidthLimit: -5}
		engine := NewEngine(newLocal(t, srcRoot), newLocal(t, dstRoot), nil, nil, op)

		_, err := engine.Run(context.Background())
		var ve *models.ValidationError
		assert.ErrorAs(t, err, &ve)
	})
}
