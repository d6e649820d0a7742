package classpath

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/glr"
	"github.com/hupe1980/glr/archive"
	"github.com/hupe1980/glr/blobstore"
	"github.com/hupe1980/glr/classfile"
)

// ErrNameMismatch is returned by Require when a class file declares a name
// other than the one it is stored under.
var ErrNameMismatch = errors.New("classpath: class name does not match file name")

type namedArchive struct {
	name string
	a    *archive.Archive
}

// ClassPath is an ordered search path of class repositories in front of a
// Loader.
type ClassPath struct {
	loader  *glr.Loader
	logger  *glr.Logger
	metrics glr.MetricsCollector
	res     *glr.ResourceController

	mu       sync.RWMutex // guards stores and archives
	stores   []blobstore.BlobStore
	archives []namedArchive

	loadMu sync.Mutex // serializes loader access
}

// New returns a class path that searches stores in order and loads into
// loader. Logging, metrics and resource limits are taken from the loader.
func New(loader *glr.Loader, stores ...blobstore.BlobStore) *ClassPath {
	return &ClassPath{
		loader:  loader,
		logger:  loader.Logger(),
		metrics: loader.Metrics(),
		res:     loader.Resources(),
		stores:  slices.Clone(stores),
	}
}

// FileName returns the blob name a class is stored under.
func FileName(class string) string {
	return class + classfile.Ext
}

// AddStore appends a repository to the search path.
func (cp *ClassPath) AddStore(s blobstore.BlobStore) {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	cp.stores = append(cp.stores, s)
}

// AddArchive reads the archive blob name from s and puts it on the search
// path ahead of every repository.
func (cp *ClassPath) AddArchive(ctx context.Context, s blobstore.BlobStore, name string) error {
	data, err := cp.read(ctx, s, name)
	if err != nil {
		return fmt.Errorf("classpath: archive %q: %w", name, err)
	}
	a, err := archive.Read(data)
	if err != nil {
		return fmt.Errorf("classpath: archive %q: %w", name, err)
	}

	cp.mu.Lock()
	defer cp.mu.Unlock()
	cp.archives = append(cp.archives, namedArchive{name: name, a: a})
	cp.logger.DebugContext(ctx, "archive added", "archive", name, "classes", a.Len())
	return nil
}

// LoadArchives adds every archive found in the repositories, in repository
// order and then by name.
func (cp *ClassPath) LoadArchives(ctx context.Context) error {
	for _, s := range cp.snapshotStores() {
		names, err := s.List(ctx, "")
		if err != nil {
			return fmt.Errorf("classpath: list: %w", err)
		}
		for _, name := range names {
			if !strings.HasSuffix(name, archive.Ext) {
				continue
			}
			if err := cp.AddArchive(ctx, s, name); err != nil {
				return err
			}
		}
	}
	return nil
}

// Archives returns the names of the archives on the search path.
func (cp *ClassPath) Archives() []string {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	names := make([]string, len(cp.archives))
	for i, na := range cp.archives {
		names[i] = na.name
	}
	return names
}

func (cp *ClassPath) snapshotStores() []blobstore.BlobStore {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	return slices.Clone(cp.stores)
}

// read fetches a whole blob, charging its size to the IO budget first.
func (cp *ClassPath) read(ctx context.Context, s blobstore.BlobStore, name string) ([]byte, error) {
	b, err := s.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = b.Close() }()

	if err := cp.res.AcquireIO(ctx, int(b.Size())); err != nil {
		return nil, err
	}
	return blobstore.ReadAll(ctx, b)
}

// Fetch returns the class file bytes for class and the archive or
// repository they came from.
func (cp *ClassPath) Fetch(ctx context.Context, class string) (data []byte, source string, err error) {
	start := time.Now()
	defer func() {
		cp.metrics.RecordFetch(len(data), time.Since(start), err)
		cp.logger.LogFetch(ctx, class, source, len(data), err)
	}()

	file := FileName(class)

	cp.mu.RLock()
	archives := slices.Clone(cp.archives)
	stores := slices.Clone(cp.stores)
	cp.mu.RUnlock()

	for _, na := range archives {
		if !na.a.Has(file) {
			continue
		}
		data, err = na.a.Open(file)
		return data, na.name, err
	}

	for i, s := range stores {
		data, err = cp.read(ctx, s, file)
		switch {
		case err == nil:
			return data, fmt.Sprintf("store[%d]", i), nil
		case errors.Is(err, blobstore.ErrNotFound):
			continue
		default:
			return nil, fmt.Sprintf("store[%d]", i), err
		}
	}
	return nil, "", fmt.Errorf("%w: %q", glr.ErrNotFound, class)
}

// Require returns the loaded class named class, fetching and loading it
// first if needed.
//
// A class file whose declared name differs from class is still loaded under
// its declared name, and ErrNameMismatch is returned.
func (cp *ClassPath) Require(ctx context.Context, class string) (classfile.Class, error) {
	cp.loadMu.Lock()
	if c, ok := cp.loader.Find(class); ok {
		cp.loadMu.Unlock()
		return c, nil
	}
	cp.loadMu.Unlock()

	data, _, err := cp.Fetch(ctx, class)
	if err != nil {
		return classfile.Class{}, err
	}

	cp.loadMu.Lock()
	defer cp.loadMu.Unlock()
	return cp.load(class, data)
}

// load must be called with loadMu held.
func (cp *ClassPath) load(class string, data []byte) (classfile.Class, error) {
	// Another caller may have loaded it while we fetched.
	if c, ok := cp.loader.Find(class); ok {
		return c, nil
	}
	c, err := cp.loader.LoadClass(data)
	if err != nil {
		return classfile.Class{}, err
	}
	if c.Name() != class {
		return c, fmt.Errorf("%w: file %q declares %q", ErrNameMismatch, FileName(class), c.Name())
	}
	return c, nil
}

// Preload fetches the named classes concurrently and then loads them in the
// given order. Classes already loaded are skipped. Fetch concurrency and
// bandwidth follow the loader's resource controller.
//
// If any fetch fails nothing is loaded. Load failures do not stop the
// remaining loads; they are joined into the returned error. The number of
// classes loaded by this call is returned either way. A class published under
// a name other than its file's counts as loaded and still reports
// ErrNameMismatch.
func (cp *ClassPath) Preload(ctx context.Context, names []string) (loaded int, err error) {
	defer func() { cp.logger.LogPreload(ctx, len(names), loaded, err) }()

	cp.loadMu.Lock()
	var todo []string
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if _, ok := cp.loader.Find(name); !ok {
			todo = append(todo, name)
		}
	}
	cp.loadMu.Unlock()

	files := make([][]byte, len(todo))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cp.res.FetchWorkers(), 1))
	for i, name := range todo {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := cp.res.AcquireFetch(gctx); err != nil {
				return err
			}
			defer cp.res.ReleaseFetch()

			data, _, err := cp.Fetch(gctx, name)
			files[i] = data
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	cp.loadMu.Lock()
	defer cp.loadMu.Unlock()
	var errs []error
	for i, name := range todo {
		_, err := cp.load(name, files[i])
		if err != nil {
			errs = append(errs, err)
		}
		if err == nil || errors.Is(err, ErrNameMismatch) {
			loaded++
		}
	}
	return loaded, errors.Join(errs...)
}
