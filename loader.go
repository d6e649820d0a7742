package glr

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/hupe1980/glr/classfile"
	"github.com/hupe1980/glr/internal/arena"
)

// Loader decodes class files into its arenas and keeps a name table of the
// classes it loaded.
//
// A Loader is not safe for concurrent use.
type Loader struct {
	opts options

	meta  *arena.Arena
	syms  *arena.Arena
	code  *arena.Arena
	space classfile.Space
	table *classfile.ClassTable

	closed bool
}

// Stats is a snapshot of a Loader's state.
type Stats struct {
	Classes  int
	Capacity int // class table slots
	MaxProbe int // longest probe distance in the class table
	Metadata ArenaStats
	Symbols  ArenaStats
	Code     ArenaStats
}

// New reserves the loader's memory ranges and creates an empty class table.
func New(optFns ...Option) (*Loader, error) {
	o := applyOptions(optFns)
	if err := o.layout.Validate(); err != nil {
		return nil, err
	}

	var arenaOpts []arena.Option
	if o.resources != nil {
		arenaOpts = append(arenaOpts, arena.WithMemoryAcquirer(o.resources))
	}
	if o.pager != nil {
		arenaOpts = append(arenaOpts, arena.WithPager(o.pager))
	}

	l := &Loader{opts: o}
	var err error
	if l.meta, err = arena.At(o.layout.Metadata, arenaOpts...); err != nil {
		return nil, translateError(err)
	}
	if l.syms, err = arena.At(o.layout.Symbols, arenaOpts...); err != nil {
		_ = l.meta.Close()
		return nil, translateError(err)
	}
	if l.code, err = arena.At(o.layout.Code, arenaOpts...); err != nil {
		_ = l.syms.Close()
		_ = l.meta.Close()
		return nil, translateError(err)
	}
	l.space = classfile.Space{Meta: l.meta, Code: l.code}

	if l.table, err = classfile.NewClassTable(&l.space, l.syms, o.initialCapacity); err != nil {
		_ = l.close()
		return nil, translateError(err)
	}

	o.logger.Debug("loader ready",
		"metadata", l.meta.String(),
		"symbols", l.syms.String(),
		"code", l.code.String(),
	)
	return l, nil
}

// LoadClass decodes data and publishes the class under its name.
//
// A class that fails to decode or to be registered is never visible through
// Find; arena space it used is not reclaimed. When the class table is full it
// is doubled once and the insert retried.
func (l *Loader) LoadClass(data []byte) (c classfile.Class, err error) {
	ctx := context.Background()
	start := time.Now()
	defer func() {
		l.opts.metrics.RecordLoad(len(data), time.Since(start), err)
	}()

	if l.closed {
		return classfile.Class{}, ErrClosed
	}

	c, err = classfile.Decode(&l.space, data, l.opts.limits)
	if err != nil {
		err = translateError(err)
		l.opts.logger.LogLoad(ctx, "", len(data), err)
		return classfile.Class{}, err
	}

	name := c.Name()
	if err = l.register(ctx, c); err != nil {
		err = &ClassError{Name: name, cause: err}
		l.opts.logger.LogLoad(ctx, name, len(data), err)
		return classfile.Class{}, err
	}

	l.opts.logger.LogLoad(ctx, name, len(data), nil)
	return c, nil
}

func (l *Loader) register(ctx context.Context, c classfile.Class) error {
	if _, ok := l.table.Find(c.Name()); ok {
		return ErrDuplicateClass
	}

	err := l.table.Insert(c)
	if !errors.Is(err, classfile.ErrTableFull) {
		return translateError(err)
	}

	from := l.table.Cap()
	if err := l.table.Grow(); err != nil {
		l.opts.logger.LogGrow(ctx, from, from*2, err)
		return translateError(err)
	}
	l.opts.logger.LogGrow(ctx, from, l.table.Cap(), nil)
	l.opts.metrics.RecordGrow(l.table.Cap())

	return translateError(l.table.Insert(c))
}

// Find returns the class named name. It never modifies the loader.
func (l *Loader) Find(name string) (classfile.Class, bool) {
	if l.closed {
		return classfile.Class{}, false
	}
	start := time.Now()
	c, ok := l.table.Find(name)
	l.opts.metrics.RecordFind(ok, time.Since(start))
	return c, ok
}

// Get is like Find but returns ErrNotFound for a missing class.
func (l *Loader) Get(name string) (classfile.Class, error) {
	if l.closed {
		return classfile.Class{}, ErrClosed
	}
	c, ok := l.Find(name)
	if !ok {
		return classfile.Class{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return c, nil
}

// Classes yields every loaded class in table order. The loader must not be
// modified while iterating.
func (l *Loader) Classes() iter.Seq[classfile.Class] {
	if l.closed {
		return func(func(classfile.Class) bool) {}
	}
	return l.table.All()
}

// Len returns the number of loaded classes.
func (l *Loader) Len() int {
	if l.closed {
		return 0
	}
	return l.table.Len()
}

// Stats returns a snapshot of table and arena usage.
func (l *Loader) Stats() Stats {
	if l.closed {
		return Stats{}
	}
	return Stats{
		Classes:  l.table.Len(),
		Capacity: l.table.Cap(),
		MaxProbe: l.table.MaxProbe(),
		Metadata: l.meta.Stats(),
		Symbols:  l.syms.Stats(),
		Code:     l.code.Stats(),
	}
}

// Logger returns the loader's logger.
func (l *Loader) Logger() *Logger { return l.opts.logger }

// Metrics returns the loader's metrics collector.
func (l *Loader) Metrics() MetricsCollector { return l.opts.metrics }

// Resources returns the resource controller, nil if none was configured.
func (l *Loader) Resources() *ResourceController { return l.opts.resources }

// Close unmaps every arena. All classes, fields, methods and constants
// obtained from the loader become invalid. It is idempotent.
func (l *Loader) Close() error {
	if l == nil || l.closed {
		return nil
	}
	l.closed = true
	return l.close()
}

func (l *Loader) close() error {
	var errs []error
	for _, a := range []*arena.Arena{l.code, l.syms, l.meta} {
		if a != nil {
			errs = append(errs, a.Close())
		}
	}
	return errors.Join(errs...)
}
