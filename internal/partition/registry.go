// Package partition routes parsed records into per-language page tables and
// per-pair link tables.
package partition

import (
	"errors"
	"fmt"
	"slices"

	"github.com/heartmarshall/wikititles/internal/domain"
)

// Sink receives the rows of one table.
// Close makes the table durable; Abort drops it.
type Sink[T any] interface {
	Write(row T) error
	Close() error
	Abort() error
}

// SinkFactory creates sinks for each partition key.
type SinkFactory interface {
	PageSink(lang string) (Sink[domain.Page], error)
	LinkSink(pair domain.Pair) (Sink[domain.LangLink], error)
}

// Registry owns one sink per partition key, created on first use.
// It is not safe for concurrent use; give each producer its own Registry.
type Registry struct {
	factory SinkFactory
	pages   map[string]Sink[domain.Page]
	links   map[domain.Pair]Sink[domain.LangLink]
	counts  map[string]int
	order   []string
	targets map[string]struct{}
	closed  bool
}

// NewRegistry creates a Registry backed by factory.
func NewRegistry(factory SinkFactory) *Registry {
	return &Registry{
		factory: factory,
		pages:   make(map[string]Sink[domain.Page]),
		links:   make(map[domain.Pair]Sink[domain.LangLink]),
		counts:  make(map[string]int),
		targets: make(map[string]struct{}),
	}
}

// Add routes rec to the sink of its language or pair.
func (r *Registry) Add(rec domain.Record) error {
	if r.closed {
		return errors.New("partition: registry closed")
	}

	switch v := rec.(type) {
	case domain.Page:
		sink, err := r.pageSink(v.Lang)
		if err != nil {
			return err
		}
		if err := sink.Write(v); err != nil {
			return fmt.Errorf("partition: write page %s/%d: %w", v.Lang, v.ID, err)
		}
		r.count(pageKey(v.Lang))
	case domain.LangLink:
		pair := v.Pair()
		sink, err := r.linkSink(pair)
		if err != nil {
			return err
		}
		if err := sink.Write(v); err != nil {
			return fmt.Errorf("partition: write link %s/%d: %w", pair, v.PageID, err)
		}
		r.targets[v.TargetLang] = struct{}{}
		r.count(linkKey(pair))
	default:
		return fmt.Errorf("partition: unsupported record %T", rec)
	}
	return nil
}

func (r *Registry) pageSink(lang string) (Sink[domain.Page], error) {
	if s, ok := r.pages[lang]; ok {
		return s, nil
	}
	s, err := r.factory.PageSink(lang)
	if err != nil {
		return nil, fmt.Errorf("partition: open page sink %s: %w", lang, err)
	}
	r.pages[lang] = s
	return s, nil
}

func (r *Registry) linkSink(pair domain.Pair) (Sink[domain.LangLink], error) {
	if s, ok := r.links[pair]; ok {
		return s, nil
	}
	s, err := r.factory.LinkSink(pair)
	if err != nil {
		return nil, fmt.Errorf("partition: open link sink %s: %w", pair, err)
	}
	r.links[pair] = s
	return s, nil
}

func (r *Registry) count(key string) {
	if _, ok := r.counts[key]; !ok {
		r.order = append(r.order, key)
	}
	r.counts[key]++
}

// Close flushes and closes every sink. A failing sink does not prevent the
// others from closing; all failures are joined.
func (r *Registry) Close() error {
	return r.finish(false)
}

// Abort drops every sink without making any table durable.
func (r *Registry) Abort() error {
	return r.finish(true)
}

func (r *Registry) finish(abort bool) error {
	if r.closed {
		return nil
	}
	r.closed = true

	errs := finishAll(r.pages, abort, pageKey)
	errs = append(errs, finishAll(r.links, abort, linkKey)...)
	return errors.Join(errs...)
}

func finishAll[K comparable, T any](sinks map[K]Sink[T], abort bool, key func(K) string) []error {
	var errs []error
	for k, s := range sinks {
		var err error
		if abort {
			err = s.Abort()
		} else {
			err = s.Close()
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key(k), err))
		}
	}
	return errs
}

// Targets returns the sorted target languages seen in link records.
func (r *Registry) Targets() []string {
	out := make([]string, 0, len(r.targets))
	for t := range r.targets {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// Count is the number of rows routed to one partition.
type Count struct {
	Key  string
	Rows int
}

// Counts returns per-partition row counts in first-seen order.
func (r *Registry) Counts() []Count {
	out := make([]Count, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, Count{Key: k, Rows: r.counts[k]})
	}
	return out
}

func pageKey(lang string) string       { return "page/" + lang }
func linkKey(pair domain.Pair) string { return "langlinks/" + pair.Source + "/to_" + pair.Target }
