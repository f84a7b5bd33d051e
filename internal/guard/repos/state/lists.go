package state

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/multierr"

	"github.com/haukened/navguard/internal/guard/common/log"
	"github.com/haukened/navguard/internal/guard/common/urlutil"
	"github.com/haukened/navguard/internal/guard/domain"
)

// ErrInvalidEntry is returned when list input cannot be reduced to a domain.
var ErrInvalidEntry = errors.New("invalid list entry")

const (
	defaultListFPRate    = 0.001
	minFilterCapacity    = 1024
	filterHeadroomFactor = 2
)

// ListRepoOptions configures a ListRepo.
type ListRepoOptions struct {
	Store  Store
	Bloom  BloomFactory // nil disables the membership prefilter
	FPRate float64
	Logger log.Logger
}

// ListRepo holds the whitelist and blacklist. A domain lives in at most one
// list: adding it to one removes it from the other in the same write.
type ListRepo struct {
	mu      sync.RWMutex
	store   Store
	logger  log.Logger
	bloom   BloomFactory
	fpRate  float64
	sets    [2]map[string]struct{}
	filters [2]BloomFilter
	caps    [2]int
}

// NewListRepo loads both lists from the store. Unreadable lists start empty.
func NewListRepo(opts ListRepoOptions) *ListRepo {
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	if opts.FPRate <= 0 || opts.FPRate >= 1 {
		opts.FPRate = defaultListFPRate
	}
	r := &ListRepo{
		store:  opts.Store,
		logger: opts.Logger,
		bloom:  opts.Bloom,
		fpRate: opts.FPRate,
	}
	for _, kind := range []domain.ListKind{domain.Whitelist, domain.Blacklist} {
		var entries []string
		Load(opts.Store, listKey(kind), &entries, opts.Logger)
		set := make(map[string]struct{}, len(entries))
		for _, e := range entries {
			if d, err := urlutil.DomainFromInput(e); err == nil {
				set[d] = struct{}{}
			}
		}
		r.sets[kind] = set
		r.rebuildFilter(kind)
	}
	r.logger.Info(map[string]any{
		"whitelist": len(r.sets[domain.Whitelist]),
		"blacklist": len(r.sets[domain.Blacklist]),
	}, "lists loaded")
	return r
}

// Contains reports whether host is on the given list. The bloom filter
// answers most negatives without touching the map.
func (r *ListRepo) Contains(kind domain.ListKind, host string) bool {
	host = urlutil.CanonicalHost(host)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if f := r.filters[kind]; f != nil && !f.MightContain([]byte(host)) {
		return false
	}
	_, ok := r.sets[kind][host]
	return ok
}

// Add puts the domain named by input (a bare domain or URL) on the list and
// removes it from the other list. It returns the canonical domain.
func (r *ListRepo) Add(kind domain.ListKind, input string) (string, error) {
	d, err := urlutil.DomainFromInput(input)
	if err != nil {
		return "", invalidEntry(input, err)
	}
	if _, err := r.apply(kind, []string{d}); err != nil {
		return "", err
	}
	return d, nil
}

// Import adds many entries to one list in a single write. Invalid entries
// are skipped and reported in the combined error; valid ones are still
// applied unless the write itself fails.
func (r *ListRepo) Import(kind domain.ListKind, inputs []string) (int, error) {
	var (
		errs  error
		valid = make([]string, 0, len(inputs))
	)
	for _, in := range inputs {
		d, err := urlutil.DomainFromInput(in)
		if err != nil {
			errs = multierr.Append(errs, invalidEntry(in, err))
			continue
		}
		valid = append(valid, d)
	}
	added, err := r.apply(kind, valid)
	if err != nil {
		return 0, multierr.Append(errs, err)
	}
	r.logger.Info(map[string]any{"list": kind.String(), "added": added, "skipped": len(multierr.Errors(errs))}, "list import done")
	return added, errs
}

// apply moves domains onto kind. Nothing changes in memory unless the
// write succeeds.
func (r *ListRepo) apply(kind domain.ListKind, domains []string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	other := kind.Other()
	target := cloneSet(r.sets[kind])
	opposite := r.sets[other]
	movedOut := false
	added := 0
	for _, d := range domains {
		if _, ok := target[d]; !ok {
			target[d] = struct{}{}
			added++
		}
		if _, ok := opposite[d]; ok {
			if !movedOut {
				opposite = cloneSet(opposite)
				movedOut = true
			}
			delete(opposite, d)
		}
	}
	if added == 0 && !movedOut {
		return 0, nil
	}

	values := map[string]any{listKey(kind): sortedKeys(target)}
	if movedOut {
		values[listKey(other)] = sortedKeys(opposite)
	}
	if err := SaveMany(r.store, values); err != nil {
		return 0, err
	}

	r.sets[kind] = target
	if f := r.filters[kind]; f != nil {
		if len(target) > r.caps[kind] {
			r.rebuildFilter(kind)
		} else {
			for _, d := range domains {
				f.Add([]byte(d))
			}
		}
	}
	if movedOut {
		r.sets[other] = opposite
		r.rebuildFilter(other)
	}
	r.logger.Debug(map[string]any{"list": kind.String(), "added": added, "moved": movedOut}, "list updated")
	return added, nil
}

// Remove deletes the domain from the list. It reports false, with no write,
// when the domain was not listed.
func (r *ListRepo) Remove(kind domain.ListKind, input string) (bool, error) {
	d, err := urlutil.DomainFromInput(input)
	if err != nil {
		return false, invalidEntry(input, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sets[kind][d]; !ok {
		return false, nil
	}
	next := cloneSet(r.sets[kind])
	delete(next, d)
	if err := Save(r.store, listKey(kind), sortedKeys(next)); err != nil {
		return false, err
	}
	r.sets[kind] = next
	r.rebuildFilter(kind)
	r.logger.Debug(map[string]any{"list": kind.String(), "domain": d}, "list entry removed")
	return true, nil
}

// Entries returns one list, sorted.
func (r *ListRepo) Entries(kind domain.ListKind) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.sets[kind])
}

// Snapshot returns both lists, sorted.
func (r *ListRepo) Snapshot() domain.Lists {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return domain.Lists{
		Whitelist: sortedKeys(r.sets[domain.Whitelist]),
		Blacklist: sortedKeys(r.sets[domain.Blacklist]),
	}
}

// rebuildFilter sizes a fresh filter for the list with headroom for growth.
// Caller holds the write lock (or is the constructor).
func (r *ListRepo) rebuildFilter(kind domain.ListKind) {
	if r.bloom == nil {
		return
	}
	set := r.sets[kind]
	capacity := len(set) * filterHeadroomFactor
	if capacity < minFilterCapacity {
		capacity = minFilterCapacity
	}
	f := r.bloom.New(uint64(capacity), r.fpRate)
	for d := range set {
		f.Add([]byte(d))
	}
	r.filters[kind] = f
	r.caps[kind] = capacity
}

// invalidEntry wraps a rejected list input. The cause is formatted rather
// than wrapped so multierr.Errors yields one error per entry.
func invalidEntry(input string, cause error) error {
	return fmt.Errorf("%w: %q (%v)", ErrInvalidEntry, input, cause)
}

func cloneSet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in)+1)
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var _ ListChecker = (*ListRepo)(nil)
