package shipper

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

// Registry manages registered carrier adapters.
type Registry struct {
	carriers map[string]Carrier
	mu       sync.RWMutex
}

// NewRegistry creates a new carrier registry.
func NewRegistry() *Registry {
	return &Registry{
		carriers: make(map[string]Carrier),
	}
}

// Register adds a carrier to the registry.
func (r *Registry) Register(c Carrier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.carriers[c.Name()] = c
}

// Get returns a carrier by name.
func (r *Registry) Get(name string) (Carrier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.carriers[name]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrCarrierNotFound, name)
}

// RateFinder returns the named carrier if it quotes rates.
func (r *Registry) RateFinder(name string) (RateFinder, error) {
	c, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	rf, ok := c.(RateFinder)
	if !ok {
		return nil, fmt.Errorf("%w: %s does not quote rates", ErrUnsupported, name)
	}
	return rf, nil
}

// Tracker returns the named carrier if it reports tracking.
func (r *Registry) Tracker(name string) (Tracker, error) {
	c, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	t, ok := c.(Tracker)
	if !ok {
		return nil, fmt.Errorf("%w: %s does not track shipments", ErrUnsupported, name)
	}
	return t, nil
}

// ShipmentCreator returns the named carrier if it creates shipments.
func (r *Registry) ShipmentCreator(name string) (ShipmentCreator, error) {
	c, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	sc, ok := c.(ShipmentCreator)
	if !ok {
		return nil, fmt.Errorf("%w: %s does not create shipments", ErrUnsupported, name)
	}
	return sc, nil
}

// All returns all registered carriers sorted by name.
func (r *Registry) All() []Carrier {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Carrier, 0, len(r.carriers))
	for _, c := range r.carriers {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// Names returns the sorted names of all registered carriers.
func (r *Registry) Names() []string {
	all := r.All()
	names := make([]string, 0, len(all))
	for _, c := range all {
		names = append(names, c.Name())
	}
	return names
}

// Count returns the number of registered carriers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.carriers)
}

// RateRequest is the input of a multi-carrier rate lookup.
type RateRequest struct {
	Origin      Location
	Destination Location
	Packages    []Package
	Options     RateOptions
}

// FindAllRates fetches rates from every registered RateFinder in parallel.
// Carrier failures do not fail the whole request; they are aggregated into
// the returned error alongside the successful responses.
func (r *Registry) FindAllRates(ctx context.Context, req RateRequest) ([]*RateResponse, error) {
	var names []string
	for _, c := range r.All() {
		if _, ok := c.(RateFinder); ok {
			names = append(names, c.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no carrier quotes rates", ErrCarrierNotFound)
	}
	return r.FindRatesFrom(ctx, req, names)
}

// FindRatesFrom fetches rates from the named carriers in parallel. Results
// keep the order of carriers.
func (r *Registry) FindRatesFrom(ctx context.Context, req RateRequest, carriers []string) ([]*RateResponse, error) {
	if len(carriers) == 0 {
		return r.FindAllRates(ctx, req)
	}

	slots := make([]*RateResponse, len(carriers))
	var (
		mu   sync.Mutex
		errs *multierror.Error
	)

	g, ctx := errgroup.WithContext(ctx)
	for i, name := range carriers {
		g.Go(func() error {
			rf, err := r.RateFinder(name)
			if err == nil {
				slots[i], err = rf.FindRates(ctx, req.Origin, req.Destination, req.Packages, req.Options)
			}
			if err != nil {
				mu.Lock()
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
			}
			return nil // Don't fail the group, continue with other carriers
		})
	}
	_ = g.Wait()

	results := make([]*RateResponse, 0, len(slots))
	for _, resp := range slots {
		if resp != nil {
			results = append(results, resp)
		}
	}
	return results, errs.ErrorOrNil()
}
