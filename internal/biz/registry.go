package biz

import (
	"context"
	"sync"

	"github.com/go-kratos/kratos/v2/log"
)

// Connector is a payment backend the router may pick.
type Connector struct {
	// ID is the stable key: the connector instance id, or its name when absent.
	ID      string `json:"id"`
	Name    string `json:"name"`
	Label   string `json:"label,omitempty"`
	Type    string `json:"type,omitempty"`
	Enabled bool   `json:"enabled"`
}

// DisplayName is the connector name, falling back to its id.
func (c Connector) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}

// ConnectorLister fetches the connectors configured on the merchant profile.
type ConnectorLister interface {
	ListConnectors(ctx context.Context) ([]Connector, error)
}

// ConnectorRegistry holds the connectors of the active profile in insertion order.
// Enabled flags change only through Toggle.
type ConnectorRegistry struct {
	mu    sync.RWMutex
	order []string
	items map[string]Connector
}

// NewConnectorRegistry creates a registry. Duplicate ids are rejected.
func NewConnectorRegistry(connectors []Connector) (*ConnectorRegistry, error) {
	r := &ConnectorRegistry{}
	if err := r.Replace(connectors); err != nil {
		return nil, err
	}
	return r, nil
}

// Replace swaps the whole connector set.
func (r *ConnectorRegistry) Replace(connectors []Connector) error {
	order := make([]string, 0, len(connectors))
	items := make(map[string]Connector, len(connectors))
	for _, c := range connectors {
		if c.ID == "" {
			c.ID = c.Name
		}
		if _, dup := items[c.ID]; dup {
			return newDuplicateConnectorError(c.ID)
		}
		order = append(order, c.ID)
		items[c.ID] = c
	}

	r.mu.Lock()
	r.order, r.items = order, items
	r.mu.Unlock()
	return nil
}

// List returns every connector in registry order.
func (r *ConnectorRegistry) List() []Connector {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Connector, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.items[id])
	}
	return out
}

// Keys returns every connector id in registry order.
func (r *ConnectorRegistry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Enabled returns a snapshot of the enabled connectors.
func (r *ConnectorRegistry) Enabled() []Connector {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Connector, 0, len(r.order))
	for _, id := range r.order {
		if c := r.items[id]; c.Enabled {
			out = append(out, c)
		}
	}
	return out
}

// Get looks a connector up by id.
func (r *ConnectorRegistry) Get(id string) (Connector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.items[id]
	return c, ok
}

// FindByName returns the first connector whose name matches.
func (r *ConnectorRegistry) FindByName(name string) (Connector, bool) {
	if name == "" {
		return Connector{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		if c := r.items[id]; c.Name == name {
			return c, true
		}
	}
	return Connector{}, false
}

// FindByNameOrID matches a reported connector against names first, then ids.
func (r *ConnectorRegistry) FindByNameOrID(value string) (Connector, bool) {
	if c, ok := r.FindByName(value); ok {
		return c, true
	}
	return r.Get(value)
}

// Toggle sets the enabled flag of one connector.
func (r *ConnectorRegistry) Toggle(id string, enabled bool) (Connector, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.items[id]
	if !ok {
		return Connector{}, newConnectorNotFoundError(id)
	}
	c.Enabled = enabled
	r.items[id] = c
	return c, nil
}

// ConnectorUsecase exposes the registry to the service layer and reloads it
// from the merchant account on request.
type ConnectorUsecase struct {
	registry *ConnectorRegistry
	lister   ConnectorLister
	ctrl     *SimulationController
	log      *log.Helper
}

// NewConnectorUsecase creates a connector use case.
func NewConnectorUsecase(registry *ConnectorRegistry, lister ConnectorLister, ctrl *SimulationController, logger log.Logger) *ConnectorUsecase {
	return &ConnectorUsecase{
		registry: registry,
		lister:   lister,
		ctrl:     ctrl,
		log:      log.NewHelper(logger),
	}
}

// List returns the registry contents.
func (uc *ConnectorUsecase) List() []Connector {
	return uc.registry.List()
}

// Toggle enables or disables one connector. It takes effect from the next batch.
func (uc *ConnectorUsecase) Toggle(id string, enabled bool) (Connector, error) {
	c, err := uc.registry.Toggle(id, enabled)
	if err != nil {
		return Connector{}, err
	}
	uc.log.Infow("msg", "connector toggled", "connector_id", id, "enabled", enabled)
	return c, nil
}

// Refresh reloads connectors from the merchant account. Enabled flags of
// connectors that survive the reload are kept. Only allowed while idle.
func (uc *ConnectorUsecase) Refresh(ctx context.Context) ([]Connector, error) {
	if state := uc.ctrl.Status().State; state != StateIdle {
		return nil, newRefreshRejectedError(state)
	}
	listed, err := uc.lister.ListConnectors(ctx)
	if err != nil {
		return nil, err
	}

	previous := make(map[string]bool)
	for _, c := range uc.registry.List() {
		previous[c.ID] = c.Enabled
	}
	for i := range listed {
		if enabled, ok := previous[listed[i].ID]; ok {
			listed[i].Enabled = enabled
		}
	}

	if err := uc.registry.Replace(listed); err != nil {
		return nil, err
	}
	uc.log.Infow("msg", "connectors refreshed", "count", len(listed))
	return uc.registry.List(), nil
}
