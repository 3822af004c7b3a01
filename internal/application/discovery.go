package application

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ericfisherdev/panelkeeper/internal/domain/model"
	"github.com/ericfisherdev/panelkeeper/internal/domain/port/driven"
	"github.com/ericfisherdev/panelkeeper/internal/domain/redact"
)

// latchState is the state of a oneShotLatch.
type latchState int32

const (
	latchArmed latchState = iota
	latchDisarmed
)

// oneShotLatch moves from armed to disarmed exactly once.
type oneShotLatch struct {
	state atomic.Int32
}

// Armed reports whether the latch has not fired yet.
func (l *oneShotLatch) Armed() bool {
	return latchState(l.state.Load()) == latchArmed
}

// Fire disarms the latch. Only the first caller gets true.
func (l *oneShotLatch) Fire() bool {
	return l.state.CompareAndSwap(int32(latchArmed), int32(latchDisarmed))
}

var errNoDataKey = errors.New("inventory response has no data key")

// inventoryItem is one entry of an inventory page.
type inventoryItem struct {
	Object     string `json:"object"`
	Attributes struct {
		Identifier string `json:"identifier"`
		Name       string `json:"name"`
	} `json:"attributes"`
}

// parseInventory extracts resources of objectType from an inventory page.
// Entries that are not objects, have another type or lack an identifier are
// skipped.
func parseInventory(body []byte, objectType string, profile model.SiteProfile) ([]model.Resource, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	raw, ok := envelope["data"]
	if !ok {
		return nil, errNoDataKey
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}

	resources := make([]model.Resource, 0, len(items))
	for _, rawItem := range items {
		var item inventoryItem
		if err := json.Unmarshal(rawItem, &item); err != nil {
			continue
		}
		if item.Object != objectType || item.Attributes.Identifier == "" {
			continue
		}
		name := item.Attributes.Name
		if name == "" {
			name = "unknown"
		}
		resources = append(resources, model.Resource{
			ID:      item.Attributes.Identifier,
			Name:    name,
			Address: profile.ResourceURL(item.Attributes.Identifier),
		})
	}
	return resources, nil
}

// Discovery builds an account's inventory from the responses the landing
// page loads anyway. Only the first successfully parsed inventory response
// is used; later ones are ignored.
type Discovery struct {
	profile model.SiteProfile
	latch   oneShotLatch
	found   chan []model.Resource

	mu   sync.Mutex
	stop func()
}

// NewDiscovery creates an armed Discovery for one page.
func NewDiscovery(profile model.SiteProfile) *Discovery {
	return &Discovery{
		profile: profile,
		found:   make(chan []model.Resource, 1),
	}
}

// Arm starts observing page. It must be called before the landing page is
// loaded. A profile without an inventory pattern leaves Discovery idle.
func (d *Discovery) Arm(ctx context.Context, page driven.Page) {
	pattern := d.profile.Inventory
	if pattern.PathFragment == "" {
		return
	}

	match := func(url string, status int) bool {
		return d.latch.Armed() && status == http.StatusOK && pattern.Matches(url)
	}
	stop := page.ObserveResponses(ctx, match, d.handle)

	d.mu.Lock()
	d.stop = stop
	d.mu.Unlock()
}

func (d *Discovery) handle(resp driven.Response) {
	if !d.latch.Armed() {
		return
	}

	resources, err := parseInventory(resp.Body, d.profile.Inventory.ObjectType, d.profile)
	if err != nil {
		slog.Warn("failed to parse inventory response", "error", err)
		return
	}
	if !d.latch.Fire() {
		return
	}

	for _, r := range resources {
		slog.Info("resource discovered", "name", r.DisplayName(), "id", redact.MaskID(r.ID))
	}
	d.found <- resources
}

// Collect returns the captured inventory, waiting up to grace for it. The
// observer is stopped before Collect returns. captured is false when no
// inventory response was seen.
func (d *Discovery) Collect(ctx context.Context, grace time.Duration) (resources []model.Resource, captured bool) {
	defer d.Stop()

	select {
	case resources = <-d.found:
		return resources, true
	default:
	}
	if d.profile.Inventory.PathFragment == "" || grace <= 0 {
		return nil, false
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case resources = <-d.found:
		return resources, true
	case <-timer.C:
	case <-ctx.Done():
	}
	return nil, false
}

// Stop detaches the response observer. It is safe to call more than once.
func (d *Discovery) Stop() {
	d.mu.Lock()
	stop := d.stop
	d.stop = nil
	d.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// StaticResource builds the fallback resource for a configured identifier.
func StaticResource(profile model.SiteProfile, id string) model.Resource {
	return model.Resource{ID: id, Address: profile.ResourceURL(id)}
}
