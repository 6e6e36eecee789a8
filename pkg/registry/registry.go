// Package registry holds the capability-keyed action handler registry. New
// action types are added by registering a factory, never by branching in the
// dispatcher.
package registry

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/bidflow/bidflow/pkg/protocol"
)

type Registry struct {
	logger    *slog.Logger
	factories map[string]protocol.HandlerFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		factories: make(map[string]protocol.HandlerFactory),
	}
}

// RegisterAction registers a handler factory under its action type. Factories
// are registered once at startup; a later registration under the same type
// replaces the earlier one.
func (r *Registry) RegisterAction(factory protocol.HandlerFactory) {
	r.factories[factory.ID()] = factory
	r.logger.Info("Registered action handler", "action_type", factory.ID())
}

// CreateAction resolves the factory for actionType and binds params into a
// handler.
func (r *Registry) CreateAction(actionType string, params map[string]any) (protocol.ActionHandler, error) {
	factory, ok := r.factories[actionType]
	if !ok {
		return nil, fmt.Errorf("action type '%s' not registered", actionType)
	}

	return factory.Create(params)
}

// IsRegistered reports whether an action type has a handler factory.
func (r *Registry) IsRegistered(actionType string) bool {
	_, ok := r.factories[actionType]

	return ok
}

// ActionSchema returns the params schema for actionType, used by the rule
// service to validate rule actions at save time.
func (r *Registry) ActionSchema(actionType string) (map[string]any, bool) {
	factory, ok := r.factories[actionType]
	if !ok {
		return nil, false
	}

	return factory.Schema(), true
}

// AvailableActions lists registered action types in stable order.
func (r *Registry) AvailableActions() []string {
	types := make([]string, 0, len(r.factories))
	for actionType := range r.factories {
		types = append(types, actionType)
	}

	sort.Strings(types)

	return types
}

// HealthCheck reports registry readiness for the API health endpoint.
func (r *Registry) HealthCheck() (string, bool) {
	if len(r.factories) == 0 {
		return "No action handlers registered", false
	}

	return fmt.Sprintf("%d action handlers registered", len(r.factories)), true
}
