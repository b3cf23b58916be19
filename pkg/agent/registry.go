package agent

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/learnloop/mentor/pkg/breaker"
	"github.com/learnloop/mentor/pkg/models"
	"github.com/learnloop/mentor/pkg/routing"
)

// registration pairs a live agent with its protection envelope.
type registration struct {
	agent    Agent
	envelope *Envelope
}

// Registry tracks live agents and their envelopes, and maintains a derived
// intent index for intent-based dispatch. Re-registering a type replaces the
// agent but keeps its circuit breaker: breaker state describes the agent
// slot's recent history, and a hot-swapped replacement must still prove
// itself by closing the existing breaker.
type Registry struct {
	breakers *breaker.Manager

	mu     sync.RWMutex
	agents map[models.AgentType]*registration
	// intents is rebuilt on every registration change. When two agents claim
	// the same intent the routing table's owner wins, otherwise the claim of
	// the lexically first agent type stands.
	intents map[models.Intent]models.AgentType
}

// NewRegistry creates an empty registry drawing breakers from the manager.
func NewRegistry(breakers *breaker.Manager) *Registry {
	return &Registry{
		breakers: breakers,
		agents:   make(map[models.AgentType]*registration),
		intents:  make(map[models.Intent]models.AgentType),
	}
}

// Register adds or replaces the agent for its type and rebuilds the intent
// index. The envelope's breaker comes from the manager keyed by agent type,
// so a replacement inherits the previous registration's breaker state.
func (r *Registry) Register(a Agent) error {
	if a == nil {
		return fmt.Errorf("agent is required")
	}
	if a.Type() == "" {
		return fmt.Errorf("agent type is required")
	}
	if len(a.SupportedIntents()) == 0 {
		return fmt.Errorf("agent %s supports no intents", a.Type())
	}

	cb := r.breakers.Get(string(a.Type()))
	env := NewEnvelope(a, cb)

	r.mu.Lock()
	_, replaced := r.agents[a.Type()]
	r.agents[a.Type()] = &registration{agent: a, envelope: env}
	r.rebuildIntentIndexLocked()
	r.mu.Unlock()

	slog.Info("Agent registered",
		"agent_type", a.Type(),
		"intents", len(a.SupportedIntents()),
		"replaced", replaced,
		"breaker_state", cb.State().String())
	return nil
}

// Unregister removes the agent for the given type and rebuilds the intent
// index. The breaker stays in the manager with its state intact. Returns
// false when no such agent was registered.
func (r *Registry) Unregister(agentType models.AgentType) bool {
	r.mu.Lock()
	_, ok := r.agents[agentType]
	if ok {
		delete(r.agents, agentType)
		r.rebuildIntentIndexLocked()
	}
	r.mu.Unlock()

	if ok {
		slog.Info("Agent unregistered", "agent_type", agentType)
	}
	return ok
}

// Get returns the agent registered for the given type.
func (r *Registry) Get(agentType models.AgentType) (Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.agents[agentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotRegistered, agentType)
	}
	return reg.agent, nil
}

// Envelope returns the protection envelope for the given agent type.
func (r *Registry) Envelope(agentType models.AgentType) (*Envelope, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.agents[agentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotRegistered, agentType)
	}
	return reg.envelope, nil
}

// GetForIntent returns the agent whose supported intents include the given
// intent, per the derived index.
func (r *Registry) GetForIntent(intent models.Intent) (Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agentType, ok := r.intents[intent]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoAgentForIntent, intent)
	}
	return r.agents[agentType].agent, nil
}

// EnvelopeForIntent returns the envelope of the agent serving the given
// intent.
func (r *Registry) EnvelopeForIntent(intent models.Intent) (*Envelope, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agentType, ok := r.intents[intent]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoAgentForIntent, intent)
	}
	return r.agents[agentType].envelope, nil
}

// IsRegistered reports whether an agent of the given type is live.
func (r *Registry) IsRegistered(agentType models.AgentType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.agents[agentType]
	return ok
}

// RegisteredTypes returns the live agent types, sorted.
func (r *Registry) RegisteredTypes() []models.AgentType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedTypesLocked()
}

// SupportedIntents returns every intent some live agent serves, sorted.
func (r *Registry) SupportedIntents() []models.Intent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Intent, 0, len(r.intents))
	for intent := range r.intents {
		out = append(out, intent)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AgentHealth describes one live agent for health reporting.
type AgentHealth struct {
	Type         models.AgentType `json:"agent_type"`
	Intents      []models.Intent  `json:"intents"`
	BreakerState string           `json:"breaker_state"`
	Breaker      breaker.Stats    `json:"breaker"`
}

// Health returns a point-in-time snapshot of every live agent, sorted by
// type.
func (r *Registry) Health() []AgentHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]AgentHealth, 0, len(r.agents))
	for _, agentType := range r.sortedTypesLocked() {
		reg := r.agents[agentType]
		intents := make([]models.Intent, len(reg.agent.SupportedIntents()))
		copy(intents, reg.agent.SupportedIntents())
		sort.Slice(intents, func(i, j int) bool { return intents[i] < intents[j] })
		out = append(out, AgentHealth{
			Type:         agentType,
			Intents:      intents,
			BreakerState: reg.envelope.Breaker().State().String(),
			Breaker:      reg.envelope.Breaker().Stats(),
		})
	}
	return out
}

func (r *Registry) sortedTypesLocked() []models.AgentType {
	types := make([]models.AgentType, 0, len(r.agents))
	for t := range r.agents {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

func (r *Registry) rebuildIntentIndexLocked() {
	idx := make(map[models.Intent]models.AgentType)
	for _, agentType := range r.sortedTypesLocked() {
		for _, intent := range r.agents[agentType].agent.SupportedIntents() {
			if _, claimed := idx[intent]; claimed {
				// Contested claim: defer to the static routing table.
				if owner, routed := routing.RouteIntent(intent); routed && owner == agentType {
					idx[intent] = agentType
				}
				continue
			}
			idx[intent] = agentType
		}
	}
	r.intents = idx
}
