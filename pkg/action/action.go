// Package action models the workload executor actions a benchmark can
// reference. Each action declares the inputs it requires and resolves a
// merged input map into a concrete invocation spec for the CI
// orchestrator. The engine never executes invocations itself.
package action

import (
	"fmt"
	"sort"
)

// InvocationSpec describes one executor invocation. It is handed to the
// surrounding CI workflow verbatim.
type InvocationSpec struct {
	// Action is the reference of the executor action to invoke.
	Action string `json:"action"`
	// Inputs are the fully merged inputs for the invocation.
	Inputs map[string]string `json:"inputs"`
}

// Action is the capability interface implemented by workload executors.
type Action interface {
	// Ref returns the action reference used in the registry.
	Ref() string
	// RequiredInputs lists input keys that must be present after the
	// base and environment input maps have been merged.
	RequiredInputs() []string
	// Resolve validates the merged inputs and produces an invocation.
	Resolve(inputs map[string]string) (*InvocationSpec, error)
}

// registry of known actions, extensible via Register.
var actions = map[string]Action{}

// Register adds an action to the lookup table. Registering a duplicate
// reference panics; action references must be unique.
func Register(a Action) {
	if _, exists := actions[a.Ref()]; exists {
		panic(fmt.Sprintf("action %q registered twice", a.Ref()))
	}

	actions[a.Ref()] = a
}

// Lookup returns the action for ref.
func Lookup(ref string) (Action, error) {
	a, ok := actions[ref]
	if !ok {
		return nil, fmt.Errorf("unknown action %q (known: %v)", ref, Refs())
	}

	return a, nil
}

// Refs returns the sorted references of all registered actions.
func Refs() []string {
	refs := make([]string, 0, len(actions))
	for ref := range actions {
		refs = append(refs, ref)
	}

	sort.Strings(refs)

	return refs
}

// checkRequired verifies that every required key is present and non-empty.
func checkRequired(ref string, inputs map[string]string, required []string) error {
	for _, key := range required {
		if inputs[key] == "" {
			return fmt.Errorf("action %q: required input %q is missing", ref, key)
		}
	}

	return nil
}
