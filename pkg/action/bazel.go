package action

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// BazelInputs are the typed inputs of the Bazel workload executor.
type BazelInputs struct {
	Target       string `mapstructure:"target"`
	BazelFlags   string `mapstructure:"bazel_flags"`
	RuntimeFlags string `mapstructure:"runtime_flags"`
}

// bazelAction invokes a Bazel target as the benchmark workload.
type bazelAction struct{}

func (bazelAction) Ref() string { return "bazel" }

func (bazelAction) RequiredInputs() []string { return []string{"target"} }

func (a bazelAction) Resolve(inputs map[string]string) (*InvocationSpec, error) {
	if err := checkRequired(a.Ref(), inputs, a.RequiredInputs()); err != nil {
		return nil, err
	}

	var typed BazelInputs
	if err := mapstructure.Decode(inputs, &typed); err != nil {
		return nil, fmt.Errorf("decoding bazel inputs: %w", err)
	}

	if !strings.HasPrefix(typed.Target, "//") && !strings.HasPrefix(typed.Target, "@") {
		return nil, fmt.Errorf("action %q: target %q is not a bazel label", a.Ref(), typed.Target)
	}

	return &InvocationSpec{Action: a.Ref(), Inputs: inputs}, nil
}

func init() {
	Register(bazelAction{})
}
