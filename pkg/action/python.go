package action

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// PythonInputs are the typed inputs of the Python workload executor.
type PythonInputs struct {
	ScriptPath              string `mapstructure:"script_path"`
	PythonVersion           string `mapstructure:"python_version"`
	RuntimeFlags            string `mapstructure:"runtime_flags"`
	PipOptionalDependencies string `mapstructure:"pip_optional_dependencies"`
}

// pythonAction invokes a Python script as the benchmark workload.
type pythonAction struct{}

func (pythonAction) Ref() string { return "python" }

func (pythonAction) RequiredInputs() []string {
	return []string{"script_path", "python_version"}
}

func (a pythonAction) Resolve(inputs map[string]string) (*InvocationSpec, error) {
	if err := checkRequired(a.Ref(), inputs, a.RequiredInputs()); err != nil {
		return nil, err
	}

	var typed PythonInputs
	if err := mapstructure.Decode(inputs, &typed); err != nil {
		return nil, fmt.Errorf("decoding python inputs: %w", err)
	}

	if !strings.HasSuffix(typed.ScriptPath, ".py") {
		return nil, fmt.Errorf("action %q: script_path %q is not a python script", a.Ref(), typed.ScriptPath)
	}

	return &InvocationSpec{Action: a.Ref(), Inputs: inputs}, nil
}

func init() {
	Register(pythonAction{})
}
