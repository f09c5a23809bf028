// Package onnx runs the sentence-embedding model with ONNX Runtime.
package onnx

import (
	"context"
	"fmt"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/mwiater/gyan/internal/embedding"
	"github.com/mwiater/gyan/internal/logging"
	"github.com/mwiater/gyan/internal/tokenizer"
)

var envMu sync.Mutex

// Graph is an embedding.Graph backed by an ONNX Runtime session.
type Graph struct {
	session    *ort.DynamicAdvancedSession
	binding    embedding.Binding
	inputs     []ort.InputOutputInfo
	outputName string
	dimension  int
}

var _ embedding.Graph = (*Graph)(nil)

// Open loads modelPath, binds its inputs by name and prepares a session.
// libraryPath points at the onnxruntime shared library; empty uses the
// platform default search.
func Open(modelPath, libraryPath string, dimension int) (*Graph, error) {
	if err := initEnvironment(libraryPath); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("inspect model %s: %w", modelPath, err)
	}
	names := make([]string, len(inputs))
	for i, in := range inputs {
		names[i] = in.Name
	}
	binding, err := embedding.BindInputs(names)
	if err != nil {
		return nil, fmt.Errorf("bind inputs of %s: %w", modelPath, err)
	}
	outputName, err := pickOutput(outputs)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", modelPath, err)
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath, names, []string{outputName}, nil)
	if err != nil {
		return nil, fmt.Errorf("create session for %s: %w", modelPath, err)
	}
	logging.LogEvent("Loaded embedding model %s (ids=%s mask=%s segment=%s output=%s)",
		modelPath, binding.IDs, binding.Mask, binding.Segment, outputName)

	return &Graph{
		session:    session,
		binding:    binding,
		inputs:     inputs,
		outputName: outputName,
		dimension:  dimension,
	}, nil
}

func initEnvironment(libraryPath string) error {
	envMu.Lock()
	defer envMu.Unlock()
	if ort.IsInitialized() {
		return nil
	}
	if strings.TrimSpace(libraryPath) != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnxruntime: %w", err)
	}
	return nil
}

// pickOutput prefers a pooled output when the model exposes several.
func pickOutput(outputs []ort.InputOutputInfo) (string, error) {
	if len(outputs) == 0 {
		return "", fmt.Errorf("model has no outputs")
	}
	for _, out := range outputs {
		if strings.Contains(strings.ToLower(out.Name), "pool") {
			return out.Name, nil
		}
	}
	return outputs[0].Name, nil
}

// Binding returns the input binding resolved at load.
func (g *Graph) Binding() embedding.Binding {
	return g.binding
}

// Run allocates per-call tensors, so concurrent calls share only the session.
func (g *Graph) Run(ctx context.Context, in embedding.Inputs) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	shape := ort.NewShape(1, int64(tokenizer.SequenceLength))
	values := make([]ort.Value, 0, len(g.inputs))
	defer func() {
		for _, v := range values {
			_ = v.Destroy()
		}
	}()

	for _, info := range g.inputs {
		role, _ := g.binding.RoleOf(info.Name)
		data := in.ForRole(role)
		var (
			value ort.Value
			err   error
		)
		if info.DataType == ort.TensorElementDataTypeInt64 {
			value, err = ort.NewTensor(shape, widen(data))
		} else {
			value, err = ort.NewTensor(shape, append([]int32(nil), data...))
		}
		if err != nil {
			return nil, fmt.Errorf("allocate %s tensor: %w", role, err)
		}
		values = append(values, value)
	}

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(g.dimension)))
	if err != nil {
		return nil, fmt.Errorf("allocate output tensor: %w", err)
	}
	defer output.Destroy()

	if err := g.session.Run(values, []ort.Value{output}); err != nil {
		return nil, err
	}
	return append([]float32(nil), output.GetData()...), nil
}

func widen(data []int32) []int64 {
	out := make([]int64, len(data))
	for i, v := range data {
		out[i] = int64(v)
	}
	return out
}

// Close destroys the session. The runtime environment stays up for other graphs.
func (g *Graph) Close() error {
	if g.session == nil {
		return nil
	}
	err := g.session.Destroy()
	g.session = nil
	return err
}
