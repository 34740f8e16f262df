// Package onnxmodel runs trained forecasting models exported to ONNX.
package onnxmodel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/crimson-sun/ucrf/internal/engine/registry"
	"github.com/crimson-sun/ucrf/internal/model"
)

// FeatureNamesKey is the custom metadata key listing the column order a
// single-tensor model was trained on, as a JSON array or comma list.
const FeatureNamesKey = "feature_names"

// ortEnv manages global ONNX Runtime initialization (process-wide singleton).
var ortEnv struct {
	once sync.Once
	err  error
}

// initORT initializes the ONNX Runtime environment. Safe to call multiple
// times; only the first call has any effect.
func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// Model is a loaded ONNX predictor. Sessions are safe for concurrent Run
// calls, so one Model serves all requests.
type Model struct {
	name    string
	session *ort.DynamicAdvancedSession
	inputs  []ort.InputOutputInfo
	output  string
	schema  model.Schema
	// tensor is true when all features go into one [1, N] input.
	tensor bool
}

// Decoder returns a registry.Decoder that loads ONNX bytes with the
// runtime library at libPath.
func Decoder(libPath string) registry.Decoder {
	return func(name string, data []byte) (registry.Artifact, error) {
		return Load(libPath, name, data)
	}
}

// Load creates an inference session from serialized model bytes and
// discovers the input schema the model advertises.
func Load(libPath, name string, data []byte) (*Model, error) {
	if err := initORT(libPath); err != nil {
		return nil, fmt.Errorf("onnx: failed to initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfoWithONNXData(data)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to read model info for %s: %w", name, err)
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("onnx: model %s has no inputs", name)
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("onnx: model %s has no outputs", name)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(1)
	opts.SetInterOpNumThreads(1)

	inputNames := make([]string, len(inputs))
	for i, in := range inputs {
		inputNames[i] = in.Name
	}
	outputName := outputs[0].Name

	session, err := ort.NewDynamicAdvancedSessionWithONNXData(data, inputNames, []string{outputName}, opts)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session for %s: %w", name, err)
	}

	featureNames, err := readFeatureNames(session)
	if err != nil {
		session.Destroy()
		return nil, fmt.Errorf("onnx: reading metadata of %s: %w", name, err)
	}

	schema, tensor := schemaFor(inputs, featureNames)
	return &Model{
		name:    name,
		session: session,
		inputs:  inputs,
		output:  outputName,
		schema:  schema,
		tensor:  tensor,
	}, nil
}

func readFeatureNames(s *ort.DynamicAdvancedSession) ([]string, error) {
	meta, err := s.GetModelMetadata()
	if err != nil {
		return nil, err
	}
	defer meta.Destroy()

	raw, ok, err := meta.LookupCustomMetadataMap(FeatureNamesKey)
	if err != nil || !ok {
		return nil, err
	}
	return parseFeatureNames(raw), nil
}

// parseFeatureNames accepts `["a","b"]` or `a,b`.
func parseFeatureNames(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var names []string
	if strings.HasPrefix(raw, "[") && json.Unmarshal([]byte(raw), &names) == nil {
		return names
	}
	names = names[:0]
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	return names
}

// schemaFor derives the advertised schema from the graph inputs. Models
// with one input per feature are named by their inputs; single-tensor
// models are named by metadata when present, otherwise only their width
// is known.
func schemaFor(inputs []ort.InputOutputInfo, featureNames []string) (model.Schema, bool) {
	for _, in := range inputs {
		if !numeric(in.DataType) {
			return model.Schema{
				Unsupported: fmt.Errorf("input %q has element type %v", in.Name, in.DataType),
			}, false
		}
	}

	if len(inputs) > 1 {
		names := make([]string, len(inputs))
		for i, in := range inputs {
			names[i] = in.Name
		}
		return model.Schema{Names: names, Width: len(names)}, false
	}

	width := 0
	if dims := inputs[0].Dimensions; len(dims) > 0 && dims[len(dims)-1] > 0 {
		width = int(dims[len(dims)-1])
	}
	if len(featureNames) > 0 {
		return model.Schema{Names: featureNames, Width: len(featureNames)}, true
	}
	return model.Schema{Width: width}, true
}

func numeric(t ort.TensorElementDataType) bool {
	switch t {
	case ort.TensorElementDataTypeFloat, ort.TensorElementDataTypeDouble,
		ort.TensorElementDataTypeInt64, ort.TensorElementDataTypeInt32:
		return true
	}
	return false
}

// Name returns the artifact name the model was loaded under.
func (m *Model) Name() string { return m.name }

// Schema returns the input schema the model advertises.
func (m *Model) Schema() model.Schema { return m.schema }

// Predict runs the model on a single aligned row and returns its first
// output.
func (m *Model) Predict(ctx context.Context, in model.Features) (model.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return model.Prediction{}, err
	}

	values, err := m.inputValues(in)
	defer func() {
		for _, v := range values {
			v.Destroy()
		}
	}()
	if err != nil {
		return model.Prediction{}, err
	}

	outputs := []ort.Value{nil}
	if err := m.session.Run(values, outputs); err != nil {
		return model.Prediction{}, fmt.Errorf("onnx: inference failed: %w", err)
	}
	defer outputs[0].Destroy()

	return firstOutput(outputs[0])
}

func (m *Model) inputValues(in model.Features) ([]ort.Value, error) {
	vec := in.Numeric()
	if m.tensor {
		v, err := newTensor(m.inputs[0].DataType, vec)
		if err != nil {
			return nil, err
		}
		return []ort.Value{v}, nil
	}

	if len(vec) != len(m.inputs) {
		return nil, fmt.Errorf("onnx: model %s expects %d inputs, got %d features", m.name, len(m.inputs), len(vec))
	}
	values := make([]ort.Value, 0, len(m.inputs))
	for i, info := range m.inputs {
		v, err := newTensor(info.DataType, vec[i:i+1])
		if err != nil {
			return values, err
		}
		values = append(values, v)
	}
	return values, nil
}

// newTensor builds a [1, len(vec)] tensor of the element type the model
// declares.
func newTensor(t ort.TensorElementDataType, vec []float64) (ort.Value, error) {
	shape := ort.NewShape(1, int64(len(vec)))
	var (
		v   ort.Value
		err error
	)
	switch t {
	case ort.TensorElementDataTypeFloat:
		data := make([]float32, len(vec))
		for i, x := range vec {
			data[i] = float32(x)
		}
		v, err = ort.NewTensor(shape, data)
	case ort.TensorElementDataTypeDouble:
		v, err = ort.NewTensor(shape, append([]float64(nil), vec...))
	case ort.TensorElementDataTypeInt64:
		data := make([]int64, len(vec))
		for i, x := range vec {
			data[i] = int64(x)
		}
		v, err = ort.NewTensor(shape, data)
	case ort.TensorElementDataTypeInt32:
		data := make([]int32, len(vec))
		for i, x := range vec {
			data[i] = int32(x)
		}
		v, err = ort.NewTensor(shape, data)
	default:
		return nil, fmt.Errorf("onnx: unsupported input element type %v", t)
	}
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create input tensor: %w", err)
	}
	return v, nil
}

func firstOutput(v ort.Value) (model.Prediction, error) {
	var x float64
	switch t := v.(type) {
	case *ort.Tensor[float32]:
		d := t.GetData()
		if len(d) == 0 {
			return model.Prediction{}, errEmptyOutput
		}
		x = float64(d[0])
	case *ort.Tensor[float64]:
		d := t.GetData()
		if len(d) == 0 {
			return model.Prediction{}, errEmptyOutput
		}
		x = d[0]
	case *ort.Tensor[int64]:
		d := t.GetData()
		if len(d) == 0 {
			return model.Prediction{}, errEmptyOutput
		}
		x = float64(d[0])
	case *ort.Tensor[int32]:
		d := t.GetData()
		if len(d) == 0 {
			return model.Prediction{}, errEmptyOutput
		}
		x = float64(d[0])
	default:
		return model.Prediction{}, fmt.Errorf("onnx: unsupported output type %T", v)
	}
	return model.Prediction{Label: model.Text(x), Value: x}, nil
}

var errEmptyOutput = errors.New("onnx: model returned an empty output")

// Close releases the ONNX session resources.
func (m *Model) Close() error {
	return m.session.Destroy()
}
