package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

// DenseLayer 全连接层，Weights 形状为 [out][in]
type DenseLayer struct {
	Weights    [][]float64 `json:"weights"`
	Bias       []float64   `json:"bias"`
	Activation string      `json:"activation"` // relu / sigmoid / tanh / linear
}

// ANN 前馈网络（离线训练后导出为 JSON）
type ANN struct {
	FeatureNames []string     `json:"feature_names"`
	Layers       []DenseLayer `json:"layers"`
}

// Validate 检查层间形状，最后一层必须只有一个输出
func (a *ANN) Validate() error {
	if len(a.Layers) == 0 {
		return errors.New("ann: no layers")
	}
	in := len(a.FeatureNames)
	for li, l := range a.Layers {
		if len(l.Weights) == 0 || len(l.Weights) != len(l.Bias) {
			return fmt.Errorf("ann: layer %d weights/bias mismatch", li)
		}
		for _, row := range l.Weights {
			if len(row) != in {
				return fmt.Errorf("ann: layer %d expects input %d, got %d", li, len(row), in)
			}
		}
		switch l.Activation {
		case "relu", "sigmoid", "tanh", "linear", "":
		default:
			return fmt.Errorf("ann: layer %d unknown activation %q", li, l.Activation)
		}
		in = len(l.Weights)
	}
	if in != 1 {
		return fmt.Errorf("ann: output size %d, want 1", in)
	}
	return nil
}

// Forward 返回输出层唯一的值
func (a *ANN) Forward(x []float64) (float64, error) {
	if len(x) != len(a.FeatureNames) {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrDimension, len(x), len(a.FeatureNames))
	}
	cur := x
	for _, l := range a.Layers {
		next := make([]float64, len(l.Weights))
		for o, row := range l.Weights {
			s := l.Bias[o]
			for i, w := range row {
				s += w * cur[i]
			}
			next[o] = activate(l.Activation, s)
		}
		cur = next
	}
	out := cur[0]
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0, errors.New("ann: non-finite output")
	}
	return out, nil
}

func activate(name string, v float64) float64 {
	switch name {
	case "relu":
		return math.Max(0, v)
	case "sigmoid":
		return sigmoid(v)
	case "tanh":
		return math.Tanh(v)
	default:
		return v
	}
}

// LoadANN 从 JSON 文件加载网络
func LoadANN(path string) (*ANN, error) {
	var a ANN
	if err := readJSONFile(path, &a); err != nil {
		return nil, err
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// LoadScaler 从 JSON 文件加载标准化参数
func LoadScaler(path string) (*StandardScaler, error) {
	var s StandardScaler
	if err := readJSONFile(path, &s); err != nil {
		return nil, err
	}
	if len(s.Mean) == 0 || len(s.Mean) != len(s.Scale) {
		return nil, fmt.Errorf("scaler %s: mean/scale mismatch", path)
	}
	return &s, nil
}

func readJSONFile(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// GlobalModel 共享预训练分类器 + 标准化参数
type GlobalModel struct {
	ANN    *ANN
	Scaler *StandardScaler
}

// LoadGlobalModel 启动时加载
func LoadGlobalModel(modelPath, scalerPath string) (*GlobalModel, error) {
	ann, err := LoadANN(modelPath)
	if err != nil {
		return nil, err
	}
	scaler, err := LoadScaler(scalerPath)
	if err != nil {
		return nil, err
	}
	if len(scaler.Mean) != len(ann.FeatureNames) {
		return nil, fmt.Errorf("%w: scaler has %d features, model has %d", ErrDimension, len(scaler.Mean), len(ann.FeatureNames))
	}
	return &GlobalModel{ANN: ann, Scaler: scaler}, nil
}

// FeatureLookup 按名称取特征值
type FeatureLookup interface {
	Feature(name string) (float64, bool)
}

// Predict 按模型声明的特征名取值、标准化、前向传播
func (g *GlobalModel) Predict(src FeatureLookup) (float64, error) {
	x := make([]float64, len(g.ANN.FeatureNames))
	for i, name := range g.ANN.FeatureNames {
		v, ok := src.Feature(name)
		if !ok {
			return 0, fmt.Errorf("unknown feature %q", name)
		}
		x[i] = v
	}
	scaled, err := g.Scaler.Transform(x)
	if err != nil {
		return 0, err
	}
	return g.ANN.Forward(scaled)
}
