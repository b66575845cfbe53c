package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Evaluation 留出集评估结果
type Evaluation struct {
	TrainSize int     `json:"train_size"`
	ValSize   int     `json:"val_size"`
	Accuracy  float64 `json:"accuracy"`
}

// PersonalModel 单用户随机森林 + 标准化参数
type PersonalModel struct {
	Scaler     *StandardScaler `json:"scaler"`
	Forest     *RandomForest   `json:"forest"`
	TrainedAt  time.Time       `json:"trained_at"`
	Evaluation Evaluation      `json:"evaluation"`
}

// PredictProba 标准化后预测
func (m *PersonalModel) PredictProba(x []float64) (float64, error) {
	if m.Scaler == nil || m.Forest == nil {
		return 0, errors.New("personal model is incomplete")
	}
	scaled, err := m.Scaler.Transform(x)
	if err != nil {
		return 0, err
	}
	return finite(m.Forest.PredictProba(scaled))
}

// EnsembleModel 随机森林与 SVM 软投票
type EnsembleModel struct {
	Scaler     *StandardScaler `json:"scaler"`
	Forest     *RandomForest   `json:"forest"`
	SVM        *KernelSVM      `json:"svm"`
	TrainedAt  time.Time       `json:"trained_at"`
	Evaluation Evaluation      `json:"evaluation"`
}

// PredictProba 两个分类器正类概率的平均值
func (m *EnsembleModel) PredictProba(x []float64) (float64, error) {
	if m.Scaler == nil || m.Forest == nil || m.SVM == nil {
		return 0, errors.New("ensemble model is incomplete")
	}
	scaled, err := m.Scaler.Transform(x)
	if err != nil {
		return 0, err
	}
	return finite((m.Forest.PredictProba(scaled) + m.SVM.PredictProba(scaled)) / 2)
}

func finite(p float64) (float64, error) {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, errors.New("non-finite probability")
	}
	return p, nil
}

// Split 80/20 随机划分（固定种子）
type Split struct {
	TrainX [][]float64
	TrainY []int
	ValX   [][]float64
	ValY   []int
}

// TrainTestSplit 按 valFraction 留出验证集，验证集大小向上取整
func TrainTestSplit(X [][]float64, y []int, valFraction float64, seed int64) (Split, error) {
	n := len(X)
	if n != len(y) {
		return Split{}, errors.New("split: mismatched data")
	}
	nVal := int(math.Ceil(float64(n) * valFraction))
	if n-nVal < 1 {
		return Split{}, fmt.Errorf("split: %d rows is not enough", n)
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	var s Split
	for k, i := range perm {
		if k < nVal {
			s.ValX = append(s.ValX, X[i])
			s.ValY = append(s.ValY, y[i])
		} else {
			s.TrainX = append(s.TrainX, X[i])
			s.TrainY = append(s.TrainY, y[i])
		}
	}
	return s, nil
}

// TrainOptions 训练参数
type TrainOptions struct {
	ValFraction float64
	Seed        int64
	Forest      ForestParams
	SVM         SVMParams
	Now         func() time.Time
}

func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		ValFraction: 0.2,
		Seed:        42,
		Forest:      DefaultForestParams(),
		SVM:         DefaultSVMParams(),
		Now:         time.Now,
	}
}

func (o TrainOptions) prepare(X [][]float64, y []int) (Split, *StandardScaler, [][]float64, [][]float64, error) {
	split, err := TrainTestSplit(X, y, o.ValFraction, o.Seed)
	if err != nil {
		return Split{}, nil, nil, nil, err
	}
	scaler, err := FitScaler(split.TrainX)
	if err != nil {
		return Split{}, nil, nil, nil, err
	}
	trainX, err := scaler.TransformAll(split.TrainX)
	if err != nil {
		return Split{}, nil, nil, nil, err
	}
	valX, err := scaler.TransformAll(split.ValX)
	if err != nil {
		return Split{}, nil, nil, nil, err
	}
	return split, scaler, trainX, valX, nil
}

// TrainPersonal 训练单用户随机森林
func TrainPersonal(X [][]float64, y []int, o TrainOptions) (*PersonalModel, error) {
	split, scaler, trainX, valX, err := o.prepare(X, y)
	if err != nil {
		return nil, err
	}
	forest, err := TrainForest(trainX, split.TrainY, o.Forest)
	if err != nil {
		return nil, err
	}
	m := &PersonalModel{Scaler: scaler, Forest: forest, TrainedAt: o.now()}
	m.Evaluation = evaluate(forest.PredictProba, valX, split.ValY, len(trainX))
	return m, nil
}

// TrainEnsemble 在同一划分上分别训练随机森林和 SVM
func TrainEnsemble(X [][]float64, y []int, o TrainOptions) (*EnsembleModel, error) {
	split, scaler, trainX, valX, err := o.prepare(X, y)
	if err != nil {
		return nil, err
	}
	forest, err := TrainForest(trainX, split.TrainY, o.Forest)
	if err != nil {
		return nil, err
	}
	svm, err := TrainSVM(trainX, split.TrainY, o.SVM)
	if err != nil {
		return nil, err
	}
	m := &EnsembleModel{Scaler: scaler, Forest: forest, SVM: svm, TrainedAt: o.now()}
	m.Evaluation = evaluate(func(x []float64) float64 {
		return (forest.PredictProba(x) + svm.PredictProba(x)) / 2
	}, valX, split.ValY, len(trainX))
	return m, nil
}

func (o TrainOptions) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

func evaluate(proba func([]float64) float64, X [][]float64, y []int, trainSize int) Evaluation {
	ev := Evaluation{TrainSize: trainSize, ValSize: len(X)}
	if len(X) == 0 {
		return ev
	}
	correct := 0
	for i, x := range X {
		pred := 0
		if proba(x) > 0.5 {
			pred = 1
		}
		if pred == y[i] {
			correct++
		}
	}
	ev.Accuracy = float64(correct) / float64(len(X))
	return ev
}
