package ml

import (
	"errors"
	"math"
	"math/rand"
)

// ErrSingleClass 训练数据只有一个类别（SVM 无法训练）
var ErrSingleClass = errors.New("training data contains a single class")

// SVMParams RBF 核 SVM 参数
type SVMParams struct {
	C      float64 // 正则化强度（lambda = 1 / (n*C)）
	Gamma  float64 // <=0 时使用 1 / (d * var(X))
	Epochs int     // Pegasos 迭代轮数，每轮 n 次
	Seed   int64
}

func DefaultSVMParams() SVMParams {
	return SVMParams{C: 1, Epochs: 10, Seed: 42}
}

// KernelSVM 核 Pegasos 训练的 RBF SVM，概率由 Platt scaling 给出
type KernelSVM struct {
	Gamma   float64     `json:"gamma"`
	Vectors [][]float64 `json:"support_vectors"`
	Coef    []float64   `json:"coef"`
	PlattA  float64     `json:"platt_a"`
	PlattB  float64     `json:"platt_b"`
}

// TrainSVM 训练 SVM 并在训练集决策值上拟合 Platt 参数
func TrainSVM(X [][]float64, y []int, p SVMParams) (*KernelSVM, error) {
	n := len(X)
	if n == 0 || n != len(y) {
		return nil, errors.New("svm: empty or mismatched training data")
	}
	pos := 0
	for _, v := range y {
		pos += v
	}
	if pos == 0 || pos == n {
		return nil, ErrSingleClass
	}
	if p.C <= 0 {
		p.C = 1
	}
	if p.Epochs <= 0 {
		p.Epochs = DefaultSVMParams().Epochs
	}
	gamma := p.Gamma
	if gamma <= 0 {
		gamma = scaleGamma(X)
	}

	sign := make([]float64, n)
	for i, v := range y {
		sign[i] = -1
		if v == 1 {
			sign[i] = 1
		}
	}

	lambda := 1 / (float64(n) * p.C)
	iters := p.Epochs * n
	alpha := make([]int, n)
	active := make([]int, 0, n)
	rng := rand.New(rand.NewSource(p.Seed))

	for t := 1; t <= iters; t++ {
		i := rng.Intn(n)
		s := 0.0
		for _, j := range active {
			s += float64(alpha[j]) * sign[j] * rbf(gamma, X[j], X[i])
		}
		if sign[i]*s/(lambda*float64(t)) < 1 {
			if alpha[i] == 0 {
				active = append(active, i)
			}
			alpha[i]++
		}
	}

	m := &KernelSVM{Gamma: gamma}
	norm := 1 / (lambda * float64(iters))
	for _, j := range active {
		row := make([]float64, len(X[j]))
		copy(row, X[j])
		m.Vectors = append(m.Vectors, row)
		m.Coef = append(m.Coef, float64(alpha[j])*sign[j]*norm)
	}

	dec := make([]float64, n)
	for i := range X {
		dec[i] = m.Decision(X[i])
	}
	m.PlattA, m.PlattB = fitPlatt(dec, y)
	return m, nil
}

// Decision 决策函数值（>0 倾向正类）
func (m *KernelSVM) Decision(x []float64) float64 {
	s := 0.0
	for k, v := range m.Vectors {
		s += m.Coef[k] * rbf(m.Gamma, v, x)
	}
	// 核中的常数项起到偏置的作用
	return s
}

// PredictProba 正类概率
func (m *KernelSVM) PredictProba(x []float64) float64 {
	if len(m.Vectors) > 0 && len(x) != len(m.Vectors[0]) {
		return math.NaN()
	}
	return sigmoid(-(m.PlattA*m.Decision(x) + m.PlattB))
}

// rbf exp(-gamma*|a-b|^2) + 1
func rbf(gamma float64, a, b []float64) float64 {
	d := 0.0
	for i := range a {
		diff := a[i] - b[i]
		d += diff * diff
	}
	return math.Exp(-gamma*d) + 1
}

func scaleGamma(X [][]float64) float64 {
	var sum, sumSq, cnt float64
	for _, row := range X {
		for _, v := range row {
			sum += v
			sumSq += v * v
			cnt++
		}
	}
	mean := sum / cnt
	variance := sumSq/cnt - mean*mean
	d := float64(len(X[0]))
	if variance <= 0 || d == 0 {
		return 1
	}
	return 1 / (d * variance)
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// fitPlatt 牛顿法 + 回溯线搜索拟合 P(y=1|f) = 1/(1+exp(A*f+B))
func fitPlatt(dec []float64, y []int) (float64, float64) {
	var prior1, prior0 float64
	for _, v := range y {
		if v == 1 {
			prior1++
		} else {
			prior0++
		}
	}
	hi := (prior1 + 1) / (prior1 + 2)
	lo := 1 / (prior0 + 2)
	t := make([]float64, len(y))
	for i, v := range y {
		t[i] = lo
		if v == 1 {
			t[i] = hi
		}
	}

	const (
		maxIter = 100
		minStep = 1e-10
		sigma   = 1e-12
	)
	A, B := 0.0, math.Log((prior0+1)/(prior1+1))
	objective := func(a, b float64) float64 {
		f := 0.0
		for i, d := range dec {
			z := d*a + b
			if z >= 0 {
				f += t[i]*z + math.Log1p(math.Exp(-z))
			} else {
				f += (t[i]-1)*z + math.Log1p(math.Exp(z))
			}
		}
		return f
	}
	fval := objective(A, B)

	for iter := 0; iter < maxIter; iter++ {
		h11, h22, h21 := sigma, sigma, 0.0
		g1, g2 := 0.0, 0.0
		for i, d := range dec {
			z := d*A + B
			var p, q float64
			if z >= 0 {
				e := math.Exp(-z)
				p, q = e/(1+e), 1/(1+e)
			} else {
				e := math.Exp(z)
				p, q = 1/(1+e), e/(1+e)
			}
			d2 := p * q
			h11 += d * d * d2
			h22 += d2
			h21 += d * d2
			d1 := t[i] - p
			g1 += d * d1
			g2 += d1
		}
		if math.Abs(g1) < 1e-5 && math.Abs(g2) < 1e-5 {
			break
		}

		det := h11*h22 - h21*h21
		dA := -(h22*g1 - h21*g2) / det
		dB := -(-h21*g1 + h11*g2) / det
		gd := g1*dA + g2*dB

		step := 1.0
		for step >= minStep {
			newA, newB := A+step*dA, B+step*dB
			newF := objective(newA, newB)
			if newF < fval+1e-4*step*gd {
				A, B, fval = newA, newB, newF
				break
			}
			step /= 2
		}
		if step < minStep {
			break
		}
	}
	return A, B
}
