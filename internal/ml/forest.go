package ml

import (
	"errors"
	"math"
	"math/rand"
	"sort"
)

// ForestParams 随机森林参数
type ForestParams struct {
	NumTrees       int
	MaxDepth       int
	MinSamplesLeaf int
	Seed           int64
}

// DefaultForestParams 100 棵树，固定随机种子
func DefaultForestParams() ForestParams {
	return ForestParams{NumTrees: 100, MaxDepth: 12, MinSamplesLeaf: 1, Seed: 42}
}

// TreeNode 扁平化存储的 CART 节点；Leaf 节点的 Value 为正类比例
type TreeNode struct {
	Leaf      bool    `json:"leaf,omitempty"`
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Value     float64 `json:"v"`
}

// DecisionTree 节点 0 为根
type DecisionTree struct {
	Nodes []TreeNode `json:"nodes"`
}

func (t *DecisionTree) predict(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// RandomForest 二分类随机森林（bootstrap + 每次分裂随机 sqrt(d) 个特征）
type RandomForest struct {
	NumFeatures int             `json:"num_features"`
	Trees       []*DecisionTree `json:"trees"`
}

// TrainForest 训练随机森林；y 取值 0/1
func TrainForest(X [][]float64, y []int, p ForestParams) (*RandomForest, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, errors.New("forest: empty or mismatched training data")
	}
	d := len(X[0])
	for _, row := range X {
		if len(row) != d {
			return nil, ErrDimension
		}
	}
	if p.NumTrees <= 0 {
		p.NumTrees = DefaultForestParams().NumTrees
	}
	if p.MinSamplesLeaf <= 0 {
		p.MinSamplesLeaf = 1
	}
	mtry := int(math.Sqrt(float64(d)))
	if mtry < 1 {
		mtry = 1
	}

	rng := rand.New(rand.NewSource(p.Seed))
	forest := &RandomForest{NumFeatures: d, Trees: make([]*DecisionTree, 0, p.NumTrees)}
	n := len(X)
	for t := 0; t < p.NumTrees; t++ {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = rng.Intn(n)
		}
		b := &treeBuilder{X: X, y: y, params: p, mtry: mtry, rng: rng}
		b.build(idx, 0)
		forest.Trees = append(forest.Trees, &DecisionTree{Nodes: b.nodes})
	}
	return forest, nil
}

// PredictProba 所有树叶子概率的平均值
func (f *RandomForest) PredictProba(x []float64) float64 {
	if len(f.Trees) == 0 || len(x) != f.NumFeatures {
		return math.NaN()
	}
	sum := 0.0
	for _, t := range f.Trees {
		sum += t.predict(x)
	}
	return sum / float64(len(f.Trees))
}

type treeBuilder struct {
	X      [][]float64
	y      []int
	params ForestParams
	mtry   int
	rng    *rand.Rand
	nodes  []TreeNode
}

// build 返回新节点的下标
func (b *treeBuilder) build(idx []int, depth int) int {
	pos := 0
	for _, i := range idx {
		pos += b.y[i]
	}
	value := float64(pos) / float64(len(idx))

	self := len(b.nodes)
	b.nodes = append(b.nodes, TreeNode{Leaf: true, Value: value})

	if pos == 0 || pos == len(idx) ||
		(b.params.MaxDepth > 0 && depth >= b.params.MaxDepth) ||
		len(idx) < 2*b.params.MinSamplesLeaf {
		return self
	}

	feature, threshold, ok := b.bestSplit(idx, pos)
	if !ok {
		return self
	}

	var left, right []int
	for _, i := range idx {
		if b.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[self] = TreeNode{Feature: feature, Threshold: threshold, Left: l, Right: r, Value: value}
	return self
}

// bestSplit 基尼不纯度最小的分裂
func (b *treeBuilder) bestSplit(idx []int, pos int) (int, float64, bool) {
	d := len(b.X[0])
	features := b.rng.Perm(d)[:b.mtry]

	n := float64(len(idx))
	bestScore := gini(float64(pos), n)
	bestFeature, bestThreshold, found := -1, 0.0, false

	sorted := make([]int, len(idx))
	for _, f := range features {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, c int) bool { return b.X[sorted[a]][f] < b.X[sorted[c]][f] })

		leftPos, leftN := 0.0, 0.0
		for k := 0; k < len(sorted)-1; k++ {
			leftN++
			leftPos += float64(b.y[sorted[k]])
			cur, next := b.X[sorted[k]][f], b.X[sorted[k+1]][f]
			if cur == next {
				continue
			}
			rightN := n - leftN
			if int(leftN) < b.params.MinSamplesLeaf || int(rightN) < b.params.MinSamplesLeaf {
				continue
			}
			rightPos := float64(pos) - leftPos
			score := (leftN*gini(leftPos, leftN) + rightN*gini(rightPos, rightN)) / n
			if score < bestScore-1e-12 {
				bestScore = score
				bestFeature = f
				bestThreshold = (cur + next) / 2
				found = true
			}
		}
	}
	return bestFeature, bestThreshold, found
}

func gini(pos, n float64) float64 {
	if n == 0 {
		return 0
	}
	p := pos / n
	return 2 * p * (1 - p)
}
