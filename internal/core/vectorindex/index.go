package vectorindex

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrDimensionMismatch はベクトル次元がインデックスと一致しない場合のエラー
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrLengthMismatch はベクトル数とドキュメント数が一致しない場合のエラー
	ErrLengthMismatch = errors.New("vectors and documents length mismatch")
)

// Hit は検索結果の1件を表す
type Hit struct {
	Position int     // インデックス内の位置（挿入順）
	Distance float32 // クエリとの二乗ユークリッド距離
	Document string  // 対応するドキュメント本文
}

// Index は全件比較で最近傍探索を行うフラットなベクトルインデックス。
// 構築後は読み取り専用として扱い、Search は並行に呼び出してよい。
type Index struct {
	dimension int
	vectors   [][]float32
	documents []string
}

// New は指定次元の空のインデックスを作成する
func New(dimension int) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid dimension: %d", dimension)
	}
	return &Index{dimension: dimension}, nil
}

// Add はベクトルとドキュメントを末尾に追加する。
// 1件でも次元が合わない場合は何も追加せずにエラーを返す。
func (idx *Index) Add(vectors [][]float32, documents []string) error {
	if len(vectors) != len(documents) {
		return fmt.Errorf("%w: %d vectors, %d documents", ErrLengthMismatch, len(vectors), len(documents))
	}
	for i, v := range vectors {
		if len(v) != idx.dimension {
			return fmt.Errorf("%w: vector %d has dimension %d, index expects %d", ErrDimensionMismatch, i, len(v), idx.dimension)
		}
	}

	for i := range vectors {
		idx.vectors = append(idx.vectors, slices.Clone(vectors[i]))
		idx.documents = append(idx.documents, documents[i])
	}
	return nil
}

// Len は格納されているベクトル数を返す
func (idx *Index) Len() int {
	return len(idx.vectors)
}

// Dimension はベクトル次元数を返す
func (idx *Index) Dimension() int {
	return idx.dimension
}

// Documents は格納されているドキュメントのコピーを挿入順で返す
func (idx *Index) Documents() []string {
	return slices.Clone(idx.documents)
}

// Vector は position 番目のベクトルのコピーを返す
func (idx *Index) Vector(position int) ([]float32, bool) {
	if position < 0 || position >= len(idx.vectors) {
		return nil, false
	}
	return slices.Clone(idx.vectors[position]), true
}

// Search はクエリベクトルに近い順に最大 k 件を返す。
// 距離が等しい場合は挿入順を保つ。k が格納数より大きい場合は格納数分だけ返す。
func (idx *Index) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != idx.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, index expects %d", ErrDimensionMismatch, len(query), idx.dimension)
	}
	if k <= 0 {
		return []Hit{}, nil
	}

	hits := make([]Hit, 0, len(idx.vectors))
	for i, v := range idx.vectors {
		hits = append(hits, Hit{Position: i, Distance: squaredL2(query, v)})
	}

	slices.SortStableFunc(hits, func(a, b Hit) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		default:
			return 0
		}
	})

	if k > len(hits) {
		k = len(hits)
	}

	results := make([]Hit, 0, k)
	for _, h := range hits[:k] {
		if h.Position >= len(idx.documents) {
			continue
		}
		h.Document = idx.documents[h.Position]
		results = append(results, h)
	}
	return results, nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
