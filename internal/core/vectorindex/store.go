package vectorindex

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jinford/interview-rag/internal/core/apperror"
)

// snapshot はインデックスファイルのシリアライズ形式
type snapshot struct {
	EmbeddingModel string
	Dimension      int
	Vectors        [][]float32
	Documents      []string
}

// Store はインデックスを単一ファイルに永続化する
type Store struct {
	path string
}

// NewStore は path を保存先とする Store を作成する
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path は保存先のパスを返す
func (s *Store) Path() string {
	return s.path
}

// Exists は保存済みファイルが存在するかを返す
func (s *Store) Exists() (bool, error) {
	_, err := os.Stat(s.path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat index file: %w", err)
}

// Save はインデックスを一時ファイルに書き出してからリネームする。
// 書き込み途中で失敗しても既存ファイルは壊れない。
func (s *Store) Save(idx *Index, embeddingModel string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp index file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	snap := snapshot{
		EmbeddingModel: embeddingModel,
		Dimension:      idx.dimension,
		Vectors:        idx.vectors,
		Documents:      idx.documents,
	}
	if err := gob.NewEncoder(tmp).Encode(&snap); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp index file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to move index file into place: %w", err)
	}
	return nil
}

// Load は保存済みファイルからインデックスを復元する。
// 戻り値の文字列は構築時の Embedding モデル名。
func (s *Store) Load() (*Index, string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", apperror.NotFound("index file %q does not exist", s.path)
		}
		return nil, "", fmt.Errorf("failed to open index file: %w", err)
	}
	defer f.Close()

	var snap snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return nil, "", fmt.Errorf("failed to decode index file %s: %w", s.path, err)
	}

	idx, err := New(snap.Dimension)
	if err != nil {
		return nil, "", fmt.Errorf("corrupt index file %s: %w", s.path, err)
	}
	if err := idx.Add(snap.Vectors, snap.Documents); err != nil {
		return nil, "", fmt.Errorf("corrupt index file %s: %w", s.path, err)
	}

	return idx, snap.EmbeddingModel, nil
}
