package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jinford/interview-rag/internal/core/apperror"
)

// TextFileExt はコーパスとして読み込むファイルの拡張子
const TextFileExt = ".txt"

// Document はコーパス内の1ファイル分のテキストを表す
type Document struct {
	Name    string // 読み込み元のファイル名（ログ用）
	Content string // 前後の空白を除去した本文
}

// Loader はディレクトリからコーパスを読み込む
type Loader struct {
	logger *slog.Logger
}

// LoaderOption は Loader のオプション設定
type LoaderOption func(*Loader)

// WithLoaderLogger は Loader にロガーを設定する
func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader は新しい Loader を作成する
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

// Load は dir 直下の .txt ファイルをファイル名順に読み込み、空でない本文を返す。
// ディレクトリが存在しない場合、または有効なファイルが1件もない場合は NotFound を返す。
func (l *Loader) Load(ctx context.Context, dir string) ([]Document, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperror.NotFound("corpus directory %q does not exist", dir)
		}
		return nil, fmt.Errorf("failed to stat corpus directory: %w", err)
	}
	if !info.IsDir() {
		return nil, apperror.NotFound("corpus path %q is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus directory: %w", err)
	}

	filter, err := NewIgnoreFilter(dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(entry.Name()), TextFileExt) {
			continue
		}
		if filter.ShouldIgnore(entry.Name()) {
			l.logger.Info("skipping ignored corpus file", "file", entry.Name())
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	docs := make([]Document, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read corpus file %s: %w", name, err)
		}

		if isBinary(raw) {
			l.logger.Warn("skipping binary corpus file", "file", name)
			continue
		}

		content := strings.TrimSpace(string(raw))
		if content == "" {
			l.logger.Info("skipping empty corpus file", "file", name)
			continue
		}

		docs = append(docs, Document{Name: name, Content: content})
		l.logger.Info("loaded corpus file", "file", name, "chars", len([]rune(content)))
	}

	if len(docs) == 0 {
		return nil, apperror.NotFound("no usable %s files in corpus directory %q", TextFileExt, dir)
	}

	return docs, nil
}

// Contents は Document の本文だけを順序を保って取り出す
func Contents(docs []Document) []string {
	contents := make([]string, len(docs))
	for i, d := range docs {
		contents[i] = d.Content
	}
	return contents
}
