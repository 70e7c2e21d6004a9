package post

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hitoshi/mdpress/internal/model"
)

// Reader は記事ディレクトリ内のMarkdownファイルを読み込む。
type Reader struct {
	dir string
	options
}

// NewReader は指定ディレクトリを読むReaderを生成する。
func NewReader(dir string, opts ...Option) *Reader {
	return &Reader{dir: dir, options: newOptions(opts)}
}

// Dir は記事ディレクトリのパスを返す。
func (r *Reader) Dir() string {
	return r.dir
}

// ReadAll はディレクトリ内の全記事を読み込み、dateの降順で返す。
// 並び順はdate文字列の単純な辞書順比較による（暦の比較ではない）。
// ディレクトリが存在しない・読めない場合はエラーを返す。
func (r *Reader) ReadAll(ctx context.Context) ([]model.Post, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("read posts directory %s: %w", r.dir, err)
	}

	posts := make([]model.Post, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), markdownExt) {
			continue
		}

		p, err := r.readFile(entry.Name())
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}

	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Date > posts[j].Date
	})

	r.metrics.SetPostsLoaded(len(posts))
	return posts, nil
}

// ListIDs はディレクトリ内の記事IDをファイル名順に返す。
// ファイルの中身は読まないため、フロントマターが壊れた記事も含まれる。
func (r *Reader) ListIDs(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("read posts directory %s: %w", r.dir, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), markdownExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(entry.Name(), markdownExt))
	}
	return ids, nil
}

func (r *Reader) readFile(name string) (model.Post, error) {
	p, _, err := r.load(r.dir, strings.TrimSuffix(name, markdownExt))
	return p, err
}

// load は記事ファイルを読み込み、メタデータと本文を返す。
// 日付を解釈できない場合は警告を記録し、年・月を空のまま続行する。
func (o *options) load(dir, id string) (model.Post, []byte, error) {
	source, err := os.ReadFile(filepath.Join(dir, id+markdownExt))
	if err != nil {
		return model.Post{}, nil, fmt.Errorf("read post %s: %w", id, err)
	}

	fm, body, err := parseDocument(source)
	if err != nil {
		return model.Post{}, nil, fmt.Errorf("post %s: %w", id, err)
	}

	p, ok := o.deriver.buildPost(id, fm, body)
	if !ok {
		o.logger.Warn("記事の日付を解釈できません",
			slog.String("post_id", id),
			slog.String("date", fm.Date),
		)
	}
	return p, body, nil
}
