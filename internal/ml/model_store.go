package ml

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// 模型类型（决定文件名后缀）
const (
	KindPersonal = "personal"
	KindEnsemble = "ensemble"
)

// ModelStore 每个用户每种模型一个 JSON 文件，重训练时原地覆盖
// 解码结果按 (mtime, size) 缓存，文件被其他进程覆盖后自动重新加载
type ModelStore struct {
	dir string

	mu    sync.Mutex
	cache map[string]cachedModel
}

type cachedModel struct {
	modTime time.Time
	size    int64
	model   any
}

func NewModelStore(dir string) *ModelStore {
	return &ModelStore{dir: dir, cache: map[string]cachedModel{}}
}

func (s *ModelStore) Dir() string { return s.dir }

// Path 模型文件路径：<dir>/<fileKey(user)>_<kind>.json
func (s *ModelStore) Path(userID, kind string) string {
	return filepath.Join(s.dir, fileKey(userID)+"_"+kind+".json")
}

func (s *ModelStore) Exists(userID, kind string) bool {
	_, err := os.Stat(s.Path(userID, kind))
	return err == nil
}

// Save 先写临时文件再 rename，读者不会看到半个文件
func (s *ModelStore) Save(userID, kind string, model any) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create model dir: %w", err)
	}
	b, err := json.Marshal(model)
	if err != nil {
		return fmt.Errorf("failed to encode %s model: %w", kind, err)
	}
	tmp, err := os.CreateTemp(s.dir, ".model-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp model file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close model file: %w", err)
	}
	path := s.Path(userID, kind)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace model file: %w", err)
	}
	s.mu.Lock()
	delete(s.cache, path)
	s.mu.Unlock()
	return nil
}

// LoadPersonal 文件不存在时返回 (nil, nil)
func (s *ModelStore) LoadPersonal(userID string) (*PersonalModel, error) {
	v, err := s.load(userID, KindPersonal, func() any { return &PersonalModel{} })
	if err != nil || v == nil {
		return nil, err
	}
	return v.(*PersonalModel), nil
}

// LoadEnsemble 文件不存在时返回 (nil, nil)
func (s *ModelStore) LoadEnsemble(userID string) (*EnsembleModel, error) {
	v, err := s.load(userID, KindEnsemble, func() any { return &EnsembleModel{} })
	if err != nil || v == nil {
		return nil, err
	}
	return v.(*EnsembleModel), nil
}

func (s *ModelStore) load(userID, kind string, alloc func() any) (any, error) {
	path := s.Path(userID, kind)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat %s model: %w", kind, err)
	}

	s.mu.Lock()
	c, ok := s.cache[path]
	s.mu.Unlock()
	if ok && c.modTime.Equal(info.ModTime()) && c.size == info.Size() {
		return c.model, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s model: %w", kind, err)
	}
	v := alloc()
	if err := json.Unmarshal(b, v); err != nil {
		return nil, fmt.Errorf("failed to decode %s model: %w", kind, err)
	}

	s.mu.Lock()
	s.cache[path] = cachedModel{modTime: info.ModTime(), size: info.Size(), model: v}
	s.mu.Unlock()
	return v, nil
}

// fileKey 用户 ID 的文件名编码（base64url 无填充，一一对应）
func fileKey(userID string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(userID))
}
