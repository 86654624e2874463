// 包 export 负责写出 flights.json：
// - 缩进两格的 JSON，列表为空时输出 [] 而非 null
// - 先写同目录临时文件再 rename，读者永远看不到半截文件
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go-flight-board/internal/model"
	"go-flight-board/internal/store"
)

// WriteJSON 将快照写入 path（覆盖），必要时创建父目录。
func WriteJSON(path string, snap model.Snapshot) error {
	snap.Normalize()
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(snap); err != nil {
		tmp.Close()
		return fmt.Errorf("encode json to %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s -> %s: %w", tmpName, path, err)
	}
	return nil
}

// FromStore 从库中读取当前快照并写出。
func FromStore(ctx context.Context, s *store.SQLite, path string) (model.Snapshot, error) {
	snap, err := s.LoadSnapshot(ctx)
	if err != nil {
		return snap, fmt.Errorf("load snapshot: %w", err)
	}
	if err := WriteJSON(path, snap); err != nil {
		return snap, err
	}
	return snap, nil
}

// ReadJSON 读取已写出的快照；-print 打印的是该文件而非内存中的快照。
func ReadJSON(path string) (model.Snapshot, error) {
	var snap model.Snapshot
	b, err := os.ReadFile(path)
	if err != nil {
		return snap, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(b, &snap); err != nil {
		return snap, fmt.Errorf("decode %s: %w", path, err)
	}
	snap.Normalize()
	return snap, nil
}
