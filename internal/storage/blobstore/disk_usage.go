// disk_usage.go — проверка готовности дискового хранилища.
// Платформозависимый код для Unix-подобных систем.
package blobstore

import (
	"fmt"
	"os"
	"syscall"
)

// minFreeBytes — порог свободного места, ниже которого хранилище degraded.
const minFreeBytes = 256 << 20

// diskUsage возвращает информацию о дисковом пространстве в директории.
// Возвращает total, used, available в байтах.
func diskUsage(path string) (total, used, available int64, err error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, 0, 0, fmt.Errorf("ошибка statfs %s: %w", path, err)
	}

	total = int64(stat.Blocks) * int64(stat.Bsize)
	available = int64(stat.Bavail) * int64(stat.Bsize)
	used = total - available

	return total, used, available, nil
}

// CheckReady проверяет доступность корневой директории и свободное место.
// Реализует handlers.ReadinessChecker.
func (s *DiskStore) CheckReady() (string, string) {
	info, err := os.Stat(s.root)
	if err != nil {
		return "fail", fmt.Sprintf("директория хранилища недоступна: %v", err)
	}
	if !info.IsDir() {
		return "fail", fmt.Sprintf("%s не является директорией", s.root)
	}

	_, _, available, err := diskUsage(s.root)
	if err != nil {
		return "degraded", err.Error()
	}
	if available < minFreeBytes {
		return "degraded", fmt.Sprintf("мало свободного места: %d байт", available)
	}
	return "ok", ""
}
