package common

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashContent вычисляет SHA-256 отпечаток содержимого ресурса.
// Одинаковое содержимое всегда даёт одинаковый отпечаток,
// поэтому сравнение хешей заменяет сравнение полных текстов.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
