// Package artifacts хранит синтезированные аудиозаписи.
//
// Записи лежат под ключом <account_uid>/<name>, поэтому аккаунт видит
// только собственные файлы. Повторная запись под тем же ключом перезаписывает файл.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

var (
	// ErrNotFound запись отсутствует.
	ErrNotFound = errors.New("artifact not found")
	// ErrInvalidKey ключ пуст или выходит за пределы каталога аккаунта.
	ErrInvalidKey = errors.New("invalid artifact key")
)

// Store хранилище аудиозаписей.
type Store interface {
	Save(ctx context.Context, key string, data []byte) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Key строит ключ записи name в пространстве аккаунта accountUID.
func Key(accountUID, name string) (string, error) {
	if !validSegment(accountUID) || !validSegment(name) {
		return "", fmt.Errorf("%w: %q/%q", ErrInvalidKey, accountUID, name)
	}
	return accountUID + "/" + name, nil
}

func validSegment(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, `/\`) && path.Clean(s) == s
}
