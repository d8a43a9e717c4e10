package service

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ncobase/shopconsole/internal/backup/structs"
)

// ResolveDownload maps a requested file name to a regular file inside dir.
// Names resolving outside dir, symlinks included, are forbidden.
func ResolveDownload(dir, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", structs.ErrFileNotSpecified
	}

	root, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	target := filepath.Join(root, filepath.FromSlash(name))
	if !within(root, target) {
		return "", structs.ErrFileForbidden
	}

	info, err := os.Stat(target)
	if err != nil || !info.Mode().IsRegular() {
		return "", structs.ErrFileNotFound
	}

	realRoot, rerr := filepath.EvalSymlinks(root)
	realTarget, terr := filepath.EvalSymlinks(target)
	if rerr == nil && terr == nil && !within(realRoot, realTarget) {
		return "", structs.ErrFileForbidden
	}
	return target, nil
}

func within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == "." || rel == ".." {
		return false
	}
	return !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
