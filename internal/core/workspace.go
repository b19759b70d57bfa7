package core

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LoadWorkspace reads every markdown file under vaultPath. Paths are
// vault-relative and sorted. Hidden directories and the data directory
// are skipped.
func LoadWorkspace(vaultPath string) ([]Document, error) {
	files, err := collectMarkdownFiles(vaultPath)
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(files))
	for _, rel := range files {
		content, err := os.ReadFile(filepath.Join(vaultPath, rel))
		if err != nil {
			return nil, err
		}
		docs = append(docs, NewDocument(rel, string(content)))
	}
	return docs, nil
}

// ReadDocument loads a single vault-relative document.
func ReadDocument(vaultPath, rel string) (Document, error) {
	rel = NormalizePath(rel)
	content, err := os.ReadFile(filepath.Join(vaultPath, filepath.FromSlash(rel)))
	if err != nil {
		return Document{}, err
	}
	return NewDocument(rel, string(content)), nil
}

func collectMarkdownFiles(vaultPath string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(vaultPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != vaultPath && (d.Name() == dataDirName || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if IsMarkdown(d.Name()) {
			rel, err := filepath.Rel(vaultPath, path)
			if err != nil {
				return err
			}
			files = append(files, NormalizePath(filepath.ToSlash(rel)))
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// ExistsInVault reports whether the vault-relative path exists on disk.
func ExistsInVault(vaultPath, rel string) bool {
	_, err := os.Stat(filepath.Join(vaultPath, filepath.FromSlash(rel)))
	return err == nil
}
