// Package ops holds the offline data-dir tooling: tar.gz backup and
// restore of the JSON snapshots plus the profile database, and a manifest
// check that knows which snapshot files the server actually writes.
package ops

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// snapshotFiles are the stores the server persists under the data dir.
// The profile database is deliberately absent: it is a rebuildable mirror
// of points.json, so a backup without it is still complete.
var snapshotFiles = []string{
	"tasks/tasks.json",
	"points/points.json",
	"auth/auth.json",
}

// Manifest describes what a backup archive contains, keyed to the
// snapshots this system writes.
type Manifest struct {
	Files            []string
	MissingSnapshots []string
	CorruptSnapshots []string
}

// Complete reports whether every expected snapshot is present and parses.
func (m Manifest) Complete() bool {
	return len(m.MissingSnapshots) == 0 && len(m.CorruptSnapshots) == 0
}

// BackupDataDir archives srcDir into a tar.gz at archivePath. Symlinks are
// skipped so a restore never writes outside the target.
func BackupDataDir(srcDir, archivePath string) error {
	srcDir = filepath.Clean(strings.TrimSpace(srcDir))
	archivePath = filepath.Clean(strings.TrimSpace(archivePath))
	if srcDir == "" || archivePath == "" {
		return fmt.Errorf("srcDir and archivePath are required")
	}
	info, err := os.Stat(srcDir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("source is not a directory: %s", srcDir)
	}
	if err := os.MkdirAll(filepath.Dir(archivePath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	defer gz.Close()

	tw := tar.NewWriter(gz)
	defer tw.Close()

	return filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == srcDir || d.Type()&os.ModeSymlink != 0 {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		return writeEntry(tw, path, filepath.ToSlash(rel), d)
	})
}

func writeEntry(tw *tar.Writer, path, rel string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = rel
	if info.IsDir() && !strings.HasSuffix(hdr.Name, "/") {
		hdr.Name += "/"
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	if info.IsDir() {
		return nil
	}

	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()
	_, err = io.Copy(tw, src)
	return err
}

// RestoreDataDir unpacks a backup archive into targetDir. Entries that
// would escape the target are rejected; unsupported entry types are
// ignored.
func RestoreDataDir(archivePath, targetDir string) error {
	archivePath = filepath.Clean(strings.TrimSpace(archivePath))
	targetDir = filepath.Clean(strings.TrimSpace(targetDir))
	if archivePath == "" || targetDir == "" {
		return fmt.Errorf("archivePath and targetDir are required")
	}
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return err
	}

	return readArchive(archivePath, func(hdr *tar.Header, tr *tar.Reader) error {
		rel, err := sanitizeArchiveRelPath(hdr.Name)
		if err != nil {
			return err
		}
		outPath := filepath.Join(targetDir, rel)

		switch hdr.Typeflag {
		case tar.TypeDir:
			return os.MkdirAll(outPath, os.FileMode(hdr.Mode))
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
				return err
			}
			dst, err := os.OpenFile(outPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(hdr.Mode))
			if err != nil {
				return err
			}
			if _, err := io.Copy(dst, tr); err != nil {
				_ = dst.Close()
				return err
			}
			return dst.Close()
		default:
			return nil
		}
	})
}

// VerifyDataArchive inspects a backup without unpacking it: every entry is
// listed, and each expected snapshot (tasks, points, auth) is checked for
// presence and JSON validity. A fresh data dir legitimately lacks
// snapshots that were never written, so callers decide how strict to be.
func VerifyDataArchive(archivePath string) (Manifest, error) {
	var m Manifest
	found := map[string][]byte{}

	err := readArchive(archivePath, func(hdr *tar.Header, tr *tar.Reader) error {
		rel, err := sanitizeArchiveRelPath(hdr.Name)
		if err != nil {
			return err
		}
		if hdr.Typeflag != tar.TypeReg {
			return nil
		}
		m.Files = append(m.Files, rel)
		for _, want := range snapshotFiles {
			if rel == want {
				b, err := io.ReadAll(tr)
				if err != nil {
					return err
				}
				found[rel] = b
			}
		}
		return nil
	})
	if err != nil {
		return Manifest{}, err
	}

	for _, want := range snapshotFiles {
		b, ok := found[want]
		if !ok {
			m.MissingSnapshots = append(m.MissingSnapshots, want)
			continue
		}
		if !json.Valid(b) {
			m.CorruptSnapshots = append(m.CorruptSnapshots, want)
		}
	}
	return m, nil
}

func readArchive(archivePath string, fn func(*tar.Header, *tar.Reader) error) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(hdr, tr); err != nil {
			return err
		}
	}
}

func sanitizeArchiveRelPath(name string) (string, error) {
	name = filepath.Clean(strings.TrimSpace(name))
	if name == "." || name == "" {
		return "", fmt.Errorf("invalid archive entry path")
	}
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("invalid absolute archive entry path: %s", name)
	}
	if strings.HasPrefix(name, ".."+string(filepath.Separator)) || name == ".." {
		return "", fmt.Errorf("invalid archive entry path traversal: %s", name)
	}
	return name, nil
}
