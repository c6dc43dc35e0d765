package tzbed

import (
	"archive/zip"
	"compress/bzip2"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// File names inside the catalogue directory and the packaged archive.
const (
	catalogueFile = "timezones.db"
	archiveFile   = "timezones.zip"
	bzippedSuffix = ".bz2"
)

// extractMu serialises archive extraction so concurrent lookups on a cold
// directory never write the same file twice.
var extractMu sync.Mutex

// ensureCatalogue returns the path of a usable timezones.db, extracting it
// from the archive when the directory does not have one yet.
func ensureCatalogue(dir, archive string) (string, error) {
	path := filepath.Join(dir, catalogueFile)
	if fileExists(path) {
		return path, nil
	}
	if archive == "" {
		archive = filepath.Join(dir, archiveFile)
	}

	extractMu.Lock()
	defer extractMu.Unlock()

	// Another goroutine may have finished extracting while we waited.
	if fileExists(path) {
		return path, nil
	}
	if !fileExists(archive) {
		return "", fmt.Errorf("%w: neither %s nor %s exists", ErrCatalogueUnavailable, path, archive)
	}
	if err := extractCatalogue(archive, path); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCatalogueUnavailable, err)
	}
	return path, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// extractCatalogue copies timezones.db (or timezones.db.bz2) out of a zip
// archive. Only the one known entry is read and it is always written to
// dst, never to a path taken from the archive.
func extractCatalogue(archive, dst string) error {
	rz, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", archive, err)
	}
	defer rz.Close()

	for _, f := range rz.File {
		switch filepath.Base(f.Name) {
		case catalogueFile:
			return writeZipEntry(f, dst, false)
		case catalogueFile + bzippedSuffix:
			return writeZipEntry(f, dst, true)
		}
	}
	return fmt.Errorf("archive %s has no %s entry", archive, catalogueFile)
}

func writeZipEntry(f *zip.File, dst string, bzipped bool) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("opening %s in archive: %w", f.Name, err)
	}
	defer rc.Close()

	var src io.Reader = rc
	if bzipped {
		src = bzip2.NewReader(rc)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("creating catalogue directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), catalogueFile+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	success := false
	defer func() {
		tmp.Close()
		if !success {
			os.Remove(tmp.Name())
		}
	}()

	if _, err := io.Copy(tmp, src); err != nil {
		return fmt.Errorf("extracting %s: %w", f.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("moving catalogue into place: %w", err)
	}
	success = true
	return nil
}

// PackageCatalogue writes dbPath into a zip archive at zipPath under the
// name the extractor expects.
func PackageCatalogue(dbPath, zipPath string) error {
	in, err := os.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", dbPath, err)
	}
	defer in.Close()

	out, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", zipPath, err)
	}
	success := false
	defer func() {
		out.Close()
		if !success {
			os.Remove(zipPath)
		}
	}()

	zw := zip.NewWriter(out)
	w, err := zw.CreateHeader(&zip.FileHeader{Name: catalogueFile, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("adding %s to archive: %w", catalogueFile, err)
	}
	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("writing %s to archive: %w", catalogueFile, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finishing archive: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", zipPath, err)
	}
	success = true
	return nil
}
