// Package cachebundle exports and imports out_dir's built outputs plus
// their stored user.otter-sha1 digests as one portable archive, so a
// build cache can move between machines without xattr support
// round-tripping through the network filesystem in between (tar does
// not carry extended attributes, per spec.md §4.11).
//
// Grounded on cmd/distri/initrd.go's use of pgzip.NewWriter feeding an
// archive/tar.Writer, and on internal/build/build.go's tar-from-walk
// shape; the per-member ".sha1" sidecar and the renameio-backed atomic
// archive write are new to this package.
package cachebundle

import (
	"archive/tar"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio"
	"github.com/klauspost/pgzip"
	"golang.org/x/sys/unix"
)

const attrKey = "user.otter-sha1"

// Export walks outDir and writes every regular file into a gzip-tar
// archive at archivePath, each preceded by a same-named ".sha1"
// sidecar member carrying the output's stored digest as 40 lowercase
// hex characters (skipped for files with no stored 20-byte digest).
func Export(outDir, archivePath string) error {
	f, err := renameio.TempFile("", archivePath)
	if err != nil {
		return fmt.Errorf("cachebundle: creating temp file for %s: %w", archivePath, err)
	}
	defer f.Cleanup()

	gz := pgzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	err = filepath.Walk(outDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if !info.Mode().IsRegular() {
			return fmt.Errorf("cachebundle: %s is not a regular file", path)
		}

		rel, err := filepath.Rel(outDir, path)
		if err != nil {
			return err
		}

		if digest, ok := readDigest(path); ok {
			sidecar := rel + ".sha1"
			payload := []byte(hex.EncodeToString(digest[:]))
			if err := tw.WriteHeader(&tar.Header{
				Name: sidecar,
				Size: int64(len(payload)),
				Mode: 0o644,
			}); err != nil {
				return err
			}
			if _, err := tw.Write(payload); err != nil {
				return err
			}
		}

		if err := tw.WriteHeader(&tar.Header{
			Name: rel,
			Size: info.Size(),
			Mode: int64(info.Mode().Perm()),
		}); err != nil {
			return err
		}
		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		if _, err := io.Copy(tw, in); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}
	return f.CloseAtomicallyReplace()
}

// Import extracts archivePath into outDir, restoring each member's
// stored digest as its user.otter-sha1 xattr from its ".sha1"
// sidecar, if one was present in the archive.
func Import(archivePath, outDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("cachebundle: opening %s: %w", archivePath, err)
	}
	defer f.Close()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("cachebundle: %s is not a gzip archive: %w", archivePath, err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	pendingDigests := make(map[string][]byte)

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("cachebundle: reading tar entry: %w", err)
		}

		dest := filepath.Join(outDir, hdr.Name)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}

		if filepath.Ext(hdr.Name) == ".sha1" {
			raw := make([]byte, hdr.Size)
			if _, err := io.ReadFull(tr, raw); err != nil {
				return err
			}
			target := hdr.Name[:len(hdr.Name)-len(".sha1")]
			decoded, err := hex.DecodeString(string(raw))
			if err != nil {
				return fmt.Errorf("cachebundle: malformed sidecar for %s: %w", target, err)
			}
			pendingDigests[target] = decoded
			continue
		}

		out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(hdr.Mode))
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, tr); err != nil {
			out.Close()
			return err
		}
		if err := out.Close(); err != nil {
			return err
		}

		if digest, ok := pendingDigests[hdr.Name]; ok {
			if err := unix.Setxattr(dest, attrKey, digest, 0); err != nil {
				return fmt.Errorf("cachebundle: restoring digest on %s: %w", dest, err)
			}
			delete(pendingDigests, hdr.Name)
		}
	}
	return nil
}

func readDigest(path string) ([20]byte, bool) {
	var digest [20]byte
	buf := make([]byte, 20)
	sz, err := unix.Getxattr(path, attrKey, buf)
	if err != nil || sz != 20 {
		return digest, false
	}
	copy(digest[:], buf)
	return digest, true
}
