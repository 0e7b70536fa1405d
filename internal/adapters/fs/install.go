package fs

import (
	"io"
	"os"
	"path/filepath"
)

// ExecutableInstaller implements ports.ExecutableInstaller by copying files.
type ExecutableInstaller struct{}

// NewExecutableInstaller creates a new ExecutableInstaller.
func NewExecutableInstaller() *ExecutableInstaller {
	return &ExecutableInstaller{}
}

// Install copies srcDir/name into dstDir and forces the executable bit.
// An existing destination of the same size is reused.
func (ExecutableInstaller) Install(srcDir, name, dstDir string) (string, error) {
	src := filepath.Join(srcDir, name)
	dst := filepath.Join(dstDir, name)

	srcInfo, err := os.Stat(src)
	if err != nil {
		return "", err
	}
	if dstInfo, err := os.Stat(dst); err == nil && dstInfo.Size() == srcInfo.Size() {
		return dst, os.Chmod(dst, 0o755)
	}

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return "", err
	}

	tmp := dst + ".tmp"
	if err := copyFile(src, tmp); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := os.Chmod(tmp, 0o755); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return dst, nil
}

// CopyFile copies src to dst, replacing dst.
func CopyFile(src, dst string) error {
	return copyFile(src, dst)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
