package ports

import "context"

// PathWatcher waits for a file system path to come into existence.
type PathWatcher interface {
	// WaitForPath blocks until path exists or ctx is done.
	WaitForPath(ctx context.Context, path string) error
}

// ExecutableInstaller copies an executable from a source directory into a
// destination directory and marks it executable.
type ExecutableInstaller interface {
	// Install returns the path of the installed executable.
	Install(srcDir, name, dstDir string) (string, error)
}

// TeardownRegistry collects callbacks that must run before the host exits.
type TeardownRegistry interface {
	// Register adds fn under name and returns a function that removes it again.
	Register(name string, fn func()) (unregister func())
}
