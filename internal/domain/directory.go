package domain

// Directory is a resolved on-disk location.
// Ephemeral is true when Path lies strictly below the system temp root.
type Directory struct {
	Path      string
	Ephemeral bool
}

// DirectoryPaths holds the configured, not yet resolved, directory locations.
type DirectoryPaths struct {
	Base string
	Data string
	Temp string
	Lib  string
}

// DirectorySet is the set of directories owned by one server instance.
// It is immutable once resolved.
type DirectorySet struct {
	Base Directory
	Data Directory
	Temp Directory
	Lib  Directory
}

// All returns the directories in deletion order: children before the base
// directory that may contain them.
func (s DirectorySet) All() []Directory {
	return []Directory{s.Data, s.Temp, s.Lib, s.Base}
}

// IsZero reports whether the set has not been resolved.
func (s DirectorySet) IsZero() bool {
	return s.Base.Path == "" && s.Data.Path == "" && s.Temp.Path == "" && s.Lib.Path == ""
}
