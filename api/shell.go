// Package api is the shell-facing surface over package sfs: path
// resolution, create-if-missing Open, and the clamped-count and
// zero-length no-op conventions of the specification's external
// interface (spec §6). Name-length checks happen in package sfs. Errors
// from sfs are returned to the caller unchanged as Go error values; this
// package does not convert them to a single negative sentinel.
package api

import (
	"strings"

	"github.com/Yaters/Simple-File-System/sfs"
	"github.com/sirupsen/logrus"
)

// Shell is a mounted file system together with the in-progress
// NextFilename iterator. The current working directory is kept by the
// underlying sfs.Filesystem.
type Shell struct {
	fs       *sfs.Filesystem
	iterator *sfs.DirectoryIterator
}

// Format creates a fresh file system image at path using geom and
// returns a Shell mounted on it, positioned at the root directory.
func Format(path string, geom sfs.Geometry, logger logrus.FieldLogger) (*Shell, error) {
	fs, err := sfs.Format(path, geom, logger)
	if err != nil {
		return nil, err
	}
	return &Shell{fs: fs}, nil
}

// Mount opens an existing file system image at path.
func Mount(path string, logger logrus.FieldLogger) (*Shell, error) {
	fs, err := sfs.Mount(path, logger)
	if err != nil {
		return nil, err
	}
	return &Shell{fs: fs}, nil
}

// Close unmounts the underlying file system.
func (s *Shell) Close() error { return s.fs.Close() }

// NextFilename advances the shell's directory iterator, returning the
// next entry's name in the current directory. Restarting iteration
// happens implicitly once the list is exhausted, matching
// sfs_getnextfilename's wraparound-to-zero behavior: the next call after
// exhaustion starts a new pass.
func (s *Shell) NextFilename() (string, bool, error) {
	if s.iterator == nil {
		it, err := s.fs.Iterate(s.fs.CurrentDirInode())
		if err != nil {
			return "", false, err
		}
		s.iterator = it
	}
	name, ok := s.iterator.Next()
	if !ok {
		s.iterator = nil
		return "", false, nil
	}
	return name, true, nil
}

// resolvePath walks a backslash-separated path from the current
// directory, returning the i-node id of the final component. An empty
// path resolves to the current directory itself. Grounded on
// fdtOpenFullPathFile, simplified to not require the caller to restore a
// prior directory afterward (this package never mutates cwd mid-walk).
func (s *Shell) resolvePath(path string) (int, error) {
	dir := s.fs.CurrentDirInode()
	if path == "" {
		return dir, nil
	}
	parts := strings.Split(path, string(sfs.PathSeparator))
	for i, part := range parts {
		if part == "" {
			continue
		}
		if part == ".." {
			parent, err := s.fs.Parent(dir)
			if err != nil {
				return 0, err
			}
			dir = parent
			continue
		}
		id, isDir, err := s.fs.Lookup(dir, part)
		if err != nil {
			return 0, err
		}
		if i < len(parts)-1 && !isDir {
			return 0, sfs.ErrNotADirectory
		}
		dir = id
	}
	return dir, nil
}

// FileSize returns the size in bytes of the file named by path (relative
// to the current directory, using PathSeparator between components).
func (s *Shell) FileSize(path string) (int64, error) {
	id, err := s.resolvePath(path)
	if err != nil {
		return 0, err
	}
	h, err := s.fs.OpenFile(id)
	if err != nil {
		return 0, err
	}
	defer s.fs.CloseFile(h)
	return s.fs.Size(h)
}

// Mkdir creates a subdirectory named name inside the current directory.
func (s *Shell) Mkdir(name string) error {
	_, err := s.fs.CreateDirectory(s.fs.CurrentDirInode(), name)
	return err
}

// Chdir changes the current directory to the subdirectory named name, or
// to the parent when name is "..". Root rejects ".." with
// ErrRootHasNoParent rather than silently staying put.
func (s *Shell) Chdir(name string) error {
	s.iterator = nil
	if name == ".." {
		parent, err := s.fs.Parent(s.fs.CurrentDirInode())
		if err != nil {
			return err
		}
		return s.fs.ChangeDir(parent)
	}
	id, isDir, err := s.fs.Lookup(s.fs.CurrentDirInode(), name)
	if err != nil {
		return err
	}
	if !isDir {
		return sfs.ErrNotADirectory
	}
	return s.fs.ChangeDir(id)
}

// Open opens the file named name in the current directory for reading
// and writing, creating it if it does not already exist.
func (s *Shell) Open(name string) (sfs.FileHandle, error) {
	id, isDir, err := s.fs.Lookup(s.fs.CurrentDirInode(), name)
	if err != nil {
		if err != sfs.ErrNoSuchEntry {
			return -1, err
		}
		id, err = s.fs.CreateFile(s.fs.CurrentDirInode(), name)
		if err != nil {
			return -1, err
		}
	} else if isDir {
		return -1, sfs.ErrNotAFile
	}
	return s.fs.OpenFile(id)
}

// CloseFile releases a file handle obtained from Open.
func (s *Shell) CloseFile(h sfs.FileHandle) error { return s.fs.CloseFile(h) }

// Write writes data at h's write cursor. Per the legacy convention, a
// non-positive length is a no-op that returns 0, not an error.
func (s *Shell) Write(h sfs.FileHandle, data []byte) (int64, error) {
	if len(data) == 0 {
		return 0, nil
	}
	return s.fs.Write(h, data)
}

// Read fills buf from h's read cursor.
func (s *Shell) Read(h sfs.FileHandle, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	return s.fs.Read(h, buf)
}

// Seek repositions both of h's cursors to pos.
func (s *Shell) Seek(h sfs.FileHandle, pos int64) error { return s.fs.Seek(h, pos) }

// DeleteRange deletes n bytes immediately before h's write cursor.
func (s *Shell) DeleteRange(h sfs.FileHandle, n int64) (int64, error) {
	if n < 1 {
		return 0, nil
	}
	return s.fs.DeleteRange(h, n)
}

// Remove deletes the file or directory named name from the current
// directory.
func (s *Shell) Remove(name string) error {
	return s.fs.Remove(s.fs.CurrentDirInode(), name)
}
