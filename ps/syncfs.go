package ps

import (
	"os"
	"path"
	"sort"
	"sync"

	"github.com/go-git/go-billy/v6"
	"github.com/hashicorp/go-multierror"
)

// observeSync, when set, sees every store file once it and its directories
// are on stable storage.
var observeSync func(name string)

// syncFS makes writes to the object store durable. Files opened for writing
// are fsynced on Close, and Flush fsyncs the directories whose entries
// changed since the last Flush. go-git never fsyncs on its own.
type syncFS struct {
	billy.Filesystem

	mu    sync.Mutex
	files map[string]bool // synced, directory entry not yet flushed
	dirs  map[string]bool
}

func newSyncFS(fs billy.Filesystem) *syncFS {
	return &syncFS{
		Filesystem: fs,
		files:      map[string]bool{},
		dirs:       map[string]bool{},
	}
}

// Capabilities keeps go-git on the read-write reference path.
func (s *syncFS) Capabilities() billy.Capability {
	return billy.Capabilities(s.Filesystem)
}

func (s *syncFS) Create(filename string) (billy.File, error) {
	f, err := s.Filesystem.Create(filename)
	if err != nil {
		return nil, err
	}
	return s.track(filename, f), nil
}

func (s *syncFS) OpenFile(filename string, flag int, perm os.FileMode) (billy.File, error) {
	f, err := s.Filesystem.OpenFile(filename, flag, perm)
	if err != nil || flag&(os.O_WRONLY|os.O_RDWR) == 0 {
		return f, err
	}
	return s.track(filename, f), nil
}

func (s *syncFS) TempFile(dir, prefix string) (billy.File, error) {
	f, err := s.Filesystem.TempFile(dir, prefix)
	if err != nil {
		return nil, err
	}
	return s.track(f.Name(), f), nil
}

func (s *syncFS) Rename(oldpath, newpath string) error {
	if err := s.Filesystem.Rename(oldpath, newpath); err != nil {
		return err
	}
	oldpath, newpath = path.Clean(oldpath), path.Clean(newpath)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.files[oldpath] {
		delete(s.files, oldpath)
		s.files[newpath] = true
	}
	s.touch(newpath)
	return nil
}

func (s *syncFS) Remove(filename string) error {
	if err := s.Filesystem.Remove(filename); err != nil {
		return err
	}
	filename = path.Clean(filename)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, filename)
	s.touch(filename)
	return nil
}

func (s *syncFS) MkdirAll(filename string, perm os.FileMode) error {
	if err := s.Filesystem.MkdirAll(filename, perm); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch(path.Join(filename, "."))
	return nil
}

func (s *syncFS) Chroot(dir string) (billy.Filesystem, error) {
	inner, err := s.Filesystem.Chroot(dir)
	if err != nil {
		return nil, err
	}
	return newSyncFS(inner), nil
}

// Flush fsyncs every directory whose entries changed, deepest first, so a
// crash cannot lose a renamed object or a moved reference.
func (s *syncFS) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dirs := make([]string, 0, len(s.dirs))
	for dir := range s.dirs {
		dirs = append(dirs, dir)
	}
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })

	var result *multierror.Error
	for _, dir := range dirs {
		if err := s.syncDir(dir); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		delete(s.dirs, dir)
	}
	if err := result.ErrorOrNil(); err != nil {
		return err
	}

	for name := range s.files {
		if observeSync != nil {
			observeSync(name)
		}
		delete(s.files, name)
	}
	return nil
}

func (s *syncFS) syncDir(dir string) error {
	d, err := s.Filesystem.Open(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer d.Close()
	if syncer, ok := d.(billy.Syncer); ok {
		return syncer.Sync()
	}
	return nil
}

func (s *syncFS) track(name string, f billy.File) billy.File {
	return &syncFile{File: f, fs: s, name: path.Clean(name)}
}

// touch marks every directory from name's parent up to the root. Absolute
// names are temporary files outside the tree. Callers hold mu.
func (s *syncFS) touch(name string) {
	if path.IsAbs(name) {
		return
	}
	dir := path.Dir(path.Clean(name))
	for {
		s.dirs[dir] = true
		if dir == "." || dir == "/" {
			return
		}
		dir = path.Dir(dir)
	}
}

func (s *syncFS) synced(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = true
	s.touch(name)
}

type syncFile struct {
	billy.File
	fs    *syncFS
	name  string
	dirty bool
}

func (f *syncFile) Write(p []byte) (int, error) {
	f.dirty = true
	return f.File.Write(p)
}

func (f *syncFile) WriteAt(p []byte, off int64) (int, error) {
	f.dirty = true
	return f.File.WriteAt(p, off)
}

func (f *syncFile) Truncate(size int64) error {
	f.dirty = true
	return f.File.Truncate(size)
}

func (f *syncFile) Sync() error {
	if syncer, ok := f.File.(billy.Syncer); ok {
		return syncer.Sync()
	}
	return nil
}

func (f *syncFile) Lock() error {
	if locker, ok := f.File.(billy.Locker); ok {
		return locker.Lock()
	}
	return nil
}

func (f *syncFile) Unlock() error {
	if locker, ok := f.File.(billy.Locker); ok {
		return locker.Unlock()
	}
	return nil
}

func (f *syncFile) Close() error {
	if f.dirty {
		if err := f.Sync(); err != nil {
			f.File.Close()
			return err
		}
	}
	if err := f.File.Close(); err != nil {
		return err
	}
	if f.dirty {
		f.fs.synced(f.name)
	}
	return nil
}
