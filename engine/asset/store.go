package asset

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/Carmen-Shannon/oxy-resolve/common"
)

// Store is the read side of the file layer. Every file read through a Store has a DependencyValidation that changes
// when the file changes, so resources built from it can be rebuilt.
type Store interface {
	// ReadFile returns the contents of the named file. Names use forward slashes and are relative to the store root.
	//
	// Parameters:
	//   - name: the file name
	//
	// Returns:
	//   - []byte: the file contents
	//   - error: an *IOError when the file could not be read
	ReadFile(name string) ([]byte, error)

	// Validation returns the dependency validation tracking the named file. The same validation is returned for
	// every call with the same name.
	//
	// Parameters:
	//   - name: the file name
	//
	// Returns:
	//   - DependencyValidation: the validation for that file
	Validation(name string) DependencyValidation

	// Invalidate marks the named file as changed.
	//
	// Parameters:
	//   - name: the file name
	Invalidate(name string)

	// Close stops any file watching and releases resources.
	//
	// Returns:
	//   - error: an error if shutting down the watcher failed
	Close() error
}

// validationSet is the name -> validation map shared by every Store implementation.
type validationSet struct {
	mu          *sync.Mutex
	validations map[string]DependencyValidation
}

func newValidationSet() validationSet {
	return validationSet{mu: &sync.Mutex{}, validations: make(map[string]DependencyValidation)}
}

// get returns the validation for name and whether it was newly created.
func (v validationSet) get(name string) (DependencyValidation, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if dv, ok := v.validations[name]; ok {
		return dv, false
	}
	dv := NewDependencyValidation()
	v.validations[name] = dv
	return dv, true
}

func (v validationSet) invalidate(name string) {
	v.mu.Lock()
	dv, ok := v.validations[name]
	v.mu.Unlock()
	if ok {
		common.Logger().Info("asset changed", "name", name)
		dv.OnChange()
	}
}

type fsStoreImpl struct {
	fsys fs.FS
	validationSet
}

var _ Store = &fsStoreImpl{}

// NewFSStore creates a Store over an fs.FS. Used for embedded shader sources and tests. Changes are only observed
// through Invalidate.
//
// Parameters:
//   - fsys: the file system to read from
//
// Returns:
//   - Store: the new store
func NewFSStore(fsys fs.FS) Store {
	if fsys == nil {
		panic("asset: NewFSStore requires a file system")
	}
	return &fsStoreImpl{fsys: fsys, validationSet: newValidationSet()}
}

func (s *fsStoreImpl) ReadFile(name string) ([]byte, error) {
	name = cleanName(name)
	data, err := fs.ReadFile(s.fsys, name)
	if err != nil {
		return nil, AsIOError(err, name)
	}
	return data, nil
}

func (s *fsStoreImpl) Validation(name string) DependencyValidation {
	dv, _ := s.get(cleanName(name))
	return dv
}

func (s *fsStoreImpl) Invalidate(name string) {
	s.invalidate(cleanName(name))
}

func (s *fsStoreImpl) Close() error {
	return nil
}

type dirStoreImpl struct {
	root    string
	retries uint64
	watch   bool
	watcher *fsnotify.Watcher
	watched map[string]struct{}
	wmu     *sync.Mutex
	done    chan struct{}
	closed  *sync.Once
	validationSet
}

var _ Store = &dirStoreImpl{}

// NewDirStore creates a Store reading files below root on the OS file system. Unless disabled with WithWatch(false),
// every directory holding a file that has a validation is watched with fsnotify and writes invalidate the file.
// Reads are retried with exponential backoff because editors often write a file in several steps.
//
// Parameters:
//   - root: the directory files are resolved against
//   - opts: optional builder options
//
// Returns:
//   - Store: the new store
//   - error: an error if the file watcher could not be created
func NewDirStore(root string, opts ...DirStoreBuilderOption) (Store, error) {
	s := &dirStoreImpl{
		root:          root,
		retries:       3,
		watch:         true,
		watched:       make(map[string]struct{}),
		wmu:           &sync.Mutex{},
		done:          make(chan struct{}),
		closed:        &sync.Once{},
		validationSet: newValidationSet(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.watch {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, AsIOError(err, root)
		}
		s.watcher = w
		go s.watchLoop()
	}
	return s, nil
}

func (s *dirStoreImpl) ReadFile(name string) ([]byte, error) {
	name = cleanName(name)
	full := filepath.Join(s.root, filepath.FromSlash(name))

	var data []byte
	op := func() error {
		var err error
		data, err = os.ReadFile(full)
		if err != nil && (errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission)) {
			return backoff.Permanent(err)
		}
		return err
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	if err := backoff.Retry(op, backoff.WithMaxRetries(b, s.retries)); err != nil {
		return nil, AsIOError(err, name)
	}
	return data, nil
}

func (s *dirStoreImpl) Validation(name string) DependencyValidation {
	name = cleanName(name)
	dv, created := s.get(name)
	if created && s.watcher != nil {
		s.watchDir(filepath.Dir(filepath.Join(s.root, filepath.FromSlash(name))))
	}
	return dv
}

func (s *dirStoreImpl) Invalidate(name string) {
	s.invalidate(cleanName(name))
}

func (s *dirStoreImpl) Close() error {
	if s.watcher == nil {
		return nil
	}
	var err error
	s.closed.Do(func() {
		close(s.done)
		err = s.watcher.Close()
	})
	return err
}

func (s *dirStoreImpl) watchDir(dir string) {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if _, ok := s.watched[dir]; ok {
		return
	}
	if err := s.watcher.Add(dir); err != nil {
		common.Logger().Warn("asset: cannot watch directory", "dir", dir, "err", err)
		return
	}
	s.watched[dir] = struct{}{}
}

func (s *dirStoreImpl) watchLoop() {
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			rel, err := filepath.Rel(s.root, event.Name)
			if err != nil {
				continue
			}
			s.invalidate(cleanName(filepath.ToSlash(rel)))
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			common.Logger().Warn("asset: watcher error", "err", err)
		}
	}
}

func cleanName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	return strings.TrimPrefix(path.Clean("/"+name), "/")
}
