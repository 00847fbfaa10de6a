package ps

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/cache"
	"github.com/go-git/go-git/v6/storage/filesystem"
	"github.com/go-git/go-git/v6/storage/memory"
)

var (
	ErrNotInitialized = errors.New("persistence layer not initialized")
	ErrRepoNotFound   = errors.New("repository not found")
)

const (
	storeDir = "store"
	walFile  = "wal.log"

	// PageSize is the unit of the object cache option.
	PageSize = 4 * cache.KiByte
)

// Persistence is the primary store of a database location: a git object
// store holding the last checkpoint, plus the filesystem that carries the
// write-ahead log next to it.
type Persistence struct {
	repo    *git.Repository
	fs      billy.Filesystem
	durable *syncFS // object store of a file location
	memory  bool
	closer  io.Closer
	mu      sync.RWMutex
}

// IsInitialized returns true if the persistence layer has a valid repository
func (p *Persistence) IsInitialized() bool {
	return p != nil && p.repo != nil
}

func (p *Persistence) ensureInitialized() error {
	if !p.IsInitialized() {
		return ErrNotInitialized
	}
	return nil
}

// IsMemory reports whether nothing outlives the process.
func (p *Persistence) IsMemory() bool {
	return p.memory
}

// Filesystem is the location root; the write-ahead log lives here.
func (p *Persistence) Filesystem() billy.Filesystem {
	return p.fs
}

func NewMemoryPersistence() (*Persistence, error) {
	repo, err := git.Init(memory.NewStorage())
	if err != nil {
		return nil, err
	}

	return &Persistence{
		repo:   repo,
		fs:     memfs.New(),
		memory: true,
	}, nil
}

// NewFilePersistence opens or creates the store under baseDir. cachePages
// sizes the object cache in PageSize units.
func NewFilePersistence(baseDir string, cachePages int) (*Persistence, error) {
	baseDir, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, err
	}

	// Bound filesystems hand out the os files themselves, so Sync and Lock
	// reach the descriptor.
	root := osfs.New(baseDir, osfs.WithBoundOS())
	fs := newSyncFS(osfs.New(filepath.Join(baseDir, storeDir), osfs.WithBoundOS()))

	objectCache := cache.NewObjectLRUDefault()
	if cachePages > 0 {
		objectCache = cache.NewObjectLRU(cache.FileSize(cachePages) * PageSize)
	}

	storer := filesystem.NewStorageWithOptions(
		fs,
		objectCache,
		filesystem.Options{ExclusiveAccess: true})

	var repo *git.Repository
	if _, statErr := root.Stat(storeDir); statErr != nil {
		repo, err = git.Init(storer)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize store: %w", err)
		}
		if err := fs.Flush(); err != nil {
			return nil, fmt.Errorf("failed to sync store: %w", err)
		}
	} else {
		repo, err = git.Open(storer, nil)
		if err != nil {
			if errors.Is(err, git.ErrRepositoryNotExists) {
				return nil, ErrRepoNotFound
			}
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
	}

	return &Persistence{
		repo:    repo,
		fs:      root,
		durable: fs,
		closer:  storer,
	}, nil
}

// Close releases open packfiles of a file store.
func (p *Persistence) Close() error {
	if p.closer == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closer.Close()
}
