package usecase

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/kirillkom/drive-filing-bot/internal/core/domain"
	"github.com/kirillkom/drive-filing-bot/internal/core/ports"
	"github.com/kirillkom/drive-filing-bot/internal/infrastructure/resilience"
)

// FolderResolver maps identity path segments to remote folder ids,
// creating missing folders on demand. Lookups for every prefix are
// memoized for the session; creation of a given (parent, name) pair is
// single-flighted so two concurrent uploads cannot create duplicates,
// while distinct paths proceed in parallel.
//
// The cache is never invalidated: a folder renamed or deleted remotely
// out of band goes stale until restart.
type FolderResolver struct {
	remote   ports.RemoteStorage
	executor *resilience.Executor
	classify resilience.ErrorClassifier

	group singleflight.Group

	mu    sync.RWMutex
	cache map[string]string
}

func NewFolderResolver(remote ports.RemoteStorage, executor *resilience.Executor, classify resilience.ErrorClassifier) *FolderResolver {
	return &FolderResolver{
		remote:   remote,
		executor: executor,
		classify: classify,
		cache:    make(map[string]string),
	}
}

// EnsurePath resolves segments left to right under rootID and returns
// the id of the final folder. Exhausted retries surface as
// ErrFolderResolution, aborting only the caller's item.
func (r *FolderResolver) EnsurePath(ctx context.Context, rootID string, segments []string) (string, error) {
	parentID := rootID
	for _, segment := range segments {
		folderID, err := r.ensureChild(ctx, parentID, segment)
		if err != nil {
			return "", domain.WrapError(domain.ErrFolderResolution, fmt.Sprintf("ensure folder %q", segment), err)
		}
		parentID = folderID
	}
	return parentID, nil
}

func (r *FolderResolver) ensureChild(ctx context.Context, parentID, name string) (string, error) {
	key := parentID + "\x00" + name

	r.mu.RLock()
	folderID, hit := r.cache[key]
	r.mu.RUnlock()
	if hit {
		return folderID, nil
	}

	resolved, err, _ := r.group.Do(key, func() (any, error) {
		// Re-check: a concurrent flight may have filled the cache
		// between our miss and entering the group.
		r.mu.RLock()
		folderID, hit := r.cache[key]
		r.mu.RUnlock()
		if hit {
			return folderID, nil
		}

		folderID, err := r.lookupOrCreate(ctx, parentID, name)
		if err != nil {
			return "", err
		}

		r.mu.Lock()
		r.cache[key] = folderID
		r.mu.Unlock()
		return folderID, nil
	})
	if err != nil {
		return "", err
	}
	return resolved.(string), nil
}

// lookupOrCreate finds an exact-name child folder or creates it. Both
// remote calls run under the shared retry/backoff policy.
func (r *FolderResolver) lookupOrCreate(ctx context.Context, parentID, name string) (string, error) {
	var folders []domain.RemoteFolder
	err := r.executor.Execute(ctx, "drive.list_folders", func(callCtx context.Context) error {
		var listErr error
		folders, listErr = r.remote.ListChildFolders(callCtx, parentID)
		return listErr
	}, r.classify)
	if err != nil {
		return "", fmt.Errorf("list child folders: %w", err)
	}

	for _, folder := range folders {
		if folder.Name == name {
			return folder.ID, nil
		}
	}

	var folderID string
	err = r.executor.Execute(ctx, "drive.create_folder", func(callCtx context.Context) error {
		var createErr error
		folderID, createErr = r.remote.CreateFolder(callCtx, parentID, name)
		return createErr
	}, r.classify)
	if err != nil {
		return "", fmt.Errorf("create folder: %w", err)
	}
	return folderID, nil
}
