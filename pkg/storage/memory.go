package storage

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
)

// MemoryStorage implements Storage in process memory. Reads observe every
// completed write immediately.
type MemoryStorage struct {
	mu       sync.RWMutex
	objects  map[string][]byte
	watchers []chan string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string][]byte)}
}

func clean(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

func (s *MemoryStorage) Read(_ context.Context, p string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.objects[clean(p)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *MemoryStorage) Write(_ context.Context, p string, data []byte) error {
	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	s.objects[clean(p)] = buf
	s.mu.Unlock()

	s.notify(clean(p))
	return nil
}

func (s *MemoryStorage) Delete(_ context.Context, p string) error {
	s.mu.Lock()
	key := clean(p)
	if _, ok := s.objects[key]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	delete(s.objects, key)
	s.mu.Unlock()

	s.notify(key)
	return nil
}

// List returns the direct children of prefix, sorted by name.
func (s *MemoryStorage) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dir := clean(prefix)
	var paths []string
	for key := range s.objects {
		if path.Dir(key) == dir {
			paths = append(paths, key)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (s *MemoryStorage) Exists(_ context.Context, p string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.objects[clean(p)]
	return ok, nil
}

// Watch reports every write and delete made through this MemoryStorage.
func (s *MemoryStorage) Watch(ctx context.Context) (<-chan string, error) {
	ch := make(chan string, 64)

	s.mu.Lock()
	s.watchers = append(s.watchers, ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, w := range s.watchers {
			if w == ch {
				s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch, nil
}

func (s *MemoryStorage) notify(p string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.watchers {
		select {
		case ch <- p:
		default:
			// watcher is behind, drop
		}
	}
}
