package theme

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
)

var (
	ErrUnknownPath  = errors.New("unknown config path")
	ErrInvalidValue = errors.New("invalid config value")
	ErrReservedPath = errors.New("config path is managed by the presence linker")
)

// Store holds the config being edited in one session. Every mutation
// produces a new Config value and never writes into one already handed out.
type Store struct {
	mu      sync.RWMutex
	emitMu  sync.Mutex
	current Config

	nextObserverID int
	observers      map[int]func(Config)
	observerOrder  []int
}

func NewStore(initial Config) *Store {
	return &Store{
		current:   initial.Clone(),
		observers: map[int]func(Config){},
	}
}

// Snapshot returns the currently held config for persistence.
func (s *Store) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Subscribe registers fn to receive every config produced by a mutation, in
// the order mutations were issued. Observers must not mutate the store.
func (s *Store) Subscribe(fn func(Config)) func() {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	id := s.nextObserverID
	s.nextObserverID++
	s.observers[id] = fn
	s.observerOrder = append(s.observerOrder, id)

	return func() {
		s.emitMu.Lock()
		defer s.emitMu.Unlock()
		delete(s.observers, id)
		for i, existing := range s.observerOrder {
			if existing == id {
				s.observerOrder = append(s.observerOrder[:i], s.observerOrder[i+1:]...)
				break
			}
		}
	}
}

// Replace swaps the whole config, e.g. after applying a template or a
// presence mutation.
func (s *Store) Replace(cfg Config) Config {
	return s.mutate(func(Config) (Config, error) {
		return cfg.Clone(), nil
	})
}

// Mutate applies fn to a private copy of the current config.
func (s *Store) Mutate(fn func(cfg *Config) error) (Config, error) {
	var applyErr error
	next := s.mutate(func(current Config) (Config, error) {
		draft := current.Clone()
		if err := fn(&draft); err != nil {
			applyErr = err
			return current, err
		}
		return draft, nil
	})
	return next, applyErr
}

// Update replaces one leaf or one whole subtree addressed by its json path,
// e.g. []string{"colors", "primary"} or []string{"layout"}. Subtrees are
// merged over that subtree's defaults so they come out fully populated.
func (s *Store) Update(path []string, value any) (Config, error) {
	if len(path) == 0 {
		return s.Snapshot(), fmt.Errorf("%w: empty path", ErrUnknownPath)
	}
	if len(path) >= 2 && path[0] == "presence" && path[1] == "networkServers" {
		return s.Snapshot(), fmt.Errorf("%w: %s", ErrReservedPath, strings.Join(path, "."))
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return s.Snapshot(), fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	incoming := gjson.ParseBytes(raw)

	var updateErr error
	next := s.mutate(func(current Config) (Config, error) {
		draft := current.Clone()
		defaults := Default()

		target, c, err := locate(reflect.ValueOf(&draft).Elem(), path)
		if err != nil {
			updateErr = err
			return current, err
		}
		fallback, _, _ := locate(reflect.ValueOf(&defaults).Elem(), path)
		target.Set(fallback)

		if !mergeValue(target, incoming, c) {
			updateErr = fmt.Errorf("%w: %s", ErrInvalidValue, strings.Join(path, "."))
			return current, updateErr
		}
		if len(path) == 1 && path[0] == "presence" {
			draft.Presence.NetworkServers = append([]NetworkServer{}, current.Presence.NetworkServers...)
		}
		return draft, nil
	})
	return next, updateErr
}

func (s *Store) mutate(fn func(current Config) (Config, error)) Config {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	next, err := fn(s.current)
	if err != nil {
		s.mu.Unlock()
		return s.current.Clone()
	}
	s.current = next
	s.mu.Unlock()

	for _, id := range s.observerOrder {
		s.observers[id](next.Clone())
	}
	return next.Clone()
}

func locate(root reflect.Value, path []string) (reflect.Value, constraint, error) {
	current := root
	c := constraint{}
	for i, segment := range path {
		if current.Kind() != reflect.Struct {
			return reflect.Value{}, c, fmt.Errorf("%w: %s", ErrUnknownPath, strings.Join(path[:i+1], "."))
		}
		t := current.Type()
		found := false
		for j := 0; j < t.NumField(); j++ {
			field := t.Field(j)
			if jsonName(field) == segment {
				current = current.Field(j)
				c = parseConstraint(field.Tag.Get("theme"))
				found = true
				break
			}
		}
		if !found {
			return reflect.Value{}, c, fmt.Errorf("%w: %s", ErrUnknownPath, strings.Join(path[:i+1], "."))
		}
	}
	return current, c, nil
}

// ParsePath splits a dotted path such as "colors.primary".
func ParsePath(dotted string) []string {
	dotted = strings.Trim(strings.TrimSpace(dotted), ".")
	if dotted == "" {
		return nil
	}
	return strings.Split(dotted, ".")
}
