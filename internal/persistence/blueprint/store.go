package blueprint

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"onistone.build/internal/config"
	"onistone.build/internal/sim/clipboard"
	"onistone.build/internal/sim/encoding"
)

// SharedPrefix marks shared blueprints in listings. It is never part of a
// file name.
const SharedPrefix = "[Shared] "

const ext = ".bp"

var ErrNotFound = errors.New("blueprint not found")

var nameRE = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 _.-]{0,63}$`)

func ValidName(name string) error {
	if !nameRE.MatchString(name) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: blueprint name %q", config.ErrConfiguration, name)
	}
	return nil
}

type Store struct {
	root     string
	shared   string
	maxCells int
}

func NewStore(root, shared string) (*Store, error) {
	for _, d := range []string{root, shared} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, err
		}
	}
	return &Store{root: root, shared: shared, maxCells: encoding.MaxCells}, nil
}

// SetMaxCells caps the volume of blueprints Load will decode.
func (s *Store) SetMaxCells(n int) {
	if n > 0 {
		s.maxCells = n
	}
}

func (s *Store) personal(actor string) (string, error) {
	if err := ValidName(actor); err != nil {
		return "", fmt.Errorf("%w: actor id %q", config.ErrConfiguration, actor)
	}
	return filepath.Join(s.root, "personal", actor), nil
}

// resolve maps a display name to its directory and bare name.
func (s *Store) resolve(actor, name string) (dir, bare string, err error) {
	if strings.HasPrefix(name, SharedPrefix) {
		bare = strings.TrimPrefix(name, SharedPrefix)
		dir = s.shared
	} else {
		bare = name
		dir, err = s.personal(actor)
		if err != nil {
			return "", "", err
		}
	}
	if err := ValidName(bare); err != nil {
		return "", "", err
	}
	return dir, bare, nil
}

// Save writes <name>.bp to the actor's personal folder, or the shared one.
func (s *Store) Save(actor, name string, e *clipboard.Entry, meta Metadata, shared bool) (string, error) {
	if err := ValidName(name); err != nil {
		return "", err
	}
	dir := s.shared
	if !shared {
		var err error
		if dir, err = s.personal(actor); err != nil {
			return "", err
		}
	}
	meta.Name = name
	doc, err := Encode(meta, e)
	if err != nil {
		return "", err
	}
	b, err := Marshal(doc)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name+ext)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return "", err
	}
	return path, os.Rename(tmp, path)
}

func (s *Store) Load(actor, name string) (*clipboard.Entry, Metadata, error) {
	dir, bare, err := s.resolve(actor, name)
	if err != nil {
		return nil, Metadata{}, err
	}
	raw, err := os.ReadFile(filepath.Join(dir, bare+ext))
	if errors.Is(err, os.ErrNotExist) {
		return nil, Metadata{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, Metadata{}, err
	}
	doc, err := Parse(raw)
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("%s: %w", name, err)
	}
	return DecodeLimit(doc, s.maxCells)
}

// List returns sorted display names.
func (s *Store) List(actor string, includeShared bool) ([]string, error) {
	dir, err := s.personal(actor)
	if err != nil {
		return nil, err
	}
	names, err := stems(dir, "")
	if err != nil {
		return nil, err
	}
	if includeShared {
		shared, err := stems(s.shared, SharedPrefix)
		if err != nil {
			return nil, err
		}
		names = append(names, shared...)
	}
	sort.Strings(names)
	return names, nil
}

func stems(dir, prefix string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range ents {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		out = append(out, prefix+strings.TrimSuffix(e.Name(), ext))
	}
	return out, nil
}

func (s *Store) Delete(actor, name string) error {
	dir, bare, err := s.resolve(actor, name)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(dir, bare+ext))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return err
}
