package db

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"student-roster-go/models"
)

const (
	DefaultDataFile = "data/alumnos.json" // Roster file used when none is configured
	indent          = "  "                // Pretty-print indent for the roster file
)

// JSONStore owns the in-memory student list and the JSON file that mirrors it.
// Every successful write is read back so memory always reflects the disk.
type JSONStore struct {
	path        string
	uniqueNames bool
	logger      *zap.Logger

	// readBack re-reads the file after a write; readRoster outside tests
	readBack func() ([]models.Student, error)

	mu       sync.RWMutex
	students []models.Student
	revision uint64
}

// Option configures a JSONStore
type Option func(*JSONStore)

// WithUniqueNames makes Add reject a student whose normalized given and
// family names match an existing record.
func WithUniqueNames(unique bool) Option {
	return func(s *JSONStore) {
		s.uniqueNames = unique
	}
}

// NewJSONStore creates a store for the roster file at path. Call Load to read it.
func NewJSONStore(path string, logger *zap.Logger, opts ...Option) *JSONStore {
	if path == "" {
		path = DefaultDataFile
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &JSONStore{
		path:     path,
		logger:   logger,
		students: []models.Student{},
	}
	s.readBack = s.readRoster
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenJSONStore creates a store and loads it. The store is always usable;
// the error only reports why it started empty.
func OpenJSONStore(path string, logger *zap.Logger, opts ...Option) (*JSONStore, error) {
	s := NewJSONStore(path, logger, opts...)
	return s, s.Load()
}

// Path returns the roster file location
func (s *JSONStore) Path() string { return s.path }

// Revision changes every time the in-memory list is refreshed from disk.
func (s *JSONStore) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Len returns the number of students currently held
func (s *JSONStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.students)
}

// Students returns a copy of the current list in insertion order
func (s *JSONStore) Students() []models.Student {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Student, len(s.students))
	copy(out, s.students)
	return out
}

// --- Load / Persist ---

// readRoster reads and decodes the roster file without touching store state.
func (s *JSONStore) readRoster() ([]models.Student, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &LoadError{Path: s.path, Err: err}
	}
	var roster models.Roster
	if err := json.Unmarshal(data, &roster); err != nil {
		return nil, &LoadError{Path: s.path, Err: err}
	}
	if roster.Alumnos == nil {
		return []models.Student{}, nil
	}
	return roster.Alumnos, nil
}

// Load reads the roster file into memory. It is best effort: on a missing,
// unreadable or malformed file the list is reset to empty and the *LoadError
// is logged and returned for callers that care to tell "no students" apart
// from "broken file".
func (s *JSONStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *JSONStore) loadLocked() error {
	students, err := s.readRoster()
	s.revision++
	if err != nil {
		s.logger.Warn("Could not load roster, starting empty", zap.String("path", s.path), zap.Error(err))
		s.students = []models.Student{}
		return err
	}
	s.students = students
	s.logger.Debug("Roster loaded", zap.String("path", s.path), zap.Int("count", len(students)))
	return nil
}

// Persist writes the whole list to disk and reloads it.
func (s *JSONStore) Persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked()
}

func (s *JSONStore) persistLocked() error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(models.Roster{Alumnos: s.students}); err != nil {
		return &PersistenceError{Path: s.path, Op: "encode", Err: err}
	}
	data := bytes.TrimRight(buf.Bytes(), "\n")

	if err := writeFile(s.path, data); err != nil {
		s.logger.Error("Error saving roster", zap.String("path", s.path), zap.Error(err))
		return &PersistenceError{Path: s.path, Op: "write", Err: err}
	}

	written, err := s.readBack()
	if err != nil {
		// the file changed even though it could not be confirmed
		s.revision++
		return &PersistenceError{Path: s.path, Op: "verify", Err: err}
	}
	if len(written) != len(s.students) {
		s.revision++
		return &PersistenceError{
			Path: s.path,
			Op:   "verify",
			Err:  fmt.Errorf("wrote %d students, read back %d", len(s.students), len(written)),
		}
	}
	s.students = written
	s.revision++
	return nil
}

// writeFile replaces path in full via a temp file in the same directory.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".roster-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace roster file: %w", err)
	}
	return nil
}

// --- Student Operations ---

// Add appends a student and persists the roster. Fields are stored as given,
// empty strings included. If the write fails the student stays in memory
// until the next successful Load or Add, and the error is returned.
func (s *JSONStore) Add(nombre, apellido, curso string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	student := models.Student{Nombre: nombre, Apellido: apellido, Curso: curso}
	if s.uniqueNames && s.containsLocked(student) {
		return fmt.Errorf("%s %s: %w", nombre, apellido, ErrDuplicate)
	}

	s.students = append(s.students, student)
	if err := s.persistLocked(); err != nil {
		s.logger.Error("Error adding student", zap.String("nombre", nombre), zap.String("apellido", apellido), zap.Error(err))
		return err
	}
	s.logger.Info("Added student", zap.String("nombre", nombre), zap.String("apellido", apellido), zap.String("curso", curso))
	return nil
}

func (s *JSONStore) containsLocked(student models.Student) bool {
	nombre, apellido := Normalize(student.Nombre), Normalize(student.Apellido)
	for _, existing := range s.students {
		if Normalize(existing.Nombre) == nombre && Normalize(existing.Apellido) == apellido {
			return true
		}
	}
	return false
}

// SearchByName returns the students whose given name equals query once both
// are normalized. Partial names do not match.
func (s *JSONStore) SearchByName(query string) []models.Student {
	return s.filter(query, func(st models.Student) string { return st.Nombre })
}

// SearchBySurname is SearchByName for the family name.
func (s *JSONStore) SearchBySurname(query string) []models.Student {
	return s.filter(query, func(st models.Student) string { return st.Apellido })
}

func (s *JSONStore) filter(query string, field func(models.Student) string) []models.Student {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := Normalize(query)
	matches := []models.Student{}
	for _, st := range s.students {
		if Normalize(field(st)) == want {
			matches = append(matches, st)
		}
	}
	return matches
}

// RenderListing returns one bullet line per student, or "" when empty.
func (s *JSONStore) RenderListing() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var b strings.Builder
	for _, st := range s.students {
		b.WriteString(st.Line())
		b.WriteByte('\n')
	}
	return b.String()
}

// IsLoadError reports whether err came from reading the roster file
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}
