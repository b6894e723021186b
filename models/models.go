package models

import "fmt"

// Student represents a student record as stored in the roster file
type Student struct {
	Nombre   string `json:"nombre"`   // Given name
	Apellido string `json:"apellido"` // Family name
	Curso    string `json:"curso"`    // Free-form course label, e.g. "5A"
}

// Line renders the student as a single bullet line (no trailing newline)
func (s Student) Line() string {
	return fmt.Sprintf("📌 %s %s - Curso: %s", s.Nombre, s.Apellido, s.Curso)
}

// Roster is the on-disk document: {"alumnos": [...]}
type Roster struct {
	Alumnos []Student `json:"alumnos"`
}
