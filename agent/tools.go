package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"student-roster-go/models"
)

// StudentStore is the part of the roster store the tools need.
type StudentStore interface {
	SearchByName(query string) []models.Student
	SearchBySurname(query string) []models.Student
	Add(nombre, apellido, curso string) error
	RenderListing() string
}

// Tool is a function the model may call. Parameters is a JSON schema object.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Run         func(args map[string]any) string
}

const (
	ToolFindByName    = "find_students_by_name"
	ToolFindBySurname = "find_students_by_surname"
	ToolAddStudent    = "add_student"
	ToolListStudents  = "list_students"
)

func stringParam(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func objectSchema(props map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// StudentTools binds the four roster tools to store.
func StudentTools(store StudentStore) []*Tool {
	return []*Tool{
		{
			Name:        ToolFindByName,
			Description: "Find students by their given name. Case and accents are ignored but the whole name must match.",
			Parameters: objectSchema(map[string]any{
				"name": stringParam("Given name of the student, capitalized, with accents when the name usually carries them."),
			}, "name"),
			Run: func(args map[string]any) string {
				name := argString(args, "name")
				return formatMatches(store.SearchByName(name), "name", name)
			},
		},
		{
			Name:        ToolFindBySurname,
			Description: "Find students by their family name.",
			Parameters: objectSchema(map[string]any{
				"surname": stringParam("Family name of the student."),
			}, "surname"),
			Run: func(args map[string]any) string {
				surname := argString(args, "surname")
				return formatMatches(store.SearchBySurname(surname), "surname", surname)
			},
		},
		{
			Name:        ToolAddStudent,
			Description: "Add a new student to the roster.",
			Parameters: objectSchema(map[string]any{
				"name":    stringParam("Given name of the student. A single word."),
				"surname": stringParam("Family name of the student."),
				"course":  stringParam("Course of the student, e.g. 4A, 4B, 5A."),
			}, "name", "surname", "course"),
			Run: func(args map[string]any) string {
				name, surname, course := argString(args, "name"), argString(args, "surname"), argString(args, "course")
				if err := store.Add(name, surname, course); err != nil {
					return fmt.Sprintf("Error adding student: %v", err)
				}
				return fmt.Sprintf("Student %s %s added to course %s.", name, surname, course)
			},
		},
		{
			Name:        ToolListStudents,
			Description: "Show every student in the roster.",
			Parameters:  objectSchema(map[string]any{}),
			Run: func(map[string]any) string {
				listing := store.RenderListing()
				if listing == "" {
					return "No students registered."
				}
				return listing
			},
		},
	}
}

func formatMatches(students []models.Student, field, query string) string {
	if len(students) == 0 {
		return fmt.Sprintf("No students found with %s %q.", field, query)
	}
	lines := make([]string, len(students))
	for i, st := range students {
		lines[i] = st.Line()
	}
	return strings.Join(lines, "\n")
}

func argString(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// decodeArgs parses the model's argument string; an empty string means no arguments.
func decodeArgs(raw string) (map[string]any, error) {
	args := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	return args, nil
}
