package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	searchName, searchSurname = "", ""
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCLIAddListSearch(t *testing.T) {
	data := filepath.Join(t.TempDir(), "alumnos.json")

	out, err := run(t, "add", "José", "Núñez", "5A", "--data", data)
	require.NoError(t, err)
	assert.Equal(t, "Student José Núñez added to course 5A.\n", out)

	_, err = run(t, "add", "María", "Pérez", "4B", "--data", data)
	require.NoError(t, err)

	out, err = run(t, "list", "--data", data)
	require.NoError(t, err)
	assert.Equal(t, "📌 José Núñez - Curso: 5A\n📌 María Pérez - Curso: 4B\n", out)

	out, err = run(t, "search", "--name", "JOSE", "--data", data)
	require.NoError(t, err)
	assert.Equal(t, "📌 José Núñez - Curso: 5A\n", out)

	out, err = run(t, "search", "--surname", "gomez", "--data", data)
	require.NoError(t, err)
	assert.Equal(t, "No students found.\n", out)

	_, err = run(t, "search", "--data", data)
	assert.Error(t, err)
}

func TestCLIImport(t *testing.T) {
	dir := t.TempDir()
	book := filepath.Join(dir, "alumnos.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Nombre", "Apellido", "Curso"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"Ana", "Gómez", "5A"}))
	require.NoError(t, f.SaveAs(book))
	require.NoError(t, f.Close())

	data := filepath.Join(dir, "alumnos.json")
	out, err := run(t, "import", book, "--data", data)
	require.NoError(t, err)
	assert.Equal(t, "Imported 1 students.\n", out)

	out, err = run(t, "list", "--data", data)
	require.NoError(t, err)
	assert.Equal(t, "📌 Ana Gómez - Curso: 5A\n", out)
}

func TestCLIListMissingFileIsEmpty(t *testing.T) {
	out, err := run(t, "list", "--data", filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, err)
	assert.Equal(t, "", out)
}
