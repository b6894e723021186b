package db

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"student-roster-go/models"
)

var excelHeader = []interface{}{"Nombre", "Apellido", "Curso"}

// --- Excel Import ---

// ImportFromExcel reads a workbook and appends its students to the roster,
// persisting once at the end. The first sheet is used, row 1 is a header and
// columns A, B and C hold given name, family name and course.
func (s *JSONStore) ImportFromExcel(file io.Reader) (int, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return 0, fmt.Errorf("failed to open excel file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("Error closing excel file", zap.Error(err))
		}
	}()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return 0, errors.New("excel file does not contain any sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return 0, fmt.Errorf("failed to get rows from sheet %s: %w", sheetName, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	imported := 0
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		student := models.Student{Nombre: cell(row, 0), Apellido: cell(row, 1), Curso: cell(row, 2)}
		if student.Nombre == "" || student.Apellido == "" {
			s.logger.Debug("Skipping row without name", zap.Int("row", i+1))
			continue
		}
		if s.uniqueNames && s.containsLocked(student) {
			s.logger.Info("Skipping duplicate student", zap.Int("row", i+1),
				zap.String("nombre", student.Nombre), zap.String("apellido", student.Apellido))
			continue
		}
		s.students = append(s.students, student)
		imported++
	}

	if imported == 0 {
		return 0, nil
	}
	if err := s.persistLocked(); err != nil {
		return 0, err
	}
	s.logger.Info("Imported students from excel", zap.Int("count", imported))
	return imported, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// --- Excel Export ---

// ExportExcel writes the current roster as a single-sheet workbook.
func (s *JSONStore) ExportExcel(w io.Writer) error {
	students := s.Students()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	if err := f.SetSheetRow(sheet, "A1", &excelHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, st := range students {
		addr, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, addr, &[]interface{}{st.Nombre, st.Apellido, st.Curso}); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
