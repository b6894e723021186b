package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"student-roster-go/models"
)

var (
	searchName    string
	searchSurname string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print every student",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprint(cmd.OutOrStdout(), openStore().RenderListing())
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add [name] [surname] [course]",
	Short: "Add a student to the roster",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := openStore().Add(args[0], args[1], args[2]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Student %s %s added to course %s.\n", args[0], args[1], args[2])
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Find students by given or family name (case and accents ignored)",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := openStore()
		var found []models.Student
		switch {
		case searchName != "":
			found = store.SearchByName(searchName)
		case searchSurname != "":
			found = store.SearchBySurname(searchSurname)
		default:
			return errors.New("one of --name or --surname is required")
		}
		if len(found) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No students found.")
			return nil
		}
		for _, st := range found {
			fmt.Fprintln(cmd.OutOrStdout(), st.Line())
		}
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import [file.xlsx]",
	Short: "Import students from an Excel workbook (columns: name, surname, course)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		n, err := openStore().ImportFromExcel(f)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d students.\n", n)
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchName, "name", "", "given name")
	searchCmd.Flags().StringVar(&searchSurname, "surname", "", "family name")
}
