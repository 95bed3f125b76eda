package cli

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gorm.io/datatypes"

	"auto-repeat/internal/model"
	"auto-repeat/internal/repository"
)

var docCmd = &cobra.Command{
	Use:   "doc",
	Short: "Manage reference documents and their assignments",
}

var (
	docName        string
	docSubject     string
	docStart       string
	docEnd         string
	docFields      []string
	docDescription string
	docPriority    string
)

var docAddCmd = &cobra.Command{
	Use:   "add <doctype>",
	Short: "Add a document",
	Long: `Add a document that an auto repeat can use as its reference.

Examples:
  autorepeat doc add Task --name TASK-1 --subject "Weekly review" --start 2025-08-25 --field project=PROJ-1`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fields, err := parseFields(docFields)
		if err != nil {
			return err
		}
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		doc := &model.Document{
			Name:    strings.TrimSpace(docName),
			Doctype: args[0],
			Subject: docSubject,
			Fields:  fields,
		}
		if doc.StartDate, err = parseOptionalDate(docStart, a.loc); err != nil {
			return err
		}
		if doc.EndDate, err = parseOptionalDate(docEnd, a.loc); err != nil {
			return err
		}
		if err := repository.NewDocumentRepository(a.db, a.cfg.NoCopyFields).Insert(cmd.Context(), doc); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s\n", doc.Doctype, doc.Name)
		return nil
	},
}

var docListCmd = &cobra.Command{
	Use:   "generated <auto-repeat-name>",
	Short: "List documents generated by an auto repeat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		docs, err := repository.NewDocumentRepository(a.db, nil).ListByAutoRepeat(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tDOCTYPE\tSTART\tEND\tSTATUS\tSUBJECT")
		for _, d := range docs {
			status := "Draft"
			if d.IsSubmitted() {
				status = "Submitted"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", d.Name, d.Doctype, formatDate(d.StartDate), formatDate(d.EndDate), status, d.Subject)
		}
		return w.Flush()
	},
}

var docAssignCmd = &cobra.Command{
	Use:   "assign <doctype> <document> <owner>",
	Short: "Assign a document to an owner",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := repository.NewDocumentRepository(a.db, nil).Get(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		assignment, err := repository.NewAssignmentRepository(a.db).Assign(cmd.Context(), repository.AssignInput{
			ReferenceType: args[0],
			ReferenceName: args[1],
			Owner:         args[2],
			Description:   docDescription,
			Priority:      docPriority,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Assignment %d: %s on %s %s\n", assignment.ID, assignment.Owner, args[0], args[1])
		return nil
	},
}

var docCloseCmd = &cobra.Command{
	Use:   "close-assignment <id>",
	Short: "Close an assignment so it is no longer copied",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid assignment id %q", args[0])
		}
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		return repository.NewAssignmentRepository(a.db).Close(cmd.Context(), uint(id))
	},
}

// parseFields turns key=value pairs into document fields.
func parseFields(pairs []string) (datatypes.JSONMap, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	fields := make(datatypes.JSONMap, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field %q, expected key=value", p)
		}
		fields[key] = value
	}
	return fields, nil
}

func init() {
	docAddCmd.Flags().StringVar(&docName, "name", "", "document name, generated when empty")
	docAddCmd.Flags().StringVar(&docSubject, "subject", "", "document subject")
	docAddCmd.Flags().StringVar(&docStart, "start", "", "start date (YYYY-MM-DD)")
	docAddCmd.Flags().StringVar(&docEnd, "end", "", "end date (YYYY-MM-DD)")
	docAddCmd.Flags().StringArrayVar(&docFields, "field", nil, "extra field as key=value, repeatable")
	docAssignCmd.Flags().StringVar(&docDescription, "description", "", "what the owner should do")
	docAssignCmd.Flags().StringVar(&docPriority, "priority", model.PriorityMedium, "Low, Medium or High")

	docCmd.AddCommand(docAddCmd, docListCmd, docAssignCmd, docCloseCmd)
	rootCmd.AddCommand(docCmd)
}
