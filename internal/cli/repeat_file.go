package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"auto-repeat/internal/model"
	"auto-repeat/internal/service"
)

// repeatFile is the YAML layout used by repeat export and repeat import.
type repeatFile struct {
	AutoRepeats []repeatEntry `yaml:"auto_repeats"`
}

type repeatEntry struct {
	Doctype   string   `yaml:"doctype"`
	Document  string   `yaml:"document"`
	Frequency string   `yaml:"frequency"`
	Days      []string `yaml:"days,omitempty"`
	Start     string   `yaml:"start,omitempty"`
	End       string   `yaml:"end,omitempty"`
	Disabled  bool     `yaml:"disabled,omitempty"`
	Submit    bool     `yaml:"submit,omitempty"`
	Notify    bool     `yaml:"notify,omitempty"`
}

func entryOf(ar model.AutoRepeat) repeatEntry {
	e := repeatEntry{
		Doctype:   ar.ReferenceDoctype,
		Document:  ar.ReferenceDocument,
		Frequency: ar.Frequency,
		Days:      ar.DayNames(),
		Start:     ar.StartDate.Format(time.DateOnly),
		Disabled:  ar.Disabled,
		Submit:    ar.SubmitOnCreation,
		Notify:    ar.Notify,
	}
	if len(e.Days) == 0 {
		e.Days = nil
	}
	if ar.EndDate != nil {
		e.End = ar.EndDate.Format(time.DateOnly)
	}
	return e
}

func (e repeatEntry) input(loc *time.Location) (service.AutoRepeatInput, error) {
	in := service.AutoRepeatInput{
		ReferenceDoctype:  e.Doctype,
		ReferenceDocument: e.Document,
		Frequency:         e.Frequency,
		RepeatOnDays:      e.Days,
		Disabled:          e.Disabled,
		SubmitOnCreation:  e.Submit,
		Notify:            e.Notify,
	}
	var err error
	if e.Start != "" {
		if in.StartDate, err = parseDate(e.Start, loc); err != nil {
			return in, err
		}
	}
	if in.EndDate, err = parseOptionalDate(e.End, loc); err != nil {
		return in, err
	}
	return in, nil
}

func decodeRepeatFile(r io.Reader) (repeatFile, error) {
	var f repeatFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return f, fmt.Errorf("decode auto repeats: %w", err)
	}
	return f, nil
}

var repeatExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print every auto repeat as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		list, err := a.autoRepeats.List(cmd.Context())
		if err != nil {
			return err
		}
		var f repeatFile
		for _, ar := range list {
			f.AutoRepeats = append(f.AutoRepeats, entryOf(ar))
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(f); err != nil {
			return err
		}
		return enc.Close()
	},
}

var repeatImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Create the auto repeats listed in a YAML file",
	Long: `Create the auto repeats listed in a YAML file, in the layout printed by
repeat export. Every entry is created on its own; failed entries are reported
and the rest are still created.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer file.Close()

		f, err := decodeRepeatFile(file)
		if err != nil {
			return err
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		var errs []error
		created := 0
		for i, e := range f.AutoRepeats {
			in, err := e.input(a.loc)
			if err == nil {
				_, err = a.autoRepeats.Create(cmd.Context(), in)
			}
			if err != nil {
				errs = append(errs, fmt.Errorf("entry %d (%s %s): %w", i+1, e.Doctype, e.Document, err))
				continue
			}
			created++
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %d of %d auto repeat(s)\n", created, len(f.AutoRepeats))
		return errors.Join(errs...)
	},
}

func init() {
	repeatCmd.AddCommand(repeatExportCmd, repeatImportCmd)
}
