package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/spendview/spendview/internal/config"
)

// Table layout.
const (
	tabMinWidth = 0
	tabWidth    = 0
	tabPadding  = 2
)

// render writes v in format. Table output is produced by table, which writes
// tab-separated lines.
func render(w io.Writer, format string, v any, table func(tw *tabwriter.Writer)) error {
	switch format {
	case config.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case config.FormatYAML:
		return renderYAML(w, v)
	case config.FormatTable, "":
		tw := tabwriter.NewWriter(w, tabMinWidth, tabWidth, tabPadding, ' ', 0)
		table(tw)
		return tw.Flush()
	default:
		return fmt.Errorf("%w: %q", config.ErrInvalidFormat, format)
	}
}

// renderYAML encodes v through its JSON form so YAML and JSON output share
// field names.
func renderYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err = json.Unmarshal(data, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err = enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}

// failure turns a Failed view message into a command error. The message is
// printed verbatim by main.
func failure(message string) error {
	return errors.New(message)
}

func row(tw io.Writer, cells ...string) {
	for i, c := range cells {
		if i > 0 {
			_, _ = io.WriteString(tw, "\t")
		}
		_, _ = io.WriteString(tw, c)
	}
	_, _ = io.WriteString(tw, "\n")
}
