package render

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
)

// Text writes the view as bordered terminal tables, one per section.
func Text(w io.Writer, v View) error {
	if v.Timing != nil {
		if err := section(w, TitleTiming, []string{"Stage", "Seconds"}, v.Timing); err != nil {
			return err
		}
	}
	if v.Header != nil {
		if err := section(w, TitleHeader, []string{"Field", "Value"}, v.Header); err != nil {
			return err
		}
	}
	if v.Items != nil {
		if _, err := fmt.Fprintf(w, "%s\n", TitleItems); err != nil {
			return err
		}
		for i, item := range v.Items {
			if err := section(w, itemTitle(i, item), []string{"Field", "Value"}, item.Fields); err != nil {
				return err
			}
		}
	}
	if v.Additional != nil {
		if err := section(w, TitleAdditional, []string{"Field", "Value"}, v.Additional); err != nil {
			return err
		}
	}
	return nil
}

func section(w io.Writer, title string, header []string, rows []Row) error {
	if _, err := fmt.Fprintf(w, "%s\n", title); err != nil {
		return err
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, r := range rows {
		table.Append([]string{r.Label, r.Value})
	}
	table.Render()
	_, err := fmt.Fprintln(w)
	return err
}

func itemTitle(i int, item Item) string {
	if item.Title == "" {
		return fmt.Sprintf("Item %d", i+1)
	}
	return item.Title
}
