package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/birdayz/edgepipe/edag"
	"github.com/birdayz/edgepipe/edoc"
	"github.com/birdayz/edgepipe/enode"
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the built-in node types",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg, err := newRegistry()
		if err != nil {
			return err
		}
		return printTypes(cmd.OutOrStdout(), reg.Types())
	},
}

func printTypes(out io.Writer, types []enode.Type) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTITLE\tCATEGORY\tVERSION\tPINS")
	for _, t := range types {
		pins := make([]string, 0, len(t.Pins))
		for _, p := range t.Pins {
			pins = append(pins, pinSpecString(p))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.Name, t.DisplayName(), t.Category, t.Version, strings.Join(pins, " "))
	}
	return w.Flush()
}

func pinSpecString(p enode.PinSpec) string {
	s := p.Dir.String() + "/" + p.Kind.String()
	if p.Sub > 0 {
		s += fmt.Sprintf(":%d", p.Sub)
	}
	if p.Multi {
		s += "*"
	}
	return s
}

var planCmd = &cobra.Command{
	Use:   "plan FILE",
	Short: "Print the execution waves of a pipeline document",
	Long: `Derives the dependencies of a pipeline document and prints the waves a
tick would run. Nodes in one wave run concurrently.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := edoc.ReadFile(args[0])
		if err != nil {
			return err
		}
		return printPlan(cmd.OutOrStdout(), doc)
	},
}

func printPlan(out io.Writer, doc *edoc.Document) error {
	deps := edag.Derive(doc.NodeTags, doc.NodeLinks)
	waves, err := deps.Waves()
	if err != nil {
		return err
	}
	for i, wave := range waves {
		tags := make([]string, len(wave))
		for j, tag := range wave {
			tags[j] = tag.String()
		}
		if _, err := fmt.Fprintf(out, "wave %d: %s\n", i+1, strings.Join(tags, ", ")); err != nil {
			return err
		}
	}
	return nil
}
