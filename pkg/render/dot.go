package render

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/matzehuels/tapesched/pkg/dataset"
	"github.com/matzehuels/tapesched/pkg/report"
	"github.com/matzehuels/tapesched/pkg/schedule"
	"github.com/matzehuels/tapesched/pkg/tape"
)

// Options configures ToDOT.
type Options struct {
	// Detailed adds positions and read spans to request labels. When false
	// only the visit number and request ID are shown.
	Detailed bool
	// NoClusters disables grouping requests by wrap.
	NoClusters bool
}

const headNode = "head"

// ToDOT converts a scheduling result into Graphviz DOT describing the head
// path. A nil oracle uses tape.DefaultSeek.
func ToDOT(ds *dataset.Dataset, res schedule.Result, oracle tape.SeekOracle, opts Options) string {
	if oracle == nil {
		oracle = tape.DefaultSeek()
	}
	steps := report.Steps(ds.Head, ds.Batch, res.Sequence, oracle)

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.15,0.08\"];\n")
	buf.WriteString("  edge [fontsize=11];\n")
	if ds.Name != "" {
		fmt.Fprintf(&buf, "  label=%q;\n  labelloc=t;\n", fmt.Sprintf("%s  cost %.0f", ds.Name, res.Cost))
	}
	buf.WriteString("\n")

	fmt.Fprintf(&buf, "  %q [label=%q, shape=ellipse, fillcolor=lightgrey];\n",
		headNode, fmt.Sprintf("start\nwrap %d lpos %d", ds.Head.Wrap, ds.Head.LPos))

	if opts.NoClusters {
		for _, s := range steps {
			fmt.Fprintf(&buf, "  %s;\n", nodeDecl(s, opts.Detailed))
		}
	} else {
		writeClusters(&buf, steps, opts.Detailed)
	}

	buf.WriteString("\n")
	prev := headNode
	for _, s := range steps {
		fmt.Fprintf(&buf, "  %q -> %q [label=\"%d\"];\n", prev, nodeID(s), s.Seek)
		prev = nodeID(s)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func writeClusters(buf *bytes.Buffer, steps []report.Step, detailed bool) {
	byWrap := make(map[uint32][]report.Step)
	for _, s := range steps {
		byWrap[s.Start.Wrap] = append(byWrap[s.Start.Wrap], s)
	}
	wraps := make([]uint32, 0, len(byWrap))
	for w := range byWrap {
		wraps = append(wraps, w)
	}
	slices.Sort(wraps)

	for _, w := range wraps {
		fmt.Fprintf(buf, "  subgraph cluster_wrap%d {\n", w)
		fmt.Fprintf(buf, "    label=\"wrap %d\";\n    style=dashed;\n", w)
		for _, s := range byWrap[w] {
			fmt.Fprintf(buf, "    %s;\n", nodeDecl(s, detailed))
		}
		buf.WriteString("  }\n")
	}
}

func nodeID(s report.Step) string {
	return fmt.Sprintf("req%d", s.ID)
}

func nodeDecl(s report.Step, detailed bool) string {
	lines := []string{fmt.Sprintf("#%d  id %d", s.Position+1, s.ID)}
	if detailed {
		lines = append(lines,
			fmt.Sprintf("lpos %d → %d", s.Start.LPos, s.End.LPos),
			fmt.Sprintf("read %d", s.Read))
	}
	return fmt.Sprintf("%q [label=%q]", nodeID(s), strings.Join(lines, "\n"))
}
