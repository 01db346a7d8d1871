package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/ccicconetti/qnetsim/internal/logtopo"
	"github.com/ccicconetti/qnetsim/internal/phystopo"
)

func render(phys *phystopo.Topology, logical *logtopo.Topology) string {
	var b strings.Builder
	b.WriteString("digraph qnetsim {\n")
	b.WriteString("  rankdir=LR;\n")

	for _, n := range phys.Nodes() {
		shape := "box"
		if n.Type == phystopo.OGS {
			shape = "circle"
		}
		fmt.Fprintf(&b, "  n%d [label=\"%d:%s\" shape=%s];\n", n.ID, n.ID, n.Type, shape)
	}

	for _, n := range phys.Nodes() {
		for _, e := range phys.Neighbors(n.ID) {
			if n.ID < e.To {
				fmt.Fprintf(&b, "  n%d -> n%d [dir=none, color=gray, label=\"%.0f\"];\n", n.ID, e.To, e.Weight)
			}
		}
	}

	if logical != nil {
		for _, e := range logical.Edges() {
			fmt.Fprintf(&b, "  n%d -> n%d [style=dashed, color=blue, label=\"%d mq\"];\n", e.Master, e.Slave, e.MemoryQubits)
		}
	}

	b.WriteString("}\n")
	return b.String()
}

// DumpTopologies writes one Graphviz file for the physical topology alone
// and, when logical is non-nil, a second file overlaying the logical
// topology on it (CLI --save-to-dot). SAT nodes render as boxes, OGS
// nodes as circles; logical edges render dashed. Each file's name is
// stamped with a fresh uuid so repeated dumps into the same directory
// never collide (spec §6: "dump Graphviz files ... for a single seed").
// No Graphviz library appears anywhere in the retrieved corpus, so this
// is hand-written text (see DESIGN.md).
func DumpTopologies(dir string, phys *phystopo.Topology, logical *logtopo.Topology) (physicalPath, logicalPath string, err error) {
	stem := uuid.NewString()

	physicalPath = filepath.Join(dir, stem+"-physical.dot")
	if err := os.WriteFile(physicalPath, []byte(render(phys, nil)), 0o644); err != nil {
		return "", "", fmt.Errorf("output: write %s: %w", physicalPath, err)
	}

	if logical == nil {
		return physicalPath, "", nil
	}
	logicalPath = filepath.Join(dir, stem+"-logical.dot")
	if err := os.WriteFile(logicalPath, []byte(render(phys, logical)), 0o644); err != nil {
		return "", "", fmt.Errorf("output: write %s: %w", logicalPath, err)
	}
	return physicalPath, logicalPath, nil
}
