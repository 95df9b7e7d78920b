package views

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LabelStats summarises the recordings sharing one label.
type LabelStats struct {
	Label      string
	Files      int
	TotalLines int
}

// AverageLines is the mean line count per file.
func (s LabelStats) AverageLines() float64 {
	if s.Files == 0 {
		return 0
	}
	return float64(s.TotalLines) / float64(s.Files)
}

// DatasetStats scans dir for *.csv recordings and groups them by label, the
// last "_"-separated token of the file stem (gesture_03_7.csv -> "7").
// Results are sorted by label.
func DatasetStats(dir string) ([]LabelStats, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dataset dir: %w", err)
	}

	byLabel := make(map[string]*LabelStats)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		lines, err := countLines(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		label := labelOf(e.Name())
		st, ok := byLabel[label]
		if !ok {
			st = &LabelStats{Label: label}
			byLabel[label] = st
		}
		st.Files++
		st.TotalLines += lines
	}

	out := make([]LabelStats, 0, len(byLabel))
	for _, st := range byLabel {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

func labelOf(name string) string {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	parts := strings.Split(stem, "_")
	return parts[len(parts)-1]
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("scan %s: %w", path, err)
	}
	return n, nil
}

// RenderDatasetStats formats stats as an aligned table.
func RenderDatasetStats(stats []LabelStats) string {
	var b strings.Builder
	b.WriteString(StyleHeader.Render(fmt.Sprintf("%-12s %8s %12s", "LABEL", "FILES", "AVG LINES")))
	b.WriteByte('\n')
	for _, s := range stats {
		b.WriteString(StyleValue.Render(fmt.Sprintf("%-12s %8d %12.1f", s.Label, s.Files, s.AverageLines())))
		b.WriteByte('\n')
	}
	if len(stats) == 0 {
		b.WriteString(StyleLabel.Render("no .csv recordings found"))
		b.WriteByte('\n')
	}
	return b.String()
}
