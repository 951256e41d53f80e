// Command validate checks the integrity of the per-date summary CSVs written
// by scanstats: header layout, coordinate bounds, gate-count ordering, and
// the all-or-nothing peak triple.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -dir ./data \
//	  -prefix houcsapr \
//	  -thresholds configs/thresholds.toml
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/couchcryptid/radar-scan-stats/internal/adapter/csvsink"
	"github.com/couchcryptid/radar-scan-stats/internal/config"
	"github.com/couchcryptid/radar-scan-stats/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dir := flag.String("dir", "./data", "directory containing summary CSV files")
	prefix := flag.String("prefix", "houcsapr", "summary file prefix")
	thresholdsFile := flag.String("thresholds", "", "threshold profile used for the run (defaults when empty)")
	flag.Parse()

	os.Exit(run(*dir, *prefix, *thresholdsFile))
}

func run(dir, prefix, thresholdsFile string) int {
	fmt.Println("=== Radar Summary Integrity Validation ===")
	fmt.Println()

	th, err := config.LoadThresholds(thresholdsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	files, err := filepath.Glob(filepath.Join(dir, prefix+".*.csv"))
	if err != nil || len(files) == 0 {
		fmt.Fprintf(os.Stderr, "FATAL: no %s.*.csv files in %s\n", prefix, dir)
		return 1
	}
	sort.Strings(files)

	tables := make([]table, 0, len(files))
	for _, f := range files {
		t, err := loadTable(f)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
			return 1
		}
		tables = append(tables, t)
	}

	phases := []*phase{
		validateHeaders(tables, domain.Columns(th)),
		validateBounds(tables),
		validateGateCounts(tables, th),
		validatePeak(tables),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Files: %d, rows: %d\n", len(tables), countRows(tables))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

// csvRow is a parsed CSV row with field values keyed by header name.
type csvRow struct {
	lineNum int
	fields  map[string]string
}

type table struct {
	path   string
	header []string
	rows   []csvRow
}

func loadTable(path string) (table, error) {
	f, err := os.Open(path)
	if err != nil {
		return table{}, err
	}
	defer f.Close()

	all, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return table{}, fmt.Errorf("%s: %w", path, err)
	}
	if len(all) == 0 {
		return table{}, fmt.Errorf("%s: missing header", path)
	}

	t := table{path: path, header: all[0]}
	for i, row := range all[1:] {
		fields := make(map[string]string, len(t.header))
		for j, h := range t.header {
			if j < len(row) {
				fields[h] = strings.TrimSpace(row[j])
			}
		}
		t.rows = append(t.rows, csvRow{lineNum: i + 2, fields: fields})
	}
	return t, nil
}

func countRows(tables []table) int {
	n := 0
	for _, t := range tables {
		n += len(t.rows)
	}
	return n
}

func (r csvRow) float(col string) float64 {
	v, err := csvsink.ParseFloat(r.fields[col])
	if err != nil {
		return math.NaN()
	}
	return v
}

func (r csvRow) int(col string) (int, bool) {
	v, err := strconv.Atoi(r.fields[col])
	return v, err == nil
}

// ── Phases ──

func validateHeaders(tables []table, want []string) *phase {
	p := &phase{name: "Header matches threshold profile"}
	for _, t := range tables {
		if !slices.Equal(t.header, want) {
			p.errorf("%s: header %v, want %v", filepath.Base(t.path), t.header, want)
		}
	}
	return p
}

func validateBounds(tables []table) *phase {
	p := &phase{name: "Coordinate min <= max"}
	pairs := [][2]string{
		{"azimuth_min", "azimuth_max"},
		{"elevation_min", "elevation_max"},
		{"range_min", "range_max"},
	}
	for _, t := range tables {
		for _, row := range t.rows {
			for _, pair := range pairs {
				lo, hi := row.float(pair[0]), row.float(pair[1])
				if math.IsNaN(lo) || math.IsNaN(hi) {
					p.errorf("%s:%d: %s/%s missing", filepath.Base(t.path), row.lineNum, pair[0], pair[1])
					continue
				}
				if lo > hi {
					p.errorf("%s:%d: %s=%g > %s=%g", filepath.Base(t.path), row.lineNum, pair[0], lo, pair[1], hi)
				}
			}
		}
	}
	return p
}

func validateGateCounts(tables []table, th domain.Thresholds) *phase {
	p := &phase{name: "Gate counts ordered and bounded"}
	cols := domain.Columns(th)
	base := len(cols) - len(th.ReflectivityThresholds) - len(th.HeightReflectivityThresholds) - 1
	zhCols := cols[base : base+len(th.ReflectivityThresholds)]
	heightCols := cols[base+len(th.ReflectivityThresholds) : len(cols)-1]

	for _, t := range tables {
		name := filepath.Base(t.path)
		for _, row := range t.rows {
			valid, ok := row.int("valid_gates")
			if !ok {
				p.errorf("%s:%d: valid_gates not an integer", name, row.lineNum)
				continue
			}
			prev := math.MaxInt
			for _, col := range zhCols {
				n, ok := row.int(col)
				switch {
				case !ok:
					p.errorf("%s:%d: %s not an integer", name, row.lineNum, col)
				case n > prev:
					p.errorf("%s:%d: %s=%d exceeds lower threshold count %d", name, row.lineNum, col, n, prev)
				case n > valid:
					p.errorf("%s:%d: %s=%d exceeds valid_gates=%d", name, row.lineNum, col, n, valid)
				}
				prev = n
			}
			for _, col := range heightCols {
				n, ok := row.int(col)
				if !ok || n > valid {
					p.errorf("%s:%d: %s=%q out of range (valid_gates=%d)", name, row.lineNum, col, row.fields[col], valid)
				}
			}
		}
	}
	return p
}

func validatePeak(tables []table) *phase {
	p := &phase{name: "Peak triple all-or-nothing and in bounds"}
	for _, t := range tables {
		name := filepath.Base(t.path)
		for _, row := range t.rows {
			az, rng, zh := row.float("cell_azimuth"), row.float("cell_range"), row.float("cell_zh")
			defined := 0
			for _, v := range []float64{az, rng, zh} {
				if !math.IsNaN(v) {
					defined++
				}
			}
			valid, _ := row.int("valid_gates")
			switch {
			case defined != 0 && defined != 3:
				p.errorf("%s:%d: partial peak triple", name, row.lineNum)
			case defined == 0 && valid > 0:
				p.errorf("%s:%d: undefined peak with %d valid gates", name, row.lineNum, valid)
			case defined == 3 && valid == 0:
				p.errorf("%s:%d: defined peak with no valid gates", name, row.lineNum)
			case defined == 3:
				if az < row.float("azimuth_min") || az > row.float("azimuth_max") {
					p.errorf("%s:%d: cell_azimuth %g outside azimuth bounds", name, row.lineNum, az)
				}
				if rng < row.float("range_min") || rng > row.float("range_max") {
					p.errorf("%s:%d: cell_range %g outside range bounds", name, row.lineNum, rng)
				}
			}
		}
	}
	return p
}
