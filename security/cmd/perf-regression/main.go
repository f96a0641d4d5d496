// Command perf-regression compares two `go test -bench` outputs and fails when
// a tracked benchmark regresses past the threshold.
//
//	go test -run '^$' -bench . -count 5 . > new.txt
//	perf-regression -baseline old.txt -candidate new.txt
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
)

const defaultThreshold = 0.30

var trackedMetrics = map[string][]string{
	"BenchmarkValidateAccess":                       {"ns/op", "allocs/op"},
	"BenchmarkRefresh":                              {"ns/op"},
	"BenchmarkRefreshRedis":                         {"ns/op"},
	"BenchmarkLoginLogout":                          {"ns/op"},
	"BenchmarkMetricsObserveRefreshLatencyParallel": {"ns/op"},
}

type sampleSet map[string]map[string][]float64

type row struct {
	benchmark string
	metric    string
	baseline  float64
	candidate float64
	delta     float64
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run returns 0 on success, 1 on regression or read failure and 2 on bad
// usage.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("perf-regression", flag.ContinueOnError)
	fs.SetOutput(stderr)
	baselinePath := fs.String("baseline", "", "path to baseline benchmark output")
	candidatePath := fs.String("candidate", "", "path to candidate benchmark output")
	threshold := fs.Float64("threshold", defaultThreshold, "maximum allowed regression ratio (0.30 = +30%)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	switch {
	case *baselinePath == "" || *candidatePath == "":
		fmt.Fprintln(stderr, "-baseline and -candidate are required")
		return 2
	case *threshold < 0:
		fmt.Fprintln(stderr, "-threshold must be >= 0")
		return 2
	}

	var sets [2]sampleSet
	for i, path := range []string{*baselinePath, *candidatePath} {
		set, err := parseBenchmarkFile(path)
		if err != nil {
			fmt.Fprintf(stderr, "parse %s: %v\n", path, err)
			return 1
		}
		sets[i] = set
	}

	rows, failures := compare(sets[0], sets[1], trackedMetrics, *threshold)

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "benchmark\tmetric\tbaseline\tcandidate\tdelta")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%.3f\t%.3f\t%+0.2f%%\n", r.benchmark, r.metric, r.baseline, r.candidate, r.delta*100)
	}
	_ = tw.Flush()

	if len(failures) == 0 {
		return 0
	}
	fmt.Fprintln(stderr, "performance regression threshold exceeded:")
	for _, f := range failures {
		fmt.Fprintf(stderr, "  - %s\n", f)
	}
	return 1
}

// compare returns one row per tracked benchmark metric, ordered by name, and
// a failure message for every missing sample set or regression.
func compare(baseline, candidate sampleSet, tracked map[string][]string, threshold float64) ([]row, []string) {
	names := make([]string, 0, len(tracked))
	for name := range tracked {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		rows     []row
		failures []string
	)
	for _, benchmark := range names {
		for _, metric := range tracked[benchmark] {
			base := baseline[benchmark][metric]
			cand := candidate[benchmark][metric]
			if len(base) == 0 || len(cand) == 0 {
				failures = append(failures, fmt.Sprintf("missing samples for %s %s", benchmark, metric))
				continue
			}

			baseMedian := median(base)
			candMedian := median(cand)
			if baseMedian <= 0 {
				// allocs/op of zero cannot regress proportionally
				if candMedian > 0 {
					failures = append(failures, fmt.Sprintf("%s %s went from 0 to %.0f", benchmark, metric, candMedian))
				}
				continue
			}

			delta := (candMedian - baseMedian) / baseMedian
			rows = append(rows, row{benchmark, metric, baseMedian, candMedian, delta})
			if delta > threshold {
				failures = append(failures, fmt.Sprintf("%s %s regressed by %+0.2f%% (limit %+0.2f%%)", benchmark, metric, delta*100, threshold*100))
			}
		}
	}
	return rows, failures
}

func parseBenchmarkFile(path string) (sampleSet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return parseBenchmarks(file, trackedMetrics)
}

func parseBenchmarks(r io.Reader, tracked map[string][]string) (sampleSet, error) {
	samples := sampleSet{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "Benchmark") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}

		name := normalizeBenchmarkName(fields[0])
		if _, ok := tracked[name]; !ok {
			continue
		}
		if _, ok := samples[name]; !ok {
			samples[name] = map[string][]float64{}
		}

		// fields[1] is the iteration count; value/unit pairs follow
		for i := 2; i+1 < len(fields); i += 2 {
			value, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				continue
			}
			samples[name][fields[i+1]] = append(samples[name][fields[i+1]], value)
		}
	}
	return samples, scanner.Err()
}

// normalizeBenchmarkName strips the -GOMAXPROCS suffix.
func normalizeBenchmarkName(raw string) string {
	if idx := strings.LastIndexByte(raw, '-'); idx > 0 {
		if _, err := strconv.Atoi(raw[idx+1:]); err == nil {
			return raw[:idx]
		}
	}
	return raw
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
