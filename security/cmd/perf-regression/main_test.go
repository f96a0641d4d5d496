package main

import (
	"strings"
	"testing"
)

const baselineOutput = `goos: linux
goarch: amd64
pkg: github.com/MrEthical07/goSession
BenchmarkValidateAccess-8   	  500000	      2000 ns/op	     900 B/op	      12 allocs/op
BenchmarkValidateAccess-8   	  500000	      2200 ns/op	     900 B/op	      12 allocs/op
BenchmarkRefresh-8          	   20000	     60000 ns/op
PASS
`

const candidateOutput = `BenchmarkValidateAccess-8   	  500000	      2100 ns/op	     900 B/op	      12 allocs/op
BenchmarkValidateAccess-8   	  500000	      2100 ns/op	     900 B/op	      12 allocs/op
BenchmarkRefresh-8          	   10000	     90000 ns/op
`

var testTracked = map[string][]string{
	"BenchmarkValidateAccess": {"ns/op", "allocs/op"},
	"BenchmarkRefresh":        {"ns/op"},
}

func TestParseBenchmarks(t *testing.T) {
	samples, err := parseBenchmarks(strings.NewReader(baselineOutput), testTracked)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := samples["BenchmarkValidateAccess"]["ns/op"]; len(got) != 2 || got[1] != 2200 {
		t.Fatalf("validate ns/op = %v", got)
	}
	if got := samples["BenchmarkValidateAccess"]["allocs/op"]; len(got) != 2 || got[0] != 12 {
		t.Fatalf("validate allocs/op = %v", got)
	}
}

func TestCompareFlagsRegression(t *testing.T) {
	base, _ := parseBenchmarks(strings.NewReader(baselineOutput), testTracked)
	cand, _ := parseBenchmarks(strings.NewReader(candidateOutput), testTracked)

	rows, failures := compare(base, cand, testTracked, 0.30)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if len(failures) != 1 || !strings.Contains(failures[0], "BenchmarkRefresh ns/op") {
		t.Fatalf("failures = %v", failures)
	}
}

func TestCompareMissingSamples(t *testing.T) {
	base, _ := parseBenchmarks(strings.NewReader(baselineOutput), testTracked)

	_, failures := compare(base, sampleSet{}, testTracked, 0.30)
	if len(failures) != 3 {
		t.Fatalf("failures = %v", failures)
	}
}

func TestNormalizeBenchmarkName(t *testing.T) {
	cases := map[string]string{
		"BenchmarkRefresh-16":     "BenchmarkRefresh",
		"BenchmarkRefresh":        "BenchmarkRefresh",
		"BenchmarkLogin-Logout-4": "BenchmarkLogin-Logout",
		"BenchmarkLogin-Logout":   "BenchmarkLogin-Logout",
	}
	for in, want := range cases {
		if got := normalizeBenchmarkName(in); got != want {
			t.Errorf("normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRunUsageErrors(t *testing.T) {
	cases := [][]string{
		{},
		{"-baseline", "a.txt"},
		{"-baseline", "a.txt", "-candidate", "b.txt", "-threshold", "-1"},
		{"-nope"},
	}
	for _, args := range cases {
		var stdout, stderr strings.Builder
		if code := run(args, &stdout, &stderr); code != 2 {
			t.Errorf("run(%q) = %d, want 2", args, code)
		}
		if stderr.Len() == 0 {
			t.Errorf("run(%q) wrote nothing to stderr", args)
		}
	}
}
