// Command benchmark compares the Hyperscan-backed and pure Go prefilters
// across a growing rule set, scanning every file under a target directory
// with each.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	himitsu "github.com/obelisk/himitsu/pkg"
)

// result holds one (engine, rule count) benchmark run's measurements.
type result struct {
	Engine          string
	RuleCount       int
	FilesScanned    int64
	TotalBytes      int64
	MatchesFound    int64
	ScanDuration    time.Duration
	CompileDuration time.Duration
	ThroughputMBPS  float64
}

func main() {
	target := flag.String("dir", "./pkg/rules", "directory to scan for the benchmark corpus")
	maxRules := flag.Int("max-rules", 0, "maximum number of rules to test (0 = no limit)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\nBenchmark the Himitsu secret-scanning matcher\n\nOptions:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if _, err := os.Stat(*target); os.IsNotExist(err) {
		log.Fatalf("benchmark directory %s does not exist", *target)
	}

	baseRules, err := himitsu.LoadDefaultRules()
	if err != nil {
		log.Fatalf("failed to load default rules: %v", err)
	}
	fmt.Printf("Loaded %d default rules\n\n", len(baseRules))

	scenarios := []int{0, 10, 50, 100, 200, 500}
	var allResults []result

	for _, dummyCount := range scenarios {
		rules := append([]himitsu.Rule{}, baseRules...)
		rules = append(rules, dummyRules(dummyCount)...)

		if *maxRules > 0 && len(rules) > *maxRules {
			fmt.Printf("=== Skipping %d rules (exceeds max-rules=%d) ===\n\n", len(rules), *maxRules)
			continue
		}

		fmt.Printf("=== Testing with %d rules (%d default + %d dummy) ===\n", len(rules), len(baseRules), dummyCount)

		hs := benchmarkRuleSet("hyperscan", rules, *target, himitsu.NewRuleSet)
		allResults = append(allResults, hs)
		printResult(hs)

		naive := benchmarkRuleSet("go", rules, *target, himitsu.NewNaiveRuleSet)
		allResults = append(allResults, naive)
		printResult(naive)

		fmt.Println()
	}

	printSummary(allResults)
}

func dummyRules(count int) []himitsu.Rule {
	rules := make([]himitsu.Rule, count)
	for i := range rules {
		n := fmt.Sprintf("%04d", i+1)
		rules[i] = himitsu.Rule{
			Name:       fmt.Sprintf("Dummy Rule %s", n),
			ID:         fmt.Sprintf("dummy.%s", n),
			Tags:       []string{"dummy", "benchmark"},
			Pattern:    fmt.Sprintf(`DUMMY%s[A-Za-z0-9+/=]{20,40}`, n),
			Redact:     []int{4, 4},
			MinEntropy: 0,
		}
	}
	return rules
}

func benchmarkRuleSet(engine string, rules []himitsu.Rule, dir string, build func([]himitsu.Rule) (*himitsu.RuleSet, error)) result {
	compileStart := time.Now()
	ruleSet, err := build(rules)
	if err != nil {
		log.Fatalf("failed to compile %s rule set: %v", engine, err)
	}
	defer ruleSet.Close()
	compileDuration := time.Since(compileStart)

	res := result{Engine: engine, RuleCount: len(rules), CompileDuration: compileDuration}

	scanStart := time.Now()
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}
		findings, scanErr := ruleSet.Scan(string(data))
		if scanErr != nil {
			return scanErr
		}
		res.FilesScanned++
		res.TotalBytes += int64(len(data))
		res.MatchesFound += int64(len(findings))
		return nil
	})
	if err != nil {
		log.Fatalf("failed to scan %s with %s engine: %v", dir, engine, err)
	}
	res.ScanDuration = time.Since(scanStart)

	if res.ScanDuration.Seconds() > 0 {
		res.ThroughputMBPS = float64(res.TotalBytes) / (1024 * 1024) / res.ScanDuration.Seconds()
	}
	return res
}

func printResult(r result) {
	fmt.Printf("Engine: %s\n", r.Engine)
	fmt.Printf("  Rules: %d\n", r.RuleCount)
	fmt.Printf("  Compilation Time: %v\n", r.CompileDuration)
	fmt.Printf("  Scan Time: %v\n", r.ScanDuration)
	fmt.Printf("  Files Scanned: %d\n", r.FilesScanned)
	fmt.Printf("  Total Bytes: %d\n", r.TotalBytes)
	fmt.Printf("  Matches Found: %d\n", r.MatchesFound)
	fmt.Printf("  Throughput: %.2f MB/s\n\n", r.ThroughputMBPS)
}

func printSummary(results []result) {
	fmt.Println("=== BENCHMARK SUMMARY ===")
	fmt.Printf("%-10s %-6s %-12s %-12s %-8s %-12s\n", "Engine", "Rules", "Compile(ms)", "Scan(ms)", "Matches", "Throughput")
	for _, r := range results {
		fmt.Printf("%-10s %-6d %-12.1f %-12.1f %-8d %-12.2f\n",
			r.Engine, r.RuleCount,
			float64(r.CompileDuration.Nanoseconds())/1e6,
			float64(r.ScanDuration.Nanoseconds())/1e6,
			r.MatchesFound, r.ThroughputMBPS)
	}
}
