// Command loadtest drives the Bitcask engine directly (no network hop)
// with larger workloads than the unit tests cover, to spot-check write
// throughput, overwrite handling, and read-back integrity.
package main

import (
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jassi-singh/toycask/internal/engine"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "100k-write":
		test100kWrite()
	case "overlapping":
		testOverlappingKey()
	case "integrity":
		testIntegrity()
	default:
		fmt.Printf("Unknown test: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: go run ./cmd/loadtest <test-name>")
	fmt.Println("\nAvailable tests:")
	fmt.Println("  100k-write  - Write 100,000 unique keys and measure performance")
	fmt.Println("  overlapping - Test overlapping key writes (key_1 with value_A, then value_B)")
	fmt.Println("  integrity   - Write 100k keys, then randomly read 1,000 to verify integrity")
}

func openEngine() (*engine.Bitcask, string) {
	dir, err := os.MkdirTemp("", "toycask-loadtest-*")
	if err != nil {
		log.Fatalf("Failed to create temp data dir: %v", err)
	}
	kv, err := engine.Open(dir, engine.DefaultCompactionThreshold)
	if err != nil {
		log.Fatalf("Failed to open engine: %v", err)
	}
	return kv, dir
}

func test100kWrite() {
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("Test 1: 100k Write Test (Speed & Integrity)")
	fmt.Println(strings.Repeat("=", 60))

	kv, dir := openEngine()
	defer kv.Close()
	defer os.RemoveAll(dir)

	totalKeys := 100000
	startTime := time.Now()
	errs := 0

	fmt.Printf("Writing %d keys...\n", totalKeys)
	for i := 0; i < totalKeys; i++ {
		key := fmt.Sprintf("key_%d", i)
		value := fmt.Sprintf("value_%d", i)

		if err := kv.Set(key, value); err != nil {
			errs++
			if errs <= 10 {
				fmt.Printf("ERROR: Failed to set key_%d: %v\n", i, err)
			}
		}

		if (i+1)%10000 == 0 {
			elapsed := time.Since(startTime)
			rate := float64(i+1) / elapsed.Seconds()
			fmt.Printf("Progress: %d/%d keys written (%.2f keys/sec)\n", i+1, totalKeys, rate)
		}
	}

	elapsed := time.Since(startTime)
	rate := float64(totalKeys) / elapsed.Seconds()

	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("Total time: %v\n", elapsed)
	fmt.Printf("Write rate: %.2f keys/second\n", rate)
	fmt.Printf("Errors: %d\n", errs)

	if errs > 0 {
		fmt.Printf("\nTEST FAILED: %d errors occurred\n", errs)
		os.Exit(1)
	}

	if fi, err := totalLogBytes(dir); err != nil {
		fmt.Printf("Warning: could not stat log files: %v\n", err)
	} else {
		fmt.Printf("Total log size: %d bytes (%.2f MB)\n", fi, float64(fi)/1024/1024)
	}

	keyDirSize := kv.KeyDirSize()
	fmt.Printf("Keys in memory (keydir): %d\n", keyDirSize)
	if keyDirSize != totalKeys {
		fmt.Printf("WARNING: keydir has %d keys, expected %d\n", keyDirSize, totalKeys)
	}

	fmt.Println("\nTEST PASSED: all 100,000 keys written successfully")
}

func totalLogBytes(dir string) (int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".log") {
			continue
		}
		info, err := os.Stat(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}

func testOverlappingKey() {
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("Test 2: Overlapping Key Test")
	fmt.Println(strings.Repeat("=", 60))

	kv, dir := openEngine()
	defer kv.Close()
	defer os.RemoveAll(dir)

	key := "key_1"
	valueA := "value_A"
	valueB := "value_B"

	fmt.Printf("Step 1: setting %s = %q\n", key, valueA)
	if err := kv.Set(key, valueA); err != nil {
		log.Fatalf("Failed to set key_1 to value_A: %v", err)
	}

	fmt.Printf("Step 2: setting %s = %q (overwriting)\n", key, valueB)
	if err := kv.Set(key, valueB); err != nil {
		log.Fatalf("Failed to set key_1 to value_B: %v", err)
	}

	fmt.Printf("Step 3: getting %s\n", key)
	value, err := kv.Get(key)
	if err != nil {
		log.Fatalf("Failed to get key_1: %v", err)
	}
	if value == nil {
		log.Fatalf("key_1 unexpectedly missing")
	}
	fmt.Printf("  Retrieved value: %q\n", *value)

	if *value != valueB {
		fmt.Printf("\nTEST FAILED: expected %q, got %q\n", valueB, *value)
		os.Exit(1)
	}

	if size := kv.KeyDirSize(); size != 1 {
		fmt.Printf("WARNING: keydir has %d keys, expected 1\n", size)
	} else {
		fmt.Println("  keydir contains 1 key (correct, only the latest offset)")
	}

	fmt.Println("\nTEST PASSED: latest value correctly returned")
}

func testIntegrity() {
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("Test 3: Integrity Test (Read-Back)")
	fmt.Println(strings.Repeat("=", 60))

	kv, dir := openEngine()
	defer kv.Close()
	defer os.RemoveAll(dir)

	totalKeys := 100000
	fmt.Printf("Step 1: writing %d keys...\n", totalKeys)
	startTime := time.Now()

	for i := 0; i < totalKeys; i++ {
		key := fmt.Sprintf("key_%d", i)
		value := fmt.Sprintf("value_%d", i)
		if err := kv.Set(key, value); err != nil {
			log.Fatalf("Failed to set key_%d: %v", i, err)
		}
	}

	fmt.Printf("  Write completed in %v\n", time.Since(startTime))

	fmt.Println("\nStep 2: randomly reading 1,000 keys to verify integrity...")
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	readStart := time.Now()
	errs := 0

	for i := 0; i < 1000; i++ {
		idx := rnd.Intn(totalKeys)
		key := fmt.Sprintf("key_%d", idx)
		expected := fmt.Sprintf("value_%d", idx)

		got, err := kv.Get(key)
		if err != nil {
			errs++
			if errs <= 10 {
				fmt.Printf("  ERROR: failed to get %s: %v\n", key, err)
			}
			continue
		}
		if got == nil || *got != expected {
			errs++
			if errs <= 10 {
				fmt.Printf("  ERROR: value mismatch for %s: expected %q, got %v\n", key, expected, got)
			}
		}
	}

	readTime := time.Since(readStart)
	fmt.Printf("\n  Read completed in %v (%.2f keys/second)\n", readTime, 1000.0/readTime.Seconds())

	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("Errors: %d\n", errs)
	if errs > 0 {
		fmt.Printf("\nTEST FAILED: %d errors occurred\n", errs)
		os.Exit(1)
	}

	fmt.Println("\nTEST PASSED: all 1,000 random reads returned correct values")
}
