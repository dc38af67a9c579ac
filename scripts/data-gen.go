/*
	Churn generator: hammers a store with overwrites and deletes so that it
	goes through many compactions, then reopens it and checks every key
	against an in-memory model.
*/

package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"code.cloudfoundry.org/bytefmt"

	"github.com/0xRadioAc7iv/go-kvs/core"
	"github.com/0xRadioAc7iv/go-kvs/internal/logging"
)

const (
	// Fixed universe
	totalKeys   = 100
	totalValues = 100

	// Per-cycle behavior
	keysPerCycleWrite  = 20
	keysPerCycleDelete = 10

	progressEvery = 500
)

func main() {
	dir := flag.String("dir", "./kvs-churn", "store directory")
	cycles := flag.Int("cycles", 5000, "number of write/delete cycles")
	threshold := flag.String("threshold", "256K", "compaction threshold")
	flag.Parse()

	thresholdBytes, err := bytefmt.ToBytes(*threshold)
	if err != nil {
		fmt.Println("invalid threshold:", err)
		os.Exit(1)
	}

	logger, err := logging.New("info")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer logger.Sync()

	start := time.Now()
	fmt.Println("Starting churn-heavy load generator")

	s, err := core.Open(*dir,
		core.WithCompactionThreshold(thresholdBytes),
		core.WithSyncMode(core.SyncNever),
		core.WithLogger(logger),
	)
	if err != nil {
		fmt.Println("open error:", err)
		os.Exit(1)
	}

	model, err := churn(s, *cycles, makeKeys(totalKeys), makeValues(totalValues))
	if err != nil {
		fmt.Println(err)
		s.Close()
		os.Exit(1)
	}

	st := s.Stats()
	fmt.Printf("Load finished in %v: %d keys, log %s, %d compactions\n",
		time.Since(start), st.Keys, bytefmt.ByteSize(st.LogSize), st.Compactions)

	if err := s.Close(); err != nil {
		fmt.Println("close error:", err)
		os.Exit(1)
	}

	if err := verify(*dir, model); err != nil {
		fmt.Println("verification failed:", err)
		os.Exit(1)
	}
	fmt.Println("Reopened store matches the model")
}

func churn(s *core.Store, cycles int, keys []string, values []string) (map[string]string, error) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	model := make(map[string]string)

	set := func(phase string) error {
		key := keys[rng.Intn(len(keys))]
		val := values[rng.Intn(len(values))]

		if err := s.Set(key, []byte(val)); err != nil {
			return fmt.Errorf("%s error: %w", phase, err)
		}
		model[key] = val
		return nil
	}

	for cycle := 1; cycle <= cycles; cycle++ {

		// ---- WRITE / OVERWRITE PHASE ----
		for i := 0; i < keysPerCycleWrite; i++ {
			if err := set("SET"); err != nil {
				return nil, err
			}
		}

		// ---- DELETE PHASE ----
		for i := 0; i < keysPerCycleDelete; i++ {
			key := keys[rng.Intn(len(keys))]
			if _, live := model[key]; !live {
				continue
			}

			if err := s.Remove(key); err != nil {
				return nil, fmt.Errorf("DELETE error: %w", err)
			}
			delete(model, key)
		}

		// ---- REWRITE PHASE (forces overwrite garbage) ----
		for i := 0; i < keysPerCycleWrite/2; i++ {
			if err := set("REWRITE"); err != nil {
				return nil, err
			}
		}

		if cycle%progressEvery == 0 {
			st := s.Stats()
			fmt.Printf("completed %d cycles (log %s, stale %s)\n",
				cycle, bytefmt.ByteSize(st.LogSize), bytefmt.ByteSize(st.StaleBytes))
		}
	}

	return model, nil
}

func verify(dir string, model map[string]string) error {
	s, err := core.Open(dir)
	if err != nil {
		return err
	}
	defer s.Close()

	if s.Len() != len(model) {
		return fmt.Errorf("store has %d keys, model has %d", s.Len(), len(model))
	}

	for key, want := range model {
		got, found, err := s.Get(key)
		if err != nil {
			return err
		}
		if !found || string(got) != want {
			return fmt.Errorf("key %s: got %q (found %v), want %q", key, got, found, want)
		}
	}

	return nil
}

func makeKeys(n int) []string {
	keys := make([]string, n)
	for i := 0; i < n; i++ {
		keys[i] = fmt.Sprintf("key-%03d", i)
	}
	return keys
}

func makeValues(n int) []string {
	values := make([]string, n)
	for i := 0; i < n; i++ {
		values[i] = fmt.Sprintf("value-%03d-xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx", i)
	}
	return values
}
