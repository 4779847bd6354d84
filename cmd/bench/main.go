// Command bench runs a synthetic tick/refresh workload against the store
// and exposes optional pprof/Prometheus endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/IvanBrykalov/depcache/cache"
	pmet "github.com/IvanBrykalov/depcache/metrics/prom"
	"github.com/IvanBrykalov/depcache/refresh"
)

func main() {
	// ---- Flags ----
	var (
		shards   = flag.Int("shards", 0, "number of shards (0=auto)")
		entries  = flag.Int("entries", 50_000, "resident entries to preload")
		fanIn    = flag.Int("fanin", 3, "max dependencies per entry")
		ttr      = flag.Int("ttr", 5, "ticks-to-refresh per entry (max; randomized)")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")
		readers  = flag.Int("readers", 2*runtime.GOMAXPROCS(0), "reader goroutines")
		parallel = flag.Int("parallel", runtime.GOMAXPROCS(0), "refresh runner parallelism")
		seed     = flag.Int64("seed", time.Now().UnixNano(), "random seed")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", ":8080", "serve Prometheus metrics at addr")
	)
	flag.Parse()

	// ---- pprof server (on DefaultServeMux) ----
	if *pprofAddr != "" {
		go func() {
			log.Printf("pprof: serving at %s", *pprofAddr)
			log.Println(http.ListenAndServe(*pprofAddr, nil))
		}()
	}

	// ---- Prometheus metrics (on DefaultServeMux) ----
	cm := pmet.NewCacheAdapter(nil, "depcache", "bench", nil)
	rm := pmet.NewRefreshAdapter(nil, "depcache", "bench_refresh", nil)
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Printf("metrics: serving at %s", *metricsAddr)
		log.Println(http.ListenAndServe(*metricsAddr, nil))
	}()

	// ---- Build store + engine ----
	store := cache.New[string](cache.Options[string]{Shards: *shards, Metrics: cm})
	defer func() { _ = store.Close() }()
	pmet.RegisterSize(nil, "depcache", "bench", nil, store.Len)

	runner := refresh.NewRunner(
		refresh.New[string](refresh.Options[string]{Metrics: rm}),
		*parallel,
	)

	// ---- Preload: layered dependency fan-in ----
	// Entry i may depend on a few earlier entries, so every generated
	// batch is acyclic and has real ordering work to do.
	r := rand.New(rand.NewSource(*seed))
	var loads uint64
	loader := cache.LoaderFunc[string](func(context.Context, ...any) (string, bool, error) {
		atomic.AddUint64(&loads, 1)
		return "v:" + strconv.FormatUint(atomic.LoadUint64(&loads), 10), true, nil
	})
	for i := 0; i < *entries; i++ {
		var deps []cache.ItemKey
		if i > 0 {
			for d := r.Intn(*fanIn + 1); d > 0; d-- {
				deps = append(deps, cache.ItemKey{Scope: "bench", Key: "k:" + strconv.Itoa(r.Intn(i))})
			}
		}
		if err := store.Put(&cache.Item[string]{
			Key:            cache.ItemKey{Scope: "bench", Key: "k:" + strconv.Itoa(i)},
			Value:          "v:0",
			DependencyKeys: deps,
			TicksToRefresh: int64(1 + r.Intn(*ttr)),
			Loader:         loader,
			LoaderParams:   []any{i},
		}); err != nil {
			log.Fatal(err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	// ---- Readers ----
	var wg sync.WaitGroup
	var gets uint64
	wg.Add(*readers)
	for w := 0; w < *readers; w++ {
		go func(id int) {
			defer wg.Done()
			localR := rand.New(rand.NewSource(*seed + int64(id)*9973))
			for ctx.Err() == nil {
				k := "k:" + strconv.Itoa(localR.Intn(*entries))
				store.GetValue("bench", k)
				atomic.AddUint64(&gets, 1)
			}
		}(w)
	}

	// ---- Tick + refresh loop ----
	var ticks, batches, refreshed, failed uint64
	start := time.Now()
	for ctx.Err() == nil {
		due := store.Tick()
		atomic.AddUint64(&ticks, 1)
		if len(due) == 0 {
			continue
		}
		res, err := runner.Refresh(ctx, due, store)
		if err != nil {
			log.Fatalf("refresh: %v", err) // generated graphs are acyclic
		}
		atomic.AddUint64(&batches, 1)
		atomic.AddUint64(&refreshed, uint64(len(res.Refreshed)))
		atomic.AddUint64(&failed, uint64(len(res.Failed)))
	}
	wg.Wait()
	elapsed := time.Since(start)

	// ---- Report ----
	fmt.Printf("entries=%d shards=%d fanin=%d readers=%d parallel=%d dur=%v seed=%d\n",
		*entries, *shards, *fanIn, *readers, *parallel, elapsed, *seed)
	fmt.Printf("ticks=%d batches=%d refreshed=%d (%.0f items/s) failed=%d\n",
		ticks, batches, refreshed, float64(refreshed)/elapsed.Seconds(), failed)
	fmt.Printf("gets=%d (%.0f gets/s)  loads=%d  Len()=%d\n",
		gets, float64(gets)/elapsed.Seconds(), loads, store.Len())
}
