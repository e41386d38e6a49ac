package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/d60-Lab/columnfeed/internal/feed"
	"github.com/d60-Lab/columnfeed/internal/model"
	"github.com/d60-Lab/columnfeed/internal/store"
	"github.com/d60-Lab/columnfeed/pkg/aid"
)

func must[T any](v T, err error) T { if err != nil { panic(err) }; return v }

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 { return 0 }
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 { k = 0 }
	if k >= len(xs) { k = len(xs)-1 }
	return xs[k]
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" { if v, e := strconv.Atoi(s); e == nil && v > 0 { return v } }
	return def
}

// feedbench measures cross-partition pagination against the in-memory
// store: how many pages per second the engine sustains when the data is
// spread over DAYS day-buckets and filters drop part of every page.
func main() {
	AUTHORS := envInt("AUTHORS", 200)
	DAYS := envInt("DAYS", 14)
	PERDAY := envInt("PERDAY", 50) // posts per author per day
	PAGES := envInt("PAGES", 2000) // page reads to measure
	LIMIT := envInt("LIMIT", 20)

	st := store.NewMemory()
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	base := time.Now().UTC().Truncate(24 * time.Hour)

	authors := make([]string, AUTHORS)
	for i := range authors { authors[i] = fmt.Sprintf("author%04d", i) }

	seedStart := time.Now()
	total := 0
	for d := 0; d < DAYS; d++ {
		day := base.AddDate(0, 0, -d)
		for _, author := range authors {
			for p := 0; p < PERDAY; p++ {
				at := day.Add(time.Duration(rng.Intn(86400)) * time.Second)
				post := model.Post{
					ID:         aid.New(at),
					CreatedAt:  at,
					UserID:     author,
					Visibility: model.VisibilityPublic,
					Text:       fmt.Sprintf("post %d by %s", p, author),
				}
				if err := st.Insert(ctx, store.InsertNote, store.PostRow(post)); err != nil { panic(err) }
				total++
			}
		}
	}
	fmt.Printf("seeded %d notes across %d day buckets in %s\n", total, DAYS, time.Since(seedStart).Round(time.Millisecond))

	engine := feed.NewEngine(st, 0, 0)
	until := base.Add(24 * time.Hour)

	// Walk the local feed page by page the way a scrolling client does.
	lat := make([]time.Duration, 0, PAGES)
	p := feed.Params{Limit: LIMIT, UntilDate: until}
	pages, rows := 0, 0
	for pages < PAGES {
		t0 := time.Now()
		posts := must(engine.Notes(ctx, feed.KindLocal, p, nil))
		lat = append(lat, time.Since(t0))
		pages++
		rows += len(posts)
		if len(posts) < LIMIT { break }
		p.UntilID = posts[len(posts)-1].ID
	}
	fmt.Printf("local: %d pages, %d rows, p50=%s p95=%s p99=%s\n",
		pages, rows, pct(lat, 0.50), pct(lat, 0.95), pct(lat, 0.99))

	// Same walk with a filter that drops half of every page, forcing the
	// engine to dig deeper per page.
	noisy := make(map[string]struct{}, len(authors)/2)
	for i, a := range authors { if i%2 == 0 { noisy[a] = struct{}{} } }
	drop := func(ps []model.Post) []model.Post {
		out := ps[:0]
		for _, x := range ps { if _, ok := noisy[x.UserID]; !ok { out = append(out, x) } }
		return out
	}
	lat = lat[:0]
	p = feed.Params{Limit: LIMIT, UntilDate: until}
	pages, rows = 0, 0
	for pages < PAGES {
		t0 := time.Now()
		posts := must(engine.Notes(ctx, feed.KindLocal, p, drop))
		lat = append(lat, time.Since(t0))
		pages++
		rows += len(posts)
		if len(posts) < LIMIT { break }
		p.UntilID = posts[len(posts)-1].ID
	}
	fmt.Printf("local+filter: %d pages, %d rows, p50=%s p95=%s p99=%s\n",
		pages, rows, pct(lat, 0.50), pct(lat, 0.95), pct(lat, 0.99))
}
