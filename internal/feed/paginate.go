package feed

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/d60-Lab/columnfeed/internal/model"
	"github.com/d60-Lab/columnfeed/internal/store"
	"github.com/d60-Lab/columnfeed/pkg/aid"
)

const (
	// DefaultQueryLimit caps rows requested per partition query.
	DefaultQueryLimit = 1000
	// DefaultMaxPartitions caps distinct day buckets scanned per call.
	DefaultMaxPartitions = 14

	defaultPageSize = 10
)

var (
	// ErrUnknownKind is returned for a feed kind the engine does not serve.
	ErrUnknownKind = errors.New("feed: unknown feed kind")
	// ErrMissingParameter is returned before any query when a feed kind's
	// required parameter is absent.
	ErrMissingParameter = errors.New("feed: missing required parameter")
)

func missingParam(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingParameter, name)
}

// Params is a pagination request. Until/Since may come from explicit
// dates or from the timestamps embedded in post ids; when both are
// given the tighter bound wins.
type Params struct {
	Limit     int
	SinceID   string
	UntilID   string
	SinceDate time.Time
	UntilDate time.Time

	// Per-kind identifiers.
	UserID    string
	NoteID    string
	ChannelID string
	UserIDs   []string // recipient pool for list/antenna feeds

	// MaxPartitions overrides the engine bound when positive.
	MaxPartitions int
}

// Engine walks day-bucketed partitions to assemble ordered feed pages.
// A nil store degrades every call to an empty page.
type Engine struct {
	store         store.Store
	queryLimit    int
	maxPartitions int
}

// NewEngine builds an engine. Non-positive limits select the defaults.
func NewEngine(st store.Store, queryLimit, maxPartitions int) *Engine {
	if queryLimit <= 0 {
		queryLimit = DefaultQueryLimit
	}
	if maxPartitions <= 0 {
		maxPartitions = DefaultMaxPartitions
	}
	return &Engine{store: st, queryLimit: queryLimit, maxPartitions: maxPartitions}
}

// bounds resolves the scan window: until defaults to now, overridden by
// the UntilID timestamp, then by an earlier UntilDate; since symmetric.
func (e *Engine) bounds(p Params) (until, since time.Time, err error) {
	until = time.Now().UTC()
	if p.UntilID != "" {
		ts, err := aid.Timestamp(p.UntilID)
		if err != nil {
			return until, since, fmt.Errorf("feed: until id %q: %w", p.UntilID, err)
		}
		until = ts
	}
	if !p.UntilDate.IsZero() && p.UntilDate.Before(until) {
		until = p.UntilDate.UTC()
	}
	if p.SinceID != "" {
		ts, err := aid.Timestamp(p.SinceID)
		if err != nil {
			return until, since, fmt.Errorf("feed: since id %q: %w", p.SinceID, err)
		}
		since = ts
	}
	if !p.SinceDate.IsZero() && p.SinceDate.After(since) {
		since = p.SinceDate.UTC()
	}
	return until, since, nil
}

// scanSpec binds one pagination call to its query template.
type scanSpec struct {
	query      store.SelectQuery
	baseKey    store.Row
	dateKeyed  bool     // key carries the cursor's day bucket
	pool       []string // drained one id per iteration into "userId"
	fetchLimit int
	foundLimit int
}

// scan is the cross-partition cursor walk shared by every feed kind.
// The filter runs inside the loop so filtered-out rows still advance
// the cursor; a page shorter than requested exhausts the partition and
// moves the cursor to the end of the previous day.
func scan[T any](
	ctx context.Context,
	st store.Store,
	spec scanSpec,
	until, since time.Time,
	maxPartitions int,
	decode func(store.Row) (T, error),
	createdAt func(T) time.Time,
	filter func([]T) []T,
) ([]T, error) {
	pooled := len(spec.pool) > 0
	pool := spec.pool
	found := make([]T, 0, spec.foundLimit)
	cursor := until
	scanned := 0

	for {
		key := store.Row{}
		for k, v := range spec.baseKey {
			key[k] = v
		}
		if spec.dateKeyed {
			key["createdAtDate"] = store.DayBucket(cursor)
		}
		if pooled {
			key["userId"] = pool[0]
			pool = pool[1:]
		}

		rows, err := st.SelectPage(ctx, spec.query,
			store.Window{Until: cursor, Since: since, Limit: spec.fetchLimit}, key)
		if err != nil {
			return nil, err
		}

		page := make([]T, 0, len(rows))
		for _, row := range rows {
			v, err := decode(row)
			if err != nil {
				return nil, err
			}
			page = append(page, v)
		}
		if len(page) > 0 {
			cursor = createdAt(page[len(page)-1])
		}
		if filter != nil {
			page = filter(page)
		}
		found = append(found, page...)

		if len(rows) < spec.fetchLimit {
			scanned++
			cursor = store.EndOfPreviousDay(cursor)
		}

		if len(found) >= spec.foundLimit {
			break
		}
		if scanned >= maxPartitions {
			break
		}
		if !since.IsZero() && cursor.Before(since) {
			break
		}
		if pooled && len(pool) == 0 {
			break
		}
	}
	return found, nil
}

// Notes serves one page of a post feed. The filter (which may be nil)
// runs on every fetched page before accumulation. Sparse data may yield
// fewer than Limit posts once the partition bound is hit; that is not
// an error.
func (e *Engine) Notes(ctx context.Context, kind Kind, p Params, filter Filter) ([]model.Post, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}

	spec := scanSpec{fetchLimit: e.queryLimit, foundLimit: limit}
	switch kind {
	case KindHome:
		if p.UserID == "" {
			return nil, missingParam("userId")
		}
		spec.query = store.HomeTimelineByUserAndDate
		spec.baseKey = store.Row{"feedUserId": p.UserID}
		spec.dateKeyed = true
	case KindLocal:
		spec.query = store.LocalTimelineByDate
		spec.dateKeyed = true
	case KindGlobal:
		spec.query = store.GlobalTimelineByDate
		spec.dateKeyed = true
	case KindScore:
		spec.query = store.ScoreFeedByDate
		spec.dateKeyed = true
	case KindUser:
		if p.UserID == "" {
			return nil, missingParam("userId")
		}
		spec.query = store.NoteByUserID
		spec.baseKey = store.Row{"userId": p.UserID}
	case KindChannel:
		if p.ChannelID == "" {
			return nil, missingParam("channelId")
		}
		spec.query = store.NoteByChannelID
		spec.baseKey = store.Row{"channelId": p.ChannelID}
	case KindRenotes:
		if p.NoteID == "" {
			return nil, missingParam("noteId")
		}
		spec.query = store.NoteByRenoteID
		spec.baseKey = store.Row{"renoteId": p.NoteID}
	case KindList, KindAntenna:
		if len(p.UserIDs) == 0 {
			return nil, missingParam("userIds")
		}
		spec.query = store.NoteByUserID
		spec.pool = slices.Clone(p.UserIDs)
		spec.fetchLimit = limit
		spec.foundLimit = limit * len(p.UserIDs)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	if e.store == nil {
		return []model.Post{}, nil
	}
	until, since, err := e.bounds(p)
	if err != nil {
		return nil, err
	}

	decode := store.DecodePost
	if kind == KindHome {
		decode = func(row store.Row) (model.Post, error) {
			entry, err := store.DecodeTimelineEntry(row)
			return entry.Post, err
		}
	}

	posts, err := scan(ctx, e.store, spec, until, since, e.partitionBound(p),
		decode,
		func(p model.Post) time.Time { return p.CreatedAt },
		filter)
	if err != nil {
		return nil, err
	}

	// Pool scans interleave authors; restore global order before cutting.
	if len(spec.pool) > 0 {
		sort.SliceStable(posts, func(i, j int) bool {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		})
	}
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

// Notifications serves one page of a user's notifications, newest first.
func (e *Engine) Notifications(ctx context.Context, p Params, filter func([]model.Notification) []model.Notification) ([]model.Notification, error) {
	if p.UserID == "" {
		return nil, missingParam("userId")
	}
	if e.store == nil {
		return []model.Notification{}, nil
	}
	limit := p.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	until, since, err := e.bounds(p)
	if err != nil {
		return nil, err
	}

	spec := scanSpec{
		query:      store.NotificationsByTarget,
		baseKey:    store.Row{"targetId": p.UserID},
		dateKeyed:  true,
		fetchLimit: e.queryLimit,
		foundLimit: limit,
	}
	items, err := scan(ctx, e.store, spec, until, since, e.partitionBound(p),
		store.DecodeNotification,
		func(n model.Notification) time.Time { return n.CreatedAt },
		filter)
	if err != nil {
		return nil, err
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// Reactions serves one page of reactions made by a user, newest first.
func (e *Engine) Reactions(ctx context.Context, p Params) ([]model.Reaction, error) {
	if p.UserID == "" {
		return nil, missingParam("userId")
	}
	if e.store == nil {
		return []model.Reaction{}, nil
	}
	limit := p.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	until, since, err := e.bounds(p)
	if err != nil {
		return nil, err
	}

	spec := scanSpec{
		query:      store.ReactionsByUserID,
		baseKey:    store.Row{"userId": p.UserID},
		fetchLimit: e.queryLimit,
		foundLimit: limit,
	}
	items, err := scan(ctx, e.store, spec, until, since, e.partitionBound(p),
		store.DecodeReaction,
		func(r model.Reaction) time.Time { return r.CreatedAt },
		nil)
	if err != nil {
		return nil, err
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (e *Engine) partitionBound(p Params) int {
	if p.MaxPartitions > 0 {
		return p.MaxPartitions
	}
	return e.maxPartitions
}
