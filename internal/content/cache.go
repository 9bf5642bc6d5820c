package content

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const collectionKey = "collection"

// CacheOptions tunes a Cache. Zero values fall back to the defaults below.
type CacheOptions struct {
	// TTL is how long fetched data is served before a background refresh.
	TTL time.Duration
	// Wait bounds how long a reader blocks on a fetch before reporting
	// that the data is still loading.
	Wait time.Duration
	// FetchTimeout bounds a single store call.
	FetchTimeout time.Duration
	Logger       *zap.Logger
}

const (
	defaultTTL          = time.Minute
	defaultWait         = 2 * time.Second
	defaultFetchTimeout = 15 * time.Second

	// maxDocs caps the document map. Primed entries always fit; lookups are
	// cached only while the map is below the cap.
	maxDocs = 4096
)

// Cache sits between the views and a Store. Readers get cached data when it
// is present, otherwise they wait a bounded time for a shared fetch and are
// told the data is still loading if it has not arrived.
type Cache struct {
	store   Store
	log     *zap.Logger
	ttl     time.Duration
	wait    time.Duration
	timeout time.Duration
	now     func() time.Time
	maxDocs int

	group singleflight.Group

	mu       sync.RWMutex
	list     listEntry
	docs     map[string]docEntry
	watching bool
}

type listEntry struct {
	articles  []Article
	loaded    bool
	fetchedAt time.Time
}

type docEntry struct {
	article   *Article // nil caches a miss
	fetchedAt time.Time
	primed    bool // filled from a collection fetch
}

// NewCache wraps store.
func NewCache(store Store, opts CacheOptions) *Cache {
	c := &Cache{
		store:   store,
		log:     opts.Logger,
		ttl:     opts.TTL,
		wait:    opts.Wait,
		timeout: opts.FetchTimeout,
		now:     time.Now,
		maxDocs: maxDocs,
		docs:    make(map[string]docEntry),
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.ttl <= 0 {
		c.ttl = defaultTTL
	}
	if c.wait <= 0 {
		c.wait = defaultWait
	}
	if c.timeout <= 0 {
		c.timeout = defaultFetchTimeout
	}
	return c
}

// Collection returns the article collection. ready is false while the first
// fetch is still outstanding. An error is returned only when nothing is cached
// and the fetch failed.
func (c *Cache) Collection(ctx context.Context) (articles []Article, ready bool, err error) {
	c.mu.RLock()
	entry := c.list
	fresh := c.watching || c.now().Sub(entry.fetchedAt) < c.ttl
	c.mu.RUnlock()

	if entry.loaded {
		if !fresh {
			c.refreshCollection()
		}
		return entry.articles, true, nil
	}

	val, ready, err := c.await(ctx, c.refreshCollection())
	if err != nil || !ready {
		return nil, ready, err
	}
	articles, _ = val.([]Article)
	return articles, true, nil
}

// Article returns the document keyed by slug, or nil when it does not exist.
// ready and err follow the same rules as Collection.
func (c *Cache) Article(ctx context.Context, slug string) (article *Article, ready bool, err error) {
	c.mu.RLock()
	entry, ok := c.docs[slug]
	fresh := ok && ((entry.primed && c.watching) || c.now().Sub(entry.fetchedAt) < c.ttl)
	complete := c.watching && c.list.loaded
	c.mu.RUnlock()

	if !ok && complete {
		// a watched collection holds every document, so this is a miss
		return nil, true, nil
	}
	if ok {
		if !fresh {
			c.refreshArticle(slug)
		}
		return copyArticle(entry.article), true, nil
	}

	val, ready, err := c.await(ctx, c.refreshArticle(slug))
	if err != nil || !ready {
		return nil, ready, err
	}
	article, _ = val.(*Article)
	return copyArticle(article), true, nil
}

// Run keeps the collection fresh until ctx is done. Stores that implement
// Watcher push updates; others are polled every TTL.
func (c *Cache) Run(ctx context.Context) error {
	if w, ok := c.store.(Watcher); ok {
		return c.watch(ctx, w)
	}
	return c.poll(ctx)
}

func (c *Cache) poll(ctx context.Context) error {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	c.refreshCollection()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.refreshCollection()
		}
	}
}

func (c *Cache) watch(ctx context.Context, w Watcher) error {
	for {
		err := w.Watch(ctx, func(articles []Article) {
			c.setCollection(articles)
			c.setWatching(true)
		})
		c.setWatching(false)
		if ctx.Err() != nil {
			return nil
		}

		c.log.Warn("Collection watch stopped, restarting", zap.Error(err), zap.Duration("delay", c.ttl))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.ttl):
		}
	}
}

func (c *Cache) refreshCollection() <-chan singleflight.Result {
	return c.group.DoChan(collectionKey, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()

		articles, err := c.store.FetchCollection(ctx)
		if err != nil {
			c.log.Warn("Unable to fetch collection", zap.Error(err))
			return nil, err
		}
		c.setCollection(articles)
		c.log.Debug("Collection refreshed", zap.Int("articles", len(articles)))
		return articles, nil
	})
}

func (c *Cache) refreshArticle(slug string) <-chan singleflight.Result {
	return c.group.DoChan("doc/"+slug, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()

		article, err := c.store.FetchOne(ctx, slug)
		if err != nil {
			c.log.Warn("Unable to fetch article", zap.String("slug", slug), zap.Error(err))
			return nil, err
		}

		c.mu.Lock()
		c.putDoc(slug, docEntry{article: article, fetchedAt: c.now()})
		c.mu.Unlock()
		return article, nil
	})
}

func (c *Cache) await(ctx context.Context, ch <-chan singleflight.Result) (any, bool, error) {
	timer := time.NewTimer(c.wait)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, true, res.Err
		}
		return res.Val, true, nil
	case <-timer.C:
		return nil, false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// putDoc records a lookup result. When the map is full, expired lookups go
// first, then cached misses; if it is still full the result is not kept.
// Caller holds c.mu.
func (c *Cache) putDoc(key string, entry docEntry) {
	if _, ok := c.docs[key]; !ok && len(c.docs) >= c.maxDocs {
		c.pruneDocs(entry.fetchedAt)
		if len(c.docs) >= c.maxDocs {
			for k, e := range c.docs {
				if !e.primed && e.article == nil {
					delete(c.docs, k)
				}
			}
		}
		if len(c.docs) >= c.maxDocs {
			return
		}
	}
	c.docs[key] = entry
}

// pruneDocs drops lookups older than the TTL. Caller holds c.mu.
func (c *Cache) pruneDocs(now time.Time) {
	for key, entry := range c.docs {
		if !entry.primed && now.Sub(entry.fetchedAt) >= c.ttl {
			delete(c.docs, key)
		}
	}
}

// setCollection stores a fresh collection and re-primes the document entries
// it covers, keyed like Store.FetchOne. Primed entries for documents that
// disappeared are dropped, as are expired lookups.
func (c *Cache) setCollection(articles []Article) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.list = listEntry{articles: articles, loaded: true, fetchedAt: now}
	for key, entry := range c.docs {
		if entry.primed {
			delete(c.docs, key)
		}
	}
	c.pruneDocs(now)
	for i := range articles {
		a := articles[i]
		key := a.Key()
		if key == "" {
			continue
		}
		c.docs[key] = docEntry{article: &a, fetchedAt: now, primed: true}
	}
}

func (c *Cache) setWatching(v bool) {
	c.mu.Lock()
	c.watching = v
	c.mu.Unlock()
}

func copyArticle(a *Article) *Article {
	if a == nil {
		return nil
	}
	cp := *a
	return &cp
}
