package vectorstore

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/coder/hnsw"
	"github.com/gofrs/flock"
	"github.com/google/renameio"

	"docsync-ai/internal/apperr"
	"docsync-ai/internal/contextutil"
)

const (
	graphFile = "graph.hnsw"
	metaFile  = "graph.meta"
	lockFile  = ".lock"
)

// ErrLocked is returned when another process holds the index directory.
var ErrLocked = errors.New("index directory is locked by another process")

// HNSWStore implements VectorStore with in-process coder/hnsw graphs, one
// per collection, persisted under root/<collection>/. A lock file in root
// keeps a second process from opening the same directory.
type HNSWStore struct {
	mu          sync.Mutex
	root        string
	lock        *flock.Flock
	collections map[string]*hnswCollection
	closed      bool
}

// hnswCollection maps string point IDs to graph keys. Deleted and replaced
// points are removed from the maps only; their nodes stay in the graph
// until the next compaction.
type hnswCollection struct {
	graph      *hnsw.Graph[uint64]
	dims       int
	idMap      map[string]uint64
	keyMap     map[uint64]string
	meta       map[string]map[string]string
	nextKey    uint64
	generation uint64
	dirty      bool
}

// hnswMetadata stores ID mappings for persistence. Generation matches the
// header of the graph file saved with it.
type hnswMetadata struct {
	Dims       int
	IDMap      map[string]uint64
	Meta       map[string]map[string]string
	NextKey    uint64
	Generation uint64
}

// NewHNSWStore opens (creating if needed) an index directory and takes its lock.
func NewHNSWStore(root string) (*HNSWStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	lock := flock.New(filepath.Join(root, lockFile))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire index lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, root)
	}

	return &HNSWStore{
		root:        root,
		lock:        lock,
		collections: make(map[string]*hnswCollection),
	}, nil
}

// Root returns the index directory.
func (s *HNSWStore) Root() string {
	return s.root
}

// Ping checks that the index directory is still present.
func (s *HNSWStore) Ping(ctx context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("index directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("index directory %s is not a directory", s.root)
	}
	return nil
}

// CollectionPath returns where a collection is persisted.
func (s *HNSWStore) CollectionPath(collection string) string {
	return filepath.Join(s.root, collection)
}

func newGraph() *hnsw.Graph[uint64] {
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = 16
	g.EfSearch = 20
	g.Ml = 0.25
	return g
}

func newCollection(dims int) *hnswCollection {
	return &hnswCollection{
		graph:  newGraph(),
		dims:   dims,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
		meta:   make(map[string]map[string]string),
	}
}

// get returns the collection, loading it from disk on first use. It returns
// nil when the collection does not exist. Callers hold s.mu.
func (s *HNSWStore) get(collection string) (*hnswCollection, error) {
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	if c, ok := s.collections[collection]; ok {
		return c, nil
	}

	c, err := loadCollection(s.CollectionPath(collection))
	if err != nil || c == nil {
		return nil, err
	}
	s.collections[collection] = c
	return c, nil
}

// EnsureCollection creates the collection if needed and validates its vector size.
func (s *HNSWStore) EnsureCollection(ctx context.Context, collection string, dims int) error {
	logger := contextutil.LoggerFromContext(ctx)

	if dims <= 0 {
		return fmt.Errorf("%w: vector size must be positive", apperr.ErrConfig)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.get(collection)
	if err != nil {
		return err
	}
	if c == nil {
		logger.InfoContext(ctx, "creating collection", "collection", collection, "vector_size", dims)
		c = newCollection(dims)
		c.dirty = true
		s.collections[collection] = c
		return nil
	}
	if c.dims != dims {
		return fmt.Errorf("%w: collection %s vector size mismatch: expected %d, got %d", apperr.ErrConfig, collection, dims, c.dims)
	}
	return nil
}

// Upsert inserts or replaces points.
func (s *HNSWStore) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.get(collection)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("collection %s: %w", collection, apperr.ErrNotFound)
	}

	for _, p := range points {
		if len(p.Vec) != c.dims {
			return fmt.Errorf("%w: point %s has %d dimensions, expected %d", apperr.ErrConfig, p.ID, len(p.Vec), c.dims)
		}
	}

	for _, p := range points {
		if old, ok := c.idMap[p.ID]; ok {
			delete(c.keyMap, old)
		}
		key := c.nextKey
		c.nextKey++

		vec := make([]float32, len(p.Vec))
		copy(vec, p.Vec)
		c.graph.Add(hnsw.MakeNode(key, vec))

		c.idMap[p.ID] = key
		c.keyMap[key] = p.ID
		if len(p.Meta) > 0 {
			c.meta[p.ID] = p.Meta
		} else {
			delete(c.meta, p.ID)
		}
	}
	c.dirty = true
	return nil
}

// Search returns the k nearest live points by cosine similarity.
func (s *HNSWStore) Search(ctx context.Context, collection string, query []float32, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.get(collection)
	if err != nil {
		return nil, err
	}
	if c == nil || len(c.idMap) == 0 {
		return []SearchResult{}, nil
	}
	if len(query) != c.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d", apperr.ErrConfig, len(query), c.dims)
	}

	// Orphaned nodes can occupy result slots, so ask for enough extra to
	// still return k live points.
	orphans := c.graph.Len() - len(c.idMap)
	nodes := c.graph.Search(query, min(k+orphans, c.graph.Len()))

	results := make([]SearchResult, 0, k)
	for _, node := range nodes {
		id, ok := c.keyMap[node.Key]
		if !ok {
			continue
		}
		distance := c.graph.Distance(query, node.Value)
		results = append(results, SearchResult{
			PointID: id,
			Score:   1 - distance,
			Meta:    c.meta[id],
		})
		if len(results) == k {
			break
		}
	}
	return results, nil
}

// Delete removes points by ID.
func (s *HNSWStore) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.get(collection)
	if err != nil || c == nil {
		return err
	}
	for _, id := range ids {
		if key, ok := c.idMap[id]; ok {
			delete(c.keyMap, key)
			delete(c.idMap, id)
			delete(c.meta, id)
			c.dirty = true
		}
	}
	return nil
}

// Contains reports which of ids are live points.
func (s *HNSWStore) Contains(ctx context.Context, collection string, ids []string) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.get(collection)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(ids))
	if c == nil {
		return out, nil
	}
	for _, id := range ids {
		if _, ok := c.idMap[id]; ok {
			out[id] = true
		}
	}
	return out, nil
}

// Count returns the number of live points.
func (s *HNSWStore) Count(ctx context.Context, collection string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.get(collection)
	if err != nil || c == nil {
		return 0, err
	}
	return len(c.idMap), nil
}

// DropCollection forgets the collection and removes its directory.
func (s *HNSWStore) DropCollection(ctx context.Context, collection string) error {
	logger := contextutil.LoggerFromContext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}
	delete(s.collections, collection)
	if err := os.RemoveAll(s.CollectionPath(collection)); err != nil {
		return fmt.Errorf("failed to remove collection %s: %w", collection, err)
	}
	logger.InfoContext(ctx, "dropped collection", "collection", collection)
	return nil
}

// Flush persists the collection if it changed since the last flush. The
// graph is compacted first when orphaned nodes outnumber live ones.
func (s *HNSWStore) Flush(ctx context.Context, collection string) error {
	logger := contextutil.LoggerFromContext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.get(collection)
	if err != nil || c == nil || !c.dirty {
		return err
	}

	if orphans := c.graph.Len() - len(c.idMap); orphans > len(c.idMap) {
		logger.InfoContext(ctx, "compacting collection", "collection", collection, "orphans", orphans, "live", len(c.idMap))
		c.compact()
	}

	if err := c.save(s.CollectionPath(collection)); err != nil {
		return fmt.Errorf("failed to persist collection %s: %w", collection, err)
	}
	c.dirty = false
	return nil
}

// Close flushes every collection and releases the directory lock.
func (s *HNSWStore) Close() error {
	s.mu.Lock()
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	s.mu.Unlock()

	var errs []error
	for _, name := range names {
		if err := s.Flush(context.Background(), name); err != nil {
			errs = append(errs, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if err := s.lock.Unlock(); err != nil {
		errs = append(errs, fmt.Errorf("failed to release index lock: %w", err))
	}
	return errors.Join(errs...)
}

// compact rebuilds the graph from live points only.
func (c *hnswCollection) compact() {
	ids := make([]string, 0, len(c.idMap))
	for id := range c.idMap {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	graph := newGraph()
	idMap := make(map[string]uint64, len(ids))
	keyMap := make(map[uint64]string, len(ids))
	var next uint64
	for _, id := range ids {
		vec, ok := c.graph.Lookup(c.idMap[id])
		if !ok {
			continue
		}
		graph.Add(hnsw.MakeNode(next, vec))
		idMap[id] = next
		keyMap[next] = id
		next++
	}

	c.graph = graph
	c.idMap = idMap
	c.keyMap = keyMap
	c.nextKey = next
}

// save writes the graph and its metadata with atomic replaces, graph
// first. Both carry a new generation, so a crash between the two replaces
// is detected on load. An empty graph is stored as metadata only.
func (c *hnswCollection) save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create collection directory: %w", err)
	}

	c.generation++
	graphPath := filepath.Join(dir, graphFile)
	if c.graph.Len() == 0 {
		if err := os.Remove(graphPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove graph file: %w", err)
		}
	} else if err := writeAtomic(graphPath, func(w io.Writer) error {
		if err := binary.Write(w, binary.LittleEndian, c.generation); err != nil {
			return err
		}
		return c.graph.Export(w)
	}); err != nil {
		return fmt.Errorf("failed to export graph: %w", err)
	}

	meta := hnswMetadata{Dims: c.dims, IDMap: c.idMap, Meta: c.meta, NextKey: c.nextKey, Generation: c.generation}
	return writeAtomic(filepath.Join(dir, metaFile), func(w io.Writer) error {
		return gob.NewEncoder(w).Encode(meta)
	})
}

func writeAtomic(path string, write func(io.Writer) error) error {
	t, err := renameio.TempFile("", path)
	if err != nil {
		return err
	}
	defer func() {
		_ = t.Cleanup()
	}()

	if err := write(t); err != nil {
		return err
	}
	return t.CloseAtomicallyReplace()
}

// loadCollection reads a persisted collection. It returns nil, nil when
// nothing has been persisted at dir. A graph and metadata from different
// saves load as an empty collection of the same size; the owner of the
// points has to write them again.
func loadCollection(dir string) (*hnswCollection, error) {
	f, err := os.Open(filepath.Join(dir, metaFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	var meta hnswMetadata
	if err := gob.NewDecoder(f).Decode(&meta); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}

	torn := func(graphGeneration uint64) *hnswCollection {
		c := newCollection(meta.Dims)
		c.generation = max(meta.Generation, graphGeneration)
		c.dirty = true
		return c
	}

	c := newCollection(meta.Dims)
	c.nextKey = meta.NextKey
	c.generation = meta.Generation
	if meta.IDMap != nil {
		c.idMap = meta.IDMap
	}
	if meta.Meta != nil {
		c.meta = meta.Meta
	}
	for id, key := range c.idMap {
		c.keyMap[key] = id
	}

	gf, err := os.Open(filepath.Join(dir, graphFile))
	if os.IsNotExist(err) {
		if len(c.idMap) > 0 {
			return torn(0), nil
		}
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open graph: %w", err)
	}
	defer func() {
		_ = gf.Close()
	}()

	// Import needs an io.ByteReader.
	r := bufio.NewReader(gf)
	var generation uint64
	if err := binary.Read(r, binary.LittleEndian, &generation); err != nil {
		return nil, fmt.Errorf("failed to read graph header: %w", err)
	}
	if generation != meta.Generation {
		return torn(generation), nil
	}
	if err := c.graph.Import(r); err != nil {
		return nil, fmt.Errorf("failed to import graph: %w", err)
	}
	return c, nil
}
