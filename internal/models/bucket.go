package models

import (
	"sort"
	"sync"
)

type BucketEntry struct {
	Count int64 `json:"count"`
	Bytes int64 `json:"bytes,omitempty"`
}

// AggregateBucket is a named accumulator mapping a dimension key to a
// count plus an optional secondary byte metric. Increments are
// commutative and associative, so channel processing order never
// affects the final contents.
type AggregateBucket struct {
	Mutex sync.RWMutex           `json:"-"`
	Name  string                 `json:"name"`
	Data  map[string]BucketEntry `json:"data"`
}

func NewAggregateBucket(name string) *AggregateBucket {
	return &AggregateBucket{
		Name: name,
		Data: make(map[string]BucketEntry),
	}
}

func (b *AggregateBucket) Inc(key string, n int64) {
	b.Add(key, n, 0)
}

func (b *AggregateBucket) Add(key string, n, bytes int64) {
	if key == "" || n < 0 {
		return
	}
	b.Mutex.Lock()
	defer b.Mutex.Unlock()
	entry := b.Data[key]
	entry.Count += n
	entry.Bytes += bytes
	b.Data[key] = entry
}

func (b *AggregateBucket) Get(key string) (BucketEntry, bool) {
	b.Mutex.RLock()
	defer b.Mutex.RUnlock()
	val, ok := b.Data[key]
	return val, ok
}

func (b *AggregateBucket) Len() int {
	b.Mutex.RLock()
	defer b.Mutex.RUnlock()
	return len(b.Data)
}

// Total is the sum of counts across all keys, which equals the number
// of qualifying records folded into the bucket.
func (b *AggregateBucket) Total() int64 {
	b.Mutex.RLock()
	defer b.Mutex.RUnlock()
	var total int64
	for _, entry := range b.Data {
		total += entry.Count
	}
	return total
}

// Merge folds another bucket into this one by key addition.
func (b *AggregateBucket) Merge(other *AggregateBucket) {
	if other == nil {
		return
	}
	other.Mutex.RLock()
	defer other.Mutex.RUnlock()
	b.Mutex.Lock()
	defer b.Mutex.Unlock()
	for key, entry := range other.Data {
		dst := b.Data[key]
		dst.Count += entry.Count
		dst.Bytes += entry.Bytes
		b.Data[key] = dst
	}
}

// GetData returns a copy of the bucket contents.
func (b *AggregateBucket) GetData() map[string]BucketEntry {
	b.Mutex.RLock()
	defer b.Mutex.RUnlock()
	copyMap := make(map[string]BucketEntry, len(b.Data))
	for k, v := range b.Data {
		copyMap[k] = v
	}
	return copyMap
}

func (b *AggregateBucket) PutData(data map[string]BucketEntry) {
	b.Mutex.Lock()
	defer b.Mutex.Unlock()
	b.Data = make(map[string]BucketEntry, len(data))
	for k, v := range data {
		b.Data[k] = v
	}
}

type RankedEntry struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
	Bytes int64  `json:"bytes,omitempty"`
}

// TopN returns the n highest-counted keys, ties broken by lexicographic
// key order so identical inputs always render identically. n <= 0
// returns every key.
func (b *AggregateBucket) TopN(n int) []RankedEntry {
	b.Mutex.RLock()
	ranked := make([]RankedEntry, 0, len(b.Data))
	for key, entry := range b.Data {
		ranked = append(ranked, RankedEntry{Key: key, Count: entry.Count, Bytes: entry.Bytes})
	}
	b.Mutex.RUnlock()

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Key < ranked[j].Key
	})

	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
