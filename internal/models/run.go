package models

import "time"

// Bucket names of the aggregate dimensions.
const (
	BucketDaily        = "daily"
	BucketServers      = "servers"
	BucketDMs          = "dms"
	BucketGroupDMs     = "group_dms"
	BucketEmotes       = "emotes"
	BucketFileTypes    = "file_types"
	BucketSystemEvents = "system_events"
)

// BucketNames lists every dimension in a fixed order, used wherever
// buckets are persisted or serialized.
var BucketNames = []string{
	BucketDaily,
	BucketServers,
	BucketDMs,
	BucketGroupDMs,
	BucketEmotes,
	BucketFileTypes,
	BucketSystemEvents,
}

type RunSummary struct {
	TotalMessages    int64     `json:"total_messages"`
	TotalAttachments int64     `json:"total_attachments"`
	TotalServers     int       `json:"total_servers"`
	TotalDMs         int       `json:"total_dms"`
	TotalGroupDMs    int       `json:"total_group_dms"`
	SystemEvents     int64     `json:"system_events"`
	EarliestMessage  time.Time `json:"earliest_message"`
	LatestMessage    time.Time `json:"latest_message"`

	ChannelsProcessed int   `json:"channels_processed"`
	ChannelsSkipped   int64 `json:"channels_skipped"`
	RecordsSkipped    int64 `json:"records_skipped"`
}

// ChannelStat carries per-channel counters, keyed by folder name.
type ChannelStat struct {
	Messages        int64 `json:"messages"`
	WithAttachments int64 `json:"with_attachments"`
}

// AnalysisRun is one complete pipeline execution for a user and year.
// It is populated in memory, committed to the store in a single
// transaction, and never partially persisted.
type AnalysisRun struct {
	UserID       string                      `json:"user_id"`
	Year         int                         `json:"year"`
	ExportRoot   string                      `json:"export_root"`
	StartedAt    time.Time                   `json:"started_at"`
	Channels     []*ChannelDescriptor        `json:"channels"`
	ChannelStats map[string]ChannelStat      `json:"channel_stats"`
	Users        map[string]string           `json:"users"` // user id → username
	Buckets      map[string]*AggregateBucket `json:"buckets"`
	Summary      RunSummary                  `json:"summary"`

	// Messages is populated only when message retention is enabled.
	// It is persisted to the store but never to snapshots.
	Messages []*Message `json:"-"`
}

func NewAnalysisRun(userID string, year int, exportRoot string) *AnalysisRun {
	buckets := make(map[string]*AggregateBucket, len(BucketNames))
	for _, name := range BucketNames {
		buckets[name] = NewAggregateBucket(name)
	}
	return &AnalysisRun{
		UserID:       userID,
		Year:         year,
		ExportRoot:   exportRoot,
		StartedAt:    time.Now().UTC(),
		ChannelStats: make(map[string]ChannelStat),
		Users:        make(map[string]string),
		Buckets:      buckets,
	}
}

// Bucket returns the named dimension, creating it when a snapshot load
// left it out.
func (r *AnalysisRun) Bucket(name string) *AggregateBucket {
	if b, ok := r.Buckets[name]; ok {
		return b
	}
	b := NewAggregateBucket(name)
	r.Buckets[name] = b
	return b
}
