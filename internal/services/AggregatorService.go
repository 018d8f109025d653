package services

import (
	"rewind/internal/models"
	"strings"
	"time"
)

// Synthetic channel labels for channels that have no server name.
const (
	dmFallbackLabel    = "Direct Messages"
	groupDMLabelPrefix = "Group DM: "
	unknownServerLabel = "Unknown Server"
)

// Accumulator is one fold state: a private bucket set plus the summary
// scalars. Workers fold into private accumulators which merge by key
// addition, so the result is independent of channel processing order.
type Accumulator struct {
	Buckets      map[string]*models.AggregateBucket
	ChannelStats map[string]*models.ChannelStat // keyed by folder name
	Messages     int64
	Attachments  int64
	SystemEvents int64
	Earliest     time.Time
	Latest       time.Time
}

type AggregatorServiceInterface interface {
	NewAccumulator() *Accumulator
	Fold(acc *Accumulator, desc *models.ChannelDescriptor, msg *models.Message)
	Merge(dst, src *Accumulator)
	Finish(run *models.AnalysisRun, acc *Accumulator)
	ChannelLabel(desc *models.ChannelDescriptor) string
}

type AggregatorService struct {
	selfID string
	users  map[string]string // user id → username, from index.json
}

func NewAggregatorService(selfID string, users map[string]string) AggregatorServiceInterface {
	if users == nil {
		users = map[string]string{}
	}
	return &AggregatorService{selfID: selfID, users: users}
}

func (as *AggregatorService) NewAccumulator() *Accumulator {
	buckets := make(map[string]*models.AggregateBucket, len(models.BucketNames))
	for _, name := range models.BucketNames {
		buckets[name] = models.NewAggregateBucket(name)
	}
	return &Accumulator{
		Buckets:      buckets,
		ChannelStats: make(map[string]*models.ChannelStat),
	}
}

// Fold adds one normalized message to the accumulator. The fold is
// commutative and associative: every bucket update is a key addition
// and the scalar updates are min/max/sum.
func (as *AggregatorService) Fold(acc *Accumulator, desc *models.ChannelDescriptor, msg *models.Message) {
	if msg.Flags.Has(models.FlagSystem) {
		acc.SystemEvents++
		acc.Buckets[models.BucketSystemEvents].Inc(msg.EventType, 1)
		return
	}

	acc.Messages++
	acc.Buckets[models.BucketDaily].Inc(msg.Day(), 1)

	ts := msg.Timestamp.UTC()
	if acc.Earliest.IsZero() || ts.Before(acc.Earliest) {
		acc.Earliest = ts
	}
	if acc.Latest.IsZero() || ts.After(acc.Latest) {
		acc.Latest = ts
	}

	switch desc.Kind {
	case models.KindDM:
		acc.Buckets[models.BucketDMs].Inc(as.dmPartnerLabel(desc), 1)
	case models.KindGroupDM:
		acc.Buckets[models.BucketGroupDMs].Inc(as.groupDMLabel(desc), 1)
	default:
		acc.Buckets[models.BucketServers].Inc(serverLabel(desc), 1)
	}

	for _, emote := range msg.Emotes {
		acc.Buckets[models.BucketEmotes].Inc(emote.Name, 1)
	}

	tally := acc.ChannelStats[desc.FolderName]
	if tally == nil {
		tally = &models.ChannelStat{}
		acc.ChannelStats[desc.FolderName] = tally
	}
	tally.Messages++
	if len(msg.Attachments) > 0 {
		tally.WithAttachments++
	}

	for _, att := range msg.Attachments {
		acc.Attachments++
		acc.Buckets[models.BucketFileTypes].Add(att.Extension, 1, att.Size)
	}
}

// Merge folds src into dst. Merging partial accumulators in any order
// yields the same result as a single sequential fold.
func (as *AggregatorService) Merge(dst, src *Accumulator) {
	if src == nil {
		return
	}
	for name, bucket := range src.Buckets {
		dst.Buckets[name].Merge(bucket)
	}
	for folder, tally := range src.ChannelStats {
		existing := dst.ChannelStats[folder]
		if existing == nil {
			existing = &models.ChannelStat{}
			dst.ChannelStats[folder] = existing
		}
		existing.Messages += tally.Messages
		existing.WithAttachments += tally.WithAttachments
	}
	dst.Messages += src.Messages
	dst.Attachments += src.Attachments
	dst.SystemEvents += src.SystemEvents
	if !src.Earliest.IsZero() && (dst.Earliest.IsZero() || src.Earliest.Before(dst.Earliest)) {
		dst.Earliest = src.Earliest
	}
	if !src.Latest.IsZero() && (dst.Latest.IsZero() || src.Latest.After(dst.Latest)) {
		dst.Latest = src.Latest
	}
}

// Finish moves the accumulator's contents into the run.
func (as *AggregatorService) Finish(run *models.AnalysisRun, acc *Accumulator) {
	for name, bucket := range acc.Buckets {
		run.Bucket(name).Merge(bucket)
	}
	for folder, tally := range acc.ChannelStats {
		run.ChannelStats[folder] = *tally
	}
	run.Summary.TotalMessages = acc.Messages
	run.Summary.TotalAttachments = acc.Attachments
	run.Summary.SystemEvents = acc.SystemEvents
	run.Summary.TotalServers = run.Bucket(models.BucketServers).Len()
	run.Summary.TotalDMs = run.Bucket(models.BucketDMs).Len()
	run.Summary.TotalGroupDMs = run.Bucket(models.BucketGroupDMs).Len()
	run.Summary.EarliestMessage = acc.Earliest
	run.Summary.LatestMessage = acc.Latest
}

// ChannelLabel is the per-server / per-DM dimension key for a channel.
func (as *AggregatorService) ChannelLabel(desc *models.ChannelDescriptor) string {
	switch desc.Kind {
	case models.KindDM:
		return as.dmPartnerLabel(desc)
	case models.KindGroupDM:
		return as.groupDMLabel(desc)
	default:
		return serverLabel(desc)
	}
}

// dmPartnerLabel keys DM activity by the partner's username when the
// index mapped one, otherwise by the partner's id.
func (as *AggregatorService) dmPartnerLabel(desc *models.ChannelDescriptor) string {
	partner := desc.PartnerID(as.selfID)
	if partner == "" {
		return dmFallbackLabel
	}
	if name, ok := as.users[partner]; ok && name != "" {
		return name
	}
	return partner
}

// groupDMLabel builds a stable participant label from the sorted
// recipient list, excluding the subject's own id.
func (as *AggregatorService) groupDMLabel(desc *models.ChannelDescriptor) string {
	var names []string
	for _, id := range desc.Recipients {
		if id == as.selfID {
			continue
		}
		if name, ok := as.users[id]; ok && name != "" {
			names = append(names, name)
		} else {
			names = append(names, id)
		}
	}
	if len(names) == 0 {
		if desc.Name != "" {
			return groupDMLabelPrefix + desc.Name
		}
		return groupDMLabelPrefix + desc.FolderName
	}
	return groupDMLabelPrefix + strings.Join(names, ", ")
}

func serverLabel(desc *models.ChannelDescriptor) string {
	if desc.ServerName != "" {
		return desc.ServerName
	}
	return unknownServerLabel
}
