package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dmitrijs2005/quotesync/internal/client/models"
	"github.com/dmitrijs2005/quotesync/internal/client/repositories/changelog"
	"github.com/dmitrijs2005/quotesync/internal/client/repositories/versions"
	"github.com/dmitrijs2005/quotesync/internal/client/transport"
	"github.com/dmitrijs2005/quotesync/internal/common"
	"github.com/dmitrijs2005/quotesync/internal/logging"
)

// ResolutionKind is the detector's verdict on a version mismatch.
type ResolutionKind string

const (
	// ResolutionMerged means the two sides edited disjoint fields; Merged
	// holds the combined payload rebased onto the server's version.
	ResolutionMerged ResolutionKind = "merged"

	// ResolutionConflict means both sides touched the same field (or the
	// merge substrate is gone); the item must be held for user resolution.
	ResolutionConflict ResolutionKind = "conflict"
)

// Resolution is the outcome of comparing a rejected local operation with the
// server's current record.
type Resolution struct {
	Kind   ResolutionKind
	Merged *transport.QuotePayload // set when Kind == ResolutionMerged
	Fields []string                // overlapping fields when Kind == ResolutionConflict
	Reason string
}

// Detector decides what a version mismatch means: a clean automatic merge,
// a hard conflict to hold for the user, or a fatal local-ahead-of-server
// state that indicates corruption.
//
// The merge substrate is the base snapshot from the version history plus the
// field-level change log; both are written in the same transaction as every
// local edit, so they are always consistent with the queue item being
// resolved.
type Detector struct {
	versions versions.Repository
	changes  changelog.Repository
	log      logging.Logger
}

// NewDetector builds a detector over the version history and change log.
func NewDetector(versions versions.Repository, changes changelog.Repository, log logging.Logger) *Detector {
	return &Detector{versions: versions, changes: changes, log: log}
}

// Resolve classifies the mismatch reported for item. local is the payload
// the device tried to send.
//
// A base version ahead of the server's is unrecoverable and returns an error
// wrapping common.ErrFatalVersion; the caller dead-letters the item. All
// recoverable outcomes come back as a Resolution.
func (d *Detector) Resolve(ctx context.Context, item *models.SyncQueueItem, local *transport.QuotePayload, mismatch *transport.VersionMismatchError) (*Resolution, error) {
	base, server := item.BaseVersion, mismatch.ServerVersion

	if base > server {
		return nil, fmt.Errorf("%w: base version %d ahead of server %d for quote %s",
			common.ErrFatalVersion, base, server, item.QuoteID)
	}

	if local == nil {
		// A delete raced with a server-side edit. Deleting work someone
		// else just changed is never merged automatically.
		return &Resolution{
			Kind:   ResolutionConflict,
			Reason: "quote changed on server after local delete",
		}, nil
	}

	if mismatch.ServerQuote == nil {
		// The server reported a mismatch without its record. Without both
		// sides there is nothing to diff; hold rather than guess.
		return &Resolution{
			Kind:   ResolutionConflict,
			Reason: "server returned no record to merge against",
		}, nil
	}

	snapshot, err := d.versions.Get(ctx, item.QuoteID, base)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// History pruned past the base version; three-way merge is
			// impossible.
			return &Resolution{
				Kind:   ResolutionConflict,
				Reason: fmt.Sprintf("base snapshot v%d not found", base),
			}, nil
		}
		return nil, fmt.Errorf("failed to load base snapshot: %w", err)
	}

	var basePayload transport.QuotePayload
	if err := json.Unmarshal(snapshot.Data, &basePayload); err != nil {
		return nil, fmt.Errorf("failed to decode base snapshot: %w", err)
	}

	serverChanged := diffPayloadFields(&basePayload, mismatch.ServerQuote)
	localChanged, err := d.localChangedFields(ctx, item, snapshot.CreatedAt, &basePayload, local)
	if err != nil {
		return nil, err
	}

	if overlap := intersect(localChanged, serverChanged); len(overlap) > 0 {
		d.log.Warn(ctx, "hard conflict detected",
			"quote", item.QuoteID, "base", base, "server", server, "fields", overlap)
		return &Resolution{
			Kind:   ResolutionConflict,
			Fields: overlap,
			Reason: "both sides edited the same fields",
		}, nil
	}

	merged := mergePayloads(mismatch.ServerQuote, local, localChanged)
	merged.Version = server
	d.log.Info(ctx, "versions merged automatically",
		"quote", item.QuoteID, "base", base, "server", server,
		"local_fields", localChanged, "server_fields", serverChanged)

	return &Resolution{Kind: ResolutionMerged, Merged: merged}, nil
}

// localChangedFields lists the fields this device edited since the base
// snapshot. The change log is the primary source; a diff of base against the
// outgoing payload backs it up in case entries were pruned early.
func (d *Detector) localChangedFields(ctx context.Context, item *models.SyncQueueItem, since time.Time, base, local *transport.QuotePayload) ([]string, error) {
	entries, err := d.changes.GetSince(ctx, item.QuoteID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to read change log: %w", err)
	}

	seen := map[string]bool{}
	for _, e := range entries {
		seen[e.FieldName] = true
	}
	for _, name := range diffPayloadFields(base, local) {
		seen[name] = true
	}

	fields := make([]string, 0, len(seen))
	for name := range seen {
		fields = append(fields, name)
	}
	sort.Strings(fields)
	return fields, nil
}

// payloadFields flattens a payload into comparable field tokens: the quote's
// scalar fields plus the nested jobs and financials collections, each
// reduced to their canonical JSON.
func payloadFields(p *transport.QuotePayload) map[string]string {
	fields := p.Quote.Fields()
	fields["jobs"] = canonicalJSON(p.Jobs)
	fields["financials"] = canonicalJSON(p.Financials)
	return fields
}

func canonicalJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func diffPayloadFields(a, b *transport.QuotePayload) []string {
	fa, fb := payloadFields(a), payloadFields(b)
	var changed []string
	for name, va := range fa {
		if fb[name] != va {
			changed = append(changed, name)
		}
	}
	sort.Strings(changed)
	return changed
}

// mergePayloads starts from the server's record and replays the locally
// edited fields onto it. Only call with disjoint change sets.
func mergePayloads(server, local *transport.QuotePayload, localFields []string) *transport.QuotePayload {
	merged := *server
	for _, name := range localFields {
		switch name {
		case "jobs":
			merged.Jobs = local.Jobs
		case "financials":
			merged.Financials = local.Financials
		default:
			merged.ApplyField(name, local.Quote.Fields()[name])
		}
	}
	return &merged
}

func intersect(a, b []string) []string {
	in := map[string]bool{}
	for _, s := range a {
		in[s] = true
	}
	var out []string
	for _, s := range b {
		if in[s] {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
