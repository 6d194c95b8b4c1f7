// This file defines the on-disk history record and its JSON codec.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/mesh-intelligence/inkwell/internal/chain"
	"github.com/mesh-intelligence/inkwell/pkg/types"
)

// Format identifies the shape of a stored history record.
type Format int

const (
	// FormatEmpty is a blank record, treated as an empty history.
	FormatEmpty Format = iota
	// FormatLegacy is a bare JSON array of full-content versions.
	FormatLegacy
	// FormatCurrent is the delta-chain envelope.
	FormatCurrent
)

func (f Format) String() string {
	switch f {
	case FormatLegacy:
		return "legacy"
	case FormatCurrent:
		return "current"
	default:
		return "empty"
	}
}

// Record is a decoded history record. Exactly one of Legacy or Chain is
// populated, according to Format.
type Record struct {
	Format Format
	Legacy []types.LegacyEntry
	Chain  types.Chain
}

type historyFileJSON struct {
	FormatVersion int         `json:"formatVersion"`
	UsesDelta     bool        `json:"usesDelta"`
	Entries       []entryJSON `json:"entries"`
}

type entryJSON struct {
	ID           flexString `json:"id"`
	Timestamp    flexTime   `json:"timestamp"`
	DocumentType string     `json:"documentType"`
	Slug         string     `json:"slug"`
	Summary      string     `json:"summary,omitempty"`
	IsBase       bool       `json:"isBase"`
	FullContent  *string    `json:"fullContent,omitempty"`
	Delta        *deltaJSON `json:"delta,omitempty"`
}

type deltaJSON struct {
	PatchText    string `json:"patchText"`
	SourceLength int    `json:"sourceLength"`
	TargetLength int    `json:"targetLength"`
}

type legacyJSON struct {
	ID           flexString `json:"id"`
	Timestamp    flexTime   `json:"timestamp"`
	Content      string     `json:"content"`
	DocumentType string     `json:"documentType"`
	Slug         string     `json:"slug"`
	Summary      string     `json:"summary,omitempty"`
}

// flexString accepts a JSON string or number and keeps its text form.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*s = flexString(n.String())
	return nil
}

// flexTime accepts epoch milliseconds as a number or numeric string, or an
// RFC 3339 timestamp string.
type flexTime int64

func (t *flexTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			*t = flexTime(ms)
			return nil
		}
		ts, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return fmt.Errorf("unrecognized timestamp %q", v)
		}
		*t = flexTime(ts.UnixMilli())
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("timestamp must be a string or number: %w", err)
	}
	if ms, err := n.Int64(); err == nil {
		*t = flexTime(ms)
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("timestamp %s: %w", n, err)
	}
	*t = flexTime(math.Trunc(f))
	return nil
}

// Decode parses a stored record. A top-level JSON array is the legacy
// format; an object must carry the current formatVersion.
func Decode(data []byte) (Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Record{Format: FormatEmpty}, nil
	}

	switch trimmed[0] {
	case '[':
		var raw []legacyJSON
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return Record{}, fmt.Errorf("%w: legacy history: %v", types.ErrUnsupportedFormat, err)
		}
		legacy := make([]types.LegacyEntry, len(raw))
		for i, r := range raw {
			legacy[i] = types.LegacyEntry{
				ID:           string(r.ID),
				Timestamp:    int64(r.Timestamp),
				Content:      r.Content,
				DocumentType: types.DocumentType(r.DocumentType),
				Slug:         r.Slug,
				Summary:      r.Summary,
			}
		}
		return Record{Format: FormatLegacy, Legacy: legacy}, nil

	case '{':
		var hf historyFileJSON
		if err := json.Unmarshal(trimmed, &hf); err != nil {
			return Record{}, fmt.Errorf("%w: %v", types.ErrUnsupportedFormat, err)
		}
		if hf.FormatVersion != types.FormatVersion {
			return Record{}, fmt.Errorf("%w: formatVersion %d", types.ErrUnsupportedFormat, hf.FormatVersion)
		}
		c := make(types.Chain, len(hf.Entries))
		for i, e := range hf.Entries {
			c[i] = e.toEntry()
		}
		return Record{Format: FormatCurrent, Chain: c}, nil
	}

	return Record{}, fmt.Errorf("%w: unrecognized record", types.ErrUnsupportedFormat)
}

// Encode renders a chain in the current format.
func Encode(c types.Chain) ([]byte, error) {
	hf := historyFileJSON{
		FormatVersion: types.FormatVersion,
		UsesDelta:     true,
		Entries:       make([]entryJSON, len(c)),
	}
	for i, e := range c {
		hf.Entries[i] = entryFromVersion(e)
	}
	data, err := json.MarshalIndent(hf, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding history: %w", err)
	}
	return append(data, '\n'), nil
}

func (e entryJSON) toEntry() types.VersionEntry {
	v := types.VersionEntry{
		ID:           string(e.ID),
		Timestamp:    int64(e.Timestamp),
		DocumentType: types.DocumentType(e.DocumentType),
		Slug:         e.Slug,
		Summary:      e.Summary,
		IsBase:       e.IsBase,
		FullContent:  e.FullContent,
	}
	if e.Delta != nil {
		v.Delta = &types.DeltaPatch{
			Patch:        e.Delta.PatchText,
			SourceLength: e.Delta.SourceLength,
			TargetLength: e.Delta.TargetLength,
		}
	}
	return v
}

func entryFromVersion(v types.VersionEntry) entryJSON {
	e := entryJSON{
		ID:           flexString(v.ID),
		Timestamp:    flexTime(v.Timestamp),
		DocumentType: string(v.DocumentType),
		Slug:         v.Slug,
		Summary:      v.Summary,
		IsBase:       v.IsBase,
		FullContent:  v.FullContent,
	}
	if v.Delta != nil {
		e.Delta = &deltaJSON{
			PatchText:    v.Delta.Patch,
			SourceLength: v.Delta.SourceLength,
			TargetLength: v.Delta.TargetLength,
		}
	}
	return e
}

// ReadChain loads the history under key and returns it as a chain, converting
// legacy records in memory with e. The returned Format tells callers whether
// a rewrite is due. A missing key yields types.ErrHistoryNotFound.
func ReadChain(s Store, e *chain.Engine, key string) (types.Chain, Format, error) {
	data, err := s.Get(key)
	if err != nil {
		return nil, FormatEmpty, err
	}
	rec, err := Decode(data)
	if err != nil {
		return nil, FormatEmpty, fmt.Errorf("decoding history %s: %w", key, err)
	}
	switch rec.Format {
	case FormatLegacy:
		return e.ConvertLegacy(rec.Legacy), rec.Format, nil
	case FormatCurrent:
		return rec.Chain, rec.Format, nil
	default:
		return types.Chain{}, rec.Format, nil
	}
}

// WriteChain stores c under key in the current format.
func WriteChain(s Store, key string, c types.Chain) error {
	data, err := Encode(c)
	if err != nil {
		return err
	}
	return s.Put(key, data)
}

// IsNotFound reports whether err means no history is stored.
func IsNotFound(err error) bool {
	return errors.Is(err, types.ErrHistoryNotFound)
}
