package persistence

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/furniro/storefront/internal/domain/checkout"
	"github.com/furniro/storefront/internal/domain/collection"
	"github.com/google/uuid"
)

// CurrentSchemaVersion is the envelope version written by Encode
const CurrentSchemaVersion = 1

// Codec errors, shared with the store so it can tell them apart
var (
	ErrMalformedPayload   = collection.ErrMalformedPayload
	ErrUnsupportedVersion = collection.ErrUnsupportedVersion
)

// envelope is the persisted shape of a collection or checkout snapshot
type envelope struct {
	SchemaVersion int                `json:"schema_version"`
	SnapshotID    string             `json:"snapshot_id,omitempty"`
	CreatedAt     *time.Time         `json:"created_at,omitempty"`
	Items         []collection.Entry `json:"items"`
}

// PayloadUpgrader migrates a raw payload one schema version forward
type PayloadUpgrader interface {
	SourceVersion() int
	TargetVersion() int
	Upgrade(payload []byte) ([]byte, error)
}

// FuncUpgrader adapts a transform over the decoded JSON document
type FuncUpgrader struct {
	source    int
	target    int
	transform func(doc any) (map[string]any, error)
}

// NewFuncUpgrader creates an upgrader from source to target
func NewFuncUpgrader(source, target int, transform func(doc any) (map[string]any, error)) *FuncUpgrader {
	return &FuncUpgrader{source: source, target: target, transform: transform}
}

func (u *FuncUpgrader) SourceVersion() int { return u.source }
func (u *FuncUpgrader) TargetVersion() int { return u.target }

// Upgrade decodes the payload, applies the transform and stamps the target version
func (u *FuncUpgrader) Upgrade(payload []byte) ([]byte, error) {
	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	out, err := u.transform(doc)
	if err != nil {
		return nil, fmt.Errorf("transform failed: %w", err)
	}
	out["schema_version"] = u.target
	return json.Marshal(out)
}

// legacyArrayUpgrader wraps the original bare JSON array into the v1 envelope
var legacyArrayUpgrader = NewFuncUpgrader(0, 1, func(doc any) (map[string]any, error) {
	items, ok := doc.([]any)
	if !ok {
		return nil, fmt.Errorf("expected array, got %T", doc)
	}
	return map[string]any{"items": items}, nil
})

// CollectionCodec encodes entries into a versioned envelope and decodes any
// known version, upgrading older payloads step by step.
type CollectionCodec struct {
	current   int
	upgraders map[int]PayloadUpgrader
}

// NewCollectionCodec creates a codec writing CurrentSchemaVersion with the
// default upgrade chain.
func NewCollectionCodec() *CollectionCodec {
	c, err := NewCollectionCodecWithUpgraders(CurrentSchemaVersion, legacyArrayUpgrader)
	if err != nil {
		panic(err)
	}
	return c
}

// NewCollectionCodecWithUpgraders creates a codec for an explicit version and
// chain. Every version from 0 to current-1 needs an upgrader.
func NewCollectionCodecWithUpgraders(current int, upgraders ...PayloadUpgrader) (*CollectionCodec, error) {
	byVersion := make(map[int]PayloadUpgrader, len(upgraders))
	for _, u := range upgraders {
		if u.TargetVersion() != u.SourceVersion()+1 {
			return nil, fmt.Errorf("upgrader must advance exactly one version, got %d -> %d",
				u.SourceVersion(), u.TargetVersion())
		}
		byVersion[u.SourceVersion()] = u
	}
	for v := 0; v < current; v++ {
		if _, ok := byVersion[v]; !ok {
			return nil, fmt.Errorf("missing upgrader for version %d -> %d", v, v+1)
		}
	}
	return &CollectionCodec{current: current, upgraders: byVersion}, nil
}

// Encode writes entries in the current envelope. A nil slice encodes as [].
func (c *CollectionCodec) Encode(entries []collection.Entry) ([]byte, error) {
	return c.marshal(envelope{Items: entries})
}

// Decode reads a payload of any supported version
func (c *CollectionCodec) Decode(payload []byte) ([]collection.Entry, error) {
	env, err := c.decodeEnvelope(payload)
	if err != nil {
		return nil, err
	}
	return env.Items, nil
}

// EncodeSnapshot writes a checkout snapshot with its id and creation time
func (c *CollectionCodec) EncodeSnapshot(s *checkout.Snapshot) ([]byte, error) {
	createdAt := s.CreatedAt()
	return c.marshal(envelope{
		SnapshotID: s.ID().String(),
		CreatedAt:  &createdAt,
		Items:      s.Items(),
	})
}

// DecodeSnapshot reads a checkout snapshot. Legacy payloads without an id
// are given a fresh one.
func (c *CollectionCodec) DecodeSnapshot(payload []byte) (*checkout.Snapshot, error) {
	env, err := c.decodeEnvelope(payload)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	if env.SnapshotID != "" {
		parsed, err := uuid.Parse(env.SnapshotID)
		if err != nil {
			return nil, fmt.Errorf("%w: snapshot id: %v", ErrMalformedPayload, err)
		}
		id = parsed
	}
	createdAt := time.Now().UTC()
	if env.CreatedAt != nil {
		createdAt = *env.CreatedAt
	}
	return checkout.RestoreSnapshot(id, env.Items, createdAt), nil
}

func (c *CollectionCodec) marshal(env envelope) ([]byte, error) {
	env.SchemaVersion = c.current
	if env.Items == nil {
		env.Items = []collection.Entry{}
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to encode collection: %w", err)
	}
	return data, nil
}

func (c *CollectionCodec) decodeEnvelope(payload []byte) (*envelope, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedPayload)
	}

	version, err := detectVersion(payload)
	if err != nil {
		return nil, err
	}
	if version > c.current {
		return nil, fmt.Errorf("%w: %d (current %d)", ErrUnsupportedVersion, version, c.current)
	}

	for v := version; v < c.current; v++ {
		payload, err = c.upgraders[v].Upgrade(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: upgrade v%d: %v", ErrMalformedPayload, v, err)
		}
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	for i := range env.Items {
		if err := env.Items[i].Validate(); err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrMalformedPayload, i, err)
		}
	}
	if env.Items == nil {
		env.Items = []collection.Entry{}
	}
	return &env, nil
}

// detectVersion returns 0 for a bare array, otherwise the envelope's schema_version
func detectVersion(payload []byte) (int, error) {
	switch payload[0] {
	case '[':
		return 0, nil
	case '{':
		var info struct {
			SchemaVersion *int `json:"schema_version"`
		}
		if err := json.Unmarshal(payload, &info); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		if info.SchemaVersion == nil || *info.SchemaVersion < 1 {
			return 0, fmt.Errorf("%w: missing schema_version", ErrMalformedPayload)
		}
		return *info.SchemaVersion, nil
	default:
		return 0, fmt.Errorf("%w: unexpected leading byte %q", ErrMalformedPayload, payload[0])
	}
}

var _ collection.Codec = (*CollectionCodec)(nil)
