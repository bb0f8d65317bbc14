/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package recordstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/exp/slog"

	"github.com/suparena/recordstore/codec"
	"github.com/suparena/recordstore/datastore"
	"github.com/suparena/recordstore/errors"
	"github.com/suparena/recordstore/metrics"
	"github.com/suparena/recordstore/schema"
	"github.com/suparena/recordstore/storagemodels"
)

// rawCodec renders unique values for the reverse lookup hashes. Lookups use
// the native text so they do not depend on the store encoding.
var rawCodec = codec.Raw()

// Model is the handle of one registered record type.
type Model struct {
	store *Store
	typ   *schema.Type
	codec *codec.Codec
}

// Name returns the record type name.
func (m *Model) Name() string {
	return m.typ.Name
}

// Type returns the resolved schema.
func (m *Model) Type() *schema.Type {
	return m.typ
}

// CreateOption configures Create.
type CreateOption func(*createOptions)

type createOptions struct {
	score    float64
	hasScore bool
}

// WithScore sets the record's score in the ordered index. The default is the creation time.
func WithScore(score float64) CreateOption {
	return func(o *createOptions) {
		o.score, o.hasScore = score, true
	}
}

// Create stores a new record and returns it freshly loaded.
//
// The primary key is claimed in the ordered index first, then every unique
// value in one atomic script. If the uniqueness claim fails the primary key
// claim is released again. Standalone fields and the record hash are then
// written in one pipeline; if that fails every claim is released and the
// partially written keys are removed.
func (m *Model) Create(ctx context.Context, values map[string]any, opts ...CreateOption) (*Record, error) {
	o := createOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	t := m.typ

	var unknown []string
	for name := range values {
		if _, ok := t.Fields[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, errors.NewInvalidFieldAccessError(t.Name, unknown, "no such field")
	}

	pk, err := m.primaryKeyOf(values)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, name := range t.Order {
		if _, req := t.Required[name]; req && name != t.PrimaryKey && values[name] == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, errors.NewMissingRequiredFieldsError(t.Name, missing)
	}

	// Encode everything before claiming anything.
	embedded := make(map[string]string)
	var saves []func(ctx context.Context, w datastore.Writer) error
	var uniqueNames, uniqueKeys, tokens []string
	for _, name := range t.Order {
		v := values[name]
		if v == nil {
			continue
		}
		f := t.Fields[name]
		if f.Standalone {
			save, err := m.prepareSave(f, v)
			if err != nil {
				return nil, err
			}
			key := t.FieldKey(name, pk)
			saves = append(saves, func(ctx context.Context, w datastore.Writer) error {
				return save(ctx, w, key)
			})
			continue
		}
		enc, native, err := m.encodeEmbedded(f, v)
		if err != nil {
			return nil, err
		}
		embedded[name] = enc
		if f.Class == schema.ClassUnique {
			token, err := uniqueToken(f, native)
			if err != nil {
				return nil, err
			}
			uniqueNames = append(uniqueNames, name)
			uniqueKeys = append(uniqueKeys, t.UniqueKeys[name])
			tokens = append(tokens, token)
		}
	}

	score := storagemodels.TimeScore(timeNow())
	if o.hasScore {
		score = o.score
	}
	if err := m.claimPrimaryKey(ctx, pk, score); err != nil {
		return nil, err
	}

	if len(uniqueKeys) > 0 {
		pos, err := m.claimUnique(ctx, pk, uniqueKeys, tokens)
		if err != nil || pos > 0 {
			m.releasePrimaryKey(ctx, pk)
			if err != nil {
				return nil, err
			}
			name := uniqueNames[pos-1]
			native, _ := m.codec.Decode(t.Fields[name].Kind, embedded[name])
			return nil, errors.NewDuplicateEntryError(t.Name, name, native)
		}
	}

	pipe := m.store.conn.Pipeline()
	err = func() error {
		for _, save := range saves {
			if err := save(ctx, pipe); err != nil {
				return err
			}
		}
		if err := pipe.HSet(ctx, t.RecordKey(pk), embedded); err != nil {
			return err
		}
		return pipe.Exec(ctx)
	}()
	if err != nil {
		pipe.Discard()
		m.abandon(ctx, pk, uniqueKeys, tokens)
		return nil, err
	}

	m.store.log.Debug("record created",
		slog.String("type", t.Name),
		slog.String("pk", pk),
		slog.Float64("score", score))
	return m.Load(ctx, pk)
}

func (m *Model) primaryKeyOf(values map[string]any) (string, error) {
	raw := values[m.typ.PrimaryKey]
	if rec, ok := raw.(*Record); ok {
		raw = rec.PrimaryKey()
	}
	if raw == nil {
		return "", errors.NewNoPrimaryKeyError(m.typ.Name, m.typ.PrimaryKey)
	}
	pk, ok := raw.(string)
	if !ok {
		return "", errors.NewValidationError(m.typ.PrimaryKey, fmt.Sprintf("primary key must be a string, got %T", raw))
	}
	if pk == "" {
		return "", errors.NewNoPrimaryKeyError(m.typ.Name, m.typ.PrimaryKey)
	}
	return pk, nil
}

// claimPrimaryKey adds pk to the ordered index only if it is absent.
func (m *Model) claimPrimaryKey(ctx context.Context, pk string, score float64) error {
	res, err := m.store.conn.Eval(ctx, datastore.ScriptPrimaryKeyClaim, []string{m.typ.IndexKey}, score, pk)
	if err != nil {
		metrics.ClaimInc(datastore.ScriptPrimaryKeyClaim, "error")
		return err
	}
	added, err := datastore.Int64(res)
	if err != nil {
		metrics.ClaimInc(datastore.ScriptPrimaryKeyClaim, "error")
		return fmt.Errorf("%s: %w", datastore.ScriptPrimaryKeyClaim, err)
	}
	if added == 0 {
		metrics.ClaimInc(datastore.ScriptPrimaryKeyClaim, "conflict")
		m.store.log.Debug("primary key claim lost", slog.String("type", m.typ.Name), slog.String("pk", pk))
		return errors.NewDuplicateIdentityError(m.typ.Name, pk)
	}
	metrics.ClaimInc(datastore.ScriptPrimaryKeyClaim, "ok")
	return nil
}

// releasePrimaryKey undoes claimPrimaryKey after a failed create.
func (m *Model) releasePrimaryKey(ctx context.Context, pk string) {
	if err := m.store.conn.ZRem(ctx, m.typ.IndexKey, pk); err != nil {
		m.store.log.Warn("releasing primary key claim failed, index entry is orphaned",
			slog.String("type", m.typ.Name),
			slog.String("pk", pk),
			slog.Any("err", err))
	}
}

// abandon removes whatever a failed Create left behind: partially written
// keys, the unique tokens and the primary key claim, in that order.
func (m *Model) abandon(ctx context.Context, pk string, uniqueKeys, tokens []string) {
	t := m.typ
	written := []string{t.RecordKey(pk)}
	for _, name := range t.Standalone() {
		written = append(written, t.FieldKey(name, pk))
	}
	if err := m.store.conn.Del(ctx, written...); err != nil {
		m.store.log.Warn("removing a partially created record failed",
			slog.String("type", t.Name),
			slog.String("pk", pk),
			slog.Any("err", err))
	}
	m.releaseUnique(ctx, pk, uniqueKeys, tokens)
	m.releasePrimaryKey(ctx, pk)
}

// releaseUnique drops the reverse lookup entries of tokens that are still
// owned by pk. Failures are logged, the entries then stay claimed.
func (m *Model) releaseUnique(ctx context.Context, pk string, keys, tokens []string) {
	if len(keys) == 0 {
		return
	}
	values, err := json.Marshal(tokens)
	if err == nil {
		_, err = m.store.conn.Eval(ctx, datastore.ScriptUniquenessRelease, keys, pk, string(values))
	}
	if err != nil {
		metrics.ClaimInc(datastore.ScriptUniquenessRelease, "error")
		m.store.log.Warn("releasing unique claims failed, values stay reserved",
			slog.String("type", m.typ.Name),
			slog.String("pk", pk),
			slog.Any("keys", keys),
			slog.Any("err", err))
		return
	}
	metrics.ClaimInc(datastore.ScriptUniquenessRelease, "ok")
}

// claimUnique claims every token for pk, or none. It returns 0 on success or
// the 1-based position of the first conflicting token.
func (m *Model) claimUnique(ctx context.Context, pk string, keys, tokens []string) (int64, error) {
	values, err := json.Marshal(tokens)
	if err != nil {
		return 0, err
	}
	res, err := m.store.conn.Eval(ctx, datastore.ScriptUniquenessClaim, keys, pk, string(values))
	if err != nil {
		metrics.ClaimInc(datastore.ScriptUniquenessClaim, "error")
		return 0, err
	}
	pos, err := datastore.Int64(res)
	if err != nil || pos < 0 || pos > int64(len(keys)) {
		metrics.ClaimInc(datastore.ScriptUniquenessClaim, "error")
		return 0, fmt.Errorf("%s: unexpected result %v", datastore.ScriptUniquenessClaim, res)
	}
	if pos > 0 {
		metrics.ClaimInc(datastore.ScriptUniquenessClaim, "conflict")
		m.store.log.Debug("uniqueness claim lost",
			slog.String("type", m.typ.Name),
			slog.String("pk", pk),
			slog.String("key", keys[pos-1]))
		return pos, nil
	}
	metrics.ClaimInc(datastore.ScriptUniquenessClaim, "ok")
	return 0, nil
}

// Load reads the record with the given primary key. A missing record is
// returned as a Record that is not Good, with a nil error.
func (m *Model) Load(ctx context.Context, pk string) (*Record, error) {
	return m.load(ctx, pk, newTraversal())
}

func (m *Model) load(ctx context.Context, pk string, trav *traversal) (*Record, error) {
	r, _, err := m.fetch(ctx, pk, trav)
	return r, err
}

// fetch loads pk within trav and also returns the raw hash.
func (m *Model) fetch(ctx context.Context, pk string, trav *traversal) (*Record, map[string]string, error) {
	if r, ok := trav.get(m.typ.Name, pk); ok {
		return r, nil, nil
	}
	h, err := m.store.conn.HGetAll(ctx, m.typ.RecordKey(pk))
	if err != nil {
		return nil, nil, err
	}
	r := newRecord(m, pk, trav)
	if err := r.fill(h); err != nil {
		return nil, nil, err
	}
	trav.put(r)
	return r, h, nil
}

// LoadBy reads the record holding a unique value. Exactly one field, which
// must be unique or the primary key, may be given.
func (m *Model) LoadBy(ctx context.Context, values map[string]any) (*Record, error) {
	t := m.typ
	if len(values) != 1 {
		names := make([]string, 0, len(values))
		for name := range values {
			names = append(names, name)
		}
		sort.Strings(names)
		return nil, errors.NewInvalidFieldAccessError(t.Name, names, "load by exactly one field")
	}
	var name string
	var v any
	for name, v = range values {
	}

	if name == t.PrimaryKey {
		pk, err := m.primaryKeyOf(values)
		if err != nil {
			return nil, err
		}
		return m.Load(ctx, pk)
	}
	f, ok := t.Unique[name]
	if !ok {
		return nil, errors.NewInvalidFieldAccessError(t.Name, []string{name}, "not a unique field")
	}
	_, native, err := m.encodeEmbedded(f, v)
	if err != nil {
		return nil, err
	}
	token, err := uniqueToken(f, native)
	if err != nil {
		return nil, err
	}
	pk, found, err := m.store.conn.HGet(ctx, t.UniqueKeys[name], token)
	if err != nil {
		return nil, err
	}
	if !found {
		return newRecord(m, "", newTraversal()), nil
	}
	return m.Load(ctx, pk)
}

// Range loads the records selected from the ordered index. Records are
// loaded in one traversal, so foreign references between them resolve to
// the same instances. Index entries without a record are skipped.
func (m *Model) Range(ctx context.Context, params storagemodels.RangeParams) ([]*Record, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	pks, err := m.store.conn.ZRangeByScore(ctx, m.typ.IndexKey, params.ScoreRange())
	if err != nil {
		return nil, err
	}
	trav := newTraversal()
	records := make([]*Record, 0, len(pks))
	for _, pk := range pks {
		r, err := m.load(ctx, pk, trav)
		if err != nil {
			return nil, err
		}
		if r.Good() {
			records = append(records, r)
		}
	}
	return records, nil
}

// Count returns the number of records in the ordered index.
func (m *Model) Count(ctx context.Context) (int64, error) {
	return m.store.conn.ZCard(ctx, m.typ.IndexKey)
}

// encodeEmbedded returns the wire form and the canonical native form of v.
func (m *Model) encodeEmbedded(f *schema.Field, v any) (string, any, error) {
	if rec, ok := v.(*Record); ok {
		if !f.Foreign() || rec.model.typ.Name != f.References {
			return "", nil, errors.NewValidationError(f.Name, fmt.Sprintf("cannot assign a %s record", rec.model.typ.Name))
		}
		v = rec.PrimaryKey()
	}
	enc, err := m.codec.Encode(f.Kind, v)
	if err != nil {
		return "", nil, errors.NewValidationError(f.Name, err.Error())
	}
	native, err := m.codec.Decode(f.Kind, enc)
	if err != nil {
		return "", nil, errors.NewValidationError(f.Name, err.Error())
	}
	return enc, native, nil
}

func uniqueToken(f *schema.Field, native any) (string, error) {
	return rawCodec.Encode(f.Kind, native)
}

type saveFunc func(ctx context.Context, w datastore.Writer, key string) error

// prepareSave encodes a standalone value and returns the writes that replace
// the remote value with it.
func (m *Model) prepareSave(f *schema.Field, v any) (saveFunc, error) {
	switch f.Kind {
	case schema.Set, schema.List:
		members, err := m.codec.Members(f.Kind, v)
		if err != nil {
			return nil, errors.NewValidationError(f.Name, err.Error())
		}
		return func(ctx context.Context, w datastore.Writer, key string) error {
			if err := w.Del(ctx, key); err != nil {
				return err
			}
			if len(members) == 0 {
				return nil
			}
			if f.Kind == schema.Set {
				return w.SAdd(ctx, key, members...)
			}
			return w.RPush(ctx, key, members...)
		}, nil
	case schema.Pairs:
		h, err := m.codec.Hash(v)
		if err != nil {
			return nil, errors.NewValidationError(f.Name, err.Error())
		}
		return func(ctx context.Context, w datastore.Writer, key string) error {
			if err := w.Del(ctx, key); err != nil {
				return err
			}
			if len(h) == 0 {
				return nil
			}
			return w.HSet(ctx, key, h)
		}, nil
	}
	enc, err := m.codec.Encode(f.Kind, v)
	if err != nil {
		return nil, errors.NewValidationError(f.Name, err.Error())
	}
	return func(ctx context.Context, w datastore.Writer, key string) error {
		return w.Set(ctx, key, enc)
	}, nil
}
