package classify

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/videocatalog/catalogcore/internal/logging"
	"github.com/videocatalog/catalogcore/internal/metrics"
	"github.com/videocatalog/catalogcore/internal/store"
)

const mappingCacheTTL = 5 * time.Minute

// MappingTable is implemented by the Catalog Store's DB-backed lookup of
// source-specific type_id mappings and the parent-scoped sub-category table
// (spec §4.C: "DB-backed, falling back to hard-coded mappings... otherwise
// ID-range heuristics").
type MappingTable interface {
	LookupCategoryMapping(ctx context.Context, sourceID, upstreamTypeID string) (TypeID, bool, error)
	LookupSubCategory(ctx context.Context, parent TypeID, subTypeName string) (int, bool, error)
}

// Engine runs the priority chain from spec §4.C in order, returning the first
// confident Result. Structurally grounded on the teacher's ordered-Detector
// Engine: each stage is tried in turn and the chain stops at the first hit.
type Engine struct {
	tables MappingTable
	kv     *store.KV
}

// NewEngine builds a classify Engine. kv may be nil, in which case the mapping
// cache is skipped and every lookup goes straight to tables.
func NewEngine(tables MappingTable, kv *store.KV) *Engine {
	return &Engine{tables: tables, kv: kv}
}

// Classify runs auto_classify(video) (spec §4.C). The method that won is always
// reported via Result.Method and the catalogcore_classify_method_total metric,
// satisfying invariant P4: a higher-priority method's verdict is never
// overridden by a lower-priority one even if the lower one would also match.
func (e *Engine) Classify(ctx context.Context, in Input) (Result, error) {
	if res, ok := matchTypeName(in.TypeName); ok {
		res = e.resolveSubCategory(ctx, res)
		e.record(res)
		return res, nil
	}

	text := in.Name + " " + in.Content + " " + in.Remarks
	if res, ok := matchContentKeywords(text); ok {
		res = e.resolveSubCategory(ctx, res)
		e.record(res)
		return res, nil
	}

	if res, ok := e.matchTypeIDMapping(ctx, in); ok {
		e.record(res)
		return res, nil
	}

	if res, ok := matchActorDirector(in.Actor, in.Director); ok {
		e.record(res)
		return res, nil
	}

	if res, ok := matchVideoName(in.Name); ok {
		e.record(res)
		return res, nil
	}

	def := Result{TypeID: TypeMovie, TypeName: TypeMovie.String(), Confidence: 0.4, Method: MethodDefault}
	e.record(def)
	return def, nil
}

func (e *Engine) record(res Result) {
	metrics.ClassifyMethodUsed.WithLabelValues(string(res.Method)).Inc()
}

func (e *Engine) matchTypeIDMapping(ctx context.Context, in Input) (Result, bool) {
	if in.TypeID == "" {
		return Result{}, false
	}
	if t, ok := e.cachedMapping(ctx, in.SourceID, in.TypeID); ok {
		return Result{TypeID: t, TypeName: t.String(), Confidence: 0.6, Method: MethodTypeID}, true
	}
	n, err := strconv.Atoi(in.TypeID)
	if err != nil {
		return Result{}, false
	}
	if t, ok := typeIDRangeHeuristic(n); ok {
		return Result{TypeID: t, TypeName: t.String(), Confidence: 0.6, Method: MethodTypeID}, true
	}
	return Result{}, false
}

func (e *Engine) cachedMapping(ctx context.Context, sourceID, upstreamTypeID string) (TypeID, bool) {
	key := mappingCacheKey(sourceID, upstreamTypeID)
	if e.kv != nil {
		if raw, err := e.kv.Get(key); err == nil {
			n, convErr := strconv.Atoi(string(raw))
			if convErr == nil {
				return TypeID(n), true
			}
		}
	}
	if e.tables == nil {
		return 0, false
	}
	t, ok, err := e.tables.LookupCategoryMapping(ctx, sourceID, upstreamTypeID)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("source_id", sourceID).Msg("classify: category mapping lookup failed")
		return 0, false
	}
	if ok && e.kv != nil {
		_ = e.kv.Set(key, []byte(strconv.Itoa(int(t))), mappingCacheTTL)
	}
	return t, ok
}

func (e *Engine) resolveSubCategory(ctx context.Context, res Result) Result {
	if res.SubTypeName == "" || e.tables == nil {
		return res
	}
	key := subCategoryCacheKey(res.TypeID, res.SubTypeName)
	if e.kv != nil {
		if raw, err := e.kv.Get(key); err == nil {
			if id, convErr := strconv.Atoi(string(raw)); convErr == nil {
				res.SubTypeID = id
				return res
			}
		}
	}
	id, ok, err := e.tables.LookupSubCategory(ctx, res.TypeID, res.SubTypeName)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("sub_type_name", res.SubTypeName).Msg("classify: sub-category lookup failed")
		return res
	}
	if !ok {
		return res
	}
	res.SubTypeID = id
	if e.kv != nil {
		_ = e.kv.Set(key, []byte(strconv.Itoa(id)), mappingCacheTTL)
	}
	return res
}

// ClearMappingCache drops both the category-mapping and sub-category caches
// (spec §4.C: clear_mapping_cache).
func (e *Engine) ClearMappingCache() error {
	if e.kv == nil {
		return nil
	}
	var keys []string
	collect := func(key string, _ []byte) bool {
		keys = append(keys, key)
		return true
	}
	if err := e.kv.Scan(mappingKeyPrefix, collect); err != nil {
		return err
	}
	if err := e.kv.Scan(subCategoryKeyPrefix, collect); err != nil {
		return err
	}
	for _, k := range keys {
		if err := e.kv.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

const (
	mappingKeyPrefix     = "classify:mapping:"
	subCategoryKeyPrefix = "classify:subcat:"
)

func mappingCacheKey(sourceID, upstreamTypeID string) string {
	return fmt.Sprintf("%s%s:%s", mappingKeyPrefix, sourceID, upstreamTypeID)
}

func subCategoryCacheKey(parent TypeID, subTypeName string) string {
	return fmt.Sprintf("%s%d:%s", subCategoryKeyPrefix, parent, subTypeName)
}
