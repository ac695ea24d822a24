// Package plan is the type-directed codec plan builder from spec §4.5: it
// walks a *shape.Shape and materializes a parser state tree (package
// decode) and a writer emission plan (package encode), memoizing each by
// the shape's canonical key so that repeated or concurrent requests for
// the same shape share one compiled plan.
package plan

import (
	"sync"

	"github.com/kevin0x90/qson/decode"
	"github.com/kevin0x90/qson/encode"
	"github.com/kevin0x90/qson/shape"
)

// Config carries the plan-build options from spec §6.
type Config struct {
	// EmitNullForAbsent controls whether an absent Optional object field
	// emits `null` or is omitted entirely in writer output.
	EmitNullForAbsent bool
}

// DefaultConfig matches spec §6's documented defaults.
func DefaultConfig() Config {
	return Config{EmitNullForAbsent: true}
}

// Builder compiles shapes into parser/writer trees. A Builder's two memo
// tables are scoped to a single build (or a related family of builds, at
// the caller's discretion) for sub-shape dedup; the Mapper facade (package
// qson) layers a second, process-lifetime cache keyed the same way on top
// of per-call Builders, per §4.5 ("Both share the memo for sub-shape dedup
// within a single build; across builds, the mapper's caches dedup").
type Builder struct {
	Config Config

	parserMemo sync.Map // shape key (string) -> decode.State
	writerMemo sync.Map // shape key (string) -> *encode.Plan
}

// NewBuilder creates a Builder. cfg's zero value is valid but disables
// EmitNullForAbsent; most callers want DefaultConfig().
func NewBuilder(cfg Config) *Builder {
	return &Builder{Config: cfg}
}

// BuildParser compiles s into a parser state tree, reusing or registering
// sub-shapes in the parser memo.
func (b *Builder) BuildParser(s *shape.Shape) (decode.State, error) {
	return b.buildParser(s)
}

// BuildWriter compiles s into a writer emission plan, reusing or
// registering sub-shapes in the writer memo.
func (b *Builder) BuildWriter(s *shape.Shape) (*encode.Plan, error) {
	return b.buildWriter(s)
}

func (b *Builder) buildParser(s *shape.Shape) (decode.State, error) {
	key := s.Key()
	if v, ok := b.parserMemo.Load(key); ok {
		return v.(decode.State), nil
	}
	switch s.Kind {
	case shape.KindScalar:
		st := decode.State(decode.NewScalarState(s.Scalar, s.GoType))
		b.parserMemo.Store(key, st)
		return st, nil
	case shape.KindAny:
		st := decode.AnyState()
		b.parserMemo.Store(key, st)
		return st, nil
	case shape.KindList:
		elemSt, err := b.buildParser(s.Elem)
		if err != nil {
			return nil, err
		}
		st := decode.State(decode.NewListState(elemSt, s.GoType))
		b.parserMemo.Store(key, st)
		return st, nil
	case shape.KindMap:
		elemSt, err := b.buildParser(s.Elem)
		if err != nil {
			return nil, err
		}
		if s.MapKey.Kind != shape.KindScalar {
			return nil, decode.NewError(decode.PlanBuildFailure, 0, "", "map key shape must be scalar")
		}
		st := decode.State(decode.NewMapState(elemSt, s.MapKey.Scalar, s.MapKey.GoType, s.GoType))
		b.parserMemo.Store(key, st)
		return st, nil
	case shape.KindObject:
		return b.buildObjectParser(s, key)
	default:
		return nil, decode.NewError(decode.PlanBuildFailure, 0, "", "unknown shape kind in BuildParser")
	}
}

// buildObjectParser registers an empty *decode.ObjectState in the parser
// memo before compiling its fields, so that a self-referential struct
// (e.g. a tree node holding a slice of itself) resolves its back-edge to
// this same node instead of recursing forever -- the same
// load-or-store-placeholder-before-recursing trick shape.Reflect uses for
// struct shapes, grounded on SnellerInc-sneller's ion.compileStruct.
func (b *Builder) buildObjectParser(s *shape.Shape, key string) (decode.State, error) {
	placeholder := &decode.ObjectState{GoType: s.GoType}
	actual, loaded := b.parserMemo.LoadOrStore(key, decode.State(placeholder))
	if loaded {
		return actual.(decode.State), nil
	}

	fields := make([]decode.ObjectField, len(s.Fields))
	for i, f := range s.Fields {
		childSt, err := b.buildParser(f.Shape)
		if err != nil {
			return nil, err
		}
		fields[i] = decode.ObjectField{Name: f.Name, State: childSt, Set: f.Set}
	}
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	placeholder.Fields = fields
	placeholder.Trie = decode.NewKeyTrie(names)
	return decode.State(placeholder), nil
}

func (b *Builder) buildWriter(s *shape.Shape) (*encode.Plan, error) {
	key := s.Key()
	if v, ok := b.writerMemo.Load(key); ok {
		return v.(*encode.Plan), nil
	}
	switch s.Kind {
	case shape.KindScalar:
		p := &encode.Plan{Kind: shape.KindScalar, Scalar: s.Scalar}
		b.writerMemo.Store(key, p)
		return p, nil
	case shape.KindAny:
		p := &encode.Plan{Kind: shape.KindAny}
		b.writerMemo.Store(key, p)
		return p, nil
	case shape.KindList:
		elemPlan, err := b.buildWriter(s.Elem)
		if err != nil {
			return nil, err
		}
		p := &encode.Plan{Kind: shape.KindList, Elem: elemPlan}
		b.writerMemo.Store(key, p)
		return p, nil
	case shape.KindMap:
		elemPlan, err := b.buildWriter(s.Elem)
		if err != nil {
			return nil, err
		}
		p := &encode.Plan{Kind: shape.KindMap, Elem: elemPlan, KeyKind: s.MapKey.Scalar}
		b.writerMemo.Store(key, p)
		return p, nil
	case shape.KindObject:
		return b.buildObjectWriter(s, key)
	default:
		return nil, decode.NewError(decode.PlanBuildFailure, 0, "", "unknown shape kind in BuildWriter")
	}
}

func (b *Builder) buildObjectWriter(s *shape.Shape, key string) (*encode.Plan, error) {
	placeholder := &encode.Plan{Kind: shape.KindObject, EmitNullForAbsent: b.Config.EmitNullForAbsent}
	actual, loaded := b.writerMemo.LoadOrStore(key, placeholder)
	if loaded {
		return actual.(*encode.Plan), nil
	}

	fields := make([]encode.PlanField, len(s.Fields))
	for i, f := range s.Fields {
		childPlan, err := b.buildWriter(f.Shape)
		if err != nil {
			return nil, err
		}
		fields[i] = encode.PlanField{
			KeyLiteral: encode.EscapeKeyLiteral(f.Name),
			Plan:       childPlan,
			Get:        f.Get,
			Optional:   f.Optional,
		}
	}
	placeholder.Fields = fields
	return placeholder, nil
}
