// Package qson is the mapper facade from spec §4.6: a cache of compiled
// parser/writer plans keyed by canonical type signature, plus the
// top-level read/write entry points a host application actually calls.
package qson

import (
	"io"
	"reflect"
	"sync"

	"github.com/kevin0x90/qson/decode"
	"github.com/kevin0x90/qson/encode"
	"github.com/kevin0x90/qson/plan"
	"github.com/kevin0x90/qson/shape"
)

// Config is the plan-build/runtime configuration from spec §6, with the
// documented defaults.
type Config struct {
	// EmitNullForAbsent controls whether an absent Optional object field
	// writes `null` or is omitted entirely. Default true.
	EmitNullForAbsent bool
	// InitialOutputCapacity seeds Marshal's growable output buffer.
	// Default 1024.
	InitialOutputCapacity int
	// StreamChunkSize is the read chunk size UnmarshalReader uses, and the
	// internal buffer size MarshalWriter's BufferedStream uses. Default 4096.
	StreamChunkSize int
	// StrictTrailing rejects any non-whitespace byte following a complete
	// one-shot Unmarshal value. Default true.
	StrictTrailing bool
	// MaxDepth bounds parser nesting depth. Default decode.DefaultMaxDepth.
	MaxDepth int
	// RejectUnknownFields fails decoding on an object key naming no known
	// field, instead of discarding it. Default false.
	RejectUnknownFields bool
	// StrictDuplicateFields fails decoding on a repeated object key or map
	// key, instead of last-write-wins. Default false.
	StrictDuplicateFields bool
}

// DefaultConfig matches spec §6's documented defaults.
func DefaultConfig() Config {
	return Config{
		EmitNullForAbsent:     true,
		InitialOutputCapacity: encode.DefaultInitialCapacity,
		StreamChunkSize:       encode.DefaultStreamBufferSize,
		StrictTrailing:        true,
		MaxDepth:              decode.DefaultMaxDepth,
	}
}

func (c Config) decodeOptions() decode.Options {
	opts := decode.NewOptions()
	if c.MaxDepth > 0 {
		opts.MaxDepth = c.MaxDepth
	}
	opts.RejectUnknownFields = c.RejectUnknownFields
	opts.StrictDuplicateFields = c.StrictDuplicateFields
	return opts
}

func (c Config) planConfig() plan.Config {
	return plan.Config{EmitNullForAbsent: c.EmitNullForAbsent}
}

// Mapper maintains the two plan caches (parser plans, writer plans) from
// spec §4.6 and serves as the entry point for reading and writing JSON.
// Safe for concurrent use: at most one plan is built per canonical type
// key, even under concurrent requests for that key. A cache miss takes
// that cache's build lock and re-checks the cache before building, so
// builds within one cache run one at a time; readers after cache-fill
// never block (§5 "Shared state").
type Mapper struct {
	Config Config

	builder *plan.Builder

	parserCache sync.Map // shape key (string) -> decode.State
	writerCache sync.Map // shape key (string) -> *encode.Plan

	parserMu sync.Mutex // serializes parser builds on a cache miss
	writerMu sync.Mutex // serializes writer builds on a cache miss
}

// NewMapper creates a Mapper for dependency-injected use (§9 "explicit
// dependency-injected mapper instances where possible").
func NewMapper(cfg Config) *Mapper {
	return &Mapper{
		Config:  cfg,
		builder: plan.NewBuilder(cfg.planConfig()),
	}
}

// ParserFor returns the parser state tree for s, building it (and caching
// it) on first request. At most one build happens per key even under
// concurrent calls.
func (m *Mapper) ParserFor(s *shape.Shape) (decode.State, error) {
	key := s.Key()
	if v, ok := m.parserCache.Load(key); ok {
		return v.(decode.State), nil
	}
	m.parserMu.Lock()
	defer m.parserMu.Unlock()
	if v, ok := m.parserCache.Load(key); ok {
		return v.(decode.State), nil
	}
	st, err := m.builder.BuildParser(s)
	if err != nil {
		return nil, err
	}
	actual, _ := m.parserCache.LoadOrStore(key, st)
	return actual.(decode.State), nil
}

// WriterFor returns the writer emission plan for s, building it (and
// caching it) on first request.
func (m *Mapper) WriterFor(s *shape.Shape) (*encode.Plan, error) {
	key := s.Key()
	if v, ok := m.writerCache.Load(key); ok {
		return v.(*encode.Plan), nil
	}
	m.writerMu.Lock()
	defer m.writerMu.Unlock()
	if v, ok := m.writerCache.Load(key); ok {
		return v.(*encode.Plan), nil
	}
	p, err := m.builder.BuildWriter(s)
	if err != nil {
		return nil, err
	}
	actual, _ := m.writerCache.LoadOrStore(key, p)
	return actual.(*encode.Plan), nil
}

// GetParser looks up an already-built parser plan without building one,
// returning ok=false on a cache miss (§4.6's lookup-only surface for hosts
// that pre-warm plans at startup).
func (m *Mapper) GetParser(s *shape.Shape) (decode.State, bool) {
	v, ok := m.parserCache.Load(s.Key())
	if !ok {
		return nil, false
	}
	return v.(decode.State), true
}

// GetWriter looks up an already-built writer plan without building one.
func (m *Mapper) GetWriter(s *shape.Shape) (*encode.Plan, bool) {
	v, ok := m.writerCache.Load(s.Key())
	if !ok {
		return nil, false
	}
	return v.(*encode.Plan), true
}

// shapeOfTarget derives the Shape for the element type target points to (target
// must be a non-nil pointer).
func shapeOfTarget(target any) (*shape.Shape, reflect.Value, error) {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return nil, reflect.Value{}, decode.NewError(decode.PlanBuildFailure, 0, "", "Unmarshal target must be a non-nil pointer")
	}
	elem := rv.Elem()
	s, err := shape.Reflect(elem.Type())
	if err != nil {
		return nil, reflect.Value{}, err
	}
	return s, elem, nil
}

// Unmarshal decodes data into target (a pointer to the destination value)
// in one shot.
func (m *Mapper) Unmarshal(data []byte, target any) error {
	s, elem, err := shapeOfTarget(target)
	if err != nil {
		return err
	}
	root, err := m.ParserFor(s)
	if err != nil {
		return err
	}
	ctx := decode.NewContext(root, m.Config.decodeOptions())
	if err := ctx.Feed(data); err != nil {
		return err
	}
	if ctx.Done() && m.Config.StrictTrailing {
		if err := rejectTrailingGarbage(ctx); err != nil {
			return err
		}
	}
	result, err := ctx.Finish()
	if err != nil {
		return err
	}
	elem.Set(result)
	return nil
}

// rejectTrailingGarbage fails if any non-whitespace byte follows a
// complete one-shot value in the same chunk, per §6's strict_trailing
// option and §4.3's "AcceptableTrailingWhitespace-or-Fail" rule.
func rejectTrailingGarbage(ctx *decode.Context) error {
	for _, b := range ctx.Remaining() {
		if b != ' ' && b != '\t' && b != '\n' && b != '\r' {
			return decode.NewError(decode.UnexpectedToken, ctx.Offset(), "", "trailing data after value")
		}
	}
	return nil
}

// UnmarshalString decodes s into target in one shot.
func (m *Mapper) UnmarshalString(s string, target any) error {
	return m.Unmarshal([]byte(s), target)
}

// UnmarshalReader decodes a value read from r in StreamChunkSize chunks,
// per §4.3's finish(stream) and §4.6's streaming convenience surface.
func (m *Mapper) UnmarshalReader(r io.Reader, target any) error {
	s, elem, err := shapeOfTarget(target)
	if err != nil {
		return err
	}
	root, err := m.ParserFor(s)
	if err != nil {
		return err
	}
	chunkSize := m.Config.StreamChunkSize
	if chunkSize <= 0 {
		chunkSize = encode.DefaultStreamBufferSize
	}
	ctx := decode.NewContext(root, m.Config.decodeOptions())
	buf := make([]byte, chunkSize)
	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			if err := ctx.Feed(buf[:n]); err != nil {
				return err
			}
			if ctx.Done() {
				break
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return readErr
		}
	}
	result, err := ctx.Finish()
	if err != nil {
		return err
	}
	elem.Set(result)
	return nil
}

// Marshal encodes value to a freshly allocated byte slice.
func (m *Mapper) Marshal(value any) ([]byte, error) {
	s, err := shape.Reflect(reflect.TypeOf(value))
	if err != nil {
		return nil, err
	}
	p, err := m.WriterFor(s)
	if err != nil {
		return nil, err
	}
	capacity := m.Config.InitialOutputCapacity
	if capacity <= 0 {
		capacity = encode.DefaultInitialCapacity
	}
	sink := encode.NewGrowableBuffer(capacity)
	if err := p.Execute(sink, reflect.ValueOf(value)); err != nil {
		return nil, err
	}
	return sink.Bytes(), nil
}

// MarshalString encodes value to a string (one copy over Marshal's bytes).
func (m *Mapper) MarshalString(value any) (string, error) {
	b, err := m.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// MarshalWriter encodes value directly to w, buffered in StreamChunkSize
// chunks, flushing at the end.
func (m *Mapper) MarshalWriter(w io.Writer, value any) error {
	s, err := shape.Reflect(reflect.TypeOf(value))
	if err != nil {
		return err
	}
	p, err := m.WriterFor(s)
	if err != nil {
		return err
	}
	chunkSize := m.Config.StreamChunkSize
	if chunkSize <= 0 {
		chunkSize = encode.DefaultStreamBufferSize
	}
	sink := encode.NewBufferedStream(w, chunkSize)
	if err := p.Execute(sink, reflect.ValueOf(value)); err != nil {
		return err
	}
	return sink.Flush()
}

// --- process-wide default mapper (§9: "permit a single optional
// process-wide default mapper with explicit init and teardown") ---

var (
	defaultMapperMu sync.RWMutex
	defaultMapper   = NewMapper(DefaultConfig())
)

// DefaultMapper returns the current process-wide default Mapper.
func DefaultMapper() *Mapper {
	defaultMapperMu.RLock()
	defer defaultMapperMu.RUnlock()
	return defaultMapper
}

// SetDefaultMapper replaces the process-wide default Mapper.
func SetDefaultMapper(m *Mapper) {
	defaultMapperMu.Lock()
	defer defaultMapperMu.Unlock()
	defaultMapper = m
}

// ResetDefaultMapper restores the process-wide default Mapper to a fresh
// Mapper built from DefaultConfig(), discarding its caches.
func ResetDefaultMapper() {
	SetDefaultMapper(NewMapper(DefaultConfig()))
}

// Unmarshal decodes data into target using the default Mapper.
func Unmarshal(data []byte, target any) error { return DefaultMapper().Unmarshal(data, target) }

// UnmarshalString decodes s into target using the default Mapper.
func UnmarshalString(s string, target any) error {
	return DefaultMapper().UnmarshalString(s, target)
}

// UnmarshalReader decodes a value read from r using the default Mapper.
func UnmarshalReader(r io.Reader, target any) error {
	return DefaultMapper().UnmarshalReader(r, target)
}

// Marshal encodes value using the default Mapper.
func Marshal(value any) ([]byte, error) { return DefaultMapper().Marshal(value) }

// MarshalString encodes value to a string using the default Mapper.
func MarshalString(value any) (string, error) { return DefaultMapper().MarshalString(value) }

// MarshalWriter encodes value to w using the default Mapper.
func MarshalWriter(w io.Writer, value any) error { return DefaultMapper().MarshalWriter(w, value) }
