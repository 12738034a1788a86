package engine

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"golang.org/x/sync/errgroup"
)

// Chunks smaller than this are not worth a goroutine.
const minChunkBytes = 64 << 10

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// --- 1. PER-CHUNK COLUMN BUILDER ---

type slot struct {
	kind   Kind
	floats []float64

	// worker-local dictionary, remapped on merge
	dict map[string]int32
	list []string
	ids  []int32
}

type chunkBuilder struct {
	slots []slot
	n     int
	marks []int // dictionary sizes before the row being added
}

func newChunkBuilder(schema Schema) *chunkBuilder {
	cb := &chunkBuilder{slots: make([]slot, len(schema)), marks: make([]int, len(schema))}
	for i, def := range schema {
		cb.slots[i].kind = def.Kind
		if def.Kind == Categorical {
			cb.slots[i].dict = make(map[string]int32)
		}
	}
	return cb
}

// add appends one row given in schema order. On failure it returns the
// index of the offending field.
func (cb *chunkBuilder) add(fields []string) (int, error) {
	for j := range cb.slots {
		cb.marks[j] = len(cb.slots[j].list)
	}
	for j := range cb.slots {
		s := &cb.slots[j]
		field := strings.TrimSpace(fields[j])
		if s.kind == Numeric {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				// Roll back the columns already appended for this row.
				cb.truncate(j)
				return j, ErrNotNumeric
			}
			s.floats = append(s.floats, v)
			continue
		}
		id, ok := s.dict[field]
		if !ok {
			id = int32(len(s.list))
			s.list = append(s.list, field)
			s.dict[field] = id
		}
		s.ids = append(s.ids, id)
	}
	cb.n++
	return 0, nil
}

// truncate drops the partial row in columns [0, upto), including any
// dictionary entries it introduced.
func (cb *chunkBuilder) truncate(upto int) {
	for j := 0; j < upto; j++ {
		s := &cb.slots[j]
		if s.kind == Numeric {
			s.floats = s.floats[:cb.n]
			continue
		}
		s.ids = s.ids[:cb.n]
		for _, v := range s.list[cb.marks[j]:] {
			delete(s.dict, v)
		}
		s.list = s.list[:cb.marks[j]]
	}
}

// merge concatenates chunks in order into a single store. Dictionaries are
// merged so global IDs follow first appearance across the whole dataset.
func merge(schema Schema, chunks []*chunkBuilder, mem memory.Allocator) *ColumnStore {
	total := 0
	for _, c := range chunks {
		total += c.n
	}
	store := &ColumnStore{
		schema:      schema,
		rows:        total,
		numeric:     make(map[string]*array.Float64),
		categorical: make(map[string]*CategoricalColumn),
	}

	cats := make([]*CategoricalColumn, len(schema))
	var wg sync.WaitGroup
	for j, def := range schema {
		if def.Kind == Numeric {
			b := array.NewFloat64Builder(mem)
			b.Reserve(total)
			for _, c := range chunks {
				b.AppendValues(c.slots[j].floats, nil)
			}
			store.numeric[def.Name] = b.NewFloat64Array()
			b.Release()
			continue
		}

		wg.Add(1)
		go func(j int) {
			defer wg.Done()
			cats[j] = mergeDict(chunks, j, total)
		}(j)
	}
	wg.Wait()

	for j, def := range schema {
		if cats[j] != nil {
			store.categorical[def.Name] = cats[j]
		}
	}
	return store
}

func mergeDict(chunks []*chunkBuilder, j, total int) *CategoricalColumn {
	out := &CategoricalColumn{IDs: make([]int32, total)}
	global := make(map[string]int32)
	offset := 0
	for _, c := range chunks {
		s := &c.slots[j]
		remap := make([]int32, len(s.list))
		for lid, v := range s.list {
			gid, ok := global[v]
			if !ok {
				gid = int32(len(out.Dict))
				out.Dict = append(out.Dict, v)
				global[v] = gid
			}
			remap[lid] = gid
		}
		dest := out.IDs[offset : offset+len(s.ids)]
		for k, id := range s.ids {
			dest[k] = remap[id]
		}
		offset += len(s.ids)
	}
	return out
}

// --- 2. INCREMENTAL BUILDER ---

// Builder assembles a ColumnStore row by row, for sources other than CSV.
type Builder struct {
	schema Schema
	chunk  *chunkBuilder
	mem    memory.Allocator
}

// NewBuilder returns a Builder for the given schema.
func NewBuilder(schema Schema) *Builder {
	return &Builder{
		schema: schema,
		chunk:  newChunkBuilder(schema),
		mem:    memory.NewGoAllocator(),
	}
}

// Append adds one row with fields in schema order.
func (b *Builder) Append(fields []string) error {
	if len(fields) != len(b.schema) {
		return &LoadError{Line: b.chunk.n + 1, Err: errors.New("wrong number of fields")}
	}
	if j, err := b.chunk.add(fields); err != nil {
		return &LoadError{Line: b.chunk.n + 1, Column: b.schema[j].Name, Value: fields[j], Err: err}
	}
	return nil
}

// Build returns the store. The Builder must not be used afterwards.
func (b *Builder) Build() *ColumnStore {
	return merge(b.schema, []*chunkBuilder{b.chunk}, b.mem)
}

// --- 3. PARALLEL CSV LOADER ---

// LoadCSV reads a comma-separated file with a header row into a store.
// Every schema column must appear in the header; other columns are ignored.
// Records may not span lines.
func LoadCSV(ctx context.Context, path string, schema Schema) (*ColumnStore, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return parseCSV(ctx, path, content, schema)
}

// ParseCSV is LoadCSV over in-memory content.
func ParseCSV(ctx context.Context, content []byte, schema Schema) (*ColumnStore, error) {
	return parseCSV(ctx, "", content, schema)
}

func parseCSV(ctx context.Context, path string, content []byte, schema Schema) (*ColumnStore, error) {
	content = bytes.TrimPrefix(content, utf8BOM)

	// A. Header
	headerLine, body := content, []byte(nil)
	if idx := bytes.IndexByte(content, '\n'); idx != -1 {
		headerLine, body = content[:idx], content[idx+1:]
	}
	headerLine = bytes.TrimRight(headerLine, "\r")
	if len(bytes.TrimSpace(headerLine)) == 0 {
		return nil, &LoadError{Path: path, Line: 1, Err: errors.New("missing header row")}
	}
	header, err := csv.NewReader(bytes.NewReader(headerLine)).Read()
	if err != nil {
		return nil, &LoadError{Path: path, Line: 1, Err: err}
	}
	positions := make(map[string]int, len(header))
	for i, h := range header {
		positions[strings.TrimSpace(h)] = i
	}
	colIndex := make([]int, len(schema))
	for j, def := range schema {
		pos, ok := positions[def.Name]
		if !ok {
			return nil, &LoadError{Path: path, Line: 1, Column: def.Name, Err: ErrMissingColumn}
		}
		colIndex[j] = pos
	}

	// B. Newline-aligned chunks
	numWorkers := runtime.NumCPU()
	if n := len(body) / minChunkBytes; n < numWorkers {
		numWorkers = max(n, 1)
	}
	bounds := splitChunks(body, numWorkers)

	// C. Parallel parse. A bad row stops its own chunk and every later one;
	// the error from the earliest chunk wins so the reported line is stable.
	chunks := make([]*chunkBuilder, numWorkers)
	rowErrs := make([]error, numWorkers)
	var firstBad atomic.Int64
	firstBad.Store(int64(numWorkers))
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < numWorkers; w++ {
		fail := func(err error) error {
			rowErrs[w] = err
			for {
				cur := firstBad.Load()
				if int64(w) >= cur || firstBad.CompareAndSwap(cur, int64(w)) {
					return nil
				}
			}
		}
		g.Go(func() error {
			cb := newChunkBuilder(schema)
			chunks[w] = cb
			start := bounds[w]
			lineBase := func() int { return 1 + bytes.Count(body[:start], []byte{'\n'}) }

			r := csv.NewReader(bytes.NewReader(body[start:bounds[w+1]]))
			r.FieldsPerRecord = len(header)
			r.ReuseRecord = true
			fields := make([]string, len(schema))

			for row := 0; ; row++ {
				if row%4096 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
					if firstBad.Load() < int64(w) {
						return nil
					}
				}
				rec, err := r.Read()
				if err == io.EOF {
					return nil
				}
				if err != nil {
					var pe *csv.ParseError
					if errors.As(err, &pe) {
						return fail(&LoadError{Path: path, Line: lineBase() + pe.Line, Err: pe.Err})
					}
					return fail(&LoadError{Path: path, Err: err})
				}
				for j, pos := range colIndex {
					fields[j] = rec[pos]
				}
				if j, err := cb.add(fields); err != nil {
					line, _ := r.FieldPos(colIndex[j])
					return fail(&LoadError{
						Path:   path,
						Line:   lineBase() + line,
						Column: schema[j].Name,
						Value:  fields[j],
						Err:    err,
					})
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, err := range rowErrs {
		if err != nil {
			return nil, err
		}
	}

	// D. Merge
	return merge(schema, chunks, memory.NewGoAllocator()), nil
}

// splitChunks returns n+1 offsets cutting body into n pieces that each end
// on a newline (the last piece ends at len(body)).
func splitChunks(body []byte, n int) []int {
	bounds := make([]int, n+1)
	for i := 1; i < n; i++ {
		pos := i * len(body) / n
		if pos < bounds[i-1] {
			pos = bounds[i-1]
		}
		if j := bytes.IndexByte(body[pos:], '\n'); j != -1 {
			pos += j + 1
		} else {
			pos = len(body)
		}
		bounds[i] = pos
	}
	bounds[n] = len(body)
	return bounds
}
