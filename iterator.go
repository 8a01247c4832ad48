package splitkv

// mergeStream implements OrderedStream[T] as a k-way merge over a fixed
// set of already-ordered source streams (§4.8). It is the iterator
// returned by Table.Keys and Table.Rows.
type mergeStream[T any] struct {
	sources   []OrderedStream[T]
	fronts    []T
	haveFront []bool
	keyOf     func(T) []byte
	cmp       CompareFunc
	ascending bool
}

func newMergeStream[T any](sources []OrderedStream[T], keyOf func(T) []byte, cmp CompareFunc, ascending bool) (*mergeStream[T], error) {
	m := &mergeStream[T]{
		sources:   sources,
		fronts:    make([]T, len(sources)),
		haveFront: make([]bool, len(sources)),
		keyOf:     keyOf,
		cmp:       cmp,
		ascending: ascending,
	}

	for i, s := range sources {
		if err := m.prime(i, s); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *mergeStream[T]) prime(i int, s OrderedStream[T]) error {
	v, ok, err := s.Next()
	if err != nil {
		return err
	}

	m.fronts[i] = v
	m.haveFront[i] = ok

	return nil
}

// Next returns the overall-next element in key order across every source
// stream, per §4.8: ties are broken by source index, deterministically
// favoring the first source that holds the value.
func (m *mergeStream[T]) Next() (value T, ok bool, err error) {
	winner := -1

	for i, has := range m.haveFront {
		if !has {
			continue
		}

		if winner == -1 {
			winner = i
			continue
		}

		c := m.cmp(m.keyOf(m.fronts[i]), m.keyOf(m.fronts[winner]))

		if (m.ascending && c < 0) || (!m.ascending && c > 0) {
			winner = i
		}
	}

	if winner == -1 {
		var zero T
		return zero, false, nil
	}

	value = m.fronts[winner]

	if err := m.prime(winner, m.sources[winner]); err != nil {
		var zero T
		return zero, false, err
	}

	return value, true, nil
}

// Clone returns an independent merge stream, cloning every source stream
// at its current position (§4.8's clonable contract).
func (m *mergeStream[T]) Clone() OrderedStream[T] {
	clone := &mergeStream[T]{
		sources:   make([]OrderedStream[T], len(m.sources)),
		fronts:    append([]T(nil), m.fronts...),
		haveFront: append([]bool(nil), m.haveFront...),
		keyOf:     m.keyOf,
		cmp:       m.cmp,
		ascending: m.ascending,
	}

	for i, s := range m.sources {
		clone.sources[i] = s.Clone()
	}

	return clone
}

func (m *mergeStream[T]) Close() error {
	var merr error

	for _, s := range m.sources {
		if err := s.Close(); err != nil && merr == nil {
			merr = err
		}
	}

	return merr
}

// Keys returns a clonable, ordered stream over every key in the table
// (§4.7/§4.8), merging each partition's own Keys stream.
func (t *Table) Keys(ascending bool, startKey []byte) (stream OrderedStream[[]byte], err error) {
	err = t.withReadLock(func() error {
		stream, err = t.mergedKeys(ascending, startKey)
		return err
	})

	return stream, err
}

func (t *Table) mergedKeys(ascending bool, startKey []byte) (OrderedStream[[]byte], error) {
	snap := t.snapshotPartitions()

	sources := make([]OrderedStream[[]byte], 0, len(snap))

	for _, p := range snap {
		s, err := p.Keys(ascending, startKey)
		if err != nil {
			closeAll(sources)
			return nil, err
		}

		sources = append(sources, s)
	}

	identity := func(k []byte) []byte { return k }

	return newMergeStream(sources, identity, t.cfg.RowDef.CompareKeys, ascending)
}

// Rows returns a clonable, ordered stream over every row in the table
// (§4.7/§4.8), merging each partition's own Rows stream.
func (t *Table) Rows(ascending bool, startKey []byte) (stream OrderedStream[Row], err error) {
	err = t.withReadLock(func() error {
		stream, err = t.mergedRows(ascending, startKey)
		return err
	})

	return stream, err
}

func (t *Table) mergedRows(ascending bool, startKey []byte) (OrderedStream[Row], error) {
	snap := t.snapshotPartitions()

	sources := make([]OrderedStream[Row], 0, len(snap))

	for _, p := range snap {
		s, err := p.Rows(ascending, startKey)
		if err != nil {
			closeAll(sources)
			return nil, err
		}

		sources = append(sources, s)
	}

	def := t.cfg.RowDef
	keyOf := func(r Row) []byte { return r.Key(def) }

	return newMergeStream(sources, keyOf, def.KeyOrder, ascending)
}

func closeAll[T any](streams []OrderedStream[T]) {
	for _, s := range streams {
		_ = s.Close()
	}
}

// StackedRows returns the unordered stacked iterator variant of §4.8: it
// concatenates each partition's Rows(true, nil) stream in registry order
// with no merge step. Callers accept arbitrary ordering. Unlike the
// source design this is grounded on, an I/O error surfaces through the
// stream's Next rather than being swallowed (§9 open question).
func (t *Table) StackedRows() (stream OrderedStream[Row], err error) {
	err = t.withReadLock(func() error {
		snap := t.snapshotPartitions()

		sources := make([]OrderedStream[Row], 0, len(snap))

		for _, p := range snap {
			s, serr := p.Rows(true, nil)
			if serr != nil {
				closeAll(sources)
				return serr
			}

			sources = append(sources, s)
		}

		stream = &stackedStream[Row]{sources: sources}

		return nil
	})

	return stream, err
}

// stackedStream concatenates a fixed set of source streams without
// merging: it drains sources[0] fully, then sources[1], and so on.
type stackedStream[T any] struct {
	sources []OrderedStream[T]
	pos     int
}

func (s *stackedStream[T]) Next() (value T, ok bool, err error) {
	for s.pos < len(s.sources) {
		v, ok, err := s.sources[s.pos].Next()
		if err != nil {
			var zero T
			return zero, false, err
		}

		if ok {
			return v, true, nil
		}

		s.pos++
	}

	var zero T
	return zero, false, nil
}

func (s *stackedStream[T]) Clone() OrderedStream[T] {
	clone := &stackedStream[T]{sources: make([]OrderedStream[T], len(s.sources)), pos: s.pos}
	for i, src := range s.sources {
		clone.sources[i] = src.Clone()
	}

	return clone
}

func (s *stackedStream[T]) Close() error {
	var merr error

	for _, src := range s.sources {
		if err := src.Close(); err != nil && merr == nil {
			merr = err
		}
	}

	return merr
}
