package derive

import "context"

// Grouper drives one group's accumulation and emission for GroupedScanner,
// per spec §4.4. Unlike Aggregator it can emit several rows per group.
type Grouper[R any] interface {
	// Begin reseeds the grouper for a new group starting at seed.
	Begin(seed *R) error
	// Accumulate folds row (known to belong to the current group) in.
	Accumulate(row *R) error
	// Step populates target with the group's next output row. It returns
	// false once the group has nothing left to emit.
	Step(ctx context.Context, target *R) (bool, error)
	// Finish is an optional residual filter applied to each row Step
	// produces; returning false skips that row without ending the group.
	Finish(target *R) (bool, error)
	Close() error
}

type groupState int

const (
	stateBeginPending groupState = iota
	stateInGroup
	stateEmitting
	stateDone
)

// GroupedScanner alternates between draining same-group source rows into a
// Grouper and draining the Grouper's own multi-row emission, per spec
// §4.4's BeginPending/InGroup/Emitting/Done state machine.
type GroupedScanner[R any] struct {
	src     Source[R]
	grouper Grouper[R]
	cmp     Comparator[R]

	header  *R
	pending *R // already-fetched row that starts the next group, if any
	scratch *R
	state   groupState
	closed  bool
}

// NewGroupedScanner builds a GroupedScanner over src, grouped by cmp.
func NewGroupedScanner[R any](src Source[R], grouper Grouper[R], cmp Comparator[R]) *GroupedScanner[R] {
	return &GroupedScanner[R]{src: src, grouper: grouper, cmp: cmp}
}

// Init seeds the grouper from the source's current row. The caller must
// have already positioned src before calling this.
func (s *GroupedScanner[R]) Init(ctx context.Context) error {
	row := s.src.Row()
	if row == nil {
		s.state = stateDone
		return s.grouper.Close()
	}
	s.header = cloneRow(row)
	s.scratch = new(R)
	s.state = stateBeginPending
	if err := s.grouper.Begin(s.header); err != nil {
		s.closeAll()
		return err
	}
	s.state = stateInGroup
	return nil
}

// Row has no standalone meaning for GroupedScanner; callers hold onto what
// Step last returned.
func (s *GroupedScanner[R]) Row() *R { return nil }

// Step drains the grouper's pending emissions, advancing through groups as
// each is exhausted, and returns the next output row or nil when done.
func (s *GroupedScanner[R]) Step(ctx context.Context, dest *R) (*R, error) {
	for {
		switch s.state {
		case stateDone:
			return nil, nil

		case stateBeginPending, stateInGroup:
			if err := s.drainGroup(ctx); err != nil {
				s.closeAll()
				return nil, err
			}
			s.state = stateEmitting

		case stateEmitting:
			if dest == nil {
				dest = new(R)
			}
			ok, err := s.grouper.Step(ctx, dest)
			if err != nil {
				s.closeAll()
				return nil, err
			}
			if !ok {
				if s.pending == nil {
					s.state = stateDone
					s.closed = true
					aggErr := s.grouper.Close()
					srcErr := s.src.Close()
					if aggErr != nil {
						return nil, aggErr
					}
					return nil, srcErr
				}
				s.header = s.pending
				s.pending = nil
				if err := s.grouper.Begin(s.header); err != nil {
					s.closeAll()
					return nil, err
				}
				s.state = stateInGroup
				continue
			}
			admit, err := s.grouper.Finish(dest)
			if err != nil {
				s.closeAll()
				return nil, err
			}
			if !admit {
				continue
			}
			return dest, nil
		}
	}
}

// drainGroup feeds the source's remaining same-group rows to the grouper
// until a row belonging to the next group is found (cached in s.pending)
// or the source is exhausted.
func (s *GroupedScanner[R]) drainGroup(ctx context.Context) error {
	for {
		row, err := s.src.Step(ctx, s.scratch)
		if err != nil {
			return err
		}
		if row == nil {
			s.pending = nil
			return nil
		}
		if s.cmp(s.header, row) == 0 {
			if err := s.grouper.Accumulate(row); err != nil {
				return err
			}
			continue
		}
		s.pending = cloneRow(row)
		return nil
	}
}

func (s *GroupedScanner[R]) closeAll() {
	s.state = stateDone
	if s.closed {
		return
	}
	s.closed = true
	_ = s.grouper.Close()
	_ = s.src.Close()
}

// Close releases the source and the grouper. It is idempotent.
func (s *GroupedScanner[R]) Close() error {
	s.state = stateDone
	if s.closed {
		return nil
	}
	s.closed = true
	err1 := s.grouper.Close()
	err2 := s.src.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
