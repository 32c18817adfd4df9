// Package availability works out which tables are free for a requested slot
// and, when no single free table seats the party, which combinations would.
package availability

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/model"
	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/utils"
)

// TableLister is the part of the table store the engine reads.
type TableLister interface {
	ListTables(ctx context.Context, activeOnly bool) ([]model.Table, error)
}

// ReservationLister is the part of the booking store the engine reads.
type ReservationLister interface {
	ListReservationsForDate(ctx context.Context, date string) ([]model.Reservation, error)
}

// HoldLister returns the live holds on a slot.
type HoldLister interface {
	ListHoldsForSlot(ctx context.Context, date, clock string) []model.Hold
}

// Engine computes availability.  Dwell is how long a party is assumed to
// occupy its tables; Location is the restaurant's time zone.
type Engine struct {
	Tables       TableLister
	Reservations ReservationLister
	Holds        HoldLister
	Dwell        time.Duration
	Location     *time.Location
	Log          *zap.Logger
}

// GetAvailability returns the free tables for date/clock and, if none of
// them alone seats partySize, suggested combinations.  partySize must be
// positive; callers validate it.
func (e *Engine) GetAvailability(ctx context.Context, date, clock string, partySize int) (*model.AvailabilityResult, error) {
	start, end, err := utils.Window(date, clock, e.Dwell, e.Location)
	if err != nil {
		return nil, err
	}

	var (
		tables       []model.Table
		reservations []model.Reservation
		holds        []model.Hold
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tables, err = e.Tables.ListTables(gctx, true)
		return err
	})
	// A late sitting on the previous day can run past midnight into this slot.
	var earlier []model.Reservation
	prevDate := start.AddDate(0, 0, -1).Format(utils.DateLayout)
	g.Go(func() error {
		var err error
		reservations, err = e.Reservations.ListReservationsForDate(gctx, date)
		return err
	})
	g.Go(func() error {
		var err error
		earlier, err = e.Reservations.ListReservationsForDate(gctx, prevDate)
		return err
	})
	g.Go(func() error {
		holds = e.Holds.ListHoldsForSlot(gctx, date, clock)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	reserved := make(map[string]struct{})
	for _, r := range append(reservations, earlier...) {
		if !r.Occupies() {
			continue
		}
		rStart, rEnd, err := utils.Window(r.Date, r.Time, e.Dwell, e.Location)
		if err != nil {
			utils.OrNop(e.Log).Warn("skipping reservation with unparsable slot",
				zap.Uint64("reservation_id", r.ID), zap.Error(err))
			continue
		}
		if utils.Overlaps(start, end, rStart, rEnd) {
			for _, id := range r.TableIDs {
				reserved[id] = struct{}{}
			}
		}
	}
	held := make(map[string]struct{})
	for _, h := range holds {
		for _, id := range h.TableIDs {
			held[id] = struct{}{}
		}
	}

	res := &model.AvailabilityResult{
		Date:              date,
		Time:              clock,
		PartySize:         partySize,
		AvailableTableIDs: []string{},
		HeldTableIDs:      keys(held),
		ReservedTableIDs:  keys(reserved),
		Combos:            [][]string{},
	}
	free := make([]model.Table, 0, len(tables))
	largest := 0
	for _, t := range tables {
		if _, ok := reserved[t.ID]; ok {
			continue
		}
		if _, ok := held[t.ID]; ok {
			continue
		}
		free = append(free, t)
		res.AvailableTableIDs = append(res.AvailableTableIDs, t.ID)
		if t.Capacity > largest {
			largest = t.Capacity
		}
	}
	if largest < partySize {
		res.Combos = SuggestCombos(free, partySize)
	}
	return res, nil
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
