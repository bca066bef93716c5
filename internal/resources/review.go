package resources

import (
	"ShelfAPI/internal/logger"
	"ShelfAPI/internal/model"
	"ShelfAPI/internal/store"
	"ShelfAPI/internal/uow"
	"ShelfAPI/internal/view"
	"context"
	"errors"
	"fmt"
)

const (
	userResource = "user"
	bookResource = "book"
)

// reviewHooks keeps the denormalized counters in step with reviews:
// users.reviews_count is recounted inside the mutation, the book's rating
// stats are recomputed once per book after the commit.
type reviewHooks struct {
	ownedHooks
	set *Set
}

func (h reviewHooks) OnAfterCreate(ctx context.Context, call *view.Call, created model.Record) error {
	return h.refresh(ctx, call, created)
}

func (h reviewHooks) OnAfterUpdate(ctx context.Context, call *view.Call, before, after model.Record) error {
	if err := h.refresh(ctx, call, after); err != nil {
		return err
	}
	if prev, ok := intValue(call.Resource, "book_id", before); ok {
		h.scheduleRating(call, prev)
	}
	return nil
}

func (h reviewHooks) OnAfterDestroy(ctx context.Context, call *view.Call, removed model.Record) error {
	return h.refresh(ctx, call, removed)
}

func (h reviewHooks) refresh(ctx context.Context, call *view.Call, rec model.Record) error {
	users := h.set.View(userResource)
	userID, ok := intValue(call.Resource, h.field, rec)
	if !ok {
		return fmt.Errorf("review without %s", h.field)
	}
	n, err := call.Tx.Count(ctx, call.Resource, eq(h.field, userID))
	if err != nil {
		return err
	}
	_, err = call.Tx.Update(ctx, users.Resource(), userID, model.Record{"reviews_count": int64(n)})
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: user %d does not exist", store.ErrInvalid, userID)
	}
	if err != nil {
		return err
	}
	users.InvalidateAfterCommit(call.Unit, userID)

	if bookID, ok := intValue(call.Resource, "book_id", rec); ok {
		h.scheduleRating(call, bookID)
	}
	return nil
}

// scheduleRating queues one recompute per book for the unit, however many
// of its reviews the request touched.
func (h reviewHooks) scheduleRating(call *view.Call, bookID int64) {
	reviews := call.Resource
	call.Unit.AfterCommit(fmt.Sprintf("book_rating:%d", bookID), func(ctx context.Context) error {
		return h.recomputeRating(ctx, reviews, bookID)
	})
}

func (h reviewHooks) recomputeRating(ctx context.Context, reviews *model.Resource, bookID int64) error {
	books := h.set.View(bookResource)
	return uow.Do(ctx, h.set.store, func(tx store.Tx, u *uow.Unit) error {
		rows, err := tx.Select(ctx, reviews, model.ListQuery{Criteria: eq("book_id", bookID)})
		if err != nil {
			return err
		}
		var sum float64
		for _, row := range rows {
			if r, ok := intValue(reviews, "rating", row); ok {
				sum += float64(r)
			}
		}
		avg := 0.0
		if len(rows) > 0 {
			avg = sum / float64(len(rows))
		}

		_, err = tx.Update(ctx, books.Resource(), bookID, model.Record{
			"average_rating": avg,
			"total_reviews":  int64(len(rows)),
		})
		if errors.Is(err, store.ErrNotFound) {
			logger.Warn("rating_book_missing", map[string]any{"book_id": bookID})
			return nil
		}
		if err != nil {
			return err
		}
		books.InvalidateAfterCommit(u, bookID)
		logger.Debug("rating_recomputed", map[string]any{
			"book_id":        bookID,
			"average_rating": avg,
			"total_reviews":  len(rows),
		})
		return nil
	})
}

func eq(field string, value any) model.Criteria {
	return model.Criteria{Filters: []model.Predicate{{Field: field, Value: value}}}
}
