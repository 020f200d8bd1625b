package pages

import (
	"context"
	"slices"

	"github.com/rotisserie/eris"
)

// MaxDeleteBatch caps the ids bound into a single delete statement. SQLite rejects statements
// with more than 999 host parameters on older builds.
const MaxDeleteBatch = 999

// Reconcile makes the store behind tx hold exactly the incoming pages.
//
// Every incoming page is first offered as an update keyed by (name, platform). A match means
// the page survives, so its id is struck from the set of existing ids; a miss means it is new
// and gets inserted. Whatever is left in the existing set afterwards is no longer published
// and is deleted in batches of at most MaxDeleteBatch ids.
func Reconcile(ctx context.Context, tx SyncTx, incoming []Page) (SyncResult, error) {
	var result SyncResult

	if tx == nil {
		return result, eris.New("sync transaction is required")
	}

	ids, err := tx.PageIDs(ctx)
	if err != nil {
		return result, eris.Wrap(err, "loading existing page ids")
	}

	existing := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		existing[id] = struct{}{}
	}

	for _, page := range incoming {
		if err := ctx.Err(); err != nil {
			return result, eris.Wrap(err, "sync cancelled")
		}

		id, ok, err := tx.UpdatePage(ctx, page)
		if err != nil {
			return result, eris.Wrapf(err, "updating page %s/%s", page.Platform, page.Name)
		}
		if ok {
			delete(existing, id)
			result.Updated++
			continue
		}

		if _, err := tx.InsertPage(ctx, page); err != nil {
			return result, eris.Wrapf(err, "inserting page %s/%s", page.Platform, page.Name)
		}
		result.Inserted++
	}

	stale := make([]int64, 0, len(existing))
	for id := range existing {
		stale = append(stale, id)
	}
	slices.Sort(stale)

	for _, batch := range chunkIDs(stale, MaxDeleteBatch) {
		if err := tx.DeletePages(ctx, batch); err != nil {
			return result, eris.Wrapf(err, "deleting %d stale pages", len(batch))
		}
		result.Deleted += len(batch)
	}

	return result, nil
}

func chunkIDs(ids []int64, size int) [][]int64 {
	if len(ids) == 0 || size <= 0 {
		return nil
	}

	batches := make([][]int64, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		batches = append(batches, ids[start:end])
	}
	return batches
}
