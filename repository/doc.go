// Package repository implements the data-access engine's core: CRUD with
// optimistic concurrency control, soft deletes, transactional scopes, audit
// and monitoring hooks, and a pagination/streaming layer composed on top.
//
// # Composition
//
// The engine is assembled, not inherited. Base talks to a store.Store;
// decorators and wrappers take the Repository interface, so layers stack in
// any order that type-checks:
//
//	st := bunstore.New[*Card](db)
//	repo := repository.New[*Card](st,
//		repository.WithTxRunner(bunstore.NewTxRunner(db)),
//		repository.WithAuditHook(auditor),
//	)
//	cards := repository.NewPaginated[*Card](repo)
//
// # Optimistic concurrency
//
// Every record carries a version, starting at 0 on create. Update and
// Delete persist conditioned on the version the caller read still being the
// stored version, and stamp version+1 when they win. A lost race returns
// VersionConflictError and changes nothing; the engine never retries on its
// own, because callers like a balance ledger must re-read and re-derive
// their values before trying again:
//
//	card, err := cards.GetByID(ctx, id)
//	card.SpendingLimit = 500
//	card, err = cards.Update(ctx, card)
//	if errors.Is(err, repository.ErrVersionConflict) {
//		// re-read, reapply, call Update again
//	}
//
// # Transactions
//
// InTransaction opens a scope, commits on nil and rolls back on error,
// returning the original error. The scope travels in the context, so every
// repository operation called with that context joins it, and nested
// InTransaction calls reuse the outer scope rather than opening a new one.
//
// # Errors
//
// Callers only ever see NotFoundError, VersionConflictError, ValidationError
// or StoreError. Driver errors are wrapped before they cross the boundary;
// match with errors.Is against the package sentinels or errors.As for the
// structured fields.
//
// # Streaming
//
// Paginated adds cursor pages (CursorList, Connection), legacy offset pages
// (OffsetList) and lazy traversal. FindStream yields one page of rows per
// pull and fetches nothing ahead of the consumer:
//
//	for batch, err := range cards.FindStream(ctx, pagination.PageRequest{Limit: 100}) {
//		if err != nil {
//			return err
//		}
//		process(batch)
//	}
//
// FindAllPaginated drains a stream with a max-records safety valve, and
// ProcessBatch runs a processor over every batch, sequentially or with
// bounded parallelism.
package repository
