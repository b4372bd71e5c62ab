// Package manager tracks submitted tasks by ID on top of the futures
// engine, adding idempotent submission, retry with exponential backoff,
// and lifecycle inspection.
//
// Each submission creates a record with a generated UUID and runs the
// computation through an Executor. Submissions carrying the same
// idempotency key collapse onto one record, so retried client calls do
// not schedule duplicate work:
//
//	m := manager.New(pool)
//	id, err := m.Submit(manager.Spec{
//		IdempotencyKey: "invoice-42",
//		MaxAttempts:    3,
//	}, func(token *cancellation.Token) (any, error) {
//		return sendInvoice(token, 42)
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	value, err := m.Result(ctx, id)
//
// Failed attempts are retried with exponential backoff while the error
// is retryable, up to the spec's attempt budget. The final failure is
// wrapped as a structured error carrying the task's ID.
//
// Cancel requests cooperative cancellation of one task; CancelAll
// cancels everything. Close stops intake and waits for outstanding
// tasks to settle:
//
//	m.CancelAll()
//	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
//	defer cancel()
//	if err := m.Close(ctx); err != nil {
//		log.Printf("shutdown: %v", err)
//	}
package manager
