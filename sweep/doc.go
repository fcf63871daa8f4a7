// Package sweep expires negotiations whose deadline has passed.
//
// The engine holds no timers of its own. A Sweeper is driven by an external
// scheduler (a ticker in a worker process, a cron job, a queue consumer) and
// each RunOnce call expires every overdue negotiation it finds, using a
// bounded number of goroutines.
package sweep
