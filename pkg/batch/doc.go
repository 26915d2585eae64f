// Package batch runs one logical batch against the snapshot service.
//
// A batch is attempted up to MaxRetries times. Each attempt is a clean call
// through the request executor; nothing carries over between attempts. After
// a failed attempt the runner classifies the failure and waits before the
// next one:
//
//	cold start (405/502/503 or "cold start")  min(base * 2^(attempt-1), 60s)
//	timeout                                   base * 2
//	anything else                             base
//
// where base is the configured inter-batch delay. When the last attempt fails
// RunBatch returns ErrBatchFailed; the caller records the batch as failed and
// moves on.
package batch
