// Package logging provides structured logging for ssbatch runs.
//
// It wraps Go's log/slog with a JSON handler. Every batch run carries a run
// ID, and every pair-level line carries the clone and pool, so a single log
// file from a parallel run can be untangled after the fact with
// [FilterEntries] or the `ssbatch logs` command.
//
// # Thread Safety
//
// [Logger] and [RotatingWriter] are safe for concurrent use. Child loggers
// created via the With* methods share the parent's writer.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger("/var/log/ssbatch", "INFO", logging.DefaultRotationConfig())
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	runLog := logger.WithRun(runID)
//	pairLog := runLog.WithPair("cloneA", "pool1")
//	pairLog.Info("pair finished", "status", "success", "duration_ms", 1520)
//
// # Rotation
//
// When a log directory is configured the file rotates at MaxSizeMB into
// ssbatch.log.1 .. ssbatch.log.N, optionally gzip-compressed.
package logging
