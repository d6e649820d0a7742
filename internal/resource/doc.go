// Package resource enforces the process-wide limits shared by the class
// loader's arenas and the class path.
//
//   - Memory: every page an arena commits is charged here (fail-fast)
//   - Fetch workers: bounds concurrent class-file fetches during preload
//   - IO: token-bucket limit on bytes fetched from class repositories
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes:  512 << 20,
//	    MaxFetchWorkers:   8,
//	    IOLimitBytesPerSec: 64 << 20,
//	})
//
// All methods are safe for concurrent use and are no-ops on a nil Controller.
package resource
