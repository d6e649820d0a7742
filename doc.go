// Package glr loads "$GLR" class files into arena memory for the glr
// bytecode runtime.
//
// A Loader owns three memory ranges, each reserved at its own fixed base so
// that an address tells which subsystem it belongs to:
//
//   - metadata: constant pools, class, field and method records
//   - symbols: the slot array of the global class-name table
//   - code: bytecode, mapped executable
//
// Ranges are reserved up front and committed page by page as classes arrive.
// Nothing is freed individually; Close unmaps everything at once.
//
// # Quick Start
//
//	loader, err := glr.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer loader.Close()
//
//	class, err := loader.LoadClass(data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	point, ok := loader.Find("Point")
//	main, ok := point.File().Method("main")
//	entry := main.Entry() // absolute address of the method's first instruction
//
// # Concurrency
//
// A Loader performs no locking. Callers that load from several goroutines must
// serialize access; the classpath package does this for its users.
//
// # Errors
//
// Decode failures are returned as *classfile.DecodeError and match the Err*
// sentinels re-exported here via errors.Is. Exhausted arenas or tables yield
// ErrOutOfMemory. Loading a name twice yields ErrDuplicateClass.
package glr
