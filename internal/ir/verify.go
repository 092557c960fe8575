package ir

import "fmt"

// ====== Structural Validation ======

// Verify checks the structural rules of a module: every block is
// non-empty and ends in a terminator, block names are unique within a
// function and every jump target names a block of the same function.
// It returns one error per violation, in function and block order.
func Verify(module *Module) []error {
	if module == nil {
		return []error{fmt.Errorf("cannot verify nil module")}
	}

	var errs []error
	for _, fn := range module.Functions {
		errs = append(errs, verifyFunction(fn)...)
	}
	return errs
}

// verifyFunction validates a single function
func verifyFunction(fn *Function) []error {
	var errs []error

	if len(fn.Blocks) == 0 {
		return append(errs, fmt.Errorf("function %s: no basic blocks", fn.Name))
	}

	names := make(map[string]bool, len(fn.Blocks))
	for _, bb := range fn.Blocks {
		if names[bb.Name] {
			errs = append(errs, fmt.Errorf("function %s: duplicate block %s", fn.Name, bb.Name))
		}
		names[bb.Name] = true
	}

	for _, bb := range fn.Blocks {
		errs = append(errs, verifyBlock(fn.Name, bb, names)...)
	}
	return errs
}

// verifyBlock validates a basic block against the function's block names
func verifyBlock(fnName string, bb *BasicBlock, names map[string]bool) []error {
	var errs []error

	if len(bb.Instructions) == 0 {
		return append(errs, fmt.Errorf("function %s: block %s is empty", fnName, bb.Name))
	}
	if !bb.IsTerminated() {
		errs = append(errs, fmt.Errorf("function %s: block %s does not end in a terminator", fnName, bb.Name))
	}

	for _, in := range bb.Instructions {
		for _, target := range in.Targets() {
			if !names[target] {
				errs = append(errs, fmt.Errorf("function %s: block %s jumps to unknown block %s",
					fnName, bb.Name, target))
			}
		}
	}
	return errs
}
