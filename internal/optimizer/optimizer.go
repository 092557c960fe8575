// Package optimizer implements the IR optimization passes run between IR
// generation and code generation.
package optimizer

import (
	"github.com/ZMcc18/minicompiler/internal/cli"
	"github.com/ZMcc18/minicompiler/internal/ir"
)

// Stats counts the rewrites made by the last Optimize call.
type Stats struct {
	Folded             int
	BlocksRemoved      int
	InstructionsPruned int
	Eliminated         int
}

// Optimizer rewrites a module in place according to its level:
// level 0 leaves the module alone, level 1 folds constants and removes
// dead code, level 2 adds common subexpression elimination.
type Optimizer struct {
	level  int
	logger *cli.Logger
	stats  Stats
}

// New creates an optimizer. Levels outside 0..2 are clamped; logger may be nil.
func New(level int, logger *cli.Logger) *Optimizer {
	if level < 0 {
		level = 0
	} else if level > 2 {
		level = 2
	}
	return &Optimizer{level: level, logger: logger}
}

// Level returns the effective optimization level.
func (o *Optimizer) Level() int { return o.level }

// Stats returns the counters of the last Optimize call.
func (o *Optimizer) Stats() Stats { return o.stats }

// Optimize runs the passes enabled by the level and returns module.
func (o *Optimizer) Optimize(module *ir.Module) *ir.Module {
	o.stats = Stats{}
	if o.level <= 0 || module == nil {
		return module
	}

	o.logger.Info("Performing constant folding...")
	for _, fn := range module.Functions {
		o.constantFolding(fn)
	}

	o.logger.Info("Performing dead code elimination...")
	for _, fn := range module.Functions {
		o.deadCodeElimination(fn)
	}

	if o.level >= 2 {
		o.logger.Info("Performing common subexpression elimination...")
		for _, fn := range module.Functions {
			o.commonSubexpressionElimination(fn)
		}

		o.logger.Info("Performing loop invariant code motion...")
		o.logger.Debug("loop invariant code motion is not implemented, skipping")

		o.logger.Info("Performing function inlining...")
		o.logger.Debug("function inlining is not implemented, skipping")
	}

	o.logger.Debug("optimizer: folded %d, removed %d blocks, pruned %d instructions, eliminated %d",
		o.stats.Folded, o.stats.BlocksRemoved, o.stats.InstructionsPruned, o.stats.Eliminated)
	return module
}

// ====== Constant Folding ======

// constantFolding evaluates integer operations over two constants and
// replaces every use of the result with the folded constant. Folding
// repeats until nothing changes so chains collapse completely.
func (o *Optimizer) constantFolding(fn *ir.Function) {
	for {
		constants := make(map[string]ir.Value)

		for _, bb := range fn.Blocks {
			kept := bb.Instructions[:0]
			for _, in := range bb.Instructions {
				if in.Result != nil {
					if v, ok := foldConstantBinOp(in); ok {
						constants[in.Result.Name] = v
						o.stats.Folded++
						continue
					}
				}
				kept = append(kept, in)
			}
			bb.Instructions = kept
		}

		if len(constants) == 0 {
			return
		}
		replaceUses(fn, constants)
	}
}

// foldConstantBinOp attempts to fold a binary operation over int constants
func foldConstantBinOp(in *ir.Instruction) (ir.Value, bool) {
	if len(in.Operands) != 2 {
		return nil, false
	}
	lhs, lok := in.Operands[0].(ir.IntConst)
	rhs, rok := in.Operands[1].(ir.IntConst)
	if !lok || !rok {
		return nil, false
	}

	a, b := lhs.Value, rhs.Value
	var result int64
	switch in.Op {
	case ir.OpAdd:
		result = a + b
	case ir.OpSub:
		result = a - b
	case ir.OpMul:
		result = a * b
	case ir.OpDiv:
		if b == 0 {
			return nil, false // Division by zero
		}
		result = a / b
	case ir.OpMod:
		if b == 0 {
			return nil, false
		}
		result = a % b
	case ir.OpCmpEQ:
		result = boolToInt(a == b)
	case ir.OpCmpNE:
		result = boolToInt(a != b)
	case ir.OpCmpLT:
		result = boolToInt(a < b)
	case ir.OpCmpLE:
		result = boolToInt(a <= b)
	case ir.OpCmpGT:
		result = boolToInt(a > b)
	case ir.OpCmpGE:
		result = boolToInt(a >= b)
	default:
		return nil, false
	}

	// Keep results in the i32 range the IR models.
	return ir.IntConst{Value: int64(int32(result))}, true
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// replaceUses rewrites every operand naming a key of values
func replaceUses(fn *ir.Function, values map[string]ir.Value) {
	for _, bb := range fn.Blocks {
		for _, in := range bb.Instructions {
			for i, op := range in.Operands {
				id, ok := op.(*ir.Identifier)
				if !ok {
					continue
				}
				if v, found := values[id.Name]; found {
					in.Operands[i] = v
				}
			}
		}
	}
}

// ====== Dead Code Elimination ======

// deadCodeElimination drops instructions after a block's first terminator
// and removes blocks unreachable from the entry block
func (o *Optimizer) deadCodeElimination(fn *ir.Function) {
	for _, bb := range fn.Blocks {
		for i, in := range bb.Instructions {
			if ir.IsTerminator(in.Op) {
				o.stats.InstructionsPruned += len(bb.Instructions) - i - 1
				bb.Instructions = bb.Instructions[:i+1]
				break
			}
		}
	}

	reachable := make(map[string]bool)
	if entry := fn.Entry(); entry != nil {
		markReachableBlocks(fn, entry, reachable)
	}

	filtered := make([]*ir.BasicBlock, 0, len(fn.Blocks))
	for _, bb := range fn.Blocks {
		if reachable[bb.Name] {
			filtered = append(filtered, bb)
		}
	}
	o.stats.BlocksRemoved += len(fn.Blocks) - len(filtered)
	fn.Blocks = filtered
}

// markReachableBlocks marks all blocks reachable from the given block
func markReachableBlocks(fn *ir.Function, bb *ir.BasicBlock, reachable map[string]bool) {
	if reachable[bb.Name] {
		return // Already visited
	}
	reachable[bb.Name] = true

	for _, name := range bb.Successors() {
		if succ := fn.Block(name); succ != nil {
			markReachableBlocks(fn, succ, reachable)
		}
	}
}

// ====== Common Subexpression Elimination ======

// commonSubexpressionElimination reuses the result of an earlier pure
// instruction with the same opcode and operands in the same block
func (o *Optimizer) commonSubexpressionElimination(fn *ir.Function) {
	replaced := make(map[string]ir.Value)

	for _, bb := range fn.Blocks {
		seen := make(map[string]*ir.Identifier)
		kept := bb.Instructions[:0]

		for _, in := range bb.Instructions {
			for i, op := range in.Operands {
				if id, ok := op.(*ir.Identifier); ok {
					if v, found := replaced[id.Name]; found {
						in.Operands[i] = v
					}
				}
			}

			if in.Result != nil && ir.IsPure(in.Op) {
				key := expressionKey(in)
				if prev, found := seen[key]; found {
					replaced[in.Result.Name] = prev
					o.stats.Eliminated++
					continue
				}
				seen[key] = in.Result
			}
			kept = append(kept, in)
		}
		bb.Instructions = kept
	}

	if len(replaced) > 0 {
		replaceUses(fn, replaced)
	}
}

func expressionKey(in *ir.Instruction) string {
	key := in.Op.String()
	for _, op := range in.Operands {
		key += " " + op.String()
	}
	return key
}
