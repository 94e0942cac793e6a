// Copyright 2025 The quicksheet Authors. All rights reserved. Use of
// this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package calc

func registerLogicalFuncs(r *Registry) {
	r.mustRegister(&FunctionDefinition{
		Name:        "AND",
		Category:    "logical",
		Description: map[string]string{"en": "TRUE when every argument is TRUE.", "ja": "すべての引数がTRUEのときTRUEを返します。"},
		Evaluate:    calcAND,
	})
	r.mustRegister(&FunctionDefinition{
		Name:        "OR",
		Category:    "logical",
		Description: map[string]string{"en": "TRUE when any argument is TRUE.", "ja": "いずれかの引数がTRUEのときTRUEを返します。"},
		Evaluate:    calcOR,
	})
	r.mustRegister(&FunctionDefinition{
		Name:        "NOT",
		Category:    "logical",
		Description: map[string]string{"en": "Negates a logical value.", "ja": "論理値を反転します。"},
		Evaluate:    calcNOT,
	})
	r.mustRegister(&FunctionDefinition{
		Name:         "IF",
		Category:     "logical",
		Description:  map[string]string{"en": "Chooses between two branches; only the taken branch is evaluated.", "ja": "条件によって分岐します。選択された側だけが評価されます。"},
		Examples:     []string{`IF(A1>0,"pos","neg")`},
		EvaluateLazy: calcIF,
	})
	r.mustRegister(&FunctionDefinition{
		Name:         "IFS",
		Category:     "logical",
		Description:  map[string]string{"en": "Returns the value of the first TRUE condition.", "ja": "最初にTRUEになった条件の値を返します。"},
		EvaluateLazy: calcIFS,
	})
	r.mustRegister(&FunctionDefinition{
		Name:         "IFERROR",
		Category:     "logical",
		Description:  map[string]string{"en": "Replaces any error with a fallback value.", "ja": "エラーを代替値に置き換えます。"},
		Examples:     []string{`IFERROR(1/0,"x")`},
		EvaluateLazy: calcIFERROR,
	})
	r.mustRegister(&FunctionDefinition{
		Name:         "SWITCH",
		Category:     "logical",
		Description:  map[string]string{"en": "Matches an expression against cases and returns the paired value.", "ja": "式を候補と照合し、対応する値を返します。"},
		EvaluateLazy: calcSWITCH,
	})
}

// calcAND and calcOR are eager: logical coercion of a non-coercible value
// is #VALUE! and errors in arguments propagate through the engine before
// the body runs. Blank cells from ranges are ignored.
func calcAND(ctx *CallContext, args []Value) Value {
	return combineLogical(args, "AND", true)
}

func calcOR(ctx *CallContext, args []Value) Value {
	return combineLogical(args, "OR", false)
}

func combineLogical(args []Value, label string, all bool) Value {
	seen := false
	result := all
	for _, v := range flattenArguments(args) {
		if v.IsEmpty() {
			continue
		}
		b, err := coerceLogical(v, label)
		if err != nil {
			return newErrorValue(err)
		}
		seen = true
		if all {
			result = result && b
		} else {
			result = result || b
		}
	}
	if !seen {
		return newErrorValue(errValue(label + ": no logical values"))
	}
	return newBoolValue(result)
}

func calcNOT(ctx *CallContext, args []Value) Value {
	if len(args) != 1 {
		return newErrorValue(errValue("NOT takes one argument"))
	}
	b, err := coerceLogical(args[0], "NOT")
	if err != nil {
		return newErrorValue(err)
	}
	return newBoolValue(!b)
}

// calcIF evaluates only the selected branch. An omitted false branch
// yields FALSE.
func calcIF(ctx *CallContext, args []Node) Value {
	if len(args) < 2 || len(args) > 3 {
		return newErrorValue(errValue("IF takes two or three arguments"))
	}
	cond := ctx.Evaluate(args[0])
	if err := firstError(cond); err != nil {
		return newErrorValue(err)
	}
	b, err := coerceLogical(cond, "IF condition")
	if err != nil {
		return newErrorValue(err)
	}
	if b {
		return ctx.Evaluate(args[1])
	}
	if len(args) == 3 {
		return ctx.Evaluate(args[2])
	}
	return newBoolValue(false)
}

// calcIFS evaluates condition/value pairs left to right and stops at the
// first TRUE condition. No TRUE condition is #N/A.
func calcIFS(ctx *CallContext, args []Node) Value {
	if len(args) < 2 || len(args)%2 != 0 {
		return newErrorValue(errValue("IFS takes condition/value pairs"))
	}
	for i := 0; i < len(args); i += 2 {
		cond := ctx.Evaluate(args[i])
		if err := firstError(cond); err != nil {
			return newErrorValue(err)
		}
		b, err := coerceLogical(cond, "IFS condition")
		if err != nil {
			return newErrorValue(err)
		}
		if b {
			return ctx.Evaluate(args[i+1])
		}
	}
	return newErrorValue(errNA("IFS: no condition was TRUE"))
}

// calcIFERROR absorbs every error kind: the fallback is evaluated only
// when the first argument produced an error.
func calcIFERROR(ctx *CallContext, args []Node) Value {
	if len(args) != 2 {
		return newErrorValue(errValue("IFERROR takes two arguments"))
	}
	value := ctx.Evaluate(args[0])
	if firstError(value) != nil {
		return ctx.Evaluate(args[1])
	}
	return value
}

// calcSWITCH compares its expression against case/value pairs with
// primitive equality; a trailing unpaired argument is the default.
func calcSWITCH(ctx *CallContext, args []Node) Value {
	if len(args) < 3 {
		return newErrorValue(errValue("SWITCH takes an expression and case/value pairs"))
	}
	expr, err := coerceScalar(ctx.Evaluate(args[0]), "SWITCH expression")
	if err != nil {
		return newErrorValue(err)
	}
	if expr.IsError() {
		return expr
	}
	rest := args[1:]
	for len(rest) >= 2 {
		candidate, err := coerceScalar(ctx.Evaluate(rest[0]), "SWITCH case")
		if err != nil {
			return newErrorValue(err)
		}
		if candidate.IsError() {
			return candidate
		}
		if comparePrimitiveEquality(expr, candidate) {
			return ctx.Evaluate(rest[1])
		}
		rest = rest[2:]
	}
	if len(rest) == 1 {
		return ctx.Evaluate(rest[0])
	}
	return newErrorValue(errNA("SWITCH: no case matched"))
}
