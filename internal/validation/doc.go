// Package validation checks one candidate inside its own workspace.
//
// # Overview
//
// A candidate is validated in three stages, stopping at the first failure:
//
//  1. Write - the proposed source is written to the target path inside the
//     workspace (FileError on failure)
//  2. Syntax - the source is parsed for its language (SyntaxError with line,
//     parser message and the offending line)
//  3. Test - the candidate's test, if any, is written next to the source and
//     run from the workspace root with a bounded timeout (TestFailure on a
//     non-zero exit, a start failure or a timeout)
//
// A candidate that clears every stage is a Success carrying the exact source
// text that was validated.
//
// The validator only ever writes below the workspace root it is given; the
// primary project tree is never touched.
//
// # Usage
//
//	v := validation.NewValidator(syntax.NewValidator(), testrunner.NewAdapter(exec.NewRunner()))
//	result := v.Validate(ctx, ws, "sandbox/math_lib.py", source, test)
//	if result.Succeeded() {
//		// result.Source is eligible to be applied
//	}
package validation
