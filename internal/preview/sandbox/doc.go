/*
Package sandbox runs preview JavaScript in ephemeral goja realms.

# Overview

Every execution gets its own realm: a fresh goja VM with no module loader,
process object, filesystem or network. A realm is created when the request
starts and destroyed as soon as the first of completion, exception, timeout or
caller cancellation happens. It is never handed to another request.

# Lifecycle

	CREATED -> RUNNING -> COMPLETED | FAILED | TIMED_OUT | CANCELLED -> TORN_DOWN

The terminal transition is guarded by a single atomic flag. The path that flips
it builds the result and tears the realm down; every other path returns without
touching the result. Teardown itself runs at most once.

# Console capture

console.log, warn, error, info and debug write formatted entries into the
request's buffer. Formatting is fixed:

  - strings are double quoted
  - functions render as [Function]
  - objects and arrays go through JSON.stringify, falling back to [Object]
  - everything else uses string coercion

# Usage

	exec := sandbox.NewExecutor(sandbox.DefaultConfig(), sandbox.WithLogger(logger))

	result := exec.Execute(ctx, sandbox.ExecutionRequest{
		SourceCode: "console.log('hi'); 7",
		FileName:   "main.js",
		TimeoutMs:  2000,
	})
	// result.Output == "\"hi\"\nResult: 7"

A Pool keeps realms pre-built so the setup cost is paid off the request path;
pooled realms are still single-use.
*/
package sandbox
