// Package harness runs graph scenarios as executable tests.
//
// A scenario builds a graph, drives it through a flow of operations and
// asserts on the resulting event trace, the final computed values, the
// output sink and the console.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	document: graph.yaml        # optional, loaded before setup
//	setup:
//	  - op: create
//	    node: a
//	    value: 2
//	flow:
//	  - op: set_value
//	    node: a
//	    value: 5
//	    expect: 5
//	  - op: animate
//	    node: a
//	    animate: { start: 0, stop: 1, step: 0.5, delay: 10ms }
//	assertions:
//	  - type: compute
//	    node: a
//	    expect: 1.0
//	  - type: trace_count
//	    event: update
//	    node: a
//	    count: 4
//
// # Operations
//
//   - create: create or overwrite a Node with value or func
//   - set_arg: bind param to ref or to a literal value
//   - unbind: clear param
//   - set_value: replace a Node's value
//   - delete: remove a Node
//   - output: export a Node to the output sink
//   - animate: run an animation to completion on a virtual clock
//   - sync: apply HCL source
//
// # Assertion Types
//
//   - trace_contains: an event of a type, filtered by node, param and ref
//   - trace_order: events, written "type:node", appear in order
//   - trace_count: matching events appear exactly count times
//   - compute: a Node's final value equals expect
//   - output: the sink's members and log holder
//   - reports: the number of console reports, for one Node or all
//
// # Deterministic Testing
//
// Events are stamped by the graph's logical clock and animations run on
// testutil.ManualHost, so a scenario produces the same trace on every run.
// Traces are compared against golden files with RunWithGolden.
package harness
