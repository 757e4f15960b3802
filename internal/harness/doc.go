// Package harness runs routing scenarios against compiled specs.
//
// A scenario compiles one or more CUE spec directories into an in-memory
// definition store, routes a single instance through a Router built with a
// fixed balancer seed, a fixed clock and sequential group labels, and
// compares the resulting missions with the scenario's expectations.
//
// # Scenario Format
//
//	name: order_paid
//	description: "A paid order is invoiced and shipped"
//	specs:
//	  - specs
//	seed: 7
//	now: 1700000000
//	instance:
//	  meta: "B:sale/order:1"
//	  id: "42"
//	  para: "1700000100"
//	  states: [paid]
//	  context: { channel: web }
//	expect:
//	  - to: "B:finance/invoice:1"
//	    executor: "http://billing/convert"
//	    delay: 0
//
// An expected delay may be omitted, in which case it is not checked. A
// scenario that names an error expects routing to fail with a message
// containing it, and any expect list is ignored.
//
// # Deterministic Testing
//
// Given the same specs and scenario, Run always produces the same missions
// and group labels, so RunWithGolden can snapshot them.
package harness
