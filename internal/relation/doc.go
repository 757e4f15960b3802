// Package relation decodes relation rows into routing edges and caches the
// decoded edges per upstream meta.
//
// One relation row may list several executors. Decode expands it into one
// model.Relation per executor, all sharing a single group label so the
// balancer treats them as weighted alternatives for the same downstream.
package relation
