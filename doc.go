/*
cachefall runs batched key to value lookups through a chain of caches layered
in front of an authoritative source.

A Get call sends a query down the chain. Every stage resolves the ids it can
and forwards the rest, until the remainder reaches the source. Resolved values
travel back up, giving each stage on the way a chance to cache them, and the
caller receives the merged result map.

Stages of one batch run concurrently. Faults are collected, not
short-circuited, so a failing branch never throws away the values its
siblings resolved; a failed Get still carries everything resolved so far.
Cancelling the call's context simply truncates the remaining work and returns
what was already found.
*/
package cachefall
