// Package schedule allocates a catalogue of recurring meetings onto a
// 4-week, Monday–Thursday grid of half-hour slots.
//
// A run books external reservations first (each blocks its span in every
// week), then places meetings one at a time in catalogue order. Placement
// picks one day and start slot for the whole meeting, preferring the least
// loaded days, and commits it to as many distinct weeks as its recurrence
// needs. Nothing is replanned: later meetings only see what earlier ones
// left free, and a meeting that fails midway keeps the weeks it got.
package schedule
