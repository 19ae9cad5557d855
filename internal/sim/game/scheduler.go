package game

import (
	"errors"
	"sort"
	"time"
)

// ErrPastDay is returned when an action is scheduled strictly before
// the session's current day.
var ErrPastDay = errors.New("cannot schedule an action in the past")

// ScheduledAction pairs an action with its effective day.
type ScheduledAction struct {
	Day    time.Time
	Action Action
}

// Scheduler holds pending player commands ordered by effective day.
// The stable sort keeps same-day actions in scheduling order. Owned
// by exactly one session.
type Scheduler struct {
	queue []ScheduledAction
}

// Schedule inserts the action for day. Scheduling strictly before
// current fails; the queue is left untouched on failure.
func (s *Scheduler) Schedule(a Action, day, current time.Time) error {
	if day.Before(current) {
		return ErrPastDay
	}
	s.queue = append(s.queue, ScheduledAction{Day: day, Action: a})
	sort.SliceStable(s.queue, func(i, j int) bool {
		return s.queue[i].Day.Before(s.queue[j].Day)
	})
	return nil
}

// Drain removes and returns every action whose effective day is on or
// before day, in (day, scheduling) order. Future actions stay queued;
// a drained action is never returned again.
func (s *Scheduler) Drain(day time.Time) []Action {
	var due []Action
	var future []ScheduledAction
	for _, sa := range s.queue {
		if !sa.Day.After(day) {
			due = append(due, sa.Action)
		} else {
			future = append(future, sa)
		}
	}
	s.queue = future
	return due
}

// Pending reports how many actions remain queued.
func (s *Scheduler) Pending() int { return len(s.queue) }

// Clear drops every queued action (used on replant).
func (s *Scheduler) Clear() {
	s.queue = nil
}
